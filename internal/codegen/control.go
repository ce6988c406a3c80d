package codegen

import (
	"fmt"
	"sync/atomic"

	"github.com/rdkc4/minic/internal/ir"
)

// isNone reports whether n is the builder's "omitted" sentinel (used
// for a for-statement's optional initializer/condition/incrementer).
func isNone(n *ir.Node) bool {
	return n == nil || n.Kind < 0
}

// jumpMnemonics returns the signed/unsigned-aware conditional jump for
// kind (true branch) and its opposite (false branch), selected by the
// operand type (jg vs ja, jl vs jb, ...).
func jumpMnemonics(kind ir.Kind, unsigned bool) (trueJmp, falseJmp string) {
	switch kind {
	case ir.Lt:
		if unsigned {
			return "jb", "jae"
		}
		return "jl", "jge"
	case ir.Gt:
		if unsigned {
			return "ja", "jbe"
		}
		return "jg", "jle"
	case ir.Le:
		if unsigned {
			return "jbe", "ja"
		}
		return "jle", "jg"
	case ir.Ge:
		if unsigned {
			return "jae", "jb"
		}
		return "jge", "jl"
	case ir.Eq:
		return "je", "jne"
	case ir.Ne:
		return "jne", "je"
	default:
		return "je", "jne"
	}
}

// setMnemonic returns the flag-materializing instruction matching kind
// under the operand type's signedness.
func setMnemonic(kind ir.Kind, unsigned bool) string {
	switch kind {
	case ir.Lt:
		if unsigned {
			return "setb"
		}
		return "setl"
	case ir.Gt:
		if unsigned {
			return "seta"
		}
		return "setg"
	case ir.Le:
		if unsigned {
			return "setbe"
		}
		return "setle"
	case ir.Ge:
		if unsigned {
			return "setae"
		}
		return "setge"
	case ir.Eq:
		return "sete"
	default:
		return "setne"
	}
}

// emitCompare evaluates both sides of a relational node and emits the
// cmp; it leaves flags set for the caller to pick a jump direction.
func (g *genCtx) emitCompare(n *ir.Node) (kind ir.Kind, unsigned bool) {
	lloc := g.emitExpr(n.Children[0])
	rloc := g.emitExpr(n.Children[1])
	rreg := g.consume(rloc, "%rsi")
	lreg := g.consume(lloc, "%rdi")
	g.w.Ins("cmp", rreg, lreg)
	return n.Kind, isUnsigned(n.Type)
}

// emitCond emits a relational node's comparison and jumps to
// falseLabel when the condition does not hold, skipping the guarded
// body. A condition the builder folded down to a literal needs no
// comparison: a zero literal jumps unconditionally, a non-zero one
// falls through.
func (g *genCtx) emitCond(n *ir.Node, falseLabel string) {
	if n.Kind == ir.Literal {
		if n.Int == 0 {
			g.w.Ins("jmp", falseLabel)
		}
		return
	}
	kind, unsigned := g.emitCompare(n)
	_, falseJmp := jumpMnemonics(kind, unsigned)
	g.w.Ins(falseJmp, falseLabel)
}

// emitCondTrue emits a relational node's comparison and jumps to
// trueLabel when the condition holds, used by do-while's back-edge.
func (g *genCtx) emitCondTrue(n *ir.Node, trueLabel string) {
	if n.Kind == ir.Literal {
		if n.Int != 0 {
			g.w.Ins("jmp", trueLabel)
		}
		return
	}
	kind, unsigned := g.emitCompare(n)
	trueJmp, _ := jumpMnemonics(kind, unsigned)
	g.w.Ins(trueJmp, trueLabel)
}

// emitIf flattens the nested else-if chain the parser/builder produce
// (each "else if" is a further If node in the else slot) into one
// label group sharing N: _if{N}, _elif{N}_{i}, _else{N}, _if{N}_end.
func (g *genCtx) emitIf(n *ir.Node) {
	type arm struct {
		temps []ir.TempBinding
		cond  *ir.Node
		body  *ir.Node
	}
	var arms []arm
	var elseBody *ir.Node

	cur := n
	for {
		arms = append(arms, arm{temps: cur.Temps, cond: cur.Children[0], body: cur.Children[1]})
		if len(cur.Children) > 2 {
			next := cur.Children[2]
			if next.Kind == ir.If {
				cur = next
				continue
			}
			elseBody = next
		}
		break
	}

	n0 := nextLabel()
	endLabel := fmt.Sprintf("_if%d_end", n0)

	for i, a := range arms {
		label := fmt.Sprintf("_if%d", n0)
		if i > 0 {
			label = fmt.Sprintf("_elif%d_%d", n0, i-1)
		}
		g.w.Label(label)
		g.emitTemps(a.temps)

		var falseLabel string
		switch {
		case i+1 < len(arms):
			falseLabel = fmt.Sprintf("_elif%d_%d", n0, i)
		case elseBody != nil:
			falseLabel = fmt.Sprintf("_else%d", n0)
		default:
			falseLabel = endLabel
		}
		g.emitCond(a.cond, falseLabel)
		g.emitStatement(a.body)
		g.w.Ins("jmp", endLabel)
	}

	if elseBody != nil {
		g.w.Label(fmt.Sprintf("_else%d", n0))
		g.emitStatement(elseBody)
	}
	g.w.Label(endLabel)
}

// emitWhile emits the classic top-tested loop: _while{N}/_while{N}_end.
func (g *genCtx) emitWhile(n *ir.Node) {
	n0 := nextLabel()
	startLabel := fmt.Sprintf("_while%d", n0)
	endLabel := fmt.Sprintf("_while%d_end", n0)

	g.w.Label(startLabel)
	g.emitTemps(n.Temps)
	g.emitCond(n.Children[0], endLabel)
	g.emitStatement(n.Children[1])
	g.w.Ins("jmp", startLabel)
	g.w.Label(endLabel)
}

// emitDoWhile emits the bottom-tested loop: body runs once unconditionally,
// then the condition's back-edge jump re-enters _do_while{N} on true.
func (g *genCtx) emitDoWhile(n *ir.Node) {
	n0 := nextLabel()
	label := fmt.Sprintf("_do_while%d", n0)

	g.w.Label(label)
	g.emitStatement(n.Children[0])
	g.emitTemps(n.Temps)
	g.emitCondTrue(n.Children[1], label)
}

// emitFor emits the initializer once, then a _for{N}/_for{N}_end loop;
// an omitted cond falls through unconditionally.
func (g *genCtx) emitFor(n *ir.Node) {
	init, cond, inc, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]

	if !isNone(init) {
		g.emitStatement(init)
	}

	n0 := nextLabel()
	startLabel := fmt.Sprintf("_for%d", n0)
	endLabel := fmt.Sprintf("_for%d_end", n0)

	g.w.Label(startLabel)
	if !isNone(cond) {
		g.emitTemps(n.Temps)
		g.emitCond(cond, endLabel)
	}
	g.emitStatement(body)
	if !isNone(inc) {
		g.emitStatement(inc)
	}
	g.w.Ins("jmp", startLabel)
	g.w.Label(endLabel)
}

// emitSwitch emits a sequential compare-chain over case labels: each
// case loads the switch variable and its literal, compares,
// and falls to the next case/default/end on mismatch; a case without an
// explicit break jumps past the next case's compare into its statements
// (or, for the last case, runs straight into the default arm or the end).
func (g *genCtx) emitSwitch(n *ir.Node) {
	idNode, block := n.Children[0], n.Children[1]

	var cases []*ir.Node
	var def *ir.Node
	for _, arm := range block.Children {
		if arm.Kind == ir.Default {
			def = arm
		} else {
			cases = append(cases, arm)
		}
	}

	n0 := nextLabel()
	endLabel := fmt.Sprintf("_switch%d_end", n0)
	defaultLabel := fmt.Sprintf("_switch%d_default", n0)

	for i, c := range cases {
		g.w.Label(fmt.Sprintf("_switch%d_case%d", n0, i))
		g.w.Ins("mov", g.operand(idNode.Name), "%rcx")
		lit := c.Children[0]
		g.w.Ins("mov", fmt.Sprintf("$%d", lit.Int), "%rdx")
		g.w.Ins("cmp", "%rcx", "%rdx")

		var next string
		switch {
		case i+1 < len(cases):
			next = fmt.Sprintf("_switch%d_case%d", n0, i+1)
		case def != nil:
			next = defaultLabel
		default:
			next = endLabel
		}
		g.w.Ins("jne", next)
		if i > 0 && !cases[i-1].HasBreak {
			g.w.Label(fmt.Sprintf("_switch%d_case%d_body", n0, i))
		}

		for _, s := range c.Children[1:] {
			g.emitStatement(s)
		}
		if c.HasBreak {
			g.w.Ins("jmp", endLabel)
		} else if i+1 < len(cases) {
			g.w.Ins("jmp", fmt.Sprintf("_switch%d_case%d_body", n0, i+1))
		}
	}

	if def != nil {
		g.w.Label(defaultLabel)
		for _, s := range def.Children {
			g.emitStatement(s)
		}
	}
	g.w.Label(endLabel)
}

// storePrintfFlag records that some function in this compilation unit
// called printf, so Generate appends the runtime helper exactly once.
// Relaxed ordering suffices: the flag is read only after the pool drains.
func storePrintfFlag(flag *int32) {
	atomic.StoreInt32(flag, 1)
}

// printfHelper is the hand-written runtime routine emitted once when
// any function uses printf: it renders the integer in %rax to a stack
// buffer by repeated division by ten, then writes it plus a trailing
// newline to fd 1.
func printfHelper() string {
	return `
_printf:
	push %rbp
	mov %rsp, %rbp
	sub $48, %rsp
	mov %rax, %rsi
	lea -1(%rbp), %rdi
	movb $10, (%rdi)
	dec %rdi
	xor %r9, %r9
	test %rsi, %rsi
	jns _printf_digits
	mov $1, %r9
	neg %rsi
_printf_digits:
	mov $10, %r10
_printf_digit_loop:
	xor %rdx, %rdx
	mov %rsi, %rax
	div %r10
	add $48, %rdx
	movb %dl, (%rdi)
	dec %rdi
	mov %rax, %rsi
	test %rsi, %rsi
	jnz _printf_digit_loop
	test %r9, %r9
	jz _printf_write
	movb $45, (%rdi)
	dec %rdi
_printf_write:
	inc %rdi
	mov %rdi, %r11
	lea -1(%rbp), %rdx
	sub %r11, %rdx
	inc %rdx
	mov %r11, %rsi
	mov $1, %rdi
	mov $1, %rax
	syscall
	mov %rbp, %rsp
	pop %rbp
	ret
`
}
