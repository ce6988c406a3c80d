package codegen

import (
	"fmt"

	"github.com/rdkc4/minic/internal/ir"
)

// emitExpr evaluates an arithmetic/bitwise/relational expression and
// returns where its result lives under the register-pool discipline.
// A relational node in value position materializes 0/1;
// at a condition's root emitCond bypasses this and jumps on the flags
// directly.
func (g *genCtx) emitExpr(n *ir.Node) loc {
	switch {
	case n.Kind == ir.Literal:
		return g.emitLeaf(fmt.Sprintf("$%d", n.Int))
	case n.Kind == ir.Id:
		return g.emitLeaf(g.operand(n.Name))
	case n.Kind.IsRelational():
		return g.emitRelationalValue(n)
	default:
		return g.emitBinary(n)
	}
}

// byteRegs maps a 64-bit register to its low-byte form for setcc.
var byteRegs = map[string]string{
	"%r8": "%r8b", "%r9": "%r9b", "%r10": "%r10b", "%r11": "%r11b",
	"%r12": "%r12b", "%r13": "%r13b", "%r14": "%r14b", "%r15": "%r15b",
	"%rdi": "%dil",
}

// emitRelationalValue compares both operands and materializes the
// 0-or-1 result of the comparison into a register via setcc.
func (g *genCtx) emitRelationalValue(n *ir.Node) loc {
	kind, unsigned := g.emitCompare(n)
	set := setMnemonic(kind, unsigned)

	reg, overflow := g.alloc()
	if overflow {
		g.w.Ins(set, byteRegs["%rdi"])
		g.w.Ins("movzbq", byteRegs["%rdi"], "%rdi")
		g.w.Ins("push", "%rdi")
		return loc{}
	}
	g.w.Ins(set, byteRegs[reg])
	g.w.Ins("movzbq", byteRegs[reg], reg)
	return loc{reg: reg}
}

func (g *genCtx) emitLeaf(src string) loc {
	reg, overflow := g.alloc()
	if overflow {
		g.w.Ins("push", src)
		return loc{}
	}
	g.w.Ins("mov", src, reg)
	return loc{reg: reg}
}

func (g *genCtx) emitBinary(n *ir.Node) loc {
	switch n.Kind {
	case ir.Mul, ir.Div:
		return g.emitMulDiv(n)
	case ir.Shl, ir.Shr:
		return g.emitShift(n)
	default:
		return g.emitSimpleBinary(n)
	}
}

// emitSimpleBinary handles the type-agnostic add/sub/and/or/xor family:
// evaluate left then right, pop both (stack scratch %rdi/%rsi on
// overflow), compute in place into the left operand, push the result.
func (g *genCtx) emitSimpleBinary(n *ir.Node) loc {
	lloc := g.emitExpr(n.Children[0])
	rloc := g.emitExpr(n.Children[1])
	lWasPool := lloc.reg != ""
	// The right operand sits above the left when both spilled, so it
	// pops first.
	rreg := g.consume(rloc, "%rsi")
	lreg := g.consume(lloc, "%rdi")

	op := map[ir.Kind]string{ir.Add: "add", ir.Sub: "sub", ir.And: "and", ir.Or: "or", ir.Xor: "xor"}[n.Kind]
	g.w.Ins(op, rreg, lreg)

	if lWasPool {
		g.free++
		return loc{reg: lreg}
	}
	g.w.Ins("push", lreg)
	return loc{}
}

// emitMulDiv routes through %rax:%rdx per the custom convention:
// signed division sign-extends with cqto, unsigned zeroes %rdx first.
func (g *genCtx) emitMulDiv(n *ir.Node) loc {
	lloc := g.emitExpr(n.Children[0])
	rloc := g.emitExpr(n.Children[1])
	rreg := g.consume(rloc, "%rsi")
	lreg := g.consume(lloc, "%rdi")

	g.w.Ins("mov", lreg, "%rax")
	unsigned := isUnsigned(n.Type)
	switch {
	case n.Kind == ir.Mul && unsigned:
		g.w.Ins("mul", rreg)
	case n.Kind == ir.Mul && !unsigned:
		g.w.Ins("imul", rreg)
	case n.Kind == ir.Div && unsigned:
		g.w.Ins("xor", "%rdx", "%rdx")
		g.w.Ins("div", rreg)
	default: // signed div
		g.w.Ins("cqto")
		g.w.Ins("idiv", rreg)
	}

	reg, overflow := g.alloc()
	if overflow {
		g.w.Ins("push", "%rax")
		return loc{}
	}
	g.w.Ins("mov", "%rax", reg)
	return loc{reg: reg}
}

// emitShift loads the shift count into %rcx's byte form and picks the
// arithmetic/logical mnemonic from the operand type.
func (g *genCtx) emitShift(n *ir.Node) loc {
	lloc := g.emitExpr(n.Children[0])
	rloc := g.emitExpr(n.Children[1])
	lWasPool := lloc.reg != ""
	rreg := g.consume(rloc, "%rsi")
	lreg := g.consume(lloc, "%rdi")

	g.w.Ins("mov", rreg, "%rcx")
	unsigned := isUnsigned(n.Type)
	var mnemonic string
	switch {
	case n.Kind == ir.Shl && unsigned:
		mnemonic = "shl"
	case n.Kind == ir.Shl && !unsigned:
		mnemonic = "sal"
	case n.Kind == ir.Shr && unsigned:
		mnemonic = "shr"
	default:
		mnemonic = "sar"
	}
	g.w.Ins(mnemonic, "%cl", lreg)

	if lWasPool {
		g.free++
		return loc{reg: lreg}
	}
	g.w.Ins("push", lreg)
	return loc{}
}

// emitTemps emits every hoisted call in a statement's temporary block,
// in order, storing each result to its reserved stack slot before the
// statement's own primary work touches the register pool.
func (g *genCtx) emitTemps(temps []ir.TempBinding) {
	for _, t := range temps {
		l := g.emitCall(t.Call)
		reg := g.consume(l, "%rdi")
		g.w.Ins("mov", reg, g.operand(t.Name))
	}
}

// emitCall pushes arguments right-to-left, calls, pops the argument
// bytes back off and collects the %rax result.
func (g *genCtx) emitCall(n *ir.Node) loc {
	for i := len(n.Children) - 1; i >= 0; i-- {
		l := g.emitExpr(n.Children[i])
		reg := g.consume(l, "%rdi")
		g.w.Ins("push", reg)
	}
	g.w.Ins("call", n.Name)
	if len(n.Children) > 0 {
		g.w.Ins("add", fmt.Sprintf("$%d", 8*len(n.Children)), "%rsp")
	}
	reg, overflow := g.alloc()
	if overflow {
		g.w.Ins("push", "%rax")
		return loc{}
	}
	g.w.Ins("mov", "%rax", reg)
	return loc{reg: reg}
}
