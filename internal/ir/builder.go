package ir

import (
	"fmt"
	"runtime"
	"sync"

	"github.com/rdkc4/minic/internal/ast"
	"github.com/rdkc4/minic/internal/diag"
	"github.com/rdkc4/minic/internal/pool"
)

// Build lowers an analyzed Program into IR, one task per function,
// across workers goroutines (<= 0 means hardware parallelism). Each task writes only its own pre-sized
// slot, so no further synchronization guards the result slice; a mutex
// guards only the shared diagnostic bank.
func Build(prog *ast.Node, workers int) (*Program, *diag.Bank) {
	bank := diag.NewBank()
	functions := make([]*Function, len(prog.Children))

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var mu sync.Mutex
	p := pool.New(workers)
	for i, fn := range prog.Children {
		i, fn := i, fn
		p.Submit(func() {
			f, ds := buildFunction(fn)
			functions[i] = f
			if len(ds) > 0 {
				mu.Lock()
				bank.Add(fn.Name(), ds...)
				mu.Unlock()
			}
		})
	}
	p.Wait()
	p.Close()

	for _, f := range functions {
		eliminateDeadCode(f.Body)
		computeMemory(f)
	}
	return &Program{Functions: functions}, bank
}

// funcCtx is the thread-local state of one function's lowering task.
type funcCtx struct {
	name      string
	tempCount int
	diags     []diag.Diagnostic
}

func (c *funcCtx) errorf(tok ast.Token, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Errorf(diag.IR, tok.Line, tok.Col, format, args...))
}

func (c *funcCtx) freshTemp() string {
	c.tempCount++
	return fmt.Sprintf("_t%d", c.tempCount)
}

func buildFunction(fn *ast.Node) (*Function, []diag.Diagnostic) {
	c := &funcCtx{name: fn.Name()}
	params := fn.Children[:len(fn.Children)-1]
	astBody := fn.Children[len(fn.Children)-1]

	irParams := make([]Param, len(params))
	for i, p := range params {
		irParams[i] = Param{Name: p.Name(), Type: p.Type}
	}

	body := c.lowerCompound(astBody)
	return &Function{
		Name:       fn.Name(),
		ReturnType: fn.Type,
		Params:     irParams,
		Body:       body,
	}, c.diags
}

func (c *funcCtx) lowerCompound(n *ast.Node) *Node {
	children := make([]*Node, 0, len(n.Children))
	for _, s := range n.Children {
		children = append(children, c.lowerStatement(s))
	}
	return &Node{Kind: Compound, Tok: n.Tok, Children: children}
}

func (c *funcCtx) lowerStatement(n *ast.Node) *Node {
	switch n.Kind {
	case ast.Variable:
		return c.lowerVarDecl(n)
	case ast.Assign:
		return c.lowerAssign(n)
	case ast.Return:
		return c.lowerReturn(n)
	case ast.Printf:
		return c.lowerPrintf(n)
	case ast.If:
		return c.lowerIf(n)
	case ast.While:
		return c.lowerWhile(n)
	case ast.DoWhile:
		return c.lowerDoWhile(n)
	case ast.For:
		return c.lowerFor(n)
	case ast.Switch:
		return c.lowerSwitch(n)
	case ast.Compound:
		return c.lowerCompound(n)
	default:
		c.errorf(n.Tok, "unsupported statement kind %s during lowering", n.Kind)
		return &Node{Kind: Compound, Tok: n.Tok}
	}
}

func (c *funcCtx) lowerVarDecl(n *ast.Node) *Node {
	out := &Node{Kind: VarDecl, Tok: n.Tok, Type: n.Type, Name: n.Name()}
	if len(n.Children) > 0 {
		expr, temps := c.lowerExprHoisted(n.Children[0])
		out.Children = []*Node{expr}
		out.Temps = temps
	}
	return out
}

func (c *funcCtx) lowerAssign(n *ast.Node) *Node {
	idNode, rhs := n.Children[0], n.Children[1]
	expr, temps := c.lowerExprHoisted(rhs)
	id := &Node{Kind: Id, Tok: idNode.Tok, Type: idNode.Type, Name: idNode.Name()}
	out := &Node{Kind: Assign, Tok: n.Tok, Type: n.Type, Children: []*Node{id, expr}}
	out.Temps = temps
	return out
}

func (c *funcCtx) lowerReturn(n *ast.Node) *Node {
	out := &Node{Kind: Return, Tok: n.Tok}
	if len(n.Children) > 0 {
		expr, temps := c.lowerExprHoisted(n.Children[0])
		out.Children = []*Node{expr}
		out.Temps = temps
	}
	return out
}

func (c *funcCtx) lowerPrintf(n *ast.Node) *Node {
	expr, temps := c.lowerExprHoisted(n.Children[0])
	return &Node{Kind: Printf, Tok: n.Tok, Children: []*Node{expr}, Temps: temps}
}

func (c *funcCtx) lowerIf(n *ast.Node) *Node {
	cond, temps := c.lowerExprHoisted(n.Children[0])
	then := c.lowerStatement(n.Children[1])
	children := []*Node{cond, then}
	if len(n.Children) > 2 {
		children = append(children, c.lowerStatement(n.Children[2]))
	}
	out := &Node{Kind: If, Tok: n.Tok, Children: children}
	out.Temps = temps
	return out
}

func (c *funcCtx) lowerWhile(n *ast.Node) *Node {
	cond, temps := c.lowerExprHoisted(n.Children[0])
	body := c.lowerStatement(n.Children[1])
	out := &Node{Kind: While, Tok: n.Tok, Children: []*Node{cond, body}}
	out.Temps = temps
	return out
}

func (c *funcCtx) lowerDoWhile(n *ast.Node) *Node {
	body := c.lowerStatement(n.Children[0])
	cond, temps := c.lowerExprHoisted(n.Children[1])
	out := &Node{Kind: DoWhile, Tok: n.Tok, Children: []*Node{body, cond}}
	out.Temps = temps
	return out
}

func (c *funcCtx) lowerFor(n *ast.Node) *Node {
	init, cond, inc, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	var lInit, lCond, lInc *Node
	var condTemps []TempBinding
	if init.Kind != -1 {
		lInit = c.lowerAssign(init)
	}
	if cond.Kind != -1 {
		lCond, condTemps = c.lowerExprHoisted(cond)
	}
	if inc.Kind != -1 {
		lInc = c.lowerAssign(inc)
	}
	lBody := c.lowerStatement(body)
	out := &Node{Kind: For, Tok: n.Tok, Children: []*Node{orNil(lInit), orNil(lCond), orNil(lInc), lBody}}
	// Condition temporaries are re-run at the top of every iteration,
	// alongside the condition check itself, so they travel on the For
	// node rather than being evaluated once before the loop.
	out.Temps = condTemps
	return out
}

func orNil(n *Node) *Node {
	if n == nil {
		return &Node{Kind: -1}
	}
	return n
}

func (c *funcCtx) lowerSwitch(n *ast.Node) *Node {
	idNode, block := n.Children[0], n.Children[1]
	id := &Node{Kind: Id, Tok: idNode.Tok, Type: idNode.Type, Name: idNode.Name()}
	arms := make([]*Node, 0, len(block.Children))
	for _, arm := range block.Children {
		if arm.Kind == ast.Default {
			arms = append(arms, c.lowerArm(Default, arm, arm.Children))
			continue
		}
		lit := arm.Children[0]
		litNode := &Node{Kind: Literal, Tok: lit.Tok, Type: lit.Type, Int: lit.Int, Unsigned: lit.Unsigned}
		caseArm := c.lowerArm(Case, arm, arm.Children[1:])
		caseArm.Children = append([]*Node{litNode}, caseArm.Children...)
		arms = append(arms, caseArm)
	}
	swBlock := &Node{Kind: SwitchBlock, Tok: block.Tok, Children: arms}
	return &Node{Kind: Switch, Tok: n.Tok, Children: []*Node{id, swBlock}}
}

func (c *funcCtx) lowerArm(kind Kind, arm *ast.Node, stmts []*ast.Node) *Node {
	children := make([]*Node, 0, len(stmts))
	for _, s := range stmts {
		children = append(children, c.lowerStatement(s))
	}
	return &Node{Kind: kind, Tok: arm.Tok, HasBreak: arm.HasBreak, Children: children}
}

// lowerExprHoisted lowers a numerical expression and, if it contains
// one or more call nodes anywhere in its tree, hoists every call into a
// fresh temporary, returning the rewritten expression (each call site
// replaced by Id(name)) plus the temporary bindings in left-to-right
// discovery order.
func (c *funcCtx) lowerExprHoisted(n *ast.Node) (*Node, []TempBinding) {
	var temps []TempBinding
	expr := c.hoistWalk(n, &temps)
	return expr, temps
}

func (c *funcCtx) hoistWalk(n *ast.Node, temps *[]TempBinding) *Node {
	switch n.Kind {
	case ast.Literal:
		return &Node{Kind: Literal, Tok: n.Tok, Type: n.Type, Int: n.Int, Unsigned: n.Unsigned}
	case ast.Id:
		return &Node{Kind: Id, Tok: n.Tok, Type: n.Type, Name: n.Name()}
	case ast.FunctionCall:
		args := make([]*Node, len(n.Children))
		for i, a := range n.Children {
			args[i] = c.hoistWalk(a, temps)
		}
		call := &Node{Kind: Call, Tok: n.Tok, Type: n.Type, Name: n.Name(), Children: args}
		name := c.freshTemp()
		*temps = append(*temps, TempBinding{Name: name, Call: call, Type: n.Type})
		return &Node{Kind: Id, Tok: n.Tok, Type: n.Type, Name: name}
	case ast.Binary:
		kind, ok := opKind[n.Op()]
		if !ok {
			c.errorf(n.Tok, "unknown operator %q", n.Op())
			kind = Add
		}
		lhs := c.hoistWalk(n.Children[0], temps)
		rhs := c.hoistWalk(n.Children[1], temps)
		if folded, ok, divZero := Fold(kind, n.Type, n.Tok, lhs, rhs); ok {
			if divZero {
				c.errorf(n.Tok, "division by ZERO")
			}
			return folded
		}
		return &Node{Kind: kind, Tok: n.Tok, Type: n.Type, Op: n.Op(), Children: []*Node{lhs, rhs}}
	default:
		c.errorf(n.Tok, "unsupported expression kind %s during lowering", n.Kind)
		return &Node{Kind: Literal, Tok: n.Tok, Type: n.Type}
	}
}
