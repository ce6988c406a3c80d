package sema

import (
	"runtime"
	"sync"

	"github.com/rdkc4/minic/internal/ast"
	"github.com/rdkc4/minic/internal/diag"
	"github.com/rdkc4/minic/internal/pool"
)

const globalKey = "__global"

// Analyzer runs a two-phase analysis over a parsed Program node,
// annotating expression types in place and collecting diagnostics into
// a Bank.
type Analyzer struct {
	global *SymbolTable
	order  []string // function names in source order, for the deterministic banner.

	// Workers bounds the Phase B task pool; <= 0 means hardware parallelism.
	Workers int
}

// NewAnalyzer returns an analyzer with an empty global (function) table.
func NewAnalyzer() *Analyzer {
	return &Analyzer{global: NewSymbolTable()}
}

// FunctionOrder returns function names in source order, for callers
// that need to render diagnostics deterministically.
func (a *Analyzer) FunctionOrder() []string {
	return a.order
}

// Analyze runs Phase A then, if it succeeded, Phase B across the
// configured worker pool. It returns a diagnostic bank; the bank is
// empty iff the program is well-formed.
func (a *Analyzer) Analyze(prog *ast.Node) *diag.Bank {
	bank := diag.NewBank()
	a.phaseA(prog, bank)
	if !bank.Empty() {
		return bank
	}
	a.phaseB(prog, bank)
	return bank
}

// phaseA is the single-threaded signature pass.
func (a *Analyzer) phaseA(prog *ast.Node, bank *diag.Bank) {
	for _, fn := range prog.Children {
		a.order = append(a.order, fn.Name())

		sym := &Symbol{Name: fn.Name(), Kind: FunctionSym, Type: fn.Type}
		if !a.global.Insert(sym) {
			bank.Add(globalKey, diag.GlobalErrorf("function '%s' is already defined", fn.Name()))
			continue
		}

		switch fn.Type {
		case ast.NoType:
			bank.Add(globalKey, diag.Errorf(diag.Semantic, fn.Tok.Line, fn.Tok.Col,
				"function '%s' has no declared return type", fn.Name()))
		case ast.Auto:
			bank.Add(globalKey, diag.Errorf(diag.Semantic, fn.Tok.Line, fn.Tok.Col,
				"function '%s' may not return 'auto'", fn.Name()))
		}

		params := fn.Children[:len(fn.Children)-1]
		seen := map[string]bool{}
		for _, p := range params {
			switch p.Type {
			case ast.Void, ast.NoType, ast.Auto:
				bank.Add(globalKey, diag.Errorf(diag.Semantic, p.Tok.Line, p.Tok.Col,
					"parameter '%s' has invalid type '%s'", p.Name(), p.Type))
			}
			if seen[p.Name()] {
				bank.Add(globalKey, diag.Errorf(diag.Semantic, p.Tok.Line, p.Tok.Col,
					"parameter '%s' redefined", p.Name()))
			}
			seen[p.Name()] = true
		}
		if fn.Name() == "main" && len(params) != 0 {
			bank.Add(globalKey, diag.Errorf(diag.Semantic, fn.Tok.Line, fn.Tok.Col,
				"'main' must take zero parameters"))
		}
		sym.Params = params
	}

	if !a.global.Lookup("main", FunctionSym) {
		bank.Add(globalKey, diag.GlobalErrorf("'main' function not found"))
	}
}

// phaseB is the parallel per-function body pass.
func (a *Analyzer) phaseB(prog *ast.Node, bank *diag.Bank) {
	workers := a.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	var mu sync.Mutex
	p := pool.New(workers)
	for _, fn := range prog.Children {
		fn := fn
		p.Submit(func() {
			ds := a.analyzeFunction(fn)
			mu.Lock()
			bank.Add(fn.Name(), ds...)
			mu.Unlock()
		})
	}
	p.Wait()
	p.Close()
}

// bodyCtx is the thread-local context for one function's body analysis.
type bodyCtx struct {
	funcName   string
	returnType ast.Type
	global     *SymbolTable
	scopes     *ScopeManager
	diags      []diag.Diagnostic
}

func (c *bodyCtx) errorf(tok ast.Token, format string, args ...interface{}) {
	c.diags = append(c.diags, diag.Errorf(diag.Semantic, tok.Line, tok.Col, format, args...))
}

// analyzeFunction checks a single function body and returns its
// diagnostics in discovery order, so the rendered output is the same
// no matter how the body tasks interleave.
func (a *Analyzer) analyzeFunction(fn *ast.Node) []diag.Diagnostic {
	c := &bodyCtx{
		funcName:   fn.Name(),
		returnType: fn.Type,
		global:     a.global,
		scopes:     NewScopeManager(NewSymbolTable()),
	}
	body := fn.Children[len(fn.Children)-1]
	params := fn.Children[:len(fn.Children)-1]

	c.scopes.PushScope()
	for _, p := range params {
		if c.global.Lookup(p.Name(), FunctionSym) {
			c.errorf(p.Tok, "parameter '%s' redefined", p.Name())
			continue
		}
		c.scopes.Insert(&Symbol{Name: p.Name(), Kind: ParameterSym, Type: p.Type})
	}
	c.checkCompoundChildren(body)
	c.scopes.PopScope()

	if fn.Type != ast.Void && !alwaysReturnsAST(body) {
		c.errorf(fn.Tok, "function '%s' does not return on all paths", fn.Name())
	}
	return c.diags
}

func (c *bodyCtx) checkStatement(n *ast.Node) {
	switch n.Kind {
	case ast.Variable:
		c.checkVarDecl(n)
	case ast.Assign:
		c.checkAssign(n)
	case ast.If:
		c.checkIf(n)
	case ast.While:
		c.checkCondBody(n.Children[0], n.Children[1])
	case ast.DoWhile:
		c.checkCondBody(n.Children[1], n.Children[0])
	case ast.For:
		c.checkFor(n)
	case ast.Switch:
		c.checkSwitch(n)
	case ast.Return:
		c.checkReturn(n)
	case ast.Printf:
		c.checkExpr(n.Children[0])
	case ast.Compound:
		c.scopes.PushScope()
		c.checkCompoundChildren(n)
		c.scopes.PopScope()
	default:
		c.errorf(n.Tok, "unsupported statement kind %s", n.Kind)
	}
}

func (c *bodyCtx) checkCompoundChildren(n *ast.Node) {
	for _, s := range n.Children {
		c.checkStatement(s)
	}
}

func (c *bodyCtx) checkVarDecl(n *ast.Node) {
	switch n.Type {
	case ast.Void, ast.NoType:
		c.errorf(n.Tok, "variable '%s' has invalid type '%s'", n.Name(), n.Type)
	}
	hasInit := len(n.Children) > 0
	if n.Type == ast.Auto && !hasInit {
		c.errorf(n.Tok, "variable '%s' declared 'auto' without an initializer", n.Name())
	}
	var initType ast.Type = ast.NoType
	if hasInit {
		initType = c.checkExpr(n.Children[0])
	}
	declType := n.Type
	if n.Type == ast.Auto && initType != ast.NoType {
		declType = initType
		n.Type = initType
	} else if hasInit && initType != ast.NoType && declType != initType {
		c.errorf(n.Tok, "cannot initialize '%s' of type '%s' with value of type '%s'", n.Name(), declType, initType)
	}
	// The name space is flat: a local sharing a function's name is a
	// redefinition, not a shadow.
	if c.global.Lookup(n.Name(), FunctionSym) || !c.scopes.Insert(&Symbol{Name: n.Name(), Kind: VariableSym, Type: declType}) {
		c.errorf(n.Tok, "variable '%s' redefined", n.Name())
	}
}

func (c *bodyCtx) checkAssign(n *ast.Node) *ast.Node {
	idNode, rhs := n.Children[0], n.Children[1]
	rhsType := c.checkExpr(rhs)
	lhsType := c.resolveLHS(idNode)
	if lhsType == ast.Auto {
		sym := c.scopes.Get(idNode.Name())
		if sym != nil && rhsType != ast.NoType {
			sym.Type = rhsType
			lhsType = rhsType
		}
	}
	idNode.Type = lhsType
	if lhsType != ast.NoType && rhsType != ast.NoType && lhsType != rhsType {
		c.errorf(n.Tok, "cannot assign value of type '%s' to '%s' of type '%s'", rhsType, idNode.Name(), lhsType)
	}
	n.Type = lhsType
	return n
}

// resolveLHS looks up an assignment target and reports undefined names.
func (c *bodyCtx) resolveLHS(idNode *ast.Node) ast.Type {
	if !c.scopes.Lookup(idNode.Name(), ParameterSym, VariableSym) {
		c.errorf(idNode.Tok, "undefined variable '%s'", idNode.Name())
		return ast.NoType
	}
	return c.scopes.Get(idNode.Name()).Type
}

func (c *bodyCtx) checkIf(n *ast.Node) {
	cond, then := n.Children[0], n.Children[1]
	c.checkRelExp(cond)
	c.checkStatement(then)
	if len(n.Children) > 2 {
		c.checkStatement(n.Children[2])
	}
}

func (c *bodyCtx) checkCondBody(cond, body *ast.Node) {
	c.checkRelExp(cond)
	c.checkStatement(body)
}

func (c *bodyCtx) checkFor(n *ast.Node) {
	init, cond, inc, body := n.Children[0], n.Children[1], n.Children[2], n.Children[3]
	c.scopes.PushScope()
	var initName, incName string
	if init.Kind != -1 {
		assigned := c.checkAssign(init)
		initName = assigned.Children[0].Name()
	}
	if cond.Kind != -1 {
		c.checkRelExp(cond)
	}
	if inc.Kind != -1 {
		assigned := c.checkAssign(inc)
		incName = assigned.Children[0].Name()
		if initName != "" && incName != initName {
			c.errorf(inc.Tok, "for-loop incrementer mutates '%s', expected '%s'", incName, initName)
		}
	}
	c.checkStatement(body)
	c.scopes.PopScope()
}

func (c *bodyCtx) checkSwitch(n *ast.Node) {
	idNode, block := n.Children[0], n.Children[1]
	if !c.scopes.Lookup(idNode.Name(), ParameterSym, VariableSym) {
		c.errorf(idNode.Tok, "undefined variable '%s'", idNode.Name())
		return
	}
	sym := c.scopes.Get(idNode.Name())
	idNode.Type = sym.Type
	if sym.Type != ast.Int && sym.Type != ast.Unsigned {
		c.errorf(idNode.Tok, "switch variable '%s' must be int or unsigned, got '%s'", idNode.Name(), sym.Type)
		return
	}

	seen := map[int64]bool{}
	for _, arm := range block.Children {
		if arm.Kind == ast.Default {
			c.checkCompoundChildren(arm)
			continue
		}
		lit := arm.Children[0]
		litType := ast.Int
		if lit.Unsigned {
			litType = ast.Unsigned
		}
		if litType != sym.Type || (lit.Unsigned && lit.Int < 0) {
			c.errorf(lit.Tok, "case literal type does not match switch variable type '%s'", sym.Type)
			continue
		}
		if seen[lit.Int] {
			c.errorf(lit.Tok, "duplicate case literal %d", lit.Int)
			continue
		}
		seen[lit.Int] = true
		lit.Type = sym.Type
		for _, s := range arm.Children[1:] {
			c.checkStatement(s)
		}
	}
}

func (c *bodyCtx) checkReturn(n *ast.Node) {
	if len(n.Children) == 0 {
		if c.returnType != ast.Void {
			c.errorf(n.Tok, "function '%s' must return a value of type '%s'", c.funcName, c.returnType)
		}
		return
	}
	t := c.checkExpr(n.Children[0])
	if t != ast.NoType && t != c.returnType {
		c.errorf(n.Tok, "return type '%s' does not match function '%s' declared type '%s'", t, c.funcName, c.returnType)
	}
}

// checkRelExp validates a relexp node (a Binary node whose operator is
// relational), type-checking both operands for equality.
func (c *bodyCtx) checkRelExp(n *ast.Node) {
	lhs, rhs := n.Children[0], n.Children[1]
	lt := c.checkExpr(lhs)
	rt := c.checkExpr(rhs)
	if lt != ast.NoType && rt != ast.NoType && lt != rt {
		c.errorf(n.Tok, "relational expression operands have mismatched types '%s' and '%s'", lt, rt)
		n.Type = ast.NoType
		return
	}
	n.Type = lt
}

// checkExpr synthesizes and annotates a numerical expression's type
// bottom-up, poisoning with NoType on any local mismatch.
func (c *bodyCtx) checkExpr(n *ast.Node) ast.Type {
	switch n.Kind {
	case ast.Literal:
		if n.Unsigned {
			n.Type = ast.Unsigned
		} else {
			n.Type = ast.Int
		}
		if n.Unsigned && n.Int < 0 {
			c.errorf(n.Tok, "unsigned literal may not be negative")
			n.Type = ast.NoType
		}
		return n.Type
	case ast.Id:
		if !c.scopes.Lookup(n.Name(), ParameterSym, VariableSym) {
			c.errorf(n.Tok, "undefined variable '%s'", n.Name())
			n.Type = ast.NoType
			return ast.NoType
		}
		n.Type = c.scopes.Get(n.Name()).Type
		return n.Type
	case ast.FunctionCall:
		return c.checkCall(n)
	case ast.Binary:
		lt := c.checkExpr(n.Children[0])
		rt := c.checkExpr(n.Children[1])
		if lt == ast.NoType || rt == ast.NoType {
			n.Type = ast.NoType
			return ast.NoType
		}
		if lt != rt {
			c.errorf(n.Tok, "operator '%s' operands have mismatched types '%s' and '%s'", n.Op(), lt, rt)
			n.Type = ast.NoType
			return ast.NoType
		}
		n.Type = lt
		return lt
	default:
		c.errorf(n.Tok, "unsupported expression kind %s", n.Kind)
		n.Type = ast.NoType
		return ast.NoType
	}
}

func (c *bodyCtx) checkCall(n *ast.Node) ast.Type {
	if n.Name() == "main" {
		c.errorf(n.Tok, "'main' may not be called")
		n.Type = ast.NoType
		return ast.NoType
	}
	if !c.global.Lookup(n.Name(), FunctionSym) {
		c.errorf(n.Tok, "undefined function '%s'", n.Name())
		n.Type = ast.NoType
		return ast.NoType
	}
	sym := c.global.Get(n.Name())
	if len(n.Children) != len(sym.Params) {
		c.errorf(n.Tok, "function '%s' expects %d argument(s), got %d", n.Name(), len(sym.Params), len(n.Children))
		n.Type = sym.Type
		return sym.Type
	}
	for i, arg := range n.Children {
		at := c.checkExpr(arg)
		if at != ast.NoType && at != sym.Params[i].Type {
			c.errorf(arg.Tok, "argument %d to '%s' has type '%s', expected '%s'", i+1, n.Name(), at, sym.Params[i].Type)
		}
	}
	n.Type = sym.Type
	return sym.Type
}

// alwaysReturnsAST reports whether a statement's structural form
// guarantees that control leaves it only via return.
func alwaysReturnsAST(n *ast.Node) bool {
	switch n.Kind {
	case ast.Return:
		return true
	case ast.Compound:
		for _, s := range n.Children {
			if alwaysReturnsAST(s) {
				return true
			}
		}
		return false
	case ast.If:
		if len(n.Children) < 3 {
			return false
		}
		then, els := n.Children[1], n.Children[2]
		return alwaysReturnsAST(then) && alwaysReturnsAST(els)
	case ast.DoWhile:
		return alwaysReturnsAST(n.Children[0])
	case ast.Switch:
		block := n.Children[1]
		hasDefault := false
		for _, arm := range block.Children {
			if arm.Kind == ast.Default {
				hasDefault = true
				if !armAlwaysReturns(arm) {
					return false
				}
				continue
			}
			if arm.HasBreak {
				continue
			}
			if !armAlwaysReturns(arm) {
				return false
			}
		}
		return hasDefault
	case ast.While, ast.For:
		return false
	default:
		return false
	}
}

// armAlwaysReturns checks a case/default arm's statement list, which may
// be empty (a fallthrough arm with only a break never "always returns").
func armAlwaysReturns(arm *ast.Node) bool {
	stmts := arm.Children
	if arm.Kind == ast.Case {
		stmts = arm.Children[1:]
	}
	for _, s := range stmts {
		if alwaysReturnsAST(s) {
			return true
		}
	}
	return false
}
