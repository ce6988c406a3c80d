package codegen

import "github.com/rdkc4/minic/internal/ir"

func (g *genCtx) emitStatement(n *ir.Node) {
	switch n.Kind {
	case ir.Compound:
		for _, s := range n.Children {
			g.emitStatement(s)
		}
	case ir.VarDecl:
		g.emitTemps(n.Temps)
		if len(n.Children) > 0 {
			l := g.emitExpr(n.Children[0])
			reg := g.consume(l, "%rdi")
			g.w.Ins("mov", reg, g.operand(n.Name))
		}
	case ir.Assign:
		g.emitTemps(n.Temps)
		l := g.emitExpr(n.Children[1])
		reg := g.consume(l, "%rdi")
		g.w.Ins("mov", reg, g.operand(n.Children[0].Name))
	case ir.Return:
		g.emitTemps(n.Temps)
		if len(n.Children) > 0 {
			l := g.emitExpr(n.Children[0])
			reg := g.consume(l, "%rdi")
			g.w.Ins("mov", reg, "%rax")
		}
		g.w.Ins("jmp", g.fn.Name+"_end")
	case ir.Printf:
		g.emitTemps(n.Temps)
		l := g.emitExpr(n.Children[0])
		reg := g.consume(l, "%rdi")
		g.w.Ins("mov", reg, "%rax")
		g.w.Ins("call", "_printf")
		storePrintfFlag(g.usesPrintf)
	case ir.If:
		g.emitIf(n)
	case ir.While:
		g.emitWhile(n)
	case ir.DoWhile:
		g.emitDoWhile(n)
	case ir.For:
		g.emitFor(n)
	case ir.Switch:
		g.emitSwitch(n)
	}
}
