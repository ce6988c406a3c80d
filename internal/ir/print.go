package ir

import "fmt"

// String returns a print-friendly one-line summary of the node.
func (n *Node) String() string {
	if n == nil {
		return "<nil>"
	}
	switch n.Kind {
	case Literal:
		suffix := ""
		if n.Unsigned {
			suffix = "u"
		}
		return fmt.Sprintf("%s [%d%s]", n.Kind, n.Int, suffix)
	case Id, VarDecl, Call:
		return fmt.Sprintf("%s [%q] type=%s", n.Kind, n.Name, n.Type)
	case Add, Sub, Mul, Div, And, Or, Xor, Shl, Shr, Lt, Gt, Le, Ge, Eq, Ne:
		return fmt.Sprintf("%s [%s] type=%s", n.Kind, n.Op, n.Type)
	default:
		return n.Kind.String()
	}
}

// Print recursively prints the node, its temporary block and its
// children, indenting one level per depth of recursion.
func (n *Node) Print(depth int) {
	if n == nil || n.Kind < 0 {
		fmt.Printf("%*c---\n", depth<<1, ' ')
		return
	}
	fmt.Printf("%*c%s\n", depth<<1, ' ', n.String())
	for _, t := range n.Temps {
		fmt.Printf("%*ctemp %s =\n", (depth+1)<<1, ' ', t.Name)
		t.Call.Print(depth + 2)
	}
	for _, c := range n.Children {
		c.Print(depth + 1)
	}
}

// Print dumps the function's signature, memory facts and body.
func (f *Function) Print() {
	fmt.Printf("func %s(", f.Name)
	for i, p := range f.Params {
		if i > 0 {
			fmt.Print(", ")
		}
		fmt.Printf("%s %s", p.Type, p.Name)
	}
	fmt.Printf(") %s  [memory=%d]\n", f.ReturnType, f.RequiredMemory)
	f.Body.Print(1)
}

// Print dumps every function in source order.
func (p *Program) Print() {
	for _, f := range p.Functions {
		f.Print()
	}
}
