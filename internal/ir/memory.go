package ir

// computeMemory walks a function's post-DCE body and records every
// local variable and hoisted temporary it reaches, in tree order (a
// declaration before its own temporaries, a node's temporaries before
// its children), then sets RequiredMemory to 8 times
// that count. The walk must run after dead-code elimination so that
// locals and temporaries inside eliminated code are not counted.
func computeMemory(f *Function) {
	f.Locals = nil
	collectLocals(f.Body, &f.Locals)
	f.RequiredMemory = 8 * len(f.Locals)
}

func collectLocals(n *Node, out *[]Local) {
	if n == nil {
		return
	}
	if n.Kind == VarDecl {
		*out = append(*out, Local{Name: n.Name, Type: n.Type})
	}
	for _, t := range n.Temps {
		*out = append(*out, Local{Name: t.Name, Type: t.Type})
		collectLocals(t.Call, out)
	}
	for _, c := range n.Children {
		collectLocals(c, out)
	}
}
