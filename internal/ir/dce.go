package ir

// eliminateDeadCode truncates every statement sequence in body at the
// first statement whose structural "always returns" predicate holds,
// applied in place, recursively, post-order.
func eliminateDeadCode(body *Node) {
	walkTruncate(body)
}

// walkTruncate recurses into a node's nested statement blocks before
// truncating the node's own child list, so nested truncation happens
// before the parent's always-returns predicate is evaluated against it.
func walkTruncate(n *Node) {
	if n == nil {
		return
	}
	switch n.Kind {
	case Compound:
		for _, c := range n.Children {
			walkTruncate(c)
		}
		n.Children = truncateAfterReturn(n.Children)
	case If:
		walkTruncate(n.Children[1])
		if len(n.Children) > 2 {
			walkTruncate(n.Children[2])
		}
	case While, DoWhile:
		for _, c := range n.Children {
			if c.Kind == Compound || c.Kind == If || c.Kind == Switch || c.Kind == While || c.Kind == DoWhile || c.Kind == For {
				walkTruncate(c)
			}
		}
	case For:
		walkTruncate(n.Children[3])
	case Switch:
		block := n.Children[1]
		for _, arm := range block.Children {
			walkTruncate(arm)
			arm.Children = truncateArmAfterReturn(arm)
		}
	}
}

// truncateAfterReturn drops every statement after the first one whose
// alwaysReturns predicate holds.
func truncateAfterReturn(stmts []*Node) []*Node {
	for i, s := range stmts {
		if alwaysReturns(s) {
			return stmts[:i+1]
		}
	}
	return stmts
}

// truncateArmAfterReturn truncates a case/default arm's statement list,
// skipping the leading literal child a Case node carries.
func truncateArmAfterReturn(arm *Node) []*Node {
	if arm.Kind != Case {
		return truncateAfterReturn(arm.Children)
	}
	lit := arm.Children[0]
	rest := truncateAfterReturn(arm.Children[1:])
	return append([]*Node{lit}, rest...)
}

// alwaysReturns is the IR-level structural "always returns" predicate,
// the same shape as the analyzer's AST-level version except for loops:
// a while/for whose condition folded to a non-zero literal, or a for
// with no condition, counts as terminal here.
func alwaysReturns(n *Node) bool {
	switch n.Kind {
	case Return:
		return true
	case Compound:
		for _, s := range n.Children {
			if alwaysReturns(s) {
				return true
			}
		}
		return false
	case If:
		if len(n.Children) < 3 {
			return false
		}
		return alwaysReturns(n.Children[1]) && alwaysReturns(n.Children[2])
	case DoWhile:
		return alwaysReturns(n.Children[0])
	case Switch:
		block := n.Children[1]
		hasDefault := false
		for _, arm := range block.Children {
			if arm.Kind == Default {
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
	case While:
		// Only a loop whose condition folded to a constant-true literal
		// is terminal: control never reaches the statements after it.
		cond := n.Children[0]
		return cond.Kind == Literal && cond.Int != 0
	case For:
		cond := n.Children[1]
		return cond.Kind < 0 || (cond.Kind == Literal && cond.Int != 0)
	default:
		return false
	}
}

func armAlwaysReturns(arm *Node) bool {
	stmts := arm.Children
	if arm.Kind == Case {
		stmts = arm.Children[1:]
	}
	for _, s := range stmts {
		if alwaysReturns(s) {
			return true
		}
	}
	return false
}
