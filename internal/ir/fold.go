package ir

import "github.com/rdkc4/minic/internal/ast"

// Fold attempts compile-time evaluation of a binary operator over two
// literal operands of the same type: `+ - * /` in the operand width,
// bitwise `& | ^` two's
// complement, `<< >>` arithmetic for signed / logical for unsigned,
// relational operators producing a 0/1 literal of the operand type.
//
// ok reports whether both operands were literals (only then is the
// returned node meaningful). divZero reports the explicit
// division-by-literal-zero condition; the caller must still surface
// this as a build error even though a literal zero node is returned,
// so any enclosing fold remains well-typed.
func Fold(kind Kind, typ ast.Type, tok ast.Token, lhs, rhs *Node) (folded *Node, ok bool, divZero bool) {
	if lhs.Kind != Literal || rhs.Kind != Literal {
		return nil, false, false
	}
	unsigned := typ == ast.Unsigned
	a, b := lhs.Int, rhs.Int

	result := func(v int64) *Node {
		return &Node{Kind: Literal, Tok: tok, Type: typ, Int: v, Unsigned: unsigned}
	}

	switch kind {
	case Add:
		return result(a + b), true, false
	case Sub:
		return result(a - b), true, false
	case Mul:
		if unsigned {
			return result(int64(uint64(a) * uint64(b))), true, false
		}
		return result(a * b), true, false
	case Div:
		if b == 0 {
			return result(0), true, true
		}
		if unsigned {
			return result(int64(uint64(a) / uint64(b))), true, false
		}
		return result(a / b), true, false
	case And:
		return result(a & b), true, false
	case Or:
		return result(a | b), true, false
	case Xor:
		return result(a ^ b), true, false
	case Shl:
		if unsigned {
			return result(int64(uint64(a) << uint(b))), true, false
		}
		return result(a << uint(b)), true, false
	case Shr:
		if unsigned {
			return result(int64(uint64(a) >> uint(b))), true, false
		}
		return result(a >> uint(b)), true, false
	case Lt, Gt, Le, Ge, Eq, Ne:
		return result(boolInt(compareRel(kind, a, b, unsigned))), true, false
	default:
		return nil, false, false
	}
}

func compareRel(kind Kind, a, b int64, unsigned bool) bool {
	if unsigned {
		ua, ub := uint64(a), uint64(b)
		switch kind {
		case Lt:
			return ua < ub
		case Gt:
			return ua > ub
		case Le:
			return ua <= ub
		case Ge:
			return ua >= ub
		case Eq:
			return ua == ub
		case Ne:
			return ua != ub
		}
	}
	switch kind {
	case Lt:
		return a < b
	case Gt:
		return a > b
	case Le:
		return a <= b
	case Ge:
		return a >= b
	case Eq:
		return a == b
	case Ne:
		return a != b
	}
	return false
}

func boolInt(b bool) int64 {
	if b {
		return 1
	}
	return 0
}
