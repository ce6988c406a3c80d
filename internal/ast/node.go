// Package ast defines the syntax tree produced by the lexer/parser
// front end and consumed by the semantic analyzer. It is the input
// contract: immutable in shape, mutated only to attach resolved types.
package ast

import "fmt"

// Kind differentiates the node types that make up a program's syntax tree.
type Kind int

const (
	Program Kind = iota
	Function
	Parameter
	Variable
	Printf
	If
	While
	For
	DoWhile
	Switch
	Case
	Default
	SwitchBlock
	Compound
	Assign
	Return
	Id
	Literal
	FunctionCall
	Binary
)

var kindNames = [...]string{
	"Program", "Function", "Parameter", "Variable", "Printf", "If", "While",
	"For", "DoWhile", "Switch", "Case", "Default", "SwitchBlock", "Compound",
	"Assign", "Return", "Id", "Literal", "FunctionCall", "Binary",
}

func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "UNKNOWN_KIND"
	}
	return kindNames[k]
}

// Type is the resolved value type of an expression, variable or function.
type Type int

const (
	NoType Type = iota
	Auto
	Void
	Int
	Unsigned
)

var typeNames = [...]string{"no_type", "auto", "void", "int", "unsigned"}

func (t Type) String() string {
	if t < 0 || int(t) >= len(typeNames) {
		return "no_type"
	}
	return typeNames[t]
}

// Token carries the source text and position of the lexeme a node was
// built from, used for diagnostics.
type Token struct {
	Text string
	Line int
	Col  int
}

// Node is a single element of the syntax tree. Every node carries a
// Token for diagnostics and, once analysis has run, a resolved Type.
//
// Data holds the node-kind-specific payload:
//   - Id:       identifier name (string)
//   - Binary:   operator text ("+", "-", "==", ...) (string)
//   - Function: function name (string); Variable/Parameter: declared name (string)
//
// Literal nodes use Int/Unsigned instead of Data, so that a leading
// unary minus (admitted only on literals) can be folded straight into
// a signed value during parsing.
type Node struct {
	Kind     Kind
	Tok      Token
	Data     interface{}
	Int      int64 // Literal-only: the parsed (possibly negated) value.
	Type     Type
	Unsigned bool // Literal-only: true when the literal carried a 'u' suffix.
	HasBreak bool // Case/Default-only: true when the arm ends with an explicit break.
	Children []*Node
}

// New allocates a Node of the given kind at the given token with children.
func New(k Kind, tok Token, data interface{}, children ...*Node) *Node {
	return &Node{Kind: k, Tok: tok, Data: data, Children: children}
}

// Name returns the Id/Variable/Parameter/Function name payload.
func (n *Node) Name() string {
	if s, ok := n.Data.(string); ok {
		return s
	}
	return ""
}

// Op returns the Binary operator payload.
func (n *Node) Op() string {
	if s, ok := n.Data.(string); ok {
		return s
	}
	return ""
}

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
	case Id, Variable, Parameter, Function:
		return fmt.Sprintf("%s [%q] type=%s", n.Kind, n.Name(), n.Type)
	case Binary:
		return fmt.Sprintf("%s [%s] type=%s", n.Kind, n.Op(), n.Type)
	default:
		return fmt.Sprintf("%s", n.Kind)
	}
}

// Print recursively prints the node and its children, indenting one
// level per depth of recursion.
func (n *Node) Print(depth int) {
	if n == nil {
		fmt.Printf("%*c---> NIL\n", depth<<1, ' ')
		return
	}
	fmt.Printf("%*c%s\n", depth<<1, ' ', n.String())
	for _, c := range n.Children {
		c.Print(depth + 1)
	}
}
