// Package sema implements the symbol table, the scope manager and the
// two-phase semantic analyzer.
package sema

import "github.com/rdkc4/minic/internal/ast"

// SymbolKind distinguishes the three kinds of name a Symbol can bind.
type SymbolKind int

const (
	FunctionSym SymbolKind = iota
	ParameterSym
	VariableSym
)

func (k SymbolKind) String() string {
	switch k {
	case FunctionSym:
		return "function"
	case ParameterSym:
		return "parameter"
	case VariableSym:
		return "variable"
	default:
		return "unknown"
	}
}

// Symbol is a single named entity known to the symbol table. Params is
// populated for FunctionSym only and borrows the defining AST function's
// parameter nodes directly; the AST outlives every phase that reads
// Params, so borrowing is safe.
type Symbol struct {
	Name   string
	Kind   SymbolKind
	Type   ast.Type
	Params []*ast.Node
}

// SymbolTable is a single flat name->Symbol mapping. Shadowing is not
// supported: inserting a name already present anywhere in the table is
// rejected regardless of which scope holds it.
type SymbolTable struct {
	entries map[string]*Symbol
}

// NewSymbolTable returns an empty table.
func NewSymbolTable() *SymbolTable {
	return &SymbolTable{entries: make(map[string]*Symbol)}
}

// Insert rejects a duplicate name and otherwise records sym, returning
// whether the insertion succeeded.
func (t *SymbolTable) Insert(sym *Symbol) bool {
	if _, exists := t.entries[sym.Name]; exists {
		return false
	}
	t.entries[sym.Name] = sym
	return true
}

// Lookup reports whether name exists in the table with a kind in kinds.
func (t *SymbolTable) Lookup(name string, kinds ...SymbolKind) bool {
	sym, ok := t.entries[name]
	if !ok {
		return false
	}
	if len(kinds) == 0 {
		return true
	}
	for _, k := range kinds {
		if sym.Kind == k {
			return true
		}
	}
	return false
}

// Get returns the symbol for name. Precondition: Lookup(name) succeeded.
func (t *SymbolTable) Get(name string) *Symbol {
	return t.entries[name]
}

// remove deletes name unconditionally; used only by scope pop.
func (t *SymbolTable) remove(name string) {
	delete(t.entries, name)
}
