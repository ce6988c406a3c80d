package sema

// ScopeManager owns a stack of lexical scopes over a single SymbolTable.
// Each scope records the names inserted during its lifetime so that
// popping it removes exactly those entries, restoring the table to the
// state it held when the scope was pushed.
type ScopeManager struct {
	table  *SymbolTable
	scopes [][]string
}

// NewScopeManager returns a ScopeManager over table with no scopes pushed.
func NewScopeManager(table *SymbolTable) *ScopeManager {
	return &ScopeManager{table: table}
}

// Table returns the underlying symbol table.
func (m *ScopeManager) Table() *SymbolTable {
	return m.table
}

// PushScope begins a new lexical scope.
func (m *ScopeManager) PushScope() {
	m.scopes = append(m.scopes, nil)
}

// PopScope removes every name inserted since the matching PushScope.
func (m *ScopeManager) PopScope() {
	if len(m.scopes) == 0 {
		return
	}
	top := m.scopes[len(m.scopes)-1]
	for _, name := range top {
		m.table.remove(name)
	}
	m.scopes = m.scopes[:len(m.scopes)-1]
}

// Insert inserts sym into the table and, on success, records its name
// against the currently open scope so a later PopScope reclaims it.
func (m *ScopeManager) Insert(sym *Symbol) bool {
	if !m.table.Insert(sym) {
		return false
	}
	if len(m.scopes) > 0 {
		top := len(m.scopes) - 1
		m.scopes[top] = append(m.scopes[top], sym.Name)
	}
	return true
}

// Lookup and Get delegate to the underlying table.
func (m *ScopeManager) Lookup(name string, kinds ...SymbolKind) bool {
	return m.table.Lookup(name, kinds...)
}

func (m *ScopeManager) Get(name string) *Symbol {
	return m.table.Get(name)
}

// Depth reports how many scopes are currently open.
func (m *ScopeManager) Depth() int {
	return len(m.scopes)
}
