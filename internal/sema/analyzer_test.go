package sema

import (
	"strings"
	"testing"

	"github.com/rdkc4/minic/internal/frontend"
)

// analyze is a test helper running the full two-phase analysis over
// source text, returning the rendered diagnostics ("" when clean).
func analyze(t *testing.T, src string) string {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	a := NewAnalyzer()
	bank := a.Analyze(prog)
	if bank.Empty() {
		return ""
	}
	return bank.Banner("Semantic analysis", a.FunctionOrder()...)
}

func TestAnalyzeValidPrograms(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"minimal", "int main() { return 0; }"},
		{"recursion", "int fib(int n) { if (n == 0) return 0; else if (n == 1) return 1; else return fib(n - 1) + fib(n - 2); } int main() { return fib(6); }"},
		{"forward reference", "int main() { return later(); } int later() { return 1; }"},
		{"auto from initializer", "int main() { auto x = 3; return x; }"},
		{"auto keeps initializer type on assignment", "unsigned f() { return 1u; } int main() { auto x = 1; x = 2; return x; }"},
		{"unsigned arithmetic", "unsigned f(unsigned a) { return a * 2u; } int main() { int x; x = 1; return x; }"},
		{"void function", "void noop() { return; } int main() { return 0; }"},
		{"all arms return", "int f(int x) { switch (x) { case 1: return 1; default: return 0; } } int main() { return f(2); }"},
		{"do-while returns", "int f() { do { return 1; } while (1 < 2); } int main() { return f(); }"},
		{"nested compound", "int main() { int x = 1; { int y = 2; x = y; } return x; }"},
		{"for condition over another variable", "int main() { int i; int j; j = 3; for (i = 0; j < 5; i = i + 1) { j = j + 1; } return j; }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			if out := analyze(t, tc.src); out != "" {
				t.Errorf("expected clean analysis, got:\n%s", out)
			}
		})
	}
}

func TestAnalyzeErrors(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string
	}{
		{"missing main", "int f() { return 0; }", "'main' function not found"},
		{"main with parameters", "int main(int x) { return x; }", "'main' must take zero parameters"},
		{"function redefinition", "int f() { return 0; } int f() { return 1; } int main() { return 0; }", "already defined"},
		{"auto return type", "auto f() { return 0; } int main() { return 0; }", "may not return 'auto'"},
		{"void parameter", "int f(void x) { return 0; } int main() { return 0; }", "invalid type"},
		{"duplicate parameter", "int f(int a, int a) { return 0; } int main() { return 0; }", "parameter 'a' redefined"},
		{"undefined variable", "int main() { return a; }", "undefined variable 'a'"},
		{"variable redefinition", "int main() { int a; int a; return 0; }", "variable 'a' redefined"},
		{"local named after function", "int f() { return 0; } int main() { int f = 1; return f; }", "variable 'f' redefined"},
		{"undefined function", "int main() { return g(); }", "undefined function 'g'"},
		{"calling main", "int f() { return main(); } int main() { return 0; }", "'main' may not be called"},
		{"argument count", "int f(int a) { return a; } int main() { return f(1, 2); }", "expects 1 argument(s), got 2"},
		{"argument type", "int f(int a) { return a; } int main() { return f(1u); }", "expected 'int'"},
		{"return type mismatch", "int main() { return 1u; }", "does not match"},
		{"assignment type mismatch", "int main() { int a; a = 1u; return 0; }", "cannot assign"},
		{"auto without initializer", "int main() { auto a; return 0; }", "without an initializer"},
		{"void variable", "int main() { void v; return 0; }", "invalid type"},
		{"not all paths return", "int main() { int a = 1; if (a < 2) return 0; }", "does not return on all paths"},
		{"loop does not count as return", "int main() { int i; for (i = 0; i < 3; i = i + 1) return i; }", "does not return on all paths"},
		{"duplicate case literal", "int main() { int x = 1; switch (x) { case 1: return 1; case 1: return 2; default: return 0; } }", "duplicate case literal"},
		{"case literal type mismatch", "int main() { int x = 1; switch (x) { case 1u: return 1; default: return 0; } }", "does not match switch variable type"},
		{"switch on undefined", "int main() { switch (y) { default: break; } return 0; }", "undefined variable 'y'"},
		{"for variable mismatch", "int main() { int i; int j; j = 0; for (i = 0; i < 3; j = j + 1) { } return 0; }", "expected 'i'"},
		{"relational type mismatch", "int main() { int a = 1; if (a < 2u) return 0; return 1; }", "mismatched types"},
		{"operand type mismatch", "int main() { return 1 + 2u; }", "mismatched types"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			out := analyze(t, tc.src)
			if out == "" {
				t.Fatalf("expected a semantic error containing %q", tc.want)
			}
			if !strings.Contains(out, tc.want) {
				t.Errorf("diagnostics do not contain %q:\n%s", tc.want, out)
			}
		})
	}
}

// TestPoisonedTypeSuppressesCascade verifies that a NoType operand
// poisons its parent instead of producing a second mismatch report.
func TestPoisonedTypeSuppressesCascade(t *testing.T) {
	out := analyze(t, "int main() { return a + 1; }")
	if !strings.Contains(out, "undefined variable 'a'") {
		t.Fatalf("expected the undefined-variable report:\n%s", out)
	}
	if strings.Contains(out, "mismatched") {
		t.Errorf("poisoned operand must not cascade into a mismatch report:\n%s", out)
	}
}

// TestGlobalTableAfterAnalysis verifies the scope-discipline invariant:
// once analysis completes, the shared table holds exactly the function
// symbols.
func TestGlobalTableAfterAnalysis(t *testing.T) {
	prog, err := frontend.Parse("int f(int a) { int b = a; return b; } int main() { return f(1); }")
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	a := NewAnalyzer()
	if bank := a.Analyze(prog); !bank.Empty() {
		t.Fatalf("unexpected diagnostics:\n%s", bank.Banner("Semantic analysis"))
	}
	for _, name := range []string{"f", "main"} {
		if !a.global.Lookup(name, FunctionSym) {
			t.Errorf("function symbol %q missing after analysis", name)
		}
	}
	for _, name := range []string{"a", "b"} {
		if a.global.Lookup(name) {
			t.Errorf("local %q leaked into the global table", name)
		}
	}
}

// TestDeterministicErrorOrder verifies that diagnostics render in
// function source order regardless of the parallel body pass.
func TestDeterministicErrorOrder(t *testing.T) {
	src := "int f() { return x; } int g() { return y; } int main() { return z; }"
	want := analyze(t, src)
	for i := 0; i < 8; i++ {
		if got := analyze(t, src); got != want {
			t.Fatalf("nondeterministic diagnostics:\n%s\nvs\n%s", want, got)
		}
	}
	xi := strings.Index(want, "'x'")
	yi := strings.Index(want, "'y'")
	zi := strings.Index(want, "'z'")
	if xi < 0 || yi < 0 || zi < 0 || !(xi < yi && yi < zi) {
		t.Errorf("errors not in function source order:\n%s", want)
	}
}
