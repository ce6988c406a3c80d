package codegen

import (
	"regexp"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/gkampitakis/go-snaps/snaps"
	"github.com/rdkc4/minic/internal/frontend"
	"github.com/rdkc4/minic/internal/ir"
	"github.com/rdkc4/minic/internal/sema"
)

// compile is a test helper lowering source text all the way to
// assembly. The label counter is reset and a single worker is used so
// the emitted text is deterministic across runs.
func compile(t *testing.T, src string) string {
	t.Helper()
	prog, err := frontend.Parse(src)
	if err != nil {
		t.Fatalf("parse failed: %s", err)
	}
	a := sema.NewAnalyzer()
	if bank := a.Analyze(prog); !bank.Empty() {
		t.Fatalf("unexpected semantic errors:\n%s", bank.Banner("Semantic analysis"))
	}
	irProg, bank := ir.Build(prog, 1)
	if !bank.Empty() {
		t.Fatalf("unexpected IR errors:\n%s", bank.Banner("Intermediate representation"))
	}
	atomic.StoreInt64(&labelCounter, 0)
	return Generate(irProg, 1)
}

func TestPreamble(t *testing.T) {
	asm := compile(t, "int main() { return 0; }")
	for _, want := range []string{".global _start", ".text", "_start:", "jmp\tmain"} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in:\n%s", want, asm)
		}
	}
}

func TestMainExitsViaSyscall(t *testing.T) {
	asm := compile(t, "int main() { return 7; }")
	for _, want := range []string{
		"main:", "push\t%rbp", "mov\t%rsp, %rbp",
		"main_end:", "mov\t%rax, %rdi", "mov\t$60, %rax", "syscall",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in:\n%s", want, asm)
		}
	}
	if strings.Contains(asm, "\tret\n") {
		t.Errorf("main must not ret:\n%s", asm)
	}
}

func TestFunctionReturnsViaRet(t *testing.T) {
	asm := compile(t, "int sq(int x) { return x * x; } int main() { return sq(5); }")
	if !strings.Contains(asm, "sq_end:") || !strings.Contains(asm, "\tret\n") {
		t.Errorf("non-main functions must ret through their end label:\n%s", asm)
	}
	// Parameter addressing starts above the saved %rbp and return address.
	if !strings.Contains(asm, "16(%rbp)") {
		t.Errorf("first parameter must live at 16(%%rbp):\n%s", asm)
	}
}

func TestCallingConvention(t *testing.T) {
	asm := compile(t, "int add(int a, int b) { return a + b; } int main() { return add(1, 2); }")
	// Caller pops both argument slots after the call.
	if !strings.Contains(asm, "call\tadd") {
		t.Fatalf("missing call:\n%s", asm)
	}
	if !strings.Contains(asm, "add\t$16, %rsp") {
		t.Errorf("caller must pop 16 bytes of arguments:\n%s", asm)
	}
	// Arguments are pushed right-to-left: $2 before $1.
	i2 := strings.Index(asm, "$2")
	i1 := strings.Index(asm[i2:], "$1")
	if i2 < 0 || i1 < 0 {
		t.Errorf("arguments must be pushed right-to-left:\n%s", asm)
	}
}

func TestStackFrame(t *testing.T) {
	asm := compile(t, "int main() { int a = 1; int b = 2; return a + b; }")
	if !strings.Contains(asm, "sub\t$16, %rsp") || !strings.Contains(asm, "add\t$16, %rsp") {
		t.Errorf("prologue/epilogue must reserve and release 16 bytes:\n%s", asm)
	}
	if !strings.Contains(asm, "-8(%rbp)") || !strings.Contains(asm, "-16(%rbp)") {
		t.Errorf("locals must address -8 and -16:\n%s", asm)
	}
}

func TestWhileLabels(t *testing.T) {
	asm := compile(t, "int main() { int x = 0; while (x < 5) { x = x + 1; } return x; }")
	if !strings.Contains(asm, "_while1:") || !strings.Contains(asm, "_while1_end:") {
		t.Errorf("expected _while1 label pair:\n%s", asm)
	}
	if !strings.Contains(asm, "jge\t_while1_end") {
		t.Errorf("condition must jump away on false with the opposite mnemonic:\n%s", asm)
	}
	if !strings.Contains(asm, "jmp\t_while1") {
		t.Errorf("loop body must jump back to the start label:\n%s", asm)
	}
}

func TestDoWhileJumpsBackOnTrue(t *testing.T) {
	asm := compile(t, "int main() { int x = 5; do { x = x + 3; } while (x < 10); return x; }")
	if !strings.Contains(asm, "_do_while1:") {
		t.Errorf("expected _do_while1 label:\n%s", asm)
	}
	if !strings.Contains(asm, "jl\t_do_while1") {
		t.Errorf("do-while must jump back on true:\n%s", asm)
	}
}

func TestIfElifElseLabels(t *testing.T) {
	asm := compile(t, `int f(int n) {
	if (n == 0) return 0;
	else if (n == 1) return 1;
	else return 2;
}
int main() { return f(1); }`)
	for _, want := range []string{"_if1:", "_elif1_0:", "_else1:", "_if1_end:"} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in:\n%s", want, asm)
		}
	}
	if !strings.Contains(asm, "jne\t_elif1_0") {
		t.Errorf("first arm must fall to the elif on false:\n%s", asm)
	}
}

func TestSwitchCompareChain(t *testing.T) {
	asm := compile(t, `int main() {
	int x = 5;
	switch (x) {
		case 1:
			return 3;
		case 5:
			return 1;
		default:
			return 0;
	}
}`)
	for _, want := range []string{
		"_switch1_case0:", "_switch1_case1:", "_switch1_default:", "_switch1_end:",
		"jne\t_switch1_case1", "jne\t_switch1_default",
		"cmp\t%rcx, %rdx",
	} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in:\n%s", want, asm)
		}
	}
}

func TestSwitchBreakJumpsToEnd(t *testing.T) {
	asm := compile(t, `int main() {
	int x = 1;
	int r = 0;
	switch (x) {
		case 1:
			r = 1;
			break;
		case 2:
			r = 2;
			break;
	}
	return r;
}`)
	if strings.Count(asm, "jmp\t_switch1_end") != 2 {
		t.Errorf("each break must jump to the switch end:\n%s", asm)
	}
}

func TestUnsignedSpecialization(t *testing.T) {
	asm := compile(t, `unsigned f(unsigned a, unsigned b) { return a / b + (a >> b) + (a << b); }
int g(int a, int b) { return a / b + (a >> b); }
int main() { return g(8, 2); }`)
	for _, want := range []string{"div\t", "shr\t", "shl\t", "idiv\t", "sar\t", "cqto"} {
		if !strings.Contains(asm, want) {
			t.Errorf("missing %q in:\n%s", want, asm)
		}
	}
}

func TestUnsignedConditionJumps(t *testing.T) {
	asm := compile(t, "int main() { unsigned x = 0u; while (x < 5u) { x = x + 1u; } return 0; }")
	if !strings.Contains(asm, "jae\t_while1_end") {
		t.Errorf("unsigned compare must use the unsigned jump family:\n%s", asm)
	}
}

func TestRelationalValueMaterialization(t *testing.T) {
	asm := compile(t, "int main() { int a = 2; int b = a < 3; return b; }")
	if !strings.Contains(asm, "setl\t") || !strings.Contains(asm, "movzbq\t") {
		t.Errorf("a relational in value position must materialize 0/1:\n%s", asm)
	}
}

func TestPrintfHelperEmittedOnce(t *testing.T) {
	asm := compile(t, `int show(int x) { printf(x); return x; }
int main() { int r = show(1); printf(2); return r; }`)
	if got := strings.Count(asm, "_printf:"); got != 1 {
		t.Errorf("printf helper must be emitted exactly once, got %d:\n%s", got, asm)
	}
	if strings.Count(asm, "call\t_printf") != 2 {
		t.Errorf("each printf statement must call the helper:\n%s", asm)
	}
}

func TestNoPrintfHelperWithoutPrintf(t *testing.T) {
	asm := compile(t, "int main() { return 0; }")
	if strings.Contains(asm, "_printf") {
		t.Errorf("helper must not be emitted for programs without printf:\n%s", asm)
	}
}

var labelDef = regexp.MustCompile(`(?m)^([A-Za-z_][A-Za-z0-9_]*):`)

// TestLabelUniqueness verifies no label is defined twice across a
// compilation unit.
func TestLabelUniqueness(t *testing.T) {
	asm := compile(t, `int fib(int n) {
	if (n == 0) return 0;
	else if (n == 1) return 1;
	else return fib(n - 1) + fib(n - 2);
}
int main() {
	int i;
	int r = 0;
	for (i = 0; i < 5; i = i + 1) {
		while (r < 100) { r = r + fib(i); }
		do { r = r - 1; } while (r > 50);
	}
	printf(r);
	return r;
}`)
	seen := map[string]bool{}
	for _, m := range labelDef.FindAllStringSubmatch(asm, -1) {
		if seen[m[1]] {
			t.Errorf("label %q defined twice", m[1])
		}
		seen[m[1]] = true
	}
}

// TestGenerateSnapshots pins the full assembly of the end-to-end
// scenarios so backend changes surface as reviewable diffs.
func TestGenerateSnapshots(t *testing.T) {
	tests := []struct {
		name string
		src  string
	}{
		{"fold", "int main() { return 1 + 2 * 3 - 4 / 2; }"},
		{"call", "int sq(int x) { return x * x; } int main() { return sq(5); }"},
		{"fib", "int fib(int n) { if (n == 0) return 0; else if (n == 1) return 1; else return fib(n - 1) + fib(n - 2); } int main() { return fib(6); }"},
		{"switch", "int main() { int x = 5; switch (x) { case 1: return 3; case 3: return 2; case 5: return 1; default: return 0; } }"},
		{"dowhile", "int main() { int x = 5; do { x = x + 3; } while (x < 10); return x; }"},
		{"for", "int main() { int x = 5; int i; for (i = 0; i < 10; i = i + 1) x = x + 1; return x; }"},
		{"printf", "int main() { printf(42); return 0; }"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			snaps.MatchSnapshot(t, compile(t, tc.src))
		})
	}
}
