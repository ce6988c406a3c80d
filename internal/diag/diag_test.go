package diag

import (
	"strings"
	"testing"
)

func TestDiagnosticFormat(t *testing.T) {
	d := Errorf(Semantic, 3, 7, "undefined variable '%s'", "a")
	want := "Line 3, Column 7: SEMANTIC ERROR -> undefined variable 'a'"
	if got := d.Format(); got != want {
		t.Errorf("expected %q, got %q", want, got)
	}
}

func TestGlobalDiagnosticFormat(t *testing.T) {
	d := GlobalErrorf("'main' function not found")
	if got := d.Format(); got != "'main' function not found" {
		t.Errorf("global diagnostics must render bare, got %q", got)
	}
}

func TestBannerOrder(t *testing.T) {
	b := NewBank()
	b.Add("g", Errorf(Semantic, 5, 1, "second"))
	b.Add("f", Errorf(Semantic, 1, 1, "first"))
	b.Add("__global", GlobalErrorf("missing main"))

	out := b.Banner("Semantic analysis", "f", "g")
	if !strings.HasPrefix(out, "\nSemantic analysis: failed!\n") {
		t.Errorf("banner header malformed:\n%q", out)
	}
	gi := strings.Index(out, "missing main")
	fi := strings.Index(out, "first")
	si := strings.Index(out, "second")
	if !(gi < fi && fi < si) {
		t.Errorf("expected global, then source order:\n%s", out)
	}
}

func TestEmptyBank(t *testing.T) {
	b := NewBank()
	if !b.Empty() {
		t.Errorf("new bank must be empty")
	}
	b.Add("f")
	if !b.Empty() {
		t.Errorf("adding zero diagnostics must keep the bank empty")
	}
	b.Add("f", GlobalErrorf("x"))
	if b.Empty() {
		t.Errorf("bank with a diagnostic must not be empty")
	}
}
