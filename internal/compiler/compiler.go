// Package compiler chains the front end, analyzer, IR builder and code
// generator into a single entry point, mapping each stage's failure to
// its exit code and failure banner.
package compiler

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/rdkc4/minic/internal/ast"
	"github.com/rdkc4/minic/internal/codegen"
	"github.com/rdkc4/minic/internal/diag"
	"github.com/rdkc4/minic/internal/frontend"
	"github.com/rdkc4/minic/internal/ir"
	"github.com/rdkc4/minic/internal/sema"
)

// ExitCode names the first failing stage of a compilation, or NoError.
type ExitCode int

const (
	NoError ExitCode = iota
	LexicalError
	SyntaxError
	SemanticError
	IRError
	CodegenError
)

var exitNames = [...]string{
	"no-error", "lexical-error", "syntax-error", "semantic-error",
	"ir-error", "codegen-error",
}

func (c ExitCode) String() string {
	if c < 0 || int(c) >= len(exitNames) {
		return "unknown-error"
	}
	return exitNames[c]
}

// Options configures a compilation run.
type Options struct {
	// Workers bounds every parallel pass; <= 0 means hardware parallelism.
	Workers int
	// Verbose dumps the analyzed AST before lowering and the IR after
	// optimisation.
	Verbose bool
	// Diag receives failure banners and diagnostics; nil means os.Stdout.
	Diag io.Writer
}

func (o Options) diagWriter() io.Writer {
	if o.Diag != nil {
		return o.Diag
	}
	return os.Stdout
}

// Compile runs the whole pipeline over src and writes the produced
// assembly to outPath. On failure the output file is not written and
// the returned code names the first failing stage.
func Compile(src, outPath string, opt Options) ExitCode {
	out := opt.diagWriter()

	prog, err := frontend.Parse(src)
	if err != nil {
		var lexErr *frontend.LexError
		if errors.As(err, &lexErr) {
			bank := diag.NewBank()
			bank.Add("__global", diag.Errorf(diag.Lexical, lexErr.Line, lexErr.Col, "%s", lexErr.Msg))
			fmt.Fprint(out, bank.Banner("Lexical analysis"))
			return LexicalError
		}
		var parseErr *frontend.ParseError
		bank := diag.NewBank()
		if errors.As(err, &parseErr) {
			bank.Add("__global", diag.Errorf(diag.Syntax, parseErr.Line, parseErr.Col, "%s", parseErr.Msg))
		} else {
			bank.Add("__global", diag.GlobalErrorf("%s", err))
		}
		fmt.Fprint(out, bank.Banner("Syntax analysis"))
		return SyntaxError
	}

	an := sema.NewAnalyzer()
	an.Workers = opt.Workers
	if bank := an.Analyze(prog); !bank.Empty() {
		fmt.Fprint(out, bank.Banner("Semantic analysis", an.FunctionOrder()...))
		return SemanticError
	}

	if opt.Verbose {
		prog.Print(0)
	}

	irProg, irBank := ir.Build(prog, opt.Workers)
	if !irBank.Empty() {
		fmt.Fprint(out, irBank.Banner("Intermediate representation", functionOrder(prog)...))
		return IRError
	}

	if opt.Verbose {
		irProg.Print()
	}

	asm := codegen.Generate(irProg, opt.Workers)
	if err := os.WriteFile(outPath, []byte(asm), 0o644); err != nil {
		bank := diag.NewBank()
		bank.Add("__global", diag.GlobalErrorf("cannot write output file '%s': %v", outPath, err))
		fmt.Fprint(out, bank.Banner("Code generation"))
		return CodegenError
	}
	return NoError
}

// functionOrder lists a program's function names in source order, for
// deterministic diagnostic rendering.
func functionOrder(prog *ast.Node) []string {
	names := make([]string, 0, len(prog.Children))
	for _, fn := range prog.Children {
		names = append(names, fn.Name())
	}
	return names
}
