// Package codegen lowers IR functions to GNU-assembler x86-64 (AT&T
// syntax) text under a custom calling convention: stack-passed
// arguments, return in %rax, callee-saved %rbp only.
package codegen

import (
	"fmt"
	"runtime"
	"strings"
	"sync/atomic"

	"github.com/rdkc4/minic/internal/ast"
	"github.com/rdkc4/minic/internal/ioutil"
	"github.com/rdkc4/minic/internal/ir"
	"github.com/rdkc4/minic/internal/pool"
)

// labelCounter is the process-wide monotonic counter backing every
// structured-construct label; a single atomic is simpler than
// per-function bases and still guarantees uniqueness.
var labelCounter int64

func nextLabel() int64 {
	return atomic.AddInt64(&labelCounter, 1)
}

// pool of general-purpose registers available to expression evaluation.
// %rax, %rcx, %rdx, %rdi, %rsi, %rbp, %rsp are reserved
// for the calling convention, mul/div, shift counts and overflow
// scratch, leaving %r8-%r15 for the bounded pool.
var regPool = []string{"%r8", "%r9", "%r10", "%r11", "%r12", "%r13", "%r14", "%r15"}

// Generate lowers an entire IR program to assembly text, running one
// code-generation task per function across workers goroutines (<= 0
// means hardware parallelism) and serializing the per-function buffers
// in source order afterward.
func Generate(prog *ir.Program, workers int) string {
	var usesPrintf int32
	buffers := make([]string, len(prog.Functions))

	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	p := pool.New(workers)
	for i, fn := range prog.Functions {
		i, fn := i, fn
		p.Submit(func() {
			buffers[i] = genFunction(fn, &usesPrintf)
		})
	}
	p.Wait()
	p.Close()

	var sw ioutil.SerialWriter
	sw.Append(".global _start\n.text\n_start:\n\tjmp\tmain\n")
	for _, b := range buffers {
		sw.Append(b)
	}
	if atomic.LoadInt32(&usesPrintf) != 0 {
		sw.Append(printfHelper())
	}

	var out strings.Builder
	_ = sw.Flush(&out)
	return out.String()
}

// genCtx is the thread-local state of one function's code-generation
// task: its register-pool cursor, the name->offset addressing map, and
// the shared "did any function call printf" flag.
type genCtx struct {
	fn         *ir.Function
	w          *ioutil.Writer
	offsets    map[string]int
	free       int
	usesPrintf *int32
}

func genFunction(fn *ir.Function, usesPrintf *int32) string {
	w := ioutil.NewWriter()
	g := &genCtx{fn: fn, w: w, offsets: buildOffsets(fn), usesPrintf: usesPrintf}

	w.Write("\n")
	w.Label(fn.Name)
	w.Ins("push", "%rbp")
	w.Ins("mov", "%rsp", "%rbp")
	if fn.RequiredMemory > 0 {
		w.Ins("sub", fmt.Sprintf("$%d", fn.RequiredMemory), "%rsp")
	}

	g.emitStatement(fn.Body)

	w.Label(fmt.Sprintf("%s_end", fn.Name))
	if fn.RequiredMemory > 0 {
		w.Ins("add", fmt.Sprintf("$%d", fn.RequiredMemory), "%rsp")
	}
	w.Ins("mov", "%rbp", "%rsp")
	w.Ins("pop", "%rbp")
	if fn.Name == "main" {
		w.Ins("mov", "%rax", "%rdi")
		w.Ins("mov", "$60", "%rax")
		w.Ins("syscall")
	} else {
		w.Ins("ret")
	}
	return w.String()
}

// buildOffsets assigns each parameter and local/temporary its
// rbp-relative slot: parameters at +16, +24, ... (skipping the saved
// %rbp and return address); locals/temporaries at -8, -16, ... in the
// order Function.Locals records them.
func buildOffsets(fn *ir.Function) map[string]int {
	offsets := make(map[string]int, len(fn.Params)+len(fn.Locals))
	for i, p := range fn.Params {
		offsets[p.Name] = 16 + 8*i
	}
	for i, l := range fn.Locals {
		offsets[l.Name] = -8 * (i + 1)
	}
	return offsets
}

func (g *genCtx) operand(name string) string {
	return fmt.Sprintf("%d(%%rbp)", g.offsets[name])
}

// loc is where an evaluated expression's result currently lives: a
// bounded-pool register, or (reg == "") the top of the native stack,
// for when the pool was exhausted.
type loc struct {
	reg string
}

func (g *genCtx) alloc() (string, bool) {
	if g.free < len(regPool) {
		r := regPool[g.free]
		g.free++
		return r, false
	}
	return "", true
}

func (g *genCtx) release() {
	if g.free > 0 {
		g.free--
	}
}

// consume resolves l to a concrete register: if l already holds a pool
// register, that register's slot is released (the caller decides
// whether to re-claim it); if l was an overflow spill, it is popped
// into scratch.
func (g *genCtx) consume(l loc, scratch string) string {
	if l.reg != "" {
		g.release()
		return l.reg
	}
	g.w.Ins("pop", scratch)
	return scratch
}

func isUnsigned(t ast.Type) bool {
	return t == ast.Unsigned
}
