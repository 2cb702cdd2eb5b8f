// Package emitter is the compiler's expression and statement emitter:
// a precedence-climbing recursive-descent parser that writes VM
// bytecode directly into the code pool as it recognizes each
// construct, with no intermediate syntax tree (spec.md §4.3/§4.4). The
// style mirrors the teacher's debugger expression parser (expr_parser.go:
// parseExpression(minPrecedence) climbing over a primary parser) but
// the parser here emits instructions instead of folding constants.
package emitter

import (
	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/diag"
	"github.com/jpolson/selfc/internal/lexer"
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
	"github.com/jpolson/selfc/internal/vm"
)

// Emitter holds the single mutable "expression type" register (ty)
// spec.md §3 describes, alongside the lexer and pools it emits into.
type Emitter struct {
	Lex  *lexer.Lexer
	Syms *symtab.Table
	Code *arena.CodePool
	Data *arena.DataPool

	file string
	ty   symtab.Type

	// lastLoad is the code-pool address of the most recently emitted
	// LC/LI instruction, or -1 if the most recent emission was
	// something else. '&' truncates the pool back to this address
	// instead of executing the load; '=' overwrites it with PSH so the
	// address, not its value, reaches the assignment's SI/SC. Any
	// other emission clears it, since the invariant only ever concerns
	// the single most-recently-emitted word.
	lastLoad int

	// locals tracks bp-relative offsets for the function currently
	// being emitted; nil at file scope, where Id references always
	// resolve through Glo instead.
	locals *localScope
}

// localScope accumulates a function's body-local declarations before
// its frame size is known. Parameters are not counted here: DeclareParam
// gives them positive bp-relative offsets directly.
type localScope struct {
	nextOffset int64 // next local gets bp - nextOffset (locals grow down from bp)
}

// New creates an emitter over an already-Bootstrapped symbol table and
// the shared pools, ready to compile src under file for diagnostics.
func New(file string, lex *lexer.Lexer, syms *symtab.Table, code *arena.CodePool, data *arena.DataPool) *Emitter {
	return &Emitter{Lex: lex, Syms: syms, Code: code, Data: data, file: file, lastLoad: -1}
}

func (e *Emitter) fatal(format string, args ...any) {
	diag.Fatal(e.file, e.Lex.Line, format, args...)
}

func (e *Emitter) next() { e.Lex.Advance() }

func (e *Emitter) expect(k token.Kind) {
	if e.Lex.Tok != k {
		e.fatal("expected %s, got %s", k, e.Lex.Tok)
	}
	e.next()
}

// emit appends a bare, no-operand instruction and clears the pending
// load marker.
func (e *Emitter) emit(op vm.Op) int {
	addr, err := e.Code.Emit(int64(op))
	if err != nil {
		e.fatal("code pool exhausted")
	}
	e.lastLoad = -1
	return addr
}

// emitImm appends an instruction carrying one immediate operand word
// and clears the pending load marker.
func (e *Emitter) emitImm(op vm.Op, n int64) int {
	addr := e.emit(op)
	if _, err := e.Code.Emit(n); err != nil {
		e.fatal("code pool exhausted")
	}
	return addr
}

// emitLoad appends LC or LI for the value of type t and marks it as
// the pending load '&' and '=' may still rewrite.
func (e *Emitter) emitLoad(t symtab.Type) {
	op := vm.LI
	if t == symtab.CHAR {
		op = vm.LC
	}
	addr, err := e.Code.Emit(int64(op))
	if err != nil {
		e.fatal("code pool exhausted")
	}
	e.lastLoad = addr
}

// patchOperand overwrites the operand word following the instruction at
// opAddr — used once a forward jump's target or a function's entry
// address becomes known.
func (e *Emitter) patchOperand(opAddr int, v int64) {
	e.Code.Patch(opAddr+1, int64(v))
}
