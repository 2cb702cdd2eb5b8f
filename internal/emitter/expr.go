package emitter

import (
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
	"github.com/jpolson/selfc/internal/vm"
)

// printfSlots mirrors vm.printfSlots: the emitter must always pad a
// printf call out to exactly this many optional argument words so the
// PRTF syscall can read a constant-shaped stack window.
const printfSlots = 6

// Expr parses an expression and emits it, climbing operators whose
// precedence is at least lev — the dialect's only entry point for
// expression syntax, called at Assign level for a full expression and
// at higher levels for operands that must bind tighter (spec.md §4.3).
func (e *Emitter) Expr(lev int) {
	e.primary()

	for token.IsBinary(e.Lex.Tok) && token.Precedence(e.Lex.Tok) >= lev {
		op := e.Lex.Tok
		prec := token.Precedence(op)

		switch op {
		case token.Assign:
			e.next()
			if e.lastLoad < 0 {
				e.fatal("cannot assign: left side is not an lvalue")
			}
			// Turn the pending load into a push of the address, then
			// parse the right-hand side and store into it.
			e.Code.Patch(e.lastLoad, int64(vm.PSH))
			e.lastLoad = -1
			resultTy := e.ty
			e.Expr(prec) // right-associative: re-enter at the same level
			e.storeOp(resultTy)
			e.ty = resultTy

		case token.Question:
			e.next()
			e.ternary()

		case token.Lor:
			e.next()
			e.shortCircuit(vm.BNZ, prec+1)

		case token.Lan:
			e.next()
			e.shortCircuit(vm.BZ, prec+1)

		case token.Brak:
			e.next()
			e.index()

		case token.Inc, token.Dec:
			e.postIncDec(op)
			e.next()

		default:
			e.binary(op, prec)
		}
	}
}

// primary parses one operand: a literal, identifier reference, prefix
// operator, cast, or parenthesized sub-expression.
func (e *Emitter) primary() {
	switch e.Lex.Tok {
	case token.Num:
		e.emitImm(vm.IMM, e.Lex.Ival)
		e.ty = symtab.INT
		e.next()

	case token.Str:
		addr := e.Lex.Ival
		end := e.stringEnd(addr)
		e.next()
		for e.Lex.Tok == token.Str {
			// Adjacent literals lex as separate NUL-terminated runs
			// (spec.md §4.3); splice each new run's bytes over the
			// previous run's terminating NUL instead of leaving a gap,
			// so "ab" "cd" lays down in the data pool as one "abcd" run.
			end = e.spliceString(end, e.Lex.Ival)
			e.next()
		}
		e.emitImm(vm.IMM, addr)
		e.ty = symtab.PointerTo(symtab.CHAR)

	case token.Sizeof:
		e.next()
		e.expect(token.LParen)
		t := e.parseTypeSpec()
		e.expect(token.RParen)
		e.emitImm(vm.IMM, symtab.Size(t))
		e.ty = symtab.INT

	case token.LParen:
		e.next()
		if isTypeStart(e.Lex.Tok) {
			t := e.parseTypeSpec()
			e.expect(token.RParen)
			e.Expr(token.Unary) // cast binds as tightly as unary/postfix
			e.ty = t
		} else {
			e.Expr(1)
			e.expect(token.RParen)
		}

	case token.Mul:
		e.next()
		e.Expr(token.Unary)
		if !symtab.IsPointer(e.ty) {
			e.fatal("cannot dereference non-pointer")
		}
		e.ty = symtab.Deref(e.ty)
		e.emitLoad(e.ty)

	case token.And:
		e.next()
		e.Expr(token.Unary)
		if e.lastLoad < 0 {
			e.fatal("cannot take address: operand is not an lvalue")
		}
		e.Code.Truncate(e.lastLoad)
		e.lastLoad = -1
		e.ty = symtab.PointerTo(e.ty)

	case token.Not:
		e.next()
		e.Expr(token.Unary)
		e.emit(vm.PSH)
		e.emitImm(vm.IMM, 0)
		e.emit(vm.EQ)
		e.ty = symtab.INT

	case token.Tilde:
		e.next()
		e.Expr(token.Unary)
		e.emit(vm.PSH)
		e.emitImm(vm.IMM, -1)
		e.emit(vm.XOR)
		e.ty = symtab.INT

	case token.Sub:
		e.next()
		if e.Lex.Tok == token.Num {
			e.emitImm(vm.IMM, -e.Lex.Ival)
			e.ty = symtab.INT
			e.next()
		} else {
			e.emitImm(vm.IMM, -1)
			e.emit(vm.PSH)
			e.Expr(token.Unary)
			e.emit(vm.MUL)
		}

	case token.Inc, token.Dec:
		e.preIncDec(e.Lex.Tok)

	case token.Id:
		e.identRef()

	default:
		e.fatal("unexpected token in expression: %s", e.Lex.Tok)
	}
}

// identRef resolves a bare identifier reference: an enum constant
// loads its value directly; a function name followed by '(' is a call;
// anything else is a variable reference whose address is computed and
// then (pending) loaded.
func (e *Emitter) identRef() {
	id := e.Lex.Id
	if id == nil {
		e.fatal("internal error: Id token with nil record")
	}
	e.next()

	if e.Lex.Tok == token.LParen {
		e.call(id)
		return
	}

	switch id.Class {
	case symtab.Num:
		e.emitImm(vm.IMM, id.Val)
		e.ty = symtab.INT
	case symtab.Loc:
		e.emitImm(vm.LEA, id.Val)
		e.ty = id.Type
		e.emitLoad(e.ty)
	case symtab.Glo:
		e.emitImm(vm.IMM, id.Val)
		e.ty = id.Type
		e.emitLoad(e.ty)
	default:
		e.fatal("%s: undefined variable", id.Name)
	}
}

// call parses a parenthesized, comma-separated argument list and emits
// the appropriate call sequence for id's class.
func (e *Emitter) call(id *symtab.Ident) {
	e.next() // consume '('
	var argc int
	for e.Lex.Tok != token.RParen {
		e.Expr(1) // a full assignment-level expression is a valid argument
		e.emit(vm.PSH)
		argc++
		if e.Lex.Tok == token.Comma {
			e.next()
		} else {
			break
		}
	}
	e.expect(token.RParen)

	switch id.Class {
	case symtab.Sys:
		if id.Name == "printf" {
			for argc < 1+printfSlots {
				e.emitImm(vm.IMM, 0)
				e.emit(vm.PSH)
				argc++
			}
		}
		e.emit(vm.Op(id.Val) + vm.OPEN)
		if argc > 0 {
			e.emitImm(vm.ADJ, int64(argc))
		}
		e.ty = symtab.INT

	case symtab.Fun:
		// A function must already be fully defined to be called —
		// the dialect compiles in a single left-to-right pass with no
		// separate linking step, so (as in the original dialect) a
		// program orders its definitions callee-before-caller.
		e.emitImm(vm.JSR, id.Val)
		if argc > 0 {
			e.emitImm(vm.ADJ, int64(argc))
		}
		e.ty = symtab.INT

	default:
		e.fatal("%s: undefined function", id.Name)
	}
}

// storeOp emits the store matching t (char vs everything else).
func (e *Emitter) storeOp(t symtab.Type) {
	if t == symtab.CHAR {
		e.emit(vm.SC)
	} else {
		e.emit(vm.SI)
	}
}

// binary parses and emits one precedence-climbed binary operator,
// scaling pointer arithmetic the way spec.md §4.3/§8 requires: adding
// or subtracting an int from a pointer moves by pointee-size units, and
// subtracting two pointers yields their distance in pointee-size units.
func (e *Emitter) binary(op token.Kind, prec int) {
	lty := e.ty
	e.emit(vm.PSH)
	e.next()

	scale := (op == token.Add || op == token.Sub) && symtab.IsPointer(lty)
	e.Expr(prec + 1)

	if op == token.Sub && scale && symtab.IsPointer(e.ty) {
		e.emit(vm.SUB)
		e.emit(vm.PSH)
		e.emitImm(vm.IMM, symtab.PointeeSize(lty))
		e.emit(vm.DIV)
		e.ty = symtab.INT
		return
	}

	if scale {
		e.emit(vm.PSH)
		e.emitImm(vm.IMM, symtab.PointeeSize(lty))
		e.emit(vm.MUL)
	}

	e.emit(binaryOp(op))
	if op == token.Add || op == token.Sub {
		e.ty = lty
	} else {
		e.ty = symtab.INT
	}
}

func binaryOp(k token.Kind) vm.Op {
	switch k {
	case token.Or:
		return vm.OR
	case token.Xor:
		return vm.XOR
	case token.And:
		return vm.AND
	case token.Eq:
		return vm.EQ
	case token.Ne:
		return vm.NE
	case token.Lt:
		return vm.LT
	case token.Gt:
		return vm.GT
	case token.Le:
		return vm.LE
	case token.Ge:
		return vm.GE
	case token.Shl:
		return vm.SHL
	case token.Shr:
		return vm.SHR
	case token.Add:
		return vm.ADD
	case token.Sub:
		return vm.SUB
	case token.Mul:
		return vm.MUL
	case token.Div:
		return vm.DIV
	case token.Mod:
		return vm.MOD
	default:
		return vm.ADD
	}
}

// shortCircuit emits && / || : branch is BZ for && (skip right operand
// and yield 0 if the left is already false) or BNZ for || (skip and
// yield the left operand's nonzero value if it is already true). When
// the right operand is evaluated, its value is the result as is.
func (e *Emitter) shortCircuit(branch vm.Op, rlev int) {
	addr := e.emitImm(branch, 0)
	e.Expr(rlev)
	e.patchOperand(addr, int64(e.Code.Len()))
	e.ty = symtab.INT
}

// ternary emits cond ? a : b having already parsed cond into 'a'.
func (e *Emitter) ternary() {
	bz := e.emitImm(vm.BZ, 0)
	e.Expr(1)
	jmp := e.emitImm(vm.JMP, 0)
	e.patchOperand(bz, int64(e.Code.Len()))
	e.expect(token.Colon)
	e.Expr(1)
	e.patchOperand(jmp, int64(e.Code.Len()))
}

// index emits a[i]: pointer arithmetic (scaled) followed by a load.
func (e *Emitter) index() {
	t := e.ty
	if !symtab.IsPointer(t) {
		e.fatal("subscript of non-pointer")
	}
	e.emit(vm.PSH)
	e.Expr(1)
	e.emit(vm.PSH)
	e.emitImm(vm.IMM, symtab.PointeeSize(t))
	e.emit(vm.MUL)
	e.emit(vm.ADD)
	e.expect(token.RBracket)
	e.ty = symtab.Deref(t)
	e.emitLoad(e.ty)
}

// stringEnd walks from a string literal's start address to the
// position of its terminating NUL, so a later adjacent literal can
// splice onto it.
func (e *Emitter) stringEnd(addr int64) int64 {
	for e.Data.ReadByte(int(addr)) != 0 {
		addr++
	}
	return addr
}

// spliceString copies the NUL-terminated run starting at src onward,
// overwriting dst (the previous run's terminating NUL) and continuing
// from there, leaving one fresh NUL at the end. Returns the new end
// position, so a chain of three or more adjacent literals keeps
// splicing onto the same run.
func (e *Emitter) spliceString(dst, src int64) int64 {
	for {
		b := e.Data.ReadByte(int(src))
		if b == 0 {
			e.Data.WriteByte(int(dst), 0)
			return dst
		}
		e.Data.WriteByte(int(dst), b)
		dst++
		src++
	}
}

// preIncDec emits ++x / --x: increment-then-yield-new-value (spec.md
// §4.3). It avoids needing a dedicated "duplicate top of stack" opcode
// by rewriting the operand's pending load into a PSH of its address and
// then loading through the address again.
func (e *Emitter) preIncDec(op token.Kind) {
	e.next()
	e.Expr(token.Unary)
	if e.lastLoad < 0 {
		e.fatal("operand of %s is not an lvalue", op)
	}
	t := e.ty
	delta := stepSize(t)
	e.Code.Patch(e.lastLoad, int64(vm.PSH)) // push address; 'a' still holds it too
	e.lastLoad = -1
	e.emitLoad(t) // a = old value; stack: [addr]
	e.emit(vm.PSH)
	e.emitImm(vm.IMM, delta)
	if op == token.Inc {
		e.emit(vm.ADD)
	} else {
		e.emit(vm.SUB)
	}
	e.storeOp(t) // pops addr, stores new value; a stays = new
}

// postIncDec emits x++ / x-- : the expression yields the pre-increment
// value. e.ty and e.lastLoad describe the already-parsed operand x.
func (e *Emitter) postIncDec(op token.Kind) {
	if e.lastLoad < 0 {
		e.fatal("operand of %s is not an lvalue", op)
	}
	t := e.ty
	delta := stepSize(t)
	e.Code.Patch(e.lastLoad, int64(vm.PSH))
	e.lastLoad = -1
	e.emitLoad(t) // a = old; stack: [addr]
	e.emit(vm.PSH)
	e.emitImm(vm.IMM, delta)
	if op == token.Inc {
		e.emit(vm.ADD)
	} else {
		e.emit(vm.SUB)
	}
	e.storeOp(t) // stack: []; a = new
	e.emit(vm.PSH)
	e.emitImm(vm.IMM, delta)
	if op == token.Inc {
		e.emit(vm.SUB) // invert to recover the old value
	} else {
		e.emit(vm.ADD)
	}
}

func stepSize(t symtab.Type) int64 {
	if symtab.IsPointer(t) {
		return symtab.PointeeSize(t)
	}
	return 1
}

func isTypeStart(k token.Kind) bool {
	return k == token.Char || k == token.Int || k == token.Void
}

// parseTypeSpec consumes a base type keyword followed by zero or more
// '*' and returns the resulting Type.
func (e *Emitter) parseTypeSpec() symtab.Type {
	var t symtab.Type
	switch e.Lex.Tok {
	case token.Char:
		t = symtab.CHAR
	case token.Int, token.Void:
		t = symtab.INT
	default:
		e.fatal("expected a type, got %s", e.Lex.Tok)
	}
	e.next()
	for e.Lex.Tok == token.Mul {
		t = symtab.PointerTo(t)
		e.next()
	}
	return t
}
