package emitter

import (
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
	"github.com/jpolson/selfc/internal/vm"
)

// Stmt parses and emits one statement (spec.md §4.4): if/else, while,
// return, a brace-delimited block, the empty statement, or a bare
// expression followed by ';'.
func (e *Emitter) Stmt() {
	switch e.Lex.Tok {
	case token.If:
		e.ifStmt()
	case token.While:
		e.whileStmt()
	case token.Return:
		e.returnStmt()
	case token.LBrace:
		e.block()
	case token.Semi:
		e.next()
	default:
		e.Expr(1)
		e.expect(token.Semi)
	}
}

// block parses '{' stmt* '}'. Only a function's outermost block may be
// preceded by local declarations — see FunctionBody — so nested blocks
// (the body of an if/while) are just a run of statements.
func (e *Emitter) block() {
	e.expect(token.LBrace)
	for e.Lex.Tok != token.RBrace {
		e.Stmt()
	}
	e.expect(token.RBrace)
}

func (e *Emitter) ifStmt() {
	e.next()
	e.expect(token.LParen)
	e.Expr(1)
	e.expect(token.RParen)

	bz := e.emitImm(vm.BZ, 0)
	e.Stmt()
	if e.Lex.Tok == token.Else {
		e.next()
		jmp := e.emitImm(vm.JMP, 0)
		e.patchOperand(bz, int64(e.Code.Len()))
		e.Stmt()
		e.patchOperand(jmp, int64(e.Code.Len()))
	} else {
		e.patchOperand(bz, int64(e.Code.Len()))
	}
}

func (e *Emitter) whileStmt() {
	e.next()
	top := e.Code.Len()
	e.expect(token.LParen)
	e.Expr(1)
	e.expect(token.RParen)

	bz := e.emitImm(vm.BZ, 0)
	e.Stmt()
	e.emitImm(vm.JMP, int64(top))
	e.patchOperand(bz, int64(e.Code.Len()))
}

func (e *Emitter) returnStmt() {
	e.next()
	if e.Lex.Tok != token.Semi {
		e.Expr(1)
	}
	e.expect(token.Semi)
	e.emit(vm.LEV)
}

// parseBaseType consumes a bare int/char/void keyword — unlike
// parseTypeSpec (used by casts and sizeof), it does not also consume
// '*': in a declarator list like "int *a, b;" the stars belong to each
// name individually, not to the shared base type.
func (e *Emitter) parseBaseType() symtab.Type {
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
	return t
}

// BeginFunction resets the local-variable offset counter for a new
// function definition. The driver calls this once per function, before
// shadowing parameters.
func (e *Emitter) BeginFunction() {
	e.locals = &localScope{}
}

// DeclareParam shadows id as parameter index (zero-based) of a
// function taking argc total parameters, giving it the bp-relative
// offset the calling convention promises callers (spec.md §4.5):
// argument i lives at bp + (argc - i + 1).
func (e *Emitter) DeclareParam(id *symtab.Ident, t symtab.Type, index, argc int) {
	id.Shadow(symtab.Loc, t, int64(argc-index+1))
}

// FunctionBody parses a function's '{' declarations* statements* '}',
// emitting ENT with the final local count (known before any statement
// is parsed, since declarations are required to precede them) and a
// trailing LEV as the implicit "falls off the end" return.
func (e *Emitter) FunctionBody() {
	e.expect(token.LBrace)

	for e.Lex.Tok == token.Int || e.Lex.Tok == token.Char {
		base := e.parseBaseType()
		for {
			t := base
			for e.Lex.Tok == token.Mul {
				t = symtab.PointerTo(t)
				e.next()
			}
			if e.Lex.Tok != token.Id {
				e.fatal("expected identifier in local declaration")
			}
			id := e.Lex.Id
			e.locals.nextOffset++
			id.Shadow(symtab.Loc, t, -e.locals.nextOffset)
			e.next()
			if e.Lex.Tok == token.Comma {
				e.next()
				continue
			}
			break
		}
		e.expect(token.Semi)
	}

	e.emitImm(vm.ENT, e.locals.nextOffset)

	for e.Lex.Tok != token.RBrace {
		e.Stmt()
	}
	e.emit(vm.LEV)
	e.expect(token.RBrace)

	e.locals = nil
}
