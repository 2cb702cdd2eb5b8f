// Package compiler is the top-level translation driver: it walks the
// token stream at file scope, recognizing enum declarations, global
// variable declarations, and function definitions, and delegates
// expression/statement bodies to internal/emitter (spec.md §4.2/§4.5).
package compiler

import (
	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/diag"
	"github.com/jpolson/selfc/internal/emitter"
	"github.com/jpolson/selfc/internal/lexer"
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
)

// Result is a successfully compiled program: where execution begins
// and the pools it runs against.
type Result struct {
	Entry  int
	Arenas *arena.Arenas
	Syms   *symtab.Table
}

// Compile translates src (from file, for diagnostics) into bytecode
// inside a, returning the program's entry point. Fatal errors surface
// as *diag.Error.
func Compile(file, src string, a *arena.Arenas) (res *Result, err error) {
	return CompileWithHook(file, src, a, nil)
}

// CompileWithHook is Compile, additionally wiring onLine as the
// lexer's OnNewline callback — how internal/listing's SourceListing
// attributes emitted instructions to source lines for `-s` mode.
func CompileWithHook(file, src string, a *arena.Arenas, onLine func(string)) (res *Result, err error) {
	defer diag.Recover(&err)

	syms := symtab.New(a.SymbolCap)
	if bootErr := syms.Bootstrap(); bootErr != nil {
		return nil, bootErr
	}

	lx := lexer.New(file, src, syms, a.Data)
	var lines []string
	emitted := 0
	if onLine != nil {
		lines = splitLines(src)
		lx.OnNewline = func(line int) {
			for emitted < line && emitted < len(lines) {
				onLine(lines[emitted])
				emitted++
			}
		}
	}
	em := emitter.New(file, lx, syms, a.Code, a.Data)

	d := newDriver(file, lx, em, syms, a)
	d.run()

	// OnNewline only fires as each newline is consumed; the file's last
	// line (having no trailing newline to trigger it) is flushed here.
	for emitted < len(lines) {
		onLine(lines[emitted])
		emitted++
	}

	if d.main.Class != symtab.Fun {
		diag.Fatal(file, lx.Line, "main() is never defined")
	}
	return &Result{Entry: int(d.main.Val), Arenas: a, Syms: syms}, nil
}

func splitLines(src string) []string {
	var lines []string
	start := 0
	for i := 0; i < len(src); i++ {
		if src[i] == '\n' {
			lines = append(lines, src[start:i])
			start = i + 1
		}
	}
	lines = append(lines, src[start:])
	return lines
}

// driver owns the bookkeeping the emitter's expression/statement
// methods don't: the top-level declaration loop itself.
type driver struct {
	file string
	lex  *lexer.Lexer
	em   *emitter.Emitter
	syms *symtab.Table
	data *arena.DataPool

	main *symtab.Ident
}

func newDriver(file string, lx *lexer.Lexer, em *emitter.Emitter, syms *symtab.Table, a *arena.Arenas) *driver {
	return &driver{file: file, lex: lx, em: em, syms: syms, data: a.Data, main: syms.Main}
}

func (d *driver) fatal(format string, args ...any) {
	diag.Fatal(d.file, d.lex.Line, format, args...)
}

// run consumes the whole translation unit: a sequence of enum
// declarations, global variable declarations, and function
// definitions, ending at EOF. Calls may only target a function already
// fully defined (spec.md's single-pass translation, grounded on the
// original dialect: a program orders callees before callers).
func (d *driver) run() {
	d.lex.Advance()
	for d.lex.Tok != token.EOF {
		d.topLevelDecl()
	}
}

func (d *driver) topLevelDecl() {
	if d.lex.Tok == token.Enum {
		d.enumDecl()
		return
	}

	base := d.baseType()

	for d.lex.Tok != token.Semi && d.lex.Tok != token.RBrace {
		ty := base
		for d.lex.Tok == token.Mul {
			ty = symtab.PointerTo(ty)
			d.lex.Advance()
		}
		if d.lex.Tok != token.Id {
			d.fatal("expected identifier in declaration, got %s", d.lex.Tok)
		}
		id := d.lex.Id
		d.lex.Advance()

		if d.lex.Tok == token.LParen {
			d.functionDef(id, ty)
		} else {
			id.Class = symtab.Glo
			id.Type = ty
			addr, err := d.data.AllocWord()
			if err != nil {
				d.fatal("data pool exhausted")
			}
			id.Val = int64(addr)
			if d.lex.Tok == token.Comma {
				d.lex.Advance()
				continue
			}
		}
		break
	}
	if d.lex.Tok == token.Semi {
		d.lex.Advance()
	}
}

// baseType consumes the leading int/char/void keyword that opens a
// top-level declaration.
func (d *driver) baseType() symtab.Type {
	switch d.lex.Tok {
	case token.Int, token.Void:
		d.lex.Advance()
		return symtab.INT
	case token.Char:
		d.lex.Advance()
		return symtab.CHAR
	default:
		d.fatal("expected a declaration, got %s", d.lex.Tok)
		return symtab.INT
	}
}

// enumDecl parses `enum [name] { A [= n], B, ... } ;`, assigning each
// member an auto-incrementing value unless one is given explicitly.
func (d *driver) enumDecl() {
	d.lex.Advance()
	if d.lex.Tok == token.Id {
		d.lex.Advance() // the enum's own tag name, if any, is not tracked
	}
	if d.lex.Tok == token.Semi {
		d.lex.Advance()
		return
	}
	if d.lex.Tok != token.LBrace {
		d.fatal("expected '{' in enum declaration")
	}
	d.lex.Advance()

	var next int64
	for d.lex.Tok != token.RBrace {
		if d.lex.Tok != token.Id {
			d.fatal("expected identifier in enum")
		}
		id := d.lex.Id
		d.lex.Advance()
		if d.lex.Tok == token.Assign {
			d.lex.Advance()
			if d.lex.Tok != token.Num {
				d.fatal("expected a constant in enum initializer")
			}
			next = d.lex.Ival
			d.lex.Advance()
		}
		id.Class = symtab.Num
		id.Type = symtab.INT
		id.Val = next
		next++
		if d.lex.Tok == token.Comma {
			d.lex.Advance()
		}
	}
	d.lex.Advance() // '}'
	if d.lex.Tok == token.Semi {
		d.lex.Advance()
	}
}

// functionDef parses a function's parameter list and body, having
// already consumed its return type and name. The return type itself
// isn't tracked (the dialect has no static return-type checking, per
// spec.md's non-goals), only used to require syntactic consistency.
func (d *driver) functionDef(id *symtab.Ident, _ symtab.Type) {
	id.Class = symtab.Fun
	id.Val = int64(d.em.Code.Len())

	d.lex.Advance() // '('
	d.em.BeginFunction()

	var params []*symtab.Ident
	var types []symtab.Type
	for d.lex.Tok != token.RParen {
		pt := d.paramBaseType()
		for d.lex.Tok == token.Mul {
			pt = symtab.PointerTo(pt)
			d.lex.Advance()
		}
		if d.lex.Tok != token.Id {
			d.fatal("expected parameter name, got %s", d.lex.Tok)
		}
		params = append(params, d.lex.Id)
		types = append(types, pt)
		d.lex.Advance()
		if d.lex.Tok == token.Comma {
			d.lex.Advance()
		}
	}
	d.lex.Advance() // ')'

	for i, p := range params {
		d.em.DeclareParam(p, types[i], i, len(params))
	}

	d.em.FunctionBody()
	d.syms.LeaveScope()
}

func (d *driver) paramBaseType() symtab.Type {
	switch d.lex.Tok {
	case token.Int:
		d.lex.Advance()
		return symtab.INT
	case token.Char:
		d.lex.Advance()
		return symtab.CHAR
	default:
		d.fatal("expected a parameter type, got %s", d.lex.Tok)
		return symtab.INT
	}
}
