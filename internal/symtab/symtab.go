// Package symtab implements the compiler's identifier records and the
// flat, hash-probed table that holds them, per spec.md §3/§4.2. Unlike
// the original dialect's raw field-offset integer arrays, Ident exposes
// the same nine fields as a proper Go struct — the "field offset" macros
// the original needed are an artifact of the host language, not a
// design choice worth reproducing (spec.md §9).
package symtab

import (
	"fmt"

	"github.com/jpolson/selfc/internal/token"
)

// Class is an identifier's storage class. The zero Class marks a name
// that has been interned but not bound to anything yet.
type Class int

const (
	Num Class = iota + 1 // enum constant
	Fun               // function
	Sys               // built-in syscall
	Glo               // global variable
	Loc               // local variable / parameter
)

func (c Class) String() string {
	switch c {
	case Num:
		return "Num"
	case Fun:
		return "Fun"
	case Sys:
		return "Sys"
	case Glo:
		return "Glo"
	case Loc:
		return "Loc"
	default:
		return "?"
	}
}

// Type is the compiler's three-base-type-plus-indirection encoding:
// CHAR=0, INT=1, PTR=2, and each level of pointer indirection adds PTR
// again (so "char *" == CHAR+PTR == 2, coinciding with the bare PTR
// constant — this is spec.md's documented, intentionally-preserved
// quirk, not a bug introduced here).
type Type int

const (
	CHAR Type = 0
	INT  Type = 1
	PTR  Type = 2
)

// PointerTo returns the type one level of indirection above t.
func PointerTo(t Type) Type { return t + PTR }

// Deref returns the type one level of indirection below t.
func Deref(t Type) Type { return t - PTR }

// IsPointer reports whether t has at least one level of indirection.
func IsPointer(t Type) bool { return t >= PTR }

// PointeeSize returns sizeof the type one level below t: 1 for char*,
// the machine word size (8) for every other pointer.
func PointeeSize(t Type) int64 {
	if Deref(t) == CHAR {
		return 1
	}
	return 8
}

// Size returns sizeof(t): 1 for CHAR, the machine word size otherwise
// (INT and every pointer type).
func Size(t Type) int64 {
	if t == CHAR {
		return 1
	}
	return 8
}

// Ident is the compiler's identifier record: the nine fields spec.md §3
// names, field for field.
type Ident struct {
	Tk   token.Kind // token kind this name re-emits (keywords carry their own)
	Hash uint64     // cached rolling hash of Name
	Name string     // interned source text

	Class Class
	Type  Type
	Val   int64 // class-dependent payload

	// Shadow copies of Class/Type/Val, used to restore the outer
	// binding when a local shadows it (spec.md §3/§4.2).
	Hclass Class
	Htype  Type
	Hval   int64
}

// Table is the flat, append-only, hash-probed symbol table. It is
// backed by a pre-sized slice (the "symbol pool") so that pointers to
// Ident records, once handed out, never move.
type Table struct {
	idents []Ident
	n      int

	// Main, once Bootstrap and the driver have run, is the interned
	// "main" record — its Val becomes the program's entry address once
	// its definition is parsed.
	Main *Ident
}

// New allocates a symbol table with room for exactly cap identifiers —
// the arena's symbol pool.
func New(cap int) *Table {
	return &Table{idents: make([]Ident, cap)}
}

// Hash computes the dialect's rolling hash over name: h = h*147 + byte.
func Hash(name string) uint64 {
	var h uint64
	for i := 0; i < len(name); i++ {
		h = h*147 + uint64(name[i])
	}
	return h
}

// Intern returns the unique Ident record for name, creating one (with
// Tk = token.Id) if this is the first occurrence. The lexer calls this
// for every identifier-shaped token so that repeated uses of a name
// always resolve to the same record (spec.md §3 invariant).
func (t *Table) Intern(name string) (*Ident, error) {
	h := Hash(name)
	for i := 0; i < t.n; i++ {
		id := &t.idents[i]
		if id.Hash == h && id.Name == name {
			return id, nil
		}
	}
	if t.n >= len(t.idents) {
		return nil, fmt.Errorf("symtab: pool exhausted (capacity %d)", len(t.idents))
	}
	id := &t.idents[t.n]
	*id = Ident{Tk: token.Id, Hash: h, Name: name}
	t.n++
	return id, nil
}

// Shadow backs up id's current binding into its h-fields and installs a
// new class/type/val — how a local declaration or parameter shadows an
// outer name for the duration of the enclosing function body.
func (id *Ident) Shadow(class Class, typ Type, val int64) {
	id.Hclass, id.Htype, id.Hval = id.Class, id.Type, id.Val
	id.Class, id.Type, id.Val = class, typ, val
}

// LeaveScope restores every identifier currently bound as Loc back to
// its pre-shadow binding. Called once at function exit; this is the
// "single pass over the symbol table" spec.md §4.2 describes, rather
// than tracking a per-function list of shadowed names.
func (t *Table) LeaveScope() {
	for i := 0; i < t.n; i++ {
		id := &t.idents[i]
		if id.Class == Loc {
			id.Class, id.Type, id.Val = id.Hclass, id.Htype, id.Hval
		}
	}
}

// All returns every interned identifier, for diagnostics (-dump-symbols
// style tooling) and the API server's /symbols endpoint.
func (t *Table) All() []*Ident {
	out := make([]*Ident, t.n)
	for i := range out {
		out[i] = &t.idents[i]
	}
	return out
}

// syscallNames assigns each built-in a stable opcode value (its index);
// internal/vm lists the corresponding instruction constants in the same
// order (vm.syscallOps).
var syscallNames = []string{
	"open", "read", "close", "printf", "malloc", "free", "memset", "memcmp", "exit",
}

var keywordKinds = map[string]token.Kind{
	"char": token.Char, "else": token.Else, "enum": token.Enum,
	"if": token.If, "int": token.Int, "return": token.Return,
	"sizeof": token.Sizeof, "while": token.While, "void": token.Void,
}

// SyscallOpcode returns the fixed opcode assigned to a built-in name and
// whether that name is in fact a syscall.
func SyscallOpcode(name string) (int64, bool) {
	for i, n := range syscallNames {
		if n == name {
			return int64(i), true
		}
	}
	return 0, false
}

// Bootstrap seeds keywords and syscall identifiers before lexing starts,
// per spec.md §4.2, and interns "main" so its record is stable for the
// driver to patch once the definition is reached.
func (t *Table) Bootstrap() error {
	for name, kind := range keywordKinds {
		id, err := t.Intern(name)
		if err != nil {
			return err
		}
		id.Tk = kind
	}
	for _, name := range syscallNames {
		id, err := t.Intern(name)
		if err != nil {
			return err
		}
		op, _ := SyscallOpcode(name)
		id.Class = Sys
		id.Type = INT
		id.Val = op
	}
	main, err := t.Intern("main")
	if err != nil {
		return err
	}
	t.Main = main
	return nil
}
