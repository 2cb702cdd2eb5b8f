// Package token defines the lexical token kinds shared by the lexer,
// symbol table, and emitters, along with the binary-operator precedence
// table the expression emitter climbs.
package token

// Kind identifies a lexical token. Keyword tokens are ordinary
// identifiers whose symtab record's Tk field was pre-seeded to one of
// the keyword kinds below (Bootstrap), so the lexer itself never
// special-cases keyword spelling. Syscall names stay Id; their record's
// Class marks them as built-ins.
type Kind int

const (
	EOF Kind = iota
	Num        // integer/char literal; value in Lexer.Ival
	Str        // string literal; Ival holds its data-pool address
	Id         // identifier; Lexer.Id holds the interned record

	// Keywords
	Char
	Else
	Enum
	If
	Int
	Return
	Sizeof
	While
	Void

	// Punctuation with no precedence role
	Comma
	Semi
	LParen
	RParen
	LBrace
	RBrace
	RBracket
	Colon

	// Operators, ordered lowest to highest precedence (mirrors spec.md
	// §4.3's table: assignment binds loosest, postfix tightest). Question
	// ('?') sits here, not in the punctuation block above, so IsBinary's
	// range check (Assign through Brak) picks it up for ternary climbing.
	Assign   // =
	Question // ?:
	Lor      // ||
	Lan    // &&
	Or     // |
	Xor    // ^
	And    // &
	Eq     // ==
	Ne     // !=
	Lt     // <
	Gt     // >
	Le     // <=
	Ge     // >=
	Shl    // <<
	Shr    // >>
	Add    // +
	Sub    // -
	Mul    // *
	Div    // /
	Mod    // %
	Inc    // ++
	Dec    // --
	Brak   // [

	Not    // !
	Tilde  // ~
)

var names = map[Kind]string{
	EOF: "EOF", Num: "Num", Str: "Str", Id: "Id",
	Char: "char", Else: "else", Enum: "enum", If: "if", Int: "int",
	Return: "return", Sizeof: "sizeof", While: "while", Void: "void",
	Comma: ",", Semi: ";", LParen: "(", RParen: ")", LBrace: "{", RBrace: "}",
	RBracket: "]", Colon: ":",
	Assign: "=", Question: "?", Lor: "||", Lan: "&&", Or: "|", Xor: "^", And: "&",
	Eq: "==", Ne: "!=", Lt: "<", Gt: ">", Le: "<=", Ge: ">=",
	Shl: "<<", Shr: ">>", Add: "+", Sub: "-", Mul: "*", Div: "/", Mod: "%",
	Inc: "++", Dec: "--", Brak: "[", Not: "!", Tilde: "~",
}

func (k Kind) String() string {
	if s, ok := names[k]; ok {
		return s
	}
	return "?"
}

// IsBinary reports whether k is a binary operator participating in
// precedence climbing (Assign through Brak in the table above).
func IsBinary(k Kind) bool { return k >= Assign && k <= Brak }

// precedence gives each binary operator's climbing threshold. Equal
// values group left-associative operators of the same tier.
var precedence = map[Kind]int{
	Assign:   1,
	Question: 2,
	Lor:      3,
	Lan: 4,
	Or:  5,
	Xor: 6,
	And: 7,
	Eq:  8, Ne: 8,
	Lt: 9, Gt: 9, Le: 9, Ge: 9,
	Shl: 10, Shr: 10,
	Add: 11, Sub: 11,
	Mul: 12, Div: 12, Mod: 12,
	Inc: 13, Dec: 13, Brak: 13,
}

// Precedence returns k's binding power, or 0 if k is not a binary
// operator recognized by the climbing loop.
func Precedence(k Kind) int { return precedence[k] }

// Unary is the binding power unary prefix operators and casts parse
// their operand at — tighter than every binary operator except the
// postfix ones ([, ++, --), which share this level and so still bind to
// the operand.
const Unary = 13
