package lexer_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/lexer"
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
)

func newLexer(t *testing.T, src string) *lexer.Lexer {
	t.Helper()
	syms := symtab.New(64)
	require.NoError(t, syms.Bootstrap())
	data := arena.NewDataPool(1024)
	return lexer.New("test.c", src, syms, data)
}

func tokens(t *testing.T, src string) []token.Kind {
	t.Helper()
	l := newLexer(t, src)
	var out []token.Kind
	for {
		l.Advance()
		out = append(out, l.Tok)
		if l.Tok == token.EOF {
			return out
		}
	}
}

func TestScansKeywordsAndIdentifiers(t *testing.T) {
	toks := tokens(t, "if else x")
	assert.Equal(t, []token.Kind{token.If, token.Else, token.Id, token.EOF}, toks)
}

func TestScansIntegerLiteralsInAllBases(t *testing.T) {
	l := newLexer(t, "42 010 0x2a")

	l.Advance()
	require.Equal(t, token.Num, l.Tok)
	assert.EqualValues(t, 42, l.Ival)

	l.Advance()
	require.Equal(t, token.Num, l.Tok)
	assert.EqualValues(t, 8, l.Ival)

	l.Advance()
	require.Equal(t, token.Num, l.Tok)
	assert.EqualValues(t, 42, l.Ival)
}

func TestScansCharLiteralAndEscapes(t *testing.T) {
	l := newLexer(t, `'a' '\n' '\0'`)

	l.Advance()
	assert.EqualValues(t, 'a', l.Ival)

	l.Advance()
	assert.EqualValues(t, 10, l.Ival)

	l.Advance()
	assert.EqualValues(t, 0, l.Ival)
}

func TestScansStringIntoDataPool(t *testing.T) {
	l := newLexer(t, `"hi\n"`)
	l.Advance()
	require.Equal(t, token.Str, l.Tok)
	assert.GreaterOrEqual(t, l.Ival, int64(0))
}

func TestScansTwoCharacterOperators(t *testing.T) {
	toks := tokens(t, "== != <= >= && || << >> ++ --")
	assert.Equal(t, []token.Kind{
		token.Eq, token.Ne, token.Le, token.Ge, token.Lan, token.Lor,
		token.Shl, token.Shr, token.Inc, token.Dec, token.EOF,
	}, toks)
}

func TestScansSingleCharacterOperatorsNotGreedy(t *testing.T) {
	toks := tokens(t, "= ! < > & | + -")
	assert.Equal(t, []token.Kind{
		token.Assign, token.Not, token.Lt, token.Gt, token.And, token.Or,
		token.Add, token.Sub, token.EOF,
	}, toks)
}

func TestSkipsLineCommentsAndPreprocessorLines(t *testing.T) {
	toks := tokens(t, "// a comment\n#include <stdio.h>\nx")
	assert.Equal(t, []token.Kind{token.Id, token.EOF}, toks)
}

func TestOnNewlineFiresPerLine(t *testing.T) {
	l := newLexer(t, "a\nb\nc")
	var lines []int
	l.OnNewline = func(line int) { lines = append(lines, line) }
	for {
		l.Advance()
		if l.Tok == token.EOF {
			break
		}
	}
	assert.Equal(t, []int{1, 2}, lines)
}

func TestRepeatedIdentifierInternsToSameRecord(t *testing.T) {
	l := newLexer(t, "foo foo")
	l.Advance()
	first := l.Id
	l.Advance()
	assert.Same(t, first, l.Id)
}
