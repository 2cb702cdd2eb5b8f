package symtab_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/token"
)

func TestInternReturnsStableRecord(t *testing.T) {
	tab := symtab.New(16)

	a, err := tab.Intern("foo")
	require.NoError(t, err)
	b, err := tab.Intern("foo")
	require.NoError(t, err)

	assert.Same(t, a, b, "repeated interning of the same name must return the same record")

	c, err := tab.Intern("bar")
	require.NoError(t, err)
	assert.NotSame(t, a, c)
}

func TestInternExhaustion(t *testing.T) {
	tab := symtab.New(1)
	_, err := tab.Intern("one")
	require.NoError(t, err)
	_, err = tab.Intern("two")
	assert.Error(t, err)
}

func TestBootstrapSeedsKeywordsSyscallsAndMain(t *testing.T) {
	tab := symtab.New(64)
	require.NoError(t, tab.Bootstrap())

	ifID, err := tab.Intern("if")
	require.NoError(t, err)
	assert.Equal(t, token.If, ifID.Tk)

	printfID, err := tab.Intern("printf")
	require.NoError(t, err)
	assert.Equal(t, symtab.Sys, printfID.Class)

	require.NotNil(t, tab.Main)
	assert.Equal(t, "main", tab.Main.Name)
}

func TestSyscallOpcodesAreStableAndContiguous(t *testing.T) {
	names := []string{"open", "read", "close", "printf", "malloc", "free", "memset", "memcmp", "exit"}
	seen := map[int64]bool{}
	for i, n := range names {
		op, ok := symtab.SyscallOpcode(n)
		require.True(t, ok)
		assert.Equal(t, int64(i), op, "syscall opcode for %s", n)
		assert.False(t, seen[op], "duplicate syscall opcode for %s", n)
		seen[op] = true
	}
	_, ok := symtab.SyscallOpcode("nope")
	assert.False(t, ok)
}

func TestShadowAndLeaveScope(t *testing.T) {
	tab := symtab.New(64)
	require.NoError(t, tab.Bootstrap())

	id, err := tab.Intern("x")
	require.NoError(t, err)
	id.Class = symtab.Glo
	id.Type = symtab.INT
	id.Val = 100

	id.Shadow(symtab.Loc, symtab.CHAR, -1)
	assert.Equal(t, symtab.Loc, id.Class)
	assert.Equal(t, symtab.CHAR, id.Type)
	assert.Equal(t, int64(-1), id.Val)

	tab.LeaveScope()
	assert.Equal(t, symtab.Glo, id.Class)
	assert.Equal(t, symtab.INT, id.Type)
	assert.Equal(t, int64(100), id.Val)
}

func TestTypeEncodingQuirk(t *testing.T) {
	// char* is numerically indistinguishable from the bare PTR constant
	// (CHAR+PTR == PTR), a documented quirk carried from the original dialect.
	assert.Equal(t, symtab.PTR, symtab.PointerTo(symtab.CHAR))
	assert.True(t, symtab.IsPointer(symtab.PointerTo(symtab.INT)))
	assert.False(t, symtab.IsPointer(symtab.INT))

	assert.Equal(t, int64(1), symtab.PointeeSize(symtab.PointerTo(symtab.CHAR)))
	assert.Equal(t, int64(8), symtab.PointeeSize(symtab.PointerTo(symtab.INT)))

	assert.Equal(t, int64(1), symtab.Size(symtab.CHAR))
	assert.Equal(t, int64(8), symtab.Size(symtab.INT))
}

func TestAllReturnsEveryInterned(t *testing.T) {
	tab := symtab.New(8)
	_, _ = tab.Intern("a")
	_, _ = tab.Intern("b")
	_, _ = tab.Intern("c")
	assert.Len(t, tab.All(), 3)
}
