package vm_test

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/vm"
)

func newVM(t *testing.T) *vm.VM {
	t.Helper()
	a := arena.New(arena.Sizes{SymbolCap: 8, CodeWords: 256, DataBytes: 256, StackWords: 64})
	return vm.New(a)
}

func emit(t *testing.T, m *vm.VM, words ...int64) {
	t.Helper()
	for _, w := range words {
		_, err := m.Code.Emit(w)
		require.NoError(t, err)
	}
}

func TestImmAndExit(t *testing.T) {
	m := newVM(t)
	emit(t, m,
		int64(vm.IMM), 42,
		int64(vm.PSH),
		int64(vm.EXIT),
	)
	require.NoError(t, m.Run())
	assert.Equal(t, 42, m.ExitCode)
	assert.True(t, m.Exited)
}

func TestArithmeticBinaryOps(t *testing.T) {
	m := newVM(t)
	// (2 + 3) * 4 = 20
	emit(t, m,
		int64(vm.IMM), 2,
		int64(vm.PSH),
		int64(vm.IMM), 3,
		int64(vm.ADD),
		int64(vm.PSH),
		int64(vm.IMM), 4,
		int64(vm.MUL),
		int64(vm.PSH),
		int64(vm.EXIT),
	)
	require.NoError(t, m.Run())
	assert.Equal(t, 20, m.ExitCode)
}

func TestLoadStoreWordThroughDataPool(t *testing.T) {
	m := newVM(t)
	addr, err := m.Data.AllocWord()
	require.NoError(t, err)

	emit(t, m,
		int64(vm.IMM), int64(addr),
		int64(vm.PSH),
		int64(vm.IMM), 7,
		int64(vm.SI),
		int64(vm.IMM), int64(addr),
		int64(vm.LI),
		int64(vm.PSH),
		int64(vm.EXIT),
	)
	require.NoError(t, m.Run())
	assert.Equal(t, 7, m.ExitCode)
	assert.Equal(t, arena.Word(7), m.Data.ReadWord(addr))
}

func TestJmpAndConditionalBranch(t *testing.T) {
	m := newVM(t)
	// if (0) exit(1); else exit(9);
	emit(t, m,
		int64(vm.IMM), 0, // 0,1
		int64(vm.BZ), 8, // 2,3 -> jumps to else branch at word 8
		int64(vm.IMM), 1, // 4,5 (skipped)
		int64(vm.JMP), 10, // 6,7
		int64(vm.IMM), 9, // 8,9
		int64(vm.PSH), // 10
		int64(vm.EXIT),
	)
	require.NoError(t, m.Run())
	assert.Equal(t, 9, m.ExitCode)
}

func TestFunctionCallConvention(t *testing.T) {
	m := newVM(t)
	// A tiny callee at word 0: ENT 0; LEA 2 (arg0, per the argc-index+1
	// offset DeclareParam assigns a single-parameter function's arg0);
	// LI; LEV. Caller pushes its arg, JSR, ADJ, PSH the result, EXIT.
	emit(t, m,
		int64(vm.ENT), 0, // 0,1
		int64(vm.LEA), 2, // 2,3
		int64(vm.LI), // 4
		int64(vm.LEV), // 5
	)
	const calleeAddr = 0
	emit(t, m,
		int64(vm.IMM), 55, // 6,7
		int64(vm.PSH), // 8
		int64(vm.JSR), int64(calleeAddr), // 9,10
		int64(vm.ADJ), 1, // 11,12
		int64(vm.PSH), // 13
		int64(vm.EXIT), // 14
	)
	m.PC = 6
	require.NoError(t, m.Run())
	assert.Equal(t, 55, m.ExitCode)
}

func TestPrintfWritesToConfiguredOutput(t *testing.T) {
	m := newVM(t)
	var out bytes.Buffer
	m.Out = &out

	fmtAddr, err := m.Data.AppendByte('%')
	require.NoError(t, err)
	_, err = m.Data.AppendByte('d')
	require.NoError(t, err)
	_, err = m.Data.AppendByte(0)
	require.NoError(t, err)

	// Push the 6-slot printf window: fmt goes first (deepest), then
	// slot 0 (the actual %d argument), then the five unused padding
	// slots nearest the top, call PRTF, then exit with its return
	// value as the code.
	emit(t, m,
		int64(vm.IMM), int64(fmtAddr), int64(vm.PSH),
		int64(vm.IMM), 41, int64(vm.PSH), // slot 0
		int64(vm.IMM), 0, int64(vm.PSH), // slot 1
		int64(vm.IMM), 0, int64(vm.PSH), // slot 2
		int64(vm.IMM), 0, int64(vm.PSH), // slot 3
		int64(vm.IMM), 0, int64(vm.PSH), // slot 4
		int64(vm.IMM), 0, int64(vm.PSH), // slot 5
		int64(vm.PRTF),
		int64(vm.ADJ), 7,
		int64(vm.PSH),
		int64(vm.EXIT),
	)
	require.NoError(t, m.Run())
	assert.Equal(t, "41", out.String())
}

func TestOnStepHookFiresEveryInstruction(t *testing.T) {
	m := newVM(t)
	emit(t, m,
		int64(vm.IMM), 1,
		int64(vm.PSH),
		int64(vm.EXIT),
	)
	var steps int
	m.OnStep = func(_ *vm.VM, _ int, _ vm.Op, _ int64) { steps++ }
	require.NoError(t, m.Run())
	assert.Equal(t, 3, steps)
}

func TestOutOfRangeDataAccessIsAnError(t *testing.T) {
	m := newVM(t)
	emit(t, m,
		int64(vm.IMM), 1_000_000,
		int64(vm.LI),
	)
	assert.Error(t, m.Run())
}
