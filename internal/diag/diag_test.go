package diag_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jpolson/selfc/internal/diag"
)

func TestErrorFormatting(t *testing.T) {
	// spec.md §7: the printed diagnostic never carries a filename, just
	// "<line>: message" — File is bookkeeping only, not part of Error().
	e := &diag.Error{File: "prog.c", Line: 12, Msg: "bad token"}
	assert.Equal(t, "12: bad token", e.Error())

	noFile := &diag.Error{Line: 3, Msg: "oops"}
	assert.Equal(t, "3: oops", noFile.Error())
}

func TestRecoverCatchesFatal(t *testing.T) {
	var err error
	func() {
		defer diag.Recover(&err)
		diag.Fatal("prog.c", 5, "unexpected %s", "token")
	}()

	require.Error(t, err)
	var de *diag.Error
	require.ErrorAs(t, err, &de)
	assert.Equal(t, "prog.c", de.File)
	assert.Equal(t, 5, de.Line)
	assert.Equal(t, "unexpected token", de.Msg)
}

func TestRecoverReraisesOtherPanics(t *testing.T) {
	var err error
	assert.Panics(t, func() {
		defer diag.Recover(&err)
		panic("not a diag error")
	})
}

func TestRecoverNoPanicLeavesErrUntouched(t *testing.T) {
	err := error(nil)
	func() {
		defer diag.Recover(&err)
	}()
	assert.NoError(t, err)
}
