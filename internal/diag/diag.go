// Package diag implements the compiler's single-line diagnostic policy:
// the first error at any stage is fatal, carries a source line number,
// and terminates the host process with exit code -1. There is no
// multi-error reporting and no recovery.
package diag

import "fmt"

// Error is a fatal source diagnostic: "<line>: <message>" (spec.md §7 —
// no filename, the host process has only ever been compiling one file).
type Error struct {
	File string
	Line int
	Msg  string
}

func (e *Error) Error() string {
	return fmt.Sprintf("%d: %s", e.Line, e.Msg)
}

// Fatal raises a compile-time diagnostic. Core packages never call
// os.Exit directly; they panic with *Error and let cmd/selfc (or a
// test's Recover) turn that into an exit code. This keeps library
// packages free of process-lifetime side effects while preserving the
// "first error wins, no recovery" behavior the dialect requires.
func Fatal(file string, line int, format string, args ...any) {
	panic(&Error{File: file, Line: line, Msg: fmt.Sprintf(format, args...)})
}

// Recover turns a panic raised by Fatal into an error return. Any other
// panic value is re-raised: diag only claims responsibility for *Error.
func Recover(errp *error) {
	r := recover()
	if r == nil {
		return
	}
	if e, ok := r.(*Error); ok {
		*errp = e
		return
	}
	panic(r)
}
