// Package listing formats a compiled program for human consumption:
// the `-s` combined source/disassembly listing spec.md §6 describes,
// and a step-by-step execution trace the -d trace and the debug TUI
// reuse. The shape (an accumulated slice of entries, written to an
// io.Writer by a dedicated Render) is grounded on the teacher's
// vm/trace.go ExecutionTrace.
package listing

import (
	"fmt"
	"io"
	"strings"

	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/vm"
)

// Mnemonic disassembles one instruction at addr, returning its text and
// the address just past it (addr+1, or +2 if it carries an operand).
func Mnemonic(code *arena.CodePool, addr int) (string, int) {
	op := vm.Op(code.At(addr))
	if vm.HasOperand(op) {
		operand := code.At(addr + 1)
		return fmt.Sprintf("%-4s %d", op, operand), addr + 2
	}
	return op.String(), addr + 1
}

// Disassemble renders every instruction in [0, code.Len()) as one
// "addr  MNEM operand" line per instruction.
func Disassemble(code *arena.CodePool) string {
	var b strings.Builder
	for addr := 0; addr < code.Len(); {
		text, next := Mnemonic(code, addr)
		fmt.Fprintf(&b, "%6d  %s\n", addr, text)
		addr = next
	}
	return b.String()
}

// SourceListing accumulates, per source line, the instructions the
// compiler emitted while scanning that line — lexer.Lexer.OnNewline
// feeds it — and renders source interleaved with disassembly, the
// dialect's `-s` mode (spec.md §6).
type SourceListing struct {
	code  *arena.CodePool
	lines []string

	lastFlushed int // code address already attributed to a previous line
	lineStarts  []int

	// ShowSource and ShowAddresses toggle the two columns Render emits
	// (internal/config's listing.show_source/listing.show_addresses);
	// both default to true.
	ShowSource    bool
	ShowAddresses bool
}

// NewSourceListing creates a listing over code, whose lines will be
// fed one at a time via OnLine (wire lex.OnNewline = listing.OnLine).
func NewSourceListing(code *arena.CodePool) *SourceListing {
	return &SourceListing{code: code, ShowSource: true, ShowAddresses: true}
}

// OnLine records that sourceLine has just finished lexing, capturing
// how many code words have been emitted so far against it.
func (s *SourceListing) OnLine(sourceLine string) {
	s.lines = append(s.lines, sourceLine)
	s.lineStarts = append(s.lineStarts, s.code.Len())
}

// Render writes the interleaved source+disassembly listing to w: each
// source line, followed by the instructions attributed to it.
func (s *SourceListing) Render(w io.Writer) error {
	for i, line := range s.lines {
		if s.ShowSource {
			if _, err := fmt.Fprintf(w, "%4d: %s\n", i+1, line); err != nil {
				return err
			}
		}
		start := s.lastFlushed
		end := s.code.Len()
		if i+1 < len(s.lineStarts) {
			end = s.lineStarts[i+1]
		}
		for addr := start; addr < end; {
			text, next := Mnemonic(s.code, addr)
			var err error
			if s.ShowAddresses {
				_, err = fmt.Fprintf(w, "        %6d  %s\n", addr, text)
			} else {
				_, err = fmt.Fprintf(w, "        %s\n", text)
			}
			if err != nil {
				return err
			}
			addr = next
		}
		s.lastFlushed = end
	}
	return nil
}

// StepEntry is one executed instruction, as reported through
// vm.VM.OnStep — the unit both the debug trace (-d) and the debug
// TUI's trace panel work with.
type StepEntry struct {
	Cycle   int64
	PC      int
	Op      vm.Op
	Operand int64
	A       int64
	SP, BP  int
}

// Trace collects a bounded window of recent StepEntry values, the way
// the teacher's ExecutionTrace bounds its entries with MaxEntries.
type Trace struct {
	MaxEntries int
	entries    []StepEntry
}

// NewTrace creates a trace keeping at most max entries (0 means
// unbounded).
func NewTrace(max int) *Trace { return &Trace{MaxEntries: max} }

// Record implements the vm.VM.OnStep hook signature.
func (t *Trace) Record(m *vm.VM, pc int, op vm.Op, operand int64) {
	if t.MaxEntries > 0 && len(t.entries) >= t.MaxEntries {
		t.entries = t.entries[1:]
	}
	t.entries = append(t.entries, StepEntry{
		Cycle: m.Cycle, PC: pc, Op: op, Operand: operand,
		A: m.A, SP: m.SP, BP: m.BP,
	})
}

// Entries returns the currently retained trace entries, oldest first.
func (t *Trace) Entries() []StepEntry { return t.entries }

func (e StepEntry) String() string {
	if vm.HasOperand(e.Op) {
		return fmt.Sprintf("[%06d] %6d  %-4s %-8d a=%d sp=%d bp=%d", e.Cycle, e.PC, e.Op, e.Operand, e.A, e.SP, e.BP)
	}
	return fmt.Sprintf("[%06d] %6d  %-12s a=%d sp=%d bp=%d", e.Cycle, e.PC, e.Op, e.A, e.SP, e.BP)
}
