// Package debugtui implements the `-tui` live dashboard: a tcell/tview
// layout of register, disassembly, stack, and output panels plus a
// command line, refreshed after every VM step. The panel layout and
// view construction are grounded on the teacher's debugger/tui.go.
package debugtui

import (
	"fmt"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/jpolson/selfc/internal/listing"
	"github.com/jpolson/selfc/internal/symtab"
	"github.com/jpolson/selfc/internal/vm"
)

// TUI is the live debugger dashboard wrapped around a running VM.
type TUI struct {
	Machine *vm.VM
	Syms    *symtab.Table

	App        *tview.Application
	MainLayout *tview.Flex

	RegisterView    *tview.TextView
	DisassemblyView *tview.TextView
	StackView       *tview.TextView
	OutputView      *tview.TextView
	CommandInput    *tview.InputField

	trace *listing.Trace

	// paused gates the run loop so the command line can single-step
	// ("n"), free-run ("c"), or quit ("q").
	paused  bool
	stepCh  chan struct{}
	quitCh  chan struct{}
}

// New creates a dashboard over m, attributing disassembly lines to
// symbol names via syms where possible.
func New(m *vm.VM, syms *symtab.Table) *TUI {
	t := &TUI{
		Machine: m,
		Syms:    syms,
		App:     tview.NewApplication(),
		trace:   listing.NewTrace(500),
		paused:  true,
		stepCh:  make(chan struct{}),
		quitCh:  make(chan struct{}),
	}
	t.initViews()
	t.buildLayout()
	m.OnStep = t.onStep
	m.Out = t.OutputView
	return t
}

func (t *TUI) initViews() {
	t.RegisterView = tview.NewTextView().SetDynamicColors(true)
	t.RegisterView.SetBorder(true).SetTitle(" Registers ")

	t.DisassemblyView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.DisassemblyView.SetBorder(true).SetTitle(" Trace ")

	t.StackView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.StackView.SetBorder(true).SetTitle(" Stack ")

	t.OutputView = tview.NewTextView().SetDynamicColors(true).SetScrollable(true)
	t.OutputView.SetBorder(true).SetTitle(" Program Output ")

	t.CommandInput = tview.NewInputField().SetLabel("> ").SetFieldWidth(0)
	t.CommandInput.SetBorder(true).SetTitle(" Command (n=step, c=continue, q=quit) ")
	t.CommandInput.SetDoneFunc(t.handleCommand)
}

func (t *TUI) buildLayout() {
	left := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.DisassemblyView, 0, 2, false).
		AddItem(t.OutputView, 0, 1, false)

	right := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(t.RegisterView, 7, 0, false).
		AddItem(t.StackView, 0, 1, false)

	content := tview.NewFlex().SetDirection(tview.FlexColumn).
		AddItem(left, 0, 2, false).
		AddItem(right, 0, 1, false)

	t.MainLayout = tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(content, 0, 4, false).
		AddItem(t.CommandInput, 3, 0, true)
}

func (t *TUI) handleCommand(key tcell.Key) {
	if key != tcell.KeyEnter {
		return
	}
	cmd := strings.TrimSpace(t.CommandInput.GetText())
	t.CommandInput.SetText("")
	switch cmd {
	case "n", "":
		t.paused = true
		t.stepCh <- struct{}{}
	case "c":
		t.paused = false
		t.stepCh <- struct{}{}
	case "q":
		close(t.quitCh)
		t.App.Stop()
	}
}

// onStep is the vm.VM.OnStep hook: it records the instruction, blocks
// for single-step mode, and refreshes the panels.
func (t *TUI) onStep(m *vm.VM, pc int, op vm.Op, operand int64) {
	t.trace.Record(m, pc, op, operand)
	t.refresh()
	if t.paused {
		<-t.stepCh
	}
}

func (t *TUI) refresh() {
	t.App.QueueUpdateDraw(func() {
		fmt.Fprintf(t.RegisterView, "")
		t.RegisterView.Clear()
		fmt.Fprintf(t.RegisterView, "pc=%d sp=%d bp=%d a=%d cycle=%d\n",
			t.Machine.PC, t.Machine.SP, t.Machine.BP, t.Machine.A, t.Machine.Cycle)

		t.DisassemblyView.Clear()
		entries := t.trace.Entries()
		start := 0
		if len(entries) > 200 {
			start = len(entries) - 200
		}
		for _, e := range entries[start:] {
			fmt.Fprintln(t.DisassemblyView, e.String())
		}

		t.StackView.Clear()
		top := t.Machine.SP
		for i := 0; i < 16 && top+i < t.Machine.Stack.Cap(); i++ {
			fmt.Fprintf(t.StackView, "%6d  %d\n", top+i, t.Machine.Stack.At(top+i))
		}
	})
}

// Run starts the VM in a background goroutine feeding this dashboard
// and blocks until the user quits or the program exits.
func (t *TUI) Run() error {
	go func() {
		if err := t.Machine.Run(); err != nil {
			t.App.QueueUpdateDraw(func() {
				fmt.Fprintf(t.OutputView, "error: %v\n", err)
			})
		}
		t.App.Stop()
	}()
	return t.App.SetRoot(t.MainLayout, true).SetFocus(t.CommandInput).Run()
}
