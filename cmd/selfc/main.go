// Command selfc compiles and runs a single source file: the CLI
// surface spec.md §6 describes, plus the `-tui` and `-api-server`
// observability modes SPEC_FULL.md §4.11/§4.12 add. Flag handling and
// the mode dispatch below follow the shape of the teacher's main.go.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/jpolson/selfc/internal/apiserver"
	"github.com/jpolson/selfc/internal/arena"
	"github.com/jpolson/selfc/internal/compiler"
	"github.com/jpolson/selfc/internal/config"
	"github.com/jpolson/selfc/internal/debugtui"
	"github.com/jpolson/selfc/internal/listing"
	"github.com/jpolson/selfc/internal/vm"
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		listFlag  = flag.Bool("s", false, "print the source/disassembly listing instead of running")
		traceFlag = flag.Bool("d", false, "print an execution trace to stderr while running")
		tuiFlag   = flag.Bool("tui", false, "run under the live tcell/tview debugger dashboard")
		apiFlag   = flag.Bool("api-server", false, "serve VM status/symbols/trace over HTTP+WS while running")
		apiAddr   = flag.String("api-addr", "", "address for -api-server (default from config)")
	)
	flag.Usage = usage
	flag.Parse()

	if flag.NArg() < 1 {
		usage()
		return 2
	}
	file := flag.Arg(0)
	guestArgs := flag.Args()[1:]

	src, err := os.ReadFile(file)
	if err != nil {
		fmt.Fprintf(os.Stdout, "%v\n", err)
		return -1
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stdout, "%v\n", err)
		return -1
	}
	arenas := arena.New(cfg.ArenaSizes())

	var sl *listing.SourceListing
	if *listFlag {
		sl = listing.NewSourceListing(arenas.Code)
		sl.ShowSource = cfg.Listing.ShowSource
		sl.ShowAddresses = cfg.Listing.ShowAddresses
	}

	res, err := compileWithListing(file, string(src), arenas, sl)
	if err != nil {
		fmt.Fprintf(os.Stdout, "%v\n", err)
		return -1
	}

	if *listFlag {
		if err := sl.Render(os.Stdout); err != nil {
			fmt.Fprintf(os.Stdout, "%v\n", err)
			return -1
		}
		return 0
	}

	machine := vm.New(res.Arenas)
	machine.MaxCycles = cfg.VM.MaxCycles
	bootstrap(machine, res.Entry, file, guestArgs)

	if *traceFlag || cfg.VM.TraceOnStep {
		prev := machine.OnStep
		machine.OnStep = func(m *vm.VM, pc int, op vm.Op, operand int64) {
			e := listing.StepEntry{Cycle: m.Cycle, PC: pc, Op: op, Operand: operand, A: m.A, SP: m.SP, BP: m.BP}
			fmt.Fprintln(os.Stderr, e.String())
			if prev != nil {
				prev(m, pc, op, operand)
			}
		}
	}

	if *apiFlag {
		addr := *apiAddr
		if addr == "" {
			addr = cfg.APIServer.Addr
		}
		srv := apiserver.NewServer(machine, res.Syms)
		prev := machine.OnStep
		machine.OnStep = func(m *vm.VM, pc int, op vm.Op, operand int64) {
			srv.StepHook(m, pc, op, operand)
			if prev != nil {
				prev(m, pc, op, operand)
			}
		}

		ctx, cancel := context.WithCancel(context.Background())
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
		go func() {
			<-sigCh
			cancel()
		}()

		errCh := make(chan error, 1)
		go func() { errCh <- srv.ListenAndServe(ctx, addr) }()

		if runErr := machine.Run(); runErr != nil {
			fmt.Fprintf(os.Stdout, "%v\n", runErr)
			return -1
		}
		cancel()
		<-errCh
		return machine.ExitCode
	}

	if *tuiFlag {
		dash := debugtui.New(machine, res.Syms)
		if err := dash.Run(); err != nil {
			fmt.Fprintf(os.Stdout, "%v\n", err)
			return -1
		}
		return machine.ExitCode
	}

	if err := machine.Run(); err != nil {
		fmt.Fprintf(os.Stdout, "%v\n", err)
		return -1
	}
	return machine.ExitCode
}

func compileWithListing(file, src string, a *arena.Arenas, sl *listing.SourceListing) (*compiler.Result, error) {
	// SourceListing attributes instructions to lines via the lexer's
	// newline hook, so it must be wired before compilation starts.
	if sl == nil {
		return compiler.Compile(file, src, a)
	}
	return compiler.CompileWithHook(file, src, a, sl.OnLine)
}

// bootstrap arranges the stack the way the original dialect's own
// startup code does: the argv array and its NUL-terminated strings land
// in the data pool, argc and argv are pushed as main's two arguments,
// and a PSH;EXIT trampoline appended past the
// compiled program serves as main's return address, so `exit(main(...))`
// happens automatically however main returns (spec.md §9 supplement).
func bootstrap(m *vm.VM, entry int, file string, guestArgs []string) {
	args := append([]string{file}, guestArgs...)

	argvAddrs := make([]int64, len(args))
	for i, a := range args {
		addr, err := writeCString(m, a)
		if err != nil {
			fmt.Fprintf(os.Stdout, "selfc: %v\n", err)
			os.Exit(-1)
		}
		argvAddrs[i] = addr
	}

	arrayAddrs := make([]int, len(argvAddrs))
	for i, addr := range argvAddrs {
		slot, err := m.Data.AllocWord()
		if err != nil {
			fmt.Fprintf(os.Stdout, "selfc: data pool exhausted building argv\n")
			os.Exit(-1)
		}
		arrayAddrs[i] = slot
		m.Data.WriteWord(slot, addr)
	}
	argv := int64(0)
	if len(arrayAddrs) > 0 {
		argv = int64(arrayAddrs[0])
	}

	trampoline, err := m.Code.Emit(int64(vm.PSH))
	if err != nil {
		fmt.Fprintf(os.Stdout, "selfc: code pool exhausted building exit trampoline\n")
		os.Exit(-1)
	}
	if _, err := m.Code.Emit(int64(vm.EXIT)); err != nil {
		fmt.Fprintf(os.Stdout, "selfc: code pool exhausted building exit trampoline\n")
		os.Exit(-1)
	}

	m.PC = entry
	pushWord(m, int64(len(args))) // argc
	pushWord(m, argv)             // argv
	pushWord(m, int64(trampoline))
}

func pushWord(m *vm.VM, v int64) {
	m.SP--
	m.Stack.Set(m.SP, v)
}

func writeCString(m *vm.VM, s string) (int64, error) {
	first := -1
	for i := 0; i < len(s); i++ {
		addr, err := m.Data.AppendByte(s[i])
		if err != nil {
			return 0, err
		}
		if first < 0 {
			first = addr
		}
	}
	nulAddr, err := m.Data.AppendByte(0)
	if err != nil {
		return 0, err
	}
	if first < 0 {
		first = nulAddr
	}
	return int64(first), nil
}

func usage() {
	fmt.Fprintf(os.Stderr, `usage: selfc [-s] [-d] [-tui] [-api-server] <source-file> [args...]

  -s            print source/disassembly listing, don't run
  -d            trace every executed instruction to stderr
  -tui          run under the live tcell/tview debugger dashboard
  -api-server   serve /status, /symbols, and a /trace websocket
  -api-addr     address for -api-server (default from selfc.toml)
`)
}
