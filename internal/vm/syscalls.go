package vm

import (
	"fmt"
	"os"
)

// syscall dispatches one of the nine built-ins (spec.md §4.6/§6). Each
// syscall knows its own fixed arity and reads exactly that many words
// from the top of the stack without popping them — the calling
// convention leaves ADJ cleanup of the pushed arguments to the caller,
// same as a Fun call.
func (m *VM) syscall(op Op) error {
	switch op {
	case OPEN:
		path := m.ReadCString(m.Stack.At(m.SP + 1))
		flags := m.Stack.At(m.SP)
		f, err := openForFlags(path, flags)
		if err != nil {
			m.A = -1
			return nil
		}
		m.files = append(m.files, f)
		m.A = int64(len(m.files) - 1)

	case READ:
		fd := int(m.Stack.At(m.SP + 2))
		addr := m.Stack.At(m.SP + 1)
		n := m.Stack.At(m.SP)
		f, err := m.fileForFd(fd)
		if err != nil {
			m.A = -1
			return nil
		}
		buf := make([]byte, n)
		read, _ := f.Read(buf)
		for i := 0; i < read; i++ {
			if err := m.storeByte(addr+int64(i), buf[i]); err != nil {
				return err
			}
		}
		m.A = int64(read)

	case CLOS:
		fd := int(m.Stack.At(m.SP))
		f, err := m.fileForFd(fd)
		if err != nil {
			m.A = -1
			return nil
		}
		if f != os.Stdin && f != os.Stdout && f != os.Stderr {
			f.Close()
		}
		m.A = 0

	case PRTF:
		// printf(fmt, a0..a5): fmt is the deepest of the fixed 6-slot
		// window spec.md §4.6 describes; unused trailing slots are
		// simply never referenced by the format string.
		n, err := m.doPrintf()
		if err != nil {
			return err
		}
		m.A = n

	case MALC:
		n := m.Stack.At(m.SP)
		addr, err := m.malloc(n)
		if err != nil {
			m.A = 0
			return nil
		}
		m.A = addr

	case FREE:
		addr := m.Stack.At(m.SP)
		m.free(addr)
		m.A = 0

	case MSET:
		addr := m.Stack.At(m.SP + 2)
		val := byte(m.Stack.At(m.SP + 1))
		n := m.Stack.At(m.SP)
		for i := int64(0); i < n; i++ {
			if err := m.storeByte(addr+i, val); err != nil {
				return err
			}
		}
		m.A = addr

	case MCMP:
		a := m.Stack.At(m.SP + 2)
		b := m.Stack.At(m.SP + 1)
		n := m.Stack.At(m.SP)
		var result int64
		for i := int64(0); i < n; i++ {
			av, err := m.loadByte(a + i)
			if err != nil {
				return err
			}
			bv, err := m.loadByte(b + i)
			if err != nil {
				return err
			}
			if av != bv {
				result = av - bv
				break
			}
		}
		m.A = result

	case EXIT:
		m.ExitCode = int(m.Stack.At(m.SP))
		m.Exited = true

	default:
		return fmt.Errorf("unimplemented syscall: %s", op)
	}
	return nil
}

func openForFlags(path string, flags int64) (*os.File, error) {
	const (
		oRdOnly = 0
		oWrOnly = 1
		oRdWr   = 2
		oCreat  = 0o100
		oTrunc  = 0o1000
	)
	goFlags := os.O_RDONLY
	switch flags & 3 {
	case oWrOnly:
		goFlags = os.O_WRONLY
	case oRdWr:
		goFlags = os.O_RDWR
	}
	if flags&oCreat != 0 {
		goFlags |= os.O_CREATE
	}
	if flags&oTrunc != 0 {
		goFlags |= os.O_TRUNC
	}
	return os.OpenFile(path, goFlags, 0644)
}

func (m *VM) fileForFd(fd int) (*os.File, error) {
	if fd < 0 || fd >= len(m.files) || m.files[fd] == nil {
		return nil, fmt.Errorf("bad file descriptor: %d", fd)
	}
	return m.files[fd], nil
}

// malloc is a bump allocator over the data pool's region past whatever
// static footprint compilation left behind, with a size-classed free
// list so FREE can make blocks available for reuse. It never shrinks
// the pool and never reports leaks at exit, matching spec.md §5's
// non-goal for precise memory management.
func (m *VM) malloc(n int64) (int64, error) {
	if n <= 0 {
		n = 1
	}
	if free, ok := m.heapFree[n]; ok && len(free) > 0 {
		addr := free[len(free)-1]
		m.heapFree[n] = free[:len(free)-1]
		m.heapBlockSize[addr] = n
		return addr, nil
	}
	addr := m.Data.Len()
	for i := int64(0); i < n; i++ {
		if _, err := m.Data.AppendByte(0); err != nil {
			return 0, err
		}
	}
	m.heapBlockSize[int64(addr)] = n
	return int64(addr), nil
}

// free makes addr's block available for a same-size malloc to reuse.
// addr must be a value malloc previously returned; freeing anything
// else (or double-freeing) is a guest bug this dialect does not detect,
// matching spec.md §5's non-goal for precise memory management.
func (m *VM) free(addr int64) {
	n, ok := m.heapBlockSize[addr]
	if !ok {
		return
	}
	delete(m.heapBlockSize, addr)
	m.heapFree[n] = append(m.heapFree[n], addr)
}
