package vm

import (
	"errors"
	"fmt"
	"io"
	"unicode/utf8"

	"github.com/tliron/commonlog"
)

var log = commonlog.GetLogger("bfi.vm")

// Input yields one character per call. Terminal, pipe and in-memory sources
// all satisfy it.
type Input = io.RuneReader

// Output appends one character to a continuous stream.
type Output interface {
	WriteRune(r rune) (int, error)
}

// EOFPolicy decides what ',' stores when the input is exhausted.
type EOFPolicy uint8

const (
	// EOFUnchanged leaves the current cell as it was.
	EOFUnchanged EOFPolicy = iota
	// EOFZero stores zero in the current cell.
	EOFZero
)

// Option configures a Machine.
type Option func(*Machine)

// WithEOF sets the end-of-input policy.
func WithEOF(p EOFPolicy) Option {
	return func(m *Machine) { m.eof = p }
}

// Machine holds the complete state of one interpretation run. A Machine is
// not safe for concurrent use; independent runs each get their own.
type Machine struct {
	program []rune
	ip      int
	dp      int
	tape    *Tape
	jumps   *JumpTable

	in  Input
	out Output
	eof EOFPolicy

	steps uint64
}

// New prepares a run of program. Characters outside the instruction set are
// kept in place and executed as no-ops.
func New(program string, in Input, out Output, opts ...Option) *Machine {
	src := []rune(program)
	m := &Machine{
		program: src,
		tape:    NewTape(),
		jumps:   NewJumpTable(src),
		in:      in,
		out:     out,
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Interpret runs program to completion against the given collaborators.
func Interpret(program string, in Input, out Output, opts ...Option) error {
	return New(program, in, out, opts...).Run()
}

// Run executes until the instruction pointer passes the end of the program
// or an error stops it.
func (m *Machine) Run() error {
	for {
		done, err := m.Step()
		if err != nil {
			log.Debugf("run stopped at ip %d after %d steps: %s", m.ip, m.steps, err)
			return err
		}
		if done {
			log.Debugf("run finished: %d steps, %d bracket scans, %d cells touched",
				m.steps, m.jumps.Scans(), m.tape.Len())
			return nil
		}
	}
}

// Step executes the instruction at the instruction pointer and advances it.
// It reports done once the pointer has run past the program.
func (m *Machine) Step() (bool, error) {
	if m.ip >= len(m.program) {
		return true, nil
	}
	if err := m.execute(m.program[m.ip]); err != nil {
		return true, err
	}
	m.steps++
	// Jumps land on the partner bracket itself; this advance moves past it.
	m.ip++
	return m.ip >= len(m.program), nil
}

func (m *Machine) execute(op rune) error {
	switch op {
	case '>':
		m.dp++
	case '<':
		m.dp--
	case '+':
		m.tape.Inc(m.dp)
	case '-':
		m.tape.Dec(m.dp)
	case '.':
		return m.write()
	case ',':
		return m.read()
	case '[':
		if !m.tape.IsZero(m.dp) {
			return nil
		}
		target, err := m.jumps.Close(m.ip)
		if err != nil {
			return err
		}
		m.ip = target
	case ']':
		if m.tape.IsZero(m.dp) {
			return nil
		}
		target, err := m.jumps.Open(m.ip)
		if err != nil {
			return err
		}
		m.ip = target
	}
	return nil
}

func (m *Machine) write() error {
	r, ok := m.tape.Rune(m.dp)
	if !ok {
		r = utf8.RuneError
	}
	if _, err := m.out.WriteRune(r); err != nil {
		return fmt.Errorf("vm: write output: %w", err)
	}
	return nil
}

func (m *Machine) read() error {
	r, _, err := m.in.ReadRune()
	if errors.Is(err, io.EOF) {
		if m.eof == EOFZero {
			m.tape.Set(m.dp, 0)
		}
		return nil
	}
	if err != nil {
		return fmt.Errorf("vm: read input: %w", err)
	}
	m.tape.Set(m.dp, int64(r))
	return nil
}

// Tape returns the machine's memory.
func (m *Machine) Tape() *Tape { return m.tape }

// DataPointer returns the current tape index.
func (m *Machine) DataPointer() int { return m.dp }

// InstructionPointer returns the index of the next instruction.
func (m *Machine) InstructionPointer() int { return m.ip }

// Steps returns the number of instructions executed so far, no-ops included.
func (m *Machine) Steps() uint64 { return m.steps }

// Scans returns how many bracket scans the run has needed.
func (m *Machine) Scans() int { return m.jumps.Scans() }
