// Package console supplies the character collaborators the tape machine
// reads from and writes to.
package console

import (
	"bufio"
	"errors"
	"io"
	"os"

	"github.com/tliron/commonlog"
	"golang.org/x/term"

	"github.com/chazu/bfi/vm"
)

var log = commonlog.GetLogger("bfi.console")

// ErrInterrupted is returned when Ctrl-C is pressed during a raw read.
var ErrInterrupted = errors.New("console: interrupted")

const (
	keyInterrupt = 0x03
	keyEOF       = 0x04
)

// NewInput picks the input collaborator for f: a raw single-keystroke reader
// when f is a terminal, a buffered reader otherwise.
func NewInput(f *os.File) vm.Input {
	fd := int(f.Fd())
	if term.IsTerminal(fd) {
		log.Debugf("input %s is a terminal, using raw reads", f.Name())
		return NewRawReader(f)
	}
	log.Debugf("input %s is not a terminal, using buffered reads", f.Name())
	return bufio.NewReader(f)
}

// RawReader reads one character at a time from a terminal without echo and
// without waiting for a line terminator. Raw mode is held only for the
// duration of each read.
type RawReader struct {
	fd int
	r  *bufio.Reader
}

// NewRawReader wraps a terminal file.
func NewRawReader(f *os.File) *RawReader {
	return &RawReader{fd: int(f.Fd()), r: bufio.NewReader(f)}
}

// ReadRune implements io.RuneReader.
func (c *RawReader) ReadRune() (rune, int, error) {
	// A multi-byte keystroke or a paste may already be buffered from the last read.
	if c.r.Buffered() > 0 {
		return translateKey(c.r.ReadRune())
	}
	state, err := term.MakeRaw(c.fd)
	if err != nil {
		return 0, 0, err
	}
	defer func() {
		if err := term.Restore(c.fd, state); err != nil {
			log.Errorf("restore terminal: %s", err)
		}
	}()
	return translateKey(c.r.ReadRune())
}

// translateKey maps the raw-mode control keys onto their stream meanings.
func translateKey(r rune, size int, err error) (rune, int, error) {
	if err != nil {
		return r, size, err
	}
	switch r {
	case keyInterrupt:
		log.Debug("interrupt key")
		return 0, 0, ErrInterrupted
	case keyEOF:
		return 0, 0, io.EOF
	}
	return r, size, nil
}

// Output is a buffered character sink. Callers flush it once a program has
// finished so that a run's output appears as one block.
type Output struct {
	w *bufio.Writer
}

// NewOutput wraps w.
func NewOutput(w io.Writer) *Output {
	return &Output{w: bufio.NewWriter(w)}
}

// WriteRune implements vm.Output.
func (o *Output) WriteRune(r rune) (int, error) {
	return o.w.WriteRune(r)
}

// Write implements io.Writer.
func (o *Output) Write(p []byte) (int, error) {
	return o.w.Write(p)
}

// WriteString writes s unmodified.
func (o *Output) WriteString(s string) (int, error) {
	return o.w.WriteString(s)
}

// Flush writes any buffered characters.
func (o *Output) Flush() error {
	return o.w.Flush()
}
