package main

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/muesli/termenv"

	"github.com/chazu/bfi/console"
	"github.com/chazu/bfi/programs"
	"github.com/chazu/bfi/store"
	"github.com/chazu/bfi/vm"
)

// driver runs programs one after another against the console.
type driver struct {
	in      vm.Input
	out     *console.Output
	styles  *termenv.Output
	errw    io.Writer
	eof     vm.EOFPolicy
	dump    bool
	history *store.Store
}

// teeOutput copies everything the machine writes into a transcript.
type teeOutput struct {
	out        vm.Output
	transcript strings.Builder
}

func (t *teeOutput) WriteRune(r rune) (int, error) {
	t.transcript.WriteRune(r)
	return t.out.WriteRune(r)
}

// flushingInput flushes pending output before blocking on a read, so that
// prompts are visible while the program waits for a key.
type flushingInput struct {
	in  vm.Input
	out *console.Output
}

func (f flushingInput) ReadRune() (rune, int, error) {
	if err := f.out.Flush(); err != nil {
		return 0, 0, err
	}
	return f.in.ReadRune()
}

// runAll runs each program in order and returns how many failed. A failure
// ends only that program's run.
func (d *driver) runAll(progs []programs.Program) int {
	failed := 0
	for _, p := range progs {
		label := d.styles.String(fmt.Sprintf("Program '%s': ", p.Name)).Bold()
		if _, err := d.out.WriteString(label.String()); err != nil {
			log.Errorf("write label: %s", err)
		}
		if err := d.run(p); err != nil {
			failed++
		}
	}
	return failed
}

func (d *driver) run(p programs.Program) error {
	tee := &teeOutput{out: d.out}
	m := vm.New(p.Source, flushingInput{in: d.in, out: d.out}, tee, vm.WithEOF(d.eof))

	started := time.Now()
	err := m.Run()
	finished := time.Now()

	if _, werr := d.out.WriteRune('\n'); werr != nil {
		log.Errorf("write output: %s", werr)
	}
	if d.dump {
		for _, c := range m.Tape().Cells() {
			fmt.Fprintf(d.out, "  cell[%d] = %s\n", c.Index, c.Value)
		}
	}
	if ferr := d.out.Flush(); ferr != nil {
		log.Errorf("flush output: %s", ferr)
	}

	if err != nil {
		var ie *vm.InterpreterError
		if errors.As(err, &ie) {
			fmt.Fprintf(d.errw, "Error: program %q: %s\n", p.Name, ie.Detail())
		} else {
			fmt.Fprintf(d.errw, "Error: program %q: %v\n", p.Name, err)
		}
	}
	log.Infof("program %q: %d steps, %d bracket scans in %s", p.Name, m.Steps(), m.Scans(), finished.Sub(started))

	if d.history != nil {
		rec := &store.Run{
			Program:  p.Name,
			Hash:     p.Hash(),
			Started:  started,
			Finished: finished,
			Output:   tee.transcript.String(),
			Steps:    m.Steps(),
			Scans:    m.Scans(),
			Cells:    m.Tape().Cells(),
		}
		if err != nil {
			rec.Error = err.Error()
		}
		if herr := d.history.Record(rec); herr != nil {
			log.Errorf("record run: %s", herr)
		}
	}
	return err
}

func (d *driver) closeHistory() {
	if d.history != nil {
		d.history.Close()
	}
}
