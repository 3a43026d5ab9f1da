package main

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/muesli/termenv"

	"github.com/chazu/bfi/console"
	"github.com/chazu/bfi/programs"
	"github.com/chazu/bfi/store"
	"github.com/chazu/bfi/vm"
)

func newTestDriver(input string) (*driver, *bytes.Buffer, *bytes.Buffer) {
	var stdout, stderr bytes.Buffer
	d := &driver{
		in:     strings.NewReader(input),
		out:    console.NewOutput(&stdout),
		styles: termenv.NewOutput(&stdout, termenv.WithProfile(termenv.Ascii)),
		errw:   &stderr,
		eof:    vm.EOFZero,
	}
	return d, &stdout, &stderr
}

// ---------------------------------------------------------------------------
// Running programs
// ---------------------------------------------------------------------------

func TestRunAllBuiltins(t *testing.T) {
	d, stdout, stderr := newTestDriver("")
	if failed := d.runAll(programs.Builtins().All()); failed != 0 {
		t.Fatalf("failed = %d, stderr = %q", failed, stderr.String())
	}
	want := "Program 'Hello, world!': Hello, world!\nProgram 'Simple Loop': LLLLL\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunAllContinuesAfterFailure(t *testing.T) {
	d, stdout, stderr := newTestDriver("")
	progs := []programs.Program{
		{Name: "Broken", Source: "+>["},
		{Name: "Fine", Source: programs.HelloWorld("ok")},
	}
	if failed := d.runAll(progs); failed != 1 {
		t.Fatalf("failed = %d, want 1", failed)
	}
	want := "Program 'Broken': \nProgram 'Fine': ok\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
	if !strings.Contains(stderr.String(), `program "Broken": matching ']' not found (bracket at ip 2)`) {
		t.Errorf("stderr = %q", stderr.String())
	}
}

type brokenWriter struct{}

func (brokenWriter) Write(p []byte) (int, error) {
	return 0, errors.New("disk full")
}

func TestRunAllBrokenOutput(t *testing.T) {
	d, _, stderr := newTestDriver("")
	d.out = console.NewOutput(brokenWriter{})
	progs := []programs.Program{
		{Name: "Long", Source: strings.Repeat("+", 'a') + strings.Repeat(".", 5000)},
		{Name: "Short", Source: "+."},
	}
	if failed := d.runAll(progs); failed != 2 {
		t.Fatalf("failed = %d, want 2", failed)
	}
	for _, name := range []string{"Long", "Short"} {
		want := fmt.Sprintf("program %q: vm: write output: disk full", name)
		if !strings.Contains(stderr.String(), want) {
			t.Errorf("stderr = %q, want it to contain %q", stderr.String(), want)
		}
	}
}

func TestRunReadsInput(t *testing.T) {
	d, stdout, _ := newTestDriver("abc")
	d.runAll([]programs.Program{{Name: "Echo", Source: ",[.,]"}})
	if want := "Program 'Echo': abc\n"; stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunDump(t *testing.T) {
	d, stdout, _ := newTestDriver("")
	d.dump = true
	d.runAll([]programs.Program{{Name: "Mul", Source: "+++[>++<-]<-"}})
	want := "Program 'Mul': \n  cell[-1] = -1\n  cell[1] = 6\n"
	if stdout.String() != want {
		t.Errorf("stdout = %q, want %q", stdout.String(), want)
	}
}

func TestRunRecordsHistory(t *testing.T) {
	st, err := store.Open(filepath.Join(t.TempDir(), "history.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer st.Close()

	d, _, _ := newTestDriver("")
	d.history = st
	d.runAll([]programs.Program{
		{Name: "Loop", Source: programs.SimpleLoop('L', 3)},
		{Name: "Bad", Source: "+]"},
	})

	runs, err := st.ListByProgram("Loop", 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListByProgram(Loop) = %v, %v", runs, err)
	}
	if runs[0].Output != "LLL" || runs[0].Failed() {
		t.Errorf("Loop run = %+v", runs[0])
	}
	if runs[0].Scans != 1 {
		t.Errorf("Loop scans = %d, want 1", runs[0].Scans)
	}

	runs, err = st.ListByProgram("Bad", 0)
	if err != nil || len(runs) != 1 {
		t.Fatalf("ListByProgram(Bad) = %v, %v", runs, err)
	}
	if runs[0].Error != "matching '[' not found" {
		t.Errorf("Bad error = %q", runs[0].Error)
	}
}

// ---------------------------------------------------------------------------
// Program selection
// ---------------------------------------------------------------------------

func TestSelectPrograms(t *testing.T) {
	reg := programs.Builtins()

	got, err := selectPrograms(reg, "", "", nil)
	if err != nil || len(got) != 2 {
		t.Errorf("default selection = %v, %v", got, err)
	}

	got, err = selectPrograms(reg, "Simple Loop", "", nil)
	if err != nil || len(got) != 1 || got[0].Name != "Simple Loop" {
		t.Errorf("named selection = %v, %v", got, err)
	}

	if _, err := selectPrograms(reg, "Nope", "", nil); err == nil {
		t.Error("unknown program selected without error")
	}

	got, err = selectPrograms(reg, "Simple Loop", "+.", nil)
	if err != nil || len(got) != 1 || got[0].Source != "+." {
		t.Errorf("inline selection = %v, %v", got, err)
	}

	path := filepath.Join(t.TempDir(), "prog.b")
	if err := os.WriteFile(path, []byte("++."), 0644); err != nil {
		t.Fatal(err)
	}
	got, err = selectPrograms(reg, "", "", []string{path})
	if err != nil || len(got) != 1 || got[0].Name != "prog.b" || got[0].Source != "++." {
		t.Errorf("file selection = %v, %v", got, err)
	}
}

func TestBundleFileRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "demos.cbor")
	if err := writeBundle(programs.Builtins(), path); err != nil {
		t.Fatalf("writeBundle: %v", err)
	}
	reg, err := loadRegistry(nil, path)
	if err != nil {
		t.Fatalf("loadRegistry: %v", err)
	}
	if names := reg.Names(); len(names) != 2 || names[0] != "Hello, world!" {
		t.Errorf("Names = %v", names)
	}
}
