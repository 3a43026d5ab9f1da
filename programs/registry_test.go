package programs

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/chazu/bfi/manifest"
	"github.com/chazu/bfi/vm"
)

func interpret(t *testing.T, src string) string {
	t.Helper()
	var out strings.Builder
	if err := vm.Interpret(src, strings.NewReader(""), &out); err != nil {
		t.Fatalf("Interpret: %v", err)
	}
	return out.String()
}

func TestBuiltinsOrderAndOutput(t *testing.T) {
	r := Builtins()
	names := r.Names()
	if len(names) != 2 || names[0] != "Hello, world!" || names[1] != "Simple Loop" {
		t.Fatalf("Names = %v", names)
	}

	want := map[string]string{
		"Hello, world!": "Hello, world!",
		"Simple Loop":   "LLLLL",
	}
	for _, p := range r.All() {
		if got := interpret(t, p.Source); got != want[p.Name] {
			t.Errorf("%s printed %q, want %q", p.Name, got, want[p.Name])
		}
	}
}

func TestHelloWorldArbitraryText(t *testing.T) {
	for _, text := range []string{"", "x", "héllo ✓"} {
		if got := interpret(t, HelloWorld(text)); got != text {
			t.Errorf("HelloWorld(%q) printed %q", text, got)
		}
	}
}

func TestRegistryRejectsDuplicates(t *testing.T) {
	r := NewRegistry()
	if err := r.Add(Program{Name: "a", Source: "+"}); err != nil {
		t.Fatal(err)
	}
	err := r.Add(Program{Name: "a", Source: "-"})
	if !errors.Is(err, ErrDuplicate) {
		t.Errorf("Add duplicate = %v, want ErrDuplicate", err)
	}
	if p, _ := r.Lookup("a"); p.Source != "+" {
		t.Errorf("Lookup(a).Source = %q, want +", p.Source)
	}
	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) found something")
	}
}

func TestFromManifest(t *testing.T) {
	dir := t.TempDir()
	if err := os.MkdirAll(filepath.Join(dir, "progs"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "progs", "two.b"), []byte("++."), 0644); err != nil {
		t.Fatal(err)
	}
	m := &manifest.Manifest{
		Dir: dir,
		Programs: []manifest.Program{
			{Name: "One", Source: "+."},
			{Name: "Two", File: "progs/two.b"},
		},
	}

	r, err := FromManifest(m)
	if err != nil {
		t.Fatalf("FromManifest: %v", err)
	}
	names := r.Names()
	want := []string{"Hello, world!", "Simple Loop", "One", "Two"}
	if strings.Join(names, "|") != strings.Join(want, "|") {
		t.Errorf("Names = %v, want %v", names, want)
	}
	if p, _ := r.Lookup("Two"); p.Source != "++." {
		t.Errorf("Two source = %q", p.Source)
	}

	off := false
	m.Run.Builtins = &off
	r, err = FromManifest(m)
	if err != nil {
		t.Fatalf("FromManifest: %v", err)
	}
	if r.Len() != 2 {
		t.Errorf("Len without builtins = %d, want 2", r.Len())
	}
}

func TestFromManifestMissingFile(t *testing.T) {
	m := &manifest.Manifest{
		Dir:      t.TempDir(),
		Programs: []manifest.Program{{Name: "Gone", File: "nope.b"}},
	}
	_, err := FromManifest(m)
	if err == nil || !strings.Contains(err.Error(), `"Gone"`) {
		t.Errorf("err = %v, want a message naming the program", err)
	}
}

func TestFromManifestShadowedBuiltin(t *testing.T) {
	m := &manifest.Manifest{
		Dir:      t.TempDir(),
		Programs: []manifest.Program{{Name: "Simple Loop", Source: "+."}},
	}
	if _, err := FromManifest(m); !errors.Is(err, ErrDuplicate) {
		t.Errorf("err = %v, want ErrDuplicate", err)
	}

	off := false
	m.Run.Builtins = &off
	r, err := FromManifest(m)
	if err != nil {
		t.Fatalf("FromManifest without builtins: %v", err)
	}
	if p, _ := r.Lookup("Simple Loop"); p.Source != "+." {
		t.Errorf("Simple Loop source = %q, want the declared one", p.Source)
	}
}
