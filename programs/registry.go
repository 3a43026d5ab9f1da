// Package programs keeps the named programs the driver runs: the bundled
// demos, programs declared in bfi.toml, and CBOR bundles of either.
package programs

import (
	"crypto/sha256"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/chazu/bfi/manifest"
)

// ErrDuplicate is returned when a name is registered twice.
var ErrDuplicate = errors.New("program already registered")

// Program is a named program text.
type Program struct {
	Name   string
	Source string
}

// Hash returns the SHA-256 content hash of the source text.
func (p Program) Hash() [32]byte {
	return sha256.Sum256([]byte(p.Source))
}

// Registry is an ordered collection of uniquely named programs.
type Registry struct {
	order  []string
	byName map[string]Program
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{byName: make(map[string]Program)}
}

// Add appends p. Names must be unique.
func (r *Registry) Add(p Program) error {
	if _, ok := r.byName[p.Name]; ok {
		return fmt.Errorf("%w: %q", ErrDuplicate, p.Name)
	}
	r.order = append(r.order, p.Name)
	r.byName[p.Name] = p
	return nil
}

// Lookup finds a program by name.
func (r *Registry) Lookup(name string) (Program, bool) {
	p, ok := r.byName[name]
	return p, ok
}

// All returns the programs in registration order.
func (r *Registry) All() []Program {
	out := make([]Program, len(r.order))
	for i, name := range r.order {
		out[i] = r.byName[name]
	}
	return out
}

// Names returns the program names in registration order.
func (r *Registry) Names() []string {
	return append([]string(nil), r.order...)
}

// Len returns the number of registered programs.
func (r *Registry) Len() int {
	return len(r.order)
}

// Builtins returns a registry holding the bundled demo programs.
func Builtins() *Registry {
	r := NewRegistry()
	// Names are distinct, so Add cannot fail here.
	_ = r.Add(Program{Name: "Hello, world!", Source: HelloWorld("Hello, world!")})
	_ = r.Add(Program{Name: "Simple Loop", Source: SimpleLoop('L', 5)})
	return r
}

// HelloWorld builds a program that prints text using nothing but
// increments: each character gets a fresh cell counted up to its code point,
// printed, and left behind.
func HelloWorld(text string) string {
	var b strings.Builder
	for _, r := range text {
		b.WriteString(strings.Repeat("+", int(r)))
		b.WriteString(".>")
	}
	return b.String()
}

// SimpleLoop builds a program that prints ch count times from a loop.
func SimpleLoop(ch rune, count int) string {
	return ">" + strings.Repeat("+", int(ch)) + "<" + strings.Repeat("+", count) + "[>.<-]"
}

// FromManifest builds the registry described by m: the builtins when
// enabled, followed by the declared programs in file order.
func FromManifest(m *manifest.Manifest) (*Registry, error) {
	r := NewRegistry()
	if m.IncludeBuiltins() {
		for _, p := range Builtins().All() {
			if err := r.Add(p); err != nil {
				return nil, err
			}
		}
	}
	for _, decl := range m.Programs {
		src := decl.Source
		if decl.File != "" {
			path := m.Resolve(decl.File)
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, fmt.Errorf("program %q: %w", decl.Name, err)
			}
			src = string(data)
		}
		if err := r.Add(Program{Name: decl.Name, Source: src}); err != nil {
			return nil, err
		}
	}
	return r, nil
}
