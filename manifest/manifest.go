// Package manifest handles bfi.toml configuration.
package manifest

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"
	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/vm"
)

var log = commonlog.GetLogger("bfi.manifest")

// FileName is the configuration file looked up by FindAndLoad.
const FileName = "bfi.toml"

// Manifest represents a bfi.toml configuration.
type Manifest struct {
	Run      Run       `toml:"run"`
	Log      Log       `toml:"log"`
	History  History   `toml:"history"`
	Programs []Program `toml:"program"`

	// Dir is the directory containing the bfi.toml file (set at load time).
	Dir string `toml:"-"`
	// Unknown lists keys present in the file that no field consumed.
	Unknown []string `toml:"-"`
}

// Run configures interpretation.
type Run struct {
	EOF      string `toml:"eof"`
	Builtins *bool  `toml:"builtins"`
}

// Log configures commonlog.
type Log struct {
	Verbosity int    `toml:"verbosity"`
	File      string `toml:"file"`
}

// History configures the run history database.
type History struct {
	Enabled bool   `toml:"enabled"`
	Path    string `toml:"path"`
}

// Program is a named program declared inline or by file.
type Program struct {
	Name   string `toml:"name"`
	Source string `toml:"source"`
	File   string `toml:"file"`
}

// Default returns the configuration used when no bfi.toml exists.
func Default() *Manifest {
	m := &Manifest{}
	m.Dir, _ = os.Getwd()
	m.applyDefaults()
	return m
}

// Load parses the bfi.toml file in dir. Keys the manifest does not know are
// kept in Unknown and logged rather than rejected.
func Load(dir string) (*Manifest, error) {
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, fmt.Errorf("cannot resolve path %s: %w", dir, err)
	}
	path := filepath.Join(abs, FileName)
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("cannot read %s: %w", path, err)
	}

	m := &Manifest{Dir: abs}
	md, err := toml.Decode(string(data), m)
	if err != nil {
		return nil, fmt.Errorf("parse error in %s: %w", path, err)
	}
	for _, key := range md.Undecoded() {
		m.Unknown = append(m.Unknown, key.String())
		log.Warningf("%s: unknown key %s", path, key)
	}

	m.applyDefaults()
	if err := m.validate(); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	log.Debugf("loaded %s: %d programs", path, len(m.Programs))
	return m, nil
}

// FindAndLoad loads the nearest bfi.toml at or above startDir. It returns
// nil, nil when there is none.
func FindAndLoad(startDir string) (*Manifest, error) {
	dir, ok, err := locate(startDir)
	if err != nil || !ok {
		return nil, err
	}
	return Load(dir)
}

// locate walks up from start to the first directory holding FileName.
func locate(start string) (string, bool, error) {
	dir, err := filepath.Abs(start)
	if err != nil {
		return "", false, err
	}
	for ; ; dir = filepath.Dir(dir) {
		if info, err := os.Stat(filepath.Join(dir, FileName)); err == nil && !info.IsDir() {
			return dir, true, nil
		}
		if filepath.Dir(dir) == dir {
			return "", false, nil
		}
	}
}

func (m *Manifest) applyDefaults() {
	if m.Run.EOF == "" {
		m.Run.EOF = "unchanged"
	}
	if m.Run.Builtins == nil {
		on := true
		m.Run.Builtins = &on
	}
	if m.History.Path == "" {
		m.History.Path = filepath.Join(".bfi", "history.db")
	}
}

func (m *Manifest) validate() error {
	if _, err := m.EOFPolicy(); err != nil {
		return err
	}
	seen := make(map[string]bool)
	for i, p := range m.Programs {
		if p.Name == "" {
			return fmt.Errorf("program #%d has no name", i+1)
		}
		if seen[p.Name] {
			return fmt.Errorf("program %q declared twice", p.Name)
		}
		seen[p.Name] = true
		if (p.Source == "") == (p.File == "") {
			return fmt.Errorf("program %q needs exactly one of source or file", p.Name)
		}
	}
	return nil
}

// EOFPolicy maps run.eof to the engine's end-of-input policy.
func (m *Manifest) EOFPolicy() (vm.EOFPolicy, error) {
	switch m.Run.EOF {
	case "unchanged":
		return vm.EOFUnchanged, nil
	case "zero":
		return vm.EOFZero, nil
	}
	return 0, fmt.Errorf("unknown run.eof %q (want \"unchanged\" or \"zero\")", m.Run.EOF)
}

// IncludeBuiltins reports whether the bundled demo programs are registered.
func (m *Manifest) IncludeBuiltins() bool {
	return m.Run.Builtins == nil || *m.Run.Builtins
}

// HistoryPath returns the absolute path of the history database.
func (m *Manifest) HistoryPath() string {
	return m.Resolve(m.History.Path)
}

// LogFile returns the absolute log file path, or nil to log to stderr.
func (m *Manifest) LogFile() *string {
	if m.Log.File == "" {
		return nil
	}
	path := m.Resolve(m.Log.File)
	return &path
}

// Resolve returns path made absolute against the manifest directory.
func (m *Manifest) Resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(m.Dir, path)
}
