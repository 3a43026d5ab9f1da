// bfi - runs tape programs: the bundled demos, programs declared in
// bfi.toml, inline source, or files.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/muesli/termenv"
	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/console"
	"github.com/chazu/bfi/manifest"
	"github.com/chazu/bfi/programs"
	"github.com/chazu/bfi/server"
	"github.com/chazu/bfi/store"

	_ "github.com/tliron/commonlog/simple"
)

const version = "0.1.0"

var log = commonlog.GetLogger("bfi")

func main() {
	verbose := flag.Int("v", 0, "Log verbosity (added to bfi.toml log.verbosity)")
	configDir := flag.String("C", "", "Directory to search for bfi.toml (default: current directory)")
	only := flag.String("p", "", "Run only the named program")
	inline := flag.String("e", "", "Run inline program source")
	list := flag.Bool("list", false, "List program names and exit")
	bundleOut := flag.String("bundle", "", "Write the program registry to a CBOR bundle and exit")
	bundleIn := flag.String("load", "", "Use a CBOR bundle as the program registry")
	history := flag.Bool("history", false, "Record runs in the history database")
	dump := flag.Bool("dump", false, "Print non-zero tape cells after each run")
	eof := flag.String("eof", "", "End-of-input policy: unchanged or zero (overrides bfi.toml)")
	lspMode := flag.Bool("lsp", false, "Start the language server on stdio")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, "Usage: bfi [options] [files...]\n\n")
		fmt.Fprintf(os.Stderr, "Runs tape programs, printing each program's name before its output.\n\n")
		fmt.Fprintf(os.Stderr, "Options:\n")
		flag.PrintDefaults()
		fmt.Fprintf(os.Stderr, "\nExamples:\n")
		fmt.Fprintf(os.Stderr, "  bfi                        # Run every registered program\n")
		fmt.Fprintf(os.Stderr, "  bfi -p 'Simple Loop'       # Run one program\n")
		fmt.Fprintf(os.Stderr, "  bfi -e '++++++[>+++++++<-]>.'  # Run inline source\n")
		fmt.Fprintf(os.Stderr, "  bfi hello.b squares.b      # Run files\n")
		fmt.Fprintf(os.Stderr, "  bfi -bundle demos.cbor     # Export the registry\n")
		fmt.Fprintf(os.Stderr, "  bfi -load demos.cbor       # Run programs from a bundle\n")
		fmt.Fprintf(os.Stderr, "\nLanguage Server:\n")
		fmt.Fprintf(os.Stderr, "  bfi -lsp                   # Serve LSP on stdio\n")
	}
	flag.Parse()

	m, err := loadManifest(*configDir)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
	if *eof != "" {
		m.Run.EOF = *eof
	}
	policy, err := m.EOFPolicy()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(2)
	}

	commonlog.Configure(m.Log.Verbosity+*verbose, m.LogFile())
	log.Debugf("configuration from %s", m.Dir)

	if *lspMode {
		if err := server.NewLSP(version).Run(); err != nil {
			fmt.Fprintf(os.Stderr, "Server error: %v\n", err)
			os.Exit(1)
		}
		os.Exit(0)
	}

	reg, err := loadRegistry(m, *bundleIn)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	if *list {
		for _, name := range reg.Names() {
			fmt.Println(name)
		}
		os.Exit(0)
	}

	if *bundleOut != "" {
		if err := writeBundle(reg, *bundleOut); err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		log.Noticef("wrote %d programs to %s", reg.Len(), *bundleOut)
		os.Exit(0)
	}

	selected, err := selectPrograms(reg, *only, *inline, flag.Args())
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	d := &driver{
		in:     console.NewInput(os.Stdin),
		out:    console.NewOutput(os.Stdout),
		styles: termenv.NewOutput(os.Stdout),
		errw:   os.Stderr,
		eof:    policy,
		dump:   *dump,
	}
	if *history || m.History.Enabled {
		st, err := store.Open(m.HistoryPath())
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error: %v\n", err)
			os.Exit(1)
		}
		defer st.Close()
		d.history = st
	}

	failed := d.runAll(selected)
	if failed > 0 {
		log.Errorf("%d of %d programs failed", failed, len(selected))
		d.closeHistory()
		os.Exit(1)
	}
}

func loadManifest(dir string) (*manifest.Manifest, error) {
	start := dir
	if start == "" {
		start = "."
	}
	m, err := manifest.FindAndLoad(start)
	if err != nil {
		return nil, err
	}
	if m == nil {
		m = manifest.Default()
	}
	return m, nil
}

func loadRegistry(m *manifest.Manifest, bundlePath string) (*programs.Registry, error) {
	if bundlePath == "" {
		return programs.FromManifest(m)
	}
	data, err := os.ReadFile(bundlePath)
	if err != nil {
		return nil, fmt.Errorf("cannot read bundle: %w", err)
	}
	b, err := programs.UnmarshalBundle(data)
	if err != nil {
		return nil, err
	}
	return programs.FromBundle(b)
}

func writeBundle(reg *programs.Registry, path string) error {
	data, err := programs.MarshalBundle(reg.Bundle())
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// selectPrograms decides what to run: inline source, then files, then a
// single named program, then the whole registry.
func selectPrograms(reg *programs.Registry, only, inline string, files []string) ([]programs.Program, error) {
	if inline != "" {
		return []programs.Program{{Name: "-e", Source: inline}}, nil
	}
	if len(files) > 0 {
		var out []programs.Program
		for _, path := range files {
			data, err := os.ReadFile(path)
			if err != nil {
				return nil, err
			}
			out = append(out, programs.Program{Name: filepath.Base(path), Source: string(data)})
		}
		return out, nil
	}
	if only != "" {
		p, ok := reg.Lookup(only)
		if !ok {
			return nil, fmt.Errorf("no program named %q", only)
		}
		return []programs.Program{p}, nil
	}
	return reg.All(), nil
}
