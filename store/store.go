// Package store records program runs in a SQLite database.
package store

import (
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
	"github.com/google/uuid"
	"github.com/tliron/commonlog"

	"github.com/chazu/bfi/vm"

	_ "modernc.org/sqlite"
)

var log = commonlog.GetLogger("bfi.store")

// ErrRunNotFound indicates the requested run doesn't exist
var ErrRunNotFound = errors.New("run not found")

// Run is one recorded interpretation.
type Run struct {
	ID       string
	Program  string
	Hash     [32]byte
	Started  time.Time
	Finished time.Time
	Output   string
	Error    string
	Steps    uint64
	Scans    int
	Cells    []vm.Cell
}

// Failed reports whether the run ended with an error.
func (r *Run) Failed() bool {
	return r.Error != ""
}

type cellRecord struct {
	Index int64  `cbor:"1,keyasint"`
	Value string `cbor:"2,keyasint"`
}

// Store handles SQLite storage for runs
type Store struct {
	db   *sql.DB
	path string
	mu   sync.Mutex
}

// Open opens (creating if needed) the history database at path.
func Open(path string) (*Store, error) {
	if path != ":memory:" {
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("creating database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}
	if path == ":memory:" {
		// Every connection to :memory: is a separate database.
		db.SetMaxOpenConns(1)
	}

	// Set busy timeout for concurrent access
	if _, err := db.Exec("PRAGMA busy_timeout = 5000"); err != nil {
		db.Close()
		return nil, fmt.Errorf("setting busy timeout: %w", err)
	}

	_, err = db.Exec(`CREATE TABLE IF NOT EXISTS runs (
		id          TEXT PRIMARY KEY,
		program     TEXT NOT NULL,
		hash        TEXT NOT NULL,
		started_at  INTEGER NOT NULL,
		finished_at INTEGER NOT NULL,
		output      TEXT NOT NULL,
		error       TEXT NOT NULL,
		steps       INTEGER NOT NULL,
		scans       INTEGER NOT NULL,
		tape        BLOB
	)`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("creating table: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS runs_program ON runs (program, started_at)`); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating index: %w", err)
	}

	log.Debugf("opened run history %s", path)
	return &Store{db: db, path: path}, nil
}

// Close closes the database connection
func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Record persists a run, assigning it an ID if it has none.
func (s *Store) Record(r *Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	tape, err := encodeCells(r.Cells)
	if err != nil {
		return fmt.Errorf("encoding tape: %w", err)
	}

	_, err = s.db.Exec(
		`INSERT OR REPLACE INTO runs
			(id, program, hash, started_at, finished_at, output, error, steps, scans, tape)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID, r.Program, hex.EncodeToString(r.Hash[:]),
		r.Started.UnixNano(), r.Finished.UnixNano(),
		r.Output, r.Error, int64(r.Steps), r.Scans, tape,
	)
	if err != nil {
		return fmt.Errorf("saving run: %w", err)
	}
	log.Debugf("recorded run %s of %q", r.ID, r.Program)
	return nil
}

const selectRun = `SELECT id, program, hash, started_at, finished_at, output, error, steps, scans, tape FROM runs`

// Get retrieves a run by ID.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(selectRun+" WHERE id = ?", id)
	r, err := scanRun(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		return nil, fmt.Errorf("querying run: %w", err)
	}
	return r, nil
}

// ListByProgram returns the most recent runs of a program, newest first.
// A limit of zero or less returns every run.
func (s *Store) ListByProgram(name string, limit int) ([]*Run, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.Query(selectRun+" WHERE program = ? ORDER BY started_at DESC LIMIT ?", name, limit)
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run: %w", err)
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (*Run, error) {
	var (
		r                 Run
		hash              string
		started, finished int64
		steps             int64
		tape              []byte
	)
	err := row.Scan(&r.ID, &r.Program, &hash, &started, &finished,
		&r.Output, &r.Error, &steps, &r.Scans, &tape)
	if err != nil {
		return nil, err
	}
	raw, err := hex.DecodeString(hash)
	if err != nil || len(raw) != len(r.Hash) {
		return nil, fmt.Errorf("run %s: malformed hash %q", r.ID, hash)
	}
	copy(r.Hash[:], raw)
	r.Started = time.Unix(0, started)
	r.Finished = time.Unix(0, finished)
	r.Steps = uint64(steps)
	if r.Cells, err = decodeCells(tape); err != nil {
		return nil, fmt.Errorf("run %s: decoding tape: %w", r.ID, err)
	}
	return &r, nil
}

func encodeCells(cells []vm.Cell) ([]byte, error) {
	recs := make([]cellRecord, len(cells))
	for i, c := range cells {
		recs[i] = cellRecord{Index: int64(c.Index), Value: c.Value}
	}
	return cbor.Marshal(recs)
}

func decodeCells(data []byte) ([]vm.Cell, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var recs []cellRecord
	if err := cbor.Unmarshal(data, &recs); err != nil {
		return nil, err
	}
	if len(recs) == 0 {
		return nil, nil
	}
	cells := make([]vm.Cell, len(recs))
	for i, rec := range recs {
		cells[i] = vm.Cell{Index: int(rec.Index), Value: rec.Value}
	}
	return cells, nil
}
