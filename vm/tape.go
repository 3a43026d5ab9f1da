package vm

import (
	"sort"

	"github.com/cockroachdb/apd/v3"
)

var one = apd.NewBigInt(1)

// Tape is the engine's memory: a sparse mapping from cell index to an
// arbitrary-precision integer. Indices are unbounded in both directions and
// every cell that was never written reads as zero.
type Tape struct {
	cells map[int]*apd.BigInt
}

// Cell is one non-zero tape cell, as reported by Cells.
type Cell struct {
	Index int
	Value string
}

// NewTape creates an empty tape.
func NewTape() *Tape {
	return &Tape{cells: make(map[int]*apd.BigInt)}
}

// cell returns the storage for index i, creating it on first write.
func (t *Tape) cell(i int) *apd.BigInt {
	c, ok := t.cells[i]
	if !ok {
		c = new(apd.BigInt)
		t.cells[i] = c
	}
	return c
}

// Get returns a copy of the value at index i. Unvisited cells return zero.
func (t *Tape) Get(i int) *apd.BigInt {
	v := new(apd.BigInt)
	if c, ok := t.cells[i]; ok {
		v.Set(c)
	}
	return v
}

// IsZero reports whether the cell at index i holds zero.
func (t *Tape) IsZero(i int) bool {
	c, ok := t.cells[i]
	return !ok || c.Sign() == 0
}

// Set stores v at index i.
func (t *Tape) Set(i int, v int64) {
	t.cell(i).SetInt64(v)
}

// Inc adds one to the cell at index i. It never wraps.
func (t *Tape) Inc(i int) {
	c := t.cell(i)
	c.Add(c, one)
}

// Dec subtracts one from the cell at index i. It never clamps at zero.
func (t *Tape) Dec(i int) {
	c := t.cell(i)
	c.Sub(c, one)
}

// Rune converts the cell at index i to a code point. Values that are not
// valid Unicode scalar values yield ok == false.
func (t *Tape) Rune(i int) (r rune, ok bool) {
	c, found := t.cells[i]
	if !found {
		return 0, true
	}
	if !c.IsInt64() {
		return 0, false
	}
	n := c.Int64()
	if n < 0 || n > 0x10FFFF || (n >= 0xD800 && n <= 0xDFFF) {
		return 0, false
	}
	return rune(n), true
}

// Cells returns every non-zero cell ordered by index.
func (t *Tape) Cells() []Cell {
	out := make([]Cell, 0, len(t.cells))
	for i, c := range t.cells {
		if c.Sign() == 0 {
			continue
		}
		out = append(out, Cell{Index: i, Value: c.String()})
	}
	sort.Slice(out, func(a, b int) bool { return out[a].Index < out[b].Index })
	return out
}

// Len returns the number of cells that have ever been written.
func (t *Tape) Len() int {
	return len(t.cells)
}
