package vm

import (
	"math"
	"testing"
)

func TestTapeUnvisitedCellsReadZero(t *testing.T) {
	tape := NewTape()
	for _, i := range []int{0, 1, -1, 1 << 40, -(1 << 40)} {
		if !tape.IsZero(i) {
			t.Errorf("IsZero(%d) = false on a fresh tape", i)
		}
		if got := tape.Get(i); got.Sign() != 0 {
			t.Errorf("Get(%d) = %s, want 0", i, got.String())
		}
	}
	if tape.Len() != 0 {
		t.Errorf("Len = %d after reads, want 0", tape.Len())
	}
}

func TestTapeWriteThenRead(t *testing.T) {
	tape := NewTape()
	tape.Set(-7, 42)
	tape.Inc(-7)
	tape.Dec(3)

	if got := tape.Get(-7).Int64(); got != 43 {
		t.Errorf("Get(-7) = %d, want 43", got)
	}
	if got := tape.Get(3).Int64(); got != -1 {
		t.Errorf("Get(3) = %d, want -1", got)
	}
}

func TestTapeGetReturnsCopy(t *testing.T) {
	tape := NewTape()
	tape.Set(0, 5)
	v := tape.Get(0)
	v.SetInt64(99)
	if got := tape.Get(0).Int64(); got != 5 {
		t.Errorf("Get(0) = %d after mutating copy, want 5", got)
	}
}

func TestTapeNeverWraps(t *testing.T) {
	tape := NewTape()
	tape.Set(0, math.MaxInt64)
	tape.Inc(0)
	v := tape.Get(0)
	if v.IsInt64() {
		t.Fatalf("cell fits int64 after overflow: %s", v.String())
	}
	if v.String() != "9223372036854775808" {
		t.Errorf("cell = %s, want 9223372036854775808", v.String())
	}
	tape.Dec(0)
	if got := tape.Get(0).Int64(); got != math.MaxInt64 {
		t.Errorf("cell = %d, want MaxInt64", got)
	}

	tape.Set(1, math.MinInt64)
	tape.Dec(1)
	if got := tape.Get(1).String(); got != "-9223372036854775809" {
		t.Errorf("cell = %s, want -9223372036854775809", got)
	}
}

func TestTapeRune(t *testing.T) {
	tests := []struct {
		value int64
		want  rune
		ok    bool
	}{
		{0, 0, true},
		{'A', 'A', true},
		{0x1F600, 0x1F600, true},
		{-1, 0, false},
		{0xD800, 0, false},
		{0x110000, 0, false},
	}
	for _, tt := range tests {
		tape := NewTape()
		tape.Set(0, tt.value)
		r, ok := tape.Rune(0)
		if ok != tt.ok || (ok && r != tt.want) {
			t.Errorf("Rune(%d) = (%q, %v), want (%q, %v)", tt.value, r, ok, tt.want, tt.ok)
		}
	}

	tape := NewTape()
	tape.Set(0, math.MaxInt64)
	tape.Inc(0)
	if _, ok := tape.Rune(0); ok {
		t.Error("Rune ok for a value beyond int64")
	}
}

func TestTapeCellsSortedNonZero(t *testing.T) {
	tape := NewTape()
	tape.Set(5, 1)
	tape.Set(-3, 2)
	tape.Inc(0)
	tape.Dec(0) // back to zero, omitted
	tape.Set(1, -4)

	cells := tape.Cells()
	want := []Cell{{-3, "2"}, {1, "-4"}, {5, "1"}}
	if len(cells) != len(want) {
		t.Fatalf("Cells = %v, want %v", cells, want)
	}
	for i := range want {
		if cells[i] != want[i] {
			t.Errorf("Cells[%d] = %v, want %v", i, cells[i], want[i])
		}
	}
}
