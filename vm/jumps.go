package vm

// JumpTable memoizes bracket matches for one run. Entries are computed on
// demand and never invalidated: the program cannot change during a run.
type JumpTable struct {
	program  []rune
	forward  map[int]int // '[' position -> ']' position
	backward map[int]int // ']' position -> '[' position
	scans    int
}

// NewJumpTable creates an empty table over program.
func NewJumpTable(program []rune) *JumpTable {
	return &JumpTable{
		program:  program,
		forward:  make(map[int]int),
		backward: make(map[int]int),
	}
}

// Close returns the position of the ']' matching the '[' at open, scanning
// forward only if the pair has not been resolved yet.
func (j *JumpTable) Close(open int) (int, error) {
	if pos, ok := j.forward[open]; ok {
		return pos, nil
	}
	j.scans++
	depth := 1
	for pos := open + 1; pos < len(j.program); pos++ {
		switch j.program[pos] {
		case '[':
			depth++
		case ']':
			depth--
		}
		if depth == 0 {
			j.remember(open, pos)
			log.Debugf("resolved [ at %d -> ] at %d (forward)", open, pos)
			return pos, nil
		}
	}
	return 0, newUnmatchedOpen(open)
}

// Open returns the position of the '[' matching the ']' at end, scanning
// backward only if the pair has not been resolved yet.
func (j *JumpTable) Open(end int) (int, error) {
	if pos, ok := j.backward[end]; ok {
		return pos, nil
	}
	j.scans++
	depth := 1
	for pos := end - 1; pos >= 0; pos-- {
		switch j.program[pos] {
		case ']':
			depth++
		case '[':
			depth--
		}
		if depth == 0 {
			j.remember(pos, end)
			log.Debugf("resolved ] at %d -> [ at %d (backward)", end, pos)
			return pos, nil
		}
	}
	return 0, newUnmatchedClose(end)
}

func (j *JumpTable) remember(start, end int) {
	j.forward[start] = end
	j.backward[end] = start
}

// Scans returns how many bracket scans the table has performed.
func (j *JumpTable) Scans() int {
	return j.scans
}

// Resolved returns the number of bracket pairs known to the table.
func (j *JumpTable) Resolved() int {
	return len(j.forward)
}
