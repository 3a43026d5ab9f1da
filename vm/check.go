package vm

import "sort"

// Check pairs every bracket in program eagerly and returns one error per
// bracket that has no partner, in source order. Interpret does not call it;
// a run only fails on the bracket it actually reaches.
func Check(program string) []*InterpreterError {
	var (
		errs  []*InterpreterError
		stack []int
	)
	for pos, r := range []rune(program) {
		switch r {
		case '[':
			stack = append(stack, pos)
		case ']':
			if len(stack) == 0 {
				errs = append(errs, newUnmatchedClose(pos))
				continue
			}
			stack = stack[:len(stack)-1]
		}
	}
	for _, pos := range stack {
		errs = append(errs, newUnmatchedOpen(pos))
	}
	sort.SliceStable(errs, func(i, j int) bool { return errs[i].IP < errs[j].IP })
	return errs
}

// Pairs returns every matched bracket pair, keyed in both directions, along
// with the nesting depth of each bracket (outermost is 1). Unmatched brackets
// are left out.
func Pairs(program string) (partner map[int]int, depth map[int]int) {
	partner = make(map[int]int)
	depth = make(map[int]int)
	var stack []int
	for pos, r := range []rune(program) {
		switch r {
		case '[':
			stack = append(stack, pos)
		case ']':
			if len(stack) == 0 {
				continue
			}
			open := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			partner[open] = pos
			partner[pos] = open
			depth[open] = len(stack) + 1
			depth[pos] = len(stack) + 1
		}
	}
	return partner, depth
}
