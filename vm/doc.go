// Package vm implements the tape machine.
//
// A program is a sequence of characters; eight of them are instructions and
// every other character is a no-op:
//
//	>  move the data pointer right     <  move the data pointer left
//	+  increment the current cell      -  decrement the current cell
//	.  write the current cell          ,  read one character into the cell
//	[  skip past the matching ] if the current cell is zero
//	]  return to the matching [ if the current cell is not zero
//
// The tape is sparse and unbounded in both directions, and cells hold
// arbitrary-precision integers. Bracket pairs are resolved lazily the first
// time a jump needs them and memoized for the rest of the run.
package vm
