package server

import (
	"unicode/utf16"

	protocol "github.com/tliron/glsp/protocol_3_16"
)

// positionOf converts a rune index into an LSP position. LSP columns count
// UTF-16 code units.
func positionOf(text string, idx int) protocol.Position {
	var line, col protocol.UInteger
	i := 0
	for _, r := range text {
		if i == idx {
			break
		}
		if r == '\n' {
			line++
			col = 0
		} else {
			col += utf16Len(r)
		}
		i++
	}
	return protocol.Position{Line: line, Character: col}
}

// indexAt converts an LSP position into a rune index. It reports false when
// the position lies past the end of its line or of the document.
func indexAt(text string, pos protocol.Position) (int, bool) {
	var line, col protocol.UInteger
	i := 0
	for _, r := range text {
		if line == pos.Line && col == pos.Character {
			return i, r != '\n'
		}
		if r == '\n' {
			if line == pos.Line {
				return 0, false
			}
			line++
			col = 0
		} else {
			col += utf16Len(r)
		}
		i++
	}
	return 0, false
}

// bracketAt finds a bracket under the cursor, or immediately before it.
func bracketAt(text string, pos protocol.Position) (int, bool) {
	runes := []rune(text)
	if idx, ok := indexAt(text, pos); ok && isBracket(runes[idx]) {
		return idx, true
	}
	if pos.Character == 0 {
		return 0, false
	}
	prev := protocol.Position{Line: pos.Line, Character: pos.Character - 1}
	if idx, ok := indexAt(text, prev); ok && isBracket(runes[idx]) {
		return idx, true
	}
	return 0, false
}

func isBracket(r rune) bool {
	return r == '[' || r == ']'
}

func utf16Len(r rune) protocol.UInteger {
	if n := utf16.RuneLen(r); n > 0 {
		return protocol.UInteger(n)
	}
	return 1
}
