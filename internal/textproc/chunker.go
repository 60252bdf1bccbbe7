package textproc

import "strings"

// Unit is one bounded slice of input text synthesized independently. Index is
// the unit's position in the original sequence and survives concurrent
// processing downstream.
type Unit struct {
	Index   int
	Content string
}

// boundaryRunes are sentence and clause terminators for Latin and CJK text.
// Delimiters are kept at the end of the piece they close.
var boundaryRunes = map[rune]bool{
	'.': true, '!': true, '?': true, ';': true, ':': true, ',': true,
	'。': true, '！': true, '？': true, '；': true, '：': true,
	'、': true, '，': true, '…': true, '\n': true,
}

// Chunk splits text into ordered units of at most maxLength runes. Pieces are
// cut at boundary punctuation and greedily merged; if no boundary fits inside
// maxLength the whole text is sliced into fixed-width windows instead. Empty
// input yields no units.
func Chunk(text string, maxLength int) []Unit {
	if maxLength <= 0 || strings.TrimSpace(text) == "" {
		return nil
	}

	units := boundaryChunks(text, maxLength)
	if len(units) == 0 {
		units = windowChunks(text, maxLength)
	}
	return units
}

func boundaryChunks(text string, maxLength int) []Unit {
	var units []Unit
	var buf []rune

	flush := func() {
		content := strings.TrimSpace(string(buf))
		buf = buf[:0]
		if content != "" {
			units = append(units, Unit{Index: len(units), Content: content})
		}
	}

	for _, piece := range splitRetainingDelims(text) {
		runes := []rune(piece)
		if len(runes) > maxLength {
			// A single run with no usable boundary cannot be bounded by
			// this pass; the caller falls back to fixed-width slicing.
			return nil
		}
		if len(buf)+len(runes) > maxLength {
			flush()
		}
		buf = append(buf, runes...)
	}
	flush()
	return units
}

// splitRetainingDelims cuts text after each boundary rune, keeping the
// delimiter with the piece it terminates.
func splitRetainingDelims(text string) []string {
	var pieces []string
	var cur []rune
	for _, r := range text {
		cur = append(cur, r)
		if boundaryRunes[r] {
			pieces = append(pieces, string(cur))
			cur = cur[:0]
		}
	}
	if len(cur) > 0 {
		pieces = append(pieces, string(cur))
	}
	return pieces
}

func windowChunks(text string, maxLength int) []Unit {
	runes := []rune(text)
	var units []Unit
	for start := 0; start < len(runes); start += maxLength {
		end := start + maxLength
		if end > len(runes) {
			end = len(runes)
		}
		content := strings.TrimSpace(string(runes[start:end]))
		if content != "" {
			units = append(units, Unit{Index: len(units), Content: content})
		}
	}
	return units
}
