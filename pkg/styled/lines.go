package styled

import "sort"

// IsLineBreak reports whether c ends a line.
func IsLineBreak(c rune) bool {
	switch c {
	case '\n', '\r', '\u0085', '\u2028', '\u2029':
		return true
	}
	return false
}

// LineRanges splits t into lines, each including its terminator. A text that
// ends with a terminator gets a final zero-length line at its end so a caret
// parked there still has a line. Empty text has no lines.
func LineRanges(t Text) []Range {
	n := len(t.runes)
	var out []Range
	start := 0
	for i := 0; i < n; i++ {
		c := t.runes[i]
		if !IsLineBreak(c) {
			continue
		}
		end := i + 1
		if c == '\r' && end < n && t.runes[end] == '\n' {
			end++
			i++
		}
		out = append(out, Range{Location: start, Length: end - start})
		start = end
	}
	if start < n {
		out = append(out, Range{Location: start, Length: n - start})
	} else if n > 0 {
		out = append(out, Range{Location: n})
	}
	return out
}

// LinesOfRange returns the lines r touches, sorted by location. A zero-length
// r at a line start, or at the end of the text, selects that line.
func LinesOfRange(t Text, r Range) []Range {
	lines := LineRanges(t)
	var out []Range
	for _, line := range lines {
		if r.Location < line.End() && r.End() > line.Location {
			out = append(out, line)
		}
	}
	if r.Length == 0 {
		found := false
		for _, line := range lines {
			if line.Location == r.Location {
				out = appendUnique(out, line)
				found = true
				break
			}
		}
		if !found && r.Location == len(t.runes) && len(lines) > 0 {
			out = appendUnique(out, lines[len(lines)-1])
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Location < out[j].Location })
	return out
}

// IsBeginningOfLine reports whether r is a caret resting at a line start.
func IsBeginningOfLine(t Text, r Range) bool {
	if r.Length != 0 {
		return false
	}
	for _, line := range LineRanges(t) {
		if line.Location == r.Location {
			return true
		}
	}
	return false
}

func appendUnique(ranges []Range, r Range) []Range {
	for _, have := range ranges {
		if have == r {
			return ranges
		}
	}
	return append(ranges, r)
}
