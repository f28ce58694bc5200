package styled

import (
	"fmt"
	"sort"
)

// Range is a (location, length) span counted in runes.
type Range struct {
	Location int
	Length   int
}

func (r Range) End() int { return r.Location + r.Length }

func (r Range) String() string { return fmt.Sprintf("{%d, %d}", r.Location, r.Length) }

// Intersects reports whether r and o share at least one character.
func (r Range) Intersects(o Range) bool {
	return r.Location < o.End() && o.Location < r.End()
}

// Within reports whether r lies inside a text of length n.
func (r Range) Within(n int) bool {
	return r.Location >= 0 && r.Length >= 0 && r.End() <= n
}

// ClampRange keeps r inside a text of length n. The location is pinned to the
// text and the length is cut to what remains after it.
func ClampRange(r Range, n int) Range {
	if r.Location < 0 {
		r.Location = 0
	}
	if r.Location > n {
		r.Location = n
	}
	if r.Length < 0 {
		r.Length = 0
	}
	if r.End() > n {
		r.Length = n - r.Location
	}
	return r
}

// AdjustRangeAfterReplacement maps r through the replacement of edited with
// replacementLen characters. Positions at or after the end of edited shift by
// the length delta, positions before it stay, and positions inside it collapse
// to the edited span.
func AdjustRangeAfterReplacement(r, edited Range, replacementLen int) Range {
	delta := replacementLen - edited.Length
	move := func(p int, end bool) int {
		switch {
		case p >= edited.End():
			return p + delta
		case p < edited.Location:
			return p
		case end:
			return edited.Location + replacementLen
		default:
			return edited.Location
		}
	}
	start := move(r.Location, false)
	end := move(r.End(), true)
	if end < start {
		end = start
	}
	return Range{Location: start, Length: end - start}
}

// ApplyInDescendingOrder calls fn for every range from the highest location to
// the lowest. Ranges computed against one text stay valid while fn replaces
// them one by one, because a replacement only shifts what follows it.
func ApplyInDescendingOrder(ranges []Range, fn func(Range)) {
	ordered := append([]Range(nil), ranges...)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Location > ordered[j].Location
	})
	for _, r := range ordered {
		fn(r)
	}
}
