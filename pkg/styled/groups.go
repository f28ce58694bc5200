package styled

// Group is one maximal attribute-uniform span.
type Group struct {
	Attr  Attr
	Range Range
}

// ForEachAttributeGroup walks r in ascending order, calling fn once per
// attribute group clipped to r. The spans cover r exactly.
func ForEachAttributeGroup(t Text, r Range, fn func(Attr, Range)) {
	r = ClampRange(r, len(t.runes))
	if r.Length == 0 {
		return
	}
	for _, run := range t.runs {
		if run.End <= r.Location {
			continue
		}
		if run.Start >= r.End() {
			break
		}
		start := max(run.Start, r.Location)
		end := min(run.End, r.End())
		fn(run.Attr, Range{Location: start, Length: end - start})
	}
}

func (t Text) Groups(r Range) []Group {
	var out []Group
	ForEachAttributeGroup(t, r, func(a Attr, sub Range) {
		out = append(out, Group{Attr: a, Range: sub})
	})
	return out
}

// Full is the range covering all of t.
func (t Text) Full() Range { return Range{Length: len(t.runes)} }
