package styled

import (
	"sort"
	"strings"
)

// Run applies one attribute set to the half-open rune span [Start, End).
type Run struct {
	Start int
	End   int
	Attr  Attr
}

// Text is an immutable attributed string. Runs always cover the whole text,
// are sorted, and no two neighbours share an attribute set.
type Text struct {
	runes []rune
	runs  []Run
}

func New(s string, attr Attr) Text {
	r := []rune(s)
	if len(r) == 0 {
		return Text{}
	}
	return Text{runes: r, runs: []Run{{Start: 0, End: len(r), Attr: attr}}}
}

// FromRuns builds text from s and runs. Overlaps resolve in favour of the
// later run and uncovered characters get the zero Attr.
func FromRuns(s string, runs []Run) Text {
	r := []rune(s)
	return Text{runes: r, runs: sanitizeRuns(runs, len(r))}
}

func (t Text) Len() int { return len(t.runes) }

func (t Text) IsEmpty() bool { return len(t.runes) == 0 }

func (t Text) String() string { return string(t.runes) }

// Substring returns the characters of r as a string.
func (t Text) Substring(r Range) string {
	r = ClampRange(r, len(t.runes))
	return string(t.runes[r.Location:r.End()])
}

// RuneAt panics when i is out of range, like indexing a slice.
func (t Text) RuneAt(i int) rune { return t.runes[i] }

func (t Text) HasPrefixAt(i int, prefix string) bool {
	p := []rune(prefix)
	if i < 0 || i+len(p) > len(t.runes) {
		return false
	}
	for k, c := range p {
		if t.runes[i+k] != c {
			return false
		}
	}
	return true
}

func (t Text) Runs() []Run { return append([]Run(nil), t.runs...) }

// AttrAt returns the attributes of character i, or the zero Attr when i is
// outside the text.
func (t Text) AttrAt(i int) Attr {
	k := sort.Search(len(t.runs), func(k int) bool { return t.runs[k].End > i })
	if k < len(t.runs) && t.runs[k].Start <= i {
		return t.runs[k].Attr
	}
	return Attr{}
}

func (t Text) Slice(r Range) Text {
	r = ClampRange(r, len(t.runes))
	if r.Length == 0 {
		return Text{}
	}
	out := Text{runes: append([]rune(nil), t.runes[r.Location:r.End()]...)}
	for _, run := range t.runs {
		if run.End <= r.Location || run.Start >= r.End() {
			continue
		}
		out.runs = append(out.runs, Run{
			Start: max(run.Start, r.Location) - r.Location,
			End:   min(run.End, r.End()) - r.Location,
			Attr:  run.Attr,
		})
	}
	return out
}

func (t Text) Concat(others ...Text) Text {
	n := len(t.runes)
	for _, o := range others {
		n += len(o.runes)
	}
	out := Text{runes: make([]rune, 0, n), runs: make([]Run, 0, len(t.runs))}
	for _, part := range append([]Text{t}, others...) {
		base := len(out.runes)
		out.runes = append(out.runes, part.runes...)
		for _, run := range part.runs {
			out.runs = append(out.runs, Run{Start: run.Start + base, End: run.End + base, Attr: run.Attr})
		}
	}
	out.runs = mergeRuns(out.runs)
	return out
}

// Replace returns a copy of t with r replaced by with.
func (t Text) Replace(r Range, with Text) Text {
	r = ClampRange(r, len(t.runes))
	before := t.Slice(Range{Location: 0, Length: r.Location})
	after := t.Slice(Range{Location: r.End(), Length: len(t.runes) - r.End()})
	return before.Concat(with, after)
}

// SetAttr replaces every attribute in r with attr.
func (t Text) SetAttr(r Range, attr Attr) Text {
	return t.UpdateAttrs(r, func(Attr) Attr { return attr })
}

// UpdateAttrs rewrites the attributes of r group by group.
func (t Text) UpdateAttrs(r Range, fn func(Attr) Attr) Text {
	r = ClampRange(r, len(t.runes))
	if r.Length == 0 {
		return t
	}
	out := make([]Run, 0, len(t.runs)+2)
	for _, run := range t.runs {
		if run.End <= r.Location || run.Start >= r.End() {
			out = append(out, run)
			continue
		}
		if run.Start < r.Location {
			out = append(out, Run{Start: run.Start, End: r.Location, Attr: run.Attr})
		}
		out = append(out, Run{Start: max(run.Start, r.Location), End: min(run.End, r.End()), Attr: fn(run.Attr)})
		if run.End > r.End() {
			out = append(out, Run{Start: r.End(), End: run.End, Attr: run.Attr})
		}
	}
	return Text{runes: t.runes, runs: mergeRuns(out)}
}

// MapRunes substitutes characters inside r one for one, keeping attributes.
func (t Text) MapRunes(r Range, fn func(rune) rune) Text {
	r = ClampRange(r, len(t.runes))
	runes := append([]rune(nil), t.runes...)
	for i := r.Location; i < r.End(); i++ {
		runes[i] = fn(runes[i])
	}
	return Text{runes: runes, runs: t.runs}
}

func (t Text) Equal(o Text) bool {
	if len(t.runes) != len(o.runes) || len(t.runs) != len(o.runs) {
		return false
	}
	for i := range t.runes {
		if t.runes[i] != o.runes[i] {
			return false
		}
	}
	for i := range t.runs {
		if t.runs[i] != o.runs[i] {
			return false
		}
	}
	return true
}

// GoString renders text as attribute groups, which keeps test failures short.
func (t Text) GoString() string {
	var b strings.Builder
	b.WriteString("styled.Text{")
	for i, run := range t.runs {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(`"`)
		b.WriteString(string(t.runes[run.Start:run.End]))
		b.WriteString(`":`)
		b.WriteString(run.Attr.Font.String())
		if run.Attr.Bold {
			b.WriteString("+b")
		}
		if run.Attr.Italic {
			b.WriteString("+i")
		}
		b.WriteString("/")
		b.WriteString(run.Attr.Color.String())
	}
	b.WriteString("}")
	return b.String()
}

func sanitizeRuns(runs []Run, n int) []Run {
	if n == 0 {
		return nil
	}
	clipped := make([]Run, 0, len(runs))
	for _, run := range runs {
		if run.Start < 0 {
			run.Start = 0
		}
		if run.End > n {
			run.End = n
		}
		if run.End <= run.Start {
			continue
		}
		clipped = append(clipped, run)
	}

	// Paint runs in order over a per-character table so later runs win, then
	// fold the table back into runs.
	attrs := make([]Attr, n)
	for _, run := range clipped {
		for i := run.Start; i < run.End; i++ {
			attrs[i] = run.Attr
		}
	}
	out := make([]Run, 0, len(clipped)+1)
	start := 0
	for i := 1; i <= n; i++ {
		if i == n || attrs[i] != attrs[start] {
			out = append(out, Run{Start: start, End: i, Attr: attrs[start]})
			start = i
		}
	}
	return out
}

func mergeRuns(runs []Run) []Run {
	if len(runs) == 0 {
		return nil
	}
	out := make([]Run, 0, len(runs))
	for _, run := range runs {
		if run.End <= run.Start {
			continue
		}
		if last := len(out) - 1; last >= 0 && out[last].End == run.Start && out[last].Attr == run.Attr {
			out[last].End = run.End
			continue
		}
		out = append(out, run)
	}
	return out
}
