// Package editor keeps styled text, the selection and the toggle state of one
// open document consistent across host edits.
package editor

import (
	"errors"
	"fmt"
	"log/slog"

	"mdedit/internal/linkdetect"
	"mdedit/internal/log"
	"mdedit/internal/markdown"
	"mdedit/internal/platform"
	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

var (
	ErrOutOfRange = errors.New("editor: range out of bounds")
	ErrClosed     = errors.New("editor: host closed")
)

// RangeError reports an operation argument outside the current text.
type RangeError struct {
	Op    string
	Range styled.Range
	Len   int
}

func (e *RangeError) Error() string {
	return fmt.Sprintf("editor: %s range %v outside text of length %d", e.Op, e.Range, e.Len)
}

func (e *RangeError) Unwrap() error { return ErrOutOfRange }

// Toggles mirrors the uniform styling of the current selection.
type Toggles struct {
	Bold    bool
	Italic  bool
	Heading bool
	List    bool
}

type Option func(*State)

func WithHost(h platform.Host) Option {
	return func(s *State) {
		if h != nil {
			s.host = h
		}
	}
}

func WithDetector(d linkdetect.Detector) Option {
	return func(s *State) {
		if d != nil {
			s.detect = d
		}
	}
}

func WithLogger(l *slog.Logger) Option {
	return func(s *State) { s.log = log.For(l, log.CatEdit) }
}

// State is the editing state machine of one document. It is not safe for
// concurrent use; hosts feed it one event at a time.
type State struct {
	sheet     *style.Sheet
	parser    *markdown.Parser
	text      styled.Text
	selection styled.Range
	toggles   Toggles
	host      platform.Host
	detect    linkdetect.Detector
	log       *slog.Logger
}

func New(sheet *style.Sheet, opts ...Option) *State {
	s := &State{
		sheet:  sheet,
		parser: markdown.NewParser(sheet),
		host:   platform.NopHost{},
		detect: linkdetect.Linkify,
		log:    log.For(nil, log.CatEdit),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

func (s *State) Sheet() *style.Sheet     { return s.sheet }
func (s *State) Text() styled.Text       { return s.text }
func (s *State) Selection() styled.Range { return s.selection }
func (s *State) Toggles() Toggles        { return s.toggles }
func (s *State) SelectedText() string    { return s.text.Substring(s.selection) }

// Markdown serializes the current document.
func (s *State) Markdown() string { return markdown.Generate(s.sheet, s.text) }

// LoadMarkdown replaces the document with parsed src. Malformed input leaves
// an empty document and returns the parse error.
func (s *State) LoadMarkdown(src string) error {
	t, err := s.parser.Parse(src)
	if err != nil {
		s.log.Warn("markdown rejected, falling back to empty document", "err", err)
		t = styled.Text{}
	}
	s.SetText(t)
	return err
}

// SetText swaps in a new document and keeps the selection, clamped to the new
// length.
func (s *State) SetText(t styled.Text) {
	s.update(t, s.selection)
	s.refresh()
}

func (s *State) ToggleBold()   { s.toggleTrait(platform.ToggleBold, styled.TraitBold) }
func (s *State) ToggleItalic() { s.toggleTrait(platform.ToggleItalic, styled.TraitItalic) }

func (s *State) toggleTrait(kind platform.ToggleKind, trait styled.Trait) {
	if s.toggles.Heading {
		return
	}
	s.setToggle(kind, !s.toggle(kind))
	if s.selection.Length == 0 {
		return
	}
	s.update(s.sheet.ToggleTrait(s.text, s.selection, trait), s.selection)
	s.refresh()
}

// withoutBreak drops the line-break characters that end line. They carry
// the attributes of the block separator, not of the line.
func withoutBreak(line styled.Text) styled.Text {
	n := line.Len()
	for n > 0 && styled.IsLineBreak(line.RuneAt(n-1)) {
		n--
	}
	return line.Slice(styled.Range{Length: n})
}

// ToggleList adds or removes list styling on every line of the selection.
func (s *State) ToggleList() {
	s.setToggle(platform.ToggleList, !s.toggles.List)
	s.log.Debug("toggle list", "active", s.toggles.List, "selection", s.selection)
	t, sel := s.applyList(s.toggles.List, s.selection, s.text, true)
	s.update(t, sel)
	s.refresh()
}

// ToggleHeading turns the lines of the selection into headings or back into
// body text.
func (s *State) ToggleHeading() {
	s.setToggle(platform.ToggleHeading, !s.toggles.Heading)
	s.log.Debug("toggle heading", "active", s.toggles.Heading, "selection", s.selection)
	t, sel := s.applyHeading(s.toggles.Heading, s.selection, s.text, true)
	s.update(t, sel)
	s.refresh()
}

// applyHeading styles every line of r as heading or body. With clean set it
// first strips list prefixes, which may shift r.
func (s *State) applyHeading(selected bool, r styled.Range, t styled.Text, clean bool) (styled.Text, styled.Range) {
	if clean {
		t, r = s.applyList(false, r, t, false)
	}
	attr := s.sheet.BaseAttr()
	if selected {
		attr = s.sheet.HeadingAttr()
	}
	for _, line := range styled.LinesOfRange(t, r) {
		t = t.SetAttr(line, attr)
	}
	return t, r
}

// applyList adds or removes the list prefix on every line of r, highest line
// first, and returns r mapped through the edits. With clean set, heading
// lines are turned back into body text first.
func (s *State) applyList(selected bool, r styled.Range, t styled.Text, clean bool) (styled.Text, styled.Range) {
	para := s.sheet.BodyParagraphStyle()
	if selected {
		para = s.sheet.ListParagraphStyle()
	}
	lines := styled.LinesOfRange(t, r)
	if len(lines) == 0 {
		lines = []styled.Range{r}
	}

	updated := r
	styled.ApplyInDescendingOrder(lines, func(line styled.Range) {
		lineText := t.Slice(line)
		if clean && s.sheet.IsHeading(withoutBreak(lineText)) {
			lineText, _ = s.applyHeading(false, lineText.Full(), lineText, false)
		}
		hasPrefix := lineText.HasPrefixAt(0, style.ListPrefix)
		switch {
		case selected && !hasPrefix:
			lineText = s.sheet.Prefix().Concat(lineText)
			updated = styled.AdjustRangeAfterReplacement(updated, styled.Range{Location: line.Location}, style.ListPrefixLen)
		case !selected && hasPrefix:
			prefix := styled.Range{Length: style.ListPrefixLen}
			updated = styled.AdjustRangeAfterReplacement(updated, styled.Range{Location: line.Location, Length: style.ListPrefixLen}, 0)
			if lineText.Len() <= style.ListPrefixLen {
				// A bare prefix leaves an empty line behind, with the caret
				// at its start.
				lineText = lineText.Replace(prefix, styled.New("\n", lineText.AttrAt(0)))
			} else {
				lineText = lineText.Replace(prefix, styled.Text{})
			}
		}
		lineText = lineText.UpdateAttrs(lineText.Full(), func(a styled.Attr) styled.Attr {
			a.Paragraph = para
			return a
		})
		t = t.Replace(line, lineText)
	})
	return t, styled.ClampRange(updated, t.Len())
}

// ReplaceText applies a host edit intent. The engine always performs the
// edit itself, so handled is true whenever the event was consumed.
func (s *State) ReplaceText(r styled.Range, str string) (handled bool, err error) {
	if !r.Within(s.text.Len()) {
		return true, &RangeError{Op: "replace", Range: r, Len: s.text.Len()}
	}

	insert := styled.New(str, s.typingAttr())
	if s.toggles.List {
		switch {
		case str == "\n":
			if at := r.Location - style.ListPrefixLen; at >= 0 && s.text.HasPrefixAt(at, style.ListPrefix) {
				s.log.Debug("enter on empty list item, leaving list", "at", r.Location)
				s.ToggleList()
				return true, nil
			}
			insert = insert.Concat(s.sheet.Prefix())
		case str == "" && s.selection.Length == 0 && s.isBeginningOfListLine(r):
			s.log.Debug("delete at list prefix, leaving list", "at", r.Location)
			s.ToggleList()
			return true, nil
		}
		list := s.sheet.ListParagraphStyle()
		insert = insert.UpdateAttrs(insert.Full(), func(a styled.Attr) styled.Attr {
			a.Paragraph = list
			return a
		})
	}

	t := s.text.Replace(r, insert)
	caret := styled.Range{Location: r.Location + insert.Len()}
	s.update(s.applyLinks(t), caret)
	s.refresh()
	return true, nil
}

// Paste inserts clipboard text over the selection and tells the host.
func (s *State) Paste(str string) error {
	if _, err := s.ReplaceText(s.selection, str); err != nil {
		return err
	}
	s.host.Pasted(str)
	return nil
}

func (s *State) typingAttr() styled.Attr {
	attr := s.sheet.BaseAttr()
	if s.toggles.Bold {
		attr = attr.WithTrait(styled.TraitBold)
	}
	if s.toggles.Italic {
		attr = attr.WithTrait(styled.TraitItalic)
	}
	if s.toggles.Heading {
		attr = s.sheet.HeadingAttr()
	}
	return attr
}

// isBeginningOfListLine reports whether r ends exactly after the prefix of a
// list line.
func (s *State) isBeginningOfListLine(r styled.Range) bool {
	if r.Length >= style.ListPrefixLen {
		return false
	}
	for _, line := range styled.LineRanges(s.text) {
		if line.Location+style.ListPrefixLen == r.End() && s.text.HasPrefixAt(line.Location, style.ListPrefix) {
			return true
		}
	}
	return false
}

// applyLinks recolors detected URLs. Link coloring left over from earlier
// detection goes back to body first; parsed links and headings are kept.
func (s *State) applyLinks(t styled.Text) styled.Text {
	t = t.UpdateAttrs(t.Full(), func(a styled.Attr) styled.Attr {
		if a.Color == styled.ColorLink && a.Link == "" {
			a.Color = styled.ColorBody
		}
		return a
	})
	for _, r := range s.detect(t.String()) {
		if !r.Within(t.Len()) {
			continue
		}
		t = t.UpdateAttrs(r, func(a styled.Attr) styled.Attr {
			if s.sheet.Classify(a, "") == style.KindHeading {
				return a
			}
			a.Color = styled.ColorLink
			return a
		})
	}
	return t
}

// UpdateSelection records a host selection change, recomputes the toggles,
// and returns the selection moved out of any list prefix.
func (s *State) UpdateSelection(r styled.Range) styled.Range {
	r = styled.ClampRange(r, s.text.Len())
	window := s.lookaround(r)
	if window.Length == 0 {
		// Nothing to look at, so the toggles keep describing what the next
		// typed character gets.
		s.selection = r
		return r
	}

	heading := s.sheet.IsHeading(s.text.Slice(window))
	s.setToggle(platform.ToggleHeading, heading)
	s.setToggle(platform.ToggleList, s.sheet.IsList(s.text.Slice(window)))
	s.setToggle(platform.ToggleBold, s.sheet.AllHaveTrait(s.text, window, styled.TraitBold) && !heading)
	s.setToggle(platform.ToggleItalic, s.sheet.AllHaveTrait(s.text, window, styled.TraitItalic))

	s.selection = s.outsidePrefix(r)
	return s.selection
}

// lookaround widens a caret to one character: the next one at a line start,
// the previous one elsewhere.
func (s *State) lookaround(r styled.Range) styled.Range {
	n := s.text.Len()
	switch {
	case styled.IsBeginningOfLine(s.text, r) && r.Location < n:
		return styled.Range{Location: r.Location, Length: 1}
	case r.Length == 0 && r.Location > 0:
		return styled.Range{Location: r.Location - 1, Length: 1}
	}
	return r
}

func (s *State) outsidePrefix(r styled.Range) styled.Range {
	for _, line := range styled.LinesOfRange(s.text, r) {
		if !s.text.HasPrefixAt(line.Location, style.ListPrefix) {
			continue
		}
		if !s.sheet.IsList(withoutBreak(s.text.Slice(line))) {
			continue
		}
		inner := line.Location + style.ListPrefixLen
		switch {
		case r.Location >= line.Location && r.Location < inner:
			shift := inner - r.Location
			r.Location = inner
			r.Length = max(0, r.Length-shift)
		case r.End() > line.Location && r.End() < inner:
			r.Length = line.Location - r.Location
		}
	}
	return r
}

// Handle routes one host event.
func (s *State) Handle(ev platform.Event) error {
	switch ev.Type {
	case platform.EventSelectionChanged:
		s.UpdateSelection(ev.Range)
	case platform.EventReplaceRequested:
		_, err := s.ReplaceText(ev.Range, ev.Text)
		return err
	case platform.EventPaste:
		return s.Paste(ev.Text)
	case platform.EventToggle:
		switch ev.Toggle {
		case platform.ToggleBold:
			s.ToggleBold()
		case platform.ToggleItalic:
			s.ToggleItalic()
		case platform.ToggleHeading:
			s.ToggleHeading()
		case platform.ToggleList:
			s.ToggleList()
		}
	case platform.EventClose:
		return ErrClosed
	default:
		return fmt.Errorf("editor: unknown event %v", ev.Type)
	}
	return nil
}

func (s *State) update(t styled.Text, sel styled.Range) {
	changed := !t.Equal(s.text)
	s.text = t
	s.selection = styled.ClampRange(sel, t.Len())
	if changed {
		s.host.StyledTextChanged(t)
	}
}

func (s *State) refresh() { s.UpdateSelection(s.selection) }

func (s *State) toggle(kind platform.ToggleKind) bool {
	switch kind {
	case platform.ToggleBold:
		return s.toggles.Bold
	case platform.ToggleItalic:
		return s.toggles.Italic
	case platform.ToggleHeading:
		return s.toggles.Heading
	case platform.ToggleList:
		return s.toggles.List
	}
	return false
}

func (s *State) setToggle(kind platform.ToggleKind, v bool) {
	if s.toggle(kind) == v {
		return
	}
	switch kind {
	case platform.ToggleBold:
		s.toggles.Bold = v
	case platform.ToggleItalic:
		s.toggles.Italic = v
	case platform.ToggleHeading:
		s.toggles.Heading = v
	case platform.ToggleList:
		s.toggles.List = v
	}
	s.host.ToggleStateChanged(kind, v)
}
