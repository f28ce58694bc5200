package markdown

import (
	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

// Node is one element of the serialization tree. The set of implementations
// is closed: Heading, TextRun, ParagraphBreak, List, ListItem and ListPrefix.
type Node interface {
	node()
}

// Document is the root of a tree built from styled text.
type Document struct {
	Children []Node
}

type Heading struct {
	Text string
}

type TextRun struct {
	Text   string
	Bold   bool
	Italic bool
	Link   string
}

type ParagraphBreak struct{}

type List struct {
	Items []*ListItem
}

type ListItem struct {
	Children []Node
}

// ListPrefix stands for the bullet token extracted from a list line.
type ListPrefix struct{}

func (*Heading) node()        {}
func (*TextRun) node()        {}
func (*ParagraphBreak) node() {}
func (*List) node()           {}
func (*ListItem) node()       {}
func (*ListPrefix) node()     {}

// Build re-segments t into a document tree. Consecutive list groups collect
// into one List that is split into items when the next non-list group shows
// up.
func Build(sheet *style.Sheet, t styled.Text) *Document {
	doc := &Document{}
	var pending styled.Text
	flush := func() {
		if pending.IsEmpty() {
			return
		}
		doc.Children = append(doc.Children, buildList(sheet, pending))
		pending = styled.Text{}
	}

	styled.ForEachAttributeGroup(t, t.Full(), func(a styled.Attr, r styled.Range) {
		sub := t.Substring(r)
		kind := sheet.Classify(a, sub)
		if kind == style.KindList {
			pending = pending.Concat(t.Slice(r))
			return
		}
		flush()
		doc.Children = appendLeaf(doc.Children, sheet, kind, a, sub)
	})
	flush()
	return doc
}

func buildList(sheet *style.Sheet, t styled.Text) *List {
	list := &List{}
	for _, line := range styled.LineRanges(t) {
		if line.Length == 0 {
			continue
		}
		lineText := t.Slice(line)
		item := &ListItem{}
		if at := prefixIndex(lineText); at >= 0 {
			item.Children = append(item.Children, &ListPrefix{})
			lineText = lineText.Replace(styled.Range{Location: at, Length: style.ListPrefixLen}, styled.Text{})
		}
		styled.ForEachAttributeGroup(lineText, lineText.Full(), func(a styled.Attr, r styled.Range) {
			sub := lineText.Substring(r)
			item.Children = appendLeaf(item.Children, sheet, sheet.ClassifyInList(a, sub), a, sub)
		})
		list.Items = append(list.Items, item)
	}
	return list
}

func prefixIndex(t styled.Text) int {
	for i := 0; i+style.ListPrefixLen <= t.Len(); i++ {
		if t.HasPrefixAt(i, style.ListPrefix) {
			return i
		}
	}
	return -1
}

func appendLeaf(nodes []Node, sheet *style.Sheet, kind style.Kind, a styled.Attr, sub string) []Node {
	switch kind {
	case style.KindHeading:
		return append(nodes, &Heading{Text: sub})
	case style.KindParagraphBreak:
		for range []rune(sub) {
			nodes = append(nodes, &ParagraphBreak{})
		}
		return nodes
	}
	return appendTextRuns(nodes, sheet, a, sub)
}

// appendTextRuns splits a text group at line breaks. Every break becomes a
// ParagraphBreak and the pieces between become TextRuns.
func appendTextRuns(nodes []Node, sheet *style.Sheet, a styled.Attr, sub string) []Node {
	bold := sheet.HasTrait(a, styled.TraitBold)
	italic := sheet.HasTrait(a, styled.TraitItalic)
	var run []rune
	emit := func() {
		if len(run) == 0 {
			return
		}
		nodes = append(nodes, &TextRun{Text: string(run), Bold: bold, Italic: italic, Link: a.Link})
		run = run[:0]
	}
	for _, c := range sub {
		if style.IsParagraphBreak(string(c)) {
			emit()
			nodes = append(nodes, &ParagraphBreak{})
			continue
		}
		run = append(run, c)
	}
	emit()
	return nodes
}
