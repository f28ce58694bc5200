package style

import (
	"strings"

	"mdedit/pkg/styled"
)

type Kind int

const (
	KindText Kind = iota
	KindHeading
	KindList
	KindParagraphBreak
)

func (k Kind) String() string {
	switch k {
	case KindHeading:
		return "heading"
	case KindList:
		return "list"
	case KindParagraphBreak:
		return "paragraph-break"
	default:
		return "text"
	}
}

// Classify names the role of an attribute group holding s. The first match
// wins: heading, list, paragraph break, text.
func (s *Sheet) Classify(attr styled.Attr, sub string) Kind {
	switch {
	case s.isHeadingAttr(attr):
		return KindHeading
	case s.isListAttr(attr):
		return KindList
	case IsParagraphBreak(sub):
		return KindParagraphBreak
	}
	return KindText
}

// ClassifyInList is Classify for groups already inside a list item, where
// the list paragraph style says nothing new.
func (s *Sheet) ClassifyInList(attr styled.Attr, sub string) Kind {
	switch {
	case s.isHeadingAttr(attr):
		return KindHeading
	case IsParagraphBreak(sub):
		return KindParagraphBreak
	}
	return KindText
}

func (s *Sheet) isHeadingAttr(attr styled.Attr) bool {
	return attr.Font != styled.FontNone &&
		s.Resolve(attr) == s.cfg.Fonts.Heading1 &&
		s.Color(attr.Color) == s.cfg.Colors.Heading1 &&
		attr.Paragraph == s.cfg.Paragraphs.Heading1
}

func (s *Sheet) isListAttr(attr styled.Attr) bool {
	return attr.Paragraph.HeadIndent == s.list.Indentation()
}

// IsHeading reports whether every group of t is a heading.
func (s *Sheet) IsHeading(t styled.Text) bool { return s.all(t, KindHeading) }

// IsList reports whether every group of t is a list group.
func (s *Sheet) IsList(t styled.Text) bool { return s.all(t, KindList) }

func (s *Sheet) all(t styled.Text, want Kind) bool {
	groups := t.Groups(t.Full())
	if len(groups) == 0 {
		return false
	}
	for _, g := range groups {
		if s.Classify(g.Attr, t.Substring(g.Range)) != want {
			return false
		}
	}
	return true
}

// IsParagraphBreak reports whether s is non-empty and made only of line
// break characters, vertical tab and form feed included.
func IsParagraphBreak(s string) bool {
	return s != "" && strings.TrimFunc(s, isNewline) == ""
}

func isNewline(c rune) bool {
	return c == '\v' || c == '\f' || styled.IsLineBreak(c)
}
