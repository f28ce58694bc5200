// Package markdown converts between Markdown source and styled text.
package markdown

import (
	"errors"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
	"github.com/yuin/goldmark/util"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

var ErrMalformed = errors.New("markdown: malformed input")

// ParseError reports Markdown that cannot be turned into styled text.
type ParseError struct {
	Offset int
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("markdown: %s at byte %d", e.Reason, e.Offset)
}

func (e *ParseError) Unwrap() error { return ErrMalformed }

// Parser turns Markdown into styled text. It holds no per-document state and
// may be reused.
type Parser struct {
	sheet *style.Sheet
	md    goldmark.Markdown
}

func NewParser(sheet *style.Sheet) *Parser {
	return &Parser{sheet: sheet, md: goldmark.New()}
}

// Parse is styledTextFromMarkdown. Every character of the result carries a
// font role and a paragraph style.
func (p *Parser) Parse(src string) (styled.Text, error) {
	if !utf8.ValidString(src) {
		return styled.Text{}, &ParseError{Offset: firstInvalidByte(src), Reason: "invalid UTF-8"}
	}
	source := []byte(src)
	root := p.md.Parser().Parse(text.NewReader(source))
	w := &walker{sheet: p.sheet, source: source}
	out := w.blocks(root)
	return fillGaps(out, p.sheet.BaseAttr()), nil
}

func Parse(sheet *style.Sheet, src string) (styled.Text, error) {
	return NewParser(sheet).Parse(src)
}

// FromMarkdown is an alias of Parse named after the direction of conversion.
func FromMarkdown(sheet *style.Sheet, src string) (styled.Text, error) {
	return Parse(sheet, src)
}

type walker struct {
	sheet  *style.Sheet
	source []byte
}

// blocks joins the block children of parent with a body line feed.
func (w *walker) blocks(parent ast.Node) styled.Text {
	sep := styled.New("\n", w.sheet.BaseAttr())
	var parts []styled.Text
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		t, ok := w.block(c)
		if !ok {
			continue
		}
		if len(parts) > 0 {
			parts = append(parts, sep)
		}
		parts = append(parts, t)
	}
	return styled.Text{}.Concat(parts...)
}

func (w *walker) block(n ast.Node) (styled.Text, bool) {
	switch n := n.(type) {
	case *ast.Paragraph, *ast.TextBlock:
		return fillGaps(w.inlines(n), w.sheet.BaseAttr()), true
	case *ast.Heading:
		t := fillGaps(w.inlines(n), w.sheet.BaseAttr())
		h := w.sheet.HeadingLevelAttr(n.Level)
		return t.UpdateAttrs(t.Full(), func(a styled.Attr) styled.Attr {
			out := h
			out.Bold, out.Italic, out.Link = a.Bold, a.Italic, a.Link
			return out
		}), true
	case *ast.List:
		return w.list(n), true
	case *ast.ListItem:
		return w.item(n), true
	case *ast.FencedCodeBlock, *ast.CodeBlock, *ast.HTMLBlock:
		return styled.New(strings.TrimRight(w.lines(n), "\n"), w.sheet.BaseAttr()), true
	case *ast.ThematicBreak:
		return styled.Text{}, false
	default:
		return w.blocks(n), true
	}
}

func (w *walker) list(n *ast.List) styled.Text {
	sepAttr := w.sheet.BaseAttr()
	sepAttr.Paragraph = w.sheet.ListParagraphStyle()
	sep := styled.New("\n", sepAttr)

	var parts []styled.Text
	for c := n.FirstChild(); c != nil; c = c.NextSibling() {
		if len(parts) > 0 {
			parts = append(parts, sep)
		}
		if li, ok := c.(*ast.ListItem); ok {
			parts = append(parts, w.item(li))
			continue
		}
		t, _ := w.block(c)
		parts = append(parts, t)
	}
	return styled.Text{}.Concat(parts...)
}

// item renders one list item as prefix plus content. Content lines after the
// first are kept inside the item as vertical tabs with the trailing style.
func (w *walker) item(n *ast.ListItem) styled.Text {
	content := w.blocks(n)
	lines := styled.LineRanges(content)
	lead := w.sheet.ListParagraphStyle()
	trail := w.sheet.ListTrailingParagraphStyle()
	for i, line := range lines {
		para := trail
		if i == 0 {
			para = lead
		}
		content = content.UpdateAttrs(line, func(a styled.Attr) styled.Attr {
			a.Paragraph = para
			return a
		})
	}
	if len(lines) > 1 {
		content = content.MapRunes(content.Full(), func(c rune) rune {
			if styled.IsLineBreak(c) {
				return '\v'
			}
			return c
		})
	}
	return w.sheet.Prefix().Concat(content)
}

func (w *walker) inlines(parent ast.Node) styled.Text {
	var parts []styled.Text
	for c := parent.FirstChild(); c != nil; c = c.NextSibling() {
		parts = append(parts, w.inline(c))
	}
	return styled.Text{}.Concat(parts...)
}

func (w *walker) inline(n ast.Node) styled.Text {
	base := w.sheet.BaseAttr()
	switch n := n.(type) {
	case *ast.Text:
		value := n.Segment.Value(w.source)
		if !n.IsRaw() {
			value = unescape(value)
		}
		t := styled.New(string(value), base)
		if n.SoftLineBreak() || n.HardLineBreak() {
			t = t.Concat(styled.New("\n", styled.Attr{}))
		}
		return t
	case *ast.String:
		return styled.New(string(n.Value), base)
	case *ast.CodeSpan:
		var b strings.Builder
		for c := n.FirstChild(); c != nil; c = c.NextSibling() {
			if t, ok := c.(*ast.Text); ok {
				b.Write(t.Segment.Value(w.source))
			}
		}
		return styled.New(b.String(), base)
	case *ast.Emphasis:
		t := w.inlines(n)
		trait := styled.TraitItalic
		if n.Level >= 2 {
			trait = styled.TraitBold
		}
		return t.UpdateAttrs(t.Full(), func(a styled.Attr) styled.Attr {
			if a.Font == styled.FontNone {
				return a
			}
			return a.WithTrait(trait)
		})
	case *ast.Link:
		return link(w.inlines(n), string(n.Destination))
	case *ast.Image:
		return link(w.inlines(n), string(n.Destination))
	case *ast.AutoLink:
		return link(styled.New(string(n.Label(w.source)), base), string(n.URL(w.source)))
	case *ast.RawHTML:
		var b strings.Builder
		for i := 0; i < n.Segments.Len(); i++ {
			seg := n.Segments.At(i)
			b.Write(seg.Value(w.source))
		}
		return styled.New(b.String(), base)
	default:
		return w.inlines(n)
	}
}

func (w *walker) lines(n ast.Node) string {
	var b strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		b.Write(seg.Value(w.source))
	}
	return b.String()
}

// link marks t as a link to dest. Without a destination the text stays plain.
func link(t styled.Text, dest string) styled.Text {
	if dest == "" {
		return t
	}
	return t.UpdateAttrs(t.Full(), func(a styled.Attr) styled.Attr {
		a.Color = styled.ColorLink
		a.Link = dest
		return a
	})
}

// fillGaps gives characters without a font the attributes of the character
// before them, or base at the very start.
func fillGaps(t styled.Text, base styled.Attr) styled.Text {
	runs := t.Runs()
	changed := false
	for i := range runs {
		if runs[i].Attr.Font != styled.FontNone {
			continue
		}
		changed = true
		if i == 0 {
			runs[i].Attr = base
		} else {
			runs[i].Attr = runs[i-1].Attr
		}
	}
	if !changed {
		return t
	}
	return styled.FromRuns(t.String(), runs)
}

func unescape(b []byte) []byte {
	b = util.ResolveEntityNames(b)
	b = util.ResolveNumericReferences(b)
	return util.UnescapePunctuations(b)
}

func firstInvalidByte(s string) int {
	for i := 0; i < len(s); {
		r, size := utf8.DecodeRuneInString(s[i:])
		if r == utf8.RuneError && size <= 1 {
			return i
		}
		i += size
	}
	return len(s)
}
