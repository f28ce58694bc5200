package render

import (
	"image/color"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/termenv"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

// Terminal prints styled text as a stream, without layout. Headings come out
// bold in their color, links underlined and the selection reversed.
type Terminal struct {
	sheet *style.Sheet
	r     *lipgloss.Renderer
}

func NewTerminal(w io.Writer, sheet *style.Sheet, profile termenv.Profile) *Terminal {
	r := lipgloss.NewRenderer(w)
	r.SetColorProfile(profile)
	return &Terminal{sheet: sheet, r: r}
}

func (t *Terminal) style(cs CellStyle) lipgloss.Style {
	s := t.r.NewStyle().
		TabWidth(lipgloss.NoTabConversion).
		Bold(cs.Bold).
		Italic(cs.Italic).
		Underline(cs.Underline).
		Reverse(cs.Reverse)
	if cs.FG != (color.RGBA{}) {
		s = s.Foreground(lipgloss.Color(style.HexColor(cs.FG)))
	}
	return s
}

// Render styles every attribute group of text, split further at the selection
// edges. Line breaks are written unstyled so escapes never span lines.
func (t *Terminal) Render(text styled.Text, sel styled.Range) string {
	var b strings.Builder
	cuts := []int{sel.Location, sel.End()}
	styled.ForEachAttributeGroup(text, text.Full(), func(a styled.Attr, r styled.Range) {
		for _, part := range split(r, cuts) {
			selected := sel.Length > 0 && part.Location >= sel.Location && part.End() <= sel.End()
			st := t.style(StyleFor(t.sheet, a, selected))
			t.writeLines(&b, st, text.Substring(part))
		}
	})
	return b.String()
}

func (t *Terminal) writeLines(b *strings.Builder, st lipgloss.Style, s string) {
	for {
		i := strings.IndexFunc(s, func(c rune) bool { return styled.IsLineBreak(c) || c == '\v' })
		if i < 0 {
			break
		}
		if i > 0 {
			b.WriteString(st.Render(s[:i]))
		}
		b.WriteByte('\n')
		_, size := utf8.DecodeRuneInString(s[i:])
		if strings.HasPrefix(s[i:], "\r\n") {
			size = 2
		}
		s = s[i+size:]
	}
	if s != "" {
		b.WriteString(st.Render(s))
	}
}

// split cuts r at every point in cuts that falls strictly inside it.
func split(r styled.Range, cuts []int) []styled.Range {
	out := []styled.Range{r}
	for _, c := range cuts {
		last := out[len(out)-1]
		if c > last.Location && c < last.End() {
			out[len(out)-1] = styled.Range{Location: last.Location, Length: c - last.Location}
			out = append(out, styled.Range{Location: c, Length: last.End() - c})
		}
	}
	return out
}
