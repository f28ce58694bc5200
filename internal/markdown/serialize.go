package markdown

import (
	"strings"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

// escapedChars are backslash-escaped in text runs. The backslash comes first
// so escapes added for the others survive a re-parse.
const escapedChars = "\\`*_{}[]<>()#+-.!|"

// Generate is markdownFromStyledText.
func Generate(sheet *style.Sheet, t styled.Text) string {
	return Render(Build(sheet, t))
}

// Render concatenates the Markdown of every top-level node.
func Render(doc *Document) string {
	var b strings.Builder
	for _, n := range doc.Children {
		writeNode(&b, n)
	}
	return b.String()
}

func writeNode(b *strings.Builder, n Node) {
	switch n := n.(type) {
	case *Heading:
		for _, line := range strings.SplitAfter(n.Text, "\n") {
			if strings.TrimSpace(line) != "" {
				b.WriteString("# ")
			}
			b.WriteString(line)
		}
	case *TextRun:
		b.WriteString(n.Markdown())
	case *ParagraphBreak:
		b.WriteByte('\n')
	case *List:
		for _, item := range n.Items {
			writeNode(b, item)
		}
		b.WriteByte('\n')
	case *ListItem:
		for _, c := range n.Children {
			writeNode(b, c)
		}
	case *ListPrefix:
		b.WriteString("- ")
	}
}

// Markdown renders the run escaped and wrapped in its emphasis markers.
// Leading and trailing blanks are kept outside the markers.
func (r *TextRun) Markdown() string {
	s := Escape(r.Text)
	core := strings.TrimLeft(s, " \t")
	lead := s[:len(s)-len(core)]
	core = strings.TrimRight(core, " \t")
	trail := s[len(lead)+len(core):]
	if core == "" {
		return s
	}
	if r.Italic {
		core = "*" + core + "*"
	}
	if r.Bold {
		core = "**" + core + "**"
	}
	if r.Link != "" {
		core = "[" + core + "](" + destination(r.Link) + ")"
	}
	return lead + core + trail
}

func Escape(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, c := range s {
		if strings.ContainsRune(escapedChars, c) {
			b.WriteByte('\\')
		}
		b.WriteRune(c)
	}
	return b.String()
}

func destination(url string) string {
	if strings.ContainsAny(url, " ()<>") {
		return "<" + strings.NewReplacer("<", "%3C", ">", "%3E").Replace(url) + ">"
	}
	return url
}
