package render

import (
	"math"

	"github.com/mattn/go-runewidth"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

const defaultTabWidth = 4

// Line is one visual row of flowed text. Offsets maps every cell to the rune
// it shows, or -1 for indentation and tab padding.
type Line struct {
	Start   int
	Cells   []Cell
	Offsets []int
}

// Flow is styled text laid out for a fixed width.
type Flow struct {
	Lines []Line
	// Caret is the row and column of a collapsed selection.
	CaretRow, CaretCol int
}

// StyleFor maps text attributes onto a cell look.
func StyleFor(sheet *style.Sheet, attr styled.Attr, selected bool) CellStyle {
	f := sheet.Resolve(attr)
	st := CellStyle{
		Bold:      f.Bold,
		Italic:    f.Italic,
		Underline: attr.Link != "" || attr.Color == styled.ColorLink,
		Reverse:   selected,
	}
	if attr.Color != styled.ColorNone {
		st.FG = sheet.Color(attr.Color)
	}
	return st
}

// Layout wraps t into rows of at most width cells. Paragraph indents are read
// in measurer units, one cell each.
func Layout(sheet *style.Sheet, t styled.Text, sel styled.Range, width int) Flow {
	width = max(width, 1)
	var (
		out       Flow
		cur       Line
		col       int
		paraStart = true
		n         = t.Len()
	)
	pad := func(to int) {
		for col < to && col < width {
			cur.Cells = append(cur.Cells, Cell{Rune: ' '})
			cur.Offsets = append(cur.Offsets, -1)
			col++
		}
	}
	breakLine := func(next int, indent float64) {
		out.Lines = append(out.Lines, cur)
		cur = Line{Start: next}
		col = 0
		pad(cells(indent))
	}
	caretAt := func(i int) {
		if sel.Length == 0 && sel.Location == i {
			out.CaretRow, out.CaretCol = len(out.Lines), col
		}
	}

	for i := 0; i < n; i++ {
		r := t.RuneAt(i)
		attr := t.AttrAt(i)
		para := attr.Paragraph
		if paraStart {
			pad(cells(para.FirstLineHeadIndent))
			paraStart = false
		}

		switch {
		case styled.IsLineBreak(r):
			caretAt(i)
			next := i + 1
			if r == '\r' && next < n && t.RuneAt(next) == '\n' {
				next++
				i++
			}
			breakLine(next, 0)
			paraStart = true
			continue
		case r == '\v':
			caretAt(i)
			breakLine(i+1, para.HeadIndent)
			continue
		}

		st := StyleFor(sheet, attr, sel.Length > 0 && i >= sel.Location && i < sel.End())
		if r == '\t' {
			caretAt(i)
			stop := cells(para.TabStop)
			if stop <= col {
				stop = (col/defaultTabWidth + 1) * defaultTabWidth
			}
			start := len(cur.Cells)
			pad(stop)
			for j := start; j < len(cur.Cells); j++ {
				cur.Cells[j].Style = st
			}
			if start < len(cur.Offsets) {
				cur.Offsets[start] = i
			}
			continue
		}

		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if col+w > width && col > cells(para.HeadIndent) {
			breakLine(i, para.HeadIndent)
		}
		caretAt(i)
		cur.Cells = append(cur.Cells, Cell{Rune: r, Style: st})
		cur.Offsets = append(cur.Offsets, i)
		if w == 2 {
			cur.Cells = append(cur.Cells, Cell{Style: st})
			cur.Offsets = append(cur.Offsets, -1)
		}
		col += w
	}
	caretAt(n)
	out.Lines = append(out.Lines, cur)
	return out
}

func cells(units float64) int {
	return max(0, int(math.Round(units)))
}
