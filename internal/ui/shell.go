package ui

import (
	"fmt"
	"image/color"
	"strings"

	"github.com/mattn/go-runewidth"

	"mdedit/internal/editor"
	"mdedit/internal/render"
	"mdedit/pkg/styled"
)

type Layout struct {
	ToolbarH int
	StatusH  int
	PageX    int
	PageY    int
	PageW    int
	PageH    int
	ContentX int
	ContentY int
	ContentW int
	ContentH int
	StatusY  int
}

// ComputeLayout splits a w×h grid into toolbar, a centered page with a one
// cell border, and the status line.
func ComputeLayout(w, h int, theme Theme) Layout {
	toolbarH := theme.ToolbarRows
	statusH := theme.StatusRows
	margin := theme.PageMargin

	pageW := w - margin*2
	if theme.MaxPageWidth > 0 && pageW > theme.MaxPageWidth {
		pageW = theme.MaxPageWidth
	}
	pageW = max(pageW, 4)
	pageH := max(h-toolbarH-statusH, 3)
	pageX := max((w-pageW)/2, 0)

	return Layout{
		ToolbarH: toolbarH,
		StatusH:  statusH,
		PageX:    pageX,
		PageY:    toolbarH,
		PageW:    pageW,
		PageH:    pageH,
		ContentX: pageX + 1,
		ContentY: toolbarH + 1,
		ContentW: max(pageW-2, 1),
		ContentH: max(pageH-2, 1),
		StatusY:  h - statusH,
	}
}

// DrawShell paints the chrome and the document of state into fb.
func DrawShell(fb *render.FrameBuffer, state *editor.State, theme Theme, title string) Layout {
	layout := ComputeLayout(fb.W, fb.H, theme)
	fb.Clear(theme.AppBackground)

	// Toolbar
	fb.FillRect(0, 0, fb.W, layout.ToolbarH, theme.Toolbar)
	bar := render.CellStyle{FG: theme.ToolbarText, BG: theme.Toolbar, Bold: true}
	x := 1 + fb.DrawText(1, 0, fb.W/2, title, bar)
	toggles := state.Toggles()
	for _, b := range []struct {
		label  string
		active bool
	}{
		{"B", toggles.Bold},
		{"I", toggles.Italic},
		{"H", toggles.Heading},
		{"•", toggles.List},
	} {
		st := render.CellStyle{FG: theme.ToolbarText, BG: theme.Toolbar, Reverse: b.active}
		x += 1 + fb.DrawText(x+1, 0, fb.W-x-1, " "+b.label+" ", st)
	}

	// Page
	fb.FillRect(layout.PageX, layout.PageY, layout.PageW, layout.PageH, theme.Page)
	fb.StrokeRect(layout.PageX, layout.PageY, layout.PageW, layout.PageH, theme.Border)

	sel := state.Selection()
	flow := render.Layout(state.Sheet(), state.Text(), sel, layout.ContentW)
	row := RowOf(flow, sel.Location)
	scroll := max(0, row-layout.ContentH+1)
	for i := scroll; i < len(flow.Lines) && i-scroll < layout.ContentH; i++ {
		cells := flow.Lines[i].Cells
		cells = cells[:min(len(cells), layout.ContentW)]
		for j := range cells {
			if cells[j].Style.BG == (color.RGBA{}) {
				cells[j].Style.BG = theme.Page
			}
		}
		fb.DrawCells(layout.ContentX, layout.ContentY+i-scroll, cells)
	}
	if sel.Length == 0 && flow.CaretCol < layout.ContentW {
		cx, cy := layout.ContentX+flow.CaretCol, layout.ContentY+flow.CaretRow-scroll
		if cy >= layout.ContentY && cy < layout.ContentY+layout.ContentH && cx < fb.W && cy < fb.H {
			c := fb.At(cx, cy)
			c.Style.Reverse = true
			if c.Rune == 0 {
				c.Rune = ' '
			}
			fb.DrawCells(cx, cy, []render.Cell{c})
		}
	}

	// Status bar
	fb.FillRect(0, layout.StatusY, fb.W, layout.StatusH, theme.StatusBar)
	status := runewidth.Truncate(StatusLine(state, flow), max(fb.W-2, 0), "…")
	fb.DrawText(1, layout.StatusY, fb.W-1, status, render.CellStyle{FG: theme.StatusText, BG: theme.StatusBar})
	return layout
}

// RowOf returns the visual row holding rune offset pos.
func RowOf(flow render.Flow, pos int) int {
	row := 0
	for i, l := range flow.Lines {
		if l.Start <= pos {
			row = i
		}
	}
	return row
}

// StatusLine summarizes the caret position, the document size and the
// selection.
func StatusLine(state *editor.State, flow render.Flow) string {
	sel := state.Selection()
	line := paragraphOf(state.Text(), sel.Location) + 1
	col := sel.Location - lineStart(state.Text(), sel.Location) + 1
	parts := []string{
		fmt.Sprintf("Ln %d, Col %d", line, col),
		fmt.Sprintf("%d chars", state.Text().Len()),
		fmt.Sprintf("%d rows", len(flow.Lines)),
	}
	if sel.Length > 0 {
		parts = append(parts, fmt.Sprintf("%d selected", sel.Length))
	}
	return strings.Join(parts, " · ")
}

// paragraphOf counts the line breaks before pos.
func paragraphOf(t styled.Text, pos int) int {
	n := 0
	for i := 0; i < pos && i < t.Len(); i++ {
		r := t.RuneAt(i)
		if r == '\n' && i > 0 && t.RuneAt(i-1) == '\r' {
			continue
		}
		if styled.IsLineBreak(r) {
			n++
		}
	}
	return n
}

func lineStart(t styled.Text, pos int) int {
	start := 0
	for _, l := range styled.LineRanges(t) {
		if l.Location <= pos {
			start = l.Location
		}
	}
	return start
}
