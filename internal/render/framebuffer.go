// Package render lays styled text out on a grid of terminal cells and turns
// grids and texts into ANSI output.
package render

import (
	"image/color"
	"strings"

	"github.com/mattn/go-runewidth"
	"github.com/muesli/termenv"

	"mdedit/internal/style"
)

// CellStyle is the look of one terminal cell. A zero color means the
// terminal default.
type CellStyle struct {
	FG, BG    color.RGBA
	Bold      bool
	Italic    bool
	Underline bool
	Reverse   bool
}

// Cell holds one rune. The right half of a wide rune is a cell with Rune 0.
type Cell struct {
	Rune  rune
	Style CellStyle
}

type FrameBuffer struct {
	W     int
	H     int
	Cells []Cell
}

func NewFrameBuffer(w, h int) *FrameBuffer {
	if w <= 0 {
		w = 1
	}
	if h <= 0 {
		h = 1
	}
	fb := &FrameBuffer{W: w, H: h, Cells: make([]Cell, w*h)}
	fb.Clear(color.RGBA{})
	return fb
}

func (fb *FrameBuffer) Clear(bg color.RGBA) {
	for i := range fb.Cells {
		fb.Cells[i] = Cell{Rune: ' ', Style: CellStyle{BG: bg}}
	}
}

func (fb *FrameBuffer) At(x, y int) Cell { return fb.Cells[y*fb.W+x] }

func (fb *FrameBuffer) set(x, y int, c Cell) {
	if x < 0 || y < 0 || x >= fb.W || y >= fb.H {
		return
	}
	fb.Cells[y*fb.W+x] = c
}

func (fb *FrameBuffer) FillRect(x, y, w, h int, bg color.RGBA) {
	if w <= 0 || h <= 0 {
		return
	}
	if x < 0 {
		w += x
		x = 0
	}
	if y < 0 {
		h += y
		y = 0
	}
	if x+w > fb.W {
		w = fb.W - x
	}
	if y+h > fb.H {
		h = fb.H - y
	}
	if w <= 0 || h <= 0 {
		return
	}
	for row := 0; row < h; row++ {
		off := (y+row)*fb.W + x
		for col := 0; col < w; col++ {
			fb.Cells[off+col] = Cell{Rune: ' ', Style: CellStyle{BG: bg}}
		}
	}
}

// StrokeRect draws a box outline in fg, keeping the background underneath.
func (fb *FrameBuffer) StrokeRect(x, y, w, h int, fg color.RGBA) {
	if w < 2 || h < 2 {
		return
	}
	edge := func(cx, cy int, r rune) {
		if cx < 0 || cy < 0 || cx >= fb.W || cy >= fb.H {
			return
		}
		c := fb.At(cx, cy)
		c.Rune = r
		c.Style.FG = fg
		fb.set(cx, cy, c)
	}
	for i := 1; i < w-1; i++ {
		edge(x+i, y, '─')
		edge(x+i, y+h-1, '─')
	}
	for i := 1; i < h-1; i++ {
		edge(x, y+i, '│')
		edge(x+w-1, y+i, '│')
	}
	edge(x, y, '┌')
	edge(x+w-1, y, '┐')
	edge(x, y+h-1, '└')
	edge(x+w-1, y+h-1, '┘')
}

// DrawText writes s from (x, y) without wrapping and returns the number of
// columns used. Runes that would cross maxW are dropped.
func (fb *FrameBuffer) DrawText(x, y, maxW int, s string, st CellStyle) int {
	used := 0
	for _, r := range s {
		w := runewidth.RuneWidth(r)
		if w == 0 {
			continue
		}
		if used+w > maxW {
			break
		}
		fb.set(x+used, y, Cell{Rune: r, Style: st})
		if w == 2 {
			fb.set(x+used+1, y, Cell{Style: st})
		}
		used += w
	}
	return used
}

// DrawCells copies a laid out line into row y starting at column x.
func (fb *FrameBuffer) DrawCells(x, y int, cells []Cell) {
	for i, c := range cells {
		fb.set(x+i, y, c)
	}
}

// String returns the grid as plain text with trailing blanks trimmed.
func (fb *FrameBuffer) String() string {
	var b strings.Builder
	for y := 0; y < fb.H; y++ {
		var line strings.Builder
		for x := 0; x < fb.W; x++ {
			if r := fb.At(x, y).Rune; r != 0 {
				line.WriteRune(r)
			}
		}
		b.WriteString(strings.TrimRight(line.String(), " "))
		b.WriteByte('\n')
	}
	return b.String()
}

// Encode renders the grid with escape sequences for profile, merging runs of
// equally styled cells.
func (fb *FrameBuffer) Encode(profile termenv.Profile) string {
	var b strings.Builder
	for y := 0; y < fb.H; y++ {
		var run strings.Builder
		var cur CellStyle
		flush := func() {
			if run.Len() == 0 {
				return
			}
			b.WriteString(termStyle(profile, cur, run.String()))
			run.Reset()
		}
		for x := 0; x < fb.W; x++ {
			c := fb.At(x, y)
			if c.Rune == 0 {
				continue
			}
			if c.Style != cur {
				flush()
				cur = c.Style
			}
			run.WriteRune(c.Rune)
		}
		flush()
		b.WriteByte('\n')
	}
	return b.String()
}

func termStyle(p termenv.Profile, st CellStyle, s string) string {
	out := p.String(s)
	if st.FG != (color.RGBA{}) {
		out = out.Foreground(p.Color(style.HexColor(st.FG)))
	}
	if st.BG != (color.RGBA{}) {
		out = out.Background(p.Color(style.HexColor(st.BG)))
	}
	if st.Bold {
		out = out.Bold()
	}
	if st.Italic {
		out = out.Italic()
	}
	if st.Underline {
		out = out.Underline()
	}
	if st.Reverse {
		out = out.Reverse()
	}
	return out.String()
}
