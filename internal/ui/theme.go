// Package ui draws the editor chrome around a flowed document on a cell grid.
package ui

import (
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

type Theme struct {
	AppBackground color.RGBA
	Toolbar       color.RGBA
	ToolbarText   color.RGBA
	Page          color.RGBA
	Border        color.RGBA
	StatusBar     color.RGBA
	StatusText    color.RGBA
	Accent        color.RGBA
	ToolbarRows   int
	StatusRows    int
	PageMargin    int
	MaxPageWidth  int
}

func DefaultTheme() Theme {
	return Theme{
		AppBackground: color.RGBA{0xF3, 0xF5, 0xF8, 0xFF},
		Toolbar:       color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		ToolbarText:   color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Page:          color.RGBA{0xFF, 0xFF, 0xFF, 0xFF},
		Border:        color.RGBA{0xB2, 0xBF, 0xD0, 0xFF},
		StatusBar:     color.RGBA{0xEA, 0xEF, 0xF6, 0xFF},
		StatusText:    color.RGBA{0x44, 0x4C, 0x58, 0xFF},
		Accent:        color.RGBA{0x2B, 0x57, 0x9A, 0xFF},
		ToolbarRows:   1,
		StatusRows:    1,
		PageMargin:    1,
		MaxPageWidth:  100,
	}
}

// ThemeFor takes the accent from the document's heading color and derives
// the toolbar and border shades from it.
func ThemeFor(sheet *style.Sheet) Theme {
	th := DefaultTheme()
	accent, ok := colorful.MakeColor(sheet.Color(styled.ColorHeading1))
	if !ok {
		return th
	}
	white := colorful.Color{R: 1, G: 1, B: 1}
	th.Accent = toRGBA(accent)
	th.Toolbar = toRGBA(accent.BlendLab(white, 0.15).Clamped())
	th.Border = toRGBA(accent.BlendLab(white, 0.7).Clamped())
	th.StatusBar = toRGBA(accent.BlendLab(white, 0.92).Clamped())
	return th
}

func toRGBA(c colorful.Color) color.RGBA {
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xFF}
}
