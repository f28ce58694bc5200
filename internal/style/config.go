// Package style resolves semantic roles to concrete visual values and
// classifies attribute groups by the role they play in a document.
package style

import (
	"fmt"
	"image/color"

	"github.com/lucasb-eyer/go-colorful"

	"mdedit/pkg/styled"
)

type Font struct {
	Family string
	Size   float64
	Bold   bool
	Italic bool
}

type Fonts struct {
	Heading1   Font
	Heading2   Font
	Body       Font
	ListPrefix Font
}

type Colors struct {
	Heading1   color.RGBA
	Heading2   color.RGBA
	Body       color.RGBA
	Link       color.RGBA
	ListPrefix color.RGBA
}

type ParagraphStyles struct {
	Heading1 styled.ParagraphStyle
	Heading2 styled.ParagraphStyle
	Body     styled.ParagraphStyle
}

type ListItemOptions struct {
	MaxPrefixDigits    int
	SpacingAfterPrefix float64
	SpacingAbove       float64
	SpacingBelow       float64
}

// Configuration maps every semantic role to a concrete style. It is read-only
// once a Sheet is built from it and may be shared between documents.
type Configuration struct {
	Fonts      Fonts
	Colors     Colors
	Paragraphs ParagraphStyles
	ListItems  ListItemOptions
}

const DefaultFamily = "Go"

var (
	black = color.RGBA{A: 0xff}
	blue  = color.RGBA{B: 0xff, A: 0xff}
)

func Default() Configuration {
	heading := Font{Family: DefaultFamily, Size: 28, Bold: true}
	return Configuration{
		Fonts: Fonts{
			Heading1:   heading,
			Heading2:   heading,
			Body:       Font{Family: DefaultFamily, Size: 20},
			ListPrefix: Font{Family: DefaultFamily, Size: 20},
		},
		Colors: Colors{
			Heading1:   black,
			Heading2:   black,
			Body:       black,
			Link:       blue,
			ListPrefix: black,
		},
		Paragraphs: ParagraphStyles{
			Heading1: styled.ParagraphStyle{Spacing: 8},
			Heading2: styled.ParagraphStyle{Spacing: 8},
			Body:     styled.ParagraphStyle{LineSpacing: 4},
		},
		ListItems: ListItemOptions{
			MaxPrefixDigits:    2,
			SpacingAfterPrefix: 8,
			SpacingAbove:       4,
			SpacingBelow:       8,
		},
	}
}

func (c Configuration) Validate() error {
	for name, f := range map[string]Font{
		"heading1":    c.Fonts.Heading1,
		"heading2":    c.Fonts.Heading2,
		"body":        c.Fonts.Body,
		"list prefix": c.Fonts.ListPrefix,
	} {
		if f.Size <= 0 {
			return fmt.Errorf("style: %s font size must be positive", name)
		}
	}
	if c.ListItems.MaxPrefixDigits < 1 {
		return fmt.Errorf("style: list prefix digits must be at least 1")
	}
	if c.ListItems.SpacingAfterPrefix < 0 {
		return fmt.Errorf("style: negative spacing after list prefix")
	}
	return nil
}

// ParseColor reads a "#rrggbb" hex color.
func ParseColor(hex string) (color.RGBA, error) {
	c, err := colorful.Hex(hex)
	if err != nil {
		return color.RGBA{}, fmt.Errorf("style: parse color %q: %w", hex, err)
	}
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 0xff}, nil
}

func HexColor(c color.RGBA) string {
	cf, _ := colorful.MakeColor(c)
	return cf.Hex()
}
