package style

import (
	"fmt"
	"math"
	"sync"

	"github.com/mattn/go-runewidth"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gobold"
	"golang.org/x/image/font/gofont/gobolditalic"
	"golang.org/x/image/font/gofont/goitalic"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
)

// Measurer reports the advance width of s set in f, in points.
type Measurer interface {
	Advance(f Font, s string) float64
}

type faceKey struct {
	size   int
	bold   bool
	italic bool
}

// OpenType measures with the Go font family. Every configured family maps to
// it, so widths are stable across machines.
type OpenType struct {
	mu         sync.Mutex
	regular    *opentype.Font
	bold       *opentype.Font
	italic     *opentype.Font
	boldItalic *opentype.Font
	cache      map[faceKey]font.Face
}

func NewOpenType() (*OpenType, error) {
	o := &OpenType{cache: map[faceKey]font.Face{}}
	var err error
	if o.regular, err = opentype.Parse(goregular.TTF); err != nil {
		return nil, fmt.Errorf("parse regular face: %w", err)
	}
	if o.bold, err = opentype.Parse(gobold.TTF); err != nil {
		return nil, fmt.Errorf("parse bold face: %w", err)
	}
	if o.italic, err = opentype.Parse(goitalic.TTF); err != nil {
		return nil, fmt.Errorf("parse italic face: %w", err)
	}
	if o.boldItalic, err = opentype.Parse(gobolditalic.TTF); err != nil {
		return nil, fmt.Errorf("parse bold italic face: %w", err)
	}
	return o, nil
}

func (o *OpenType) Advance(f Font, s string) float64 {
	if s == "" {
		return 0
	}
	face, err := o.face(f)
	if err != nil {
		return Cells{}.Advance(f, s)
	}
	adv := font.MeasureString(face, s)
	return float64(adv) / 64
}

func (o *OpenType) face(f Font) (font.Face, error) {
	// Sizes are cached in 1/64 pt steps, the resolution of fixed.Int26_6.
	key := faceKey{size: int(math.Round(f.Size * 64)), bold: f.Bold, italic: f.Italic}

	o.mu.Lock()
	defer o.mu.Unlock()
	if face, ok := o.cache[key]; ok {
		return face, nil
	}
	base := o.regular
	switch {
	case f.Bold && f.Italic:
		base = o.boldItalic
	case f.Bold:
		base = o.bold
	case f.Italic:
		base = o.italic
	}
	face, err := opentype.NewFace(base, &opentype.FaceOptions{Size: f.Size, DPI: 72, Hinting: font.HintingNone})
	if err != nil {
		return nil, err
	}
	o.cache[key] = face
	return face, nil
}

// Cells measures in terminal columns, one column per point. Terminal hosts use
// it so list geometry lines up with the grid.
type Cells struct{}

func (Cells) Advance(_ Font, s string) float64 {
	return float64(runewidth.StringWidth(s))
}
