// Package styled holds the attributed text model shared by the parser, the
// serializer and the editing state machine.
package styled

type FontRole uint8

const (
	// FontNone marks characters whose font has not been assigned yet. It only
	// appears while a parser is still building text.
	FontNone FontRole = iota
	FontBody
	FontHeading1
	FontHeading2
	FontListPrefix
)

func (f FontRole) String() string {
	switch f {
	case FontBody:
		return "body"
	case FontHeading1:
		return "heading1"
	case FontHeading2:
		return "heading2"
	case FontListPrefix:
		return "list-prefix"
	default:
		return "none"
	}
}

type ColorRole uint8

const (
	ColorNone ColorRole = iota
	ColorBody
	ColorHeading1
	ColorHeading2
	ColorLink
	ColorListPrefix
)

func (c ColorRole) String() string {
	switch c {
	case ColorBody:
		return "body"
	case ColorHeading1:
		return "heading1"
	case ColorHeading2:
		return "heading2"
	case ColorLink:
		return "link"
	case ColorListPrefix:
		return "list-prefix"
	default:
		return "none"
	}
}

// ParagraphStyle is an opaque, comparable paragraph geometry value. Values are
// in points.
type ParagraphStyle struct {
	FirstLineHeadIndent float64
	HeadIndent          float64
	TabStop             float64
	SpacingBefore       float64
	Spacing             float64
	LineSpacing         float64
}

// Attr is the full attribute set of one character.
type Attr struct {
	Font      FontRole
	Bold      bool
	Italic    bool
	Color     ColorRole
	Paragraph ParagraphStyle
	Link      string
}

type Trait uint8

const (
	TraitBold Trait = 1 << iota
	TraitItalic
)

func (a Attr) WithTrait(t Trait) Attr {
	if a.Font == FontNone {
		a.Font = FontBody
	}
	if t&TraitBold != 0 {
		a.Bold = true
	}
	if t&TraitItalic != 0 {
		a.Italic = true
	}
	return a
}

func (a Attr) WithoutTrait(t Trait) Attr {
	if t&TraitBold != 0 {
		a.Bold = false
	}
	if t&TraitItalic != 0 {
		a.Italic = false
	}
	return a
}
