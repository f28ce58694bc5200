package style

import (
	"image/color"

	"mdedit/pkg/styled"
)

// Sheet is a Configuration bound to a Measurer, with list geometry computed
// once. It is immutable and safe to share.
type Sheet struct {
	cfg      Configuration
	measurer Measurer
	list     ListStyler
}

func NewSheet(cfg Configuration, m Measurer) (*Sheet, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if m == nil {
		m = Cells{}
	}
	return &Sheet{
		cfg:      cfg,
		measurer: m,
		list:     NewListStyler(cfg.ListItems, cfg.Fonts.ListPrefix, m),
	}, nil
}

func (s *Sheet) Configuration() Configuration { return s.cfg }
func (s *Sheet) Measurer() Measurer           { return s.measurer }
func (s *Sheet) List() ListStyler             { return s.list }

func (s *Sheet) HeadingParagraphStyle() styled.ParagraphStyle  { return s.cfg.Paragraphs.Heading1 }
func (s *Sheet) Heading2ParagraphStyle() styled.ParagraphStyle { return s.cfg.Paragraphs.Heading2 }
func (s *Sheet) BodyParagraphStyle() styled.ParagraphStyle     { return s.cfg.Paragraphs.Body }

func (s *Sheet) ListLeadingParagraphStyle(prefixWidth float64) styled.ParagraphStyle {
	return s.list.LeadingParagraphStyle(prefixWidth)
}

func (s *Sheet) ListTrailingParagraphStyle() styled.ParagraphStyle {
	return s.list.TrailingParagraphStyle()
}

func (s *Sheet) ListParagraphStyle() styled.ParagraphStyle { return s.list.ListParagraphStyle() }

// BaseAttr is plain body text.
func (s *Sheet) BaseAttr() styled.Attr {
	return styled.Attr{Font: styled.FontBody, Color: styled.ColorBody, Paragraph: s.cfg.Paragraphs.Body}
}

func (s *Sheet) HeadingAttr() styled.Attr { return s.HeadingLevelAttr(1) }

// HeadingLevelAttr folds levels past two onto the heading1 font and color with
// the heading2 paragraph style.
func (s *Sheet) HeadingLevelAttr(level int) styled.Attr {
	switch level {
	case 1:
		return styled.Attr{Font: styled.FontHeading1, Color: styled.ColorHeading1, Paragraph: s.cfg.Paragraphs.Heading1}
	case 2:
		return styled.Attr{Font: styled.FontHeading2, Color: styled.ColorHeading2, Paragraph: s.cfg.Paragraphs.Heading2}
	default:
		return styled.Attr{Font: styled.FontHeading1, Color: styled.ColorHeading1, Paragraph: s.cfg.Paragraphs.Heading2}
	}
}

// PrefixAttr styles the list prefix token.
func (s *Sheet) PrefixAttr() styled.Attr {
	return styled.Attr{Font: styled.FontListPrefix, Color: styled.ColorListPrefix, Paragraph: s.ListParagraphStyle()}
}

// Prefix returns the list prefix token with its attributes.
func (s *Sheet) Prefix() styled.Text { return styled.New(ListPrefix, s.PrefixAttr()) }

func (s *Sheet) Font(role styled.FontRole) Font {
	switch role {
	case styled.FontBody:
		return s.cfg.Fonts.Body
	case styled.FontHeading1:
		return s.cfg.Fonts.Heading1
	case styled.FontHeading2:
		return s.cfg.Fonts.Heading2
	case styled.FontListPrefix:
		return s.cfg.Fonts.ListPrefix
	}
	return Font{}
}

func (s *Sheet) Color(role styled.ColorRole) color.RGBA {
	switch role {
	case styled.ColorBody:
		return s.cfg.Colors.Body
	case styled.ColorHeading1:
		return s.cfg.Colors.Heading1
	case styled.ColorHeading2:
		return s.cfg.Colors.Heading2
	case styled.ColorLink:
		return s.cfg.Colors.Link
	case styled.ColorListPrefix:
		return s.cfg.Colors.ListPrefix
	}
	return color.RGBA{}
}

// Resolve returns the concrete font of attr with its modifiers applied.
func (s *Sheet) Resolve(attr styled.Attr) Font {
	f := s.Font(attr.Font)
	f.Bold = f.Bold || attr.Bold
	f.Italic = f.Italic || attr.Italic
	return f
}

func (s *Sheet) HasTrait(attr styled.Attr, t styled.Trait) bool {
	if attr.Font == styled.FontNone {
		return false
	}
	f := s.Resolve(attr)
	if t&styled.TraitBold != 0 && !f.Bold {
		return false
	}
	if t&styled.TraitItalic != 0 && !f.Italic {
		return false
	}
	return true
}

// AllHaveTrait reports whether every character of r carries t. An empty range
// has no fonts and reports false.
func (s *Sheet) AllHaveTrait(text styled.Text, r styled.Range, t styled.Trait) bool {
	seen := false
	all := true
	styled.ForEachAttributeGroup(text, r, func(a styled.Attr, _ styled.Range) {
		seen = true
		if !s.HasTrait(a, t) {
			all = false
		}
	})
	return seen && all
}

// ToggleTrait removes t from r when every character already has it and adds
// it everywhere otherwise.
func (s *Sheet) ToggleTrait(text styled.Text, r styled.Range, t styled.Trait) styled.Text {
	if s.AllHaveTrait(text, r, t) {
		return text.UpdateAttrs(r, func(a styled.Attr) styled.Attr { return a.WithoutTrait(t) })
	}
	return text.UpdateAttrs(r, func(a styled.Attr) styled.Attr { return a.WithTrait(t) })
}
