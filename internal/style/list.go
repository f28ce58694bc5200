package style

import (
	"strconv"

	"mdedit/pkg/styled"
)

const (
	ListMarker = "•"
	ListPrefix = ListMarker + "\t"
)

// ListPrefixLen is the rune length of ListPrefix.
const ListPrefixLen = 2

// ListStyler computes list paragraph geometry. Prefixes are right aligned
// against a tab stop so item text starts at the same indentation whatever the
// prefix width.
type ListStyler struct {
	opts               ListItemOptions
	largestPrefixWidth float64
	markerWidth        float64
}

func NewListStyler(opts ListItemOptions, prefixFont Font, m Measurer) ListStyler {
	widest := 0.0
	for d := 0; d <= 9; d++ {
		if w := m.Advance(prefixFont, strconv.Itoa(d)); w > widest {
			widest = w
		}
	}
	return ListStyler{
		opts:               opts,
		largestPrefixWidth: widest*float64(opts.MaxPrefixDigits) + m.Advance(prefixFont, "."),
		markerWidth:        m.Advance(prefixFont, ListMarker),
	}
}

// Indentation is the head indent shared by every list paragraph. It is the
// list indentation constant the classifier keys on.
func (l ListStyler) Indentation() float64 {
	return l.largestPrefixWidth + l.opts.SpacingAfterPrefix
}

func (l ListStyler) LeadingParagraphStyle(prefixWidth float64) styled.ParagraphStyle {
	indentation := l.Indentation()
	spill := max(0, prefixWidth-l.largestPrefixWidth)
	return styled.ParagraphStyle{
		FirstLineHeadIndent: indentation - l.opts.SpacingAfterPrefix - prefixWidth,
		HeadIndent:          indentation,
		TabStop:             indentation + spill,
		SpacingBefore:       l.opts.SpacingAbove,
		Spacing:             l.opts.SpacingBelow,
	}
}

func (l ListStyler) TrailingParagraphStyle() styled.ParagraphStyle {
	indentation := l.Indentation()
	return styled.ParagraphStyle{
		FirstLineHeadIndent: indentation,
		HeadIndent:          indentation,
		SpacingBefore:       l.opts.SpacingAbove,
		Spacing:             l.opts.SpacingBelow,
	}
}

// ListParagraphStyle is the leading style sized for the bullet marker.
func (l ListStyler) ListParagraphStyle() styled.ParagraphStyle {
	return l.LeadingParagraphStyle(l.markerWidth)
}
