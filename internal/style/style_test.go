package style

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/require"

	"mdedit/pkg/styled"
)

// fixedWidth measures every rune as w points.
type fixedWidth float64

func (w fixedWidth) Advance(_ Font, s string) float64 {
	return float64(w) * float64(len([]rune(s)))
}

func newTestSheet(t *testing.T) *Sheet {
	t.Helper()
	s, err := NewSheet(Default(), fixedWidth(10))
	require.NoError(t, err)
	return s
}

func TestListGeometry(t *testing.T) {
	s := newTestSheet(t)
	// Two digits plus a period at 10pt each, then 8pt after the prefix.
	require.Equal(t, 38.0, s.List().Indentation())

	lead := s.ListLeadingParagraphStyle(10)
	require.Equal(t, styled.ParagraphStyle{
		FirstLineHeadIndent: 20,
		HeadIndent:          38,
		TabStop:             38,
		SpacingBefore:       4,
		Spacing:             8,
	}, lead)
	require.Equal(t, lead, s.ListParagraphStyle())

	wide := s.ListLeadingParagraphStyle(45)
	require.Equal(t, 53.0, wide.TabStop, "spill past the widest expected prefix moves the tab stop")
	require.Equal(t, 38.0, wide.HeadIndent)

	trail := s.ListTrailingParagraphStyle()
	require.Equal(t, 38.0, trail.FirstLineHeadIndent)
	require.Equal(t, 38.0, trail.HeadIndent)
	require.Equal(t, lead.SpacingBefore, trail.SpacingBefore)
	require.Equal(t, lead.Spacing, trail.Spacing)
}

func TestClassifyOrder(t *testing.T) {
	s := newTestSheet(t)

	require.Equal(t, KindHeading, s.Classify(s.HeadingAttr(), "Title"))
	require.Equal(t, KindList, s.Classify(s.PrefixAttr(), ListPrefix))
	require.Equal(t, KindParagraphBreak, s.Classify(s.BaseAttr(), "\n"))
	require.Equal(t, KindParagraphBreak, s.Classify(s.BaseAttr(), "\v"))
	require.Equal(t, KindText, s.Classify(s.BaseAttr(), "words\n"))
	require.Equal(t, KindText, s.Classify(s.BaseAttr(), ""))

	listBreak := s.BaseAttr()
	listBreak.Paragraph = s.ListParagraphStyle()
	require.Equal(t, KindList, s.Classify(listBreak, "\n"), "list wins over paragraph break")
	require.Equal(t, KindParagraphBreak, s.ClassifyInList(listBreak, "\n"))
}

func TestHeadingLevelsResolveToHeadingWithDefaults(t *testing.T) {
	s := newTestSheet(t)
	require.Equal(t, KindHeading, s.Classify(s.HeadingLevelAttr(2), "x"))
	require.Equal(t, KindHeading, s.Classify(s.HeadingLevelAttr(3), "x"))

	italic := s.HeadingAttr()
	italic.Italic = true
	require.Equal(t, KindText, s.Classify(italic, "x"))

	bold := s.HeadingAttr()
	bold.Bold = true
	require.Equal(t, KindHeading, s.Classify(bold, "x"), "heading font is already bold")
}

func TestHeadingLevelTwoDistinctWhenConfigured(t *testing.T) {
	cfg := Default()
	cfg.Fonts.Heading2.Size = 24
	s, err := NewSheet(cfg, fixedWidth(10))
	require.NoError(t, err)
	require.Equal(t, KindText, s.Classify(s.HeadingLevelAttr(2), "x"))
}

func TestIsHeadingAndIsList(t *testing.T) {
	s := newTestSheet(t)
	require.False(t, s.IsHeading(styled.Text{}))
	require.False(t, s.IsList(styled.Text{}))

	text := styled.New("A", s.HeadingAttr()).Concat(styled.New("b", s.BaseAttr()))
	require.False(t, s.IsHeading(text))
	require.True(t, s.IsHeading(text.Slice(styled.Range{Length: 1})))

	item := s.Prefix().Concat(styled.New("one", styled.Attr{Font: styled.FontBody, Color: styled.ColorBody, Paragraph: s.ListParagraphStyle()}))
	require.True(t, s.IsList(item))
}

func TestToggleTrait(t *testing.T) {
	s := newTestSheet(t)
	text := styled.New("ab", s.BaseAttr()).Concat(styled.New("cd", s.BaseAttr().WithTrait(styled.TraitBold)))
	all := text.Full()

	once := s.ToggleTrait(text, all, styled.TraitBold)
	require.True(t, s.AllHaveTrait(once, all, styled.TraitBold))

	twice := s.ToggleTrait(once, all, styled.TraitBold)
	require.False(t, s.AllHaveTrait(twice, styled.Range{Location: 0, Length: 1}, styled.TraitBold))
	require.False(t, s.AllHaveTrait(twice, styled.Range{}, styled.TraitBold))
}

func TestParseColor(t *testing.T) {
	c, err := ParseColor("#0000ff")
	require.NoError(t, err)
	require.Equal(t, color.RGBA{B: 0xff, A: 0xff}, c)
	require.Equal(t, "#0000ff", HexColor(c))

	_, err = ParseColor("blue")
	require.Error(t, err)
}

func TestOpenTypeMeasurer(t *testing.T) {
	m, err := NewOpenType()
	require.NoError(t, err)

	body := Default().Fonts.Body
	w := m.Advance(body, "00")
	require.Greater(t, w, 0.0)
	require.InDelta(t, 2*m.Advance(body, "0"), w, 0.1)

	bigger := body
	bigger.Size *= 2
	require.Greater(t, m.Advance(bigger, "0"), m.Advance(body, "0"))
	require.Zero(t, m.Advance(body, ""))
}

func TestValidate(t *testing.T) {
	cfg := Default()
	cfg.ListItems.MaxPrefixDigits = 0
	_, err := NewSheet(cfg, nil)
	require.Error(t, err)
}
