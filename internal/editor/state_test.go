package editor

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mdedit/internal/linkdetect"
	"mdedit/internal/platform"
	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

type recorder struct {
	texts   []string
	toggles []string
	pasted  []string
}

func (r *recorder) StyledTextChanged(t styled.Text) { r.texts = append(r.texts, t.String()) }
func (r *recorder) Pasted(s string)                 { r.pasted = append(r.pasted, s) }
func (r *recorder) ToggleStateChanged(k platform.ToggleKind, on bool) {
	state := "off"
	if on {
		state = "on"
	}
	r.toggles = append(r.toggles, k.String()+"="+state)
}

func newSheet(t *testing.T) *style.Sheet {
	t.Helper()
	sheet, err := style.NewSheet(style.Default(), style.Cells{})
	require.NoError(t, err)
	return sheet
}

func newState(t *testing.T, opts ...Option) *State {
	t.Helper()
	return New(newSheet(t), append([]Option{WithDetector(linkdetect.None)}, opts...)...)
}

func typeString(t *testing.T, s *State, str string) {
	t.Helper()
	for _, c := range str {
		_, err := s.ReplaceText(s.Selection(), string(c))
		require.NoError(t, err)
	}
}

func caret(at int) styled.Range { return styled.Range{Location: at} }

func TestTypingBoldAdvancesCaret(t *testing.T) {
	s := newState(t)
	s.ToggleBold()
	require.True(t, s.Toggles().Bold)

	handled, err := s.ReplaceText(caret(0), "a")
	require.NoError(t, err)
	assert.True(t, handled)
	assert.Equal(t, "a", s.Text().String())
	assert.Equal(t, caret(1), s.Selection())
	assert.True(t, s.Text().AttrAt(0).Bold)
	assert.True(t, s.Toggles().Bold)
}

func TestEnterInListItemStartsNewItem(t *testing.T) {
	s := newState(t)
	s.ToggleList()
	typeString(t, s, "foo")
	require.Equal(t, "•\tfoo", s.Text().String())

	_, err := s.ReplaceText(s.Selection(), "\n")
	require.NoError(t, err)
	assert.Equal(t, "•\tfoo\n•\t", s.Text().String())
	assert.Equal(t, caret(8), s.Selection())
	assert.True(t, s.Toggles().List)
	assert.True(t, s.Sheet().IsList(s.Text()))
}

func TestEnterOnEmptyItemLeavesList(t *testing.T) {
	s := newState(t)
	s.ToggleList()
	typeString(t, s, "foo\n")
	require.Equal(t, "•\tfoo\n•\t", s.Text().String())

	_, err := s.ReplaceText(s.Selection(), "\n")
	require.NoError(t, err)
	assert.Equal(t, "•\tfoo\n\n", s.Text().String())
	assert.Equal(t, caret(6), s.Selection())
	assert.False(t, s.Toggles().List)
	assert.False(t, s.Sheet().IsList(s.Text().Slice(styled.Range{Location: 6, Length: 1})))
}

func TestBackspaceAfterPrefixLeavesList(t *testing.T) {
	s := newState(t)
	s.ToggleList()
	typeString(t, s, "ab")
	s.UpdateSelection(caret(2))

	_, err := s.ReplaceText(styled.Range{Location: 1, Length: 1}, "")
	require.NoError(t, err)
	assert.Equal(t, "ab", s.Text().String())
	assert.Equal(t, caret(0), s.Selection())
	assert.False(t, s.Toggles().List)
	assert.False(t, s.Sheet().IsList(s.Text()))
}

func TestToggleListTwiceRestoresLines(t *testing.T) {
	s := newState(t)
	s.SetText(styled.New("one\ntwo", s.Sheet().BaseAttr()))
	s.UpdateSelection(styled.Range{Location: 0, Length: 7})
	before := s.Text()

	s.ToggleList()
	assert.Equal(t, "•\tone\n•\ttwo", s.Text().String())
	assert.Equal(t, styled.Range{Location: 2, Length: 9}, s.Selection())

	s.ToggleList()
	assert.Equal(t, "one\ntwo", s.Text().String())
	assert.True(t, before.Equal(s.Text()), "%#v", s.Text())
}

func TestToggleHeading(t *testing.T) {
	s := newState(t)
	s.SetText(styled.New("Title\nbody", s.Sheet().BaseAttr()))
	s.UpdateSelection(caret(0))

	s.ToggleHeading()
	assert.True(t, s.Toggles().Heading)
	assert.Equal(t, "# Title\nbody", s.Markdown())

	// Bold is ignored while a heading is active.
	s.ToggleBold()
	assert.False(t, s.Toggles().Bold)

	s.ToggleHeading()
	assert.False(t, s.Toggles().Heading)
	assert.Equal(t, "Title\nbody", s.Markdown())
}

func TestToggleHeadingOnEmptyDocumentStylesTyping(t *testing.T) {
	s := newState(t)
	s.ToggleHeading()
	typeString(t, s, "Hi")
	assert.True(t, s.Toggles().Heading)
	assert.Equal(t, "# Hi", s.Markdown())
}

func TestToggleHeadingStripsListPrefix(t *testing.T) {
	s := newState(t)
	s.ToggleList()
	typeString(t, s, "item")

	s.ToggleHeading()
	assert.Equal(t, "item", s.Text().String())
	assert.True(t, s.Toggles().Heading)
	assert.False(t, s.Toggles().List)
	assert.Equal(t, caret(4), s.Selection())
}

func TestToggleListStripsParsedHeading(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.LoadMarkdown("# Title\n\nbody"))
	s.UpdateSelection(caret(0))
	require.True(t, s.Toggles().Heading)

	s.ToggleList()
	assert.Equal(t, "•\tTitle\nbody", s.Text().String())
	title := s.Text().AttrAt(2)
	assert.Equal(t, styled.FontBody, title.Font)
	assert.Equal(t, styled.ColorBody, title.Color)
	assert.Equal(t, "- Title\n\nbody", s.Markdown())
	assert.False(t, s.Toggles().Heading)
	assert.True(t, s.Toggles().List)
}

func TestUpdateSelectionClassifiesWholeLine(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.LoadMarkdown("- one\n\nbody"))
	require.Equal(t, "•\tone\nbody", s.Text().String())
	assert.Equal(t, caret(2), s.UpdateSelection(caret(0)), "separator after the item does not hide the list")

	sheet := s.Sheet()
	s.SetText(sheet.Prefix().Concat(styled.New("plain", sheet.BaseAttr())))
	assert.Equal(t, caret(0), s.UpdateSelection(caret(0)), "body text after a stray prefix is not a list line")
}

func TestToggleBoldFollowsContentAfterPrefixNudge(t *testing.T) {
	s := newState(t)
	sheet := s.Sheet()
	item := sheet.BaseAttr()
	item.Paragraph = sheet.ListParagraphStyle()
	item.Bold = true
	s.SetText(sheet.Prefix().Concat(styled.New("foo", item)))

	sel := s.UpdateSelection(styled.Range{Location: 0, Length: 5})
	require.Equal(t, styled.Range{Location: 2, Length: 3}, sel)
	require.False(t, s.Toggles().Bold, "the prefix is not bold")

	s.ToggleBold()
	assert.False(t, sheet.AllHaveTrait(s.Text(), sel, styled.TraitBold))
	assert.Equal(t, sheet.AllHaveTrait(s.Text(), s.Selection(), styled.TraitBold), s.Toggles().Bold)
}

func TestToggleBoldOnSelection(t *testing.T) {
	s := newState(t)
	s.SetText(styled.New("plain text", s.Sheet().BaseAttr()))
	sel := styled.Range{Location: 0, Length: 5}
	s.UpdateSelection(sel)
	original := s.Text()

	s.ToggleBold()
	assert.Equal(t, "**plain** text", s.Markdown())

	s.UpdateSelection(sel)
	require.True(t, s.Toggles().Bold)
	s.ToggleBold()
	assert.True(t, original.Equal(s.Text()))
}

func TestToggleItalicWithoutSelectionOnlyFlips(t *testing.T) {
	s := newState(t)
	s.SetText(styled.New("abc", s.Sheet().BaseAttr()))
	s.UpdateSelection(caret(3))
	before := s.Text()

	s.ToggleItalic()
	assert.True(t, s.Toggles().Italic)
	assert.True(t, before.Equal(s.Text()))

	typeString(t, s, "d")
	assert.Equal(t, "abc*d*", s.Markdown())
}

func TestUpdateSelectionLeavesPrefix(t *testing.T) {
	s := newState(t)
	s.ToggleList()
	typeString(t, s, "foo\nbar")
	require.Equal(t, "•\tfoo\n•\tbar", s.Text().String())

	assert.Equal(t, caret(2), s.UpdateSelection(caret(0)))
	assert.Equal(t, caret(8), s.UpdateSelection(caret(7)))
	assert.Equal(t, styled.Range{Location: 2, Length: 2}, s.UpdateSelection(styled.Range{Location: 1, Length: 3}))
	assert.Equal(t, styled.Range{Location: 3, Length: 3}, s.UpdateSelection(styled.Range{Location: 3, Length: 4}))
}

func TestUpdateSelectionNeverRestsInsidePrefix(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sheet, err := style.NewSheet(style.Default(), style.Cells{})
		require.NoError(rt, err)
		s := New(sheet, WithDetector(linkdetect.None))
		s.ToggleList()
		items := rapid.SliceOfN(rapid.StringMatching(`[a-z ]{0,5}`), 1, 4).Draw(rt, "items")
		for i, item := range items {
			if i > 0 {
				if _, err := s.ReplaceText(s.Selection(), "\n"); err != nil {
					rt.Fatal(err)
				}
				if !s.Toggles().List {
					return
				}
			}
			for _, c := range item {
				if _, err := s.ReplaceText(s.Selection(), string(c)); err != nil {
					rt.Fatal(err)
				}
			}
		}

		n := s.Text().Len()
		loc := rapid.IntRange(0, n).Draw(rt, "loc")
		length := rapid.IntRange(0, n-loc).Draw(rt, "len")
		got := s.UpdateSelection(styled.Range{Location: loc, Length: length})

		if !got.Within(n) {
			rt.Fatalf("selection %v outside text of %d", got, n)
		}
		for _, line := range styled.LineRanges(s.Text()) {
			if !s.Text().HasPrefixAt(line.Location, style.ListPrefix) {
				continue
			}
			inside := line.Location + 1
			if got.Location == inside || (got.Length > 0 && got.End() == inside) {
				rt.Fatalf("selection %v rests inside prefix at %d in %q", got, line.Location, s.Text().String())
			}
		}
	})
}

func TestHostNotifications(t *testing.T) {
	host := &recorder{}
	s := newState(t, WithHost(host))

	s.ToggleBold()
	typeString(t, s, "x")
	s.UpdateSelection(caret(1))
	require.NoError(t, s.Paste("y"))

	assert.Equal(t, []string{"x", "xy"}, host.texts)
	assert.Equal(t, []string{"bold=on"}, host.toggles)
	assert.Equal(t, []string{"y"}, host.pasted)
}

func TestReplaceTextOutOfRange(t *testing.T) {
	s := newState(t)
	s.SetText(styled.New("abc", s.Sheet().BaseAttr()))

	handled, err := s.ReplaceText(styled.Range{Location: 2, Length: 5}, "z")
	assert.True(t, handled)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrOutOfRange))

	var rangeErr *RangeError
	require.ErrorAs(t, err, &rangeErr)
	assert.Equal(t, 3, rangeErr.Len)
	assert.Equal(t, "abc", s.Text().String())
}

func TestDetectedLinksAreRecolored(t *testing.T) {
	s := New(newSheet(t))
	typeString(t, s, "see www.go.dev ok")

	text := s.Text()
	assert.Equal(t, styled.ColorBody, text.AttrAt(0).Color)
	for i := 4; i < 14; i++ {
		assert.Equal(t, styled.ColorLink, text.AttrAt(i).Color, "rune %d", i)
	}
	assert.Equal(t, styled.ColorBody, text.AttrAt(15).Color)

	// Breaking the URL drops the stale link coloring.
	_, err := s.ReplaceText(styled.Range{Location: 4, Length: 4}, "")
	require.NoError(t, err)
	assert.Equal(t, "see go.dev ok", s.Text().String())
	for i := range s.Text().Len() {
		assert.Equal(t, styled.ColorBody, s.Text().AttrAt(i).Color, "rune %d", i)
	}
}

func TestLoadMarkdown(t *testing.T) {
	s := newState(t)
	require.NoError(t, s.LoadMarkdown("# Title\n- one\n- two\n"))
	assert.Equal(t, "Title\n•\tone\n•\ttwo", s.Text().String())
	assert.Equal(t, "# Title\n- one\n- two\n", s.Markdown())

	err := s.LoadMarkdown("bad \xff byte")
	require.Error(t, err)
	assert.True(t, s.Text().IsEmpty())
}

func TestHandleRoutesEvents(t *testing.T) {
	s := newState(t)
	events := []platform.Event{
		{Type: platform.EventToggle, Toggle: platform.ToggleItalic},
		{Type: platform.EventReplaceRequested, Range: caret(0), Text: "hi"},
		{Type: platform.EventSelectionChanged, Range: styled.Range{Location: 0, Length: 2}},
		{Type: platform.EventPaste, Text: "yo"},
	}
	for _, ev := range events {
		require.NoError(t, s.Handle(ev))
	}
	assert.Equal(t, "yo", s.Text().String())
	assert.ErrorIs(t, s.Handle(platform.Event{Type: platform.EventClose}), ErrClosed)
	assert.Error(t, s.Handle(platform.Event{}))
}

func TestToggleBoldTwiceRestoresTextProperty(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sheet, err := style.NewSheet(style.Default(), style.Cells{})
		require.NoError(rt, err)
		s := New(sheet, WithDetector(linkdetect.None))
		src := rapid.StringMatching(`[a-z]{1,4}( [a-z]{1,4}){0,4}`).Draw(rt, "src")
		require.NoError(rt, s.LoadMarkdown(src))

		before := s.Text()
		n := before.Len()
		loc := rapid.IntRange(0, n-1).Draw(rt, "loc")
		length := rapid.IntRange(1, n-loc).Draw(rt, "len")
		s.UpdateSelection(styled.Range{Location: loc, Length: length})

		s.ToggleBold()
		require.True(rt, sheet.AllHaveTrait(s.Text(), styled.Range{Location: loc, Length: length}, styled.TraitBold))
		s.ToggleBold()
		require.True(rt, before.Equal(s.Text()), "got %#v want %#v", s.Text(), before)
	})
}
