package markdown

import (
	"errors"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

func testSheet(t testing.TB) *style.Sheet {
	t.Helper()
	s, err := style.NewSheet(style.Default(), style.Cells{})
	require.NoError(t, err)
	return s
}

func kinds(sheet *style.Sheet, text styled.Text) []string {
	var out []string
	for _, g := range text.Groups(text.Full()) {
		sub := text.Substring(g.Range)
		out = append(out, sheet.Classify(g.Attr, sub).String()+":"+sub)
	}
	return out
}

func TestTitleAndListEndToEnd(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "# Title\n\n- one\n- two\n")
	require.NoError(t, err)

	require.Equal(t, "Title\n•\tone\n•\ttwo", text.String())
	require.Equal(t, []string{
		"heading:Title",
		"paragraph-break:\n",
		"list:•\t",
		"list:one\n",
		"list:•\t",
		"list:two",
	}, kinds(sheet, text))

	require.Equal(t, "# Title\n- one\n- two\n", Generate(sheet, text))
}

func TestBuildTree(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "# Title\n\nSome **bold** words\n\n- one\n- two")
	require.NoError(t, err)

	want := &Document{Children: []Node{
		&Heading{Text: "Title"},
		&ParagraphBreak{},
		&TextRun{Text: "Some "},
		&TextRun{Text: "bold", Bold: true},
		&TextRun{Text: " words"},
		&ParagraphBreak{},
		&List{Items: []*ListItem{
			{Children: []Node{&ListPrefix{}, &TextRun{Text: "one"}, &ParagraphBreak{}}},
			{Children: []Node{&ListPrefix{}, &TextRun{Text: "two"}}},
		}},
	}}
	if diff := cmp.Diff(want, Build(sheet, text)); diff != "" {
		t.Fatalf("tree mismatch (-want +got):\n%s", diff)
	}
}

func TestEveryCharacterAttributed(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "para *one\ntwo* three\n\n> quote\n\n```\ncode\n```\n\n1. first\n2. second\n\n---\n\n![alt](img.png)")
	require.NoError(t, err)
	for _, run := range text.Runs() {
		require.NotEqual(t, styled.FontNone, run.Attr.Font, "run %v", run)
		require.NotEqual(t, styled.ColorNone, run.Attr.Color, "run %v", run)
	}
	require.Equal(t, "para one\ntwo three\nquote\ncode\n•\tfirst\n•\tsecond\nalt", text.String())
}

func TestHeadingKeepsEmphasis(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "# Hello *world*")
	require.NoError(t, err)

	world := text.AttrAt(6)
	require.Equal(t, styled.FontHeading1, world.Font)
	require.True(t, world.Italic)
	require.Equal(t, sheet.HeadingParagraphStyle(), world.Paragraph)
	require.Equal(t, style.KindHeading, sheet.Classify(text.AttrAt(0), "Hello "))
}

func TestHeadingLevels(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "## Two\n\n### Three")
	require.NoError(t, err)
	require.Equal(t, styled.FontHeading2, text.AttrAt(0).Font)
	three := text.AttrAt(4)
	require.Equal(t, styled.FontHeading1, three.Font)
	require.Equal(t, sheet.Heading2ParagraphStyle(), three.Paragraph)
	require.Equal(t, "# Two\n# Three", Generate(sheet, text))
}

func TestLinks(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "see [docs](https://example.com/a) and [none]() and <https://x.io>")
	require.NoError(t, err)

	docs := text.AttrAt(4)
	require.Equal(t, styled.ColorLink, docs.Color)
	require.Equal(t, "https://example.com/a", docs.Link)

	none := text.AttrAt(strings.Index(text.String(), "none"))
	require.Equal(t, styled.ColorBody, none.Color)
	require.Empty(t, none.Link)

	auto := text.AttrAt(text.Len() - 1)
	require.Equal(t, "https://x.io", auto.Link)

	require.Equal(t, "see [docs](https://example.com/a) and none and [https://x\\.io](https://x.io)", Generate(sheet, text))
}

func TestBreaksBecomeLineFeeds(t *testing.T) {
	sheet := testSheet(t)
	for _, src := range []string{"a\nb", "a  \nb", "a\\\nb"} {
		text, err := Parse(sheet, src)
		require.NoError(t, err, src)
		require.Equal(t, "a\nb", text.String(), src)
		require.Len(t, text.Runs(), 1, src)
	}
}

func TestMultiLineListItem(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "- first\n  second\n- next")
	require.NoError(t, err)
	require.Equal(t, "•\tfirst\vsecond\n•\tnext", text.String())

	second := text.AttrAt(strings.Index(text.String(), "second"))
	require.Equal(t, sheet.ListTrailingParagraphStyle(), second.Paragraph)
	require.True(t, sheet.IsList(text))

	md := Generate(sheet, text)
	require.Equal(t, "- first\nsecond\n- next\n", md)

	again, err := Parse(sheet, md)
	require.NoError(t, err)
	require.True(t, again.Equal(text), "%#v", again)
}

func TestEscaping(t *testing.T) {
	require.Equal(t, `a\*b\_c \#1\. \\x`, Escape(`a*b_c #1. \x`))

	sheet := testSheet(t)
	text, err := Parse(sheet, `1\. not a list \*really\*`)
	require.NoError(t, err)
	require.Equal(t, "1. not a list *really*", text.String())
	require.Equal(t, `1\. not a list \*really\*`, Generate(sheet, text))
}

func TestTextRunMarkdown(t *testing.T) {
	require.Equal(t, " **x** ", (&TextRun{Text: " x ", Bold: true}).Markdown())
	require.Equal(t, "***x***", (&TextRun{Text: "x", Bold: true, Italic: true}).Markdown())
	require.Equal(t, "*a b*", (&TextRun{Text: "a b", Italic: true}).Markdown())
	require.Equal(t, "  ", (&TextRun{Text: "  ", Bold: true}).Markdown())
	require.Equal(t, "\tx", (&TextRun{Text: "\tx"}).Markdown())
	require.Equal(t, "\t **x**\t", (&TextRun{Text: "\t x\t", Bold: true}).Markdown())
	require.Equal(t, "[**go**](<a b>)", (&TextRun{Text: "go", Bold: true, Link: "a b"}).Markdown())
}

func TestGenerateKeepsTabsAtRunEdges(t *testing.T) {
	sheet := testSheet(t)
	bold := sheet.BaseAttr()
	bold.Bold = true
	text := styled.New("a", bold).Concat(styled.New("\tb\t", sheet.BaseAttr()), styled.New("c", bold))
	require.Equal(t, "**a**\tb\t**c**", Generate(sheet, text))
}

func TestParseErrorOnInvalidUTF8(t *testing.T) {
	sheet := testSheet(t)
	_, err := Parse(sheet, "ok\xff")
	require.Error(t, err)
	require.True(t, errors.Is(err, ErrMalformed))

	var perr *ParseError
	require.True(t, errors.As(err, &perr))
	require.Equal(t, 2, perr.Offset)
}

func TestEmptyInput(t *testing.T) {
	sheet := testSheet(t)
	text, err := Parse(sheet, "")
	require.NoError(t, err)
	require.True(t, text.IsEmpty())
	require.Equal(t, "", Generate(sheet, text))
}

func genMarkdown(t *rapid.T) string {
	word := rapid.StringMatching(`[a-z]{1,6}`)
	inline := func(label string) string {
		w := word.Draw(t, label)
		switch rapid.IntRange(0, 3).Draw(t, label+"-kind") {
		case 1:
			return "**" + w + "**"
		case 2:
			return "*" + w + "*"
		case 3:
			return "[" + w + "](https://example.com/" + w + ")"
		}
		return w
	}
	sentence := func(label string) string {
		n := rapid.IntRange(1, 4).Draw(t, label+"-len")
		parts := make([]string, n)
		for i := range parts {
			parts[i] = inline(label)
		}
		return strings.Join(parts, " ")
	}

	var blocks []string
	lastList := false
	n := rapid.IntRange(1, 5).Draw(t, "blocks")
	for i := 0; i < n; i++ {
		kind := rapid.IntRange(0, 2).Draw(t, "block")
		if kind == 2 && lastList {
			kind = 1
		}
		lastList = kind == 2
		switch kind {
		case 0:
			blocks = append(blocks, "# "+word.Draw(t, "heading"))
		case 1:
			blocks = append(blocks, sentence("para"))
		case 2:
			items := rapid.IntRange(1, 3).Draw(t, "items")
			var lines []string
			for k := 0; k < items; k++ {
				lines = append(lines, "- "+sentence("item"))
			}
			blocks = append(blocks, strings.Join(lines, "\n"))
		}
	}
	return strings.Join(blocks, "\n\n")
}

func TestRoundTripProperty(t *testing.T) {
	sheet := testSheet(t)
	rapid.Check(t, func(t *rapid.T) {
		src := genMarkdown(t)

		first, err := Parse(sheet, src)
		require.NoError(t, err)
		md := Generate(sheet, first)

		second, err := Parse(sheet, md)
		require.NoError(t, err)
		require.Equal(t, first.String(), second.String(), "markdown %q", md)
		require.Equal(t, md, Generate(sheet, second), "source %q", src)
	})
}
