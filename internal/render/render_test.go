package render

import (
	"image/color"
	"strings"
	"testing"

	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

func cellSheet(t *testing.T) *style.Sheet {
	t.Helper()
	sheet, err := style.NewSheet(style.Default(), style.Cells{})
	require.NoError(t, err)
	return sheet
}

func rowText(l Line) string {
	var b strings.Builder
	for _, c := range l.Cells {
		if c.Rune != 0 {
			b.WriteRune(c.Rune)
		}
	}
	return b.String()
}

func TestFrameBufferDrawing(t *testing.T) {
	fb := NewFrameBuffer(6, 3)
	fb.StrokeRect(0, 0, 6, 3, color.RGBA{A: 0xFF})
	used := fb.DrawText(1, 1, 4, "hello", CellStyle{})
	assert.Equal(t, 4, used)
	assert.Equal(t, "┌────┐\n│hell│\n└────┘\n", fb.String())

	fb.FillRect(-2, 1, 100, 1, color.RGBA{R: 1, A: 0xFF})
	assert.Equal(t, "┌────┐\n\n└────┘\n", fb.String())
}

func TestFrameBufferWideRunes(t *testing.T) {
	fb := NewFrameBuffer(5, 1)
	assert.Equal(t, 4, fb.DrawText(0, 0, 5, "日本語", CellStyle{}))
	assert.Equal(t, "日本\n", fb.String())
}

func TestEncodeProfiles(t *testing.T) {
	fb := NewFrameBuffer(4, 2)
	fb.DrawText(0, 0, 4, "ab", CellStyle{Bold: true, FG: color.RGBA{R: 0xFF, A: 0xFF}})

	plain := fb.Encode(termenv.Ascii)
	assert.Equal(t, "ab  \n    \n", plain)

	ansi := fb.Encode(termenv.ANSI256)
	assert.Contains(t, ansi, "\x1b[")
	assert.Contains(t, ansi, "ab")
}

func TestLayoutListIndentation(t *testing.T) {
	sheet := cellSheet(t)
	text := sheet.Prefix().Concat(styled.New("one", styled.Attr{
		Font: styled.FontBody, Color: styled.ColorBody, Paragraph: sheet.ListParagraphStyle(),
	}))
	flow := Layout(sheet, text, styled.Range{}, 40)
	require.Len(t, flow.Lines, 1)

	indent := int(sheet.ListParagraphStyle().FirstLineHeadIndent)
	tab := int(sheet.List().Indentation())
	want := strings.Repeat(" ", indent) + "•" + strings.Repeat(" ", tab-indent-1) + "one"
	assert.Equal(t, want, rowText(flow.Lines[0]))
	assert.Equal(t, 0, flow.Lines[0].Offsets[indent])
	assert.Equal(t, 2, flow.Lines[0].Offsets[tab])
}

func TestLayoutWrapsAndTracksCaret(t *testing.T) {
	sheet := cellSheet(t)
	text := styled.New("aaaa bbbb\ncd", sheet.BaseAttr())

	flow := Layout(sheet, text, styled.Range{Location: 11}, 5)
	require.Len(t, flow.Lines, 3)
	assert.Equal(t, "aaaa ", rowText(flow.Lines[0]))
	assert.Equal(t, "bbbb", rowText(flow.Lines[1]))
	assert.Equal(t, "cd", rowText(flow.Lines[2]))
	assert.Equal(t, 10, flow.Lines[2].Start)
	assert.Equal(t, 2, flow.CaretRow)
	assert.Equal(t, 1, flow.CaretCol)
}

func TestLayoutSelectionAndLinks(t *testing.T) {
	sheet := cellSheet(t)
	text := styled.New("see ", sheet.BaseAttr()).Concat(styled.New("x.io", styled.Attr{
		Font: styled.FontBody, Color: styled.ColorLink, Paragraph: sheet.BodyParagraphStyle(), Link: "https://x.io",
	}))
	flow := Layout(sheet, text, styled.Range{Location: 2, Length: 3}, 80)
	cells := flow.Lines[0].Cells

	assert.False(t, cells[1].Style.Reverse)
	assert.True(t, cells[2].Style.Reverse)
	assert.True(t, cells[4].Style.Reverse)
	assert.False(t, cells[5].Style.Reverse)
	assert.True(t, cells[4].Style.Underline)
	assert.Equal(t, sheet.Color(styled.ColorLink), cells[4].Style.FG)
}

func TestTerminalRenderAscii(t *testing.T) {
	sheet := cellSheet(t)
	text := styled.New("Title", sheet.HeadingAttr()).
		Concat(styled.New("\nbody\vmore", sheet.BaseAttr()))

	var out strings.Builder
	term := NewTerminal(&out, sheet, termenv.Ascii)
	assert.Equal(t, "Title\nbody\nmore", term.Render(text, styled.Range{Location: 1, Length: 7}))
}

func TestSplitAtSelectionEdges(t *testing.T) {
	got := split(styled.Range{Location: 0, Length: 10}, []int{3, 7})
	assert.Equal(t, []styled.Range{{Location: 0, Length: 3}, {Location: 3, Length: 4}, {Location: 7, Length: 3}}, got)
	assert.Equal(t, []styled.Range{{Location: 0, Length: 10}}, split(styled.Range{Location: 0, Length: 10}, []int{0, 10}))
}
