package ui

import (
	"image/color"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdedit/internal/editor"
	"mdedit/internal/linkdetect"
	"mdedit/internal/render"
	"mdedit/internal/style"
	"mdedit/pkg/styled"
)

func newState(t *testing.T, md string) *editor.State {
	t.Helper()
	sheet, err := style.NewSheet(style.Default(), style.Cells{})
	require.NoError(t, err)
	st := editor.New(sheet, editor.WithDetector(linkdetect.None))
	require.NoError(t, st.LoadMarkdown(md))
	return st
}

func TestComputeLayout(t *testing.T) {
	l := ComputeLayout(200, 30, DefaultTheme())
	assert.Equal(t, 100, l.PageW)
	assert.Equal(t, 50, l.PageX)
	assert.Equal(t, 1, l.PageY)
	assert.Equal(t, 28, l.PageH)
	assert.Equal(t, 98, l.ContentW)
	assert.Equal(t, 26, l.ContentH)
	assert.Equal(t, 29, l.StatusY)

	small := ComputeLayout(2, 2, DefaultTheme())
	assert.Equal(t, 4, small.PageW)
	assert.Equal(t, 1, small.ContentH)
}

func TestDrawShell(t *testing.T) {
	st := newState(t, "# Notes\n\nplain **bold**")
	st.UpdateSelection(styled.Range{Location: 0})

	fb := render.NewFrameBuffer(40, 8)
	layout := DrawShell(fb, st, ThemeFor(st.Sheet()), "notes.md")
	rows := strings.Split(fb.String(), "\n")

	assert.True(t, strings.HasPrefix(rows[0], " notes.md"), rows[0])
	assert.Contains(t, rows[0], " H ")
	assert.Equal(t, "Notes", pageRow(rows[layout.ContentY]))
	assert.Equal(t, "plain bold", pageRow(rows[layout.ContentY+1]))
	assert.Contains(t, rows[layout.StatusY], "Ln 1, Col 1")

	caret := fb.At(layout.ContentX, layout.ContentY)
	assert.True(t, caret.Style.Reverse)
	assert.Equal(t, 'N', caret.Rune)
}

func TestStatusLine(t *testing.T) {
	st := newState(t, "ab\ncd")
	st.UpdateSelection(styled.Range{Location: 4, Length: 1})
	flow := render.Layout(st.Sheet(), st.Text(), st.Selection(), 20)
	assert.Equal(t, "Ln 2, Col 2 · 5 chars · 2 rows · 1 selected", StatusLine(st, flow))
}

func TestThemeForUsesHeadingColor(t *testing.T) {
	cfg := style.Default()
	cfg.Colors.Heading1 = mustColor(t, "#aa0000")
	sheet, err := style.NewSheet(cfg, style.Cells{})
	require.NoError(t, err)

	th := ThemeFor(sheet)
	assert.Equal(t, cfg.Colors.Heading1, th.Accent)
	assert.NotEqual(t, th.Accent, th.Border)
	assert.Greater(t, int(th.StatusBar.G), int(th.Accent.G))
}

func TestRowOf(t *testing.T) {
	flow := render.Flow{Lines: []render.Line{{Start: 0}, {Start: 4}, {Start: 9}}}
	assert.Equal(t, 0, RowOf(flow, 3))
	assert.Equal(t, 1, RowOf(flow, 4))
	assert.Equal(t, 2, RowOf(flow, 20))
}

func pageRow(row string) string {
	return strings.TrimSpace(strings.Trim(strings.TrimSpace(row), "│"))
}

func mustColor(t *testing.T, hex string) color.RGBA {
	t.Helper()
	c, err := style.ParseColor(hex)
	require.NoError(t, err)
	return c
}
