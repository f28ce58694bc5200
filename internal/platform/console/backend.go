// Package console is a headless host. It replays a line-oriented script of
// editing verbs as platform events and records what the engine tells it.
package console

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rivo/uniseg"

	"mdedit/internal/log"
	"mdedit/internal/platform"
	"mdedit/pkg/styled"
)

// Viewer exposes the engine state a keystroke is resolved against.
type Viewer interface {
	Text() styled.Text
	Selection() styled.Range
}

// Backend is both the event source and the notification sink of a scripted
// session.
type Backend struct {
	view    Viewer
	lines   []string
	line    int
	pending []string // grapheme clusters still to be typed
	closed  bool
	log     *slog.Logger

	last    styled.Text
	changes int
	toggles map[platform.ToggleKind]bool
	pasted  []string
}

// New reads the whole script from r.
func New(r io.Reader, view Viewer, logger *slog.Logger) (*Backend, error) {
	b := &Backend{
		view:    view,
		log:     log.For(logger, log.CatHost),
		toggles: make(map[platform.ToggleKind]bool),
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		b.lines = append(b.lines, sc.Text())
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return b, nil
}

// Attach points the backend at the engine it drives. The engine usually
// needs the backend as its host first, so the two are wired in two steps.
func (b *Backend) Attach(view Viewer) { b.view = view }

func (b *Backend) Name() string { return "console" }

// PollEvents returns the events of one keystroke or command. Once the script
// is exhausted it keeps returning a close event.
func (b *Backend) PollEvents() []platform.Event {
	if len(b.pending) > 0 {
		g := b.pending[0]
		b.pending = b.pending[1:]
		return []platform.Event{b.replaceSelection(g)}
	}
	for !b.closed && b.line < len(b.lines) {
		raw := b.lines[b.line]
		b.line++
		evs, err := b.parse(raw)
		if err != nil {
			b.log.Warn("skipping script line", "line", b.line, "err", err)
			continue
		}
		if evs != nil {
			return evs
		}
		if len(b.pending) > 0 {
			return b.PollEvents()
		}
	}
	b.closed = true
	return []platform.Event{{Type: platform.EventClose}}
}

func (b *Backend) parse(raw string) ([]platform.Event, error) {
	line := strings.TrimSpace(raw)
	if line == "" || strings.HasPrefix(line, "#") {
		return nil, nil
	}
	verb, arg, _ := strings.Cut(line, " ")
	arg = strings.TrimSpace(arg)

	switch verb {
	case "type":
		s, err := unquote(arg)
		if err != nil {
			return nil, err
		}
		b.pending = append(b.pending, graphemes(s)...)
		return nil, nil
	case "enter":
		return []platform.Event{b.replaceSelection("\n")}, nil
	case "backspace":
		return []platform.Event{b.deleteBackward()}, nil
	case "delete":
		return []platform.Event{b.deleteForward()}, nil
	case "select":
		var loc, n int
		if _, err := fmt.Sscanf(arg, "%d %d", &loc, &n); err != nil {
			return nil, fmt.Errorf("select wants LOCATION LENGTH: %w", err)
		}
		return []platform.Event{selectRange(styled.Range{Location: loc, Length: n})}, nil
	case "caret":
		loc, err := strconv.Atoi(arg)
		if err != nil {
			return nil, fmt.Errorf("caret wants a LOCATION: %w", err)
		}
		return []platform.Event{selectRange(styled.Range{Location: loc})}, nil
	case "end":
		return []platform.Event{selectRange(styled.Range{Location: b.view.Text().Len()})}, nil
	case "all":
		return []platform.Event{selectRange(b.view.Text().Full())}, nil
	case "bold":
		return toggle(platform.ToggleBold), nil
	case "italic":
		return toggle(platform.ToggleItalic), nil
	case "heading":
		return toggle(platform.ToggleHeading), nil
	case "list":
		return toggle(platform.ToggleList), nil
	case "paste":
		s, err := unquote(arg)
		if err != nil {
			return nil, err
		}
		return []platform.Event{{Type: platform.EventPaste, Text: s}}, nil
	case "close":
		b.closed = true
		return []platform.Event{{Type: platform.EventClose}}, nil
	}
	return nil, fmt.Errorf("unknown verb %q", verb)
}

func (b *Backend) replaceSelection(s string) platform.Event {
	return platform.Event{Type: platform.EventReplaceRequested, Range: b.view.Selection(), Text: s}
}

// deleteBackward removes the selection, or the grapheme cluster before the
// caret.
func (b *Backend) deleteBackward() platform.Event {
	sel := b.view.Selection()
	if sel.Length == 0 && sel.Location > 0 {
		before := b.view.Text().Substring(styled.Range{Length: sel.Location})
		n := lastGraphemeLen(before)
		sel = styled.Range{Location: sel.Location - n, Length: n}
	}
	return platform.Event{Type: platform.EventReplaceRequested, Range: sel}
}

func (b *Backend) deleteForward() platform.Event {
	sel := b.view.Selection()
	text := b.view.Text()
	if sel.Length == 0 && sel.Location < text.Len() {
		after := text.Substring(styled.Range{Location: sel.Location, Length: text.Len() - sel.Location})
		g := uniseg.NewGraphemes(after)
		if g.Next() {
			sel.Length = len(g.Runes())
		}
	}
	return platform.Event{Type: platform.EventReplaceRequested, Range: sel}
}

func (b *Backend) StyledTextChanged(t styled.Text) {
	b.changes++
	b.last = t
	b.log.Debug("text changed", "len", t.Len(), "changes", b.changes)
}

func (b *Backend) ToggleStateChanged(which platform.ToggleKind, active bool) {
	b.toggles[which] = active
	b.log.Debug("toggle changed", "toggle", which, "active", active)
}

func (b *Backend) Pasted(s string) {
	b.pasted = append(b.pasted, s)
	b.log.Debug("pasted", "len", len(s))
}

// Changes counts StyledTextChanged notifications.
func (b *Backend) Changes() int         { return b.changes }
func (b *Backend) LastText() styled.Text { return b.last }
func (b *Backend) Pastes() []string      { return append([]string(nil), b.pasted...) }

func (b *Backend) Toggle(which platform.ToggleKind) bool { return b.toggles[which] }

func selectRange(r styled.Range) platform.Event {
	return platform.Event{Type: platform.EventSelectionChanged, Range: r}
}

func toggle(kind platform.ToggleKind) []platform.Event {
	return []platform.Event{{Type: platform.EventToggle, Toggle: kind}}
}

// unquote accepts a Go string literal, so scripts can spell tabs and
// newlines, or bare text taken as is.
func unquote(arg string) (string, error) {
	if strings.HasPrefix(arg, `"`) {
		s, err := strconv.Unquote(arg)
		if err != nil {
			return "", fmt.Errorf("bad quoted text %s: %w", arg, err)
		}
		return s, nil
	}
	return arg, nil
}

func graphemes(s string) []string {
	var out []string
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		out = append(out, g.Str())
	}
	return out
}

// lastGraphemeLen is the rune length of the final grapheme cluster of s.
func lastGraphemeLen(s string) int {
	n := 0
	g := uniseg.NewGraphemes(s)
	for g.Next() {
		n = len(g.Runes())
	}
	return n
}
