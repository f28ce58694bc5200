// Package platform describes how an editing engine and its host talk to each
// other. Hosts turn widget activity into Events and receive notifications
// through Host.
package platform

import "mdedit/pkg/styled"

type ToggleKind int

const (
	ToggleBold ToggleKind = iota
	ToggleItalic
	ToggleHeading
	ToggleList
)

func (k ToggleKind) String() string {
	switch k {
	case ToggleBold:
		return "bold"
	case ToggleItalic:
		return "italic"
	case ToggleHeading:
		return "heading"
	case ToggleList:
		return "list"
	default:
		return "unknown"
	}
}

// Host receives engine notifications. Calls arrive on the goroutine that
// drives the engine.
type Host interface {
	StyledTextChanged(text styled.Text)
	ToggleStateChanged(which ToggleKind, active bool)
	Pasted(text string)
}

// NopHost ignores every notification.
type NopHost struct{}

func (NopHost) StyledTextChanged(styled.Text)       {}
func (NopHost) ToggleStateChanged(ToggleKind, bool) {}
func (NopHost) Pasted(string)                       {}

type EventType int

const (
	EventUnknown EventType = iota
	EventClose
	EventSelectionChanged
	EventReplaceRequested
	EventPaste
	EventToggle
)

func (t EventType) String() string {
	switch t {
	case EventClose:
		return "close"
	case EventSelectionChanged:
		return "selection-changed"
	case EventReplaceRequested:
		return "replace-requested"
	case EventPaste:
		return "paste"
	case EventToggle:
		return "toggle"
	default:
		return "unknown"
	}
}

// Event is one host-to-engine message. Range and Text are used by selection
// and replacement events, Toggle by toggle events.
type Event struct {
	Type   EventType
	Range  styled.Range
	Text   string
	Toggle ToggleKind
}

// Source yields events in the order the user produced them.
type Source interface {
	Name() string
	PollEvents() []Event
}
