// Package platform binds the paste core and the agent to the OS: clipboard,
// synthetic keyboard input and global hotkeys.
package platform

import (
	"context"
	"errors"
)

// ErrUnsupported is returned when a facility does not exist on this OS.
var ErrUnsupported = errors.New("unsupported on this platform")

// KeyCombo represents a keyboard key combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   int // Virtual key code
}

// Binding ties a combo to the id reported in events.
type Binding struct {
	ID    string
	Combo KeyCombo
}

// EventType represents the type of hotkey event
type EventType int

const (
	Pressed EventType = iota
	Released
)

func (t EventType) String() string {
	if t == Pressed {
		return "pressed"
	}
	return "released"
}

// Event represents a hotkey event
type Event struct {
	ID   string
	Type EventType
}

// Hotkey provides global hotkey detection
type Hotkey interface {
	Listen(ctx context.Context, bindings []Binding) (<-chan Event, error)
}
