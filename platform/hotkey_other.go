//go:build !windows

package platform

import (
	"context"
	"fmt"
	"runtime"
)

type unsupportedHotkey struct{}

// NewHotkey returns a listener that always fails; on this OS the agent is
// driven from the tray, the local API or the CLI instead.
func NewHotkey() Hotkey {
	return unsupportedHotkey{}
}

func (unsupportedHotkey) Listen(ctx context.Context, bindings []Binding) (<-chan Event, error) {
	return nil, fmt.Errorf("global hotkeys on %s: %w", runtime.GOOS, ErrUnsupported)
}
