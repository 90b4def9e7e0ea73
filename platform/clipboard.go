package platform

import (
	"fmt"

	"github.com/atotto/clipboard"
)

// SystemClipboard writes to the OS clipboard through github.com/atotto/clipboard.
type SystemClipboard struct{}

// NewClipboard creates a clipboard for the current OS
func NewClipboard() *SystemClipboard {
	return &SystemClipboard{}
}

// SetText replaces the clipboard contents with text
func (c *SystemClipboard) SetText(text string) error {
	if clipboard.Unsupported {
		return fmt.Errorf("clipboard: %w", ErrUnsupported)
	}
	if err := clipboard.WriteAll(text); err != nil {
		return fmt.Errorf("clipboard write: %w", err)
	}
	return nil
}
