package platform

import (
	"fmt"

	"github.com/go-vgo/robotgo"

	"markestedt/datepaste/paste"
)

var robotKeyNames = map[paste.Key]string{
	paste.KeyShift:   "shift",
	paste.KeyControl: "ctrl",
	paste.KeyV:       "v",
}

// RobotKeyboard injects key events with github.com/go-vgo/robotgo
type RobotKeyboard struct{}

// NewKeyboard creates a keyboard injector for the current OS
func NewKeyboard() *RobotKeyboard {
	return &RobotKeyboard{}
}

// SetKeyState presses or releases key
func (k *RobotKeyboard) SetKeyState(key paste.Key, pressed bool) error {
	name, err := robotKeyName(key)
	if err != nil {
		return err
	}

	state := "up"
	if pressed {
		state = "down"
	}
	if err := robotgo.KeyToggle(name, state); err != nil {
		return fmt.Errorf("toggle %s %s: %w", name, state, err)
	}
	return nil
}

// ClickKey presses and releases key
func (k *RobotKeyboard) ClickKey(key paste.Key) error {
	name, err := robotKeyName(key)
	if err != nil {
		return err
	}
	if err := robotgo.KeyTap(name); err != nil {
		return fmt.Errorf("tap %s: %w", name, err)
	}
	return nil
}

func robotKeyName(key paste.Key) (string, error) {
	name, ok := robotKeyNames[key]
	if !ok {
		return "", fmt.Errorf("no key name for %s", key)
	}
	return name, nil
}
