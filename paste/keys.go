package paste

import "fmt"

// Key identifies a key the injector needs to drive.
type Key int

const (
	KeyShift Key = iota + 1
	KeyControl
	KeyV
)

func (k Key) String() string {
	switch k {
	case KeyShift:
		return "shift"
	case KeyControl:
		return "control"
	case KeyV:
		return "v"
	default:
		return fmt.Sprintf("key(%d)", int(k))
	}
}

// Clipboard writes text to the OS clipboard.
type Clipboard interface {
	SetText(text string) error
}

// Keyboard injects synthetic key events into the OS input layer.
type Keyboard interface {
	SetKeyState(key Key, pressed bool) error
	ClickKey(key Key) error
}
