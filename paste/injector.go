package paste

import (
	"fmt"
	"log/slog"
	"time"
)

// State is a step of the injection sequence.
type State int

const (
	StateIdle State = iota
	StateClipboardSet
	StateSettled1
	StateModifiersReleased
	StateSettled2
	StateCtrlPressed
	StateVClicked
	StateCtrlReleased
)

var stateNames = map[State]string{
	StateIdle:              "idle",
	StateClipboardSet:      "clipboard_set",
	StateSettled1:          "settled_1",
	StateModifiersReleased: "modifiers_released",
	StateSettled2:          "settled_2",
	StateCtrlPressed:       "ctrl_pressed",
	StateVClicked:          "v_clicked",
	StateCtrlReleased:      "ctrl_released",
}

func (s State) String() string {
	if name, ok := stateNames[s]; ok {
		return name
	}
	return fmt.Sprintf("state(%d)", int(s))
}

// Timing holds the waits between injection steps.
type Timing struct {
	// FocusSettle follows the clipboard write. The trigger's own key-up must
	// reach the focused window before any synthetic key is sent, or the two
	// race and the target sees a mangled chord.
	FocusSettle time.Duration
	// ModifierSettle follows the Shift/Control release so the input queue
	// drains the releases before the Control press is injected.
	ModifierSettle time.Duration
	// KeyGap separates Control press, the v click and Control release.
	// Some toolkits drop a chord whose parts arrive in the same tick.
	KeyGap time.Duration
}

// DefaultTiming is the sequence timing used when none is configured.
var DefaultTiming = Timing{
	FocusSettle:    200 * time.Millisecond,
	ModifierSettle: 50 * time.Millisecond,
	KeyGap:         30 * time.Millisecond,
}

// Total returns the time an accepted paste blocks its caller.
func (t Timing) Total() time.Duration {
	return t.FocusSettle + t.ModifierSettle + 2*t.KeyGap
}

func (t Timing) withDefaults() Timing {
	if t.FocusSettle <= 0 {
		t.FocusSettle = DefaultTiming.FocusSettle
	}
	if t.ModifierSettle <= 0 {
		t.ModifierSettle = DefaultTiming.ModifierSettle
	}
	if t.KeyGap <= 0 {
		t.KeyGap = DefaultTiming.KeyGap
	}
	return t
}

// StepError records a key step that failed and was skipped over.
type StepError struct {
	State State
	Key   Key
	Err   error
}

func (e StepError) Error() string {
	return fmt.Sprintf("%s (%s): %v", e.State, e.Key, e.Err)
}

// Report describes what one injection actually did.
type Report struct {
	Text         string
	Started      time.Time
	Duration     time.Duration
	ClipboardErr error
	KeyErrors    []StepError
	Trace        []State
}

// OK reports whether every step succeeded.
func (r Report) OK() bool {
	return r.ClipboardErr == nil && len(r.KeyErrors) == 0
}

// Injector writes text to the clipboard and synthesizes Ctrl+V.
type Injector struct {
	clipboard Clipboard
	keyboard  Keyboard
	timing    Timing

	sleep func(time.Duration)
	now   func() time.Time
}

// NewInjector creates an injector. Zero fields in timing fall back to
// DefaultTiming.
func NewInjector(clipboard Clipboard, keyboard Keyboard, timing Timing) *Injector {
	return &Injector{
		clipboard: clipboard,
		keyboard:  keyboard,
		timing:    timing.withDefaults(),
		sleep:     time.Sleep,
		now:       time.Now,
	}
}

// Timing returns the injector's effective timing.
func (in *Injector) Timing() Timing {
	return in.timing
}

// Inject runs the whole sequence on the calling goroutine:
//
//	Idle -> ClipboardSet -> Settled1 -> ModifiersReleased -> Settled2
//	     -> CtrlPressed -> VClicked -> CtrlReleased -> Idle
//
// No step aborts the sequence. A failed step is logged and recorded in the
// report; the next step runs regardless.
func (in *Injector) Inject(text string) Report {
	r := Report{Text: text, Started: in.now()}

	if err := in.clipboard.SetText(text); err != nil {
		// Still send the keys: the target may already hold the text, and
		// some platforms report transient clipboard errors after writing.
		r.ClipboardErr = err
		discard("clipboard write", err)
	}
	r.Trace = append(r.Trace, StateClipboardSet)

	in.sleep(in.timing.FocusSettle)
	r.Trace = append(r.Trace, StateSettled1)

	// Released unconditionally: the user may still be holding part of the
	// trigger chord, and a stuck Shift would turn the paste into Ctrl+Shift+V.
	in.setKey(&r, StateModifiersReleased, KeyShift, false)
	in.setKey(&r, StateModifiersReleased, KeyControl, false)
	r.Trace = append(r.Trace, StateModifiersReleased)

	in.sleep(in.timing.ModifierSettle)
	r.Trace = append(r.Trace, StateSettled2)

	in.setKey(&r, StateCtrlPressed, KeyControl, true)
	r.Trace = append(r.Trace, StateCtrlPressed)
	in.sleep(in.timing.KeyGap)

	if err := in.keyboard.ClickKey(KeyV); err != nil {
		r.KeyErrors = append(r.KeyErrors, StepError{State: StateVClicked, Key: KeyV, Err: err})
		discard("key click", err, "key", KeyV)
	}
	r.Trace = append(r.Trace, StateVClicked)
	in.sleep(in.timing.KeyGap)

	// Attempted even when the press failed; releasing an unpressed key is harmless.
	in.setKey(&r, StateCtrlReleased, KeyControl, false)
	r.Trace = append(r.Trace, StateCtrlReleased, StateIdle)

	r.Duration = in.now().Sub(r.Started)
	return r
}

func (in *Injector) setKey(r *Report, state State, key Key, pressed bool) {
	if err := in.keyboard.SetKeyState(key, pressed); err != nil {
		r.KeyErrors = append(r.KeyErrors, StepError{State: state, Key: key, Err: err})
		discard("key toggle", err, "key", key, "pressed", pressed)
	}
}

// discard is the single place where collaborator errors are dropped.
func discard(step string, err error, args ...any) {
	attrs := append([]any{"step", step, "error", err}, args...)
	slog.Warn("Paste step failed, continuing", attrs...)
}
