package main

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"markestedt/datepaste/config"
	"markestedt/datepaste/paste"
	"markestedt/datepaste/platform"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
)

type fakeClipboard struct {
	mu    sync.Mutex
	texts []string
	err   error
}

func (c *fakeClipboard) SetText(text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.texts = append(c.texts, text)
	return c.err
}

type fakeKeyboard struct {
	mu     sync.Mutex
	clicks int
	err    error
}

func (k *fakeKeyboard) SetKeyState(key paste.Key, pressed bool) error {
	return nil
}

func (k *fakeKeyboard) ClickKey(key paste.Key) error {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.clicks++
	return k.err
}

type fakeHotkey struct {
	events   chan platform.Event
	err      error
	bindings []platform.Binding
}

func (h *fakeHotkey) Listen(ctx context.Context, bindings []platform.Binding) (<-chan platform.Event, error) {
	h.bindings = bindings
	if h.err != nil {
		return nil, h.err
	}
	return h.events, nil
}

type recordingBroadcaster struct {
	mu       sync.Mutex
	statuses []string
	pastes   []*storage.Paste
}

func (b *recordingBroadcaster) BroadcastStatus(status string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.statuses = append(b.statuses, status)
}

func (b *recordingBroadcaster) BroadcastPaste(p *storage.Paste) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.pastes = append(b.pastes, p)
}

type testAgent struct {
	*Agent
	clipboard *fakeClipboard
	keyboard  *fakeKeyboard
	hotkey    *fakeHotkey
}

func newTestAgent(t *testing.T, debounce time.Duration) *testAgent {
	t.Helper()
	dir := t.TempDir()

	cfg, err := config.LoadFile(filepath.Join(dir, "config.toml"))
	require.NoError(t, err)
	cfg.Paste.DebounceMs = int(debounce / time.Millisecond)
	cfg.Paste.FocusSettleMs = 1
	cfg.Paste.ModifierSettleMs = 1
	cfg.Paste.KeyGapMs = 1

	db, err := storage.Open(dir)
	require.NoError(t, err)

	ta := &testAgent{
		clipboard: &fakeClipboard{},
		keyboard:  &fakeKeyboard{},
		hotkey:    &fakeHotkey{events: make(chan platform.Event, 4)},
	}
	ta.Agent = newAgent(cfg, ta.clipboard, ta.keyboard, ta.hotkey, db)
	t.Cleanup(func() { ta.Close() })
	return ta
}

func (ta *testAgent) history(t *testing.T) []storage.Paste {
	t.Helper()
	ta.pending.Wait()
	pastes, err := ta.db.GetPastes(10, 0)
	require.NoError(t, err)
	return pastes
}

func TestPasteKindRecordsHistory(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)

	ta.PasteKind(SourceHotkey, stamp.KindDate)

	pastes := ta.history(t)
	require.Len(t, pastes, 1)
	p := pastes[0]
	assert.Equal(t, SourceHotkey, p.Source)
	assert.Equal(t, "date", p.Kind)
	assert.Equal(t, "date-1", p.FormatID)
	assert.Regexp(t, `^\d{4}-\d{2}-\d{2}$`, p.Text)
	assert.True(t, p.Success())

	require.Len(t, ta.clipboard.texts, 1)
	assert.Equal(t, p.Text, ta.clipboard.texts[0])
	assert.Equal(t, 1, ta.keyboard.clicks)
	assert.False(t, ta.Status().LastPaste.IsZero())
}

func TestPasteTextIsDebounced(t *testing.T) {
	ta := newTestAgent(t, time.Hour)

	ta.PasteText("api", "first")
	ta.pending.Wait()
	ta.PasteText("api", "second")

	pastes := ta.history(t)
	require.Len(t, pastes, 1)
	assert.Equal(t, "first", pastes[0].Text)
	assert.Equal(t, kindText, pastes[0].Kind)
	assert.Equal(t, []string{"first"}, ta.clipboard.texts)
}

func TestFailedStepsAreRecorded(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)
	ta.clipboard.err = errors.New("clipboard locked")
	ta.keyboard.err = errors.New("no display")

	ta.PasteText("tray", "x")

	pastes := ta.history(t)
	require.Len(t, pastes, 1)
	assert.False(t, pastes[0].ClipboardOK)
	assert.Equal(t, 1, pastes[0].FailedSteps)
	assert.Contains(t, pastes[0].ErrorMessage, "clipboard locked")
	assert.Contains(t, pastes[0].ErrorMessage, "no display")
	assert.Equal(t, 1, ta.keyboard.clicks)
}

func TestBindings(t *testing.T) {
	ta := newTestAgent(t, 0)

	bindings := ta.bindings()
	require.Len(t, bindings, 3)
	assert.Equal(t, "date", bindings[0].ID)
	assert.Equal(t, platform.KeyCombo{Ctrl: true, Shift: true, Key: 0x44}, bindings[0].Combo)
	assert.Equal(t, "datetime", bindings[2].ID)
	assert.Equal(t, 0x43, bindings[2].Combo.Key)

	ta.cfg.Hotkeys.CopyTime = ""
	assert.Len(t, ta.bindings(), 2)
}

func TestRunSkipsUnmappableHotkey(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)
	ta.cfg.Hotkeys.CopyTime = "ctrl+shift+up"

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ta.Run(ctx, false) }()

	ta.hotkey.events <- platform.Event{ID: "date", Type: platform.Pressed}
	require.Eventually(t, func() bool {
		n, err := ta.db.GetPasteCount()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)

	select {
	case err := <-done:
		t.Fatalf("Run returned early: %v", err)
	default:
	}

	cancel()
	require.NoError(t, <-done)
	require.Len(t, ta.hotkey.bindings, 2)
	assert.Equal(t, "date", ta.hotkey.bindings[0].ID)
	assert.Equal(t, "datetime", ta.hotkey.bindings[1].ID)
}

func TestDispatchBroadcastsStatusAndPaste(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)
	rec := &recordingBroadcaster{}
	ta.events = rec

	ta.PasteText("api", "hello")
	ta.pending.Wait()

	assert.Equal(t, []string{statePasting, stateIdle}, rec.statuses)
	require.Len(t, rec.pastes, 1)
	assert.Equal(t, "hello", rec.pastes[0].Text)
	assert.NotZero(t, rec.pastes[0].ID)
}

func TestRunDispatchesHotkeyPresses(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- ta.Run(ctx, false) }()

	ta.hotkey.events <- platform.Event{ID: "time", Type: platform.Pressed}
	ta.hotkey.events <- platform.Event{ID: "time", Type: platform.Released}

	require.Eventually(t, func() bool {
		n, err := ta.db.GetPasteCount()
		return err == nil && n == 1
	}, 2*time.Second, 10*time.Millisecond)
	assert.True(t, ta.Status().HotkeysActive)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not return after cancel")
	}

	pastes := ta.history(t)
	require.Len(t, pastes, 1)
	assert.Equal(t, "time", pastes[0].Kind)
	assert.Equal(t, "time-2", pastes[0].FormatID)
	assert.Len(t, ta.hotkey.bindings, 3)
}

func TestRunWithoutHotkeySupport(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)
	ta.hotkey.err = platform.ErrUnsupported

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	assert.NoError(t, ta.Run(ctx, false))
	assert.False(t, ta.Status().HotkeysActive)
}

func TestRunFailsOnListenerError(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)
	ta.hotkey.err = errors.New("hook refused")

	err := ta.Run(context.Background(), false)
	assert.ErrorContains(t, err, "hook refused")
}

func TestStatusIdle(t *testing.T) {
	ta := newTestAgent(t, 10*time.Millisecond)

	st := ta.Status()
	assert.Equal(t, "idle", st.State)
	assert.True(t, st.LastPaste.IsZero())
}
