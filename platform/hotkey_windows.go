//go:build windows

package platform

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"unsafe"

	"golang.org/x/sys/windows"
)

var (
	user32   = windows.NewLazySystemDLL("user32.dll")
	kernel32 = windows.NewLazySystemDLL("kernel32.dll")

	setWindowsHookEx    = user32.NewProc("SetWindowsHookExW")
	callNextHookEx      = user32.NewProc("CallNextHookEx")
	unhookWindowsHookEx = user32.NewProc("UnhookWindowsHookEx")
	getMessage          = user32.NewProc("GetMessageW")
	postThreadMessage   = user32.NewProc("PostThreadMessageW")
	getAsyncKeyState    = user32.NewProc("GetAsyncKeyState")
	getCurrentThreadID  = kernel32.NewProc("GetCurrentThreadId")
)

const (
	whKeyboardLL = 13
	wmKeydown    = 0x0100
	wmSyskeydown = 0x0104
	wmQuit       = 0x0012

	// Set on events we inject ourselves; the hook must not react to them.
	llkhfInjected = 0x10
)

const (
	vkShift = 0x10
	vkCtrl  = 0x11
	vkAlt   = 0x12
	vkLwin  = 0x5B // Left Windows key
	vkRwin  = 0x5C // Right Windows key
)

type kbdllhookstruct struct {
	vkCode      uint32
	scanCode    uint32
	flags       uint32
	time        uint32
	dwExtraInfo uintptr
}

type msg struct {
	hwnd    uintptr
	message uint32
	wParam  uintptr
	lParam  uintptr
	time    uint32
	pt      struct{ x, y int32 }
}

// WindowsHotkey implements the Hotkey interface with a low-level keyboard hook
type WindowsHotkey struct {
	mu       sync.Mutex
	bindings []Binding
	pressed  map[string]bool
	events   chan Event
	hook     uintptr
	threadID uintptr
}

// NewHotkey creates a new Windows hotkey listener
func NewHotkey() Hotkey {
	return &WindowsHotkey{}
}

// Listen starts listening for the given bindings until ctx is done
func (h *WindowsHotkey) Listen(ctx context.Context, bindings []Binding) (<-chan Event, error) {
	if len(bindings) == 0 {
		return nil, fmt.Errorf("no hotkey bindings")
	}

	h.mu.Lock()
	h.bindings = append([]Binding(nil), bindings...)
	h.pressed = make(map[string]bool, len(bindings))
	h.events = make(chan Event, 10)
	h.mu.Unlock()

	errCh := make(chan error, 1)
	go h.runHook(errCh)

	select {
	case err := <-errCh:
		if err != nil {
			return nil, err
		}
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	go func() {
		<-ctx.Done()
		h.mu.Lock()
		tid := h.threadID
		h.mu.Unlock()
		// Wakes GetMessage so the hook thread can unhook and exit.
		postThreadMessage.Call(tid, wmQuit, 0, 0)
	}()

	return h.events, nil
}

func (h *WindowsHotkey) runHook(errCh chan<- error) {
	// The hook is owned by this thread and fires only while it pumps messages.
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()

	hookProc := func(nCode uintptr, wParam uintptr, lParam uintptr) uintptr {
		if int32(nCode) >= 0 {
			kbInfo := (*kbdllhookstruct)(unsafe.Pointer(lParam))
			if h.handleKeyEvent(wParam, kbInfo) {
				// Swallow the chord so the focused app never sees it.
				return 1
			}
		}
		r, _, _ := callNextHookEx.Call(0, nCode, wParam, lParam)
		return r
	}

	hook, _, err := setWindowsHookEx.Call(
		whKeyboardLL,
		windows.NewCallback(hookProc),
		0,
		0,
	)
	if hook == 0 {
		errCh <- fmt.Errorf("SetWindowsHookEx failed: %w", err)
		return
	}

	tid, _, _ := getCurrentThreadID.Call()

	h.mu.Lock()
	h.hook = hook
	h.threadID = tid
	h.mu.Unlock()

	errCh <- nil

	var m msg
	for {
		r, _, _ := getMessage.Call(uintptr(unsafe.Pointer(&m)), 0, 0, 0)
		// 0 is WM_QUIT, -1 is an error; both end the loop.
		if int32(r) <= 0 {
			break
		}
	}

	unhookWindowsHookEx.Call(hook)
	close(h.events)
}

// handleKeyEvent reports whether the event belongs to a binding and should
// be hidden from other applications.
func (h *WindowsHotkey) handleKeyEvent(wParam uintptr, kbInfo *kbdllhookstruct) bool {
	if kbInfo.flags&llkhfInjected != 0 {
		return false
	}
	isKeyDown := wParam == wmKeydown || wParam == wmSyskeydown

	h.mu.Lock()
	defer h.mu.Unlock()

	for _, b := range h.bindings {
		if kbInfo.vkCode != uint32(b.Combo.Key) {
			continue
		}

		if isKeyDown {
			if !h.checkModifiers(b.Combo) {
				continue
			}
			if !h.pressed[b.ID] {
				h.pressed[b.ID] = true
				h.emit(Event{ID: b.ID, Type: Pressed})
			}
			return true
		}

		if h.pressed[b.ID] {
			h.pressed[b.ID] = false
			h.emit(Event{ID: b.ID, Type: Released})
			return true
		}
	}
	return false
}

// emit never blocks the hook; Windows removes hooks that stall.
func (h *WindowsHotkey) emit(evt Event) {
	select {
	case h.events <- evt:
	default:
	}
}

func (h *WindowsHotkey) checkModifiers(combo KeyCombo) bool {
	ctrl := isKeyPressed(vkCtrl)
	shift := isKeyPressed(vkShift)
	alt := isKeyPressed(vkAlt)
	win := isKeyPressed(vkLwin) || isKeyPressed(vkRwin)

	return ctrl == combo.Ctrl &&
		shift == combo.Shift &&
		alt == combo.Alt &&
		win == combo.Win
}

func isKeyPressed(vk int) bool {
	r, _, _ := getAsyncKeyState.Call(uintptr(vk))
	return r&0x8000 != 0
}
