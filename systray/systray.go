package systray

import (
	"fmt"
	"log/slog"
	"os/exec"
	"runtime"
	"strings"
	"sync"

	"github.com/getlantern/systray"

	"markestedt/datepaste/stamp"
)

// SourceTray tags pastes started from the tray menu
const SourceTray = "tray"

// Paster is the agent side of the tray menu
type Paster interface {
	PasteKind(source string, kind stamp.Kind)
}

// Manager manages the system tray icon and menu
type Manager struct {
	paster   Paster
	hotkeys  map[stamp.Kind]string
	webPort  int
	webUI    bool
	iconData []byte
	quit     chan struct{}
	quitOnce sync.Once
}

// NewManager creates a tray manager. hotkeys are shown next to the menu
// entries; webPort is zero when the settings UI is disabled.
func NewManager(paster Paster, hotkeys map[stamp.Kind]string, webPort int) *Manager {
	return &Manager{
		paster:   paster,
		hotkeys:  hotkeys,
		webPort:  webPort,
		webUI:    webPort > 0,
		iconData: iconData,
		quit:     make(chan struct{}),
	}
}

// Run starts the system tray (blocking call). On macOS it must be called
// from the main goroutine.
func (m *Manager) Run() {
	systray.Run(m.onReady, m.onExit)
}

// Stop stops the system tray
func (m *Manager) Stop() {
	systray.Quit()
}

// WaitForQuit returns a channel that will be closed when user clicks Quit
func (m *Manager) WaitForQuit() <-chan struct{} {
	return m.quit
}

func (m *Manager) onReady() {
	if len(m.iconData) > 0 {
		systray.SetIcon(m.iconData)
	}
	systray.SetTitle("DatePaste")
	systray.SetTooltip("DatePaste - paste the current date and time")

	items := make(map[stamp.Kind]*systray.MenuItem, len(stamp.Kinds))
	for _, kind := range stamp.Kinds {
		items[kind] = systray.AddMenuItem(itemTitle(kind, m.hotkeys[kind]), "Paste into the focused window")
	}
	systray.AddSeparator()
	mSettings := systray.AddMenuItem("Open settings", "Open the DatePaste settings page")
	if !m.webUI {
		mSettings.Disable()
	}
	systray.AddSeparator()
	mQuit := systray.AddMenuItem("Quit", "Exit DatePaste")

	go func() {
		for {
			select {
			case <-items[stamp.KindDate].ClickedCh:
				m.paster.PasteKind(SourceTray, stamp.KindDate)
			case <-items[stamp.KindTime].ClickedCh:
				m.paster.PasteKind(SourceTray, stamp.KindTime)
			case <-items[stamp.KindDateTime].ClickedCh:
				m.paster.PasteKind(SourceTray, stamp.KindDateTime)
			case <-mSettings.ClickedCh:
				m.OpenSettings()
			case <-mQuit.ClickedCh:
				slog.Info("User requested quit from system tray")
				m.quitOnce.Do(func() { close(m.quit) })
				systray.Quit()
				return
			}
		}
	}()
}

func (m *Manager) onExit() {
	slog.Info("System tray exited")
}

// itemTitle builds a menu label such as "Paste date (Ctrl+Shift+D)".
func itemTitle(kind stamp.Kind, hotkey string) string {
	var title string
	switch kind {
	case stamp.KindDate:
		title = "Paste date"
	case stamp.KindTime:
		title = "Paste time"
	default:
		title = "Paste date & time"
	}
	if hotkey == "" {
		return title
	}

	parts := strings.Split(hotkey, "+")
	for i, p := range parts {
		p = strings.TrimSpace(p)
		if len(p) <= 1 {
			parts[i] = strings.ToUpper(p)
		} else {
			parts[i] = strings.ToUpper(p[:1]) + strings.ToLower(p[1:])
		}
	}
	return fmt.Sprintf("%s (%s)", title, strings.Join(parts, "+"))
}

// OpenSettings opens the settings page in the default browser
func (m *Manager) OpenSettings() {
	if !m.webUI {
		return
	}
	url := fmt.Sprintf("http://127.0.0.1:%d", m.webPort)
	slog.Info("Opening settings", "url", url)

	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	case "darwin":
		cmd = exec.Command("open", url)
	case "linux":
		cmd = exec.Command("xdg-open", url)
	default:
		slog.Error("Unsupported platform for opening browser", "platform", runtime.GOOS)
		return
	}

	if err := cmd.Start(); err != nil {
		slog.Error("Failed to open settings", "error", err)
	}
}
