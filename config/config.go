package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"markestedt/datepaste/stamp"
)

// EnvConfigPath overrides the config file location.
const EnvConfigPath = "DATEPASTE_CONFIG"

type Config struct {
	General GeneralConfig `toml:"general"`
	Hotkeys HotkeysConfig `toml:"hotkeys"`
	Format  FormatConfig  `toml:"format"`
	Paste   PasteConfig   `toml:"paste"`
	Web     WebConfig     `toml:"web"`
	Log     LogConfig     `toml:"log"`

	path string
}

type GeneralConfig struct {
	// Autostart is recorded for the installer; registration happens outside the agent.
	Autostart   bool `toml:"autostart"`
	StartHidden bool `toml:"start_hidden"`
	Tray        bool `toml:"tray"`
}

type HotkeysConfig struct {
	CopyDate     string `toml:"copy_date"`
	CopyTime     string `toml:"copy_time"`
	CopyDateTime string `toml:"copy_datetime"`
}

type FormatConfig struct {
	Date     string         `toml:"date"`
	Time     string         `toml:"time"`
	DateTime string         `toml:"datetime"`
	Timezone string         `toml:"timezone"`
	Custom   []stamp.Format `toml:"custom"`
}

type PasteConfig struct {
	DebounceMs       int `toml:"debounce_ms"`
	FocusSettleMs    int `toml:"focus_settle_ms"`
	ModifierSettleMs int `toml:"modifier_settle_ms"`
	KeyGapMs         int `toml:"key_gap_ms"`
}

type WebConfig struct {
	Enabled bool `toml:"enabled"`
	Port    int  `toml:"port"`
}

type LogConfig struct {
	Level      string `toml:"level"`
	File       string `toml:"file"`
	MaxSizeMB  int    `toml:"max_size_mb"`
	MaxBackups int    `toml:"max_backups"`
}

// Default configuration
func defaultConfig() *Config {
	return &Config{
		General: GeneralConfig{
			Autostart:   false,
			StartHidden: false,
			Tray:        true,
		},
		Hotkeys: HotkeysConfig{
			CopyDate:     "ctrl+shift+d",
			CopyTime:     "ctrl+shift+t",
			CopyDateTime: "ctrl+shift+c",
		},
		Format: FormatConfig{
			Date:     stamp.DefaultSelection.Date,
			Time:     stamp.DefaultSelection.Time,
			DateTime: stamp.DefaultSelection.DateTime,
			Timezone: stamp.DefaultSelection.TimezoneID,
		},
		Paste: PasteConfig{
			DebounceMs:       500,
			FocusSettleMs:    200,
			ModifierSettleMs: 50,
			KeyGapMs:         30,
		},
		Web: WebConfig{
			Enabled: true,
			Port:    17345,
		},
		Log: LogConfig{
			Level:      "info",
			MaxSizeMB:  10,
			MaxBackups: 3,
		},
	}
}

// Default returns a configuration with default values and no backing file.
func Default() *Config {
	return defaultConfig()
}

// ConfigDir returns the directory holding the config file and history database
func ConfigDir() (string, error) {
	base, err := os.UserConfigDir()
	if err != nil {
		return "", fmt.Errorf("failed to locate user config directory: %w", err)
	}

	dir := filepath.Join(base, "datepaste")
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create config directory: %w", err)
	}
	return dir, nil
}

// ConfigPath returns the path to the configuration file
func ConfigPath() (string, error) {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p, nil
	}

	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// Load loads the configuration from the default location
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	return LoadFile(path)
}

// LoadFile loads the configuration from path.
// If the file doesn't exist, it creates it with default values
func LoadFile(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := defaultConfig()
		cfg.path = path
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			return nil, fmt.Errorf("failed to create config directory: %w", err)
		}
		if err := cfg.Save(); err != nil {
			return nil, fmt.Errorf("failed to create default config: %w", err)
		}
		return cfg, nil
	}

	cfg := defaultConfig()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	cfg.path = path

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config %s: %w", path, err)
	}
	return cfg, nil
}

// Path returns the file the configuration was loaded from.
func (c *Config) Path() string {
	return c.path
}

// Dir returns the directory of the configuration file.
func (c *Config) Dir() string {
	return filepath.Dir(c.path)
}

// Save writes the configuration back to its file
func (c *Config) Save() error {
	if c.path == "" {
		return fmt.Errorf("config has no file path")
	}

	tmp := c.path + ".tmp"
	f, err := os.Create(tmp)
	if err != nil {
		return err
	}

	enc := toml.NewEncoder(f)
	if err := enc.Encode(c); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return err
	}
	return os.Rename(tmp, c.path)
}

// Validate checks values that would otherwise fail later at runtime
func (c *Config) Validate() error {
	for name, combo := range c.Hotkeys.Bindings() {
		if combo == "" {
			continue
		}
		if _, err := ParseHotkey(combo); err != nil {
			return fmt.Errorf("hotkey %s: %w", name, err)
		}
	}

	catalog := stamp.NewCatalog(c.Format.Custom)
	sel := c.Format.Selection()
	for _, kind := range stamp.Kinds {
		id := sel.FormatID(kind)
		f, err := catalog.Lookup(id)
		if err != nil {
			return fmt.Errorf("%s format: %w", kind, err)
		}
		if f.Kind != kind {
			return fmt.Errorf("%s format %q is a %s format", kind, id, f.Kind)
		}
	}

	if _, ok := stamp.LookupTimezone(c.Format.Timezone); !ok {
		return fmt.Errorf("unknown timezone %q", c.Format.Timezone)
	}

	if c.Web.Port < 0 || c.Web.Port > 65535 {
		return fmt.Errorf("web port %d out of range", c.Web.Port)
	}

	switch strings.ToLower(c.Log.Level) {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("unknown log level %q", c.Log.Level)
	}
	return nil
}

// Bindings maps each stamp kind to its hotkey combo.
func (h HotkeysConfig) Bindings() map[stamp.Kind]string {
	return map[stamp.Kind]string{
		stamp.KindDate:     h.CopyDate,
		stamp.KindTime:     h.CopyTime,
		stamp.KindDateTime: h.CopyDateTime,
	}
}

// Selection returns the format selection the renderer should use.
func (f FormatConfig) Selection() stamp.Selection {
	return stamp.Selection{
		Date:       f.Date,
		Time:       f.Time,
		DateTime:   f.DateTime,
		TimezoneID: f.Timezone,
	}
}

// SetSelection stores sel in the config.
func (f *FormatConfig) SetSelection(sel stamp.Selection) {
	f.Date = sel.Date
	f.Time = sel.Time
	f.DateTime = sel.DateTime
	f.Timezone = sel.TimezoneID
}

// Debounce returns the paste cool-down window.
func (p PasteConfig) Debounce() time.Duration {
	return time.Duration(p.DebounceMs) * time.Millisecond
}

// FocusSettle returns the wait after the clipboard write.
func (p PasteConfig) FocusSettle() time.Duration {
	return time.Duration(p.FocusSettleMs) * time.Millisecond
}

// ModifierSettle returns the wait after modifiers are released.
func (p PasteConfig) ModifierSettle() time.Duration {
	return time.Duration(p.ModifierSettleMs) * time.Millisecond
}

// KeyGap returns the wait between the keys of the paste chord.
func (p PasteConfig) KeyGap() time.Duration {
	return time.Duration(p.KeyGapMs) * time.Millisecond
}

// KeyCombo represents a parsed keyboard combination
type KeyCombo struct {
	Ctrl  bool
	Shift bool
	Alt   bool
	Win   bool
	Key   string
}

// String renders the combo in canonical form, e.g. "ctrl+shift+d".
func (kc KeyCombo) String() string {
	var parts []string
	if kc.Ctrl {
		parts = append(parts, "ctrl")
	}
	if kc.Shift {
		parts = append(parts, "shift")
	}
	if kc.Alt {
		parts = append(parts, "alt")
	}
	if kc.Win {
		parts = append(parts, "win")
	}
	if kc.Key != "" {
		parts = append(parts, kc.Key)
	}
	return strings.Join(parts, "+")
}

// ParseHotkey parses a hotkey combo string like "ctrl+shift+d" or "Ctrl+Shift+D"
func ParseHotkey(combo string) (KeyCombo, error) {
	var kc KeyCombo
	combo = strings.TrimSpace(combo)
	if combo == "" {
		return kc, fmt.Errorf("empty hotkey combo")
	}
	parts := strings.Split(strings.ToLower(combo), "+")

	for i, part := range parts {
		part = strings.TrimSpace(part)

		isModifier := false
		switch part {
		case "ctrl", "control", "cmdorctrl", "commandorcontrol":
			kc.Ctrl = true
			isModifier = true
		case "shift":
			kc.Shift = true
			isModifier = true
		case "alt", "option":
			kc.Alt = true
			isModifier = true
		case "win", "windows", "super", "meta":
			kc.Win = true
			isModifier = true
		}

		if !isModifier {
			if part == "" {
				return kc, fmt.Errorf("empty key in combo %q", combo)
			}
			if i == len(parts)-1 {
				kc.Key = part
			} else {
				return kc, fmt.Errorf("unknown modifier: %s", part)
			}
		}
	}

	if !kc.Ctrl && !kc.Shift && !kc.Alt && !kc.Win {
		return kc, fmt.Errorf("no modifiers or key specified in combo")
	}
	if kc.Key == "" {
		return kc, fmt.Errorf("combo %q has no key", combo)
	}
	if _, err := VKCode(kc.Key); err != nil {
		return kc, err
	}

	return kc, nil
}
