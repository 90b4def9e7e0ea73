package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"markestedt/datepaste/config"
	"markestedt/datepaste/paste"
	"markestedt/datepaste/platform"
	"markestedt/datepaste/stamp"
	"markestedt/datepaste/storage"
	"markestedt/datepaste/web"
)

// SourceHotkey tags pastes started by a global shortcut
const SourceHotkey = "hotkey"

// kindText is the history kind of pastes that carry caller-supplied text
const kindText = "text"

// Agent states reported by Status and broadcast to settings pages
const (
	stateIdle    = "idle"
	statePasting = "pasting"
)

// broadcaster pushes agent events to connected settings pages
type broadcaster interface {
	BroadcastStatus(status string)
	BroadcastPaste(p *storage.Paste)
}

// Agent coordinates trigger sources, rendering and the paste core
type Agent struct {
	cfg      *config.Config
	renderer *stamp.Renderer
	paster   *paste.Paster
	hotkey   platform.Hotkey
	db       *storage.DB
	web      *web.Server
	events   broadcaster

	started       time.Time
	pending       sync.WaitGroup
	busy          atomic.Int32
	hotkeysActive atomic.Bool

	mu        sync.Mutex
	lastPaste time.Time
}

// NewAgent creates a new agent instance
func NewAgent(cfg *config.Config) (*Agent, error) {
	db, err := storage.Open(cfg.Dir())
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	return newAgent(cfg, platform.NewClipboard(), platform.NewKeyboard(), platform.NewHotkey(), db), nil
}

func newAgent(cfg *config.Config, clipboard paste.Clipboard, keyboard paste.Keyboard, hotkey platform.Hotkey, db *storage.DB) *Agent {
	timing := paste.Timing{
		FocusSettle:    cfg.Paste.FocusSettle(),
		ModifierSettle: cfg.Paste.ModifierSettle(),
		KeyGap:         cfg.Paste.KeyGap(),
	}

	a := &Agent{
		cfg:      cfg,
		renderer: stamp.NewRenderer(stamp.NewCatalog(cfg.Format.Custom), cfg.Format.Selection()),
		paster:   paste.NewPaster(paste.NewGate(cfg.Paste.Debounce()), paste.NewInjector(clipboard, keyboard, timing)),
		hotkey:   hotkey,
		db:       db,
		started:  time.Now(),
	}
	a.web = web.NewServer(db, cfg, a.renderer, a)
	a.events = a.web
	return a
}

// Run listens for hotkeys and, when withWeb is set, serves the local API
// until ctx is cancelled. In-flight pastes finish before it returns.
func (a *Agent) Run(ctx context.Context, withWeb bool) error {
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return a.listenHotkeys(gctx)
	})
	if withWeb {
		g.Go(func() error {
			return a.web.Start(gctx)
		})
	}

	slog.Info("DatePaste started",
		"date", a.cfg.Hotkeys.CopyDate,
		"time", a.cfg.Hotkeys.CopyTime,
		"datetime", a.cfg.Hotkeys.CopyDateTime,
		"timezone", a.renderer.Timezone().ID,
		"web", withWeb,
	)

	err := g.Wait()
	a.pending.Wait()
	return err
}

// Close releases the history database
func (a *Agent) Close() error {
	return a.db.Close()
}

func (a *Agent) listenHotkeys(ctx context.Context) error {
	bindings := a.bindings()
	if len(bindings) == 0 {
		slog.Info("No hotkeys configured")
		<-ctx.Done()
		return nil
	}

	events, err := a.hotkey.Listen(ctx, bindings)
	if errors.Is(err, platform.ErrUnsupported) {
		slog.Warn("Global hotkeys unavailable, use the tray or the local API", "error", err)
		<-ctx.Done()
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to start hotkey listener: %w", err)
	}

	a.hotkeysActive.Store(true)
	defer a.hotkeysActive.Store(false)

	for {
		select {
		case <-ctx.Done():
			return nil

		case evt, ok := <-events:
			if !ok {
				return nil
			}
			if evt.Type != platform.Pressed {
				continue
			}
			kind, err := stamp.ParseKind(evt.ID)
			if err != nil {
				slog.Warn("Ignoring event for unknown binding", "id", evt.ID)
				continue
			}
			a.PasteKind(SourceHotkey, kind)
		}
	}
}

// bindings converts the configured shortcuts into listener bindings. The
// binding id is the stamp kind. A combo that cannot be bound is skipped so
// the remaining triggers keep working.
func (a *Agent) bindings() []platform.Binding {
	combos := a.cfg.Hotkeys.Bindings()

	var out []platform.Binding
	for _, kind := range stamp.Kinds {
		combo := combos[kind]
		if combo == "" {
			continue
		}
		kc, err := config.ParseHotkey(combo)
		if err != nil {
			slog.Warn("Skipping hotkey", "kind", kind, "combo", combo, "error", err)
			continue
		}
		vk, err := config.VKCode(kc.Key)
		if err != nil {
			slog.Warn("Skipping hotkey", "kind", kind, "combo", combo, "error", err)
			continue
		}
		out = append(out, platform.Binding{
			ID: string(kind),
			Combo: platform.KeyCombo{
				Ctrl:  kc.Ctrl,
				Shift: kc.Shift,
				Alt:   kc.Alt,
				Win:   kc.Win,
				Key:   vk,
			},
		})
	}
	return out
}

// PasteKind renders the current date/time of kind and pastes it
func (a *Agent) PasteKind(source string, kind stamp.Kind) {
	sel := a.renderer.Selection()
	f := a.renderer.Catalog().Resolve(kind, sel.FormatID(kind))
	text := a.renderer.Now(kind)
	a.dispatch(source, string(kind), f.ID, text)
}

// PasteText pastes caller-supplied text
func (a *Agent) PasteText(source, text string) {
	a.dispatch(source, kindText, "", text)
}

// dispatch runs the paste on its own goroutine so trigger sources never
// wait for the injection sequence.
func (a *Agent) dispatch(source, kind, formatID, text string) {
	a.pending.Add(1)
	go func() {
		defer a.pending.Done()

		if a.busy.Add(1) == 1 {
			a.events.BroadcastStatus(statePasting)
		}
		report, accepted := a.paster.Attempt(text)
		if a.busy.Add(-1) == 0 {
			a.events.BroadcastStatus(stateIdle)
		}
		if !accepted {
			return
		}
		a.record(source, kind, formatID, report)
	}()
}

func (a *Agent) record(source, kind, formatID string, report paste.Report) {
	a.mu.Lock()
	a.lastPaste = report.Started
	a.mu.Unlock()

	p := &storage.Paste{
		Timestamp:   report.Started,
		Source:      source,
		Kind:        kind,
		FormatID:    formatID,
		Text:        report.Text,
		DurationMs:  report.Duration.Milliseconds(),
		ClipboardOK: report.ClipboardErr == nil,
		FailedSteps: len(report.KeyErrors),
	}
	if !report.OK() {
		errs := []error{report.ClipboardErr}
		for _, e := range report.KeyErrors {
			errs = append(errs, e)
		}
		p.ErrorMessage = errors.Join(errs...).Error()
	}

	slog.Info("Pasted", "source", source, "kind", kind, "chars", len([]rune(report.Text)), "ok", report.OK(), "duration", report.Duration)

	if err := a.db.SavePaste(p); err != nil {
		slog.Error("Failed to save paste to history", "error", err)
		return
	}
	a.events.BroadcastPaste(p)
}

// Status reports what the agent is doing
func (a *Agent) Status() web.Status {
	state := stateIdle
	if a.busy.Load() > 0 {
		state = statePasting
	}

	a.mu.Lock()
	last := a.lastPaste
	a.mu.Unlock()

	return web.Status{
		State:         state,
		LastPaste:     last,
		HotkeysActive: a.hotkeysActive.Load(),
		Uptime:        time.Since(a.started).Round(time.Second).String(),
	}
}
