// Package paste places text on the clipboard and synthesizes a paste
// keystroke into the focused application, at most once per debounce window.
package paste

import "log/slog"

// Paster is the entry point trigger sources call.
type Paster struct {
	gate     *Gate
	injector *Injector
}

// NewPaster combines a gate and an injector.
func NewPaster(gate *Gate, injector *Injector) *Paster {
	return &Paster{
		gate:     gate,
		injector: injector,
	}
}

// Submit pastes text into the focused application. It blocks for the
// injection sequence when accepted and returns immediately when debounced.
// Nothing about the outcome is reported back.
func (p *Paster) Submit(text string) {
	p.Attempt(text)
}

// Attempt is Submit for hosts that keep diagnostics. The bool is false when
// the gate dropped the call, in which case the report is empty.
func (p *Paster) Attempt(text string) (Report, bool) {
	if !p.gate.Accept() {
		slog.Debug("Paste debounced", "window", p.gate.Window())
		return Report{}, false
	}
	return p.injector.Inject(text), true
}
