package stamp

import (
	"sync"
	"time"
)

// Selection is which format each kind uses and the display zone.
type Selection struct {
	Date       string `json:"dateFormatId"`
	Time       string `json:"timeFormatId"`
	DateTime   string `json:"datetimeFormatId"`
	TimezoneID string `json:"timezoneId"`
}

// DefaultSelection matches a fresh install.
var DefaultSelection = Selection{
	Date:       "date-1",
	Time:       "time-2",
	DateTime:   "datetime-2",
	TimezoneID: LocalTimezoneID,
}

// FormatID returns the selected id for kind.
func (s Selection) FormatID(kind Kind) string {
	switch kind {
	case KindDate:
		return s.Date
	case KindTime:
		return s.Time
	default:
		return s.DateTime
	}
}

// Renderer turns a kind into text using the current selection.
type Renderer struct {
	catalog *Catalog

	mu  sync.RWMutex
	sel Selection
	now func() time.Time
}

// NewRenderer creates a renderer over catalog.
func NewRenderer(catalog *Catalog, sel Selection) *Renderer {
	return &Renderer{
		catalog: catalog,
		sel:     sel,
		now:     time.Now,
	}
}

// Catalog returns the renderer's catalog.
func (r *Renderer) Catalog() *Catalog {
	return r.catalog
}

// Selection returns the current selection.
func (r *Renderer) Selection() Selection {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.sel
}

// Select replaces the current selection.
func (r *Renderer) Select(sel Selection) {
	r.mu.Lock()
	r.sel = sel
	r.mu.Unlock()
}

// Timezone returns the selected zone, falling back to local.
func (r *Renderer) Timezone() Timezone {
	tz, ok := LookupTimezone(r.Selection().TimezoneID)
	if !ok {
		tz, _ = LookupTimezone(LocalTimezoneID)
	}
	return tz
}

// Render formats t for kind.
func (r *Renderer) Render(kind Kind, t time.Time) string {
	sel := r.Selection()
	f := r.catalog.Resolve(kind, sel.FormatID(kind))
	return Apply(f.Pattern, t.In(r.Timezone().Location()))
}

// Now formats the current time for kind.
func (r *Renderer) Now(kind Kind) string {
	return r.Render(kind, r.now())
}

// Preview renders every kind at the current time.
func (r *Renderer) Preview() map[Kind]string {
	t := r.now()
	out := make(map[Kind]string, len(Kinds))
	for _, k := range Kinds {
		out[k] = r.Render(k, t)
	}
	return out
}
