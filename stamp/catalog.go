package stamp

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Catalog holds the built-in formats plus user-defined ones.
type Catalog struct {
	mu     sync.RWMutex
	custom []Format
}

// NewCatalog creates a catalog seeded with custom formats.
func NewCatalog(custom []Format) *Catalog {
	c := &Catalog{}
	for _, f := range custom {
		if err := validateFormat(f); err != nil {
			continue
		}
		c.custom = append(c.custom, f)
	}
	return c
}

// All returns built-in formats followed by custom ones.
func (c *Catalog) All() []Format {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]Format, 0, len(BuiltinFormats)+len(c.custom))
	out = append(out, BuiltinFormats...)
	return append(out, c.custom...)
}

// Custom returns only user-defined formats.
func (c *Catalog) Custom() []Format {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]Format(nil), c.custom...)
}

// ByKind returns the formats of one kind.
func (c *Catalog) ByKind(kind Kind) []Format {
	var out []Format
	for _, f := range c.All() {
		if f.Kind == kind {
			out = append(out, f)
		}
	}
	return out
}

// Lookup finds a format by id.
func (c *Catalog) Lookup(id string) (Format, error) {
	for _, f := range c.All() {
		if f.ID == id {
			return f, nil
		}
	}
	return Format{}, fmt.Errorf("%w: %s", ErrUnknownFormat, id)
}

// Resolve returns the format for id if it exists and has the right kind,
// and the kind's fallback otherwise.
func (c *Catalog) Resolve(kind Kind, id string) Format {
	if f, err := c.Lookup(id); err == nil && f.Kind == kind {
		return f
	}
	f, _ := c.Lookup(fallbackIDs[kind])
	return f
}

// Add registers a custom format and returns it with its new id.
func (c *Catalog) Add(label, pattern string, kind Kind) (Format, error) {
	f := Format{
		ID:      "custom-" + uuid.NewString(),
		Label:   strings.TrimSpace(label),
		Pattern: pattern,
		Kind:    kind,
	}
	if f.Label == "" {
		f.Label = pattern
	}
	if err := validateFormat(f); err != nil {
		return Format{}, err
	}

	c.mu.Lock()
	c.custom = append(c.custom, f)
	c.mu.Unlock()
	return f, nil
}

// Remove deletes a custom format. Built-in formats cannot be removed.
func (c *Catalog) Remove(id string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, f := range c.custom {
		if f.ID == id {
			c.custom = append(c.custom[:i], c.custom[i+1:]...)
			return nil
		}
	}
	for _, f := range BuiltinFormats {
		if f.ID == id {
			return fmt.Errorf("format %s is built in", id)
		}
	}
	return fmt.Errorf("%w: %s", ErrUnknownFormat, id)
}

func validateFormat(f Format) error {
	if strings.TrimSpace(f.Pattern) == "" {
		return fmt.Errorf("format pattern is empty")
	}
	if _, err := ParseKind(string(f.Kind)); err != nil {
		return err
	}
	if f.ID == "" {
		return fmt.Errorf("format id is empty")
	}
	return nil
}
