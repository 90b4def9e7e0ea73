// Package stamp renders the current date and time in user-selected formats.
package stamp

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Kind selects which part of a timestamp a format renders.
type Kind string

const (
	KindDate     Kind = "date"
	KindTime     Kind = "time"
	KindDateTime Kind = "datetime"
)

// Kinds lists every kind in display order.
var Kinds = []Kind{KindDate, KindTime, KindDateTime}

// ParseKind validates a kind name.
func ParseKind(s string) (Kind, error) {
	switch k := Kind(strings.ToLower(strings.TrimSpace(s))); k {
	case KindDate, KindTime, KindDateTime:
		return k, nil
	}
	return "", fmt.Errorf("unknown kind %q (want date, time or datetime)", s)
}

// ErrUnknownFormat is returned when a format id is not in the catalog.
var ErrUnknownFormat = errors.New("unknown format")

// Format is a named pattern.
type Format struct {
	ID      string `json:"id" toml:"id"`
	Label   string `json:"label" toml:"label"`
	Pattern string `json:"format" toml:"format"`
	Kind    Kind   `json:"type" toml:"type"`
}

// BuiltinFormats are always available and cannot be removed.
var BuiltinFormats = []Format{
	{ID: "date-1", Label: "YYYY-MM-DD", Pattern: "YYYY-MM-DD", Kind: KindDate},
	{ID: "date-2", Label: "YYYY/MM/DD", Pattern: "YYYY/MM/DD", Kind: KindDate},
	{ID: "date-3", Label: "YYYY年MM月DD日", Pattern: "YYYY年MM月DD日", Kind: KindDate},
	{ID: "date-4", Label: "MM-DD-YYYY", Pattern: "MM-DD-YYYY", Kind: KindDate},
	{ID: "date-5", Label: "DD/MM/YYYY", Pattern: "DD/MM/YYYY", Kind: KindDate},

	{ID: "time-1", Label: "HH:mm:ss", Pattern: "HH:mm:ss", Kind: KindTime},
	{ID: "time-2", Label: "HH:mm", Pattern: "HH:mm", Kind: KindTime},
	{ID: "time-3", Label: "hh:mm:ss A", Pattern: "hh:mm:ss A", Kind: KindTime},
	{ID: "time-4", Label: "hh:mm A", Pattern: "hh:mm A", Kind: KindTime},
	{ID: "time-5", Label: "HH时mm分ss秒", Pattern: "HH时mm分ss秒", Kind: KindTime},
	{ID: "time-6", Label: "HH时mm分", Pattern: "HH时mm分", Kind: KindTime},

	{ID: "datetime-1", Label: "YYYY-MM-DD HH:mm:ss", Pattern: "YYYY-MM-DD HH:mm:ss", Kind: KindDateTime},
	{ID: "datetime-2", Label: "YYYY-MM-DD HH:mm", Pattern: "YYYY-MM-DD HH:mm", Kind: KindDateTime},
	{ID: "datetime-3", Label: "YYYY年MM月DD日 HH:mm", Pattern: "YYYY年MM月DD日 HH:mm", Kind: KindDateTime},
}

// fallbackIDs is what a kind resolves to when the selected id is gone.
var fallbackIDs = map[Kind]string{
	KindDate:     "date-1",
	KindTime:     "time-2",
	KindDateTime: "datetime-1",
}

// tokens are matched longest first at each position.
var tokens = []string{"YYYY", "MM", "DD", "HH", "hh", "mm", "ss", "A"}

// Apply renders t with pattern. Recognized tokens:
//
//	YYYY  four-digit year
//	MM    month 01-12
//	DD    day 01-31
//	HH    hour 00-23
//	hh    hour 01-12
//	mm    minute 00-59
//	ss    second 00-59
//	A     AM or PM
//
// Everything else is copied verbatim.
func Apply(pattern string, t time.Time) string {
	var b strings.Builder
	b.Grow(len(pattern) + 8)

	for i := 0; i < len(pattern); {
		matched := false
		for _, tok := range tokens {
			if strings.HasPrefix(pattern[i:], tok) {
				b.WriteString(expand(tok, t))
				i += len(tok)
				matched = true
				break
			}
		}
		if !matched {
			b.WriteByte(pattern[i])
			i++
		}
	}
	return b.String()
}

func expand(tok string, t time.Time) string {
	switch tok {
	case "YYYY":
		return strconv.Itoa(t.Year())
	case "MM":
		return pad2(int(t.Month()))
	case "DD":
		return pad2(t.Day())
	case "HH":
		return pad2(t.Hour())
	case "hh":
		h := t.Hour() % 12
		if h == 0 {
			h = 12
		}
		return pad2(h)
	case "mm":
		return pad2(t.Minute())
	case "ss":
		return pad2(t.Second())
	case "A":
		if t.Hour() < 12 {
			return "AM"
		}
		return "PM"
	}
	return tok
}

func pad2(n int) string {
	if n < 10 {
		return "0" + strconv.Itoa(n)
	}
	return strconv.Itoa(n)
}
