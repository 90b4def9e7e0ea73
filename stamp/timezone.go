package stamp

import (
	"fmt"
	"time"
)

// Timezone is a selectable display zone.
type Timezone struct {
	ID     string  `json:"id"`
	Label  string  `json:"label"`
	Offset float64 `json:"offset"` // hours east of UTC; ignored for local
}

// LocalTimezoneID selects the host's zone.
const LocalTimezoneID = "local"

// Timezones lists the selectable zones.
var Timezones = []Timezone{
	{ID: LocalTimezoneID, Label: "Local time"},
	{ID: "utc", Label: "UTC", Offset: 0},
	{ID: "utc+8", Label: "UTC+8 (Beijing/Shanghai)", Offset: 8},
	{ID: "utc+9", Label: "UTC+9 (Tokyo/Seoul)", Offset: 9},
	{ID: "utc+5.5", Label: "UTC+5:30 (India)", Offset: 5.5},
	{ID: "utc+1", Label: "UTC+1 (Central Europe)", Offset: 1},
	{ID: "utc+0", Label: "UTC+0 (London)", Offset: 0},
	{ID: "utc-5", Label: "UTC-5 (New York)", Offset: -5},
	{ID: "utc-8", Label: "UTC-8 (Los Angeles)", Offset: -8},
}

// LookupTimezone finds a zone by id.
func LookupTimezone(id string) (Timezone, bool) {
	for _, tz := range Timezones {
		if tz.ID == id {
			return tz, true
		}
	}
	return Timezone{}, false
}

// Location returns the time.Location the zone renders in.
func (tz Timezone) Location() *time.Location {
	if tz.ID == LocalTimezoneID {
		return time.Local
	}
	return time.FixedZone(tz.ID, int(tz.Offset*3600))
}

// CurrentOffset returns the zone's offset from UTC in hours at t.
func (tz Timezone) CurrentOffset(t time.Time) float64 {
	if tz.ID != LocalTimezoneID {
		return tz.Offset
	}
	_, secs := t.In(time.Local).Zone()
	return float64(secs) / 3600
}

func (tz Timezone) String() string {
	return fmt.Sprintf("%s (%s)", tz.Label, tz.ID)
}
