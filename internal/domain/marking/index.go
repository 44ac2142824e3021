// Package marking builds the marked-dates index consumed by calendar widgets
// and resolves the per-day event list shown under the calendar.
//
// Everything in this package is a pure function of its inputs. An Index is
// rebuilt from scratch whenever the event list or the selected date changes.
package marking

import (
	"sort"
	"time"

	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
)

// ErrInvalidDate is returned (wrapped in *model.InvalidDateError) when an
// event date or the selected date cannot be parsed.
var ErrInvalidDate = model.ErrInvalidDate

// Dot is one colored marker for one event on a calendar day.
type Dot struct {
	Key   string        `json:"key"`
	Color palette.Color `json:"color"`
}

// Entry is the marking metadata for one calendar day.
type Entry struct {
	Selected          bool  `json:"selected"`
	DisableTouchEvent bool  `json:"disableTouchEvent"`
	Dots              []Dot `json:"dots"`
}

// Index maps calendar days to their marking metadata.
type Index map[model.CalendarDate]*Entry

// Dates returns the index keys in ascending order.
func (idx Index) Dates() []model.CalendarDate {
	out := make([]model.CalendarDate, 0, len(idx))
	for d := range idx {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// DotCount returns the number of dots across all entries.
func (idx Index) DotCount() int {
	n := 0
	for _, e := range idx {
		n += len(e.Dots)
	}
	return n
}

// Selected returns the date carrying the selection flag.
func (idx Index) Selected() (model.CalendarDate, bool) {
	for d, e := range idx {
		if e.Selected {
			return d, true
		}
	}
	return "", false
}

// Builder builds marked-date indexes with a fixed palette and truncation zone.
// A Builder is immutable and safe for concurrent use.
type Builder struct {
	palette  palette.Palette
	location *time.Location
}

// NewBuilder creates a Builder. Without options it uses the default palette
// and truncates timestamps in their own offset.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{palette: palette.Default()}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Palette returns the palette used for dot colors.
func (b *Builder) Palette() palette.Palette { return b.palette }

// Location returns the truncation zone, nil meaning "as written".
func (b *Builder) Location() *time.Location { return b.location }

// Build turns events into a marked-date index for the selected date.
//
// The selected date always gets an entry with Selected and DisableTouchEvent
// set, even when no event falls on it. Each event contributes exactly one
// dot, colored by its global position in events, under the day its
// timestamp truncates to. Any unparseable date fails the whole build.
func (b *Builder) Build(events []model.Event, selected model.CalendarDate) (Index, error) {
	sel, err := model.ParseCalendarDate(string(selected))
	if err != nil {
		return nil, err
	}

	idx := Index{
		sel: {Selected: true, DisableTouchEvent: true, Dots: []Dot{}},
	}
	for i, ev := range events {
		day, err := model.TruncateDate(ev.Date, b.location)
		if err != nil {
			return nil, withEventID(err, ev.ID)
		}
		dot := Dot{Key: ev.ID, Color: b.palette.ColorFor(i)}
		if entry, ok := idx[day]; ok {
			entry.Dots = append(entry.Dots, dot)
			continue
		}
		idx[day] = &Entry{Selected: day == sel, Dots: []Dot{dot}}
	}
	return idx, nil
}

// BuildIndex is Build with a one-off builder for the given palette.
func BuildIndex(events []model.Event, selected model.CalendarDate, p palette.Palette) (Index, error) {
	return NewBuilder(WithPalette(p)).Build(events, selected)
}

func withEventID(err error, id string) error {
	if ide, ok := err.(*model.InvalidDateError); ok { //nolint:errorlint // TruncateDate returns the concrete type
		ide.EventID = id
		return ide
	}
	return err
}
