package marking

import (
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
)

// LookupSource tells how a color lookup was resolved.
type LookupSource int

const (
	// FromIndex means the event's dot was found under the requested date.
	FromIndex LookupSource = iota
	// FromPosition means the index had no dot and the color was re-derived
	// from the event's position in the full event list.
	FromPosition
	// LookupMiss means neither the index nor the event list knew the event.
	LookupMiss
)

func (s LookupSource) String() string {
	switch s {
	case FromIndex:
		return "index"
	case FromPosition:
		return "position"
	default:
		return "miss"
	}
}

// EventsOnDate returns the events whose date truncates to target, in their
// original order.
func EventsOnDate(events []model.Event, target model.CalendarDate, b *Builder) ([]model.Event, error) {
	if b == nil {
		b = NewBuilder()
	}
	out := make([]model.Event, 0)
	for _, ev := range events {
		day, err := model.TruncateDate(ev.Date, b.location)
		if err != nil {
			return nil, withEventID(err, ev.ID)
		}
		if day == target {
			out = append(out, ev)
		}
	}
	return out, nil
}

// DayEvent pairs an event with the color of its dot.
type DayEvent struct {
	model.Event
	Color  palette.Color
	Source LookupSource
}

// Selector resolves day lists and event colors against an Index built from
// the same event list.
type Selector struct {
	builder       *Builder
	events        []model.Event
	staleFallback bool
}

// NewSelector binds a selector to the full event list the index was (or will
// be) built from.
func NewSelector(b *Builder, events []model.Event, opts ...SelectorOption) *Selector {
	if b == nil {
		b = NewBuilder()
	}
	s := &Selector{builder: b, events: events, staleFallback: true}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ColorOf returns the color of eventID's dot under date.
//
// When the index has no such dot (an index built before the event existed)
// and the stale fallback is enabled, the color is re-derived from the event's
// position in the full list. If the event is unknown altogether the first
// palette color is returned. A miss is never an error.
func (s *Selector) ColorOf(idx Index, date model.CalendarDate, eventID string) palette.Color {
	c, _ := s.LookupColor(idx, date, eventID)
	return c
}

// LookupColor is ColorOf that also reports how the color was resolved.
func (s *Selector) LookupColor(idx Index, date model.CalendarDate, eventID string) (palette.Color, LookupSource) {
	if entry, ok := idx[date]; ok {
		for _, d := range entry.Dots {
			if d.Key == eventID {
				return d.Color, FromIndex
			}
		}
	}
	p := s.builder.palette
	if s.staleFallback {
		for i, ev := range s.events {
			if ev.ID == eventID {
				return p.ColorFor(i), FromPosition
			}
		}
	}
	return p.ColorFor(0), LookupMiss
}

// Day returns the events on date, each with its resolved dot color.
func (s *Selector) Day(idx Index, date model.CalendarDate) ([]DayEvent, error) {
	evs, err := EventsOnDate(s.events, date, s.builder)
	if err != nil {
		return nil, err
	}
	out := make([]DayEvent, len(evs))
	for i, ev := range evs {
		c, src := s.LookupColor(idx, date, ev.ID)
		out[i] = DayEvent{Event: ev, Color: c, Source: src}
	}
	return out, nil
}
