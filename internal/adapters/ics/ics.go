// Package ics exports work events as iCalendar and reads them back.
package ics

import (
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	ical "github.com/arran4/golang-ical"

	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
)

const (
	defaultProdID   = "-//calmark//calendar export//EN"
	defaultDuration = time.Hour

	propSourceDate = ical.ComponentProperty("X-CALMARK-DATE")
)

// ErrParse wraps iCalendar input that could not be read.
var ErrParse = errors.New("parse icalendar")

// Encoder writes VCALENDAR documents.
type Encoder struct {
	prodID   string
	duration time.Duration
	location *time.Location
	palette  palette.Palette
	now      func() time.Time
}

// Option configures an Encoder.
type Option func(*Encoder)

// WithDuration sets the length given to timed events, which carry no end.
func WithDuration(d time.Duration) Option {
	return func(e *Encoder) {
		if d > 0 {
			e.duration = d
		}
	}
}

// WithLocation sets the zone date-only events are anchored in.
func WithLocation(loc *time.Location) Option {
	return func(e *Encoder) { e.location = loc }
}

// WithPalette sets the palette COLOR values are drawn from.
func WithPalette(p palette.Palette) Option {
	return func(e *Encoder) {
		if p.Len() > 0 {
			e.palette = p
		}
	}
}

// WithClock fixes DTSTAMP, mostly for tests.
func WithClock(now func() time.Time) Option {
	return func(e *Encoder) {
		if now != nil {
			e.now = now
		}
	}
}

// NewEncoder returns an encoder with one-hour events and the default palette.
func NewEncoder(opts ...Option) *Encoder {
	e := &Encoder{
		prodID:   defaultProdID,
		duration: defaultDuration,
		palette:  palette.Default(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Encode writes one VEVENT per event. Each event's COLOR matches its dot:
// the palette color at its position in the list. A malformed date aborts the
// export with *model.InvalidDateError.
func (e *Encoder) Encode(w io.Writer, workID string, events []model.Event) error {
	cal := ical.NewCalendar()
	cal.SetMethod(ical.MethodPublish)
	cal.SetProductId(e.prodID)
	cal.SetXWRCalName("Work " + workID)

	stamp := e.now().UTC()
	for i, ev := range events {
		start, err := ev.Start(e.location)
		if err != nil {
			return err
		}

		vev := cal.AddEvent(uid(workID, ev.ID))
		vev.SetDtStampTime(stamp)
		if ev.AllDay() {
			vev.SetAllDayStartAt(start)
			vev.SetAllDayEndAt(start.AddDate(0, 0, 1))
		} else {
			vev.SetStartAt(start)
			vev.SetEndAt(start.Add(e.duration))
		}
		if ev.Title != "" {
			vev.SetSummary(ev.Title)
		}
		if ev.Address != "" {
			vev.SetLocation(ev.Address)
		}
		vev.SetProperty(ical.ComponentProperty("COLOR"), string(e.palette.ColorFor(i)))
		// DTSTART is UTC; the feed value keeps the offset the day is truncated in.
		vev.SetProperty(propSourceDate, ev.Date)
	}

	if _, err := io.WriteString(w, cal.Serialize()); err != nil {
		return fmt.Errorf("write calendar: %w", err)
	}
	return nil
}

// uid scopes event ids to the work so exports of different works can be
// imported side by side.
func uid(workID, eventID string) string {
	return eventID + "@" + workID + ".calmark"
}

// Decode reads VEVENTs in document order. UIDs written by Encode are mapped
// back to the bare event id and X-CALMARK-DATE back to the original date.
// Without it, date-only starts come back as YYYY-MM-DD and timed ones as
// RFC3339.
func Decode(r io.Reader) ([]model.Event, error) {
	cal, err := ical.ParseCalendar(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}

	vevents := cal.Events()
	out := make([]model.Event, 0, len(vevents))
	for i, ve := range vevents {
		ev := model.Event{}
		if p := ve.GetProperty(ical.ComponentPropertyUniqueId); p != nil {
			ev.ID = p.Value
			if at := strings.LastIndex(ev.ID, "@"); at > 0 && strings.HasSuffix(ev.ID, ".calmark") {
				ev.ID = ev.ID[:at]
			}
		}
		if p := ve.GetProperty(ical.ComponentPropertySummary); p != nil {
			ev.Title = p.Value
		}
		if p := ve.GetProperty(ical.ComponentPropertyLocation); p != nil {
			ev.Address = p.Value
		}

		if p := ve.GetProperty(propSourceDate); p != nil && strings.TrimSpace(p.Value) != "" {
			ev.Date = p.Value
		} else if allDay(ve) {
			t, err := ve.GetAllDayStartAt()
			if err != nil {
				return nil, fmt.Errorf("%w: event %d: %w", ErrParse, i, err)
			}
			ev.Date = t.Format(model.DateLayout)
		} else {
			t, err := ve.GetStartAt()
			if err != nil {
				return nil, fmt.Errorf("%w: event %d: %w", ErrParse, i, err)
			}
			ev.Date = t.Format(time.RFC3339)
		}
		out = append(out, ev)
	}
	return out, nil
}

func allDay(ve *ical.VEvent) bool {
	p := ve.GetProperty(ical.ComponentPropertyDtStart)
	if p == nil {
		return false
	}
	if vs, ok := p.ICalParameters["VALUE"]; ok && len(vs) > 0 && strings.EqualFold(vs[0], "DATE") {
		return true
	}
	return !strings.Contains(p.Value, "T")
}
