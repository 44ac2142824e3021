// Package model contains domain models passed between layers.
package model

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DateLayout is the canonical CalendarDate layout.
const DateLayout = "2006-01-02"

// ErrInvalidDate is the sentinel wrapped by every InvalidDateError.
var ErrInvalidDate = errors.New("invalid date")

// timestampLayouts are tried in order when truncating an event timestamp.
var timestampLayouts = []string{ //nolint:gochecknoglobals // read-only layout table
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02T15:04:05",
	DateLayout,
}

// Event is a dated work event as returned by the remote project API.
// Date holds the ISO-8601 timestamp exactly as received.
type Event struct {
	ID      string
	Date    string
	Title   string
	Address string
}

// CalendarDate is a date-only key in YYYY-MM-DD form.
type CalendarDate string

// String implements fmt.Stringer.
func (d CalendarDate) String() string { return string(d) }

// Time returns midnight of the date in loc (UTC when loc is nil).
func (d CalendarDate) Time(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(DateLayout, string(d), loc)
	if err != nil {
		return time.Time{}, &InvalidDateError{Value: string(d), Err: err}
	}
	return t, nil
}

// DateOf returns the CalendarDate of t in t's own location.
func DateOf(t time.Time) CalendarDate {
	return CalendarDate(t.Format(DateLayout))
}

// InvalidDateError reports a date or timestamp that cannot be parsed.
type InvalidDateError struct {
	Value   string
	EventID string // empty when the value is not an event date
	Err     error
}

func (e *InvalidDateError) Error() string {
	if e.EventID != "" {
		return fmt.Sprintf("invalid date %q for event %q", e.Value, e.EventID)
	}
	return fmt.Sprintf("invalid date %q", e.Value)
}

// Unwrap makes errors.Is(err, ErrInvalidDate) hold.
func (e *InvalidDateError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalidDate}
	}
	return []error{ErrInvalidDate, e.Err}
}

// ParseCalendarDate validates s as a YYYY-MM-DD date.
func ParseCalendarDate(s string) (CalendarDate, error) {
	s = strings.TrimSpace(s)
	if _, err := time.Parse(DateLayout, s); err != nil {
		return "", &InvalidDateError{Value: s, Err: err}
	}
	return CalendarDate(s), nil
}

// TruncateDate derives the CalendarDate of an ISO-8601 timestamp.
//
// With a nil loc the timestamp is truncated in the offset it was written in,
// so "2024-03-10T23:30:00-05:00" is 2024-03-10. With a non-nil loc the
// instant is converted to loc first. Timestamps without an offset are read
// as wall-clock values and never converted.
func TruncateDate(ts string, loc *time.Location) (CalendarDate, error) {
	raw := strings.TrimSpace(ts)
	if raw == "" {
		return "", &InvalidDateError{Value: ts, Err: errors.New("empty timestamp")}
	}
	for i, layout := range timestampLayouts {
		t, err := time.Parse(layout, raw)
		if err != nil {
			continue
		}
		// Only the first two layouts carry an offset.
		if loc != nil && i < 2 {
			t = t.In(loc)
		}
		return DateOf(t), nil
	}
	return "", &InvalidDateError{Value: ts, Err: errors.New("unrecognized timestamp layout")}
}

// Start returns the parsed instant of the event date, reading zone-less
// timestamps in loc (UTC when loc is nil).
func (e Event) Start(loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.UTC
	}
	raw := strings.TrimSpace(e.Date)
	for _, layout := range timestampLayouts {
		if t, err := time.ParseInLocation(layout, raw, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, &InvalidDateError{Value: e.Date, EventID: e.ID, Err: errors.New("unrecognized timestamp layout")}
}

// AllDay reports whether the event date carries no time of day.
func (e Event) AllDay() bool {
	return len(strings.TrimSpace(e.Date)) == len(DateLayout)
}
