// Package render draws a marked-date index as a terminal month grid with
// colored dots, plus the day list below it.
package render

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
)

const (
	dotGlyph  = "●"
	cellWidth = 7
	maxDots   = 3
)

var weekdays = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// Renderer holds the styles for one output.
type Renderer struct {
	header   lipgloss.Style
	weekday  lipgloss.Style
	day      lipgloss.Style
	selected lipgloss.Style
	muted    lipgloss.Style
	title    lipgloss.Style
	dot      func(color string) lipgloss.Style
}

// Option configures a Renderer.
type Option func(*options)

type options struct {
	lr *lipgloss.Renderer
}

// WithLipgloss renders through r, which decides the color profile of the output.
func WithLipgloss(r *lipgloss.Renderer) Option {
	return func(o *options) {
		if r != nil {
			o.lr = r
		}
	}
}

// New builds a Renderer. Without WithLipgloss the default renderer (stdout) is used.
func New(opts ...Option) *Renderer {
	o := options{lr: lipgloss.DefaultRenderer()}
	for _, opt := range opts {
		opt(&o)
	}
	lr := o.lr
	day := lr.NewStyle().Width(cellWidth).Align(lipgloss.Left)
	return &Renderer{
		header:   lr.NewStyle().Bold(true).Padding(0, 1),
		weekday:  lr.NewStyle().Width(cellWidth).Foreground(lipgloss.Color("241")),
		day:      day,
		selected: day.Reverse(true),
		muted:    lr.NewStyle().Foreground(lipgloss.Color("241")).Italic(true),
		title:    lr.NewStyle().Bold(true),
		dot: func(color string) lipgloss.Style {
			return lr.NewStyle().Foreground(lipgloss.Color(color))
		},
	}
}

// Month draws the month containing selected. Each marked day shows up to
// three dots in its dot colors, then "+" when it has more.
func (r *Renderer) Month(idx marking.Index, selected model.CalendarDate) (string, error) {
	sel, err := selected.Time(time.UTC)
	if err != nil {
		return "", err
	}
	first := time.Date(sel.Year(), sel.Month(), 1, 0, 0, 0, 0, time.UTC)
	last := first.AddDate(0, 1, -1)

	var b strings.Builder
	b.WriteString(r.header.Render(first.Format("January 2006")))
	b.WriteString("\n")
	for _, wd := range weekdays {
		b.WriteString(r.weekday.Render(wd))
	}
	b.WriteString("\n")

	lead := int(first.Weekday())
	b.WriteString(strings.Repeat(" ", lead*cellWidth))
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		key := model.DateOf(d)
		cell := fmt.Sprintf("%2d", d.Day()) + r.dots(idx[key])

		style := r.day
		if entry := idx[key]; entry != nil && entry.Selected {
			style = r.selected
		}
		b.WriteString(style.Render(cell))
		if d.Weekday() == time.Saturday && d.Day() != last.Day() {
			b.WriteString("\n")
		}
	}
	b.WriteString("\n")
	return b.String(), nil
}

func (r *Renderer) dots(entry *marking.Entry) string {
	if entry == nil {
		return ""
	}
	var b strings.Builder
	for i, d := range entry.Dots {
		if i == maxDots {
			b.WriteString("+")
			break
		}
		b.WriteString(r.dot(string(d.Color)).Render(dotGlyph))
	}
	return b.String()
}

// Day draws the day-detail list: one line per event with its dot, time,
// title and address.
func (r *Renderer) Day(date model.CalendarDate, events []marking.DayEvent, loc *time.Location) string {
	var b strings.Builder
	header := string(date)
	if t, err := date.Time(loc); err == nil {
		header = t.Format("Mon, Jan 2")
	}
	b.WriteString(r.title.Render(header))
	b.WriteString("\n")

	if len(events) == 0 {
		b.WriteString(r.muted.Render("  No events"))
		b.WriteString("\n")
		return b.String()
	}
	for _, ev := range events {
		when := "all day"
		if !ev.AllDay() {
			if t, err := ev.Start(loc); err == nil {
				if loc != nil {
					t = t.In(loc)
				}
				when = t.Format("15:04")
			}
		}
		title := ev.Title
		if title == "" {
			title = ev.ID
		}
		line := fmt.Sprintf("  %s %-7s %s", r.dot(string(ev.Color)).Render(dotGlyph), when, title)
		if ev.Address != "" {
			line += r.muted.Render("  " + ev.Address)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}
	return b.String()
}
