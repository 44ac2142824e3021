// Command calview prints a work's calendar as a month grid with colored dots
// followed by the event list of the selected day.
//
// Events come from a JSON or .ics file, from the project API, or from the
// fixture generator.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/okian/calmark/internal/adapters/feed"
	"github.com/okian/calmark/internal/adapters/ics"
	"github.com/okian/calmark/internal/adapters/render"
	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
	"github.com/okian/calmark/internal/fixtures"
	"github.com/okian/calmark/pkg/logger"
)

const defaultTimeout = 10 * time.Second

var errNoSource = errors.New("one of -file, -url or -demo is required")

type options struct {
	file     string
	baseURL  string
	token    string
	work     string
	date     string
	timezone string
	palette  string
	demo     bool
	timeout  time.Duration
	verbose  bool
}

func main() {
	var o options
	flag.StringVar(&o.file, "file", "", "JSON event list or .ics file")
	flag.StringVar(&o.baseURL, "url", "", "project API base URL")
	flag.StringVar(&o.token, "token", "", "bearer token for the project API")
	flag.StringVar(&o.work, "work", "", "work id (required with -url)")
	flag.StringVar(&o.date, "date", "", "selected day YYYY-MM-DD (default today)")
	flag.StringVar(&o.timezone, "tz", "", "IANA zone events are truncated in (default as written)")
	flag.StringVar(&o.palette, "palette", "", "comma separated dot colors")
	flag.BoolVar(&o.demo, "demo", false, "use generated events")
	flag.DurationVar(&o.timeout, "timeout", defaultTimeout, "project API timeout")
	flag.BoolVar(&o.verbose, "verbose", false, "log fetch details to stderr")
	flag.Parse()

	if err := logger.InitWithFormat(logger.FormatText, os.Stderr); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		os.Exit(1)
	}
	if !o.verbose {
		_ = logger.SetLevelString("warn")
	}

	ctx, cancel := context.WithTimeout(context.Background(), o.timeout+time.Second)
	defer cancel()

	if err := run(ctx, o, os.Stdout, time.Now()); err != nil {
		logger.Get().Error(ctx, "calview failed", logger.Error(err))
		os.Exit(1)
	}
}

// run loads the events, builds the index and writes the month and day views.
func run(ctx context.Context, o options, out io.Writer, now time.Time) error {
	var loc *time.Location
	if o.timezone != "" {
		l, err := time.LoadLocation(o.timezone)
		if err != nil {
			return fmt.Errorf("timezone %q: %w", o.timezone, err)
		}
		loc = l
	}

	p := palette.Default()
	if o.palette != "" {
		parsed, err := palette.New(splitColors(o.palette)...)
		if err != nil {
			return err
		}
		p = parsed
	}

	selected := model.DateOf(now.In(zoneOr(loc)))
	if o.date != "" {
		d, err := model.ParseCalendarDate(o.date)
		if err != nil {
			return err
		}
		selected = d
	}

	events, err := load(ctx, o, now)
	if err != nil {
		return err
	}

	b := marking.NewBuilder(marking.WithPalette(p), marking.WithLocation(loc))
	idx, err := b.Build(events, selected)
	if err != nil {
		return err
	}
	day, err := marking.NewSelector(b, events).Day(idx, selected)
	if err != nil {
		return err
	}

	r := render.New()
	month, err := r.Month(idx, selected)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintf(out, "%s\n\n%s\n", month, r.Day(selected, day, loc))
	return err
}

func load(ctx context.Context, o options, now time.Time) ([]model.Event, error) {
	switch {
	case o.demo:
		cfg := fixtures.DefaultConfig()
		cfg.Start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return fixtures.Generate(cfg), nil
	case o.file != "":
		return loadFile(o.file, o.work)
	case o.baseURL != "":
		if o.work == "" {
			return nil, errors.New("-work is required with -url")
		}
		c := feed.NewClient(o.baseURL,
			feed.WithToken(o.token),
			feed.WithTimeout(o.timeout),
			feed.WithLogger(logger.Get().Named("feed")),
		)
		return c.Fetch(ctx, o.work)
	default:
		return nil, errNoSource
	}
}

func loadFile(path, work string) ([]model.Event, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	if strings.EqualFold(filepath.Ext(path), ".ics") {
		return ics.Decode(f)
	}
	if work == "" {
		work = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return feed.Decode(f, work)
}

func splitColors(s string) []string {
	var out []string
	for _, c := range strings.Split(s, ",") {
		if c = strings.TrimSpace(c); c != "" {
			out = append(out, c)
		}
	}
	return out
}

func zoneOr(loc *time.Location) *time.Location {
	if loc == nil {
		return time.Local
	}
	return loc
}
