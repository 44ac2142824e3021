// Package fixtures generates realistic work event lists and serves them
// through a fake project API for tests and local development.
package fixtures

import (
	"math/rand/v2"
	"slices"
	"time"

	"github.com/google/uuid"

	"github.com/okian/calmark/internal/domain/model"
)

var titles = []string{
	"Site visit",
	"Client review",
	"Permit submission",
	"Structural walkthrough",
	"Materials selection",
	"Render approval",
	"Quote sign-off",
	"Handover",
}

var addresses = []string{
	"12 Harbour Rd",
	"48 Mill Lane",
	"Studio, 3rd floor",
	"7 Quarry St",
	"",
}

// Config controls Generate.
type Config struct {
	Start    time.Time      // first day of the span; zero means today
	Days     int            // span length in days
	Count    int            // number of events
	BusyDays int            // events cluster on this many days; 0 spreads them evenly
	Seed     uint64         // same seed, same list
	Location *time.Location // zone the timestamps are written in; nil is UTC
}

// DefaultConfig is a month of events clustered on a handful of days.
func DefaultConfig() Config {
	return Config{Days: 30, Count: 24, BusyDays: 6, Seed: 1}
}

// Generate builds Count events spread over the span, in chronological order.
// IDs are random uuids drawn from the seeded source so runs are reproducible.
func Generate(cfg Config) []model.Event {
	if cfg.Count <= 0 {
		return []model.Event{}
	}
	if cfg.Days <= 0 {
		cfg.Days = 1
	}
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	start := cfg.Start
	if start.IsZero() {
		start = time.Now()
	}
	start = start.In(loc)
	day0 := time.Date(start.Year(), start.Month(), start.Day(), 0, 0, 0, 0, loc)

	rng := rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15))

	days := make([]int, 0, cfg.BusyDays)
	for i := 0; i < cfg.BusyDays; i++ {
		days = append(days, rng.IntN(cfg.Days))
	}

	out := make([]model.Event, cfg.Count)
	for i := range out {
		offset := rng.IntN(cfg.Days)
		if len(days) > 0 {
			offset = days[rng.IntN(len(days))]
		}
		hour := 8 + rng.IntN(10)
		minute := 15 * rng.IntN(4)
		at := day0.AddDate(0, 0, offset).Add(time.Duration(hour)*time.Hour + time.Duration(minute)*time.Minute)

		var raw [16]byte
		for j := range raw {
			raw[j] = byte(rng.UintN(256))
		}
		id, _ := uuid.FromBytes(raw[:])
		// version 4 / RFC 4122 variant bits
		id[6] = (id[6] & 0x0f) | 0x40
		id[8] = (id[8] & 0x3f) | 0x80

		out[i] = model.Event{
			ID:      id.String(),
			Date:    at.Format(time.RFC3339),
			Title:   titles[rng.IntN(len(titles))],
			Address: addresses[rng.IntN(len(addresses))],
		}
	}
	sortByDate(out)
	return out
}

// sortByDate orders events chronologically, keeping generation order for ties.
func sortByDate(events []model.Event) {
	slices.SortStableFunc(events, func(a, b model.Event) int {
		ta, _ := time.Parse(time.RFC3339, a.Date)
		tb, _ := time.Parse(time.RFC3339, b.Date)
		return ta.Compare(tb)
	})
}
