package ics_test

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/calmark/internal/adapters/ics"
	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
)

func TestEncode(t *testing.T) {
	convey.Convey("Given a work with timed and all-day events", t, func() {
		events := []model.Event{
			{ID: "a", Date: "2024-03-10T09:00:00Z", Title: "Site visit", Address: "12 Harbour Rd"},
			{ID: "b", Date: "2024-03-10T14:30:00Z", Title: "Client review"},
			{ID: "c", Date: "2024-03-12", Title: "Handover"},
		}
		p := palette.MustNew("#000000", "#111111")
		enc := ics.NewEncoder(
			ics.WithPalette(p),
			ics.WithClock(func() time.Time { return time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC) }),
		)

		convey.Convey("When it is encoded", func() {
			var buf bytes.Buffer
			err := enc.Encode(&buf, "w-1", events)
			out := buf.String()

			convey.Convey("Then there is one VEVENT per event", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(strings.Count(out, "BEGIN:VEVENT"), convey.ShouldEqual, 3)
				convey.So(out, convey.ShouldContainSubstring, "METHOD:PUBLISH")
				convey.So(out, convey.ShouldContainSubstring, "UID:a@w-1.calmark")
			})

			convey.Convey("Then colors follow list position", func() {
				convey.So(strings.Count(out, "COLOR:#000000"), convey.ShouldEqual, 2)
				convey.So(strings.Count(out, "COLOR:#111111"), convey.ShouldEqual, 1)
			})

			convey.Convey("Then decoding gives the events back in order", func() {
				back, err := ics.Decode(strings.NewReader(out))
				convey.So(err, convey.ShouldBeNil)
				convey.So(back, convey.ShouldHaveLength, 3)
				convey.So(back[0], convey.ShouldResemble, events[0])
				convey.So(back[1].ID, convey.ShouldEqual, "b")
				convey.So(back[1].Date, convey.ShouldEqual, "2024-03-10T14:30:00Z")
				convey.So(back[2].ID, convey.ShouldEqual, "c")
				convey.So(back[2].Date, convey.ShouldEqual, "2024-03-12")
				convey.So(back[2].Title, convey.ShouldEqual, "Handover")
			})
		})

		convey.Convey("When an event date is malformed", func() {
			bad := append(events, model.Event{ID: "x", Date: "soon"})
			var buf bytes.Buffer
			err := enc.Encode(&buf, "w-1", bad)

			convey.Convey("Then the export fails naming the event", func() {
				convey.So(errors.Is(err, model.ErrInvalidDate), convey.ShouldBeTrue)
				var ide *model.InvalidDateError
				convey.So(errors.As(err, &ide), convey.ShouldBeTrue)
				convey.So(ide.EventID, convey.ShouldEqual, "x")
				convey.So(buf.Len(), convey.ShouldEqual, 0)
			})
		})

		convey.Convey("When the list is empty", func() {
			var buf bytes.Buffer
			err := enc.Encode(&buf, "w-1", nil)

			convey.Convey("Then an empty calendar is written", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(buf.String(), convey.ShouldContainSubstring, "BEGIN:VCALENDAR")
				convey.So(buf.String(), convey.ShouldNotContainSubstring, "BEGIN:VEVENT")
			})
		})
	})
}

func TestRoundTripKeepsCalendarDay(t *testing.T) {
	convey.Convey("Given events written with non-UTC offsets", t, func() {
		events := []model.Event{
			{ID: "late", Date: "2024-03-10T23:30:00-05:00", Title: "Evening pour"},
			{ID: "early", Date: "2024-03-11T00:15:00+09:00"},
			{ID: "ops@firm.example", Date: "2024-03-12"},
		}

		convey.Convey("When they are exported and imported again", func() {
			var buf bytes.Buffer
			convey.So(ics.NewEncoder().Encode(&buf, "w-1", events), convey.ShouldBeNil)
			back, err := ics.Decode(&buf)
			convey.So(err, convey.ShouldBeNil)

			convey.Convey("Then every event keeps its date and id", func() {
				convey.So(back, convey.ShouldHaveLength, 3)
				for i := range events {
					convey.So(back[i].ID, convey.ShouldEqual, events[i].ID)
					convey.So(back[i].Date, convey.ShouldEqual, events[i].Date)
				}
			})

			convey.Convey("Then the rebuilt index marks the same days", func() {
				want, err := marking.BuildIndex(events, "2024-03-10", palette.Default())
				convey.So(err, convey.ShouldBeNil)
				got, err := marking.BuildIndex(back, "2024-03-10", palette.Default())
				convey.So(err, convey.ShouldBeNil)
				convey.So(got.Dates(), convey.ShouldResemble, want.Dates())
				convey.So(got["2024-03-10"].Dots, convey.ShouldHaveLength, 1)
				convey.So(got["2024-03-10"].Dots[0].Key, convey.ShouldEqual, "late")
			})
		})
	})
}

func TestDecodeForeign(t *testing.T) {
	convey.Convey("Given a calendar written elsewhere", t, func() {
		doc := strings.Join([]string{
			"BEGIN:VCALENDAR",
			"VERSION:2.0",
			"PRODID:-//example//EN",
			"BEGIN:VEVENT",
			"UID:meeting-1@example.com",
			"DTSTAMP:20240301T000000Z",
			"DTSTART:20240315T100000Z",
			"SUMMARY:Permit submission",
			"END:VEVENT",
			"BEGIN:VEVENT",
			"UID:day-2@example.com",
			"DTSTAMP:20240301T000000Z",
			"DTSTART;VALUE=DATE:20240316",
			"END:VEVENT",
			"END:VCALENDAR",
			"",
		}, "\r\n")

		convey.Convey("When it is decoded", func() {
			events, err := ics.Decode(strings.NewReader(doc))

			convey.Convey("Then foreign UIDs are kept whole", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 2)
				convey.So(events[0].ID, convey.ShouldEqual, "meeting-1@example.com")
				convey.So(events[0].Date, convey.ShouldEqual, "2024-03-15T10:00:00Z")
				convey.So(events[1].Date, convey.ShouldEqual, "2024-03-16")
			})
		})
	})
}
