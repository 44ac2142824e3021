package service_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/adapters/repository"
	service "github.com/okian/calmark/internal/app"
	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/palette"
	"github.com/okian/calmark/internal/domain/types"
	. "github.com/smartystreets/goconvey/convey"
)

// idleFetcher is never called unless the service is started.
type idleFetcher struct{}

func (idleFetcher) Fetch(context.Context, string) ([]model.Event, error) { return nil, nil }

func sampleEvents() []model.Event {
	return []model.Event{
		{ID: "a", Date: "2024-03-10T09:00:00Z", Title: "Pour slab"},
		{ID: "b", Date: "2024-03-12", Title: "Inspection"},
		{ID: "c", Date: "2024-03-10T15:30:00Z", Title: "Site walk", Address: "1 Main St"},
	}
}

func TestService_New(t *testing.T) {
	Convey("Given a new service with default options", t, func() {
		svc := service.New()

		Convey("Then it reports sensible defaults", func() {
			stats := svc.GetStats()
			So(stats["started"], ShouldEqual, false)
			So(stats["works"], ShouldEqual, 0)
			So(stats["palette"], ShouldEqual, palette.Default().Len())
		})
	})
}

func TestService_Today(t *testing.T) {
	Convey("Given a clock just before midnight UTC", t, func() {
		now := func() time.Time { return time.Date(2024, 3, 10, 23, 30, 0, 0, time.UTC) }

		Convey("When the builder zone is ahead of UTC", func() {
			tokyo := time.FixedZone("JST", 9*3600)
			svc := service.New(
				service.WithClock(now),
				service.WithBuilder(marking.NewBuilder(marking.WithLocation(tokyo))),
			)

			Convey("Then today is the next day", func() {
				So(svc.Today(), ShouldEqual, model.CalendarDate("2024-03-11"))
			})
		})
	})
}

func TestService_Views(t *testing.T) {
	Convey("Given a work with stored events", t, func() {
		ctx := context.Background()
		svc := service.New()
		So(svc.ReplaceEvents(ctx, "w1", sampleEvents()), ShouldBeNil)
		p := palette.Default()

		Convey("When the marked dates are built", func() {
			idx, err := svc.MarkedDates(ctx, "w1", "2024-03-10")

			Convey("Then each event gets the dot of its position", func() {
				So(err, ShouldBeNil)
				So(idx.Dates(), ShouldResemble, []model.CalendarDate{"2024-03-10", "2024-03-12"})
				So(idx["2024-03-10"].Selected, ShouldBeTrue)
				So(idx["2024-03-10"].Dots, ShouldResemble, []marking.Dot{
					{Key: "a", Color: p.ColorFor(0)},
					{Key: "c", Color: p.ColorFor(2)},
				})
				So(idx["2024-03-12"].Dots[0].Color, ShouldEqual, p.ColorFor(1))
			})
		})

		Convey("When a day is listed", func() {
			day, err := svc.Day(ctx, "w1", "2024-03-10")

			Convey("Then it carries the same colors as the dots", func() {
				So(err, ShouldBeNil)
				So(day.WorkID, ShouldEqual, "w1")
				So(day.Events, ShouldHaveLength, 2)
				So(day.Events[0], ShouldResemble, types.DayEvent{
					ID: "a", Date: "2024-03-10T09:00:00Z", Title: "Pour slab", Color: string(p.ColorFor(0)),
				})
				So(day.Events[1].Color, ShouldEqual, string(p.ColorFor(2)))
				So(day.Events[1].Address, ShouldEqual, "1 Main St")
			})
		})

		Convey("When a day without events is listed", func() {
			day, err := svc.Day(ctx, "w1", "2024-03-11")

			Convey("Then the list is empty", func() {
				So(err, ShouldBeNil)
				So(day.Events, ShouldBeEmpty)
			})
		})

		Convey("When the calendar is exported", func() {
			var sb strings.Builder
			err := svc.ExportICS(ctx, "w1", &sb)

			Convey("Then there is one VEVENT per event", func() {
				So(err, ShouldBeNil)
				So(strings.Count(sb.String(), "BEGIN:VEVENT"), ShouldEqual, 3)
			})
		})

		Convey("When an unknown work is read", func() {
			_, err := svc.MarkedDates(ctx, "nope", "2024-03-10")

			Convey("Then it is not found", func() {
				So(errors.Is(err, repository.ErrNotFound), ShouldBeTrue)
			})
		})

		Convey("When a stored event has a malformed date", func() {
			So(svc.ReplaceEvents(ctx, "bad", []model.Event{{ID: "x", Date: "someday"}}), ShouldBeNil)
			_, err := svc.MarkedDates(ctx, "bad", "2024-03-10")

			Convey("Then the build fails with an invalid date", func() {
				So(errors.Is(err, model.ErrInvalidDate), ShouldBeTrue)
				var ide *model.InvalidDateError
				So(errors.As(err, &ide), ShouldBeTrue)
				So(ide.EventID, ShouldEqual, "x")
			})
		})
	})
}

func TestService_RequestRefresh(t *testing.T) {
	Convey("Given a service without a feed", t, func() {
		svc := service.New()

		Convey("Then refresh requests fail", func() {
			_, err := svc.RequestRefresh(context.Background(), "w1", queue.ReasonAPI)
			So(errors.Is(err, service.ErrNoFeed), ShouldBeTrue)
		})
	})

	Convey("Given a service with a feed whose workers are not running", t, func() {
		ctx := context.Background()
		svc := service.New(
			service.WithFetcher(idleFetcher{}),
			service.WithQueueSize(1),
			service.WithWorkerCount(1),
		)

		Convey("When the same work is requested twice", func() {
			first, err1 := svc.RequestRefresh(ctx, "w1", queue.ReasonAPI)
			second, err2 := svc.RequestRefresh(ctx, "w1", queue.ReasonAPI)

			Convey("Then the second request reports the pending one", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(first, ShouldEqual, types.RefreshAccepted)
				So(second, ShouldEqual, types.RefreshInFlight)
				So(svc.GetStats()["queueLength"], ShouldEqual, 1)
			})
		})

		Convey("When the queue is full", func() {
			_, err := svc.RequestRefresh(ctx, "w1", queue.ReasonAPI)
			So(err, ShouldBeNil)
			_, err = svc.RequestRefresh(ctx, "w2", queue.ReasonAPI)

			Convey("Then the request is rejected and not left pending", func() {
				So(errors.Is(err, queue.ErrQueueFull), ShouldBeTrue)
				So(svc.GetStats()["inFlight"], ShouldEqual, int64(1))

				_, again := svc.RequestRefresh(ctx, "w2", queue.ReasonAPI)
				So(errors.Is(again, queue.ErrQueueFull), ShouldBeTrue)
			})
		})

		Convey("When the work id is blank", func() {
			_, err := svc.RequestRefresh(ctx, "  ", queue.ReasonAPI)

			Convey("Then it is rejected", func() {
				So(errors.Is(err, queue.ErrEmptyWorkID), ShouldBeTrue)
			})
		})
	})
}

func TestService_Lifecycle(t *testing.T) {
	Convey("Given a started service", t, func() {
		svc := service.New(service.WithFetcher(idleFetcher{}), service.WithWorkerCount(1))
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.Start(ctx), ShouldBeNil)
		So(svc.GetStats()["started"], ShouldEqual, true)

		Convey("When stopping the service", func() {
			svc.Stop()

			Convey("Then it is stopped for good", func() {
				So(svc.GetStats()["started"], ShouldEqual, false)
				So(errors.Is(svc.Start(ctx), service.ErrStopped), ShouldBeTrue)
				svc.Stop()
			})
		})
	})
}
