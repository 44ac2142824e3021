package feed_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/calmark/internal/adapters/feed"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/fixtures"
)

func TestClientFetch(t *testing.T) {
	convey.Convey("Given a fake project API", t, func() {
		ctx := context.Background()
		api := fixtures.NewHandler(fixtures.WithToken("tok"))
		events := []model.Event{
			{ID: "a", Date: "2024-03-10T09:00:00Z", Title: "Site visit"},
			{ID: "b", Date: "2024-03-10T14:00:00Z"},
		}
		api.Set("w-1", events)
		srv := httptest.NewServer(api)
		defer srv.Close()

		client := feed.NewClient(srv.URL+"/", feed.WithToken("tok"), feed.WithTimeout(2*time.Second))

		convey.Convey("When fetching a known work", func() {
			got, err := client.Fetch(ctx, "w-1")

			convey.Convey("Then the events come back in order", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(got, convey.ShouldResemble, events)
			})

			convey.Convey("Then a second fetch revalidates and reuses the list", func() {
				again, err := client.Fetch(ctx, "w-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldResemble, events)
				convey.So(api.NotModified(), convey.ShouldEqual, 1)
			})

			convey.Convey("Then a changed list is picked up", func() {
				api.Set("w-1", events[:1])
				again, err := client.Fetch(ctx, "w-1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(again, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When fetching an unknown work", func() {
			_, err := client.Fetch(ctx, "missing")
			convey.So(errors.Is(err, feed.ErrNotFound), convey.ShouldBeTrue)
		})

		convey.Convey("When the token is wrong", func() {
			bad := feed.NewClient(srv.URL, feed.WithToken("nope"))
			_, err := bad.Fetch(ctx, "w-1")
			convey.So(errors.Is(err, feed.ErrUpstream), convey.ShouldBeTrue)
		})

		convey.Convey("When the work id is blank", func() {
			_, err := client.Fetch(ctx, " ")
			convey.So(errors.Is(err, feed.ErrInvalidWorkID), convey.ShouldBeTrue)
		})

		convey.Convey("When the body is garbage", func() {
			api.SetRaw("junk", []byte("<html>oops</html>"))
			_, err := client.Fetch(ctx, "junk")
			convey.So(errors.Is(err, feed.ErrDecode), convey.ShouldBeTrue)
		})

		convey.Convey("When the body is over the size limit", func() {
			small := feed.NewClient(srv.URL, feed.WithToken("tok"), feed.WithMaxBody(16))
			_, err := small.Fetch(ctx, "w-1")

			convey.Convey("Then it is reported as too large, not as bad JSON", func() {
				convey.So(errors.Is(err, feed.ErrTooLarge), convey.ShouldBeTrue)
				convey.So(errors.Is(err, feed.ErrDecode), convey.ShouldBeFalse)
			})
		})

		convey.Convey("When the body is exactly at the size limit", func() {
			body := `[{"id":"a","date":"2024-03-10"}]`
			api.SetRaw("fit", []byte(body))
			fit := feed.NewClient(srv.URL, feed.WithToken("tok"), feed.WithMaxBody(int64(len(body))))
			events, err := fit.Fetch(ctx, "fit")

			convey.Convey("Then it is read whole", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(events, convey.ShouldHaveLength, 1)
			})
		})

		convey.Convey("When the context is already cancelled", func() {
			cctx, cancel := context.WithCancel(ctx)
			cancel()
			_, err := client.Fetch(cctx, "w-1")
			convey.So(errors.Is(err, feed.ErrUpstream), convey.ShouldBeTrue)
			convey.So(errors.Is(err, context.Canceled), convey.ShouldBeTrue)
		})
	})
}

func TestClientWithoutETag(t *testing.T) {
	convey.Convey("Given an API that sends no ETag", t, func() {
		var (
			mu    sync.Mutex
			hits  int
			conds []string
			paths []string
		)
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			mu.Lock()
			hits++
			conds = append(conds, r.Header.Get("If-None-Match"))
			paths = append(paths, r.URL.Path)
			mu.Unlock()
			_, _ = w.Write([]byte(`[{"id":"a","date":"2024-03-10"}]`))
		}))
		defer srv.Close()

		client := feed.NewClient(srv.URL + "/api")

		convey.Convey("When fetching twice", func() {
			_, err1 := client.Fetch(context.Background(), "w 1")
			_, err2 := client.Fetch(context.Background(), "w 1")

			convey.Convey("Then both requests are unconditional", func() {
				convey.So(err1, convey.ShouldBeNil)
				convey.So(err2, convey.ShouldBeNil)
				mu.Lock()
				defer mu.Unlock()
				convey.So(hits, convey.ShouldEqual, 2)
				convey.So(conds, convey.ShouldResemble, []string{"", ""})
				convey.So(paths[0], convey.ShouldEqual, "/api/works/w 1/events")
			})
		})
	})
}
