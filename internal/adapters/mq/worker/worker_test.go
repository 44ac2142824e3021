package worker_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/smartystreets/goconvey/convey"

	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/adapters/mq/worker"
	"github.com/okian/calmark/internal/adapters/repository"
	"github.com/okian/calmark/internal/domain/model"
)

type mockFetcher struct {
	mu     sync.Mutex
	events map[string][]model.Event
	errs   map[string]error
	calls  map[string]int
}

func newMockFetcher() *mockFetcher {
	return &mockFetcher{
		events: map[string][]model.Event{},
		errs:   map[string]error{},
		calls:  map[string]int{},
	}
}

func (m *mockFetcher) Fetch(_ context.Context, workID string) ([]model.Event, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls[workID]++
	if err, ok := m.errs[workID]; ok {
		return nil, err
	}
	return m.events[workID], nil
}

type mockReleaser struct {
	mu       sync.Mutex
	released []string
}

func (r *mockReleaser) Unrecord(_ context.Context, id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.released = append(r.released, id)
}

func (r *mockReleaser) list() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.released...)
}

type result struct {
	job  queue.Job
	snap repository.Snapshot
	err  error
}

func TestPool(t *testing.T) {
	convey.Convey("Given a pool wired to a queue, fetcher and store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()

		q := queue.NewInMemoryQueue(queue.WithCapacity(10))
		fetcher := newMockFetcher()
		fetcher.events["w1"] = []model.Event{{ID: "a", Date: "2024-03-10"}, {ID: "b", Date: "2024-03-11"}}
		fetcher.errs["broken"] = errors.New("upstream down")
		store := repository.NewMemoryStore()
		releaser := &mockReleaser{}
		results := make(chan result, 10)

		pool := worker.NewPool(2, q, fetcher, store,
			worker.WithReleaser(releaser),
			worker.WithJobTimeout(time.Second),
			worker.WithOnDone(func(_ context.Context, j queue.Job, s repository.Snapshot, err error) {
				results <- result{job: j, snap: s, err: err}
			}),
		)
		convey.So(pool.Size(), convey.ShouldEqual, 2)
		pool.Start(ctx)

		convey.Convey("When a refresh job is enqueued", func() {
			convey.So(q.Enqueue(ctx, queue.Job{WorkID: "w1", Reason: queue.ReasonAPI}), convey.ShouldBeNil)
			r := <-results

			convey.Convey("Then the snapshot is stored and the marker released", func() {
				convey.So(r.err, convey.ShouldBeNil)
				convey.So(r.snap.Version, convey.ShouldEqual, 1)
				snap, err := store.Get(ctx, "w1")
				convey.So(err, convey.ShouldBeNil)
				convey.So(snap.Events, convey.ShouldHaveLength, 2)
				convey.So(releaser.list(), convey.ShouldResemble, []string{"w1"})
			})
		})

		convey.Convey("When the fetch fails", func() {
			convey.So(q.Enqueue(ctx, queue.Job{WorkID: "broken"}), convey.ShouldBeNil)
			r := <-results

			convey.Convey("Then the error is reported, nothing is stored and the marker is still released", func() {
				convey.So(r.err, convey.ShouldNotBeNil)
				convey.So(r.err.Error(), convey.ShouldContainSubstring, "upstream down")
				_, err := store.Get(ctx, "broken")
				convey.So(errors.Is(err, repository.ErrNotFound), convey.ShouldBeTrue)
				convey.So(releaser.list(), convey.ShouldResemble, []string{"broken"})
			})
		})

		convey.Convey("When the pool shuts down with jobs pending", func() {
			for i := 0; i < 3; i++ {
				convey.So(q.Enqueue(ctx, queue.Job{WorkID: "w1"}), convey.ShouldBeNil)
			}
			err := pool.Shutdown(ctx)

			convey.Convey("Then every pending job is drained first", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(len(results), convey.ShouldEqual, 3)
				convey.So(q.IsClosed(), convey.ShouldBeTrue)
			})
		})
	})
}

func TestWorkerShutdown(t *testing.T) {
	convey.Convey("Given a single idle worker", t, func() {
		q := queue.NewInMemoryQueue()
		w := worker.NewInMemoryWorker(q, newMockFetcher(), repository.NewMemoryStore(), worker.WithName("solo"))
		go w.Run(context.Background())

		convey.Convey("When it is shut down", func() {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			err := w.Shutdown(ctx)

			convey.Convey("Then it stops promptly and a second shutdown is harmless", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(w.Shutdown(ctx), convey.ShouldBeNil)
			})
		})
	})
}
