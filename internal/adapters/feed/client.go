// Package feed fetches work event lists from the remote project API.
package feed

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/pkg/logger"
	"github.com/okian/calmark/pkg/metrics"
)

const defaultTimeout = 10 * time.Second

// defaultMaxBody caps how much of a response is read.
const defaultMaxBody = 8 << 20

// Client fetches `{base}/works/{id}/events`. Responses carrying an ETag are
// remembered per work and revalidated with If-None-Match; a 304 returns the
// remembered list.
type Client struct {
	baseURL string
	token   string
	maxBody int64
	http    *http.Client
	log     logger.Logger

	mu    sync.Mutex
	etags map[string]cachedFeed
}

type cachedFeed struct {
	etag   string
	events []model.Event
}

// NewClient creates a client for the API rooted at baseURL.
func NewClient(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		maxBody: defaultMaxBody,
		http:    &http.Client{Timeout: defaultTimeout},
		log:     logger.Nop(),
		etags:   make(map[string]cachedFeed),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch returns the ordered event list for workID.
func (c *Client) Fetch(ctx context.Context, workID string) ([]model.Event, error) {
	if strings.TrimSpace(workID) == "" {
		return nil, ErrInvalidWorkID
	}
	start := time.Now()
	events, outcome, err := c.fetch(ctx, workID)
	metrics.RecordFeedFetch(outcome, float64(time.Since(start).Milliseconds()))
	if err != nil {
		metrics.RecordErrorByComponent("feed", outcome)
		c.log.Warn(ctx, "feed fetch failed",
			logger.String("work", workID),
			logger.String("outcome", outcome),
			logger.Error(err))
		return nil, err
	}
	c.log.Debug(ctx, "feed fetched",
		logger.String("work", workID),
		logger.String("outcome", outcome),
		logger.Int("events", len(events)),
		logger.Duration("took", time.Since(start)))
	return events, nil
}

func (c *Client) fetch(ctx context.Context, workID string) ([]model.Event, string, error) {
	endpoint := c.baseURL + "/works/" + url.PathEscape(workID) + "/events"
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, metrics.FetchError, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}

	c.mu.Lock()
	cached, haveCached := c.etags[workID]
	c.mu.Unlock()
	if haveCached {
		req.Header.Set("If-None-Match", cached.etag)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, metrics.FetchError, fmt.Errorf("%w: %w", ErrUpstream, err)
	}
	defer func() { _ = resp.Body.Close() }()

	switch {
	case resp.StatusCode == http.StatusNotModified && haveCached:
		return slices.Clone(cached.events), metrics.FetchNotModified, nil
	case resp.StatusCode == http.StatusNotFound:
		return nil, metrics.FetchError, fmt.Errorf("%w: %s", ErrNotFound, workID)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		return nil, metrics.FetchError, fmt.Errorf("%w: %s", ErrUpstream, resp.Status)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, c.maxBody+1))
	if err != nil {
		return nil, metrics.FetchError, fmt.Errorf("%w: read body: %w", ErrUpstream, err)
	}
	if int64(len(body)) > c.maxBody {
		return nil, metrics.FetchBadData, fmt.Errorf("%w: over %d bytes", ErrTooLarge, c.maxBody)
	}

	events, err := Decode(bytes.NewReader(body), workID)
	if err != nil {
		return nil, metrics.FetchBadData, err
	}

	c.mu.Lock()
	if etag := resp.Header.Get("ETag"); etag != "" {
		c.etags[workID] = cachedFeed{etag: etag, events: slices.Clone(events)}
	} else {
		delete(c.etags, workID)
	}
	c.mu.Unlock()

	return events, metrics.FetchOK, nil
}
