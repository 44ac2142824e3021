package api

import (
	"errors"
	"net/http"

	"github.com/okian/calmark/internal/adapters/feed"
	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/adapters/repository"
	service "github.com/okian/calmark/internal/app"
	"github.com/okian/calmark/internal/domain/model"
)

// Sentinel kinds for API errors.
var (
	ErrBadRequest   = errors.New("bad request")
	ErrNotFound     = errors.New("not found")
	ErrBackpressure = errors.New("backpressure")
	ErrUpstreamData = errors.New("bad upstream data")
	ErrUnavailable  = errors.New("unavailable")
)

// OpError records the operation that failed and the kind it maps to.
type OpError struct {
	Op   string
	Kind error
	Err  error
}

func (e *OpError) Error() string {
	switch {
	case e.Err != nil:
		return e.Op + ": " + e.Err.Error()
	case e.Kind != nil:
		return e.Op + ": " + e.Kind.Error()
	default:
		return e.Op
	}
}

// Unwrap exposes both the kind and the cause to errors.Is/As.
func (e *OpError) Unwrap() []error {
	out := make([]error, 0, 2)
	if e.Kind != nil {
		out = append(out, e.Kind)
	}
	if e.Err != nil {
		out = append(out, e.Err)
	}
	return out
}

// NewKind builds an error of kind with no further cause.
func NewKind(op string, kind error) error {
	return &OpError{Op: op, Kind: kind}
}

// WrapKind attaches an explicit kind to err.
func WrapKind(op string, kind, err error) error {
	return &OpError{Op: op, Kind: kind, Err: err}
}

// Wrap infers the kind of err from the sentinels of the layers below.
// A malformed event date here comes from stored data, not from the request.
func Wrap(op string, err error) error {
	var kind error
	switch {
	case errors.Is(err, repository.ErrNotFound), errors.Is(err, feed.ErrNotFound):
		kind = ErrNotFound
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrClosed):
		kind = ErrBackpressure
	case errors.Is(err, repository.ErrInvalidWorkID), errors.Is(err, queue.ErrEmptyWorkID):
		kind = ErrBadRequest
	case errors.Is(err, model.ErrInvalidDate):
		kind = ErrUpstreamData
	case errors.Is(err, service.ErrNoFeed):
		kind = ErrUnavailable
	}
	return &OpError{Op: op, Kind: kind, Err: err}
}

// statusFor maps an error to its HTTP status and response code.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, ErrBadRequest):
		return http.StatusBadRequest, "bad_request"
	case errors.Is(err, ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, ErrBackpressure):
		return http.StatusTooManyRequests, "backpressure"
	case errors.Is(err, ErrUpstreamData):
		return http.StatusBadGateway, "bad_upstream_data"
	case errors.Is(err, ErrUnavailable):
		return http.StatusServiceUnavailable, "feed_unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}
