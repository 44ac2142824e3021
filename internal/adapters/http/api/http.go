// Package api declares HTTP contracts and route registration helpers.
package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"

	"github.com/gorilla/mux"

	"github.com/okian/calmark/internal/domain/marking"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/internal/domain/types"
	"github.com/okian/calmark/pkg/logger"
)

// Dependencies required by HTTP handlers. Using an interface bundle keeps
// the handler layer loosely coupled to implementations in other packages.
type Dependencies interface {
	// Today is the default selected date in the configured zone.
	Today() model.CalendarDate

	// MarkedDates builds the marked-date index of a work for selected.
	MarkedDates(ctx context.Context, workID string, selected model.CalendarDate) (marking.Index, error)

	// Day lists the events of a work on date with their dot colors.
	Day(ctx context.Context, workID string, date model.CalendarDate) (types.Day, error)

	// ExportICS writes the work's events as iCalendar.
	ExportICS(ctx context.Context, workID string, w io.Writer) error

	// ReplaceEvents swaps the stored event list of a work.
	ReplaceEvents(ctx context.Context, workID string, events []model.Event) error

	// RequestRefresh schedules a re-fetch and reports types.RefreshAccepted
	// or types.RefreshInFlight.
	RequestRefresh(ctx context.Context, workID, reason string) (string, error)
}

// Server wires HTTP routes for the business API.
type Server struct {
	healthHandler   *HealthHandler
	statsHandler    *StatsHandler
	calendarHandler *CalendarHandler
	eventsHandler   *EventsHandler
	refreshHandler  *RefreshHandler
}

// NewServer creates a new API server with all handlers.
func NewServer(deps Dependencies, statsProvider StatsProvider, opts ...Option) *Server {
	o := options{log: logger.Nop()}
	for _, opt := range opts {
		opt(&o)
	}
	return &Server{
		healthHandler:   NewHealthHandler(),
		statsHandler:    NewStatsHandler(statsProvider),
		calendarHandler: NewCalendarHandler(deps, o.log),
		eventsHandler:   NewEventsHandler(deps, o.log),
		refreshHandler:  NewRefreshHandler(deps),
	}
}

// Option configures a Server.
type Option func(*options)

type options struct {
	log logger.Logger
}

// WithLogger sets the logger handlers use for server-side failures.
func WithLogger(l logger.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.log = l
		}
	}
}

// Register attaches all HTTP routes to r.
func (s *Server) Register(_ context.Context, r *mux.Router) {
	r.HandleFunc("/healthz", MetricsMiddleware(s.healthHandler.HandleHealth, "healthz")).Methods(http.MethodGet)
	r.HandleFunc("/stats", MetricsMiddleware(s.statsHandler.HandleStats, "stats")).Methods(http.MethodGet)

	r.HandleFunc("/works/{workID}/calendar", MetricsMiddleware(s.calendarHandler.HandleCalendar, "calendar")).Methods(http.MethodGet)
	r.HandleFunc("/works/{workID}/calendar.ics", MetricsMiddleware(s.calendarHandler.HandleICS, "calendar_ics")).Methods(http.MethodGet)
	r.HandleFunc("/works/{workID}/days/{date}", MetricsMiddleware(s.calendarHandler.HandleDay, "day")).Methods(http.MethodGet)
	r.HandleFunc("/works/{workID}/events", MetricsMiddleware(s.eventsHandler.HandlePutEvents, "events")).Methods(http.MethodPut)
	r.HandleFunc("/works/{workID}/refresh", MetricsMiddleware(s.refreshHandler.HandleRefresh, "refresh")).Methods(http.MethodPost)
}

type errorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeError answers with the status err's kind maps to.
func writeError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	setErrorCode(w, code)
	msg := http.StatusText(status)
	if err != nil {
		msg = err.Error()
	}
	writeJSON(w, status, errorResponse{Code: code, Message: msg})
}

// workID reads and validates the {workID} path variable.
func workID(r *http.Request) (string, bool) {
	id := strings.TrimSpace(mux.Vars(r)["workID"])
	return id, id != ""
}
