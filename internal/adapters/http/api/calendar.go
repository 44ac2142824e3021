package api

import (
	"bytes"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/pkg/logger"
)

// CalendarHandler serves the read side: marked dates, day lists and ICS.
type CalendarHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewCalendarHandler creates a new calendar handler.
func NewCalendarHandler(deps Dependencies, log logger.Logger) *CalendarHandler {
	return &CalendarHandler{deps: deps, log: log}
}

// HandleCalendar handles GET /works/{workID}/calendar?date=YYYY-MM-DD.
func (h *CalendarHandler) HandleCalendar(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar"
	id, ok := workID(r)
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	selected := h.deps.Today()
	if raw := r.URL.Query().Get("date"); raw != "" {
		d, err := model.ParseCalendarDate(raw)
		if err != nil {
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
		selected = d
	}

	idx, err := h.deps.MarkedDates(r.Context(), id, selected)
	if err != nil {
		h.fail(r, op, id, err, w)
		return
	}
	w.Header().Set("X-Selected-Date", string(selected))
	writeJSON(w, http.StatusOK, idx)
}

// HandleDay handles GET /works/{workID}/days/{date}.
func (h *CalendarHandler) HandleDay(w http.ResponseWriter, r *http.Request) {
	const op = "api.day"
	id, ok := workID(r)
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}
	date, err := model.ParseCalendarDate(mux.Vars(r)["date"])
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}

	day, err := h.deps.Day(r.Context(), id, date)
	if err != nil {
		h.fail(r, op, id, err, w)
		return
	}
	writeJSON(w, http.StatusOK, day)
}

// HandleICS handles GET /works/{workID}/calendar.ics.
func (h *CalendarHandler) HandleICS(w http.ResponseWriter, r *http.Request) {
	const op = "api.calendar_ics"
	id, ok := workID(r)
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	// Buffered so a failure can still change the status.
	var buf bytes.Buffer
	if err := h.deps.ExportICS(r.Context(), id, &buf); err != nil {
		h.fail(r, op, id, err, w)
		return
	}
	w.Header().Set("Content-Type", "text/calendar; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id+`.ics"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(buf.Bytes())
}

func (h *CalendarHandler) fail(r *http.Request, op, id string, err error, w http.ResponseWriter) {
	err = Wrap(op, err)
	if status, _ := statusFor(err); status >= http.StatusInternalServerError {
		h.log.Error(r.Context(), "calendar request failed",
			logger.String("op", op),
			logger.String("work", id),
			logger.Error(err))
	}
	writeError(w, err)
}
