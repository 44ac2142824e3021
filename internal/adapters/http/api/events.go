package api

import (
	"errors"
	"net/http"

	"github.com/okian/calmark/internal/adapters/feed"
	"github.com/okian/calmark/internal/domain/model"
	"github.com/okian/calmark/pkg/logger"
)

// maxEventsBody caps PUT bodies.
const maxEventsBody = 4 << 20

// EventsHandler accepts pushed event lists.
type EventsHandler struct {
	deps Dependencies
	log  logger.Logger
}

// NewEventsHandler creates a new events handler.
func NewEventsHandler(deps Dependencies, log logger.Logger) *EventsHandler {
	return &EventsHandler{deps: deps, log: log}
}

// HandlePutEvents handles PUT /works/{workID}/events. The body has the same
// shape the project API returns. Every date must parse.
func (h *EventsHandler) HandlePutEvents(w http.ResponseWriter, r *http.Request) {
	const op = "api.put_events"
	id, ok := workID(r)
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	events, err := feed.Decode(http.MaxBytesReader(w, r.Body, maxEventsBody), id)
	if err != nil {
		writeError(w, WrapKind(op, ErrBadRequest, err))
		return
	}
	for _, ev := range events {
		if _, err := model.TruncateDate(ev.Date, nil); err != nil {
			var ide *model.InvalidDateError
			if errors.As(err, &ide) {
				ide.EventID = ev.ID
			}
			writeError(w, WrapKind(op, ErrBadRequest, err))
			return
		}
	}

	if err := h.deps.ReplaceEvents(r.Context(), id, events); err != nil {
		err = Wrap(op, err)
		h.log.Warn(r.Context(), "replace events failed", logger.String("work", id), logger.Error(err))
		writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
