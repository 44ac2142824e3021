package api

import (
	"net/http"

	"github.com/okian/calmark/internal/adapters/mq/queue"
	"github.com/okian/calmark/internal/domain/types"
)

// RefreshHandler queues re-fetches from the project API.
type RefreshHandler struct {
	deps Dependencies
}

// NewRefreshHandler creates a new refresh handler.
func NewRefreshHandler(deps Dependencies) *RefreshHandler {
	return &RefreshHandler{deps: deps}
}

// HandleRefresh handles POST /works/{workID}/refresh.
// 202 when queued, 200 when a refresh is already pending, 429 on backpressure.
func (h *RefreshHandler) HandleRefresh(w http.ResponseWriter, r *http.Request) {
	const op = "api.refresh"
	id, ok := workID(r)
	if !ok {
		writeError(w, NewKind(op, ErrBadRequest))
		return
	}

	status, err := h.deps.RequestRefresh(r.Context(), id, queue.ReasonAPI)
	if err != nil {
		writeError(w, Wrap(op, err))
		return
	}
	code := http.StatusAccepted
	if status == types.RefreshInFlight {
		code = http.StatusOK
	}
	writeJSON(w, code, types.RefreshStatus{WorkID: id, Status: status})
}
