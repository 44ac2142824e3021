package fixtures

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/gorilla/mux"

	"github.com/okian/calmark/internal/domain/model"
)

// WireEvent is the project API's event row: display fields nested under "event".
type WireEvent struct {
	ID    string     `json:"id,omitempty"`
	Event WireDetail `json:"event"`
}

// WireDetail holds the nested event fields.
type WireDetail struct {
	Date    string `json:"date"`
	Title   string `json:"title,omitempty"`
	Address string `json:"address,omitempty"`
}

// Wire converts events to the API's nested layout.
func Wire(events []model.Event) []WireEvent {
	out := make([]WireEvent, len(events))
	for i, ev := range events {
		out[i] = WireEvent{
			ID:    ev.ID,
			Event: WireDetail{Date: ev.Date, Title: ev.Title, Address: ev.Address},
		}
	}
	return out
}

// Handler is a fake project API serving GET /works/{workID}/events.
// Responses carry an ETag and honour If-None-Match.
type Handler struct {
	router *mux.Router
	token  string

	mu    sync.RWMutex
	works map[string][]byte

	requests    atomic.Int64
	notModified atomic.Int64
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithToken makes the handler require "Authorization: Bearer <token>".
func WithToken(token string) HandlerOption {
	return func(h *Handler) { h.token = token }
}

// NewHandler returns an empty fake API.
func NewHandler(opts ...HandlerOption) *Handler {
	h := &Handler{works: make(map[string][]byte)}
	for _, opt := range opts {
		opt(h)
	}
	h.router = mux.NewRouter()
	h.router.HandleFunc("/works/{workID}/events", h.events).Methods(http.MethodGet)
	return h
}

// Set publishes events for workID in the nested layout.
func (h *Handler) Set(workID string, events []model.Event) {
	h.SetRaw(workID, mustJSON(Wire(events)))
}

// SetRaw publishes an arbitrary body for workID.
func (h *Handler) SetRaw(workID string, body []byte) {
	h.mu.Lock()
	h.works[workID] = slices.Clone(body)
	h.mu.Unlock()
}

// Requests reports how many event requests were served.
func (h *Handler) Requests() int64 { return h.requests.Load() }

// NotModified reports how many requests were answered with 304.
func (h *Handler) NotModified() int64 { return h.notModified.Load() }

// ServeHTTP implements http.Handler.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	h.router.ServeHTTP(w, r)
}

func (h *Handler) events(w http.ResponseWriter, r *http.Request) {
	h.requests.Add(1)
	if h.token != "" && r.Header.Get("Authorization") != "Bearer "+h.token {
		http.Error(w, "unauthorized", http.StatusUnauthorized)
		return
	}

	h.mu.RLock()
	body, ok := h.works[mux.Vars(r)["workID"]]
	h.mu.RUnlock()
	if !ok {
		http.Error(w, "work not found", http.StatusNotFound)
		return
	}

	sum := sha256.Sum256(body)
	etag := `"` + hex.EncodeToString(sum[:8]) + `"`
	w.Header().Set("ETag", etag)
	if r.Header.Get("If-None-Match") == etag {
		h.notModified.Add(1)
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(body)
}

func mustJSON(v any) []byte {
	b, err := json.Marshal(v)
	if err != nil {
		panic(err)
	}
	return b
}
