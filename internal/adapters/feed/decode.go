package feed

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/okian/calmark/internal/domain/model"
)

// idNamespace scopes the name-based ids minted for events the API sent without one.
var idNamespace = uuid.MustParse("6f1f6c2e-3f55-4c59-9a43-0b1d8f2a7c10")

// wireEvent accepts both the nested `{"event": {"date": ...}}` layout and a
// flat `{"date": ...}` one. Nested fields win when both are present.
type wireEvent struct {
	ID      json.RawMessage `json:"id"`
	Date    string          `json:"date"`
	Title   string          `json:"title"`
	Address string          `json:"address"`
	Event   *struct {
		Date    string `json:"date"`
		Title   string `json:"title"`
		Address string `json:"address"`
	} `json:"event"`
}

type envelope struct {
	Events []wireEvent `json:"events"`
	Data   []wireEvent `json:"data"`
}

// Decode reads an event list for workID. The body may be a bare JSON array or
// an object carrying the array under "events" or "data". Order is preserved.
// Items without a date are not calendar events and are dropped. Other dates
// are not validated here; the index builder rejects bad ones.
func Decode(r io.Reader, workID string) ([]model.Event, error) {
	raw, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrDecode, err)
	}
	raw = bytes.TrimSpace(raw)

	var items []wireEvent
	switch {
	case len(raw) == 0:
		return nil, fmt.Errorf("%w: empty body", ErrDecode)
	case raw[0] == '[':
		if err := json.Unmarshal(raw, &items); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
	default:
		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return nil, fmt.Errorf("%w: %w", ErrDecode, err)
		}
		items = env.Events
		if items == nil {
			items = env.Data
		}
	}

	out := make([]model.Event, 0, len(items))
	for i, it := range items {
		ev := model.Event{Date: it.Date, Title: it.Title, Address: it.Address}
		if it.Event != nil {
			if it.Event.Date != "" {
				ev.Date = it.Event.Date
			}
			if it.Event.Title != "" {
				ev.Title = it.Event.Title
			}
			if it.Event.Address != "" {
				ev.Address = it.Event.Address
			}
		}
		if strings.TrimSpace(ev.Date) == "" {
			continue
		}
		id, err := decodeID(it.ID)
		if err != nil {
			return nil, fmt.Errorf("%w: event %d: %w", ErrDecode, i, err)
		}
		if id == "" {
			id = SyntheticID(workID, i, ev)
		}
		ev.ID = id
		out = append(out, ev)
	}
	return out, nil
}

// decodeID accepts string or numeric ids.
func decodeID(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || string(raw) == "null" {
		return "", nil
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return "", err
		}
		return s, nil
	}
	var n json.Number
	if err := json.Unmarshal(raw, &n); err != nil {
		return "", fmt.Errorf("id must be a string or number: %s", raw)
	}
	return n.String(), nil
}

// SyntheticID derives a stable id for an event that arrived without one, so
// its dot keeps the same key across refreshes of an unchanged list.
func SyntheticID(workID string, position int, ev model.Event) string {
	name := workID + "\x00" + strconv.Itoa(position) + "\x00" + ev.Date + "\x00" + ev.Title
	return uuid.NewSHA1(idNamespace, []byte(name)).String()
}
