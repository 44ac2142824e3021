// Package types contains common types used across the application
package types

// DayEvent is one row of the day-detail list under the calendar.
type DayEvent struct {
	ID      string `json:"id"`
	Date    string `json:"date"`
	Title   string `json:"title,omitempty"`
	Address string `json:"address,omitempty"`
	Color   string `json:"color"`
}

// Day is the day-detail list for one calendar date.
type Day struct {
	WorkID string     `json:"work_id"`
	Date   string     `json:"date"`
	Events []DayEvent `json:"events"`
}

// RefreshStatus reports the outcome of a refresh request.
type RefreshStatus struct {
	WorkID string `json:"work_id"`
	Status string `json:"status"`
}

// Refresh status values.
const (
	RefreshAccepted = "accepted"
	RefreshInFlight = "in_flight"
)
