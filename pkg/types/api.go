package types

import "time"

// CreateRequest is the body of POST /allocations.
type CreateRequest struct {
	Name     string    `json:"name"`
	Labels   []string  `json:"labels,omitempty"`
	Percents []float64 `json:"percents,omitempty"`
}

// ShiftRequest is the body of PUT /allocations/:id/shift.
type ShiftRequest struct {
	Index     int     `json:"index"`
	Magnitude float64 `json:"magnitude"`
}

// IndexRequest is the body of increment, decrement and remove.
type IndexRequest struct {
	Index int `json:"index"`
}

// EditRequest is the body of PUT /allocations/:id/edit. Text is what the user
// typed, e.g. "30%" or "0.3".
type EditRequest struct {
	Index int    `json:"index"`
	Text  string `json:"text"`
}

// ForceRequest is the body of reset and recalibrate.
type ForceRequest struct {
	Force bool `json:"force"`
}

// ScheduleRequest is the body of PUT /schedule. An empty Expr disables
// periodic recalibration.
type ScheduleRequest struct {
	Expr string `json:"expr"`
}

// ScheduleStatus is returned by GET /schedule.
type ScheduleStatus struct {
	Expr    string    `json:"expr"`
	NextRun time.Time `json:"nextRun"`
	Running bool      `json:"running"`
}
