package events

import "encoding/json"

// Event name constants
const (
	// SeriesChanged is published whenever the shares of an allocation change.
	SeriesChanged = "series.changed"
	// SeriesDeleted is published when an allocation is deleted.
	SeriesDeleted = "series.deleted"
)

// Operations carried in SeriesChangedEvent.Op.
const (
	OpCreate      = "create"
	OpShift       = "shift"
	OpEdit        = "edit"
	OpRemove      = "remove"
	OpReset       = "reset"
	OpRecalibrate = "recalibrate"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name string          // SSE event name
	Data json.RawMessage // Raw JSON payload
}

// SeriesChangedEvent is the typed payload for series.changed.
type SeriesChangedEvent struct {
	ID     string    `json:"id"`
	Name   string    `json:"name"`
	Op     string    `json:"op"`
	Index  *int      `json:"index,omitempty"`
	Shares []float64 `json:"shares"`
	Ts     int64     `json:"ts"`
}

// SeriesDeletedEvent is the typed payload for series.deleted.
type SeriesDeletedEvent struct {
	ID string `json:"id"`
	Ts int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.SeriesChangedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.Op, payload.Shares)
func DecodeAs[T any](e Event) (T, error) {
	var zero T
	if len(e.Data) == 0 {
		return zero, nil
	}
	var v T
	if err := json.Unmarshal(e.Data, &v); err != nil {
		return zero, err
	}
	return v, nil
}
