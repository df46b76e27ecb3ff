package events

import "encoding/json"

// Event name constants
const (
	ExposureChanged = "exposure.changed"
	CaptureFailed   = "capture.failed"
)

// Event is a generic SSE event from daemon.
type Event struct {
	Name   string          // SSE event name
	Camera string          // camera the event is about
	Data   json.RawMessage // Raw JSON payload
}

// ExposureChangedEvent is the typed payload for exposure.changed.
type ExposureChangedEvent struct {
	Cycle      string  `json:"cycle"`
	Camera     string  `json:"camera"`
	FromTier   int     `json:"fromTier"`
	FromGain   int     `json:"fromGain"`
	ToTier     int     `json:"toTier"`
	ToGain     int     `json:"toGain"`
	Brightness float64 `json:"brightness"`
	Ts         int64   `json:"ts"`
}

// CaptureFailedEvent is the typed payload for capture.failed.
type CaptureFailedEvent struct {
	Cycle  string `json:"cycle"`
	Camera string `json:"camera"`
	Reason string `json:"reason"`
	Ts     int64  `json:"ts"`
}

// DecodeAs decodes the event payload into the caller-specified generic type T.
// It ignores the event name and simply unmarshals Data into T. If Data is empty,
// it returns the zero value of T with a nil error.
//
// Example:
//
//	payload, err := events.DecodeAs[events.ExposureChangedEvent](ev)
//	if err != nil { /* handle */ }
//	fmt.Println(payload.FromTier, payload.ToTier)
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
