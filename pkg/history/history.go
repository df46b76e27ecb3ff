package history

import (
	"context"
	"errors"
	"time"

	"github.com/charlie0129/camexpo/pkg/exposure"
)

// ErrNotFound indicates the camera has no recorded cycles.
var ErrNotFound = errors.New("no history found")

// Outcome describes how a capture cycle ended.
type Outcome string

const (
	OutcomeOK            Outcome = "ok"
	OutcomeCaptureFailed Outcome = "capture_failed"
	OutcomeDecodeFailed  Outcome = "decode_failed"
	OutcomeControlFailed Outcome = "control_failed"
	OutcomePanicked      Outcome = "panicked"
)

// Record is one capture cycle of one camera.
type Record struct {
	ID int64 `json:"id"`
	// Cycle correlates the record with log lines and events of the same cycle.
	Cycle   string    `json:"cycle"`
	Camera  string    `json:"camera"`
	TakenAt time.Time `json:"takenAt"`
	// File is empty when nothing was persisted.
	File string `json:"file,omitempty"`
	// Brightness is nil when no sample was available.
	Brightness *float64       `json:"brightness,omitempty"`
	Before     exposure.State `json:"before"`
	After      exposure.State `json:"after"`
	Outcome    Outcome        `json:"outcome"`
	Error      string         `json:"error,omitempty"`
}

// Changed reports whether the cycle moved the camera to a new state.
func (r *Record) Changed() bool {
	return r.Before != r.After
}

// Repository stores capture records.
type Repository interface {
	// Save persists r and sets its ID.
	Save(ctx context.Context, r *Record) error
	// Latest returns the most recent record of camera.
	Latest(ctx context.Context, camera string) (*Record, error)
	// List returns up to limit records of camera, newest first.
	List(ctx context.Context, camera string, limit int) ([]*Record, error)
	// DeleteOlderThan removes records taken before t.
	DeleteOlderThan(ctx context.Context, t time.Time) (int64, error)
	Close() error
}
