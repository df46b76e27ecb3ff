package loop

import (
	"sync"
	"time"
)

// CycleRecorder records the start times of the last N capture cycles.
type CycleRecorder struct {
	MaxRecordCount int
	Interval       time.Duration
	CycleTimes     []time.Time
	mu             *sync.Mutex
}

// NewCycleRecorder returns a new CycleRecorder for a loop running every interval.
func NewCycleRecorder(maxRecordCount int, interval time.Duration) *CycleRecorder {
	return &CycleRecorder{
		MaxRecordCount: maxRecordCount,
		Interval:       interval,
		CycleTimes:     make([]time.Time, 0),
		mu:             &sync.Mutex{},
	}
}

// AddRecord adds a new record.
func (r *CycleRecorder) AddRecord(t time.Time) {
	r.mu.Lock()
	defer r.mu.Unlock()

	// Strip monotonic clock reading.
	// This will prevent time.Since from returning values that are not accurate (especially when the system is in sleep mode).
	t = t.Round(0)

	if len(r.CycleTimes) >= r.MaxRecordCount {
		r.CycleTimes = r.CycleTimes[1:]
	}
	r.CycleTimes = append(r.CycleTimes, t)
}

// GetRecordsIn returns the number of continuous records in the last duration.
func (r *CycleRecorder) GetRecordsIn(last time.Duration) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	// The last record must be within the last duration.
	if len(r.CycleTimes) > 0 && time.Since(r.CycleTimes[len(r.CycleTimes)-1]) >= r.Interval+time.Second {
		return 0
	}

	// Find continuous records from the end of the list.
	// Continuous records are defined as the time difference between
	// two adjacent records is less than Interval+1 second.
	count := 0
	for i := len(r.CycleTimes) - 1; i >= 0; i-- {
		record := r.CycleTimes[i]
		if time.Since(record) > last {
			break
		}

		theRecordAfter := record
		if i+1 < len(r.CycleTimes) {
			theRecordAfter = r.CycleTimes[i+1]
		}

		if theRecordAfter.Sub(record) >= r.Interval+time.Second {
			break
		}
		count++
	}

	return count
}

// GetLastRecord returns the last record.
func (r *CycleRecorder) GetLastRecord() time.Time {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.CycleTimes) == 0 {
		return time.Time{}
	}

	return r.CycleTimes[len(r.CycleTimes)-1]
}

// MissedCycles reports whether fewer cycles than expected ran in the last
// window. It is false until the recorder has seen a full window.
func (r *CycleRecorder) MissedCycles(window time.Duration) bool {
	r.mu.Lock()
	if len(r.CycleTimes) == 0 || time.Since(r.CycleTimes[0]) < window {
		r.mu.Unlock()
		return false
	}
	r.mu.Unlock()

	expected := int(window / r.Interval)
	return r.GetRecordsIn(window) < expected-1
}
