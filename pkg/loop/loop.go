package loop

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/charlie0129/camexpo/pkg/brightness"
	"github.com/charlie0129/camexpo/pkg/events"
	"github.com/charlie0129/camexpo/pkg/exposure"
	"github.com/charlie0129/camexpo/pkg/history"
)

const (
	// DefaultInterval is the minimum time between the start of two cycles.
	DefaultInterval = 10 * time.Second

	recorderSize = 60
	// missedCycleWindow is how far back the recorder looks for missed cycles.
	missedCycleWindow = time.Minute + 20*time.Second // add 20s to be sure
)

// Camera is the camera a Loop controls.
type Camera interface {
	URL() string
	// Capture returns one encoded photo.
	Capture(ctx context.Context) ([]byte, error)
	// Apply issues control commands in order.
	Apply(ctx context.Context, cmds []exposure.Command) error
}

// Store persists raw captures.
type Store interface {
	Save(t time.Time, b []byte) (string, error)
}

// Option configures a Loop.
type Option func(*Loop)

// WithInterval sets the cycle cadence.
func WithInterval(d time.Duration) Option {
	return func(l *Loop) {
		if d > 0 {
			l.interval = d
		}
	}
}

// WithHistory records every cycle to repo.
func WithHistory(repo history.Repository) Option {
	return func(l *Loop) {
		l.repo = repo
	}
}

// WithEvents publishes state changes and failures to hub.
func WithEvents(hub *events.EventHub) Option {
	return func(l *Loop) {
		l.hub = hub
	}
}

// WithInitialState overrides exposure.DefaultState.
func WithInitialState(s exposure.State) Option {
	return func(l *Loop) {
		l.state = s
	}
}

// Loop periodically captures photos from one camera and keeps its
// exposure within the target brightness band. The exposure state is only
// written by cycles, which never run concurrently.
type Loop struct {
	name     string
	cam      Camera
	store    Store
	interval time.Duration
	repo     history.Repository
	hub      *events.EventHub
	recorder *CycleRecorder

	// cycleLock prevents a forced cycle from the API running in parallel
	// with the scheduled one.
	cycleLock sync.Mutex

	mu    sync.RWMutex
	state exposure.State
	last  *history.Record
}

// New returns a Loop for cam that stores captures in store.
func New(name string, cam Camera, store Store, opts ...Option) *Loop {
	l := &Loop{
		name:     name,
		cam:      cam,
		store:    store,
		interval: DefaultInterval,
		state:    exposure.DefaultState(),
	}
	for _, o := range opts {
		o(l)
	}
	l.recorder = NewCycleRecorder(recorderSize, l.interval)
	return l
}

// Name returns the camera name.
func (l *Loop) Name() string {
	return l.name
}

// State returns the exposure state the camera is believed to be in.
func (l *Loop) State() exposure.State {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.state
}

// LastCycle returns the result of the last finished cycle, or nil.
func (l *Loop) LastCycle() *history.Record {
	l.mu.RLock()
	defer l.mu.RUnlock()
	if l.last == nil {
		return nil
	}
	cp := *l.last
	return &cp
}

func (l *Loop) logger() *logrus.Entry {
	return logrus.WithFields(logrus.Fields{
		"camera": l.name,
		"url":    l.cam.URL(),
	})
}

// Run captures every interval until ctx is done. A failing cycle never
// stops the loop; the next one starts once the interval has elapsed since
// the failing one started.
func (l *Loop) Run(ctx context.Context) {
	l.logger().WithField("interval", l.interval).Info("capture loop starts")

	for {
		start := time.Now()
		l.recorder.AddRecord(start)

		l.Cycle(ctx)

		if l.recorder.MissedCycles(missedCycleWindow) {
			l.logger().WithFields(logrus.Fields{
				"cycles":   l.recorder.GetRecordsIn(missedCycleWindow),
				"expected": int(missedCycleWindow / l.interval),
			}).Warn("possibly missed capture cycles, camera may be slow to respond")
		}

		wait := l.interval - time.Since(start)
		if wait < 0 {
			wait = 0
		}
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			l.logger().Info("capture loop stopped")
			return
		case <-timer.C:
		}
	}
}

// Cycle captures one photo, stores it, and adjusts exposure if needed.
// It returns what happened. Failures, panics included, are logged and
// recorded, not returned.
func (l *Loop) Cycle(ctx context.Context) (rec *history.Record) {
	l.cycleLock.Lock()
	defer l.cycleLock.Unlock()

	takenAt := time.Now()
	before := l.State()
	rec = &history.Record{
		Cycle:   uuid.New().String(),
		Camera:  l.name,
		TakenAt: takenAt,
		Before:  before,
		After:   before,
		Outcome: history.OutcomeOK,
	}

	log := l.logger().WithField("cycle", rec.Cycle)

	defer func() {
		if r := recover(); r != nil {
			log.Errorf("capture cycle panicked: %v", r)
			rec.Outcome = history.OutcomePanicked
			rec.Error = fmt.Sprintf("panic: %v", r)
		}
		l.finish(ctx, rec)
	}()

	photo, err := l.cam.Capture(ctx)
	if err != nil {
		log.Errorf("cannot read from camera: %v", err)
		rec.Outcome = history.OutcomeCaptureFailed
		rec.Error = err.Error()
		l.hub.Publish(l.name, events.CaptureFailed, events.CaptureFailedEvent{
			Cycle:  rec.Cycle,
			Camera: l.name,
			Reason: err.Error(),
			Ts:     takenAt.Unix(),
		})
		return rec
	}

	// Storing the photo must not get in the way of exposure control.
	if l.store != nil {
		fn, err := l.store.Save(takenAt, photo)
		if err != nil {
			log.Errorf("failed to store capture: %v", err)
		} else {
			rec.File = fn
		}
	}

	median, err := brightness.FromJPEG(photo)
	if err != nil {
		log.Errorf("cannot parse image: %v", err)
		rec.Outcome = history.OutcomeDecodeFailed
		rec.Error = err.Error()
		return rec
	}
	rec.Brightness = &median

	next := exposure.Decide(before, median)
	rec.After = next

	fields := logrus.Fields{
		"brightness": median,
		"tier":       before.Tier,
		"gain":       before.Gain,
	}
	if next == before {
		log.WithFields(fields).Debug("exposure unchanged")
		return rec
	}

	log.WithFields(fields).Infof("switching exposure from %s to %s", before, next)

	// The camera state is not read back. If some commands did not make it,
	// the next cycles will see the brightness has not changed and try again.
	if err := l.cam.Apply(ctx, exposure.Commands(next)); err != nil {
		log.Errorf("failed to switch exposure to %s: %v", next, err)
		rec.Outcome = history.OutcomeControlFailed
		rec.Error = err.Error()
	}

	l.mu.Lock()
	l.state = next
	l.mu.Unlock()

	l.hub.Publish(l.name, events.ExposureChanged, events.ExposureChangedEvent{
		Cycle:      rec.Cycle,
		Camera:     l.name,
		FromTier:   int(before.Tier),
		FromGain:   before.Gain,
		ToTier:     int(next.Tier),
		ToGain:     next.Gain,
		Brightness: median,
		Ts:         takenAt.Unix(),
	})

	return rec
}

func (l *Loop) finish(ctx context.Context, rec *history.Record) {
	if l.repo != nil {
		// Use a fresh context so a cycle cut short by shutdown is still recorded.
		saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
		err := l.repo.Save(saveCtx, rec)
		cancel()
		if err != nil {
			l.logger().WithField("cycle", rec.Cycle).Errorf("failed to record cycle: %v", err)
		}
	}

	l.mu.Lock()
	cp := *rec
	l.last = &cp
	l.mu.Unlock()
}

// Status is a snapshot of a Loop for the daemon API.
type Status struct {
	Camera          string          `json:"camera"`
	URL             string          `json:"url"`
	State           exposure.State  `json:"state"`
	IntervalSeconds float64         `json:"intervalSeconds"`
	LastCycle       *history.Record `json:"lastCycle,omitempty"`
	LastCycleStart  time.Time       `json:"lastCycleStart"`
	MissedCycles    bool            `json:"missedCycles"`
}

// Status returns a snapshot of the loop.
func (l *Loop) Status() Status {
	return Status{
		Camera:          l.name,
		URL:             l.cam.URL(),
		State:           l.State(),
		IntervalSeconds: l.interval.Seconds(),
		LastCycle:       l.LastCycle(),
		LastCycleStart:  l.recorder.GetLastRecord(),
		MissedCycles:    l.recorder.MissedCycles(missedCycleWindow),
	}
}

func (s Status) String() string {
	return fmt.Sprintf("%s (%s): %s", s.Camera, s.URL, s.State)
}
