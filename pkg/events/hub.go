package events

import (
	"encoding/json"
	"sync"

	"github.com/sirupsen/logrus"
)

// subscriberBuffer is how many events a subscriber may lag behind before
// events are dropped for it.
const subscriberBuffer = 16

// AllCameras subscribes to the events of every camera.
const AllCameras = ""

// EventHub fans out loop events to API subscribers, optionally narrowed to
// one camera. A nil *EventHub drops everything, so loops can run without a
// daemon.
type EventHub struct {
	mu sync.RWMutex
	// subs maps each subscriber to the camera it follows.
	subs map[chan Event]string
	// dropped counts events lost to slow subscribers.
	dropped uint64
}

func NewEventHub() *EventHub {
	return &EventHub{subs: make(map[chan Event]string)}
}

// Subscribe returns a channel receiving the events of camera, or of all
// cameras for AllCameras.
func (h *EventHub) Subscribe(camera string) chan Event {
	ch := make(chan Event, subscriberBuffer)
	h.mu.Lock()
	h.subs[ch] = camera
	h.mu.Unlock()
	return ch
}

// Unsubscribe closes ch. Unsubscribing twice is a no-op.
func (h *EventHub) Unsubscribe(ch chan Event) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[ch]; ok {
		delete(h.subs, ch)
		close(ch)
	}
}

// Subscribers returns the number of active subscribers.
func (h *EventHub) Subscribers() int {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.subs)
}

// Dropped returns how many deliveries were skipped because a subscriber
// was full.
func (h *EventHub) Dropped() uint64 {
	if h == nil {
		return 0
	}
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.dropped
}

// Publish sends payload as JSON to every subscriber following camera.
// It never blocks on a slow subscriber.
func (h *EventHub) Publish(camera, name string, payload any) {
	if h == nil {
		return
	}
	b, err := json.Marshal(payload)
	if err != nil {
		logrus.WithField("camera", camera).Errorf("failed to marshal %s event: %v", name, err)
		return
	}
	msg := Event{Name: name, Camera: camera, Data: b}

	// Write lock, since dropped is updated while delivering.
	h.mu.Lock()
	defer h.mu.Unlock()
	for ch, follows := range h.subs {
		if follows != AllCameras && follows != camera {
			continue
		}
		select {
		case ch <- msg:
		default:
			h.dropped++
			logrus.WithFields(logrus.Fields{
				"camera": camera,
				"event":  name,
			}).Trace("subscriber is slow, dropping event")
		}
	}
}
