package testhelpers

import (
	"sync"

	"imposter-rounds/internal/domain"
)

// Recorder captures outbound game events in emission order
type Recorder struct {
	mu     sync.Mutex
	events []*domain.GameEvent
}

// Notify records an event
func (r *Recorder) Notify(event *domain.GameEvent) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Events returns a copy of everything recorded so far
func (r *Recorder) Events() []*domain.GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.GameEvent, len(r.events))
	copy(out, r.events)
	return out
}

// Types returns the recorded event types in order
func (r *Recorder) Types() []domain.EventType {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]domain.EventType, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

// OfType returns the recorded events of one type
func (r *Recorder) OfType(t domain.EventType) []*domain.GameEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*domain.GameEvent, 0)
	for _, e := range r.events {
		if e.Type == t {
			out = append(out, e)
		}
	}
	return out
}

// Last returns the most recent event of a type, or nil
func (r *Recorder) Last(t domain.EventType) *domain.GameEvent {
	events := r.OfType(t)
	if len(events) == 0 {
		return nil
	}
	return events[len(events)-1]
}

// Reset forgets everything recorded so far
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
