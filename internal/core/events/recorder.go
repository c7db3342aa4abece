package events

import (
	"context"
	"sync"
)

// Recorder is a Publisher that keeps every event in memory.
type Recorder struct {
	mu     sync.Mutex
	events []Event
}

func NewRecorder() *Recorder {
	return &Recorder{}
}

func (r *Recorder) Notify(_ context.Context, event Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

// Audits returns the recorded audit events, optionally filtered by action.
func (r *Recorder) Audits(action ...string) []*AuditEvent {
	r.mu.Lock()
	defer r.mu.Unlock()

	var out []*AuditEvent
	for _, e := range r.events {
		ae, ok := e.(*AuditEvent)
		if !ok {
			continue
		}
		if len(action) > 0 && ae.Action != action[0] {
			continue
		}
		out = append(out, ae)
	}
	return out
}

func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = nil
}
