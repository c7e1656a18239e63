package notify

import (
	"context"
	"sync"
)

// Recorder keeps every notification in memory. Used by the memory store
// setup and by tests that need to read issued tokens back.
type Recorder struct {
	mu   sync.Mutex
	sent []Notification
}

func (r *Recorder) Notify(_ context.Context, n Notification) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, n)
	return nil
}

func (r *Recorder) Sent() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.sent...)
}

// Last returns the most recent notification for purpose, if any.
func (r *Recorder) Last(purpose Purpose) (Notification, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for i := len(r.sent) - 1; i >= 0; i-- {
		if r.sent[i].Purpose == purpose {
			return r.sent[i], true
		}
	}
	return Notification{}, false
}

// Multi fans a notification out to several notifiers and returns the first error.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, n Notification) error {
	var first error
	for _, next := range m {
		if err := next.Notify(ctx, n); err != nil && first == nil {
			first = err
		}
	}
	return first
}
