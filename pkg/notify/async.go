package notify

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

const deliveryTimeout = 30 * time.Second

// Async hands notifications to a background goroutine so request latency
// does not depend on the mail server (or on whether the account exists).
type Async struct {
	next Notifier
	log  *zap.Logger
	wg   sync.WaitGroup
}

func NewAsync(next Notifier, log *zap.Logger) *Async {
	return &Async{next: next, log: log.With(zap.String("notifier", "async"))}
}

func (a *Async) Notify(_ context.Context, n Notification) error {
	a.wg.Add(1)
	go func() {
		defer a.wg.Done()

		ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
		defer cancel()

		if err := a.next.Notify(ctx, n); err != nil {
			a.log.Error("Failed to deliver notification",
				zap.Error(err),
				zap.String("email", n.Email),
				zap.String("purpose", string(n.Purpose)),
			)
		}
	}()
	return nil
}

// Wait blocks until every queued delivery has finished or ctx is done.
func (a *Async) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
