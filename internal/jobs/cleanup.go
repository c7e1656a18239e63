package jobs

import (
	"context"
	"time"

	"marketplace-api/internal/data/repository"
	"marketplace-api/pkg/metrics"
	"marketplace-api/pkg/middleware"

	"github.com/robfig/cron/v3"
	"github.com/samber/oops"
	"go.uber.org/zap"
)

// limiterIdle is how long a client IP may stay silent before its bucket is dropped.
const limiterIdle = 30 * time.Minute

// TokenJanitor periodically clears expired reset and verification tokens.
type TokenJanitor struct {
	users   repository.UserRepository
	limiter *middleware.IPRateLimiter
	metrics *metrics.Metrics
	log     *zap.Logger
	now     func() time.Time
	cron    *cron.Cron
}

// NewTokenJanitor schedules the sweep on schedule, a standard cron expression
// or descriptor such as "@every 15m". limiter and m may be nil.
func NewTokenJanitor(schedule string, users repository.UserRepository, limiter *middleware.IPRateLimiter, m *metrics.Metrics, log *zap.Logger) (*TokenJanitor, error) {
	j := &TokenJanitor{
		users:   users,
		limiter: limiter,
		metrics: m,
		log:     log.With(zap.String("job", "token_janitor")),
		now:     time.Now,
		cron:    cron.New(),
	}

	if _, err := j.cron.AddFunc(schedule, j.run); err != nil {
		return nil, oops.Code("JOB_SCHEDULE_INVALID").With("schedule", schedule).Wrap(err)
	}
	return j, nil
}

// Start runs the schedule in its own goroutine.
func (j *TokenJanitor) Start() {
	j.log.Info("Starting token janitor")
	j.cron.Start()
}

// Stop halts the schedule and waits for a running sweep, or for ctx.
func (j *TokenJanitor) Stop(ctx context.Context) error {
	done := j.cron.Stop()
	select {
	case <-done.Done():
		j.log.Info("Token janitor stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// RunOnce performs one sweep and returns the number of users cleared.
func (j *TokenJanitor) RunOnce(ctx context.Context) (int64, error) {
	cleared, err := j.users.ClearExpiredTokens(ctx, j.now())
	if err != nil {
		return 0, oops.Code("TOKEN_CLEANUP_FAILED").Wrap(err)
	}
	j.metrics.TokensCleared(cleared)

	if j.limiter != nil {
		if pruned := j.limiter.Prune(limiterIdle); pruned > 0 {
			j.log.Debug("Pruned idle rate limiters", zap.Int("count", pruned))
		}
	}
	return cleared, nil
}

func (j *TokenJanitor) run() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	cleared, err := j.RunOnce(ctx)
	if err != nil {
		j.log.Error("Token cleanup failed", zap.Error(err))
		return
	}
	if cleared > 0 {
		j.log.Info("Expired tokens cleared", zap.Int64("users", cleared))
	}
}
