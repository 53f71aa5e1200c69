package store

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v4"

	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/metrics"
)

// Options tunes timeouts and retries of store operations.
type Options struct {
	// OpTimeout bounds one operation including its retries. 0 disables it.
	OpTimeout time.Duration
	// MaxConflictRetries is how many times a conflicting write is retried
	// before CONFLICT is returned to the caller.
	MaxConflictRetries int
	// RetryInterval is the initial wait between retries.
	RetryInterval time.Duration
	// MaxRetryInterval caps the exponential wait.
	MaxRetryInterval time.Duration
}

// DefaultOptions returns sane production values.
func DefaultOptions() Options {
	return Options{
		OpTimeout:          5 * time.Second,
		MaxConflictRetries: 5,
		RetryInterval:      10 * time.Millisecond,
		MaxRetryInterval:   200 * time.Millisecond,
	}
}

// runner executes transactions with timeout, retry and error translation.
// Conflicts are retried up to MaxConflictRetries times, transient backend
// errors once. Domain errors returned by fn pass through untouched.
type runner struct {
	kv   KV
	opts Options
	log  logger.Logger
}

func (r *runner) view(ctx context.Context, op string, fn func(tx Tx) error) error {
	return r.run(ctx, op, func(ctx context.Context) error { return r.kv.View(ctx, fn) })
}

func (r *runner) update(ctx context.Context, op string, fn func(tx Tx) error) error {
	return r.run(ctx, op, func(ctx context.Context) error { return r.kv.Update(ctx, fn) })
}

func (r *runner) run(ctx context.Context, op string, attempt func(ctx context.Context) error) error {
	start := time.Now()
	defer func() {
		metrics.StoreDuration.WithLabelValues(op).Observe(time.Since(start).Seconds())
	}()

	if r.opts.OpTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.OpTimeout)
		defer cancel()
	}

	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = r.opts.RetryInterval
	exp.MaxInterval = r.opts.MaxRetryInterval
	exp.Multiplier = 2
	exp.MaxElapsedTime = 0
	exp.Reset()

	conflicts, transients := 0, 0
	for {
		err := attempt(ctx)
		if err == nil {
			metrics.StoreOps.WithLabelValues(op, "ok").Inc()
			return nil
		}

		var appErr *apperr.Error
		switch {
		case errors.As(err, &appErr):
			metrics.StoreOps.WithLabelValues(op, outcomeOf(appErr.Code)).Inc()
			return err

		case errors.Is(err, ErrConflict):
			metrics.StoreConflicts.WithLabelValues(op).Inc()
			conflicts++
			if conflicts > r.opts.MaxConflictRetries {
				r.log.Warn("store conflict retries exhausted",
					logger.String("op", op),
					logger.Int("attempts", conflicts))
				metrics.StoreOps.WithLabelValues(op, "conflict").Inc()
				return apperr.Conflict("concurrent modification, please retry").WithCause(err)
			}

		case errors.Is(err, context.DeadlineExceeded), errors.Is(err, context.Canceled):
			metrics.StoreOps.WithLabelValues(op, "unavailable").Inc()
			return apperr.StoreUnavailable("store operation timed out", err)

		default:
			transients++
			if transients > 1 {
				r.log.Error("store unavailable",
					logger.String("op", op),
					logger.Error(err))
				metrics.StoreOps.WithLabelValues(op, "unavailable").Inc()
				return apperr.StoreUnavailable("store unavailable", err)
			}
			r.log.Warn("transient store error, retrying",
				logger.String("op", op),
				logger.Error(err))
		}

		metrics.StoreRetries.WithLabelValues(op).Inc()
		timer := time.NewTimer(exp.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			metrics.StoreOps.WithLabelValues(op, "unavailable").Inc()
			return apperr.StoreUnavailable("store operation timed out", ctx.Err())
		case <-timer.C:
		}
	}
}

func outcomeOf(code apperr.Code) string {
	switch code {
	case apperr.CodeNotFound:
		return "not_found"
	case apperr.CodeConflict:
		return "conflict"
	case apperr.CodeStoreUnavailable:
		return "unavailable"
	default:
		return "error"
	}
}
