package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/metrics"
)

// OrphanStore is the subset of the record store the collector needs.
type OrphanStore interface {
	ListAll(ctx context.Context) ([]*domain.Record, error)
	DeleteOrphan(ctx context.Context, id string, cutoff time.Time) (bool, error)
}

// GarbageCollector purges records nobody owns or bookmarks once they have
// been left untouched for longer than the TTL.
type GarbageCollector struct {
	store    OrphanStore
	logger   logger.Logger
	interval time.Duration
	ttl      time.Duration
	now      func() time.Time

	stopOnce sync.Once
	stopCh   chan struct{}
}

// NewGarbageCollector creates an orphan collector. A ttl <= 0 makes
// Collect a no-op.
func NewGarbageCollector(
	store OrphanStore,
	log logger.Logger,
	interval time.Duration,
	ttl time.Duration,
) *GarbageCollector {
	return &GarbageCollector{
		store:    store,
		logger:   log,
		interval: interval,
		ttl:      ttl,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}
}

// Enabled reports whether orphan collection is configured.
func (gc *GarbageCollector) Enabled() bool {
	return gc.ttl > 0
}

// Start runs a collection immediately, then every interval until ctx is
// done or Stop is called.
func (gc *GarbageCollector) Start(ctx context.Context) {
	if !gc.Enabled() {
		gc.logger.Info("orphan collector disabled")
		return
	}

	if _, err := gc.Collect(ctx); err != nil {
		gc.logger.Warn("initial orphan collection failed",
			logger.Error(err))
	}

	ticker := time.NewTicker(gc.interval)
	go func() {
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				if _, err := gc.Collect(ctx); err != nil {
					gc.logger.Error("orphan collection failed",
						logger.Error(err))
				}
			case <-gc.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop stops the periodic collection.
func (gc *GarbageCollector) Stop() {
	gc.stopOnce.Do(func() { close(gc.stopCh) })
}

// Collect deletes every orphan older than the TTL and returns how many
// were removed. The orphan condition is re-checked inside the delete
// transaction, so a record claimed or bookmarked meanwhile survives.
func (gc *GarbageCollector) Collect(ctx context.Context) (int, error) {
	if !gc.Enabled() {
		return 0, nil
	}

	records, err := gc.store.ListAll(ctx)
	if err != nil {
		return 0, err
	}

	cutoff := gc.now().Add(-gc.ttl)
	deleted := 0
	for _, rec := range records {
		if rec.OwnerCount() > 0 || !rec.UpdatedAt.Before(cutoff) {
			continue
		}

		ok, err := gc.store.DeleteOrphan(ctx, rec.ID, cutoff)
		if err != nil {
			gc.logger.Warn("failed to purge orphan record",
				logger.String("record_id", rec.ID),
				logger.Error(err))
			continue
		}
		if !ok {
			continue
		}

		metrics.OrphansPurged.Inc()
		gc.logger.Info("purged orphan record",
			logger.String("record_id", rec.ID),
			logger.String("artist", rec.Artist),
			logger.String("album", rec.Album),
			logger.String("idle_for", gc.now().Sub(rec.UpdatedAt).String()))
		deleted++
	}

	if deleted > 0 {
		gc.logger.Info("orphan collection completed",
			logger.Int("deleted", deleted))
	} else {
		gc.logger.Debug("no orphan records to collect")
	}
	return deleted, nil
}
