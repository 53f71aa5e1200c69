package scheduler

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/id"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/metrics"
	"github.com/franckmandon/vinylib-sub000/internal/store"
)

// MigrationReport summarizes one legacy migration run.
type MigrationReport struct {
	Total   int `json:"total"`
	Created int `json:"created"`
	Merged  int `json:"merged"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

func (r *MigrationReport) add(result store.ImportResult) {
	switch result {
	case store.ImportCreated:
		r.Created++
	case store.ImportMerged:
		r.Merged++
	case store.ImportSkipped:
		r.Skipped++
	default:
		r.Failed++
	}
}

// legacyRecord is one entry of the old whole-collection blob. The blob
// stored the owner's rating as a plain "rating" number on the record.
type legacyRecord struct {
	domain.Record
	Rating *int `json:"rating,omitempty"`
}

// LegacyMigrator moves records from the single legacy JSON blob into the
// per-record layout.
type LegacyMigrator struct {
	kv      store.KV
	records *store.Records
	key     string
	logger  logger.Logger
}

// NewLegacyMigrator creates a migrator reading the blob stored under key.
func NewLegacyMigrator(kv store.KV, records *store.Records, key string, log logger.Logger) *LegacyMigrator {
	return &LegacyMigrator{
		kv:      kv,
		records: records,
		key:     key,
		logger:  log,
	}
}

// Migrate imports every legacy record. Records whose id already exists are
// skipped, so running it twice is harmless. A legacy record sharing a
// product code with a stored one has its owners and ratings merged into it.
// The legacy blob itself is left in place.
func (m *LegacyMigrator) Migrate(ctx context.Context) (MigrationReport, error) {
	var report MigrationReport

	m.logger.Info("migrating legacy records", logger.String("key", m.key))

	legacy, err := m.load(ctx)
	if err != nil {
		return report, err
	}
	if len(legacy) == 0 {
		m.logger.Info("no legacy records found", logger.String("key", m.key))
		return report, nil
	}

	report.Total = len(legacy)
	for i := range legacy {
		rec := legacy[i].toRecord(i)
		result, target, err := m.records.Import(ctx, rec)
		if err != nil {
			m.logger.Warn("failed to migrate legacy record",
				logger.String("record_id", rec.ID),
				logger.Error(err))
		} else if result == store.ImportMerged {
			m.logger.Info("merged legacy duplicate",
				logger.String("record_id", rec.ID),
				logger.String("into", target))
		}
		metrics.LegacyMigrated.WithLabelValues(string(result)).Inc()
		report.add(result)
	}

	m.logger.Info("legacy migration completed",
		logger.Int("total", report.Total),
		logger.Int("created", report.Created),
		logger.Int("merged", report.Merged),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed))

	return report, nil
}

func (m *LegacyMigrator) load(ctx context.Context) ([]legacyRecord, error) {
	var data []byte
	err := m.kv.View(ctx, func(tx store.Tx) error {
		var err error
		data, err = tx.Get(m.key)
		return err
	})
	if errors.Is(err, store.ErrKeyNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperr.StoreUnavailable("read legacy collection", err)
	}

	var legacy []legacyRecord
	if err := json.Unmarshal(data, &legacy); err != nil {
		return nil, fmt.Errorf("decode legacy collection %s: %w", m.key, err)
	}
	return legacy, nil
}

// toRecord converts the i-th blob entry. Entries without an id get one
// derived from their position so reruns map them to the same record.
func (l legacyRecord) toRecord(i int) *domain.Record {
	rec := l.Record.Clone()
	if rec.LegacyRating == nil && l.Rating != nil && *l.Rating > 0 {
		v := *l.Rating
		rec.LegacyRating = &v
	}
	if rec.ID == "" {
		rec.ID = fmt.Sprintf("%s-legacy-%d", id.PrefixRecord, i)
	}
	rec.Normalize()
	return rec
}
