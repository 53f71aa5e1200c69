package scheduler

import (
	"context"
	"fmt"

	"github.com/franckmandon/vinylib-sub000/internal/domain"
	apperr "github.com/franckmandon/vinylib-sub000/internal/errors"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/sources/seed"
	"github.com/franckmandon/vinylib-sub000/internal/store"
)

// SeedReport summarizes one seed import.
type SeedReport struct {
	MigrationReport
	Replaced  int `json:"replaced"`
	Bookmarks int `json:"bookmarks"`
}

// SeedImporter loads a catalogue file into the record and bookmark stores.
type SeedImporter struct {
	loader    *seed.Loader
	mapper    *seed.Mapper
	records   *store.Records
	bookmarks *store.Bookmarks
	logger    logger.Logger
	replace   bool
}

// NewSeedImporter creates an importer for the catalogue at path
func NewSeedImporter(
	path string,
	records *store.Records,
	bookmarks *store.Bookmarks,
	log logger.Logger,
) *SeedImporter {
	return &SeedImporter{
		loader:    seed.NewLoader(path),
		mapper:    seed.NewMapper(),
		records:   records,
		bookmarks: bookmarks,
		logger:    log,
	}
}

// Replace makes Import overwrite records whose id is already stored with the
// file's version instead of skipping them.
func (si *SeedImporter) Replace(on bool) *SeedImporter {
	si.replace = on
	return si
}

// Import loads, maps and stores the catalogue. By default existing records
// are left alone and shared product codes merge owners, so re-running is
// safe. In replace mode every entry is written as is.
func (si *SeedImporter) Import(ctx context.Context) (SeedReport, error) {
	var report SeedReport

	cat, err := si.loader.Load()
	if err != nil {
		return report, err
	}
	entries, err := si.mapper.MapCatalogue(cat)
	if err != nil {
		return report, fmt.Errorf("invalid seed file: %w", err)
	}

	si.logger.Info("importing seed catalogue",
		logger.Int("records", len(entries)))

	report.Total = len(entries)
	for _, e := range entries {
		target, err := si.write(ctx, e.Record, &report)
		if err != nil {
			si.logger.Warn("failed to import seed record",
				logger.String("record_id", e.Record.ID),
				logger.Error(err))
			continue
		}

		for _, userID := range e.BookmarkedBy {
			_, created, err := si.bookmarks.Add(ctx, userID, target)
			switch {
			case apperr.Is(err, apperr.ErrConflict):
				si.logger.Debug("skipping bookmark on owned record",
					logger.String("user_id", userID),
					logger.String("record_id", target))
			case err != nil:
				si.logger.Warn("failed to import seed bookmark",
					logger.String("user_id", userID),
					logger.String("record_id", target),
					logger.Error(err))
			case created:
				report.Bookmarks++
			}
		}
	}

	si.logger.Info("seed import completed",
		logger.Int("created", report.Created),
		logger.Int("merged", report.Merged),
		logger.Int("replaced", report.Replaced),
		logger.Int("skipped", report.Skipped),
		logger.Int("failed", report.Failed),
		logger.Int("bookmarks", report.Bookmarks))

	return report, nil
}

func (si *SeedImporter) write(ctx context.Context, rec *domain.Record, report *SeedReport) (string, error) {
	if !si.replace {
		result, target, err := si.records.Import(ctx, rec)
		report.add(result)
		return target, err
	}

	out, err := si.records.Put(ctx, rec)
	if err != nil {
		report.Failed++
		return rec.ID, err
	}
	if out.Version == 1 {
		report.Created++
	} else {
		report.Replaced++
	}
	return out.ID, nil
}
