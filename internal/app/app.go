package app

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/franckmandon/vinylib-sub000/internal/config"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver"
	"github.com/franckmandon/vinylib-sub000/internal/httpserver/deps"
	"github.com/franckmandon/vinylib-sub000/internal/logger"
	"github.com/franckmandon/vinylib-sub000/internal/scheduler"
	"github.com/franckmandon/vinylib-sub000/internal/utils"
	"github.com/franckmandon/vinylib-sub000/internal/version"
)

type App struct {
	cfg    *config.Config
	logger logger.Logger
	core   *Core
	server *httpserver.Server
	gc     *scheduler.GarbageCollector
}

// New opens the store and builds the HTTP server and background jobs.
func New(ctx context.Context, cfg *config.Config, loggerClient logger.Logger) (*App, error) {
	core, err := OpenCore(ctx, cfg, loggerClient)
	if err != nil {
		return nil, err
	}
	return newApp(cfg, loggerClient, core), nil
}

func newApp(cfg *config.Config, loggerClient logger.Logger, core *Core) *App {
	gc := scheduler.NewGarbageCollector(
		core.Records,
		loggerClient,
		cfg.GCInterval,
		cfg.OrphanTTL,
	)

	// Dependencies passed to routes (extend as needed).
	d := deps.Deps{
		Logger:          loggerClient,
		StartTime:       time.Now(),
		Version:         version.Version,
		Commit:          version.Commit,
		BuildDate:       version.BuildDate,
		GoVersion:       version.GoVersion,
		TimeNow:         time.Now,
		AllowedCIDRS:    cfg.AllowedCIDRS,
		TrustProxy:      cfg.TrustProxy,
		CORSOrigins:     cfg.CORSOrigins,
		WriteRatePerMin: cfg.WriteRatePerMin,
		WriteBurst:      cfg.WriteBurst,
		Backend:         cfg.StoreBackend,
		Catalog:         core.Catalog,
		Accounts:        core.Accounts,
		Records:         core.Records,
		Users:           core.Users,
	}

	return &App{
		cfg:    cfg,
		logger: loggerClient,
		core:   core,
		server: httpserver.New(cfg, loggerClient, d),
		gc:     gc,
	}
}

func (a *App) Run() error {
	defer utils.MustClose(a.core, "store", a.logger)

	a.logger.Infof("Starting vinylib %s on %s", version.Version, a.cfg.ListenPort)
	a.logger.Infof("vinylib %s (commit=%s, built=%s, go=%s, backend=%s)",
		version.Version, version.Commit, version.BuildDate, version.GoVersion, a.cfg.StoreBackend)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.cfg.SeedFile != "" {
		importer := scheduler.NewSeedImporter(a.cfg.SeedFile, a.core.Records, a.core.Bookmarks, a.logger)
		if _, err := importer.Import(ctx); err != nil {
			return fmt.Errorf("failed to import seed file: %w", err)
		}
	}

	a.gc.Start(ctx)

	errCh := make(chan error, 1)
	go func() {
		if err := a.server.Start(); err != nil {
			errCh <- fmt.Errorf("http server error: %w", err)
		}
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("Shutting down gracefully...")
	case err := <-errCh:
		a.gc.Stop()
		return err
	}

	a.gc.Stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.cfg.ShutdownTimeout)
	defer cancel()
	if err := a.server.Stop(shutdownCtx); err != nil {
		return fmt.Errorf("failed to stop server: %w", err)
	}

	a.logger.Info("vinylib stopped cleanly")
	return nil
}

// MigrateLegacy converts the legacy whole-collection blob into per-record
// storage. Safe to run more than once.
func MigrateLegacy(ctx context.Context, cfg *config.Config, log logger.Logger) (scheduler.MigrationReport, error) {
	core, err := OpenCore(ctx, cfg, log)
	if err != nil {
		return scheduler.MigrationReport{}, err
	}
	defer utils.MustClose(core, "store", log)

	return scheduler.NewLegacyMigrator(core.KV, core.Records, cfg.LegacyKey, log).Migrate(ctx)
}

// Seed imports a YAML or JSON catalogue file. With replace set, records
// already stored are overwritten by the file's version.
func Seed(ctx context.Context, cfg *config.Config, log logger.Logger, path string, replace bool) (scheduler.SeedReport, error) {
	core, err := OpenCore(ctx, cfg, log)
	if err != nil {
		return scheduler.SeedReport{}, err
	}
	defer utils.MustClose(core, "store", log)

	return scheduler.NewSeedImporter(path, core.Records, core.Bookmarks, log).Replace(replace).Import(ctx)
}
