package app

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/goccy/go-json"

	"redarch/internal/archive"
	"redarch/internal/config"
	"redarch/internal/importer"
	"redarch/internal/model"
	"redarch/internal/source"
	"redarch/internal/store"
	"redarch/internal/store/migrations"
)

// App is the application layer between the CLI and the archive services.
// It constructs all dependencies from config, exposes high-level operations
// that accept raw CLI arguments, and manages the store lifecycle on Close.
type App struct {
	cfg     *config.Config
	store   archive.Store
	profile archive.RuntimeProfile
	logger  archive.Logger
	clock   archive.Clock
	op      *Operation
	logFile *os.File
}

// NewApp creates a fully wired App from the given config. operation
// identifies the CLI command being run (e.g. "Import", "ExportUsers").
// The caller must call Close when done.
func NewApp(ctx context.Context, cfg *config.Config, operation string) (*App, error) {
	clock := archive.RealClock{}
	op := NewOperation(operation, clock.Now())

	logger, logFile, err := newLogger(cfg.LogDir, op.RunID)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	log := &slogAdapter{l: logger}

	if err := checkMigrations(cfg); err != nil {
		logFile.Close()
		return nil, fmt.Errorf("database schema out of date: %w", err)
	}

	st, err := store.Open(ctx, cfg.Database, log)
	if err != nil {
		logFile.Close()
		return nil, fmt.Errorf("opening store: %w", err)
	}

	profile := newProfile(cfg)
	log.Info("starting operation", "operation", operation, "workers", profile.Workers, "batch_size", profile.BatchSize)

	return &App{
		cfg:     cfg,
		store:   st,
		profile: profile,
		logger:  log,
		clock:   clock,
		op:      op,
		logFile: logFile,
	}, nil
}

// newProfile derives the runtime profile from the host and applies config
// overrides.
func newProfile(cfg *config.Config) archive.RuntimeProfile {
	profile := archive.NewRuntimeProfile(runtime.NumCPU()).
		WithBatchSize(cfg.Import.BatchSize).
		WithWorkers(cfg.Import.Workers)
	if cfg.Import.QueueDepth > 0 {
		profile.QueueDepth = cfg.Import.QueueDepth
	}
	if cfg.Database.StatementTimeoutSeconds > 0 {
		profile.StatementTimeout = time.Duration(cfg.Database.StatementTimeoutSeconds) * time.Second
	}
	return profile
}

// checkMigrations verifies the schema version on a short-lived database/sql
// connection before the pool opens.
func checkMigrations(cfg *config.Config) error {
	db, err := migrations.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.CheckDBMigrationStatus(db)
}

// MigrateDB applies all pending schema migrations. Unlike the other
// operations this does not need a wired App: it runs before the version
// check could pass.
func MigrateDB(cfg *config.Config) error {
	db, err := migrations.Open(cfg.Database.DSN())
	if err != nil {
		return err
	}
	defer db.Close()
	return migrations.MigrateUp(db)
}

// Import fetches dump files from the configured source (or dirOverride when
// non-empty), detects their platform and kind, and runs the ingestion
// pipeline. Returns the run statistics and the files skipped by detection.
func (a *App) Import(ctx context.Context, dirOverride string, platformOverride archive.Platform, forceRebuild bool) (*archive.RunStats, []string, error) {
	if platformOverride != "" && !platformOverride.Valid() {
		return nil, nil, fmt.Errorf("%w: platform %q", archive.ErrUnknownFormat, platformOverride)
	}

	srcCfg := a.cfg.Source
	if dirOverride != "" {
		srcCfg = config.SourceConfig{Type: "filesystem", Dir: dirOverride}
	}
	src, err := source.NewSourceFromConfig(ctx, srcCfg, a.logger)
	if err != nil {
		return nil, nil, fmt.Errorf("creating dump source: %w", err)
	}
	dir, err := src.Fetch(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("fetching dumps: %w", err)
	}

	jobs, skipped, err := importer.DetectDir(dir, platformOverride)
	if err != nil {
		return nil, nil, err
	}
	for _, path := range skipped {
		a.logger.Warn("skipping unrecognized file", "path", path)
	}
	if len(jobs) == 0 {
		return nil, skipped, fmt.Errorf("no importable dump files in %s", dir)
	}

	stats := &archive.RunStats{}
	svc := archive.NewImportService(a.store, a.profile, a.logger, a.clock)
	if err := svc.Run(ctx, jobs, archive.ImportOptions{ForceRebuild: forceRebuild}, stats); err != nil {
		return stats, skipped, err
	}
	return stats, skipped, nil
}

// ExportUsers renders one JSON artifact per user into the configured export
// directory, optionally rebuilding the user aggregates first.
func (a *App) ExportUsers(ctx context.Context, refresh bool) (int64, error) {
	outDir := a.cfg.Export.OutputDir
	if err := os.MkdirAll(outDir, 0755); err != nil {
		return 0, fmt.Errorf("creating export directory: %w", err)
	}

	render := func(ctx context.Context, user model.User) error {
		if err := ctx.Err(); err != nil {
			return err
		}
		data, err := json.MarshalIndent(user, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding user %s: %w", user.Username, err)
		}
		path := filepath.Join(outDir, user.Username+".json")
		if err := os.WriteFile(path, data, 0644); err != nil {
			return fmt.Errorf("writing %s: %w", path, err)
		}
		return nil
	}

	sched := archive.NewExportScheduler(a.store, a.profile, a.logger)
	return sched.Run(ctx, render, refresh)
}

// Search runs a full-text query and returns one page of hits plus the total
// hit count.
func (a *App) Search(ctx context.Context, q archive.SearchQuery) ([]archive.SearchResult, int64, error) {
	return a.store.Search(ctx, q)
}

// ListPosts returns one keyset page of a community's posts. The cursor token
// comes from a previous page's next-cursor.
func (a *App) ListPosts(ctx context.Context, community string, sort archive.PostSort, cursorToken string, limit int) ([]model.Post, string, error) {
	after, err := archive.DecodeCursor(cursorToken)
	if err != nil {
		return nil, "", err
	}
	posts, next, err := a.store.ListPosts(ctx, community, sort, after, limit)
	if err != nil {
		return nil, "", err
	}
	return posts, archive.EncodeCursor(next), nil
}

// Thread returns a post and its reconstructed comment tree, depth-limited
// during assembly.
func (a *App) Thread(ctx context.Context, postID string, maxDepth int) (*model.Post, []*model.CommentNode, error) {
	post, err := a.store.GetPost(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	if post == nil {
		return nil, nil, fmt.Errorf("post %q not found", postID)
	}
	comments, err := a.store.ThreadComments(ctx, postID)
	if err != nil {
		return nil, nil, err
	}
	return post, archive.AssembleThread(comments, maxDepth), nil
}

// Stats returns cross-table archive statistics.
func (a *App) Stats(ctx context.Context) (*archive.ArchiveStats, error) {
	return a.store.Stats(ctx)
}

// Close logs the operation outcome and releases the store and log file.
func (a *App) Close() error {
	a.logger.Info("operation finished", "operation", a.op.Name, "elapsed", a.op.Elapsed(a.clock.Now()).Round(time.Millisecond))

	err := a.store.Close()
	if a.logFile != nil {
		a.logFile.Close()
	}
	return err
}
