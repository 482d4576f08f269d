package archive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"golang.org/x/sync/errgroup"

	"redarch/internal/model"
)

// RecordKind distinguishes the two record streams a dump file can carry.
type RecordKind string

const (
	KindPosts    RecordKind = "posts"
	KindComments RecordKind = "comments"
)

// DumpFile is one detected input file with its inferred platform and
// community.
type DumpFile struct {
	Path      string
	Platform  Platform
	Community string
	Kind      RecordKind
}

// Stage returns the checkpoint stage name for this file. One checkpoint row
// exists per logical stage.
func (f DumpFile) Stage() string {
	return fmt.Sprintf("import:%s:%s:%s", f.Platform, f.Community, f.Kind)
}

// ImportJob pairs a detected dump file with the adapter that reads it.
type ImportJob struct {
	File    DumpFile
	Adapter PlatformAdapter
}

// ImportOptions control a pipeline run.
type ImportOptions struct {
	// ForceRebuild clears checkpoints and stored rows for each job's
	// platform/community before importing.
	ForceRebuild bool
}

// cursorDone marks a stage as fully imported.
const cursorDone = "done"

func offsetCursor(n int64) string { return fmt.Sprintf("offset=%d", n) }

// parseOffsetCursor interprets a stage cursor. A cursor that is neither
// "done" nor "offset=N" is corrupt and requires a force-rebuild.
func parseOffsetCursor(cursor string) (offset int64, done bool, err error) {
	if cursor == cursorDone {
		return 0, true, nil
	}
	rest, ok := strings.CutPrefix(cursor, "offset=")
	if !ok {
		return 0, false, fmt.Errorf("%w: cursor %q", ErrCheckpointCorrupt, cursor)
	}
	n, perr := strconv.ParseInt(rest, 10, 64)
	if perr != nil || n < 0 {
		return 0, false, fmt.Errorf("%w: cursor %q", ErrCheckpointCorrupt, cursor)
	}
	return n, false, nil
}

// ImportService runs the streaming ingestion pipeline: adapters feed
// normalized batches to the store's bulk loader, with a checkpoint advanced
// in the same transaction as every committed batch.
type ImportService struct {
	store   Store
	profile RuntimeProfile
	logger  Logger
	clock   Clock
}

// NewImportService creates an ImportService with the provided dependencies.
func NewImportService(store Store, profile RuntimeProfile, logger Logger, clock Clock) *ImportService {
	return &ImportService{store: store, profile: profile, logger: logger, clock: clock}
}

// Run imports every job. Post files are imported before comment files so
// parent-title denormalization can see the posts; within each phase,
// independent files run on a fixed worker pool. Ingestion of a single file
// is sequential and streaming to bound memory.
//
// Per-record errors never abort a file; a per-file error aborts only that
// file and is recorded in stats. Load or checkpoint failures halt the run.
func (s *ImportService) Run(ctx context.Context, jobs []ImportJob, opts ImportOptions, stats *RunStats) error {
	if opts.ForceRebuild {
		if err := s.resetJobs(ctx, jobs); err != nil {
			return err
		}
	}

	phases := [2]RecordKind{KindPosts, KindComments}
	for _, kind := range phases {
		g, gctx := errgroup.WithContext(ctx)
		g.SetLimit(s.profile.Workers)
		for _, job := range jobs {
			if job.File.Kind != kind {
				continue
			}
			g.Go(func() error {
				err := s.importFile(gctx, job, stats)
				if err == nil {
					return nil
				}
				if errors.Is(err, ErrDecodeFailure) {
					// Fatal for this file only.
					s.logger.Error("file aborted", "path", job.File.Path, "error", err)
					stats.RecordAbortedFile(job.File.Path, err)
					return nil
				}
				return err
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
	}
	return nil
}

// resetJobs clears checkpoints and stored rows once per distinct
// platform/community among the jobs.
func (s *ImportService) resetJobs(ctx context.Context, jobs []ImportJob) error {
	seen := make(map[string]bool)
	for _, job := range jobs {
		key := string(job.File.Platform) + "/" + job.File.Community
		if seen[key] {
			continue
		}
		seen[key] = true
		prefix := fmt.Sprintf("import:%s:%s:", job.File.Platform, job.File.Community)
		if err := s.store.ResetStages(ctx, prefix, string(job.File.Platform), job.File.Community); err != nil {
			return fmt.Errorf("resetting stage %s: %w", prefix, err)
		}
		s.logger.Info("stage reset", "platform", job.File.Platform, "community", job.File.Community)
	}
	return nil
}

func (s *ImportService) importFile(ctx context.Context, job ImportJob, stats *RunStats) error {
	file := job.File
	stage := file.Stage()

	skip, done, err := s.resumePoint(ctx, stage)
	if err != nil {
		return err
	}
	if done {
		s.logger.Info("file already imported", "stage", stage)
		stats.FilesSkipped.Add(1)
		return nil
	}
	if skip > 0 {
		s.logger.Info("resuming file", "stage", stage, "offset", skip)
	}

	switch file.Kind {
	case KindPosts:
		err = s.importPosts(ctx, job, stage, skip, stats)
	case KindComments:
		err = s.importComments(ctx, job, stage, skip, stats)
	default:
		err = fmt.Errorf("unknown record kind %q", file.Kind)
	}
	if err != nil {
		return err
	}

	if err := s.store.PutCheckpoint(ctx, stage, cursorDone); err != nil {
		return fmt.Errorf("finishing stage %s: %w", stage, err)
	}
	stats.FilesProcessed.Add(1)
	return nil
}

// resumePoint reads the stage checkpoint and decides where to resume.
func (s *ImportService) resumePoint(ctx context.Context, stage string) (skip int64, done bool, err error) {
	cp, err := s.store.GetCheckpoint(ctx, stage)
	if err != nil {
		return 0, false, fmt.Errorf("reading checkpoint for %s: %w", stage, err)
	}
	if cp == nil {
		return 0, false, nil
	}
	return parseOffsetCursor(cp.Cursor)
}

func (s *ImportService) importPosts(ctx context.Context, job ImportJob, stage string, skip int64, stats *RunStats) error {
	stream, err := job.Adapter.StreamPosts(ctx, job.File.Path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrDecodeFailure, job.File.Path, err)
	}
	defer func() {
		stats.BadRecords.Add(stream.BadRecords())
		stream.Close()
	}()

	batch := make([]model.Post, 0, s.profile.BatchSize)
	var consumed int64
	for {
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrDecodeFailure, job.File.Path, err)
		}
		consumed++
		if consumed <= skip {
			continue
		}

		post, err := job.Adapter.NormalizePost(rec)
		if err != nil {
			stats.BadRecords.Add(1)
			continue
		}
		batch = append(batch, post)

		if len(batch) >= s.profile.BatchSize {
			if err := s.flushPosts(ctx, batch, stage, consumed, stats); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.flushPosts(ctx, batch, stage, consumed, stats); err != nil {
			return err
		}
	}
	return closeStream(stream, job.File.Path)
}

// closeStream surfaces decoder failures that only show at close time, such
// as a decompressor subprocess exiting non-zero.
func closeStream(stream RecordStream, path string) error {
	err := stream.Close()
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrDecodeFailure) {
		return err
	}
	return fmt.Errorf("%w: closing %s: %v", ErrDecodeFailure, path, err)
}

func (s *ImportService) flushPosts(ctx context.Context, batch []model.Post, stage string, consumed int64, stats *RunStats) error {
	res, err := s.store.LoadPosts(ctx, batch, stage, offsetCursor(consumed))
	if err != nil {
		return fmt.Errorf("loading post batch for %s: %w", stage, err)
	}
	stats.PostsLoaded.Add(res.Inserted)
	stats.Conflicts.Add(res.Conflicted)
	s.logger.Debug("post batch committed", "stage", stage, "inserted", res.Inserted, "conflicted", res.Conflicted, "offset", consumed)
	return nil
}

func (s *ImportService) importComments(ctx context.Context, job ImportJob, stage string, skip int64, stats *RunStats) error {
	stream, err := job.Adapter.StreamComments(ctx, job.File.Path)
	if err != nil {
		return fmt.Errorf("%w: opening %s: %v", ErrDecodeFailure, job.File.Path, err)
	}
	defer func() {
		stats.BadRecords.Add(stream.BadRecords())
		stream.Close()
	}()

	batch := make([]model.Comment, 0, s.profile.BatchSize)
	var consumed int64
	for {
		rec, err := stream.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fmt.Errorf("%w: reading %s: %v", ErrDecodeFailure, job.File.Path, err)
		}
		consumed++
		if consumed <= skip {
			continue
		}

		comment, err := job.Adapter.NormalizeComment(rec)
		if err != nil {
			stats.BadRecords.Add(1)
			continue
		}
		batch = append(batch, comment)

		if len(batch) >= s.profile.BatchSize {
			if err := s.flushComments(ctx, batch, stage, consumed, stats); err != nil {
				return err
			}
			batch = batch[:0]
		}
	}
	if len(batch) > 0 {
		if err := s.flushComments(ctx, batch, stage, consumed, stats); err != nil {
			return err
		}
	}
	return closeStream(stream, job.File.Path)
}

func (s *ImportService) flushComments(ctx context.Context, batch []model.Comment, stage string, consumed int64, stats *RunStats) error {
	res, err := s.store.LoadComments(ctx, batch, stage, offsetCursor(consumed))
	if err != nil {
		return fmt.Errorf("loading comment batch for %s: %w", stage, err)
	}
	stats.CommentsLoaded.Add(res.Inserted)
	stats.Conflicts.Add(res.Conflicted)
	if res.Orphans > 0 {
		stats.Orphans.Add(res.Orphans)
		s.logger.Warn("orphan comments persisted with fallback community", "stage", stage, "count", res.Orphans)
	}
	s.logger.Debug("comment batch committed", "stage", stage, "inserted", res.Inserted, "conflicted", res.Conflicted, "offset", consumed)
	return nil
}
