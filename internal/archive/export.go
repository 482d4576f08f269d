package archive

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"redarch/internal/model"
)

// RenderFunc materializes one user's export artifact. Implementations must
// honor ctx cancellation.
type RenderFunc func(ctx context.Context, user model.User) error

// ExportScheduler fans user rows out to a fixed pool of render workers
// through a bounded queue. The producer pages the user table with keyset
// batches sized to the queue, so a slow renderer backpressures the database
// reads instead of buffering the whole table.
type ExportScheduler struct {
	store   Store
	profile RuntimeProfile
	logger  Logger
}

// NewExportScheduler creates an ExportScheduler.
func NewExportScheduler(store Store, profile RuntimeProfile, logger Logger) *ExportScheduler {
	return &ExportScheduler{store: store, profile: profile, logger: logger}
}

// Run renders every user, optionally refreshing the aggregate user table
// first. The first render or paging error cancels all workers and is
// returned; a canceled run leaves already-rendered artifacts in place.
func (s *ExportScheduler) Run(ctx context.Context, render RenderFunc, refresh bool) (rendered int64, err error) {
	if refresh {
		n, err := s.store.RefreshUsers(ctx)
		if err != nil {
			return 0, fmt.Errorf("refreshing users: %w", err)
		}
		s.logger.Info("user aggregates refreshed", "users", n)
	}

	queue := make(chan model.User, s.profile.QueueDepth)
	counts := make(chan int64, s.profile.Workers)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		// Closing the queue is the only completion signal workers get.
		defer close(queue)
		after := ""
		for {
			users, err := s.store.ListUsersAfter(gctx, after, s.profile.QueueDepth)
			if err != nil {
				return fmt.Errorf("paging users after %q: %w", after, err)
			}
			for _, user := range users {
				select {
				case queue <- user:
				case <-gctx.Done():
					return gctx.Err()
				}
			}
			if len(users) < s.profile.QueueDepth {
				return nil
			}
			after = users[len(users)-1].Username
		}
	})

	for i := 0; i < s.profile.Workers; i++ {
		g.Go(func() error {
			var n int64
			for user := range queue {
				if err := render(gctx, user); err != nil {
					return fmt.Errorf("rendering user %s: %w", user.Username, err)
				}
				n++
			}
			counts <- n
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return 0, err
	}
	close(counts)
	for n := range counts {
		rendered += n
	}
	s.logger.Info("export complete", "users", rendered)
	return rendered, nil
}
