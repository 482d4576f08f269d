package archive

import (
	"context"

	"redarch/internal/model"
)

// PostSort selects the ordering of community listings.
type PostSort string

const (
	SortNew      PostSort = "new"      // created_utc descending
	SortTop      PostSort = "top"      // score descending
	SortComments PostSort = "comments" // num_comments descending
)

// Cursor is a keyset-pagination bound: the sort key and identifier of the
// last row of the previous page. A nil *Cursor means the first page.
type Cursor struct {
	Key int64  // last-seen sort key (score, created_utc, or num_comments)
	ID  string // last-seen row ID, total tie-break
}

// ArchiveStats summarizes what the store currently holds.
type ArchiveStats struct {
	Posts        int64
	Comments     int64
	Users        int64
	ByPlatform   map[string]int64 // posts+comments per platform
	DatabaseSize int64            // bytes
}

// Store is the single writer-of-record for posts, comments, users, and
// checkpoints. Implementations must make batch loads and their checkpoint
// writes atomic: a checkpoint never advances past data that did not durably
// commit.
type Store interface {
	// Bulk loading

	// LoadPosts bulk-inserts a batch via the store's fastest copy path.
	// Conflicting IDs leave the existing row unchanged. The stage's
	// checkpoint is advanced to cursor in the same transaction.
	LoadPosts(ctx context.Context, batch []model.Post, stage, cursor string) (model.LoadResult, error)

	// LoadComments behaves like LoadPosts and additionally denormalizes the
	// parent post's title onto each comment. Comments whose parent post is
	// absent are persisted with the fallback community and counted as
	// orphans, not rejected.
	LoadComments(ctx context.Context, batch []model.Comment, stage, cursor string) (model.LoadResult, error)

	// Checkpoints

	// GetCheckpoint returns the stage's checkpoint, or nil if none exists.
	GetCheckpoint(ctx context.Context, stage string) (*model.Checkpoint, error)

	// PutCheckpoint writes a stage checkpoint outside a load transaction
	// (used to mark a stage finished).
	PutCheckpoint(ctx context.Context, stage, cursor string) error

	// ResetStages deletes checkpoints matching the stage prefix and all
	// rows for the given platform/community, implementing force-rebuild.
	ResetStages(ctx context.Context, stagePrefix, platform, community string) error

	// Thread reconstruction / listings

	// ListPosts returns one keyset-paginated page of a community's posts.
	// The returned cursor is nil when no further page exists.
	ListPosts(ctx context.Context, community string, sort PostSort, after *Cursor, limit int) ([]model.Post, *Cursor, error)

	// GetPost returns a post by ID, or nil if absent.
	GetPost(ctx context.Context, id string) (*model.Post, error)

	// ThreadComments returns every comment of a post in one indexed query,
	// ordered by (parent_id, score DESC, id) for single-pass tree assembly.
	ThreadComments(ctx context.Context, postID string) ([]model.Comment, error)

	// Users

	// RefreshUsers rebuilds the derived user aggregates from post and
	// comment rows. Returns the number of users now present.
	RefreshUsers(ctx context.Context) (int64, error)

	// ListUsersAfter returns up to limit users with username > after,
	// ordered by username, the keyset page used by the export producer.
	ListUsersAfter(ctx context.Context, after string, limit int) ([]model.User, error)

	// Search and statistics

	// Search runs a unified full-text query over posts and comments.
	Search(ctx context.Context, q SearchQuery) ([]SearchResult, int64, error)

	// Stats returns cross-table statistics. The query carries an explicit
	// timeout and fails with ErrQueryTimeout rather than blocking the pool.
	Stats(ctx context.Context) (*ArchiveStats, error)

	// Close releases the connection pool.
	Close() error
}
