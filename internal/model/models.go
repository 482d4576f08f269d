package model

import "time"

// Post is a normalized submission from any supported platform.
// The ID is platform-prefixed (e.g. "reddit_abc123", "voat_456") and is
// globally unique across platforms by construction.
type Post struct {
	ID          string
	Platform    string // "reddit", "voat", or "ruqqus"
	Community   string // subreddit / subverse / guild name
	Author      string
	Title       string
	Body        string // self-text; may be empty for link posts
	URL         string // external URL; may be empty
	Score       int64
	NumComments int64
	CreatedUTC  int64  // Unix seconds
	Raw         []byte // original record as JSON, preserved for re-derivation
}

// Comment is a normalized comment from any supported platform.
// ParentID is empty for top-level comments. Community and ParentTitle are
// denormalized from the parent post for query locality and join-free display.
type Comment struct {
	ID          string
	PostID      string
	ParentID    string // empty means top-level
	Community   string
	Author      string
	Body        string
	Score       int64
	CreatedUTC  int64
	Raw         []byte
	ParentTitle string
}

// User is a derived per-author aggregate. It is never produced by an
// adapter; it is rebuilt from Post and Comment rows.
type User struct {
	Username      string
	PostCount     int64
	CommentCount  int64
	TotalScore    int64
	TotalActivity int64
	FirstSeen     int64 // Unix seconds of earliest activity
	LastSeen      int64 // Unix seconds of latest activity
}

// Checkpoint records resumable progress for one logical pipeline stage.
// Cursor is an opaque stage-specific value (e.g. "file=3;offset=129384").
type Checkpoint struct {
	Stage     string
	Cursor    string
	UpdatedAt time.Time
}

// LoadResult reports the outcome of one bulk-loaded batch.
// Conflicted counts rows whose IDs already existed; they are left unchanged.
// Orphans counts comments whose parent post was absent at load time.
type LoadResult struct {
	Inserted   int64
	Conflicted int64
	Orphans    int64
}

// CommentNode is one node of a reconstructed comment thread.
type CommentNode struct {
	Comment  Comment
	Depth    int
	Children []*CommentNode
}
