package importer

import (
	"context"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// RedditAdapter reads pushshift-style dumps: zstd-compressed line-delimited
// JSON, one submission or comment object per line.
type RedditAdapter struct{}

var _ archive.PlatformAdapter = (*RedditAdapter)(nil)

func NewRedditAdapter() *RedditAdapter { return &RedditAdapter{} }

func (a *RedditAdapter) Platform() archive.Platform { return archive.PlatformReddit }

func (a *RedditAdapter) StreamPosts(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(path)
}

func (a *RedditAdapter) StreamComments(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(path)
}

func (a *RedditAdapter) open(path string) (archive.RecordStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	// Pushshift frames carry large windows; raise the decoder limit
	// accordingly. Concurrency 1 keeps one decode goroutine per stream.
	dec, err := zstd.NewReader(f,
		zstd.WithDecoderConcurrency(1),
		zstd.WithDecoderMaxWindow(2<<30),
	)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("opening zstd stream %s: %w", path, err)
	}
	return newJSONLineStream(dec, func() error {
		dec.Close()
		return f.Close()
	}), nil
}

func (a *RedditAdapter) NormalizePost(rec archive.RawRecord) (model.Post, error) {
	id := stringField(rec.Fields, "id")
	if id == "" {
		return model.Post{}, fmt.Errorf("%w: post without id", archive.ErrMalformedRecord)
	}
	return model.Post{
		ID:          archive.PrefixID(archive.PlatformReddit, id),
		Platform:    string(archive.PlatformReddit),
		Community:   stringField(rec.Fields, "subreddit"),
		Author:      normalizeAuthor(stringField(rec.Fields, "author")),
		Title:       stringField(rec.Fields, "title"),
		Body:        stringField(rec.Fields, "selftext"),
		URL:         stringField(rec.Fields, "url"),
		Score:       int64Field(rec.Fields, "score"),
		NumComments: int64Field(rec.Fields, "num_comments"),
		CreatedUTC:  int64Field(rec.Fields, "created_utc"),
		Raw:         rec.JSON,
	}, nil
}

func (a *RedditAdapter) NormalizeComment(rec archive.RawRecord) (model.Comment, error) {
	id := stringField(rec.Fields, "id")
	if id == "" {
		return model.Comment{}, fmt.Errorf("%w: comment without id", archive.ErrMalformedRecord)
	}
	linkID, _ := trimThingPrefix(stringField(rec.Fields, "link_id"))
	if linkID == "" {
		return model.Comment{}, fmt.Errorf("%w: comment %s without link_id", archive.ErrMalformedRecord, id)
	}

	// parent_id is t1_<comment> for replies and t3_<post> for top-level
	// comments; top-level parents collapse to the empty ParentID.
	var parentID string
	if rawParent, prefix := trimThingPrefix(stringField(rec.Fields, "parent_id")); prefix == "t1" {
		parentID = archive.PrefixID(archive.PlatformReddit, rawParent)
	}

	return model.Comment{
		ID:         archive.PrefixID(archive.PlatformReddit, id),
		PostID:     archive.PrefixID(archive.PlatformReddit, linkID),
		ParentID:   parentID,
		Community:  stringField(rec.Fields, "subreddit"),
		Author:     normalizeAuthor(stringField(rec.Fields, "author")),
		Body:       stringField(rec.Fields, "body"),
		Score:      int64Field(rec.Fields, "score"),
		CreatedUTC: int64Field(rec.Fields, "created_utc"),
		Raw:        rec.JSON,
	}, nil
}
