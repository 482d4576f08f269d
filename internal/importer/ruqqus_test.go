package importer_test

import (
	"context"
	"errors"
	"io"
	"testing"

	"redarch/internal/archive"
	"redarch/internal/importer"
)

func TestRuqqusAdapter_Normalize(t *testing.T) {
	adapter := importer.NewRuqqusAdapter()

	t.Run("maps guild post fields", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"id": "3kz", "guild_name": "funny", "author": "ruqqan",
			"title": "a guild post", "body": "text", "url": "",
			"score": float64(12), "comment_count": float64(4),
			"created_utc": float64(1600000000),
		}}
		post, err := adapter.NormalizePost(rec)
		if err != nil {
			t.Fatalf("NormalizePost() error = %v", err)
		}
		if post.ID != "ruqqus_3kz" {
			t.Errorf("ID = %q, want ruqqus_3kz", post.ID)
		}
		if post.Community != "funny" || post.NumComments != 4 {
			t.Errorf("community/comments = %q/%d", post.Community, post.NumComments)
		}
	})

	t.Run("comment parent references", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"id": "c9", "post_id": "3kz", "parent_comment_id": "c2",
			"guild_name": "funny", "body": "reply",
		}}
		c, err := adapter.NormalizeComment(rec)
		if err != nil {
			t.Fatalf("NormalizeComment() error = %v", err)
		}
		if c.PostID != "ruqqus_3kz" || c.ParentID != "ruqqus_c2" {
			t.Errorf("PostID/ParentID = %q/%q", c.PostID, c.ParentID)
		}
	})

	t.Run("zero parent id means top level", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"id": "c9", "post_id": "3kz", "parent_comment_id": "0",
		}}
		c, err := adapter.NormalizeComment(rec)
		if err != nil {
			t.Fatalf("NormalizeComment() error = %v", err)
		}
		if c.ParentID != "" {
			t.Errorf("ParentID = %q, want empty", c.ParentID)
		}
	})
}

func TestRuqqusAdapter_StreamFailure(t *testing.T) {
	// A missing binary is indistinguishable from a broken archive at the
	// stream level: the file aborts with a decode failure on Close.
	adapter := importer.NewRuqqusAdapter()
	adapter.SevenZip = "/nonexistent/7z"

	stream, err := adapter.StreamPosts(context.Background(), "whatever.7z")
	if err != nil {
		// Start may fail immediately; that is also acceptable.
		return
	}
	if _, err := stream.Next(); err != io.EOF {
		t.Fatalf("Next() error = %v, want io.EOF from empty stdout", err)
	}
	if err := stream.Close(); !errors.Is(err, archive.ErrDecodeFailure) {
		t.Errorf("Close() error = %v, want ErrDecodeFailure", err)
	}
}
