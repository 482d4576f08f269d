package importer_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/gzip"

	"redarch/internal/archive"
	"redarch/internal/importer"
)

func writeGzip(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("creating %s: %v", path, err)
	}
	gz := gzip.NewWriter(f)
	if _, err := gz.Write([]byte(content)); err != nil {
		t.Fatalf("writing gzip: %v", err)
	}
	if err := gz.Close(); err != nil {
		t.Fatalf("closing gzip: %v", err)
	}
	if err := f.Close(); err != nil {
		t.Fatalf("closing file: %v", err)
	}
	return path
}

const voatCommentDump = "CREATE TABLE `comment` (\n" +
	"  `commentid` int(11) NOT NULL,\n" +
	"  `content` text,\n" +
	"  `creationDate` datetime,\n" +
	"  `downCount` int(11),\n" +
	"  `parentid` int(11),\n" +
	"  `submissionid` int(11),\n" +
	"  `subverse` varchar(50),\n" +
	"  `upCount` int(11),\n" +
	"  `userName` varchar(50)\n" +
	") ENGINE=InnoDB;\n" +
	"INSERT INTO `comment` VALUES " +
	"(1,'top level','2018-03-01 10:00:00',2,NULL,77,'news',9,'alice')," +
	"(2,'a reply','2018-03-01 11:30:00',0,1,77,'news',4,'bob');\n"

func TestVoatAdapter_StreamComments(t *testing.T) {
	t.Run("streams rows from gzipped dump", func(t *testing.T) {
		path := writeGzip(t, t.TempDir(), "news_comments.sql.gz", voatCommentDump)

		adapter := importer.NewVoatAdapter()
		stream, err := adapter.StreamComments(context.Background(), path)
		if err != nil {
			t.Fatalf("StreamComments() error = %v", err)
		}
		defer stream.Close()

		recs := drainStream(t, stream)
		if len(recs) != 2 {
			t.Fatalf("records = %d, want 2", len(recs))
		}
		if recs[0].Fields["subverse"] != "news" {
			t.Errorf("subverse = %v, want news", recs[0].Fields["subverse"])
		}
		if len(recs[0].JSON) == 0 {
			t.Error("reconstructed JSON payload missing")
		}
	})

	t.Run("reads plain sql without gzip", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "news_comments.sql")
		if err := os.WriteFile(path, []byte(voatCommentDump), 0o644); err != nil {
			t.Fatalf("writing dump: %v", err)
		}

		adapter := importer.NewVoatAdapter()
		stream, err := adapter.StreamComments(context.Background(), path)
		if err != nil {
			t.Fatalf("StreamComments() error = %v", err)
		}
		defer stream.Close()

		if recs := drainStream(t, stream); len(recs) != 2 {
			t.Errorf("records = %d, want 2", len(recs))
		}
	})
}

func TestVoatAdapter_Normalize(t *testing.T) {
	adapter := importer.NewVoatAdapter()

	t.Run("post score is up minus down", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"submissionid": int64(123), "subverse": "whatever", "userName": "carol",
			"title": "voat post", "content": "text", "url": "https://example.com",
			"upCount": int64(30), "downCount": int64(12), "commentCount": int64(5),
			"creationDate": "2018-06-15 08:00:00",
		}}
		post, err := adapter.NormalizePost(rec)
		if err != nil {
			t.Fatalf("NormalizePost() error = %v", err)
		}
		if post.ID != "voat_123" {
			t.Errorf("ID = %q, want voat_123", post.ID)
		}
		if post.Score != 18 {
			t.Errorf("Score = %d, want 18", post.Score)
		}
		if post.CreatedUTC != 1529049600 {
			t.Errorf("CreatedUTC = %d, want 1529049600", post.CreatedUTC)
		}
	})

	t.Run("null parent means top level", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"commentid": int64(1), "submissionid": int64(77),
			"parentid": nil, "subverse": "news", "userName": "alice",
			"content": "top", "upCount": int64(9), "downCount": int64(2),
			"creationDate": "2018-03-01 10:00:00",
		}}
		c, err := adapter.NormalizeComment(rec)
		if err != nil {
			t.Fatalf("NormalizeComment() error = %v", err)
		}
		if c.ParentID != "" {
			t.Errorf("ParentID = %q, want empty", c.ParentID)
		}
		if c.PostID != "voat_77" {
			t.Errorf("PostID = %q, want voat_77", c.PostID)
		}
		if c.Score != 7 {
			t.Errorf("Score = %d, want 7", c.Score)
		}
	})

	t.Run("numeric parent is prefixed", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{
			"commentid": int64(2), "submissionid": int64(77), "parentid": int64(1),
		}}
		c, err := adapter.NormalizeComment(rec)
		if err != nil {
			t.Fatalf("NormalizeComment() error = %v", err)
		}
		if c.ParentID != "voat_1" {
			t.Errorf("ParentID = %q, want voat_1", c.ParentID)
		}
	})

	t.Run("missing submissionid fails", func(t *testing.T) {
		rec := archive.RawRecord{Fields: map[string]any{"commentid": int64(2)}}
		if _, err := adapter.NormalizeComment(rec); err == nil {
			t.Fatal("NormalizeComment() expected error")
		}
	})
}
