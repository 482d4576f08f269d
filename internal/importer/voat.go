package importer

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"

	json "github.com/goccy/go-json"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// VoatAdapter reads Voat MariaDB dump files (.sql, optionally gzipped).
// Posts come from the `submission` table and comments from `comment`.
type VoatAdapter struct{}

var _ archive.PlatformAdapter = (*VoatAdapter)(nil)

func NewVoatAdapter() *VoatAdapter { return &VoatAdapter{} }

func (a *VoatAdapter) Platform() archive.Platform { return archive.PlatformVoat }

func (a *VoatAdapter) StreamPosts(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(path, "submission")
}

func (a *VoatAdapter) StreamComments(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(path, "comment")
}

func (a *VoatAdapter) open(path, table string) (archive.RecordStream, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}

	var r io.Reader = f
	closeFn := func() error { return f.Close() }
	if strings.HasSuffix(path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, fmt.Errorf("opening gzip stream %s: %w", path, err)
		}
		r = gz
		closeFn = func() error {
			gz.Close()
			return f.Close()
		}
	}

	scanner, err := NewSQLDumpScanner(r, table)
	if err != nil {
		closeFn()
		return nil, err
	}
	return &sqlRowStream{scanner: scanner, close: closeFn}, nil
}

// sqlRowStream adapts SQLDumpScanner rows to archive.RecordStream. The raw
// payload is the row re-encoded as JSON, since SQL dumps have no per-record
// JSON of their own.
type sqlRowStream struct {
	scanner *SQLDumpScanner
	close   func() error
	closed  bool
}

func (s *sqlRowStream) Next() (archive.RawRecord, error) {
	row, err := s.scanner.Next()
	if err != nil {
		return archive.RawRecord{}, err
	}
	raw, err := json.Marshal(row)
	if err != nil {
		return archive.RawRecord{}, err
	}
	return archive.RawRecord{Fields: row, JSON: raw}, nil
}

func (s *sqlRowStream) BadRecords() int64 { return s.scanner.BadRows() }

func (s *sqlRowStream) Close() error {
	if s.closed {
		return nil
	}
	s.closed = true
	return s.close()
}

func (a *VoatAdapter) NormalizePost(rec archive.RawRecord) (model.Post, error) {
	id := stringField(rec.Fields, "submissionid")
	if id == "" {
		return model.Post{}, fmt.Errorf("%w: submission without id", archive.ErrMalformedRecord)
	}
	return model.Post{
		ID:          archive.PrefixID(archive.PlatformVoat, id),
		Platform:    string(archive.PlatformVoat),
		Community:   stringField(rec.Fields, "subverse"),
		Author:      normalizeAuthor(stringField(rec.Fields, "userName")),
		Title:       stringField(rec.Fields, "title"),
		Body:        stringField(rec.Fields, "content"),
		URL:         stringField(rec.Fields, "url"),
		Score:       voatScore(rec.Fields),
		NumComments: int64Field(rec.Fields, "commentCount"),
		CreatedUTC:  voatEpoch(rec.Fields, "creationDate"),
		Raw:         rec.JSON,
	}, nil
}

func (a *VoatAdapter) NormalizeComment(rec archive.RawRecord) (model.Comment, error) {
	id := stringField(rec.Fields, "commentid")
	if id == "" {
		return model.Comment{}, fmt.Errorf("%w: comment without id", archive.ErrMalformedRecord)
	}
	postID := stringField(rec.Fields, "submissionid")
	if postID == "" {
		return model.Comment{}, fmt.Errorf("%w: comment %s without submissionid", archive.ErrMalformedRecord, id)
	}

	var parentID string
	if parent := stringField(rec.Fields, "parentid"); parent != "" {
		parentID = archive.PrefixID(archive.PlatformVoat, parent)
	}

	return model.Comment{
		ID:         archive.PrefixID(archive.PlatformVoat, id),
		PostID:     archive.PrefixID(archive.PlatformVoat, postID),
		ParentID:   parentID,
		Community:  stringField(rec.Fields, "subverse"),
		Author:     normalizeAuthor(stringField(rec.Fields, "userName")),
		Body:       stringField(rec.Fields, "content"),
		Score:      voatScore(rec.Fields),
		CreatedUTC: voatEpoch(rec.Fields, "creationDate"),
		Raw:        rec.JSON,
	}, nil
}

// voatScore is net votes; Voat dumps carry up and down counts separately.
func voatScore(fields map[string]any) int64 {
	return int64Field(fields, "upCount") - int64Field(fields, "downCount")
}

var voatTimeLayouts = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02 15:04:05",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04:05",
}

// voatEpoch converts a MariaDB datetime string to Unix seconds. Dump
// timestamps are UTC without zone markers.
func voatEpoch(fields map[string]any, key string) int64 {
	raw := stringField(fields, key)
	if raw == "" {
		return 0
	}
	for _, layout := range voatTimeLayouts {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.Unix()
		}
	}
	return int64Field(fields, key)
}
