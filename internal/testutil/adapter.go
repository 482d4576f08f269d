package testutil

import (
	"context"
	"errors"
	"io"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// ErrBadRecord is the normalization failure injected by bad fake records.
var ErrBadRecord = errors.New("bad record")

// FakeAdapter serves fixed slices of posts and comments keyed by file path.
// A record whose Fields contain "bad" fails normalization; BadPaths lists
// paths whose streams fail mid-read with a decode error.
type FakeAdapter struct {
	Name     archive.Platform
	Posts    map[string][]model.Post
	Comments map[string][]model.Comment

	// BadRecordEvery, when > 0, makes every Nth record unnormalizable.
	BadRecordEvery int
	// FailPaths makes StreamPosts/StreamComments fail to open these paths.
	FailPaths map[string]bool
	// AbortAfter, when > 0, ends streams with an error after N records.
	AbortAfter int
}

var _ archive.PlatformAdapter = (*FakeAdapter)(nil)

// NewFakeAdapter creates a FakeAdapter for the given platform.
func NewFakeAdapter(platform archive.Platform) *FakeAdapter {
	return &FakeAdapter{
		Name:     platform,
		Posts:    make(map[string][]model.Post),
		Comments: make(map[string][]model.Comment),
	}
}

func (a *FakeAdapter) Platform() archive.Platform { return a.Name }

func (a *FakeAdapter) StreamPosts(ctx context.Context, path string) (archive.RecordStream, error) {
	if a.FailPaths[path] {
		return nil, errors.New("open failed")
	}
	recs := make([]archive.RawRecord, 0, len(a.Posts[path]))
	for i, p := range a.Posts[path] {
		recs = append(recs, a.record(i, map[string]any{"post": p}))
	}
	return &fakeStream{records: recs, abortAfter: a.AbortAfter}, nil
}

func (a *FakeAdapter) StreamComments(ctx context.Context, path string) (archive.RecordStream, error) {
	if a.FailPaths[path] {
		return nil, errors.New("open failed")
	}
	recs := make([]archive.RawRecord, 0, len(a.Comments[path]))
	for i, c := range a.Comments[path] {
		recs = append(recs, a.record(i, map[string]any{"comment": c}))
	}
	return &fakeStream{records: recs, abortAfter: a.AbortAfter}, nil
}

func (a *FakeAdapter) record(i int, fields map[string]any) archive.RawRecord {
	if a.BadRecordEvery > 0 && (i+1)%a.BadRecordEvery == 0 {
		fields["bad"] = true
	}
	return archive.RawRecord{Fields: fields}
}

func (a *FakeAdapter) NormalizePost(rec archive.RawRecord) (model.Post, error) {
	if rec.Fields["bad"] != nil {
		return model.Post{}, ErrBadRecord
	}
	p, ok := rec.Fields["post"].(model.Post)
	if !ok {
		return model.Post{}, ErrBadRecord
	}
	return p, nil
}

func (a *FakeAdapter) NormalizeComment(rec archive.RawRecord) (model.Comment, error) {
	if rec.Fields["bad"] != nil {
		return model.Comment{}, ErrBadRecord
	}
	c, ok := rec.Fields["comment"].(model.Comment)
	if !ok {
		return model.Comment{}, ErrBadRecord
	}
	return c, nil
}

type fakeStream struct {
	records    []archive.RawRecord
	pos        int
	abortAfter int
}

func (s *fakeStream) Next() (archive.RawRecord, error) {
	if s.abortAfter > 0 && s.pos >= s.abortAfter {
		return archive.RawRecord{}, errors.New("stream corrupted")
	}
	if s.pos >= len(s.records) {
		return archive.RawRecord{}, io.EOF
	}
	rec := s.records[s.pos]
	s.pos++
	return rec, nil
}

func (s *fakeStream) BadRecords() int64 { return 0 }
func (s *fakeStream) Close() error      { return nil }
