package importer

import (
	"context"
	"fmt"
	"os/exec"

	"redarch/internal/archive"
	"redarch/internal/model"
)

// RuqqusAdapter reads Ruqqus shutdown dumps: .7z archives of line-delimited
// JSON. Decompression is delegated to a 7z subprocess streaming to stdout,
// so archives are never extracted to disk.
type RuqqusAdapter struct {
	// SevenZip is the decompressor binary, "7z" unless overridden.
	SevenZip string
}

var _ archive.PlatformAdapter = (*RuqqusAdapter)(nil)

func NewRuqqusAdapter() *RuqqusAdapter { return &RuqqusAdapter{SevenZip: "7z"} }

func (a *RuqqusAdapter) Platform() archive.Platform { return archive.PlatformRuqqus }

func (a *RuqqusAdapter) StreamPosts(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(ctx, path)
}

func (a *RuqqusAdapter) StreamComments(ctx context.Context, path string) (archive.RecordStream, error) {
	return a.open(ctx, path)
}

func (a *RuqqusAdapter) open(ctx context.Context, path string) (archive.RecordStream, error) {
	cmd := exec.CommandContext(ctx, a.SevenZip, "e", "-so", path)
	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return nil, fmt.Errorf("piping %s: %w", a.SevenZip, err)
	}
	if err := cmd.Start(); err != nil {
		return nil, fmt.Errorf("starting %s for %s: %w", a.SevenZip, path, err)
	}

	// A non-zero exit means the archive itself is bad, which is a file-level
	// decode failure rather than a malformed-line count.
	return newJSONLineStream(stdout, func() error {
		stdout.Close()
		if err := cmd.Wait(); err != nil {
			return fmt.Errorf("%w: %s exited for %s: %v", archive.ErrDecodeFailure, a.SevenZip, path, err)
		}
		return nil
	}), nil
}

func (a *RuqqusAdapter) NormalizePost(rec archive.RawRecord) (model.Post, error) {
	id := stringField(rec.Fields, "id", "fullname")
	if id == "" {
		return model.Post{}, fmt.Errorf("%w: post without id", archive.ErrMalformedRecord)
	}
	return model.Post{
		ID:          archive.PrefixID(archive.PlatformRuqqus, id),
		Platform:    string(archive.PlatformRuqqus),
		Community:   stringField(rec.Fields, "guild_name", "guild"),
		Author:      normalizeAuthor(stringField(rec.Fields, "author", "author_name")),
		Title:       stringField(rec.Fields, "title"),
		Body:        stringField(rec.Fields, "body", "selftext"),
		URL:         stringField(rec.Fields, "url"),
		Score:       int64Field(rec.Fields, "score"),
		NumComments: int64Field(rec.Fields, "comment_count", "num_comments"),
		CreatedUTC:  int64Field(rec.Fields, "created_utc"),
		Raw:         rec.JSON,
	}, nil
}

func (a *RuqqusAdapter) NormalizeComment(rec archive.RawRecord) (model.Comment, error) {
	id := stringField(rec.Fields, "id", "fullname")
	if id == "" {
		return model.Comment{}, fmt.Errorf("%w: comment without id", archive.ErrMalformedRecord)
	}
	postID := stringField(rec.Fields, "post_id", "submission_id", "parent_submission")
	if postID == "" {
		return model.Comment{}, fmt.Errorf("%w: comment %s without post reference", archive.ErrMalformedRecord, id)
	}

	var parentID string
	if parent := stringField(rec.Fields, "parent_comment_id"); parent != "" && parent != "0" {
		parentID = archive.PrefixID(archive.PlatformRuqqus, parent)
	}

	return model.Comment{
		ID:         archive.PrefixID(archive.PlatformRuqqus, id),
		PostID:     archive.PrefixID(archive.PlatformRuqqus, postID),
		ParentID:   parentID,
		Community:  stringField(rec.Fields, "guild_name", "guild"),
		Author:     normalizeAuthor(stringField(rec.Fields, "author", "author_name")),
		Body:       stringField(rec.Fields, "body"),
		Score:      int64Field(rec.Fields, "score"),
		CreatedUTC: int64Field(rec.Fields, "created_utc"),
		Raw:        rec.JSON,
	}, nil
}
