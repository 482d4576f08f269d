package archive

import (
	"context"

	"redarch/internal/model"
)

// RawRecord is one record as decoded from a platform dump, before
// normalization. Fields holds the decoded values keyed by the source's own
// field or column names; JSON is the record's original (or reconstructed)
// JSON encoding, preserved as the raw-payload blob.
type RawRecord struct {
	Fields map[string]any
	JSON   []byte
}

// RecordStream is a lazy, finite, single-pass sequence of raw records.
// Streams are not restartable: callers that need to resume must re-open the
// source. Next returns io.EOF after the final record.
type RecordStream interface {
	Next() (RawRecord, error)

	// BadRecords returns the number of malformed records skipped so far.
	BadRecords() int64

	// Close releases the underlying file or subprocess. After a stream ends
	// with an error other than io.EOF, Close reports whether the underlying
	// decoder failed.
	Close() error
}

// PlatformAdapter turns one platform's native dump encoding into raw record
// streams and maps raw records into the unified shape. Normalize methods are
// pure; all I/O is confined to the streams.
type PlatformAdapter interface {
	Platform() Platform

	StreamPosts(ctx context.Context, path string) (RecordStream, error)
	StreamComments(ctx context.Context, path string) (RecordStream, error)

	NormalizePost(rec RawRecord) (model.Post, error)
	NormalizeComment(rec RawRecord) (model.Comment, error)
}
