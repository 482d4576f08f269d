package archive

import "errors"

// Error taxonomy for the ingestion and query pipeline.
//
// Per-record errors (ErrMalformedRecord, ErrMalformedSQLRow,
// ErrOrphanReference, ErrLoadConflict) never abort a file: they are counted
// in RunStats and processing continues. Per-file errors (ErrDecodeFailure)
// abort only that file. ErrCheckpointCorrupt is fatal for its stage and
// requires an explicit force-rebuild.
var (
	// ErrUnknownFormat means no platform adapter matched the input and no
	// override was given.
	ErrUnknownFormat = errors.New("unknown input format")

	// ErrDecodeFailure means the underlying decompression stream or
	// subprocess failed; the current file is aborted.
	ErrDecodeFailure = errors.New("decode failure")

	// ErrMalformedRecord means a single record could not be parsed and was
	// skipped.
	ErrMalformedRecord = errors.New("malformed record")

	// ErrMalformedSQLRow means a row tuple failed to parse; the SQL dump
	// parser resynchronizes at the next tuple boundary.
	ErrMalformedSQLRow = errors.New("malformed sql row")

	// ErrOrphanReference means a comment referenced a post that is not in
	// the store; the comment is persisted with a fallback community.
	ErrOrphanReference = errors.New("orphaned parent reference")

	// ErrLoadConflict means an already-ingested identifier was seen again;
	// the existing row is left unchanged.
	ErrLoadConflict = errors.New("duplicate identifier on load")

	// ErrQueryTimeout means a long-running query exceeded its statement
	// timeout. It is surfaced to the caller and not retried automatically.
	ErrQueryTimeout = errors.New("query timeout")

	// ErrCheckpointCorrupt means a stage's persisted cursor could not be
	// interpreted; the stage must be rebuilt with --force-rebuild.
	ErrCheckpointCorrupt = errors.New("corrupt checkpoint")
)
