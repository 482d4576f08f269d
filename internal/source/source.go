package source

import (
	"context"
	"fmt"

	"redarch/internal/archive"
	"redarch/internal/config"
)

// DumpSource makes dump files available in a local directory for the format
// detector to scan. Remote sources spool their objects to local disk first;
// the adapters only ever read local files.
type DumpSource interface {
	// Fetch returns the local directory holding the dump files.
	Fetch(ctx context.Context) (string, error)
}

// NewSourceFromConfig creates a DumpSource based on the source config type.
func NewSourceFromConfig(ctx context.Context, cfg config.SourceConfig, logger archive.Logger) (DumpSource, error) {
	switch cfg.Type {
	case "", "filesystem":
		if cfg.Dir == "" {
			return nil, fmt.Errorf("filesystem source requires dir to be set")
		}
		return NewFilesystemSource(cfg.Dir), nil
	case "s3":
		if cfg.S3Bucket == "" {
			return nil, fmt.Errorf("s3 source requires s3_bucket to be set")
		}
		if cfg.SpoolDir == "" {
			return nil, fmt.Errorf("s3 source requires spool_dir to be set")
		}
		return NewS3Source(ctx, cfg, logger)
	default:
		return nil, fmt.Errorf("unknown source type: %s", cfg.Type)
	}
}
