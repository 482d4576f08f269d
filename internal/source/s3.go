package source

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/s3/manager"
	"github.com/aws/aws-sdk-go-v2/service/s3"

	"redarch/internal/archive"
	"redarch/internal/config"
)

// s3API covers the client surface S3Source needs, so tests can substitute a
// fake.
type s3API interface {
	ListObjectsV2(ctx context.Context, params *s3.ListObjectsV2Input, optFns ...func(*s3.Options)) (*s3.ListObjectsV2Output, error)
}

// S3Source spools dump objects from a bucket prefix into a local directory.
// Objects already spooled with a matching size are not downloaded again, so
// repeated runs only transfer new dumps.
type S3Source struct {
	bucket     string
	prefix     string
	spoolDir   string
	client     s3API
	downloader *manager.Downloader
	logger     archive.Logger
}

var _ DumpSource = (*S3Source)(nil)

// NewS3Source creates an S3Source from config. Explicit access keys take
// precedence over the default credential chain.
func NewS3Source(ctx context.Context, cfg config.SourceConfig, logger archive.Logger) (*S3Source, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(cfg.S3Region),
	}
	if cfg.S3AccessKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.S3AccessKey, cfg.S3SecretKey, ""),
		))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("loading aws config: %w", err)
	}

	client := s3.NewFromConfig(awsCfg)
	return &S3Source{
		bucket:     cfg.S3Bucket,
		prefix:     cfg.S3Prefix,
		spoolDir:   cfg.SpoolDir,
		client:     client,
		downloader: manager.NewDownloader(client),
		logger:     logger,
	}, nil
}

// dump extensions worth spooling; everything else under the prefix is left
// alone.
var spoolExtensions = []string{".zst", ".sql", ".sql.gz", ".7z"}

func spoolable(key string) bool {
	for _, ext := range spoolExtensions {
		if strings.HasSuffix(key, ext) {
			return true
		}
	}
	return false
}

func (s *S3Source) Fetch(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.spoolDir, 0755); err != nil {
		return "", fmt.Errorf("creating spool directory %s: %w", s.spoolDir, err)
	}

	var continuation *string
	for {
		out, err := s.client.ListObjectsV2(ctx, &s3.ListObjectsV2Input{
			Bucket:            &s.bucket,
			Prefix:            &s.prefix,
			ContinuationToken: continuation,
		})
		if err != nil {
			return "", fmt.Errorf("listing s3://%s/%s: %w", s.bucket, s.prefix, err)
		}

		for _, obj := range out.Contents {
			if obj.Key == nil || !spoolable(*obj.Key) {
				continue
			}
			if err := s.spoolObject(ctx, *obj.Key, derefSize(obj.Size)); err != nil {
				return "", err
			}
		}

		if out.IsTruncated == nil || !*out.IsTruncated {
			break
		}
		continuation = out.NextContinuationToken
	}
	return s.spoolDir, nil
}

func (s *S3Source) spoolObject(ctx context.Context, key string, size int64) error {
	local := filepath.Join(s.spoolDir, path.Base(key))
	if info, err := os.Stat(local); err == nil && info.Size() == size {
		s.logger.Debug("already spooled", "key", key)
		return nil
	}

	f, err := os.Create(local)
	if err != nil {
		return fmt.Errorf("creating %s: %w", local, err)
	}
	defer f.Close()

	s.logger.Info("spooling dump", "key", key, "bytes", size)
	if _, err := s.downloader.Download(ctx, f, &s3.GetObjectInput{
		Bucket: &s.bucket,
		Key:    &key,
	}); err != nil {
		os.Remove(local)
		return fmt.Errorf("downloading s3://%s/%s: %w", s.bucket, key, err)
	}
	return nil
}

func derefSize(n *int64) int64 {
	if n == nil {
		return 0
	}
	return *n
}
