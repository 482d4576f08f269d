package source

import (
	"context"
	"fmt"
	"os"
)

// FilesystemSource serves dumps straight from a local directory.
type FilesystemSource struct {
	dir string
}

var _ DumpSource = (*FilesystemSource)(nil)

// NewFilesystemSource creates a FilesystemSource for the given directory.
func NewFilesystemSource(dir string) *FilesystemSource {
	return &FilesystemSource{dir: dir}
}

func (s *FilesystemSource) Fetch(ctx context.Context) (string, error) {
	info, err := os.Stat(s.dir)
	if err != nil {
		return "", fmt.Errorf("dump directory %s: %w", s.dir, err)
	}
	if !info.IsDir() {
		return "", fmt.Errorf("dump path %s is not a directory", s.dir)
	}
	return s.dir, nil
}
