package importer

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"

	"redarch/internal/archive"
)

// AdapterFor returns the adapter for a platform.
func AdapterFor(platform archive.Platform) (archive.PlatformAdapter, error) {
	switch platform {
	case archive.PlatformReddit:
		return NewRedditAdapter(), nil
	case archive.PlatformVoat:
		return NewVoatAdapter(), nil
	case archive.PlatformRuqqus:
		return NewRuqqusAdapter(), nil
	default:
		return nil, fmt.Errorf("%w: platform %q", archive.ErrUnknownFormat, platform)
	}
}

// Detect picks the adapter for a dump file. An explicit override always
// wins; otherwise the file extension decides. Unknown extensions are
// ErrUnknownFormat.
func Detect(path string, override archive.Platform) (archive.PlatformAdapter, error) {
	if override != "" {
		return AdapterFor(override)
	}
	switch {
	case strings.HasSuffix(path, ".zst"):
		return NewRedditAdapter(), nil
	case strings.HasSuffix(path, ".sql"), strings.HasSuffix(path, ".sql.gz"):
		return NewVoatAdapter(), nil
	case strings.HasSuffix(path, ".7z"):
		return NewRuqqusAdapter(), nil
	default:
		return nil, fmt.Errorf("%w: %s", archive.ErrUnknownFormat, path)
	}
}

// DetectDir walks a directory of dump files and builds import jobs. File
// names follow the archive convention `<community>_submissions.<ext>` /
// `<community>_comments.<ext>`; files that match no known format or carry
// no recognizable kind token are returned in skipped, never imported
// silently.
func DetectDir(root string, override archive.Platform) (jobs []archive.ImportJob, skipped []string, err error) {
	err = filepath.WalkDir(root, func(path string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.IsDir() {
			return nil
		}

		adapter, detectErr := Detect(path, override)
		if detectErr != nil {
			skipped = append(skipped, path)
			return nil
		}
		community, kind, ok := classifyName(filepath.Base(path))
		if !ok {
			skipped = append(skipped, path)
			return nil
		}

		jobs = append(jobs, archive.ImportJob{
			File: archive.DumpFile{
				Path:      path,
				Platform:  adapter.Platform(),
				Community: community,
				Kind:      kind,
			},
			Adapter: adapter,
		})
		return nil
	})
	if err != nil {
		return nil, nil, fmt.Errorf("scanning %s: %w", root, err)
	}

	// Deterministic order: posts files sort ahead of comment files per
	// community, matching the two import phases.
	sort.Slice(jobs, func(i, j int) bool {
		a, b := jobs[i].File, jobs[j].File
		if a.Kind != b.Kind {
			return a.Kind == archive.KindPosts
		}
		return a.Path < b.Path
	})
	return jobs, skipped, nil
}

var kindTokens = map[string]archive.RecordKind{
	"submissions": archive.KindPosts,
	"submission":  archive.KindPosts,
	"posts":       archive.KindPosts,
	"comments":    archive.KindComments,
	"comment":     archive.KindComments,
}

// classifyName splits `<community>_<kind>.<ext>` into its parts.
func classifyName(base string) (community string, kind archive.RecordKind, ok bool) {
	name := base
	for _, ext := range []string{".zst", ".7z", ".gz", ".sql"} {
		name = strings.TrimSuffix(name, ext)
	}

	idx := strings.LastIndex(name, "_")
	if idx < 0 {
		// A bare kind name ("submissions.7z") is a whole-site dump.
		if k, found := kindTokens[strings.ToLower(name)]; found {
			return archive.FallbackCommunity, k, true
		}
		return "", "", false
	}

	kind, ok = kindTokens[strings.ToLower(name[idx+1:])]
	if !ok {
		return "", "", false
	}
	community = name[:idx]
	if community == "" {
		community = archive.FallbackCommunity
	}
	return community, kind, true
}
