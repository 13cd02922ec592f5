package segment

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/Adithya-Monish-Kumar-K/fulltext-index/internal/indexer/index"
)

// Snapshot is the fully decoded content of one file.
type Snapshot struct {
	Path    string
	Header  SegmentHeader
	Meta    Meta
	Entries []index.TermEntry
}

// ReadFile decodes a whole snapshot file.
func ReadFile(path string) (*Snapshot, error) {
	r, err := OpenReader(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()

	entries, err := r.Entries()
	if err != nil {
		return nil, err
	}
	return &Snapshot{
		Path:    path,
		Header:  r.Header(),
		Meta:    r.Meta(),
		Entries: entries,
	}, nil
}

// List returns the snapshot files in dataDir, oldest first. A missing
// directory is not an error.
func List(dataDir string) ([]string, error) {
	dirEntries, err := os.ReadDir(dataDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("listing segment directory: %w", err)
	}
	var files []string
	for _, e := range dirEntries {
		name := e.Name()
		if e.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, FileExt) {
			continue
		}
		files = append(files, filepath.Join(dataDir, name))
	}
	sort.Strings(files)
	return files, nil
}

// LoadLatest returns the newest snapshot in dataDir that decodes cleanly,
// skipping damaged files. It returns nil when there is nothing to load.
func LoadLatest(dataDir string) (*Snapshot, error) {
	logger := slog.Default().With("component", "segment")
	files, err := List(dataDir)
	if err != nil {
		return nil, err
	}
	for i := len(files) - 1; i >= 0; i-- {
		snap, err := ReadFile(files[i])
		if err != nil {
			logger.Warn("skipping unreadable snapshot", "path", files[i], "error", err)
			continue
		}
		return snap, nil
	}
	return nil, nil
}

// Prune deletes all but the newest keep snapshot files along with any
// leftover temp files from interrupted writes. It returns the number of
// files removed.
func Prune(dataDir string, keep int) (int, error) {
	if keep < 1 {
		keep = 1
	}
	files, err := List(dataDir)
	if err != nil {
		return 0, err
	}
	stale, _ := filepath.Glob(filepath.Join(dataDir, filePrefix+"*"+FileExt+".tmp"))
	if len(files) > keep {
		stale = append(stale, files[:len(files)-keep]...)
	}
	removed := 0
	for _, path := range stale {
		if err := os.Remove(path); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return removed, fmt.Errorf("removing %s: %w", path, err)
		}
		removed++
	}
	return removed, nil
}
