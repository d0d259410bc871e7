package recording

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

const defaultCacheSize = 32

// StoreOptions tunes a Store.
type StoreOptions struct {
	// CacheSize bounds the number of decoded recordings kept in memory.
	CacheSize int
	Clock     func() time.Time
	Logger    *slog.Logger
}

// Store keeps recordings as JSON files in one directory.
type Store struct {
	dir    string
	cache  *lru.Cache[string, cachedRecording]
	clock  func() time.Time
	logger *slog.Logger
}

type cachedRecording struct {
	modTime time.Time
	size    int64
	rec     Recording
}

// Entry describes one listed recording file.
type Entry struct {
	Filename    string
	Path        string
	Name        string
	Duration    time.Duration
	TotalEvents int
	CreatedAt   time.Time
	Size        int64
	ModifiedAt  time.Time
}

// NewStore creates dir when missing.
func NewStore(dir string, opts StoreOptions) (*Store, error) {
	if strings.TrimSpace(dir) == "" {
		return nil, errors.New("recordings directory must not be empty")
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create recordings directory: %w", err)
	}
	size := opts.CacheSize
	if size <= 0 {
		size = defaultCacheSize
	}
	cache, err := lru.New[string, cachedRecording](size)
	if err != nil {
		return nil, fmt.Errorf("initialise recording cache: %w", err)
	}
	clock := opts.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &Store{dir: dir, cache: cache, clock: clock, logger: logger}, nil
}

// Dir returns the directory backing the store.
func (s *Store) Dir() string { return s.dir }

// Resolve maps a bare file name onto the store directory. Paths that exist
// as given are returned unchanged.
func (s *Store) Resolve(name string) string {
	if _, err := os.Stat(name); err == nil {
		return name
	}
	if filepath.Base(name) == name {
		candidate := filepath.Join(s.dir, name)
		if filepath.Ext(candidate) == "" {
			candidate += ".json"
		}
		return candidate
	}
	return name
}

// Save writes rec under an auto_save_<timestamp>.json name and returns its path.
func (s *Store) Save(rec Recording) (string, error) {
	return s.writeNew("auto_save", rec)
}

// Backup writes rec under a <prefix>_<timestamp>.json name.
func (s *Store) Backup(rec Recording, prefix string) (string, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		prefix = "backup"
	}
	return s.writeNew(prefix, rec)
}

func (s *Store) writeNew(prefix string, rec Recording) (string, error) {
	name, err := s.resolveName(prefix)
	if err != nil {
		return "", err
	}
	path := filepath.Join(s.dir, name)
	if err := s.SaveAs(path, rec); err != nil {
		return "", err
	}
	return path, nil
}

// resolveName derives a file name from the clock and avoids collisions by
// appending _01, _02 and so on.
func (s *Store) resolveName(prefix string) (string, error) {
	base := fmt.Sprintf("%s_%s", prefix, s.clock().UTC().Format("20060102_150405"))
	candidate := base
	suffix := 1
	for {
		_, err := os.Stat(filepath.Join(s.dir, candidate+".json"))
		if err == nil {
			candidate = fmt.Sprintf("%s_%02d", base, suffix)
			suffix++
			continue
		}
		if errors.Is(err, os.ErrNotExist) {
			return candidate + ".json", nil
		}
		return "", fmt.Errorf("inspect recordings directory: %w", err)
	}
}

// SaveAs writes rec to path through a temporary file in the same directory.
func (s *Store) SaveAs(path string, rec Recording) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".recording-*.tmp")
	if err != nil {
		return fmt.Errorf("create temporary recording: %w", err)
	}
	defer os.Remove(tmp.Name())

	if err := Encode(tmp, rec); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temporary recording: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("write recording: %w", err)
	}
	s.cache.Remove(path)
	s.logger.Debug("recording saved", "path", path, "events", rec.TotalEvents)
	return nil
}

// Load reads and validates the recording at path. Decoded recordings are
// cached until the file's modification time or size changes.
func (s *Store) Load(path string) (Recording, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Recording{}, fmt.Errorf("stat recording: %w", err)
	}
	if cached, ok := s.cache.Get(path); ok && cached.modTime.Equal(info.ModTime()) && cached.size == info.Size() {
		return cached.rec, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Recording{}, fmt.Errorf("open recording: %w", err)
	}
	defer f.Close()

	rec, err := Decode(f)
	if err != nil {
		return Recording{}, fmt.Errorf("%s: %w", filepath.Base(path), err)
	}
	s.cache.Add(path, cachedRecording{modTime: info.ModTime(), size: info.Size(), rec: rec})
	return rec, nil
}

// List returns the valid recordings in the store, most recently modified
// first. Files that fail validation are skipped.
func (s *Store) List() ([]Entry, error) {
	dirEntries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("read recordings directory: %w", err)
	}

	var entries []Entry
	for _, de := range dirEntries {
		if de.IsDir() || !strings.HasSuffix(de.Name(), ".json") {
			continue
		}
		path := filepath.Join(s.dir, de.Name())
		info, err := de.Info()
		if err != nil {
			if !errors.Is(err, fs.ErrNotExist) {
				s.logger.Warn("skip recording", "path", path, "error", err)
			}
			continue
		}
		rec, err := s.Load(path)
		if err != nil {
			s.logger.Debug("skip invalid recording", "path", path, "error", err)
			continue
		}
		name := rec.Name
		if name == "" {
			name = de.Name()
		}
		entries = append(entries, Entry{
			Filename:    de.Name(),
			Path:        path,
			Name:        name,
			Duration:    rec.Duration,
			TotalEvents: rec.TotalEvents,
			CreatedAt:   rec.CreatedAt,
			Size:        info.Size(),
			ModifiedAt:  info.ModTime(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		if entries[i].ModifiedAt.Equal(entries[j].ModifiedAt) {
			return entries[i].Filename > entries[j].Filename
		}
		return entries[i].ModifiedAt.After(entries[j].ModifiedAt)
	})
	return entries, nil
}

// Cleanup keeps at most maxFiles recordings and removes any older than
// maxAge. Non-positive limits disable the matching rule. It returns the
// number of files removed.
func (s *Store) Cleanup(maxFiles int, maxAge time.Duration) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}

	doomed := make(map[string]struct{})
	if maxFiles > 0 && len(entries) > maxFiles {
		for _, e := range entries[maxFiles:] {
			doomed[e.Path] = struct{}{}
		}
	}
	if maxAge > 0 {
		cutoff := s.clock().Add(-maxAge)
		for _, e := range entries {
			if e.ModifiedAt.Before(cutoff) {
				doomed[e.Path] = struct{}{}
			}
		}
	}

	removed := 0
	for _, e := range entries {
		if _, ok := doomed[e.Path]; !ok {
			continue
		}
		if err := os.Remove(e.Path); err != nil {
			s.logger.Warn("remove recording", "path", e.Path, "error", err)
			continue
		}
		s.cache.Remove(e.Path)
		removed++
	}
	return removed, nil
}
