// Package archive persists PerformanceRecord and BenchmarkRun values
// as pretty-printed JSON files under the user's XDG config directory,
// one file per record, matching spec.md §4.16.
package archive

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"
)

// Sentinel errors per spec.md §7's error taxonomy. Callers compare
// against these with errors.Is rather than inspecting message strings.
var (
	ErrUnsupportedPlatform = errors.New("archive: unsupported platform")
	ErrPermissionDenied    = errors.New("archive: permission denied")
	ErrResourceExhausted   = errors.New("archive: resource exhausted")
	ErrInvalidArgument     = errors.New("archive: invalid argument")
	ErrNotFound            = errors.New("archive: record not found")
)

// configRoot resolves $XDG_CONFIG_HOME, falling back to $HOME/.config
// and finally /tmp/.config.
func configRoot() string {
	if v := os.Getenv("XDG_CONFIG_HOME"); v != "" {
		return v
	}
	if home, err := os.UserHomeDir(); err == nil && home != "" {
		return filepath.Join(home, ".config")
	}
	return filepath.Join(os.TempDir(), ".config")
}

// Record is the shape a stored value must satisfy: something with an
// identifying timestamp (unix milliseconds) to build its filename from.
type Record interface {
	RecordID() string
	RecordTimestampMs() int64
}

// Store is a generic JSON-file-per-record archive rooted at a
// subdirectory under the XDG config tree. Two instances of Store[T]
// back spec.md's two separate stores (performance records and
// benchmark runs) rather than duplicating the CRUD logic per type, the
// way the original's two near-identical Rust structs must.
type Store[T Record] struct {
	dir        string
	filePrefix string
}

// NewStore constructs a Store rooted at $XDG_CONFIG_HOME/<subpath>,
// naming files "<filePrefix>_<unix_ms>.json".
func NewStore[T Record](subpath, filePrefix string) *Store[T] {
	return &Store[T]{
		dir:        filepath.Join(configRoot(), subpath),
		filePrefix: filePrefix,
	}
}

func (s *Store[T]) filename(timestampMs int64) string {
	return fmt.Sprintf("%s_%d.json", s.filePrefix, timestampMs)
}

// Save writes rec as pretty-printed JSON under this store's directory.
func (s *Store[T]) Save(rec T) error {
	if err := os.MkdirAll(s.dir, 0755); err != nil {
		return fmt.Errorf("create archive dir: %w", err)
	}
	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal record: %w", err)
	}
	path := filepath.Join(s.dir, s.filename(rec.RecordTimestampMs()))
	return os.WriteFile(path, data, 0644)
}

// List returns every record in this store, most recent first (sorted
// by filename, which embeds the millisecond timestamp).
func (s *Store[T]) List() ([]T, error) {
	names, err := s.sortedFilenames()
	if err != nil {
		return nil, err
	}
	out := make([]T, 0, len(names))
	for _, name := range names {
		var rec T
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		if err := json.Unmarshal(data, &rec); err != nil {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store[T]) sortedFilenames() ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	var names []string
	for _, e := range entries {
		if strings.HasPrefix(e.Name(), s.filePrefix+"_") && strings.HasSuffix(e.Name(), ".json") {
			names = append(names, e.Name())
		}
	}
	sort.Sort(sort.Reverse(sort.StringSlice(names)))
	return names, nil
}

// Load reads a single record by its exact ID (the filename's timestamp
// component as a string). A missing record wraps ErrNotFound so callers
// can use errors.Is(err, archive.ErrNotFound), per spec.md §7/§8.
func (s *Store[T]) Load(id string) (T, error) {
	var rec T
	if id == "" {
		return rec, fmt.Errorf("load record: %w", ErrInvalidArgument)
	}
	data, err := os.ReadFile(filepath.Join(s.dir, s.filePrefix+"_"+id+".json"))
	if os.IsNotExist(err) {
		return rec, fmt.Errorf("load record %s: %w", id, ErrNotFound)
	}
	if os.IsPermission(err) {
		return rec, fmt.Errorf("load record %s: %w", id, ErrPermissionDenied)
	}
	if err != nil {
		return rec, fmt.Errorf("load record %s: %w", id, err)
	}
	if err := json.Unmarshal(data, &rec); err != nil {
		return rec, fmt.Errorf("decode record %s: %w", id, err)
	}
	return rec, nil
}

// Delete removes a record by ID, wrapping ErrNotFound if it does not
// exist.
func (s *Store[T]) Delete(id string) error {
	err := os.Remove(filepath.Join(s.dir, s.filePrefix+"_"+id+".json"))
	if os.IsNotExist(err) {
		return fmt.Errorf("delete record %s: %w", id, ErrNotFound)
	}
	return err
}

// Count returns the number of records currently stored.
func (s *Store[T]) Count() (int, error) {
	names, err := s.sortedFilenames()
	if err != nil {
		return 0, err
	}
	return len(names), nil
}

type MinimalFields struct {
	ID        string `json:"id"`
	Label     string `json:"label"`
	Timestamp int64  `json:"timestamp"`
}

// ListMetadata decodes only the id/label/timestamp fields of every
// record in the store, avoiding a full unmarshal of potentially large
// benchmark payloads just to render a list row.
func (s *Store[T]) ListMetadata() ([]MinimalFields, error) {
	names, err := s.sortedFilenames()
	if err != nil {
		return nil, err
	}
	out := make([]MinimalFields, 0, len(names))
	for _, name := range names {
		data, err := os.ReadFile(filepath.Join(s.dir, name))
		if err != nil {
			continue
		}
		var m MinimalFields
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		out = append(out, m)
	}
	return out, nil
}

// DisplayName formats "<label or Unnamed> (YYYY-MM-DD HH:MM:SS UTC)".
func DisplayName(label string, timestampMs int64) string {
	if label == "" {
		label = "Unnamed"
	}
	t := time.UnixMilli(timestampMs).UTC()
	return fmt.Sprintf("%s (%s)", label, t.Format("2006-01-02 15:04:05")+" UTC")
}
