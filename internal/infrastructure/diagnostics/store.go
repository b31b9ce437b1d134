package diagnostics

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"time"

	"github.com/phuslu/log"

	"github.com/productsheet/backend/internal/domain"
)

// responsesDir is the per-session sub-directory holding diagnostic records.
const responsesDir = "model_responses"

const fileTimeLayout = "20060102T150405.000000000"

var unsafeNameChars = regexp.MustCompile(`[^A-Za-z0-9_-]+`)

// Entry describes one stored diagnostic record
type Entry struct {
	Path      string
	SessionID string
	ModTime   time.Time
	Size      int64
}

// FileStore writes one JSON file per model attempt under
// <root>/<session>/model_responses/.
type FileStore struct {
	root string
	now  func() time.Time
}

// NewFileStore creates a store rooted at the output directory
func NewFileStore(root string) *FileStore {
	return &FileStore{root: root, now: time.Now}
}

// Save writes the record to a new file and returns its path. Existing files
// are never overwritten.
func (s *FileStore) Save(ctx context.Context, record domain.DiagnosticRecord) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}

	dir := filepath.Join(s.root, sessionDirName(record.Metadata.SessionID), responsesDir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create diagnostics directory: %w", err)
	}

	path := filepath.Join(dir, s.fileName(record.Metadata))

	data, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return "", fmt.Errorf("encode diagnostic record: %w", err)
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", fmt.Errorf("create diagnostic file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		return "", fmt.Errorf("write diagnostic file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", fmt.Errorf("close diagnostic file: %w", err)
	}

	log.Debug().Str("path", path).Msg("[DIAGNOSTICS] Saved model response")
	return path, nil
}

// fileName builds <timestamp>_seg<k>_try<n>[_fallback].json
func (s *FileStore) fileName(meta domain.DiagnosticMetadata) string {
	ts, err := time.Parse(time.RFC3339Nano, meta.Timestamp)
	if err != nil {
		ts = s.now()
	}
	name := fmt.Sprintf("%s_seg%d_try%d", ts.UTC().Format(fileTimeLayout), meta.Segment, meta.Attempt)
	if meta.Fallback {
		name += "_fallback"
	}
	return name + ".json"
}

func sessionDirName(sessionID string) string {
	name := unsafeNameChars.ReplaceAllString(sessionID, "_")
	if name == "" || name == "_" {
		return "adhoc"
	}
	return name
}

// List returns every stored record, newest first. A missing root yields an
// empty list.
func (s *FileStore) List() ([]Entry, error) {
	pattern := filepath.Join(s.root, "*", responsesDir, "*.json")
	paths, err := filepath.Glob(pattern)
	if err != nil {
		return nil, err
	}

	entries := make([]Entry, 0, len(paths))
	for _, p := range paths {
		info, err := os.Stat(p)
		if err != nil {
			log.Warn().Err(err).Str("path", p).Msg("[DIAGNOSTICS] Skipping unreadable file")
			continue
		}
		entries = append(entries, Entry{
			Path:      p,
			SessionID: filepath.Base(filepath.Dir(filepath.Dir(p))),
			ModTime:   info.ModTime(),
			Size:      info.Size(),
		})
	}

	sort.SliceStable(entries, func(i, j int) bool {
		return entries[i].ModTime.After(entries[j].ModTime)
	})
	return entries, nil
}

// Load reads one record. Relative paths are tried as given, then under the
// store root.
func (s *FileStore) Load(path string) (*domain.DiagnosticRecord, error) {
	data, err := os.ReadFile(path)
	if errors.Is(err, fs.ErrNotExist) && !filepath.IsAbs(path) {
		data, err = os.ReadFile(filepath.Join(s.root, path))
	}
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", domain.ErrDiagnosticNotFound, path)
	}
	if err != nil {
		return nil, err
	}

	var record domain.DiagnosticRecord
	if err := json.Unmarshal(data, &record); err != nil {
		return nil, fmt.Errorf("decode diagnostic record %s: %w", path, err)
	}
	return &record, nil
}

// Clean deletes records last modified before cutoff and removes the
// model_responses directories it leaves empty. It returns the number of
// files deleted.
func (s *FileStore) Clean(cutoff time.Time) (int, error) {
	entries, err := s.List()
	if err != nil {
		return 0, err
	}

	deleted := 0
	touched := make(map[string]bool)
	for _, e := range entries {
		if !e.ModTime.Before(cutoff) {
			continue
		}
		if err := os.Remove(e.Path); err != nil {
			log.Warn().Err(err).Str("path", e.Path).Msg("[DIAGNOSTICS] Could not delete file")
			continue
		}
		deleted++
		touched[filepath.Dir(e.Path)] = true
	}

	for dir := range touched {
		if empty, _ := isEmptyDir(dir); empty {
			if err := os.Remove(dir); err == nil {
				log.Debug().Str("dir", dir).Msg("[DIAGNOSTICS] Removed empty directory")
			}
		}
	}

	log.Info().Int("deleted", deleted).Time("cutoff", cutoff).Msg("[DIAGNOSTICS] Cleanup complete")
	return deleted, nil
}

func isEmptyDir(dir string) (bool, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return false, err
	}
	return len(entries) == 0, nil
}
