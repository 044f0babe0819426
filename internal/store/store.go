package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"sort"
	"sync"
	"time"
)

var idRe = regexp.MustCompile(`^[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}$`)

// Sentinel errors for transport-level mapping.
var (
	ErrNotFound  = errors.New("capture not found")
	ErrInvalidID = errors.New("invalid capture id")
)

// CaptureMeta describes one stored capture artifact.
type CaptureMeta struct {
	ID              string    `json:"id"`
	Mode            string    `json:"mode"`
	Format          string    `json:"format"`
	Ext             string    `json:"ext"`
	Width           int       `json:"width"`
	Height          int       `json:"height"`
	SizeBytes       int64     `json:"size_bytes"`
	Frames          int64     `json:"frames,omitempty"`
	DurationSeconds float64   `json:"duration_seconds,omitempty"`
	Partial         bool      `json:"partial,omitempty"`
	SourceDocument  string    `json:"source_document"`
	CreatedAt       time.Time `json:"created_at"`
}

// Store manages capture artifacts on disk. Each capture is an artifact file
// plus a metadata sidecar, both named by the capture ID.
type Store struct {
	dir string
	mu  sync.RWMutex
}

// NewStore creates a Store and ensures the directory exists.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("capture store: mkdir %s: %w", dir, err)
	}
	return &Store{dir: dir}, nil
}

// Dir returns the store's root directory.
func (s *Store) Dir() string { return s.dir }

func (s *Store) validateID(id string) error {
	if !idRe.MatchString(id) {
		return fmt.Errorf("%w: %q", ErrInvalidID, id)
	}
	return nil
}

// ArtifactPath returns where the artifact for the given ID and extension
// lives. The extension includes the leading dot.
func (s *Store) ArtifactPath(id, ext string) string {
	return filepath.Join(s.dir, id+ext)
}

// Commit moves the finished artifact into the store and writes the metadata
// sidecar. On sidecar failure the artifact is cleaned up so the store never
// holds an orphan.
func (s *Store) Commit(meta CaptureMeta, artifactPath string) error {
	if err := s.validateID(meta.ID); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	dst := filepath.Join(s.dir, meta.ID+meta.Ext)
	if artifactPath != dst {
		if err := moveFile(artifactPath, dst); err != nil {
			return fmt.Errorf("capture store: move artifact: %w", err)
		}
	}

	data, err := json.MarshalIndent(meta, "", "  ")
	if err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("capture store: marshal meta: %w", err)
	}
	jsonPath := filepath.Join(s.dir, meta.ID+".json")
	if err := os.WriteFile(jsonPath, data, 0o644); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("capture store: write meta: %w", err)
	}
	return nil
}

// Get reads capture metadata by ID.
func (s *Store) Get(id string) (CaptureMeta, error) {
	if err := s.validateID(id); err != nil {
		return CaptureMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	jsonPath := filepath.Join(s.dir, id+".json")
	data, err := os.ReadFile(jsonPath)
	if err != nil {
		if os.IsNotExist(err) {
			return CaptureMeta{}, fmt.Errorf("%w: %s", ErrNotFound, id)
		}
		return CaptureMeta{}, fmt.Errorf("capture store: read meta: %w", err)
	}

	var meta CaptureMeta
	if err := json.Unmarshal(data, &meta); err != nil {
		return CaptureMeta{}, fmt.Errorf("capture store: unmarshal meta: %w", err)
	}
	return meta, nil
}

// List returns all captures sorted by creation time (newest first).
func (s *Store) List() ([]CaptureMeta, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(s.dir, "*.json"))
	if err != nil {
		return nil, fmt.Errorf("capture store: glob: %w", err)
	}

	metas := make([]CaptureMeta, 0, len(matches))
	for _, path := range matches {
		data, err := os.ReadFile(path)
		if err != nil {
			continue
		}
		var meta CaptureMeta
		if err := json.Unmarshal(data, &meta); err != nil {
			continue
		}
		metas = append(metas, meta)
	}

	sort.Slice(metas, func(i, j int) bool {
		return metas[i].CreatedAt.After(metas[j].CreatedAt)
	})

	return metas, nil
}

// ReadArtifact reads the raw artifact bytes and returns its metadata.
func (s *Store) ReadArtifact(id string) ([]byte, CaptureMeta, error) {
	meta, err := s.Get(id)
	if err != nil {
		return nil, CaptureMeta{}, err
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	artPath := filepath.Join(s.dir, id+meta.Ext)
	data, err := os.ReadFile(artPath)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, CaptureMeta{}, fmt.Errorf("%w: artifact %s", ErrNotFound, id)
		}
		return nil, CaptureMeta{}, fmt.Errorf("capture store: read artifact: %w", err)
	}
	return data, meta, nil
}

// Delete removes both the artifact and metadata files.
func (s *Store) Delete(id string) error {
	meta, err := s.Get(id)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	artPath := filepath.Join(s.dir, id+meta.Ext)
	jsonPath := filepath.Join(s.dir, id+".json")

	if err := os.Remove(artPath); err != nil {
		slog.Debug("capture artifact cleanup failed", "id", id, "error", err)
	}
	if err := os.Remove(jsonPath); err != nil {
		slog.Debug("capture meta cleanup failed", "id", id, "error", err)
	}
	return nil
}

// moveFile renames src to dst, falling back to copy+remove when the two
// paths live on different filesystems.
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer func() { _ = in.Close() }()

	out, err := os.OpenFile(dst, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return err
	}
	if err := out.Close(); err != nil {
		return err
	}
	return os.Remove(src)
}
