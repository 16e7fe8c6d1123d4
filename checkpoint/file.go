package checkpoint

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/bytedance/sonic"
)

const (
	filePrefix = "checkpoint_"
	fileSuffix = ".json"
)

// FileStore persists one JSON file per session under a directory. Writes go
// through a temp file, fsync, and rename so a crash never leaves a partial
// record in place of a good one.
type FileStore struct {
	dir string
}

// NewFileStore creates the directory if needed.
func NewFileStore(dir string) (*FileStore, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create checkpoint directory: %w", err)
	}
	return &FileStore{dir: dir}, nil
}

func (s *FileStore) path(id string) (string, error) {
	if id == "" || id != filepath.Base(id) || strings.HasPrefix(id, ".") {
		return "", fmt.Errorf("invalid session id %q", id)
	}
	return filepath.Join(s.dir, filePrefix+id+fileSuffix), nil
}

func (s *FileStore) Save(ctx context.Context, id string, rec *Record) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	rec.Metadata = Metadata{SavedAt: time.Now(), SessionID: id, Version: Version}

	data, err := sonic.Marshal(rec)
	if err != nil {
		return fmt.Errorf("marshal checkpoint: %w", err)
	}

	tmp, err := os.CreateTemp(s.dir, filePrefix+"*.tmp")
	if err != nil {
		return fmt.Errorf("create temp checkpoint: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("write checkpoint: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync checkpoint: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close checkpoint: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("replace checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Load(ctx context.Context, id string) (*Record, error) {
	path, err := s.path(id)
	if err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		slog.Warn("checkpoint unreadable, treating as absent", "session_id", id, "error", err)
		return nil, nil
	}
	var rec Record
	if err := sonic.Unmarshal(data, &rec); err != nil {
		slog.Warn("checkpoint malformed, treating as absent", "session_id", id, "error", err)
		return nil, nil
	}
	if rec.Metadata.Version != Version {
		slog.Warn("checkpoint version mismatch, treating as absent",
			"session_id", id, "version", rec.Metadata.Version, "expected", Version)
		return nil, nil
	}
	return &rec, nil
}

func (s *FileStore) Delete(ctx context.Context, id string) error {
	path, err := s.path(id)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("delete checkpoint: %w", err)
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, id string) bool {
	path, err := s.path(id)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *FileStore) List(ctx context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("list checkpoints: %w", err)
	}
	var ids []string
	for _, e := range entries {
		name := e.Name()
		if strings.HasPrefix(name, filePrefix) && strings.HasSuffix(name, fileSuffix) {
			ids = append(ids, strings.TrimSuffix(strings.TrimPrefix(name, filePrefix), fileSuffix))
		}
	}
	return ids, nil
}

var _ Store = (*FileStore)(nil)
