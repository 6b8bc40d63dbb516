package store

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/rickgao/stockfeed/internal/model"
)

// Snapshotter persists and restores the full directory snapshot.
type Snapshotter interface {
	// Load returns the last saved snapshot, or nil when none exists.
	Load(ctx context.Context) ([]model.UserRecord, error)

	// Save overwrites the snapshot with the given records.
	Save(ctx context.Context, records []model.UserRecord) error
}

// FileSnapshotter stores the directory as a pretty-printed JSON array of
// user records, one file rewritten in full on every save.
type FileSnapshotter struct {
	path   string
	logger *slog.Logger
}

// NewFileSnapshotter creates a file-backed snapshotter at the given path.
func NewFileSnapshotter(path string, logger *slog.Logger) *FileSnapshotter {
	if logger == nil {
		logger = slog.Default()
	}
	return &FileSnapshotter{path: path, logger: logger}
}

// Load reads and parses the snapshot file. A missing file yields an empty
// snapshot; a parse failure is an error the caller logs and absorbs.
func (f *FileSnapshotter) Load(ctx context.Context) ([]model.UserRecord, error) {
	data, err := os.ReadFile(f.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot file: %w", err)
	}

	var records []model.UserRecord
	if err := json.Unmarshal(data, &records); err != nil {
		return nil, fmt.Errorf("parse snapshot file: %w", err)
	}

	return records, nil
}

// Save writes the records atomically: a temp file in the same directory,
// then a rename over the target, so a crash mid-write never corrupts the
// previous snapshot.
func (f *FileSnapshotter) Save(ctx context.Context, records []model.UserRecord) error {
	if records == nil {
		records = []model.UserRecord{}
	}

	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return fmt.Errorf("encode snapshot: %w", err)
	}
	data = append(data, '\n')

	dir := filepath.Dir(f.path)
	tmp, err := os.CreateTemp(dir, filepath.Base(f.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, f.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace snapshot: %w", err)
	}

	return nil
}
