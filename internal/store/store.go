package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"

	"github.com/guhdong/threadsync/api/types"
)

// Store persists the tweet database as a single JSON document. Saves
// are atomic: the document is written to a temporary file in the same
// directory and renamed over the target, so a crash mid-write leaves
// the previous version intact.
type Store struct {
	path string
}

func New(path string) *Store {
	return &Store{path: path}
}

// Path returns the location of the state file.
func (s *Store) Path() string {
	return s.path
}

// Load reads the current database. A missing file is a normal first
// run and yields an empty database.
func (s *Store) Load() (*types.Database, error) {
	data, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		logrus.Debugf("No state file at %s, starting empty", s.path)
		return &types.Database{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("error reading state file: %w", err)
	}
	db := &types.Database{}
	if err := json.Unmarshal(data, db); err != nil {
		return nil, fmt.Errorf("error parsing state file %s: %w", s.path, err)
	}
	logrus.Debugf("Loaded %d users, %d tweets, %d errors from %s",
		len(db.Users), len(db.Tweets), len(db.Errors), s.path)
	return db, nil
}

// Save writes the database atomically. It is called at every
// checkpoint, tens of times per run.
func (s *Store) Save(db *types.Database) error {
	dir := filepath.Dir(s.path)
	tmp, err := os.CreateTemp(dir, "threadsync_db*")
	if err != nil {
		return fmt.Errorf("error creating temp file in %s: %w", dir, err)
	}
	enc := json.NewEncoder(tmp)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	if err := enc.Encode(db); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return fmt.Errorf("error serializing database: %w", err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error closing temp file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.path); err != nil {
		os.Remove(tmp.Name())
		return fmt.Errorf("error replacing state file: %w", err)
	}
	return nil
}
