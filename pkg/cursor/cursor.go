// Package cursor persists search checkpoints on local disk.
//
// A checkpoint records how far a named search has progressed: the
// timestamp of the newest record delivered plus the ids of every
// record sharing that exact timestamp. Storage is scoped per
// authenticating client id and per domain ("alerts", "file_events"),
// so checkpoints from different principals or record types never
// collide. One run owns a checkpoint name at a time; concurrent runs
// against the same name are unsupported.
package cursor

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"

	"dlpctl/pkg/logger"
)

// ErrInvalidName is returned for checkpoint names that cannot be used
// as file names.
var ErrInvalidName = errors.New("cursor: invalid checkpoint name")

// CorruptError indicates the persisted state for a checkpoint could
// not be decoded. It is surfaced rather than silently reset, because a
// reset would re-deliver everything since the beginning of the search
// window.
type CorruptError struct {
	Path string
	Err  error
}

func (e *CorruptError) Error() string {
	return fmt.Sprintf("cursor: corrupt checkpoint state at %s: %v", e.Path, e.Err)
}

func (e *CorruptError) Unwrap() error { return e.Err }

// state is the persisted layout for one checkpoint.
type state struct {
	LastTimestamp float64  `json:"last_timestamp"`
	SeenIDs       []string `json:"seen_ids"`
}

// Store reads and writes checkpoints for one (client id, domain) pair.
type Store struct {
	dir    string
	logger logger.Logger
}

// NewStore opens the checkpoint store for the given client id and
// domain, creating the backing directory if needed.
func NewStore(clientID, domain string) (*Store, error) {
	dataDir, err := dataDirectory()
	if err != nil {
		return nil, fmt.Errorf("locating data directory: %w", err)
	}

	dir := filepath.Join(dataDir, "checkpoints", clientID, domain)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return nil, fmt.Errorf("creating checkpoint directory: %w", err)
	}

	return &Store{dir: dir, logger: logger.GetLogger()}, nil
}

// Get returns the last persisted timestamp for the named checkpoint.
// The second return value is false if the checkpoint has never been
// advanced.
func (s *Store) Get(name string) (float64, bool, error) {
	st, ok, err := s.load(name)
	if err != nil || !ok {
		return 0, false, err
	}
	return st.LastTimestamp, true, nil
}

// SeenIDs returns the ids of the records delivered at exactly the
// checkpoint's last timestamp. Empty for an unused checkpoint.
func (s *Store) SeenIDs(name string) ([]string, error) {
	st, ok, err := s.load(name)
	if err != nil || !ok {
		return nil, err
	}
	return st.SeenIDs, nil
}

// Advance atomically replaces the checkpoint with the given timestamp
// and id set. Full replace is deliberate: the id set is only
// meaningful for records at exactly the stored timestamp.
func (s *Store) Advance(name string, timestamp float64, ids []string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}

	data, err := json.Marshal(state{LastTimestamp: timestamp, SeenIDs: ids})
	if err != nil {
		return fmt.Errorf("encoding checkpoint state: %w", err)
	}

	// Write-then-rename so a crash mid-write never leaves a torn file.
	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, 0600)
	if err != nil {
		return fmt.Errorf("creating checkpoint file: %w", err)
	}
	if _, err := f.Write(data); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("writing checkpoint file: %w", err)
	}
	if err := f.Sync(); err != nil {
		f.Close()
		os.Remove(tmp)
		return fmt.Errorf("syncing checkpoint file: %w", err)
	}
	if err := f.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("closing checkpoint file: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("replacing checkpoint file: %w", err)
	}

	s.logger.DebugWithFields("checkpoint advanced", map[string]interface{}{
		"name":      name,
		"timestamp": timestamp,
		"seen_ids":  len(ids),
	})
	return nil
}

// Delete removes all state for the named checkpoint. Deleting a
// checkpoint that does not exist is a no-op.
func (s *Store) Delete(name string) error {
	path, err := s.path(name)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("deleting checkpoint: %w", err)
	}
	s.logger.WithField("name", name).Debug("checkpoint deleted")
	return nil
}

// Exists reports whether the named checkpoint has persisted state.
func (s *Store) Exists(name string) bool {
	path, err := s.path(name)
	if err != nil {
		return false
	}
	_, err = os.Stat(path)
	return err == nil
}

func (s *Store) load(name string) (state, bool, error) {
	path, err := s.path(name)
	if err != nil {
		return state{}, false, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return state{}, false, nil
		}
		return state{}, false, fmt.Errorf("reading checkpoint file: %w", err)
	}

	var st state
	if err := json.Unmarshal(data, &st); err != nil {
		return state{}, false, &CorruptError{Path: path, Err: err}
	}
	return st, true, nil
}

func (s *Store) path(name string) (string, error) {
	if name == "" || strings.ContainsAny(name, `/\`) || name == "." || name == ".." {
		return "", fmt.Errorf("%w: %q", ErrInvalidName, name)
	}
	return filepath.Join(s.dir, name+".json"), nil
}

// dataDirectory returns the platform data directory for checkpoint
// storage.
func dataDirectory() (string, error) {
	var dataDir string

	switch runtime.GOOS {
	case "linux":
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "dlpctl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "dlpctl")
		}
	case "darwin":
		home, err := os.UserHomeDir()
		if err != nil {
			return "", err
		}
		dataDir = filepath.Join(home, "Library", "Application Support", "dlpctl")
	case "windows":
		appData := os.Getenv("APPDATA")
		if appData == "" {
			return "", fmt.Errorf("APPDATA environment variable not set")
		}
		dataDir = filepath.Join(appData, "dlpctl")
	default:
		if xdgDataHome := os.Getenv("XDG_DATA_HOME"); xdgDataHome != "" {
			dataDir = filepath.Join(xdgDataHome, "dlpctl")
		} else {
			home, err := os.UserHomeDir()
			if err != nil {
				return "", err
			}
			dataDir = filepath.Join(home, ".local", "share", "dlpctl")
		}
	}

	if err := os.MkdirAll(dataDir, 0700); err != nil {
		return "", fmt.Errorf("creating data directory: %w", err)
	}
	return dataDir, nil
}
