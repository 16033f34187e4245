package resume

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/sirupsen/logrus"
)

// ErrNoRecord indicates no resume state exists for the requested file.
var ErrNoRecord = errors.New("no resume record")

// Store reads and writes resume records in a single directory. Safe for
// concurrent use within one process; records are written atomically via
// a temporary file and rename.
type Store struct {
	mu           sync.Mutex
	dir          string
	timeProvider TimeProvider
}

// DefaultDir returns the per-user resume state directory.
func DefaultDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to resolve home directory: %w", err)
	}
	return filepath.Join(home, ".ferry", "resume"), nil
}

// NewStore creates a store rooted at dir, creating the directory when
// needed.
func NewStore(dir string) (*Store, error) {
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create resume directory: %w", err)
	}
	return &Store{dir: dir, timeProvider: RealTimeProvider{}}, nil
}

// SetTimeProvider replaces the store's time source. A nil provider
// restores system time.
func (s *Store) SetTimeProvider(tp TimeProvider) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if tp == nil {
		tp = RealTimeProvider{}
	}
	s.timeProvider = tp
}

// Save writes or overwrites the record for rec.FilePath, stamping
// UpdatedAt.
func (s *Store) Save(rec *Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.recordPath(rec.FilePath)
	if err != nil {
		return err
	}
	rec.UpdatedAt = s.timeProvider.Now()

	data, err := json.MarshalIndent(rec, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode resume record: %w", err)
	}

	// Atomic write using temporary file + rename
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write resume record: %w", err)
	}
	if err := os.Rename(tmp, path); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to commit resume record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function":          "Save",
		"file":              rec.FilePath,
		"bytes_transferred": rec.BytesTransferred,
		"total_size":        rec.TotalSize,
	}).Debug("Resume record saved")

	return nil
}

// Load returns the record for filePath, or ErrNoRecord when none exists.
func (s *Store) Load(filePath string) (*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.recordPath(filePath)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("%w: %s", ErrNoRecord, filePath)
		}
		return nil, fmt.Errorf("failed to read resume record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to decode resume record: %w", err)
	}
	return &rec, nil
}

// Delete removes the record for filePath. Deleting an absent record is
// not an error.
func (s *Store) Delete(filePath string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	path, err := s.recordPath(filePath)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete resume record: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"function": "Delete",
		"file":     filePath,
	}).Debug("Resume record deleted")

	return nil
}

// List returns every readable record, newest first. Unreadable or
// corrupt record files are skipped with a warning so one bad file never
// hides the rest.
func (s *Store) List() ([]*Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(s.dir)
	if err != nil {
		return nil, fmt.Errorf("failed to read resume directory: %w", err)
	}

	var records []*Record
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".json" {
			continue
		}

		data, err := os.ReadFile(filepath.Join(s.dir, entry.Name()))
		if err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "List",
				"record":   entry.Name(),
				"error":    err.Error(),
			}).Warn("Skipping unreadable resume record")
			continue
		}

		var rec Record
		if err := json.Unmarshal(data, &rec); err != nil {
			logrus.WithFields(logrus.Fields{
				"function": "List",
				"record":   entry.Name(),
				"error":    err.Error(),
			}).Warn("Skipping corrupt resume record")
			continue
		}
		records = append(records, &rec)
	}

	sort.Slice(records, func(i, j int) bool {
		return records[i].UpdatedAt.After(records[j].UpdatedAt)
	})
	return records, nil
}

// recordPath maps a source file path to its record file. The key is the
// SHA-256 of the absolute path, so distinct files never collide and the
// record survives renames of the state directory.
func (s *Store) recordPath(filePath string) (string, error) {
	abs, err := filepath.Abs(filePath)
	if err != nil {
		return "", fmt.Errorf("failed to resolve absolute path: %w", err)
	}
	sum := sha256.Sum256([]byte(abs))
	return filepath.Join(s.dir, hex.EncodeToString(sum[:])+".json"), nil
}
