package storage

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
)

var ErrNoSession = errors.New("no stored session")

const sessionFile = "session.json"

// FileStore keeps the login session as a JSON file inside the data
// directory, readable only by the current user.
type FileStore struct {
	dataDir string
	mutex   sync.RWMutex
}

func NewFileStore(dataDir string) (*FileStore, error) {
	if err := os.MkdirAll(dataDir, 0o700); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	return &FileStore{
		dataDir: dataDir,
	}, nil
}

func (fs *FileStore) path() string {
	return filepath.Join(fs.dataDir, sessionFile)
}

func (fs *FileStore) SaveSession(session *models.Session) error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	data, err := json.MarshalIndent(session, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal session: %w", err)
	}

	tmp := fs.path() + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("failed to write session file: %w", err)
	}
	if err := os.Rename(tmp, fs.path()); err != nil {
		return fmt.Errorf("failed to replace session file: %w", err)
	}

	return nil
}

func (fs *FileStore) LoadSession() (*models.Session, error) {
	fs.mutex.RLock()
	defer fs.mutex.RUnlock()

	data, err := os.ReadFile(fs.path())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, ErrNoSession
		}
		return nil, fmt.Errorf("failed to read session file: %w", err)
	}

	var session models.Session
	if err := json.Unmarshal(data, &session); err != nil {
		return nil, fmt.Errorf("failed to unmarshal session: %w", err)
	}

	return &session, nil
}

// DeleteSession is a no-op when nothing is stored.
func (fs *FileStore) DeleteSession() error {
	fs.mutex.Lock()
	defer fs.mutex.Unlock()

	if err := os.Remove(fs.path()); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete session file: %w", err)
	}

	return nil
}
