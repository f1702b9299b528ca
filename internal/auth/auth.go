package auth

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/models"
	"github.com/NorbeyRuales/KAIRO-CLIENT/internal/storage"
)

type SessionStore interface {
	SaveSession(session *models.Session) error
	LoadSession() (*models.Session, error)
	DeleteSession() error
}

// Session owns the bearer token for the lifetime of the process. It is
// created once at startup, initialized from the store, and cleared on logout.
type Session struct {
	mu        sync.RWMutex
	store     SessionStore
	encryptor *Encryptor
	token     string
	email     string
}

// NewSession encrypts the persisted token when encryptionKey is non-nil.
func NewSession(store SessionStore, encryptionKey []byte) (*Session, error) {
	s := &Session{store: store}
	if encryptionKey != nil {
		encryptor, err := NewEncryptor(encryptionKey)
		if err != nil {
			return nil, fmt.Errorf("failed to create encryptor: %w", err)
		}
		s.encryptor = encryptor
	}
	return s, nil
}

// Init loads a previously stored session. A missing session is not an error.
func (s *Session) Init() error {
	stored, err := s.store.LoadSession()
	if errors.Is(err, storage.ErrNoSession) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to load session: %w", err)
	}

	token := stored.Token
	if stored.Encrypted {
		if s.encryptor == nil {
			return fmt.Errorf("stored session is encrypted but no encryption key is configured")
		}
		token, err = s.encryptor.Decrypt(stored.Token)
		if err != nil {
			return fmt.Errorf("failed to decrypt token: %w", err)
		}
	}

	s.mu.Lock()
	s.token = token
	s.email = stored.Email
	s.mu.Unlock()
	return nil
}

func (s *Session) Token() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.token
}

func (s *Session) Email() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.email
}

func (s *Session) Authenticated() bool {
	return s.Token() != ""
}

// SetToken persists the token; the in-memory value only changes once the
// store accepted it.
func (s *Session) SetToken(token, email string) error {
	if token == "" {
		return errors.New("empty token")
	}

	now := time.Now()
	record := &models.Session{
		Token:     token,
		Email:     email,
		CreatedAt: now,
		LastUsed:  now,
	}

	if s.encryptor != nil {
		sealed, err := s.encryptor.Encrypt(token)
		if err != nil {
			return fmt.Errorf("failed to encrypt token: %w", err)
		}
		record.Token = sealed
		record.Encrypted = true
	}

	if err := s.store.SaveSession(record); err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}

	s.mu.Lock()
	s.token = token
	s.email = email
	s.mu.Unlock()
	return nil
}

// Clear forgets the token even if removing the stored copy fails.
func (s *Session) Clear() error {
	s.mu.Lock()
	s.token = ""
	s.email = ""
	s.mu.Unlock()

	if err := s.store.DeleteSession(); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
