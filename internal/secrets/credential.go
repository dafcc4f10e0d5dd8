package secrets

import (
	"errors"
	"fmt"
	"os"
	"strings"
)

// YouTubeKeyName is the fixed key the API credential is stored under.
const YouTubeKeyName = "YOUTUBE_API_KEY"

var (
	ErrNoCredential    = errors.New("no API key stored")
	ErrEmptyCredential = errors.New("API key is empty")
)

// CredentialStore persists a single API key, encrypted, in a .env file.
// The environment variable of the same name takes precedence over the file.
type CredentialStore struct {
	name       string
	dotenvPath string
	keyPath    string
}

// NewCredentialStore returns a store for the YouTube API key.
func NewCredentialStore(dotenvPath, keyPath string) *CredentialStore {
	return &CredentialStore{
		name:       YouTubeKeyName,
		dotenvPath: dotenvPath,
		keyPath:    keyPath,
	}
}

// Get returns the plaintext key, or ErrNoCredential.
func (s *CredentialStore) Get() (string, error) {
	v := os.Getenv(s.name)
	if v == "" {
		var err error
		if v, err = GetEntry(s.dotenvPath, s.name); err != nil {
			return "", err
		}
	}
	if v == "" {
		return "", ErrNoCredential
	}
	if !IsSealed(v) {
		return v, nil
	}

	kr, err := LoadKeyring(s.keyPath)
	if err != nil {
		return "", err
	}
	plain, err := kr.Open(v)
	if err != nil {
		return "", fmt.Errorf("decrypt %s: %w", s.name, err)
	}
	return plain, nil
}

// Has reports whether a key is available.
func (s *CredentialStore) Has() bool {
	_, err := s.Get()
	return err == nil
}

// Set encrypts and stores the key, creating the age identity on first use.
func (s *CredentialStore) Set(value string) error {
	value = strings.TrimSpace(value)
	if value == "" {
		return ErrEmptyCredential
	}

	if _, err := EnsureIdentity(s.keyPath); err != nil {
		return err
	}
	kr, err := LoadKeyring(s.keyPath)
	if err != nil {
		return err
	}
	blob, err := kr.Seal(value)
	if err != nil {
		return err
	}
	if err := SetEntry(s.dotenvPath, s.name, blob); err != nil {
		return fmt.Errorf("store %s: %w", s.name, err)
	}
	return os.Setenv(s.name, blob)
}

// Clear removes the key from the file and the process environment.
func (s *CredentialStore) Clear() error {
	if err := RemoveEntry(s.dotenvPath, s.name); err != nil {
		return fmt.Errorf("remove %s: %w", s.name, err)
	}
	return os.Unsetenv(s.name)
}

// Mask hides all but the edges of a key for display.
func Mask(key string) string {
	if len(key) <= 8 {
		return strings.Repeat("*", len(key))
	}
	return key[:4] + strings.Repeat("*", len(key)-8) + key[len(key)-4:]
}
