// Package secrets keeps the YouTube API key encrypted at rest with age.
package secrets

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"filippo.io/age"

	"github.com/dohr-michael/moodstream/internal/config"
)

const (
	sealPrefix = "ENC[age:"
	sealSuffix = "]"
)

var (
	// ErrNoIdentity means the key file is missing, so sealed values cannot be opened.
	ErrNoIdentity = errors.New("age identity not found")
	// ErrNotSealed is returned by Keyring.Open for plaintext input.
	ErrNotSealed = errors.New("value is not an ENC[age:...] blob")
)

// KeyPath returns the default age key file path: $MOODSTREAM_PATH/.age-key.
func KeyPath() string {
	return filepath.Join(config.MoodstreamPath(), ".age-key")
}

// EnsureIdentity writes a new X25519 identity to path (0o600) unless the file
// already exists. It reports whether a key was created.
func EnsureIdentity(path string) (bool, error) {
	if _, err := os.Stat(path); err == nil {
		return false, nil
	}

	identity, err := age.GenerateX25519Identity()
	if err != nil {
		return false, fmt.Errorf("generate age identity: %w", err)
	}
	content := fmt.Sprintf("# moodstream API key identity\n# public key: %s\n%s\n",
		identity.Recipient(), identity)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return false, fmt.Errorf("create key directory: %w", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		return false, fmt.Errorf("write age key: %w", err)
	}
	return true, nil
}

// Keyring seals and opens values with a single age identity.
type Keyring struct {
	identity *age.X25519Identity
}

// LoadKeyring reads the identity stored at path.
func LoadKeyring(path string) (*Keyring, error) {
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("%w: %s", ErrNoIdentity, path)
	}
	if err != nil {
		return nil, fmt.Errorf("open age key: %w", err)
	}
	defer f.Close()

	ids, err := age.ParseIdentities(f)
	if err != nil {
		return nil, fmt.Errorf("parse age key %s: %w", path, err)
	}
	for _, id := range ids {
		if x, ok := id.(*age.X25519Identity); ok {
			return &Keyring{identity: x}, nil
		}
	}
	return nil, fmt.Errorf("%w: no X25519 identity in %s", ErrNoIdentity, path)
}

// Recipient returns the public key values are sealed to.
func (k *Keyring) Recipient() string {
	return k.identity.Recipient().String()
}

// Seal encrypts plaintext into an ENC[age:...] blob.
func (k *Keyring) Seal(plaintext string) (string, error) {
	var buf bytes.Buffer
	w, err := age.Encrypt(&buf, k.identity.Recipient())
	if err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if _, err := io.WriteString(w, plaintext); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	if err := w.Close(); err != nil {
		return "", fmt.Errorf("age encrypt: %w", err)
	}
	return sealPrefix + base64.StdEncoding.EncodeToString(buf.Bytes()) + sealSuffix, nil
}

// Open decrypts a blob produced by Seal.
func (k *Keyring) Open(blob string) (string, error) {
	if !IsSealed(blob) {
		return "", ErrNotSealed
	}
	ciphertext, err := base64.StdEncoding.DecodeString(blob[len(sealPrefix) : len(blob)-len(sealSuffix)])
	if err != nil {
		return "", fmt.Errorf("decode sealed value: %w", err)
	}

	r, err := age.Decrypt(bytes.NewReader(ciphertext), k.identity)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	plain, err := io.ReadAll(r)
	if err != nil {
		return "", fmt.Errorf("age decrypt: %w", err)
	}
	return string(plain), nil
}

// IsSealed reports whether s looks like an ENC[age:...] blob.
func IsSealed(s string) bool {
	return strings.HasPrefix(s, sealPrefix) && strings.HasSuffix(s, sealSuffix)
}
