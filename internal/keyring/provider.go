// Package keyring supplies the symmetric key that protects the task store.
//
// Two key sources exist and are selected by explicit configuration, never
// inferred from which files happen to be present:
//
//   - FileProvider generates a key on first use and persists it to a key
//     file with owner-only permissions.
//   - EnvProvider requires the key in an environment variable and treats a
//     missing binding as fatal, because silently generating a replacement
//     key would orphan all previously encrypted data.
//
// A store instance uses exactly one provider for its whole lifetime.
package keyring

import (
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// KeySize is the symmetric key length in bytes (AES-256).
const KeySize = 32

// DefaultEnvVar is the environment variable read by EnvProvider when no
// explicit variable name is configured.
const DefaultEnvVar = "ENCRYPTION_KEY"

// ErrKeyNotSet is returned by EnvProvider when the configured environment
// variable is absent or empty.
var ErrKeyNotSet = errors.New("encryption key environment variable not set")

// Provider supplies the symmetric key material for the store.
//
// Key must be deterministic within a process run: repeated calls return the
// same bytes.
type Provider interface {
	// Key returns the raw KeySize-byte symmetric key.
	Key() ([]byte, error)
}

// FileProvider loads the key from a key file, generating and persisting a
// new random key on first use.
type FileProvider struct {
	// KeyFile is the absolute path to the base64-encoded key file.
	KeyFile string

	cached []byte
}

// NewFileProvider creates a FileProvider for the given key file path.
func NewFileProvider(keyFile string) *FileProvider {
	return &FileProvider{KeyFile: keyFile}
}

// Key returns the key from the key file, creating the file with a fresh
// random key if it does not exist yet.
//
// The key file holds the base64 encoding of KeySize random bytes and is
// created with 0600 permissions. The decoded key is cached so the first
// call fixes the key for the rest of the process run.
func (p *FileProvider) Key() ([]byte, error) {
	if p.cached != nil {
		return p.cached, nil
	}

	encoded, err := os.ReadFile(p.KeyFile)
	if errors.Is(err, os.ErrNotExist) {
		key, genErr := p.generate()
		if genErr != nil {
			return nil, genErr
		}
		p.cached = key
		return key, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read key file: %w", err)
	}

	key, err := decodeKey(string(encoded))
	if err != nil {
		return nil, fmt.Errorf("key file %s: %w", p.KeyFile, err)
	}

	p.cached = key
	return key, nil
}

// generate creates a fresh random key and persists it to the key file.
//
// The file is created exclusively with 0600 permissions so the key is never
// readable by other users, and never silently overwrites an existing file.
func (p *FileProvider) generate() ([]byte, error) {
	key := make([]byte, KeySize)
	if _, err := rand.Read(key); err != nil {
		return nil, fmt.Errorf("generate key: %w", err)
	}

	if dir := filepath.Dir(p.KeyFile); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("create key directory: %w", err)
		}
	}

	f, err := os.OpenFile(p.KeyFile, os.O_WRONLY|os.O_CREATE|os.O_EXCL, 0o600)
	if err != nil {
		return nil, fmt.Errorf("create key file: %w", err)
	}

	_, writeErr := f.WriteString(base64.StdEncoding.EncodeToString(key))
	closeErr := f.Close()
	if writeErr != nil {
		return nil, fmt.Errorf("write key file: %w", writeErr)
	}
	if closeErr != nil {
		return nil, fmt.Errorf("close key file: %w", closeErr)
	}

	return key, nil
}

// EnvProvider reads the key from an environment variable.
//
// Unlike FileProvider there is no implicit generation: a missing binding is
// a configuration error the caller must surface, not auto-repair.
type EnvProvider struct {
	// Var is the environment variable name. Empty means DefaultEnvVar.
	Var string
}

// NewEnvProvider creates an EnvProvider reading the given variable name.
// An empty name selects DefaultEnvVar.
func NewEnvProvider(name string) *EnvProvider {
	return &EnvProvider{Var: name}
}

// Key returns the key decoded from the environment variable.
//
// Returns an error wrapping ErrKeyNotSet when the variable is absent or
// empty, and a decode error when it holds anything other than the base64
// encoding of KeySize bytes.
func (p *EnvProvider) Key() ([]byte, error) {
	name := p.Var
	if name == "" {
		name = DefaultEnvVar
	}

	encoded := strings.TrimSpace(os.Getenv(name))
	if encoded == "" {
		return nil, fmt.Errorf("%s: %w", name, ErrKeyNotSet)
	}

	key, err := decodeKey(encoded)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", name, err)
	}

	return key, nil
}

// decodeKey decodes a base64 key string and validates its length.
func decodeKey(encoded string) ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(encoded))
	if err != nil {
		return nil, fmt.Errorf("invalid base64 key: %w", err)
	}
	if len(key) != KeySize {
		return nil, fmt.Errorf("invalid key length: %d bytes (expected %d)", len(key), KeySize)
	}
	return key, nil
}
