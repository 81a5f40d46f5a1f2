package storage

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// FileBackend implements BlobStore on the local filesystem.
//
// Layout, relative to the store file (default "tasks.json"):
//   - ciphertext blob:   <store>
//   - integrity digest:  <name>_hash.sha256 sibling file
//   - rolling backup:    <store>.bak
//   - archival backups:  <backup dir>/<name>_<label>.json
//
// All writes go through a temporary file in the same directory followed by
// an atomic rename, and every artifact is created with 0600 permissions
// before any content reaches disk.
type FileBackend struct {
	// StorePath is the absolute path to the ciphertext store file.
	StorePath string

	// DigestPath is the absolute path to the integrity digest file.
	DigestPath string

	// BackupDir is the directory holding archival snapshots.
	BackupDir string
}

// NewFileBackend creates a FileBackend for the given store file path, with
// the digest file and backup directory derived as siblings of the store.
func NewFileBackend(storePath string) *FileBackend {
	dir := filepath.Dir(storePath)
	name := strings.TrimSuffix(filepath.Base(storePath), filepath.Ext(storePath))

	return &FileBackend{
		StorePath:  storePath,
		DigestPath: filepath.Join(dir, name+"_hash.sha256"),
		BackupDir:  filepath.Join(dir, "backups"),
	}
}

// ReadBlob reads the ciphertext store file.
//
// A missing file reports exists=false; any other read failure is returned
// so the caller never mistakes an IO error for an empty store.
func (b *FileBackend) ReadBlob() ([]byte, bool, error) {
	data, err := os.ReadFile(b.StorePath)
	if errors.Is(err, os.ErrNotExist) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("read store file: %w", err)
	}
	return data, true, nil
}

// WriteBlob atomically replaces the ciphertext store file.
func (b *FileBackend) WriteBlob(data []byte) error {
	return writeFileAtomic(b.StorePath, data)
}

// ReadDigest reads the integrity digest file.
//
// A missing or empty digest file reports exists=false: integrity has not
// been established yet, which is not a failure.
func (b *FileBackend) ReadDigest() (string, bool, error) {
	data, err := os.ReadFile(b.DigestPath)
	if errors.Is(err, os.ErrNotExist) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("read digest file: %w", err)
	}

	digest := strings.TrimSpace(string(data))
	if digest == "" {
		return "", false, nil
	}
	return digest, true, nil
}

// WriteDigest atomically replaces the integrity digest file.
func (b *FileBackend) WriteDigest(digest string) error {
	return writeFileAtomic(b.DigestPath, []byte(digest+"\n"))
}

// Snapshot copies the current store file to the backup location for label.
//
// Returns taken=false without error when the store file does not exist yet.
func (b *FileBackend) Snapshot(label string) (bool, error) {
	data, err := os.ReadFile(b.StorePath)
	if errors.Is(err, os.ErrNotExist) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read store file for backup: %w", err)
	}

	target := b.StorePath + ".bak"
	if label != "" {
		if err := os.MkdirAll(b.BackupDir, 0o700); err != nil {
			return false, fmt.Errorf("create backup directory: %w", err)
		}
		name := strings.TrimSuffix(filepath.Base(b.StorePath), filepath.Ext(b.StorePath))
		target = filepath.Join(b.BackupDir, fmt.Sprintf("%s_%s.json", name, label))
	}

	if err := writeFileAtomic(target, data); err != nil {
		return false, fmt.Errorf("write backup: %w", err)
	}
	return true, nil
}

// writeFileAtomic writes data to path via a temporary file in the same
// directory and an atomic rename.
//
// The temporary file is created by os.CreateTemp with 0600 permissions, so
// there is no window where the content is readable by other users, and a
// crash mid-write leaves the previous file untouched.
func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return fmt.Errorf("create directory: %w", err)
	}

	tmpFile, err := os.CreateTemp(dir, "*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpPath := tmpFile.Name()

	_, writeErr := tmpFile.Write(data)
	closeErr := tmpFile.Close()

	if writeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("write temp file: %w", writeErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("close temp file: %w", closeErr)
	}

	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("rename temp file: %w", err)
	}

	return nil
}
