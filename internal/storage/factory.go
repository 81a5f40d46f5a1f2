package storage

import (
	"fmt"
	"log/slog"

	"github.com/taskvault/taskvault/internal/config"
	"github.com/taskvault/taskvault/internal/keyring"
)

// NewBlobStore returns the ciphertext backend selected by cfg.Backend.
//
// cfg is expected to be resolved and validated (see config.Load); unknown
// backend names are still rejected here so hand-built configs fail fast.
func NewBlobStore(cfg config.Config) (BlobStore, error) {
	switch cfg.Backend {
	case config.BackendFile:
		return NewFileBackend(cfg.StorePath), nil

	case config.BackendSQLite:
		backend, err := NewSQLiteBackend(cfg.SQLitePath)
		if err != nil {
			return nil, fmt.Errorf("failed to create sqlite backend: %w", err)
		}
		return backend, nil

	case config.BackendPostgres:
		backend, err := NewPostgresBackend(cfg.PostgresURL)
		if err != nil {
			return nil, fmt.Errorf("failed to create postgres backend: %w", err)
		}
		return backend, nil

	default:
		return nil, fmt.Errorf("unknown storage backend: %q. Expected 'file', 'sqlite' or 'postgres'", cfg.Backend)
	}
}

// newKeyProvider returns the key provider selected by cfg.KeySource.
func newKeyProvider(cfg config.Config) (keyring.Provider, error) {
	switch cfg.KeySource {
	case config.KeySourceFile:
		return keyring.NewFileProvider(cfg.KeyFile), nil
	case config.KeySourceEnv:
		return keyring.NewEnvProvider(cfg.KeyEnvVar), nil
	default:
		return nil, fmt.Errorf("unknown key source: %q. Expected 'file' or 'env'", cfg.KeySource)
	}
}

// NewRecordStoreFromConfig assembles the full store stack from cfg: blob
// backend, key provider, backup manager and integrity policy.
func NewRecordStoreFromConfig(cfg config.Config, logger *slog.Logger) (*RecordStore, error) {
	blobs, err := NewBlobStore(cfg)
	if err != nil {
		return nil, err
	}

	keys, err := newKeyProvider(cfg)
	if err != nil {
		return nil, err
	}

	return NewRecordStore(StoreOptions{
		Blobs:     blobs,
		Keys:      keys,
		Backups:   NewBackupManager(BackupPolicy(cfg.BackupPolicy)),
		Integrity: IntegrityMode(cfg.IntegrityMode),
		Logger:    logger,
	})
}
