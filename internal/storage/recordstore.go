package storage

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/taskvault/taskvault/internal/aesgcm"
	"github.com/taskvault/taskvault/internal/integrity"
	"github.com/taskvault/taskvault/internal/keyring"
)

// IntegrityMode fixes how Load reacts to an integrity digest mismatch.
type IntegrityMode string

const (
	// IntegrityEnforce fails the Load with ErrIntegrity and returns no
	// data. This is the default: returning anything on a failed check
	// silently discards the user's data path.
	IntegrityEnforce IntegrityMode = "enforce"

	// IntegrityWarn logs a warning and returns an empty collection,
	// matching the behavior of earlier versions of this tool. The warning
	// is always emitted; degrading is never silent.
	IntegrityWarn IntegrityMode = "warn"

	// IntegrityOff disables digest verification entirely. Distinct from a
	// missing digest on first run, which every mode treats as "integrity
	// unknown" and lets through.
	IntegrityOff IntegrityMode = "off"
)

// Valid reports whether m is a known integrity mode.
func (m IntegrityMode) Valid() bool {
	return m == IntegrityEnforce || m == IntegrityWarn || m == IntegrityOff
}

// StoreOptions configures a RecordStore. All dependencies are explicit so
// multiple independent stores can coexist and tests can inject an in-memory
// BlobStore.
type StoreOptions struct {
	// Blobs is the byte-level persistence backend. Required.
	Blobs BlobStore

	// Keys supplies the symmetric key. Required.
	Keys keyring.Provider

	// Backups takes the pre-write snapshot. Required.
	Backups *BackupManager

	// Integrity selects the mismatch policy. Empty means IntegrityEnforce.
	Integrity IntegrityMode

	// Logger receives operational events. Nil means slog.Default().
	Logger *slog.Logger
}

// RecordStore owns the encrypted task collection's on-disk lifecycle.
//
// Load and Save always materialize the whole collection; there are no
// partial reads or writes. Single concurrent process assumed: two processes
// sharing one store path would race on the blob and corrupt backups, and
// the store does not defend against that.
type RecordStore struct {
	blobs   BlobStore
	keys    keyring.Provider
	backups *BackupManager
	mode    IntegrityMode
	log     *slog.Logger
}

// NewRecordStore creates a RecordStore from opts.
func NewRecordStore(opts StoreOptions) (*RecordStore, error) {
	if opts.Blobs == nil {
		return nil, fmt.Errorf("store options: blob store is required")
	}
	if opts.Keys == nil {
		return nil, fmt.Errorf("store options: key provider is required")
	}
	if opts.Backups == nil {
		return nil, fmt.Errorf("store options: backup manager is required")
	}

	mode := opts.Integrity
	if mode == "" {
		mode = IntegrityEnforce
	}
	if !mode.Valid() {
		return nil, fmt.Errorf("store options: unknown integrity mode %q", mode)
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &RecordStore{
		blobs:   opts.Blobs,
		keys:    opts.Keys,
		backups: opts.Backups,
		mode:    mode,
		log:     logger,
	}, nil
}

// Load reads, decrypts and verifies the stored collection.
//
// When nothing has been stored yet, Load seeds an encrypted empty
// collection through the normal Save path (so the seed gets owner-only
// permissions and a digest) and returns it.
//
// Failure modes: key errors and decryption failures (aesgcm.ErrDecrypt)
// always surface. A digest mismatch follows the configured IntegrityMode:
// enforce returns ErrIntegrity, warn logs and returns an empty collection.
// A missing digest is "integrity unknown" and loads normally.
func (s *RecordStore) Load() (Collection, error) {
	ciphertext, exists, err := s.blobs.ReadBlob()
	if err != nil {
		return nil, fmt.Errorf("read store: %w", err)
	}

	if !exists {
		if err := s.Save(make(Collection, 0)); err != nil {
			return nil, fmt.Errorf("initialize store: %w", err)
		}
		s.log.Info("created empty encrypted store")
		return make(Collection, 0), nil
	}

	// A present-but-empty blob is an empty collection only while integrity
	// is unknown (historical plaintext format, no digest on record). Save
	// never produces an empty blob, so once a digest exists an empty blob
	// means the store was truncated after the fact and the mismatch policy
	// applies.
	if len(ciphertext) == 0 {
		if s.mode != IntegrityOff {
			_, recorded, err := s.blobs.ReadDigest()
			if err != nil {
				return nil, fmt.Errorf("read digest: %w", err)
			}
			if recorded {
				if s.mode == IntegrityWarn {
					s.log.Warn("integrity digest mismatch, discarding store contents")
					return make(Collection, 0), nil
				}
				return nil, fmt.Errorf("verify store: %w", ErrIntegrity)
			}
		}
		return make(Collection, 0), nil
	}

	key, err := s.keys.Key()
	if err != nil {
		return nil, fmt.Errorf("load key: %w", err)
	}

	plaintext, err := aesgcm.Decrypt(ciphertext, key)
	if err != nil {
		return nil, fmt.Errorf("decrypt store: %w", err)
	}

	if s.mode != IntegrityOff {
		digest, recorded, err := s.blobs.ReadDigest()
		if err != nil {
			return nil, fmt.Errorf("read digest: %w", err)
		}

		switch {
		case !recorded:
			s.log.Debug("no integrity digest recorded, skipping verification")
		case !integrity.Verify(plaintext, digest):
			if s.mode == IntegrityWarn {
				s.log.Warn("integrity digest mismatch, discarding store contents")
				return make(Collection, 0), nil
			}
			return nil, fmt.Errorf("verify store: %w", ErrIntegrity)
		}
	}

	var tasks Collection
	if err := json.Unmarshal(plaintext, &tasks); err != nil {
		return nil, fmt.Errorf("decode collection: %w", err)
	}
	if tasks == nil {
		tasks = make(Collection, 0)
	}

	return tasks, nil
}

// Save snapshots the current store, then serializes, encrypts and persists
// the collection and its fresh integrity digest.
//
// The snapshot is taken before anything else, so if the write is
// interrupted the prior state survives in the backup. The blob is written
// before the digest; a crash between the two shows up as a digest mismatch
// on the next Load rather than as silently inconsistent data.
func (s *RecordStore) Save(tasks Collection) error {
	if tasks == nil {
		tasks = make(Collection, 0)
	}

	taken, err := s.backups.SnapshotBefore(s.blobs)
	if err != nil {
		return fmt.Errorf("backup store: %w", err)
	}
	if taken {
		s.log.Debug("backup snapshot taken", "policy", string(s.backups.Policy))
	}

	plaintext, err := json.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("encode collection: %w", err)
	}

	key, err := s.keys.Key()
	if err != nil {
		return fmt.Errorf("load key: %w", err)
	}

	ciphertext, err := aesgcm.Encrypt(plaintext, key)
	if err != nil {
		return fmt.Errorf("encrypt store: %w", err)
	}

	if err := s.blobs.WriteBlob(ciphertext); err != nil {
		return fmt.Errorf("write store: %w", err)
	}

	if err := s.blobs.WriteDigest(integrity.Hash(plaintext)); err != nil {
		return fmt.Errorf("write digest: %w", err)
	}

	s.log.Debug("collection saved", "tasks", len(tasks))
	return nil
}
