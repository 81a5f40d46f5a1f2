package storage

import "sort"

// BlobStore is the byte-level persistence contract for the encrypted store.
//
// Implementations persist three artifacts: the ciphertext blob, the hex
// integrity digest of its plaintext, and snapshots taken before each write.
// All implementations must treat "nothing stored yet" as a normal state
// reported through the exists return values, not as an error.
type BlobStore interface {
	// ReadBlob returns the current ciphertext. exists is false when no blob
	// has ever been written.
	ReadBlob() (data []byte, exists bool, err error)

	// WriteBlob replaces the current ciphertext. The write must not leave a
	// partially written blob behind on failure, and file-backed
	// implementations must create the artifact with owner-only permissions
	// before any content reaches disk.
	WriteBlob(data []byte) error

	// ReadDigest returns the stored integrity digest. exists is false when
	// no digest has been recorded yet.
	ReadDigest() (digest string, exists bool, err error)

	// WriteDigest replaces the stored integrity digest.
	WriteDigest(digest string) error

	// Snapshot copies the current blob to the backup location named by
	// label. An empty label selects the single rolling backup slot, which
	// is overwritten on each call; any other label creates (or replaces) an
	// archival snapshot under that name. Returns taken=false without error
	// when no blob exists yet, since the first save has nothing to back up.
	Snapshot(label string) (taken bool, err error)
}

// MemoryBlobStore is an in-process BlobStore for unit tests, removing the
// need for filesystem side effects when exercising the RecordStore.
type MemoryBlobStore struct {
	blob      []byte
	hasBlob   bool
	digest    string
	hasDigest bool
	snapshots map[string][]byte
}

// NewMemoryBlobStore creates an empty MemoryBlobStore.
func NewMemoryBlobStore() *MemoryBlobStore {
	return &MemoryBlobStore{snapshots: make(map[string][]byte)}
}

// ReadBlob returns the stored blob, if any.
func (m *MemoryBlobStore) ReadBlob() ([]byte, bool, error) {
	if !m.hasBlob {
		return nil, false, nil
	}
	out := make([]byte, len(m.blob))
	copy(out, m.blob)
	return out, true, nil
}

// WriteBlob replaces the stored blob.
func (m *MemoryBlobStore) WriteBlob(data []byte) error {
	m.blob = make([]byte, len(data))
	copy(m.blob, data)
	m.hasBlob = true
	return nil
}

// ReadDigest returns the stored digest, if any.
func (m *MemoryBlobStore) ReadDigest() (string, bool, error) {
	return m.digest, m.hasDigest, nil
}

// WriteDigest replaces the stored digest.
func (m *MemoryBlobStore) WriteDigest(digest string) error {
	m.digest = digest
	m.hasDigest = true
	return nil
}

// Snapshot copies the current blob into the snapshot map under label.
func (m *MemoryBlobStore) Snapshot(label string) (bool, error) {
	if !m.hasBlob {
		return false, nil
	}
	copied := make([]byte, len(m.blob))
	copy(copied, m.blob)
	m.snapshots[label] = copied
	return true, nil
}

// SnapshotLabels returns the labels of all snapshots taken, sorted. Test
// helper for asserting backup policy behavior.
func (m *MemoryBlobStore) SnapshotLabels() []string {
	labels := make([]string, 0, len(m.snapshots))
	for label := range m.snapshots {
		labels = append(labels, label)
	}
	sort.Strings(labels)
	return labels
}

// SnapshotData returns the snapshot stored under label, if any. Test helper.
func (m *MemoryBlobStore) SnapshotData(label string) ([]byte, bool) {
	data, ok := m.snapshots[label]
	return data, ok
}
