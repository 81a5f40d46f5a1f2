package storage

import "time"

// BackupPolicy selects how pre-write snapshots are retained.
type BackupPolicy string

const (
	// BackupRolling keeps a single backup slot overwritten on every save.
	// Cheap, but retains only the immediately prior state.
	BackupRolling BackupPolicy = "rolling"

	// BackupArchive keeps one timestamped snapshot per save. Growth is
	// unbounded; retention/pruning is deliberately out of scope.
	BackupArchive BackupPolicy = "archive"
)

// Valid reports whether p is a known backup policy.
func (p BackupPolicy) Valid() bool {
	return p == BackupRolling || p == BackupArchive
}

// archiveLabelFormat names archival snapshots by capture time. Sub-second
// precision keeps labels distinct even when saves land within one second,
// so N saves always leave N snapshots.
const archiveLabelFormat = "20060102_150405.000000"

// BackupManager takes a snapshot of the current store state before every
// save. The clock is injectable so tests can pin archive labels.
type BackupManager struct {
	// Policy selects rolling or archival snapshots.
	Policy BackupPolicy

	// Now returns the current time for archive labels. Nil means time.Now.
	Now func() time.Time
}

// NewBackupManager creates a BackupManager with the given policy and the
// real clock.
func NewBackupManager(policy BackupPolicy) *BackupManager {
	return &BackupManager{Policy: policy}
}

// SnapshotBefore snapshots the current store contents via blobs.
//
// Called unconditionally at the start of every save. Returns taken=false
// without error when the store holds nothing yet (the first save has
// nothing to back up); any other failure aborts the save, since proceeding
// without a backup defeats the point of taking one.
func (m *BackupManager) SnapshotBefore(blobs BlobStore) (bool, error) {
	label := ""
	if m.Policy == BackupArchive {
		now := m.Now
		if now == nil {
			now = time.Now
		}
		label = now().UTC().Format(archiveLabelFormat)
	}

	return blobs.Snapshot(label)
}
