// Package storage implements the encrypted task store.
//
// The store keeps the whole task collection as one JSON document, encrypted
// at rest, with a sibling integrity digest and a pre-write backup. The
// RecordStore orchestrates key lookup, encryption, integrity checking and
// backups over a BlobStore, the byte-level persistence contract with file,
// SQLite, PostgreSQL and in-memory implementations.
package storage

// Status is the lifecycle state of a task.
type Status string

// The three task states. The string values are the on-disk JSON values and
// must not change, or existing stores become unreadable as typed data.
const (
	StatusNotDone    Status = "not done"
	StatusInProgress Status = "in progress"
	StatusDone       Status = "done"
)

// Valid reports whether s is one of the known task states.
func (s Status) Valid() bool {
	switch s {
	case StatusNotDone, StatusInProgress, StatusDone:
		return true
	}
	return false
}

// Task is a single task record.
type Task struct {
	// ID is assigned as count(existing)+1 at creation time. IDs are unique
	// within a Collection but are not stable identifiers across deletions
	// (deletion is out of scope, so assignment stays purely additive).
	ID int `json:"id"`

	// Title is the short task name. Never empty in a persisted Task.
	Title string `json:"title"`

	// Description is the task detail. Never empty in a persisted Task.
	Description string `json:"description"`

	// Status is the current task state.
	Status Status `json:"status"`
}

// Collection is the full ordered set of tasks, persisted wholesale as a
// JSON array. Insertion order is preserved.
type Collection []Task

// NextID returns the id for the next task appended to the collection.
func (c Collection) NextID() int {
	return len(c) + 1
}

// IndexOf returns the index of the task with the given id, or -1 when no
// such task exists.
func (c Collection) IndexOf(id int) int {
	for i := range c {
		if c[i].ID == id {
			return i
		}
	}
	return -1
}
