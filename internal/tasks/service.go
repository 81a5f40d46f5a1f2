// Package tasks implements the task operations on top of the record store.
//
// Every operation loads the whole collection, applies one mutation and
// saves it back wholesale; the store layer handles encryption, integrity
// and backups. Input validation happens here so no task with an empty
// title or description is ever persisted.
package tasks

import (
	"errors"
	"fmt"
	"strings"

	"github.com/taskvault/taskvault/internal/storage"
)

var (
	// ErrEmptyTitle rejects tasks with a blank title.
	ErrEmptyTitle = errors.New("task title cannot be empty")

	// ErrEmptyDescription rejects tasks with a blank description.
	ErrEmptyDescription = errors.New("task description cannot be empty")

	// ErrTaskNotFound is returned when no task has the requested id.
	ErrTaskNotFound = errors.New("task not found")

	// ErrInvalidStatus is returned for status values outside the known set.
	ErrInvalidStatus = errors.New("invalid task status")
)

// Store is the persistence contract the service needs. Satisfied by
// *storage.RecordStore.
type Store interface {
	Load() (storage.Collection, error)
	Save(storage.Collection) error
}

// Service exposes the task operations.
type Service struct {
	store Store
}

// NewService creates a Service over the given store.
func NewService(store Store) *Service {
	return &Service{store: store}
}

// List returns the current collection.
func (s *Service) List() (storage.Collection, error) {
	return s.store.Load()
}

// Add validates and appends a new task, assigning it the next id and the
// "not done" status, and persists the collection.
func (s *Service) Add(title, description string) (storage.Task, error) {
	title = strings.TrimSpace(title)
	if title == "" {
		return storage.Task{}, ErrEmptyTitle
	}

	description = strings.TrimSpace(description)
	if description == "" {
		return storage.Task{}, ErrEmptyDescription
	}

	collection, err := s.store.Load()
	if err != nil {
		return storage.Task{}, err
	}

	task := storage.Task{
		ID:          collection.NextID(),
		Title:       title,
		Description: description,
		Status:      storage.StatusNotDone,
	}

	collection = append(collection, task)
	if err := s.store.Save(collection); err != nil {
		return storage.Task{}, err
	}

	return task, nil
}

// SetStatus updates the status of the task with the given id.
func (s *Service) SetStatus(id int, status storage.Status) error {
	if !status.Valid() {
		return fmt.Errorf("%w: %q", ErrInvalidStatus, status)
	}

	return s.update(id, func(task *storage.Task) {
		task.Status = status
	})
}

// SetTitle updates the title of the task with the given id.
func (s *Service) SetTitle(id int, title string) error {
	title = strings.TrimSpace(title)
	if title == "" {
		return ErrEmptyTitle
	}

	return s.update(id, func(task *storage.Task) {
		task.Title = title
	})
}

// SetDescription updates the description of the task with the given id.
func (s *Service) SetDescription(id int, description string) error {
	description = strings.TrimSpace(description)
	if description == "" {
		return ErrEmptyDescription
	}

	return s.update(id, func(task *storage.Task) {
		task.Description = description
	})
}

// update loads the collection, applies mutate to the task with the given
// id and saves the result.
func (s *Service) update(id int, mutate func(*storage.Task)) error {
	collection, err := s.store.Load()
	if err != nil {
		return err
	}

	i := collection.IndexOf(id)
	if i < 0 {
		return fmt.Errorf("%w: id %d", ErrTaskNotFound, id)
	}

	mutate(&collection[i])
	return s.store.Save(collection)
}
