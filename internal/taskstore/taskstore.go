// Package taskstore persists in-flight download tasks as a YAML document
// that is rewritten in full on every mutation.
package taskstore

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/yaml.v3"

	"github.com/episodic/episodic/internal/downloader/types"
)

var (
	ErrTaskExists       = errors.New("task already exists")
	ErrTaskNotFound     = errors.New("task not found")
	ErrStatusRegression = errors.New("task status cannot move backwards")
	// ErrStorage wraps every failure to persist the store.
	ErrStorage = errors.New("task store write failed")
)

// Status is the lifecycle state of a task.
type Status string

const (
	StatusDownloading Status = "downloading"
	StatusDownloaded  Status = "downloaded"
	StatusWaitForSend Status = "wait_for_send"
	StatusSent        Status = "sent"
)

// Rank orders statuses along the only forward path. Unknown statuses rank -1.
func (s Status) Rank() int {
	switch s {
	case StatusDownloading:
		return 0
	case StatusDownloaded:
		return 1
	case StatusWaitForSend:
		return 2
	case StatusSent:
		return 3
	default:
		return -1
	}
}

// Valid reports whether s is a known status.
func (s Status) Valid() bool {
	return s.Rank() >= 0
}

// Task is one tracked obligation to deliver a release to a subscriber.
type Task struct {
	// ID is the subscriber identity, e.g. group_123 or private_456.
	ID        string             `yaml:"id" json:"id"`
	TorrentID int64              `yaml:"torrent_id" json:"torrentId"`
	Title     string             `yaml:"title,omitempty" json:"title,omitempty"`
	Content   types.ClientStatus `yaml:"content" json:"content"`
	Status    Status             `yaml:"status" json:"status"`
	CreatedAt time.Time          `yaml:"created_at,omitempty" json:"createdAt"`
	UpdatedAt time.Time          `yaml:"updated_at,omitempty" json:"updatedAt"`
}

// Key identifies a task by subscriber and release.
type Key struct {
	Subscriber string
	TorrentID  int64
}

// Key returns the task's identity.
func (t Task) Key() Key {
	return Key{Subscriber: t.ID, TorrentID: t.TorrentID}
}

// Hash returns the info-hash the task tracks.
func (t Task) Hash() string {
	return t.Content.Hash
}

// Store is the process-wide task store. Mutations are serialized; reads
// return copies and may be slightly stale relative to an in-progress pass.
type Store struct {
	mu     sync.RWMutex
	path   string
	tasks  []Task
	now    func() time.Time
	logger zerolog.Logger
}

// Open loads the store from path, creating an empty file when none exists.
func Open(path string, logger zerolog.Logger) (*Store, error) {
	s := &Store{
		path:   path,
		now:    time.Now,
		logger: logger.With().Str("component", "taskstore").Logger(),
	}

	data, err := os.ReadFile(path)
	switch {
	case errors.Is(err, os.ErrNotExist):
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create task store directory: %w", err)
		}
		if err := s.write(nil); err != nil {
			return nil, err
		}
		s.logger.Info().Str("path", path).Msg("Created empty task store")
		return s, nil
	case err != nil:
		return nil, fmt.Errorf("failed to read task store: %w", err)
	}

	var tasks []Task
	if err := yaml.Unmarshal(data, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse task store %s: %w", path, err)
	}
	for i := range tasks {
		if !tasks[i].Status.Valid() {
			return nil, fmt.Errorf("task store %s: task %s/%d has unknown status %q",
				path, tasks[i].ID, tasks[i].TorrentID, tasks[i].Status)
		}
	}
	s.tasks = tasks

	s.logger.Info().Str("path", path).Int("tasks", len(tasks)).Msg("Loaded task store")
	return s, nil
}

// Path returns the backing file.
func (s *Store) Path() string {
	return s.path
}

// Len returns the number of tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}

// Snapshot returns a copy of every task.
func (s *Store) Snapshot() []Task {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]Task, len(s.tasks))
	copy(out, s.tasks)
	return out
}

// Get returns the task for a subscriber and release.
func (s *Store) Get(subscriber string, torrentID int64) (Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.index(Key{subscriber, torrentID}); i >= 0 {
		return s.tasks[i], true
	}
	return Task{}, false
}

// Has reports whether a subscriber already has a task for a release.
func (s *Store) Has(subscriber string, torrentID int64) bool {
	_, ok := s.Get(subscriber, torrentID)
	return ok
}

// Add appends a task and persists. A second task for the same subscriber
// and release is rejected with ErrTaskExists.
func (s *Store) Add(task Task) error {
	if !task.Status.Valid() {
		return fmt.Errorf("invalid task status %q", task.Status)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index(task.Key()) >= 0 {
		return ErrTaskExists
	}

	now := s.now().UTC()
	if task.CreatedAt.IsZero() {
		task.CreatedAt = now
	}
	task.UpdatedAt = now

	next := make([]Task, len(s.tasks), len(s.tasks)+1)
	copy(next, s.tasks)
	next = append(next, task)
	return s.commit(next)
}

// Update replaces the stored task with the same key and persists.
// Status may only stay the same or move forward.
func (s *Store) Update(task Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	i := s.index(task.Key())
	if i < 0 {
		return ErrTaskNotFound
	}
	if task.Status.Rank() < s.tasks[i].Status.Rank() {
		return fmt.Errorf("%w: %s -> %s", ErrStatusRegression, s.tasks[i].Status, task.Status)
	}
	task.CreatedAt = s.tasks[i].CreatedAt
	task.UpdatedAt = s.now().UTC()

	next := make([]Task, len(s.tasks))
	copy(next, s.tasks)
	next[i] = task
	return s.commit(next)
}

// PurgeSent removes every task in state sent and persists.
func (s *Store) PurgeSent() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	next := make([]Task, 0, len(s.tasks))
	for _, t := range s.tasks {
		if t.Status != StatusSent {
			next = append(next, t)
		}
	}
	removed := len(s.tasks) - len(next)
	if removed == 0 {
		return 0, nil
	}
	if err := s.commit(next); err != nil {
		return 0, err
	}
	return removed, nil
}

// commit persists next and only then makes it the in-memory state, so a
// failed write leaves the last persisted state in place. Caller holds mu.
func (s *Store) commit(next []Task) error {
	if err := s.write(next); err != nil {
		s.logger.Error().Err(err).Msg("Failed to persist task store")
		return err
	}
	s.tasks = next
	return nil
}

func (s *Store) write(tasks []Task) error {
	if tasks == nil {
		tasks = []Task{}
	}
	data, err := yaml.Marshal(tasks)
	if err != nil {
		return fmt.Errorf("%w: marshal: %v", ErrStorage, err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("%w: %v", ErrStorage, err)
	}
	return nil
}

func (s *Store) index(k Key) int {
	for i := range s.tasks {
		if s.tasks[i].Key() == k {
			return i
		}
	}
	return -1
}
