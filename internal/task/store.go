// Package task keeps A2A task state and drives task execution.
package task

import (
	"errors"
	"sync"
	"time"

	"agent-host/internal/a2a"
)

var (
	ErrDuplicateTaskID = errors.New("duplicate task id")
	ErrTaskNotFound    = errors.New("task not found")
	ErrTaskTerminal    = errors.New("task is in a terminal state")
)

// CanceledMessage is the status message set on every canceled task.
const CanceledMessage = "Task was canceled"

// Store is an in-memory task repository with a secondary index from
// context id to task ids. Tasks handed in or out are copies; callers never
// share memory with the store.
type Store struct {
	mu        sync.RWMutex
	tasks     map[string]*a2a.Task
	byContext map[string][]string
	now       func() time.Time
}

// NewStore creates an empty task store.
func NewStore() *Store {
	return &Store{
		tasks:     make(map[string]*a2a.Task),
		byContext: make(map[string][]string),
		now:       time.Now,
	}
}

// Update is a partial task mutation. Nil fields are left untouched.
type Update struct {
	Status        *a2a.TaskStatus
	AppendHistory []a2a.Message
	Metadata      map[string]any
}

// Create inserts a new task and indexes it under its context id.
func (s *Store) Create(t *a2a.Task) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.tasks[t.ID]; exists {
		return ErrDuplicateTaskID
	}

	s.tasks[t.ID] = t.Clone()
	if t.ContextID != "" {
		s.byContext[t.ContextID] = append(s.byContext[t.ContextID], t.ID)
	}
	return nil
}

// Get returns a copy of the task with the given id.
func (s *Store) Get(id string) (*a2a.Task, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, false
	}
	return t.Clone(), true
}

// Update merges u into the task and refreshes UpdatedAt.
//
// A status write on a task that already reached a terminal state is refused
// with ErrTaskTerminal and nothing is changed; the check and the write happen
// under the same lock. Absent ids return ErrTaskNotFound without creating anything.
func (s *Store) Update(id string, u Update) (*a2a.Task, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return nil, ErrTaskNotFound
	}
	if u.Status != nil && t.Status.State.IsTerminal() {
		return t.Clone(), ErrTaskTerminal
	}

	if u.Status != nil {
		t.Status = *u.Status
	}
	for _, m := range u.AppendHistory {
		t.History = append(t.History, m.Clone())
	}
	if len(u.Metadata) > 0 {
		if t.Metadata == nil {
			t.Metadata = make(map[string]any, len(u.Metadata))
		}
		for k, v := range u.Metadata {
			t.Metadata[k] = v
		}
	}
	t.UpdatedAt = s.now()

	return t.Clone(), nil
}

// Cancel moves a non-terminal task to canceled. It reports false, leaving the
// task as it was, when the task is absent or already terminal.
func (s *Store) Cancel(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok || t.Status.State.IsTerminal() {
		return false
	}

	t.Status = a2a.TaskStatus{State: a2a.TaskStateCanceled, Message: CanceledMessage}
	t.UpdatedAt = s.now()
	return true
}

// ByContext returns the tasks sharing a context id, in insertion order.
func (s *Store) ByContext(contextID string) []*a2a.Task {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := s.byContext[contextID]
	tasks := make([]*a2a.Task, 0, len(ids))
	for _, id := range ids {
		// stale index entries are skipped
		if t, ok := s.tasks[id]; ok {
			tasks = append(tasks, t.Clone())
		}
	}
	return tasks
}

// Delete removes a task and its context index entry.
func (s *Store) Delete(id string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tasks[id]
	if !ok {
		return false
	}
	delete(s.tasks, id)

	if t.ContextID == "" {
		return true
	}
	ids := s.byContext[t.ContextID]
	for i, other := range ids {
		if other == id {
			ids = append(ids[:i], ids[i+1:]...)
			break
		}
	}
	if len(ids) == 0 {
		delete(s.byContext, t.ContextID)
	} else {
		s.byContext[t.ContextID] = ids
	}
	return true
}

// Len returns the number of stored tasks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.tasks)
}
