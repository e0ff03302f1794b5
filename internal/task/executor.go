package task

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"agent-host/internal/a2a"
)

var (
	ErrAgentNotFound = errors.New("agent not found")
	ErrTimeout       = errors.New("Timeout")
)

const (
	CompletedMessage = "Task completed successfully"
	FailedMessage    = "Task failed"
)

// Responder produces an agent's reply to a prompt. A non-empty chatID names
// the conversation whose earlier turns the responder should take into account.
type Responder interface {
	GenerateResponse(ctx context.Context, message, chatID string) (string, error)
}

// AgentResolver looks up an agent by its numeric id.
// Unknown ids must yield an error wrapping ErrAgentNotFound.
type AgentResolver interface {
	ResolveAgent(ctx context.Context, agentID int64) (Responder, error)
}

// Observer is notified of task state changes.
type Observer interface {
	TaskTransitioned(state a2a.TaskState)
	TaskFinished(state a2a.TaskState, elapsed time.Duration)
}

// ExecutionError reports a task that ended in the failed state.
type ExecutionError struct {
	TaskID string
	Err    error
}

func (e *ExecutionError) Error() string { return e.Err.Error() }

func (e *ExecutionError) Unwrap() error { return e.Err }

// Submission is one inbound message to run as a new task.
type Submission struct {
	AgentID   int64
	Message   a2a.Message
	ContextID string
	Metadata  map[string]any
}

// Executor drives tasks from submission to a terminal state.
type Executor struct {
	store    *Store
	agents   AgentResolver
	logger   *log.Logger
	observer Observer
	timeout  time.Duration
	newID    func() string

	mu       sync.Mutex
	inflight map[string]context.CancelFunc
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// WithTimeout bounds each call to the responder. Zero disables the bound.
func WithTimeout(d time.Duration) ExecutorOption {
	return func(e *Executor) { e.timeout = d }
}

// WithLogger sets the executor logger.
func WithLogger(l *log.Logger) ExecutorOption {
	return func(e *Executor) { e.logger = l }
}

// WithObserver registers an observer for state changes.
func WithObserver(o Observer) ExecutorOption {
	return func(e *Executor) { e.observer = o }
}

// WithIDGenerator replaces the task id generator.
func WithIDGenerator(fn func() string) ExecutorOption {
	return func(e *Executor) { e.newID = fn }
}

// NewExecutor creates an executor writing to store and resolving agents through agents.
func NewExecutor(store *Store, agents AgentResolver, opts ...ExecutorOption) *Executor {
	e := &Executor{
		store:    store,
		agents:   agents,
		logger:   log.New(io.Discard),
		newID:    uuid.NewString,
		inflight: make(map[string]context.CancelFunc),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Store returns the task store the executor writes to.
func (e *Executor) Store() *Store { return e.store }

// Execute runs sub as a new task and returns the task in its final state.
//
// The task is stored as submitted, then moved to working before the agent is
// resolved and asked for a reply. On success one assistant message is
// appended and the task completes. On failure the task is marked failed and
// an *ExecutionError is returned together with the failed task. A task
// canceled while working stays canceled and is returned without error.
func (e *Executor) Execute(ctx context.Context, sub Submission) (*a2a.Task, error) {
	start := time.Now()
	now := start.UTC()
	t := &a2a.Task{
		ID:        e.newID(),
		ContextID: sub.ContextID,
		Status:    a2a.TaskStatus{State: a2a.TaskStateSubmitted},
		History:   []a2a.Message{sub.Message},
		Metadata:  sub.Metadata,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := e.store.Create(t); err != nil {
		return nil, fmt.Errorf("failed to create task: %w", err)
	}
	e.transitioned(a2a.TaskStateSubmitted)

	runCtx, cancel := e.track(ctx, t.ID)
	defer e.untrack(t.ID, cancel)

	if current, err := e.store.Update(t.ID, Update{Status: &a2a.TaskStatus{State: a2a.TaskStateWorking}}); err != nil {
		return e.settled(current, err)
	}
	e.transitioned(a2a.TaskStateWorking)

	reply, err := e.respond(runCtx, sub)
	if err != nil {
		if errors.Is(runCtx.Err(), context.DeadlineExceeded) && e.timeout > 0 {
			err = ErrTimeout
		}
		return e.fail(t.ID, err, start)
	}

	final, err := e.store.Update(t.ID, Update{
		Status:        &a2a.TaskStatus{State: a2a.TaskStateCompleted, Message: CompletedMessage},
		AppendHistory: []a2a.Message{a2a.NewTextMessage(a2a.RoleAssistant, reply)},
	})
	if err != nil {
		return e.settled(final, err)
	}

	e.finished(a2a.TaskStateCompleted, start)
	e.logger.Debug("task completed", "task", t.ID, "agent", sub.AgentID, "elapsed", time.Since(start))
	return final, nil
}

// Cancel cancels a task that has not reached a terminal state and interrupts
// its in-flight responder call, if any.
func (e *Executor) Cancel(id string) bool {
	if !e.store.Cancel(id) {
		return false
	}
	e.transitioned(a2a.TaskStateCanceled)

	e.mu.Lock()
	cancel, ok := e.inflight[id]
	e.mu.Unlock()
	if ok {
		cancel()
	}
	return true
}

// respond asks the agent for a reply. A panicking responder is reported as an error.
func (e *Executor) respond(ctx context.Context, sub Submission) (reply string, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%v", r)
		}
	}()

	responder, err := e.agents.ResolveAgent(ctx, sub.AgentID)
	if err != nil {
		return "", err
	}
	return responder.GenerateResponse(ctx, sub.Message.Text(), sub.ContextID)
}

func (e *Executor) fail(id string, cause error, start time.Time) (*a2a.Task, error) {
	final, err := e.store.Update(id, Update{
		Status: &a2a.TaskStatus{State: a2a.TaskStateFailed, Message: FailedMessage, Error: cause.Error()},
	})
	if err != nil {
		return e.settled(final, err)
	}

	e.finished(a2a.TaskStateFailed, start)
	e.logger.Warn("task failed", "task", id, "err", cause)
	return final, &ExecutionError{TaskID: id, Err: cause}
}

// settled handles a refused write: the task was canceled or deleted concurrently.
func (e *Executor) settled(current *a2a.Task, err error) (*a2a.Task, error) {
	if errors.Is(err, ErrTaskTerminal) {
		e.logger.Debug("task settled concurrently", "task", current.ID, "state", current.Status.State)
		return current, nil
	}
	return nil, err
}

func (e *Executor) track(ctx context.Context, id string) (context.Context, context.CancelFunc) {
	var (
		runCtx context.Context
		cancel context.CancelFunc
	)
	if e.timeout > 0 {
		runCtx, cancel = context.WithTimeout(ctx, e.timeout)
	} else {
		runCtx, cancel = context.WithCancel(ctx)
	}

	e.mu.Lock()
	e.inflight[id] = cancel
	e.mu.Unlock()
	return runCtx, cancel
}

func (e *Executor) untrack(id string, cancel context.CancelFunc) {
	e.mu.Lock()
	delete(e.inflight, id)
	e.mu.Unlock()
	cancel()
}

func (e *Executor) transitioned(state a2a.TaskState) {
	if e.observer != nil {
		e.observer.TaskTransitioned(state)
	}
}

func (e *Executor) finished(state a2a.TaskState, start time.Time) {
	if e.observer != nil {
		e.observer.TaskTransitioned(state)
		e.observer.TaskFinished(state, time.Since(start))
	}
}
