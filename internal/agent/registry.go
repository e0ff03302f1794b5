package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/charmbracelet/log"

	"agent-host/internal/llm"
	"agent-host/internal/storage"
	"agent-host/internal/task"
)

// AgentStore looks up stored agent configuration.
type AgentStore interface {
	GetAgent(ctx context.Context, id int64) (*storage.Agent, error)
}

// ClientFactory builds an LLM client for a "provider:model" string.
type ClientFactory func(model string) (llm.Client, error)

// Registry resolves agent ids into ready-to-use agents for the task executor.
type Registry struct {
	agents     AgentStore
	history    HistoryStore
	tools      ToolLister
	newClient  ClientFactory
	logger     *log.Logger
	maxHistory int

	mu      sync.Mutex
	clients map[string]llm.Client
}

// RegistryOption configures a Registry.
type RegistryOption func(*Registry)

// WithHistory sets where chat turns are loaded from and saved to.
func WithHistory(h HistoryStore) RegistryOption {
	return func(r *Registry) { r.history = h }
}

// WithTools sets the MCP tool catalog.
func WithTools(t ToolLister) RegistryOption {
	return func(r *Registry) { r.tools = t }
}

// WithClientFactory replaces llm.NewClient.
func WithClientFactory(f ClientFactory) RegistryOption {
	return func(r *Registry) { r.newClient = f }
}

// WithLogger sets the registry logger, also handed to every agent.
func WithLogger(l *log.Logger) RegistryOption {
	return func(r *Registry) { r.logger = l }
}

// WithMaxHistory caps the prior chat turns sent to the model.
func WithMaxHistory(n int) RegistryOption {
	return func(r *Registry) { r.maxHistory = n }
}

// NewRegistry creates a registry over agents.
func NewRegistry(agents AgentStore, opts ...RegistryOption) *Registry {
	r := &Registry{
		agents:     agents,
		newClient:  llm.NewClient,
		logger:     log.New(io.Discard),
		maxHistory: defaultMaxHistory,
		clients:    make(map[string]llm.Client),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// ResolveAgent returns a protocol agent for id. Unknown ids wrap task.ErrAgentNotFound.
func (r *Registry) ResolveAgent(ctx context.Context, id int64) (task.Responder, error) {
	rec, err := r.agents.GetAgent(ctx, id)
	if errors.Is(err, storage.ErrNotFound) {
		return nil, fmt.Errorf("%w: %d", task.ErrAgentNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("load agent %d: %w", id, err)
	}

	client, err := r.client(rec.Model)
	if err != nil {
		return nil, fmt.Errorf("agent %d: %w", id, err)
	}

	return NewForProtocol(rec, Dependencies{
		LLM:        client,
		History:    r.history,
		Tools:      r.tools,
		Logger:     r.logger.With("agent", id),
		MaxHistory: r.maxHistory,
	}), nil
}

func (r *Registry) client(model string) (llm.Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c, ok := r.clients[model]; ok {
		return c, nil
	}
	c, err := r.newClient(model)
	if err != nil {
		return nil, err
	}
	r.clients[model] = c
	return c, nil
}
