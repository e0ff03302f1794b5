package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/charmbracelet/log"

	"agent-host/internal/conversation"
	"agent-host/internal/llm"
	"agent-host/internal/mcp"
	"agent-host/internal/storage"
)

const defaultMaxHistory = 20

// Placeholder registration used by agents built only to answer A2A requests.
const (
	PlaceholderAddress  = "0x0000000000000000000000000000000000000000"
	PlaceholderPieceCID = "protocol-only"
)

// ErrIncompleteRegistration is returned by New when the on-chain registration is missing.
var ErrIncompleteRegistration = errors.New("incomplete agent registration")

// Registration is an agent's identity in the on-chain registry.
type Registration struct {
	Address  string
	PieceCID string
	KeySeed  string
}

// HistoryStore persists chat turns per agent and chat id.
type HistoryStore interface {
	LoadConversation(ctx context.Context, agentID int64, chatID string) (*conversation.Conversation, error)
	AppendChatMessages(ctx context.Context, agentID int64, chatID string, msgs ...conversation.Message) error
}

// ToolLister discovers the tools exposed by MCP servers.
type ToolLister interface {
	Tools(ctx context.Context, urls []string) []mcp.Tool
}

// Dependencies are the collaborators an Agent talks to.
// LLM is required; the rest are optional.
type Dependencies struct {
	LLM        llm.Client
	History    HistoryStore
	Tools      ToolLister
	Logger     *log.Logger
	MaxHistory int
}

// Agent answers messages with an LLM using its stored configuration.
type Agent struct {
	id             int64
	name           string
	model          string
	prompt         string
	knowledgeBases []string
	tools          []string
	mcpServers     []string
	registration   Registration
	protocolOnly   bool

	llm        llm.Client
	history    HistoryStore
	catalog    ToolLister
	logger     *log.Logger
	maxHistory int
}

// New creates a fully registered agent. The record must carry its
// registry address and registration piece CID.
func New(rec *storage.Agent, deps Dependencies) (*Agent, error) {
	if rec.Address == "" || rec.RegistrationPieceCID == "" {
		return nil, fmt.Errorf("%w: agent %d", ErrIncompleteRegistration, rec.ID)
	}
	a := build(rec, deps)
	a.registration = Registration{
		Address:  rec.Address,
		PieceCID: rec.RegistrationPieceCID,
		KeySeed:  rec.KeySeed,
	}
	return a, nil
}

// NewForProtocol creates an agent that only serves A2A requests. Missing
// registration fields are filled with placeholders.
func NewForProtocol(rec *storage.Agent, deps Dependencies) *Agent {
	a := build(rec, deps)
	a.protocolOnly = true
	a.registration = Registration{
		Address:  rec.Address,
		PieceCID: rec.RegistrationPieceCID,
		KeySeed:  rec.KeySeed,
	}
	if a.registration.Address == "" {
		a.registration.Address = PlaceholderAddress
	}
	if a.registration.PieceCID == "" {
		a.registration.PieceCID = PlaceholderPieceCID
	}
	return a
}

func build(rec *storage.Agent, deps Dependencies) *Agent {
	a := &Agent{
		id:             rec.ID,
		name:           rec.Name,
		model:          rec.Model,
		prompt:         rec.Prompt,
		knowledgeBases: rec.KnowledgeBases,
		tools:          rec.Tools,
		mcpServers:     rec.MCPServers,
		llm:            deps.LLM,
		history:        deps.History,
		catalog:        deps.Tools,
		logger:         deps.Logger,
		maxHistory:     deps.MaxHistory,
	}
	if a.logger == nil {
		a.logger = log.New(io.Discard)
	}
	if a.maxHistory <= 0 {
		a.maxHistory = defaultMaxHistory
	}
	return a
}

// ID returns the agent id.
func (a *Agent) ID() int64 { return a.id }

// Name returns the agent name.
func (a *Agent) Name() string { return a.name }

// Registration returns the agent's registry identity.
func (a *Agent) Registration() Registration { return a.registration }

// ProtocolOnly reports whether the agent was built with NewForProtocol.
func (a *Agent) ProtocolOnly() bool { return a.protocolOnly }

// GenerateResponse answers message. A non-empty chatID selects the chat
// history to continue; the new turns are appended to it.
func (a *Agent) GenerateResponse(ctx context.Context, message, chatID string) (string, error) {
	var conv *conversation.Conversation
	if chatID != "" && a.history != nil {
		var err error
		conv, err = a.history.LoadConversation(ctx, a.id, chatID)
		if err != nil {
			return "", fmt.Errorf("load chat history: %w", err)
		}
	}

	var messages []llm.Message
	if conv != nil {
		for _, m := range conv.Recent(a.maxHistory) {
			if m.Role != conversation.RoleUser && m.Role != conversation.RoleAssistant {
				continue
			}
			messages = append(messages, llm.Message{Role: string(m.Role), Content: m.Content})
		}
	}
	messages = append(messages, llm.Message{Role: llm.RoleUser, Content: message})

	reply, err := a.llm.Generate(ctx, a.systemPrompt(ctx), messages)
	if err != nil {
		return "", fmt.Errorf("agent %d: %w", a.id, err)
	}

	if conv != nil {
		userTurn := conv.AddMessage(conversation.RoleUser, message)
		assistantTurn := conv.AddMessage(conversation.RoleAssistant, reply)
		if err := a.history.AppendChatMessages(ctx, a.id, chatID, userTurn, assistantTurn); err != nil {
			a.logger.Warn("failed to persist chat turns", "agent", a.id, "chat", chatID, "err", err)
		}
	}

	return reply, nil
}

// systemPrompt is the base prompt followed by the knowledge bases and tools the agent can use.
func (a *Agent) systemPrompt(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString(a.prompt)

	if len(a.knowledgeBases) > 0 {
		sb.WriteString("\n\n## Knowledge Bases\n\n")
		for _, kb := range a.knowledgeBases {
			sb.WriteString(fmt.Sprintf("- %s\n", kb))
		}
	}

	var tools []mcp.Tool
	if a.catalog != nil && len(a.mcpServers) > 0 {
		tools = a.catalog.Tools(ctx, a.mcpServers)
	}
	if len(a.tools) > 0 || len(tools) > 0 {
		sb.WriteString("\n\n## Available Tools\n\n")
		for _, name := range a.tools {
			sb.WriteString(fmt.Sprintf("- **%s**\n", name))
		}
		for _, tool := range tools {
			sb.WriteString(fmt.Sprintf("- **%s**: %s\n", tool.Name, tool.Description))
		}
	}

	return strings.TrimSpace(sb.String())
}
