// Package storage persists agents, agent cards and chat history in SQLite.
package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"agent-host/internal/a2a"
	"agent-host/internal/conversation"
)

// ErrNotFound is returned when a lookup matches no row.
var ErrNotFound = errors.New("not found")

const schema = `
CREATE TABLE IF NOT EXISTS agents (
	id INTEGER PRIMARY KEY,
	name TEXT NOT NULL,
	model TEXT NOT NULL,
	prompt TEXT NOT NULL DEFAULT '',
	knowledge_bases TEXT NOT NULL DEFAULT '[]',
	tools TEXT NOT NULL DEFAULT '[]',
	mcp_servers TEXT NOT NULL DEFAULT '[]',
	address TEXT NOT NULL DEFAULT '',
	key_seed TEXT NOT NULL DEFAULT '',
	registration_piece_cid TEXT NOT NULL DEFAULT '',
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS agent_cards (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	agent_id INTEGER NOT NULL UNIQUE REFERENCES agents(id),
	human_readable_id TEXT UNIQUE,
	name TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	url TEXT NOT NULL DEFAULT '',
	version TEXT NOT NULL DEFAULT '',
	documentation_url TEXT NOT NULL DEFAULT '',
	provider TEXT,
	capabilities TEXT,
	auth_schemes TEXT,
	skills TEXT,
	tags TEXT,
	default_input_modes TEXT,
	default_output_modes TEXT,
	created_at DATETIME NOT NULL,
	updated_at DATETIME NOT NULL
);
CREATE TABLE IF NOT EXISTS chat_messages (
	id TEXT PRIMARY KEY,
	agent_id INTEGER NOT NULL,
	chat_id TEXT NOT NULL,
	role TEXT NOT NULL,
	content TEXT NOT NULL,
	created_at DATETIME NOT NULL
);
CREATE INDEX IF NOT EXISTS idx_chat_messages_chat ON chat_messages(agent_id, chat_id, created_at);
`

// Agent is the stored configuration of one agent.
type Agent struct {
	ID                   int64
	Name                 string
	Model                string
	Prompt               string
	KnowledgeBases       []string
	Tools                []string
	MCPServers           []string
	Address              string
	KeySeed              string
	RegistrationPieceCID string
	CreatedAt            time.Time
	UpdatedAt            time.Time
}

// CardRecord is an agent_cards row as read from the database. The JSON
// sub-fields and timestamps are left as the driver returned them.
type CardRecord struct {
	ID                 int64
	AgentID            int64
	HumanReadableID    string
	Name               string
	Description        string
	URL                string
	Version            string
	DocumentationURL   string
	Provider           any
	Capabilities       any
	AuthSchemes        any
	Skills             any
	Tags               any
	DefaultInputModes  any
	DefaultOutputModes any
	CreatedAt          any
	UpdatedAt          any
}

// CardFilter selects an agent card. Set fields are combined with AND.
type CardFilter struct {
	ID              *int64
	HumanReadableID *string
	AgentID         *int64
}

// Empty reports whether no field is set.
func (f CardFilter) Empty() bool {
	return f.ID == nil && f.HumanReadableID == nil && f.AgentID == nil
}

// Storage is a SQLite-backed store.
type Storage struct {
	db *sql.DB
}

// Open opens the SQLite database at path and creates missing tables.
func Open(path string) (*Storage, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}
	// a single connection keeps ":memory:" databases shared and serializes writers
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("create schema: %w", err)
	}
	return &Storage{db: db}, nil
}

// Close closes the database connection.
func (s *Storage) Close() error {
	return s.db.Close()
}

// SaveAgent inserts or replaces an agent.
func (s *Storage) SaveAgent(ctx context.Context, a *Agent) error {
	kb, err := json.Marshal(nonNil(a.KnowledgeBases))
	if err != nil {
		return fmt.Errorf("marshal knowledge bases: %w", err)
	}
	tools, err := json.Marshal(nonNil(a.Tools))
	if err != nil {
		return fmt.Errorf("marshal tools: %w", err)
	}
	servers, err := json.Marshal(nonNil(a.MCPServers))
	if err != nil {
		return fmt.Errorf("marshal mcp servers: %w", err)
	}

	now := time.Now().UTC()
	_, err = s.db.ExecContext(ctx,
		`INSERT INTO agents (id, name, model, prompt, knowledge_bases, tools, mcp_servers, address, key_seed, registration_piece_cid, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name, model = excluded.model, prompt = excluded.prompt,
			knowledge_bases = excluded.knowledge_bases, tools = excluded.tools, mcp_servers = excluded.mcp_servers,
			address = excluded.address, key_seed = excluded.key_seed,
			registration_piece_cid = excluded.registration_piece_cid, updated_at = excluded.updated_at`,
		a.ID, a.Name, a.Model, a.Prompt, string(kb), string(tools), string(servers),
		a.Address, a.KeySeed, a.RegistrationPieceCID, now, now,
	)
	if err != nil {
		return fmt.Errorf("save agent %d: %w", a.ID, err)
	}
	return nil
}

// GetAgent returns the agent with the given id, or ErrNotFound.
func (s *Storage) GetAgent(ctx context.Context, id int64) (*Agent, error) {
	var a Agent
	var kb, tools, servers string
	err := s.db.QueryRowContext(ctx,
		`SELECT id, name, model, prompt, knowledge_bases, tools, mcp_servers, address, key_seed, registration_piece_cid, created_at, updated_at
		FROM agents WHERE id = ?`, id,
	).Scan(&a.ID, &a.Name, &a.Model, &a.Prompt, &kb, &tools, &servers,
		&a.Address, &a.KeySeed, &a.RegistrationPieceCID, &a.CreatedAt, &a.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query agent %d: %w", id, err)
	}

	for _, f := range []struct {
		raw string
		dst *[]string
	}{{kb, &a.KnowledgeBases}, {tools, &a.Tools}, {servers, &a.MCPServers}} {
		if err := json.Unmarshal([]byte(f.raw), f.dst); err != nil {
			return nil, fmt.Errorf("decode agent %d: %w", id, err)
		}
	}
	return &a, nil
}

// ListAgents returns every stored agent ordered by id.
func (s *Storage) ListAgents(ctx context.Context) ([]*Agent, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT id FROM agents ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}
	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan agent id: %w", err)
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list agents: %w", err)
	}

	agents := make([]*Agent, 0, len(ids))
	for _, id := range ids {
		a, err := s.GetAgent(ctx, id)
		if err != nil {
			return nil, err
		}
		agents = append(agents, a)
	}
	return agents, nil
}

// SaveAgentCard inserts or replaces the card of card.AgentID and returns its row id.
func (s *Storage) SaveAgentCard(ctx context.Context, card *a2a.AgentCard) (int64, error) {
	encoded := make([]any, 0, 7)
	for _, v := range []any{
		card.Provider, card.Capabilities, card.AuthSchemes, card.Skills,
		card.Tags, card.DefaultInputModes, card.DefaultOutputModes,
	} {
		data, err := json.Marshal(v)
		if err != nil {
			return 0, fmt.Errorf("marshal agent card: %w", err)
		}
		encoded = append(encoded, string(data))
	}

	var hrid any
	if card.HumanReadableID != "" {
		hrid = card.HumanReadableID
	}

	now := time.Now().UTC()
	args := append([]any{
		card.AgentID, hrid, card.Name, card.Description, card.URL, card.Version, card.DocumentationURL,
	}, encoded...)
	args = append(args, now, now)

	var id int64
	err := s.db.QueryRowContext(ctx,
		`INSERT INTO agent_cards (agent_id, human_readable_id, name, description, url, version, documentation_url,
			provider, capabilities, auth_schemes, skills, tags, default_input_modes, default_output_modes, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(agent_id) DO UPDATE SET
			human_readable_id = excluded.human_readable_id, name = excluded.name, description = excluded.description,
			url = excluded.url, version = excluded.version, documentation_url = excluded.documentation_url,
			provider = excluded.provider, capabilities = excluded.capabilities, auth_schemes = excluded.auth_schemes,
			skills = excluded.skills, tags = excluded.tags, default_input_modes = excluded.default_input_modes,
			default_output_modes = excluded.default_output_modes, updated_at = excluded.updated_at
		RETURNING id`,
		args...,
	).Scan(&id)
	if err != nil {
		return 0, fmt.Errorf("save agent card for agent %d: %w", card.AgentID, err)
	}
	return id, nil
}

// FindAgentCard returns the first card matching every set field of f.
func (s *Storage) FindAgentCard(ctx context.Context, f CardFilter) (*CardRecord, error) {
	if f.Empty() {
		return nil, fmt.Errorf("empty card filter: %w", ErrNotFound)
	}

	var (
		where []string
		args  []any
	)
	if f.ID != nil {
		where = append(where, "id = ?")
		args = append(args, *f.ID)
	}
	if f.HumanReadableID != nil {
		where = append(where, "human_readable_id = ?")
		args = append(args, *f.HumanReadableID)
	}
	if f.AgentID != nil {
		where = append(where, "agent_id = ?")
		args = append(args, *f.AgentID)
	}

	var (
		r    CardRecord
		hrid sql.NullString
	)
	err := s.db.QueryRowContext(ctx,
		`SELECT id, agent_id, human_readable_id, name, description, url, version, documentation_url,
			provider, capabilities, auth_schemes, skills, tags, default_input_modes, default_output_modes, created_at, updated_at
		FROM agent_cards WHERE `+strings.Join(where, " AND ")+` LIMIT 1`,
		args...,
	).Scan(&r.ID, &r.AgentID, &hrid, &r.Name, &r.Description, &r.URL, &r.Version, &r.DocumentationURL,
		&r.Provider, &r.Capabilities, &r.AuthSchemes, &r.Skills, &r.Tags, &r.DefaultInputModes, &r.DefaultOutputModes,
		&r.CreatedAt, &r.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("agent card: %w", ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("query agent card: %w", err)
	}
	r.HumanReadableID = hrid.String
	return &r, nil
}

// AppendChatMessages stores messages under the agent's chat id in one transaction.
func (s *Storage) AppendChatMessages(ctx context.Context, agentID int64, chatID string, msgs ...conversation.Message) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	for _, m := range msgs {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO chat_messages (id, agent_id, chat_id, role, content, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
			m.ID, agentID, chatID, string(m.Role), m.Content, m.CreatedAt.UTC(),
		)
		if err != nil {
			return fmt.Errorf("insert chat message: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit chat messages: %w", err)
	}
	return nil
}

// LoadConversation returns the stored chat history of an agent's chat id.
// An unknown chat id yields an empty conversation.
func (s *Storage) LoadConversation(ctx context.Context, agentID int64, chatID string) (*conversation.Conversation, error) {
	conv := conversation.New(agentID, chatID)

	rows, err := s.db.QueryContext(ctx,
		`SELECT id, role, content, created_at FROM chat_messages
		WHERE agent_id = ? AND chat_id = ? ORDER BY created_at, rowid`,
		agentID, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			m    conversation.Message
			role string
		)
		if err := rows.Scan(&m.ID, &role, &m.Content, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chat message: %w", err)
		}
		m.Role = conversation.Role(role)
		conv.Messages = append(conv.Messages, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("read chat messages: %w", err)
	}

	if n := len(conv.Messages); n > 0 {
		conv.CreatedAt = conv.Messages[0].CreatedAt
		conv.UpdatedAt = conv.Messages[n-1].CreatedAt
	}
	return conv, nil
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
