package conversation

import (
	"time"

	"github.com/google/uuid"
)

// Role represents who sent a message.
type Role string

const (
	RoleSystem    Role = "system"
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// Message represents a single chat turn.
type Message struct {
	ID        string    `json:"id"`
	Role      Role      `json:"role"`
	Content   string    `json:"content"`
	CreatedAt time.Time `json:"created_at"`
}

// Conversation is the chat history an agent keeps under one chat id.
// A2A tasks sharing a context id share a conversation.
type Conversation struct {
	ID        string    `json:"id"`
	AgentID   int64     `json:"agent_id"`
	Messages  []Message `json:"messages"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New creates an empty conversation. An empty id gets a generated one.
func New(agentID int64, id string) *Conversation {
	if id == "" {
		id = uuid.New().String()
	}
	now := time.Now()
	return &Conversation{
		ID:        id,
		AgentID:   agentID,
		Messages:  []Message{},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

// AddMessage appends a new message to the conversation.
func (c *Conversation) AddMessage(role Role, content string) Message {
	msg := Message{
		ID:        uuid.New().String(),
		Role:      role,
		Content:   content,
		CreatedAt: time.Now(),
	}
	c.Messages = append(c.Messages, msg)
	c.UpdatedAt = msg.CreatedAt
	return msg
}

// Recent returns at most n of the latest messages, oldest first.
// A non-positive n returns every message.
func (c *Conversation) Recent(n int) []Message {
	if n <= 0 || n >= len(c.Messages) {
		return c.Messages
	}
	return c.Messages[len(c.Messages)-n:]
}
