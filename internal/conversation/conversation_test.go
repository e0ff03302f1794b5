package conversation

import (
	"testing"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		agentID int64
		id      string
	}{
		{"with chat id", 3, "chat-1"},
		{"generated id", 4, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			conv := New(tt.agentID, tt.id)
			if conv.ID == "" {
				t.Error("expected non-empty ID")
			}
			if tt.id != "" && conv.ID != tt.id {
				t.Errorf("ID = %q, want %q", conv.ID, tt.id)
			}
			if conv.AgentID != tt.agentID {
				t.Errorf("AgentID = %d, want %d", conv.AgentID, tt.agentID)
			}
			if len(conv.Messages) != 0 {
				t.Errorf("Messages count = %d, want 0", len(conv.Messages))
			}
		})
	}
}

func TestAddMessage(t *testing.T) {
	conv := New(1, "")
	msg := conv.AddMessage(RoleUser, "hello")

	if msg.Role != RoleUser {
		t.Errorf("Role = %q, want %q", msg.Role, RoleUser)
	}
	if msg.Content != "hello" {
		t.Errorf("Content = %q, want %q", msg.Content, "hello")
	}
	if msg.ID == "" {
		t.Error("expected non-empty message ID")
	}
	if len(conv.Messages) != 1 {
		t.Errorf("Messages count = %d, want 1", len(conv.Messages))
	}
	if !conv.UpdatedAt.Equal(msg.CreatedAt) {
		t.Errorf("UpdatedAt = %v, want %v", conv.UpdatedAt, msg.CreatedAt)
	}
}

func TestRecent(t *testing.T) {
	conv := New(1, "c")
	conv.AddMessage(RoleUser, "one")
	conv.AddMessage(RoleAssistant, "two")
	conv.AddMessage(RoleUser, "three")

	tests := []struct {
		n    int
		want []string
	}{
		{0, []string{"one", "two", "three"}},
		{-1, []string{"one", "two", "three"}},
		{2, []string{"two", "three"}},
		{5, []string{"one", "two", "three"}},
	}

	for _, tt := range tests {
		got := conv.Recent(tt.n)
		if len(got) != len(tt.want) {
			t.Fatalf("Recent(%d) returned %d messages, want %d", tt.n, len(got), len(tt.want))
		}
		for i, m := range got {
			if m.Content != tt.want[i] {
				t.Errorf("Recent(%d)[%d] = %q, want %q", tt.n, i, m.Content, tt.want[i])
			}
		}
	}
}
