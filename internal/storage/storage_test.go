package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"agent-host/internal/a2a"
	"agent-host/internal/conversation"
)

func newTestStorage(t *testing.T) *Storage {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open storage: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSaveAndGetAgent(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	agent := &Agent{
		ID:                   7,
		Name:                 "researcher",
		Model:                "openai:gpt-4o-mini",
		Prompt:               "You are helpful.",
		KnowledgeBases:       []string{"kb-1"},
		MCPServers:           []string{"http://localhost:8090/mcp"},
		Address:              "0xabc",
		RegistrationPieceCID: "bafy-piece",
	}
	if err := s.SaveAgent(ctx, agent); err != nil {
		t.Fatalf("SaveAgent failed: %v", err)
	}

	got, err := s.GetAgent(ctx, 7)
	if err != nil {
		t.Fatalf("GetAgent failed: %v", err)
	}
	if got.Name != "researcher" || got.Model != "openai:gpt-4o-mini" {
		t.Errorf("got %q/%q, want researcher/openai:gpt-4o-mini", got.Name, got.Model)
	}
	if len(got.KnowledgeBases) != 1 || got.KnowledgeBases[0] != "kb-1" {
		t.Errorf("KnowledgeBases = %v, want [kb-1]", got.KnowledgeBases)
	}
	if len(got.Tools) != 0 {
		t.Errorf("Tools = %v, want empty", got.Tools)
	}
	if got.RegistrationPieceCID != "bafy-piece" {
		t.Errorf("RegistrationPieceCID = %q, want %q", got.RegistrationPieceCID, "bafy-piece")
	}
	if got.CreatedAt.IsZero() {
		t.Error("expected CreatedAt to be set")
	}

	agent.Prompt = "Updated."
	if err := s.SaveAgent(ctx, agent); err != nil {
		t.Fatalf("SaveAgent (update) failed: %v", err)
	}
	got, _ = s.GetAgent(ctx, 7)
	if got.Prompt != "Updated." {
		t.Errorf("Prompt = %q, want %q", got.Prompt, "Updated.")
	}
}

func TestGetAgent_NotFound(t *testing.T) {
	s := newTestStorage(t)

	_, err := s.GetAgent(context.Background(), 404)
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestListAgents(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	agents, err := s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents failed: %v", err)
	}
	if len(agents) != 0 {
		t.Errorf("expected 0 agents, got %d", len(agents))
	}

	for _, id := range []int64{3, 1, 2} {
		if err := s.SaveAgent(ctx, &Agent{ID: id, Name: "a", Model: "m"}); err != nil {
			t.Fatalf("SaveAgent failed: %v", err)
		}
	}

	agents, err = s.ListAgents(ctx)
	if err != nil {
		t.Fatalf("ListAgents failed: %v", err)
	}
	if len(agents) != 3 {
		t.Fatalf("expected 3 agents, got %d", len(agents))
	}
	for i, a := range agents {
		if a.ID != int64(i+1) {
			t.Errorf("agents[%d].ID = %d, want %d", i, a.ID, i+1)
		}
	}
}

func saveTestCard(t *testing.T, s *Storage, agentID int64, hrid string) int64 {
	t.Helper()
	id, err := s.SaveAgentCard(context.Background(), &a2a.AgentCard{
		AgentID:         agentID,
		HumanReadableID: hrid,
		Name:            "Card " + hrid,
		URL:             "http://localhost:8080/agents/1/a2a",
		Version:         "1.0.0",
		Provider:        &a2a.AgentProvider{Organization: "Acme"},
		Skills:          []a2a.Skill{{ID: "chat", Name: "Chat"}},
		Tags:            []string{"demo"},
	})
	if err != nil {
		t.Fatalf("SaveAgentCard failed: %v", err)
	}
	return id
}

func TestFindAgentCard(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	rowID := saveTestCard(t, s, 1, "acme/researcher")
	saveTestCard(t, s, 2, "acme/writer")

	one, two := int64(1), int64(2)
	hrid := "acme/researcher"

	tests := []struct {
		name     string
		filter   CardFilter
		wantName string
		wantErr  bool
	}{
		{"by id", CardFilter{ID: &rowID}, "Card acme/researcher", false},
		{"by human readable id", CardFilter{HumanReadableID: &hrid}, "Card acme/researcher", false},
		{"by agent id", CardFilter{AgentID: &two}, "Card acme/writer", false},
		{"conjunction match", CardFilter{HumanReadableID: &hrid, AgentID: &one}, "Card acme/researcher", false},
		{"conjunction mismatch", CardFilter{HumanReadableID: &hrid, AgentID: &two}, "", true},
		{"empty filter", CardFilter{}, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, err := s.FindAgentCard(ctx, tt.filter)
			if tt.wantErr {
				if !errors.Is(err, ErrNotFound) {
					t.Fatalf("err = %v, want ErrNotFound", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("FindAgentCard failed: %v", err)
			}
			if rec.Name != tt.wantName {
				t.Errorf("Name = %q, want %q", rec.Name, tt.wantName)
			}
		})
	}
}

func TestFindAgentCard_RawSubFields(t *testing.T) {
	s := newTestStorage(t)
	saveTestCard(t, s, 1, "")

	one := int64(1)
	rec, err := s.FindAgentCard(context.Background(), CardFilter{AgentID: &one})
	if err != nil {
		t.Fatalf("FindAgentCard failed: %v", err)
	}
	if rec.HumanReadableID != "" {
		t.Errorf("HumanReadableID = %q, want empty", rec.HumanReadableID)
	}
	if rec.Provider == nil || rec.Skills == nil {
		t.Fatal("expected provider and skills to be returned")
	}
	if rec.CreatedAt == nil {
		t.Error("expected CreatedAt to be returned")
	}
}

func TestSaveAgentCard_Upsert(t *testing.T) {
	s := newTestStorage(t)
	first := saveTestCard(t, s, 1, "v1")
	second := saveTestCard(t, s, 1, "v2")

	if first != second {
		t.Errorf("row id changed on upsert: %d != %d", first, second)
	}

	one := int64(1)
	rec, err := s.FindAgentCard(context.Background(), CardFilter{AgentID: &one})
	if err != nil {
		t.Fatalf("FindAgentCard failed: %v", err)
	}
	if rec.HumanReadableID != "v2" {
		t.Errorf("HumanReadableID = %q, want %q", rec.HumanReadableID, "v2")
	}
}

func TestChatHistory(t *testing.T) {
	s := newTestStorage(t)
	ctx := context.Background()

	conv, err := s.LoadConversation(ctx, 1, "chat-1")
	if err != nil {
		t.Fatalf("LoadConversation failed: %v", err)
	}
	if len(conv.Messages) != 0 {
		t.Fatalf("expected empty conversation, got %d messages", len(conv.Messages))
	}

	user := conv.AddMessage(conversation.RoleUser, "hello")
	reply := conv.AddMessage(conversation.RoleAssistant, "hi there")
	reply.CreatedAt = user.CreatedAt.Add(time.Millisecond)
	if err := s.AppendChatMessages(ctx, 1, "chat-1", user, reply); err != nil {
		t.Fatalf("AppendChatMessages failed: %v", err)
	}
	if err := s.AppendChatMessages(ctx, 2, "chat-1", conversation.Message{
		ID: "other", Role: conversation.RoleUser, Content: "other agent", CreatedAt: time.Now(),
	}); err != nil {
		t.Fatalf("AppendChatMessages failed: %v", err)
	}

	loaded, err := s.LoadConversation(ctx, 1, "chat-1")
	if err != nil {
		t.Fatalf("LoadConversation failed: %v", err)
	}
	if loaded.ID != "chat-1" || loaded.AgentID != 1 {
		t.Errorf("conversation = %q/%d, want chat-1/1", loaded.ID, loaded.AgentID)
	}
	if len(loaded.Messages) != 2 {
		t.Fatalf("Messages count = %d, want 2", len(loaded.Messages))
	}
	if loaded.Messages[0].Role != conversation.RoleUser || loaded.Messages[1].Content != "hi there" {
		t.Errorf("unexpected messages: %+v", loaded.Messages)
	}
}
