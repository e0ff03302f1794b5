package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "agent.yaml")
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestLoad(t *testing.T) {
	tests := []struct {
		name        string
		yaml        string
		wantHost    string
		wantPort    int
		wantTimeout time.Duration
		wantDefault int64
		wantPublic  string
		wantErr     string
	}{
		{
			name:        "empty config uses defaults",
			yaml:        "{}\n",
			wantHost:    "0.0.0.0",
			wantPort:    8080,
			wantTimeout: 2 * time.Minute,
			wantPublic:  "http://localhost:8080",
		},
		{
			name:        "custom values override defaults",
			yaml:        "host: localhost\nport: 9090\ntask_timeout: 30s\npublic_url: https://agents.example\n",
			wantHost:    "localhost",
			wantPort:    9090,
			wantTimeout: 30 * time.Second,
			wantPublic:  "https://agents.example",
		},
		{
			name:        "default agent is the first seeded agent",
			yaml:        "agents:\n  - id: 4\n    name: a\n    model: openai:gpt-4o\n  - id: 2\n    name: b\n    model: ollama:llama3\n",
			wantHost:    "0.0.0.0",
			wantPort:    8080,
			wantTimeout: 2 * time.Minute,
			wantDefault: 4,
			wantPublic:  "http://localhost:8080",
		},
		{
			name:    "invalid yaml returns error",
			yaml:    "invalid: yaml: [[[",
			wantErr: "failed to parse",
		},
		{
			name:    "duplicate agent id",
			yaml:    "agents:\n  - id: 1\n    name: a\n    model: m:x\n  - id: 1\n    name: b\n    model: m:y\n",
			wantErr: "duplicate id",
		},
		{
			name:    "agent without model",
			yaml:    "agents:\n  - id: 1\n    name: a\n",
			wantErr: "model is required",
		},
		{
			name:    "unknown default agent",
			yaml:    "default_agent_id: 9\nagents:\n  - id: 1\n    name: a\n    model: m:x\n",
			wantErr: "default_agent_id",
		},
		{
			name:    "negative timeout",
			yaml:    "task_timeout: -5s\n",
			wantErr: "task_timeout",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr != "" {
				if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
					t.Fatalf("err = %v, want containing %q", err, tt.wantErr)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			if cfg.Host != tt.wantHost {
				t.Errorf("Host = %q, want %q", cfg.Host, tt.wantHost)
			}
			if cfg.Port != tt.wantPort {
				t.Errorf("Port = %d, want %d", cfg.Port, tt.wantPort)
			}
			if cfg.TaskTimeout != tt.wantTimeout {
				t.Errorf("TaskTimeout = %v, want %v", cfg.TaskTimeout, tt.wantTimeout)
			}
			if cfg.DefaultAgentID != tt.wantDefault {
				t.Errorf("DefaultAgentID = %d, want %d", cfg.DefaultAgentID, tt.wantDefault)
			}
			if cfg.PublicURL != tt.wantPublic {
				t.Errorf("PublicURL = %q, want %q", cfg.PublicURL, tt.wantPublic)
			}
		})
	}
}

func TestLoad_AgentCard(t *testing.T) {
	yaml := `
agents:
  - id: 1
    name: researcher
    model: anthropic:claude-sonnet-4-6
    prompt: You research things.
    knowledge_bases: [papers]
    mcp_servers: ["http://localhost:8090/mcp"]
    address: "0xabc"
    registration_piece_cid: bafy
    card:
      human_readable_id: acme/researcher
      description: Finds sources
      provider:
        organization: Acme
      capabilities:
        state_transition_history: true
      skills:
        - id: research
          name: Research
`
	cfg, err := Load(writeConfig(t, yaml))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	a := cfg.Agents[0]
	if a.MCPServers[0] != "http://localhost:8090/mcp" {
		t.Errorf("MCPServers = %v", a.MCPServers)
	}
	if a.Card == nil {
		t.Fatal("expected card to be parsed")
	}
	if a.Card.Version != "1.0.0" {
		t.Errorf("Card.Version = %q, want default 1.0.0", a.Card.Version)
	}
	if !a.Card.Capabilities.StateTransitionHistory {
		t.Error("expected state_transition_history to be true")
	}
	if a.Card.Provider == nil || a.Card.Provider.Organization != "Acme" {
		t.Errorf("Provider = %+v", a.Card.Provider)
	}
	if len(a.Card.Skills) != 1 || a.Card.Skills[0].ID != "research" {
		t.Errorf("Skills = %+v", a.Card.Skills)
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/agent.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestAddr(t *testing.T) {
	cfg := &Config{Host: "127.0.0.1", Port: 7000}
	if got := cfg.Addr(); got != "127.0.0.1:7000" {
		t.Errorf("Addr() = %q, want %q", got, "127.0.0.1:7000")
	}
}
