package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"agent-host/internal/a2a"
	"agent-host/internal/agent"
	"agent-host/internal/card"
	"agent-host/internal/config"
	"agent-host/internal/llm"
	"agent-host/internal/metrics"
	"agent-host/internal/rpc"
	"agent-host/internal/storage"
	"agent-host/internal/task"
)

type cannedLLM struct{ reply string }

func (c cannedLLM) Generate(context.Context, string, []llm.Message) (string, error) {
	return c.reply, nil
}

func newTestServer(t *testing.T) *Server {
	t.Helper()

	db, err := storage.Open(filepath.Join(t.TempDir(), "agents.db"))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	cfg := &config.Config{
		Host:           "127.0.0.1",
		Port:           8080,
		PublicURL:      "http://agents.test",
		DefaultAgentID: 1,
		Agents: []config.AgentConfig{
			{
				ID:    1,
				Name:  "greeter",
				Model: "openai:gpt-4o",
				Card: &config.CardConfig{
					HumanReadableID: "acme/greeter",
					Description:     "Says hello",
					Skills:          []config.SkillConfig{{ID: "greet", Name: "Greet"}},
				},
			},
			{ID: 2, Name: "second", Model: "openai:gpt-4o"},
		},
	}
	require.NoError(t, agent.Seed(context.Background(), db, cfg))

	registry := agent.NewRegistry(db,
		agent.WithHistory(db),
		agent.WithClientFactory(func(string) (llm.Client, error) {
			return cannedLLM{reply: "hi there"}, nil
		}),
	)
	m := metrics.New()
	executor := task.NewExecutor(task.NewStore(), registry, task.WithObserver(m))
	dispatcher := rpc.NewDispatcher(executor, rpc.WithObserver(m))

	return New(cfg, dispatcher, card.NewResolver(db),
		WithMetrics(m.Handler()),
		WithAccessLog(io.Discard),
	)
}

func post(t *testing.T, s *Server, path, body string) map[string]any {
	t.Helper()
	req := httptest.NewRequest("POST", path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	resp, err := s.app.Test(req, -1)
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var out map[string]any
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&out))
	return out
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/health", nil))
	require.NoError(t, err)
	assert.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.JSONEq(t, `{"status":"ok"}`, string(body))
}

func TestA2A_MessageSend(t *testing.T) {
	s := newTestServer(t)

	out := post(t, s, "/a2a",
		`{"jsonrpc":"2.0","id":1,"method":"message/send","params":{"message":{"role":"user","parts":[{"kind":"text","text":"hello"}]}}}`)

	assert.Equal(t, "2.0", out["jsonrpc"])
	assert.EqualValues(t, 1, out["id"])
	result := out["result"].(map[string]any)
	assert.Equal(t, "completed", result["status"].(map[string]any)["state"])

	history := result["history"].([]any)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].(map[string]any)["role"])
	reply := history[1].(map[string]any)
	assert.Equal(t, "assistant", reply["role"])
	assert.Equal(t, "hi there", reply["parts"].([]any)[0].(map[string]any)["text"])

	taskID := result["id"].(string)
	got := post(t, s, "/agents/1/a2a",
		`{"jsonrpc":"2.0","id":"q","method":"tasks/get","params":{"id":"`+taskID+`"}}`)
	assert.Equal(t, "q", got["id"])
	assert.Equal(t, taskID, got["result"].(map[string]any)["id"])

	canceled := post(t, s, "/a2a",
		`{"jsonrpc":"2.0","id":3,"method":"tasks/cancel","params":{"id":"`+taskID+`"}}`)
	assert.EqualValues(t, -32002, canceled["error"].(map[string]any)["code"])
}

func TestA2A_UnknownAgent(t *testing.T) {
	s := newTestServer(t)

	out := post(t, s, "/agents/99/a2a",
		`{"jsonrpc":"2.0","id":5,"method":"message/send","params":{"message":{"parts":[{"kind":"text","text":"hello"}]}}}`)

	rpcErr := out["error"].(map[string]any)
	assert.EqualValues(t, -32000, rpcErr["code"])
	assert.EqualValues(t, 5, out["id"])
	assert.Contains(t, rpcErr["data"], "taskId")
}

func TestA2A_ParseError(t *testing.T) {
	s := newTestServer(t)

	out := post(t, s, "/a2a", `{"jsonrpc":`)

	assert.Nil(t, out["id"])
	assert.EqualValues(t, -32700, out["error"].(map[string]any)["code"])
}

func TestA2A_BadAgentID(t *testing.T) {
	s := newTestServer(t)

	req := httptest.NewRequest("POST", "/agents/abc/a2a", strings.NewReader(`{}`))
	resp, err := s.app.Test(req)
	require.NoError(t, err)
	assert.Equal(t, 404, resp.StatusCode)
}

func TestAgentCard(t *testing.T) {
	s := newTestServer(t)

	tests := []struct {
		name     string
		path     string
		wantCode int
		wantName string
	}{
		{"default agent", "/.well-known/agent.json", 200, "greeter"},
		{"by agent id", "/agents/2/.well-known/agent.json", 200, "second"},
		{"by human readable id", "/.well-known/agent.json?humanReadableId=acme/greeter", 200, "greeter"},
		{"unknown agent", "/agents/99/.well-known/agent.json", 404, ""},
		{"unknown human readable id", "/.well-known/agent.json?humanReadableId=nobody", 404, ""},
		{"invalid agent id", "/agents/x/.well-known/agent.json", 404, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := s.app.Test(httptest.NewRequest("GET", tt.path, nil))
			require.NoError(t, err)
			require.Equal(t, tt.wantCode, resp.StatusCode)

			if tt.wantCode != 200 {
				var env map[string]string
				require.NoError(t, json.NewDecoder(resp.Body).Decode(&env))
				assert.Equal(t, "agent card not found", env["error"])
				return
			}

			var got a2a.AgentCard
			require.NoError(t, json.NewDecoder(resp.Body).Decode(&got))
			assert.Equal(t, tt.wantName, got.Name)
			assert.True(t, strings.HasPrefix(got.URL, "http://agents.test/agents/"))
		})
	}
}

func TestMetricsEndpoint(t *testing.T) {
	s := newTestServer(t)
	post(t, s, "/a2a", `{"jsonrpc":"2.0","id":1,"method":"tasks/frobnicate"}`)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/metrics", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	body, _ := io.ReadAll(resp.Body)
	assert.Contains(t, string(body), `agent_host_rpc_requests_total{code="-32601",method="other"} 1`)
}

func TestDocs(t *testing.T) {
	s := newTestServer(t)

	resp, err := s.app.Test(httptest.NewRequest("GET", "/docs/json", nil))
	require.NoError(t, err)
	require.Equal(t, 200, resp.StatusCode)

	var spec APISpec
	require.NoError(t, json.NewDecoder(resp.Body).Decode(&spec))
	assert.Equal(t, "Agent Host API", spec.Title)

	paths := make(map[string]bool)
	for _, ep := range spec.Endpoints {
		paths[ep.Method+" "+ep.Path] = true
	}
	assert.True(t, paths["POST /agents/:id/a2a"])
	assert.True(t, paths["GET /.well-known/agent.json"])

	html, err := s.app.Test(httptest.NewRequest("GET", "/docs", nil))
	require.NoError(t, err)
	assert.Equal(t, "text/html", html.Header.Get("Content-Type"))
}
