package metrics

import (
	"io"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"

	"agent-host/internal/a2a"
)

func TestRequestHandled(t *testing.T) {
	m := New()

	m.RequestHandled("message/send", 0, 10*time.Millisecond)
	m.RequestHandled("message/send", 0, 20*time.Millisecond)
	m.RequestHandled("tasks/get", -32001, time.Millisecond)
	m.RequestHandled("tasks/frobnicate", -32601, time.Millisecond)
	m.RequestHandled("", -32700, time.Millisecond)

	tests := []struct {
		method string
		code   string
		want   float64
	}{
		{"message/send", "0", 2},
		{"tasks/get", "-32001", 1},
		{"other", "-32601", 1},
		{"other", "-32700", 1},
	}
	for _, tt := range tests {
		got := testutil.ToFloat64(m.requests.WithLabelValues(tt.method, tt.code))
		if got != tt.want {
			t.Errorf("requests{%s,%s} = %v, want %v", tt.method, tt.code, got, tt.want)
		}
	}

	if n := testutil.CollectAndCount(m.requests); n != 4 {
		t.Errorf("request series = %d, want 4", n)
	}
}

func TestTaskMetrics(t *testing.T) {
	m := New()

	m.TaskTransitioned(a2a.TaskStateSubmitted)
	m.TaskTransitioned(a2a.TaskStateWorking)
	m.TaskTransitioned(a2a.TaskStateCompleted)
	m.TaskFinished(a2a.TaskStateCompleted, 2*time.Second)

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed transitions = %v, want 1", got)
	}
	if n := testutil.CollectAndCount(m.transitions); n != 3 {
		t.Errorf("transition series = %d, want 3", n)
	}
	if n := testutil.CollectAndCount(m.taskDuration); n != 1 {
		t.Errorf("duration series = %d, want 1", n)
	}
}

func TestHandler(t *testing.T) {
	m := New()
	m.RequestHandled("tasks/cancel", -32002, time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))

	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `agent_host_rpc_requests_total{code="-32002",method="tasks/cancel"} 1`) {
		t.Errorf("exposition missing request counter:\n%s", body)
	}
	if !strings.Contains(string(body), "go_goroutines") {
		t.Error("exposition missing Go collector")
	}
}
