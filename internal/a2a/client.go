package a2a

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

const httpClientTimeout = 60 * time.Second

// WellKnownCardPath is where an agent publishes its discovery document.
const WellKnownCardPath = "/.well-known/agent.json"

// Client communicates with an A2A agent over HTTP.
//
// The base URL is the agent root: the card is fetched from
// base + /.well-known/agent.json and JSON-RPC calls go to base + /a2a.
type Client struct {
	baseURL    string
	httpClient *http.Client
	nextID     atomic.Int64
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// WithHTTPClient replaces the default HTTP client.
func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient creates a new A2A client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: httpClientTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the agent base URL.
func (c *Client) URL() string { return c.baseURL }

// FetchAgentCard retrieves the agent card from /.well-known/agent.json.
func (c *Client) FetchAgentCard(ctx context.Context) (*AgentCard, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+WellKnownCardPath, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create agent card request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch agent card: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read agent card response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("agent card request failed with status %d: %s", resp.StatusCode, body)
	}

	var card AgentCard
	if err := json.Unmarshal(body, &card); err != nil {
		return nil, fmt.Errorf("failed to parse agent card: %w", err)
	}

	return &card, nil
}

// SendMessage sends a text message to the agent and returns the resulting task.
// An empty contextID starts a task outside any conversation.
func (c *Client) SendMessage(ctx context.Context, text, contextID string) (*Task, error) {
	params := MessageSendParams{
		Message:   &Message{Role: RoleUser, Parts: []Part{NewTextPart(text)}},
		ContextID: contextID,
	}

	var task Task
	if err := c.call(ctx, MethodMessageSend, params, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// GetTask retrieves a task by ID. A positive historyLength trims the returned history.
func (c *Client) GetTask(ctx context.Context, taskID string, historyLength int) (*Task, error) {
	params := TaskQueryParams{ID: taskID}
	if historyLength > 0 {
		params.HistoryLength = &historyLength
	}

	var task Task
	if err := c.call(ctx, MethodTasksGet, params, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

// CancelTask asks the agent to cancel a task that has not finished yet.
func (c *Client) CancelTask(ctx context.Context, taskID string) (*Task, error) {
	var task Task
	if err := c.call(ctx, MethodTasksCancel, TaskIDParams{ID: taskID}, &task); err != nil {
		return nil, err
	}

	return &task, nil
}

type rawResponse struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  json.RawMessage `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// call sends a JSON-RPC 2.0 request to the agent.
// Protocol errors are returned as *RPCError.
func (c *Client) call(ctx context.Context, method string, params any, result any) error {
	id := c.nextID.Add(1)

	rawParams, err := json.Marshal(params)
	if err != nil {
		return fmt.Errorf("failed to marshal A2A params: %w", err)
	}

	rpcReq := Request{
		JSONRPC: JSONRPCVersion,
		ID:      json.RawMessage(strconv.FormatInt(id, 10)),
		Method:  method,
		Params:  rawParams,
	}

	body, err := json.Marshal(rpcReq)
	if err != nil {
		return fmt.Errorf("failed to marshal A2A request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/a2a", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create A2A request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("failed to send A2A request: %w", err)
	}
	defer httpResp.Body.Close()

	respBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return fmt.Errorf("failed to read A2A response: %w", err)
	}

	var rpcResp rawResponse
	if err := json.Unmarshal(respBody, &rpcResp); err != nil {
		return fmt.Errorf("failed to parse A2A response: %w", err)
	}

	if got := string(bytes.TrimSpace(rpcResp.ID)); got != strconv.FormatInt(id, 10) {
		return fmt.Errorf("A2A response id %s does not match request id %d", got, id)
	}

	if rpcResp.Error != nil {
		return rpcResp.Error
	}

	if result != nil && rpcResp.Result != nil {
		if err := json.Unmarshal(rpcResp.Result, result); err != nil {
			return fmt.Errorf("failed to unmarshal A2A result: %w", err)
		}
	}

	return nil
}
