package mcp

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	mcpclient "github.com/mark3labs/mcp-go/client"
	"github.com/mark3labs/mcp-go/client/transport"
	mcpgo "github.com/mark3labs/mcp-go/mcp"
)

const (
	httpClientTimeout = 30 * time.Second
	connectRetryDelay = 500 * time.Millisecond
	connectMaxRetries = 20 // 20 * 500ms = 10s max wait
)

// HTTPClient communicates with an MCP server over Streamable HTTP.
type HTTPClient struct {
	url        string
	retries    int
	retryDelay time.Duration
	logger     *log.Logger

	mu      sync.Mutex
	client  *mcpclient.Client
	tools   []Tool
	started bool
}

// ClientOption configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithRetries sets how many connection attempts Start makes and the pause between them.
func WithRetries(attempts int, delay time.Duration) ClientOption {
	return func(c *HTTPClient) {
		c.retries = max(attempts, 1)
		c.retryDelay = delay
	}
}

// WithClientLogger sets the client logger.
func WithClientLogger(l *log.Logger) ClientOption {
	return func(c *HTTPClient) { c.logger = l }
}

// NewHTTPClient creates a new HTTP MCP client.
func NewHTTPClient(url string, opts ...ClientOption) *HTTPClient {
	c := &HTTPClient{
		url:        url,
		retries:    connectMaxRetries,
		retryDelay: connectRetryDelay,
		logger:     log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the server endpoint.
func (c *HTTPClient) URL() string { return c.url }

// Start connects to the MCP server and loads tools.
// It retries the connection to handle startup race conditions (e.g., Docker Compose).
func (c *HTTPClient) Start(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.started {
		return nil
	}

	var lastErr error
	for attempt := range c.retries {
		if err := c.connect(ctx); err != nil {
			lastErr = err
			if attempt < c.retries-1 {
				c.logger.Warn("MCP connection attempt failed, retrying",
					"url", c.url, "attempt", attempt+1, "of", c.retries, "err", err)
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(c.retryDelay):
				}
			}
			continue
		}
		c.started = true
		return nil
	}

	return fmt.Errorf("failed to connect to MCP server %s after %d attempts: %w", c.url, c.retries, lastErr)
}

// connect attempts a single connection to the MCP server.
func (c *HTTPClient) connect(ctx context.Context) error {
	t, err := transport.NewStreamableHTTP(c.url)
	if err != nil {
		return fmt.Errorf("transport error: %w", err)
	}
	client := mcpclient.NewClient(t)

	ctx, cancel := context.WithTimeout(ctx, httpClientTimeout)
	defer cancel()

	initReq := mcpgo.InitializeRequest{}
	initReq.Params.ProtocolVersion = mcpgo.LATEST_PROTOCOL_VERSION
	initReq.Params.ClientInfo = mcpgo.Implementation{
		Name:    "agent-host",
		Version: "1.0.0",
	}
	initReq.Params.Capabilities = mcpgo.ClientCapabilities{}

	if _, err := client.Initialize(ctx, initReq); err != nil {
		client.Close()
		return fmt.Errorf("failed to send request: %w", err)
	}

	// Load available tools
	if err := c.loadToolsFrom(ctx, client); err != nil {
		client.Close()
		return fmt.Errorf("failed to load tools: %w", err)
	}

	c.client = client
	return nil
}

// Stop closes the connection to the MCP server.
func (c *HTTPClient) Stop() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.started {
		return nil
	}

	c.started = false
	return c.client.Close()
}

// Tools returns the available tools.
func (c *HTTPClient) Tools() []Tool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tools
}

// loadToolsFrom fetches tools from the given client and converts them.
func (c *HTTPClient) loadToolsFrom(ctx context.Context, client *mcpclient.Client) error {
	result, err := client.ListTools(ctx, mcpgo.ListToolsRequest{})
	if err != nil {
		return err
	}

	c.tools = make([]Tool, 0, len(result.Tools))
	for _, t := range result.Tools {
		tool := adaptTool(t)
		tool.Server = c.url
		c.tools = append(c.tools, tool)
	}
	return nil
}

// adaptTool converts an mcp-go Tool to our internal Tool type.
func adaptTool(t mcpgo.Tool) Tool {
	tool := Tool{
		Name:        t.Name,
		Description: t.Description,
		InputSchema: adaptInputSchema(t.InputSchema),
	}

	// destructiveHint defaults to true in MCP, so only an explicit annotation counts here
	if t.Annotations.ReadOnlyHint != nil && *t.Annotations.ReadOnlyHint {
		tool.DestructiveHint = false
	} else if t.Annotations.DestructiveHint != nil {
		tool.DestructiveHint = *t.Annotations.DestructiveHint
	}

	return tool
}

// adaptInputSchema converts an mcp-go ToolInputSchema to our InputSchema.
func adaptInputSchema(schema mcpgo.ToolInputSchema) InputSchema {
	is := InputSchema{
		Type:     schema.Type,
		Required: schema.Required,
	}

	if schema.Properties != nil {
		is.Properties = make(map[string]Property)
		for name, prop := range schema.Properties {
			p := Property{}
			if propMap, ok := prop.(map[string]any); ok {
				if t, ok := propMap["type"].(string); ok {
					p.Type = t
				}
				if d, ok := propMap["description"].(string); ok {
					p.Description = d
				}
			}
			is.Properties[name] = p
		}
	}

	return is
}
