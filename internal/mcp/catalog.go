package mcp

import (
	"context"
	"errors"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/sync/errgroup"
)

const discoveryConcurrency = 4

// Catalog discovers the tools of MCP servers and keeps one connection per server URL.
type Catalog struct {
	logger     *log.Logger
	retries    int
	retryDelay time.Duration

	mu      sync.Mutex
	clients map[string]*HTTPClient
}

// CatalogOption configures a Catalog.
type CatalogOption func(*Catalog)

// WithLogger sets the catalog logger.
func WithLogger(l *log.Logger) CatalogOption {
	return func(c *Catalog) { c.logger = l }
}

// WithConnectRetries sets the connection attempts made per server on each discovery.
func WithConnectRetries(attempts int, delay time.Duration) CatalogOption {
	return func(c *Catalog) {
		c.retries = attempts
		c.retryDelay = delay
	}
}

// NewCatalog creates an empty catalog.
func NewCatalog(opts ...CatalogOption) *Catalog {
	c := &Catalog{
		logger:  log.New(io.Discard),
		retries: 1,
		clients: make(map[string]*HTTPClient),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Tools returns the merged tool list of the servers at urls, in url order.
// Unreachable servers are logged and skipped. When two servers expose a tool
// with the same name, the first one keeps it.
func (c *Catalog) Tools(ctx context.Context, urls []string) []Tool {
	results := make([][]Tool, len(urls))

	var g errgroup.Group
	g.SetLimit(discoveryConcurrency)
	for i, url := range urls {
		g.Go(func() error {
			client := c.client(url)
			if err := client.Start(ctx); err != nil {
				c.logger.Warn("MCP server unavailable", "url", url, "err", err)
				return nil
			}
			results[i] = client.Tools()
			return nil
		})
	}
	_ = g.Wait()

	var tools []Tool
	owner := make(map[string]string)
	for _, serverTools := range results {
		for _, tool := range serverTools {
			if first, ok := owner[tool.Name]; ok {
				c.logger.Warn("duplicate MCP tool name", "tool", tool.Name, "kept", first, "ignored", tool.Server)
				continue
			}
			owner[tool.Name] = tool.Server
			tools = append(tools, tool)
		}
	}
	return tools
}

// Close disconnects from every server.
func (c *Catalog) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	var errs []error
	for _, client := range c.clients {
		if err := client.Stop(); err != nil {
			errs = append(errs, err)
		}
	}
	c.clients = make(map[string]*HTTPClient)
	return errors.Join(errs...)
}

func (c *Catalog) client(url string) *HTTPClient {
	c.mu.Lock()
	defer c.mu.Unlock()

	client, ok := c.clients[url]
	if !ok {
		client = NewHTTPClient(url,
			WithRetries(c.retries, c.retryDelay),
			WithClientLogger(c.logger),
		)
		c.clients[url] = client
	}
	return client
}
