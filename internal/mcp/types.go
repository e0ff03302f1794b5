package mcp

// Tool represents an MCP tool definition.
type Tool struct {
	Name            string      `json:"name"`
	Description     string      `json:"description"`
	InputSchema     InputSchema `json:"inputSchema"`
	DestructiveHint bool        `json:"destructiveHint,omitempty"`
	Server          string      `json:"server,omitempty"`
}

// InputSchema defines the JSON schema for tool inputs.
type InputSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property defines a property in the input schema.
type Property struct {
	Type        string `json:"type"`
	Description string `json:"description,omitempty"`
}
