package a2a

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// JSON-RPC 2.0 protocol types for A2A communication.

// JSONRPCVersion is the only protocol version accepted on the wire.
const JSONRPCVersion = "2.0"

// A2A method names.
const (
	MethodMessageSend = "message/send"
	MethodTasksSend   = "tasks/send"
	MethodTasksGet    = "tasks/get"
	MethodTasksCancel = "tasks/cancel"
)

// JSON-RPC error codes, including the A2A task-specific range.
const (
	CodeParseError        = -32700
	CodeInvalidRequest    = -32600
	CodeMethodNotFound    = -32601
	CodeInvalidParams     = -32602
	CodeInternalError     = -32000
	CodeTaskNotFound      = -32001
	CodeTaskNotCancelable = -32002
)

// Request represents a JSON-RPC 2.0 request.
// ID is kept raw so it can be echoed back byte for byte.
type Request struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Method  string          `json:"method"`
	Params  json.RawMessage `json:"params,omitempty"`
}

// Response represents a JSON-RPC 2.0 response.
type Response struct {
	JSONRPC string          `json:"jsonrpc"`
	ID      json.RawMessage `json:"id"`
	Result  any             `json:"result,omitempty"`
	Error   *RPCError       `json:"error,omitempty"`
}

// RPCError represents a JSON-RPC 2.0 error.
type RPCError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data,omitempty"`
}

func (e *RPCError) Error() string {
	return fmt.Sprintf("A2A error %d: %s", e.Code, e.Message)
}

// NewError builds an RPCError with the given code and message.
func NewError(code int, message string) *RPCError {
	return &RPCError{Code: code, Message: message}
}

// NewResult wraps a successful result in a response envelope.
func NewResult(id json.RawMessage, result any) Response {
	return Response{JSONRPC: JSONRPCVersion, ID: id, Result: result}
}

// NewErrorResponse wraps an error in a response envelope.
func NewErrorResponse(id json.RawMessage, err *RPCError) Response {
	return Response{JSONRPC: JSONRPCVersion, ID: id, Error: err}
}

// ValidID reports whether raw is an id JSON-RPC allows: a string, a number or null.
// An absent id is also accepted and echoes back as null.
func ValidID(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return true
	}
	switch c := trimmed[0]; {
	case c == '"':
		var s string
		return json.Unmarshal(trimmed, &s) == nil
	case c == '-' || (c >= '0' && c <= '9'):
		var n json.Number
		return json.Unmarshal(trimmed, &n) == nil
	}
	return false
}

// TaskState is the lifecycle state of a task.
type TaskState string

const (
	TaskStateSubmitted TaskState = "submitted"
	TaskStateWorking   TaskState = "working"
	TaskStateCompleted TaskState = "completed"
	TaskStateFailed    TaskState = "failed"
	TaskStateCanceled  TaskState = "canceled"
)

// IsTerminal reports whether no further transition is allowed out of s.
func (s TaskState) IsTerminal() bool {
	switch s {
	case TaskStateCompleted, TaskStateFailed, TaskStateCanceled:
		return true
	}
	return false
}

// Task represents an A2A task.
type Task struct {
	ID        string         `json:"id"`
	ContextID string         `json:"contextId,omitempty"`
	Status    TaskStatus     `json:"status"`
	History   []Message      `json:"history"`
	Metadata  map[string]any `json:"metadata,omitempty"`
	CreatedAt time.Time      `json:"createdAt"`
	UpdatedAt time.Time      `json:"updatedAt"`
}

// Clone returns a copy that shares no slices or maps with t.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.History != nil {
		c.History = make([]Message, len(t.History))
		for i, m := range t.History {
			c.History[i] = m.Clone()
		}
	}
	c.Metadata = cloneMap(t.Metadata)
	return &c
}

// TaskStatus represents the status of an A2A task.
type TaskStatus struct {
	State   TaskState `json:"state"`
	Message string    `json:"message,omitempty"`
	Error   string    `json:"error,omitempty"`
}

// Role identifies the author of a message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleAgent     Role = "agent"
	RoleSystem    Role = "system"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case RoleUser, RoleAssistant, RoleAgent, RoleSystem:
		return true
	}
	return false
}

// Message represents an A2A message.
type Message struct {
	MessageID string         `json:"messageId,omitempty"`
	Role      Role           `json:"role"`
	Parts     []Part         `json:"parts"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// NewTextMessage builds a single-part text message.
func NewTextMessage(role Role, text string) Message {
	return Message{Role: role, Parts: []Part{NewTextPart(text)}}
}

// Text joins the text parts of m with newlines. Other part kinds are skipped.
func (m Message) Text() string {
	var texts []string
	for _, p := range m.Parts {
		if p.Kind == PartKindText {
			texts = append(texts, p.Text)
		}
	}
	return strings.Join(texts, "\n")
}

// Clone returns a copy of m that shares no slices or maps with it.
func (m Message) Clone() Message {
	c := m
	if m.Parts != nil {
		c.Parts = make([]Part, len(m.Parts))
		copy(c.Parts, m.Parts)
	}
	c.Metadata = cloneMap(m.Metadata)
	return c
}

// PartKind tags the payload carried by a Part.
type PartKind string

const (
	PartKindText     PartKind = "text"
	PartKindFile     PartKind = "file"
	PartKindData     PartKind = "data"
	PartKindArtifact PartKind = "artifact"
)

// Part represents a content part in an A2A message.
// Exactly one payload field is meaningful for a given Kind.
type Part struct {
	Kind       PartKind       `json:"kind"`
	Text       string         `json:"text,omitempty"`
	File       *FileContent   `json:"file,omitempty"`
	Data       map[string]any `json:"data,omitempty"`
	ArtifactID string         `json:"artifactId,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}

// UnmarshalJSON accepts the older "type" tag when "kind" is absent.
func (p *Part) UnmarshalJSON(data []byte) error {
	type partAlias Part
	var aux struct {
		partAlias
		Type PartKind `json:"type"`
	}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	*p = Part(aux.partAlias)
	if p.Kind == "" {
		p.Kind = aux.Type
	}
	return nil
}

// Validate checks that the part has a known kind and the matching payload.
func (p Part) Validate() error {
	switch p.Kind {
	case PartKindText:
		return nil
	case PartKindFile:
		if p.File == nil {
			return fmt.Errorf("file part without file payload")
		}
	case PartKindData:
		if p.Data == nil {
			return fmt.Errorf("data part without data payload")
		}
	case PartKindArtifact:
		if p.ArtifactID == "" {
			return fmt.Errorf("artifact part without artifactId")
		}
	default:
		return fmt.Errorf("unknown part kind %q", p.Kind)
	}
	return nil
}

// NewTextPart builds a text part.
func NewTextPart(text string) Part {
	return Part{Kind: PartKindText, Text: text}
}

// FileContent is the payload of a file part: inline base64 bytes or a URI.
type FileContent struct {
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
	Bytes    string `json:"bytes,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// MessageSendParams is the params for the message/send and tasks/send methods.
type MessageSendParams struct {
	Message   *Message       `json:"message"`
	ContextID string         `json:"contextId,omitempty"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// TaskQueryParams is the params for the tasks/get method.
type TaskQueryParams struct {
	ID            string `json:"id"`
	HistoryLength *int   `json:"historyLength,omitempty"`
}

// TaskIDParams is the params for the tasks/cancel method.
type TaskIDParams struct {
	ID string `json:"id"`
}

// AgentCard describes an A2A agent's identity and capabilities.
type AgentCard struct {
	Name               string            `json:"name"`
	Description        string            `json:"description,omitempty"`
	URL                string            `json:"url"`
	Version            string            `json:"version"`
	DocumentationURL   string            `json:"documentationUrl,omitempty"`
	HumanReadableID    string            `json:"humanReadableId,omitempty"`
	AgentID            int64             `json:"agentId,omitempty"`
	Provider           *AgentProvider    `json:"provider,omitempty"`
	Capabilities       AgentCapabilities `json:"capabilities"`
	AuthSchemes        []string          `json:"authSchemes,omitempty"`
	Skills             []Skill           `json:"skills"`
	Tags               []string          `json:"tags,omitempty"`
	DefaultInputModes  []string          `json:"defaultInputModes,omitempty"`
	DefaultOutputModes []string          `json:"defaultOutputModes,omitempty"`
	CreatedAt          string            `json:"createdAt,omitempty"`
	UpdatedAt          string            `json:"updatedAt,omitempty"`
}

// AgentProvider names the organization operating an agent.
type AgentProvider struct {
	Organization string `json:"organization"`
	URL          string `json:"url,omitempty"`
}

// AgentCapabilities lists optional protocol features an agent supports.
type AgentCapabilities struct {
	Streaming              bool `json:"streaming"`
	PushNotifications      bool `json:"pushNotifications"`
	StateTransitionHistory bool `json:"stateTransitionHistory"`
}

// Skill describes a capability of an A2A agent.
type Skill struct {
	ID          string   `json:"id"`
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	Examples    []string `json:"examples,omitempty"`
}

func cloneMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	c := make(map[string]any, len(m))
	for k, v := range m {
		c[k] = v
	}
	return c
}
