// Package rpc routes A2A JSON-RPC requests to the task executor.
package rpc

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"agent-host/internal/a2a"
	"agent-host/internal/task"
)

// Observer is notified once per handled request. code is zero on success.
type Observer interface {
	RequestHandled(method string, code int, elapsed time.Duration)
}

// Dispatcher validates JSON-RPC envelopes and routes them by method.
type Dispatcher struct {
	executor *task.Executor
	logger   *log.Logger
	observer Observer
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithLogger sets the dispatcher logger.
func WithLogger(l *log.Logger) Option {
	return func(d *Dispatcher) { d.logger = l }
}

// WithObserver registers a request observer.
func WithObserver(o Observer) Option {
	return func(d *Dispatcher) { d.observer = o }
}

// NewDispatcher creates a dispatcher running tasks through executor.
func NewDispatcher(executor *task.Executor, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		executor: executor,
		logger:   log.New(io.Discard),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch decodes a raw request body and handles it on behalf of agentID.
// Bodies that are not JSON get a parse error; JSON that is not a request
// object gets an invalid request error. Both carry the request id when one
// can be recovered.
func (d *Dispatcher) Dispatch(ctx context.Context, agentID int64, body []byte) a2a.Response {
	if !json.Valid(body) {
		d.observe("", a2a.CodeParseError, 0)
		return a2a.NewErrorResponse(nil, a2a.NewError(a2a.CodeParseError, "Parse error"))
	}

	var req a2a.Request
	if err := json.Unmarshal(body, &req); err != nil {
		var probe struct {
			ID json.RawMessage `json:"id"`
		}
		_ = json.Unmarshal(body, &probe)
		d.observe("", a2a.CodeInvalidRequest, 0)
		return a2a.NewErrorResponse(echoID(probe.ID), invalidRequest(err.Error()))
	}
	return d.Handle(ctx, agentID, req)
}

// Handle routes a decoded request. The response always carries the request's
// own id, whatever happened while handling it.
func (d *Dispatcher) Handle(ctx context.Context, agentID int64, req a2a.Request) (resp a2a.Response) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("panic while handling request", "method", req.Method, "panic", r)
			resp = a2a.NewErrorResponse(nil, a2a.NewError(a2a.CodeInternalError, fmt.Sprint(r)))
		}
		resp.JSONRPC = a2a.JSONRPCVersion
		resp.ID = echoID(req.ID)

		code := 0
		if resp.Error != nil {
			code = resp.Error.Code
		}
		d.observe(req.Method, code, time.Since(start))
	}()

	if req.JSONRPC != a2a.JSONRPCVersion {
		return a2a.NewErrorResponse(nil, invalidRequest(fmt.Sprintf("jsonrpc must be %q", a2a.JSONRPCVersion)))
	}
	if req.Method == "" {
		return a2a.NewErrorResponse(nil, invalidRequest("method is required"))
	}
	if !a2a.ValidID(req.ID) {
		return a2a.NewErrorResponse(nil, invalidRequest("id must be a string, a number or null"))
	}

	d.logger.Debug("dispatching request", "method", req.Method, "agent", agentID)

	var (
		result any
		rpcErr *a2a.RPCError
	)
	switch req.Method {
	case a2a.MethodMessageSend, a2a.MethodTasksSend:
		result, rpcErr = d.sendMessage(ctx, agentID, req.Params)
	case a2a.MethodTasksGet:
		result, rpcErr = d.getTask(req.Params)
	case a2a.MethodTasksCancel:
		result, rpcErr = d.cancelTask(req.Params)
	default:
		rpcErr = a2a.NewError(a2a.CodeMethodNotFound, "Method not found: "+req.Method)
	}

	if rpcErr != nil {
		return a2a.NewErrorResponse(nil, rpcErr)
	}
	return a2a.NewResult(nil, result)
}

func (d *Dispatcher) sendMessage(ctx context.Context, agentID int64, raw json.RawMessage) (any, *a2a.RPCError) {
	var params a2a.MessageSendParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if err := validateMessage(params.Message); err != nil {
		return nil, err
	}

	contextID := params.ContextID
	if contextID == "" {
		contextID = params.Message.ContextID
	}

	t, err := d.executor.Execute(ctx, task.Submission{
		AgentID:   agentID,
		Message:   *params.Message,
		ContextID: contextID,
		Metadata:  params.Metadata,
	})
	if err != nil {
		rpcErr := a2a.NewError(a2a.CodeInternalError, err.Error())
		var execErr *task.ExecutionError
		if errors.As(err, &execErr) {
			rpcErr.Data = map[string]any{"taskId": execErr.TaskID}
		}
		return nil, rpcErr
	}
	return t, nil
}

func (d *Dispatcher) getTask(raw json.RawMessage) (any, *a2a.RPCError) {
	var params a2a.TaskQueryParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, invalidParams("id is required")
	}
	if params.HistoryLength != nil && *params.HistoryLength < 0 {
		return nil, invalidParams("historyLength must not be negative")
	}

	t, ok := d.executor.Store().Get(params.ID)
	if !ok {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, "Task not found")
	}
	if n := params.HistoryLength; n != nil && *n < len(t.History) {
		t.History = t.History[len(t.History)-*n:]
	}
	return t, nil
}

func (d *Dispatcher) cancelTask(raw json.RawMessage) (any, *a2a.RPCError) {
	var params a2a.TaskIDParams
	if err := decodeParams(raw, &params); err != nil {
		return nil, err
	}
	if params.ID == "" {
		return nil, invalidParams("id is required")
	}

	if !d.executor.Cancel(params.ID) {
		return nil, a2a.NewError(a2a.CodeTaskNotCancelable, "Task cannot be canceled")
	}
	t, ok := d.executor.Store().Get(params.ID)
	if !ok {
		return nil, a2a.NewError(a2a.CodeTaskNotFound, "Task not found")
	}
	return t, nil
}

func (d *Dispatcher) observe(method string, code int, elapsed time.Duration) {
	if d.observer != nil {
		d.observer.RequestHandled(method, code, elapsed)
	}
}

func decodeParams(raw json.RawMessage, out any) *a2a.RPCError {
	if len(raw) == 0 || string(raw) == "null" {
		return invalidParams("params are required")
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return invalidParams(err.Error())
	}
	return nil
}

func validateMessage(m *a2a.Message) *a2a.RPCError {
	if m == nil {
		return invalidParams("message is required")
	}
	if len(m.Parts) == 0 {
		return invalidParams("message.parts must not be empty")
	}
	if m.Role == "" {
		m.Role = a2a.RoleUser
	}
	if !m.Role.Valid() {
		return invalidParams(fmt.Sprintf("unknown role %q", m.Role))
	}
	for i, p := range m.Parts {
		if err := p.Validate(); err != nil {
			return invalidParams(fmt.Sprintf("parts[%d]: %v", i, err))
		}
	}
	return nil
}

func invalidParams(detail string) *a2a.RPCError {
	return &a2a.RPCError{Code: a2a.CodeInvalidParams, Message: "Invalid params", Data: detail}
}

func invalidRequest(detail string) *a2a.RPCError {
	return &a2a.RPCError{Code: a2a.CodeInvalidRequest, Message: "Invalid Request", Data: detail}
}

// echoID returns id when it may be echoed, and null otherwise.
func echoID(id json.RawMessage) json.RawMessage {
	if len(id) == 0 || !a2a.ValidID(id) {
		return nil
	}
	return id
}
