// Package tools holds the functions the agent may call and dispatches the
// model's tool calls to them. Arguments are validated against each tool's
// JSON schema before the handler sees them.
package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/finvox/finvox-go/pkg/ai/llm"
)

// ErrUnknownTool is returned by Dispatch for names that were never registered.
var ErrUnknownTool = errors.New("unknown tool")

// Handler executes a tool call. args has already passed schema validation.
// The result is JSON-encoded and returned to the model.
type Handler func(ctx context.Context, args json.RawMessage) (any, error)

// Tool describes a callable function.
type Tool struct {
	Name        string
	Description string
	Parameters  string // JSON schema of the arguments object
	Handler     Handler
}

type entry struct {
	tool   Tool
	schema *jsonschema.Schema
	params json.RawMessage
}

// Registry holds tools by name, in registration order.
type Registry struct {
	mu     sync.RWMutex
	tools  map[string]*entry
	order  []string
	logger *slog.Logger
}

// NewRegistry creates a registry and registers tools.
func NewRegistry(logger *slog.Logger, tools ...Tool) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}
	r := &Registry{tools: make(map[string]*entry), logger: logger}
	for _, t := range tools {
		if err := r.Register(t); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register compiles the tool's schema and adds it to the registry.
func (r *Registry) Register(t Tool) error {
	if t.Name == "" {
		return errors.New("tool name is required")
	}
	if t.Handler == nil {
		return fmt.Errorf("tool %s: handler is required", t.Name)
	}
	params := t.Parameters
	if strings.TrimSpace(params) == "" {
		params = `{"type":"object","properties":{}}`
	}

	schema, err := jsonschema.CompileString(t.Name+".json", params)
	if err != nil {
		return fmt.Errorf("tool %s: compile schema: %w", t.Name, err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.tools[t.Name]; exists {
		return fmt.Errorf("tool %s already registered", t.Name)
	}
	r.tools[t.Name] = &entry{tool: t, schema: schema, params: json.RawMessage(params)}
	r.order = append(r.order, t.Name)
	return nil
}

// Names returns the registered tool names, sorted.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := append([]string(nil), r.order...)
	sort.Strings(names)
	return names
}

// Definitions describes every tool for an LLM request.
func (r *Registry) Definitions() []llm.FunctionDefinition {
	r.mu.RLock()
	defer r.mu.RUnlock()

	defs := make([]llm.FunctionDefinition, 0, len(r.order))
	for _, name := range r.order {
		e := r.tools[name]
		defs = append(defs, llm.FunctionDefinition{
			Name:        e.tool.Name,
			Description: e.tool.Description,
			Parameters:  e.params,
		})
	}
	return defs
}

// Dispatch runs the named tool with JSON-encoded arguments and returns the
// JSON result for the model. Invalid arguments and handler failures become an
// error result the model can read; only an unknown tool or a cancelled
// context produce an error.
func (r *Registry) Dispatch(ctx context.Context, name, args string) (string, error) {
	r.mu.RLock()
	e, ok := r.tools[name]
	r.mu.RUnlock()
	if !ok {
		return errorResult(fmt.Sprintf("unknown tool %q", name)), fmt.Errorf("%w: %s", ErrUnknownTool, name)
	}

	if strings.TrimSpace(args) == "" {
		args = "{}"
	}
	if err := validate(e.schema, args); err != nil {
		r.logger.Warn("Tool arguments rejected",
			slog.String("tool", name),
			slog.String("args", args),
			slog.String("error", err.Error()))
		return errorResult("invalid arguments: " + err.Error()), nil
	}

	r.logger.Debug("Dispatching tool", slog.String("tool", name), slog.String("args", args))
	result, err := e.tool.Handler(ctx, json.RawMessage(args))
	if err != nil {
		if ctx.Err() != nil {
			return "", ctx.Err()
		}
		r.logger.Error("Tool failed", slog.String("tool", name), slog.String("error", err.Error()))
		return errorResult(err.Error()), nil
	}

	out, err := json.Marshal(result)
	if err != nil {
		return errorResult("encode result: " + err.Error()), nil
	}
	return string(out), nil
}

func validate(schema *jsonschema.Schema, args string) error {
	dec := json.NewDecoder(strings.NewReader(args))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("malformed JSON: %w", err)
	}
	return schema.Validate(v)
}

func errorResult(msg string) string {
	out, _ := json.Marshal(map[string]string{"error": msg})
	return string(out)
}
