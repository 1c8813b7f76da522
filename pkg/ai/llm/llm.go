// Package llm provides interfaces and types for chat-completion providers
// with tool calling and streamed responses.
package llm

import (
	"context"
	"errors"
	"io"
	"strings"

	"github.com/finvox/finvox-go/pkg/ai"
)

// LLM-specific error variables
var (
	// ErrRecoverable indicates a temporary LLM failure that may succeed if retried.
	// Examples: rate limiting, temporary service error, timeout.
	ErrRecoverable = ai.ErrRecoverable

	// ErrFatal indicates a permanent LLM failure that will not succeed if retried.
	// Examples: invalid API key, unsupported model, content policy violation.
	ErrFatal = ai.ErrFatal
)

// MessageRole represents the role of a message in a chat conversation.
type MessageRole string

const (
	RoleSystem    MessageRole = "system"
	RoleUser      MessageRole = "user"
	RoleAssistant MessageRole = "assistant"
	RoleTool      MessageRole = "tool"
)

// Message represents a single message in a chat conversation.
type Message struct {
	Role       MessageRole
	Content    string
	Name       string
	ToolCalls  []ToolCall // assistant messages that request tools
	ToolCallID string     // tool messages answering a call
}

// ToolCall is a complete tool invocation requested by the model.
type ToolCall struct {
	ID        string
	Name      string
	Arguments string // JSON-encoded arguments
}

// FunctionDefinition defines a function that the LLM can call.
type FunctionDefinition struct {
	Name        string
	Description string
	Parameters  any // JSON schema
}

// ChatRequest contains parameters for a chat completion request.
type ChatRequest struct {
	Model       string // provider default when empty
	Messages    []Message
	MaxTokens   int
	Temperature float32
	TopP        float32
	Functions   []FunctionDefinition
}

// ChatResponse contains the response from a chat completion request.
type ChatResponse struct {
	Message      Message
	TokensUsed   int
	FinishReason string
}

// Chunk is one streamed piece of a response. Text arrives as deltas; tool calls
// are only emitted once fully assembled.
type Chunk struct {
	Delta        string
	ToolCalls    []ToolCall
	FinishReason string
}

// ChatStream yields response chunks. Recv returns io.EOF after the last chunk.
type ChatStream interface {
	Recv() (Chunk, error)
	Close() error
}

// LLMCapabilities describes the capabilities of an LLM provider.
type LLMCapabilities struct {
	SupportsFunctions  bool
	SupportsStreaming  bool
	MaxTokens          int
	SupportedModels    []string
	SupportsSystemRole bool
}

// LLM is the main interface for large language model providers.
type LLM interface {
	// Chat performs a chat completion request.
	Chat(ctx context.Context, req ChatRequest) (ChatResponse, error)

	// ChatStream performs a streamed chat completion request.
	ChatStream(ctx context.Context, req ChatRequest) (ChatStream, error)

	// Capabilities returns the provider's capabilities.
	Capabilities() LLMCapabilities
}

// Drain reads a stream to the end, returning the concatenated text and any
// tool calls it carried.
func Drain(stream ChatStream) (string, []ToolCall, error) {
	defer stream.Close()

	var (
		text  strings.Builder
		calls []ToolCall
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), calls, nil
		}
		if err != nil {
			return text.String(), calls, err
		}
		text.WriteString(chunk.Delta)
		calls = append(calls, chunk.ToolCalls...)
	}
}
