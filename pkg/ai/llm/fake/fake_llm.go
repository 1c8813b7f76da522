package fake

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/finvox/finvox-go/pkg/ai/llm"
)

// Reply is one scripted model turn: text, tool calls, or both.
type Reply struct {
	Text      string
	ToolCalls []llm.ToolCall
}

// FakeLLM is a fake LLM implementation for testing.
//
// With a script it plays the replies back in order. Without one it behaves
// like a tiny banking assistant: the first turn after a user message calls the
// tool whose name best matches the question, and the turn after a tool result
// reads that result back.
type FakeLLM struct {
	mu       sync.Mutex
	script   []Reply
	next     int
	requests []llm.ChatRequest
}

// NewFakeLLM creates a new fake LLM provider with scripted replies.
func NewFakeLLM(script ...Reply) *FakeLLM {
	return &FakeLLM{script: script}
}

// Requests returns a copy of every request received.
func (f *FakeLLM) Requests() []llm.ChatRequest {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]llm.ChatRequest, len(f.requests))
	copy(out, f.requests)
	return out
}

// Chat returns the next reply as a single message.
func (f *FakeLLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	if err := ctx.Err(); err != nil {
		return llm.ChatResponse{}, err
	}
	reply := f.reply(req)

	finish := "stop"
	if len(reply.ToolCalls) > 0 {
		finish = "tool_calls"
	}
	return llm.ChatResponse{
		Message: llm.Message{
			Role:      llm.RoleAssistant,
			Content:   reply.Text,
			ToolCalls: reply.ToolCalls,
		},
		TokensUsed:   len(strings.Fields(reply.Text)) + 10,
		FinishReason: finish,
	}, nil
}

// ChatStream streams the next reply word by word.
func (f *FakeLLM) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.ChatStream, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	reply := f.reply(req)

	var chunks []llm.Chunk
	words := strings.SplitAfter(reply.Text, " ")
	for _, w := range words {
		if w != "" {
			chunks = append(chunks, llm.Chunk{Delta: w})
		}
	}
	final := llm.Chunk{FinishReason: "stop"}
	if len(reply.ToolCalls) > 0 {
		final.ToolCalls = reply.ToolCalls
		final.FinishReason = "tool_calls"
	}
	chunks = append(chunks, final)

	return &stream{ctx: ctx, chunks: chunks}, nil
}

func (f *FakeLLM) reply(req llm.ChatRequest) Reply {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.requests = append(f.requests, req)
	if len(f.script) > 0 {
		r := f.script[f.next%len(f.script)]
		f.next++
		return r
	}
	return autoReply(req)
}

func autoReply(req llm.ChatRequest) Reply {
	if len(req.Messages) == 0 {
		return Reply{Text: "How can I help you with your banking today?"}
	}

	last := req.Messages[len(req.Messages)-1]
	if last.Role == llm.RoleTool {
		return Reply{Text: "Here is what I found. " + summarize(last.Content)}
	}

	if last.Role == llm.RoleUser && len(req.Functions) > 0 {
		if name := matchTool(last.Content, req.Functions); name != "" {
			args := defaultArgs(name)
			return Reply{ToolCalls: []llm.ToolCall{{ID: "call_" + name, Name: name, Arguments: args}}}
		}
	}
	return Reply{Text: fmt.Sprintf("You said: %s", last.Content)}
}

var keywords = map[string][]string{
	"get_account_balance":     {"balance", "how much money"},
	"get_recent_transactions": {"transaction", "recent", "history"},
	"summarize_spending":      {"spend", "spent", "budget"},
	"detect_unusual_spending": {"unusual", "suspicious", "fraud"},
	"get_bank_schemes":        {"scheme", "deposit", "interest"},
}

func matchTool(text string, defs []llm.FunctionDefinition) string {
	lower := strings.ToLower(text)
	for _, def := range defs {
		for _, kw := range keywords[def.Name] {
			if strings.Contains(lower, kw) {
				return def.Name
			}
		}
	}
	return ""
}

func defaultArgs(name string) string {
	args := map[string]any{}
	if name == "summarize_spending" {
		args["time_period"] = "this month"
	}
	b, _ := json.Marshal(args)
	return string(b)
}

func summarize(content string) string {
	const limit = 200
	if len(content) > limit {
		return content[:limit] + "..."
	}
	return content
}

type stream struct {
	ctx    context.Context
	chunks []llm.Chunk
	pos    int
	closed bool
}

func (s *stream) Recv() (llm.Chunk, error) {
	if err := s.ctx.Err(); err != nil {
		return llm.Chunk{}, err
	}
	if s.closed || s.pos >= len(s.chunks) {
		return llm.Chunk{}, io.EOF
	}
	c := s.chunks[s.pos]
	s.pos++
	return c, nil
}

func (s *stream) Close() error {
	s.closed = true
	return nil
}

// Capabilities returns the fake LLM capabilities.
func (f *FakeLLM) Capabilities() llm.LLMCapabilities {
	return llm.LLMCapabilities{
		SupportsFunctions:  true,
		SupportsStreaming:  true,
		MaxTokens:          4096,
		SupportedModels:    []string{"fake-model"},
		SupportsSystemRole: true,
	}
}
