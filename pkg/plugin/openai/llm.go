package openai

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sort"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"github.com/finvox/finvox-go/pkg/ai/llm"
)

// LLM implements llm.LLM over the chat completions API.
type LLM struct {
	client *openai.Client
	model  string
}

// NewLLM creates a chat provider.
func NewLLM(c Config) *LLM {
	return &LLM{client: newClient(c), model: c.Model}
}

func (o *LLM) request(req llm.ChatRequest) openai.ChatCompletionRequest {
	model := req.Model
	if model == "" {
		model = o.model
	}
	out := openai.ChatCompletionRequest{
		Model:       model,
		Messages:    toMessages(req.Messages),
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
	}
	for _, fn := range req.Functions {
		out.Tools = append(out.Tools, openai.Tool{
			Type: openai.ToolTypeFunction,
			Function: &openai.FunctionDefinition{
				Name:        fn.Name,
				Description: fn.Description,
				Parameters:  fn.Parameters,
			},
		})
	}
	return out
}

func toMessages(msgs []llm.Message) []openai.ChatCompletionMessage {
	out := make([]openai.ChatCompletionMessage, len(msgs))
	for i, m := range msgs {
		msg := openai.ChatCompletionMessage{
			Role:       string(m.Role),
			Content:    m.Content,
			ToolCallID: m.ToolCallID,
		}
		if m.Role != llm.RoleTool {
			msg.Name = m.Name
		}
		for _, tc := range m.ToolCalls {
			msg.ToolCalls = append(msg.ToolCalls, openai.ToolCall{
				ID:   tc.ID,
				Type: openai.ToolTypeFunction,
				Function: openai.FunctionCall{
					Name:      tc.Name,
					Arguments: tc.Arguments,
				},
			})
		}
		out[i] = msg
	}
	return out
}

// Chat performs a non-streamed chat completion.
func (o *LLM) Chat(ctx context.Context, req llm.ChatRequest) (llm.ChatResponse, error) {
	start := time.Now()
	resp, err := o.client.CreateChatCompletion(ctx, o.request(req))
	if err != nil {
		return llm.ChatResponse{}, classify(err, "chat completion failed")
	}
	if len(resp.Choices) == 0 {
		return llm.ChatResponse{}, fmt.Errorf("no chat completion choices returned")
	}

	choice := resp.Choices[0]
	msg := llm.Message{
		Role:    llm.MessageRole(choice.Message.Role),
		Content: choice.Message.Content,
	}
	for _, tc := range choice.Message.ToolCalls {
		msg.ToolCalls = append(msg.ToolCalls, llm.ToolCall{
			ID:        tc.ID,
			Name:      tc.Function.Name,
			Arguments: tc.Function.Arguments,
		})
	}

	slog.Debug("Chat completion finished",
		slog.String("model", resp.Model),
		slog.Int("tokens", resp.Usage.TotalTokens),
		slog.Duration("elapsed", time.Since(start)))

	return llm.ChatResponse{
		Message:      msg,
		TokensUsed:   resp.Usage.TotalTokens,
		FinishReason: string(choice.FinishReason),
	}, nil
}

// ChatStream performs a streamed chat completion. Tool call fragments are
// assembled and delivered in the final chunk.
func (o *LLM) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.ChatStream, error) {
	s, err := o.client.CreateChatCompletionStream(ctx, o.request(req))
	if err != nil {
		return nil, classify(err, "chat stream failed")
	}
	return &chatStream{stream: s, calls: make(map[int]*llm.ToolCall)}, nil
}

type chatStream struct {
	stream *openai.ChatCompletionStream
	calls  map[int]*llm.ToolCall
	finish string
	done   bool
}

func (c *chatStream) Recv() (llm.Chunk, error) {
	for {
		if c.done {
			return llm.Chunk{}, io.EOF
		}

		resp, err := c.stream.Recv()
		if errors.Is(err, io.EOF) {
			c.done = true
			calls := c.assembled()
			if len(calls) == 0 && c.finish == "" {
				return llm.Chunk{}, io.EOF
			}
			return llm.Chunk{ToolCalls: calls, FinishReason: c.finish}, nil
		}
		if err != nil {
			return llm.Chunk{}, classify(err, "chat stream failed")
		}
		if len(resp.Choices) == 0 {
			continue
		}

		choice := resp.Choices[0]
		for i, tc := range choice.Delta.ToolCalls {
			c.accumulate(i, tc)
		}
		if choice.FinishReason != "" {
			c.finish = string(choice.FinishReason)
		}
		if choice.Delta.Content != "" {
			return llm.Chunk{Delta: choice.Delta.Content}, nil
		}
	}
}

// accumulate merges a tool call fragment. Fragments are keyed by their
// index; providers that omit it send whole calls in order.
func (c *chatStream) accumulate(pos int, tc openai.ToolCall) {
	idx := pos
	if tc.Index != nil {
		idx = *tc.Index
	}
	call, ok := c.calls[idx]
	if !ok {
		call = &llm.ToolCall{}
		c.calls[idx] = call
	}
	if tc.ID != "" {
		call.ID = tc.ID
	}
	if tc.Function.Name != "" {
		call.Name = tc.Function.Name
	}
	call.Arguments += tc.Function.Arguments
}

func (c *chatStream) assembled() []llm.ToolCall {
	if len(c.calls) == 0 {
		return nil
	}
	idxs := make([]int, 0, len(c.calls))
	for i := range c.calls {
		idxs = append(idxs, i)
	}
	sort.Ints(idxs)

	out := make([]llm.ToolCall, 0, len(idxs))
	for _, i := range idxs {
		call := *c.calls[i]
		if call.ID == "" {
			call.ID = fmt.Sprintf("call_%d", i)
		}
		out = append(out, call)
	}
	return out
}

func (c *chatStream) Close() error {
	return c.stream.Close()
}

// Capabilities returns the provider's capabilities.
func (o *LLM) Capabilities() llm.LLMCapabilities {
	return llm.LLMCapabilities{
		SupportsFunctions:  true,
		SupportsStreaming:  true,
		MaxTokens:          128000,
		SupportedModels:    []string{o.model},
		SupportsSystemRole: true,
	}
}
