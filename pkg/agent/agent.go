// Package agent runs the conversational banking agent: a language model
// with a fixed set of tools, driven one user turn at a time. Assistant text
// streams out as it is generated; tool calls requested by the model are
// executed and their results fed back until the model produces an answer.
package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/finvox/finvox-go/pkg/ai"
	"github.com/finvox/finvox-go/pkg/ai/llm"
)

// DefaultMaxToolRounds bounds how many times one turn may go back to the
// model with tool results.
const DefaultMaxToolRounds = 5

// ToolDispatcher is the tool surface the agent needs. *tools.Registry
// implements it.
type ToolDispatcher interface {
	Definitions() []llm.FunctionDefinition
	Dispatch(ctx context.Context, name, args string) (string, error)
}

// DeltaFunc receives each piece of streamed assistant text. Returning an
// error aborts the run.
type DeltaFunc func(delta string) error

// ToolObserver is notified after every tool call.
type ToolObserver func(name string, elapsed time.Duration, err error)

// Config holds configuration for creating an Agent.
type Config struct {
	LLM          llm.LLM
	Tools        ToolDispatcher // optional
	SystemPrompt string
	Model        string

	MaxToolRounds int
	Temperature   float32
	MaxTokens     int

	// Retry applies to opening each model stream. Defaults to ai.DefaultRetryConfig.
	Retry *ai.RetryConfig

	Logger     *slog.Logger
	OnToolCall ToolObserver
}

// Agent is safe for concurrent use; each Run carries its own conversation.
type Agent struct {
	llm          llm.LLM
	tools        ToolDispatcher
	systemPrompt string
	model        string
	maxRounds    int
	temperature  float32
	maxTokens    int
	retry        ai.RetryConfig
	logger       *slog.Logger
	onToolCall   ToolObserver
}

// New creates an Agent. It is the single place agents are configured.
func New(cfg Config) (*Agent, error) {
	if cfg.LLM == nil {
		return nil, fmt.Errorf("LLM is required")
	}
	a := &Agent{
		llm:          cfg.LLM,
		tools:        cfg.Tools,
		systemPrompt: cfg.SystemPrompt,
		model:        cfg.Model,
		maxRounds:    cfg.MaxToolRounds,
		temperature:  cfg.Temperature,
		maxTokens:    cfg.MaxTokens,
		retry:        ai.DefaultRetryConfig,
		logger:       cfg.Logger,
		onToolCall:   cfg.OnToolCall,
	}
	if a.maxRounds <= 0 {
		a.maxRounds = DefaultMaxToolRounds
	}
	if cfg.Retry != nil {
		a.retry = *cfg.Retry
	}
	if a.logger == nil {
		a.logger = slog.Default()
	}
	return a, nil
}

// Run answers prompt given the earlier conversation in history. Text deltas
// are passed to onDelta as they arrive; the full answer is returned.
//
// The first round that ends without tool calls finishes the run. Once
// MaxToolRounds rounds of tool calls have run, the model is asked one last
// time with tools withheld.
func (a *Agent) Run(ctx context.Context, prompt string, history []llm.Message, onDelta DeltaFunc) (string, error) {
	messages := a.buildMessages(prompt, history)

	var full strings.Builder
	for round := 0; ; round++ {
		withTools := a.tools != nil && round < a.maxRounds

		text, calls, err := a.streamRound(ctx, messages, withTools, onDelta)
		full.WriteString(text)
		if err != nil {
			return full.String(), err
		}
		if len(calls) == 0 {
			return full.String(), nil
		}
		if !withTools {
			// Tools were withheld but the model still asked for them.
			a.logger.Warn("Ignoring tool calls past round limit", slog.Int("calls", len(calls)))
			return full.String(), nil
		}

		a.logger.Debug("Model requested tools", slog.Int("round", round+1), slog.Int("calls", len(calls)))
		messages = append(messages, llm.Message{
			Role:      llm.RoleAssistant,
			Content:   text,
			ToolCalls: calls,
		})
		for _, call := range calls {
			result, err := a.callTool(ctx, call)
			if err != nil && ctx.Err() != nil {
				return full.String(), ctx.Err()
			}
			messages = append(messages, llm.Message{
				Role:       llm.RoleTool,
				Name:       call.Name,
				Content:    result,
				ToolCallID: call.ID,
			})
		}
	}
}

func (a *Agent) buildMessages(prompt string, history []llm.Message) []llm.Message {
	messages := make([]llm.Message, 0, len(history)+2)
	if a.systemPrompt != "" {
		messages = append(messages, llm.Message{Role: llm.RoleSystem, Content: a.systemPrompt})
	}
	messages = append(messages, history...)

	// History loaded after storing the turn already ends with the prompt.
	if n := len(history); n > 0 && history[n-1].Role == llm.RoleUser && history[n-1].Content == prompt {
		return messages
	}
	return append(messages, llm.Message{Role: llm.RoleUser, Content: prompt})
}

func (a *Agent) streamRound(ctx context.Context, messages []llm.Message, withTools bool, onDelta DeltaFunc) (string, []llm.ToolCall, error) {
	req := llm.ChatRequest{
		Model:       a.model,
		Messages:    messages,
		MaxTokens:   a.maxTokens,
		Temperature: a.temperature,
	}
	if withTools {
		req.Functions = a.tools.Definitions()
	}

	stream, err := ai.Retry(ctx, a.retry, a.logger, "llm.chat_stream", func(ctx context.Context) (llm.ChatStream, error) {
		return a.llm.ChatStream(ctx, req)
	})
	if err != nil {
		return "", nil, fmt.Errorf("open chat stream: %w", err)
	}
	defer stream.Close()

	var (
		text  strings.Builder
		calls []llm.ToolCall
	)
	for {
		chunk, err := stream.Recv()
		if errors.Is(err, io.EOF) {
			return text.String(), calls, nil
		}
		if err != nil {
			return text.String(), calls, fmt.Errorf("chat stream: %w", err)
		}
		if chunk.Delta != "" {
			text.WriteString(chunk.Delta)
			if onDelta != nil {
				if err := onDelta(chunk.Delta); err != nil {
					return text.String(), calls, err
				}
			}
		}
		calls = append(calls, chunk.ToolCalls...)
	}
}

func (a *Agent) callTool(ctx context.Context, call llm.ToolCall) (string, error) {
	start := time.Now()
	result, err := a.tools.Dispatch(ctx, call.Name, call.Arguments)
	elapsed := time.Since(start)

	if a.onToolCall != nil {
		a.onToolCall(call.Name, elapsed, err)
	}
	if err != nil {
		a.logger.Warn("Tool call failed",
			slog.String("tool", call.Name),
			slog.String("error", err.Error()))
		if result == "" {
			result = fmt.Sprintf(`{"error":%q}`, err.Error())
		}
		return result, err
	}

	a.logger.Info("Tool call completed",
		slog.String("tool", call.Name),
		slog.Duration("elapsed", elapsed))
	return result, nil
}
