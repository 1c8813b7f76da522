package agent

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"
	"time"

	"github.com/matryer/is"

	"github.com/finvox/finvox-go/pkg/ai"
	"github.com/finvox/finvox-go/pkg/ai/llm"
	"github.com/finvox/finvox-go/pkg/ai/llm/fake"
	"github.com/finvox/finvox-go/pkg/tools"
)

var quiet = slog.New(slog.NewTextHandler(io.Discard, nil))

func balanceTools(t *testing.T) *tools.Registry {
	t.Helper()
	r, err := tools.NewRegistry(quiet, tools.Tool{
		Name:        "get_account_balance",
		Description: "balance",
		Parameters:  `{"type":"object","properties":{"customer_name":{"type":"string"}}}`,
		Handler: func(context.Context, json.RawMessage) (any, error) {
			return []map[string]any{{"customer_name": "Shivamani", "current_balance": 16872}}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	return r
}

func TestNew_RequiresLLM(t *testing.T) {
	is := is.New(t)

	_, err := New(Config{})
	is.True(err != nil)

	a, err := New(Config{LLM: fake.NewFakeLLM()})
	is.NoErr(err)
	is.Equal(a.maxRounds, DefaultMaxToolRounds)
}

func TestRun_StreamsText(t *testing.T) {
	is := is.New(t)

	model := fake.NewFakeLLM(fake.Reply{Text: "Your balance is fine."})
	a, err := New(Config{LLM: model, SystemPrompt: "be brief", Logger: quiet})
	is.NoErr(err)

	var deltas []string
	got, err := a.Run(context.Background(), "how am I doing?", nil, func(d string) error {
		deltas = append(deltas, d)
		return nil
	})
	is.NoErr(err)
	is.Equal(got, "Your balance is fine.")
	is.Equal(strings.Join(deltas, ""), got)
	is.True(len(deltas) > 1) // streamed word by word

	req := model.Requests()[0]
	is.Equal(req.Messages[0].Role, llm.RoleSystem)
	is.Equal(req.Messages[0].Content, "be brief")
	is.Equal(req.Messages[len(req.Messages)-1].Content, "how am I doing?")
}

func TestRun_ExecutesTools(t *testing.T) {
	is := is.New(t)

	var observed []string
	a, err := New(Config{
		LLM:    fake.NewFakeLLM(), // auto mode: call the matching tool, then read it back
		Tools:  balanceTools(t),
		Logger: quiet,
		OnToolCall: func(name string, _ time.Duration, err error) {
			observed = append(observed, name)
		},
	})
	is.NoErr(err)

	got, err := a.Run(context.Background(), "What is my balance?", nil, nil)
	is.NoErr(err)
	is.True(strings.HasPrefix(got, "Here is what I found."))
	is.True(strings.Contains(got, "16872"))
	is.Equal(observed, []string{"get_account_balance"})
}

func TestRun_ToolMessagesFollowCalls(t *testing.T) {
	is := is.New(t)

	model := fake.NewFakeLLM(
		fake.Reply{ToolCalls: []llm.ToolCall{{ID: "call_1", Name: "get_account_balance", Arguments: `{}`}}},
		fake.Reply{Text: "Done."},
	)
	a, err := New(Config{LLM: model, Tools: balanceTools(t), Logger: quiet})
	is.NoErr(err)

	_, err = a.Run(context.Background(), "balance", nil, nil)
	is.NoErr(err)

	reqs := model.Requests()
	is.Equal(len(reqs), 2)
	msgs := reqs[1].Messages
	assistant, tool := msgs[len(msgs)-2], msgs[len(msgs)-1]
	is.Equal(assistant.Role, llm.RoleAssistant)
	is.Equal(assistant.ToolCalls[0].ID, "call_1")
	is.Equal(tool.Role, llm.RoleTool)
	is.Equal(tool.ToolCallID, "call_1")
	is.True(strings.Contains(tool.Content, "16872"))
}

func TestRun_UnknownToolResultGoesBackToModel(t *testing.T) {
	is := is.New(t)

	model := fake.NewFakeLLM(
		fake.Reply{ToolCalls: []llm.ToolCall{{ID: "c", Name: "transfer_money", Arguments: `{}`}}},
		fake.Reply{Text: "I can't do that."},
	)
	a, err := New(Config{LLM: model, Tools: balanceTools(t), Logger: quiet})
	is.NoErr(err)

	got, err := a.Run(context.Background(), "send money", nil, nil)
	is.NoErr(err)
	is.Equal(got, "I can't do that.")

	msgs := model.Requests()[1].Messages
	is.True(strings.Contains(msgs[len(msgs)-1].Content, "unknown tool"))
}

func TestRun_RoundLimitWithholdsTools(t *testing.T) {
	is := is.New(t)

	loop := fake.Reply{ToolCalls: []llm.ToolCall{{ID: "c", Name: "get_account_balance", Arguments: `{}`}}}
	model := fake.NewFakeLLM(loop, loop, fake.Reply{Text: "Final."})
	a, err := New(Config{LLM: model, Tools: balanceTools(t), MaxToolRounds: 2, Logger: quiet})
	is.NoErr(err)

	got, err := a.Run(context.Background(), "balance", nil, nil)
	is.NoErr(err)
	is.Equal(got, "Final.")

	reqs := model.Requests()
	is.Equal(len(reqs), 3)
	is.Equal(len(reqs[0].Functions), 1)
	is.Equal(len(reqs[2].Functions), 0)
}

func TestRun_HistoryNotDuplicated(t *testing.T) {
	is := is.New(t)

	model := fake.NewFakeLLM(fake.Reply{Text: "ok"})
	a, err := New(Config{LLM: model, Logger: quiet})
	is.NoErr(err)

	history := FormatHistory([]Turn{
		{Sender: SenderUser, Content: "hi"},
		{Sender: SenderAgent, Content: "Hello!"},
		{Sender: SenderUser, Content: "my balance"},
	})
	_, err = a.Run(context.Background(), "my balance", history, nil)
	is.NoErr(err)

	msgs := model.Requests()[0].Messages
	is.Equal(len(msgs), 3)
	is.Equal(msgs[2].Content, "my balance")
}

func TestRun_DeltaErrorAborts(t *testing.T) {
	is := is.New(t)

	a, err := New(Config{LLM: fake.NewFakeLLM(fake.Reply{Text: "one two three"}), Logger: quiet})
	is.NoErr(err)

	stop := errors.New("client gone")
	_, err = a.Run(context.Background(), "x", nil, func(string) error { return stop })
	is.True(errors.Is(err, stop))
}

type failingLLM struct {
	*fake.FakeLLM
	calls int
}

func (f *failingLLM) ChatStream(ctx context.Context, req llm.ChatRequest) (llm.ChatStream, error) {
	f.calls++
	return nil, ai.NewFatalError(errors.New("401"), "invalid api key")
}

func TestRun_FatalProviderError(t *testing.T) {
	is := is.New(t)

	model := &failingLLM{FakeLLM: fake.NewFakeLLM()}
	a, err := New(Config{LLM: model, Logger: quiet})
	is.NoErr(err)

	_, err = a.Run(context.Background(), "x", nil, nil)
	is.True(ai.IsFatal(err))
	is.Equal(model.calls, 1)
}

func TestFormatHistory(t *testing.T) {
	is := is.New(t)

	turns := []Turn{
		{Sender: SenderUser, Content: "hi"},
		{Sender: SenderAgent, Content: "Hello"},
		{Sender: "system", Content: "ignored"},
		{Sender: SenderUser, Content: ""},
		{Sender: SenderUser, Content: "balance?"},
	}
	got := FormatHistory(turns)
	is.Equal(len(got), 3)
	is.Equal(got[0].Role, llm.RoleUser)
	is.Equal(got[1].Role, llm.RoleAssistant)
	is.Equal(got[2].Content, "balance?")

	is.Equal(CountUserTurns(turns), 3)
}
