package agent

import "github.com/finvox/finvox-go/pkg/ai/llm"

// Senders recorded in conversation history.
const (
	SenderUser  = "user"
	SenderAgent = "agent"
)

// Turn is one stored conversation message.
type Turn struct {
	Sender  string
	Content string
}

// FormatHistory converts stored turns into model messages. Turns from
// unknown senders and empty turns are dropped.
func FormatHistory(turns []Turn) []llm.Message {
	out := make([]llm.Message, 0, len(turns))
	for _, t := range turns {
		if t.Content == "" {
			continue
		}
		switch t.Sender {
		case SenderUser:
			out = append(out, llm.Message{Role: llm.RoleUser, Content: t.Content})
		case SenderAgent:
			out = append(out, llm.Message{Role: llm.RoleAssistant, Content: t.Content})
		}
	}
	return out
}

// CountUserTurns counts turns sent by the user.
func CountUserTurns(turns []Turn) int {
	n := 0
	for _, t := range turns {
		if t.Sender == SenderUser {
			n++
		}
	}
	return n
}
