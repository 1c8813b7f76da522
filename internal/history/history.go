// Package history stores conversation messages so each agent turn can see
// what was said before it in the same connection.
package history

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/finvox/finvox-go/pkg/agent"
)

// Message is one stored utterance.
type Message struct {
	ID             int64     `db:"id"`
	ConversationID uuid.UUID `db:"conversation_id"`
	Sender         string    `db:"sender"`
	Content        string    `db:"content"`
	CreatedAt      time.Time `db:"created_at"`
}

// ErrInvalidSender is returned for senders other than user and agent.
var ErrInvalidSender = errors.New("sender must be user or agent")

// Store persists conversation history.
type Store interface {
	// Init prepares the backing storage, running migrations if needed.
	Init(ctx context.Context) error
	Append(ctx context.Context, conversationID uuid.UUID, sender, content string) error
	// List returns a conversation's messages oldest first. A positive limit
	// keeps only the most recent limit messages.
	List(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error)
	Close() error
}

// MemoryDSN selects the in-process store.
const MemoryDSN = "memory"

// Open returns the store for dsn: the in-memory store for "" or "memory",
// Postgres otherwise. Init is not called.
func Open(ctx context.Context, dsn string, logger *slog.Logger) (Store, error) {
	if dsn == "" || strings.EqualFold(dsn, MemoryDSN) {
		return NewMemory(), nil
	}
	s, err := NewPostgres(ctx, dsn, logger)
	if err != nil {
		return nil, fmt.Errorf("open history: %w", err)
	}
	return s, nil
}

func validSender(sender string) error {
	if sender != agent.SenderUser && sender != agent.SenderAgent {
		return fmt.Errorf("%w: %q", ErrInvalidSender, sender)
	}
	return nil
}

// Turns converts messages for the agent.
func Turns(msgs []Message) []agent.Turn {
	out := make([]agent.Turn, len(msgs))
	for i, m := range msgs {
		out[i] = agent.Turn{Sender: m.Sender, Content: m.Content}
	}
	return out
}
