package history

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory keeps history in process. Contents are lost on restart.
type Memory struct {
	mu     sync.RWMutex
	nextID int64
	convs  map[uuid.UUID][]Message
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{convs: make(map[uuid.UUID][]Message), now: time.Now}
}

func (m *Memory) Init(context.Context) error { return nil }

func (m *Memory) Append(ctx context.Context, conversationID uuid.UUID, sender, content string) error {
	if err := validSender(sender); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	m.convs[conversationID] = append(m.convs[conversationID], Message{
		ID:             m.nextID,
		ConversationID: conversationID,
		Sender:         sender,
		Content:        content,
		CreatedAt:      m.now(),
	})
	return nil
}

func (m *Memory) List(ctx context.Context, conversationID uuid.UUID, limit int) ([]Message, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	msgs := m.convs[conversationID]
	if limit > 0 && len(msgs) > limit {
		msgs = msgs[len(msgs)-limit:]
	}
	out := make([]Message, len(msgs))
	copy(out, msgs)
	return out, nil
}

func (m *Memory) Close() error { return nil }
