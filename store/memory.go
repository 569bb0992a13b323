package store

import (
	"context"
	"sort"
	"sync"

	"github.com/cockroachdb/errors"
	"github.com/effective-security/toolchat/pkg/llms"
)

// ErrInvalidChatID is returned when the chat ID is empty.
var ErrInvalidChatID = errors.New("invalid chat ID")

type inMemory struct {
	mu      sync.RWMutex
	storage map[string][]llms.Message
}

// NewMemoryStore returns a store which keeps messages in process memory.
func NewMemoryStore() MessageStore {
	return &inMemory{}
}

func (m *inMemory) Messages(_ context.Context, chatID string) ([]llms.Message, error) {
	if chatID == "" {
		return nil, ErrInvalidChatID
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	list := m.storage[chatID]
	if len(list) == 0 {
		return nil, nil
	}
	res := make([]llms.Message, len(list))
	for i, msg := range list {
		res[i] = llms.Message{
			Role:  msg.Role,
			Parts: append([]llms.ContentPart(nil), msg.Parts...),
		}
	}
	return res, nil
}

func (m *inMemory) Add(_ context.Context, chatID string, msgs ...llms.Message) error {
	if chatID == "" {
		return ErrInvalidChatID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.storage == nil {
		// create on first use
		m.storage = make(map[string][]llms.Message)
	}
	m.storage[chatID] = append(m.storage[chatID], msgs...)
	return nil
}

func (m *inMemory) Reset(_ context.Context, chatID string) error {
	if chatID == "" {
		return ErrInvalidChatID
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.storage, chatID)
	return nil
}

func (m *inMemory) ListChats(_ context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	res := make([]string, 0, len(m.storage))
	for id := range m.storage {
		res = append(res, id)
	}
	sort.Strings(res)
	return res, nil
}
