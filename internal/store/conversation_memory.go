package store

import (
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/soyeahso/creatorpilot/internal/domain"
)

// MemoryConversationStore is an in-memory ConversationStore implementation.
type MemoryConversationStore struct {
	mu    sync.RWMutex
	convs map[string]*domain.Conversation
}

// NewMemoryConversationStore creates an in-memory conversation store.
func NewMemoryConversationStore() *MemoryConversationStore {
	return &MemoryConversationStore{convs: make(map[string]*domain.Conversation)}
}

func (s *MemoryConversationStore) Create() (domain.Conversation, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now().UTC()
	conv := &domain.Conversation{ID: uuid.New().String(), CreatedAt: now, UpdatedAt: now}
	s.convs[conv.ID] = conv
	return *conv, nil
}

func (s *MemoryConversationStore) Get(id string) (domain.Conversation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	conv, ok := s.convs[id]
	if !ok {
		return domain.Conversation{}, fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	c := *conv
	c.Messages = slices.Clone(conv.Messages)
	return c, nil
}

func (s *MemoryConversationStore) Append(id string, msgs ...domain.RawMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	conv, ok := s.convs[id]
	if !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	conv.Messages = append(conv.Messages, msgs...)
	conv.UpdatedAt = time.Now().UTC()
	return nil
}

func (s *MemoryConversationStore) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.convs[id]; !ok {
		return fmt.Errorf("conversation %s: %w", id, ErrNotFound)
	}
	delete(s.convs, id)
	return nil
}

func (s *MemoryConversationStore) List() ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	convs := make([]*domain.Conversation, 0, len(s.convs))
	for _, c := range s.convs {
		convs = append(convs, c)
	}
	slices.SortFunc(convs, func(a, b *domain.Conversation) int {
		return b.UpdatedAt.Compare(a.UpdatedAt)
	})

	ids := make([]string, len(convs))
	for i, c := range convs {
		ids[i] = c.ID
	}
	return ids, nil
}
