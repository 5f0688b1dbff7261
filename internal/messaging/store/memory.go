package store

import (
	"context"
	"sort"
	"sync"

	"carelink/internal/messaging/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory message store.
type MemoryStore struct {
	mu       sync.RWMutex
	messages map[id.MessageID]*models.Message
}

func NewMemory() *MemoryStore {
	return &MemoryStore{messages: make(map[id.MessageID]*models.Message)}
}

func (s *MemoryStore) Create(_ context.Context, message *models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.insertLocked(message)
}

// CreateBatch inserts every message or none. Matches the postgres store,
// where a broadcast is one transaction.
func (s *MemoryStore) CreateBatch(_ context.Context, messages []*models.Message) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range messages {
		if _, exists := s.messages[message.ID]; exists {
			return sentinel.ErrConflict
		}
	}
	for _, message := range messages {
		if err := s.insertLocked(message); err != nil {
			return err
		}
	}
	return nil
}

func (s *MemoryStore) insertLocked(message *models.Message) error {
	if _, exists := s.messages[message.ID]; exists {
		return sentinel.ErrConflict
	}
	cloned := *message
	s.messages[message.ID] = &cloned
	return nil
}

// ListInvolving returns every message the user sent or received, oldest
// first.
func (s *MemoryStore) ListInvolving(_ context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, message := range s.messages {
		if message.OrgID == orgID && (message.SenderID == userID || message.RecipientID == userID) {
			cloned := *message
			out = append(out, &cloned)
		}
	}
	sortMessages(out)
	return out, nil
}

// ListBetween returns the thread between two users, oldest first.
func (s *MemoryStore) ListBetween(_ context.Context, orgID id.OrgID, a, b id.UserID) ([]*models.Message, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Message
	for _, message := range s.messages {
		if message.OrgID != orgID {
			continue
		}
		if (message.SenderID == a && message.RecipientID == b) ||
			(message.SenderID == b && message.RecipientID == a) {
			cloned := *message
			out = append(out, &cloned)
		}
	}
	sortMessages(out)
	return out, nil
}

// MarkThreadRead marks every message from counterpart to recipient as read.
func (s *MemoryStore) MarkThreadRead(_ context.Context, orgID id.OrgID, recipientID, counterpartID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, message := range s.messages {
		if message.OrgID == orgID && message.RecipientID == recipientID && message.SenderID == counterpartID {
			message.IsRead = true
		}
	}
	return nil
}

func sortMessages(messages []*models.Message) {
	sort.Slice(messages, func(i, j int) bool {
		return messages[i].CreatedAt.Before(messages[j].CreatedAt)
	})
}
