package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carelink/internal/notification/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory notification store.
type MemoryStore struct {
	mu            sync.RWMutex
	notifications map[id.NotificationID]*models.Notification
}

func NewMemory() *MemoryStore {
	return &MemoryStore{notifications: make(map[id.NotificationID]*models.Notification)}
}

func (s *MemoryStore) Create(_ context.Context, notification *models.Notification) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.notifications[notification.ID]; exists {
		return sentinel.ErrConflict
	}
	cloned := *notification
	s.notifications[notification.ID] = &cloned
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, notificationID id.NotificationID) (*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	notification, ok := s.notifications[notificationID]
	if !ok || notification.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cloned := *notification
	return &cloned, nil
}

// ListByUser returns the user's notifications, newest first.
func (s *MemoryStore) ListByUser(_ context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Notification, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Notification
	for _, notification := range s.notifications {
		if notification.OrgID == orgID && notification.UserID == userID {
			cloned := *notification
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// UnreadCount recomputes the unread total from stored rows, so polling
// clients never see counter drift.
func (s *MemoryStore) UnreadCount(_ context.Context, orgID id.OrgID, userID id.UserID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, notification := range s.notifications {
		if notification.OrgID == orgID && notification.UserID == userID && !notification.IsRead {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) MarkRead(_ context.Context, orgID id.OrgID, notificationID id.NotificationID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok || notification.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	notification.IsRead = true
	notification.UpdatedAt = now
	return nil
}

func (s *MemoryStore) MarkAllRead(_ context.Context, orgID id.OrgID, userID id.UserID, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, notification := range s.notifications {
		if notification.OrgID == orgID && notification.UserID == userID && !notification.IsRead {
			notification.IsRead = true
			notification.UpdatedAt = now
		}
	}
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID id.OrgID, notificationID id.NotificationID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	notification, ok := s.notifications[notificationID]
	if !ok || notification.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	delete(s.notifications, notificationID)
	return nil
}

// ClearRead removes every read notification for the user.
func (s *MemoryStore) ClearRead(_ context.Context, orgID id.OrgID, userID id.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for notificationID, notification := range s.notifications {
		if notification.OrgID == orgID && notification.UserID == userID && notification.IsRead {
			delete(s.notifications, notificationID)
		}
	}
	return nil
}
