package store

import (
	"context"
	"sort"
	"sync"

	"carelink/internal/user/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory user store.
type MemoryStore struct {
	mu    sync.RWMutex
	users map[id.UserID]*models.User
}

func NewMemory() *MemoryStore {
	return &MemoryStore{users: make(map[id.UserID]*models.User)}
}

func (s *MemoryStore) Create(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.users[user.ID]; exists {
		return sentinel.ErrConflict
	}
	for _, existing := range s.users {
		if existing.OrgID == user.OrgID && existing.Email == user.Email {
			return sentinel.ErrConflict
		}
	}
	cloned := clone(user)
	s.users[user.ID] = cloned
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, userID id.UserID) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	user, ok := s.users[userID]
	if !ok || user.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	return clone(user), nil
}

func (s *MemoryStore) FindByEmail(_ context.Context, orgID id.OrgID, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, user := range s.users {
		if user.OrgID == orgID && user.Email == email {
			return clone(user), nil
		}
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) Update(_ context.Context, user *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.users[user.ID]
	if !ok || existing.OrgID != user.OrgID {
		return sentinel.ErrNotFound
	}
	for otherID, other := range s.users {
		if otherID != user.ID && other.OrgID == user.OrgID && other.Email == user.Email {
			return sentinel.ErrConflict
		}
	}
	s.users[user.ID] = clone(user)
	return nil
}

// ListByOrg returns every user of the org sorted by name.
func (s *MemoryStore) ListByOrg(_ context.Context, orgID id.OrgID) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.User
	for _, user := range s.users {
		if user.OrgID == orgID {
			out = append(out, clone(user))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

// Preferences maps are shared references; deep-copy them so callers never
// alias store state.
func clone(user *models.User) *models.User {
	cloned := *user
	if user.NotificationPreferences != nil {
		prefs := make(map[string]bool, len(user.NotificationPreferences))
		for k, v := range user.NotificationPreferences {
			prefs[k] = v
		}
		cloned.NotificationPreferences = prefs
	}
	return &cloned
}
