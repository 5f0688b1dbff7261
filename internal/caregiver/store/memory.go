package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"carelink/internal/caregiver/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory caregiver store. A single mutex covers every
// operation, which is what makes the deactivate-then-activate swap atomic
// here; Postgres gets the same guarantee from a transaction plus a partial
// unique index.
type MemoryStore struct {
	mu         sync.Mutex
	caregivers map[id.CaregiverID]*models.Caregiver
}

func NewMemory() *MemoryStore {
	return &MemoryStore{caregivers: make(map[id.CaregiverID]*models.Caregiver)}
}

func (s *MemoryStore) Create(_ context.Context, caregiver *models.Caregiver) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.caregivers[caregiver.ID]; exists {
		return sentinel.ErrConflict
	}
	if caregiver.IsActive() && caregiver.ClientID != nil {
		if s.activeForLocked(caregiver.OrgID, *caregiver.ClientID) != nil {
			return sentinel.ErrConflict
		}
	}
	cloned := *caregiver
	s.caregivers[caregiver.ID] = &cloned
	return nil
}

// CreateReplacingActive deactivates the client's current active caregiver, if
// any, then inserts the new record as active — all under the store lock.
func (s *MemoryStore) CreateReplacingActive(_ context.Context, caregiver *models.Caregiver, now time.Time) error {
	if caregiver.ClientID == nil {
		return sentinel.ErrInvalidState
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.caregivers[caregiver.ID]; exists {
		return sentinel.ErrConflict
	}
	if incumbent := s.activeForLocked(caregiver.OrgID, *caregiver.ClientID); incumbent != nil {
		incumbent.ApplyDeactivation(now)
	}
	cloned := *caregiver
	s.caregivers[caregiver.ID] = &cloned
	return nil
}

// Swap atomically moves active status on the client to the given caregiver:
// the incumbent (if any) is deactivated with EndedAt = now, and the caregiver
// is attached active with StartedAt reset.
func (s *MemoryStore) Swap(_ context.Context, orgID id.OrgID, clientID id.ClientID, caregiverID id.CaregiverID, now time.Time) (*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caregiver, ok := s.caregivers[caregiverID]
	if !ok || caregiver.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	if incumbent := s.activeForLocked(orgID, clientID); incumbent != nil && incumbent.ID != caregiverID {
		incumbent.ApplyDeactivation(now)
	}
	caregiver.ApplyAssignment(clientID, now)
	cloned := *caregiver
	return &cloned, nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, caregiverID id.CaregiverID) (*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caregiver, ok := s.caregivers[caregiverID]
	if !ok || caregiver.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cloned := *caregiver
	return &cloned, nil
}

// FindActiveByClient returns the client's single active caregiver, or
// ErrNotFound when the client has none.
func (s *MemoryStore) FindActiveByClient(_ context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if caregiver := s.activeForLocked(orgID, clientID); caregiver != nil {
		cloned := *caregiver
		return &cloned, nil
	}
	return nil, sentinel.ErrNotFound
}

func (s *MemoryStore) ListByClient(_ context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Caregiver
	for _, caregiver := range s.caregivers {
		if caregiver.OrgID == orgID && caregiver.ClientID != nil && *caregiver.ClientID == clientID {
			cloned := *caregiver
			out = append(out, &cloned)
		}
	}
	sortCaregivers(out)
	return out, nil
}

// ListStandalone returns the unassigned caregiver pool.
func (s *MemoryStore) ListStandalone(_ context.Context, orgID id.OrgID) ([]*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []*models.Caregiver
	for _, caregiver := range s.caregivers {
		if caregiver.OrgID == orgID && caregiver.ClientID == nil {
			cloned := *caregiver
			out = append(out, &cloned)
		}
	}
	sortCaregivers(out)
	return out, nil
}

// Execute runs validate-then-mutate on one caregiver under the store lock.
func (s *MemoryStore) Execute(_ context.Context, orgID id.OrgID, caregiverID id.CaregiverID, validate func(*models.Caregiver) error, mutate func(*models.Caregiver)) (*models.Caregiver, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	caregiver, ok := s.caregivers[caregiverID]
	if !ok || caregiver.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	working := *caregiver
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	if working.IsActive() && working.ClientID != nil {
		if incumbent := s.activeForLocked(orgID, *working.ClientID); incumbent != nil && incumbent.ID != caregiverID {
			return nil, sentinel.ErrConflict
		}
	}
	s.caregivers[caregiverID] = &working
	result := working
	return &result, nil
}

func (s *MemoryStore) activeForLocked(orgID id.OrgID, clientID id.ClientID) *models.Caregiver {
	for _, caregiver := range s.caregivers {
		if caregiver.OrgID == orgID && caregiver.IsActive() &&
			caregiver.ClientID != nil && *caregiver.ClientID == clientID {
			return caregiver
		}
	}
	return nil
}

func sortCaregivers(caregivers []*models.Caregiver) {
	sort.Slice(caregivers, func(i, j int) bool {
		return caregivers[i].CreatedAt.Before(caregivers[j].CreatedAt)
	})
}
