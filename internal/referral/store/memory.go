package store

import (
	"context"
	"sort"
	"sync"

	"carelink/internal/referral/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory referral store.
type MemoryStore struct {
	mu        sync.RWMutex
	referrals map[id.ReferralID]*models.Referral
}

func NewMemory() *MemoryStore {
	return &MemoryStore{referrals: make(map[id.ReferralID]*models.Referral)}
}

func (s *MemoryStore) Create(_ context.Context, referral *models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.referrals[referral.ID]; exists {
		return sentinel.ErrConflict
	}
	cloned := *referral
	s.referrals[referral.ID] = &cloned
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, referralID id.ReferralID) (*models.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	referral, ok := s.referrals[referralID]
	if !ok || referral.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cloned := *referral
	return &cloned, nil
}

// List returns the org's unconverted referrals, newest first.
func (s *MemoryStore) List(_ context.Context, orgID id.OrgID) ([]*models.Referral, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Referral
	for _, referral := range s.referrals {
		if referral.OrgID == orgID && !referral.IsConverted() {
			cloned := *referral
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, referral *models.Referral) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.referrals[referral.ID]
	if !ok || existing.OrgID != referral.OrgID {
		return sentinel.ErrNotFound
	}
	cloned := *referral
	s.referrals[referral.ID] = &cloned
	return nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID id.OrgID, referralID id.ReferralID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	referral, ok := s.referrals[referralID]
	if !ok || referral.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	delete(s.referrals, referralID)
	return nil
}
