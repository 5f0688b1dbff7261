package store

import (
	"context"
	"sort"
	"sync"

	"carelink/internal/client/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// MemoryStore is the in-memory client store used by unit tests and local
// development. All methods copy records on the way in and out so callers
// never alias store state.
type MemoryStore struct {
	mu      sync.RWMutex
	clients map[id.ClientID]*models.Client
	notes   map[id.NoteID]*models.Note
}

func NewMemory() *MemoryStore {
	return &MemoryStore{
		clients: make(map[id.ClientID]*models.Client),
		notes:   make(map[id.NoteID]*models.Note),
	}
}

func (s *MemoryStore) Create(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[client.ID]; exists {
		return sentinel.ErrConflict
	}
	// A referral converts into at most one client.
	if client.ReferralID != nil {
		for _, existing := range s.clients {
			if existing.ReferralID != nil && *existing.ReferralID == *client.ReferralID {
				return sentinel.ErrConflict
			}
		}
	}
	cloned := *client
	s.clients[client.ID] = &cloned
	return nil
}

func (s *MemoryStore) FindByID(_ context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, ok := s.clients[clientID]
	if !ok || client.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cloned := *client
	return &cloned, nil
}

func (s *MemoryStore) List(_ context.Context, orgID id.OrgID, filter models.Filter) ([]*models.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Client
	for _, client := range s.clients {
		if client.OrgID != orgID {
			continue
		}
		if filter.Phase != nil && client.CurrentPhase != *filter.Phase {
			continue
		}
		if filter.Status != nil && client.Status != *filter.Status {
			continue
		}
		if filter.Program != nil && client.Program != *filter.Program {
			continue
		}
		if filter.County != nil && client.County != *filter.County {
			continue
		}
		cloned := *client
		out = append(out, &cloned)
	}
	sortClients(out, filter)
	return out, nil
}

func (s *MemoryStore) Update(_ context.Context, client *models.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, ok := s.clients[client.ID]
	if !ok || existing.OrgID != client.OrgID {
		return sentinel.ErrNotFound
	}
	cloned := *client
	s.clients[client.ID] = &cloned
	return nil
}

// Execute runs validate-then-mutate on one client while holding the store
// lock, so concurrent phase advances cannot interleave between the check and
// the write.
func (s *MemoryStore) Execute(_ context.Context, orgID id.OrgID, clientID id.ClientID, validate func(*models.Client) error, mutate func(*models.Client)) (*models.Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[clientID]
	if !ok || client.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	working := *client
	if err := validate(&working); err != nil {
		return nil, err
	}
	mutate(&working)
	s.clients[clientID] = &working
	result := working
	return &result, nil
}

func (s *MemoryStore) Delete(_ context.Context, orgID id.OrgID, clientID id.ClientID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, ok := s.clients[clientID]
	if !ok || client.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	delete(s.clients, clientID)
	for noteID, note := range s.notes {
		if note.ClientID == clientID {
			delete(s.notes, noteID)
		}
	}
	return nil
}

func (s *MemoryStore) Count(_ context.Context, orgID id.OrgID) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	count := 0
	for _, client := range s.clients {
		if client.OrgID == orgID {
			count++
		}
	}
	return count, nil
}

func (s *MemoryStore) AddNote(_ context.Context, note *models.Note) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if client, ok := s.clients[note.ClientID]; !ok || client.OrgID != note.OrgID {
		return sentinel.ErrNotFound
	}
	cloned := *note
	s.notes[note.ID] = &cloned
	return nil
}

func (s *MemoryStore) ListNotes(_ context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []*models.Note
	for _, note := range s.notes {
		if note.OrgID == orgID && note.ClientID == clientID {
			cloned := *note
			out = append(out, &cloned)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (s *MemoryStore) FindNote(_ context.Context, orgID id.OrgID, noteID id.NoteID) (*models.Note, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	note, ok := s.notes[noteID]
	if !ok || note.OrgID != orgID {
		return nil, sentinel.ErrNotFound
	}
	cloned := *note
	return &cloned, nil
}

func (s *MemoryStore) DeleteNote(_ context.Context, orgID id.OrgID, noteID id.NoteID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	note, ok := s.notes[noteID]
	if !ok || note.OrgID != orgID {
		return sentinel.ErrNotFound
	}
	delete(s.notes, noteID)
	return nil
}

func sortClients(clients []*models.Client, filter models.Filter) {
	less := func(i, j int) bool { return clients[i].CreatedAt.Before(clients[j].CreatedAt) }
	switch filter.SortBy {
	case "full_name":
		less = func(i, j int) bool { return clients[i].FullName < clients[j].FullName }
	case "intake_date":
		less = func(i, j int) bool {
			a, b := clients[i].IntakeDate, clients[j].IntakeDate
			switch {
			case a == nil:
				return b != nil
			case b == nil:
				return false
			default:
				return a.Before(*b)
			}
		}
	}
	if filter.SortDesc {
		orig := less
		less = func(i, j int) bool { return orig(j, i) }
	}
	sort.SliceStable(clients, less)
}
