package service_test

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/caregiver/models"
	"carelink/internal/caregiver/service"
	"carelink/internal/caregiver/store"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/testutil"
)

type CaregiverServiceSuite struct {
	suite.Suite
	ctx   context.Context
	orgID id.OrgID
	now   time.Time
	store *store.MemoryStore
	svc   *service.Service
}

func TestCaregiverServiceSuite(t *testing.T) {
	suite.Run(t, new(CaregiverServiceSuite))
}

func (s *CaregiverServiceSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "staff"), s.now)
	s.store = store.NewMemory()
	s.svc = service.New(s.store)
}

func (s *CaregiverServiceSuite) TestCreateStandaloneJoinsPool() {
	caregiver, err := s.svc.CreateStandalone(s.ctx, service.CreateInput{FirstName: "Dana", LastName: "Reyes"})
	s.Require().NoError(err)
	s.Nil(caregiver.ClientID)
	s.Equal(models.CaregiverStatusActive, caregiver.Status)
	s.False(caregiver.OnboardingFinalized)

	pool, err := s.svc.ListPool(s.ctx)
	s.Require().NoError(err)
	s.Len(pool, 1)
}

func (s *CaregiverServiceSuite) TestCreateStandaloneRequiresFirstName() {
	_, err := s.svc.CreateStandalone(s.ctx, service.CreateInput{FirstName: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *CaregiverServiceSuite) TestAssignWithoutIncumbent() {
	caregiver := s.mustCreatePool("Dana")
	clientID := id.ClientID(uuid.New())

	result, err := s.svc.Assign(s.ctx, caregiver.ID, clientID, false)
	s.Require().NoError(err)
	s.Nil(result.Conflict)
	s.Require().NotNil(result.Assigned)
	s.Require().NotNil(result.Assigned.ClientID)
	s.Equal(clientID, *result.Assigned.ClientID)
	s.Require().NotNil(result.Assigned.StartedAt)
	s.Equal(s.now, *result.Assigned.StartedAt)
}

func (s *CaregiverServiceSuite) TestAssignSurfacesConflictWithoutWriting() {
	clientID := id.ClientID(uuid.New())
	incumbent, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Ira"})
	s.Require().NoError(err)
	challenger := s.mustCreatePool("Dana")

	result, err := s.svc.Assign(s.ctx, challenger.ID, clientID, false)
	s.Require().NoError(err)
	s.Nil(result.Assigned)
	s.Require().NotNil(result.Conflict)
	s.Equal(incumbent.ID, result.Conflict.ID)

	// Nothing changed: the incumbent is still the active caregiver.
	active, err := s.store.FindActiveByClient(s.ctx, s.orgID, clientID)
	s.Require().NoError(err)
	s.Equal(incumbent.ID, active.ID)
}

func (s *CaregiverServiceSuite) TestAssignConfirmedSwapsAtomically() {
	clientID := id.ClientID(uuid.New())
	incumbent, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Ira"})
	s.Require().NoError(err)
	challenger := s.mustCreatePool("Dana")

	result, err := s.svc.Assign(s.ctx, challenger.ID, clientID, true)
	s.Require().NoError(err)
	s.Require().NotNil(result.Assigned)
	s.Equal(challenger.ID, result.Assigned.ID)

	replaced, err := s.svc.Get(s.ctx, incumbent.ID)
	s.Require().NoError(err)
	s.Equal(models.CaregiverStatusInactive, replaced.Status)
	s.Require().NotNil(replaced.EndedAt)
	s.Equal(s.now, *replaced.EndedAt)

	active, err := s.store.FindActiveByClient(s.ctx, s.orgID, clientID)
	s.Require().NoError(err)
	s.Equal(challenger.ID, active.ID)
}

func (s *CaregiverServiceSuite) TestAssignSameCaregiverIsNoOp() {
	clientID := id.ClientID(uuid.New())
	caregiver, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Ira"})
	s.Require().NoError(err)

	result, err := s.svc.Assign(s.ctx, caregiver.ID, clientID, false)
	s.Require().NoError(err)
	s.Nil(result.Conflict)
	s.Require().NotNil(result.Assigned)
	s.Equal(caregiver.ID, result.Assigned.ID)
}

func (s *CaregiverServiceSuite) TestAssignUnknownCaregiver() {
	_, err := s.svc.Assign(s.ctx, id.CaregiverID(uuid.New()), id.ClientID(uuid.New()), false)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *CaregiverServiceSuite) TestAddToClientReplacesIncumbent() {
	clientID := id.ClientID(uuid.New())
	incumbent, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Ira"})
	s.Require().NoError(err)

	replacement, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Dana"})
	s.Require().NoError(err)

	replaced, err := s.svc.Get(s.ctx, incumbent.ID)
	s.Require().NoError(err)
	s.Equal(models.CaregiverStatusInactive, replaced.Status)

	active, err := s.store.FindActiveByClient(s.ctx, s.orgID, clientID)
	s.Require().NoError(err)
	s.Equal(replacement.ID, active.ID)
}

func (s *CaregiverServiceSuite) TestDeactivateAlwaysPermitted() {
	clientID := id.ClientID(uuid.New())
	caregiver, err := s.svc.AddToClient(s.ctx, clientID, service.CreateInput{FirstName: "Ira"})
	s.Require().NoError(err)

	deactivated, err := s.svc.Deactivate(s.ctx, caregiver.ID, nil)
	s.Require().NoError(err)
	s.Equal(models.CaregiverStatusInactive, deactivated.Status)
	s.Require().NotNil(deactivated.EndedAt)
	s.Equal(s.now, *deactivated.EndedAt)

	// Deactivating again still succeeds.
	later := s.now.Add(time.Hour)
	again, err := s.svc.Deactivate(s.ctx, caregiver.ID, &later)
	s.Require().NoError(err)
	s.Equal(later, *again.EndedAt)

	_, err = s.store.FindActiveByClient(s.ctx, s.orgID, clientID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *CaregiverServiceSuite) TestUpdateChecklist() {
	caregiver := s.mustCreatePool("Dana")
	yes := true
	updated, err := s.svc.UpdateChecklist(s.ctx, caregiver.ID, models.ChecklistUpdate{
		FingerprintingComplete: &yes,
		TBTestComplete:         &yes,
	})
	s.Require().NoError(err)
	s.True(updated.FingerprintingComplete)
	s.True(updated.TBTestComplete)
	s.False(updated.CPRFirstAidComplete)
}

func (s *CaregiverServiceSuite) TestOrgIsolation() {
	caregiver := s.mustCreatePool("Dana")
	otherCtx := testutil.AuthedContext(id.UserID(uuid.New()), id.OrgID(uuid.New()), "staff")

	_, err := s.svc.Get(otherCtx, caregiver.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

// TestRacingAssignmentsKeepOneActive hammers the same client from two
// caregivers concurrently and verifies the invariant holds afterward.
func (s *CaregiverServiceSuite) TestRacingAssignmentsKeepOneActive() {
	clientID := id.ClientID(uuid.New())
	a := s.mustCreatePool("Dana")
	b := s.mustCreatePool("Ira")

	var wg sync.WaitGroup
	for range 20 {
		for _, caregiverID := range []id.CaregiverID{a.ID, b.ID} {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, _ = s.svc.Assign(s.ctx, caregiverID, clientID, true)
			}()
		}
	}
	wg.Wait()

	all, err := s.svc.ListByClient(s.ctx, clientID)
	s.Require().NoError(err)
	active := 0
	for _, caregiver := range all {
		if caregiver.IsActive() {
			active++
		}
	}
	s.Equal(1, active)
}

func (s *CaregiverServiceSuite) mustCreatePool(name string) *models.Caregiver {
	caregiver, err := s.svc.CreateStandalone(s.ctx, service.CreateInput{FirstName: name})
	s.Require().NoError(err)
	return caregiver
}
