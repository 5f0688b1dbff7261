package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	caregiverstore "carelink/internal/caregiver/store"
	"carelink/internal/client/models"
	"carelink/internal/client/service"
	"carelink/internal/client/store"
	"carelink/internal/events"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/testutil"
)

type ClientServiceSuite struct {
	suite.Suite
	ctx      context.Context
	adminCtx context.Context
	orgID    id.OrgID
	userID   id.UserID
	now      time.Time
	store    *store.MemoryStore
	emitted  []events.Event
	svc      *service.Service
}

func TestClientServiceSuite(t *testing.T) {
	suite.Run(t, new(ClientServiceSuite))
}

func (s *ClientServiceSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.userID = id.UserID(uuid.New())
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(testutil.AuthedContext(s.userID, s.orgID, "staff"), s.now)
	s.adminCtx = testutil.ContextAt(testutil.AuthedContext(s.userID, s.orgID, "admin"), s.now)
	s.store = store.NewMemory()
	s.emitted = nil
	s.svc = service.New(s.store,
		service.WithEmitter(captureEmitter{sink: &s.emitted}),
		service.WithCaregiverReader(caregiverstore.NewMemory()),
	)
}

type captureEmitter struct {
	sink *[]events.Event
}

func (e captureEmitter) Emit(_ context.Context, event events.Event) error {
	*e.sink = append(*e.sink, event)
	return nil
}

func (s *ClientServiceSuite) TestCreateDefaults() {
	client, err := s.svc.Create(s.ctx, service.CreateInput{FirstName: "Maria", LastName: "Lopez"})
	s.Require().NoError(err)
	s.Equal(models.PhaseIntake, client.CurrentPhase)
	s.Equal(models.ClientStatusActive, client.Status)
	s.Equal("Maria Lopez", client.FullName)
	s.Require().NotNil(client.IntakeDate)
	s.Equal(s.now, *client.IntakeDate)
	s.False(client.IntakeFinalized)
}

func (s *ClientServiceSuite) TestCreateClampsNegativeCostShare() {
	client, err := s.svc.Create(s.ctx, service.CreateInput{FirstName: "Maria", CostShareAmount: -10})
	s.Require().NoError(err)
	s.Zero(client.CostShareAmount)
}

func (s *ClientServiceSuite) TestAdvanceBlockedUntilEveryItemChecked() {
	client := s.mustCreate("Maria Lopez")

	// All intake items but one.
	yes := true
	_, err := s.svc.UpdateChecklist(s.ctx, client.ID, models.ChecklistUpdate{
		AssessmentRequired:         &yes,
		ClinicalDatesEntered:       &yes,
		ReassessmentDateEntered:    &yes,
		InitialAssessmentCompleted: &yes,
	})
	s.Require().NoError(err)

	ready, err := s.svc.CanAdvance(s.ctx, client.ID)
	s.Require().NoError(err)
	s.False(ready)

	_, err = s.svc.AdvancePhase(s.ctx, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))

	// The last flip opens the gate.
	_, err = s.svc.UpdateChecklist(s.ctx, client.ID, models.ChecklistUpdate{DocumentsUploaded: &yes})
	s.Require().NoError(err)

	ready, err = s.svc.CanAdvance(s.ctx, client.ID)
	s.Require().NoError(err)
	s.True(ready)

	advanced, err := s.svc.AdvancePhase(s.ctx, client.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseOnboarding, advanced.CurrentPhase)
	s.True(advanced.IntakeFinalized)
}

func (s *ClientServiceSuite) TestAdvanceEmitsPhaseCompleted() {
	client := s.mustCreate("Maria Lopez")
	s.completeIntake(client.ID)

	_, err := s.svc.AdvancePhase(s.ctx, client.ID)
	s.Require().NoError(err)

	s.Require().Len(s.emitted, 1)
	s.Equal(events.TypePhaseCompleted, s.emitted[0].Type)
	s.Equal(client.ID.String(), s.emitted[0].EntityID)
}

func (s *ClientServiceSuite) TestPhaseWalkStopsAtTerminal() {
	client := s.mustCreate("Maria Lopez")
	s.completeIntake(client.ID)
	_, err := s.svc.AdvancePhase(s.ctx, client.ID)
	s.Require().NoError(err)

	s.completeOnboarding(client.ID)
	advanced, err := s.svc.AdvancePhase(s.ctx, client.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseServiceInitiation, advanced.CurrentPhase)
	s.True(advanced.OnboardingFinalized)

	_, err = s.svc.AdvancePhase(s.ctx, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *ClientServiceSuite) TestCorrectPhaseIsAdminOnly() {
	client := s.mustCreate("Maria Lopez")

	_, err := s.svc.CorrectPhase(s.ctx, client.ID, models.PhaseOnboarding)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	corrected, err := s.svc.CorrectPhase(s.adminCtx, client.ID, models.PhaseOnboarding)
	s.Require().NoError(err)
	s.Equal(models.PhaseOnboarding, corrected.CurrentPhase)

	// Backward correction is allowed here, unlike AdvancePhase.
	corrected, err = s.svc.CorrectPhase(s.adminCtx, client.ID, models.PhaseIntake)
	s.Require().NoError(err)
	s.Equal(models.PhaseIntake, corrected.CurrentPhase)
}

func (s *ClientServiceSuite) TestCorrectPhaseRejectsUnknownPhase() {
	client := s.mustCreate("Maria Lopez")
	_, err := s.svc.CorrectPhase(s.adminCtx, client.ID, models.Phase("archived"))
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ClientServiceSuite) TestUpdateDetailsRederivesFullName() {
	client := s.mustCreate("Maria Lopez")
	last := "Gonzalez"
	updated, err := s.svc.UpdateDetails(s.ctx, client.ID, models.DetailsUpdate{LastName: &last})
	s.Require().NoError(err)
	s.Equal("Maria Gonzalez", updated.FullName)
	s.Require().Len(s.emitted, 1)
	s.Equal(events.TypeClientUpdated, s.emitted[0].Type)
}

func (s *ClientServiceSuite) TestUpdateDetailsCannotClearFirstName() {
	client := s.mustCreate("Maria Lopez")
	empty := ""
	_, err := s.svc.UpdateDetails(s.ctx, client.ID, models.DetailsUpdate{FirstName: &empty})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *ClientServiceSuite) TestDeleteRequiresAdminAndExactPhrase() {
	client := s.mustCreate("Maria Lopez")

	err := s.svc.Delete(s.ctx, client.ID, "DELETE Maria Lopez")
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.svc.Delete(s.adminCtx, client.ID, "DELETE maria lopez")
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	err = s.svc.Delete(s.adminCtx, client.ID, "DELETE Maria Lopez")
	s.Require().NoError(err)

	_, err = s.svc.Get(s.ctx, client.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ClientServiceSuite) TestDeleteCascadesNotes() {
	client := s.mustCreate("Maria Lopez")
	note, err := s.svc.AddNote(s.ctx, client.ID, "initial visit scheduled")
	s.Require().NoError(err)

	s.Require().NoError(s.svc.Delete(s.adminCtx, client.ID, "DELETE Maria Lopez"))

	err = s.svc.DeleteNote(s.ctx, note.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *ClientServiceSuite) TestNoteOwnershipOnDelete() {
	client := s.mustCreate("Maria Lopez")
	note, err := s.svc.AddNote(s.ctx, client.ID, "first note")
	s.Require().NoError(err)

	otherStaff := testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "staff")
	err = s.svc.DeleteNote(otherStaff, note.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	otherAdmin := testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "admin")
	s.Require().NoError(s.svc.DeleteNote(otherAdmin, note.ID))
}

func (s *ClientServiceSuite) TestListFiltersAndSorts() {
	a := s.mustCreate("Ada Park")
	_, err := s.svc.UpdateDetails(s.ctx, a.ID, models.DetailsUpdate{County: ptr("Hennepin")})
	s.Require().NoError(err)
	b := s.mustCreate("Ben Ochoa")
	_, err = s.svc.UpdateDetails(s.ctx, b.ID, models.DetailsUpdate{County: ptr("Ramsey")})
	s.Require().NoError(err)

	county := "Ramsey"
	got, err := s.svc.List(s.ctx, models.Filter{County: &county})
	s.Require().NoError(err)
	s.Require().Len(got, 1)
	s.Equal(b.ID, got[0].ID)

	sorted, err := s.svc.List(s.ctx, models.Filter{SortBy: "full_name", SortDesc: true})
	s.Require().NoError(err)
	s.Require().Len(sorted, 2)
	s.Equal("Ben Ochoa", sorted[0].FullName)
}

func (s *ClientServiceSuite) TestCount() {
	s.mustCreate("Ada Park")
	s.mustCreate("Ben Ochoa")
	count, err := s.svc.Count(s.ctx)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *ClientServiceSuite) TestGetDetailIncludesCaregivers() {
	client := s.mustCreate("Maria Lopez")
	detail, err := s.svc.GetDetail(s.ctx, client.ID)
	s.Require().NoError(err)
	s.Equal(client.ID, detail.Client.ID)
	s.Empty(detail.Caregivers)
	s.Nil(detail.ActiveCaregiver)
	s.Nil(detail.Referral)
}

func (s *ClientServiceSuite) mustCreate(fullName string) *models.Client {
	first, last := models.SplitName(fullName)
	client, err := s.svc.Create(s.ctx, service.CreateInput{FirstName: first, LastName: last})
	s.Require().NoError(err)
	return client
}

func (s *ClientServiceSuite) completeIntake(clientID id.ClientID) {
	yes := true
	_, err := s.svc.UpdateChecklist(s.ctx, clientID, models.ChecklistUpdate{
		AssessmentRequired:         &yes,
		ClinicalDatesEntered:       &yes,
		ReassessmentDateEntered:    &yes,
		InitialAssessmentCompleted: &yes,
		DocumentsUploaded:          &yes,
	})
	s.Require().NoError(err)
	s.emitted = nil
}

func (s *ClientServiceSuite) completeOnboarding(clientID id.ClientID) {
	yes := true
	_, err := s.svc.UpdateChecklist(s.ctx, clientID, models.ChecklistUpdate{
		AdminOnboardingComplete:   &yes,
		FingerprintingComplete:    &yes,
		BackgroundResultsUploaded: &yes,
		DriversLicenseSubmitted:   &yes,
		IdentityDocsSubmitted:     &yes,
		TBTestComplete:            &yes,
		CPRFirstAidComplete:       &yes,
		PCACertificationCurrent:   &yes,
	})
	s.Require().NoError(err)
}

func ptr[T any](v T) *T { return &v }
