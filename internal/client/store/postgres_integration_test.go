//go:build integration

package store_test

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/client/models"
	"carelink/internal/client/store"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *store.PostgresStore
	orgID    id.OrgID
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	mgr := containers.GetManager()
	s.postgres = mgr.GetPostgres(s.T())
	s.store = store.NewPostgres(s.postgres.DB)
}

func (s *PostgresStoreSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.Require().NoError(s.postgres.TruncateTables(context.Background(), "client_notes", "clients"))
}

func (s *PostgresStoreSuite) newClient(firstName string) *models.Client {
	client, err := models.NewClient(id.ClientID(uuid.New()), s.orgID, firstName, "Tester", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(context.Background(), client))
	return client
}

func (s *PostgresStoreSuite) TestRoundTrip() {
	ctx := context.Background()
	client := s.newClient("Maria")
	client.Email = "maria@example.test"
	client.County = "Hennepin"
	client.Program = "245D"
	client.Diagnosis = "Dementia"
	client.InsuranceProvider = "Blue Cross"
	client.DateOfBirth = "1950-01-02"
	client.PhoneNumbers = []string{"555-0100", "555-0101"}
	client.SetCostShare(125.50)
	s.Require().NoError(s.store.Update(ctx, client))

	found, err := s.store.FindByID(ctx, s.orgID, client.ID)
	s.Require().NoError(err)
	s.Equal("Maria Tester", found.FullName)
	s.Equal([]string{"555-0100", "555-0101"}, found.PhoneNumbers)
	s.Equal("Dementia", found.Diagnosis)
	s.Equal("Blue Cross", found.InsuranceProvider)
	s.Equal("1950-01-02", found.DateOfBirth)
	s.InDelta(125.50, found.CostShareAmount, 0.001)
	s.Equal(models.PhaseIntake, found.CurrentPhase)
}

// Two clients may never point at the same referral; the partial unique index
// turns the second insert into a conflict.
func (s *PostgresStoreSuite) TestCreateRejectsDuplicateReferralLink() {
	ctx := context.Background()
	referralID := id.ReferralID(uuid.New())

	first, err := models.NewClient(id.ClientID(uuid.New()), s.orgID, "First", "Linked", time.Now().UTC())
	s.Require().NoError(err)
	first.ReferralID = &referralID
	s.Require().NoError(s.store.Create(ctx, first))

	second, err := models.NewClient(id.ClientID(uuid.New()), s.orgID, "Second", "Linked", time.Now().UTC())
	s.Require().NoError(err)
	second.ReferralID = &referralID
	s.ErrorIs(s.store.Create(ctx, second), sentinel.ErrConflict)

	// Unlinked clients are unaffected.
	third, err := models.NewClient(id.ClientID(uuid.New()), s.orgID, "Third", "Unlinked", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.Create(ctx, third))
}

// TestConcurrentAdvance verifies that Execute's row lock serializes phase
// transitions: many racing advances still walk the pipeline one step at a
// time, never skipping a phase.
func (s *PostgresStoreSuite) TestConcurrentAdvance() {
	ctx := context.Background()
	client := s.newClient("Race")
	completeAllChecklists(client)
	s.Require().NoError(s.store.Update(ctx, client))

	const goroutines = 10
	var wg sync.WaitGroup
	var advanced atomic.Int32
	for i := 0; i < goroutines; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.store.Execute(ctx, s.orgID, client.ID,
				func(c *models.Client) error { return c.CanAdvancePhase() },
				func(c *models.Client) { c.ApplyAdvancePhase(time.Now().UTC()) },
			)
			if err == nil {
				advanced.Add(1)
			}
		}()
	}
	wg.Wait()

	// Two forward transitions exist; the terminal phase rejects the rest.
	s.Equal(int32(2), advanced.Load())

	found, err := s.store.FindByID(ctx, s.orgID, client.ID)
	s.Require().NoError(err)
	s.Equal(models.PhaseServiceInitiation, found.CurrentPhase)
}

func completeAllChecklists(c *models.Client) {
	c.AssessmentRequired = true
	c.ClinicalDatesEntered = true
	c.ReassessmentDateEntered = true
	c.InitialAssessmentCompleted = true
	c.DocumentsUploaded = true
	c.AdminOnboardingComplete = true
	c.FingerprintingComplete = true
	c.BackgroundResultsUploaded = true
	c.DriversLicenseSubmitted = true
	c.IdentityDocsSubmitted = true
	c.TBTestComplete = true
	c.CPRFirstAidComplete = true
	c.PCACertificationCurrent = true
}

func (s *PostgresStoreSuite) TestDeleteCascadesNotes() {
	ctx := context.Background()
	client := s.newClient("Noted")

	note, err := models.NewNote(id.NoteID(uuid.New()), s.orgID, client.ID, id.UserID(uuid.New()), "first visit went well", time.Now().UTC())
	s.Require().NoError(err)
	s.Require().NoError(s.store.AddNote(ctx, note))

	s.Require().NoError(s.store.Delete(ctx, s.orgID, client.ID))

	_, err = s.store.FindNote(ctx, s.orgID, note.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)
}

func (s *PostgresStoreSuite) TestListFiltersAndCount() {
	ctx := context.Background()
	a := s.newClient("Alpha")
	a.County = "Hennepin"
	s.Require().NoError(s.store.Update(ctx, a))
	b := s.newClient("Beta")
	b.County = "Ramsey"
	s.Require().NoError(s.store.Update(ctx, b))

	county := "Hennepin"
	listed, err := s.store.List(ctx, s.orgID, models.Filter{County: &county})
	s.Require().NoError(err)
	s.Require().Len(listed, 1)
	s.Equal(a.ID, listed[0].ID)

	count, err := s.store.Count(ctx, s.orgID)
	s.Require().NoError(err)
	s.Equal(2, count)
}

func (s *PostgresStoreSuite) TestOrgIsolation() {
	ctx := context.Background()
	client := s.newClient("Isolated")

	_, err := s.store.FindByID(ctx, id.OrgID(uuid.New()), client.ID)
	s.ErrorIs(err, sentinel.ErrNotFound)

	count, err := s.store.Count(ctx, id.OrgID(uuid.New()))
	s.Require().NoError(err)
	s.Zero(count)
}
