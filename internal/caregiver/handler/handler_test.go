package handler_test

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/caregiver/handler"
	"carelink/internal/caregiver/models"
	"carelink/internal/caregiver/service"
	"carelink/internal/caregiver/store"
	id "carelink/pkg/domain"
	"carelink/pkg/testutil"
)

type CaregiverHandlerSuite struct {
	suite.Suite
	ctx    context.Context
	orgID  id.OrgID
	userID id.UserID
	svc    *service.Service
	router chi.Router
}

func TestCaregiverHandlerSuite(t *testing.T) {
	suite.Run(t, new(CaregiverHandlerSuite))
}

func (s *CaregiverHandlerSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.userID = id.UserID(uuid.New())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(testutil.AuthedContext(s.userID, s.orgID, "staff"), now)

	s.svc = service.New(store.NewMemory(),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.router = chi.NewRouter()
	handler.New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil))).Register(s.router)
}

func (s *CaregiverHandlerSuite) create(firstName string) *models.Caregiver {
	caregiver, err := s.svc.CreateStandalone(s.ctx, service.CreateInput{
		FirstName: firstName, LastName: "Tester", Phone: "555-0100",
	})
	s.Require().NoError(err)
	return caregiver
}

func (s *CaregiverHandlerSuite) TestAssignConflictRoundTrip() {
	clientID := id.ClientID(uuid.New())
	first := s.create("First")
	second := s.create("Second")

	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/"+first.ID.String()+"/assign",
		map[string]any{"client_id": clientID.String()}).WithContext(s.ctx)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[service.AssignResult](s.T(), rr)
	s.Require().NotNil(result.Assigned)
	s.Equal(first.ID, result.Assigned.ID)

	// Unconfirmed second assignment reports the incumbent without writing.
	req = testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/"+second.ID.String()+"/assign",
		map[string]any{"client_id": clientID.String()}).WithContext(s.ctx)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusConflict)
	result = testutil.UnmarshalResponse[service.AssignResult](s.T(), rr)
	s.Require().NotNil(result.Conflict)
	s.Equal(first.ID, result.Conflict.ID)

	req = testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/"+second.ID.String()+"/assign",
		map[string]any{"client_id": clientID.String(), "confirm": true}).WithContext(s.ctx)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result = testutil.UnmarshalResponse[service.AssignResult](s.T(), rr)
	s.Require().NotNil(result.Assigned)
	s.Equal(second.ID, result.Assigned.ID)
}

func (s *CaregiverHandlerSuite) TestAssignRejectsMalformedIDs() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/not-a-uuid/assign",
		map[string]any{"client_id": uuid.NewString()}).WithContext(s.ctx)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "validation")

	caregiver := s.create("Valid")
	req = testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/"+caregiver.ID.String()+"/assign",
		map[string]any{"client_id": "nope"}).WithContext(s.ctx)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusBadRequest)
	testutil.AssertErrorCode(s.T(), rr, "validation")
}

func (s *CaregiverHandlerSuite) TestUnknownCaregiverIsNotFound() {
	req := testutil.NewJSONRequest(s.T(), http.MethodPost,
		"/caregivers/"+uuid.NewString()+"/deactivate",
		map[string]any{}).WithContext(s.ctx)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusNotFound)
	testutil.AssertErrorCode(s.T(), rr, "not_found")
}
