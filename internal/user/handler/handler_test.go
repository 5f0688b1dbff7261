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

	"carelink/internal/jwtauth"
	"carelink/internal/user/handler"
	"carelink/internal/user/models"
	"carelink/internal/user/service"
	"carelink/internal/user/store"
	id "carelink/pkg/domain"
	"carelink/pkg/testutil"
)

type UserHandlerSuite struct {
	suite.Suite
	adminCtx context.Context
	orgID    id.OrgID
	svc      *service.Service
	router   chi.Router
}

func TestUserHandlerSuite(t *testing.T) {
	suite.Run(t, new(UserHandlerSuite))
}

func (s *UserHandlerSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	now := time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.adminCtx = testutil.ContextAt(testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "admin"), now)

	s.svc = service.New(store.NewMemory(), jwtauth.NewService("test-signing-key"),
		service.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))))
	s.router = chi.NewRouter()
	h := handler.New(s.svc, slog.New(slog.NewTextHandler(io.Discard, nil)))
	h.RegisterPublic(s.router)
	h.Register(s.router)
}

func (s *UserHandlerSuite) TestLogin() {
	_, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)

	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]any{
		"org_id": s.orgID.String(), "email": "staff@agency.test", "password": "longenough",
	})
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	result := testutil.UnmarshalResponse[service.LoginResult](s.T(), rr)
	s.NotEmpty(result.Token)
	s.Equal("staff@agency.test", result.User.Email)
	s.Empty(result.User.PasswordHash, "hash never leaves the server")

	req = testutil.NewJSONRequest(s.T(), http.MethodPost, "/auth/login", map[string]any{
		"org_id": s.orgID.String(), "email": "staff@agency.test", "password": "wrongpassword",
	})
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusUnauthorized)
	testutil.AssertErrorCode(s.T(), rr, "unauthorized")
}

func (s *UserHandlerSuite) TestCreateRequiresAdmin() {
	staffCtx := testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "staff")
	req := testutil.NewJSONRequest(s.T(), http.MethodPost, "/users", map[string]any{
		"email": "new@agency.test", "name": "New", "password": "longenough", "role": "staff",
	}).WithContext(staffCtx)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusForbidden)
	testutil.AssertErrorCode(s.T(), rr, "forbidden")
}

func (s *UserHandlerSuite) TestPreferencesRoundTrip() {
	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)
	selfCtx := testutil.AuthedContext(user.ID, s.orgID, "staff")

	req := testutil.NewJSONRequest(s.T(), http.MethodPut, "/me/preferences", map[string]bool{
		"phase_completed": false,
	}).WithContext(selfCtx)
	rr := testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)

	req = testutil.NewRequest(s.T(), http.MethodGet, "/me/preferences").WithContext(selfCtx)
	rr = testutil.DoRequest(s.router, req)
	testutil.AssertStatus(s.T(), rr, http.StatusOK)
	prefs := testutil.UnmarshalResponse[map[string]bool](s.T(), rr)
	s.False((*prefs)["phase_completed"])
}
