package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/jwtauth"
	notificationmodels "carelink/internal/notification/models"
	"carelink/internal/user/models"
	"carelink/internal/user/service"
	"carelink/internal/user/store"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/testutil"
)

type UserServiceSuite struct {
	suite.Suite
	adminCtx context.Context
	staffCtx context.Context
	orgID    id.OrgID
	adminID  id.UserID
	staffID  id.UserID
	now      time.Time
	store    *store.MemoryStore
	svc      *service.Service
}

func TestUserServiceSuite(t *testing.T) {
	suite.Run(t, new(UserServiceSuite))
}

func (s *UserServiceSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.adminID = id.UserID(uuid.New())
	s.staffID = id.UserID(uuid.New())
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.adminCtx = testutil.ContextAt(testutil.AuthedContext(s.adminID, s.orgID, "admin"), s.now)
	s.staffCtx = testutil.ContextAt(testutil.AuthedContext(s.staffID, s.orgID, "staff"), s.now)
	s.store = store.NewMemory()
	s.svc = service.New(s.store, jwtauth.NewService("test-signing-key"))
}

func (s *UserServiceSuite) TestCreateIsAdminOnly() {
	_, err := s.svc.Create(s.staffCtx, service.CreateInput{
		Email: "new@agency.test", Name: "New Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "New@Agency.Test ", Name: "New Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)
	s.Equal("new@agency.test", user.Email)
	s.Equal(models.StatusActive, user.Status)
	s.NotEqual("longenough", user.PasswordHash)
}

func (s *UserServiceSuite) TestCreateRejectsDuplicateEmail() {
	input := service.CreateInput{
		Email: "dup@agency.test", Name: "One", Password: "longenough", Role: models.RoleStaff,
	}
	_, err := s.svc.Create(s.adminCtx, input)
	s.Require().NoError(err)

	input.Name = "Two"
	_, err = s.svc.Create(s.adminCtx, input)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *UserServiceSuite) TestCreateValidation() {
	cases := []service.CreateInput{
		{Email: "not-an-email", Name: "A", Password: "longenough", Role: models.RoleStaff},
		{Email: "a@b.test", Name: "", Password: "longenough", Role: models.RoleStaff},
		{Email: "a@b.test", Name: "A", Password: "short", Role: models.RoleStaff},
		{Email: "a@b.test", Name: "A", Password: "longenough", Role: models.Role("owner")},
	}
	for _, input := range cases {
		_, err := s.svc.Create(s.adminCtx, input)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "input %+v", input)
	}
}

func (s *UserServiceSuite) TestAuthenticate() {
	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)

	result, err := s.svc.Authenticate(context.Background(), service.LoginInput{
		OrgID: s.orgID, Email: "Staff@Agency.Test", Password: "longenough",
	})
	s.Require().NoError(err)
	s.NotEmpty(result.Token)
	s.Equal(user.ID, result.User.ID)

	_, err = s.svc.Authenticate(context.Background(), service.LoginInput{
		OrgID: s.orgID, Email: "staff@agency.test", Password: "wrongpassword",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

	_, err = s.svc.Authenticate(context.Background(), service.LoginInput{
		OrgID: s.orgID, Email: "ghost@agency.test", Password: "longenough",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *UserServiceSuite) TestDeactivatedUserCannotSignIn() {
	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)

	_, err = s.svc.Deactivate(s.staffCtx, user.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	_, err = s.svc.Deactivate(s.adminCtx, user.ID)
	s.Require().NoError(err)

	_, err = s.svc.Authenticate(context.Background(), service.LoginInput{
		OrgID: s.orgID, Email: "staff@agency.test", Password: "longenough",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}

func (s *UserServiceSuite) TestPreferencesRoundTrip() {
	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)
	selfCtx := testutil.ContextAt(testutil.AuthedContext(user.ID, s.orgID, "staff"), s.now)

	prefs, err := s.svc.GetPreferences(selfCtx)
	s.Require().NoError(err)
	s.True(prefs.Allows(notificationmodels.TypePhaseCompleted), "default is allow")

	updated, err := s.svc.UpdatePreferences(selfCtx, notificationmodels.Preferences{
		string(notificationmodels.TypePhaseCompleted): false,
	})
	s.Require().NoError(err)
	s.False(updated.Allows(notificationmodels.TypePhaseCompleted))
	s.True(updated.Allows(notificationmodels.TypeReferralCreated))

	viaAdapter, err := s.svc.PreferencesFor(context.Background(), s.orgID, user.ID)
	s.Require().NoError(err)
	s.False(viaAdapter.Allows(notificationmodels.TypePhaseCompleted))
}

func (s *UserServiceSuite) TestUpdatePreferencesRejectsUnknownType() {
	user, err := s.svc.Create(s.adminCtx, service.CreateInput{
		Email: "staff@agency.test", Name: "Staff", Password: "longenough", Role: models.RoleStaff,
	})
	s.Require().NoError(err)
	selfCtx := testutil.AuthedContext(user.ID, s.orgID, "staff")

	_, err = s.svc.UpdatePreferences(selfCtx, notificationmodels.Preferences{"carrier_pigeon": false})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *UserServiceSuite) TestRecipientAdapters() {
	mk := func(email string, role models.Role) *models.User {
		user, err := s.svc.Create(s.adminCtx, service.CreateInput{
			Email: email, Name: email, Password: "longenough", Role: role,
		})
		s.Require().NoError(err)
		return user
	}
	admin := mk("admin@agency.test", models.RoleAdmin)
	staff := mk("staff@agency.test", models.RoleStaff)
	marketer := mk("marketer@agency.test", models.RoleMarketer)
	retired := mk("retired@agency.test", models.RoleStaff)
	_, err := s.svc.Deactivate(s.adminCtx, retired.ID)
	s.Require().NoError(err)

	fanout, err := s.svc.ActiveStaff(context.Background(), s.orgID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.UserID{admin.ID, staff.ID}, fanout)

	broadcast, err := s.svc.ListActiveIDs(context.Background(), s.orgID)
	s.Require().NoError(err)
	s.ElementsMatch([]id.UserID{admin.ID, staff.ID, marketer.ID}, broadcast)
}
