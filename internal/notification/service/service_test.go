package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/events"
	"carelink/internal/notification/models"
	"carelink/internal/notification/service"
	"carelink/internal/notification/store"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/testutil"
)

type stubPreferences map[id.UserID]models.Preferences

func (p stubPreferences) PreferencesFor(_ context.Context, _ id.OrgID, userID id.UserID) (models.Preferences, error) {
	return p[userID], nil
}

type stubRecipients []id.UserID

func (r stubRecipients) ActiveStaff(context.Context, id.OrgID) ([]id.UserID, error) {
	return r, nil
}

type capturePusher struct {
	pushed []*models.Notification
}

func (p *capturePusher) Publish(_ context.Context, n *models.Notification) {
	p.pushed = append(p.pushed, n)
}

type NotificationServiceSuite struct {
	suite.Suite
	ctx    context.Context
	orgID  id.OrgID
	userID id.UserID
	now    time.Time
	store  *store.MemoryStore
	prefs  stubPreferences
	pusher *capturePusher
	svc    *service.Service
}

func TestNotificationServiceSuite(t *testing.T) {
	suite.Run(t, new(NotificationServiceSuite))
}

func (s *NotificationServiceSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.userID = id.UserID(uuid.New())
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(testutil.AuthedContext(s.userID, s.orgID, "staff"), s.now)
	s.store = store.NewMemory()
	s.prefs = stubPreferences{}
	s.pusher = &capturePusher{}
	s.svc = service.New(s.store, s.prefs, service.WithPusher(s.pusher))
}

func (s *NotificationServiceSuite) dispatch(userID id.UserID, typ models.Type) *service.DispatchResult {
	result, err := s.svc.Dispatch(s.ctx, service.DispatchInput{
		OrgID:   s.orgID,
		UserID:  userID,
		Type:    typ,
		Title:   "Heads up",
		Message: "something happened",
	})
	s.Require().NoError(err)
	return result
}

func (s *NotificationServiceSuite) TestDispatchStoresAndPushes() {
	result := s.dispatch(s.userID, models.TypeGeneral)
	s.False(result.Skipped)
	s.Require().NotNil(result.Notification)
	s.False(result.Notification.IsRead)

	s.Require().Len(s.pusher.pushed, 1)
	s.Equal(result.Notification.ID, s.pusher.pushed[0].ID)

	count, err := s.svc.UnreadCount(s.ctx)
	s.Require().NoError(err)
	s.Equal(1, count)
}

func (s *NotificationServiceSuite) TestPreferenceSkipIsNoOpNotError() {
	s.prefs[s.userID] = models.Preferences{string(models.TypePhaseCompleted): false}

	result := s.dispatch(s.userID, models.TypePhaseCompleted)
	s.True(result.Skipped)
	s.Nil(result.Notification)
	s.Empty(s.pusher.pushed)

	inbox, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Empty(inbox)
}

func (s *NotificationServiceSuite) TestPreferenceSkipAffectsOnlyThatType() {
	s.prefs[s.userID] = models.Preferences{string(models.TypePhaseCompleted): false}

	skipped := s.dispatch(s.userID, models.TypePhaseCompleted)
	s.True(skipped.Skipped)

	delivered := s.dispatch(s.userID, models.TypeReferralCreated)
	s.False(delivered.Skipped)

	inbox, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(models.TypeReferralCreated, inbox[0].Type)
}

func (s *NotificationServiceSuite) TestForceBypassesPreferences() {
	s.prefs[s.userID] = models.Preferences{string(models.TypeGeneral): false}

	result, err := s.svc.Dispatch(s.ctx, service.DispatchInput{
		OrgID:  s.orgID,
		UserID: s.userID,
		Type:   models.TypeGeneral,
		Title:  "Mandatory notice",
		Force:  true,
	})
	s.Require().NoError(err)
	s.False(result.Skipped)
	s.Require().NotNil(result.Notification)
}

func (s *NotificationServiceSuite) TestDispatchManyIsolatesRecipients() {
	optedOut := id.UserID(uuid.New())
	s.prefs[optedOut] = models.Preferences{string(models.TypeGeneral): false}
	other := id.UserID(uuid.New())

	created := s.svc.DispatchMany(s.ctx, []id.UserID{s.userID, optedOut, other}, service.DispatchInput{
		OrgID:   s.orgID,
		Type:    models.TypeGeneral,
		Title:   "Team update",
		Message: "staff meeting moved",
	})
	s.Len(created, 2)
	for _, notification := range created {
		s.NotEqual(optedOut, notification.UserID)
	}
}

func (s *NotificationServiceSuite) TestHandleEventExcludesActor() {
	actor := id.UserID(uuid.New())
	recipients := stubRecipients{s.userID, actor, id.UserID(uuid.New())}
	svc := service.New(s.store, s.prefs, service.WithRecipientSource(recipients))

	err := svc.HandleEvent(s.ctx, events.Event{
		ID:      uuid.NewString(),
		Type:    events.TypeReferralCreated,
		OrgID:   s.orgID,
		ActorID: actor,
		Title:   "New referral",
		Detail:  "Maria Gonzalez",
	})
	s.Require().NoError(err)

	actorCtx := testutil.AuthedContext(actor, s.orgID, "marketer")
	actorInbox, err := svc.List(actorCtx)
	s.Require().NoError(err)
	s.Empty(actorInbox)

	inbox, err := svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.Equal(models.TypeReferralCreated, inbox[0].Type)
}

func (s *NotificationServiceSuite) TestReadStateOpsAreOwnerScoped() {
	result := s.dispatch(s.userID, models.TypeGeneral)
	otherCtx := testutil.AuthedContext(id.UserID(uuid.New()), s.orgID, "staff")

	err := s.svc.MarkRead(otherCtx, result.Notification.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	err = s.svc.Delete(otherCtx, result.Notification.ID)
	s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

	s.Require().NoError(s.svc.MarkRead(s.ctx, result.Notification.ID))
	count, err := s.svc.UnreadCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)
}

func (s *NotificationServiceSuite) TestMarkAllReadAndClearRead() {
	s.dispatch(s.userID, models.TypeGeneral)
	s.dispatch(s.userID, models.TypeReferralCreated)
	s.dispatch(s.userID, models.TypeClientUpdated)

	s.Require().NoError(s.svc.MarkAllRead(s.ctx))
	count, err := s.svc.UnreadCount(s.ctx)
	s.Require().NoError(err)
	s.Zero(count)

	s.dispatch(s.userID, models.TypeGeneral)
	s.Require().NoError(s.svc.ClearRead(s.ctx))

	inbox, err := s.svc.List(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(inbox, 1)
	s.False(inbox[0].IsRead)
}

func (s *NotificationServiceSuite) TestMarkReadUnknownNotification() {
	err := s.svc.MarkRead(s.ctx, id.NotificationID(uuid.New()))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}
