package service_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"carelink/internal/messaging/service"
	"carelink/internal/messaging/store"
	notificationservice "carelink/internal/notification/service"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/testutil"
)

type stubRecipients []id.UserID

func (r stubRecipients) ListActiveIDs(context.Context, id.OrgID) ([]id.UserID, error) {
	return r, nil
}

type captureNotifier struct {
	dispatched []notificationservice.DispatchInput
	fail       bool
}

func (n *captureNotifier) Dispatch(_ context.Context, input notificationservice.DispatchInput) (*notificationservice.DispatchResult, error) {
	if n.fail {
		return nil, errors.New("notifier down")
	}
	n.dispatched = append(n.dispatched, input)
	return &notificationservice.DispatchResult{}, nil
}

type MessagingServiceSuite struct {
	suite.Suite
	ctx      context.Context
	orgID    id.OrgID
	senderID id.UserID
	others   []id.UserID
	now      time.Time
	store    *store.MemoryStore
	notifier *captureNotifier
	svc      *service.Service
}

func TestMessagingServiceSuite(t *testing.T) {
	suite.Run(t, new(MessagingServiceSuite))
}

func (s *MessagingServiceSuite) SetupTest() {
	s.orgID = id.OrgID(uuid.New())
	s.senderID = id.UserID(uuid.New())
	s.others = []id.UserID{id.UserID(uuid.New()), id.UserID(uuid.New()), id.UserID(uuid.New())}
	s.now = time.Date(2025, 6, 1, 9, 0, 0, 0, time.UTC)
	s.ctx = testutil.ContextAt(testutil.AuthedContext(s.senderID, s.orgID, "staff"), s.now)
	s.store = store.NewMemory()
	s.notifier = &captureNotifier{}

	allActive := append([]id.UserID{s.senderID}, s.others...)
	s.svc = service.New(s.store, stubRecipients(allActive), service.WithNotifier(s.notifier))
}

func (s *MessagingServiceSuite) ctxFor(userID id.UserID) context.Context {
	return testutil.AuthedContext(userID, s.orgID, "staff")
}

func (s *MessagingServiceSuite) TestSendStoresAndNotifies() {
	message, err := s.svc.Send(s.ctx, service.SendInput{
		RecipientID: s.others[0],
		Subject:     "schedule",
		Content:     "shift swap on friday?",
	})
	s.Require().NoError(err)
	s.False(message.IsRead)

	s.Require().Len(s.notifier.dispatched, 1)
	s.Equal(s.others[0], s.notifier.dispatched[0].UserID)
	s.Equal(message.ID.String(), s.notifier.dispatched[0].RelatedEntityID)
}

func (s *MessagingServiceSuite) TestSendRejectsSelfAndEmpty() {
	_, err := s.svc.Send(s.ctx, service.SendInput{RecipientID: s.senderID, Content: "hi"})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))

	_, err = s.svc.Send(s.ctx, service.SendInput{RecipientID: s.others[0], Content: "  "})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *MessagingServiceSuite) TestBroadcastDefaultsToEveryoneButSender() {
	sent, err := s.svc.Broadcast(s.ctx, service.BroadcastInput{Content: "org-wide notice"})
	s.Require().NoError(err)
	s.Len(sent, len(s.others))

	for _, message := range sent {
		s.NotEqual(s.senderID, message.RecipientID)
		s.Equal(s.senderID, message.SenderID)
	}

	// The sender has no copy in their own inbox.
	for _, other := range s.others {
		thread, err := s.svc.Thread(s.ctxFor(other), s.senderID)
		s.Require().NoError(err)
		s.Len(thread, 1)
	}
}

func (s *MessagingServiceSuite) TestBroadcastExplicitListSkipsSenderAndDupes() {
	recipients := []id.UserID{s.others[0], s.others[0], s.senderID, s.others[1]}
	sent, err := s.svc.Broadcast(s.ctx, service.BroadcastInput{
		RecipientIDs: recipients,
		Content:      "targeted notice",
	})
	s.Require().NoError(err)
	s.Len(sent, 2)
}

func (s *MessagingServiceSuite) TestBroadcastWithOnlySelfFails() {
	_, err := s.svc.Broadcast(s.ctx, service.BroadcastInput{
		RecipientIDs: []id.UserID{s.senderID},
		Content:      "just me",
	})
	s.True(dErrors.HasCode(err, dErrors.CodeValidation))
}

func (s *MessagingServiceSuite) TestBroadcastSurvivesNotifierFailure() {
	s.notifier.fail = true
	sent, err := s.svc.Broadcast(s.ctx, service.BroadcastInput{Content: "notice"})
	s.Require().NoError(err)
	s.Len(sent, len(s.others))
}

func (s *MessagingServiceSuite) TestConversationsGroupByCounterpart() {
	_, err := s.svc.Send(s.ctx, service.SendInput{RecipientID: s.others[0], Content: "first"})
	s.Require().NoError(err)

	laterCtx := testutil.ContextAt(s.ctxFor(s.others[0]), s.now.Add(time.Minute))
	_, err = s.svc.Send(laterCtx, service.SendInput{RecipientID: s.senderID, Content: "reply"})
	s.Require().NoError(err)

	latestCtx := testutil.ContextAt(s.ctx, s.now.Add(2*time.Minute))
	_, err = s.svc.Send(latestCtx, service.SendInput{RecipientID: s.others[1], Content: "other thread"})
	s.Require().NoError(err)

	conversations, err := s.svc.Conversations(s.ctx)
	s.Require().NoError(err)
	s.Require().Len(conversations, 2)

	// Newest thread first.
	s.Equal(s.others[1], conversations[0].CounterpartID)
	s.Equal(s.others[0], conversations[1].CounterpartID)
	s.Equal("reply", conversations[1].LastMessage.Content)
	s.Equal(1, conversations[1].UnreadCount)
}

func (s *MessagingServiceSuite) TestMarkThreadRead() {
	_, err := s.svc.Send(s.ctx, service.SendInput{RecipientID: s.others[0], Content: "ping"})
	s.Require().NoError(err)

	recipientCtx := s.ctxFor(s.others[0])
	s.Require().NoError(s.svc.MarkThreadRead(recipientCtx, s.senderID))

	conversations, err := s.svc.Conversations(recipientCtx)
	s.Require().NoError(err)
	s.Require().Len(conversations, 1)
	s.Zero(conversations[0].UnreadCount)
}
