// Package service orchestrates direct messages and broadcasts between users
// of one org.
package service

import (
	"context"
	"errors"
	"log/slog"
	"sort"

	"github.com/google/uuid"

	"carelink/internal/messaging/models"
	notificationmodels "carelink/internal/notification/models"
	notificationservice "carelink/internal/notification/service"
	"carelink/internal/platform/metrics"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// Store is the message persistence contract.
type Store interface {
	Create(ctx context.Context, message *models.Message) error
	CreateBatch(ctx context.Context, messages []*models.Message) error
	ListInvolving(ctx context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Message, error)
	ListBetween(ctx context.Context, orgID id.OrgID, a, b id.UserID) ([]*models.Message, error)
	MarkThreadRead(ctx context.Context, orgID id.OrgID, recipientID, counterpartID id.UserID) error
}

// RecipientSource resolves the org's active users for broadcast targeting.
type RecipientSource interface {
	ListActiveIDs(ctx context.Context, orgID id.OrgID) ([]id.UserID, error)
}

// Notifier delivers the message_received notices. The notification service
// satisfies this.
type Notifier interface {
	Dispatch(ctx context.Context, input notificationservice.DispatchInput) (*notificationservice.DispatchResult, error)
}

// SendInput is one direct message.
type SendInput struct {
	RecipientID id.UserID `json:"recipient_id"`
	Subject     string    `json:"subject"`
	Content     string    `json:"content"`
}

// BroadcastInput is a message to many recipients. An empty RecipientIDs list
// targets every active user of the org except the sender.
type BroadcastInput struct {
	RecipientIDs []id.UserID `json:"recipient_ids,omitempty"`
	Subject      string      `json:"subject"`
	Content      string      `json:"content"`
}

// Service orchestrates messaging.
type Service struct {
	messages   Store
	recipients RecipientSource
	notifier   Notifier
	logger     *slog.Logger
	metrics    *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithNotifier(n Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New constructs a Service.
func New(messages Store, recipients RecipientSource, opts ...Option) *Service {
	s := &Service{
		messages:   messages,
		recipients: recipients,
		logger:     slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send delivers one direct message and notifies the recipient. The
// notification is best-effort: the message is already persisted and a failed
// notice never undoes it.
func (s *Service) Send(ctx context.Context, input SendInput) (*models.Message, error) {
	orgID := requestcontext.OrgID(ctx)
	message, err := models.New(id.MessageID(uuid.New()), orgID, requestcontext.UserID(ctx),
		input.RecipientID, input.Subject, input.Content, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.messages.Create(ctx, message); err != nil {
		return nil, wrapMessageErr(err)
	}
	s.notifyRecipient(ctx, message)
	return message, nil
}

// Broadcast sends the same message to several recipients, one row per
// recipient so each manages their own read state. With no explicit recipient
// list, it targets every active user of the org except the sender.
func (s *Service) Broadcast(ctx context.Context, input BroadcastInput) ([]*models.Message, error) {
	orgID := requestcontext.OrgID(ctx)
	senderID := requestcontext.UserID(ctx)
	now := requestcontext.Now(ctx)

	recipientIDs := input.RecipientIDs
	if len(recipientIDs) == 0 {
		all, err := s.recipients.ListActiveIDs(ctx, orgID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve broadcast recipients")
		}
		recipientIDs = all
	}

	batch := make([]*models.Message, 0, len(recipientIDs))
	seen := make(map[id.UserID]struct{}, len(recipientIDs))
	for _, recipientID := range recipientIDs {
		if recipientID == senderID {
			continue
		}
		if _, dup := seen[recipientID]; dup {
			continue
		}
		seen[recipientID] = struct{}{}
		message, err := models.New(id.MessageID(uuid.New()), orgID, senderID,
			recipientID, input.Subject, input.Content, now)
		if err != nil {
			return nil, err
		}
		batch = append(batch, message)
	}
	if len(batch) == 0 {
		return nil, dErrors.New(dErrors.CodeValidation, "broadcast has no recipients")
	}

	if err := s.messages.CreateBatch(ctx, batch); err != nil {
		return nil, wrapMessageErr(err)
	}
	if s.metrics != nil {
		s.metrics.BroadcastRecipients.Observe(float64(len(batch)))
	}
	s.logger.Info("broadcast sent", "sender_id", senderID.String(), "recipients", len(batch))

	for _, message := range batch {
		s.notifyRecipient(ctx, message)
	}
	return batch, nil
}

// Conversations summarizes the caller's threads: one entry per counterpart
// with the latest message and the unread count.
func (s *Service) Conversations(ctx context.Context) ([]*models.Conversation, error) {
	userID := requestcontext.UserID(ctx)
	messages, err := s.messages.ListInvolving(ctx, requestcontext.OrgID(ctx), userID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load conversations")
	}

	byCounterpart := make(map[id.UserID]*models.Conversation)
	var order []id.UserID
	for _, message := range messages {
		counterpartID := message.Counterpart(userID)
		conversation, ok := byCounterpart[counterpartID]
		if !ok {
			conversation = &models.Conversation{CounterpartID: counterpartID}
			byCounterpart[counterpartID] = conversation
			order = append(order, counterpartID)
		}
		conversation.LastMessage = message
		if message.RecipientID == userID && !message.IsRead {
			conversation.UnreadCount++
		}
	}

	out := make([]*models.Conversation, 0, len(order))
	for _, counterpartID := range order {
		out = append(out, byCounterpart[counterpartID])
	}
	// Newest conversation first.
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].LastMessage.CreatedAt.After(out[j].LastMessage.CreatedAt)
	})
	return out, nil
}

// Thread returns the full exchange with one counterpart, oldest first.
func (s *Service) Thread(ctx context.Context, counterpartID id.UserID) ([]*models.Message, error) {
	messages, err := s.messages.ListBetween(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx), counterpartID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load thread")
	}
	return messages, nil
}

// MarkThreadRead marks everything the counterpart sent to the caller as read.
func (s *Service) MarkThreadRead(ctx context.Context, counterpartID id.UserID) error {
	err := s.messages.MarkThreadRead(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx), counterpartID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark thread read")
	}
	return nil
}

func (s *Service) notifyRecipient(ctx context.Context, message *models.Message) {
	if s.notifier == nil {
		return
	}
	title := "New message"
	if message.Subject != "" {
		title = "New message: " + message.Subject
	}
	_, err := s.notifier.Dispatch(ctx, notificationservice.DispatchInput{
		OrgID:             message.OrgID,
		UserID:            message.RecipientID,
		Type:              notificationmodels.TypeMessageReceived,
		Title:             title,
		Message:           message.Content,
		RelatedEntityType: "message",
		RelatedEntityID:   message.ID.String(),
	})
	if err != nil {
		s.logger.Warn("message notification failed",
			"message_id", message.ID.String(), "recipient_id", message.RecipientID.String(), "error", err)
	}
}

func wrapMessageErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "message not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "message already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "messaging operation failed")
	}
}
