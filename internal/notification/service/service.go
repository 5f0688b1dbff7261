// Package service orchestrates notification dispatch and inbox management.
// Dispatch honors per-user, per-type preferences; skipping is a result, not
// an error, so callers can tell "delivered" from "recipient opted out".
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carelink/internal/events"
	"carelink/internal/notification/models"
	"carelink/internal/platform/metrics"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// Store is the notification persistence contract.
type Store interface {
	Create(ctx context.Context, notification *models.Notification) error
	FindByID(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID) (*models.Notification, error)
	ListByUser(ctx context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Notification, error)
	UnreadCount(ctx context.Context, orgID id.OrgID, userID id.UserID) (int, error)
	MarkRead(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID, now time.Time) error
	MarkAllRead(ctx context.Context, orgID id.OrgID, userID id.UserID, now time.Time) error
	Delete(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID) error
	ClearRead(ctx context.Context, orgID id.OrgID, userID id.UserID) error
}

// PreferenceSource resolves a recipient's notification preferences. The user
// slice provides this.
type PreferenceSource interface {
	PreferencesFor(ctx context.Context, orgID id.OrgID, userID id.UserID) (models.Preferences, error)
}

// RecipientSource resolves who receives org-wide fan-out. The user slice
// provides this.
type RecipientSource interface {
	ActiveStaff(ctx context.Context, orgID id.OrgID) ([]id.UserID, error)
}

// Pusher delivers created notifications to live sessions. realtime.Publisher
// satisfies this; delivery is best-effort.
type Pusher interface {
	Publish(ctx context.Context, notification *models.Notification)
}

// DispatchInput describes one notification to deliver.
type DispatchInput struct {
	OrgID             id.OrgID
	UserID            id.UserID
	Type              models.Type
	Title             string
	Message           string
	RelatedEntityType string
	RelatedEntityID   string

	// Force bypasses the recipient's preference check. Used for operational
	// notices the user must see.
	Force bool
}

// DispatchResult reports what happened to one dispatch. Skipped means the
// recipient's preferences suppressed it and nothing was stored.
type DispatchResult struct {
	Notification *models.Notification
	Skipped      bool
}

// Service orchestrates notification delivery and inbox reads.
type Service struct {
	notifications Store
	preferences   PreferenceSource
	recipients    RecipientSource
	pusher        Pusher
	logger        *slog.Logger
	metrics       *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithPusher(p Pusher) Option {
	return func(s *Service) { s.pusher = p }
}

func WithRecipientSource(r RecipientSource) Option {
	return func(s *Service) { s.recipients = r }
}

// New constructs a Service. A nil PreferenceSource means every dispatch is
// delivered (default allow with nobody opted out).
func New(notifications Store, preferences PreferenceSource, opts ...Option) *Service {
	s := &Service{
		notifications: notifications,
		preferences:   preferences,
		logger:        slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Dispatch delivers one notification, unless the recipient opted out of its
// type. A preference-skipped dispatch is a successful no-op.
func (s *Service) Dispatch(ctx context.Context, input DispatchInput) (*DispatchResult, error) {
	if !input.Force && !s.allows(ctx, input.OrgID, input.UserID, input.Type) {
		if s.metrics != nil {
			s.metrics.NotificationsSkipped.WithLabelValues(string(input.Type)).Inc()
		}
		return &DispatchResult{Skipped: true}, nil
	}

	now := requestcontext.Now(ctx)
	notification, err := models.New(id.NotificationID(uuid.New()), input.OrgID, input.UserID,
		input.Type, input.Title, input.Message, now)
	if err != nil {
		return nil, err
	}
	notification.RelatedEntityType = input.RelatedEntityType
	notification.RelatedEntityID = input.RelatedEntityID

	if err := s.notifications.Create(ctx, notification); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create notification")
	}
	if s.metrics != nil {
		s.metrics.NotificationsCreated.WithLabelValues(string(input.Type)).Inc()
	}
	if s.pusher != nil {
		s.pusher.Publish(ctx, notification)
	}
	return &DispatchResult{Notification: notification}, nil
}

// DispatchMany delivers the same notice to several recipients. Recipients are
// isolated from each other: one failed or skipped delivery never blocks the
// rest. Returns the notifications actually created.
func (s *Service) DispatchMany(ctx context.Context, userIDs []id.UserID, input DispatchInput) []*models.Notification {
	var created []*models.Notification
	for _, userID := range userIDs {
		perRecipient := input
		perRecipient.UserID = userID
		result, err := s.Dispatch(ctx, perRecipient)
		if err != nil {
			s.logger.Warn("notification delivery failed",
				"user_id", userID.String(), "type", string(input.Type), "error", err)
			continue
		}
		if !result.Skipped {
			created = append(created, result.Notification)
		}
	}
	return created
}

// HandleEvent is the consumer side of the event bus: it translates a domain
// event into notifications for the org's active staff, excluding the actor
// who caused it.
func (s *Service) HandleEvent(ctx context.Context, event events.Event) error {
	if s.recipients == nil {
		return nil
	}
	typ, ok := notificationType(event.Type)
	if !ok {
		s.logger.Debug("ignoring event with no notification mapping", "type", string(event.Type))
		return nil
	}
	staff, err := s.recipients.ActiveStaff(ctx, event.OrgID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve fan-out recipients")
	}
	recipients := staff[:0:0]
	for _, userID := range staff {
		if userID != event.ActorID {
			recipients = append(recipients, userID)
		}
	}
	s.DispatchMany(ctx, recipients, DispatchInput{
		OrgID:             event.OrgID,
		Type:              typ,
		Title:             event.Title,
		Message:           event.Detail,
		RelatedEntityType: event.EntityType,
		RelatedEntityID:   event.EntityID,
	})
	return nil
}

// List returns the caller's notifications, newest first.
func (s *Service) List(ctx context.Context) ([]*models.Notification, error) {
	notifications, err := s.notifications.ListByUser(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notifications")
	}
	return notifications, nil
}

// UnreadCount returns the caller's unread total, recomputed from the store.
func (s *Service) UnreadCount(ctx context.Context) (int, error) {
	count, err := s.notifications.UnreadCount(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count unread notifications")
	}
	return count, nil
}

// MarkRead marks one of the caller's notifications as read.
func (s *Service) MarkRead(ctx context.Context, notificationID id.NotificationID) error {
	orgID := requestcontext.OrgID(ctx)
	notification, err := s.notifications.FindByID(ctx, orgID, notificationID)
	if err != nil {
		return wrapNotificationErr(err)
	}
	if notification.UserID != requestcontext.UserID(ctx) {
		return dErrors.New(dErrors.CodeForbidden, "cannot modify another user's notification")
	}
	if err := s.notifications.MarkRead(ctx, orgID, notificationID, requestcontext.Now(ctx)); err != nil {
		return wrapNotificationErr(err)
	}
	return nil
}

// MarkAllRead marks every unread notification of the caller as read.
func (s *Service) MarkAllRead(ctx context.Context) error {
	err := s.notifications.MarkAllRead(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx), requestcontext.Now(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to mark notifications read")
	}
	return nil
}

// Delete removes one of the caller's notifications.
func (s *Service) Delete(ctx context.Context, notificationID id.NotificationID) error {
	orgID := requestcontext.OrgID(ctx)
	notification, err := s.notifications.FindByID(ctx, orgID, notificationID)
	if err != nil {
		return wrapNotificationErr(err)
	}
	if notification.UserID != requestcontext.UserID(ctx) {
		return dErrors.New(dErrors.CodeForbidden, "cannot delete another user's notification")
	}
	if err := s.notifications.Delete(ctx, orgID, notificationID); err != nil {
		return wrapNotificationErr(err)
	}
	return nil
}

// ClearRead removes every read notification of the caller.
func (s *Service) ClearRead(ctx context.Context) error {
	err := s.notifications.ClearRead(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to clear read notifications")
	}
	return nil
}

// allows consults the recipient's preferences; a failed preference read
// counts as allow, because losing a notification is worse than sending one
// the user muted.
func (s *Service) allows(ctx context.Context, orgID id.OrgID, userID id.UserID, typ models.Type) bool {
	if s.preferences == nil {
		return true
	}
	prefs, err := s.preferences.PreferencesFor(ctx, orgID, userID)
	if err != nil {
		s.logger.Warn("preference read failed, delivering anyway",
			"user_id", userID.String(), "error", err)
		return true
	}
	return prefs.Allows(typ)
}

func notificationType(eventType events.Type) (models.Type, bool) {
	switch eventType {
	case events.TypeReferralCreated:
		return models.TypeReferralCreated, true
	case events.TypePhaseCompleted:
		return models.TypePhaseCompleted, true
	case events.TypeClientUpdated:
		return models.TypeClientUpdated, true
	}
	return "", false
}

func wrapNotificationErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "notification not found")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "notification operation failed")
	}
}
