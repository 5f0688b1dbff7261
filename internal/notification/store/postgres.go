package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carelink/internal/notification/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists notifications in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const notificationColumns = `id, org_id, user_id, type, title, message,
	related_entity_type, related_entity_id, is_read, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, notification *models.Notification) error {
	var relatedType, relatedID any
	if notification.RelatedEntityType != "" {
		relatedType = notification.RelatedEntityType
	}
	if notification.RelatedEntityID != "" {
		relatedID = notification.RelatedEntityID
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO notifications (`+notificationColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)`,
		notification.ID.String(), notification.OrgID.String(), notification.UserID.String(),
		string(notification.Type), notification.Title, notification.Message,
		relatedType, relatedID, notification.IsRead,
		notification.CreatedAt, notification.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID) (*models.Notification, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications WHERE id = $1 AND org_id = $2`,
		notificationID.String(), orgID.String())
	return scanNotification(row)
}

// ListByUser returns the user's notifications, newest first.
func (s *PostgresStore) ListByUser(ctx context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Notification, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+notificationColumns+` FROM notifications
		 WHERE org_id = $1 AND user_id = $2 ORDER BY created_at DESC`,
		orgID.String(), userID.String())
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []*models.Notification
	for rows.Next() {
		notification, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, notification)
	}
	return out, rows.Err()
}

// UnreadCount recomputes the unread total from stored rows; the partial
// index on unread rows keeps this cheap.
func (s *PostgresStore) UnreadCount(ctx context.Context, orgID id.OrgID, userID id.UserID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM notifications
		 WHERE org_id = $1 AND user_id = $2 AND NOT is_read`,
		orgID.String(), userID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) MarkRead(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID, now time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, updated_at = $3
		 WHERE id = $1 AND org_id = $2`,
		notificationID.String(), orgID.String(), now)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return mustAffect(res)
}

func (s *PostgresStore) MarkAllRead(ctx context.Context, orgID id.OrgID, userID id.UserID, now time.Time) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE notifications SET is_read = TRUE, updated_at = $3
		 WHERE org_id = $1 AND user_id = $2 AND NOT is_read`,
		orgID.String(), userID.String(), now)
	if err != nil {
		return fmt.Errorf("mark all notifications read: %w", err)
	}
	return nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrgID, notificationID id.NotificationID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE id = $1 AND org_id = $2`,
		notificationID.String(), orgID.String())
	if err != nil {
		return fmt.Errorf("delete notification: %w", err)
	}
	return mustAffect(res)
}

// ClearRead removes every read notification for the user.
func (s *PostgresStore) ClearRead(ctx context.Context, orgID id.OrgID, userID id.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`DELETE FROM notifications WHERE org_id = $1 AND user_id = $2 AND is_read`,
		orgID.String(), userID.String())
	if err != nil {
		return fmt.Errorf("clear read notifications: %w", err)
	}
	return nil
}

func mustAffect(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotification(row scanner) (*models.Notification, error) {
	var (
		n                      models.Notification
		notificationID, orgID  string
		userID, typ            string
		relatedType, relatedID sql.NullString
	)
	err := row.Scan(
		&notificationID, &orgID, &userID, &typ, &n.Title, &n.Message,
		&relatedType, &relatedID, &n.IsRead, &n.CreatedAt, &n.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan notification: %w", err)
	}

	parsedID, err := id.ParseNotificationID(notificationID)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	parsedUser, err := id.ParseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("scan notification: %w", err)
	}
	n.ID = parsedID
	n.OrgID = parsedOrg
	n.UserID = parsedUser
	n.Type = models.Type(typ)
	n.RelatedEntityType = relatedType.String
	n.RelatedEntityID = relatedID.String
	return &n, nil
}
