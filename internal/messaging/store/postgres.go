package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carelink/internal/messaging/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists messages in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const messageColumns = `id, org_id, sender_id, recipient_id, subject, content, is_read, created_at`

const insertMessageSQL = `
	INSERT INTO messages (` + messageColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8)`

func (s *PostgresStore) Create(ctx context.Context, message *models.Message) error {
	_, err := s.db.ExecContext(ctx, insertMessageSQL, messageArgs(message)...)
	return translateWriteErr(err, "create message")
}

// CreateBatch inserts a broadcast's rows in one transaction: the send is all
// or nothing.
func (s *PostgresStore) CreateBatch(ctx context.Context, messages []*models.Message) error {
	if len(messages) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, insertMessageSQL)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, message := range messages {
		if _, err := stmt.ExecContext(ctx, messageArgs(message)...); err != nil {
			return translateWriteErr(err, "create message")
		}
	}
	return tx.Commit()
}

// ListInvolving returns every message the user sent or received, oldest
// first.
func (s *PostgresStore) ListInvolving(ctx context.Context, orgID id.OrgID, userID id.UserID) ([]*models.Message, error) {
	return s.list(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE org_id = $1 AND (sender_id = $2 OR recipient_id = $2)
		 ORDER BY created_at`,
		orgID.String(), userID.String())
}

// ListBetween returns the thread between two users, oldest first.
func (s *PostgresStore) ListBetween(ctx context.Context, orgID id.OrgID, a, b id.UserID) ([]*models.Message, error) {
	return s.list(ctx,
		`SELECT `+messageColumns+` FROM messages
		 WHERE org_id = $1
		   AND ((sender_id = $2 AND recipient_id = $3) OR (sender_id = $3 AND recipient_id = $2))
		 ORDER BY created_at`,
		orgID.String(), a.String(), b.String())
}

// MarkThreadRead marks every message from counterpart to recipient as read.
func (s *PostgresStore) MarkThreadRead(ctx context.Context, orgID id.OrgID, recipientID, counterpartID id.UserID) error {
	_, err := s.db.ExecContext(ctx,
		`UPDATE messages SET is_read = TRUE
		 WHERE org_id = $1 AND recipient_id = $2 AND sender_id = $3 AND NOT is_read`,
		orgID.String(), recipientID.String(), counterpartID.String())
	if err != nil {
		return fmt.Errorf("mark thread read: %w", err)
	}
	return nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Message, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list messages: %w", err)
	}
	defer rows.Close()

	var out []*models.Message
	for rows.Next() {
		message, err := scanMessage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, message)
	}
	return out, rows.Err()
}

func messageArgs(m *models.Message) []any {
	return []any{
		m.ID.String(), m.OrgID.String(), m.SenderID.String(), m.RecipientID.String(),
		m.Subject, m.Content, m.IsRead, m.CreatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanMessage(row scanner) (*models.Message, error) {
	var (
		m                     models.Message
		messageID, orgID      string
		senderID, recipientID string
	)
	err := row.Scan(&messageID, &orgID, &senderID, &recipientID,
		&m.Subject, &m.Content, &m.IsRead, &m.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan message: %w", err)
	}

	parsedID, err := id.ParseMessageID(messageID)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	parsedSender, err := id.ParseUserID(senderID)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	parsedRecipient, err := id.ParseUserID(recipientID)
	if err != nil {
		return nil, fmt.Errorf("scan message: %w", err)
	}
	m.ID = parsedID
	m.OrgID = parsedOrg
	m.SenderID = parsedSender
	m.RecipientID = parsedRecipient
	return &m, nil
}

func translateWriteErr(err error, op string) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
		return sentinel.ErrConflict
	}
	return fmt.Errorf("%s: %w", op, err)
}
