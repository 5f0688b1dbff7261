package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/lib/pq"

	notificationmodels "carelink/internal/notification/models"
	"carelink/internal/user/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists users in PostgreSQL. Preferences live in a JSONB
// column so adding a notification type needs no migration.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const userColumns = `id, org_id, email, name, role, password_hash, status,
	notification_preferences, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, user *models.User) error {
	prefs, err := marshalPreferences(user.NotificationPreferences)
	if err != nil {
		return err
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO users (`+userColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10)`,
		user.ID.String(), user.OrgID.String(), user.Email, user.Name,
		string(user.Role), user.PasswordHash, string(user.Status),
		prefs, user.CreatedAt, user.UpdatedAt)
	return translateWriteErr(err, "create user")
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = $1 AND org_id = $2`,
		userID.String(), orgID.String())
	return scanUser(row)
}

func (s *PostgresStore) FindByEmail(ctx context.Context, orgID id.OrgID, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE org_id = $1 AND email = $2`,
		orgID.String(), email)
	return scanUser(row)
}

func (s *PostgresStore) Update(ctx context.Context, user *models.User) error {
	prefs, err := marshalPreferences(user.NotificationPreferences)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE users SET
			email = $3, name = $4, role = $5, password_hash = $6, status = $7,
			notification_preferences = $8, updated_at = $9
		WHERE id = $1 AND org_id = $2`,
		user.ID.String(), user.OrgID.String(), user.Email, user.Name,
		string(user.Role), user.PasswordHash, string(user.Status),
		prefs, user.UpdatedAt)
	if err != nil {
		return translateWriteErr(err, "update user")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// ListByOrg returns every user of the org sorted by name.
func (s *PostgresStore) ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.User, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE org_id = $1 ORDER BY name`,
		orgID.String())
	if err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var out []*models.User
	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, user)
	}
	return out, rows.Err()
}

func marshalPreferences(prefs notificationmodels.Preferences) ([]byte, error) {
	if prefs == nil {
		prefs = notificationmodels.Preferences{}
	}
	raw, err := json.Marshal(prefs)
	if err != nil {
		return nil, fmt.Errorf("marshal preferences: %w", err)
	}
	return raw, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanUser(row scanner) (*models.User, error) {
	var (
		u             models.User
		userID, orgID string
		role, status  string
		prefs         []byte
	)
	err := row.Scan(&userID, &orgID, &u.Email, &u.Name, &role, &u.PasswordHash,
		&status, &prefs, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan user: %w", err)
	}

	parsedID, err := id.ParseUserID(userID)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}
	u.ID = parsedID
	u.OrgID = parsedOrg
	u.Role = models.Role(role)
	u.Status = models.Status(status)
	u.NotificationPreferences = notificationmodels.Preferences{}
	if len(prefs) > 0 {
		if err := json.Unmarshal(prefs, &u.NotificationPreferences); err != nil {
			return nil, fmt.Errorf("scan user preferences: %w", err)
		}
	}
	return &u, nil
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
