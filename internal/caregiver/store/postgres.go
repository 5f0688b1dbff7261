package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"carelink/internal/caregiver/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists caregivers in PostgreSQL. The single-active-per-
// client invariant is backed by the client_caregivers_one_active partial
// unique index; any write that would create a second active row fails with a
// unique violation, surfaced as sentinel.ErrConflict.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const caregiverColumns = `id, org_id, client_id, first_name, last_name, phone, status,
	started_at, ended_at, fingerprinting_complete, background_results_uploaded,
	drivers_license_submitted, tb_test_complete, cpr_first_aid_complete,
	pca_certification_current, onboarding_finalized, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, caregiver *models.Caregiver) error {
	_, err := s.db.ExecContext(ctx, insertCaregiverSQL, caregiverArgs(caregiver)...)
	return translateWriteErr(err, "create caregiver")
}

// CreateReplacingActive deactivates the client's current active caregiver and
// inserts the new record as active inside one transaction.
func (s *PostgresStore) CreateReplacingActive(ctx context.Context, caregiver *models.Caregiver, now time.Time) error {
	if caregiver.ClientID == nil {
		return sentinel.ErrInvalidState
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	if err := deactivateActiveLocked(ctx, tx, caregiver.OrgID, *caregiver.ClientID, now); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, insertCaregiverSQL, caregiverArgs(caregiver)...); err != nil {
		return translateWriteErr(err, "create caregiver")
	}
	return tx.Commit()
}

// Swap atomically moves active status on the client to the given caregiver.
// The transaction plus the partial unique index close the race window between
// two concurrent assignments: one commits, the other hits the index and
// returns ErrConflict.
func (s *PostgresStore) Swap(ctx context.Context, orgID id.OrgID, clientID id.ClientID, caregiverID id.CaregiverID, now time.Time) (*models.Caregiver, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		caregiverID.String(), orgID.String())
	caregiver, err := scanCaregiver(row)
	if err != nil {
		return nil, err
	}

	if err := deactivateActiveLocked(ctx, tx, orgID, clientID, now); err != nil {
		return nil, err
	}

	caregiver.ApplyAssignment(clientID, now)
	if _, err := tx.ExecContext(ctx, updateCaregiverSQL, caregiverArgs(caregiver)...); err != nil {
		return nil, translateWriteErr(err, "assign caregiver")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return caregiver, nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, caregiverID id.CaregiverID) (*models.Caregiver, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers WHERE id = $1 AND org_id = $2`,
		caregiverID.String(), orgID.String())
	return scanCaregiver(row)
}

func (s *PostgresStore) FindActiveByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Caregiver, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers
		 WHERE org_id = $1 AND client_id = $2 AND status = 'active'`,
		orgID.String(), clientID.String())
	return scanCaregiver(row)
}

func (s *PostgresStore) ListByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Caregiver, error) {
	return s.list(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers
		 WHERE org_id = $1 AND client_id = $2 ORDER BY created_at`,
		orgID.String(), clientID.String())
}

func (s *PostgresStore) ListStandalone(ctx context.Context, orgID id.OrgID) ([]*models.Caregiver, error) {
	return s.list(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers
		 WHERE org_id = $1 AND client_id IS NULL ORDER BY created_at`,
		orgID.String())
}

// Execute loads the caregiver FOR UPDATE, runs validate-then-mutate, and
// writes the result back within the transaction.
func (s *PostgresStore) Execute(ctx context.Context, orgID id.OrgID, caregiverID id.CaregiverID, validate func(*models.Caregiver) error, mutate func(*models.Caregiver)) (*models.Caregiver, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx,
		`SELECT `+caregiverColumns+` FROM client_caregivers WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		caregiverID.String(), orgID.String())
	caregiver, err := scanCaregiver(row)
	if err != nil {
		return nil, err
	}

	if err := validate(caregiver); err != nil {
		return nil, err
	}
	mutate(caregiver)

	if _, err := tx.ExecContext(ctx, updateCaregiverSQL, caregiverArgs(caregiver)...); err != nil {
		return nil, translateWriteErr(err, "update caregiver")
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return caregiver, nil
}

func (s *PostgresStore) list(ctx context.Context, query string, args ...any) ([]*models.Caregiver, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list caregivers: %w", err)
	}
	defer rows.Close()

	var out []*models.Caregiver
	for rows.Next() {
		caregiver, err := scanCaregiver(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, caregiver)
	}
	return out, rows.Err()
}

func deactivateActiveLocked(ctx context.Context, tx *sql.Tx, orgID id.OrgID, clientID id.ClientID, now time.Time) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE client_caregivers
		SET status = 'inactive', ended_at = $3, updated_at = $3
		WHERE org_id = $1 AND client_id = $2 AND status = 'active'`,
		orgID.String(), clientID.String(), now)
	if err != nil {
		return fmt.Errorf("deactivate active caregiver: %w", err)
	}
	return nil
}

const insertCaregiverSQL = `
	INSERT INTO client_caregivers (` + caregiverColumns + `)
	VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18)`

const updateCaregiverSQL = `
	UPDATE client_caregivers SET
		org_id = $2, client_id = $3, first_name = $4, last_name = $5, phone = $6,
		status = $7, started_at = $8, ended_at = $9, fingerprinting_complete = $10,
		background_results_uploaded = $11, drivers_license_submitted = $12,
		tb_test_complete = $13, cpr_first_aid_complete = $14,
		pca_certification_current = $15, onboarding_finalized = $16,
		created_at = $17, updated_at = $18
	WHERE id = $1`

func caregiverArgs(c *models.Caregiver) []any {
	var clientID any
	if c.ClientID != nil {
		clientID = c.ClientID.String()
	}
	return []any{
		c.ID.String(), c.OrgID.String(), clientID, c.FirstName, c.LastName,
		c.Phone, string(c.Status), c.StartedAt, c.EndedAt,
		c.FingerprintingComplete, c.BackgroundResultsUploaded,
		c.DriversLicenseSubmitted, c.TBTestComplete, c.CPRFirstAidComplete,
		c.PCACertificationCurrent, c.OnboardingFinalized,
		c.CreatedAt, c.UpdatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanCaregiver(row scanner) (*models.Caregiver, error) {
	var (
		c                  models.Caregiver
		caregiverID, orgID string
		clientID           sql.NullString
		status             string
		startedAt, endedAt sql.NullTime
	)
	err := row.Scan(
		&caregiverID, &orgID, &clientID, &c.FirstName, &c.LastName, &c.Phone,
		&status, &startedAt, &endedAt,
		&c.FingerprintingComplete, &c.BackgroundResultsUploaded,
		&c.DriversLicenseSubmitted, &c.TBTestComplete, &c.CPRFirstAidComplete,
		&c.PCACertificationCurrent, &c.OnboardingFinalized,
		&c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan caregiver: %w", err)
	}

	parsedID, err := id.ParseCaregiverID(caregiverID)
	if err != nil {
		return nil, fmt.Errorf("scan caregiver: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan caregiver: %w", err)
	}
	c.ID = parsedID
	c.OrgID = parsedOrg
	c.Status = models.CaregiverStatus(status)
	if clientID.Valid {
		if parsed, err := id.ParseClientID(clientID.String); err == nil {
			c.ClientID = &parsed
		}
	}
	if startedAt.Valid {
		t := startedAt.Time
		c.StartedAt = &t
	}
	if endedAt.Valid {
		t := endedAt.Time
		c.EndedAt = &t
	}
	return &c, nil
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
