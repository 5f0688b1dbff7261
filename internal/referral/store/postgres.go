package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carelink/internal/referral/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists referrals in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const referralColumns = `id, org_id, name, phone, county, requested_program, diagnosis,
	insurance_provider, date_of_birth, marketer_id, marketer_name,
	fingerprinting_complete, background_results_uploaded, tb_test_complete,
	client_id, created_at`

func (s *PostgresStore) Create(ctx context.Context, referral *models.Referral) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO referrals (`+referralColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16)`,
		referralArgs(referral)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create referral: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, referralID id.ReferralID) (*models.Referral, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT `+referralColumns+` FROM referrals WHERE id = $1 AND org_id = $2`,
		referralID.String(), orgID.String())
	return scanReferral(row)
}

// List returns the org's unconverted referrals, newest first.
func (s *PostgresStore) List(ctx context.Context, orgID id.OrgID) ([]*models.Referral, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+referralColumns+` FROM referrals
		 WHERE org_id = $1 AND client_id IS NULL ORDER BY created_at DESC`,
		orgID.String())
	if err != nil {
		return nil, fmt.Errorf("list referrals: %w", err)
	}
	defer rows.Close()

	var out []*models.Referral
	for rows.Next() {
		referral, err := scanReferral(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, referral)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, referral *models.Referral) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE referrals SET
			name = $3, phone = $4, county = $5, requested_program = $6,
			diagnosis = $7, insurance_provider = $8, date_of_birth = $9,
			marketer_id = $10, marketer_name = $11, fingerprinting_complete = $12,
			background_results_uploaded = $13, tb_test_complete = $14, client_id = $15
		WHERE id = $1 AND org_id = $2`,
		referralArgs(referral)[:15]...)
	if err != nil {
		return fmt.Errorf("update referral: %w", err)
	}
	return mustAffect(res)
}

func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrgID, referralID id.ReferralID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM referrals WHERE id = $1 AND org_id = $2`,
		referralID.String(), orgID.String())
	if err != nil {
		return fmt.Errorf("delete referral: %w", err)
	}
	return mustAffect(res)
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

func referralArgs(r *models.Referral) []any {
	var marketerID, clientID any
	if r.MarketerID != nil {
		marketerID = r.MarketerID.String()
	}
	if r.ClientID != nil {
		clientID = r.ClientID.String()
	}
	return []any{
		r.ID.String(), r.OrgID.String(), r.Name, r.Phone, r.County,
		r.RequestedProgram, r.Diagnosis, r.InsuranceProvider, r.DateOfBirth,
		marketerID, r.MarketerName,
		r.FingerprintingComplete, r.BackgroundResultsUploaded, r.TBTestComplete,
		clientID, r.CreatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReferral(row scanner) (*models.Referral, error) {
	var (
		r                    models.Referral
		referralID, orgID    string
		marketerID, clientID sql.NullString
	)
	err := row.Scan(
		&referralID, &orgID, &r.Name, &r.Phone, &r.County, &r.RequestedProgram,
		&r.Diagnosis, &r.InsuranceProvider, &r.DateOfBirth,
		&marketerID, &r.MarketerName,
		&r.FingerprintingComplete, &r.BackgroundResultsUploaded, &r.TBTestComplete,
		&clientID, &r.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan referral: %w", err)
	}

	parsedID, err := id.ParseReferralID(referralID)
	if err != nil {
		return nil, fmt.Errorf("scan referral: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan referral: %w", err)
	}
	r.ID = parsedID
	r.OrgID = parsedOrg
	if marketerID.Valid {
		if parsed, err := id.ParseUserID(marketerID.String); err == nil {
			r.MarketerID = &parsed
		}
	}
	if clientID.Valid {
		if parsed, err := id.ParseClientID(clientID.String); err == nil {
			r.ClientID = &parsed
		}
	}
	return &r, nil
}
