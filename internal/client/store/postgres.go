package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"

	"carelink/internal/client/models"
	id "carelink/pkg/domain"
	"carelink/pkg/platform/sentinel"
)

// PostgresStore persists clients and care notes in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const clientColumns = `id, org_id, first_name, last_name, full_name, email, county, program,
	diagnosis, insurance_provider, date_of_birth,
	phone_numbers, current_phase, status, cost_share_amount, intake_date,
	assessment_required, clinical_dates_entered, reassessment_date_entered,
	initial_assessment_completed, documents_uploaded,
	admin_onboarding_complete, fingerprinting_complete, background_results_uploaded,
	drivers_license_submitted, identity_docs_submitted, tb_test_complete,
	cpr_first_aid_complete, pca_certification_current,
	intake_finalized, onboarding_finalized, service_initiation_finalized,
	referral_id, marketer_id, case_management_company_id, created_at, updated_at`

func (s *PostgresStore) Create(ctx context.Context, client *models.Client) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO clients (`+clientColumns+`)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14,$15,$16,$17,$18,
		        $19,$20,$21,$22,$23,$24,$25,$26,$27,$28,$29,$30,$31,$32,$33,$34,
		        $35,$36,$37)`,
		clientArgs(client)...)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code.Name() == "unique_violation" {
			return sentinel.ErrConflict
		}
		return fmt.Errorf("create client: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Client, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE id = $1 AND org_id = $2`,
		clientID.String(), orgID.String())
	return scanClient(row)
}

func (s *PostgresStore) List(ctx context.Context, orgID id.OrgID, filter models.Filter) ([]*models.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE org_id = $1`
	args := []any{orgID.String()}
	if filter.Phase != nil {
		args = append(args, string(*filter.Phase))
		query += fmt.Sprintf(" AND current_phase = $%d", len(args))
	}
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		query += fmt.Sprintf(" AND status = $%d", len(args))
	}
	if filter.Program != nil {
		args = append(args, *filter.Program)
		query += fmt.Sprintf(" AND program = $%d", len(args))
	}
	if filter.County != nil {
		args = append(args, *filter.County)
		query += fmt.Sprintf(" AND county = $%d", len(args))
	}
	query += " ORDER BY " + sortColumn(filter)

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list clients: %w", err)
	}
	defer rows.Close()

	var out []*models.Client
	for rows.Next() {
		client, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, client)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Update(ctx context.Context, client *models.Client) error {
	res, err := s.db.ExecContext(ctx, updateClientSQL, clientArgs(client)...)
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update client: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

// Execute loads the client FOR UPDATE inside a transaction, runs
// validate-then-mutate, and writes the result back. The row lock makes the
// sequence atomic against concurrent phase advances.
func (s *PostgresStore) Execute(ctx context.Context, orgID id.OrgID, clientID id.ClientID, validate func(*models.Client) error, mutate func(*models.Client)) (*models.Client, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRowContext(ctx, `
		SELECT `+clientColumns+` FROM clients WHERE id = $1 AND org_id = $2 FOR UPDATE`,
		clientID.String(), orgID.String())
	client, err := scanClient(row)
	if err != nil {
		return nil, err
	}

	if err := validate(client); err != nil {
		return nil, err
	}
	mutate(client)

	if _, err := tx.ExecContext(ctx, updateClientSQL, clientArgs(client)...); err != nil {
		return nil, fmt.Errorf("update client: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return client, nil
}

func (s *PostgresStore) Delete(ctx context.Context, orgID id.OrgID, clientID id.ClientID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM clients WHERE id = $1 AND org_id = $2`,
		clientID.String(), orgID.String())
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete client: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) Count(ctx context.Context, orgID id.OrgID) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM clients WHERE org_id = $1`, orgID.String()).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count clients: %w", err)
	}
	return count, nil
}

func (s *PostgresStore) AddNote(ctx context.Context, note *models.Note) error {
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO client_notes (id, org_id, client_id, author_id, content, created_at)
		SELECT $1, $2, $3, $4, $5, $6
		WHERE EXISTS (SELECT 1 FROM clients WHERE id = $3 AND org_id = $2)`,
		note.ID.String(), note.OrgID.String(), note.ClientID.String(),
		note.AuthorID.String(), note.Content, note.CreatedAt)
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("add note: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) ListNotes(ctx context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Note, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT n.id, n.org_id, n.client_id, n.author_id, COALESCE(u.name, ''), n.content, n.created_at
		FROM client_notes n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.org_id = $1 AND n.client_id = $2
		ORDER BY n.created_at`,
		orgID.String(), clientID.String())
	if err != nil {
		return nil, fmt.Errorf("list notes: %w", err)
	}
	defer rows.Close()

	var out []*models.Note
	for rows.Next() {
		note, err := scanNote(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, note)
	}
	return out, rows.Err()
}

func (s *PostgresStore) FindNote(ctx context.Context, orgID id.OrgID, noteID id.NoteID) (*models.Note, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT n.id, n.org_id, n.client_id, n.author_id, COALESCE(u.name, ''), n.content, n.created_at
		FROM client_notes n
		LEFT JOIN users u ON u.id = n.author_id
		WHERE n.org_id = $1 AND n.id = $2`,
		orgID.String(), noteID.String())
	return scanNote(row)
}

func (s *PostgresStore) DeleteNote(ctx context.Context, orgID id.OrgID, noteID id.NoteID) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM client_notes WHERE id = $1 AND org_id = $2`,
		noteID.String(), orgID.String())
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete note: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

const updateClientSQL = `
	UPDATE clients SET
		org_id = $2, first_name = $3, last_name = $4, full_name = $5, email = $6,
		county = $7, program = $8, diagnosis = $9, insurance_provider = $10,
		date_of_birth = $11, phone_numbers = $12, current_phase = $13,
		status = $14, cost_share_amount = $15, intake_date = $16,
		assessment_required = $17, clinical_dates_entered = $18,
		reassessment_date_entered = $19, initial_assessment_completed = $20,
		documents_uploaded = $21, admin_onboarding_complete = $22,
		fingerprinting_complete = $23, background_results_uploaded = $24,
		drivers_license_submitted = $25, identity_docs_submitted = $26,
		tb_test_complete = $27, cpr_first_aid_complete = $28,
		pca_certification_current = $29, intake_finalized = $30,
		onboarding_finalized = $31, service_initiation_finalized = $32,
		referral_id = $33, marketer_id = $34, case_management_company_id = $35,
		created_at = $36, updated_at = $37
	WHERE id = $1`

func clientArgs(c *models.Client) []any {
	return []any{
		c.ID.String(), c.OrgID.String(), c.FirstName, c.LastName, c.FullName,
		c.Email, c.County, c.Program,
		c.Diagnosis, c.InsuranceProvider, c.DateOfBirth,
		pq.Array(c.PhoneNumbers),
		string(c.CurrentPhase), string(c.Status), c.CostShareAmount, c.IntakeDate,
		c.AssessmentRequired, c.ClinicalDatesEntered, c.ReassessmentDateEntered,
		c.InitialAssessmentCompleted, c.DocumentsUploaded,
		c.AdminOnboardingComplete, c.FingerprintingComplete, c.BackgroundResultsUploaded,
		c.DriversLicenseSubmitted, c.IdentityDocsSubmitted, c.TBTestComplete,
		c.CPRFirstAidComplete, c.PCACertificationCurrent,
		c.IntakeFinalized, c.OnboardingFinalized, c.ServiceInitiationFinalized,
		uuidOrNil(c.ReferralID), uuidOrNil(c.MarketerID), uuidOrNil(c.CaseManagementCompanyID),
		c.CreatedAt, c.UpdatedAt,
	}
}

type scanner interface {
	Scan(dest ...any) error
}

func scanClient(row scanner) (*models.Client, error) {
	var (
		c                                 models.Client
		clientID, orgID                   string
		phase, status                     string
		phones                            pq.StringArray
		intakeDate                        sql.NullTime
		referralID, marketerID, companyID sql.NullString
	)
	err := row.Scan(
		&clientID, &orgID, &c.FirstName, &c.LastName, &c.FullName, &c.Email,
		&c.County, &c.Program,
		&c.Diagnosis, &c.InsuranceProvider, &c.DateOfBirth,
		&phones, &phase, &status, &c.CostShareAmount,
		&intakeDate,
		&c.AssessmentRequired, &c.ClinicalDatesEntered, &c.ReassessmentDateEntered,
		&c.InitialAssessmentCompleted, &c.DocumentsUploaded,
		&c.AdminOnboardingComplete, &c.FingerprintingComplete, &c.BackgroundResultsUploaded,
		&c.DriversLicenseSubmitted, &c.IdentityDocsSubmitted, &c.TBTestComplete,
		&c.CPRFirstAidComplete, &c.PCACertificationCurrent,
		&c.IntakeFinalized, &c.OnboardingFinalized, &c.ServiceInitiationFinalized,
		&referralID, &marketerID, &companyID, &c.CreatedAt, &c.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan client: %w", err)
	}

	parsedID, err := id.ParseClientID(clientID)
	if err != nil {
		return nil, fmt.Errorf("scan client: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan client: %w", err)
	}
	c.ID = parsedID
	c.OrgID = parsedOrg
	c.PhoneNumbers = []string(phones)
	c.CurrentPhase = models.Phase(phase)
	c.Status = models.ClientStatus(status)
	if intakeDate.Valid {
		t := intakeDate.Time
		c.IntakeDate = &t
	}
	if referralID.Valid {
		if parsed, err := id.ParseReferralID(referralID.String); err == nil {
			c.ReferralID = &parsed
		}
	}
	if marketerID.Valid {
		if parsed, err := id.ParseUserID(marketerID.String); err == nil {
			c.MarketerID = &parsed
		}
	}
	if companyID.Valid {
		if parsed, err := id.ParseCompanyID(companyID.String); err == nil {
			c.CaseManagementCompanyID = &parsed
		}
	}
	return &c, nil
}

func scanNote(row scanner) (*models.Note, error) {
	var (
		n                           models.Note
		noteID, orgID, clientID, authorID string
	)
	err := row.Scan(&noteID, &orgID, &clientID, &authorID, &n.AuthorName, &n.Content, &n.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("scan note: %w", err)
	}
	parsedNote, err := id.ParseNoteID(noteID)
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	parsedOrg, err := id.ParseOrgID(orgID)
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	parsedClient, err := id.ParseClientID(clientID)
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	parsedAuthor, err := id.ParseUserID(authorID)
	if err != nil {
		return nil, fmt.Errorf("scan note: %w", err)
	}
	n.ID = parsedNote
	n.OrgID = parsedOrg
	n.ClientID = parsedClient
	n.AuthorID = parsedAuthor
	return &n, nil
}

func sortColumn(filter models.Filter) string {
	col := "created_at"
	switch filter.SortBy {
	case "full_name", "intake_date":
		col = filter.SortBy
	}
	if filter.SortDesc {
		return col + " DESC"
	}
	return col
}

// uuidOrNil renders an optional typed ID as a nullable column value.
func uuidOrNil[T interface{ String() string }](ptr *T) any {
	if ptr == nil {
		return nil
	}
	return (*ptr).String()
}
