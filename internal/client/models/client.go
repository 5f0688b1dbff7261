package models

import (
	"strings"
	"time"
	"unicode"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// ClientStatus is the coarse activity flag on a client record.
type ClientStatus string

const (
	ClientStatusActive   ClientStatus = "active"
	ClientStatusInactive ClientStatus = "inactive"
)

// Client is the aggregate root for a person receiving care.
//
// Invariants:
//   - FirstName is non-empty (FullName is derived, never authoritative)
//   - CurrentPhase only advances forward (intake → onboarding →
//     service_initiation); it is never auto-reverted, only corrected by an
//     explicit admin action
//   - CostShareAmount is never negative; writes are clamped at zero
type Client struct {
	ID           id.ClientID `json:"id"`
	OrgID        id.OrgID    `json:"org_id"`
	FirstName    string      `json:"first_name"`
	LastName     string      `json:"last_name"`
	FullName     string      `json:"full_name"`
	Email        string      `json:"email"`
	County       string      `json:"county"`
	Program      string      `json:"program"`
	PhoneNumbers []string    `json:"phone_numbers"`

	// Medical and demographic details, usually captured on the referral.
	Diagnosis         string `json:"diagnosis"`
	InsuranceProvider string `json:"insurance_provider"`
	DateOfBirth       string `json:"date_of_birth"`

	CurrentPhase Phase        `json:"current_phase"`
	Status       ClientStatus `json:"status"`

	CostShareAmount float64    `json:"cost_share_amount"`
	IntakeDate      *time.Time `json:"intake_date,omitempty"`

	// Intake checklist.
	AssessmentRequired         bool `json:"assessment_required"`
	ClinicalDatesEntered       bool `json:"clinical_dates_entered"`
	ReassessmentDateEntered    bool `json:"reassessment_date_entered"`
	InitialAssessmentCompleted bool `json:"initial_assessment_completed"`
	DocumentsUploaded          bool `json:"documents_uploaded"`

	// Onboarding checklist.
	AdminOnboardingComplete   bool `json:"admin_onboarding_complete"`
	FingerprintingComplete    bool `json:"fingerprinting_complete"`
	BackgroundResultsUploaded bool `json:"background_results_uploaded"`
	DriversLicenseSubmitted   bool `json:"drivers_license_submitted"`
	IdentityDocsSubmitted     bool `json:"identity_docs_submitted"`
	TBTestComplete            bool `json:"tb_test_complete"`
	CPRFirstAidComplete       bool `json:"cpr_first_aid_complete"`
	PCACertificationCurrent   bool `json:"pca_certification_current"`

	// Per-phase sign-off.
	IntakeFinalized            bool `json:"intake_finalized"`
	OnboardingFinalized        bool `json:"onboarding_finalized"`
	ServiceInitiationFinalized bool `json:"service_initiation_finalized"`

	ReferralID              *id.ReferralID `json:"referral_id,omitempty"`
	MarketerID              *id.UserID     `json:"marketer_id,omitempty"`
	CaseManagementCompanyID *id.CompanyID  `json:"case_management_company_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewClient constructs a client in the intake phase with active status.
func NewClient(clientID id.ClientID, orgID id.OrgID, firstName, lastName string, now time.Time) (*Client, error) {
	firstName = strings.TrimSpace(firstName)
	lastName = strings.TrimSpace(lastName)
	if firstName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "client first name is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "org id is required")
	}
	return &Client{
		ID:           clientID,
		OrgID:        orgID,
		FirstName:    firstName,
		LastName:     lastName,
		FullName:     JoinName(firstName, lastName),
		CurrentPhase: PhaseIntake,
		Status:       ClientStatusActive,
		PhoneNumbers: []string{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}, nil
}

// CanAdvancePhase checks the forward-only transition out of the current
// phase. It fails with a conflict when the checklist gate is unsatisfied so
// callers can distinguish "not yet" from a hard failure.
func (c *Client) CanAdvancePhase() error {
	if _, ok := NextPhase(c.CurrentPhase); !ok {
		return dErrors.New(dErrors.CodeConflict, "client is already in the final phase")
	}
	if !CanAdvance(c, c.CurrentPhase) {
		return dErrors.Newf(dErrors.CodeConflict, "checklist for phase %q is incomplete", c.CurrentPhase)
	}
	return nil
}

// ApplyAdvancePhase moves the client one phase forward and records the
// sign-off on the phase being left. Call CanAdvancePhase first.
func (c *Client) ApplyAdvancePhase(now time.Time) {
	switch c.CurrentPhase {
	case PhaseIntake:
		c.IntakeFinalized = true
		c.CurrentPhase = PhaseOnboarding
	case PhaseOnboarding:
		c.OnboardingFinalized = true
		c.CurrentPhase = PhaseServiceInitiation
	}
	c.UpdatedAt = now
}

// SetCostShare clamps the amount at zero; cost share is never negative.
func (c *Client) SetCostShare(amount float64) {
	if amount < 0 {
		amount = 0
	}
	c.CostShareAmount = amount
}

// DeleteConfirmationPhrase is the exact phrase an admin must type to
// hard-delete this client.
func (c *Client) DeleteConfirmationPhrase() string {
	return "DELETE " + c.FullName
}

// SplitName takes the first whitespace-delimited token as the first name and
// the remainder as the last name. An empty remainder yields an empty last
// name.
func SplitName(full string) (first, last string) {
	full = strings.TrimSpace(full)
	if full == "" {
		return "", ""
	}
	cut := strings.IndexFunc(full, unicode.IsSpace)
	if cut < 0 {
		return full, ""
	}
	return full[:cut], strings.TrimSpace(full[cut:])
}

// JoinName renders the display full name from its parts.
func JoinName(first, last string) string {
	if last == "" {
		return first
	}
	return first + " " + last
}
