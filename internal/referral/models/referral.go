// Package models holds the referral domain types. A referral is a marketing
// lead captured before intake; conversion turns it into a client record and
// removes it from the prospect list.
package models

import (
	"strings"
	"time"

	clientmodels "carelink/internal/client/models"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Referral is a prospect captured by a marketer. Fields are free-form as
// entered in the field; validation happens at conversion, not capture.
type Referral struct {
	ID                id.ReferralID `json:"id"`
	OrgID             id.OrgID      `json:"org_id"`
	Name              string        `json:"name"`
	Phone             string        `json:"phone"`
	County            string        `json:"county"`
	RequestedProgram  string        `json:"requested_program"`
	Diagnosis         string        `json:"diagnosis"`
	InsuranceProvider string        `json:"insurance_provider"`
	DateOfBirth       string        `json:"date_of_birth"`
	MarketerID        *id.UserID    `json:"marketer_id,omitempty"`
	MarketerName      string        `json:"marketer_name"`

	// Pre-intake checklist items that can be completed while the person is
	// still a prospect. True values carry over to the client at conversion.
	FingerprintingComplete    bool `json:"fingerprinting_complete"`
	BackgroundResultsUploaded bool `json:"background_results_uploaded"`
	TBTestComplete            bool `json:"tb_test_complete"`

	// ClientID is set once the referral has been converted.
	ClientID *id.ClientID `json:"client_id,omitempty"`

	CreatedAt time.Time `json:"created_at"`
}

// New constructs a referral. Only the name is required at capture time.
func New(referralID id.ReferralID, orgID id.OrgID, name string, now time.Time) (*Referral, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "referral name is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "org id is required")
	}
	return &Referral{
		ID:        referralID,
		OrgID:     orgID,
		Name:      name,
		CreatedAt: now,
	}, nil
}

// IsConverted reports whether a client record exists for this referral.
func (r *Referral) IsConverted() bool {
	return r.ClientID != nil
}

// IntakeForm is the staff-entered data at conversion. Set fields override the
// corresponding referral fields; Program is taken from the form only, never
// from the referral's RequestedProgram.
type IntakeForm struct {
	FullName                string        `json:"full_name"`
	Email                   string        `json:"email"`
	County                  string        `json:"county"`
	Program                 string        `json:"program"`
	Phone                   string        `json:"phone"`
	Diagnosis               string        `json:"diagnosis"`
	InsuranceProvider       string        `json:"insurance_provider"`
	DateOfBirth             string        `json:"date_of_birth"`
	CostShareAmount         *float64      `json:"cost_share_amount,omitempty"`
	CaseManagementCompanyID *id.CompanyID `json:"case_management_company_id,omitempty"`
}

// BuildClient merges the referral and the intake form into a new client in
// the intake phase.
//
// Merge order: referral-captured fields first (identifiers, creation time,
// and marketer identity excluded), then form overrides where set. Pre-intake
// checklist items already completed on the referral carry over as true. The
// referral's MarketerID is kept as a link on the client; MarketerName is not
// copied because the client record references users by ID.
func (r *Referral) BuildClient(clientID id.ClientID, form IntakeForm, now time.Time) (*clientmodels.Client, error) {
	name := strings.TrimSpace(form.FullName)
	if name == "" {
		name = r.Name
	}
	first, last := clientmodels.SplitName(name)

	client, err := clientmodels.NewClient(clientID, r.OrgID, first, last, now)
	if err != nil {
		return nil, err
	}

	client.County = pick(form.County, r.County)
	client.Email = strings.TrimSpace(form.Email)
	client.Program = strings.TrimSpace(form.Program)
	client.Diagnosis = pick(form.Diagnosis, r.Diagnosis)
	client.InsuranceProvider = pick(form.InsuranceProvider, r.InsuranceProvider)
	client.DateOfBirth = pick(form.DateOfBirth, r.DateOfBirth)
	if phone := pick(form.Phone, r.Phone); phone != "" {
		client.PhoneNumbers = []string{phone}
	}
	if form.CostShareAmount != nil {
		client.SetCostShare(*form.CostShareAmount)
	}

	client.FingerprintingComplete = r.FingerprintingComplete
	client.BackgroundResultsUploaded = r.BackgroundResultsUploaded
	client.TBTestComplete = r.TBTestComplete

	referralID := r.ID
	client.ReferralID = &referralID
	client.MarketerID = r.MarketerID
	client.CaseManagementCompanyID = form.CaseManagementCompanyID

	intakeDate := now
	client.IntakeDate = &intakeDate
	return client, nil
}

func pick(override, fallback string) string {
	if v := strings.TrimSpace(override); v != "" {
		return v
	}
	return strings.TrimSpace(fallback)
}
