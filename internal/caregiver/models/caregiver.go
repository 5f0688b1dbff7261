package models

import (
	"strings"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// CaregiverStatus marks whether a caregiver record is currently working.
type CaregiverStatus string

const (
	CaregiverStatusActive   CaregiverStatus = "active"
	CaregiverStatusInactive CaregiverStatus = "inactive"
)

// Caregiver is a person caring for a client, or a standalone pool entry when
// ClientID is nil.
//
// Invariant: for a given non-nil ClientID, at most one caregiver record has
// Status == active at any time. The stores enforce this — the memory store
// under its lock, Postgres with a partial unique index — so no sequence of
// add/assign/deactivate calls, including racing assignments, can leave two
// active rows on one client.
type Caregiver struct {
	ID        id.CaregiverID  `json:"id"`
	OrgID     id.OrgID        `json:"org_id"`
	ClientID  *id.ClientID    `json:"client_id,omitempty"`
	FirstName string          `json:"first_name"`
	LastName  string          `json:"last_name"`
	Phone     string          `json:"phone"`
	Status    CaregiverStatus `json:"status"`
	StartedAt *time.Time      `json:"started_at,omitempty"`
	EndedAt   *time.Time      `json:"ended_at,omitempty"`

	// Onboarding checklist.
	FingerprintingComplete    bool `json:"fingerprinting_complete"`
	BackgroundResultsUploaded bool `json:"background_results_uploaded"`
	DriversLicenseSubmitted   bool `json:"drivers_license_submitted"`
	TBTestComplete            bool `json:"tb_test_complete"`
	CPRFirstAidComplete       bool `json:"cpr_first_aid_complete"`
	PCACertificationCurrent   bool `json:"pca_certification_current"`
	OnboardingFinalized       bool `json:"onboarding_finalized"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// NewStandalone constructs an unassigned pool caregiver: active, no client,
// all onboarding flags false.
func NewStandalone(caregiverID id.CaregiverID, orgID id.OrgID, firstName, lastName string, now time.Time) (*Caregiver, error) {
	firstName = strings.TrimSpace(firstName)
	if firstName == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "caregiver first name is required")
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "org id is required")
	}
	return &Caregiver{
		ID:        caregiverID,
		OrgID:     orgID,
		FirstName: firstName,
		LastName:  strings.TrimSpace(lastName),
		Status:    CaregiverStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// NewForClient constructs a caregiver created directly under a client.
func NewForClient(caregiverID id.CaregiverID, orgID id.OrgID, clientID id.ClientID, firstName, lastName string, now time.Time) (*Caregiver, error) {
	caregiver, err := NewStandalone(caregiverID, orgID, firstName, lastName, now)
	if err != nil {
		return nil, err
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "client id is required")
	}
	caregiver.ClientID = &clientID
	caregiver.StartedAt = &now
	return caregiver, nil
}

// IsActive reports whether the record counts against the single-active rule.
func (c *Caregiver) IsActive() bool {
	return c.Status == CaregiverStatusActive
}

// ApplyDeactivation ends the caregiver's engagement at the given time.
func (c *Caregiver) ApplyDeactivation(endedAt time.Time) {
	c.Status = CaregiverStatusInactive
	c.EndedAt = &endedAt
	c.UpdatedAt = endedAt
}

// ApplyAssignment attaches the caregiver to a client as its active caregiver:
// started fresh, any previous end cleared.
func (c *Caregiver) ApplyAssignment(clientID id.ClientID, now time.Time) {
	c.ClientID = &clientID
	c.Status = CaregiverStatusActive
	c.StartedAt = &now
	c.EndedAt = nil
	c.UpdatedAt = now
}

// FullName renders the display name.
func (c *Caregiver) FullName() string {
	if c.LastName == "" {
		return c.FirstName
	}
	return c.FirstName + " " + c.LastName
}
