package models

// ChecklistUpdate is a partial update of the per-phase checklist. Nil fields
// are left untouched, so a single toggle sends exactly one flag.
type ChecklistUpdate struct {
	AssessmentRequired         *bool `json:"assessment_required,omitempty"`
	ClinicalDatesEntered       *bool `json:"clinical_dates_entered,omitempty"`
	ReassessmentDateEntered    *bool `json:"reassessment_date_entered,omitempty"`
	InitialAssessmentCompleted *bool `json:"initial_assessment_completed,omitempty"`
	DocumentsUploaded          *bool `json:"documents_uploaded,omitempty"`

	AdminOnboardingComplete   *bool `json:"admin_onboarding_complete,omitempty"`
	FingerprintingComplete    *bool `json:"fingerprinting_complete,omitempty"`
	BackgroundResultsUploaded *bool `json:"background_results_uploaded,omitempty"`
	DriversLicenseSubmitted   *bool `json:"drivers_license_submitted,omitempty"`
	IdentityDocsSubmitted     *bool `json:"identity_docs_submitted,omitempty"`
	TBTestComplete            *bool `json:"tb_test_complete,omitempty"`
	CPRFirstAidComplete       *bool `json:"cpr_first_aid_complete,omitempty"`
	PCACertificationCurrent   *bool `json:"pca_certification_current,omitempty"`
}

// Apply copies the set fields onto the client.
func (u ChecklistUpdate) Apply(c *Client) {
	setBool(&c.AssessmentRequired, u.AssessmentRequired)
	setBool(&c.ClinicalDatesEntered, u.ClinicalDatesEntered)
	setBool(&c.ReassessmentDateEntered, u.ReassessmentDateEntered)
	setBool(&c.InitialAssessmentCompleted, u.InitialAssessmentCompleted)
	setBool(&c.DocumentsUploaded, u.DocumentsUploaded)
	setBool(&c.AdminOnboardingComplete, u.AdminOnboardingComplete)
	setBool(&c.FingerprintingComplete, u.FingerprintingComplete)
	setBool(&c.BackgroundResultsUploaded, u.BackgroundResultsUploaded)
	setBool(&c.DriversLicenseSubmitted, u.DriversLicenseSubmitted)
	setBool(&c.IdentityDocsSubmitted, u.IdentityDocsSubmitted)
	setBool(&c.TBTestComplete, u.TBTestComplete)
	setBool(&c.CPRFirstAidComplete, u.CPRFirstAidComplete)
	setBool(&c.PCACertificationCurrent, u.PCACertificationCurrent)
}

// DetailsUpdate is a partial update of contact, medical, and billing fields.
type DetailsUpdate struct {
	FirstName         *string       `json:"first_name,omitempty"`
	LastName          *string       `json:"last_name,omitempty"`
	Email             *string       `json:"email,omitempty"`
	County            *string       `json:"county,omitempty"`
	Program           *string       `json:"program,omitempty"`
	Diagnosis         *string       `json:"diagnosis,omitempty"`
	InsuranceProvider *string       `json:"insurance_provider,omitempty"`
	DateOfBirth       *string       `json:"date_of_birth,omitempty"`
	PhoneNumbers      *[]string     `json:"phone_numbers,omitempty"`
	CostShareAmount   *float64      `json:"cost_share_amount,omitempty"`
	Status            *ClientStatus `json:"status,omitempty"`
}

// Apply copies the set fields onto the client, re-deriving the display name
// and clamping cost share at zero.
func (u DetailsUpdate) Apply(c *Client) {
	if u.FirstName != nil {
		c.FirstName = *u.FirstName
	}
	if u.LastName != nil {
		c.LastName = *u.LastName
	}
	if u.FirstName != nil || u.LastName != nil {
		c.FullName = JoinName(c.FirstName, c.LastName)
	}
	if u.Email != nil {
		c.Email = *u.Email
	}
	if u.County != nil {
		c.County = *u.County
	}
	if u.Program != nil {
		c.Program = *u.Program
	}
	if u.Diagnosis != nil {
		c.Diagnosis = *u.Diagnosis
	}
	if u.InsuranceProvider != nil {
		c.InsuranceProvider = *u.InsuranceProvider
	}
	if u.DateOfBirth != nil {
		c.DateOfBirth = *u.DateOfBirth
	}
	if u.PhoneNumbers != nil {
		c.PhoneNumbers = *u.PhoneNumbers
	}
	if u.CostShareAmount != nil {
		c.SetCostShare(*u.CostShareAmount)
	}
	if u.Status != nil {
		c.Status = *u.Status
	}
}

func setBool(dst *bool, src *bool) {
	if src != nil {
		*dst = *src
	}
}
