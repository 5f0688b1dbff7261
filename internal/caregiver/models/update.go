package models

// ChecklistUpdate is a partial update of the caregiver onboarding checklist.
// Nil fields are left untouched.
type ChecklistUpdate struct {
	FingerprintingComplete    *bool `json:"fingerprinting_complete,omitempty"`
	BackgroundResultsUploaded *bool `json:"background_results_uploaded,omitempty"`
	DriversLicenseSubmitted   *bool `json:"drivers_license_submitted,omitempty"`
	TBTestComplete            *bool `json:"tb_test_complete,omitempty"`
	CPRFirstAidComplete       *bool `json:"cpr_first_aid_complete,omitempty"`
	PCACertificationCurrent   *bool `json:"pca_certification_current,omitempty"`
	OnboardingFinalized       *bool `json:"onboarding_finalized,omitempty"`
}

// Apply copies the set fields onto the caregiver.
func (u ChecklistUpdate) Apply(c *Caregiver) {
	apply := func(dst *bool, src *bool) {
		if src != nil {
			*dst = *src
		}
	}
	apply(&c.FingerprintingComplete, u.FingerprintingComplete)
	apply(&c.BackgroundResultsUploaded, u.BackgroundResultsUploaded)
	apply(&c.DriversLicenseSubmitted, u.DriversLicenseSubmitted)
	apply(&c.TBTestComplete, u.TBTestComplete)
	apply(&c.CPRFirstAidComplete, u.CPRFirstAidComplete)
	apply(&c.PCACertificationCurrent, u.PCACertificationCurrent)
	apply(&c.OnboardingFinalized, u.OnboardingFinalized)
}
