package models

// Phase is the client's position in the onboarding pipeline.
type Phase string

const (
	PhaseIntake            Phase = "intake"
	PhaseOnboarding        Phase = "onboarding"
	PhaseServiceInitiation Phase = "service_initiation"
)

// Valid reports whether the phase is one of the known pipeline stages.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIntake, PhaseOnboarding, PhaseServiceInitiation:
		return true
	}
	return false
}

// NextPhase returns the phase that follows p. The second return is false for
// the terminal phase (and for unknown labels, which fail closed).
func NextPhase(p Phase) (Phase, bool) {
	switch p {
	case PhaseIntake:
		return PhaseOnboarding, true
	case PhaseOnboarding:
		return PhaseServiceInitiation, true
	}
	return "", false
}

// requiredChecklist returns the gate fields for advancing out of a phase.
// Each entry is read straight off the client record; a field that was never
// set reads as false, so an incomplete record can never pass the gate.
func requiredChecklist(c *Client, p Phase) ([]bool, bool) {
	switch p {
	case PhaseIntake:
		return []bool{
			c.AssessmentRequired,
			c.ClinicalDatesEntered,
			c.ReassessmentDateEntered,
			c.InitialAssessmentCompleted,
			c.DocumentsUploaded,
		}, true
	case PhaseOnboarding:
		return []bool{
			c.AdminOnboardingComplete,
			c.FingerprintingComplete,
			c.BackgroundResultsUploaded,
			c.DriversLicenseSubmitted,
			c.IdentityDocsSubmitted,
			c.TBTestComplete,
			c.CPRFirstAidComplete,
			c.PCACertificationCurrent,
		}, true
	}
	return nil, false
}

// CanAdvance reports whether every required checklist item for the given
// phase is satisfied. The gate is a strict AND: there is no partial credit.
// The terminal phase has no gate and always returns false.
//
// CanAdvance is pure; it never mutates the record. Callers use it to decide
// whether to offer the transition, then apply the transition separately.
func CanAdvance(c *Client, p Phase) bool {
	if c == nil {
		return false
	}
	required, ok := requiredChecklist(c, p)
	if !ok {
		return false
	}
	for _, satisfied := range required {
		if !satisfied {
			return false
		}
	}
	return true
}
