// Package service orchestrates referral capture and conversion into clients.
package service

import (
	"context"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	clientmodels "carelink/internal/client/models"
	"carelink/internal/events"
	"carelink/internal/platform/metrics"
	"carelink/internal/referral/models"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// Store is the referral persistence contract.
type Store interface {
	Create(ctx context.Context, referral *models.Referral) error
	FindByID(ctx context.Context, orgID id.OrgID, referralID id.ReferralID) (*models.Referral, error)
	List(ctx context.Context, orgID id.OrgID) ([]*models.Referral, error)
	Update(ctx context.Context, referral *models.Referral) error
	Delete(ctx context.Context, orgID id.OrgID, referralID id.ReferralID) error
}

// ClientCreator persists the client produced by a conversion. The client
// store satisfies this.
type ClientCreator interface {
	Create(ctx context.Context, client *clientmodels.Client) error
}

// CreateInput is a marketer's referral submission.
type CreateInput struct {
	Name              string `json:"name"`
	Phone             string `json:"phone"`
	County            string `json:"county"`
	RequestedProgram  string `json:"requested_program"`
	Diagnosis         string `json:"diagnosis"`
	InsuranceProvider string `json:"insurance_provider"`
	DateOfBirth       string `json:"date_of_birth"`
	MarketerName      string `json:"marketer_name"`
}

// ChecklistUpdate toggles the pre-intake checklist on a referral.
type ChecklistUpdate struct {
	FingerprintingComplete    *bool `json:"fingerprinting_complete,omitempty"`
	BackgroundResultsUploaded *bool `json:"background_results_uploaded,omitempty"`
	TBTestComplete            *bool `json:"tb_test_complete,omitempty"`
}

// Service orchestrates the referral lifecycle.
type Service struct {
	referrals Store
	clients   ClientCreator
	emitter   events.Emitter
	logger    *slog.Logger
	metrics   *metrics.Metrics
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithEmitter(emitter events.Emitter) Option {
	return func(s *Service) { s.emitter = emitter }
}

// New constructs a Service.
func New(referrals Store, clients ClientCreator, opts ...Option) *Service {
	s := &Service{
		referrals: referrals,
		clients:   clients,
		emitter:   events.Nop{},
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create captures a new referral and announces it so staff get notified.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Referral, error) {
	now := requestcontext.Now(ctx)
	referral, err := models.New(id.ReferralID(uuid.New()), requestcontext.OrgID(ctx), input.Name, now)
	if err != nil {
		return nil, err
	}
	referral.Phone = input.Phone
	referral.County = input.County
	referral.RequestedProgram = input.RequestedProgram
	referral.Diagnosis = input.Diagnosis
	referral.InsuranceProvider = input.InsuranceProvider
	referral.DateOfBirth = input.DateOfBirth
	referral.MarketerName = input.MarketerName
	if marketerID := requestcontext.UserID(ctx); !marketerID.IsNil() {
		referral.MarketerID = &marketerID
	}

	if err := s.referrals.Create(ctx, referral); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create referral")
	}

	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.TypeReferralCreated,
		OrgID:      referral.OrgID,
		ActorID:    requestcontext.UserID(ctx),
		EntityType: "referral",
		EntityID:   referral.ID.String(),
		Title:      "New referral",
		Detail:     referral.Name,
		OccurredAt: now,
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("referral_created event dropped", "referral_id", referral.ID.String(), "error", err)
	}
	return referral, nil
}

// Get retrieves one referral.
func (s *Service) Get(ctx context.Context, referralID id.ReferralID) (*models.Referral, error) {
	referral, err := s.referrals.FindByID(ctx, requestcontext.OrgID(ctx), referralID)
	if err != nil {
		return nil, wrapReferralErr(err)
	}
	return referral, nil
}

// List returns the org's prospect list (unconverted referrals).
func (s *Service) List(ctx context.Context) ([]*models.Referral, error) {
	referrals, err := s.referrals.List(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list referrals")
	}
	return referrals, nil
}

// UpdateChecklist toggles pre-intake checklist items on a referral.
func (s *Service) UpdateChecklist(ctx context.Context, referralID id.ReferralID, update ChecklistUpdate) (*models.Referral, error) {
	referral, err := s.referrals.FindByID(ctx, requestcontext.OrgID(ctx), referralID)
	if err != nil {
		return nil, wrapReferralErr(err)
	}
	if update.FingerprintingComplete != nil {
		referral.FingerprintingComplete = *update.FingerprintingComplete
	}
	if update.BackgroundResultsUploaded != nil {
		referral.BackgroundResultsUploaded = *update.BackgroundResultsUploaded
	}
	if update.TBTestComplete != nil {
		referral.TBTestComplete = *update.TBTestComplete
	}
	if err := s.referrals.Update(ctx, referral); err != nil {
		return nil, wrapReferralErr(err)
	}
	return referral, nil
}

// Delete removes a referral that will not be pursued.
func (s *Service) Delete(ctx context.Context, referralID id.ReferralID) error {
	if err := s.referrals.Delete(ctx, requestcontext.OrgID(ctx), referralID); err != nil {
		return wrapReferralErr(err)
	}
	return nil
}

// Convert turns a referral into a client in the intake phase.
//
// The referral's captured fields seed the client, then the intake form
// overrides them where filled in; Program comes from the form only. Checklist
// items already completed on the referral carry over. The referral is deleted
// only after the client persists successfully, so a failed conversion leaves
// the prospect list intact.
func (s *Service) Convert(ctx context.Context, referralID id.ReferralID, form models.IntakeForm) (*clientmodels.Client, error) {
	orgID := requestcontext.OrgID(ctx)
	referral, err := s.referrals.FindByID(ctx, orgID, referralID)
	if err != nil {
		return nil, wrapReferralErr(err)
	}
	if referral.IsConverted() {
		return nil, dErrors.New(dErrors.CodeConflict, "referral has already been converted")
	}

	now := requestcontext.Now(ctx)
	client, err := referral.BuildClient(id.ClientID(uuid.New()), form, now)
	if err != nil {
		return nil, err
	}

	if err := s.clients.Create(ctx, client); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a client already exists for this referral")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client from referral")
	}

	// The client is the record of truth now. Record the back-reference first
	// so a surviving referral reads as converted and a retry hits the
	// conflict guard instead of minting a second client.
	clientID := client.ID
	referral.ClientID = &clientID
	if err := s.referrals.Update(ctx, referral); err != nil {
		s.logger.Warn("referral back-reference write failed",
			"referral_id", referralID.String(), "client_id", client.ID.String(), "error", err)
	}

	// A failed cleanup leaves a converted prospect behind, which staff can
	// delete; it must not undo the conversion.
	if err := s.referrals.Delete(ctx, orgID, referralID); err != nil {
		s.logger.Warn("referral cleanup after conversion failed",
			"referral_id", referralID.String(), "client_id", client.ID.String(), "error", err)
	}

	if s.metrics != nil {
		s.metrics.ReferralsConverted.Inc()
	}
	s.logger.Info("referral converted",
		"referral_id", referralID.String(), "client_id", client.ID.String())
	return client, nil
}

func wrapReferralErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "referral not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "referral already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "referral operation failed")
	}
}
