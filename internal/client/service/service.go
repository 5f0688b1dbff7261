// Package service orchestrates the client lifecycle: creation, checklist
// upkeep, the forward-only phase pipeline, notes, and deletion.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	caregivermodels "carelink/internal/caregiver/models"
	"carelink/internal/client/models"
	"carelink/internal/events"
	"carelink/internal/platform/metrics"
	referralmodels "carelink/internal/referral/models"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// Store is the client persistence contract.
type Store interface {
	Create(ctx context.Context, client *models.Client) error
	FindByID(ctx context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Client, error)
	List(ctx context.Context, orgID id.OrgID, filter models.Filter) ([]*models.Client, error)
	Update(ctx context.Context, client *models.Client) error
	Execute(ctx context.Context, orgID id.OrgID, clientID id.ClientID, validate func(*models.Client) error, mutate func(*models.Client)) (*models.Client, error)
	Delete(ctx context.Context, orgID id.OrgID, clientID id.ClientID) error
	Count(ctx context.Context, orgID id.OrgID) (int, error)
	AddNote(ctx context.Context, note *models.Note) error
	ListNotes(ctx context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Note, error)
	FindNote(ctx context.Context, orgID id.OrgID, noteID id.NoteID) (*models.Note, error)
	DeleteNote(ctx context.Context, orgID id.OrgID, noteID id.NoteID) error
}

// CaregiverReader supplies the caregiver side of the client detail view.
type CaregiverReader interface {
	ListByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) ([]*caregivermodels.Caregiver, error)
	FindActiveByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) (*caregivermodels.Caregiver, error)
}

// ReferralReader resolves the referral a client was converted from.
type ReferralReader interface {
	FindByID(ctx context.Context, orgID id.OrgID, referralID id.ReferralID) (*referralmodels.Referral, error)
}

// CreateInput carries the fields for a directly created client (no referral).
type CreateInput struct {
	FirstName         string     `json:"first_name"`
	LastName          string     `json:"last_name"`
	Email             string     `json:"email"`
	County            string     `json:"county"`
	Program           string     `json:"program"`
	Diagnosis         string     `json:"diagnosis"`
	InsuranceProvider string     `json:"insurance_provider"`
	DateOfBirth       string     `json:"date_of_birth"`
	PhoneNumbers      []string   `json:"phone_numbers"`
	CostShareAmount   float64    `json:"cost_share_amount"`
	IntakeDate        *time.Time `json:"intake_date,omitempty"`
}

// Detail is the aggregate read for the client page: the client plus its
// caregiver history and the referral it came from, when any.
type Detail struct {
	Client          *models.Client               `json:"client"`
	Caregivers      []*caregivermodels.Caregiver `json:"caregivers"`
	ActiveCaregiver *caregivermodels.Caregiver   `json:"active_caregiver,omitempty"`
	Referral        *referralmodels.Referral     `json:"referral,omitempty"`
}

// Service orchestrates client lifecycle operations.
type Service struct {
	clients    Store
	caregivers CaregiverReader
	referrals  ReferralReader
	emitter    events.Emitter
	logger     *slog.Logger
	metrics    *metrics.Metrics
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

// WithCaregiverReader wires the caregiver store into the detail view.
func WithCaregiverReader(r CaregiverReader) Option {
	return func(s *Service) { s.caregivers = r }
}

// WithReferralReader wires the referral store into the detail view.
func WithReferralReader(r ReferralReader) Option {
	return func(s *Service) { s.referrals = r }
}

// New constructs a Service.
func New(clients Store, opts ...Option) *Service {
	s := &Service{
		clients: clients,
		emitter: events.Nop{},
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds a client directly, skipping the referral pipeline. The client
// starts in the intake phase with active status.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.Client, error) {
	now := requestcontext.Now(ctx)
	client, err := models.NewClient(id.ClientID(uuid.New()), requestcontext.OrgID(ctx),
		input.FirstName, input.LastName, now)
	if err != nil {
		return nil, err
	}
	client.Email = input.Email
	client.County = input.County
	client.Program = input.Program
	client.Diagnosis = input.Diagnosis
	client.InsuranceProvider = input.InsuranceProvider
	client.DateOfBirth = input.DateOfBirth
	if len(input.PhoneNumbers) > 0 {
		client.PhoneNumbers = input.PhoneNumbers
	}
	client.SetCostShare(input.CostShareAmount)
	if input.IntakeDate != nil {
		client.IntakeDate = input.IntakeDate
	} else {
		intakeDate := now
		client.IntakeDate = &intakeDate
	}

	if err := s.clients.Create(ctx, client); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create client")
	}
	if s.metrics != nil {
		s.metrics.ClientsCreated.Inc()
	}
	return client, nil
}

// Get retrieves one client.
func (s *Service) Get(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	client, err := s.clients.FindByID(ctx, requestcontext.OrgID(ctx), clientID)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	return client, nil
}

// GetDetail assembles the aggregate client view. Caregiver and referral
// lookups are best-effort reads of other slices; their absence never hides
// the client itself.
func (s *Service) GetDetail(ctx context.Context, clientID id.ClientID) (*Detail, error) {
	orgID := requestcontext.OrgID(ctx)
	client, err := s.clients.FindByID(ctx, orgID, clientID)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	detail := &Detail{Client: client}

	if s.caregivers != nil {
		caregivers, err := s.caregivers.ListByClient(ctx, orgID, clientID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load caregivers")
		}
		detail.Caregivers = caregivers
		active, err := s.caregivers.FindActiveByClient(ctx, orgID, clientID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load active caregiver")
		}
		detail.ActiveCaregiver = active
	}

	if s.referrals != nil && client.ReferralID != nil {
		referral, err := s.referrals.FindByID(ctx, orgID, *client.ReferralID)
		if err != nil && !errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load referral")
		}
		detail.Referral = referral
	}
	return detail, nil
}

// List returns the org's clients, filtered and sorted.
func (s *Service) List(ctx context.Context, filter models.Filter) ([]*models.Client, error) {
	clients, err := s.clients.List(ctx, requestcontext.OrgID(ctx), filter)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list clients")
	}
	return clients, nil
}

// Count returns the org's total client count.
func (s *Service) Count(ctx context.Context) (int, error) {
	count, err := s.clients.Count(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		return 0, dErrors.Wrap(err, dErrors.CodeInternal, "failed to count clients")
	}
	return count, nil
}

// UpdateDetails applies a partial contact/billing update.
func (s *Service) UpdateDetails(ctx context.Context, clientID id.ClientID, update models.DetailsUpdate) (*models.Client, error) {
	now := requestcontext.Now(ctx)
	client, err := s.clients.Execute(ctx, requestcontext.OrgID(ctx), clientID,
		func(c *models.Client) error {
			if update.FirstName != nil && *update.FirstName == "" {
				return dErrors.New(dErrors.CodeValidation, "client first name cannot be cleared")
			}
			return nil
		},
		func(c *models.Client) {
			update.Apply(c)
			c.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	s.emitUpdated(ctx, client, "details updated")
	return client, nil
}

// UpdateChecklist applies a partial checklist update. Toggling items never
// moves the phase; advancement is a separate, gated operation.
func (s *Service) UpdateChecklist(ctx context.Context, clientID id.ClientID, update models.ChecklistUpdate) (*models.Client, error) {
	now := requestcontext.Now(ctx)
	client, err := s.clients.Execute(ctx, requestcontext.OrgID(ctx), clientID,
		func(*models.Client) error { return nil },
		func(c *models.Client) {
			update.Apply(c)
			c.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	return client, nil
}

// CanAdvance reports whether the client's current checklist gate is
// satisfied, without writing anything.
func (s *Service) CanAdvance(ctx context.Context, clientID id.ClientID) (bool, error) {
	client, err := s.clients.FindByID(ctx, requestcontext.OrgID(ctx), clientID)
	if err != nil {
		return false, wrapClientErr(err)
	}
	return client.CanAdvancePhase() == nil, nil
}

// AdvancePhase moves the client one phase forward after re-validating the
// checklist gate under the store lock. The gate is checked server-side even
// if the caller already called CanAdvance; the answer may have changed.
func (s *Service) AdvancePhase(ctx context.Context, clientID id.ClientID) (*models.Client, error) {
	now := requestcontext.Now(ctx)
	var completed models.Phase
	client, err := s.clients.Execute(ctx, requestcontext.OrgID(ctx), clientID,
		func(c *models.Client) error { return c.CanAdvancePhase() },
		func(c *models.Client) {
			completed = c.CurrentPhase
			c.ApplyAdvancePhase(now)
		},
	)
	if err != nil {
		return nil, wrapClientErr(err)
	}

	if s.metrics != nil {
		s.metrics.PhasesAdvanced.WithLabelValues(string(client.CurrentPhase)).Inc()
	}
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.TypePhaseCompleted,
		OrgID:      client.OrgID,
		ActorID:    requestcontext.UserID(ctx),
		EntityType: "client",
		EntityID:   client.ID.String(),
		Title:      "Phase completed",
		Detail:     client.FullName + " completed " + string(completed),
		OccurredAt: now,
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("phase_completed event dropped", "client_id", client.ID.String(), "error", err)
	}
	s.logger.Info("client phase advanced",
		"client_id", client.ID.String(), "from", string(completed), "to", string(client.CurrentPhase))
	return client, nil
}

// CorrectPhase sets the phase directly, including backward. Admin-only: this
// is the escape hatch for data-entry mistakes, not part of the pipeline.
func (s *Service) CorrectPhase(ctx context.Context, clientID id.ClientID, phase models.Phase) (*models.Client, error) {
	if requestcontext.Role(ctx) != "admin" {
		return nil, dErrors.New(dErrors.CodeForbidden, "only admins can correct a client's phase")
	}
	if !phase.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown phase %q", phase)
	}
	now := requestcontext.Now(ctx)
	client, err := s.clients.Execute(ctx, requestcontext.OrgID(ctx), clientID,
		func(*models.Client) error { return nil },
		func(c *models.Client) {
			c.CurrentPhase = phase
			c.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapClientErr(err)
	}
	s.logger.Info("client phase corrected", "client_id", client.ID.String(), "phase", string(phase))
	return client, nil
}

// Delete hard-deletes a client and its notes. Admin-only, and the caller
// must type the exact confirmation phrase for this client.
func (s *Service) Delete(ctx context.Context, clientID id.ClientID, confirmation string) error {
	if requestcontext.Role(ctx) != "admin" {
		return dErrors.New(dErrors.CodeForbidden, "only admins can delete clients")
	}
	orgID := requestcontext.OrgID(ctx)
	client, err := s.clients.FindByID(ctx, orgID, clientID)
	if err != nil {
		return wrapClientErr(err)
	}
	if confirmation != client.DeleteConfirmationPhrase() {
		return dErrors.New(dErrors.CodeValidation, "confirmation phrase does not match")
	}
	if err := s.clients.Delete(ctx, orgID, clientID); err != nil {
		return wrapClientErr(err)
	}
	s.logger.Info("client deleted", "client_id", clientID.String())
	return nil
}

// AddNote attaches a care note authored by the current user.
func (s *Service) AddNote(ctx context.Context, clientID id.ClientID, content string) (*models.Note, error) {
	note, err := models.NewNote(id.NoteID(uuid.New()), requestcontext.OrgID(ctx), clientID,
		requestcontext.UserID(ctx), content, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.clients.AddNote(ctx, note); err != nil {
		return nil, wrapClientErr(err)
	}
	return note, nil
}

// ListNotes returns a client's notes, oldest first.
func (s *Service) ListNotes(ctx context.Context, clientID id.ClientID) ([]*models.Note, error) {
	notes, err := s.clients.ListNotes(ctx, requestcontext.OrgID(ctx), clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list notes")
	}
	return notes, nil
}

// DeleteNote removes a note. Authors can delete their own; admins any.
func (s *Service) DeleteNote(ctx context.Context, noteID id.NoteID) error {
	orgID := requestcontext.OrgID(ctx)
	note, err := s.clients.FindNote(ctx, orgID, noteID)
	if err != nil {
		return wrapClientErr(err)
	}
	if note.AuthorID != requestcontext.UserID(ctx) && requestcontext.Role(ctx) != "admin" {
		return dErrors.New(dErrors.CodeForbidden, "cannot delete another user's note")
	}
	if err := s.clients.DeleteNote(ctx, orgID, noteID); err != nil {
		return wrapClientErr(err)
	}
	return nil
}

func (s *Service) emitUpdated(ctx context.Context, client *models.Client, detail string) {
	event := events.Event{
		ID:         uuid.NewString(),
		Type:       events.TypeClientUpdated,
		OrgID:      client.OrgID,
		ActorID:    requestcontext.UserID(ctx),
		EntityType: "client",
		EntityID:   client.ID.String(),
		Title:      "Client updated",
		Detail:     client.FullName + ": " + detail,
		OccurredAt: requestcontext.Now(ctx),
	}
	if err := s.emitter.Emit(ctx, event); err != nil {
		s.logger.Warn("client_updated event dropped", "client_id", client.ID.String(), "error", err)
	}
}

func wrapClientErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "client not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "client record conflict")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "client operation failed")
	}
}
