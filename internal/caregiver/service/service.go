// Package service orchestrates caregiver pool management and the
// caregiver-to-client assignment flow, protecting the single-active-caregiver
// invariant.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"carelink/internal/caregiver/models"
	"carelink/internal/platform/metrics"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// Store is the caregiver persistence contract. Swap and
// CreateReplacingActive must be atomic: the deactivate-then-activate sequence
// either fully commits or leaves the previous assignment untouched.
type Store interface {
	Create(ctx context.Context, caregiver *models.Caregiver) error
	CreateReplacingActive(ctx context.Context, caregiver *models.Caregiver, now time.Time) error
	Swap(ctx context.Context, orgID id.OrgID, clientID id.ClientID, caregiverID id.CaregiverID, now time.Time) (*models.Caregiver, error)
	FindByID(ctx context.Context, orgID id.OrgID, caregiverID id.CaregiverID) (*models.Caregiver, error)
	FindActiveByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) (*models.Caregiver, error)
	ListByClient(ctx context.Context, orgID id.OrgID, clientID id.ClientID) ([]*models.Caregiver, error)
	ListStandalone(ctx context.Context, orgID id.OrgID) ([]*models.Caregiver, error)
	Execute(ctx context.Context, orgID id.OrgID, caregiverID id.CaregiverID, validate func(*models.Caregiver) error, mutate func(*models.Caregiver)) (*models.Caregiver, error)
}

// CreateInput carries the fields for a new caregiver record.
type CreateInput struct {
	FirstName string `json:"first_name"`
	LastName  string `json:"last_name"`
	Phone     string `json:"phone"`
}

// AssignResult is the outcome of an assignment attempt. Exactly one of the
// fields is set: Assigned on success, Conflict when the client already has an
// active caregiver and the caller has not confirmed the swap.
type AssignResult struct {
	Assigned *models.Caregiver `json:"assigned,omitempty"`
	Conflict *models.Caregiver `json:"conflict,omitempty"`
}

// Service orchestrates caregiver lifecycle management.
type Service struct {
	caregivers Store
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

// New constructs a Service.
func New(caregivers Store, opts ...Option) *Service {
	s := &Service{caregivers: caregivers, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// CreateStandalone adds an unassigned caregiver to the pool. No conflict is
// possible because no client is attached.
func (s *Service) CreateStandalone(ctx context.Context, input CreateInput) (*models.Caregiver, error) {
	caregiver, err := models.NewStandalone(
		id.CaregiverID(uuid.New()), requestcontext.OrgID(ctx),
		input.FirstName, input.LastName, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	caregiver.Phone = input.Phone
	if err := s.caregivers.Create(ctx, caregiver); err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create caregiver")
	}
	return caregiver, nil
}

// AddToClient creates a caregiver directly under a client. Any existing
// active caregiver on that client is deactivated first; the store makes the
// pair of writes atomic.
func (s *Service) AddToClient(ctx context.Context, clientID id.ClientID, input CreateInput) (*models.Caregiver, error) {
	now := requestcontext.Now(ctx)
	caregiver, err := models.NewForClient(
		id.CaregiverID(uuid.New()), requestcontext.OrgID(ctx), clientID,
		input.FirstName, input.LastName, now)
	if err != nil {
		return nil, err
	}
	caregiver.Phone = input.Phone
	if err := s.caregivers.CreateReplacingActive(ctx, caregiver, now); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "client already has an active caregiver")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to add caregiver")
	}
	s.incrementAssigned()
	return caregiver, nil
}

// Assign attaches an existing (possibly standalone) caregiver to a client.
//
// The flow is two-phase: when the client already has a different active
// caregiver and confirmed is false, the incumbent is returned as a Conflict
// and nothing is written. The caller re-invokes with confirmed=true to
// proceed, which deactivates the incumbent and activates the caregiver in one
// atomic store operation.
//
// If the conflict-check read fails the assignment is aborted: proceeding
// blind could leave two active caregivers on one client.
func (s *Service) Assign(ctx context.Context, caregiverID id.CaregiverID, clientID id.ClientID, confirmed bool) (*AssignResult, error) {
	orgID := requestcontext.OrgID(ctx)

	incumbent, err := s.caregivers.FindActiveByClient(ctx, orgID, clientID)
	switch {
	case err == nil:
		if incumbent.ID == caregiverID {
			// Already this client's active caregiver.
			return &AssignResult{Assigned: incumbent}, nil
		}
		if !confirmed {
			s.incrementConflicts()
			return &AssignResult{Conflict: incumbent}, nil
		}
	case errors.Is(err, sentinel.ErrNotFound):
		// No incumbent; assignment proceeds directly.
	default:
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "conflict check failed, assignment aborted")
	}

	assigned, err := s.caregivers.Swap(ctx, orgID, clientID, caregiverID, requestcontext.Now(ctx))
	if err != nil {
		switch {
		case errors.Is(err, sentinel.ErrNotFound):
			return nil, dErrors.New(dErrors.CodeNotFound, "caregiver not found")
		case errors.Is(err, sentinel.ErrConflict):
			// A concurrent assignment won the race; the caller must re-check.
			return nil, dErrors.New(dErrors.CodeConflict, "client's active caregiver changed, retry the assignment")
		default:
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to assign caregiver")
		}
	}
	s.incrementAssigned()
	return &AssignResult{Assigned: assigned}, nil
}

// Deactivate ends a caregiver's engagement. Always permitted; endedAt
// defaults to the request time.
func (s *Service) Deactivate(ctx context.Context, caregiverID id.CaregiverID, endedAt *time.Time) (*models.Caregiver, error) {
	when := requestcontext.Now(ctx)
	if endedAt != nil {
		when = *endedAt
	}
	caregiver, err := s.caregivers.Execute(ctx, requestcontext.OrgID(ctx), caregiverID,
		func(*models.Caregiver) error { return nil },
		func(c *models.Caregiver) { c.ApplyDeactivation(when) },
	)
	if err != nil {
		return nil, wrapCaregiverErr(err)
	}
	return caregiver, nil
}

// UpdateChecklist applies a partial onboarding-checklist update.
func (s *Service) UpdateChecklist(ctx context.Context, caregiverID id.CaregiverID, update models.ChecklistUpdate) (*models.Caregiver, error) {
	now := requestcontext.Now(ctx)
	caregiver, err := s.caregivers.Execute(ctx, requestcontext.OrgID(ctx), caregiverID,
		func(*models.Caregiver) error { return nil },
		func(c *models.Caregiver) {
			update.Apply(c)
			c.UpdatedAt = now
		},
	)
	if err != nil {
		return nil, wrapCaregiverErr(err)
	}
	return caregiver, nil
}

// Get retrieves one caregiver.
func (s *Service) Get(ctx context.Context, caregiverID id.CaregiverID) (*models.Caregiver, error) {
	caregiver, err := s.caregivers.FindByID(ctx, requestcontext.OrgID(ctx), caregiverID)
	if err != nil {
		return nil, wrapCaregiverErr(err)
	}
	return caregiver, nil
}

// ListByClient returns every caregiver record under a client, active and past.
func (s *Service) ListByClient(ctx context.Context, clientID id.ClientID) ([]*models.Caregiver, error) {
	caregivers, err := s.caregivers.ListByClient(ctx, requestcontext.OrgID(ctx), clientID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list caregivers")
	}
	return caregivers, nil
}

// ListPool returns the standalone (unassigned) caregivers.
func (s *Service) ListPool(ctx context.Context) ([]*models.Caregiver, error) {
	caregivers, err := s.caregivers.ListStandalone(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list caregiver pool")
	}
	return caregivers, nil
}

func (s *Service) incrementAssigned() {
	if s.metrics != nil {
		s.metrics.CaregiversAssigned.Inc()
	}
}

func (s *Service) incrementConflicts() {
	if s.metrics != nil {
		s.metrics.AssignmentConflicts.Inc()
	}
}

func wrapCaregiverErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "caregiver not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "client already has an active caregiver")
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeConflict),
		dErrors.HasCode(err, dErrors.CodeForbidden), dErrors.HasCode(err, dErrors.CodeNotFound):
		return err
	default:
		return dErrors.Wrap(err, dErrors.CodeInternal, "caregiver operation failed")
	}
}
