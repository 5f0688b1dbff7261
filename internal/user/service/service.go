// Package service orchestrates account management, authentication, and
// notification preferences. It also feeds recipient lists to the messaging
// and notification slices.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/google/uuid"

	notificationmodels "carelink/internal/notification/models"
	"carelink/internal/user/models"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
	"carelink/pkg/platform/sentinel"
	"carelink/pkg/requestcontext"
)

// DefaultTokenTTL is how long issued access tokens stay valid.
const DefaultTokenTTL = 12 * time.Hour

// Store is the user persistence contract.
type Store interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, orgID id.OrgID, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, orgID id.OrgID, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	ListByOrg(ctx context.Context, orgID id.OrgID) ([]*models.User, error)
}

// TokenIssuer mints access tokens. jwtauth.Service satisfies this.
type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, orgID id.OrgID, role string, expiresIn time.Duration) (string, error)
}

// CreateInput carries the fields for a new account.
type CreateInput struct {
	Email    string      `json:"email"`
	Name     string      `json:"name"`
	Password string      `json:"password"`
	Role     models.Role `json:"role"`
}

// UpdateInput is a partial account update. Nil fields are left untouched.
type UpdateInput struct {
	Name *string      `json:"name,omitempty"`
	Role *models.Role `json:"role,omitempty"`
}

// LoginInput identifies the org because emails are only unique per org.
type LoginInput struct {
	OrgID    id.OrgID `json:"org_id"`
	Email    string   `json:"email"`
	Password string   `json:"password"`
}

// LoginResult carries the minted token and the authenticated user.
type LoginResult struct {
	Token string       `json:"token"`
	User  *models.User `json:"user"`
}

// Service orchestrates account operations.
type Service struct {
	users  Store
	tokens TokenIssuer
	logger *slog.Logger
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) { s.logger = logger }
}

// New constructs a Service.
func New(users Store, tokens TokenIssuer, opts ...Option) *Service {
	s := &Service{users: users, tokens: tokens, logger: slog.Default()}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Create adds an account to the caller's org. Admin-only.
func (s *Service) Create(ctx context.Context, input CreateInput) (*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := models.New(id.UserID(uuid.New()), requestcontext.OrgID(ctx),
		input.Email, input.Name, input.Password, input.Role, requestcontext.Now(ctx))
	if err != nil {
		return nil, err
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrConflict) {
			return nil, dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user")
	}
	s.logger.Info("user created", "user_id", user.ID.String(), "role", string(user.Role))
	return user, nil
}

// Update changes an account's name or role. Admin-only.
func (s *Service) Update(ctx context.Context, userID id.UserID, input UpdateInput) (*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, requestcontext.OrgID(ctx), userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	if input.Name != nil {
		user.Name = *input.Name
	}
	if input.Role != nil {
		if !input.Role.Valid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", *input.Role)
		}
		user.Role = *input.Role
	}
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// Deactivate disables sign-in and drops the user from broadcast targeting.
// Admin-only.
func (s *Service) Deactivate(ctx context.Context, userID id.UserID) (*models.User, error) {
	if err := requireAdmin(ctx); err != nil {
		return nil, err
	}
	user, err := s.users.FindByID(ctx, requestcontext.OrgID(ctx), userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	user.Status = models.StatusInactive
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, wrapUserErr(err)
	}
	s.logger.Info("user deactivated", "user_id", userID.String())
	return user, nil
}

// Authenticate verifies credentials and mints an access token. Failures are
// reported uniformly so callers cannot probe which accounts exist.
func (s *Service) Authenticate(ctx context.Context, input LoginInput) (*LoginResult, error) {
	user, err := s.users.FindByEmail(ctx, input.OrgID, models.NormalizeEmail(input.Email))
	if err != nil {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	if !user.IsActive() || !user.CheckPassword(input.Password) {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "invalid credentials")
	}
	token, err := s.tokens.GenerateAccessToken(user.ID, user.OrgID, string(user.Role), DefaultTokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &LoginResult{Token: token, User: user}, nil
}

// Get retrieves one account in the caller's org.
func (s *Service) Get(ctx context.Context, userID id.UserID) (*models.User, error) {
	user, err := s.users.FindByID(ctx, requestcontext.OrgID(ctx), userID)
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user, nil
}

// List returns every account in the caller's org.
func (s *Service) List(ctx context.Context) ([]*models.User, error) {
	users, err := s.users.ListByOrg(ctx, requestcontext.OrgID(ctx))
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list users")
	}
	return users, nil
}

// GetPreferences returns the caller's own notification preferences.
func (s *Service) GetPreferences(ctx context.Context) (notificationmodels.Preferences, error) {
	user, err := s.users.FindByID(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return nil, wrapUserErr(err)
	}
	return user.NotificationPreferences, nil
}

// UpdatePreferences replaces the caller's own notification preferences.
func (s *Service) UpdatePreferences(ctx context.Context, prefs notificationmodels.Preferences) (notificationmodels.Preferences, error) {
	for typ := range prefs {
		if !notificationmodels.Type(typ).Valid() {
			return nil, dErrors.Newf(dErrors.CodeValidation, "unknown notification type %q", typ)
		}
	}
	user, err := s.users.FindByID(ctx, requestcontext.OrgID(ctx), requestcontext.UserID(ctx))
	if err != nil {
		return nil, wrapUserErr(err)
	}
	if prefs == nil {
		prefs = notificationmodels.Preferences{}
	}
	user.NotificationPreferences = prefs
	user.UpdatedAt = requestcontext.Now(ctx)
	if err := s.users.Update(ctx, user); err != nil {
		return nil, wrapUserErr(err)
	}
	return user.NotificationPreferences, nil
}

// PreferencesFor resolves a recipient's preferences for the notification
// dispatcher.
func (s *Service) PreferencesFor(ctx context.Context, orgID id.OrgID, userID id.UserID) (notificationmodels.Preferences, error) {
	user, err := s.users.FindByID(ctx, orgID, userID)
	if err != nil {
		return nil, err
	}
	return user.NotificationPreferences, nil
}

// ActiveStaff returns the org's active admin and staff accounts for
// notification fan-out. Marketers are excluded; they work the referral side.
func (s *Service) ActiveStaff(ctx context.Context, orgID id.OrgID) ([]id.UserID, error) {
	users, err := s.users.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out []id.UserID
	for _, user := range users {
		if user.IsActive() && (user.Role == models.RoleAdmin || user.Role == models.RoleStaff) {
			out = append(out, user.ID)
		}
	}
	return out, nil
}

// ListActiveIDs returns every active account of the org, for broadcast
// targeting.
func (s *Service) ListActiveIDs(ctx context.Context, orgID id.OrgID) ([]id.UserID, error) {
	users, err := s.users.ListByOrg(ctx, orgID)
	if err != nil {
		return nil, err
	}
	var out []id.UserID
	for _, user := range users {
		if user.IsActive() {
			out = append(out, user.ID)
		}
	}
	return out, nil
}

func requireAdmin(ctx context.Context) error {
	if requestcontext.Role(ctx) != string(models.RoleAdmin) {
		return dErrors.New(dErrors.CodeForbidden, "admin role required")
	}
	return nil
}

func wrapUserErr(err error) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, "user not found")
	case errors.Is(err, sentinel.ErrConflict):
		return dErrors.New(dErrors.CodeConflict, "a user with this email already exists")
	default:
		var de *dErrors.Error
		if errors.As(err, &de) {
			return err
		}
		return dErrors.Wrap(err, dErrors.CodeInternal, "user operation failed")
	}
}
