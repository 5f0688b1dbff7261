// Package models holds the user domain types.
package models

import (
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	notificationmodels "carelink/internal/notification/models"
	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Role scopes what a user may do. Admins manage users and perform
// destructive operations; marketers submit referrals; staff run the client
// pipeline.
type Role string

const (
	RoleAdmin    Role = "admin"
	RoleStaff    Role = "staff"
	RoleMarketer Role = "marketer"
)

// Valid reports whether the role is known.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleStaff, RoleMarketer:
		return true
	}
	return false
}

// Status marks whether the account can sign in and receive broadcasts.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
)

// User is an account within one org.
type User struct {
	ID           id.UserID `json:"id"`
	OrgID        id.OrgID  `json:"org_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name"`
	Role         Role      `json:"role"`
	PasswordHash string    `json:"-"`
	Status       Status    `json:"status"`

	NotificationPreferences notificationmodels.Preferences `json:"notification_preferences"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// New validates input, hashes the password, and constructs an active user.
func New(userID id.UserID, orgID id.OrgID, email, name, password string, role Role, now time.Time) (*User, error) {
	email = NormalizeEmail(email)
	name = strings.TrimSpace(name)
	if email == "" || !strings.Contains(email, "@") {
		return nil, dErrors.New(dErrors.CodeValidation, "a valid email is required")
	}
	if name == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "name is required")
	}
	if len(password) < 8 {
		return nil, dErrors.New(dErrors.CodeValidation, "password must be at least 8 characters")
	}
	if !role.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown role %q", role)
	}
	if orgID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "org id is required")
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to hash password")
	}
	return &User{
		ID:                      userID,
		OrgID:                   orgID,
		Email:                   email,
		Name:                    name,
		Role:                    role,
		PasswordHash:            string(hash),
		Status:                  StatusActive,
		NotificationPreferences: notificationmodels.Preferences{},
		CreatedAt:               now,
		UpdatedAt:               now,
	}, nil
}

// CheckPassword reports whether the candidate matches the stored hash.
func (u *User) CheckPassword(candidate string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(candidate)) == nil
}

// IsActive reports whether the account can sign in.
func (u *User) IsActive() bool {
	return u.Status == StatusActive
}

// NormalizeEmail lowercases and trims an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
