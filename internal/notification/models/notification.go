// Package models holds the notification domain types.
package models

import (
	"strings"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Type categorizes a notification; recipients opt out per type.
type Type string

const (
	TypeReferralCreated Type = "referral_created"
	TypePhaseCompleted  Type = "phase_completed"
	TypeMessageReceived Type = "message_received"
	TypeClientUpdated   Type = "client_updated"
	TypeGeneral         Type = "general"
)

// Valid reports whether the type is a known notification category.
func (t Type) Valid() bool {
	switch t {
	case TypeReferralCreated, TypePhaseCompleted, TypeMessageReceived, TypeClientUpdated, TypeGeneral:
		return true
	}
	return false
}

// Notification is one item in a user's inbox. RelatedEntityType/ID point at
// the record the notification is about so the UI can deep-link to it.
type Notification struct {
	ID                id.NotificationID `json:"id"`
	OrgID             id.OrgID          `json:"org_id"`
	UserID            id.UserID         `json:"user_id"`
	Type              Type              `json:"type"`
	Title             string            `json:"title"`
	Message           string            `json:"message"`
	RelatedEntityType string            `json:"related_entity_type,omitempty"`
	RelatedEntityID   string            `json:"related_entity_id,omitempty"`
	IsRead            bool              `json:"is_read"`
	CreatedAt         time.Time         `json:"created_at"`
	UpdatedAt         time.Time         `json:"updated_at"`
}

// New validates and constructs an unread notification.
func New(notificationID id.NotificationID, orgID id.OrgID, userID id.UserID, typ Type, title, message string, now time.Time) (*Notification, error) {
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "recipient user id is required")
	}
	if !typ.Valid() {
		return nil, dErrors.Newf(dErrors.CodeValidation, "unknown notification type %q", typ)
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "notification title is required")
	}
	return &Notification{
		ID:        notificationID,
		OrgID:     orgID,
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   message,
		CreatedAt: now,
		UpdatedAt: now,
	}, nil
}

// Preferences is a per-type opt-out map. A type absent from the map is
// allowed; only an explicit false suppresses delivery.
type Preferences map[string]bool

// Allows reports whether the user accepts notifications of the given type.
func (p Preferences) Allows(typ Type) bool {
	if v, ok := p[string(typ)]; ok {
		return v
	}
	return true
}
