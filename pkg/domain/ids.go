// Package domain defines the typed identifiers shared across CareLink
// services. Every entity gets its own UUID-backed type so a caregiver ID can
// never be passed where a client ID is expected; the compiler enforces what
// would otherwise be a runtime mixup.
package domain

import (
	"github.com/google/uuid"

	dErrors "carelink/pkg/domain-errors"
)

// Typed identifiers. Construct with uuid.New() conversions or the Parse
// helpers; zero values are nil UUIDs and fail IsNil checks.
type (
	OrgID          uuid.UUID
	UserID         uuid.UUID
	ClientID       uuid.UUID
	CaregiverID    uuid.UUID
	ReferralID     uuid.UUID
	NotificationID uuid.UUID
	MessageID      uuid.UUID
	NoteID         uuid.UUID
	CompanyID      uuid.UUID
)

func (id OrgID) String() string          { return uuid.UUID(id).String() }
func (id UserID) String() string         { return uuid.UUID(id).String() }
func (id ClientID) String() string       { return uuid.UUID(id).String() }
func (id CaregiverID) String() string    { return uuid.UUID(id).String() }
func (id ReferralID) String() string     { return uuid.UUID(id).String() }
func (id NotificationID) String() string { return uuid.UUID(id).String() }
func (id MessageID) String() string      { return uuid.UUID(id).String() }
func (id NoteID) String() string         { return uuid.UUID(id).String() }
func (id CompanyID) String() string      { return uuid.UUID(id).String() }

// Text marshaling renders the canonical UUID string so typed IDs survive
// JSON encoding intact instead of degrading to raw byte arrays.
func (id OrgID) MarshalText() ([]byte, error)          { return []byte(id.String()), nil }
func (id UserID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id ClientID) MarshalText() ([]byte, error)       { return []byte(id.String()), nil }
func (id CaregiverID) MarshalText() ([]byte, error)    { return []byte(id.String()), nil }
func (id ReferralID) MarshalText() ([]byte, error)     { return []byte(id.String()), nil }
func (id NotificationID) MarshalText() ([]byte, error) { return []byte(id.String()), nil }
func (id MessageID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }
func (id NoteID) MarshalText() ([]byte, error)         { return []byte(id.String()), nil }
func (id CompanyID) MarshalText() ([]byte, error)      { return []byte(id.String()), nil }

func (id *OrgID) UnmarshalText(raw []byte) error          { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *UserID) UnmarshalText(raw []byte) error         { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *ClientID) UnmarshalText(raw []byte) error       { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *CaregiverID) UnmarshalText(raw []byte) error    { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *ReferralID) UnmarshalText(raw []byte) error     { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *NotificationID) UnmarshalText(raw []byte) error { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *MessageID) UnmarshalText(raw []byte) error      { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *NoteID) UnmarshalText(raw []byte) error         { return unmarshalInto((*uuid.UUID)(id), raw) }
func (id *CompanyID) UnmarshalText(raw []byte) error      { return unmarshalInto((*uuid.UUID)(id), raw) }

func unmarshalInto(dst *uuid.UUID, raw []byte) error {
	parsed, err := uuid.Parse(string(raw))
	if err != nil {
		return err
	}
	*dst = parsed
	return nil
}

func (id OrgID) IsNil() bool          { return uuid.UUID(id) == uuid.Nil }
func (id UserID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id ClientID) IsNil() bool       { return uuid.UUID(id) == uuid.Nil }
func (id CaregiverID) IsNil() bool    { return uuid.UUID(id) == uuid.Nil }
func (id ReferralID) IsNil() bool     { return uuid.UUID(id) == uuid.Nil }
func (id NotificationID) IsNil() bool { return uuid.UUID(id) == uuid.Nil }
func (id MessageID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }
func (id NoteID) IsNil() bool         { return uuid.UUID(id) == uuid.Nil }
func (id CompanyID) IsNil() bool      { return uuid.UUID(id) == uuid.Nil }

// parseUUID enforces the shared invariant: IDs must be valid, non-empty,
// non-nil UUIDs. Used by all typed Parse helpers at trust boundaries.
func parseUUID(raw, kind string) (uuid.UUID, error) {
	if raw == "" {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id is required", kind)
	}
	parsed, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "invalid %s id", kind)
	}
	if parsed == uuid.Nil {
		return uuid.Nil, dErrors.Newf(dErrors.CodeValidation, "%s id must not be nil", kind)
	}
	return parsed, nil
}

func ParseOrgID(raw string) (OrgID, error) {
	parsed, err := parseUUID(raw, "org")
	return OrgID(parsed), err
}

func ParseUserID(raw string) (UserID, error) {
	parsed, err := parseUUID(raw, "user")
	return UserID(parsed), err
}

func ParseClientID(raw string) (ClientID, error) {
	parsed, err := parseUUID(raw, "client")
	return ClientID(parsed), err
}

func ParseCaregiverID(raw string) (CaregiverID, error) {
	parsed, err := parseUUID(raw, "caregiver")
	return CaregiverID(parsed), err
}

func ParseReferralID(raw string) (ReferralID, error) {
	parsed, err := parseUUID(raw, "referral")
	return ReferralID(parsed), err
}

func ParseNotificationID(raw string) (NotificationID, error) {
	parsed, err := parseUUID(raw, "notification")
	return NotificationID(parsed), err
}

func ParseMessageID(raw string) (MessageID, error) {
	parsed, err := parseUUID(raw, "message")
	return MessageID(parsed), err
}

func ParseNoteID(raw string) (NoteID, error) {
	parsed, err := parseUUID(raw, "note")
	return NoteID(parsed), err
}

func ParseCompanyID(raw string) (CompanyID, error) {
	parsed, err := parseUUID(raw, "company")
	return CompanyID(parsed), err
}
