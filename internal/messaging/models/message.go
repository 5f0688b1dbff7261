// Package models holds the internal-messaging domain types.
package models

import (
	"strings"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Message is one direct message between two users of the same org.
// Broadcasts are stored as one row per recipient, so read state stays
// per-recipient.
type Message struct {
	ID          id.MessageID `json:"id"`
	OrgID       id.OrgID     `json:"org_id"`
	SenderID    id.UserID    `json:"sender_id"`
	RecipientID id.UserID    `json:"recipient_id"`
	Subject     string       `json:"subject"`
	Content     string       `json:"content"`
	IsRead      bool         `json:"is_read"`
	CreatedAt   time.Time    `json:"created_at"`
}

// New validates and constructs an unread message.
func New(messageID id.MessageID, orgID id.OrgID, senderID, recipientID id.UserID, subject, content string, now time.Time) (*Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "message content is required")
	}
	if senderID.IsNil() || recipientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "sender and recipient are required")
	}
	if senderID == recipientID {
		return nil, dErrors.New(dErrors.CodeValidation, "cannot send a message to yourself")
	}
	return &Message{
		ID:          messageID,
		OrgID:       orgID,
		SenderID:    senderID,
		RecipientID: recipientID,
		Subject:     strings.TrimSpace(subject),
		Content:     content,
		CreatedAt:   now,
	}, nil
}

// Counterpart returns the other party of the message from userID's view.
func (m *Message) Counterpart(userID id.UserID) id.UserID {
	if m.SenderID == userID {
		return m.RecipientID
	}
	return m.SenderID
}

// Conversation summarizes a user's thread with one counterpart.
type Conversation struct {
	CounterpartID id.UserID `json:"counterpart_id"`
	LastMessage   *Message  `json:"last_message"`
	UnreadCount   int       `json:"unread_count"`
}
