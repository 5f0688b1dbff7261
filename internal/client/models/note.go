package models

import (
	"strings"
	"time"

	id "carelink/pkg/domain"
	dErrors "carelink/pkg/domain-errors"
)

// Note is a free-form care note attached to a client. Notes are parsed into
// this typed shape as soon as they enter the system; nothing downstream
// handles raw blobs.
type Note struct {
	ID         id.NoteID   `json:"id"`
	OrgID      id.OrgID    `json:"org_id"`
	ClientID   id.ClientID `json:"client_id"`
	AuthorID   id.UserID   `json:"author_id"`
	AuthorName string      `json:"author_name,omitempty"`
	Content    string      `json:"content"`
	CreatedAt  time.Time   `json:"created_at"`
}

// NewNote validates and constructs a care note.
func NewNote(noteID id.NoteID, orgID id.OrgID, clientID id.ClientID, authorID id.UserID, content string, now time.Time) (*Note, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, dErrors.New(dErrors.CodeValidation, "note content is required")
	}
	if clientID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "client id is required")
	}
	if authorID.IsNil() {
		return nil, dErrors.New(dErrors.CodeValidation, "author id is required")
	}
	return &Note{
		ID:        noteID,
		OrgID:     orgID,
		ClientID:  clientID,
		AuthorID:  authorID,
		Content:   content,
		CreatedAt: now,
	}, nil
}
