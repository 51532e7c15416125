package notedrop

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Note is a unit of user-submitted text plus its sync status. Identity and
// content are immutable after creation; only the sync fields change, and only
// through MarkSynced/MarkFailed.
type Note struct {
	ID          string    `json:"id"`
	SenderID    string    `json:"senderId"`
	SenderLabel string    `json:"senderLabel,omitempty"`
	Text        string    `json:"text"`
	CreatedAt   time.Time `json:"createdAt"`
	ExternalID  string    `json:"externalId,omitempty"`
	Synced      bool      `json:"synced"`
	LastError   string    `json:"lastError,omitempty"`
}

func newNote(senderID, senderLabel, text string) (Note, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Note{}, ErrEmptyText
	}
	senderID = strings.TrimSpace(senderID)
	if senderID == "" {
		return Note{}, ErrInvalidInput
	}
	return Note{
		ID:          uuid.NewString(),
		SenderID:    senderID,
		SenderLabel: strings.TrimSpace(senderLabel),
		Text:        text,
		CreatedAt:   time.Now().UTC(),
	}, nil
}
