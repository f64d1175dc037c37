package model

import (
	"time"

	"github.com/oklog/ulid/v2"
)

// LeadStatusNew is the status every fresh submission carries into the sheet.
const LeadStatusNew = "новый"

// LeadSubmission is a completed form. It is never stored locally; the
// submission sink forwards it once and it is discarded afterwards.
type LeadSubmission struct {
	ID          ulid.ULID
	ChatID      string
	Name        string
	Email       string
	SubmittedAt time.Time
	Status      string
}

func NewLeadSubmission(chatID, name, email string, now time.Time) LeadSubmission {
	return LeadSubmission{
		ID:          ulid.Make(),
		ChatID:      chatID,
		Name:        name,
		Email:       email,
		SubmittedAt: now.UTC(),
		Status:      LeadStatusNew,
	}
}

// Row returns the ordered sheet columns: chat id, name, email, timestamp, status.
func (l LeadSubmission) Row() []string {
	return []string{
		l.ChatID,
		l.Name,
		l.Email,
		l.SubmittedAt.UTC().Format("2006-01-02T15:04:05.000Z07:00"),
		l.Status,
	}
}
