package model

import (
	"time"
)

// ConversationStep is the position of a chat inside the lead form.
type ConversationStep string

const (
	// StepNone is the zero value and means "no record".
	StepNone          ConversationStep = ""
	StepAwaitingName  ConversationStep = "waiting_for_name"
	StepAwaitingEmail ConversationStep = "waiting_for_email"
)

// Known reports whether s is one of the declared steps.
func (s ConversationStep) Known() bool {
	switch s {
	case StepNone, StepAwaitingName, StepAwaitingEmail:
		return true
	}
	return false
}

func (s ConversationStep) String() string {
	if s == StepNone {
		return "none"
	}
	return string(s)
}

// ConversationState is the per-chat record kept by the state store.
// At most one exists per ChatID.
type ConversationState struct {
	ChatID    string           `json:"chat_id"`
	Step      ConversationStep `json:"step"`
	Name      string           `json:"name,omitempty"`
	UpdatedAt time.Time        `json:"updated_at"`
}

func NewAwaitingName(chatID string) *ConversationState {
	return &ConversationState{
		ChatID:    chatID,
		Step:      StepAwaitingName,
		UpdatedAt: time.Now().UTC(),
	}
}

func NewAwaitingEmail(chatID, name string) *ConversationState {
	return &ConversationState{
		ChatID:    chatID,
		Step:      StepAwaitingEmail,
		Name:      name,
		UpdatedAt: time.Now().UTC(),
	}
}

// CurrentStep returns StepNone for a nil state.
func (s *ConversationState) CurrentStep() ConversationStep {
	if s == nil {
		return StepNone
	}
	return s.Step
}

// Corrupt reports a record that waits for an email without a collected name.
func (s *ConversationState) Corrupt() bool {
	return s != nil && s.Step == StepAwaitingEmail && s.Name == ""
}
