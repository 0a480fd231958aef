// Package conversation stores the multi-step interaction state of each chat, keyed by
// who opened the interaction: the user or the reminder clock.
package conversation

import (
	"github.com/edgard/glucodiary/internal/diary"
)

// Origin tells which side opened an interaction.
type Origin int

const (
	// OriginUser marks flows the user started (registration, settings, manual entry).
	OriginUser Origin = iota
	// OriginReminder marks value prompts opened by a procedure reminder.
	OriginReminder
)

func (o Origin) String() string {
	switch o {
	case OriginUser:
		return "user"
	case OriginReminder:
		return "reminder"
	default:
		return "unknown"
	}
}

// Key identifies one interaction. Reminder-origin keys use the chat itself as responder.
type Key struct {
	ChatID      int64
	ResponderID int64
	Origin      Origin
}

// UserKey is the key of the interaction driven by userID in chatID.
func UserKey(chatID, userID int64) Key {
	return Key{ChatID: chatID, ResponderID: userID, Origin: OriginUser}
}

// ReminderKey is the key of the reminder-solicited interaction in chatID.
func ReminderKey(chatID int64) Key {
	return Key{ChatID: chatID, ResponderID: chatID, Origin: OriginReminder}
}

// Step is the position inside a flow.
type Step string

const (
	StepAwaitValue Step = "await_value"

	StepRegisterName    Step = "register_name"
	StepRegisterMorning Step = "register_morning"
	StepRegisterPeak    Step = "register_peak"
	StepRegisterEvening Step = "register_evening"

	StepEditName    Step = "edit_name"
	StepEditMorning Step = "edit_morning"
	StepEditPeak    Step = "edit_peak"
	StepEditEvening Step = "edit_evening"
)

// Draft collects registration answers until the subject can be created.
type Draft struct {
	Name        string
	MorningTime string
	PeakHours   int
	EveningTime string
}

// State is the stored position of an interaction.
type State struct {
	Step        Step
	Tag         diary.Tag // checkpoint being measured, for StepAwaitValue
	SubjectName string
	Draft       Draft
}

// AwaitsValue reports whether the next plain message is expected to be a measurement.
func (s State) AwaitsValue() bool {
	return s.Step == StepAwaitValue
}

// AwaitValue builds the state of a value prompt for tag of subject.
func AwaitValue(tag diary.Tag, subjectName string) State {
	return State{Step: StepAwaitValue, Tag: tag, SubjectName: subjectName}
}
