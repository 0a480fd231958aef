package database

import (
	"time"

	"github.com/edgard/glucodiary/internal/diary"
)

// Subject is the tracked patient of a chat together with its daily routine.
// A chat has at most one subject; the (chat_id, name) pair is its identity.
type Subject struct {
	ChatID      int64     `db:"chat_id"`
	UserID      int64     `db:"user_id"`
	Name        string    `db:"name"`
	IsActive    bool      `db:"is_active"`
	MorningTime string    `db:"morning_time"` // HH:MM
	PeakHours   int       `db:"peak_hours"`
	EveningTime string    `db:"evening_time"` // HH:MM
	CreatedAt   time.Time `db:"created_at"`
}

// Routine returns the checkpoint schedule of the subject.
func (s *Subject) Routine() diary.Routine {
	return diary.Routine{
		MorningTime: s.MorningTime,
		PeakHours:   s.PeakHours,
		EveningTime: s.EveningTime,
	}
}

// CheckpointClock returns the stored HH:MM for a checkpoint tag, with the peak derived
// from the morning time. OTHER has no clock and yields an empty string.
func (s *Subject) CheckpointClock(tag diary.Tag) string {
	switch tag {
	case diary.TagMorning:
		return s.MorningTime
	case diary.TagEvening:
		return s.EveningTime
	case diary.TagPeak:
		peak, err := s.Routine().PeakClock()
		if err != nil {
			return ""
		}
		return peak
	default:
		return ""
	}
}

// Measurement is a single recorded reading. Date and time are kept as separate
// local-clock strings so rows group by calendar day without timezone math.
type Measurement struct {
	ID     int64     `db:"id"`
	ChatID int64     `db:"chat_id"`
	UserID int64     `db:"user_id"`
	Name   string    `db:"name"`
	Date   string    `db:"date"` // YYYY-MM-DD
	Time   string    `db:"time"` // HH:MM
	Amount float64   `db:"amount"`
	Tag    diary.Tag `db:"tag"`
}

// SubjectRef identifies a subject for listing jobs.
type SubjectRef struct {
	ChatID int64  `db:"chat_id"`
	Name   string `db:"name"`
}
