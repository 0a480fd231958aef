package diary

import (
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

// Routine is the per-subject daily schedule the checkpoints are derived from.
type Routine struct {
	MorningTime string `validate:"required,datetime=15:04"`
	PeakHours   int    `validate:"min=1,max=12"`
	EveningTime string `validate:"required,datetime=15:04"`
}

// Validate checks the routine fields with the same rules the settings flow enforces.
func (r Routine) Validate() error {
	if err := validate.Struct(r); err != nil {
		return fmt.Errorf("invalid routine: %w", err)
	}
	return nil
}

// PeakClock is the wall-clock time of the peak checkpoint, wrapping past midnight.
func (r Routine) PeakClock() (string, error) {
	m, err := clockMinutes(r.MorningTime)
	if err != nil {
		return "", err
	}
	return FormatClock(m + r.PeakHours*60), nil
}

// Target is one scheduled occurrence of a checkpoint.
type Target struct {
	Tag Tag
	At  time.Time
}

// Targets computes the checkpoint occurrences anchored on the day before, the day of
// and the day after now, in now's location. A fire window precedes its target by the
// lead, so checkpoints shortly after midnight are due on the previous evening and a
// peak past midnight belongs to the previous day's morning. The peak is always
// recomputed from the current morning time and offset.
func (r Routine) Targets(now time.Time) ([]Target, error) {
	morning, err := clockMinutes(r.MorningTime)
	if err != nil {
		return nil, err
	}
	evening, err := clockMinutes(r.EveningTime)
	if err != nil {
		return nil, err
	}

	// Wall-clock arithmetic through time.Date keeps targets on the stated clock
	// time across DST transitions.
	y, m, d := now.Date()
	at := func(day, minutes int) time.Time {
		return time.Date(y, m, day, 0, minutes, 0, 0, now.Location())
	}
	peak := morning + r.PeakHours*60

	targets := make([]Target, 0, 9)
	for day := d - 1; day <= d+1; day++ {
		targets = append(targets,
			Target{Tag: TagMorning, At: at(day, morning)},
			Target{Tag: TagPeak, At: at(day, peak)},
			Target{Tag: TagEvening, At: at(day, evening)},
		)
	}
	return targets, nil
}

// FireWindow is the half-open interval [target-Lead, target-Lead+Width) during which
// a reminder for target is due.
type FireWindow struct {
	Lead  time.Duration
	Width time.Duration
}

// DefaultFireWindow fires 15 minutes ahead with a one-minute window, matching a 60s poll.
var DefaultFireWindow = FireWindow{Lead: 15 * time.Minute, Width: time.Minute}

// Due reports whether now falls inside the fire window of target.
func (w FireWindow) Due(target, now time.Time) bool {
	start := target.Add(-w.Lead)
	return !now.Before(start) && now.Before(start.Add(w.Width))
}
