package diary

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"
)

var (
	ErrInvalidMeasure = errors.New("invalid measurement")
	ErrInvalidTime    = errors.New("invalid time of day")
	ErrInvalidPeak    = errors.New("invalid peak offset")
	ErrInvalidName    = errors.New("invalid subject name")
	ErrUnknownTag     = errors.New("unknown tag")
)

const (
	// ClockLayout is the wall-clock format used for stored checkpoint times.
	ClockLayout = "15:04"
	// DateLayout is the calendar format used for stored measurement dates.
	DateLayout = "2006-01-02"

	MinPeakHours  = 1
	MaxPeakHours  = 12
	MaxNameLength = 30
)

// ParseMeasure parses a non-negative amount, accepting either a comma or a dot
// as the decimal separator.
func ParseMeasure(s string) (float64, error) {
	s = strings.TrimSpace(strings.ReplaceAll(s, ",", "."))
	if s == "" {
		return 0, fmt.Errorf("%w: empty", ErrInvalidMeasure)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidMeasure, s)
	}
	if math.IsNaN(v) || math.IsInf(v, 0) || v < 0 {
		return 0, fmt.Errorf("%w: %q out of range", ErrInvalidMeasure, s)
	}
	return v, nil
}

// ParseClock validates a strict two-digit HH:MM time of day and returns it normalized.
func ParseClock(s string) (string, error) {
	s = strings.TrimSpace(s)
	if len(s) != len(ClockLayout) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return "", fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Format(ClockLayout), nil
}

// ParsePeak parses the peak offset in whole hours.
func ParsePeak(s string) (int, error) {
	s = strings.TrimSpace(s)
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%w: %q", ErrInvalidPeak, s)
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidPeak, s)
	}
	if n < MinPeakHours || n > MaxPeakHours {
		return 0, fmt.Errorf("%w: %d not in %d..%d", ErrInvalidPeak, n, MinPeakHours, MaxPeakHours)
	}
	return n, nil
}

// ParseName trims a subject name and checks its length.
func ParseName(s string) (string, error) {
	s = strings.TrimSpace(s)
	if s == "" || utf8.RuneCountInString(s) > MaxNameLength {
		return "", fmt.Errorf("%w: must be 1..%d characters", ErrInvalidName, MaxNameLength)
	}
	return s, nil
}

// clockMinutes converts a validated HH:MM string into minutes since midnight.
func clockMinutes(s string) (int, error) {
	t, err := time.Parse(ClockLayout, s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidTime, s)
	}
	return t.Hour()*60 + t.Minute(), nil
}

// FormatClock renders minutes since midnight as HH:MM, wrapping past midnight.
func FormatClock(minutes int) string {
	minutes = ((minutes % (24 * 60)) + 24*60) % (24 * 60)
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}
