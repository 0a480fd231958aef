// Package trend computes the longitudinal statistics behind clinical alerts: averages,
// daily nadirs and checks over runs of contiguous calendar days. Every window is
// evaluated against an explicit as-of date.
package trend

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

// DefaultPeakThreshold is the morning/peak difference under which insulin is considered weak.
const DefaultPeakThreshold = 2.0

// Source is the slice of the measurement store the analyzer reads.
type Source interface {
	GetMeasuresBetween(ctx context.Context, chatID int64, name string, start, end time.Time) ([]database.Measurement, error)
	GetMeasuresGroupedByDate(ctx context.Context, chatID int64, name string, daysBack int, asOf time.Time) (map[string][]database.Measurement, error)
}

// Analyzer evaluates trends for one subject at a time.
type Analyzer struct {
	source Source
}

// NewAnalyzer creates an Analyzer reading from source.
func NewAnalyzer(source Source) *Analyzer {
	return &Analyzer{source: source}
}

// AverageNadir is the mean of daily minima over the last days calendar days, asOf
// included. ok is false when there is no data.
func (a *Analyzer) AverageNadir(ctx context.Context, chatID int64, name string, days int, asOf time.Time) (avg float64, ok bool, err error) {
	byDate, err := a.source.GetMeasuresGroupedByDate(ctx, chatID, name, days-1, asOf)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load measures for average nadir: %w", err)
	}
	nadirs := DailyNadir(byDate)
	if len(nadirs) == 0 {
		return 0, false, nil
	}
	var sum float64
	for _, v := range nadirs {
		sum += v
	}
	return sum / float64(len(nadirs)), true, nil
}

// ConsecutiveNadir reports whether the most recent days dates with data, looking back
// days days from asOf, are contiguous and each daily minimum satisfies pred.
func (a *Analyzer) ConsecutiveNadir(ctx context.Context, chatID int64, name string, days int, asOf time.Time, pred func(nadir float64) bool) (bool, error) {
	byDate, err := a.source.GetMeasuresGroupedByDate(ctx, chatID, name, days, asOf)
	if err != nil {
		return false, fmt.Errorf("failed to load measures for consecutive nadir: %w", err)
	}
	return NadirRun(byDate, days, pred), nil
}

// AmpsPeakDifferenceLow reports whether, for the most recent days contiguous dates, the
// morning and peak readings differ by less than threshold every day.
func (a *Analyzer) AmpsPeakDifferenceLow(ctx context.Context, chatID int64, name string, days int, asOf time.Time, threshold float64) (bool, error) {
	byDate, err := a.source.GetMeasuresGroupedByDate(ctx, chatID, name, days, asOf)
	if err != nil {
		return false, fmt.Errorf("failed to load measures for peak difference: %w", err)
	}
	return PeakDifferenceRun(byDate, days, threshold), nil
}

// AverageGlucoseLastDays is the mean of every reading in the last days calendar days,
// asOf included.
func (a *Analyzer) AverageGlucoseLastDays(ctx context.Context, chatID int64, name string, days int, asOf time.Time) (avg float64, ok bool, err error) {
	rows, err := a.source.GetMeasuresBetween(ctx, chatID, name, asOf.AddDate(0, 0, -(days-1)), asOf)
	if err != nil {
		return 0, false, fmt.Errorf("failed to load measures for average glucose: %w", err)
	}
	avg, ok = AverageAmount(rows)
	return avg, ok, nil
}

// AverageAmount is the arithmetic mean of the rows. ok is false for no rows.
func AverageAmount(rows []database.Measurement) (avg float64, ok bool) {
	if len(rows) == 0 {
		return 0, false
	}
	var sum float64
	for _, r := range rows {
		sum += r.Amount
	}
	return sum / float64(len(rows)), true
}

// DailyNadir returns the minimum amount of each date.
func DailyNadir(byDate map[string][]database.Measurement) map[string]float64 {
	nadirs := make(map[string]float64, len(byDate))
	for day, rows := range byDate {
		if len(rows) == 0 {
			continue
		}
		low := math.Inf(1)
		for _, r := range rows {
			low = math.Min(low, r.Amount)
		}
		nadirs[day] = low
	}
	return nadirs
}

// NadirRun reports whether the latest days dates of byDate form a gapless run whose
// daily minima all satisfy pred.
func NadirRun(byDate map[string][]database.Measurement, days int, pred func(nadir float64) bool) bool {
	dates, ok := recentContiguous(byDate, days)
	if !ok {
		return false
	}
	nadirs := DailyNadir(byDate)
	for _, d := range dates {
		if !pred(nadirs[d]) {
			return false
		}
	}
	return true
}

// PeakDifferenceRun reports whether the latest days dates of byDate form a gapless run
// where each day has a PEAK reading within threshold of its MORNING reading. The day's
// earliest reading stands in for a missing MORNING; a missing PEAK fails the run.
func PeakDifferenceRun(byDate map[string][]database.Measurement, days int, threshold float64) bool {
	dates, ok := recentContiguous(byDate, days)
	if !ok {
		return false
	}
	for _, d := range dates {
		rows := append([]database.Measurement(nil), byDate[d]...)
		sort.SliceStable(rows, func(i, j int) bool { return rows[i].Time < rows[j].Time })

		var morning, peak *float64
		for i := range rows {
			switch rows[i].Tag {
			case diary.TagMorning:
				morning = &rows[i].Amount
			case diary.TagPeak:
				peak = &rows[i].Amount
			}
		}
		if morning == nil {
			morning = &rows[0].Amount
		}
		if peak == nil {
			return false
		}
		if math.Abs(*morning-*peak) >= threshold {
			return false
		}
	}
	return true
}

// recentContiguous picks the days most recent dates of byDate, newest first, and
// reports whether they are consecutive calendar days.
func recentContiguous(byDate map[string][]database.Measurement, days int) ([]string, bool) {
	if days <= 0 {
		return nil, false
	}
	dates := make([]string, 0, len(byDate))
	for d, rows := range byDate {
		if len(rows) > 0 {
			dates = append(dates, d)
		}
	}
	if len(dates) < days {
		return nil, false
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	dates = dates[:days]

	for i := 0; i+1 < len(dates); i++ {
		newer, err := time.Parse(diary.DateLayout, dates[i])
		if err != nil {
			return nil, false
		}
		if newer.AddDate(0, 0, -1).Format(diary.DateLayout) != dates[i+1] {
			return nil, false
		}
	}
	return dates, true
}
