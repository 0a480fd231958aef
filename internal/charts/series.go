// Package charts renders measurement history as PNG images.
package charts

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
)

// ErrNotEnoughData is returned when the rows cannot form a chart, which needs at
// least two distinct points on the time axis.
var ErrNotEnoughData = errors.New("not enough data for chart")

// Point is one value on a time axis.
type Point struct {
	At    time.Time
	Value float64
}

// DayValue is one value per calendar date.
type DayValue struct {
	Date  string
	Value float64
}

// Readings converts rows to points at their recorded local date and time, ascending.
func Readings(rows []database.Measurement) []Point {
	points := make([]Point, 0, len(rows))
	for _, r := range rows {
		at, err := time.ParseInLocation(diary.DateLayout+" "+diary.ClockLayout, r.Date+" "+r.Time, time.Local)
		if err != nil {
			continue
		}
		points = append(points, Point{At: at, Value: r.Amount})
	}
	sort.SliceStable(points, func(i, j int) bool { return points[i].At.Before(points[j].At) })
	return points
}

// Nadirs is the daily minimum for every date in rows, ascending by date.
func Nadirs(rows []database.Measurement) []DayValue {
	return perDay(rows, func(day []database.Measurement) float64 {
		low := math.Inf(1)
		for _, r := range day {
			low = math.Min(low, r.Amount)
		}
		return low
	})
}

// MorningEvening picks the MORNING reading of each date (earliest reading when absent)
// and the EVENING reading (latest reading when absent).
func MorningEvening(rows []database.Measurement) (morning, evening []DayValue) {
	morning = perDay(rows, func(day []database.Measurement) float64 {
		return pickTag(day, diary.TagMorning, day[0])
	})
	evening = perDay(rows, func(day []database.Measurement) float64 {
		return pickTag(day, diary.TagEvening, day[len(day)-1])
	})
	return morning, evening
}

// RangePercents is, for every date in rows, the share of readings strictly between
// low and high over the seven days ending on that date.
func RangePercents(rows []database.Measurement, low, high float64) []DayValue {
	byDate := database.GroupByDate(rows)
	dates := sortedDates(byDate)
	out := make([]DayValue, 0, len(dates))
	for _, d := range dates {
		end, err := time.Parse(diary.DateLayout, d)
		if err != nil {
			continue
		}
		start := end.AddDate(0, 0, -6).Format(diary.DateLayout)

		var total, good int
		for _, r := range rows {
			if r.Date < start || r.Date > d {
				continue
			}
			total++
			if r.Amount > low && r.Amount < high {
				good++
			}
		}
		pct := 0.0
		if total > 0 {
			pct = math.Round(float64(good)/float64(total)*1000) / 10
		}
		out = append(out, DayValue{Date: d, Value: pct})
	}
	return out
}

// DaySummary is the earliest, middle and latest reading of a date.
type DaySummary struct {
	Date     string
	Earliest float64
	Middle   float64
	Latest   float64
}

// Summaries returns one DaySummary per date, newest first.
func Summaries(rows []database.Measurement) []DaySummary {
	byDate := database.GroupByDate(rows)
	dates := sortedDates(byDate)
	out := make([]DaySummary, 0, len(dates))
	for i := len(dates) - 1; i >= 0; i-- {
		day := byTime(byDate[dates[i]])
		out = append(out, DaySummary{
			Date:     dates[i],
			Earliest: day[0].Amount,
			Middle:   day[len(day)/2].Amount,
			Latest:   day[len(day)-1].Amount,
		})
	}
	return out
}

func perDay(rows []database.Measurement, value func(day []database.Measurement) float64) []DayValue {
	byDate := database.GroupByDate(rows)
	dates := sortedDates(byDate)
	out := make([]DayValue, 0, len(dates))
	for _, d := range dates {
		out = append(out, DayValue{Date: d, Value: value(byTime(byDate[d]))})
	}
	return out
}

func pickTag(day []database.Measurement, tag diary.Tag, fallback database.Measurement) float64 {
	for _, r := range day {
		if r.Tag == tag {
			return r.Amount
		}
	}
	return fallback.Amount
}

func byTime(day []database.Measurement) []database.Measurement {
	sorted := append([]database.Measurement(nil), day...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Time < sorted[j].Time })
	return sorted
}

func sortedDates(byDate map[string][]database.Measurement) []string {
	dates := make([]string, 0, len(byDate))
	for d, rows := range byDate {
		if len(rows) > 0 {
			dates = append(dates, d)
		}
	}
	sort.Strings(dates)
	return dates
}
