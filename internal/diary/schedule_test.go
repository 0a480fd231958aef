package diary_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/glucodiary/internal/diary"
)

func at(hour, minute, second int) time.Time {
	return time.Date(2024, time.January, 10, hour, minute, second, 0, time.Local)
}

func targetOn(t *testing.T, targets []diary.Target, tag diary.Tag, day time.Time) time.Time {
	t.Helper()
	y, m, d := day.Date()
	for _, tg := range targets {
		ty, tm, td := tg.At.Date()
		if tg.Tag == tag && ty == y && tm == m && td == d {
			return tg.At
		}
	}
	t.Fatalf("no target for %s on %s", tag, day.Format(diary.DateLayout))
	return time.Time{}
}

func TestRoutineTargets(t *testing.T) {
	t.Parallel()

	r := diary.Routine{MorningTime: "07:30", PeakHours: 4, EveningTime: "19:00"}
	targets, err := r.Targets(at(12, 0, 0))
	require.NoError(t, err)
	require.Len(t, targets, 9)

	today := at(0, 0, 0)
	assert.Equal(t, at(7, 30, 0), targetOn(t, targets, diary.TagMorning, today))
	assert.Equal(t, at(11, 30, 0), targetOn(t, targets, diary.TagPeak, today))
	assert.Equal(t, at(19, 0, 0), targetOn(t, targets, diary.TagEvening, today))
	assert.Equal(t, at(7, 30, 0).AddDate(0, 0, 1), targetOn(t, targets, diary.TagMorning, today.AddDate(0, 0, 1)))
	assert.Equal(t, at(19, 0, 0).AddDate(0, 0, -1), targetOn(t, targets, diary.TagEvening, today.AddDate(0, 0, -1)))
}

func TestRoutineTargetsPeakFollowsMorning(t *testing.T) {
	t.Parallel()

	r := diary.Routine{MorningTime: "07:30", PeakHours: 4, EveningTime: "19:00"}
	before, err := r.Targets(at(9, 0, 0))
	require.NoError(t, err)

	r.MorningTime = "08:00"
	r.PeakHours = 5
	after, err := r.Targets(at(9, 0, 0))
	require.NoError(t, err)

	assert.Equal(t, at(11, 30, 0), targetOn(t, before, diary.TagPeak, at(0, 0, 0)))
	assert.Equal(t, at(13, 0, 0), targetOn(t, after, diary.TagPeak, at(0, 0, 0)))
}

func TestRoutineTargetsPeakAcrossMidnight(t *testing.T) {
	t.Parallel()

	r := diary.Routine{MorningTime: "22:00", PeakHours: 4, EveningTime: "21:00"}
	targets, err := r.Targets(at(1, 45, 0))
	require.NoError(t, err)

	var peaks []time.Time
	for _, tg := range targets {
		if tg.Tag == diary.TagPeak {
			peaks = append(peaks, tg.At)
		}
	}
	assert.Contains(t, peaks, at(2, 0, 0))

	peak, err := r.PeakClock()
	require.NoError(t, err)
	assert.Equal(t, "02:00", peak)
}

func TestRoutineFiresOncePerDayNearMidnight(t *testing.T) {
	t.Parallel()

	routines := []diary.Routine{
		{MorningTime: "00:05", PeakHours: 4, EveningTime: "00:10"},
		{MorningTime: "00:00", PeakHours: 12, EveningTime: "23:59"},
		{MorningTime: "21:30", PeakHours: 3, EveningTime: "00:14"},
		{MorningTime: "07:30", PeakHours: 4, EveningTime: "19:00"},
	}
	w := diary.DefaultFireWindow
	for _, r := range routines {
		t.Run(r.MorningTime+"/"+r.EveningTime, func(t *testing.T) {
			t.Parallel()

			fired := map[diary.Tag]int{}
			seen := map[time.Time]bool{}
			for now := at(0, 0, 17); now.Before(at(0, 0, 17).Add(48 * time.Hour)); now = now.Add(time.Minute) {
				targets, err := r.Targets(now)
				require.NoError(t, err)
				for _, tg := range targets {
					if !w.Due(tg.At, now) {
						continue
					}
					assert.False(t, seen[tg.At], "target %s fired twice", tg.At)
					seen[tg.At] = true
					fired[tg.Tag]++
				}
			}
			assert.Equal(t, map[diary.Tag]int{diary.TagMorning: 2, diary.TagPeak: 2, diary.TagEvening: 2}, fired)
		})
	}
}

func TestFireWindowDue(t *testing.T) {
	t.Parallel()

	target := at(7, 30, 0)
	w := diary.DefaultFireWindow

	cases := []struct {
		name string
		now  time.Time
		want bool
	}{
		{name: "exactly target-15m", now: at(7, 15, 0), want: true},
		{name: "inside window", now: at(7, 15, 42), want: true},
		{name: "last instant", now: at(7, 15, 59).Add(999 * time.Millisecond), want: true},
		{name: "exactly target-14m", now: at(7, 16, 0), want: false},
		{name: "one second early", now: at(7, 14, 59), want: false},
		{name: "at target", now: at(7, 30, 0), want: false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, w.Due(target, tc.now))
		})
	}
}

func TestFireWindowAtMostOncePerMinuteCadence(t *testing.T) {
	t.Parallel()

	target := at(19, 0, 0)
	w := diary.DefaultFireWindow
	fired := 0
	for now := at(17, 0, 17); now.Before(at(20, 0, 0)); now = now.Add(time.Minute) {
		if w.Due(target, now) {
			fired++
		}
	}
	assert.Equal(t, 1, fired)
}

func TestRoutineValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, diary.Routine{MorningTime: "07:30", PeakHours: 4, EveningTime: "19:00"}.Validate())
	assert.Error(t, diary.Routine{MorningTime: "7:30pm", PeakHours: 4, EveningTime: "19:00"}.Validate())
	assert.Error(t, diary.Routine{MorningTime: "07:30", PeakHours: 0, EveningTime: "19:00"}.Validate())
	assert.Error(t, diary.Routine{MorningTime: "07:30", PeakHours: 4}.Validate())
}

func TestFormatClock(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "00:05", diary.FormatClock(5))
	assert.Equal(t, "01:00", diary.FormatClock(25*60))
	assert.Equal(t, "23:59", diary.FormatClock(-1))
}
