package digest_test

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/edgard/glucodiary/internal/config"
	"github.com/edgard/glucodiary/internal/database"
	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/digest"
	"github.com/edgard/glucodiary/internal/trend"
)

type fakeSender struct {
	mu      sync.Mutex
	byChat  map[int64][]string
	failFor int64
}

func (f *fakeSender) SendText(_ context.Context, chatID int64, text string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if chatID == f.failFor {
		return errors.New("chat blocked the bot")
	}
	if f.byChat == nil {
		f.byChat = map[int64][]string{}
	}
	f.byChat[chatID] = append(f.byChat[chatID], text)
	return nil
}

func newStore(t *testing.T) database.Store {
	t.Helper()
	db, err := database.NewDB(filepath.Join(t.TempDir(), "digest.db"))
	require.NoError(t, err)
	t.Cleanup(func() { database.CloseDB(db) })
	return database.NewStore(db, nil)
}

func register(t *testing.T, store database.Store, chatID int64, name string) {
	t.Helper()
	require.NoError(t, store.CreateSubject(context.Background(), &database.Subject{
		ChatID: chatID, UserID: chatID, Name: name, MorningTime: "07:00", PeakHours: 4, EveningTime: "19:00",
	}))
}

func add(t *testing.T, store database.Store, chatID int64, name, date, clock string, amount float64, tag diary.Tag) {
	t.Helper()
	require.NoError(t, store.AddMeasurement(context.Background(), &database.Measurement{
		ChatID: chatID, UserID: chatID, Name: name, Date: date, Time: clock, Amount: amount, Tag: tag,
	}))
}

func newRunner(store database.Store, sender digest.Sender, clock clockwork.Clock) *digest.Runner {
	return digest.NewRunner(digest.Deps{
		Subjects: store,
		Analyzer: trend.NewAnalyzer(store),
		Sender:   sender,
		Clock:    clock,
		Alerts:   config.DefaultAlerts,
		Messages: config.DefaultMessages,
	})
}

var asOf = time.Date(2024, time.January, 3, 23, 59, 0, 0, time.Local)

func TestDigestAlerts(t *testing.T) {
	t.Parallel()
	msgs := config.DefaultMessages

	tests := []struct {
		name  string
		seed  func(t *testing.T, s database.Store)
		alert []string
	}{
		{
			name:  "no data",
			seed:  func(*testing.T, database.Store) {},
			alert: nil,
		},
		{
			name: "high nadir and weak insulin",
			seed: func(t *testing.T, s database.Store) {
				for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
					add(t, s, 1, "Murka", d, "07:00", 12, diary.TagMorning)
					add(t, s, 1, "Murka", d, "11:00", 11, diary.TagPeak)
				}
			},
			alert: []string{msgs.DigestDoseLow, msgs.DigestInsulinWeak},
		},
		{
			name: "good average nadir",
			seed: func(t *testing.T, s database.Store) {
				add(t, s, 1, "Murka", "2024-01-02", "07:00", 9, diary.TagMorning)
				add(t, s, 1, "Murka", "2024-01-02", "11:00", 5.5, diary.TagPeak)
				add(t, s, 1, "Murka", "2024-01-03", "11:00", 6.5, diary.TagPeak)
			},
			alert: []string{msgs.DigestNadirGood},
		},
		{
			name: "five low days",
			seed: func(t *testing.T, s database.Store) {
				for _, d := range []string{"2023-12-30", "2023-12-31", "2024-01-01", "2024-01-02", "2024-01-03"} {
					add(t, s, 1, "Murka", d, "07:00", 9, diary.TagMorning)
					add(t, s, 1, "Murka", d, "11:00", 3.5, diary.TagPeak)
				}
			},
			alert: []string{msgs.DigestHypoRisk},
		},
		{
			name: "high nadir with a gap",
			seed: func(t *testing.T, s database.Store) {
				for _, d := range []string{"2023-12-31", "2024-01-01", "2024-01-03"} {
					add(t, s, 1, "Murka", d, "07:00", 12, diary.TagMorning)
				}
			},
			alert: nil,
		},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			store := newStore(t)
			register(t, store, 1, "Murka")
			tc.seed(t, store)

			sender := &fakeSender{}
			require.NoError(t, newRunner(store, sender, nil).Run(context.Background(), asOf))
			assert.Equal(t, tc.alert, sender.byChat[1])
		})
	}
}

func TestDigestIsolatesSubjects(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	for _, chat := range []int64{1, 2} {
		register(t, store, chat, "Murka")
		for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
			add(t, store, chat, "Murka", d, "07:00", 12, diary.TagMorning)
		}
	}

	sender := &fakeSender{failFor: 1}
	err := newRunner(store, sender, nil).Run(context.Background(), asOf)
	require.Error(t, err)
	assert.Equal(t, []string{config.DefaultMessages.DigestDoseLow}, sender.byChat[2])
}

func TestDigestSkipsInactiveSubjects(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	register(t, store, 1, "Murka")
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		add(t, store, 1, "Murka", d, "07:00", 12, diary.TagMorning)
	}
	require.NoError(t, store.SetSubjectActive(context.Background(), 1, "Murka", false))

	sender := &fakeSender{}
	require.NoError(t, newRunner(store, sender, nil).Run(context.Background(), asOf))
	assert.Empty(t, sender.byChat)
}

func TestRunNowUsesClock(t *testing.T) {
	t.Parallel()
	store := newStore(t)
	register(t, store, 1, "Murka")
	for _, d := range []string{"2024-01-01", "2024-01-02", "2024-01-03"} {
		add(t, store, 1, "Murka", d, "07:00", 12, diary.TagMorning)
	}

	sender := &fakeSender{}
	runner := newRunner(store, sender, clockwork.NewFakeClockAt(asOf.AddDate(0, 0, 10)))
	require.NoError(t, runner.RunNow(context.Background()))
	assert.Empty(t, sender.byChat, "data ten days old is outside every window")
}
