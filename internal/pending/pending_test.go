package pending_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/glucodiary/internal/diary"
	"github.com/edgard/glucodiary/internal/pending"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestTableSetGetClear(t *testing.T) {
	t.Parallel()
	table := pending.NewMemoryTable()

	_, ok := table.Get(42)
	assert.False(t, ok)

	table.Set(42, diary.TagMorning, "Murka")
	got, ok := table.Get(42)
	require.True(t, ok)
	assert.Equal(t, pending.Entry{Tag: diary.TagMorning, SubjectName: "Murka"}, got)

	table.Set(42, diary.TagPeak, "Murka")
	got, _ = table.Get(42)
	assert.Equal(t, diary.TagPeak, got.Tag, "last write wins")

	_, ok = table.Get(43)
	assert.False(t, ok, "entries are per chat")

	table.Clear(42)
	_, ok = table.Get(42)
	assert.False(t, ok)

	table.Clear(42)
}

func TestTableConcurrentAccess(t *testing.T) {
	t.Parallel()
	table := pending.NewMemoryTable()

	var wg sync.WaitGroup
	for i := range 50 {
		wg.Add(1)
		go func(chat int64) {
			defer wg.Done()
			table.Set(chat, diary.TagEvening, "Barsik")
			_, _ = table.Get(chat)
			if chat%2 == 0 {
				table.Clear(chat)
			}
		}(int64(i))
	}
	wg.Wait()

	for i := range 50 {
		_, ok := table.Get(int64(i))
		assert.Equal(t, i%2 == 1, ok, "chat %d", i)
	}
}
