package conversation_test

import (
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/edgard/glucodiary/internal/conversation"
	"github.com/edgard/glucodiary/internal/diary"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestKeysDoNotCollideInPrivateChats(t *testing.T) {
	t.Parallel()
	store := conversation.NewMemoryStore()

	// In a private chat the user id equals the chat id.
	user := conversation.UserKey(55, 55)
	reminder := conversation.ReminderKey(55)
	assert.NotEqual(t, user, reminder)

	store.Set(user, conversation.AwaitValue(diary.TagOther, "Murka"))
	store.Set(reminder, conversation.AwaitValue(diary.TagPeak, "Murka"))

	got, ok := store.Get(user)
	require.True(t, ok)
	assert.Equal(t, diary.TagOther, got.Tag)

	got, ok = store.Get(reminder)
	require.True(t, ok)
	assert.Equal(t, diary.TagPeak, got.Tag)

	store.Clear(user)
	_, ok = store.Get(user)
	assert.False(t, ok)
	_, ok = store.Get(reminder)
	assert.True(t, ok)
}

func TestStateAwaitsValue(t *testing.T) {
	t.Parallel()

	tests := []struct {
		step conversation.Step
		want bool
	}{
		{conversation.StepAwaitValue, true},
		{conversation.StepRegisterName, false},
		{conversation.StepEditPeak, false},
	}
	for _, tc := range tests {
		t.Run(string(tc.step), func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.want, conversation.State{Step: tc.step}.AwaitsValue())
		})
	}
}

func TestOriginString(t *testing.T) {
	t.Parallel()
	assert.Equal(t, "user", conversation.OriginUser.String())
	assert.Equal(t, "reminder", conversation.OriginReminder.String())
}

func TestLockSerializesPerChat(t *testing.T) {
	t.Parallel()
	store := conversation.NewMemoryStore()

	unlock := store.Lock(1)

	acquired := make(chan struct{})
	go func() {
		release := store.Lock(1)
		close(acquired)
		release()
	}()

	// Another chat is not blocked by chat 1.
	releaseOther := store.Lock(2)
	releaseOther()

	select {
	case <-acquired:
		t.Fatal("second lock on the same chat acquired while held")
	case <-time.After(50 * time.Millisecond):
	}

	unlock()
	select {
	case <-acquired:
	case <-time.After(time.Second):
		t.Fatal("lock was not released")
	}
}

func TestConcurrentSetGet(t *testing.T) {
	t.Parallel()
	store := conversation.NewMemoryStore()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(id int64) {
			defer wg.Done()
			unlock := store.Lock(id % 3)
			defer unlock()
			key := conversation.UserKey(id%3, id)
			store.Set(key, conversation.State{Step: conversation.StepRegisterName})
			_, _ = store.Get(key)
		}(int64(i))
	}
	wg.Wait()

	_, ok := store.Get(conversation.UserKey(1, 4))
	assert.True(t, ok)
}
