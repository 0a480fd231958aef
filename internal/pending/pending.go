// Package pending keeps the in-memory table that correlates a chat with the checkpoint
// its last reminder asked about.
package pending

import (
	"sync"

	"github.com/edgard/glucodiary/internal/diary"
)

// Entry is the checkpoint a chat is waiting to report.
type Entry struct {
	Tag         diary.Tag
	SubjectName string
}

// Table maps a chat to its pending checkpoint. Writes are last-write-wins.
type Table interface {
	Set(chatID int64, tag diary.Tag, subjectName string)
	Get(chatID int64) (Entry, bool)
	Clear(chatID int64)
}

type memoryTable struct {
	mu      sync.RWMutex
	entries map[int64]Entry
}

// NewMemoryTable returns an empty, concurrency-safe Table. Its contents are lost on restart.
func NewMemoryTable() Table {
	return &memoryTable{entries: make(map[int64]Entry)}
}

func (t *memoryTable) Set(chatID int64, tag diary.Tag, subjectName string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.entries[chatID] = Entry{Tag: tag, SubjectName: subjectName}
}

func (t *memoryTable) Get(chatID int64) (Entry, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	e, ok := t.entries[chatID]
	return e, ok
}

func (t *memoryTable) Clear(chatID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, chatID)
}
