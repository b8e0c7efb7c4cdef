package chat

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/zhouzirui/cv-master/backend/internal/model/chat"
)

var ErrEntryNotFound = errors.New("transcript entry not found")

// Transcript is the ordered chat log of one session.
// Entries are only ever appended; the single exception is Remove, used to retract pending placeholders.
type Transcript struct {
	mu      sync.RWMutex
	entries []chat.Entry
	now     func() time.Time
}

// NewTranscript returns an empty transcript.
func NewTranscript() *Transcript {
	return &Transcript{
		entries: make([]chat.Entry, 0, 16),
		now:     func() time.Time { return time.Now().UTC() },
	}
}

// Append adds an entry and returns its identifier.
func (t *Transcript) Append(role chat.Role, text string, pending bool) string {
	entry := chat.Entry{
		ID:        uuid.NewString(),
		Role:      role,
		Text:      text,
		CreatedAt: t.now(),
		Pending:   pending,
	}

	t.mu.Lock()
	t.entries = append(t.entries, entry)
	t.mu.Unlock()

	return entry.ID
}

// Remove deletes the entry with the given identifier, keeping the order of the rest.
func (t *Transcript) Remove(id string) error {
	t.mu.Lock()
	defer t.mu.Unlock()

	for i, entry := range t.entries {
		if entry.ID == id {
			t.entries = append(t.entries[:i], t.entries[i+1:]...)
			return nil
		}
	}
	return ErrEntryNotFound
}

// Entries returns a copy of the transcript in insertion order.
func (t *Transcript) Entries() []chat.Entry {
	t.mu.RLock()
	defer t.mu.RUnlock()

	copied := make([]chat.Entry, len(t.entries))
	copy(copied, t.entries)
	return copied
}
