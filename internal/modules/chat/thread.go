package chat

import (
	"sort"

	"errand-market/internal/models"
	"errand-market/internal/realtime"
)

// Thread is the consumer-side merged view of a request's message log.
// Realtime events may arrive out of order under network jitter, so the
// thread re-sorts by creation timestamp instead of trusting delivery order,
// and dedupes by message id so update events replace rather than append.
type Thread struct {
	messages []models.Message
	index    map[string]int
}

// NewThread seeds a thread from an already-ordered history fetch.
func NewThread(history []models.Message) *Thread {
	t := &Thread{index: make(map[string]int, len(history))}
	for _, m := range history {
		t.upsert(m)
	}
	t.reorder()
	return t
}

// Apply merges one realtime event into the thread.
func (t *Thread) Apply(ev realtime.Event) {
	t.upsert(ev.Message)
	t.reorder()
}

func (t *Thread) upsert(m models.Message) {
	if i, ok := t.index[m.ID]; ok {
		t.messages[i] = m
		return
	}
	t.index[m.ID] = len(t.messages)
	t.messages = append(t.messages, m)
}

func (t *Thread) reorder() {
	sort.SliceStable(t.messages, func(i, j int) bool {
		a, b := t.messages[i], t.messages[j]
		if a.CreatedAt.Equal(b.CreatedAt) {
			return a.ID < b.ID
		}
		return a.CreatedAt.Before(b.CreatedAt)
	})
	for i, m := range t.messages {
		t.index[m.ID] = i
	}
}

// Messages returns the merged log in rendering order.
func (t *Thread) Messages() []models.Message {
	out := make([]models.Message, len(t.messages))
	copy(out, t.messages)
	return out
}

// LastSeenOwnMessage returns the id of the most recent message sent by
// viewerID that the peer has seen, or "" when none qualifies. The "Seen"
// indicator attaches only to this one message, not to every seen message.
// This is presentation policy computed from the ordered log, nothing stored.
func LastSeenOwnMessage(messages []models.Message, viewerID string) string {
	for i := len(messages) - 1; i >= 0; i-- {
		if messages[i].SenderID == viewerID && messages[i].Seen {
			return messages[i].ID
		}
	}
	return ""
}
