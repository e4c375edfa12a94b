package chat

import (
	"testing"
	"time"

	"errand-market/internal/models"
	"errand-market/internal/realtime"
)

func msgAt(id, sender string, sec int, seen bool) models.Message {
	return models.Message{
		ID:        id,
		RequestID: "r1",
		SenderID:  sender,
		Content:   "m " + id,
		CreatedAt: time.Date(2025, 6, 1, 9, 0, sec, 0, time.UTC),
		Seen:      seen,
	}
}

func ids(messages []models.Message) []string {
	out := make([]string, len(messages))
	for i, m := range messages {
		out[i] = m.ID
	}
	return out
}

func TestThreadReordersLateArrivals(t *testing.T) {
	th := NewThread([]models.Message{
		msgAt("m1", "a", 1, false),
		msgAt("m3", "b", 3, false),
	})

	// m2 was created before m3 but its insert event arrives after.
	th.Apply(realtime.Event{Type: realtime.EventInsert, Message: msgAt("m2", "a", 2, false)})

	got := ids(th.Messages())
	want := []string{"m1", "m2", "m3"}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("order = %v; want %v", got, want)
		}
	}
}

func TestThreadUpdateReplacesInPlace(t *testing.T) {
	th := NewThread([]models.Message{
		msgAt("m1", "a", 1, false),
		msgAt("m2", "b", 2, false),
	})

	updated := msgAt("m1", "a", 1, true)
	th.Apply(realtime.Event{Type: realtime.EventUpdate, Message: updated})

	messages := th.Messages()
	if len(messages) != 2 {
		t.Fatalf("length = %d; want 2 (update must not append)", len(messages))
	}
	if !messages[0].Seen {
		t.Error("m1 not replaced by its seen update")
	}
}

func TestThreadEqualTimestampsTieBreakOnID(t *testing.T) {
	th := NewThread(nil)
	th.Apply(realtime.Event{Type: realtime.EventInsert, Message: msgAt("m2", "b", 5, false)})
	th.Apply(realtime.Event{Type: realtime.EventInsert, Message: msgAt("m1", "a", 5, false)})

	got := ids(th.Messages())
	if got[0] != "m1" || got[1] != "m2" {
		t.Errorf("order = %v; want [m1 m2]", got)
	}
}

func TestLastSeenOwnMessage(t *testing.T) {
	messages := []models.Message{
		msgAt("m1", "a", 1, true),
		msgAt("m2", "b", 2, true),
		msgAt("m3", "a", 3, true),
		msgAt("m4", "a", 4, false),
	}

	// The indicator lands on a's newest seen message, skipping the newer
	// unseen one and the peer's messages.
	if got := LastSeenOwnMessage(messages, "a"); got != "m3" {
		t.Errorf("LastSeenOwnMessage(a) = %q; want m3", got)
	}
	if got := LastSeenOwnMessage(messages, "b"); got != "m2" {
		t.Errorf("LastSeenOwnMessage(b) = %q; want m2", got)
	}
	if got := LastSeenOwnMessage(nil, "a"); got != "" {
		t.Errorf("LastSeenOwnMessage(empty) = %q; want empty", got)
	}
}
