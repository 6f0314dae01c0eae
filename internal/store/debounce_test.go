package store

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

// countingStore records SaveChatSessions calls.
type countingStore struct {
	mu    sync.Mutex
	saves []map[string]*model.ChatSession
}

func (c *countingStore) Attempt(context.Context, string) (*model.Attempt, bool) { return nil, false }
func (c *countingStore) SaveAttempt(context.Context, string, *model.Attempt) error {
	return nil
}
func (c *countingStore) SaveAnswers(context.Context, string, map[string]string) error { return nil }
func (c *countingStore) SaveClock(context.Context, string, int, bool) error           { return nil }
func (c *countingStore) SaveOutcome(context.Context, string, model.AttemptState, *time.Time) error {
	return nil
}
func (c *countingStore) ChatSessions(context.Context, string) map[string]*model.ChatSession {
	return nil
}
func (c *countingStore) SaveChatSessions(_ context.Context, _ string, chats map[string]*model.ChatSession) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.saves = append(c.saves, chats)
	return nil
}
func (c *countingStore) Clear(context.Context, string) error { return nil }

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.saves)
}

func (c *countingStore) last() map[string]*model.ChatSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.saves) == 0 {
		return nil
	}
	return c.saves[len(c.saves)-1]
}

func chatsWith(text string) map[string]*model.ChatSession {
	return map[string]*model.ChatSession{
		"g1-0": {Messages: []model.ChatMessage{{ID: 1, Sender: model.SenderUser, Text: text}}},
	}
}

func TestDebouncerCoalescesBursts(t *testing.T) {
	cs := &countingStore{}
	d := NewChatDebouncer(cs, 20*time.Millisecond)
	defer d.Close()

	for i := 0; i < 10; i++ {
		d.Save("sid-1", chatsWith("draft"))
	}
	d.Save("sid-1", chatsWith("final"))

	deadline := time.Now().Add(time.Second)
	for cs.count() == 0 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if got := cs.count(); got != 1 {
		t.Fatalf("saves = %d, want 1", got)
	}
	if cs.last()["g1-0"].Messages[0].Text != "final" {
		t.Fatal("latest snapshot must win")
	}
}

func TestFlushWritesImmediately(t *testing.T) {
	cs := &countingStore{}
	d := NewChatDebouncer(cs, time.Hour)
	defer d.Close()

	d.Save("sid-1", chatsWith("before submit"))
	d.Flush("sid-1")

	if got := cs.count(); got != 1 {
		t.Fatalf("saves after flush = %d, want 1", got)
	}

	// Flush with nothing pending is a no-op.
	d.Flush("sid-1")
	if got := cs.count(); got != 1 {
		t.Fatalf("saves after empty flush = %d, want 1", got)
	}
}

func TestSessionsOverlayPendingSnapshot(t *testing.T) {
	cs := &countingStore{}
	d := NewChatDebouncer(cs, time.Hour)
	defer d.Close()
	ctx := context.Background()

	// Nothing pending, nothing stored: empty but usable map.
	if got := d.Sessions(ctx, "sid-1"); len(got) != 0 {
		t.Fatalf("sessions = %v, want empty", got)
	}

	d.Save("sid-1", chatsWith("not flushed yet"))
	got := d.Sessions(ctx, "sid-1")
	if got["g1-0"] == nil || got["g1-0"].Messages[0].Text != "not flushed yet" {
		t.Fatalf("sessions = %v, want the pending snapshot visible before its flush", got)
	}
}

func TestCancelDropsPendingWrite(t *testing.T) {
	cs := &countingStore{}
	d := NewChatDebouncer(cs, 10*time.Millisecond)
	defer d.Close()

	d.Save("sid-1", chatsWith("doomed"))
	d.Cancel("sid-1")

	// Give a leaked timer every chance to fire.
	time.Sleep(50 * time.Millisecond)
	if got := cs.count(); got != 0 {
		t.Fatalf("saves after cancel = %d, want 0", got)
	}
	if got := d.Sessions(context.Background(), "sid-1"); len(got) != 0 {
		t.Fatalf("sessions after cancel = %v, want empty", got)
	}
}

func TestCloseFlushesAllSessions(t *testing.T) {
	cs := &countingStore{}
	d := NewChatDebouncer(cs, time.Hour)

	d.Save("sid-1", chatsWith("a"))
	d.Save("sid-2", chatsWith("b"))
	d.Close()

	if got := cs.count(); got != 2 {
		t.Fatalf("saves after close = %d, want 2", got)
	}

	// Saves after close are dropped.
	d.Save("sid-3", chatsWith("late"))
	if got := cs.count(); got != 2 {
		t.Fatalf("saves after late save = %d, want 2", got)
	}
}
