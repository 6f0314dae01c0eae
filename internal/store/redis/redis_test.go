package redis

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { client.Close() })
	return NewStore(client, 6*time.Hour, zerolog.Nop()), mr
}

func testAttempt() *model.Attempt {
	content := &model.ExamContent{QuizID: 713265}
	return model.NewAttempt(content, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 3000)
}

func TestAttemptRoundTrip(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveAttempt(ctx, "sid-1", testAttempt()); err != nil {
		t.Fatalf("save attempt: %v", err)
	}
	if !mr.Exists(config.CacheKey.AttemptKey("sid-1")) {
		t.Fatal("attempt key not written")
	}
	if mr.TTL(config.CacheKey.AttemptKey("sid-1")) != 6*time.Hour {
		t.Fatalf("ttl = %v, want 6h", mr.TTL(config.CacheKey.AttemptKey("sid-1")))
	}

	a, ok := s.Attempt(ctx, "sid-1")
	if !ok {
		t.Fatal("expected attempt after save")
	}
	if a.Content.QuizID != 713265 || a.TimeRemaining != 3000 {
		t.Fatalf("round trip lost fields: %+v", a)
	}
}

func TestMalformedRecordReadsAsAbsent(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	mr.Set(config.CacheKey.AttemptKey("sid-1"), "{not-json")
	if _, ok := s.Attempt(ctx, "sid-1"); ok {
		t.Fatal("malformed record must read as absent")
	}

	mr.Set(config.CacheKey.ChatSessionsKey("sid-1"), "[broken")
	if chats := s.ChatSessions(ctx, "sid-1"); len(chats) != 0 {
		t.Fatalf("malformed chats must read as empty, got %d", len(chats))
	}
}

func TestPartialSaveUpdatesStoredAttempt(t *testing.T) {
	s, _ := newTestStore(t)
	ctx := context.Background()
	s.SaveAttempt(ctx, "sid-1", testAttempt())

	if err := s.SaveAnswers(ctx, "sid-1", map[string]string{"g4-2": "D"}); err != nil {
		t.Fatalf("save answers: %v", err)
	}
	if err := s.SaveClock(ctx, "sid-1", 1500, true); err != nil {
		t.Fatalf("save clock: %v", err)
	}

	a, _ := s.Attempt(ctx, "sid-1")
	if a.Answers["g4-2"] != "D" || a.TimeRemaining != 1500 || !a.Started {
		t.Fatalf("partial saves not applied: %+v", a)
	}
}

func TestPartialSaveWithoutAttemptIsDropped(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	if err := s.SaveClock(ctx, "ghost", 100, true); err != nil {
		t.Fatalf("save clock: %v", err)
	}
	if mr.Exists(config.CacheKey.AttemptKey("ghost")) {
		t.Fatal("partial save must not create an attempt key")
	}
}

func TestClearRemovesAllSessionKeys(t *testing.T) {
	s, mr := newTestStore(t)
	ctx := context.Background()

	s.SaveAttempt(ctx, "sid-1", testAttempt())
	s.SaveChatSessions(ctx, "sid-1", map[string]*model.ChatSession{
		"g1-0": {Messages: []model.ChatMessage{{ID: 1, Sender: model.SenderUser, Text: "hi"}}},
	})

	if err := s.Clear(ctx, "sid-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if mr.Exists(config.CacheKey.AttemptKey("sid-1")) {
		t.Fatal("attempt key survived clear")
	}
	if mr.Exists(config.CacheKey.ChatSessionsKey("sid-1")) {
		t.Fatal("chat key survived clear")
	}
}
