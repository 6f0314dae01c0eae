package memory

import (
	"context"
	"testing"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

func testAttempt() *model.Attempt {
	content := &model.ExamContent{QuizID: 482913}
	return model.NewAttempt(content, time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC), 3000)
}

func TestAttemptLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if _, ok := s.Attempt(ctx, "sid-1"); ok {
		t.Fatal("expected no attempt before save")
	}

	if err := s.SaveAttempt(ctx, "sid-1", testAttempt()); err != nil {
		t.Fatalf("save attempt: %v", err)
	}
	a, ok := s.Attempt(ctx, "sid-1")
	if !ok {
		t.Fatal("expected attempt after save")
	}
	if a.Content.QuizID != 482913 {
		t.Fatalf("quiz id = %d, want 482913", a.Content.QuizID)
	}
	if a.Answers == nil {
		t.Fatal("answers map should be initialized on read")
	}

	if err := s.Clear(ctx, "sid-1"); err != nil {
		t.Fatalf("clear: %v", err)
	}
	if _, ok := s.Attempt(ctx, "sid-1"); ok {
		t.Fatal("expected attempt gone after clear")
	}
}

func TestPartialSaves(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SaveAttempt(ctx, "sid-1", testAttempt())

	if err := s.SaveAnswers(ctx, "sid-1", map[string]string{"g1-0": "B"}); err != nil {
		t.Fatalf("save answers: %v", err)
	}
	if err := s.SaveClock(ctx, "sid-1", 2999, true); err != nil {
		t.Fatalf("save clock: %v", err)
	}

	a, _ := s.Attempt(ctx, "sid-1")
	if a.Answers["g1-0"] != "B" {
		t.Fatalf("answer = %q, want B", a.Answers["g1-0"])
	}
	if a.TimeRemaining != 2999 || !a.Started {
		t.Fatalf("clock = (%d, %v), want (2999, true)", a.TimeRemaining, a.Started)
	}

	finish := time.Date(2026, 3, 1, 9, 50, 0, 0, time.UTC)
	if err := s.SaveOutcome(ctx, "sid-1", model.AttemptSubmitted, &finish); err != nil {
		t.Fatalf("save outcome: %v", err)
	}
	a, _ = s.Attempt(ctx, "sid-1")
	if a.State != model.AttemptSubmitted || a.FinishTime == nil || !a.FinishTime.Equal(finish) {
		t.Fatalf("outcome not persisted: state=%s finish=%v", a.State, a.FinishTime)
	}
}

func TestPartialSaveWithoutAttemptIsDropped(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	if err := s.SaveAnswers(ctx, "ghost", map[string]string{"g1-0": "A"}); err != nil {
		t.Fatalf("save answers: %v", err)
	}
	if _, ok := s.Attempt(ctx, "ghost"); ok {
		t.Fatal("partial save must not create an attempt")
	}
}

func TestCorruptRecordReadsAsAbsent(t *testing.T) {
	s := NewStore()
	ctx := context.Background()
	s.SaveAttempt(ctx, "sid-1", testAttempt())
	s.Corrupt("sid-1")

	if _, ok := s.Attempt(ctx, "sid-1"); ok {
		t.Fatal("corrupt record must read as absent")
	}
}

func TestChatSessions(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	chats := s.ChatSessions(ctx, "sid-1")
	if len(chats) != 0 {
		t.Fatalf("expected empty chats, got %d", len(chats))
	}

	chats["g1-0"] = &model.ChatSession{Messages: []model.ChatMessage{
		{ID: 1, Sender: model.SenderUser, Text: "why is B right?"},
	}}
	if err := s.SaveChatSessions(ctx, "sid-1", chats); err != nil {
		t.Fatalf("save chats: %v", err)
	}

	got := s.ChatSessions(ctx, "sid-1")
	if len(got["g1-0"].Messages) != 1 || got["g1-0"].Messages[0].Text != "why is B right?" {
		t.Fatalf("chat transcript not round-tripped: %+v", got)
	}
}
