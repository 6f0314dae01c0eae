package service

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/client"
	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/store"
	"github.com/thptprep/engprep-backend/internal/store/memory"
)

func newChatTestService(t *testing.T, handler http.HandlerFunc) (*ChatService, *memory.Store) {
	return newChatTestServiceWindow(t, handler, time.Millisecond)
}

// newChatTestServiceWindow controls the debounce interval; a long one
// keeps writes pending so tests can look inside the flush window.
func newChatTestServiceWindow(t *testing.T, handler http.HandlerFunc, interval time.Duration) (*ChatService, *memory.Store) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	cfg := &config.Config{ChatAPIURL: srv.URL, UpstreamTimeout: 5 * time.Second}
	sessions := memory.NewStore()
	debouncer := store.NewChatDebouncer(sessions, interval)
	t.Cleanup(debouncer.Close)

	svc := NewChatService(sessions, debouncer, client.NewChatClient(cfg), zerolog.Nop())

	// Seed an attempt so questions resolve.
	a := model.NewAttempt(twoGroupExam(), time.Now(), 3000)
	if err := sessions.SaveAttempt(context.Background(), "sid-1", a); err != nil {
		t.Fatalf("seed attempt: %v", err)
	}
	return svc, sessions
}

func storedChats(t *testing.T, svc *ChatService, sessions *memory.Store, sid string) map[string]*model.ChatSession {
	t.Helper()
	svc.Flush(sid)
	return sessions.ChatSessions(context.Background(), sid)
}

func TestOpenShowsGreetingWithoutPersisting(t *testing.T) {
	svc, sessions := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {})

	session := svc.Open(context.Background(), "sid-1", "g1-0")
	if len(session.Messages) != 1 || session.Messages[0].Sender != model.SenderAI {
		t.Fatalf("open = %+v, want single greeting", session.Messages)
	}

	if chats := storedChats(t, svc, sessions, "sid-1"); len(chats) != 0 {
		t.Fatal("greeting-only session must not be persisted")
	}
}

func TestSendPersistsTranscriptWithoutGreeting(t *testing.T) {
	svc, sessions := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		var req client.ChatRequest
		json.NewDecoder(r.Body).Decode(&req)
		if req.Question.CorrectAnswer != "B" {
			t.Errorf("upstream question key = %q, want B", req.Question.CorrectAnswer)
		}
		json.NewEncoder(w).Encode(client.ChatReply{Response: "goes agrees with she", Model: "tutor-1"})
	})

	session, err := svc.Send(context.Background(), "sid-1", "g1-0", "why B?")
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	last := session.Messages[len(session.Messages)-1]
	if last.Sender != model.SenderAI || last.Text != "goes agrees with she" || last.Model != "tutor-1" {
		t.Fatalf("reply = %+v", last)
	}

	chats := storedChats(t, svc, sessions, "sid-1")
	stored, ok := chats["g1-0"]
	if !ok {
		t.Fatal("transcript with user content must persist")
	}
	if len(stored.Messages) != 2 {
		t.Fatalf("stored messages = %d, want 2 (greeting stripped)", len(stored.Messages))
	}
	if stored.Messages[0].Sender != model.SenderUser {
		t.Fatal("stored transcript must start with the user's message")
	}
}

func TestSendFailureLeavesInlineErrorAndKeepsMessage(t *testing.T) {
	calls := 0
	svc, sessions := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		http.Error(w, "boom", http.StatusBadGateway)
	})

	session, err := svc.Send(context.Background(), "sid-1", "g1-0", "help me")
	if err == nil {
		t.Fatal("expected error from failed upstream")
	}
	if calls != 1 {
		t.Fatalf("upstream calls = %d, want 1 (no automatic retry)", calls)
	}

	last := session.Messages[len(session.Messages)-1]
	if last.Sender != model.SenderAI || last.Text != errorReplyText {
		t.Fatalf("last message = %+v, want inline error bubble", last)
	}

	chats := storedChats(t, svc, sessions, "sid-1")
	stored := chats["g1-0"]
	if stored == nil || !stored.HasUserContent() {
		t.Fatal("the user's message must survive an upstream failure")
	}
}

func TestTranscriptsSurviveWithinFlushWindow(t *testing.T) {
	svc, sessions := newChatTestServiceWindow(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.ChatReply{Response: "sure"})
	}, time.Hour)
	ctx := context.Background()

	if _, err := svc.Send(ctx, "sid-1", "g1-0", "first question"); err != nil {
		t.Fatalf("send g1-0: %v", err)
	}
	// Still inside the flush window: a send on another question must
	// not shadow the first transcript, and reopening the first must
	// show it.
	if _, err := svc.Send(ctx, "sid-1", "g2-0", "second question"); err != nil {
		t.Fatalf("send g2-0: %v", err)
	}

	reopened := svc.Open(ctx, "sid-1", "g1-0")
	if !reopened.HasUserContent() {
		t.Fatal("reopening within the flush window must show the transcript, not the greeting")
	}

	svc.Flush("sid-1")
	chats := sessions.ChatSessions(ctx, "sid-1")
	if chats["g1-0"] == nil || !chats["g1-0"].HasUserContent() {
		t.Fatalf("chats = %v, want g1-0 transcript to survive the g2-0 write", chats)
	}
	if chats["g2-0"] == nil || !chats["g2-0"].HasUserContent() {
		t.Fatalf("chats = %v, want g2-0 transcript persisted too", chats)
	}
}

func TestSendOffTopicSurfacesTypedError(t *testing.T) {
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(client.ChatReply{Response: "Let's stick to this question.", OffTopic: true})
	})

	_, err := svc.Send(context.Background(), "sid-1", "g1-0", "what's the weather?")
	if err != ErrChatOffTopic {
		t.Fatalf("err = %v, want ErrChatOffTopic", err)
	}
}

func TestSendRejectsBlankAndUnknownQuestion(t *testing.T) {
	svc, _ := newChatTestService(t, func(w http.ResponseWriter, r *http.Request) {})

	if _, err := svc.Send(context.Background(), "sid-1", "g1-0", "   "); err != ErrChatEmptyReply {
		t.Fatalf("blank message err = %v, want ErrChatEmptyReply", err)
	}
	if _, err := svc.Send(context.Background(), "sid-1", "g9-9", "hello"); err != ErrUnknownQuestion {
		t.Fatalf("unknown question err = %v, want ErrUnknownQuestion", err)
	}
}
