// Package store defines the typed per-attempt session store injected
// into the exam controllers. Each login session (one browser tab) owns
// at most one attempt; the store keys everything by that session id.
//
// Reads fail soft: a missing or malformed record reads as absent,
// never as an error that could wedge the attempt view.
package store

import (
	"context"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

// SessionStore is the typed contract over tab-scoped attempt state.
type SessionStore interface {
	// Attempt returns the stored attempt, or ok=false when absent or
	// unreadable.
	Attempt(ctx context.Context, sid string) (*model.Attempt, bool)

	// SaveAttempt stores the full attempt, replacing prior state.
	SaveAttempt(ctx context.Context, sid string, a *model.Attempt) error

	// SaveAnswers overwrites only the answer map.
	SaveAnswers(ctx context.Context, sid string, answers map[string]string) error

	// SaveClock overwrites only the timer snapshot.
	SaveClock(ctx context.Context, sid string, remaining int, started bool) error

	// SaveOutcome records the terminal state and finish time.
	SaveOutcome(ctx context.Context, sid string, state model.AttemptState, finish *time.Time) error

	// ChatSessions returns the stored chat transcripts by question id.
	// Absent or unreadable transcripts read as an empty map.
	ChatSessions(ctx context.Context, sid string) map[string]*model.ChatSession

	// SaveChatSessions stores the chat transcripts. Callers are
	// expected to route high-frequency writes through a ChatDebouncer.
	SaveChatSessions(ctx context.Context, sid string, chats map[string]*model.ChatSession) error

	// Clear removes every key belonging to the session's attempt.
	Clear(ctx context.Context, sid string) error
}
