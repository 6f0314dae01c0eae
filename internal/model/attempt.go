package model

import (
	"time"
)

// AttemptState enumerates the attempt lifecycle.
// Submitted and Abandoned are terminal; Submitted leads to the
// read-only review, which is re-enterable via reconstruction.
type AttemptState string

const (
	AttemptNotStarted AttemptState = "NOT_STARTED"
	AttemptCountdown  AttemptState = "COUNTDOWN"
	AttemptInProgress AttemptState = "IN_PROGRESS"
	AttemptSubmitted  AttemptState = "SUBMITTED"
	AttemptAbandoned  AttemptState = "ABANDONED"
)

// Attempt is one timed run through a fixed exam, scoped to a single
// session (tab). Content is immutable once fetched; Answers keys are
// always a subset of the question ids derivable from Content.
type Attempt struct {
	ExamID        int               `json:"exam_id"`
	Content       *ExamContent      `json:"content"`
	Answers       map[string]string `json:"answers"`
	StartTime     time.Time         `json:"start_time"`
	FinishTime    *time.Time        `json:"finish_time,omitempty"`
	TimeRemaining int               `json:"time_remaining"`
	Started       bool              `json:"started"`
	State         AttemptState      `json:"state"`
}

// NewAttempt creates a fresh attempt for the given content.
// The exam clock has not started: the pre-exam countdown runs first.
func NewAttempt(content *ExamContent, now time.Time, durationSeconds int) *Attempt {
	return &Attempt{
		ExamID:        content.QuizID,
		Content:       content,
		Answers:       make(map[string]string),
		StartTime:     now,
		TimeRemaining: durationSeconds,
		Started:       false,
		State:         AttemptNotStarted,
	}
}

// Active reports whether the attempt can still accept answers.
func (a *Attempt) Active() bool {
	return a.State == AttemptCountdown || a.State == AttemptInProgress || a.State == AttemptNotStarted
}

// Terminal reports whether the attempt reached a final state.
func (a *Attempt) Terminal() bool {
	return a.State == AttemptSubmitted || a.State == AttemptAbandoned
}
