package repository

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AttemptAnswerRepository is the durable side of autosave. The worker
// drains the answer queue into this table so an attempt can survive a
// lost session store.
type AttemptAnswerRepository struct {
	pool *pgxpool.Pool
}

// NewAttemptAnswerRepository creates a new AttemptAnswerRepository.
func NewAttemptAnswerRepository(pool *pgxpool.Pool) *AttemptAnswerRepository {
	return &AttemptAnswerRepository{pool: pool}
}

// Upsert replaces the stored answer snapshot for a session's attempt.
func (r *AttemptAnswerRepository) Upsert(ctx context.Context, sessionID string, examID int, answers map[string]string) error {
	raw, err := json.Marshal(answers)
	if err != nil {
		return err
	}
	_, err = r.pool.Exec(ctx,
		`INSERT INTO attempt_answers (session_id, exam_id, answers, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (session_id) DO UPDATE SET
		   exam_id = EXCLUDED.exam_id,
		   answers = EXCLUDED.answers,
		   updated_at = now()`,
		sessionID, examID, raw,
	)
	return err
}

// Get returns the snapshot for a session, or nil when none exists.
func (r *AttemptAnswerRepository) Get(ctx context.Context, sessionID string) (map[string]string, error) {
	var raw []byte
	err := r.pool.QueryRow(ctx,
		`SELECT answers FROM attempt_answers WHERE session_id = $1`, sessionID,
	).Scan(&raw)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	answers := make(map[string]string)
	if err := json.Unmarshal(raw, &answers); err != nil {
		return nil, err
	}
	return answers, nil
}

// Delete removes the snapshot once the attempt reaches a terminal state.
func (r *AttemptAnswerRepository) Delete(ctx context.Context, sessionID string) error {
	_, err := r.pool.Exec(ctx,
		`DELETE FROM attempt_answers WHERE session_id = $1`, sessionID,
	)
	return err
}
