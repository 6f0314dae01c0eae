package repository

import (
	"context"
	"encoding/json"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thptprep/engprep-backend/internal/model"
)

// ReviewRepository maintains the per-user pool of questions answered
// incorrectly, which review quizzes draw from.
type ReviewRepository struct {
	pool *pgxpool.Pool
}

// NewReviewRepository creates a new ReviewRepository.
func NewReviewRepository(pool *pgxpool.Pool) *ReviewRepository {
	return &ReviewRepository{pool: pool}
}

// AddWrongAnswers records a batch of missed questions from one exam.
// A question already in the user's pool is refreshed rather than
// duplicated.
func (r *ReviewRepository) AddWrongAnswers(ctx context.Context, userID string, examID int, questions []model.StoredQuestion) error {
	for _, q := range questions {
		raw, err := json.Marshal(q)
		if err != nil {
			return err
		}
		if _, err := r.pool.Exec(ctx,
			`INSERT INTO review_pool (id, user_id, question_id, source_exam_id, question)
			 VALUES ($1, $2, $3, $4, $5)
			 ON CONFLICT (user_id, question_id) DO UPDATE SET
			   source_exam_id = EXCLUDED.source_exam_id,
			   question = EXCLUDED.question,
			   created_at = now()`,
			uuid.New().String(), userID, q.QuestionID, examID, raw,
		); err != nil {
			return err
		}
	}
	return nil
}

// Sample returns up to n random pool entries for the user.
func (r *ReviewRepository) Sample(ctx context.Context, userID string, n int) ([]model.StoredQuestion, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT question FROM review_pool
		 WHERE user_id = $1
		 ORDER BY random()
		 LIMIT $2`, userID, n,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.StoredQuestion
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var q model.StoredQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// GetByIDs returns the user's pool entries for specific question ids.
func (r *ReviewRepository) GetByIDs(ctx context.Context, userID string, questionIDs []string) ([]model.StoredQuestion, error) {
	if len(questionIDs) == 0 {
		return nil, nil
	}
	rows, err := r.pool.Query(ctx,
		`SELECT question FROM review_pool
		 WHERE user_id = $1 AND question_id = ANY($2)`,
		userID, questionIDs,
	)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var questions []model.StoredQuestion
	for rows.Next() {
		var raw []byte
		if err := rows.Scan(&raw); err != nil {
			return nil, err
		}
		var q model.StoredQuestion
		if err := json.Unmarshal(raw, &q); err != nil {
			return nil, err
		}
		questions = append(questions, q)
	}
	return questions, rows.Err()
}

// Count reports the size of the user's pool.
func (r *ReviewRepository) Count(ctx context.Context, userID string) (int, error) {
	var n int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM review_pool WHERE user_id = $1`, userID,
	).Scan(&n)
	return n, err
}

// Remove deletes pool entries the user has since answered correctly.
func (r *ReviewRepository) Remove(ctx context.Context, userID string, questionIDs []string) error {
	if len(questionIDs) == 0 {
		return nil
	}
	_, err := r.pool.Exec(ctx,
		`DELETE FROM review_pool WHERE user_id = $1 AND question_id = ANY($2)`,
		userID, questionIDs,
	)
	return err
}
