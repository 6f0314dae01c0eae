package repository

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/thptprep/engprep-backend/internal/model"
)

// ErrSubmissionNotFound is returned when no submission exists for the
// requested exam id and user.
var ErrSubmissionNotFound = errors.New("submission not found")

// SubmissionRepository persists graded submissions and serves the
// compact detail payload used to reconstruct a finished exam.
type SubmissionRepository struct {
	pool *pgxpool.Pool
}

// NewSubmissionRepository creates a new SubmissionRepository.
func NewSubmissionRepository(pool *pgxpool.Pool) *SubmissionRepository {
	return &SubmissionRepository{pool: pool}
}

// Create stores a graded submission. The graded questions are kept as
// JSONB so review pages can be rebuilt without the question bank.
func (r *SubmissionRepository) Create(ctx context.Context, sub *model.Submission) error {
	questions, err := json.Marshal(sub.Questions)
	if err != nil {
		return err
	}
	questionIDs := make([]string, 0, len(sub.Questions))
	userAnswers := make(map[string]string, len(sub.Questions))
	for _, q := range sub.Questions {
		questionIDs = append(questionIDs, q.QuestionID)
		if q.UserChoice != "" {
			userAnswers[q.QuestionID] = q.UserChoice
		}
	}
	ids, err := json.Marshal(questionIDs)
	if err != nil {
		return err
	}
	answers, err := json.Marshal(userAnswers)
	if err != nil {
		return err
	}

	_, err = r.pool.Exec(ctx,
		`INSERT INTO submissions
		   (exam_id, user_id, start_time, finish_time, correct_count, total_questions, question_ids, user_answers, questions)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		 ON CONFLICT (exam_id, user_id) DO UPDATE SET
		   start_time = EXCLUDED.start_time,
		   finish_time = EXCLUDED.finish_time,
		   correct_count = EXCLUDED.correct_count,
		   total_questions = EXCLUDED.total_questions,
		   question_ids = EXCLUDED.question_ids,
		   user_answers = EXCLUDED.user_answers,
		   questions = EXCLUDED.questions`,
		sub.ExamID, sub.UserID, sub.StartTime, sub.FinishTime,
		sub.CorrectCount, sub.TotalQuestions, ids, answers, questions,
	)
	return err
}

// GetDetail returns the reconstruction payload for a finished exam.
func (r *SubmissionRepository) GetDetail(ctx context.Context, examID int, userID string) (*model.SubmissionDetail, error) {
	var (
		ids     []byte
		answers []byte
		qs      []byte
		start   time.Time
		finish  time.Time
	)
	err := r.pool.QueryRow(ctx,
		`SELECT question_ids, user_answers, questions, start_time, finish_time
		 FROM submissions WHERE exam_id = $1 AND user_id = $2`,
		examID, userID,
	).Scan(&ids, &answers, &qs, &start, &finish)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrSubmissionNotFound
		}
		return nil, err
	}

	detail := &model.SubmissionDetail{
		ExamInfo: model.ExamInfo{ExamStartTime: start, ExamFinishTime: finish},
	}
	if err := json.Unmarshal(ids, &detail.QuestionIDs); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(answers, &detail.UserAnswers); err != nil {
		return nil, err
	}
	if err := json.Unmarshal(qs, &detail.Questions); err != nil {
		return nil, err
	}
	if detail.UserAnswers == nil {
		detail.UserAnswers = make(map[string]string)
	}
	return detail, nil
}

// ListByUser returns the user's submission history, newest first.
func (r *SubmissionRepository) ListByUser(ctx context.Context, userID string, limit, offset int) ([]model.SubmissionSummary, int, error) {
	var total int
	if err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM submissions WHERE user_id = $1`, userID,
	).Scan(&total); err != nil {
		return nil, 0, err
	}

	rows, err := r.pool.Query(ctx,
		`SELECT exam_id, start_time, finish_time, correct_count, total_questions
		 FROM submissions WHERE user_id = $1
		 ORDER BY finish_time DESC
		 LIMIT $2 OFFSET $3`, userID, limit, offset,
	)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var summaries []model.SubmissionSummary
	for rows.Next() {
		var s model.SubmissionSummary
		if err := rows.Scan(&s.ExamID, &s.StartTime, &s.FinishTime, &s.CorrectCount, &s.TotalQuestions); err != nil {
			return nil, 0, err
		}
		summaries = append(summaries, s)
	}
	return summaries, total, rows.Err()
}
