package service

import (
	"context"
	"errors"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
)

// ErrEmptyReviewPool means the user has no missed questions to drill.
var ErrEmptyReviewPool = errors.New("review pool is empty")

// DefaultReviewQuizSize caps a drill at ten questions.
const DefaultReviewQuizSize = 10

// ReviewService builds short drills from the user's pool of missed
// questions and retires entries once they are answered correctly.
type ReviewService struct {
	reviewRepo *repository.ReviewRepository
	log        zerolog.Logger
}

// NewReviewService creates a new ReviewService.
func NewReviewService(reviewRepo *repository.ReviewRepository, log zerolog.Logger) *ReviewService {
	return &ReviewService{
		reviewRepo: reviewRepo,
		log:        log.With().Str("component", "review_service").Logger(),
	}
}

// PoolSize reports how many missed questions the user has banked.
func (s *ReviewService) PoolSize(ctx context.Context, userID string) (int, error) {
	return s.reviewRepo.Count(ctx, userID)
}

// BuildQuiz samples up to n questions from the user's pool.
func (s *ReviewService) BuildQuiz(ctx context.Context, userID string, n int) ([]model.StoredQuestion, error) {
	if n <= 0 || n > DefaultReviewQuizSize {
		n = DefaultReviewQuizSize
	}
	questions, err := s.reviewRepo.Sample(ctx, userID, n)
	if err != nil {
		return nil, err
	}
	if len(questions) == 0 {
		return nil, ErrEmptyReviewPool
	}
	return questions, nil
}

// ReviewResult is the graded outcome of one drill.
type ReviewResult struct {
	Correct int                `json:"correct"`
	Total   int                `json:"total"`
	Retired []string           `json:"retired_question_ids"`
	Detail  map[string]Verdict `json:"detail"`
}

// Resolve grades a drill against the pool's answer keys. Questions
// answered correctly are retired from the pool; the rest stay for the
// next round.
func (s *ReviewService) Resolve(ctx context.Context, userID string, answers map[string]string) (*ReviewResult, error) {
	ids := make([]string, 0, len(answers))
	for id := range answers {
		ids = append(ids, id)
	}
	questions, err := s.reviewRepo.GetByIDs(ctx, userID, ids)
	if err != nil {
		return nil, err
	}

	result := &ReviewResult{
		Total:  len(questions),
		Detail: make(map[string]Verdict, len(questions)),
	}
	for _, q := range questions {
		v := VerdictFor(q.CorrectAnswer, answers[q.QuestionID])
		result.Detail[q.QuestionID] = v
		if v == VerdictCorrect {
			result.Correct++
			result.Retired = append(result.Retired, q.QuestionID)
		}
	}

	if err := s.reviewRepo.Remove(ctx, userID, result.Retired); err != nil {
		return nil, err
	}
	if len(result.Retired) > 0 {
		s.log.Info().
			Str("user", userID).
			Int("retired", len(result.Retired)).
			Msg("review questions retired")
	}
	return result, nil
}
