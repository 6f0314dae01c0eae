package service

import (
	"context"
	"errors"
	"math/rand"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/repository"
)

var (
	// ErrNoQuestions means the bank is empty. Informational: the UI
	// offers to generate questions instead of showing a failure.
	ErrNoQuestions = errors.New("question bank is empty")
	// ErrNotEnoughQuestions means the bank has material but not enough
	// to fill every slot of the fixed exam shape.
	ErrNotEnoughQuestions = errors.New("not enough questions to assemble an exam")
)

// Exam shape: two short cloze groups, one long cloze group, one reorder
// group, and two distinct reading passages where the first carries at
// least 10 subquestions and the second at least 8.
const (
	fillShortSlots      = 2
	fillLongSlots       = 1
	reorderSlots        = 1
	readingPrimaryMin   = 10
	readingSecondaryMin = 8
)

// ExamService assembles exams from the question bank.
type ExamService struct {
	questionRepo *repository.QuestionRepository
	log          zerolog.Logger
}

// NewExamService creates a new ExamService.
func NewExamService(questionRepo *repository.QuestionRepository, log zerolog.Logger) *ExamService {
	return &ExamService{
		questionRepo: questionRepo,
		log:          log.With().Str("component", "exam_service").Logger(),
	}
}

// BuildExam assembles a fresh exam with a random six-digit id.
func (s *ExamService) BuildExam(ctx context.Context) (*model.ExamContent, error) {
	counts, err := s.questionRepo.CountByType(ctx)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, n := range counts {
		total += n
	}
	if total == 0 {
		return nil, ErrNoQuestions
	}

	fillShort, err := s.questionRepo.SampleByType(ctx, model.GroupFillShort, 0, fillShortSlots)
	if err != nil {
		return nil, err
	}
	fillLong, err := s.questionRepo.SampleByType(ctx, model.GroupFillLong, 0, fillLongSlots)
	if err != nil {
		return nil, err
	}
	reorder, err := s.questionRepo.SampleByType(ctx, model.GroupReorder, 0, reorderSlots)
	if err != nil {
		return nil, err
	}
	reading, err := s.pickReading(ctx)
	if err != nil {
		return nil, err
	}
	if len(fillShort) < fillShortSlots || len(fillLong) < fillLongSlots || len(reorder) < reorderSlots {
		return nil, ErrNotEnoughQuestions
	}

	tagGroups(fillShort, model.GroupFillShort)
	tagGroups(fillLong, model.GroupFillLong)
	tagGroups(reorder, model.GroupReorder)
	tagGroups(reading, model.GroupReading)

	content := &model.ExamContent{
		QuizID: 100000 + rand.Intn(900000),
		Groups: model.GroupedSections{
			FillShort: fillShort,
			FillLong:  fillLong,
			Reading:   reading,
		},
		ReorderQuestions: reorder,
	}
	content.Structure = content.BuildStructure()

	s.log.Info().
		Int("quiz_id", content.QuizID).
		Int("total_questions", content.Structure.TotalQuestions).
		Msg("exam assembled")
	return content, nil
}

// pickReading selects two distinct passages: a primary with at least
// 10 subquestions and a secondary with at least 8.
func (s *ExamService) pickReading(ctx context.Context) ([]model.QuestionGroup, error) {
	candidates, err := s.questionRepo.ListByType(ctx, model.GroupReading, readingSecondaryMin)
	if err != nil {
		return nil, err
	}

	primaryIdx := -1
	for i, g := range candidates {
		if len(g.Subquestions) >= readingPrimaryMin {
			primaryIdx = i
			break
		}
	}
	if primaryIdx == -1 {
		return nil, ErrNotEnoughQuestions
	}
	for i, g := range candidates {
		if i == primaryIdx {
			continue
		}
		return []model.QuestionGroup{candidates[primaryIdx], g}, nil
	}
	return nil, ErrNotEnoughQuestions
}

func tagGroups(groups []model.QuestionGroup, t model.GroupType) {
	for i := range groups {
		groups[i].Type = t
	}
}
