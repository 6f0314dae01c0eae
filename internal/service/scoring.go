package service

import (
	"math"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

// Verdict classifies one graded question for review rendering.
type Verdict string

const (
	VerdictCorrect    Verdict = "correct"
	VerdictIncorrect  Verdict = "incorrect"
	VerdictUnanswered Verdict = "unanswered"
)

// VerdictFor grades a single choice against the answer key. An empty
// choice is unanswered, never incorrect.
func VerdictFor(correctAnswer, choice string) Verdict {
	switch {
	case choice == "":
		return VerdictUnanswered
	case choice == correctAnswer:
		return VerdictCorrect
	default:
		return VerdictIncorrect
	}
}

// ScorePercent returns the rounded percentage score. An exam with no
// questions scores zero rather than dividing by zero.
func ScorePercent(correct, total int) int {
	if total == 0 {
		return 0
	}
	return int(math.Round(100 * float64(correct) / float64(total)))
}

// OptionMark tells the review page how to paint one option row.
type OptionMark string

const (
	MarkCorrect OptionMark = "correct"  // the right answer, always highlighted
	MarkChosen  OptionMark = "chosen"   // the user's wrong pick
	MarkNeutral OptionMark = "neutral"
)

// MarkOption classifies an option letter for a graded question. The
// correct option is marked even when the user picked it; a wrong pick
// is marked only on the picked letter.
func MarkOption(letter, correctAnswer, choice string) OptionMark {
	if letter == correctAnswer {
		return MarkCorrect
	}
	if letter == choice {
		return MarkChosen
	}
	return MarkNeutral
}

// Grade walks the exam in canonical order and scores every subquestion
// against the answer map. Unanswered questions count against the score
// but carry no user choice.
func Grade(content *model.ExamContent, answers map[string]string, userID string, start, finish time.Time) *model.Submission {
	flat := content.FlatQuestions()
	sub := &model.Submission{
		ExamID:         content.QuizID,
		UserID:         userID,
		StartTime:      start,
		FinishTime:     finish,
		TotalQuestions: len(flat),
		Questions:      make([]model.GradedQuestion, 0, len(flat)),
	}

	for _, fq := range flat {
		choice := answers[fq.ID]
		if VerdictFor(fq.Sub.CorrectAnswer, choice) == VerdictCorrect {
			sub.CorrectCount++
		}
		sub.Questions = append(sub.Questions, model.GradedQuestion{
			QuestionID:    fq.ID,
			GroupID:       fq.GroupID,
			SubIndex:      fq.Index,
			Type:          fq.Type,
			Context:       fq.Context,
			Content:       fq.Sub.Content,
			Options:       fq.Sub.Options,
			CorrectAnswer: fq.Sub.CorrectAnswer,
			UserChoice:    choice,
			Explanation:   fq.Sub.Explanation,
		})
	}
	return sub
}

// WrongAnswers extracts the stored form of every question the user
// missed, feeding the review pool. Unanswered questions count as
// missed.
func WrongAnswers(sub *model.Submission) []model.StoredQuestion {
	var wrong []model.StoredQuestion
	for _, q := range sub.Questions {
		if VerdictFor(q.CorrectAnswer, q.UserChoice) == VerdictCorrect {
			continue
		}
		wrong = append(wrong, model.StoredQuestion{
			QuestionID:    q.QuestionID,
			GroupID:       q.GroupID,
			SubIndex:      q.SubIndex,
			Type:          q.Type,
			Context:       q.Context,
			Content:       q.Content,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}
	return wrong
}
