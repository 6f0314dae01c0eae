package service

import (
	"testing"
	"time"

	"github.com/thptprep/engprep-backend/internal/model"
)

// twoGroupExam builds the smallest gradable exam: two short cloze
// groups with one subquestion each.
func twoGroupExam() *model.ExamContent {
	c := &model.ExamContent{
		QuizID: 123456,
		Groups: model.GroupedSections{
			FillShort: []model.QuestionGroup{
				{ID: "g1", Type: model.GroupFillShort, Context: "_", Subquestions: []model.Subquestion{
					{Content: "She ___ to school.", Options: []string{"go", "goes", "going", "gone"}, CorrectAnswer: "B"},
				}},
				{ID: "g2", Type: model.GroupFillShort, Context: "_", Subquestions: []model.Subquestion{
					{Content: "They ___ happy.", Options: []string{"is", "am", "are", "be"}, CorrectAnswer: "C"},
				}},
			},
		},
	}
	c.Structure = c.BuildStructure()
	return c
}

func TestScorePercent(t *testing.T) {
	tests := []struct {
		correct, total, want int
	}{
		{0, 0, 0}, // empty exam never divides by zero
		{1, 2, 50},
		{1, 3, 33},
		{2, 3, 67},
		{40, 40, 100},
		{0, 40, 0},
	}
	for _, tt := range tests {
		if got := ScorePercent(tt.correct, tt.total); got != tt.want {
			t.Errorf("ScorePercent(%d, %d) = %d, want %d", tt.correct, tt.total, got, tt.want)
		}
	}
}

func TestVerdictTrichotomy(t *testing.T) {
	if v := VerdictFor("B", "B"); v != VerdictCorrect {
		t.Errorf("matching choice = %s, want correct", v)
	}
	if v := VerdictFor("B", "A"); v != VerdictIncorrect {
		t.Errorf("wrong choice = %s, want incorrect", v)
	}
	if v := VerdictFor("B", ""); v != VerdictUnanswered {
		t.Errorf("empty choice = %s, want unanswered", v)
	}
}

func TestMarkOption(t *testing.T) {
	// Wrong pick: correct answer and the pick both get marked.
	if m := MarkOption("B", "B", "A"); m != MarkCorrect {
		t.Errorf("correct letter = %s, want correct", m)
	}
	if m := MarkOption("A", "B", "A"); m != MarkChosen {
		t.Errorf("picked letter = %s, want chosen", m)
	}
	if m := MarkOption("C", "B", "A"); m != MarkNeutral {
		t.Errorf("other letter = %s, want neutral", m)
	}
	// Right pick: only the correct mark shows.
	if m := MarkOption("B", "B", "B"); m != MarkCorrect {
		t.Errorf("picked correct letter = %s, want correct", m)
	}
}

func TestGradeHalfRight(t *testing.T) {
	content := twoGroupExam()
	start := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	finish := start.Add(40 * time.Minute)

	sub := Grade(content, map[string]string{"g1-0": "B", "g2-0": "A"}, "user-1", start, finish)

	if sub.TotalQuestions != 2 || sub.CorrectCount != 1 {
		t.Fatalf("graded %d/%d, want 1/2", sub.CorrectCount, sub.TotalQuestions)
	}
	if got := ScorePercent(sub.CorrectCount, sub.TotalQuestions); got != 50 {
		t.Fatalf("score = %d%%, want 50%%", got)
	}
	if sub.Questions[0].UserChoice != "B" || sub.Questions[1].UserChoice != "A" {
		t.Fatalf("user choices not carried: %+v", sub.Questions)
	}
}

func TestGradeUnansweredCountsAgainstScore(t *testing.T) {
	content := twoGroupExam()
	sub := Grade(content, nil, "user-1", time.Now(), time.Now())

	if sub.CorrectCount != 0 || sub.TotalQuestions != 2 {
		t.Fatalf("graded %d/%d, want 0/2", sub.CorrectCount, sub.TotalQuestions)
	}
	for _, q := range sub.Questions {
		if q.UserChoice != "" {
			t.Fatalf("unanswered question carries a choice: %+v", q)
		}
	}
}

func TestWrongAnswersIncludesUnanswered(t *testing.T) {
	content := twoGroupExam()
	sub := Grade(content, map[string]string{"g1-0": "B"}, "user-1", time.Now(), time.Now())

	wrong := WrongAnswers(sub)
	if len(wrong) != 1 {
		t.Fatalf("wrong answers = %d, want 1", len(wrong))
	}
	if wrong[0].QuestionID != "g2-0" {
		t.Fatalf("wrong question = %s, want g2-0", wrong[0].QuestionID)
	}
	if wrong[0].CorrectAnswer != "C" {
		t.Fatalf("answer key missing from stored question: %+v", wrong[0])
	}
}
