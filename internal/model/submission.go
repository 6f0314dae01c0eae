package model

import (
	"time"
)

// GradedQuestion is one scored row of a submitted attempt, stored in
// the order the questions were numbered.
type GradedQuestion struct {
	QuestionID    string    `json:"question_id"`
	GroupID       string    `json:"group_id"`
	SubIndex      int       `json:"subquestion_index"`
	Type          GroupType `json:"question_type"`
	Context       string    `json:"context,omitempty"`
	Content       string    `json:"content,omitempty"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	UserChoice    string    `json:"user_choice,omitempty"`
	Explanation   string    `json:"explanation,omitempty"`
}

// Submission is a fully graded attempt as persisted.
type Submission struct {
	ExamID         int              `json:"exam_id"`
	UserID         string           `json:"user_id"`
	StartTime      time.Time        `json:"exam_start_time"`
	FinishTime     time.Time        `json:"exam_finish_time"`
	CorrectCount   int              `json:"correct_count"`
	TotalQuestions int              `json:"total_questions"`
	Questions      []GradedQuestion `json:"questions"`
}

// ExamInfo carries the attempt timestamps inside a reconstruction
// payload.
type ExamInfo struct {
	ExamStartTime  time.Time `json:"exam_start_time"`
	ExamFinishTime time.Time `json:"exam_finish_time"`
}

// SubmissionDetail is the reconstruction payload: everything needed
// to rebuild a lost local session from the remote store.
type SubmissionDetail struct {
	QuestionIDs []string          `json:"question_ids"`
	ExamInfo    ExamInfo          `json:"exam_info"`
	UserAnswers map[string]string `json:"user_answers"`
	Questions   []StoredQuestion  `json:"questions"`
}

// StoredQuestion is one question as returned by the submission store,
// carrying its own declared type so reconstruction can bucket it.
type StoredQuestion struct {
	QuestionID    string    `json:"question_id"`
	GroupID       string    `json:"group_id"`
	SubIndex      int       `json:"subquestion_index"`
	Type          GroupType `json:"question_type"`
	Context       string    `json:"context,omitempty"`
	Content       string    `json:"content,omitempty"`
	Options       []string  `json:"options"`
	CorrectAnswer string    `json:"correct_answer"`
	Explanation   string    `json:"explanation,omitempty"`
}

// SubmissionSummary is one row of a user's attempt history.
type SubmissionSummary struct {
	ExamID         int       `json:"exam_id"`
	CorrectCount   int       `json:"correct_count"`
	TotalQuestions int       `json:"total_questions"`
	StartTime      time.Time `json:"exam_start_time"`
	FinishTime     time.Time `json:"exam_finish_time"`
}
