package model

import (
	"fmt"
)

// GroupType tags a question group with its exam section.
type GroupType string

const (
	GroupFillShort GroupType = "fill_short"
	GroupFillLong  GroupType = "fill_long"
	GroupReading   GroupType = "reading"
	GroupReorder   GroupType = "reorder"
)

// SectionOrder is the canonical section order used for question
// numbering, grading and review rendering. Scoring itself is
// order-independent; only the displayed numbers depend on this.
var SectionOrder = []GroupType{GroupFillShort, GroupReorder, GroupFillLong, GroupReading}

// Subquestion is one scorable multiple-choice item.
// Options determine the valid answer alphabet: A..A+len-1.
// CorrectAnswer is ground truth and must never reach a client
// before the attempt is submitted.
type Subquestion struct {
	Content       string   `json:"content,omitempty"`
	Options       []string `json:"options"`
	CorrectAnswer string   `json:"correct_answer"`
	Explanation   string   `json:"explanation,omitempty"`
}

// Letters returns the valid option letters for this subquestion.
func (s *Subquestion) Letters() []string {
	letters := make([]string, len(s.Options))
	for i := range s.Options {
		letters[i] = string(rune('A' + i))
	}
	return letters
}

// ValidLetter reports whether the given answer letter addresses one
// of this subquestion's options.
func (s *Subquestion) ValidLetter(letter string) bool {
	if len(letter) != 1 {
		return false
	}
	idx := int(letter[0] - 'A')
	return idx >= 0 && idx < len(s.Options)
}

// QuestionGroup is a cluster of subquestions sharing an optional
// context passage. Context "_" is a placeholder meaning no context.
type QuestionGroup struct {
	ID           string        `json:"id"`
	Type         GroupType     `json:"type,omitempty"`
	Context      string        `json:"context,omitempty"`
	Subquestions []Subquestion `json:"subquestions"`
}

// ContextText returns the group context with the "_" placeholder
// normalized away.
func (g *QuestionGroup) ContextText() string {
	if g.Context == "_" {
		return ""
	}
	return g.Context
}

// QuestionID derives the stable identifier of the subquestion at idx.
func (g *QuestionGroup) QuestionID(idx int) string {
	return fmt.Sprintf("%s-%d", g.ID, idx)
}

// Structure summarizes the shape of an assembled exam.
type Structure struct {
	FillShortGroups int   `json:"fill_short_groups"`
	FillLongGroups  int   `json:"fill_long_groups"`
	ReadingGroups   []int `json:"reading_groups"`
	ReorderCount    int   `json:"reorder_count"`
	TotalQuestions  int   `json:"total_questions"`
}

// GroupedSections holds the context-bearing sections of an exam.
type GroupedSections struct {
	FillShort []QuestionGroup `json:"fill_short"`
	FillLong  []QuestionGroup `json:"fill_long"`
	Reading   []QuestionGroup `json:"reading"`
}

// ExamContent is an assembled exam: ordered, grouped question sets.
// Immutable once fetched for an attempt.
type ExamContent struct {
	QuizID           int             `json:"quiz_id"`
	Structure        Structure       `json:"structure"`
	Groups           GroupedSections `json:"groups"`
	ReorderQuestions []QuestionGroup `json:"reorder_questions"`
}

// FlatQuestion is one subquestion positioned in the canonical order.
type FlatQuestion struct {
	Num          int
	ID           string
	Type         GroupType
	GroupID      string
	Index        int
	Context      string
	FirstInGroup bool
	Sub          *Subquestion
}

// SectionGroups returns the groups of a section in canonical order.
func (c *ExamContent) SectionGroups(t GroupType) []QuestionGroup {
	switch t {
	case GroupFillShort:
		return c.Groups.FillShort
	case GroupFillLong:
		return c.Groups.FillLong
	case GroupReading:
		return c.Groups.Reading
	case GroupReorder:
		return c.ReorderQuestions
	}
	return nil
}

// FlatQuestions walks every section in canonical order and returns
// the flattened, numbered subquestions. This is the single generic
// traversal shared by grading, scoring and review rendering.
func (c *ExamContent) FlatQuestions() []FlatQuestion {
	var out []FlatQuestion
	num := 1
	for _, t := range SectionOrder {
		groups := c.SectionGroups(t)
		for gi := range groups {
			group := &groups[gi]
			for si := range group.Subquestions {
				out = append(out, FlatQuestion{
					Num:          num,
					ID:           group.QuestionID(si),
					Type:         t,
					GroupID:      group.ID,
					Index:        si,
					Context:      group.ContextText(),
					FirstInGroup: si == 0,
					Sub:          &group.Subquestions[si],
				})
				num++
			}
		}
	}
	return out
}

// TotalQuestions counts every subquestion across all sections.
func (c *ExamContent) TotalQuestions() int {
	n := 0
	for _, t := range SectionOrder {
		for _, g := range c.SectionGroups(t) {
			n += len(g.Subquestions)
		}
	}
	return n
}

// Question resolves a derived question id back to its subquestion.
// Returns nil when the id does not belong to this content — answer
// keys must always be a subset of the derivable ids.
func (c *ExamContent) Question(qid string) *Subquestion {
	for _, fq := range c.FlatQuestions() {
		if fq.ID == qid {
			return fq.Sub
		}
	}
	return nil
}

// BuildStructure recomputes the Structure block from the sections.
func (c *ExamContent) BuildStructure() Structure {
	reading := make([]int, 0, len(c.Groups.Reading))
	for _, g := range c.Groups.Reading {
		reading = append(reading, len(g.Subquestions))
	}
	return Structure{
		FillShortGroups: len(c.Groups.FillShort),
		FillLongGroups:  len(c.Groups.FillLong),
		ReadingGroups:   reading,
		ReorderCount:    len(c.ReorderQuestions),
		TotalQuestions:  c.TotalQuestions(),
	}
}
