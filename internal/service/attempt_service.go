package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"golang.org/x/sync/singleflight"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/countdown"
	"github.com/thptprep/engprep-backend/internal/guard"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/store"
)

var (
	ErrAttemptNotFound     = errors.New("no active attempt for this session")
	ErrAttemptMismatch     = errors.New("stored attempt belongs to a different exam")
	ErrAttemptFinished     = errors.New("attempt already reached a terminal state")
	ErrUnknownQuestion     = errors.New("question does not belong to this exam")
	ErrInvalidAnswerLetter = errors.New("answer letter does not address an option")
)

// ExamBuilder assembles exams. Satisfied by ExamService.
type ExamBuilder interface {
	BuildExam(ctx context.Context) (*model.ExamContent, error)
}

// SubmissionStore persists and serves graded submissions. Satisfied by
// repository.SubmissionRepository.
type SubmissionStore interface {
	Create(ctx context.Context, sub *model.Submission) error
	GetDetail(ctx context.Context, examID int, userID string) (*model.SubmissionDetail, error)
}

// AttemptService owns the exam attempt lifecycle: creation, the timed
// run, answer recording, submission and reconstruction of finished
// exams.
type AttemptService struct {
	examService    ExamBuilder
	sessions       store.SessionStore
	debouncer      *store.ChatDebouncer
	guards         *guard.Registry
	submissionRepo SubmissionStore
	rdb            *redis.Client
	cfg            *config.Config
	log            zerolog.Logger

	// reconstruct collapses concurrent rebuilds of the same submission
	// into one remote fetch.
	reconstruct singleflight.Group

	now func() time.Time
}

// NewAttemptService creates a new AttemptService.
func NewAttemptService(
	examService ExamBuilder,
	sessions store.SessionStore,
	debouncer *store.ChatDebouncer,
	guards *guard.Registry,
	submissionRepo SubmissionStore,
	rdb *redis.Client,
	cfg *config.Config,
	log zerolog.Logger,
) *AttemptService {
	return &AttemptService{
		examService:    examService,
		sessions:       sessions,
		debouncer:      debouncer,
		guards:         guards,
		submissionRepo: submissionRepo,
		rdb:            rdb,
		cfg:            cfg,
		log:            log.With().Str("component", "attempt_service").Logger(),
		now:            time.Now,
	}
}

// CreateExam returns the session's active attempt, assembling a new
// exam only when none is in flight. Refreshing the exam page therefore
// resumes rather than discards.
func (s *AttemptService) CreateExam(ctx context.Context, sid string) (*model.Attempt, error) {
	if a, ok := s.sessions.Attempt(ctx, sid); ok && a.Active() {
		s.guards.Arm(sid)
		return s.syncClock(ctx, sid, a), nil
	}

	// A terminal leftover — and the chat transcripts attached to it —
	// must not leak into the fresh attempt.
	if err := s.Clear(ctx, sid); err != nil {
		return nil, err
	}

	content, err := s.examService.BuildExam(ctx)
	if err != nil {
		return nil, err
	}
	attempt := model.NewAttempt(content, s.now(), int(s.cfg.ExamDuration/time.Second))
	attempt.State = model.AttemptCountdown
	if err := s.sessions.SaveAttempt(ctx, sid, attempt); err != nil {
		return nil, err
	}
	s.guards.Arm(sid)
	s.log.Info().Int("exam_id", attempt.ExamID).Msg("attempt created")
	return attempt, nil
}

// Start flips the attempt from the pre-exam countdown into the timed
// run. The exam clock anchors to this moment.
func (s *AttemptService) Start(ctx context.Context, sid string) (*model.Attempt, error) {
	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.Terminal() {
		return nil, ErrAttemptFinished
	}
	if a.Started {
		return s.syncClock(ctx, sid, a), nil
	}

	a.Started = true
	a.State = model.AttemptInProgress
	a.StartTime = s.now()
	if err := s.sessions.SaveAttempt(ctx, sid, a); err != nil {
		return nil, err
	}
	return a, nil
}

// Resume returns the attempt for an exam id, recomputing the remaining
// time from the wall clock. A refresh mid-exam lands here.
func (s *AttemptService) Resume(ctx context.Context, sid string, examID int) (*model.Attempt, error) {
	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.ExamID != examID {
		return nil, ErrAttemptMismatch
	}
	if a.Terminal() {
		return nil, ErrAttemptFinished
	}
	s.guards.Arm(sid)
	return s.syncClock(ctx, sid, a), nil
}

// RecordAnswer records a choice with toggle semantics: picking the
// letter already stored unselects it. The updated answer map is also
// queued for durable persistence.
func (s *AttemptService) RecordAnswer(ctx context.Context, sid, questionID, letter string) (map[string]string, error) {
	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.Terminal() {
		return nil, ErrAttemptFinished
	}
	sub := a.Content.Question(questionID)
	if sub == nil {
		return nil, ErrUnknownQuestion
	}
	if !sub.ValidLetter(letter) {
		return nil, ErrInvalidAnswerLetter
	}

	if a.Answers[questionID] == letter {
		delete(a.Answers, questionID)
	} else {
		a.Answers[questionID] = letter
	}
	if err := s.sessions.SaveAnswers(ctx, sid, a.Answers); err != nil {
		return nil, err
	}
	s.enqueueAnswers(ctx, sid, a)
	return a.Answers, nil
}

// Submit grades the attempt, persists the submission and tears down
// the session state. Wrong answers are queued for the review pool.
func (s *AttemptService) Submit(ctx context.Context, sid, userID string) (*model.Submission, error) {
	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return nil, ErrAttemptNotFound
	}
	if a.Terminal() {
		return nil, ErrAttemptFinished
	}

	finish := s.now()
	sub := Grade(a.Content, a.Answers, userID, a.StartTime, finish)
	if err := s.submissionRepo.Create(ctx, sub); err != nil {
		return nil, err
	}
	s.enqueueWrongAnswers(ctx, sub)

	s.sessions.SaveOutcome(ctx, sid, model.AttemptSubmitted, &finish)
	s.guards.Disarm(sid)
	s.log.Info().
		Int("exam_id", sub.ExamID).
		Int("correct", sub.CorrectCount).
		Int("total", sub.TotalQuestions).
		Msg("attempt submitted")
	return sub, nil
}

// Abandon discards the attempt without grading. This is the timeout
// path and the confirmed-exit path; answers are intentionally dropped.
func (s *AttemptService) Abandon(ctx context.Context, sid string) error {
	a, ok := s.sessions.Attempt(ctx, sid)
	if !ok {
		return ErrAttemptNotFound
	}
	if a.Terminal() {
		// Abandoning twice (timeout racing a manual exit) is a no-op.
		return nil
	}
	finish := s.now()
	s.sessions.SaveOutcome(ctx, sid, model.AttemptAbandoned, &finish)
	s.guards.Disarm(sid)
	s.log.Info().Int("exam_id", a.ExamID).Msg("attempt abandoned")
	return nil
}

// Clear wipes every trace of the session's attempt. Called after the
// user leaves the result page.
func (s *AttemptService) Clear(ctx context.Context, sid string) error {
	s.guards.Disarm(sid)
	if s.debouncer != nil {
		// A debounced chat write firing after the clear would recreate
		// state for the discarded session.
		s.debouncer.Cancel(sid)
	}
	return s.sessions.Clear(ctx, sid)
}

// ReconstructedExam is a finished exam rebuilt from the remote
// submission store after the local session was lost.
type ReconstructedExam struct {
	Content     *model.ExamContent `json:"content"`
	QuestionIDs []string           `json:"question_ids"`
	ExamInfo    model.ExamInfo     `json:"exam_info"`
	UserAnswers map[string]string  `json:"user_answers"`
}

// Reconstruct rebuilds a submitted exam from the submission store and
// writes it back into the caller's session, so later reads (the chat
// sidecar, a review refresh) behave as if the session was never lost.
// Concurrent calls for the same exam share one fetch.
func (s *AttemptService) Reconstruct(ctx context.Context, sid, userID string, examID int) (*ReconstructedExam, error) {
	key := fmt.Sprintf("%s:%d", userID, examID)
	v, err, _ := s.reconstruct.Do(key, func() (interface{}, error) {
		detail, err := s.submissionRepo.GetDetail(ctx, examID, userID)
		if err != nil {
			return nil, err
		}
		return rebuildExam(examID, detail), nil
	})
	if err != nil {
		return nil, err
	}
	rebuilt := v.(*ReconstructedExam)
	s.repopulate(ctx, sid, rebuilt)
	return rebuilt, nil
}

// repopulate restores the session's attempt from a rebuilt exam. An
// attempt still in flight is never clobbered; neither is a session
// that already holds this exam.
func (s *AttemptService) repopulate(ctx context.Context, sid string, r *ReconstructedExam) {
	if a, ok := s.sessions.Attempt(ctx, sid); ok && (a.Active() || a.ExamID == r.Content.QuizID) {
		return
	}

	// The rebuilt exam is shared across callers via singleflight, so
	// the session gets its own copy of the answer map.
	answers := make(map[string]string, len(r.UserAnswers))
	for qid, letter := range r.UserAnswers {
		answers[qid] = letter
	}
	finish := r.ExamInfo.ExamFinishTime
	attempt := &model.Attempt{
		ExamID:     r.Content.QuizID,
		Content:    r.Content,
		Answers:    answers,
		StartTime:  r.ExamInfo.ExamStartTime,
		FinishTime: &finish,
		Started:    true,
		State:      model.AttemptSubmitted,
	}
	if err := s.sessions.SaveAttempt(ctx, sid, attempt); err != nil {
		s.log.Warn().Err(err).Int("exam_id", attempt.ExamID).Msg("session repopulation failed")
	}
}

// rebuildExam reassembles grouped exam content from stored questions.
// Questions bucket by their own declared type; within a bucket, groups
// dedupe by group id, so a shared passage appears once.
func rebuildExam(examID int, detail *model.SubmissionDetail) *ReconstructedExam {
	content := &model.ExamContent{QuizID: examID}

	type bucket struct {
		order  []string
		groups map[string]*model.QuestionGroup
	}
	buckets := make(map[model.GroupType]*bucket)
	for _, t := range model.SectionOrder {
		buckets[t] = &bucket{groups: make(map[string]*model.QuestionGroup)}
	}

	for _, q := range detail.Questions {
		b, ok := buckets[q.Type]
		if !ok {
			continue
		}
		g, ok := b.groups[q.GroupID]
		if !ok {
			g = &model.QuestionGroup{ID: q.GroupID, Type: q.Type, Context: q.Context}
			b.groups[q.GroupID] = g
			b.order = append(b.order, q.GroupID)
		}
		g.Subquestions = append(g.Subquestions, model.Subquestion{
			Content:       q.Content,
			Options:       q.Options,
			CorrectAnswer: q.CorrectAnswer,
			Explanation:   q.Explanation,
		})
	}

	assemble := func(t model.GroupType) []model.QuestionGroup {
		b := buckets[t]
		out := make([]model.QuestionGroup, 0, len(b.order))
		for _, id := range b.order {
			out = append(out, *b.groups[id])
		}
		return out
	}
	content.Groups.FillShort = assemble(model.GroupFillShort)
	content.Groups.FillLong = assemble(model.GroupFillLong)
	content.Groups.Reading = assemble(model.GroupReading)
	content.ReorderQuestions = assemble(model.GroupReorder)
	content.Structure = content.BuildStructure()

	return &ReconstructedExam{
		Content:     content,
		QuestionIDs: detail.QuestionIDs,
		ExamInfo:    detail.ExamInfo,
		UserAnswers: detail.UserAnswers,
	}
}

// syncClock recomputes the wall-clock remaining time and persists it.
// An attempt found already expired is abandoned on the spot.
func (s *AttemptService) syncClock(ctx context.Context, sid string, a *model.Attempt) *model.Attempt {
	if !a.Started {
		return a
	}
	clock := countdown.NewClock(a.StartTime, int(s.cfg.ExamDuration/time.Second))
	a.TimeRemaining = clock.Remaining(s.now())
	if a.TimeRemaining == 0 {
		s.Abandon(ctx, sid)
		a.State = model.AttemptAbandoned
		return a
	}
	s.sessions.SaveClock(ctx, sid, a.TimeRemaining, a.Started)
	return a
}

// answerSnapshot is the autosave queue payload.
type answerSnapshot struct {
	SessionID string            `json:"session_id"`
	ExamID    int               `json:"exam_id"`
	Answers   map[string]string `json:"answers"`
}

func (s *AttemptService) enqueueAnswers(ctx context.Context, sid string, a *model.Attempt) {
	if s.rdb == nil {
		return
	}
	raw, err := json.Marshal(&answerSnapshot{SessionID: sid, ExamID: a.ExamID, Answers: a.Answers})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistAnswersQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("autosave enqueue failed")
	}
}

// wrongAnswerBatch is the review pool queue payload.
type wrongAnswerBatch struct {
	UserID    string                 `json:"user_id"`
	ExamID    int                    `json:"exam_id"`
	Questions []model.StoredQuestion `json:"questions"`
}

func (s *AttemptService) enqueueWrongAnswers(ctx context.Context, sub *model.Submission) {
	if s.rdb == nil {
		return
	}
	wrong := WrongAnswers(sub)
	if len(wrong) == 0 {
		return
	}
	raw, err := json.Marshal(&wrongAnswerBatch{UserID: sub.UserID, ExamID: sub.ExamID, Questions: wrong})
	if err != nil {
		return
	}
	if err := s.rdb.RPush(ctx, config.WorkerKey.PersistWrongAnswersQueue, raw).Err(); err != nil {
		s.log.Warn().Err(err).Msg("review pool enqueue failed")
	}
}
