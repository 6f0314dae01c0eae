package service

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/thptprep/engprep-backend/internal/config"
	"github.com/thptprep/engprep-backend/internal/guard"
	"github.com/thptprep/engprep-backend/internal/model"
	"github.com/thptprep/engprep-backend/internal/store"
	"github.com/thptprep/engprep-backend/internal/store/memory"
)

type fakeBuilder struct {
	builds int
}

func (f *fakeBuilder) BuildExam(context.Context) (*model.ExamContent, error) {
	f.builds++
	return twoGroupExam(), nil
}

type fakeSubmissionStore struct {
	mu      sync.Mutex
	created []*model.Submission

	detail  *model.SubmissionDetail
	fetches int32
	gate    chan struct{}
}

func (f *fakeSubmissionStore) Create(_ context.Context, sub *model.Submission) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.created = append(f.created, sub)
	return nil
}

func (f *fakeSubmissionStore) GetDetail(context.Context, int, string) (*model.SubmissionDetail, error) {
	atomic.AddInt32(&f.fetches, 1)
	if f.gate != nil {
		<-f.gate
	}
	return f.detail, nil
}

func newTestAttemptService(builder ExamBuilder, subs SubmissionStore) *AttemptService {
	cfg := &config.Config{ExamDuration: 3000 * time.Second}
	sessions := memory.NewStore()
	debouncer := store.NewChatDebouncer(sessions, time.Millisecond)
	return NewAttemptService(builder, sessions, debouncer, guard.NewRegistry(), subs, nil, cfg, zerolog.Nop())
}

func TestCreateExamResumesActiveAttempt(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestAttemptService(builder, &fakeSubmissionStore{})
	ctx := context.Background()

	first, err := s.CreateExam(ctx, "sid-1")
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if first.State != model.AttemptCountdown {
		t.Fatalf("state = %s, want COUNTDOWN", first.State)
	}
	if !s.guards.Armed("sid-1") {
		t.Fatal("guard must arm on create")
	}

	second, err := s.CreateExam(ctx, "sid-1")
	if err != nil {
		t.Fatalf("create again: %v", err)
	}
	if second.ExamID != first.ExamID {
		t.Fatal("refresh must resume the active attempt, not assemble a new exam")
	}
	if builder.builds != 1 {
		t.Fatalf("builds = %d, want 1", builder.builds)
	}
}

func TestStartAnchorsClockOnce(t *testing.T) {
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{})
	ctx := context.Background()
	s.CreateExam(ctx, "sid-1")

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }

	a, err := s.Start(ctx, "sid-1")
	if err != nil {
		t.Fatalf("start: %v", err)
	}
	if a.State != model.AttemptInProgress || !a.Started || !a.StartTime.Equal(t0) {
		t.Fatalf("start did not anchor: %+v", a)
	}

	// A second start (double click, refresh race) keeps the anchor.
	s.now = func() time.Time { return t0.Add(30 * time.Second) }
	a, err = s.Start(ctx, "sid-1")
	if err != nil {
		t.Fatalf("restart: %v", err)
	}
	if !a.StartTime.Equal(t0) {
		t.Fatal("second start must not move the clock anchor")
	}
	if a.TimeRemaining != 2970 {
		t.Fatalf("remaining = %d, want 2970", a.TimeRemaining)
	}
}

func TestResumeRecomputesRemainingFromWallClock(t *testing.T) {
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{})
	ctx := context.Background()
	a, _ := s.CreateExam(ctx, "sid-1")

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	s.Start(ctx, "sid-1")

	s.now = func() time.Time { return t0.Add(100 * time.Second) }
	resumed, err := s.Resume(ctx, "sid-1", a.ExamID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.TimeRemaining != 2900 {
		t.Fatalf("remaining = %d, want 2900", resumed.TimeRemaining)
	}

	if _, err := s.Resume(ctx, "sid-1", a.ExamID+1); err != ErrAttemptMismatch {
		t.Fatalf("mismatched exam id error = %v, want ErrAttemptMismatch", err)
	}
	if _, err := s.Resume(ctx, "sid-2", a.ExamID); err != ErrAttemptNotFound {
		t.Fatalf("unknown session error = %v, want ErrAttemptNotFound", err)
	}
}

func TestResumePastDeadlineAbandons(t *testing.T) {
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{})
	ctx := context.Background()
	a, _ := s.CreateExam(ctx, "sid-1")

	t0 := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	s.now = func() time.Time { return t0 }
	s.Start(ctx, "sid-1")

	s.now = func() time.Time { return t0.Add(4000 * time.Second) }
	resumed, err := s.Resume(ctx, "sid-1", a.ExamID)
	if err != nil {
		t.Fatalf("resume: %v", err)
	}
	if resumed.State != model.AttemptAbandoned || resumed.TimeRemaining != 0 {
		t.Fatalf("expired resume = %+v, want abandoned with 0 remaining", resumed)
	}
	if s.guards.Armed("sid-1") {
		t.Fatal("guard must disarm when the attempt expires")
	}
}

func TestRecordAnswerToggle(t *testing.T) {
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{})
	ctx := context.Background()
	s.CreateExam(ctx, "sid-1")
	s.Start(ctx, "sid-1")

	answers, err := s.RecordAnswer(ctx, "sid-1", "g1-0", "B")
	if err != nil {
		t.Fatalf("record: %v", err)
	}
	if answers["g1-0"] != "B" {
		t.Fatalf("answers = %v, want g1-0=B", answers)
	}

	// Picking a different letter replaces.
	answers, _ = s.RecordAnswer(ctx, "sid-1", "g1-0", "A")
	if answers["g1-0"] != "A" {
		t.Fatalf("answers = %v, want g1-0=A", answers)
	}

	// Picking the same letter unselects.
	answers, _ = s.RecordAnswer(ctx, "sid-1", "g1-0", "A")
	if _, ok := answers["g1-0"]; ok {
		t.Fatalf("answers = %v, want g1-0 unselected", answers)
	}

	if _, err := s.RecordAnswer(ctx, "sid-1", "g9-0", "A"); err != ErrUnknownQuestion {
		t.Fatalf("unknown question error = %v, want ErrUnknownQuestion", err)
	}
	if _, err := s.RecordAnswer(ctx, "sid-1", "g1-0", "Z"); err != ErrInvalidAnswerLetter {
		t.Fatalf("bad letter error = %v, want ErrInvalidAnswerLetter", err)
	}
}

func TestSubmitGradesAndTearsDown(t *testing.T) {
	subs := &fakeSubmissionStore{}
	s := newTestAttemptService(&fakeBuilder{}, subs)
	ctx := context.Background()
	s.CreateExam(ctx, "sid-1")
	s.Start(ctx, "sid-1")
	s.RecordAnswer(ctx, "sid-1", "g1-0", "B")

	sub, err := s.Submit(ctx, "sid-1", "user-1")
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if sub.CorrectCount != 1 || sub.TotalQuestions != 2 {
		t.Fatalf("graded %d/%d, want 1/2", sub.CorrectCount, sub.TotalQuestions)
	}
	if len(subs.created) != 1 {
		t.Fatalf("persisted submissions = %d, want 1", len(subs.created))
	}
	if s.guards.Armed("sid-1") {
		t.Fatal("guard must disarm on submit")
	}

	if _, err := s.Submit(ctx, "sid-1", "user-1"); err != ErrAttemptFinished {
		t.Fatalf("double submit error = %v, want ErrAttemptFinished", err)
	}
}

func TestAbandonDiscardsAnswersAndIsIdempotent(t *testing.T) {
	subs := &fakeSubmissionStore{}
	s := newTestAttemptService(&fakeBuilder{}, subs)
	ctx := context.Background()
	s.CreateExam(ctx, "sid-1")
	s.Start(ctx, "sid-1")
	s.RecordAnswer(ctx, "sid-1", "g1-0", "B")

	if err := s.Abandon(ctx, "sid-1"); err != nil {
		t.Fatalf("abandon: %v", err)
	}
	// Timeout racing a manual exit: the second abandon is a no-op.
	if err := s.Abandon(ctx, "sid-1"); err != nil {
		t.Fatalf("second abandon: %v", err)
	}
	if len(subs.created) != 0 {
		t.Fatal("abandon must not persist a submission")
	}
	if _, err := s.Submit(ctx, "sid-1", "user-1"); err != ErrAttemptFinished {
		t.Fatalf("submit after abandon = %v, want ErrAttemptFinished", err)
	}
}

func TestReconstructSharesOneFetch(t *testing.T) {
	detail := &model.SubmissionDetail{
		QuestionIDs: []string{"g1-0", "g2-0"},
		UserAnswers: map[string]string{"g1-0": "B"},
		Questions: []model.StoredQuestion{
			{QuestionID: "g1-0", GroupID: "g1", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "B"},
			{QuestionID: "g2-0", GroupID: "g2", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "A"},
		},
	}
	subs := &fakeSubmissionStore{detail: detail, gate: make(chan struct{})}
	s := newTestAttemptService(&fakeBuilder{}, subs)
	ctx := context.Background()

	const callers = 8
	var wg sync.WaitGroup
	results := make([]*ReconstructedExam, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := s.Reconstruct(ctx, "sid-1", "user-1", 123456)
			if err != nil {
				t.Errorf("reconstruct: %v", err)
				return
			}
			results[i] = r
		}(i)
	}
	// Let every caller pile up behind the in-flight fetch, then open it.
	time.Sleep(50 * time.Millisecond)
	close(subs.gate)
	wg.Wait()

	if got := atomic.LoadInt32(&subs.fetches); got != 1 {
		t.Fatalf("remote fetches = %d, want exactly 1", got)
	}
	for _, r := range results {
		if r == nil || r.Content.TotalQuestions() != 2 {
			t.Fatalf("shared result malformed: %+v", r)
		}
	}
}

func TestReconstructRepopulatesLostSession(t *testing.T) {
	detail := &model.SubmissionDetail{
		QuestionIDs: []string{"g1-0", "g2-0"},
		ExamInfo: model.ExamInfo{
			ExamStartTime:  time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC),
			ExamFinishTime: time.Date(2026, 3, 1, 9, 40, 0, 0, time.UTC),
		},
		UserAnswers: map[string]string{"g1-0": "B"},
		Questions: []model.StoredQuestion{
			{QuestionID: "g1-0", GroupID: "g1", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "B"},
			{QuestionID: "g2-0", GroupID: "g2", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "A"},
		},
	}
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{detail: detail})
	ctx := context.Background()

	// The session has nothing stored: TTL expiry, restart, re-login.
	if _, err := s.Reconstruct(ctx, "sid-lost", "user-1", 123456); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	a, ok := s.sessions.Attempt(ctx, "sid-lost")
	if !ok {
		t.Fatal("reconstruction must write the attempt back into the session store")
	}
	if a.State != model.AttemptSubmitted {
		t.Fatalf("state = %s, want SUBMITTED", a.State)
	}
	if a.Answers["g1-0"] != "B" {
		t.Fatalf("answers = %v, want g1-0=B", a.Answers)
	}
	if a.Content.Question("g1-0") == nil {
		t.Fatal("rebuilt content must resolve its question ids")
	}
	if !a.StartTime.Equal(detail.ExamInfo.ExamStartTime) ||
		a.FinishTime == nil || !a.FinishTime.Equal(detail.ExamInfo.ExamFinishTime) {
		t.Fatalf("timestamps not restored: start=%v finish=%v", a.StartTime, a.FinishTime)
	}
}

func TestReconstructNeverClobbersActiveAttempt(t *testing.T) {
	detail := &model.SubmissionDetail{
		UserAnswers: map[string]string{},
		Questions: []model.StoredQuestion{
			{QuestionID: "g1-0", GroupID: "g1", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "B"},
		},
	}
	s := newTestAttemptService(&fakeBuilder{}, &fakeSubmissionStore{detail: detail})
	ctx := context.Background()

	live, _ := s.CreateExam(ctx, "sid-1")
	s.Start(ctx, "sid-1")

	// Reviewing an old exam from another page must not touch the run
	// in progress.
	if _, err := s.Reconstruct(ctx, "sid-1", "user-1", 999999); err != nil {
		t.Fatalf("reconstruct: %v", err)
	}

	a, ok := s.sessions.Attempt(ctx, "sid-1")
	if !ok || a.ExamID != live.ExamID || !a.Active() {
		t.Fatalf("active attempt clobbered: %+v", a)
	}
}

func TestCreateExamClearsStaleSessionState(t *testing.T) {
	builder := &fakeBuilder{}
	s := newTestAttemptService(builder, &fakeSubmissionStore{})
	ctx := context.Background()

	s.CreateExam(ctx, "sid-1")
	s.Start(ctx, "sid-1")
	s.sessions.SaveChatSessions(ctx, "sid-1", map[string]*model.ChatSession{
		"g1-0": {Messages: []model.ChatMessage{{ID: 1, Sender: model.SenderUser, Text: "old run"}}},
	})
	s.Abandon(ctx, "sid-1")

	fresh, err := s.CreateExam(ctx, "sid-1")
	if err != nil {
		t.Fatalf("create after abandon: %v", err)
	}
	if fresh.State != model.AttemptCountdown || builder.builds != 2 {
		t.Fatalf("fresh attempt = %+v (builds %d), want new COUNTDOWN attempt", fresh, builder.builds)
	}
	if chats := s.sessions.ChatSessions(ctx, "sid-1"); len(chats) != 0 {
		t.Fatalf("chats = %v, want prior attempt's transcripts gone", chats)
	}
}

func TestRebuildExamBucketsByDeclaredType(t *testing.T) {
	detail := &model.SubmissionDetail{
		UserAnswers: map[string]string{},
		Questions: []model.StoredQuestion{
			// Interleaved on purpose: order within a group must hold,
			// and a shared passage appears once per type.
			{QuestionID: "r1-0", GroupID: "r1", SubIndex: 0, Type: model.GroupReading, Context: "passage", Options: []string{"a", "b"}, CorrectAnswer: "A"},
			{QuestionID: "s1-0", GroupID: "s1", SubIndex: 0, Type: model.GroupFillShort, Options: []string{"a", "b"}, CorrectAnswer: "B"},
			{QuestionID: "r1-1", GroupID: "r1", SubIndex: 1, Type: model.GroupReading, Context: "passage", Options: []string{"a", "b"}, CorrectAnswer: "B"},
			{QuestionID: "o1-0", GroupID: "o1", SubIndex: 0, Type: model.GroupReorder, Options: []string{"a", "b"}, CorrectAnswer: "A"},
		},
	}

	r := rebuildExam(654321, detail)
	c := r.Content

	if len(c.Groups.Reading) != 1 || len(c.Groups.Reading[0].Subquestions) != 2 {
		t.Fatalf("reading groups = %+v, want one group with two subquestions", c.Groups.Reading)
	}
	if c.Groups.Reading[0].Context != "passage" {
		t.Fatal("group context lost in rebuild")
	}
	if len(c.Groups.FillShort) != 1 || len(c.ReorderQuestions) != 1 {
		t.Fatalf("buckets wrong: %+v", c.Groups)
	}
	if c.Structure.TotalQuestions != 4 {
		t.Fatalf("structure total = %d, want 4", c.Structure.TotalQuestions)
	}
}
