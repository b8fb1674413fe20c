package interview

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
	"github.com/hupe1980/interviewmesh/session"
)

// recordingSink captures every emitted event for assertions.
type recordingSink struct {
	mu     sync.Mutex
	events []core.Event
}

func (s *recordingSink) Send(ev core.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, ev)
	return nil
}

func (s *recordingSink) types() []core.EventType {
	s.mu.Lock()
	defer s.mu.Unlock()
	types := make([]core.EventType, len(s.events))
	for i, ev := range s.events {
		types[i] = ev.Type
	}
	return types
}

func (s *recordingSink) count(typ core.EventType) int {
	n := 0
	for _, t := range s.types() {
		if t == typ {
			n++
		}
	}
	return n
}

func scriptedGenerator() *model.MockGenerator {
	gen := model.NewMockGenerator()
	gen.AddResponse("Resume Analyzer Agent", `{
		"seniority": "mid",
		"strengths": ["Go"],
		"gaps": ["distributed systems"],
		"focus_areas": ["backend design"]
	}`)
	gen.AddResponse("Question Generator Agent", `{
		"question": "How does a B-tree index speed up range scans?",
		"difficulty": "medium",
		"topic": "databases",
		"explanation": "Tests index fundamentals."
	}`)
	gen.AddResponse("Evaluation Agent", `{
		"scores": {"technical": 8, "design": 6, "communication": 7},
		"feedback": "Good depth.",
		"strengths": ["clarity"],
		"improvements": ["edge cases"]
	}`)
	gen.AddResponse("Follow-up Interview Agent", `{"needs_followup": false}`)
	gen.AddResponse("Feedback Agent", `{
		"report": "# Report\n\nWell done.",
		"recommendation": "Hire",
		"skill_roadmap": ["Study consensus protocols"]
	}`)
	return gen
}

func newTestCoordinator(t *testing.T, gen model.Generator, sess *core.Session, optFns ...func(o *CoordinatorOptions)) (*Coordinator, *recordingSink, core.SessionStore) {
	t.Helper()
	store := session.NewInMemoryStore()
	if err := store.Create(sess); err != nil {
		t.Fatalf("create session: %v", err)
	}
	sink := &recordingSink{}
	coord := NewCoordinator(sess, gen, store, sink, optFns...)
	return coord, sink, store
}

func TestCoordinator_FullFlow(t *testing.T) {
	gen := scriptedGenerator()
	sess := core.NewSession("s1")
	sess.ResumeText = "Backend engineer, 4 years of Go."
	sess.Role = "Backend Engineer"

	coord, sink, store := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.MaxQuestions = 2
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if sess.Profile.Seniority != core.SeniorityMid {
		t.Fatalf("expected derived profile, got %+v", sess.Profile)
	}
	if sink.count(core.EventIntro) != 1 {
		t.Fatalf("expected one intro event, got types %v", sink.types())
	}

	if err := coord.NextQuestion(ctx); err != nil {
		t.Fatalf("first question: %v", err)
	}
	if err := coord.ProcessAnswer(ctx, "It keeps keys sorted so ranges are contiguous."); err != nil {
		t.Fatalf("first answer: %v", err)
	}
	// No follow-up scripted, so the second question was asked automatically.
	if sink.count(core.EventNewQuestion) != 2 {
		t.Fatalf("expected two question events, got types %v", sink.types())
	}

	if err := coord.ProcessAnswer(ctx, "Same idea at the leaf level."); err != nil {
		t.Fatalf("second answer: %v", err)
	}

	// Question budget of 2 reached: the interview must have ended.
	if !sess.Sealed() {
		t.Fatal("session should be sealed after the question budget")
	}
	if sess.Recommendation != core.RecommendHire {
		t.Fatalf("expected Hire, got %s", sess.Recommendation)
	}
	if sink.count(core.EventFeedback) != 1 {
		t.Fatalf("expected one feedback event, got types %v", sink.types())
	}
	if got := sess.CurrentScores(); got != (core.ScoreCard{Technical: 8, Design: 6, Communication: 7}) {
		t.Fatalf("unexpected final scores: %+v", got)
	}

	stored, err := store.Get("s1")
	if err != nil {
		t.Fatalf("get stored session: %v", err)
	}
	if !stored.Sealed() || len(stored.QAHistory) != 2 {
		t.Fatalf("store out of sync: sealed=%v history=%d", stored.Sealed(), len(stored.QAHistory))
	}
}

func TestCoordinator_StartTwice(t *testing.T) {
	gen := scriptedGenerator()
	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}

	coord, _, _ := newTestCoordinator(t, gen, sess)
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.Start(ctx); !errors.Is(err, core.ErrAlreadyStarted) {
		t.Fatalf("expected ErrAlreadyStarted, got %v", err)
	}
}

func TestCoordinator_FollowupCapProceedsToNextQuestion(t *testing.T) {
	gen := model.NewMockGenerator()
	gen.AddResponse("Question Generator Agent", `{"question": "Explain CAP.", "difficulty": "hard", "topic": "distributed systems"}`)
	gen.AddResponse("Evaluation Agent", `{"scores": {"technical": 5, "design": 5, "communication": 5}, "feedback": "ok"}`)
	// Always requests a follow-up; the cap must stop it after two.
	gen.AddResponse("Follow-up Interview Agent", `{"needs_followup": true, "followup_question": "Why?", "reason": "probing"}`)
	gen.AddResponse("Feedback Agent", `{"report": "done", "recommendation": "Borderline", "skill_roadmap": ["x"]}`)

	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"distributed systems"}}

	coord, sink, _ := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.MaxQuestions = 3
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.NextQuestion(ctx); err != nil {
		t.Fatalf("question: %v", err)
	}

	for i := 0; i < 3; i++ {
		if err := coord.ProcessAnswer(ctx, "an answer"); err != nil {
			t.Fatalf("answer %d: %v", i+1, err)
		}
	}

	if got := sink.count(core.EventFollowup); got != 2 {
		t.Fatalf("expected exactly 2 follow-up events, got %d (types %v)", got, sink.types())
	}
	// The capped third answer must have advanced to question 2.
	if got := sink.count(core.EventNewQuestion); got != 2 {
		t.Fatalf("expected a second primary question after the cap, got %d question events", got)
	}
}

func TestCoordinator_EndIsIdempotent(t *testing.T) {
	gen := scriptedGenerator()
	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}

	coord, sink, _ := newTestCoordinator(t, gen, sess)
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.End(ctx); err != nil {
		t.Fatalf("first end: %v", err)
	}
	if err := coord.End(ctx); err != nil {
		t.Fatalf("second end: %v", err)
	}

	if got := sink.count(core.EventFeedback); got != 1 {
		t.Fatalf("expected exactly one feedback event, got %d", got)
	}
}

func TestCoordinator_AnswerWithoutQuestion(t *testing.T) {
	gen := scriptedGenerator()
	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}

	coord, sink, _ := newTestCoordinator(t, gen, sess)
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	err := coord.ProcessAnswer(ctx, "answering nothing")
	if !errors.Is(err, core.ErrNoActiveQuestion) {
		t.Fatalf("expected ErrNoActiveQuestion, got %v", err)
	}
	if sink.count(core.EventError) != 1 {
		t.Fatalf("expected an error event, got types %v", sink.types())
	}
	if len(sess.History()) != 0 {
		t.Error("rejected answer must not enter the history")
	}
}

func TestCoordinator_MemoryWritesOnOptIn(t *testing.T) {
	gen := scriptedGenerator()
	mem, err := memory.NewStore(model.NewMockEmbedder(16), t.TempDir()+"/mem")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}

	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}
	sess.MemoryOptIn = true

	coord, _, _ := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.MaxQuestions = 1
		o.Memory = mem
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.NextQuestion(ctx); err != nil {
		t.Fatalf("question: %v", err)
	}
	if err := coord.ProcessAnswer(ctx, "use pagination"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if !sess.Sealed() {
		t.Fatal("session should be sealed")
	}
	if mem.Len() != 1 {
		t.Fatalf("expected one memory record, got %d", mem.Len())
	}
	if got := mem.GetBySession("s1"); len(got) != 1 || got[0].Topic != "databases" {
		t.Fatalf("unexpected memory records: %+v", got)
	}
}

func TestCoordinator_OptOutDuringInterviewSkipsMemoryWrites(t *testing.T) {
	gen := scriptedGenerator()
	mem, err := memory.NewStore(model.NewMockEmbedder(16), t.TempDir()+"/mem")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}

	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}
	sess.MemoryOptIn = true

	coord, _, store := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.MaxQuestions = 1
		o.Memory = mem
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.NextQuestion(ctx); err != nil {
		t.Fatalf("question: %v", err)
	}

	// Consent withdrawn through the store while the interview is running.
	if err := store.UpdateMemoryOptIn("s1", false); err != nil {
		t.Fatalf("opt out: %v", err)
	}

	if err := coord.ProcessAnswer(ctx, "use pagination"); err != nil {
		t.Fatalf("answer: %v", err)
	}

	if !sess.Sealed() {
		t.Fatal("session should be sealed")
	}
	if mem.Len() != 0 {
		t.Fatalf("expected no memory records after opt-out, got %d", mem.Len())
	}
}

func TestCoordinator_SeedsPastWeaknesses(t *testing.T) {
	mem, err := memory.NewStore(model.NewMockEmbedder(16), t.TempDir()+"/mem")
	if err != nil {
		t.Fatalf("memory store: %v", err)
	}
	// A weak past answer on goroutines from an earlier session.
	low := core.ScoreCard{Technical: 3, Design: 4, Communication: 5}
	if _, err := mem.AddEmbedding(context.Background(), "Q: goroutine leaks\nA: not sure", memory.Entry{
		SessionID: "old", Scores: &low, Topic: "goroutines",
	}); err != nil {
		t.Fatalf("seed memory: %v", err)
	}

	gen := scriptedGenerator()
	sess := core.NewSession("s2")
	sess.Profile = core.Profile{FocusAreas: []string{"concurrency"}}
	sess.MemoryOptIn = true

	coord, _, _ := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.Memory = mem
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := coord.NextQuestion(ctx); err != nil {
		t.Fatalf("question: %v", err)
	}

	// The seeded weakness must reach the question generation prompt.
	var questionerPromptSeen string
	for _, call := range gen.Calls() {
		if strings.Contains(call.System, "Question Generator Agent") {
			questionerPromptSeen = call.User
		}
	}
	if !strings.Contains(questionerPromptSeen, "goroutines") {
		t.Fatalf("expected seeded gap in questioner prompt, got %q", questionerPromptSeen)
	}
}

func TestCoordinator_WatchdogEndsOnExpiry(t *testing.T) {
	gen := scriptedGenerator()
	clock := newFakeClock()
	sess := core.NewSession("s1")
	sess.Profile = core.Profile{FocusAreas: []string{"apis"}}

	coord, sink, _ := newTestCoordinator(t, gen, sess, func(o *CoordinatorOptions) {
		o.Duration = 5 * time.Minute
		o.Clock = clock.Now
	})
	ctx := context.Background()

	if err := coord.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	clock.Advance(10 * time.Minute)

	watchCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	done := make(chan struct{})
	go func() {
		coord.WatchClock(watchCtx, time.Millisecond)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("watchdog did not finish after expiry")
	}

	if !sess.Sealed() {
		t.Fatal("expired interview should be sealed by the watchdog")
	}
	if sink.count(core.EventTimeRemaining) == 0 {
		t.Error("expected at least one time event")
	}
	if sink.count(core.EventFeedback) != 1 {
		t.Fatalf("expected one feedback event, got types %v", sink.types())
	}
}
