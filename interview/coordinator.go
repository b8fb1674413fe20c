package interview

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/hupe1980/interviewmesh/agent"
	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/logging"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
)

// weakScoreCutoff marks a past answer as a weakness when its technical
// component fell below this value.
const weakScoreCutoff = 6

// CoordinatorOptions configure a Coordinator.
type CoordinatorOptions struct {
	Duration     time.Duration
	MaxQuestions int
	Clock        func() time.Time

	// Memory enables the opt-in semantic store. Nil disables memory writes
	// and past-weakness seeding even for opted-in sessions.
	Memory *memory.Store

	Logger logging.Logger
}

// Coordinator orchestrates one interview session end-to-end: it drives the
// Controller through its phases, invokes the prompt collaborators, mirrors
// state into the session store, and emits events to the transport sink.
//
// NextQuestion and ProcessAnswer must be serialized by the caller (one
// in-flight operation per session). End may additionally be invoked by the
// clock watchdog and is internally idempotent with respect to the terminal
// state.
type Coordinator struct {
	session *core.Session
	ctrl    *Controller
	gen     model.Generator
	store   core.SessionStore
	mem     *memory.Store
	sink    core.EventSink
	logger  logging.Logger
	now     func() time.Time

	current           *agent.Question
	previousQuestions []string
	seededGaps        []string

	startMu sync.Mutex
	started bool

	// endMu serializes End against the watchdog so a race between a manual
	// end and the time-up timer produces exactly one finalized report.
	endMu sync.Mutex
}

// NewCoordinator wires a coordinator for the given session.
func NewCoordinator(sess *core.Session, gen model.Generator, store core.SessionStore, sink core.EventSink, optFns ...func(o *CoordinatorOptions)) *Coordinator {
	opts := CoordinatorOptions{
		Duration:     DefaultDuration,
		MaxQuestions: DefaultMaxQuestions,
		Clock:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}

	ctrl := NewController(sess.ID, func(o *ControllerOptions) {
		o.Duration = opts.Duration
		o.MaxQuestions = opts.MaxQuestions
		o.Clock = opts.Clock
	})

	return &Coordinator{
		session: sess,
		ctrl:    ctrl,
		gen:     gen,
		store:   store,
		mem:     opts.Memory,
		sink:    sink,
		logger:  logging.OrNoOp(opts.Logger),
		now:     opts.Clock,
	}
}

// Controller exposes the phase controller, primarily for status queries.
func (c *Coordinator) Controller() *Controller { return c.ctrl }

// Session returns the session this coordinator drives.
func (c *Coordinator) Session() *core.Session { return c.session }

// Start begins the interview: it marks the session active, starts the
// controller clock, derives the candidate profile when missing, seeds focus
// areas from past sessions for opted-in candidates, transitions to INTRO
// and emits the introduction. Valid only once.
func (c *Coordinator) Start(ctx context.Context) error {
	c.startMu.Lock()
	if c.started {
		c.startMu.Unlock()
		return core.ErrAlreadyStarted
	}
	c.started = true
	c.startMu.Unlock()

	c.session.Begin(c.now())
	c.ctrl.Start()
	if err := c.transition(core.PhaseAnalyzing); err != nil {
		return err
	}

	if len(c.session.Profile.FocusAreas) == 0 && c.session.ResumeText != "" {
		profile, err := agent.AnalyzeResume(ctx, c.gen, c.session.ResumeText, c.session.JobDescription, c.role())
		if err != nil {
			return err
		}
		c.session.SetProfile(profile)
		c.logger.Info("interview.profile.derived", "session_id", c.session.ID, "seniority", profile.Seniority)
	}

	c.seedPastWeaknesses(ctx)

	if err := c.transition(core.PhaseIntro); err != nil {
		return err
	}

	intro := c.ctrl.Intro(c.seniority(), c.role(), c.session.Profile.FocusAreas)
	return c.emit(core.EventIntro, core.IntroData{
		Message:    intro,
		Phase:      core.PhaseIntro,
		Seniority:  c.seniority(),
		FocusAreas: c.session.Profile.FocusAreas,
	})
}

// seedPastWeaknesses searches the semantic store for low-scoring past
// answers on the session's focus areas and records their topics as extra
// gaps for question generation. Best effort: a search failure only logs.
func (c *Coordinator) seedPastWeaknesses(ctx context.Context) {
	if c.mem == nil || !c.session.MemoryOptIn {
		return
	}
	seen := map[string]bool{}
	for _, area := range c.session.Profile.FocusAreas {
		results, err := c.mem.SearchSimilar(ctx, area, 5, "")
		if err != nil {
			c.logger.Warn("interview.memory.seed_failed", "session_id", c.session.ID, "error", err)
			return
		}
		for _, r := range results {
			if r.Scores == nil || r.Scores.Technical >= weakScoreCutoff {
				continue
			}
			if r.Topic != "" && !seen[r.Topic] {
				seen[r.Topic] = true
				c.seededGaps = append(c.seededGaps, r.Topic)
			}
		}
	}
	if len(c.seededGaps) > 0 {
		c.logger.Info("interview.memory.seeded", "session_id", c.session.ID, "gaps", len(c.seededGaps))
	}
}

// NextQuestion generates and emits the next primary question, or ends the
// interview when the budget is exhausted.
func (c *Coordinator) NextQuestion(ctx context.Context) error {
	if c.ctrl.ShouldEnd() {
		return c.End(ctx)
	}

	if err := c.transition(core.PhaseQuestions); err != nil {
		return err
	}

	q, err := agent.GenerateQuestion(ctx, c.gen, agent.QuestionInput{
		Seniority:         c.seniority(),
		Role:              c.role(),
		FocusAreas:        c.session.Profile.FocusAreas,
		Gaps:              append(append([]string(nil), c.session.Profile.Gaps...), c.seededGaps...),
		PreviousQuestions: c.previousQuestions,
		JobDescription:    c.session.JobDescription,
	})
	if err != nil {
		return err
	}

	c.current = &q
	c.previousQuestions = append(c.previousQuestions, q.Text)
	c.ctrl.RecordQuestion()

	return c.emit(core.EventNewQuestion, core.QuestionData{
		Question:       q.Text,
		Difficulty:     q.Difficulty,
		Topic:          q.Topic,
		Explanation:    q.Explanation,
		QuestionNumber: c.ctrl.QuestionCount(),
		TimeRemaining:  c.ctrl.RemainingSeconds(),
	})
}

// ProcessAnswer evaluates the answer to the current question, appends the
// scored Q&A item, emits the score update, and either asks a follow-up or
// moves on. With no active question it emits an error event and reports
// ErrNoActiveQuestion without mutating any state.
func (c *Coordinator) ProcessAnswer(ctx context.Context, answer string) error {
	if c.current == nil {
		if err := c.emit(core.EventError, core.ErrorData{Message: "No active question"}); err != nil {
			return err
		}
		return core.ErrNoActiveQuestion
	}
	question := *c.current

	ev, err := agent.EvaluateAnswer(ctx, c.gen, question.Text, answer, c.seniority(), question.Topic)
	if err != nil {
		return err
	}

	scores := ev.Scores
	qa := core.QAItem{
		Question: question.Text,
		Answer:   answer,
		Score:    &scores,
		Feedback: ev.Feedback,
		Topic:    question.Topic,
		Followup: question.Followup,
	}
	c.session.AppendQA(qa)
	if err := c.store.AppendQA(c.session.ID, qa); err != nil {
		return fmt.Errorf("persist qa: %w", err)
	}

	running := core.RunningAverage(c.session.History())
	c.session.SetScores(running)
	if err := c.store.UpdateScores(c.session.ID, running); err != nil {
		return fmt.Errorf("persist scores: %w", err)
	}

	if err := c.emit(core.EventScoreUpdate, core.ScoreUpdateData{
		CurrentScores:  ev.Scores,
		RunningAverage: running,
		Feedback:       ev.Feedback,
		Strengths:      ev.Strengths,
		Improvements:   ev.Improvements,
	}); err != nil {
		return err
	}

	decision, err := agent.CheckFollowup(ctx, c.gen, question.Text, answer, c.seniority(), c.ctrl.CurrentQuestionFollowups())
	if err != nil {
		return err
	}

	// Hard cap: however often the collaborator requests one, at most 2
	// follow-ups per question; past the cap we proceed as if none were
	// requested.
	if decision.NeedsFollowup && c.ctrl.CanAskFollowup() {
		return c.askFollowup(decision, question)
	}

	if c.ctrl.ShouldEnd() {
		return c.End(ctx)
	}
	return c.NextQuestion(ctx)
}

// askFollowup swaps the current question for the follow-up, inheriting
// difficulty and topic.
func (c *Coordinator) askFollowup(decision agent.FollowupDecision, question agent.Question) error {
	if err := c.transition(core.PhaseFollowup); err != nil {
		return err
	}
	c.ctrl.RecordFollowup()

	c.current = &agent.Question{
		Text:       decision.Question,
		Difficulty: question.Difficulty,
		Topic:      question.Topic,
		Followup:   true,
	}

	return c.emit(core.EventFollowup, core.FollowupData{
		Question:      decision.Question,
		Reason:        decision.Reason,
		TimeRemaining: c.ctrl.RemainingSeconds(),
	})
}

// End finalizes the interview: evaluation and feedback phases, report
// generation, session sealing and, for opted-in sessions, the memory
// writes. Invoking End on an already completed session is a no-op, so the
// watchdog and a request-driven end can race safely.
func (c *Coordinator) End(ctx context.Context) error {
	c.endMu.Lock()
	defer c.endMu.Unlock()

	if c.session.Sealed() {
		return nil
	}

	if err := c.transition(core.PhaseEvaluation); err != nil {
		return err
	}
	if err := c.emitPhase(core.PhaseEvaluation); err != nil {
		return err
	}

	history := c.session.History()
	finalScores := core.RunningAverage(history)

	if err := c.transition(core.PhaseFeedback); err != nil {
		return err
	}
	if err := c.emitPhase(core.PhaseFeedback); err != nil {
		return err
	}

	fb, err := agent.GenerateFeedback(ctx, c.gen, agent.FeedbackInput{
		History:     history,
		Seniority:   c.seniority(),
		Role:        c.role(),
		Strengths:   c.session.Profile.Strengths,
		Gaps:        c.session.Profile.Gaps,
		FinalScores: finalScores,
	})
	if err != nil {
		return err
	}

	endedAt := c.now()
	c.session.SetScores(finalScores)
	c.session.Finalize(fb.Report, fb.Recommendation, fb.SkillRoadmap, endedAt)
	if err := c.store.UpdateScores(c.session.ID, finalScores); err != nil {
		return fmt.Errorf("persist final scores: %w", err)
	}
	if err := c.store.Finalize(c.session.ID, fb.Report, fb.Recommendation, fb.SkillRoadmap, endedAt); err != nil {
		return fmt.Errorf("finalize session: %w", err)
	}
	c.current = nil

	if c.mem != nil && c.memoryOptIn() {
		c.writeMemory(ctx, history)
	}

	c.logger.Info("interview.completed", "session_id", c.session.ID, "questions", len(history), "recommendation", fb.Recommendation)

	return c.emit(core.EventFeedback, core.FeedbackData{
		Report:         fb.Report,
		Recommendation: fb.Recommendation,
		SkillRoadmap:   fb.SkillRoadmap,
		FinalScores:    finalScores,
		Phase:          core.PhaseCompleted,
	})
}

// memoryOptIn returns the stored consent flag, so an opt-out toggled over
// the API mid-interview still suppresses the end-of-interview writes. Falls
// back to the in-process session when the store read fails.
func (c *Coordinator) memoryOptIn() bool {
	if stored, err := c.store.Get(c.session.ID); err == nil {
		return stored.MemoryOptIn
	}
	return c.session.MemoryOptIn
}

// writeMemory stores one embedding per Q&A item. The session is already
// sealed at this point, so an embedding failure can only be logged and the
// remaining writes skipped; it never un-finalizes the interview.
func (c *Coordinator) writeMemory(ctx context.Context, history []core.QAItem) {
	for _, qa := range history {
		text := fmt.Sprintf("Q: %s\nA: %s\nTopic: %s", qa.Question, qa.Answer, qa.Topic)
		_, err := c.mem.AddEmbedding(ctx, text, memory.Entry{
			SessionID: c.session.ID,
			Scores:    qa.Score,
			Topic:     qa.Topic,
		})
		if err != nil {
			c.logger.Warn("interview.memory.write_failed", "session_id", c.session.ID, "error", err)
			return
		}
	}
	c.logger.Info("interview.memory.stored", "session_id", c.session.ID, "entries", len(history))
}

// CoordinatorStatus extends the controller snapshot with session counters.
type CoordinatorStatus struct {
	Status
	QACount int            `json:"qa_count"`
	Scores  core.ScoreCard `json:"current_scores"`
}

// Status returns a point-in-time snapshot for status queries.
func (c *Coordinator) Status() CoordinatorStatus {
	return CoordinatorStatus{
		Status:  c.ctrl.Status(),
		QACount: len(c.session.History()),
		Scores:  c.session.CurrentScores(),
	}
}

// transition moves controller and session to the phase and mirrors it into
// the session store.
func (c *Coordinator) transition(phase core.Phase) error {
	c.ctrl.TransitionTo(phase)
	c.session.SetPhase(phase)
	if err := c.store.UpdatePhase(c.session.ID, phase); err != nil {
		return fmt.Errorf("persist phase: %w", err)
	}
	return nil
}

func (c *Coordinator) emitPhase(phase core.Phase) error {
	return c.emit(core.EventPhaseUpdate, core.PhaseUpdateData{Phase: phase, Message: phase.Message()})
}

func (c *Coordinator) emit(typ core.EventType, data any) error {
	return c.sink.Send(core.NewEvent(c.session.ID, typ, data))
}

func (c *Coordinator) seniority() core.Seniority {
	if s := c.session.Profile.Seniority; s != "" {
		return s
	}
	return core.SeniorityMid
}

func (c *Coordinator) role() string {
	if c.session.Role != "" {
		return c.session.Role
	}
	return "Software Engineer"
}
