package interview

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hupe1980/interviewmesh/core"
)

// Defaults for the interview budget.
const (
	DefaultDuration     = 35 * time.Minute
	DefaultMaxQuestions = 8
)

// ControllerOptions configure a Controller.
type ControllerOptions struct {
	// Duration is the wall-clock budget for the whole interview.
	Duration time.Duration
	// MaxQuestions bounds the number of primary questions asked.
	MaxQuestions int
	// Clock overrides the time source, for tests.
	Clock func() time.Time
}

// Controller owns the interview phase state machine together with the
// wall-clock budget and the question / follow-up counters. It performs no
// I/O; every method is a deterministic computation over internal counters
// and a clock read, and none of them can fail.
//
// The controller does not validate phase edges; callers invoke Transition
// only at the Coordinator's defined points. The sole rule it enforces is
// that the terminal phase is never left again.
type Controller struct {
	mu sync.Mutex

	sessionID    string
	duration     time.Duration
	maxQuestions int
	now          func() time.Time

	phase                    core.Phase
	startedAt                time.Time
	questionCount            int
	followupCount            int
	currentQuestionFollowups int
}

// NewController creates a controller in the SETUP phase with the default
// 35-minute / 8-question budget.
func NewController(sessionID string, optFns ...func(o *ControllerOptions)) *Controller {
	opts := ControllerOptions{
		Duration:     DefaultDuration,
		MaxQuestions: DefaultMaxQuestions,
		Clock:        time.Now,
	}
	for _, fn := range optFns {
		fn(&opts)
	}
	return &Controller{
		sessionID:    sessionID,
		duration:     opts.Duration,
		maxQuestions: opts.MaxQuestions,
		now:          opts.Clock,
		phase:        core.PhaseSetup,
	}
}

// Start records the start instant and enters the ANALYZING phase. Valid
// only from SETUP; on an already started controller it leaves all state
// untouched. Returns the total budgeted seconds.
func (c *Controller) Start() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.phase == core.PhaseSetup {
		c.startedAt = c.now()
		c.phase = core.PhaseAnalyzing
	}
	return int(c.duration.Seconds())
}

// Transition describes one phase change.
type Transition struct {
	Previous      core.Phase `json:"previous_phase"`
	Current       core.Phase `json:"current_phase"`
	Message       string     `json:"message"`
	TimeRemaining int        `json:"time_remaining"`
}

// TransitionTo overwrites the current phase unconditionally, except that
// the terminal phase is never left. It returns the transition record with
// the destination's candidate-facing message and the remaining time.
func (c *Controller) TransitionTo(phase core.Phase) Transition {
	c.mu.Lock()
	defer c.mu.Unlock()
	previous := c.phase
	if !previous.Terminal() {
		c.phase = phase
	}
	return Transition{
		Previous:      previous,
		Current:       c.phase,
		Message:       c.phase.Message(),
		TimeRemaining: c.remainingSecondsLocked(),
	}
}

// Phase returns the current phase.
func (c *Controller) Phase() core.Phase {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.phase
}

// TimeRemaining returns max(0, budget − elapsed), or the full budget when
// the interview has not started yet.
func (c *Controller) TimeRemaining() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked()
}

// RemainingSeconds is TimeRemaining in whole seconds.
func (c *Controller) RemainingSeconds() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingSecondsLocked()
}

func (c *Controller) remainingLocked() time.Duration {
	if c.startedAt.IsZero() {
		return c.duration
	}
	remaining := c.duration - c.now().Sub(c.startedAt)
	if remaining < 0 {
		return 0
	}
	return remaining
}

func (c *Controller) remainingSecondsLocked() int {
	return int(c.remainingLocked().Seconds())
}

// IsTimeUp reports whether the wall-clock budget is exhausted.
func (c *Controller) IsTimeUp() bool { return c.TimeRemaining() == 0 }

// ShouldEnd reports whether the interview must stop: time up, question
// budget reached, or already completed.
func (c *Controller) ShouldEnd() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.remainingLocked() == 0 ||
		c.questionCount >= c.maxQuestions ||
		c.phase.Terminal()
}

// RecordQuestion counts a primary question and resets the per-question
// follow-up counter.
func (c *Controller) RecordQuestion() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.questionCount++
	c.currentQuestionFollowups = 0
}

// RecordFollowup counts a follow-up both for the lifetime of the interview
// and for the current question.
func (c *Controller) RecordFollowup() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.followupCount++
	c.currentQuestionFollowups++
}

// CanAskFollowup reports whether the current question is still below the
// hard cap of 2 follow-ups.
func (c *Controller) CanAskFollowup() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentQuestionFollowups < maxFollowupsPerQuestion
}

// maxFollowupsPerQuestion is enforced independently by the controller and
// the follow-up collaborator.
const maxFollowupsPerQuestion = 2

// QuestionCount returns the number of primary questions asked so far.
func (c *Controller) QuestionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.questionCount
}

// CurrentQuestionFollowups returns the follow-ups asked since the last
// primary question.
func (c *Controller) CurrentQuestionFollowups() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.currentQuestionFollowups
}

// Intro formats the personalized interview introduction. Pure formatting,
// no side effects.
func (c *Controller) Intro(seniority core.Seniority, role string, focusAreas []string) string {
	c.mu.Lock()
	maxQ := c.maxQuestions
	minutes := int(c.duration.Minutes())
	c.mu.Unlock()

	areas := make([]string, len(focusAreas))
	for i, area := range focusAreas {
		areas[i] = "- " + area
	}

	return fmt.Sprintf(`Welcome to your mock interview for the **%s** position!

Based on your resume, I've identified you as a **%s-level** candidate.

**How this interview works:**
- I'll ask you %d to %d technical questions
- Questions will focus on theory and system design (no coding)
- We have about %d minutes
- I might ask follow-up questions to understand your thinking
- Your scores will be visible throughout (full transparency!)

**Today's focus areas:**
%s

Feel free to ask me to clarify any question. This is a learning experience, so don't stress!

Ready to begin?`, role, capitalize(string(seniority)), maxQ-2, maxQ, minutes, strings.Join(areas, "\n"))
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

// Status is a point-in-time snapshot of the controller.
type Status struct {
	SessionID      string     `json:"session_id"`
	Phase          core.Phase `json:"phase"`
	QuestionsAsked int        `json:"questions_asked"`
	MaxQuestions   int        `json:"max_questions"`
	TimeRemaining  int        `json:"time_remaining"`
	IsTimeUp       bool       `json:"is_time_up"`
	ShouldEnd      bool       `json:"should_end"`
}

// Status returns the current snapshot.
func (c *Controller) Status() Status {
	c.mu.Lock()
	defer c.mu.Unlock()
	remaining := c.remainingSecondsLocked()
	return Status{
		SessionID:      c.sessionID,
		Phase:          c.phase,
		QuestionsAsked: c.questionCount,
		MaxQuestions:   c.maxQuestions,
		TimeRemaining:  remaining,
		IsTimeUp:       remaining == 0,
		ShouldEnd:      remaining == 0 || c.questionCount >= c.maxQuestions || c.phase.Terminal(),
	}
}
