// Package interviewmesh provides a high-level façade over the interview
// coordinator and its services (sessions, semantic memory, logging) enabling
// rapid construction of LLM-driven mock interviews. Most applications
// interact with this package by:
//  1. Creating an InterviewMesh via New() with a model.Generator (optionally
//     overriding the default in-memory services)
//  2. Creating a session with CreateSession
//  3. Obtaining a per-session Coordinator via Interview and driving it with
//     Start / NextQuestion / ProcessAnswer
//
// All defaults are safe for local development and testing; production
// deployments typically supply a durable session store, the vector memory
// store and a structured logger.
package interviewmesh

import (
	"time"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/interview"
	"github.com/hupe1980/interviewmesh/logging"
	"github.com/hupe1980/interviewmesh/memory"
	"github.com/hupe1980/interviewmesh/model"
	"github.com/hupe1980/interviewmesh/session"
)

// Options configures the InterviewMesh instance.
type Options struct {
	// SessionStore persists session records (defaults to in-memory).
	SessionStore core.SessionStore

	// Memory enables the opt-in semantic store. Nil disables memory writes
	// and past-weakness seeding.
	Memory *memory.Store

	// Duration is the wall-clock budget per interview.
	Duration time.Duration

	// MaxQuestions caps the number of primary questions per interview.
	MaxQuestions int

	// Logger (defaults to NoOp logger if nil).
	Logger logging.Logger
}

// InterviewMesh is the high-level façade aggregating the model backend and
// the per-session services.
type InterviewMesh struct {
	opts Options
	gen  model.Generator
}

// New creates a new InterviewMesh instance with optional overrides. Any
// unset service is initialized with an in-memory implementation.
func New(gen model.Generator, optFns ...func(o *Options)) *InterviewMesh {
	opts := Options{
		SessionStore: session.NewInMemoryStore(),
		Duration:     interview.DefaultDuration,
		MaxQuestions: interview.DefaultMaxQuestions,
		Logger:       logging.NoOpLogger{},
	}

	for _, fn := range optFns {
		fn(&opts)
	}

	return &InterviewMesh{opts: opts, gen: gen}
}

// CreateSession registers a new interview session in the SETUP phase.
func (m *InterviewMesh) CreateSession(resumeText, jobDescription, role string, memoryOptIn bool) (*core.Session, error) {
	sess := core.NewSession(core.NewID())
	sess.ResumeText = resumeText
	sess.JobDescription = jobDescription
	sess.Role = role
	sess.MemoryOptIn = memoryOptIn

	if err := m.opts.SessionStore.Create(sess); err != nil {
		return nil, err
	}
	return sess, nil
}

// Interview wires a Coordinator for the session, delivering events to sink.
func (m *InterviewMesh) Interview(sess *core.Session, sink core.EventSink) *interview.Coordinator {
	return interview.NewCoordinator(sess, m.gen, m.opts.SessionStore, sink, func(o *interview.CoordinatorOptions) {
		o.Duration = m.opts.Duration
		o.MaxQuestions = m.opts.MaxQuestions
		o.Memory = m.opts.Memory
		o.Logger = m.opts.Logger
	})
}

// Sessions exposes the configured session store.
func (m *InterviewMesh) Sessions() core.SessionStore { return m.opts.SessionStore }

// PastSessions lists summaries of stored sessions, newest first.
func (m *InterviewMesh) PastSessions(limit int, completedOnly bool) ([]core.Summary, error) {
	return m.opts.SessionStore.PastSessions(limit, completedOnly)
}
