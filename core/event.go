package core

import (
	"time"

	"github.com/google/uuid"
)

// EventType discriminates the messages the coordinator emits to the
// transport layer.
type EventType string

const (
	EventConnected     EventType = "connected"
	EventIntro         EventType = "intro"
	EventNewQuestion   EventType = "new_question"
	EventFollowup      EventType = "followup"
	EventScoreUpdate   EventType = "score_update"
	EventPhaseUpdate   EventType = "phase_update"
	EventTimeRemaining EventType = "time_remaining"
	EventFeedback      EventType = "feedback"
	EventStatus        EventType = "status"
	EventError         EventType = "error"
)

// Event is the unit of communication from the interview core to a transport.
// After emission it must be treated as immutable.
type Event struct {
	ID        string    `json:"id"`
	SessionID string    `json:"session_id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	Data      any       `json:"data,omitempty"`
}

// NewEvent creates an event bound to a session with a fresh id and UTC
// timestamp.
func NewEvent(sessionID string, typ EventType, data any) Event {
	return Event{
		ID:        uuid.NewString(),
		SessionID: sessionID,
		Type:      typ,
		Timestamp: time.Now().UTC(),
		Data:      data,
	}
}

// EventSink is the single abstract emission capability injected into the
// coordinator. The coordinator never depends on a concrete transport.
type EventSink interface {
	Send(ev Event) error
}

// SinkFunc adapts a plain function to the EventSink interface.
type SinkFunc func(ev Event) error

// Send implements EventSink.
func (f SinkFunc) Send(ev Event) error { return f(ev) }

// IntroData accompanies EventIntro.
type IntroData struct {
	Message    string    `json:"message"`
	Phase      Phase     `json:"phase"`
	Seniority  Seniority `json:"seniority"`
	FocusAreas []string  `json:"focus_areas"`
}

// QuestionData accompanies EventNewQuestion.
type QuestionData struct {
	Question       string `json:"question"`
	Difficulty     string `json:"difficulty"`
	Topic          string `json:"topic"`
	Explanation    string `json:"explanation"`
	QuestionNumber int    `json:"question_number"`
	TimeRemaining  int    `json:"time_remaining"`
}

// FollowupData accompanies EventFollowup.
type FollowupData struct {
	Question      string `json:"question"`
	Reason        string `json:"reason"`
	TimeRemaining int    `json:"time_remaining"`
}

// ScoreUpdateData accompanies EventScoreUpdate.
type ScoreUpdateData struct {
	CurrentScores  ScoreCard `json:"current_scores"`
	RunningAverage ScoreCard `json:"running_average"`
	Feedback       string    `json:"feedback"`
	Strengths      []string  `json:"strengths"`
	Improvements   []string  `json:"improvements"`
}

// PhaseUpdateData accompanies EventPhaseUpdate.
type PhaseUpdateData struct {
	Phase   Phase  `json:"phase"`
	Message string `json:"message"`
}

// TimeRemainingData accompanies EventTimeRemaining.
type TimeRemainingData struct {
	Seconds   int    `json:"seconds"`
	Formatted string `json:"formatted"`
}

// FeedbackData accompanies EventFeedback.
type FeedbackData struct {
	Report         string         `json:"report"`
	Recommendation Recommendation `json:"recommendation"`
	SkillRoadmap   []string       `json:"skill_roadmap"`
	FinalScores    ScoreCard      `json:"final_scores"`
	Phase          Phase          `json:"phase"`
}

// ErrorData accompanies EventError.
type ErrorData struct {
	Message string `json:"message"`
	Code    int    `json:"code,omitempty"`
}
