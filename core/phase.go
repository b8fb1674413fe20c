package core

// Phase is one discrete stage of the interview state machine.
//
// Phases advance strictly forward except for the QUESTIONS ↔ FOLLOWUP cycle.
// PhaseCompleted is terminal: once a session reaches it no further transition
// is permitted.
type Phase string

const (
	PhaseSetup      Phase = "setup"
	PhaseAnalyzing  Phase = "analyzing"
	PhaseIntro      Phase = "intro"
	PhaseQuestions  Phase = "questions"
	PhaseFollowup   Phase = "followup"
	PhaseEvaluation Phase = "evaluation"
	PhaseFeedback   Phase = "feedback"
	PhaseCompleted  Phase = "completed"
)

// phaseMessages maps each destination phase to the candidate-facing
// transition message.
var phaseMessages = map[Phase]string{
	PhaseAnalyzing:  "Analyzing your resume and the job requirements...",
	PhaseIntro:      "Let me introduce myself and explain how this interview will work.",
	PhaseQuestions:  "Now I'll ask you some technical questions.",
	PhaseFollowup:   "I'd like to explore that answer a bit more.",
	PhaseEvaluation: "Evaluating your responses...",
	PhaseFeedback:   "Generating your personalized feedback report...",
	PhaseCompleted:  "Interview completed! Here's your feedback.",
}

// Message returns the transition message shown when entering the phase.
func (p Phase) Message() string {
	if msg, ok := phaseMessages[p]; ok {
		return msg
	}
	return "Transitioning..."
}

// Terminal reports whether the phase is the irreversible final state.
func (p Phase) Terminal() bool { return p == PhaseCompleted }

// String implements fmt.Stringer.
func (p Phase) String() string { return string(p) }

// Seniority is the candidate tier derived from resume analysis.
type Seniority string

const (
	SeniorityJunior Seniority = "junior"
	SeniorityMid    Seniority = "mid"
	SenioritySenior Seniority = "senior"
)

// ParseSeniority normalizes arbitrary model output to a known tier,
// defaulting to mid.
func ParseSeniority(s string) Seniority {
	switch Seniority(s) {
	case SeniorityJunior, SeniorityMid, SenioritySenior:
		return Seniority(s)
	default:
		return SeniorityMid
	}
}
