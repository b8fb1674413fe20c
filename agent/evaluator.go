package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/internal/jsonblock"
	"github.com/hupe1980/interviewmesh/model"
)

const evaluatorPrompt = `You are an expert Technical Interview Evaluation Agent.

Your role is to score candidate answers objectively and provide constructive feedback.

SCORING CRITERIA (0-10 scale):
1. Technical Understanding (0-10):
   - Accuracy of technical concepts
   - Depth of knowledge demonstrated
   - Ability to explain complex topics

2. System Design Thinking (0-10):
   - Ability to break down problems
   - Consideration of tradeoffs
   - Scalability and maintainability awareness

3. Communication Clarity (0-10):
   - Structure and organization of response
   - Ability to articulate thoughts clearly
   - Use of examples to illustrate points

IMPORTANT RULES:
- Do NOT penalize grammar mistakes or accent
- Do NOT penalize nervousness or hesitation
- DO value reasoning over memorization
- DO give credit for honest "I don't know" + good reasoning
- Adjust expectations based on seniority level

Be encouraging and constructive. This is a learning-focused interview.
Provide specific, actionable feedback.`

// Evaluation is the scored assessment of one answer.
type Evaluation struct {
	Scores       core.ScoreCard `json:"scores"`
	Feedback     string         `json:"feedback"`
	Strengths    []string       `json:"strengths"`
	Improvements []string       `json:"improvements"`
}

// neutralEvaluation is the fixed default used when the reply cannot be
// parsed per the contract.
func neutralEvaluation() Evaluation {
	return Evaluation{
		Scores:       core.ScoreCard{Technical: 5, Design: 5, Communication: 5},
		Feedback:     "Thank you for your response.",
		Strengths:    []string{},
		Improvements: []string{},
	}
}

// EvaluateAnswer scores a candidate answer against the question, seniority
// and topic. Component scores are clamped to [0,10].
func EvaluateAnswer(ctx context.Context, gen model.Generator, question, answer string, seniority core.Seniority, topic string) (Evaluation, error) {
	user := fmt.Sprintf(`Evaluate this interview response.

QUESTION:
%s

CANDIDATE'S ANSWER:
%s

CONTEXT:
- Topic: %s
- Candidate Seniority: %s

Provide scores and feedback. Be fair to their experience level.
A junior giving a solid fundamental answer should score well for junior level.

Return as JSON:
{
    "scores": {
        "technical": 0-10,
        "design": 0-10,
        "communication": 0-10
    },
    "feedback": "Constructive feedback on the answer",
    "strengths": ["What they did well"],
    "improvements": ["What could be improved"]
}`, question, answer, topic, seniority)

	reply, err := gen.Generate(ctx, model.Request{
		System:      evaluatorPrompt,
		User:        user,
		Temperature: 0.4,
		MaxTokens:   2000,
	})
	if err != nil {
		return Evaluation{}, fmt.Errorf("answer evaluation: %w", err)
	}

	var ev Evaluation
	if err := jsonblock.Unmarshal(reply, &ev); err != nil {
		return neutralEvaluation(), nil
	}
	ev.Scores = ev.Scores.Clamped()
	if ev.Feedback == "" {
		ev.Feedback = "Good effort on this question."
	}
	if ev.Strengths == nil {
		ev.Strengths = []string{}
	}
	if ev.Improvements == nil {
		ev.Improvements = []string{}
	}
	return ev, nil
}
