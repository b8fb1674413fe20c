package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/internal/jsonblock"
	"github.com/hupe1980/interviewmesh/model"
)

const questionerPrompt = `You are an expert Technical Interview Question Generator Agent.

Your role is to generate thoughtful, role-appropriate interview questions. You must:

1. Generate ONLY theory and system design questions - NO coding questions
2. Match difficulty to the candidate's seniority level
3. Focus on the identified weak areas and focus topics
4. Ask one question at a time
5. Be transparent about difficulty level

Question types you can ask:
- Theoretical concepts (e.g., "Explain how garbage collection works")
- System design (e.g., "How would you design a rate limiter?")
- Architecture decisions (e.g., "When would you choose SQL vs NoSQL?")
- Real-world tradeoffs (e.g., "What are the tradeoffs of microservices?")
- Behavioral/situational technical scenarios

Difficulty mapping:
- Junior: Focus on fundamentals, basic concepts, simple scenarios
- Mid: Intermediate concepts, moderate system design, some tradeoffs
- Senior: Complex systems, architectural decisions, deep tradeoffs, leadership scenarios

Always explain WHY you're asking this question and what skill it tests.
Be encouraging and supportive - this is a learning-focused mock interview.`

// jdExcerptLen bounds the job description excerpt included in the prompt.
const jdExcerptLen = 500

// Question is one generated interview question.
type Question struct {
	Text        string `json:"question"`
	Difficulty  string `json:"difficulty"`
	Topic       string `json:"topic"`
	Explanation string `json:"explanation"`
	Followup    bool   `json:"is_followup,omitempty"`
}

// QuestionInput carries the context for question generation.
type QuestionInput struct {
	Seniority         core.Seniority
	Role              string
	FocusAreas        []string
	Gaps              []string
	PreviousQuestions []string
	JobDescription    string
}

// GenerateQuestion produces the next interview question. An unparseable
// reply yields a generic problem-solving question rather than an error.
func GenerateQuestion(ctx context.Context, gen model.Generator, in QuestionInput) (Question, error) {
	previous := "None yet - this is the first question"
	if len(in.PreviousQuestions) > 0 {
		previous = "- " + strings.Join(in.PreviousQuestions, "\n- ")
	}
	jd := in.JobDescription
	if len(jd) > jdExcerptLen {
		jd = jd[:jdExcerptLen] + "..."
	}

	user := fmt.Sprintf(`Generate the next interview question.

CONTEXT:
- Role: %s
- Seniority: %s
- Focus Areas: %s
- Skill Gaps to Explore: %s
- Job Description Summary: %s

PREVIOUS QUESTIONS ASKED (avoid repetition):
%s

Generate a NEW question that:
1. Is appropriate for %s level
2. Focuses on one of the gaps or focus areas
3. Is different from previous questions
4. Tests practical understanding, not memorization

Return as JSON:
{
    "question": "Your interview question here",
    "difficulty": "easy/medium/hard",
    "topic": "The main topic this tests",
    "explanation": "Brief explanation of what this question assesses"
}`,
		in.Role, in.Seniority, strings.Join(in.FocusAreas, ", "),
		strings.Join(in.Gaps, ", "), jd, previous, in.Seniority)

	reply, err := gen.Generate(ctx, model.Request{
		System:      questionerPrompt,
		User:        user,
		Temperature: 0.7,
		MaxTokens:   2000,
	})
	if err != nil {
		return Question{}, fmt.Errorf("question generation: %w", err)
	}

	var q Question
	if err := jsonblock.Unmarshal(reply, &q); err != nil || q.Text == "" {
		return Question{
			Text:        "Tell me about a challenging technical problem you've solved recently.",
			Difficulty:  "medium",
			Topic:       "Problem Solving",
			Explanation: "This assesses your problem-solving approach and technical depth.",
		}, nil
	}
	if q.Difficulty == "" {
		q.Difficulty = "medium"
	}
	if q.Topic == "" {
		q.Topic = "General"
	}
	return q, nil
}
