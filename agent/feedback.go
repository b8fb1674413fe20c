package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/internal/jsonblock"
	"github.com/hupe1980/interviewmesh/model"
)

const feedbackPrompt = `You are an expert Interview Feedback Agent.

Your role is to generate comprehensive, constructive feedback reports after an interview.

Your feedback must include:
1. Overall Assessment - Brief summary of performance
2. Scoring Summary - Technical, Design, Communication scores explained
3. Key Strengths - What the candidate did well
4. Areas for Improvement - Constructive feedback on gaps
5. Hiring Recommendation - Hire / Borderline / No-Hire with justification
6. Skill Roadmap - Specific learning recommendations

TONE GUIDELINES:
- Be honest but encouraging
- Focus on growth potential
- Provide actionable feedback
- Acknowledge effort and good attempts
- Frame weaknesses as learning opportunities

RECOMMENDATION CRITERIA:
- Hire: Meets or exceeds expectations for the role and seniority
- Borderline: Shows potential but has notable gaps
- No-Hire: Significant gaps that would require extensive training

Remember: This is a mock interview for learning. Be supportive while being truthful.`

// answerExcerptLen bounds per-answer text quoted in the report prompt.
const answerExcerptLen = 200

// Feedback is the final interview report.
type Feedback struct {
	Report         string              `json:"report"`
	Recommendation core.Recommendation `json:"recommendation"`
	SkillRoadmap   []string            `json:"skill_roadmap"`
}

// FeedbackInput carries everything the report generation needs.
type FeedbackInput struct {
	History     []core.QAItem
	Seniority   core.Seniority
	Role        string
	Strengths   []string
	Gaps        []string
	FinalScores core.ScoreCard
}

// GenerateFeedback produces the final report, hiring recommendation and
// skill roadmap. An unparseable reply falls back to a basic generated
// report with the recommendation derived from the numeric score average.
func GenerateFeedback(ctx context.Context, gen model.Generator, in FeedbackInput) (Feedback, error) {
	var qaSummary strings.Builder
	for i, qa := range in.History {
		answer := qa.Answer
		if len(answer) > answerExcerptLen {
			answer = answer[:answerExcerptLen] + "..."
		}
		scores := "unscored"
		if qa.Score != nil {
			scores = fmt.Sprintf("Technical=%.0f, Design=%.0f, Communication=%.0f",
				qa.Score.Technical, qa.Score.Design, qa.Score.Communication)
		}
		fmt.Fprintf(&qaSummary, "\nQuestion %d: %s\nAnswer: %s\nScores: %s\n", i+1, qa.Question, answer, scores)
	}

	user := fmt.Sprintf(`Generate a comprehensive feedback report.

INTERVIEW SUMMARY:
- Role: %s
- Detected Seniority: %s
- Number of Questions: %d

FINAL AVERAGE SCORES:
- Technical: %.1f/10
- Design: %.1f/10
- Communication: %.1f/10

IDENTIFIED STRENGTHS: %s
IDENTIFIED GAPS: %s

Q&A HISTORY:
%s

Generate a feedback report with:
1. Overall assessment (2-3 sentences)
2. Detailed feedback for each scoring category
3. Hiring recommendation with clear justification
4. Learning roadmap with specific resources/topics

Return as JSON:
{
    "report": "Full text report here (use markdown formatting)",
    "recommendation": "Hire/Borderline/No-Hire",
    "skill_roadmap": ["Specific learning recommendation 1", "...", "..."]
}`,
		in.Role, in.Seniority, len(in.History),
		in.FinalScores.Technical, in.FinalScores.Design, in.FinalScores.Communication,
		strings.Join(in.Strengths, ", "), strings.Join(in.Gaps, ", "), qaSummary.String())

	reply, err := gen.Generate(ctx, model.Request{
		System:      feedbackPrompt,
		User:        user,
		Temperature: 0.5,
		MaxTokens:   3000,
	})
	if err != nil {
		return Feedback{}, fmt.Errorf("feedback generation: %w", err)
	}

	var raw struct {
		Report         string   `json:"report"`
		Recommendation string   `json:"recommendation"`
		SkillRoadmap   []string `json:"skill_roadmap"`
	}
	if err := jsonblock.Unmarshal(reply, &raw); err != nil || raw.Report == "" {
		return fallbackFeedback(in), nil
	}

	fb := Feedback{
		Report:         raw.Report,
		Recommendation: core.ParseRecommendation(raw.Recommendation),
		SkillRoadmap:   raw.SkillRoadmap,
	}
	if len(fb.SkillRoadmap) == 0 {
		fb.SkillRoadmap = []string{"Continue practicing technical concepts"}
	}
	return fb, nil
}

// fallbackFeedback builds a basic report when the model reply fails the
// structured contract. The recommendation follows the numeric average.
func fallbackFeedback(in FeedbackInput) Feedback {
	rec := core.RecommendationForScore(in.FinalScores.Mean())

	report := fmt.Sprintf(`## Interview Feedback Report

### Overall Assessment
You completed a %d-question interview for the %s position.

### Scores
- Technical Understanding: %.1f/10
- System Design: %.1f/10
- Communication: %.1f/10

### Recommendation: %s

Thank you for participating in this mock interview. Continue practicing to improve your skills.`,
		len(in.History), in.Role,
		in.FinalScores.Technical, in.FinalScores.Design, in.FinalScores.Communication, rec)

	roadmap := in.Gaps
	if len(roadmap) == 0 {
		roadmap = []string{"Review core technical concepts"}
	}
	return Feedback{Report: report, Recommendation: rec, SkillRoadmap: roadmap}
}
