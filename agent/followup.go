package agent

import (
	"context"
	"fmt"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/internal/jsonblock"
	"github.com/hupe1980/interviewmesh/model"
)

const followupPrompt = `You are an expert Follow-up Interview Agent.

Your role is to determine if a candidate's answer needs clarification and generate appropriate follow-up questions.

You should ask follow-up questions when:
1. The answer is vague or lacks specific details
2. The candidate shows partial understanding but missed key points
3. The reasoning is unclear or incomplete
4. There's an interesting point worth exploring deeper
5. Technical accuracy needs verification

You should NOT ask follow-up when:
1. The answer is complete and demonstrates full understanding
2. The candidate clearly doesn't know (move on instead)
3. You've already asked 2+ follow-ups on the same question

Be supportive and encouraging. Frame follow-ups as curiosity, not criticism.
Help the candidate showcase their knowledge.

Output JSON with:
- needs_followup: boolean
- followup_question: string (if needed)
- reason: why you're asking (shared with candidate for transparency)`

// maxFollowupsPerQuestion is the hard cap on follow-ups for one question,
// enforced both here and by the phase controller.
const maxFollowupsPerQuestion = 2

// FollowupDecision is the collaborator's verdict on whether to probe deeper.
type FollowupDecision struct {
	NeedsFollowup bool   `json:"needs_followup"`
	Question      string `json:"followup_question"`
	Reason        string `json:"reason"`
}

// CheckFollowup decides whether the answer warrants a follow-up question.
// Once followupCount reaches the cap the decision is negative without a
// model call. An unparseable reply means no follow-up.
func CheckFollowup(ctx context.Context, gen model.Generator, originalQuestion, answer string, seniority core.Seniority, followupCount int) (FollowupDecision, error) {
	if followupCount >= maxFollowupsPerQuestion {
		return FollowupDecision{Reason: "Maximum follow-ups reached for this question"}, nil
	}

	user := fmt.Sprintf(`Analyze this Q&A and determine if follow-up is needed.

ORIGINAL QUESTION:
%s

CANDIDATE'S ANSWER:
%s

CANDIDATE SENIORITY: %s
FOLLOW-UPS ALREADY ASKED: %d

Consider:
1. Is the answer complete for their seniority level?
2. Are there gaps in understanding?
3. Is there something worth exploring deeper?

Return as JSON:
{
    "needs_followup": true/false,
    "followup_question": "Your follow-up question if needed",
    "reason": "Why you're asking this (will be shown to candidate)"
}`, originalQuestion, answer, seniority, followupCount)

	reply, err := gen.Generate(ctx, model.Request{
		System:      followupPrompt,
		User:        user,
		Temperature: 0.5,
		MaxTokens:   1000,
	})
	if err != nil {
		return FollowupDecision{}, fmt.Errorf("follow-up decision: %w", err)
	}

	var d FollowupDecision
	if err := jsonblock.Unmarshal(reply, &d); err != nil {
		return FollowupDecision{Reason: "Proceeding to next question"}, nil
	}
	if d.NeedsFollowup && d.Question == "" {
		d.NeedsFollowup = false
	}
	if d.Reason == "" {
		d.Reason = "Exploring your understanding further"
	}
	return d, nil
}
