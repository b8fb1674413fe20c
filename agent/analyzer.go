package agent

import (
	"context"
	"fmt"
	"strings"

	"github.com/hupe1980/interviewmesh/core"
	"github.com/hupe1980/interviewmesh/internal/jsonblock"
	"github.com/hupe1980/interviewmesh/model"
)

const analyzerPrompt = `You are an expert Resume Analyzer Agent for a technical interview platform.

Your job is to analyze a candidate's resume against a job description and role to:
1. Detect the candidate's seniority level (junior, mid, senior)
2. Identify key strengths relevant to the role
3. Identify skill gaps compared to the job requirements
4. Determine focus areas for the interview

Be objective and thorough in your analysis. Consider:
- Years of experience (if mentioned)
- Project complexity and scope
- Technologies and skills listed
- Leadership/mentoring experience
- Educational background

Output your analysis as a JSON object with these exact fields:
- seniority: "junior", "mid", or "senior"
- strengths: array of 3-5 key strengths
- gaps: array of 2-4 skill gaps or areas to explore
- focus_areas: array of 3-5 topics to focus on during interview

Be honest but constructive. This is for a learning-focused mock interview.`

// AnalyzeResume derives a candidate profile from the resume, the job
// description and the target role. An unparseable reply yields a neutral
// mid-level profile.
func AnalyzeResume(ctx context.Context, gen model.Generator, resume, jobDescription, role string) (core.Profile, error) {
	user := fmt.Sprintf(`Analyze this resume for the role of %s:

RESUME:
%s

JOB DESCRIPTION:
%s

Provide your analysis as a JSON object.`, role, resume, jobDescription)

	reply, err := gen.Generate(ctx, model.Request{
		System:      analyzerPrompt,
		User:        user,
		Temperature: 0.3,
		MaxTokens:   2000,
	})
	if err != nil {
		return core.Profile{}, fmt.Errorf("resume analysis: %w", err)
	}

	var raw struct {
		Seniority  string   `json:"seniority"`
		Strengths  []string `json:"strengths"`
		Gaps       []string `json:"gaps"`
		FocusAreas []string `json:"focus_areas"`
	}
	if err := jsonblock.Unmarshal(reply, &raw); err != nil {
		return core.Profile{
			Seniority:  core.SeniorityMid,
			Strengths:  []string{"Technical skills"},
			Gaps:       []string{"To be assessed during interview"},
			FocusAreas: []string{"General technical knowledge"},
		}, nil
	}

	return core.Profile{
		Seniority:  core.ParseSeniority(strings.ToLower(raw.Seniority)),
		Strengths:  cap5(raw.Strengths),
		Gaps:       capN(raw.Gaps, 4),
		FocusAreas: cap5(raw.FocusAreas),
	}, nil
}

func cap5(s []string) []string { return capN(s, 5) }

func capN(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
