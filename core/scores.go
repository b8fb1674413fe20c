package core

import "math"

// ScoreCard holds the three 0–10 scoring components used throughout the
// interview: technical understanding, system design thinking and
// communication clarity.
type ScoreCard struct {
	Technical     float64 `json:"technical"`
	Design        float64 `json:"design"`
	Communication float64 `json:"communication"`
}

// Mean returns the unweighted average of the three components.
func (s ScoreCard) Mean() float64 {
	return (s.Technical + s.Design + s.Communication) / 3
}

// Clamped returns a copy with every component forced into the [0,10] range.
func (s ScoreCard) Clamped() ScoreCard {
	return ScoreCard{
		Technical:     clamp(s.Technical),
		Design:        clamp(s.Design),
		Communication: clamp(s.Communication),
	}
}

func clamp(v float64) float64 { return math.Min(10, math.Max(0, v)) }

// RunningAverage computes the per-component mean over every history entry
// that carries a score, rounded to one decimal place. Entries without a
// score are ignored; an empty (or fully unscored) history yields all zeros.
func RunningAverage(history []QAItem) ScoreCard {
	var totals ScoreCard
	count := 0
	for _, qa := range history {
		if qa.Score == nil {
			continue
		}
		totals.Technical += qa.Score.Technical
		totals.Design += qa.Score.Design
		totals.Communication += qa.Score.Communication
		count++
	}
	if count == 0 {
		return ScoreCard{}
	}
	n := float64(count)
	return ScoreCard{
		Technical:     round1(totals.Technical / n),
		Design:        round1(totals.Design / n),
		Communication: round1(totals.Communication / n),
	}
}

func round1(v float64) float64 { return math.Round(v*10) / 10 }

// Recommendation is the final hiring verdict.
type Recommendation string

const (
	RecommendHire       Recommendation = "Hire"
	RecommendBorderline Recommendation = "Borderline"
	RecommendNoHire     Recommendation = "No-Hire"
)

// RecommendationForScore derives a verdict from a numeric average:
// ≥7 Hire, ≥5 Borderline, otherwise No-Hire. Used as the fallback when the
// feedback collaborator returns unparseable output.
func RecommendationForScore(avg float64) Recommendation {
	switch {
	case avg >= 7:
		return RecommendHire
	case avg >= 5:
		return RecommendBorderline
	default:
		return RecommendNoHire
	}
}

// ParseRecommendation normalizes model output to a known verdict,
// defaulting to Borderline.
func ParseRecommendation(s string) Recommendation {
	switch Recommendation(s) {
	case RecommendHire, RecommendBorderline, RecommendNoHire:
		return Recommendation(s)
	default:
		return RecommendBorderline
	}
}
