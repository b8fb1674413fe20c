package core

import (
	"testing"
	"time"
)

func TestSession_FinalizeSeals(t *testing.T) {
	s := NewSession("s1")
	s.Begin(time.Now())
	s.AppendQA(QAItem{Question: "q1", Answer: "a1"})

	s.Finalize("report", RecommendHire, []string{"learn raft"}, time.Now())

	if !s.Sealed() {
		t.Fatal("session should be sealed after Finalize")
	}
	if s.CurrentPhase() != PhaseCompleted {
		t.Fatalf("expected COMPLETED phase, got %s", s.CurrentPhase())
	}

	// Every mutator must be a no-op now.
	s.AppendQA(QAItem{Question: "q2"})
	s.SetScores(ScoreCard{Technical: 1})
	s.SetPhase(PhaseQuestions)
	s.Finalize("other report", RecommendNoHire, nil, time.Now())

	if len(s.History()) != 1 {
		t.Errorf("sealed session accepted a QA item")
	}
	if s.CurrentScores() != (ScoreCard{}) {
		t.Errorf("sealed session accepted a score update")
	}
	if s.CurrentPhase() != PhaseCompleted {
		t.Errorf("sealed session left the terminal phase")
	}
	if s.Report != "report" || s.Recommendation != RecommendHire {
		t.Errorf("second Finalize overwrote final artifacts")
	}
}

func TestSession_CloneIsIndependent(t *testing.T) {
	s := NewSession("s1")
	s.SetProfile(Profile{Seniority: SenioritySenior, Gaps: []string{"k8s"}})
	s.AppendQA(QAItem{Question: "q1"})

	clone := s.Clone()
	if clone == s {
		t.Fatal("Clone should be a different pointer")
	}

	clone.AppendQA(QAItem{Question: "q2"})
	clone.Profile.Gaps[0] = "changed"

	if len(s.History()) != 1 {
		t.Error("original history grew with clone's append")
	}
	if s.Profile.Gaps[0] != "k8s" {
		t.Error("original profile shares backing array with clone")
	}
}

func TestSession_HistoryIsCopied(t *testing.T) {
	s := NewSession("s1")
	s.AppendQA(QAItem{Question: "q1"})

	history := s.History()
	history[0].Question = "changed"

	if s.History()[0].Question != "q1" {
		t.Error("History should return a defensive copy")
	}
}

func TestSession_Summarize(t *testing.T) {
	s := NewSession("s1")
	s.Role = "Backend Engineer"
	start := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	s.Begin(start)
	s.AppendQA(QAItem{Question: "q1"})
	s.Finalize("r", RecommendBorderline, nil, start.Add(28*time.Minute))

	sum := s.Summarize()
	if sum.SessionID != "s1" || sum.QuestionCount != 1 {
		t.Fatalf("unexpected summary: %+v", sum)
	}
	if sum.DurationMinutes != 28 {
		t.Errorf("expected 28 minute duration, got %d", sum.DurationMinutes)
	}
	if sum.Status != StatusCompleted {
		t.Errorf("expected completed status, got %s", sum.Status)
	}
}
