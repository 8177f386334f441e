package health

import (
	"testing"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

func TestApplyTurnToxic(t *testing.T) {
	h := NewDialogHealth()
	g := LoopGuard{}
	h, g = ApplyTurn(h, g, behavior.Signal{Toxic: true, LowEffort: true})

	if h.Irritation != 40 || h.Patience != 60 || h.Trust != 30 {
		t.Fatalf("unexpected health after toxic turn: %+v", h)
	}
	if g.UnansweredQuestionStreak != 1 {
		t.Fatalf("unanswered streak must increment, got %d", g.UnansweredQuestionStreak)
	}
	// low_effort все равно двигает свой счетчик.
	if g.LowEffortStreak != 1 {
		t.Fatalf("low effort streak must increment, got %d", g.LowEffortStreak)
	}
}

func TestApplyTurnLowEffort(t *testing.T) {
	h := NewDialogHealth()
	g := LoopGuard{}
	h, g = ApplyTurn(h, g, behavior.Signal{LowEffort: true, Evasion: true})

	if h.Irritation != 15 || h.Patience != 88 || h.Trust != 62 {
		t.Fatalf("unexpected health after low-effort turn: %+v", h)
	}
	if g.LowEffortStreak != 1 || g.UnansweredQuestionStreak != 1 {
		t.Fatalf("unexpected guard: %+v", g)
	}
}

func TestApplyTurnEvasionOnly(t *testing.T) {
	h := NewDialogHealth()
	g := LoopGuard{}
	h, g = ApplyTurn(h, g, behavior.Signal{Evasion: true})

	if h.Irritation != 10 || h.Patience != 92 {
		t.Fatalf("unexpected health after evasion turn: %+v", h)
	}
	if h.Trust != 70 {
		t.Fatalf("evasion-only must not touch trust: %+v", h)
	}
	if g.LowEffortStreak != 0 {
		t.Fatalf("low effort streak must reset: %+v", g)
	}
}

func TestApplyTurnGoodTurnResets(t *testing.T) {
	h := NewDialogHealth()
	g := LoopGuard{UnansweredQuestionStreak: 2, LowEffortStreak: 2}
	h, g = ApplyTurn(h, g, behavior.Signal{})

	if g.UnansweredQuestionStreak != 0 || g.LowEffortStreak != 0 {
		t.Fatalf("good turn must reset both streaks: %+v", g)
	}
	if h != NewDialogHealth() {
		t.Fatalf("good turn must not change health: %+v", h)
	}
}

func TestApplyTurnClamps(t *testing.T) {
	h := DialogHealth{Patience: 10, Trust: 5, Irritation: 90}
	g := LoopGuard{}
	h, _ = ApplyTurn(h, g, behavior.Signal{Toxic: true})

	if h.Patience != 0 || h.Trust != 0 || h.Irritation != 100 {
		t.Fatalf("health must clamp to [0,100]: %+v", h)
	}
}

func TestLadderToxicityShortCircuits(t *testing.T) {
	// Токсичность с одновременным low effort и стриками: правило 1
	// выигрывает у всех остальных.
	in := PreTurnInput{
		Signal:   behavior.Signal{Toxic: true, ProfanityMatched: true, LowEffort: true},
		Conflict: factcheck.Conflict{HasConflict: true},
		Health:   DialogHealth{Patience: 0, Irritation: 100},
		Guard:    LoopGuard{UnansweredQuestionStreak: 5, LowEffortStreak: 5},
	}
	d := DecidePreTurn(in)
	if d.Action != ActionFail || d.Reason != ReasonProfanity {
		t.Fatalf("expected profanity fail, got %+v", d)
	}
}

func TestLadderBadToneWithoutProfanity(t *testing.T) {
	d := DecidePreTurn(PreTurnInput{Signal: behavior.Signal{Toxic: true}})
	if d.Action != ActionFail || d.Reason != ReasonBadTone {
		t.Fatalf("expected BAD_TONE, got %+v", d)
	}
}

func TestLadderLowEffortStreak(t *testing.T) {
	d := DecidePreTurn(PreTurnInput{Guard: LoopGuard{LowEffortStreak: 3}})
	if d.Action != ActionFail || d.Reason != ReasonRepeatedLowEffort {
		t.Fatalf("expected REPEATED_LOW_EFFORT, got %+v", d)
	}

	d = DecidePreTurn(PreTurnInput{Guard: LoopGuard{LowEffortStreak: 2}})
	if d.Action != ActionContinue {
		t.Fatalf("streak of 2 must continue, got %+v", d)
	}
}

func TestLadderClarifyNotTerminal(t *testing.T) {
	d := DecidePreTurn(PreTurnInput{
		Conflict: factcheck.Conflict{HasConflict: true, Field: factcheck.FieldYear},
	})
	if d.Action != ActionClarify {
		t.Fatalf("fact conflict must branch to clarify, got %+v", d)
	}
	if d.Reason != "" {
		t.Fatalf("clarify must not carry a failure reason: %+v", d)
	}
}

func TestLadderClarifyLosesToStreak(t *testing.T) {
	// Правило 2 стоит выше правила 3.
	d := DecidePreTurn(PreTurnInput{
		Conflict: factcheck.Conflict{HasConflict: true},
		Guard:    LoopGuard{LowEffortStreak: 3},
	})
	if d.Action != ActionFail || d.Reason != ReasonRepeatedLowEffort {
		t.Fatalf("streak must outrank clarify, got %+v", d)
	}
}

func TestLadderHealthCollapse(t *testing.T) {
	d := DecidePreTurn(PreTurnInput{Health: DialogHealth{Patience: 14, Irritation: 66}})
	if d.Action != ActionFail || d.Reason != ReasonPoorCommunication {
		t.Fatalf("expected POOR_COMMUNICATION, got %+v", d)
	}

	// Границы: ровно на пороге — еще не провал.
	d = DecidePreTurn(PreTurnInput{Health: DialogHealth{Patience: 15, Irritation: 66}})
	if d.Action != ActionContinue {
		t.Fatalf("patience=15 must continue, got %+v", d)
	}
	d = DecidePreTurn(PreTurnInput{Health: DialogHealth{Patience: 14, Irritation: 65}})
	if d.Action != ActionContinue {
		t.Fatalf("irritation=65 must continue, got %+v", d)
	}
}

func TestLadderIgnoredQuestionsOutranksPoorCommunication(t *testing.T) {
	d := DecidePreTurn(PreTurnInput{
		Health: DialogHealth{Patience: 0, Irritation: 100},
		Guard:  LoopGuard{UnansweredQuestionStreak: 3},
	})
	if d.Reason != ReasonIgnoredQuestions {
		t.Fatalf("streak trigger must report IGNORED_QUESTIONS, got %+v", d)
	}
}

func TestDecidePostTurnCriticalEvasion(t *testing.T) {
	m := topic.NewMap()
	m = m.RecordEvasion(topic.NeedsDiscovery)
	m = m.RecordEvasion(topic.NeedsDiscovery)

	d := DecidePostTurn(m)
	if d.Action != ActionFail {
		t.Fatalf("expected fail, got %+v", d)
	}
	code, ok := IsCriticalEvasion(d.Reason)
	if !ok || code != topic.NeedsDiscovery {
		t.Fatalf("unexpected reason %q", d.Reason)
	}
	if string(d.Reason) != "CRITICAL_EVASION:needs_discovery" {
		t.Fatalf("reason format: %q", d.Reason)
	}
}

func TestDecidePostTurnClean(t *testing.T) {
	if d := DecidePostTurn(topic.NewMap()); d.Action != ActionContinue {
		t.Fatalf("clean topics must continue, got %+v", d)
	}
}

func TestRuleNamesOrder(t *testing.T) {
	want := []string{"toxicity", "low_effort_streak", "fact_contradiction", "health_collapse", "critical_evasion"}
	got := RuleNames()
	if len(got) != len(want) {
		t.Fatalf("rule names: %v", got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("ladder order changed: %v", got)
		}
	}
}

func TestRegisterClarify(t *testing.T) {
	h := NewDialogHealth()
	h = h.RegisterClarify()
	if h.Confusion != 15 {
		t.Fatalf("confusion=%d want 15", h.Confusion)
	}
}
