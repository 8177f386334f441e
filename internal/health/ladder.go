package health

import (
	"strings"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

// Action — решение лестницы на текущем ходу.
type Action string

const (
	ActionContinue Action = "continue"
	ActionClarify  Action = "clarify"
	ActionFail     Action = "fail"
)

// FailureReason — типизированная причина провала сессии.
type FailureReason string

const (
	ReasonProfanity         FailureReason = "PROFANITY"
	ReasonBadTone           FailureReason = "BAD_TONE"
	ReasonRepeatedLowEffort FailureReason = "REPEATED_LOW_EFFORT"
	ReasonIgnoredQuestions  FailureReason = "IGNORED_QUESTIONS"
	ReasonPoorCommunication FailureReason = "POOR_COMMUNICATION"
)

const criticalEvasionPrefix = "CRITICAL_EVASION:"

// CriticalEvasionReason кодирует провал по критичной теме.
func CriticalEvasionReason(code topic.Code) FailureReason {
	return FailureReason(criticalEvasionPrefix + string(code))
}

// IsCriticalEvasion распаковывает причину CRITICAL_EVASION:<topic>.
func IsCriticalEvasion(reason FailureReason) (topic.Code, bool) {
	if !strings.HasPrefix(string(reason), criticalEvasionPrefix) {
		return "", false
	}
	return topic.Code(strings.TrimPrefix(string(reason), criticalEvasionPrefix)), true
}

// Decision — итог прохода по лестнице.
type Decision struct {
	Action   Action
	Reason   FailureReason
	RuleName string
}

// PreTurnInput — все, что видят правила 1-4 до обращения
// к генератору диалога.
type PreTurnInput struct {
	Signal   behavior.Signal
	Conflict factcheck.Conflict
	Health   DialogHealth
	Guard    LoopGuard
}

// ladderRule — один guard-предикат: либо терминальное решение,
// либо fall through к следующему правилу.
type ladderRule struct {
	name string
	eval func(PreTurnInput) (Decision, bool)
}

// preTurnLadder — правила 1-4 в порядке приоритета. Первое
// сработавшее выигрывает и обрывает ход.
var preTurnLadder = []ladderRule{
	{
		name: "toxicity",
		eval: func(in PreTurnInput) (Decision, bool) {
			if !in.Signal.Toxic {
				return Decision{}, false
			}
			reason := ReasonBadTone
			if in.Signal.ProfanityMatched {
				reason = ReasonProfanity
			}
			return Decision{Action: ActionFail, Reason: reason, RuleName: "toxicity"}, true
		},
	},
	{
		name: "low_effort_streak",
		eval: func(in PreTurnInput) (Decision, bool) {
			if in.Guard.LowEffortStreak < lowEffortStreakLimit {
				return Decision{}, false
			}
			return Decision{Action: ActionFail, Reason: ReasonRepeatedLowEffort, RuleName: "low_effort_streak"}, true
		},
	},
	{
		name: "fact_contradiction",
		eval: func(in PreTurnInput) (Decision, bool) {
			if !in.Conflict.HasConflict {
				return Decision{}, false
			}
			// Не терминально: клиент озвучивает расхождение, ход
			// заканчивается без вызова генератора.
			return Decision{Action: ActionClarify, RuleName: "fact_contradiction"}, true
		},
	},
	{
		name: "health_collapse",
		eval: func(in PreTurnInput) (Decision, bool) {
			streak := in.Guard.UnansweredQuestionStreak >= unansweredLimit
			collapsed := in.Health.Patience < patienceFloor && in.Health.Irritation > irritationCeiling
			if !streak && !collapsed {
				return Decision{}, false
			}
			reason := ReasonPoorCommunication
			if streak {
				reason = ReasonIgnoredQuestions
			}
			return Decision{Action: ActionFail, Reason: reason, RuleName: "health_collapse"}, true
		},
	},
}

// DecidePreTurn прогоняет правила 1-4. Если ни одно не сработало —
// continue: ход уходит в генератор диалога.
func DecidePreTurn(in PreTurnInput) Decision {
	for _, rule := range preTurnLadder {
		if d, ok := rule.eval(in); ok {
			return d
		}
	}
	return Decision{Action: ActionContinue}
}

// DecidePostTurn — правило 5: двойная evasion по критичной теме.
// Проверяется только после того, как ход генератора обновил
// диагностику тем.
func DecidePostTurn(topics topic.Map) Decision {
	res := topics.CheckCriticalEvasions()
	if !res.ShouldFail {
		return Decision{Action: ActionContinue}
	}
	return Decision{
		Action:   ActionFail,
		Reason:   CriticalEvasionReason(res.FailedTopic),
		RuleName: "critical_evasion",
	}
}

// RuleNames возвращает имена pre-turn правил в порядке приоритета.
// Нужен тестам и отчетам: порядок лестницы — контракт.
func RuleNames() []string {
	names := make([]string, 0, len(preTurnLadder)+1)
	for _, rule := range preTurnLadder {
		names = append(names, rule.name)
	}
	return append(names, "critical_evasion")
}
