// Package health — эмоциональное состояние виртуального клиента
// и лестница эскалации.
//
// Термины:
// - DialogHealth: patience/trust/confusion/irritation, каждое в [0,100].
// - LoopGuard: счетчики подряд идущих плохих ходов.
// - Ladder: фиксированный по приоритету список guard-предикатов,
//   решающий continue / clarify / fail.
package health

import (
	"github.com/tetraminz/sales_trainer/internal/behavior"
)

// DialogHealth — состояние клиента, мутируется каждый ход.
type DialogHealth struct {
	Patience   int `json:"patience"`
	Trust      int `json:"trust"`
	Confusion  int `json:"confusion"`
	Irritation int `json:"irritation"`
}

// LoopGuard — защита от зацикливания: подряд идущие плохие ходы.
type LoopGuard struct {
	UnansweredQuestionStreak int `json:"unanswered_question_streak"`
	LowEffortStreak          int `json:"low_effort_streak"`
}

// NewDialogHealth — состояние клиента на старте сессии.
func NewDialogHealth() DialogHealth {
	return DialogHealth{Patience: 100, Trust: 70, Confusion: 0, Irritation: 0}
}

// Пороги лестницы эскалации.
const (
	patienceFloor        = 15
	irritationCeiling    = 65
	unansweredLimit      = 3
	lowEffortStreakLimit = 3
)

// Изменения здоровья за один плохой ход.
const (
	toxicIrritation = 40
	toxicPatience   = 40
	toxicTrust      = 40

	lowEffortIrritation = 15
	lowEffortPatience   = 12
	lowEffortTrust      = 8

	evasionIrritation = 10
	evasionPatience   = 8

	clarifyConfusion = 15
)

// ApplyTurn обновляет здоровье и счетчики по сигналу классификатора.
// Ветки взаимоисключающие: токсичность перекрывает low effort,
// low effort перекрывает чистую evasion. Хороший ход сбрасывает
// unanswered-счетчик.
func ApplyTurn(h DialogHealth, g LoopGuard, sig behavior.Signal) (DialogHealth, LoopGuard) {
	switch {
	case sig.Toxic:
		h.Irritation = clamp(h.Irritation + toxicIrritation)
		h.Patience = clamp(h.Patience - toxicPatience)
		h.Trust = clamp(h.Trust - toxicTrust)
		g.UnansweredQuestionStreak++
	case sig.LowEffort:
		h.Irritation = clamp(h.Irritation + lowEffortIrritation)
		h.Patience = clamp(h.Patience - lowEffortPatience)
		h.Trust = clamp(h.Trust - lowEffortTrust)
		g.UnansweredQuestionStreak++
	case sig.Evasion:
		h.Irritation = clamp(h.Irritation + evasionIrritation)
		h.Patience = clamp(h.Patience - evasionPatience)
		g.UnansweredQuestionStreak++
	default:
		g.UnansweredQuestionStreak = 0
	}

	if sig.LowEffort {
		g.LowEffortStreak++
	} else {
		g.LowEffortStreak = 0
	}

	return h, g
}

// RegisterClarify отмечает clarify-ветку: клиент запутался
// в расхождении фактов.
func (h DialogHealth) RegisterClarify() DialogHealth {
	h.Confusion = clamp(h.Confusion + clarifyConfusion)
	return h
}

func clamp(v int) int {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
