package engine

import (
	"context"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/config"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
	"github.com/tetraminz/sales_trainer/internal/health"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

// DialogueService — внешний генератор реплик клиента. Контракт ядра:
// повторы по max_retries и fallback-фраза; реализация внутри себя
// не ретраит.
type DialogueService interface {
	GenerateTurn(ctx context.Context, req TurnRequest) (TurnReply, error)
}

// TurnRequest — срез состояния для генератора.
type TurnRequest struct {
	Vehicle        factcheck.GroundTruth `json:"vehicle"`
	Dealership     config.Dealership     `json:"dealership"`
	Phase          string                `json:"phase"`
	Health         health.DialogHealth   `json:"health"`
	Topics         topic.Map             `json:"topics"`
	ManagerMessage string                `json:"manager_message"`
	RecentHistory  []Message             `json:"recent_history"`
	TurnLimit      int                   `json:"turn_limit"`
	ClientTurns    int                   `json:"client_turns"`
	Signal         behavior.Signal       `json:"behavior_signal"`
}

// TurnReply — ответ генератора.
type TurnReply struct {
	ClientMessage   string      `json:"client_message"`
	EndConversation bool        `json:"end_conversation"`
	Diagnostics     Diagnostics `json:"diagnostics"`
}

// fallbackClientLine — детерминированная фраза-заглушка: генератор
// недоступен, но инварианты лестницы должны примениться полностью.
const fallbackClientLine = "Подождите секунду, я отвлекся. Повторите, пожалуйста?"

// Закрывающие фразы клиента при терминальном провале.
var closingLines = map[health.FailureReason]string{
	health.ReasonProfanity:         "Я не намерен слушать такое. Всего доброго.",
	health.ReasonBadTone:           "Мне неприятен этот тон. Разговор окончен.",
	health.ReasonRepeatedLowEffort: "Я так и не получил ни одного внятного ответа. Не тратьте мое время.",
	health.ReasonIgnoredQuestions:  "Вы игнорируете мои вопросы. До свидания.",
	health.ReasonPoorCommunication: "Знаете, мне этот разговор ничего не дал. Всего доброго.",
}

const criticalEvasionClosingLine = "Я несколько раз спрашивал об этом и не услышал ответа. До свидания."

func closingLineFor(reason health.FailureReason) string {
	if line, ok := closingLines[reason]; ok {
		return line
	}
	if _, ok := health.IsCriticalEvasion(reason); ok {
		return criticalEvasionClosingLine
	}
	return closingLines[health.ReasonPoorCommunication]
}
