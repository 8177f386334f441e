// Package topic отслеживает жизненный цикл тем разговора.
//
// Термины:
// - Topic: дискретная цель диалога, которую клиент ждет от менеджера
//   (приветствие, выяснение потребностей, следующий шаг и т.д.)
// - Evasion: менеджер проигнорировал тему, когда она была уместна.
//
// Важный инвариант:
// - Переходы статуса строго по таблице, любой другой запрос отклоняется
//   без ошибки (valid=false): диагностика приходит от вероятностного
//   upstream и не может считаться достоверной.
package topic

// Code — код темы. Закрытое множество, посторонние коды игнорируются
// на границе (см. engine).
type Code string

const (
	Introduction          Code = "introduction"
	VehicleIdentification Code = "vehicle_identification"
	NeedsDiscovery        Code = "needs_discovery"
	NextStep              Code = "next_step"
	Scheduling            Code = "scheduling"
	FollowUp              Code = "follow_up"
	Pricing               Code = "pricing"
	TradeIn               Code = "trade_in"
	ObjectionHandling     Code = "objection_handling"
)

// Status — статус темы в рамках сессии.
type Status string

const (
	StatusNone      Status = "none"
	StatusAsked     Status = "asked"
	StatusAnswered  Status = "answered"
	StatusClarified Status = "clarified"
	StatusClosed    Status = "closed"
)

// ReopenReason — причина повторного открытия закрытой темы.
type ReopenReason string

const (
	ReasonContradiction  ReopenReason = "contradiction"
	ReasonMisinformation ReopenReason = "misinformation"
	ReasonIgnored        ReopenReason = "ignored"
)

// State — состояние одной темы.
type State struct {
	Status       Status `json:"status"`
	EvasionCount int    `json:"evasion_count"`
}

// Map — статусы всех тем сессии, ключ — код темы.
type Map map[Code]State

// criticalEvasionLimit: вторая evasion по критичной теме — провал сессии.
const criticalEvasionLimit = 2

// AllCodes возвращает полный набор кодов тем в фиксированном порядке.
func AllCodes() []Code {
	return []Code{
		Introduction,
		VehicleIdentification,
		NeedsDiscovery,
		NextStep,
		Scheduling,
		FollowUp,
		Pricing,
		TradeIn,
		ObjectionHandling,
	}
}

// criticalCodes — темы, уклонение от которых фатально для сессии.
var criticalCodes = map[Code]struct{}{
	Introduction:          {},
	VehicleIdentification: {},
	NeedsDiscovery:        {},
	NextStep:              {},
}

// IsCritical сообщает, относится ли тема к критичным.
func IsCritical(code Code) bool {
	_, ok := criticalCodes[code]
	return ok
}

// IsKnown сообщает, входит ли код в закрытое множество тем.
func IsKnown(code Code) bool {
	switch code {
	case Introduction, VehicleIdentification, NeedsDiscovery, NextStep,
		Scheduling, FollowUp, Pricing, TradeIn, ObjectionHandling:
		return true
	}
	return false
}

// NewMap создает карту тем: все темы в none, счетчики по нулям.
func NewMap() Map {
	m := make(Map, len(AllCodes()))
	for _, code := range AllCodes() {
		m[code] = State{Status: StatusNone}
	}
	return m
}

// Clone возвращает независимую копию карты.
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for code, st := range m {
		out[code] = st
	}
	return out
}

// allowedTransitions — таблица допустимых переходов. closed терминален.
var allowedTransitions = map[Status][]Status{
	StatusNone:      {StatusAsked},
	StatusAsked:     {StatusAnswered, StatusAsked},
	StatusAnswered:  {StatusClarified, StatusClosed},
	StatusClarified: {StatusClosed},
	StatusClosed:    {},
}

func transitionAllowed(from, to Status) bool {
	for _, next := range allowedTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// Advance пытается перевести тему в target. Недопустимый переход
// возвращает карту без изменений и valid=false — для вызывающего это
// не ошибка.
func (m Map) Advance(code Code, target Status) (Map, bool) {
	st, ok := m[code]
	if !ok || !transitionAllowed(st.Status, target) {
		return m, false
	}
	out := m.Clone()
	st.Status = target
	out[code] = st
	return out, true
}

// RecordEvasion увеличивает счетчик уклонений темы.
func (m Map) RecordEvasion(code Code) Map {
	st, ok := m[code]
	if !ok {
		return m
	}
	out := m.Clone()
	st.EvasionCount++
	out[code] = st
	return out
}

// CriticalEvasionResult — итог проверки критичных уклонений.
type CriticalEvasionResult struct {
	ShouldFail  bool
	FailedTopic Code
}

// CheckCriticalEvasions возвращает ShouldFail=true, как только любая
// критичная тема набрала две evasion. Некритичные темы провал не дают
// при любом счетчике. Порядок обхода фиксирован для воспроизводимости.
func (m Map) CheckCriticalEvasions() CriticalEvasionResult {
	for _, code := range AllCodes() {
		if !IsCritical(code) {
			continue
		}
		if st, ok := m[code]; ok && st.EvasionCount >= criticalEvasionLimit {
			return CriticalEvasionResult{ShouldFail: true, FailedTopic: code}
		}
	}
	return CriticalEvasionResult{}
}

// CanReopen решает, можно ли снова перевести тему в asked.
// Закрытую тему открывают только противоречие или дезинформация;
// "проигнорировано" достаточно лишь для незакрытых тем.
func (m Map) CanReopen(code Code, reason ReopenReason) bool {
	st, ok := m[code]
	if !ok {
		return false
	}
	if st.Status != StatusClosed {
		return true
	}
	return reason == ReasonContradiction || reason == ReasonMisinformation
}
