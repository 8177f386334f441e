package engine

import (
	"time"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/config"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
	"github.com/tetraminz/sales_trainer/internal/health"
	"github.com/tetraminz/sales_trainer/internal/scoring"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

// Role — автор сообщения в истории сессии.
type Role string

const (
	RoleManager Role = "manager"
	RoleClient  Role = "client"
)

// Message — одно сообщение истории. Signal прикрепляется к репликам
// менеджера и после записи не меняется.
type Message struct {
	Role   Role             `json:"role"`
	Text   string           `json:"text"`
	Signal *behavior.Signal `json:"signal,omitempty"`
	At     time.Time        `json:"at"`
}

// SessionStatus — статус сессии для внешнего адаптера.
type SessionStatus string

const (
	StatusActive    SessionStatus = "continue"
	StatusFailed    SessionStatus = "fail"
	StatusCompleted SessionStatus = "completed"
)

// SessionState — полный срез состояния сессии. Снаружи хранится как
// непрозрачный сериализованный снапшот; мутируется только движком,
// один writer на сессию.
type SessionState struct {
	SessionID  string                `json:"session_id"`
	Vehicle    factcheck.GroundTruth `json:"vehicle"`
	Dealership config.Dealership     `json:"dealership"`

	Status        SessionStatus        `json:"status"`
	FailureReason health.FailureReason `json:"failure_reason,omitempty"`

	Phase             string `json:"phase"`
	ManagerTone       string `json:"manager_tone"`
	ManagerEngagement string `json:"manager_engagement"`

	Health health.DialogHealth `json:"health"`
	Guard  health.LoopGuard    `json:"guard"`
	Topics topic.Map           `json:"topics"`

	Checklist scoring.Checklist `json:"checklist"`
	History   []Message         `json:"history"`

	ClientTurns            int  `json:"client_turns"`
	MisinformationDetected bool `json:"misinformation_detected"`

	// Накопленные за сессию счетчики для aux-сигналов оценки.
	ToxicTurns       int `json:"toxic_turns"`
	LowEffortTurns   int `json:"low_effort_turns"`
	PassiveTurns     int `json:"passive_turns"`
	WebsiteRedirects int `json:"website_redirects"`

	Outcome *SessionOutcome `json:"outcome,omitempty"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// SessionOutcome — терминальное значение сессии. Создается ровно один
// раз, в момент перехода в терминальное состояние.
type SessionOutcome struct {
	SessionID       string                     `json:"session_id"`
	Score           int                        `json:"score"`
	DimensionScores map[scoring.Dimension]int  `json:"dimension_scores"`
	Checklist       scoring.Checklist          `json:"checklist"`
	Issues          []scoring.Issue            `json:"issues"`
	Recommendations []string                   `json:"recommendations"`
	EarlyFail       bool                       `json:"early_fail"`
	FailureReason   health.FailureReason       `json:"failure_reason,omitempty"`
	FinishedAt      time.Time                  `json:"finished_at"`
}

// TurnResult — ответ адаптеру на одну реплику менеджера.
type TurnResult struct {
	CustomerReply string               `json:"customer_reply"`
	Status        SessionStatus        `json:"session_status"`
	FailureReason health.FailureReason `json:"failure_reason,omitempty"`
}

// Diagnostics — разбор хода от генератора диалога. Upstream
// вероятностный: каждое поле опционально, неизвестные коды
// игнорируются при фолдинге.
type Diagnostics struct {
	CurrentPhase           string                    `json:"current_phase"`
	TopicsAddressed        []string                  `json:"topics_addressed"`
	TopicsEvaded           []string                  `json:"topics_evaded"`
	ManagerTone            string                    `json:"manager_tone"`
	ManagerEngagement      string                    `json:"manager_engagement"`
	MisinformationDetected bool                      `json:"misinformation_detected"`
	ChecklistUpdate        map[string]ChecklistDelta `json:"checklist_update"`
}

// ChecklistDelta — обновление одного пункта чеклиста из диагностики.
type ChecklistDelta struct {
	Status   string   `json:"status"`
	Evidence []string `json:"evidence"`
	Comment  string   `json:"comment"`
}
