// Package engine — оркестрация одной тренировочной сессии.
//
// CASCADE одного хода менеджера:
// 1) classify: детерминированный разбор реплики.
// 2) factcheck: сверка чисел с карточкой, параллельно классификатору.
// 3) health update: здоровье клиента и счетчики.
// 4) ladder pre-turn: правила 1-4, первое сработавшее обрывает ход.
// 5) continue: генератор диалога (один retry, затем fallback),
//    фолдинг диагностики в темы/чеклист/фазу.
// 6) ladder post-turn: двойная evasion по критичной теме.
//
// Важный инвариант:
// - Терминальный переход ровно один: и провал, и естественное
//   завершение проходят через finalize и всегда дают SessionOutcome.
// - При ошибке генератора client_turns и темы не продвигаются.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/tetraminz/sales_trainer/internal/behavior"
	"github.com/tetraminz/sales_trainer/internal/config"
	"github.com/tetraminz/sales_trainer/internal/factcheck"
	"github.com/tetraminz/sales_trainer/internal/health"
	"github.com/tetraminz/sales_trainer/internal/scoring"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

// ErrSessionClosed: сессия в терминальном статусе новых реплик
// не принимает.
var ErrSessionClosed = errors.New("session is closed")

// Store — непрозрачное хранилище снапшотов сессий.
type Store interface {
	Get(ctx context.Context, id string) (*SessionState, error)
	Save(ctx context.Context, s *SessionState) error
}

const recentHistoryWindow = 6

// Engine связывает классификатор, лестницу, генератор и хранилище.
// Состояние сессии он не кэширует: каждый ход — load, mutate, save.
type Engine struct {
	classifier *behavior.Classifier
	dialogue   DialogueService
	store      Store
	cfg        config.Config
	now        func() time.Time
}

// New собирает движок. Все зависимости передаются явно: никакого
// скрытого процессного состояния, тестируется на любых фикстурах.
func New(cfg config.Config, store Store, dialogue DialogueService) *Engine {
	return &Engine{
		classifier: behavior.NewClassifier(cfg.LexiconOrDefault()),
		dialogue:   dialogue,
		store:      store,
		cfg:        cfg,
		now:        time.Now,
	}
}

// StartSession создает сессию с карточкой и контекстом из конфига.
// Пустой id — сгенерировать новый.
func (e *Engine) StartSession(ctx context.Context, id string) (*SessionState, error) {
	if strings.TrimSpace(id) == "" {
		id = uuid.NewString()
	}
	now := e.now()
	state := &SessionState{
		SessionID:  id,
		Vehicle:    e.cfg.Vehicle,
		Dealership: e.cfg.Dealership,
		Status:     StatusActive,
		Phase:      "greeting",
		Health:     health.NewDialogHealth(),
		Topics:     topic.NewMap(),
		Checklist:  scoring.NewChecklist(),
		History:    []Message{},
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := e.store.Save(ctx, state); err != nil {
		return nil, fmt.Errorf("save new session: %w", err)
	}
	return state, nil
}

// SubmitManagerTurn обрабатывает одну реплику менеджера.
func (e *Engine) SubmitManagerTurn(ctx context.Context, sessionID, text string) (TurnResult, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return TurnResult{}, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if state.Status != StatusActive {
		return TurnResult{Status: state.Status, FailureReason: state.FailureReason}, ErrSessionClosed
	}

	sig := e.classifier.Classify(text, e.behaviorContext(state))
	conflict := factcheck.Check(text, state.Vehicle)

	state.History = append(state.History, Message{
		Role:   RoleManager,
		Text:   text,
		Signal: &sig,
		At:     e.now(),
	})
	e.accumulateSignal(state, sig)
	state.Health, state.Guard = health.ApplyTurn(state.Health, state.Guard, sig)

	decision := health.DecidePreTurn(health.PreTurnInput{
		Signal:   sig,
		Conflict: conflict,
		Health:   state.Health,
		Guard:    state.Guard,
	})

	var reply string
	switch decision.Action {
	case health.ActionFail:
		reply = closingLineFor(decision.Reason)
		e.appendClientLine(state, reply)
		e.finalize(state, decision.Reason)

	case health.ActionClarify:
		// Клиент озвучивает расхождение; до генератора ход не доходит.
		reply = clarifyLine(conflict)
		e.appendClientLine(state, reply)
		state.MisinformationDetected = true
		state.Health = state.Health.RegisterClarify()

	case health.ActionContinue:
		reply = e.runDialogueTurn(ctx, state, text, sig)
		if state.Status == StatusActive {
			if post := health.DecidePostTurn(state.Topics); post.Action == health.ActionFail {
				e.finalize(state, post.Reason)
			}
		}
		if state.Status == StatusActive && state.ClientTurns >= e.cfg.TurnLimit {
			e.finalize(state, "")
		}
	}

	state.UpdatedAt = e.now()
	if err := e.store.Save(ctx, state); err != nil {
		return TurnResult{}, fmt.Errorf("save session %s: %w", sessionID, err)
	}

	return TurnResult{
		CustomerReply: reply,
		Status:        state.Status,
		FailureReason: state.FailureReason,
	}, nil
}

// Finalize завершает сессию принудительно (естественный конец со
// стороны адаптера) и возвращает итог. Повторный вызов идемпотентен.
func (e *Engine) Finalize(ctx context.Context, sessionID string) (*SessionOutcome, error) {
	state, err := e.store.Get(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load session %s: %w", sessionID, err)
	}
	if state.Outcome == nil {
		e.finalize(state, "")
		state.UpdatedAt = e.now()
		if err := e.store.Save(ctx, state); err != nil {
			return nil, fmt.Errorf("save session %s: %w", sessionID, err)
		}
	}
	return state.Outcome, nil
}

// behaviorContext: клиент ждет ответа, если его последняя реплика была
// вопросом и диалог уже начался.
func (e *Engine) behaviorContext(state *SessionState) behavior.Context {
	for i := len(state.History) - 1; i >= 0; i-- {
		msg := state.History[i]
		if msg.Role != RoleClient {
			continue
		}
		waiting := state.ClientTurns > 0 && strings.Contains(msg.Text, "?")
		return behavior.Context{LastQuestion: msg.Text, IsWaitingForAnswer: waiting}
	}
	return behavior.Context{}
}

func (e *Engine) accumulateSignal(state *SessionState, sig behavior.Signal) {
	if sig.Toxic {
		state.ToxicTurns++
	}
	if sig.LowEffort {
		state.LowEffortTurns++
	}
	for _, hit := range sig.ProhibitedPhraseHits {
		if strings.Contains(hit, "саит") || strings.Contains(hit, "website") {
			state.WebsiteRedirects++
		}
	}
}

func (e *Engine) appendClientLine(state *SessionState, text string) {
	state.History = append(state.History, Message{Role: RoleClient, Text: text, At: e.now()})
}

// runDialogueTurn зовет генератор с cfg.Dialogue.MaxRetries повторами
// (по умолчанию один). Все попытки неудачны — fallback-фраза;
// диагностики нет, поэтому client_turns и темы не двигаются.
func (e *Engine) runDialogueTurn(ctx context.Context, state *SessionState, managerText string, sig behavior.Signal) string {
	req := TurnRequest{
		Vehicle:        state.Vehicle,
		Dealership:     state.Dealership,
		Phase:          state.Phase,
		Health:         state.Health,
		Topics:         state.Topics,
		ManagerMessage: managerText,
		RecentHistory:  recentHistory(state.History),
		TurnLimit:      e.cfg.TurnLimit,
		ClientTurns:    state.ClientTurns,
		Signal:         sig,
	}

	reply, err := e.dialogue.GenerateTurn(ctx, req)
	for retry := 0; err != nil && retry < e.cfg.Dialogue.MaxRetries; retry++ {
		reply, err = e.dialogue.GenerateTurn(ctx, req)
	}
	if err != nil {
		log.Printf("session %s: dialogue service failed after retries, using fallback: %v", state.SessionID, err)
		e.appendClientLine(state, fallbackClientLine)
		return fallbackClientLine
	}

	text := strings.TrimSpace(reply.ClientMessage)
	if text == "" {
		text = fallbackClientLine
	}
	e.appendClientLine(state, text)
	state.ClientTurns++
	e.foldDiagnostics(state, reply.Diagnostics)

	if reply.EndConversation && state.Status == StatusActive {
		e.finalize(state, "")
	}
	return text
}

// foldDiagnostics сливает диагностику генератора в состояние.
// Каждое поле необязательно; неизвестные коды тем и чеклиста молча
// пропускаются, недопустимые переходы тем не фатальны.
func (e *Engine) foldDiagnostics(state *SessionState, diag Diagnostics) {
	if phase := strings.TrimSpace(diag.CurrentPhase); phase != "" {
		state.Phase = phase
	}
	if tone := strings.TrimSpace(diag.ManagerTone); tone != "" {
		state.ManagerTone = tone
	}
	if engagement := strings.TrimSpace(diag.ManagerEngagement); engagement != "" {
		state.ManagerEngagement = engagement
		if engagement == "passive" {
			state.PassiveTurns++
		}
	}
	if diag.MisinformationDetected {
		state.MisinformationDetected = true
	}

	for _, raw := range diag.TopicsAddressed {
		code := topic.Code(strings.TrimSpace(raw))
		if !topic.IsKnown(code) {
			continue
		}
		if next, ok := state.Topics.Advance(code, topic.StatusAsked); ok {
			state.Topics = next
		}
		if next, ok := state.Topics.Advance(code, topic.StatusAnswered); ok {
			state.Topics = next
		}
	}
	for _, raw := range diag.TopicsEvaded {
		code := topic.Code(strings.TrimSpace(raw))
		if !topic.IsKnown(code) {
			continue
		}
		state.Topics = state.Topics.RecordEvasion(code)
	}

	for rawCode, delta := range diag.ChecklistUpdate {
		code := scoring.ItemCode(strings.TrimSpace(rawCode))
		if !scoring.IsKnownCode(code) {
			log.Printf("session %s: unknown checklist code %q ignored", state.SessionID, rawCode)
			continue
		}
		item := state.Checklist[code]
		item.Status = scoring.ParseStatus(delta.Status)
		item.Evidence = append(item.Evidence, delta.Evidence...)
		if comment := strings.TrimSpace(delta.Comment); comment != "" {
			item.Comment = comment
		}
		state.Checklist[code] = item
	}
}

// finalize — единственная точка терминального перехода. reason пустой
// для естественного завершения.
func (e *Engine) finalize(state *SessionState, reason health.FailureReason) {
	if state.Outcome != nil {
		return
	}

	earlyFail := reason != ""
	if earlyFail {
		state.Status = StatusFailed
		state.FailureReason = reason
	} else {
		state.Status = StatusCompleted
	}

	noNextStep := state.Checklist[scoring.NextStepProposal].Status == scoring.StatusNo
	passive, passiveSeverity := e.passiveStyle(state)

	result := scoring.Score(state.Checklist, scoring.Options{
		EarlyFail:              earlyFail,
		MisinformationDetected: state.MisinformationDetected,
		NoNextStep:             noNextStep,
		PassiveStyle:           passive,
		PassiveSeverity:        passiveSeverity,
	})

	issues := scoring.DetectIssues(state.Checklist, scoring.AuxSignals{
		Profanity:       reason == health.ReasonProfanity,
		Misinformation:  state.MisinformationDetected,
		PassiveStyle:    passive,
		LowEngagement:   state.LowEffortTurns >= 2,
		WebsiteRedirect: state.WebsiteRedirects > 0,
		BadTone:         reason == health.ReasonBadTone || (state.ToxicTurns > 0 && reason != health.ReasonProfanity),
	})

	state.Outcome = &SessionOutcome{
		SessionID:       state.SessionID,
		Score:           result.Score,
		DimensionScores: result.Dimensions,
		Checklist:       state.Checklist.Clone(),
		Issues:          issues,
		Recommendations: scoring.Recommendations(issues),
		EarlyFail:       earlyFail,
		FailureReason:   reason,
		FinishedAt:      e.now(),
	}
}

// passiveStyle: один пассивный ход — mild, три и больше — strong.
func (e *Engine) passiveStyle(state *SessionState) (bool, scoring.PassiveSeverity) {
	switch {
	case state.PassiveTurns >= 3:
		return true, scoring.PassiveStrong
	case state.PassiveTurns >= 1:
		return true, scoring.PassiveMild
	}
	return false, ""
}

func recentHistory(history []Message) []Message {
	if len(history) <= recentHistoryWindow {
		return append([]Message(nil), history...)
	}
	return append([]Message(nil), history[len(history)-recentHistoryWindow:]...)
}

// clarifyLine — шаблонная реплика клиента про расхождение фактов.
func clarifyLine(c factcheck.Conflict) string {
	switch c.Field {
	case factcheck.FieldYear:
		return fmt.Sprintf("Подождите, в объявлении указан %d год, а вы говорите про %d. Как так?", c.AdvertisedValue, c.ClaimedValue)
	case factcheck.FieldPrice:
		return fmt.Sprintf("В объявлении цена %d рублей, а вы называете %d. Что из этого правда?", c.AdvertisedValue, c.ClaimedValue)
	case factcheck.FieldMileage:
		return fmt.Sprintf("В объявлении пробег %d км, а вы говорите %d. Уточните, пожалуйста.", c.AdvertisedValue, c.ClaimedValue)
	}
	return "Подождите, это расходится с тем, что написано в объявлении. Уточните, пожалуйста."
}
