package dialogue

import (
	"context"

	"github.com/tetraminz/sales_trainer/internal/engine"
)

// Scripted — детерминированный генератор без сети: выдает реплики по
// заранее заданному сценарию. Используется в офлайн-прогонах simulate
// и в тестах движка.
type Scripted struct {
	replies []engine.TurnReply
	next    int
}

// NewScripted создает генератор по готовому сценарию.
func NewScripted(replies []engine.TurnReply) *Scripted {
	return &Scripted{replies: replies}
}

const scriptedDefaultLine = "Понятно. А что еще можете рассказать?"

// GenerateTurn выдает следующую реплику сценария. Когда сценарий
// исчерпан — нейтральную фразу-продолжение без диагностики.
func (s *Scripted) GenerateTurn(_ context.Context, _ engine.TurnRequest) (engine.TurnReply, error) {
	if s.next < len(s.replies) {
		reply := s.replies[s.next]
		s.next++
		return reply, nil
	}
	return engine.TurnReply{ClientMessage: scriptedDefaultLine}, nil
}

// DemoScript — сценарий показательного звонка: клиент спрашивает про
// автомобиль, уточняет цену и соглашается на тест-драйв.
func DemoScript() []engine.TurnReply {
	return []engine.TurnReply{
		{
			ClientMessage: "Здравствуйте! Звоню по объявлению про Kia Sportage. Он еще в продаже?",
			Diagnostics: engine.Diagnostics{
				CurrentPhase:      "greeting",
				TopicsAddressed:   []string{"introduction"},
				ManagerTone:       "polite",
				ManagerEngagement: "active",
				ChecklistUpdate: map[string]engine.ChecklistDelta{
					"greeting": {Status: "YES", Evidence: []string{"приветствие в первой реплике"}},
				},
			},
		},
		{
			ClientMessage: "Да, тот что 2023 года. Какая у него итоговая цена и что по состоянию?",
			Diagnostics: engine.Diagnostics{
				CurrentPhase:      "vehicle_identification",
				TopicsAddressed:   []string{"vehicle_identification", "pricing"},
				ManagerTone:       "polite",
				ManagerEngagement: "active",
				ChecklistUpdate: map[string]engine.ChecklistDelta{
					"self_introduction":      {Status: "YES"},
					"vehicle_identification": {Status: "YES"},
				},
			},
		},
		{
			ClientMessage: "Беру для семьи, ездить за город. Trade-in у вас есть?",
			Diagnostics: engine.Diagnostics{
				CurrentPhase:      "needs_discovery",
				TopicsAddressed:   []string{"needs_discovery", "trade_in"},
				ManagerTone:       "polite",
				ManagerEngagement: "active",
				ChecklistUpdate: map[string]engine.ChecklistDelta{
					"needs_questions":  {Status: "YES"},
					"active_listening": {Status: "PARTIAL"},
				},
			},
		},
		{
			ClientMessage: "Хорошо, давайте запишемся на тест-драйв в субботу утром.",
			Diagnostics: engine.Diagnostics{
				CurrentPhase:      "closing",
				TopicsAddressed:   []string{"next_step", "scheduling"},
				ManagerTone:       "polite",
				ManagerEngagement: "active",
				ChecklistUpdate: map[string]engine.ChecklistDelta{
					"benefit_presentation": {Status: "YES"},
					"trade_in_offer":       {Status: "YES"},
					"next_step_proposal":   {Status: "YES"},
				},
			},
		},
		{
			ClientMessage:   "Договорились, в субботу в десять. Спасибо, до встречи!",
			EndConversation: true,
			Diagnostics: engine.Diagnostics{
				CurrentPhase:      "closing",
				TopicsAddressed:   []string{"scheduling", "follow_up"},
				ManagerTone:       "polite",
				ManagerEngagement: "active",
				ChecklistUpdate: map[string]engine.ChecklistDelta{
					"date_fixation":        {Status: "YES", Evidence: []string{"суббота, 10:00"}},
					"follow_up_commitment": {Status: "YES"},
					"polite_tone":          {Status: "YES"},
				},
			},
		},
	}
}
