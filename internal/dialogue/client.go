// Package dialogue — реализации генератора реплик клиента: OpenAI
// Chat Completions со строгой JSON-схемой ответа и детерминированный
// скриптовый генератор для офлайн-прогонов.
package dialogue

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/tetraminz/sales_trainer/internal/config"
	"github.com/tetraminz/sales_trainer/internal/engine"
)

const (
	defaultBaseURL        = "https://api.openai.com"
	defaultModel          = "gpt-4.1-mini"
	chatCompletionsPath   = "/v1/chat/completions"
	defaultRequestTimeout = 90 * time.Second
)

// HTTPDoer позволяет подменить транспорт в тестах.
type HTTPDoer interface {
	Do(req *http.Request) (*http.Response, error)
}

// OpenAI вызывает Chat Completions со strict json_schema и приводит
// ответ к engine.TurnReply. Сетевые ошибки и мусорный контент
// возвращаются как error: повтор и fallback — зона ответственности движка.
type OpenAI struct {
	apiKey     string
	model      string
	endpoint   string
	httpClient HTTPDoer
}

// NewOpenAI собирает клиента из конфигурации с подстановкой дефолтов.
func NewOpenAI(cfg config.DialogueConfig, httpClient HTTPDoer) *OpenAI {
	base := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if base == "" {
		base = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.Model)
	if model == "" {
		model = defaultModel
	}
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultRequestTimeout}
	}

	return &OpenAI{
		apiKey:     strings.TrimSpace(cfg.APIKey),
		model:      model,
		endpoint:   base + chatCompletionsPath,
		httpClient: httpClient,
	}
}

// GenerateTurn запрашивает одну реплику клиента со структурированной
// диагностикой хода менеджера.
func (c *OpenAI) GenerateTurn(ctx context.Context, req engine.TurnRequest) (engine.TurnReply, error) {
	if c.apiKey == "" {
		return engine.TurnReply{}, errors.New("OPENAI_API_KEY is empty")
	}

	stateJSON, err := json.Marshal(req)
	if err != nil {
		return engine.TurnReply{}, fmt.Errorf("marshal turn request: %w", err)
	}

	payload, err := json.Marshal(chatCompletionsRequest{
		Model:       c.model,
		Temperature: 0,
		Messages: []chatMessage{
			{Role: "system", Content: clientSystemPrompt},
			{Role: "user", Content: buildUserPrompt(req, string(stateJSON))},
		},
		ResponseFormat: responseFormat{
			Type: "json_schema",
			JSONSchema: responseJSONSchema{
				Name:   clientTurnSchemaName,
				Strict: true,
				Schema: clientTurnSchema,
			},
		},
	})
	if err != nil {
		return engine.TurnReply{}, fmt.Errorf("marshal openai request: %w", err)
	}

	request, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(payload))
	if err != nil {
		return engine.TurnReply{}, fmt.Errorf("build request: %w", err)
	}
	request.Header.Set("Authorization", "Bearer "+c.apiKey)
	request.Header.Set("Content-Type", "application/json")

	response, err := c.httpClient.Do(request)
	if err != nil {
		return engine.TurnReply{}, fmt.Errorf("openai request failed: %w", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(response.Body)
	if err != nil {
		return engine.TurnReply{}, fmt.Errorf("read openai response: %w", err)
	}

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		var apiErr openAIErrorEnvelope
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return engine.TurnReply{}, fmt.Errorf("openai status %d: %s", response.StatusCode, apiErr.Error.Message)
		}
		return engine.TurnReply{}, fmt.Errorf("openai status %d: %s", response.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed chatCompletionsResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return engine.TurnReply{}, fmt.Errorf("decode openai response: %w", err)
	}
	if parsed.Error.Message != "" {
		return engine.TurnReply{}, fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return engine.TurnReply{}, errors.New("openai returned no choices")
	}

	message := parsed.Choices[0].Message
	if strings.TrimSpace(message.Refusal) != "" {
		return engine.TurnReply{}, fmt.Errorf("openai refusal: %s", strings.TrimSpace(message.Refusal))
	}

	content, err := parseMessageContent(message.Content)
	if err != nil {
		return engine.TurnReply{}, err
	}
	if strings.TrimSpace(content) == "" {
		return engine.TurnReply{}, errors.New("openai returned empty content")
	}

	var turn turnPayload
	if err := json.Unmarshal([]byte(content), &turn); err != nil {
		return engine.TurnReply{}, fmt.Errorf("openai content is not a valid client turn: %w", err)
	}
	return turn.toReply()
}

func parseMessageContent(raw json.RawMessage) (string, error) {
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return "", nil
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		return asString, nil
	}

	var asParts []responseContentPart
	if err := json.Unmarshal(raw, &asParts); err == nil {
		var builder strings.Builder
		for _, part := range asParts {
			if part.Type == "text" {
				builder.WriteString(part.Text)
			}
		}
		return builder.String(), nil
	}

	return "", fmt.Errorf("unsupported openai message content format: %s", string(raw))
}

func buildUserPrompt(req engine.TurnRequest, stateJSON string) string {
	return fmt.Sprintf(`Состояние сессии (JSON):
%s

Последняя реплика менеджера:
%s

Задача:
- Ответь одной естественной репликой клиента по-русски.
- Заполни diagnostics по схеме: фаза, затронутые и уклоненные темы,
  тон и вовлеченность менеджера, обновления чеклиста с цитатами.
- Лимит реплик клиента: %d, уже сделано: %d. Если лимит близок или
  вопрос клиента закрыт договоренностью, ставь end_conversation=true.`,
		stateJSON, req.ManagerMessage, req.TurnLimit, req.ClientTurns)
}

// Клиент ведет себя как живой покупатель: не подыгрывает менеджеру и
// реагирует на качество его реплик, а не на желаемый исход тренировки.
const clientSystemPrompt = `Ты — клиент автосалона, позвонивший по объявлению о конкретном автомобиле.
Отвечай ТОЛЬКО JSON по переданной строгой схеме.
Правила:
- Говори по-русски, коротко и естественно, как реальный покупатель по телефону.
- Опирайся только на переданное состояние сессии: автомобиль, дилерский центр, историю.
- Не сообщай менеджеру его оценки и диагностику.
- Если менеджер груб, уклоняется или отвечает односложно — раздражайся сильнее.
- В diagnostics используй только коды из схемы; без цитаты из реплики менеджера
  не отмечай пункт чеклиста выполненным.`

// turnPayload — проводной формат ответа генератора. Отличается от
// engine.TurnReply тем, что чеклист — массив: strict-схема OpenAI не
// допускает объектов с произвольными ключами.
type turnPayload struct {
	ClientMessage   string          `json:"client_message"`
	EndConversation bool            `json:"end_conversation"`
	Diagnostics     turnDiagnostics `json:"diagnostics"`
}

type turnDiagnostics struct {
	CurrentPhase           string                `json:"current_phase"`
	TopicsAddressed        []string              `json:"topics_addressed"`
	TopicsEvaded           []string              `json:"topics_evaded"`
	ManagerTone            string                `json:"manager_tone"`
	ManagerEngagement      string                `json:"manager_engagement"`
	MisinformationDetected bool                  `json:"misinformation_detected"`
	ChecklistUpdate        []checklistItemUpdate `json:"checklist_update"`
}

type checklistItemUpdate struct {
	Code     string   `json:"code"`
	Status   string   `json:"status"`
	Evidence []string `json:"evidence"`
	Comment  string   `json:"comment"`
}

func (p turnPayload) toReply() (engine.TurnReply, error) {
	message := strings.TrimSpace(p.ClientMessage)
	if message == "" && !p.EndConversation {
		return engine.TurnReply{}, errors.New("openai returned empty client_message")
	}

	update := make(map[string]engine.ChecklistDelta, len(p.Diagnostics.ChecklistUpdate))
	for _, item := range p.Diagnostics.ChecklistUpdate {
		code := strings.TrimSpace(item.Code)
		if code == "" {
			continue
		}
		update[code] = engine.ChecklistDelta{
			Status:   item.Status,
			Evidence: item.Evidence,
			Comment:  item.Comment,
		}
	}

	return engine.TurnReply{
		ClientMessage:   message,
		EndConversation: p.EndConversation,
		Diagnostics: engine.Diagnostics{
			CurrentPhase:           p.Diagnostics.CurrentPhase,
			TopicsAddressed:        p.Diagnostics.TopicsAddressed,
			TopicsEvaded:           p.Diagnostics.TopicsEvaded,
			ManagerTone:            p.Diagnostics.ManagerTone,
			ManagerEngagement:      p.Diagnostics.ManagerEngagement,
			MisinformationDetected: p.Diagnostics.MisinformationDetected,
			ChecklistUpdate:        update,
		},
	}, nil
}

type chatCompletionsRequest struct {
	Model          string         `json:"model"`
	Temperature    float64        `json:"temperature"`
	Messages       []chatMessage  `json:"messages"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type       string             `json:"type"`
	JSONSchema responseJSONSchema `json:"json_schema"`
}

type responseJSONSchema struct {
	Name   string         `json:"name"`
	Strict bool           `json:"strict"`
	Schema map[string]any `json:"schema"`
}

type chatCompletionsResponse struct {
	Choices []chatChoice        `json:"choices"`
	Error   openAIErrorResponse `json:"error"`
}

type chatChoice struct {
	Message chatMessageResponse `json:"message"`
}

type chatMessageResponse struct {
	Content json.RawMessage `json:"content"`
	Refusal string          `json:"refusal"`
}

type responseContentPart struct {
	Type string `json:"type"`
	Text string `json:"text"`
}

type openAIErrorEnvelope struct {
	Error openAIErrorResponse `json:"error"`
}

type openAIErrorResponse struct {
	Message string `json:"message"`
}
