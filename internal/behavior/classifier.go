// Package behavior — детерминированный классификатор реплик менеджера.
//
// CASCADE (пошаговая логика, порядок фиксирован):
// 1) normalize: lower-case, схлопывание пробелов, е/и вместо ё/й.
// 2) toxicity: стемы мата + враждебные фразы (по границе слова).
// 3) disengagement: фразы "закончить контакт" + грамматика отрицания.
// 4) prohibited: запрещенные отмазки, копятся в список.
// 5) low effort: короткая реплика / мусор / одни filler-слова.
// 6) evasion: только когда клиент ждет ответа.
// 7) low quality и severity — производные от флагов выше.
//
// Важный инвариант:
// - Стадии независимы и могут сработать вместе; rationale перечисляет
//   все сработавшие правила в порядке каскада и воспроизводим байт в байт
//   на одинаковом входе.
package behavior

import (
	"fmt"
	"strings"
)

// Severity — серьезность нарушения в одной реплике.
type Severity string

const (
	SeverityLow    Severity = "LOW"
	SeverityMedium Severity = "MEDIUM"
	SeverityHigh   Severity = "HIGH"
)

// Context — что известно о диалоге на момент реплики.
type Context struct {
	LastQuestion       string
	IsWaitingForAnswer bool
}

// Signal — результат классификации одной реплики менеджера.
// Создается заново на каждый ход и после записи в лог не мутируется.
type Signal struct {
	Toxic                bool     `json:"toxic"`
	ProfanityMatched     bool     `json:"profanity_matched"`
	LowEffort            bool     `json:"low_effort"`
	Disengaging          bool     `json:"disengaging"`
	LowQuality           bool     `json:"low_quality"`
	Evasion              bool     `json:"evasion"`
	ProhibitedPhraseHits []string `json:"prohibited_phrase_hits"`
	Severity             Severity `json:"severity"`
	Rationale            string   `json:"rationale"`
}

const (
	shortUtteranceMaxRunes  = 15
	shortUtteranceMaxTokens = 2
	fillerOnlyMaxTokens     = 3
)

// Classifier держит словари; сам по себе без состояния сессии.
type Classifier struct {
	lex Lexicon
}

// NewClassifier создает классификатор на переданных словарях.
func NewClassifier(lex Lexicon) *Classifier {
	return &Classifier{lex: lex}
}

// Classify — чистая функция: текст + контекст -> сигнал.
func (c *Classifier) Classify(text string, ctx Context) Signal {
	canonical, tokens := normalizeText(text)

	sig := Signal{ProhibitedPhraseHits: []string{}}
	var fired []string

	// Стадия 2: токсичность.
	for _, tok := range tokens {
		for _, stem := range c.lex.ProfanityStems {
			if strings.Contains(tok, stem) {
				sig.Toxic = true
				sig.ProfanityMatched = true
				fired = append(fired, fmt.Sprintf("toxicity: profanity stem %q in %q", stem, tok))
				break
			}
		}
		if sig.ProfanityMatched {
			break
		}
	}
	for _, phrase := range c.lex.HostilePhrases {
		if containsPhrase(canonical, phrase) {
			sig.Toxic = true
			fired = append(fired, fmt.Sprintf("toxicity: hostile phrase %q", phrase))
			break
		}
	}

	// Стадия 3: отказ от общения.
	for _, phrase := range c.lex.DisengagePhrases {
		if containsPhrase(canonical, phrase) {
			sig.Disengaging = true
			fired = append(fired, fmt.Sprintf("disengagement: phrase %q", phrase))
			break
		}
	}
	if !sig.Disengaging && negatedCommunication(tokens) {
		sig.Disengaging = true
		fired = append(fired, "disengagement: negation + communication verb")
	}

	// Стадия 4: запрещенные отмазки (не взаимоисключающи с остальным).
	for _, phrase := range c.lex.DismissivePhrases {
		if containsPhrase(canonical, phrase) {
			sig.ProhibitedPhraseHits = append(sig.ProhibitedPhraseHits, phrase)
			fired = append(fired, fmt.Sprintf("prohibited: %q", phrase))
		}
	}

	// Стадия 5: low effort. Пустая реплика — тоже short utterance:
	// иначе пустой ход сбрасывал бы streak-счетчики лестницы.
	switch {
	case len([]rune(canonical)) <= shortUtteranceMaxRunes,
		len(tokens) <= shortUtteranceMaxTokens:
		sig.LowEffort = true
		fired = append(fired, "low_effort: very short utterance")
	case containsNonsense(tokens, c.lex.NonsenseTokens):
		sig.LowEffort = true
		fired = append(fired, "low_effort: nonsense token")
	case fillerOnly(tokens, c.lex.FillerWords):
		sig.LowEffort = true
		fired = append(fired, "low_effort: filler-only acknowledgement")
	}

	// Стадия 6: evasion — только если клиент реально ждет ответа.
	dontKnow := false
	for _, phrase := range c.lex.DontKnowPhrases {
		if containsPhrase(canonical, phrase) {
			dontKnow = true
			break
		}
	}
	if ctx.IsWaitingForAnswer && (sig.LowEffort || sig.Disengaging || len(sig.ProhibitedPhraseHits) > 0 || dontKnow) {
		sig.Evasion = true
		fired = append(fired, "evasion: question left unanswered")
	}

	// Стадия 7.
	sig.LowQuality = sig.Disengaging || len(sig.ProhibitedPhraseHits) > 0 || (sig.LowEffort && sig.Evasion)

	// Стадия 8: severity.
	switch {
	case sig.Toxic || sig.Disengaging:
		sig.Severity = SeverityHigh
	case len(sig.ProhibitedPhraseHits) > 0, sig.LowEffort && sig.Evasion:
		sig.Severity = SeverityMedium
	default:
		sig.Severity = SeverityLow
	}

	if len(fired) == 0 {
		sig.Rationale = "no issues detected"
	} else {
		sig.Rationale = strings.Join(fired, "; ")
	}
	return sig
}

// HasIssue сообщает, сработало ли хоть одно правило.
func (s Signal) HasIssue() bool {
	return s.Toxic || s.LowEffort || s.Disengaging || s.Evasion || len(s.ProhibitedPhraseHits) > 0
}

var runeFolds = map[rune]rune{'ё': 'е', 'й': 'и'}

const tokenCutset = "!?,.:;()[]{}\"'«»—–"

// normalizeText приводит текст к канонической форме: lower-case,
// фолдинг ё/й, пробелы схлопнуты, токены без краевой пунктуации.
// Возвращает канонический текст (токены через один пробел) и токены.
func normalizeText(text string) (string, []string) {
	lowered := strings.ToLower(strings.TrimSpace(text))
	folded := strings.Map(func(r rune) rune {
		if f, ok := runeFolds[r]; ok {
			return f
		}
		return r
	}, lowered)

	rawTokens := strings.Fields(folded)
	tokens := make([]string, 0, len(rawTokens))
	for _, tok := range rawTokens {
		trimmed := strings.Trim(tok, tokenCutset)
		if trimmed == "" {
			// Токен из одной пунктуации ("...") оставляем как есть:
			// он нужен для nonsense-проверки.
			trimmed = tok
		}
		tokens = append(tokens, trimmed)
	}
	return strings.Join(tokens, " "), tokens
}

// containsPhrase ищет phrase в canonical только по границам слов.
func containsPhrase(canonical, phrase string) bool {
	if phrase == "" {
		return false
	}
	padded := " " + canonical + " "
	return strings.Contains(padded, " "+phrase+" ")
}

var negationTokens = map[string]struct{}{
	"не": {}, "нет": {}, "not": {}, "dont": {}, "don't": {}, "wont": {}, "won't": {},
}

var communicationStems = []string{
	"говор", "разговар", "общат", "обсужд", "звон", "слуш", "talk", "speak", "chat", "call",
}

// negatedCommunication ловит конструкции вида "не хочу говорить":
// отрицание и глагол коммуникации в окне из четырех токенов.
func negatedCommunication(tokens []string) bool {
	for i, tok := range tokens {
		if _, ok := negationTokens[tok]; !ok {
			continue
		}
		end := i + 5
		if end > len(tokens) {
			end = len(tokens)
		}
		for _, next := range tokens[i+1 : end] {
			for _, stem := range communicationStems {
				if strings.Contains(next, stem) {
					return true
				}
			}
		}
	}
	return false
}

func containsNonsense(tokens []string, nonsense []string) bool {
	for _, tok := range tokens {
		for _, junk := range nonsense {
			if tok == junk {
				return true
			}
		}
	}
	return false
}

// fillerOnly: реплика не длиннее трех токенов и все они из filler-набора.
func fillerOnly(tokens []string, fillers []string) bool {
	if len(tokens) == 0 || len(tokens) > fillerOnlyMaxTokens {
		return false
	}
	set := make(map[string]struct{}, len(fillers))
	for _, f := range fillers {
		set[f] = struct{}{}
	}
	for _, tok := range tokens {
		if _, ok := set[tok]; !ok {
			return false
		}
	}
	return true
}
