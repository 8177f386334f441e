package behavior

import (
	"strings"
	"testing"
)

func newTestClassifier() *Classifier {
	return NewClassifier(DefaultLexicon())
}

func TestClassifyCleanUtterance(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify(
		"Добрый день! Меня зовут Алексей, дилерский центр Автоград. Подскажите, какой автомобиль вы рассматриваете?",
		Context{},
	)
	if sig.HasIssue() {
		t.Fatalf("expected clean signal, got %+v", sig)
	}
	if sig.Severity != SeverityLow {
		t.Fatalf("expected LOW severity, got %s", sig.Severity)
	}
	if sig.Rationale != "no issues detected" {
		t.Fatalf("unexpected rationale: %q", sig.Rationale)
	}
}

func TestClassifyProfanity(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("да пошел ты нахуй", Context{})
	if !sig.Toxic || !sig.ProfanityMatched {
		t.Fatalf("expected toxic profanity signal, got %+v", sig)
	}
	if sig.Severity != SeverityHigh {
		t.Fatalf("toxic must be HIGH, got %s", sig.Severity)
	}
}

func TestClassifyHostilePhraseWordBounded(t *testing.T) {
	c := newTestClassifier()

	sig := c.Classify("Отвали, мне некогда", Context{})
	if !sig.Toxic {
		t.Fatalf("expected hostile phrase to fire: %+v", sig)
	}

	// "отваливается" не должен ловиться паттерном "отвали":
	// матч только по границе слова.
	sig = c.Classify("У этой модели задний бампер иногда отваливается на морозе, проверим вместе", Context{})
	if sig.Toxic {
		t.Fatalf("substring inside a longer word must not be hostile: %+v", sig)
	}
}

func TestClassifyDisengagement(t *testing.T) {
	c := newTestClassifier()
	cases := []string{
		"Больше не звоните мне никогда по этому поводу",
		"я не хочу с вами говорить вообще об этом",
	}
	for _, text := range cases {
		sig := c.Classify(text, Context{})
		if !sig.Disengaging {
			t.Fatalf("%q: expected disengaging", text)
		}
		if sig.Severity != SeverityHigh {
			t.Fatalf("%q: disengaging must be HIGH, got %s", text, sig.Severity)
		}
	}
}

func TestClassifyProhibitedPhrases(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("Посмотрите на сайте, там всё есть, перезвоните позже", Context{})
	if len(sig.ProhibitedPhraseHits) != 2 {
		t.Fatalf("expected 2 prohibited hits, got %v", sig.ProhibitedPhraseHits)
	}
	if sig.Severity != SeverityMedium {
		t.Fatalf("dismissive hit must be MEDIUM, got %s", sig.Severity)
	}
	if !sig.LowQuality {
		t.Fatalf("dismissive hit implies low quality")
	}
}

func TestClassifyShortOkWhileWaiting(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("ок", Context{LastQuestion: "Какой бюджет вы рассматриваете?", IsWaitingForAnswer: true})
	if !sig.LowEffort {
		t.Fatalf("expected low_effort for %q", "ок")
	}
	if !sig.Evasion {
		t.Fatalf("expected evasion while waiting for answer")
	}
	if !sig.LowQuality {
		t.Fatalf("low_effort + evasion implies low quality")
	}
	if sig.Severity != SeverityMedium {
		t.Fatalf("low_effort+evasion must be MEDIUM, got %s", sig.Severity)
	}
}

func TestClassifyShortOkNotWaiting(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("ок", Context{IsWaitingForAnswer: false})
	if !sig.LowEffort {
		t.Fatalf("expected low_effort")
	}
	if sig.Evasion {
		t.Fatalf("evasion must not fire when nobody waits for an answer")
	}
	if sig.Severity != SeverityLow {
		t.Fatalf("bare low_effort must be LOW, got %s", sig.Severity)
	}
}

func TestClassifyEmptyUtterance(t *testing.T) {
	c := newTestClassifier()
	for _, text := range []string{"", "   ", "\t\n"} {
		sig := c.Classify(text, Context{})
		if !sig.LowEffort {
			t.Fatalf("%q: empty utterance must be low effort: %+v", text, sig)
		}
	}

	// Пустой ход при ожидаемом ответе — еще и evasion.
	sig := c.Classify("", Context{LastQuestion: "Какая цена?", IsWaitingForAnswer: true})
	if !sig.Evasion {
		t.Fatalf("empty utterance while waiting must be evasion: %+v", sig)
	}
}

func TestClassifyFillerOnly(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("ну да хорошо", Context{})
	if !sig.LowEffort {
		t.Fatalf("filler-only utterance must be low effort: %+v", sig)
	}
}

func TestClassifyDontKnowEvasion(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("честно говоря я не знаю какая комплектация там стоит", Context{IsWaitingForAnswer: true})
	if !sig.Evasion {
		t.Fatalf("explicit don't-know must be evasion while waiting: %+v", sig)
	}
	if sig.LowEffort {
		t.Fatalf("long don't-know answer is not low effort")
	}
}

func TestClassifyYoFolding(t *testing.T) {
	c := newTestClassifier()
	// "пошёл" должен фолдиться в "пошел" и ловиться hostile-фразой.
	sig := c.Classify("да пошёл ты", Context{})
	if !sig.Toxic {
		t.Fatalf("expected hostile phrase after ё folding: %+v", sig)
	}
}

func TestClassifyToxicOverridesOtherFlags(t *testing.T) {
	c := newTestClassifier()
	sig := c.Classify("бляд ну хз", Context{IsWaitingForAnswer: true})
	if !sig.Toxic || sig.Severity != SeverityHigh {
		t.Fatalf("toxic must dominate severity even with low effort: %+v", sig)
	}
	if !sig.LowEffort {
		t.Fatalf("low effort should still be reported alongside toxic")
	}
}

func TestClassifyRationaleStable(t *testing.T) {
	c := newTestClassifier()
	text := "не знаю, посмотрите на сайте"
	ctx := Context{IsWaitingForAnswer: true}
	first := c.Classify(text, ctx)
	for i := 0; i < 5; i++ {
		if got := c.Classify(text, ctx); got.Rationale != first.Rationale {
			t.Fatalf("rationale not stable: %q vs %q", first.Rationale, got.Rationale)
		}
	}
	if !strings.Contains(first.Rationale, "prohibited") {
		t.Fatalf("rationale must mention fired rules: %q", first.Rationale)
	}
}

func TestDefaultLexiconIsPreNormalized(t *testing.T) {
	// Сопоставление идет после normalizeText, поэтому запись, не
	// совпадающая со своей нормальной формой, мертва и никогда не матчится.
	lex := DefaultLexicon()
	lists := map[string][]string{
		"profanity_stems":    lex.ProfanityStems,
		"hostile_phrases":    lex.HostilePhrases,
		"disengage_phrases":  lex.DisengagePhrases,
		"dismissive_phrases": lex.DismissivePhrases,
		"dont_know_phrases":  lex.DontKnowPhrases,
		"nonsense_tokens":    lex.NonsenseTokens,
		"filler_words":       lex.FillerWords,
	}
	for name, entries := range lists {
		for _, entry := range entries {
			if canonical, _ := normalizeText(entry); canonical != entry {
				t.Fatalf("%s: entry %q is not pre-normalized (canonical %q)", name, entry, canonical)
			}
		}
	}
}

func TestNormalizeText(t *testing.T) {
	canonical, tokens := normalizeText("  Ёжик,   ЗВОНИТ!  ")
	if canonical != "ежик звонит" {
		t.Fatalf("canonical=%q", canonical)
	}
	if len(tokens) != 2 || tokens[0] != "ежик" || tokens[1] != "звонит" {
		t.Fatalf("tokens=%v", tokens)
	}
}
