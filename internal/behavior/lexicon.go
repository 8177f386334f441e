package behavior

// Lexicon — словари классификатора. Все паттерны хранятся в уже
// нормализованной форме (lower-case, е вместо ё, и вместо й),
// сопоставление идет после normalizeText.
type Lexicon struct {
	// ProfanityStems матчатся как подстроки токенов: мата с окончаниями
	// слишком много, чтобы перечислять словоформы.
	ProfanityStems []string `yaml:"profanity_stems"`
	// HostilePhrases матчатся только по границе слова, иначе короткие
	// паттерны ловят ложные срабатывания внутри длинных слов.
	HostilePhrases []string `yaml:"hostile_phrases"`
	// DisengagePhrases — явные "закончить разговор / не звоните".
	DisengagePhrases []string `yaml:"disengage_phrases"`
	// DismissivePhrases — запрещенные отмазки менеджера.
	DismissivePhrases []string `yaml:"dismissive_phrases"`
	// DontKnowPhrases — явное "не знаю" в ответ на вопрос клиента.
	DontKnowPhrases []string `yaml:"dont_know_phrases"`
	// NonsenseTokens — междометия и мусорные реплики.
	NonsenseTokens []string `yaml:"nonsense_tokens"`
	// FillerWords — слова-подтверждения; реплика только из них
	// считается low effort.
	FillerWords []string `yaml:"filler_words"`
}

// DefaultLexicon возвращает встроенные словари для русскоязычных
// звонков дилерского центра (с минимальным английским набором).
func DefaultLexicon() Lexicon {
	return Lexicon{
		ProfanityStems: []string{
			"хуи", "хуе", "хул", "пизд", "ебан", "ебат", "ебал", "ебну",
			"заеб", "уеб", "бляд", "блят", "мудак", "мудач", "гандон",
			"гондон", "долбоеб", "пидор", "пидар", "сука", "сучар",
			"fuck", "shit", "bitch", "asshole",
		},
		HostilePhrases: []string{
			"ты дурак", "ты идиот", "ты тупои", "вы тупые", "сам дурак",
			"иди к черту", "пошел ты", "пошла ты", "да пошли вы",
			"отвали", "завали", "заткнись", "мне плевать на тебя",
			"ты меня бесишь", "shut up", "screw you",
		},
		DisengagePhrases: []string{
			"не звоните мне", "не звони мне", "больше не звоните",
			"не пишите мне", "хватит звонить", "хватит писать",
			"оставьте меня в покое", "отстаньте от меня", "отстань",
			"удалите мои номер", "закончим разговор", "разговор окончен",
			"мне это не интересно", "мне не интересно",
			"do not call me", "stop calling", "leave me alone",
		},
		DismissivePhrases: []string{
			"перезвоните позже", "позвоните позже", "перезвоните потом",
			"наберите позже", "посмотрите на саите", "посмотрите саит",
			"все есть на саите", "информация на саите", "гляньте на саите",
			"приезжаите и узнаете", "приходите и узнаете",
			"call back later", "check the website", "check our website",
			"it is on the website",
		},
		DontKnowPhrases: []string{
			"не знаю", "я не знаю", "без понятия", "откуда я знаю",
			"понятия не имею", "не в курсе", "i do not know", "no idea",
		},
		NonsenseTokens: []string{
			"ыыы", "ммм", "эээ", "хз", "пфф", "фыр", "лол", "кек",
			"asdf", "qwerty", "123", "...",
		},
		FillerWords: []string{
			"ок", "океи", "да", "нет", "ага", "угу", "ну", "хорошо",
			"ладно", "понял", "поняла", "понятно", "ясно", "мхм",
			"ok", "okay", "yes", "no", "yeah", "sure", "fine",
		},
	}
}
