package scoring

// IssueType — закрытый перечень проблем, находимых в сессии.
type IssueType string

const (
	IssueNoGreeting              IssueType = "NO_GREETING"
	IssueNoIntroduction          IssueType = "NO_INTRODUCTION"
	IssueNoVehicleIdentification IssueType = "NO_VEHICLE_IDENTIFICATION"
	IssueNoNeedsDiscovery        IssueType = "NO_NEEDS_DISCOVERY"
	IssuePoorListening           IssueType = "POOR_LISTENING"
	IssueWeakPresentation        IssueType = "WEAK_PRESENTATION"
	IssueNoFinancingOffer        IssueType = "NO_FINANCING_OFFER"
	IssueNoTradeInOffer          IssueType = "NO_TRADE_IN_OFFER"
	IssuePoorObjectionHandling   IssueType = "POOR_OBJECTION_HANDLING"
	IssueNoNextStep              IssueType = "NO_NEXT_STEP"
	IssueNoDateFixation          IssueType = "NO_DATE_FIXATION"
	IssueNoFollowUp              IssueType = "NO_FOLLOW_UP"
	IssueImpoliteTone            IssueType = "IMPOLITE_TONE"

	IssueProfanityUsed   IssueType = "PROFANITY_USED"
	IssueMisinformation  IssueType = "MISINFORMATION"
	IssuePassiveStyle    IssueType = "PASSIVE_STYLE"
	IssueLowEngagement   IssueType = "LOW_ENGAGEMENT"
	IssueWebsiteRedirect IssueType = "WEBSITE_REDIRECT"
	IssueBadTone         IssueType = "BAD_TONE"
)

// IssueSeverity — серьезность проблемы в итоговом отчете.
type IssueSeverity string

const (
	IssueSeverityLow    IssueSeverity = "LOW"
	IssueSeverityMedium IssueSeverity = "MEDIUM"
	IssueSeverityHigh   IssueSeverity = "HIGH"
)

// Issue — одна найденная проблема. Только выход, в состояние сессии
// не сохраняется.
type Issue struct {
	Type           IssueType     `json:"issue_type"`
	Severity       IssueSeverity `json:"severity"`
	Evidence       []string      `json:"evidence"`
	Recommendation string        `json:"recommendation"`
}

// AuxSignals — накопленные за сессию булевы сигналы, дающие
// дополнительные проблемы независимо от чеклиста.
type AuxSignals struct {
	Profanity       bool
	Misinformation  bool
	PassiveStyle    bool
	LowEngagement   bool
	WebsiteRedirect bool
	BadTone         bool
}

type issueTemplate struct {
	issueType      IssueType
	severity       IssueSeverity
	recommendation string
}

// checklistIssues — ровно одна проблема на код чеклиста.
var checklistIssues = map[ItemCode]issueTemplate{
	Greeting:              {IssueNoGreeting, IssueSeverityMedium, "Начинайте разговор с приветствия и обращения по имени."},
	SelfIntroduction:      {IssueNoIntroduction, IssueSeverityMedium, "Представьтесь и назовите дилерский центр в первой реплике."},
	VehicleIdentification: {IssueNoVehicleIdentification, IssueSeverityHigh, "Уточните, какой именно автомобиль интересует клиента."},
	NeedsQuestions:        {IssueNoNeedsDiscovery, IssueSeverityHigh, "Задавайте открытые вопросы о потребностях: бюджет, сроки, сценарий использования."},
	ActiveListening:       {IssuePoorListening, IssueSeverityLow, "Отражайте услышанное: подтверждайте и уточняйте ответы клиента."},
	BenefitPresentation:   {IssueWeakPresentation, IssueSeverityMedium, "Связывайте характеристики автомобиля с выгодами под потребности клиента."},
	FinancingOffer:        {IssueNoFinancingOffer, IssueSeverityLow, "Предложите варианты кредита или рассрочки до конца разговора."},
	TradeInOffer:          {IssueNoTradeInOffer, IssueSeverityLow, "Спросите про текущий автомобиль и предложите trade-in."},
	ObjectionHandling:     {IssuePoorObjectionHandling, IssueSeverityMedium, "Отрабатывайте возражения: согласитесь, уточните, предложите решение."},
	NextStepProposal:      {IssueNoNextStep, IssueSeverityHigh, "Завершайте разговор конкретным следующим шагом: визит, тест-драйв, звонок."},
	DateFixation:          {IssueNoDateFixation, IssueSeverityMedium, "Фиксируйте дату и время следующего контакта."},
	FollowUpCommitment:    {IssueNoFollowUp, IssueSeverityLow, "Пообещайте прислать материалы или расчет и назовите срок."},
	PoliteTone:            {IssueImpoliteTone, IssueSeverityMedium, "Держите вежливый тон на протяжении всего разговора."},
}

// auxIssues — по одной проблеме на каждый вспомогательный сигнал.
var auxIssues = []struct {
	signal         func(AuxSignals) bool
	issueType      IssueType
	severity       IssueSeverity
	recommendation string
}{
	{func(a AuxSignals) bool { return a.Profanity }, IssueProfanityUsed, IssueSeverityHigh, "Ненормативная лексика недопустима в разговоре с клиентом."},
	{func(a AuxSignals) bool { return a.Misinformation }, IssueMisinformation, IssueSeverityHigh, "Сверяйте год, цену и пробег с карточкой автомобиля перед ответом."},
	{func(a AuxSignals) bool { return a.PassiveStyle }, IssuePassiveStyle, IssueSeverityMedium, "Ведите разговор сами: задавайте вопросы, а не ждите их от клиента."},
	{func(a AuxSignals) bool { return a.LowEngagement }, IssueLowEngagement, IssueSeverityMedium, "Отвечайте развернуто: односложные реплики разрушают контакт."},
	{func(a AuxSignals) bool { return a.WebsiteRedirect }, IssueWebsiteRedirect, IssueSeverityMedium, "Не отправляйте клиента на сайт — отвечайте на вопрос сами."},
	{func(a AuxSignals) bool { return a.BadTone }, IssueBadTone, IssueSeverityHigh, "Грубость и раздражение в адрес клиента недопустимы."},
}

// partialIssueMinWeight: PARTIAL дает проблему только для весомых шагов.
const partialIssueMinWeight = 8

// DetectIssues извлекает проблемы из чеклиста и вспомогательных
// сигналов. На каждый код чеклиста — не больше одной проблемы; проблемы
// по сигналам независимы от чеклиста. Порядок фиксирован.
func DetectIssues(cl Checklist, aux AuxSignals) []Issue {
	issues := []Issue{}

	for _, code := range AllCodes() {
		item, ok := cl[code]
		if !ok {
			continue
		}
		bad := item.Status == StatusNo ||
			(item.Status == StatusPartial && item.Weight >= partialIssueMinWeight)
		if !bad {
			continue
		}
		tpl := checklistIssues[code]
		severity := tpl.severity
		if item.Status == StatusPartial && severity == IssueSeverityHigh {
			// Частично выполненный шаг — проблема, но не критичная.
			severity = IssueSeverityMedium
		}
		issues = append(issues, Issue{
			Type:           tpl.issueType,
			Severity:       severity,
			Evidence:       append([]string(nil), item.Evidence...),
			Recommendation: tpl.recommendation,
		})
	}

	for _, aux0 := range auxIssues {
		if aux0.signal(aux) {
			issues = append(issues, Issue{
				Type:           aux0.issueType,
				Severity:       aux0.severity,
				Evidence:       []string{},
				Recommendation: aux0.recommendation,
			})
		}
	}

	return issues
}

// Recommendations собирает тексты рекомендаций из списка проблем.
func Recommendations(issues []Issue) []string {
	out := make([]string, 0, len(issues))
	for _, issue := range issues {
		out = append(out, issue.Recommendation)
	}
	return out
}
