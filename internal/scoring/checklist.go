// Package scoring — детерминированный подсчет итоговой оценки сессии.
//
// Оценка считается один раз, на закрытии сессии; чеклист к этому моменту
// заморожен. Никаких обращений к LLM — только арифметика по таблице весов.
package scoring

// ItemCode — код пункта чеклиста. Закрытое множество из 13 кодов.
type ItemCode string

const (
	Greeting              ItemCode = "greeting"
	SelfIntroduction      ItemCode = "self_introduction"
	VehicleIdentification ItemCode = "vehicle_identification"
	NeedsQuestions        ItemCode = "needs_questions"
	ActiveListening       ItemCode = "active_listening"
	BenefitPresentation   ItemCode = "benefit_presentation"
	FinancingOffer        ItemCode = "financing_offer"
	TradeInOffer          ItemCode = "trade_in_offer"
	ObjectionHandling     ItemCode = "objection_handling"
	NextStepProposal      ItemCode = "next_step_proposal"
	DateFixation          ItemCode = "date_fixation"
	FollowUpCommitment    ItemCode = "follow_up_commitment"
	PoliteTone            ItemCode = "polite_tone"
)

// ItemStatus — статус пункта чеклиста.
type ItemStatus string

const (
	StatusYes     ItemStatus = "YES"
	StatusPartial ItemStatus = "PARTIAL"
	StatusNo      ItemStatus = "NO"
	StatusNA      ItemStatus = "NA"
)

// Item — один пункт чеклиста с весом и собранными свидетельствами.
type Item struct {
	Code     ItemCode   `json:"code"`
	Weight   int        `json:"weight"`
	Status   ItemStatus `json:"status"`
	Evidence []string   `json:"evidence"`
	Comment  string     `json:"comment"`
}

// Checklist — все пункты сессии, ключ — код.
type Checklist map[ItemCode]Item

// defaultWeights — фиксированные веса пунктов.
var defaultWeights = map[ItemCode]int{
	Greeting:              8,
	SelfIntroduction:      6,
	VehicleIdentification: 10,
	NeedsQuestions:        12,
	ActiveListening:       6,
	BenefitPresentation:   10,
	FinancingOffer:        6,
	TradeInOffer:          6,
	ObjectionHandling:     8,
	NextStepProposal:      12,
	DateFixation:          8,
	FollowUpCommitment:    4,
	PoliteTone:            4,
}

// AllCodes возвращает коды чеклиста в фиксированном порядке.
func AllCodes() []ItemCode {
	return []ItemCode{
		Greeting,
		SelfIntroduction,
		VehicleIdentification,
		NeedsQuestions,
		ActiveListening,
		BenefitPresentation,
		FinancingOffer,
		TradeInOffer,
		ObjectionHandling,
		NextStepProposal,
		DateFixation,
		FollowUpCommitment,
		PoliteTone,
	}
}

// NewChecklist создает чеклист со стандартными весами, все пункты NO.
func NewChecklist() Checklist {
	cl := make(Checklist, len(defaultWeights))
	for _, code := range AllCodes() {
		cl[code] = Item{Code: code, Weight: defaultWeights[code], Status: StatusNo, Evidence: []string{}}
	}
	return cl
}

// Clone возвращает независимую копию чеклиста.
func (cl Checklist) Clone() Checklist {
	out := make(Checklist, len(cl))
	for code, item := range cl {
		item.Evidence = append([]string(nil), item.Evidence...)
		out[code] = item
	}
	return out
}

// ParseStatus конвертирует свободный текст диагностики в статус.
// Единственная точка валидации: неизвестное значение превращается
// в NO, а не в панику — upstream вероятностный.
func ParseStatus(raw string) ItemStatus {
	switch ItemStatus(raw) {
	case StatusYes, StatusPartial, StatusNo, StatusNA:
		return ItemStatus(raw)
	}
	return StatusNo
}

// IsKnownCode сообщает, входит ли код в закрытое множество чеклиста.
func IsKnownCode(code ItemCode) bool {
	_, ok := defaultWeights[code]
	return ok
}

// Dimension — измерение итоговой оценки.
type Dimension string

const (
	DimFirstContact      Dimension = "first_contact"
	DimProductAndSales   Dimension = "product_and_sales"
	DimClosingCommitment Dimension = "closing_commitment"
	DimCommunication     Dimension = "communication"
)

// dimensionCodes — фиксированное разбиение чеклиста по измерениям.
var dimensionCodes = map[Dimension][]ItemCode{
	DimFirstContact:      {Greeting, SelfIntroduction, VehicleIdentification},
	DimProductAndSales:   {NeedsQuestions, BenefitPresentation, FinancingOffer, TradeInOffer, ObjectionHandling},
	DimClosingCommitment: {NextStepProposal, DateFixation, FollowUpCommitment},
	DimCommunication:     {ActiveListening, PoliteTone},
}

// AllDimensions возвращает измерения в фиксированном порядке.
func AllDimensions() []Dimension {
	return []Dimension{DimFirstContact, DimProductAndSales, DimClosingCommitment, DimCommunication}
}
