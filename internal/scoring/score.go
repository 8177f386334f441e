package scoring

import "math"

// PassiveSeverity — насколько выражен пассивный стиль менеджера.
type PassiveSeverity string

const (
	PassiveMild   PassiveSeverity = "mild"
	PassiveStrong PassiveSeverity = "strong"
)

// Options — сигналы сессии, влияющие на штрафы и потолок оценки.
type Options struct {
	EarlyFail              bool
	MisinformationDetected bool
	NoNextStep             bool
	PassiveStyle           bool
	PassiveSeverity        PassiveSeverity
}

// Result — итоговая оценка и разбивка по измерениям.
type Result struct {
	Score      int               `json:"score"`
	Dimensions map[Dimension]int `json:"dimensions"`
}

const (
	penaltyMisinformation = 15
	penaltyNoNextStep     = 10
	penaltyPassiveStrong  = 10
	penaltyPassiveMild    = 5
	earlyFailCeiling      = 40
)

func statusMultiplier(status ItemStatus) float64 {
	switch status {
	case StatusYes:
		return 1.0
	case StatusPartial:
		return 0.5
	default:
		return 0.0
	}
}

// weightedScore — взвешенное среднее по подмножеству кодов, NA исключены.
// Пустое подмножество дает 0.
func weightedScore(cl Checklist, codes []ItemCode) int {
	totalWeight := 0
	earned := 0.0
	for _, code := range codes {
		item, ok := cl[code]
		if !ok || item.Status == StatusNA {
			continue
		}
		totalWeight += item.Weight
		earned += float64(item.Weight) * statusMultiplier(item.Status)
	}
	if totalWeight == 0 {
		return 0
	}
	return int(math.Round(100 * earned / float64(totalWeight)))
}

// Score считает итоговую оценку сессии.
//
// Порядок строго фиксирован: raw взвешенное среднее -> штрафы
// (misinformation, no next step, passive style) с clamp к нулю после
// каждого -> потолок 40 при early fail. Потолок — именно потолок,
// а не вычитание: оценка ниже 40 остается как есть.
//
// Измерения считаются той же формулой по своим подмножествам и штрафы
// не получают — асимметрия сознательная.
func Score(cl Checklist, opts Options) Result {
	score := weightedScore(cl, AllCodes())

	if opts.MisinformationDetected {
		score = clampFloor(score - penaltyMisinformation)
	}
	if opts.NoNextStep {
		score = clampFloor(score - penaltyNoNextStep)
	}
	if opts.PassiveStyle {
		if opts.PassiveSeverity == PassiveStrong {
			score = clampFloor(score - penaltyPassiveStrong)
		} else {
			score = clampFloor(score - penaltyPassiveMild)
		}
	}

	if opts.EarlyFail && score > earlyFailCeiling {
		score = earlyFailCeiling
	}
	if score > 100 {
		score = 100
	}

	dims := make(map[Dimension]int, len(dimensionCodes))
	for _, dim := range AllDimensions() {
		dims[dim] = weightedScore(cl, dimensionCodes[dim])
	}

	return Result{Score: score, Dimensions: dims}
}

func clampFloor(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
