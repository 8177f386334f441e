// Package factcheck сверяет числовые факты из реплики менеджера
// с карточкой автомобиля.
//
// На один вызов репортится максимум одно расхождение, приоритет
// фиксирован: год -> цена -> пробег. Поле, не упомянутое в тексте,
// конфликта не дает.
package factcheck

import (
	"regexp"
	"strconv"
	"strings"
)

// Field — какое поле карточки разошлось с репликой.
type Field string

const (
	FieldYear    Field = "year"
	FieldPrice   Field = "price"
	FieldMileage Field = "mileage"
)

// GroundTruth — карточка автомобиля: то, что реально в объявлении.
type GroundTruth struct {
	Brand     string `json:"brand" yaml:"brand"`
	Model     string `json:"model" yaml:"model"`
	Year      int    `json:"year" yaml:"year"`
	PriceRUB  int    `json:"price_rub" yaml:"price_rub"`
	MileageKM int    `json:"mileage_km" yaml:"mileage_km"`
}

// Conflict — результат проверки одной реплики.
type Conflict struct {
	HasConflict     bool   `json:"has_conflict"`
	Field           Field  `json:"field,omitempty"`
	AdvertisedValue int    `json:"advertised_value,omitempty"`
	ClaimedValue    int    `json:"claimed_value,omitempty"`
	Quote           string `json:"quote,omitempty"`
}

const (
	priceTolerance   = 0.05
	mileageTolerance = 0.10
)

// По одному паттерну на поле, первый матч выигрывает.
var (
	// Год: 19xx/20xx рядом со словами "год"/"года выпуска"/"model".
	yearRegex = regexp.MustCompile(`(?:(19|20)\d{2})\s*(?:год|года|г\.|г\b|выпуск|model)|(?:год[а-я]*|выпуск[а-я]*|model)\s*[:\-]?\s*((?:19|20)\d{2})`)
	// Цена: число (возможно с пробелами/точками между группами) рядом
	// с валютой.
	priceRegex = regexp.MustCompile(`(\d{1,3}(?:[\s.,]\d{3})+|\d{4,9})\s*(?:руб|рублеи|р\.|₽|тыс|million|млн)|(?:цена|стоит|стоимость|price)\s*[:\-]?\s*(\d{1,3}(?:[\s.,]\d{3})+|\d{4,9})`)
	// Пробег: число рядом с км/пробегом.
	mileageRegex = regexp.MustCompile(`(\d{1,3}(?:[\s.,]\d{3})+|\d{2,7})\s*(?:км|km|тысяч км|тыс\.? км)|(?:пробег|mileage)\s*[:\-]?\s*(\d{1,3}(?:[\s.,]\d{3})+|\d{2,7})`)

	bareYearRegex = regexp.MustCompile(`\b(?:19|20)\d{2}\b`)
	digitsRegex   = regexp.MustCompile(`\d`)
)

// Check сравнивает факты из текста с карточкой. Возвращается первое
// расхождение в порядке год -> цена -> пробег.
func Check(managerText string, truth GroundTruth) Conflict {
	text := strings.ToLower(managerText)

	if year, quote, ok := extractYear(text); ok && truth.Year != 0 && year != truth.Year {
		return Conflict{
			HasConflict:     true,
			Field:           FieldYear,
			AdvertisedValue: truth.Year,
			ClaimedValue:    year,
			Quote:           quote,
		}
	}

	if price, quote, ok := extractNumber(text, priceRegex); ok && truth.PriceRUB > 0 {
		if relativeDiff(price, truth.PriceRUB) > priceTolerance {
			return Conflict{
				HasConflict:     true,
				Field:           FieldPrice,
				AdvertisedValue: truth.PriceRUB,
				ClaimedValue:    price,
				Quote:           quote,
			}
		}
	}

	if mileage, quote, ok := extractNumber(text, mileageRegex); ok && truth.MileageKM > 0 {
		if relativeDiff(mileage, truth.MileageKM) > mileageTolerance {
			return Conflict{
				HasConflict:     true,
				Field:           FieldMileage,
				AdvertisedValue: truth.MileageKM,
				ClaimedValue:    mileage,
				Quote:           quote,
			}
		}
	}

	return Conflict{}
}

func extractYear(text string) (int, string, bool) {
	if m := yearRegex.FindStringSubmatch(text); m != nil {
		quote := m[0]
		if year := bareYearRegex.FindString(quote); year != "" {
			v, err := strconv.Atoi(year)
			if err == nil {
				return v, quote, true
			}
		}
	}
	return 0, "", false
}

func extractNumber(text string, re *regexp.Regexp) (int, string, bool) {
	m := re.FindStringSubmatch(text)
	if m == nil {
		return 0, "", false
	}
	raw := m[1]
	if raw == "" && len(m) > 2 {
		raw = m[2]
	}
	digits := strings.Join(digitsRegex.FindAllString(raw, -1), "")
	if digits == "" {
		return 0, "", false
	}
	v, err := strconv.Atoi(digits)
	if err != nil {
		return 0, "", false
	}
	return v, m[0], true
}

func relativeDiff(claimed, advertised int) float64 {
	if advertised == 0 {
		return 0
	}
	diff := float64(claimed - advertised)
	if diff < 0 {
		diff = -diff
	}
	return diff / float64(advertised)
}
