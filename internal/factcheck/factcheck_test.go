package factcheck

import "testing"

func testTruth() GroundTruth {
	return GroundTruth{
		Brand:     "Kia",
		Model:     "Sportage",
		Year:      2023,
		PriceRUB:  2450000,
		MileageKM: 45000,
	}
}

func TestCheckYearConflict(t *testing.T) {
	conflict := Check("this is a 2021 model", testTruth())
	if !conflict.HasConflict {
		t.Fatalf("expected year conflict")
	}
	if conflict.Field != FieldYear {
		t.Fatalf("field=%s want year", conflict.Field)
	}
	if conflict.AdvertisedValue != 2023 || conflict.ClaimedValue != 2021 {
		t.Fatalf("unexpected values: %+v", conflict)
	}
}

func TestCheckYearConflictRussian(t *testing.T) {
	conflict := Check("Это автомобиль 2021 года, отличное состояние", testTruth())
	if !conflict.HasConflict || conflict.Field != FieldYear {
		t.Fatalf("expected russian year conflict, got %+v", conflict)
	}
}

func TestCheckYearExactMatchNoConflict(t *testing.T) {
	conflict := Check("автомобиль 2023 года выпуска", testTruth())
	if conflict.HasConflict {
		t.Fatalf("matching year must not conflict: %+v", conflict)
	}
}

func TestCheckPriceTolerance(t *testing.T) {
	// В пределах 5% — не конфликт: 2 500 000 против 2 450 000 это ~2%.
	conflict := Check("стоит 2 500 000 рублей", testTruth())
	if conflict.HasConflict {
		t.Fatalf("price within 5%% must not conflict: %+v", conflict)
	}

	conflict = Check("цена 2 000 000 рублей", testTruth())
	if !conflict.HasConflict || conflict.Field != FieldPrice {
		t.Fatalf("expected price conflict, got %+v", conflict)
	}
	if conflict.ClaimedValue != 2000000 || conflict.AdvertisedValue != 2450000 {
		t.Fatalf("unexpected price values: %+v", conflict)
	}
}

func TestCheckMileageTolerance(t *testing.T) {
	conflict := Check("пробег 48 000 км", testTruth())
	if conflict.HasConflict {
		t.Fatalf("mileage within 10%% must not conflict: %+v", conflict)
	}

	conflict = Check("пробег всего 20 000 км", testTruth())
	if !conflict.HasConflict || conflict.Field != FieldMileage {
		t.Fatalf("expected mileage conflict, got %+v", conflict)
	}
	if conflict.ClaimedValue != 20000 {
		t.Fatalf("claimed=%d want 20000", conflict.ClaimedValue)
	}
}

func TestCheckPriorityYearBeforePrice(t *testing.T) {
	// Конфликтуют и год, и цена — репортится только год.
	conflict := Check("машина 2020 года, цена 1 000 000 рублей", testTruth())
	if !conflict.HasConflict || conflict.Field != FieldYear {
		t.Fatalf("year must win priority, got %+v", conflict)
	}
}

func TestCheckPriorityPriceBeforeMileage(t *testing.T) {
	conflict := Check("цена 1 000 000 рублей, пробег 200 000 км", testTruth())
	if !conflict.HasConflict || conflict.Field != FieldPrice {
		t.Fatalf("price must win over mileage, got %+v", conflict)
	}
}

func TestCheckNoNumbersNoConflict(t *testing.T) {
	conflict := Check("Отличный автомобиль, приезжайте на тест-драйв", testTruth())
	if conflict.HasConflict {
		t.Fatalf("text without numbers must not conflict: %+v", conflict)
	}
}

func TestCheckFieldNotMentioned(t *testing.T) {
	// Только пробег упомянут и он верный: ни одно поле не конфликтует.
	conflict := Check("пробег 45 000 км, один владелец", testTruth())
	if conflict.HasConflict {
		t.Fatalf("correct mileage only: %+v", conflict)
	}
}

func TestRelativeDiff(t *testing.T) {
	if d := relativeDiff(110, 100); d != 0.1 {
		t.Fatalf("relativeDiff=%v", d)
	}
	if d := relativeDiff(90, 100); d != 0.1 {
		t.Fatalf("relativeDiff=%v", d)
	}
}
