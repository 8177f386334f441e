package report

import (
	"strings"
	"testing"

	"github.com/tetraminz/sales_trainer/internal/store"
)

func sampleRows() []store.OutcomeRow {
	return []store.OutcomeRow{
		{
			SessionID:      "s-good",
			Score:          86,
			EarlyFail:      false,
			FailureReason:  "",
			DimensionsJSON: `{"first_contact":100,"product_and_sales":80,"closing_commitment":90,"communication":75}`,
			IssuesJSON:     `[]`,
			FinishedAtUTC:  "2026-08-01T10:00:00Z",
		},
		{
			SessionID:      "s-rude",
			Score:          12,
			EarlyFail:      true,
			FailureReason:  "PROFANITY",
			DimensionsJSON: `{"first_contact":20,"product_and_sales":0,"closing_commitment":0,"communication":0}`,
			IssuesJSON:     `[{"issue_type":"PROFANITY_USED","severity":"HIGH","evidence":[],"recommendation":"r"}]`,
			FinishedAtUTC:  "2026-08-01T11:00:00Z",
		},
		{
			SessionID:      "s-lazy",
			Score:          30,
			EarlyFail:      true,
			FailureReason:  "REPEATED_LOW_EFFORT",
			DimensionsJSON: `{"first_contact":40,"product_and_sales":20,"closing_commitment":0,"communication":25}`,
			IssuesJSON:     `[{"issue_type":"LOW_ENGAGEMENT","severity":"MEDIUM","evidence":[],"recommendation":"r"},{"issue_type":"PROFANITY_USED","severity":"HIGH","evidence":[],"recommendation":"r"}]`,
			FinishedAtUTC:  "2026-08-02T09:00:00Z",
		},
	}
}

func TestBuildMetricsAggregates(t *testing.T) {
	t.Parallel()

	metrics, err := BuildMetrics(sampleRows())
	if err != nil {
		t.Fatalf("BuildMetrics error: %v", err)
	}

	if metrics.TotalSessions != 3 || metrics.CompletedCount != 1 || metrics.EarlyFailCount != 2 {
		t.Fatalf("totals got %d/%d/%d", metrics.TotalSessions, metrics.CompletedCount, metrics.EarlyFailCount)
	}
	if metrics.ScoreMin != 12 || metrics.ScoreMax != 86 {
		t.Fatalf("min/max got %d/%d", metrics.ScoreMin, metrics.ScoreMax)
	}
	// (86+12+30)/3
	wantAvg := 128.0 / 3.0
	if diff := metrics.ScoreAvg - wantAvg; diff > 0.001 || diff < -0.001 {
		t.Fatalf("avg got %.4f want %.4f", metrics.ScoreAvg, wantAvg)
	}
	if metrics.ScoreBuckets[0] != 1 || metrics.ScoreBuckets[1] != 1 || metrics.ScoreBuckets[4] != 1 {
		t.Fatalf("buckets got %v", metrics.ScoreBuckets)
	}
}

func TestBuildMetricsOrdersReasonsAndIssues(t *testing.T) {
	t.Parallel()

	metrics, err := BuildMetrics(sampleRows())
	if err != nil {
		t.Fatalf("BuildMetrics error: %v", err)
	}

	if len(metrics.FailureReasons) != 2 {
		t.Fatalf("failure reasons got %+v", metrics.FailureReasons)
	}
	// Количества равны, порядок алфавитный.
	if metrics.FailureReasons[0].Reason != "PROFANITY" || metrics.FailureReasons[1].Reason != "REPEATED_LOW_EFFORT" {
		t.Fatalf("failure reason order got %+v", metrics.FailureReasons)
	}

	if len(metrics.TopIssues) != 2 {
		t.Fatalf("issues got %+v", metrics.TopIssues)
	}
	if metrics.TopIssues[0].Type != "PROFANITY_USED" || metrics.TopIssues[0].Count != 2 {
		t.Fatalf("top issue got %+v", metrics.TopIssues[0])
	}
}

func TestBuildMetricsWorstSessionsSorted(t *testing.T) {
	t.Parallel()

	metrics, err := BuildMetrics(sampleRows())
	if err != nil {
		t.Fatalf("BuildMetrics error: %v", err)
	}

	if len(metrics.WorstSessions) != 3 {
		t.Fatalf("worst sessions got %d", len(metrics.WorstSessions))
	}
	if metrics.WorstSessions[0].SessionID != "s-rude" || metrics.WorstSessions[2].SessionID != "s-good" {
		t.Fatalf("worst order got %+v", metrics.WorstSessions)
	}
	if metrics.WorstSessions[1].IssueCount != 2 {
		t.Fatalf("s-lazy issue count got %d", metrics.WorstSessions[1].IssueCount)
	}
}

func TestBuildMetricsRejectsBrokenJSON(t *testing.T) {
	t.Parallel()

	rows := []store.OutcomeRow{{
		SessionID:      "s-broken",
		DimensionsJSON: `not json`,
		IssuesJSON:     `[]`,
	}}
	if _, err := BuildMetrics(rows); err == nil {
		t.Fatalf("expected error for broken dimensions json")
	}
}

func TestBuildMarkdownContainsSections(t *testing.T) {
	t.Parallel()

	markdown, err := BuildMarkdown(sampleRows())
	if err != nil {
		t.Fatalf("BuildMarkdown error: %v", err)
	}

	for _, section := range []string{
		"# Training Analytics",
		"## Totals",
		"## Scores",
		"## Failure Reasons",
		"## Dimension Averages",
		"## Top Issues",
		"## Worst Sessions",
		"`PROFANITY`",
		"| `s-rude` | `12` |",
	} {
		if !strings.Contains(markdown, section) {
			t.Fatalf("markdown missing %q:\n%s", section, markdown)
		}
	}
}

func TestBuildMarkdownEmpty(t *testing.T) {
	t.Parallel()

	markdown, err := BuildMarkdown(nil)
	if err != nil {
		t.Fatalf("BuildMarkdown error: %v", err)
	}
	if !strings.Contains(markdown, "- total_sessions: `0`") {
		t.Fatalf("empty markdown unexpected:\n%s", markdown)
	}
	if !strings.Contains(markdown, "- none") {
		t.Fatalf("empty markdown should mark empty sections:\n%s", markdown)
	}
}

func TestFormatMetrics(t *testing.T) {
	t.Parallel()

	metrics, err := BuildMetrics(sampleRows())
	if err != nil {
		t.Fatalf("BuildMetrics error: %v", err)
	}
	text := FormatMetrics(metrics)
	if !strings.Contains(text, "total_sessions=3") {
		t.Fatalf("summary missing totals:\n%s", text)
	}
	if !strings.Contains(text, "failure_reason[PROFANITY]=1") {
		t.Fatalf("summary missing reasons:\n%s", text)
	}
}
