// Package report строит агрегированную аналитику по завершенным
// тренировочным сессиям: распределение баллов, причины провалов,
// средние по измерениям и худшие звонки.
package report

import (
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/tetraminz/sales_trainer/internal/scoring"
	"github.com/tetraminz/sales_trainer/internal/store"
)

const worstSessionsLimit = 10

// Metrics — агрегаты по всем строкам outcomes.
type Metrics struct {
	TotalSessions  int
	CompletedCount int
	EarlyFailCount int
	EarlyFailPct   float64

	ScoreAvg float64
	ScoreMin int
	ScoreMax int
	// Корзины: 0-20, 21-40, 41-60, 61-80, 81-100.
	ScoreBuckets [5]int

	FailureReasons []ReasonCount
	DimensionAvg   []DimensionAvg
	TopIssues      []IssueCount

	WorstSessions []SessionDigest
}

// ReasonCount — частота одной причины провала.
type ReasonCount struct {
	Reason string
	Count  int
}

// DimensionAvg — средний балл одного измерения.
type DimensionAvg struct {
	Dimension string
	Avg       float64
	Sessions  int
}

// IssueCount — частота одного типа проблемы.
type IssueCount struct {
	Type  string
	Count int
}

// SessionDigest — строка таблицы худших сессий.
type SessionDigest struct {
	SessionID     string
	Score         int
	EarlyFail     bool
	FailureReason string
	IssueCount    int
	FinishedAtUTC string
}

// BuildMetrics агрегирует строки outcomes. Битые JSON-поля строки
// считаются ошибкой данных, а не поводом молча пропустить сессию.
func BuildMetrics(rows []store.OutcomeRow) (Metrics, error) {
	metrics := Metrics{}
	reasons := map[string]int{}
	issues := map[string]int{}
	dimensionSums := map[string]int{}
	dimensionCounts := map[string]int{}

	for _, row := range rows {
		metrics.TotalSessions++
		if metrics.TotalSessions == 1 {
			metrics.ScoreMin = row.Score
			metrics.ScoreMax = row.Score
		}
		if row.Score < metrics.ScoreMin {
			metrics.ScoreMin = row.Score
		}
		if row.Score > metrics.ScoreMax {
			metrics.ScoreMax = row.Score
		}
		metrics.ScoreAvg += float64(row.Score)
		metrics.ScoreBuckets[scoreBucket(row.Score)]++

		if row.EarlyFail {
			metrics.EarlyFailCount++
		} else {
			metrics.CompletedCount++
		}
		if reason := strings.TrimSpace(row.FailureReason); reason != "" {
			reasons[reason]++
		}

		var dimensions map[string]int
		if err := json.Unmarshal([]byte(row.DimensionsJSON), &dimensions); err != nil {
			return Metrics{}, fmt.Errorf("decode dimensions for session %s: %w", row.SessionID, err)
		}
		for name, score := range dimensions {
			dimensionSums[name] += score
			dimensionCounts[name]++
		}

		var sessionIssues []scoring.Issue
		if err := json.Unmarshal([]byte(row.IssuesJSON), &sessionIssues); err != nil {
			return Metrics{}, fmt.Errorf("decode issues for session %s: %w", row.SessionID, err)
		}
		for _, issue := range sessionIssues {
			issues[string(issue.Type)]++
		}

		metrics.WorstSessions = append(metrics.WorstSessions, SessionDigest{
			SessionID:     row.SessionID,
			Score:         row.Score,
			EarlyFail:     row.EarlyFail,
			FailureReason: row.FailureReason,
			IssueCount:    len(sessionIssues),
			FinishedAtUTC: row.FinishedAtUTC,
		})
	}

	if metrics.TotalSessions > 0 {
		metrics.ScoreAvg = metrics.ScoreAvg / float64(metrics.TotalSessions)
		metrics.EarlyFailPct = 100.0 * float64(metrics.EarlyFailCount) / float64(metrics.TotalSessions)
	}

	for reason, count := range reasons {
		metrics.FailureReasons = append(metrics.FailureReasons, ReasonCount{Reason: reason, Count: count})
	}
	sort.Slice(metrics.FailureReasons, func(i, j int) bool {
		if metrics.FailureReasons[i].Count == metrics.FailureReasons[j].Count {
			return metrics.FailureReasons[i].Reason < metrics.FailureReasons[j].Reason
		}
		return metrics.FailureReasons[i].Count > metrics.FailureReasons[j].Count
	})

	for name, sum := range dimensionSums {
		metrics.DimensionAvg = append(metrics.DimensionAvg, DimensionAvg{
			Dimension: name,
			Avg:       float64(sum) / float64(dimensionCounts[name]),
			Sessions:  dimensionCounts[name],
		})
	}
	sort.Slice(metrics.DimensionAvg, func(i, j int) bool {
		return metrics.DimensionAvg[i].Dimension < metrics.DimensionAvg[j].Dimension
	})

	for issueType, count := range issues {
		metrics.TopIssues = append(metrics.TopIssues, IssueCount{Type: issueType, Count: count})
	}
	sort.Slice(metrics.TopIssues, func(i, j int) bool {
		if metrics.TopIssues[i].Count == metrics.TopIssues[j].Count {
			return metrics.TopIssues[i].Type < metrics.TopIssues[j].Type
		}
		return metrics.TopIssues[i].Count > metrics.TopIssues[j].Count
	})

	sort.Slice(metrics.WorstSessions, func(i, j int) bool {
		if metrics.WorstSessions[i].Score == metrics.WorstSessions[j].Score {
			return metrics.WorstSessions[i].SessionID < metrics.WorstSessions[j].SessionID
		}
		return metrics.WorstSessions[i].Score < metrics.WorstSessions[j].Score
	})
	if len(metrics.WorstSessions) > worstSessionsLimit {
		metrics.WorstSessions = metrics.WorstSessions[:worstSessionsLimit]
	}

	return metrics, nil
}

func scoreBucket(score int) int {
	switch {
	case score <= 20:
		return 0
	case score <= 40:
		return 1
	case score <= 60:
		return 2
	case score <= 80:
		return 3
	default:
		return 4
	}
}

var bucketLabels = [5]string{"0-20", "21-40", "41-60", "61-80", "81-100"}

// BuildMarkdown рендерит метрики в markdown-отчет для выгрузки.
func BuildMarkdown(rows []store.OutcomeRow) (string, error) {
	metrics, err := BuildMetrics(rows)
	if err != nil {
		return "", err
	}

	var b strings.Builder
	b.WriteString("# Training Analytics\n\n")
	b.WriteString("## Totals\n")
	b.WriteString(fmt.Sprintf("- total_sessions: `%d`\n", metrics.TotalSessions))
	b.WriteString(fmt.Sprintf("- completed: `%d`\n", metrics.CompletedCount))
	b.WriteString(fmt.Sprintf("- early_fail: `%d` (%.2f%%)\n\n", metrics.EarlyFailCount, metrics.EarlyFailPct))

	b.WriteString("## Scores\n")
	b.WriteString(fmt.Sprintf("- avg: `%.2f`\n", metrics.ScoreAvg))
	b.WriteString(fmt.Sprintf("- min: `%d`\n", metrics.ScoreMin))
	b.WriteString(fmt.Sprintf("- max: `%d`\n", metrics.ScoreMax))
	for i, label := range bucketLabels {
		b.WriteString(fmt.Sprintf("- bucket_%s: `%d`\n", label, metrics.ScoreBuckets[i]))
	}
	b.WriteString("\n")

	b.WriteString("## Failure Reasons\n")
	if len(metrics.FailureReasons) == 0 {
		b.WriteString("- none\n\n")
	} else {
		for _, item := range metrics.FailureReasons {
			b.WriteString(fmt.Sprintf("- `%s`: `%d`\n", item.Reason, item.Count))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Dimension Averages\n")
	if len(metrics.DimensionAvg) == 0 {
		b.WriteString("- none\n\n")
	} else {
		b.WriteString("| dimension | avg | sessions |\n")
		b.WriteString("| --- | ---: | ---: |\n")
		for _, item := range metrics.DimensionAvg {
			b.WriteString(fmt.Sprintf("| `%s` | `%.2f` | `%d` |\n", item.Dimension, item.Avg, item.Sessions))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Top Issues\n")
	if len(metrics.TopIssues) == 0 {
		b.WriteString("- none\n\n")
	} else {
		for _, item := range metrics.TopIssues {
			b.WriteString(fmt.Sprintf("- `%s`: `%d`\n", item.Type, item.Count))
		}
		b.WriteString("\n")
	}

	b.WriteString("## Worst Sessions\n")
	if len(metrics.WorstSessions) == 0 {
		b.WriteString("- none\n")
	} else {
		b.WriteString("| session_id | score | early_fail | failure_reason | issues | finished_at |\n")
		b.WriteString("| --- | ---: | --- | --- | ---: | --- |\n")
		for _, item := range metrics.WorstSessions {
			b.WriteString(fmt.Sprintf("| `%s` | `%d` | `%t` | `%s` | `%d` | `%s` |\n",
				item.SessionID,
				item.Score,
				item.EarlyFail,
				item.FailureReason,
				item.IssueCount,
				item.FinishedAtUTC,
			))
		}
	}

	return b.String(), nil
}

// FormatMetrics — краткая текстовая сводка для stdout.
func FormatMetrics(m Metrics) string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("total_sessions=%d\n", m.TotalSessions))
	b.WriteString(fmt.Sprintf("completed=%d\n", m.CompletedCount))
	b.WriteString(fmt.Sprintf("early_fail=%d (%.2f%%)\n", m.EarlyFailCount, m.EarlyFailPct))
	b.WriteString(fmt.Sprintf("score_avg=%.2f\n", m.ScoreAvg))
	b.WriteString(fmt.Sprintf("score_min=%d\n", m.ScoreMin))
	b.WriteString(fmt.Sprintf("score_max=%d\n", m.ScoreMax))
	for _, item := range m.FailureReasons {
		b.WriteString(fmt.Sprintf("failure_reason[%s]=%d\n", item.Reason, item.Count))
	}
	return b.String()
}
