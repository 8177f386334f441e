package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/tetraminz/sales_trainer/internal/engine"
	"github.com/tetraminz/sales_trainer/internal/health"
	"github.com/tetraminz/sales_trainer/internal/scoring"
	"github.com/tetraminz/sales_trainer/internal/topic"
)

func openTestDB(t *testing.T) *SQLite {
	t.Helper()
	dbPath := filepath.Join(t.TempDir(), "trainer.db")
	s, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

func sampleState() *engine.SessionState {
	now := time.Date(2025, 11, 3, 12, 0, 0, 0, time.UTC)
	return &engine.SessionState{
		SessionID: "s-1",
		Status:    engine.StatusActive,
		Phase:     "needs_discovery",
		Health:    health.NewDialogHealth(),
		Topics:    topic.NewMap(),
		Checklist: scoring.NewChecklist(),
		History: []engine.Message{
			{Role: engine.RoleManager, Text: "Добрый день!", At: now},
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
}

func TestSQLiteRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	state := sampleState()
	state.Topics = state.Topics.RecordEvasion(topic.NeedsDiscovery)
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	got, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Phase != "needs_discovery" || got.Status != engine.StatusActive {
		t.Fatalf("unexpected state: %+v", got)
	}
	if got.Topics[topic.NeedsDiscovery].EvasionCount != 1 {
		t.Fatalf("topic state lost in round trip: %+v", got.Topics)
	}
	if len(got.History) != 1 || got.History[0].Text != "Добрый день!" {
		t.Fatalf("history lost: %+v", got.History)
	}
}

func TestSQLiteGetMissing(t *testing.T) {
	s := openTestDB(t)
	if _, err := s.Get(context.Background(), "nope"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestSQLiteSaveUpsert(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	state := sampleState()
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	state.Phase = "closing"
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save #2: %v", err)
	}

	got, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got.Phase != "closing" {
		t.Fatalf("upsert did not overwrite: %q", got.Phase)
	}
}

func TestSQLiteOutcomePersisted(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	state := sampleState()
	state.Status = engine.StatusFailed
	state.FailureReason = health.ReasonRepeatedLowEffort
	state.Outcome = &engine.SessionOutcome{
		SessionID:       "s-1",
		Score:           17,
		DimensionScores: map[scoring.Dimension]int{scoring.DimFirstContact: 33},
		Checklist:       state.Checklist,
		Issues:          []scoring.Issue{},
		Recommendations: []string{},
		EarlyFail:       true,
		FailureReason:   health.ReasonRepeatedLowEffort,
		FinishedAt:      state.UpdatedAt,
	}
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}

	rows, err := s.ListOutcomes(ctx)
	if err != nil {
		t.Fatalf("ListOutcomes: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("expected 1 outcome, got %d", len(rows))
	}
	row := rows[0]
	if row.Score != 17 || !row.EarlyFail || row.FailureReason != string(health.ReasonRepeatedLowEffort) {
		t.Fatalf("unexpected outcome row: %+v", row)
	}
}

func TestSetupRecreates(t *testing.T) {
	dbPath := filepath.Join(t.TempDir(), "trainer.db")
	if err := Setup(dbPath); err != nil {
		t.Fatalf("Setup: %v", err)
	}

	s, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("OpenSQLite after setup: %v", err)
	}
	defer s.Close()

	if err := s.Save(context.Background(), sampleState()); err != nil {
		t.Fatalf("Save: %v", err)
	}
	// Повторный setup сносит данные.
	s.Close()
	if err := Setup(dbPath); err != nil {
		t.Fatalf("Setup #2: %v", err)
	}
	s2, err := OpenSQLite(dbPath)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s2.Close()
	if _, err := s2.Get(context.Background(), "s-1"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("setup must wipe sessions, got %v", err)
	}
}

func TestInMemoryStore(t *testing.T) {
	s := NewInMemory()
	ctx := context.Background()

	if _, err := s.Get(ctx, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound")
	}
	state := sampleState()
	if err := s.Save(ctx, state); err != nil {
		t.Fatalf("Save: %v", err)
	}
	got, err := s.Get(ctx, "s-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if got != state {
		t.Fatalf("in-memory store must return the saved pointer")
	}
}
