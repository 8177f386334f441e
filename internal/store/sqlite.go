package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	_ "modernc.org/sqlite"

	"github.com/tetraminz/sales_trainer/internal/engine"
)

const createSessionsTableSQL = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id TEXT PRIMARY KEY,
	status TEXT NOT NULL,
	state_json TEXT NOT NULL,
	updated_at_utc TEXT NOT NULL
)`

const createOutcomesTableSQL = `
CREATE TABLE IF NOT EXISTS outcomes (
	session_id TEXT PRIMARY KEY,
	score INTEGER NOT NULL,
	early_fail INTEGER NOT NULL,
	failure_reason TEXT NOT NULL DEFAULT '',
	dimensions_json TEXT NOT NULL,
	issues_json TEXT NOT NULL,
	finished_at_utc TEXT NOT NULL
)`

var createOutcomesIndexesSQL = []string{
	`CREATE INDEX IF NOT EXISTS idx_outcomes_early_fail ON outcomes(early_fail)`,
	`CREATE INDEX IF NOT EXISTS idx_outcomes_failure_reason ON outcomes(failure_reason)`,
}

const (
	dropSessionsSQL = `DROP TABLE IF EXISTS sessions`
	dropOutcomesSQL = `DROP TABLE IF EXISTS outcomes`
)

const upsertSessionSQL = `
INSERT INTO sessions (session_id, status, state_json, updated_at_utc)
VALUES (?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	status = excluded.status,
	state_json = excluded.state_json,
	updated_at_utc = excluded.updated_at_utc`

const upsertOutcomeSQL = `
INSERT INTO outcomes (session_id, score, early_fail, failure_reason, dimensions_json, issues_json, finished_at_utc)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(session_id) DO UPDATE SET
	score = excluded.score,
	early_fail = excluded.early_fail,
	failure_reason = excluded.failure_reason,
	dimensions_json = excluded.dimensions_json,
	issues_json = excluded.issues_json,
	finished_at_utc = excluded.finished_at_utc`

// SQLite хранит снапшот сессии как непрозрачный JSON и отдельно —
// плоские строки outcomes для отчетов.
type SQLite struct {
	db *sql.DB
}

// OpenSQLite открывает базу и проверяет схему.
func OpenSQLite(dbPath string) (*SQLite, error) {
	db, err := openDB(dbPath)
	if err != nil {
		return nil, err
	}
	if err := ensureSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLite{db: db}, nil
}

func (s *SQLite) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Get читает снапшот сессии.
func (s *SQLite) Get(ctx context.Context, id string) (*engine.SessionState, error) {
	var stateJSON string
	err := s.db.QueryRowContext(ctx, `SELECT state_json FROM sessions WHERE session_id = ?`, id).Scan(&stateJSON)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("select session: %w", err)
	}

	var state engine.SessionState
	if err := json.Unmarshal([]byte(stateJSON), &state); err != nil {
		return nil, fmt.Errorf("decode session snapshot: %w", err)
	}
	return &state, nil
}

// Save сохраняет снапшот; терминальная сессия дополнительно попадает
// в outcomes.
func (s *SQLite) Save(ctx context.Context, state *engine.SessionState) error {
	stateJSON, err := json.Marshal(state)
	if err != nil {
		return fmt.Errorf("encode session snapshot: %w", err)
	}

	updatedAt := state.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = time.Now().UTC()
	}
	if _, err := s.db.ExecContext(ctx, upsertSessionSQL,
		state.SessionID,
		string(state.Status),
		string(stateJSON),
		updatedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert session: %w", err)
	}

	if state.Outcome != nil {
		if err := s.insertOutcome(ctx, state.Outcome); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLite) insertOutcome(ctx context.Context, o *engine.SessionOutcome) error {
	dimensions, err := json.Marshal(o.DimensionScores)
	if err != nil {
		return fmt.Errorf("encode dimensions: %w", err)
	}
	issues, err := json.Marshal(o.Issues)
	if err != nil {
		return fmt.Errorf("encode issues: %w", err)
	}
	if _, err := s.db.ExecContext(ctx, upsertOutcomeSQL,
		o.SessionID,
		o.Score,
		boolToInt(o.EarlyFail),
		string(o.FailureReason),
		string(dimensions),
		string(issues),
		o.FinishedAt.UTC().Format(time.RFC3339),
	); err != nil {
		return fmt.Errorf("upsert outcome: %w", err)
	}
	return nil
}

// OutcomeRow — плоская строка outcomes для отчета.
type OutcomeRow struct {
	SessionID      string
	Score          int
	EarlyFail      bool
	FailureReason  string
	DimensionsJSON string
	IssuesJSON     string
	FinishedAtUTC  string
}

// ListOutcomes возвращает все итоги в стабильном порядке.
func (s *SQLite) ListOutcomes(ctx context.Context) ([]OutcomeRow, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT session_id, score, early_fail, failure_reason, dimensions_json, issues_json, finished_at_utc
		FROM outcomes
		ORDER BY finished_at_utc, session_id
	`)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []OutcomeRow
	for rows.Next() {
		var row OutcomeRow
		var earlyFail int
		if err := rows.Scan(
			&row.SessionID,
			&row.Score,
			&earlyFail,
			&row.FailureReason,
			&row.DimensionsJSON,
			&row.IssuesJSON,
			&row.FinishedAtUTC,
		); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		row.EarlyFail = earlyFail == 1
		out = append(out, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return out, nil
}

func openDB(dbPath string) (*sql.DB, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	return db, nil
}

func ensureSchema(db *sql.DB) error {
	if _, err := db.Exec(createSessionsTableSQL); err != nil {
		return fmt.Errorf("create sessions table: %w", err)
	}
	if _, err := db.Exec(createOutcomesTableSQL); err != nil {
		return fmt.Errorf("create outcomes table: %w", err)
	}

	missingSessions, err := missingTableColumns(db, "sessions", requiredSessionColumns())
	if err != nil {
		return err
	}
	if len(missingSessions) > 0 {
		sort.Strings(missingSessions)
		return fmt.Errorf(
			"incompatible sessions schema, missing columns: %s; run `sales_trainer setup --db <path>`",
			strings.Join(missingSessions, ", "),
		)
	}

	missingOutcomes, err := missingTableColumns(db, "outcomes", requiredOutcomeColumns())
	if err != nil {
		return err
	}
	if len(missingOutcomes) > 0 {
		sort.Strings(missingOutcomes)
		return fmt.Errorf(
			"incompatible outcomes schema, missing columns: %s; run `sales_trainer setup --db <path>`",
			strings.Join(missingOutcomes, ", "),
		)
	}

	for _, stmt := range createOutcomesIndexesSQL {
		if _, err := db.Exec(stmt); err != nil {
			return fmt.Errorf("create outcomes index: %w", err)
		}
	}
	return nil
}

func requiredSessionColumns() []string {
	return []string{"session_id", "status", "state_json", "updated_at_utc"}
}

func requiredOutcomeColumns() []string {
	return []string{
		"session_id",
		"score",
		"early_fail",
		"failure_reason",
		"dimensions_json",
		"issues_json",
		"finished_at_utc",
	}
}

func missingTableColumns(db *sql.DB, tableName string, required []string) ([]string, error) {
	rows, err := db.Query(fmt.Sprintf(`PRAGMA table_info(%s)`, tableName))
	if err != nil {
		return nil, fmt.Errorf("inspect %s schema: %w", tableName, err)
	}
	defer rows.Close()

	existing := map[string]struct{}{}
	for rows.Next() {
		var cid int
		var name string
		var colType string
		var notNull int
		var defaultValue sql.NullString
		var pk int
		if err := rows.Scan(&cid, &name, &colType, &notNull, &defaultValue, &pk); err != nil {
			return nil, fmt.Errorf("scan %s schema: %w", tableName, err)
		}
		existing[name] = struct{}{}
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate %s schema: %w", tableName, err)
	}

	var missing []string
	for _, col := range required {
		if _, ok := existing[col]; !ok {
			missing = append(missing, col)
		}
	}
	return missing, nil
}

// Setup пересоздает базу с нуля.
func Setup(dbPath string) error {
	if strings.TrimSpace(dbPath) == "" {
		return fmt.Errorf("db path is required")
	}
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}
	db, err := openDB(dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	if _, err := db.Exec(dropSessionsSQL); err != nil {
		return fmt.Errorf("drop sessions table: %w", err)
	}
	if _, err := db.Exec(dropOutcomesSQL); err != nil {
		return fmt.Errorf("drop outcomes table: %w", err)
	}
	return ensureSchema(db)
}

func boolToInt(v bool) int {
	if v {
		return 1
	}
	return 0
}
