// Package sqlite persists finished and failed analyses. Reads replay the
// stored rows through the aggregate operations, so a loaded analysis obeys
// the same ordering invariants as a live one.
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	_ "github.com/mattn/go-sqlite3"

	"github.com/SPYQWER1/aiagents-stock/internal/domain"
)

// ErrNotFound is returned when no analysis exists for the requested id.
var ErrNotFound = errors.New("analysis not found")

type Repository struct {
	db *sql.DB
}

func Open(dbPath string) (*Repository, error) {
	if strings.TrimSpace(dbPath) == "" {
		return nil, fmt.Errorf("db path is required")
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		return nil, fmt.Errorf("create db dir: %w", err)
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA busy_timeout=3000;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA foreign_keys=ON;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("set pragma %s: %w", p, err)
		}
	}

	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &Repository{db: db}, nil
}

func (r *Repository) Close() error {
	if r == nil || r.db == nil {
		return nil
	}
	return r.db.Close()
}

func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS analyses (
    id TEXT PRIMARY KEY,
    symbol TEXT NOT NULL,
    name TEXT,
    sector TEXT,
    industry TEXT,
    current_price REAL,
    period TEXT,
    status TEXT NOT NULL,
    fail_reason TEXT,
    team_discussion TEXT,
    final_decision TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    updated_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);

CREATE TABLE IF NOT EXISTS reviews (
    analysis_id TEXT NOT NULL REFERENCES analyses(id) ON DELETE CASCADE,
    role TEXT NOT NULL,
    agent_name TEXT NOT NULL,
    summary TEXT NOT NULL DEFAULT '',
    details TEXT,
    focus_areas TEXT,
    raw_output TEXT,
    created_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    UNIQUE(analysis_id, role)
);

CREATE INDEX IF NOT EXISTS idx_analyses_symbol_created ON analyses(symbol, created_at);
`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

// Save upserts the aggregate and its reviews in one transaction.
func (r *Repository) Save(ctx context.Context, a *domain.StockAnalysis) error {
	decisionJSON, err := marshalOrEmpty(a.FinalDecision())
	if err != nil {
		return fmt.Errorf("marshal decision: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
INSERT INTO analyses (id, symbol, name, sector, industry, current_price, period, status, fail_reason, team_discussion, final_decision)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status=excluded.status,
    fail_reason=excluded.fail_reason,
    team_discussion=excluded.team_discussion,
    final_decision=excluded.final_decision,
    updated_at=CURRENT_TIMESTAMP
`, a.ID, a.Stock.Symbol, a.Stock.Name, a.Stock.Sector, a.Stock.Industry,
		a.Stock.CurrentPrice, a.Period, string(a.Status()), a.FailReason(),
		a.TeamDiscussion(), decisionJSON)
	if err != nil {
		return fmt.Errorf("insert analysis: %w", err)
	}

	for _, review := range a.Reviews() {
		detailsJSON, err := marshalOrEmpty(review.Content.Details)
		if err != nil {
			return fmt.Errorf("marshal review details: %w", err)
		}
		focusJSON, err := marshalOrEmpty(review.Content.FocusAreas)
		if err != nil {
			return fmt.Errorf("marshal focus areas: %w", err)
		}

		_, err = tx.ExecContext(ctx, `
INSERT INTO reviews (analysis_id, role, agent_name, summary, details, focus_areas, raw_output)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(analysis_id, role) DO UPDATE SET
    agent_name=excluded.agent_name,
    summary=excluded.summary,
    details=excluded.details,
    focus_areas=excluded.focus_areas,
    raw_output=excluded.raw_output
`, a.ID, string(review.Role), review.AgentName, review.Content.Summary,
			detailsJSON, focusJSON, review.Content.RawOutput)
		if err != nil {
			return fmt.Errorf("insert review %s: %w", review.Role, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// FindByID loads one analysis and rebuilds it through the aggregate API.
func (r *Repository) FindByID(ctx context.Context, id string) (*domain.StockAnalysis, error) {
	var (
		stock          domain.StockInfo
		period         string
		status         string
		failReason     sql.NullString
		teamDiscussion sql.NullString
		decisionJSON   sql.NullString
	)
	err := r.db.QueryRowContext(ctx, `
SELECT symbol, name, sector, industry, current_price, period, status, fail_reason, team_discussion, final_decision
FROM analyses WHERE id = ?
`, id).Scan(&stock.Symbol, &stock.Name, &stock.Sector, &stock.Industry,
		&stock.CurrentPrice, &period, &status, &failReason, &teamDiscussion, &decisionJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("query analysis: %w", err)
	}

	a := domain.NewStockAnalysisWithID(id, stock, period)
	if status == string(domain.StatusCreated) {
		return a, nil
	}
	if err := a.Start(); err != nil {
		return nil, err
	}

	if err := r.replayReviews(ctx, a); err != nil {
		return nil, err
	}

	if teamDiscussion.String != "" {
		if err := a.ConductDiscussion(teamDiscussion.String); err != nil {
			return nil, err
		}
	}

	switch status {
	case string(domain.StatusCompleted):
		decision := map[string]any{}
		if decisionJSON.String != "" {
			if err := json.Unmarshal([]byte(decisionJSON.String), &decision); err != nil {
				return nil, fmt.Errorf("unmarshal decision: %w", err)
			}
		}
		if err := a.FinalizeDecision(decision); err != nil {
			return nil, err
		}
	case string(domain.StatusFailed):
		if err := a.Fail(failReason.String); err != nil {
			return nil, err
		}
	}
	return a, nil
}

func (r *Repository) replayReviews(ctx context.Context, a *domain.StockAnalysis) error {
	rows, err := r.db.QueryContext(ctx, `
SELECT role, agent_name, summary, details, focus_areas, raw_output
FROM reviews WHERE analysis_id = ?
`, a.ID)
	if err != nil {
		return fmt.Errorf("query reviews: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			roleKey    string
			agentName  string
			content    domain.AnalysisContent
			detailsRaw sql.NullString
			focusRaw   sql.NullString
			rawOutput  sql.NullString
		)
		if err := rows.Scan(&roleKey, &agentName, &content.Summary, &detailsRaw, &focusRaw, &rawOutput); err != nil {
			return fmt.Errorf("scan review: %w", err)
		}
		// 旧版本可能写入已废弃的角色，读历史时跳过而不是整条失败
		role, err := domain.ParseRole(roleKey)
		if err != nil {
			log.Printf("sqlite: skip review with unknown role %q in analysis %s", roleKey, a.ID)
			continue
		}

		if detailsRaw.String != "" {
			if err := json.Unmarshal([]byte(detailsRaw.String), &content.Details); err != nil {
				return fmt.Errorf("unmarshal review details: %w", err)
			}
		}
		if focusRaw.String != "" {
			if err := json.Unmarshal([]byte(focusRaw.String), &content.FocusAreas); err != nil {
				return fmt.Errorf("unmarshal focus areas: %w", err)
			}
		}
		content.RawOutput = rawOutput.String

		if err := a.AddReview(role, content, agentName); err != nil {
			return err
		}
	}
	return rows.Err()
}

// HistoryEntry is one row of the analysis history listing.
type HistoryEntry struct {
	ID        string
	Symbol    string
	Name      string
	Status    string
	Rating    string
	CreatedAt string
}

// ListRecent returns the newest analyses, most recent first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]HistoryEntry, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, symbol, name, status, final_decision, created_at
FROM analyses ORDER BY created_at DESC, rowid DESC LIMIT ?
`, limit)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var (
			entry        HistoryEntry
			name         sql.NullString
			decisionJSON sql.NullString
		)
		if err := rows.Scan(&entry.ID, &entry.Symbol, &name, &entry.Status, &decisionJSON, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		entry.Name = name.String
		entry.Rating = ratingFromDecision(decisionJSON.String)
		entries = append(entries, entry)
	}
	return entries, rows.Err()
}

func ratingFromDecision(decisionJSON string) string {
	if decisionJSON == "" {
		return ""
	}
	var decision map[string]any
	if err := json.Unmarshal([]byte(decisionJSON), &decision); err != nil {
		return ""
	}
	rating, _ := decision["rating"].(string)
	return rating
}

func marshalOrEmpty(v any) (string, error) {
	switch val := v.(type) {
	case nil:
		return "", nil
	case map[string]any:
		if len(val) == 0 {
			return "", nil
		}
	case []string:
		if len(val) == 0 {
			return "", nil
		}
	}
	data, err := json.Marshal(v)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
