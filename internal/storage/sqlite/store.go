package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/dyike/pricemove/internal/models"
)

type Store struct {
	db  *sql.DB
	now func() time.Time
}

func Open(dbPath string) (*Store, error) {
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

	return NewWithDB(db), nil
}

// NewWithDB wraps an already prepared database. The schema is assumed to
// exist.
func NewWithDB(db *sql.DB) *Store {
	return &Store{db: db, now: time.Now}
}

func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// SetClock replaces the clock used to stamp saves.
func (s *Store) SetClock(now func() time.Time) {
	s.now = now
}

// updated_at is stored as RFC 3339 text in UTC so freshness checks keep
// sub-second precision.
func initSchema(db *sql.DB) error {
	schema := `
CREATE TABLE IF NOT EXISTS analyses (
    ticker TEXT PRIMARY KEY,
    analysis_text TEXT NOT NULL DEFAULT '',
    news_summary TEXT NOT NULL DEFAULT '',
    current_step TEXT NOT NULL DEFAULT '',
    progress_message TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT '',
    updated_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS tickers (
    symbol TEXT PRIMARY KEY,
    added_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
`

	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("init schema: %w", err)
	}
	return nil
}

func (s *Store) SaveAnalysis(ctx context.Context, rec *models.AnalysisRecord) error {
	if strings.TrimSpace(rec.Ticker) == "" {
		return fmt.Errorf("analysis ticker is required")
	}
	updatedAt := s.now().UTC()

	_, err := s.db.ExecContext(ctx, `
INSERT INTO analyses (ticker, analysis_text, news_summary, current_step, progress_message, status, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(ticker) DO UPDATE SET
    analysis_text=excluded.analysis_text,
    news_summary=excluded.news_summary,
    current_step=excluded.current_step,
    progress_message=excluded.progress_message,
    status=excluded.status,
    updated_at=excluded.updated_at
`, rec.Ticker, rec.AnalysisText, rec.NewsSummary, rec.CurrentStep, rec.ProgressMessage, rec.Status,
		updatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return fmt.Errorf("upsert analysis: %w", err)
	}
	rec.UpdatedAt = updatedAt
	return nil
}

func (s *Store) LoadAnalysis(ctx context.Context, ticker string) (*models.AnalysisRecord, error) {
	if strings.TrimSpace(ticker) == "" {
		return nil, fmt.Errorf("ticker is required")
	}
	row := s.db.QueryRowContext(ctx, `
SELECT ticker, analysis_text, news_summary, current_step, progress_message, status, updated_at
FROM analyses
WHERE ticker = ?
LIMIT 1
`, ticker)

	var (
		rec       models.AnalysisRecord
		updatedAt string
	)
	if err := row.Scan(&rec.Ticker, &rec.AnalysisText, &rec.NewsSummary, &rec.CurrentStep,
		&rec.ProgressMessage, &rec.Status, &updatedAt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get analysis: %w", err)
	}
	t, err := time.Parse(time.RFC3339Nano, updatedAt)
	if err != nil {
		return nil, fmt.Errorf("parse updated_at %q: %w", updatedAt, err)
	}
	rec.UpdatedAt = t
	return &rec, nil
}

func (s *Store) HasTicker(ctx context.Context, ticker string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(1) FROM tickers WHERE symbol = ?`, ticker).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("lookup ticker: %w", err)
	}
	return n > 0, nil
}

func (s *Store) AddTickers(ctx context.Context, tickers ...string) error {
	if len(tickers) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO tickers (symbol) VALUES (?) ON CONFLICT(symbol) DO NOTHING`)
	if err != nil {
		return fmt.Errorf("prepare insert ticker: %w", err)
	}
	defer stmt.Close()

	for _, t := range tickers {
		if strings.TrimSpace(t) == "" {
			continue
		}
		if _, err := stmt.ExecContext(ctx, t); err != nil {
			return fmt.Errorf("insert ticker %s: %w", t, err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit tickers: %w", err)
	}
	return nil
}

func (s *Store) ListTickers(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT symbol FROM tickers ORDER BY symbol ASC`)
	if err != nil {
		return nil, fmt.Errorf("list tickers: %w", err)
	}
	defer rows.Close()

	out := []string{}
	for rows.Next() {
		var symbol string
		if err := rows.Scan(&symbol); err != nil {
			return nil, fmt.Errorf("scan ticker: %w", err)
		}
		out = append(out, symbol)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list tickers rows: %w", err)
	}
	return out, nil
}
