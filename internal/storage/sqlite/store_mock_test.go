package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dyike/pricemove/internal/models"
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewWithDB(db), mock
}

func TestSaveAnalysis_ExecErrorLeavesRecordUntouched(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectExec("INSERT INTO analyses").WillReturnError(errors.New("disk I/O error"))

	rec := &models.AnalysisRecord{Ticker: "AAPL", AnalysisText: "x"}
	err := store.SaveAnalysis(context.Background(), rec)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "upsert analysis")
	assert.True(t, rec.UpdatedAt.IsZero())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestLoadAnalysis_RejectsCorruptTimestamp(t *testing.T) {
	store, mock := newMockStore(t)
	rows := sqlmock.NewRows([]string{"ticker", "analysis_text", "news_summary", "current_step",
		"progress_message", "status", "updated_at"}).
		AddRow("AAPL", "text", "[]", "completed", "done", "completed", "yesterday")
	mock.ExpectQuery("FROM analyses").WithArgs("AAPL").WillReturnRows(rows)

	_, err := store.LoadAnalysis(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "parse updated_at")
}

func TestLoadAnalysis_QueryError(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery("FROM analyses").WithArgs("AAPL").WillReturnError(errors.New("locked"))

	_, err := store.LoadAnalysis(context.Background(), "AAPL")
	assert.ErrorContains(t, err, "get analysis")
}

func TestAddTickers_RollsBackOnFailure(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectBegin()
	prep := mock.ExpectPrepare("INSERT INTO tickers")
	prep.ExpectExec().WithArgs("AAPL").WillReturnResult(sqlmock.NewResult(1, 1))
	prep.ExpectExec().WithArgs("TSLA").WillReturnError(errors.New("constraint"))
	mock.ExpectRollback()

	err := store.AddTickers(context.Background(), "AAPL", "", "TSLA")
	assert.ErrorContains(t, err, "insert ticker TSLA")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestSaveAnalysis_StampsWithClock(t *testing.T) {
	store, mock := newMockStore(t)
	at := time.Date(2026, 10, 15, 14, 30, 0, 0, time.UTC)
	store.SetClock(func() time.Time { return at })
	mock.ExpectExec("INSERT INTO analyses").
		WithArgs("TSLA", "t", "[]", "completed", "", "completed", at.Format(time.RFC3339Nano)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	rec := &models.AnalysisRecord{Ticker: "TSLA", AnalysisText: "t", NewsSummary: "[]",
		CurrentStep: "completed", Status: "completed"}
	require.NoError(t, store.SaveAnalysis(context.Background(), rec))
	assert.Equal(t, at, rec.UpdatedAt)
}
