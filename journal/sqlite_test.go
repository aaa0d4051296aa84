package journal

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

func newTestSQLite(t *testing.T) (*SQLite, string) {
	t.Helper()

	dir := t.TempDir()
	path := filepath.Join(dir, "test.db")

	j, err := NewSQLite(path)
	require.NoError(t, err)

	return j, path
}

func TestSQLiteSchemaCreated(t *testing.T) {
	t.Parallel()

	j, path := newTestSQLite(t)
	assert.NoError(t, j.Close())

	db, err := sql.Open("sqlite3", path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	var name string
	err = db.QueryRow(`SELECT name FROM sqlite_master WHERE type='table' AND name = 'trades'`).Scan(&name)
	require.NoError(t, err)
	assert.Equal(t, "trades", name)
}

func TestSQLiteReplaceAndGet(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	sell := date.New(2024, 1, 25)
	days := 10
	closed := sampleRecord("B", "MSFT")
	closed.SellDate = &sell
	closed.SellPrice = decimal.NewNullDecimal(decimal.RequireFromString("110.75"))
	closed.PnL = decimal.NewNullDecimal(decimal.RequireFromString("103.5"))
	closed.HoldingDays = &days
	closed.Memo = "a, \"quoted\"\nmemo"

	recs := []TradeRecord{sampleRecord("A", "AAPL"), closed, sampleRecord("A", "DUPE")}
	n, err := j.Replace(context.Background(), recs)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "duplicate ids keep their first row")

	got, err := j.GetTrade("B")
	require.NoError(t, err)
	assertSameRecord(t, closed, got)

	first, err := j.GetTrade("A")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", first.Ticker)

	_, err = j.GetTrade("nonexistent")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)

	// A second Replace starts from scratch.
	n, err = j.Replace(context.Background(), recs[:1])
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	_, err = j.GetTrade("B")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestSQLiteListTradesBoughtBetween(t *testing.T) {
	t.Parallel()

	j, _ := newTestSQLite(t)
	defer j.Close()

	var recs []TradeRecord
	for i, d := range []int{20, 1, 10} {
		r := sampleRecord(string(rune('A'+i)), "AAPL")
		r.BuyDate = date.New(2024, 5, d)
		recs = append(recs, r)
	}
	_, err := j.Replace(context.Background(), recs)
	require.NoError(t, err)

	results, err := j.ListTradesBoughtBetween(date.New(2024, 5, 1), date.New(2024, 5, 20))
	require.NoError(t, err)
	require.Len(t, results, 3, "both ends are included")
	assert.Equal(t, "B", results[0].ID)
	assert.Equal(t, "C", results[1].ID)
	assert.Equal(t, "A", results[2].ID)

	results, err = j.ListTradesBoughtBetween(date.New(2024, 5, 2), date.New(2024, 5, 19))
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "C", results[0].ID)

	results, err = j.ListTradesBoughtBetween(date.New(2024, 5, 10), date.New(2024, 5, 10))
	require.NoError(t, err)
	require.Len(t, results, 1, "a one-day range holds that day")

	results, err = j.ListTradesBoughtBetween(date.New(2025, 1, 1), date.New(2025, 2, 1))
	require.NoError(t, err)
	assert.Empty(t, results)
}
