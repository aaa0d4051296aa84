package journal

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

func TestFindRecord(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	require.NoError(t, j.AddRecord(sampleRecord("T123", "AAPL")))

	rec, err := j.FindRecord("T123")
	require.NoError(t, err)
	assert.Equal(t, "AAPL", rec.Ticker)

	_, err = j.FindRecord("nonexistent")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
	assert.Contains(t, err.Error(), "not found")
}

func TestRecordsForTicker(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	require.NoError(t, j.AddRecord(sampleRecord("A", "AAPL")))
	require.NoError(t, j.AddRecord(sampleRecord("B", "MSFT")))
	require.NoError(t, j.AddRecord(sampleRecord("C", "AAPL")))

	recs, err := j.RecordsForTicker(" aapl")
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "A", recs[0].ID)
	assert.Equal(t, "C", recs[1].ID)

	recs, err = j.RecordsForTicker("NVDA")
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRecordsInDateRange(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	days := []int{1, 5, 10, 20}
	for i, d := range days {
		r := sampleRecord(string(rune('A'+i)), "AAPL")
		r.BuyDate = date.New(2024, 5, d)
		require.NoError(t, j.AddRecord(r))
	}

	recs, err := j.RecordsInDateRange(date.New(2024, 5, 5), date.New(2024, 5, 10))
	require.NoError(t, err)
	require.Len(t, recs, 2, "both ends are inclusive")
	assert.Equal(t, "B", recs[0].ID)
	assert.Equal(t, "C", recs[1].ID)

	recs, err = j.RecordsInDateRange(date.New(2024, 6, 1), date.New(2024, 6, 30))
	require.NoError(t, err)
	assert.Empty(t, recs)
}
