package journal

import (
	"encoding/csv"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rustyeddy/tradebook/fsys"
	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

func newTestLedger(t *testing.T) (*Ledger, *fsys.OS) {
	t.Helper()
	f := fsys.NewOS(t.TempDir())
	return NewCSV(f, ""), f
}

func sampleRecord(id, ticker string) TradeRecord {
	created := time.Date(2024, 1, 15, 9, 30, 0, 0, time.UTC)
	return TradeRecord{
		ID:         id,
		Ticker:     ticker,
		BuyDate:    date.New(2024, 1, 15),
		BuyPrice:   decimal.RequireFromString("100.25"),
		Quantity:   decimal.RequireFromString("10"),
		Commission: decimal.RequireFromString("1.5"),
		FolderPath: "trades/2024/" + ticker + "_01-15_001",
		CreatedAt:  created,
		UpdatedAt:  created,
	}
}

func assertSameRecord(t *testing.T, want, got TradeRecord) {
	t.Helper()
	assert.Equal(t, want.ID, got.ID)
	assert.Equal(t, want.Ticker, got.Ticker)
	assert.True(t, want.BuyDate.Equal(got.BuyDate), "buy date %s != %s", want.BuyDate, got.BuyDate)
	assert.True(t, want.BuyPrice.Equal(got.BuyPrice), "buy price %s != %s", want.BuyPrice, got.BuyPrice)
	assert.True(t, want.Quantity.Equal(got.Quantity))
	assert.True(t, want.Commission.Equal(got.Commission))
	assert.Equal(t, want.SellPrice.Valid, got.SellPrice.Valid)
	assert.True(t, want.SellPrice.Decimal.Equal(got.SellPrice.Decimal))
	assert.Equal(t, want.PnL.Valid, got.PnL.Valid)
	assert.True(t, want.PnL.Decimal.Equal(got.PnL.Decimal))
	assert.Equal(t, want.SellDate == nil, got.SellDate == nil)
	if want.SellDate != nil && got.SellDate != nil {
		assert.True(t, want.SellDate.Equal(*got.SellDate))
	}
	assert.Equal(t, want.HoldingDays, got.HoldingDays)
	assert.Equal(t, want.FolderPath, got.FolderPath)
	assert.Equal(t, want.Memo, got.Memo)
	assert.True(t, want.CreatedAt.Equal(got.CreatedAt))
	assert.True(t, want.UpdatedAt.Equal(got.UpdatedAt))
}

func TestInitializeWritesHeaderOnce(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	require.NoError(t, j.Initialize())

	data, err := f.ReadFile(DefaultPath)
	require.NoError(t, err)
	header, err := csv.NewReader(strings.NewReader(string(data))).Read()
	require.NoError(t, err)
	assert.Equal(t, Header, header)

	require.NoError(t, j.AddRecord(sampleRecord("A", "AAPL")))
	require.NoError(t, j.Initialize())

	recs, err := j.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestReadAllMissingLedger(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	recs, err := j.ReadAll()
	require.NoError(t, err)
	assert.Empty(t, recs)
}

func TestRoundTripTrickyText(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)

	sell := date.New(2024, 2, 1)
	days := 17
	closed := sampleRecord("B", "MSFT")
	closed.SellDate = &sell
	closed.SellPrice = decimal.NewNullDecimal(decimal.RequireFromString("120.5"))
	closed.PnL = decimal.NewNullDecimal(decimal.RequireFromString("201"))
	closed.HoldingDays = &days
	closed.Memo = `said "buy", then sold`

	multiline := sampleRecord("C", "TSLA")
	multiline.Memo = "line one,\nline \"two\"\n  indented"

	plain := sampleRecord("A", "AAPL")

	want := []TradeRecord{plain, closed, multiline}
	for _, r := range want {
		require.NoError(t, j.AddRecord(r))
	}

	got, err := j.ReadAll()
	require.NoError(t, err)
	require.Len(t, got, len(want))
	for i := range want {
		assertSameRecord(t, want[i], got[i])
	}

	// WriteAll must produce the same rows as the append path.
	require.NoError(t, j.WriteAll(got))
	again, err := j.ReadAll()
	require.NoError(t, err)
	require.Len(t, again, len(want))
	for i := range want {
		assertSameRecord(t, want[i], again[i])
	}
}

func TestAddRecordRejectsDuplicate(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	require.NoError(t, j.AddRecord(sampleRecord("A", "AAPL")))

	before, err := f.ReadFile(DefaultPath)
	require.NoError(t, err)

	err = j.AddRecord(sampleRecord("A", "MSFT"))
	require.ErrorIs(t, err, apperrors.ErrDuplicateID)

	after, err := f.ReadFile(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, before, after)

	assert.ErrorIs(t, j.AddRecord(TradeRecord{}), apperrors.ErrEmptyID)
}

func TestAddRecordKeepsExistingBytes(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	hand := strings.Join(Header, ",") + "\nX,aapl,2024-01-15,100,1,,,,,0,trades/2024/AAPL_01-15_001,  spaced memo,,"
	require.NoError(t, f.WriteFile(DefaultPath, []byte(hand)))

	require.NoError(t, j.AddRecord(sampleRecord("Y", "MSFT")))

	data, err := f.ReadFile(DefaultPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), hand+"\n"))

	recs, err := j.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "  spaced memo", recs[0].Memo)
}

func TestAddRecordRefusesTornTail(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	torn := strings.Join(Header, ",") + "\n" +
		"A,AAPL,2024-01-15,100,10,,,,,0,trades/2024/AAPL_01-15_001,,,\n" +
		`X1,AAPL,2024-01-16,100,1,,,,,0,trades/2024/AAPL_01-16_001,"half a memo`
	require.NoError(t, f.WriteFile(DefaultPath, []byte(torn)))

	err := j.AddRecord(sampleRecord("NEW", "MSFT"))
	require.ErrorIs(t, err, apperrors.ErrLedgerWrite)

	data, err := f.ReadFile(DefaultPath)
	require.NoError(t, err)
	assert.Equal(t, torn, string(data))
	_, err = j.FindRecord("NEW")
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestAddRecordAfterShortTail(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	short := strings.Join(Header, ",") + "\nC,TSLA,2024-01-15"
	require.NoError(t, f.WriteFile(DefaultPath, []byte(short)))

	require.NoError(t, j.AddRecord(sampleRecord("NEW", "MSFT")))

	recs, stats, err := j.ReadAllWithStats()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "NEW", recs[0].ID)
	assert.Equal(t, 1, stats.Skipped)
}

func TestReadAllSkipsShortAndTolerant(t *testing.T) {
	t.Parallel()

	j, f := newTestLedger(t)
	content := strings.Join(Header, ",") + "\n" +
		"A,AAPL,2024-01-15,100,10,,,,,0,trades/2024/AAPL_01-15_001,,,\n" +
		"B,MSFT,not-a-date,abc,10,bad,xyz,,nan,0,p,,garbage,\n" +
		"C,TSLA,2024-01-15\n"
	require.NoError(t, f.WriteFile(DefaultPath, []byte(content)))

	recs, stats, err := j.ReadAllWithStats()
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, 2, stats.Rows)
	assert.Equal(t, 1, stats.Skipped)

	b := recs[1]
	assert.Equal(t, "B", b.ID)
	assert.True(t, b.BuyDate.IsZero())
	assert.True(t, b.BuyPrice.IsZero())
	assert.Nil(t, b.SellDate)
	assert.False(t, b.SellPrice.Valid)
	assert.Nil(t, b.HoldingDays)
	assert.True(t, b.CreatedAt.IsZero())
	assert.ElementsMatch(t, []string{"buy_date", "buy_price"}, b.MissingFields())
}

func TestUpdateRecord(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	require.NoError(t, j.AddRecord(sampleRecord("A", "AAPL")))
	require.NoError(t, j.AddRecord(sampleRecord("B", "MSFT")))

	got, err := j.UpdateRecord("B", func(r *TradeRecord) {
		r.ID = "changed"
		r.Memo = "updated"
	})
	require.NoError(t, err)
	assert.Equal(t, "B", got.ID)

	rec, err := j.FindRecord("B")
	require.NoError(t, err)
	assert.Equal(t, "updated", rec.Memo)

	_, err = j.UpdateRecord("missing", func(*TradeRecord) {})
	assert.ErrorIs(t, err, apperrors.ErrTradeNotFound)
}

func TestDeleteRecords(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	for _, id := range []string{"A", "B", "C", "D"} {
		require.NoError(t, j.AddRecord(sampleRecord(id, "AAPL")))
	}

	require.NoError(t, j.DeleteRecord("B"))
	assert.ErrorIs(t, j.DeleteRecord("B"), apperrors.ErrTradeNotFound)

	n, err := j.DeleteRecords([]string{"A", "D", "nope"})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	recs, err := j.ReadAll()
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "C", recs[0].ID)
}

func TestTableLoadFlush(t *testing.T) {
	t.Parallel()

	j, _ := newTestLedger(t)
	require.NoError(t, j.AddRecord(sampleRecord("A", "AAPL")))

	tbl, err := j.Load()
	require.NoError(t, err)
	tbl.Records = append(tbl.Records, sampleRecord("B", "MSFT"))

	recs, err := j.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 1, "table changes stay in memory until Flush")

	require.NoError(t, tbl.Flush())
	recs, err = j.ReadAll()
	require.NoError(t, err)
	assert.Len(t, recs, 2)
}
