package journal

import (
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/rustyeddy/tradebook/pkg/date"
)

func TestFormatTradeOrg(t *testing.T) {
	t.Parallel()

	sell := date.New(2024, 3, 25)
	days := 10
	trade := TradeRecord{
		ID:          "01HQ3ZK7Y2ABCDEF",
		Ticker:      "AAPL",
		BuyDate:     date.New(2024, 3, 15),
		BuyPrice:    decimal.RequireFromString("100"),
		Quantity:    decimal.RequireFromString("10"),
		SellDate:    &sell,
		SellPrice:   decimal.NewNullDecimal(decimal.RequireFromString("150")),
		PnL:         decimal.NewNullDecimal(decimal.RequireFromString("495")),
		HoldingDays: &days,
		Commission:  decimal.RequireFromString("5"),
		FolderPath:  "trades/2024/AAPL_03-15_001",
		Memo:        "breakout over 200dma",
	}

	result := FormatTradeOrg(trade)

	assert.Contains(t, result, "** Trade: AAPL 2024-03-15 (01HQ3ZK7)")
	assert.Contains(t, result, ":PROPERTIES:")
	assert.Contains(t, result, ":ID: 01HQ3ZK7Y2ABCDEF")
	assert.Contains(t, result, ":BUY_PRICE: 100.00")
	assert.Contains(t, result, ":QUANTITY: 10")
	assert.Contains(t, result, ":SELL_DATE: 2024-03-25")
	assert.Contains(t, result, ":SELL_PRICE: 150.00")
	assert.Contains(t, result, ":PNL: 495.00")
	assert.Contains(t, result, ":HOLDING_DAYS: 10")
	assert.Contains(t, result, ":FOLDER: trades/2024/AAPL_03-15_001")
	assert.Contains(t, result, ":END:")
	assert.Contains(t, result, "breakout over 200dma")
}

func TestFormatTradeOrgOpenTrade(t *testing.T) {
	t.Parallel()

	result := FormatTradeOrg(TradeRecord{ID: "short", Ticker: "MSFT", BuyDate: date.New(2024, 1, 2)})
	assert.Contains(t, result, "** Trade: MSFT 2024-01-02 (short)")
	assert.NotContains(t, result, ":SELL_DATE:")
	assert.NotContains(t, result, ":PNL:")
}

func TestFormatTradesOrg(t *testing.T) {
	t.Parallel()

	trades := []TradeRecord{
		{ID: "trade-001", Ticker: "AAPL", BuyDate: date.New(2024, 1, 10)},
		{ID: "trade-002", Ticker: "MSFT", BuyDate: date.New(2024, 1, 11)},
	}

	result := FormatTradesOrg(trades)
	assert.Contains(t, result, "AAPL")
	assert.Contains(t, result, "MSFT")

	parts := strings.Split(result, "\n\n\n")
	assert.Len(t, parts, 2, "Expected two trades separated by blank lines")

	assert.Empty(t, FormatTradesOrg(nil))
	assert.NotContains(t, FormatTradesOrg(trades[:1]), "\n\n\n")
}

func TestShortID(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		input    string
		expected string
	}{
		{"long ID gets truncated", "01HQ3ZK7Y2ABCDEF", "01HQ3ZK7"},
		{"exactly 8 characters", "12345678", "12345678"},
		{"less than 8 characters", "short", "short"},
		{"empty string", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, shortID(tt.input))
		})
	}
}
