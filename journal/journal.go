// Package journal is the trade ledger: one CSV file holding one row per
// trade, read and written whole through an fsys.FileService.
package journal

import (
	"time"

	"github.com/shopspring/decimal"
)

// TradeRecord is one ledger row.
//
// PnL and HoldingDays are derived from the price and date fields; they are
// persisted for readers of the CSV but recomputed on every write by the
// trades service.
type TradeRecord struct {
	ID          string
	Ticker      string
	BuyDate     time.Time
	BuyPrice    decimal.Decimal
	Quantity    decimal.Decimal
	SellDate    *time.Time
	SellPrice   decimal.NullDecimal
	PnL         decimal.NullDecimal
	HoldingDays *int
	Commission  decimal.Decimal
	FolderPath  string
	Memo        string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Closed reports whether the trade has been sold.
func (r TradeRecord) Closed() bool {
	return r.SellDate != nil || r.SellPrice.Valid
}

// MissingFields lists the required fields that are empty.
func (r TradeRecord) MissingFields() []string {
	var out []string
	if r.Ticker == "" {
		out = append(out, "ticker")
	}
	if r.BuyDate.IsZero() {
		out = append(out, "buy_date")
	}
	if r.Quantity.IsZero() {
		out = append(out, "quantity")
	}
	if r.BuyPrice.IsZero() {
		out = append(out, "buy_price")
	}
	return out
}

// Store is the ledger contract the services depend on.
type Store interface {
	ReadAll() ([]TradeRecord, error)
	AddRecord(TradeRecord) error
	UpdateRecord(id string, fn func(*TradeRecord)) (TradeRecord, error)
	DeleteRecord(id string) error
	DeleteRecords(ids []string) (int, error)
	WriteAll([]TradeRecord) error
	FindRecord(id string) (TradeRecord, error)
}
