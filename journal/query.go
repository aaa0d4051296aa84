package journal

import (
	"fmt"
	"strings"
	"time"

	"github.com/rustyeddy/tradebook/internal/apperrors"
)

// FindRecord returns the first row with id.
func (j *Ledger) FindRecord(id string) (TradeRecord, error) {
	recs, err := j.ReadAll()
	if err != nil {
		return TradeRecord{}, err
	}
	for _, r := range recs {
		if r.ID == id {
			return r, nil
		}
	}
	return TradeRecord{}, fmt.Errorf("%w: %s", apperrors.ErrTradeNotFound, id)
}

// RecordsForTicker returns the rows for ticker, compared case-insensitively.
func (j *Ledger) RecordsForTicker(ticker string) ([]TradeRecord, error) {
	recs, err := j.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []TradeRecord
	for _, r := range recs {
		if strings.EqualFold(r.Ticker, strings.TrimSpace(ticker)) {
			out = append(out, r)
		}
	}
	return out, nil
}

// RecordsInDateRange returns rows bought within [start, end], both days
// included.
func (j *Ledger) RecordsInDateRange(start, end time.Time) ([]TradeRecord, error) {
	recs, err := j.ReadAll()
	if err != nil {
		return nil, err
	}
	var out []TradeRecord
	for _, r := range recs {
		if r.BuyDate.IsZero() || r.BuyDate.Before(start) || r.BuyDate.After(end) {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}
