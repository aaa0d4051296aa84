package journal

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/rustyeddy/tradebook/internal/apperrors"
	"github.com/rustyeddy/tradebook/pkg/date"
)

// SQLite is a queryable copy of the ledger. The CSV file stays the source of
// truth; Replace rebuilds the copy from it.
type SQLite struct {
	db *sql.DB
}

func NewSQLite(path string) (*SQLite, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	if _, err := db.Exec(Schema); err != nil {
		_ = db.Close()
		return nil, err
	}

	return &SQLite{db: db}, nil
}

// Replace swaps the mirrored rows for recs in one transaction. Duplicate IDs
// keep their first occurrence, as the ledger repair does.
func (j *SQLite) Replace(ctx context.Context, recs []TradeRecord) (int, error) {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM trades`); err != nil {
		return 0, err
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR IGNORE INTO trades
		(id, ticker, buy_date, buy_price, quantity, sell_date, sell_price, pnl,
		 holding_days, commission, folder_path, memo, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return 0, err
	}
	defer stmt.Close()

	n := 0
	for _, r := range recs {
		f := encode(r)
		res, err := stmt.ExecContext(ctx,
			f[0], f[1], f[2], f[3], f[4],
			nullString(f[5]), nullString(f[6]), nullString(f[7]), nullInt(r.HoldingDays),
			f[9], f[10], f[11], f[12], f[13],
		)
		if err != nil {
			return n, fmt.Errorf("insert %s: %w", r.ID, err)
		}
		if c, _ := res.RowsAffected(); c > 0 {
			n++
		}
	}
	return n, tx.Commit()
}

const selectTrades = `
	SELECT id, ticker, buy_date, buy_price, quantity, sell_date, sell_price, pnl,
	       holding_days, commission, folder_path, memo, created_at, updated_at
	FROM trades`

// GetTrade returns a single trade record by ID.
func (j *SQLite) GetTrade(id string) (TradeRecord, error) {
	rows, err := j.query(selectTrades+` WHERE id = ?`, id)
	if err != nil {
		return TradeRecord{}, err
	}
	if len(rows) == 0 {
		return TradeRecord{}, fmt.Errorf("%w: %s", apperrors.ErrTradeNotFound, id)
	}
	return rows[0], nil
}

// ListTradesBoughtBetween returns trades bought within [start, end], both
// days included as in RecordsInDateRange, ordered by buy date.
func (j *SQLite) ListTradesBoughtBetween(start, end time.Time) ([]TradeRecord, error) {
	return j.query(selectTrades+`
		WHERE buy_date >= ? AND buy_date <= ?
		ORDER BY buy_date ASC, id ASC`, date.Format(start), date.Format(end))
}

func (j *SQLite) query(q string, args ...any) ([]TradeRecord, error) {
	rows, err := j.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []TradeRecord
	for rows.Next() {
		var (
			f           [14]string
			sell, price sql.NullString
			pnl         sql.NullString
			days        sql.NullInt64
		)
		if err := rows.Scan(
			&f[0], &f[1], &f[2], &f[3], &f[4],
			&sell, &price, &pnl, &days,
			&f[9], &f[10], &f[11], &f[12], &f[13],
		); err != nil {
			return nil, err
		}
		f[5], f[6], f[7] = sell.String, price.String, pnl.String
		if days.Valid {
			f[8] = fmt.Sprint(days.Int64)
		}
		out = append(out, decode(f[:]))
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (j *SQLite) Close() error {
	return j.db.Close()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullInt(n *int) sql.NullInt64 {
	if n == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(*n), Valid: true}
}
