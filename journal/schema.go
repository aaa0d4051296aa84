package journal

// Schema is the SQLite mirror of the ledger. Prices are stored as text so
// decimals survive the trip unchanged.
const Schema = `
CREATE TABLE IF NOT EXISTS trades (
	id TEXT PRIMARY KEY,
	ticker TEXT NOT NULL,
	buy_date TEXT NOT NULL,
	buy_price TEXT NOT NULL,
	quantity TEXT NOT NULL,
	sell_date TEXT,
	sell_price TEXT,
	pnl TEXT,
	holding_days INTEGER,
	commission TEXT NOT NULL,
	folder_path TEXT NOT NULL,
	memo TEXT NOT NULL,
	created_at TEXT NOT NULL,
	updated_at TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_trades_ticker ON trades(ticker);
CREATE INDEX IF NOT EXISTS idx_trades_buy_date ON trades(buy_date);
`
