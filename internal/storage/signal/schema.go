package signal

const schema = `
CREATE TABLE IF NOT EXISTS signals (
	id TEXT PRIMARY KEY,
	symbol TEXT NOT NULL,
	action TEXT NOT NULL,
	confidence INTEGER NOT NULL,
	entry_price REAL NOT NULL,
	stop_loss REAL NOT NULL,
	target REAL NOT NULL,
	risk_reward REAL NOT NULL,
	reasoning TEXT NOT NULL,
	strategy TEXT NOT NULL,
	timeframe TEXT NOT NULL,
	ts INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_signals_symbol_ts ON signals(symbol, ts);
`
