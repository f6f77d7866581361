package store

const schemaSQL = `
CREATE TABLE IF NOT EXISTS energy_sessions (
	session_id       TEXT PRIMARY KEY,
	device_id        TEXT NOT NULL,
	device_name      TEXT NOT NULL DEFAULT '',
	location         TEXT NOT NULL DEFAULT '',
	start_time       TEXT NOT NULL,
	end_time         TEXT NOT NULL,
	energy_kwh       REAL NOT NULL,
	cost_rub         REAL NOT NULL,
	tariff_type      TEXT NOT NULL DEFAULT 'single',
	day_energy_kwh   REAL NOT NULL DEFAULT 0,
	night_energy_kwh REAL NOT NULL DEFAULT 0,
	cost_detail      TEXT NOT NULL DEFAULT '[]',
	created_at       TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sessions_device_start
	ON energy_sessions(device_id, start_time);
CREATE INDEX IF NOT EXISTS idx_sessions_start
	ON energy_sessions(start_time);

CREATE TABLE IF NOT EXISTS sales (
	order_id       TEXT PRIMARY KEY,
	currency       TEXT NOT NULL,
	amount_sold    REAL NOT NULL,
	total_received REAL NOT NULL,
	avg_price      REAL NOT NULL,
	executed_at    TEXT NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_sales_executed
	ON sales(executed_at);

CREATE TABLE IF NOT EXISTS period_summaries (
	period_name     TEXT NOT NULL,
	period_start    TEXT NOT NULL,
	period_end      TEXT NOT NULL,
	total_cost_rub  REAL NOT NULL,
	income_usdt     REAL NOT NULL,
	income_rub      REAL NOT NULL,
	net_profit_rub  REAL NOT NULL,
	session_count   INTEGER NOT NULL,
	sales_count     INTEGER NOT NULL,
	exchange_rate   REAL NOT NULL,
	computed_at     TEXT NOT NULL,
	PRIMARY KEY (period_name, period_start)
);
`
