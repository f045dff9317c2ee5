package sqlite

// schema is applied on Migrate. Timestamps are stored as unix
// nanoseconds so comparisons stay integer-exact.
const schema = `
CREATE TABLE IF NOT EXISTS genie_services (
	id          INTEGER PRIMARY KEY,
	name        TEXT    NOT NULL,
	price       INTEGER NOT NULL CHECK (price >= 0),
	owner       TEXT    NOT NULL,
	start_date  INTEGER NOT NULL,
	end_date    INTEGER NOT NULL,
	cycle_days  INTEGER NOT NULL CHECK (cycle_days > 0),
	paused      INTEGER NOT NULL DEFAULT 0,
	created_at  INTEGER NOT NULL,
	updated_at  INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS genie_service_seq (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	next INTEGER NOT NULL
);

INSERT OR IGNORE INTO genie_service_seq (id, next) VALUES (1, 0);

CREATE TABLE IF NOT EXISTS genie_subscriptions (
	user_id           TEXT    NOT NULL,
	service_id        INTEGER NOT NULL,
	active            INTEGER NOT NULL,
	start_date        INTEGER NOT NULL,
	next_payment_date INTEGER NOT NULL,
	end_date          INTEGER NOT NULL,
	created_at        INTEGER NOT NULL,
	updated_at        INTEGER NOT NULL,
	PRIMARY KEY (user_id, service_id)
);

CREATE TABLE IF NOT EXISTS genie_user_index (
	pos        INTEGER PRIMARY KEY AUTOINCREMENT,
	user_id    TEXT    NOT NULL,
	service_id INTEGER NOT NULL,
	UNIQUE (user_id, service_id)
);

CREATE TABLE IF NOT EXISTS genie_balances (
	owner  TEXT PRIMARY KEY,
	amount INTEGER NOT NULL CHECK (amount >= 0)
);

CREATE TABLE IF NOT EXISTS genie_payments (
	id         TEXT PRIMARY KEY,
	owner      TEXT    NOT NULL,
	payer      TEXT    NOT NULL,
	service_id INTEGER NOT NULL,
	periods    INTEGER NOT NULL,
	amount     INTEGER NOT NULL,
	paid_at    INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS genie_payments_owner ON genie_payments (owner, paid_at);

CREATE TABLE IF NOT EXISTS genie_withdrawals (
	id           TEXT PRIMARY KEY,
	owner        TEXT    NOT NULL,
	service_id   INTEGER NOT NULL,
	amount       INTEGER NOT NULL,
	withdrawn_at INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS genie_withdrawals_owner ON genie_withdrawals (owner, withdrawn_at);

CREATE TABLE IF NOT EXISTS genie_contract_owner (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	owner TEXT NOT NULL
);
`
