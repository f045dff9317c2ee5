package postgres

// schema is applied as a whole on Migrate. Every statement is
// idempotent so Migrate can run on every Start.
const schema = `
CREATE TABLE IF NOT EXISTS genie_services (
	id          BIGINT PRIMARY KEY,
	name        TEXT        NOT NULL,
	price       BIGINT      NOT NULL CHECK (price >= 0),
	owner       TEXT        NOT NULL,
	start_date  TIMESTAMPTZ NOT NULL,
	end_date    TIMESTAMPTZ NOT NULL,
	cycle_days  INTEGER     NOT NULL CHECK (cycle_days > 0),
	paused      BOOLEAN     NOT NULL DEFAULT FALSE,
	created_at  TIMESTAMPTZ NOT NULL,
	updated_at  TIMESTAMPTZ NOT NULL
);

CREATE TABLE IF NOT EXISTS genie_service_seq (
	id   INTEGER PRIMARY KEY CHECK (id = 1),
	next BIGINT NOT NULL
);

INSERT INTO genie_service_seq (id, next) VALUES (1, 0)
ON CONFLICT (id) DO NOTHING;

CREATE TABLE IF NOT EXISTS genie_subscriptions (
	user_id           TEXT        NOT NULL,
	service_id        BIGINT      NOT NULL,
	active            BOOLEAN     NOT NULL,
	start_date        TIMESTAMPTZ NOT NULL,
	next_payment_date TIMESTAMPTZ NOT NULL,
	end_date          TIMESTAMPTZ NOT NULL,
	created_at        TIMESTAMPTZ NOT NULL,
	updated_at        TIMESTAMPTZ NOT NULL,
	PRIMARY KEY (user_id, service_id)
);

CREATE TABLE IF NOT EXISTS genie_user_index (
	pos        BIGSERIAL,
	user_id    TEXT   NOT NULL,
	service_id BIGINT NOT NULL,
	PRIMARY KEY (user_id, service_id)
);

CREATE INDEX IF NOT EXISTS genie_user_index_pos ON genie_user_index (user_id, pos);

CREATE TABLE IF NOT EXISTS genie_balances (
	owner  TEXT PRIMARY KEY,
	amount BIGINT NOT NULL CHECK (amount >= 0)
);

CREATE TABLE IF NOT EXISTS genie_payments (
	id         TEXT PRIMARY KEY,
	owner      TEXT        NOT NULL,
	payer      TEXT        NOT NULL,
	service_id BIGINT      NOT NULL,
	periods    BIGINT      NOT NULL,
	amount     BIGINT      NOT NULL,
	paid_at    TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS genie_payments_owner ON genie_payments (owner, paid_at);

CREATE TABLE IF NOT EXISTS genie_withdrawals (
	id           TEXT PRIMARY KEY,
	owner        TEXT        NOT NULL,
	service_id   BIGINT      NOT NULL,
	amount       BIGINT      NOT NULL,
	withdrawn_at TIMESTAMPTZ NOT NULL
);

CREATE INDEX IF NOT EXISTS genie_withdrawals_owner ON genie_withdrawals (owner, withdrawn_at);

CREATE TABLE IF NOT EXISTS genie_contract_owner (
	id    INTEGER PRIMARY KEY CHECK (id = 1),
	owner TEXT NOT NULL
);
`
