// Package postgres provides a PostgreSQL store implementation on top
// of sqlx. Transactions map directly onto database transactions.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq" // postgres driver

	genie "github.com/JoooooMei/subscription-genie"
	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on PostgreSQL.
type Store struct {
	db *sqlx.DB
	// ext is the query target: the pool, or the transaction inside
	// WithTx.
	ext sqlx.ExtContext
}

// New wraps an existing connection pool.
func New(db *sqlx.DB) *Store {
	return &Store{db: db, ext: db}
}

// Open connects to the given DSN and wraps the pool.
func Open(dsn string) (*Store, error) {
	db, err := sqlx.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres: open: %w", err)
	}
	return New(db), nil
}

// DB returns the underlying pool for direct access.
func (s *Store) DB() *sqlx.DB { return s.db }

// Migrate creates the tables and indexes if they do not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", genie.ErrMigrationFailed, err)
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.db.Close()
}

// ──────────────────────────────────────────────────
// Service registry
// ──────────────────────────────────────────────────

func (s *Store) NextServiceID(ctx context.Context) (id.ServiceID, error) {
	var next uint64
	err := sqlx.GetContext(ctx, s.ext, &next,
		`UPDATE genie_service_seq SET next = next + 1 WHERE id = 1 RETURNING next`)
	if err != nil {
		return id.NilService, fmt.Errorf("postgres: next service id: %w", err)
	}
	return id.ServiceID(next), nil
}

func (s *Store) CreateService(ctx context.Context, svc *service.Service) error {
	row := serviceToRow(svc)
	_, err := sqlx.NamedExecContext(ctx, s.ext, `
		INSERT INTO genie_services
			(id, name, price, owner, start_date, end_date, cycle_days, paused, created_at, updated_at)
		VALUES
			(:id, :name, :price, :owner, :start_date, :end_date, :cycle_days, :paused, :created_at, :updated_at)`,
		row)
	if err != nil {
		return fmt.Errorf("postgres: create service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, serviceID id.ServiceID) (*service.Service, error) {
	var row serviceRow
	err := sqlx.GetContext(ctx, s.ext, &row,
		`SELECT * FROM genie_services WHERE id = $1`, serviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, genie.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get service: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) UpdateService(ctx context.Context, svc *service.Service) error {
	row := serviceToRow(svc)
	res, err := sqlx.NamedExecContext(ctx, s.ext, `
		UPDATE genie_services SET
			name = :name, price = :price, owner = :owner,
			start_date = :start_date, end_date = :end_date,
			cycle_days = :cycle_days, paused = :paused,
			updated_at = :updated_at
		WHERE id = :id`,
		row)
	if err != nil {
		return fmt.Errorf("postgres: update service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return genie.ErrServiceNotFound
	}
	return nil
}

func (s *Store) ListServiceIDs(ctx context.Context) ([]id.ServiceID, error) {
	ids := []id.ServiceID{}
	err := sqlx.SelectContext(ctx, s.ext, &ids,
		`SELECT id FROM genie_services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("postgres: list service ids: %w", err)
	}
	return ids, nil
}

// ──────────────────────────────────────────────────
// Subscription ledger
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(ctx context.Context, user types.Identity, serviceID id.ServiceID) (*subscription.Subscription, error) {
	var row subscriptionRow
	err := sqlx.GetContext(ctx, s.ext, &row,
		`SELECT * FROM genie_subscriptions WHERE user_id = $1 AND service_id = $2`,
		user, serviceID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, genie.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres: get subscription: %w", err)
	}
	return row.toDomain(), nil
}

func (s *Store) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	row := subscriptionToRow(sub)
	_, err := sqlx.NamedExecContext(ctx, s.ext, `
		INSERT INTO genie_subscriptions
			(user_id, service_id, active, start_date, next_payment_date, end_date, created_at, updated_at)
		VALUES
			(:user_id, :service_id, :active, :start_date, :next_payment_date, :end_date, :created_at, :updated_at)
		ON CONFLICT (user_id, service_id) DO UPDATE SET
			active = EXCLUDED.active,
			start_date = EXCLUDED.start_date,
			next_payment_date = EXCLUDED.next_payment_date,
			end_date = EXCLUDED.end_date,
			updated_at = EXCLUDED.updated_at`,
		row)
	if err != nil {
		return fmt.Errorf("postgres: put subscription: %w", err)
	}
	return nil
}

func (s *Store) ListUserServiceIDs(ctx context.Context, user types.Identity) ([]id.ServiceID, error) {
	ids := []id.ServiceID{}
	err := sqlx.SelectContext(ctx, s.ext, &ids,
		`SELECT service_id FROM genie_user_index WHERE user_id = $1 ORDER BY pos`, user)
	if err != nil {
		return nil, fmt.Errorf("postgres: list user service ids: %w", err)
	}
	return ids, nil
}

func (s *Store) AppendUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO genie_user_index (user_id, service_id) VALUES ($1, $2)
		ON CONFLICT (user_id, service_id) DO NOTHING`,
		user, serviceID)
	if err != nil {
		return fmt.Errorf("postgres: append user service id: %w", err)
	}
	return nil
}

func (s *Store) RemoveUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	_, err := s.ext.ExecContext(ctx,
		`DELETE FROM genie_user_index WHERE user_id = $1 AND service_id = $2`,
		user, serviceID)
	if err != nil {
		return fmt.Errorf("postgres: remove user service id: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(ctx context.Context, owner types.Identity) (types.Amount, error) {
	var amount types.Amount
	err := sqlx.GetContext(ctx, s.ext, &amount,
		`SELECT amount FROM genie_balances WHERE owner = $1`, owner)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("postgres: get balance: %w", err)
	}
	return amount, nil
}

func (s *Store) SetBalance(ctx context.Context, owner types.Identity, amount types.Amount) error {
	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO genie_balances (owner, amount) VALUES ($1, $2)
		ON CONFLICT (owner) DO UPDATE SET amount = EXCLUDED.amount`,
		owner, amount)
	if err != nil {
		return fmt.Errorf("postgres: set balance: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit receipts
// ──────────────────────────────────────────────────

func (s *Store) RecordPayment(ctx context.Context, p *balance.Payment) error {
	row := paymentToRow(p)
	_, err := sqlx.NamedExecContext(ctx, s.ext, `
		INSERT INTO genie_payments (id, owner, payer, service_id, periods, amount, paid_at)
		VALUES (:id, :owner, :payer, :service_id, :periods, :amount, :paid_at)`,
		row)
	if err != nil {
		return fmt.Errorf("postgres: record payment: %w", err)
	}
	return nil
}

func (s *Store) RecordWithdrawal(ctx context.Context, w *balance.Withdrawal) error {
	row := withdrawalToRow(w)
	_, err := sqlx.NamedExecContext(ctx, s.ext, `
		INSERT INTO genie_withdrawals (id, owner, service_id, amount, withdrawn_at)
		VALUES (:id, :owner, :service_id, :amount, :withdrawn_at)`,
		row)
	if err != nil {
		return fmt.Errorf("postgres: record withdrawal: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, owner types.Identity) ([]*balance.Payment, error) {
	rows := []paymentRow{}
	err := sqlx.SelectContext(ctx, s.ext, &rows,
		`SELECT * FROM genie_payments WHERE owner = $1 ORDER BY paid_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: list payments: %w", err)
	}
	payments := make([]*balance.Payment, 0, len(rows))
	for _, r := range rows {
		payments = append(payments, r.toDomain())
	}
	return payments, nil
}

func (s *Store) ListWithdrawals(ctx context.Context, owner types.Identity) ([]*balance.Withdrawal, error) {
	rows := []withdrawalRow{}
	err := sqlx.SelectContext(ctx, s.ext, &rows,
		`SELECT * FROM genie_withdrawals WHERE owner = $1 ORDER BY withdrawn_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("postgres: list withdrawals: %w", err)
	}
	withdrawals := make([]*balance.Withdrawal, 0, len(rows))
	for _, r := range rows {
		withdrawals = append(withdrawals, r.toDomain())
	}
	return withdrawals, nil
}

// ──────────────────────────────────────────────────
// Contract owner
// ──────────────────────────────────────────────────

func (s *Store) ContractOwner(ctx context.Context) (types.Identity, error) {
	var owner types.Identity
	err := sqlx.GetContext(ctx, s.ext, &owner,
		`SELECT owner FROM genie_contract_owner WHERE id = 1`)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NilIdentity, nil
	}
	if err != nil {
		return types.NilIdentity, fmt.Errorf("postgres: contract owner: %w", err)
	}
	return owner, nil
}

func (s *Store) SetContractOwner(ctx context.Context, owner types.Identity) error {
	_, err := s.ext.ExecContext(ctx, `
		INSERT INTO genie_contract_owner (id, owner) VALUES (1, $1)
		ON CONFLICT (id) DO UPDATE SET owner = EXCLUDED.owner`,
		owner)
	if err != nil {
		return fmt.Errorf("postgres: set contract owner: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// WithTx runs fn inside a database transaction. Nested calls join the
// enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if _, inTx := s.ext.(*sqlx.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("postgres: begin tx: %w", err)
	}

	txStore := &Store{db: s.db, ext: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error matters more
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("postgres: commit tx: %w", err)
	}
	return nil
}
