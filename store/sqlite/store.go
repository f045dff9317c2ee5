// Package sqlite provides a SQLite store implementation using the
// CGo-free modernc.org/sqlite driver. It suits single-process
// deployments that want durability without a database server.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // sqlite driver

	genie "github.com/JoooooMei/subscription-genie"
	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

var _ store.Store = (*Store)(nil)

// queryer is the subset of database/sql shared by *sql.DB and *sql.Tx.
type queryer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Store implements store.Store on SQLite.
type Store struct {
	db *sql.DB
	q  queryer
}

// New wraps an existing database handle.
func New(db *sql.DB) *Store {
	return &Store{db: db, q: db}
}

// Open opens (or creates) the database at path. ":memory:" gives a
// transient database.
func Open(path string) (*Store, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("sqlite: open: %w", err)
	}
	// sqlite allows a single writer; keep the pool at one connection
	// so in-memory databases keep their state too.
	db.SetMaxOpenConns(1)
	return New(db), nil
}

func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("%w: %v", genie.ErrMigrationFailed, err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Timestamps are stored as unix nanoseconds so time values round-trip
// exactly, the same precision the other backends keep.
func ts(t time.Time) int64 { return t.UnixNano() }

func fromTS(nsec int64) time.Time { return time.Unix(0, nsec).UTC() }

// ──────────────────────────────────────────────────
// Service registry
// ──────────────────────────────────────────────────

func (s *Store) NextServiceID(ctx context.Context) (id.ServiceID, error) {
	var next uint64
	err := s.q.QueryRowContext(ctx,
		`UPDATE genie_service_seq SET next = next + 1 WHERE id = 1 RETURNING next`).
		Scan(&next)
	if err != nil {
		return id.NilService, fmt.Errorf("sqlite: next service id: %w", err)
	}
	return id.ServiceID(next), nil
}

func (s *Store) CreateService(ctx context.Context, svc *service.Service) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_services
			(id, name, price, owner, start_date, end_date, cycle_days, paused, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		svc.ID, svc.Name, svc.Price, svc.Owner,
		ts(svc.StartDate), ts(svc.EndDate), svc.CycleDays, svc.Paused,
		ts(svc.CreatedAt), ts(svc.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: create service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, serviceID id.ServiceID) (*service.Service, error) {
	var (
		svc                                      service.Service
		startDate, endDate, createdAt, updatedAt int64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT id, name, price, owner, start_date, end_date, cycle_days, paused, created_at, updated_at
		FROM genie_services WHERE id = ?`, serviceID).
		Scan(&svc.ID, &svc.Name, &svc.Price, &svc.Owner,
			&startDate, &endDate, &svc.CycleDays, &svc.Paused,
			&createdAt, &updatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, genie.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get service: %w", err)
	}
	svc.StartDate = fromTS(startDate)
	svc.EndDate = fromTS(endDate)
	svc.CreatedAt = fromTS(createdAt)
	svc.UpdatedAt = fromTS(updatedAt)
	return &svc, nil
}

func (s *Store) UpdateService(ctx context.Context, svc *service.Service) error {
	res, err := s.q.ExecContext(ctx, `
		UPDATE genie_services SET
			name = ?, price = ?, owner = ?, start_date = ?, end_date = ?,
			cycle_days = ?, paused = ?, updated_at = ?
		WHERE id = ?`,
		svc.Name, svc.Price, svc.Owner, ts(svc.StartDate), ts(svc.EndDate),
		svc.CycleDays, svc.Paused, ts(svc.UpdatedAt), svc.ID)
	if err != nil {
		return fmt.Errorf("sqlite: update service: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return genie.ErrServiceNotFound
	}
	return nil
}

func (s *Store) ListServiceIDs(ctx context.Context) ([]id.ServiceID, error) {
	rows, err := s.q.QueryContext(ctx, `SELECT id FROM genie_services ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list service ids: %w", err)
	}
	defer rows.Close()

	ids := []id.ServiceID{}
	for rows.Next() {
		var serviceID id.ServiceID
		if err := rows.Scan(&serviceID); err != nil {
			return nil, fmt.Errorf("sqlite: list service ids: %w", err)
		}
		ids = append(ids, serviceID)
	}
	return ids, rows.Err()
}

// ──────────────────────────────────────────────────
// Subscription ledger
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(ctx context.Context, user types.Identity, serviceID id.ServiceID) (*subscription.Subscription, error) {
	var (
		sub                                           subscription.Subscription
		startDate, nextPay, endDate, created, updated int64
	)
	err := s.q.QueryRowContext(ctx, `
		SELECT user_id, service_id, active, start_date, next_payment_date, end_date, created_at, updated_at
		FROM genie_subscriptions WHERE user_id = ? AND service_id = ?`,
		user, serviceID).
		Scan(&sub.User, &sub.ServiceID, &sub.Active,
			&startDate, &nextPay, &endDate, &created, &updated)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, genie.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite: get subscription: %w", err)
	}
	sub.StartDate = fromTS(startDate)
	sub.NextPaymentDate = fromTS(nextPay)
	sub.EndDate = fromTS(endDate)
	sub.CreatedAt = fromTS(created)
	sub.UpdatedAt = fromTS(updated)
	return &sub, nil
}

func (s *Store) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_subscriptions
			(user_id, service_id, active, start_date, next_payment_date, end_date, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id, service_id) DO UPDATE SET
			active = excluded.active,
			start_date = excluded.start_date,
			next_payment_date = excluded.next_payment_date,
			end_date = excluded.end_date,
			updated_at = excluded.updated_at`,
		sub.User, sub.ServiceID, sub.Active,
		ts(sub.StartDate), ts(sub.NextPaymentDate), ts(sub.EndDate),
		ts(sub.CreatedAt), ts(sub.UpdatedAt))
	if err != nil {
		return fmt.Errorf("sqlite: put subscription: %w", err)
	}
	return nil
}

func (s *Store) ListUserServiceIDs(ctx context.Context, user types.Identity) ([]id.ServiceID, error) {
	rows, err := s.q.QueryContext(ctx,
		`SELECT service_id FROM genie_user_index WHERE user_id = ? ORDER BY pos`, user)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list user service ids: %w", err)
	}
	defer rows.Close()

	ids := []id.ServiceID{}
	for rows.Next() {
		var serviceID id.ServiceID
		if err := rows.Scan(&serviceID); err != nil {
			return nil, fmt.Errorf("sqlite: list user service ids: %w", err)
		}
		ids = append(ids, serviceID)
	}
	return ids, rows.Err()
}

func (s *Store) AppendUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_user_index (user_id, service_id) VALUES (?, ?)
		ON CONFLICT (user_id, service_id) DO NOTHING`,
		user, serviceID)
	if err != nil {
		return fmt.Errorf("sqlite: append user service id: %w", err)
	}
	return nil
}

func (s *Store) RemoveUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	_, err := s.q.ExecContext(ctx,
		`DELETE FROM genie_user_index WHERE user_id = ? AND service_id = ?`,
		user, serviceID)
	if err != nil {
		return fmt.Errorf("sqlite: remove user service id: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(ctx context.Context, owner types.Identity) (types.Amount, error) {
	var amount types.Amount
	err := s.q.QueryRowContext(ctx,
		`SELECT amount FROM genie_balances WHERE owner = ?`, owner).
		Scan(&amount)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("sqlite: get balance: %w", err)
	}
	return amount, nil
}

func (s *Store) SetBalance(ctx context.Context, owner types.Identity, amount types.Amount) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_balances (owner, amount) VALUES (?, ?)
		ON CONFLICT (owner) DO UPDATE SET amount = excluded.amount`,
		owner, amount)
	if err != nil {
		return fmt.Errorf("sqlite: set balance: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit receipts
// ──────────────────────────────────────────────────

func (s *Store) RecordPayment(ctx context.Context, p *balance.Payment) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_payments (id, owner, payer, service_id, periods, amount, paid_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Owner, p.Payer, p.ServiceID, p.Periods, p.Amount, ts(p.PaidAt))
	if err != nil {
		return fmt.Errorf("sqlite: record payment: %w", err)
	}
	return nil
}

func (s *Store) RecordWithdrawal(ctx context.Context, w *balance.Withdrawal) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_withdrawals (id, owner, service_id, amount, withdrawn_at)
		VALUES (?, ?, ?, ?, ?)`,
		w.ID, w.Owner, w.ServiceID, w.Amount, ts(w.WithdrawnAt))
	if err != nil {
		return fmt.Errorf("sqlite: record withdrawal: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, owner types.Identity) ([]*balance.Payment, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, owner, payer, service_id, periods, amount, paid_at
		FROM genie_payments WHERE owner = ? ORDER BY paid_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list payments: %w", err)
	}
	defer rows.Close()

	payments := []*balance.Payment{}
	for rows.Next() {
		var (
			p      balance.Payment
			paidAt int64
		)
		if err := rows.Scan(&p.ID, &p.Owner, &p.Payer, &p.ServiceID, &p.Periods, &p.Amount, &paidAt); err != nil {
			return nil, fmt.Errorf("sqlite: list payments: %w", err)
		}
		p.PaidAt = fromTS(paidAt)
		payments = append(payments, &p)
	}
	return payments, rows.Err()
}

func (s *Store) ListWithdrawals(ctx context.Context, owner types.Identity) ([]*balance.Withdrawal, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, owner, service_id, amount, withdrawn_at
		FROM genie_withdrawals WHERE owner = ? ORDER BY withdrawn_at, id`, owner)
	if err != nil {
		return nil, fmt.Errorf("sqlite: list withdrawals: %w", err)
	}
	defer rows.Close()

	withdrawals := []*balance.Withdrawal{}
	for rows.Next() {
		var (
			w           balance.Withdrawal
			withdrawnAt int64
		)
		if err := rows.Scan(&w.ID, &w.Owner, &w.ServiceID, &w.Amount, &withdrawnAt); err != nil {
			return nil, fmt.Errorf("sqlite: list withdrawals: %w", err)
		}
		w.WithdrawnAt = fromTS(withdrawnAt)
		withdrawals = append(withdrawals, &w)
	}
	return withdrawals, rows.Err()
}

// ──────────────────────────────────────────────────
// Contract owner
// ──────────────────────────────────────────────────

func (s *Store) ContractOwner(ctx context.Context) (types.Identity, error) {
	var owner types.Identity
	err := s.q.QueryRowContext(ctx,
		`SELECT owner FROM genie_contract_owner WHERE id = 1`).
		Scan(&owner)
	if errors.Is(err, sql.ErrNoRows) {
		return types.NilIdentity, nil
	}
	if err != nil {
		return types.NilIdentity, fmt.Errorf("sqlite: contract owner: %w", err)
	}
	return owner, nil
}

func (s *Store) SetContractOwner(ctx context.Context, owner types.Identity) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO genie_contract_owner (id, owner) VALUES (1, ?)
		ON CONFLICT (id) DO UPDATE SET owner = excluded.owner`,
		owner)
	if err != nil {
		return fmt.Errorf("sqlite: set contract owner: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// WithTx runs fn inside a database transaction. Nested calls join the
// enclosing transaction.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if _, inTx := s.q.(*sql.Tx); inTx {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: begin tx: %w", err)
	}

	txStore := &Store{db: s.db, q: tx}
	if err := fn(txStore); err != nil {
		_ = tx.Rollback() //nolint:errcheck // the original error matters more
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: commit tx: %w", err)
	}
	return nil
}
