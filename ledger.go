package genie

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/hook"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Ledger is the deterministic subscription ledger engine.
type Ledger struct {
	store    store.Store
	hooks    *hook.Registry
	logger   *slog.Logger
	clock    Clock
	transfer Transferer

	// deployer is seeded as the contract owner on first Start.
	deployer types.Identity

	// mu serializes mutating entry points: one state-mutating call
	// runs to completion before the next begins. It is released before
	// the outbound transfer capability is invoked, so a call arriving
	// mid-transfer observes the already-committed debit.
	mu sync.Mutex
}

// New creates a new Ledger instance. deployer becomes the contract
// owner the first time Start runs against an empty store.
func New(s store.Store, deployer types.Identity, opts ...Option) *Ledger {
	l := &Ledger{
		store:    s,
		hooks:    hook.NewRegistry(),
		logger:   slog.Default(),
		clock:    SystemClock(),
		transfer: NopTransferer(),
		deployer: deployer,
	}

	for _, opt := range opts {
		opt(l)
	}

	return l
}

// Option configures a Ledger instance.
type Option func(*Ledger)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(l *Ledger) {
		l.logger = logger
		l.hooks.WithLogger(logger)
	}
}

// WithClock sets the time source.
func WithClock(c Clock) Option {
	return func(l *Ledger) {
		l.clock = c
	}
}

// WithTransferer sets the outbound value-transfer capability.
func WithTransferer(t Transferer) Option {
	return func(l *Ledger) {
		l.transfer = t
	}
}

// WithHook registers a lifecycle hook.
func WithHook(h hook.Hook) Option {
	return func(l *Ledger) {
		_ = l.hooks.Register(h) //nolint:errcheck // best-effort hook registration during init
	}
}

// Start migrates the store and seeds the contract owner if the store
// has none yet. A previously transferred ownership survives restarts.
func (l *Ledger) Start(ctx context.Context) error {
	if err := l.store.Migrate(ctx); err != nil {
		return err
	}

	current, err := l.store.ContractOwner(ctx)
	if err != nil {
		return err
	}
	if current.IsZero() {
		if l.deployer.IsZero() {
			return fmt.Errorf("%w: contract owner not set", ErrInvalidInput)
		}
		if err := l.store.SetContractOwner(ctx, l.deployer); err != nil {
			return err
		}
		current = l.deployer
	}

	l.hooks.EmitInit(ctx, l)

	l.logger.Info("subscription ledger started", "contract_owner", current)

	return nil
}

// Stop shuts down the Ledger.
func (l *Ledger) Stop() error {
	l.hooks.EmitShutdown(context.Background())
	return l.store.Close()
}

// ──────────────────────────────────────────────────
// Service Registry
// ──────────────────────────────────────────────────

// CreateService registers a new service offering. The caller becomes
// its owner. Identifiers are assigned sequentially starting at 1 and
// never reused.
func (l *Ledger) CreateService(ctx context.Context, caller types.Identity, name string, price types.Amount, endDate time.Time, cycleDays int) (id.ServiceID, error) {
	if caller.IsZero() {
		return id.NilService, ErrInvalidInput
	}
	now := l.clock.Now().UTC()
	if !endDate.After(now) {
		return id.NilService, ErrInvalidEndDate
	}
	if cycleDays <= 0 || cycleDays > service.MaxCycleDays {
		return id.NilService, ErrInvalidCycleLength
	}

	l.mu.Lock()
	var svc *service.Service
	err := l.store.WithTx(ctx, func(tx store.Store) error {
		serviceID, err := tx.NextServiceID(ctx)
		if err != nil {
			return err
		}
		svc = &service.Service{
			Entity:    types.NewEntityAt(now),
			ID:        serviceID,
			Name:      name,
			Price:     price,
			Owner:     caller,
			StartDate: now,
			EndDate:   endDate.UTC(),
			CycleDays: cycleDays,
		}
		return tx.CreateService(ctx, svc)
	})
	l.mu.Unlock()
	if err != nil {
		return id.NilService, err
	}

	l.hooks.EmitServiceCreated(ctx, svc)
	l.logger.Info("service created",
		"service_id", svc.ID,
		"owner", caller,
		"price", price,
		"cycle_days", cycleDays,
	)

	return svc.ID, nil
}

// UpdatePrice changes a service's price. New subscriptions pay the new
// price; existing subscriptions are untouched.
func (l *Ledger) UpdatePrice(ctx context.Context, caller types.Identity, serviceID id.ServiceID, newPrice types.Amount) error {
	l.mu.Lock()
	svc, oldPrice, err := l.updatePriceLocked(ctx, caller, serviceID, newPrice)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.hooks.EmitPriceUpdated(ctx, svc, oldPrice)
	l.logger.Info("service price updated",
		"service_id", serviceID,
		"old_price", oldPrice,
		"new_price", newPrice,
	)

	return nil
}

func (l *Ledger) updatePriceLocked(ctx context.Context, caller types.Identity, serviceID id.ServiceID, newPrice types.Amount) (*service.Service, types.Amount, error) {
	svc, err := l.getOwnedService(ctx, caller, serviceID)
	if err != nil {
		return nil, 0, err
	}

	oldPrice := svc.Price
	svc.Price = newPrice
	svc.TouchAt(l.clock.Now())

	if err := l.store.UpdateService(ctx, svc); err != nil {
		return nil, 0, err
	}
	return svc, oldPrice, nil
}

// UpdatePause toggles a service's availability for new subscriptions.
// Existing active subscriptions are unaffected.
func (l *Ledger) UpdatePause(ctx context.Context, caller types.Identity, serviceID id.ServiceID, paused bool) error {
	l.mu.Lock()
	svc, err := l.updatePauseLocked(ctx, caller, serviceID, paused)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.hooks.EmitPauseUpdated(ctx, svc)
	l.logger.Info("service pause updated", "service_id", serviceID, "paused", paused)

	return nil
}

func (l *Ledger) updatePauseLocked(ctx context.Context, caller types.Identity, serviceID id.ServiceID, paused bool) (*service.Service, error) {
	svc, err := l.getOwnedService(ctx, caller, serviceID)
	if err != nil {
		return nil, err
	}

	svc.Paused = paused
	svc.TouchAt(l.clock.Now())

	if err := l.store.UpdateService(ctx, svc); err != nil {
		return nil, err
	}
	return svc, nil
}

// getOwnedService loads a service and verifies the caller owns it.
func (l *Ledger) getOwnedService(ctx context.Context, caller types.Identity, serviceID id.ServiceID) (*service.Service, error) {
	if serviceID.IsNil() {
		return nil, ErrServiceNotFound
	}
	svc, err := l.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.Owner != caller {
		return nil, ErrNotServiceOwner
	}
	return svc, nil
}

// AllServiceIDs returns every assigned service identifier in creation
// order. The result is a snapshot.
func (l *Ledger) AllServiceIDs(ctx context.Context) ([]id.ServiceID, error) {
	return l.store.ListServiceIDs(ctx)
}

// GetService retrieves a service record.
func (l *Ledger) GetService(ctx context.Context, serviceID id.ServiceID) (*service.Service, error) {
	if serviceID.IsNil() {
		return nil, ErrServiceNotFound
	}
	return l.store.GetService(ctx, serviceID)
}

// ──────────────────────────────────────────────────
// Subscription Ledger
// ──────────────────────────────────────────────────

// Subscribe activates a subscription for the caller, paying for the
// given number of billing periods up front. The attached payment must
// equal price * periods exactly; the full amount is credited to the
// service owner's balance.
func (l *Ledger) Subscribe(ctx context.Context, caller types.Identity, serviceID id.ServiceID, periods uint64, payment types.Amount) error {
	if caller.IsZero() {
		return ErrInvalidInput
	}
	if serviceID.IsNil() {
		return ErrServiceNotFound
	}
	if periods == 0 {
		return ErrInvalidInput
	}

	l.mu.Lock()
	sub, pay, err := l.subscribeLocked(ctx, caller, serviceID, periods, payment)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.hooks.EmitSubscribed(ctx, sub, pay)
	l.logger.Info("subscription activated",
		"user", caller,
		"service_id", serviceID,
		"periods", periods,
		"payment", payment,
	)

	return nil
}

func (l *Ledger) subscribeLocked(ctx context.Context, caller types.Identity, serviceID id.ServiceID, periods uint64, payment types.Amount) (*subscription.Subscription, *balance.Payment, error) {
	svc, err := l.store.GetService(ctx, serviceID)
	if err != nil {
		return nil, nil, err
	}
	if svc.Paused {
		return nil, nil, ErrServiceIsPaused
	}

	existing, err := l.store.GetSubscription(ctx, caller, serviceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return nil, nil, err
	}
	if existing != nil && existing.Active {
		return nil, nil, ErrAlreadySubscribed
	}

	expected, err := svc.Price.Mul(periods)
	if err != nil {
		// price * periods is not representable, so no payment matches it.
		return nil, nil, ErrIncorrectPayment
	}
	if payment != expected {
		return nil, nil, ErrIncorrectPayment
	}

	now := l.clock.Now().UTC()
	nextPayment, err := svc.NextPaymentDate(now, periods)
	if err != nil {
		return nil, nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	sub := &subscription.Subscription{
		Entity:          types.NewEntityAt(now),
		User:            caller,
		ServiceID:       serviceID,
		Active:          true,
		StartDate:       now,
		NextPaymentDate: nextPayment,
		EndDate:         svc.EndDate,
	}
	pay := &balance.Payment{
		ID:        id.NewPaymentID(),
		Owner:     svc.Owner,
		Payer:     caller,
		ServiceID: serviceID,
		Periods:   periods,
		Amount:    payment,
		PaidAt:    now,
	}

	err = l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.PutSubscription(ctx, sub); err != nil {
			return err
		}
		if err := tx.AppendUserServiceID(ctx, caller, serviceID); err != nil {
			return err
		}
		bal, err := tx.GetBalance(ctx, svc.Owner)
		if err != nil {
			return err
		}
		credited, err := bal.Add(payment)
		if err != nil {
			return err
		}
		if err := tx.SetBalance(ctx, svc.Owner, credited); err != nil {
			return err
		}
		return tx.RecordPayment(ctx, pay)
	})
	if err != nil {
		return nil, nil, err
	}
	return sub, pay, nil
}

// HandOver transfers the caller's active subscription to another user.
// The receiving record keeps the same timing fields; no payment occurs.
func (l *Ledger) HandOver(ctx context.Context, caller, to types.Identity, serviceID id.ServiceID) error {
	if caller.IsZero() || to.IsZero() {
		return ErrInvalidInput
	}

	l.mu.Lock()
	err := l.handOverLocked(ctx, caller, to, serviceID)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.hooks.EmitHandedOver(ctx, caller, to, serviceID)
	l.logger.Info("subscription handed over",
		"from", caller,
		"to", to,
		"service_id", serviceID,
	)

	return nil
}

func (l *Ledger) handOverLocked(ctx context.Context, caller, to types.Identity, serviceID id.ServiceID) error {
	sub, err := l.store.GetSubscription(ctx, caller, serviceID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return ErrNoActiveSubscription
		}
		return err
	}
	if !sub.Active {
		return ErrNoActiveSubscription
	}

	receiverExisting, err := l.store.GetSubscription(ctx, to, serviceID)
	if err != nil && !errors.Is(err, ErrNotFound) {
		return err
	}
	if receiverExisting != nil && receiverExisting.Active {
		return ErrAlreadySubscribed
	}

	now := l.clock.Now()

	given := sub.Clone()
	given.Active = false
	given.TouchAt(now)

	// State transfer, not a new purchase: timing fields carry over.
	received := sub.Clone()
	received.User = to
	received.Active = true
	received.TouchAt(now)

	return l.store.WithTx(ctx, func(tx store.Store) error {
		if err := tx.PutSubscription(ctx, given); err != nil {
			return err
		}
		if err := tx.RemoveUserServiceID(ctx, caller, serviceID); err != nil {
			return err
		}
		if err := tx.PutSubscription(ctx, received); err != nil {
			return err
		}
		return tx.AppendUserServiceID(ctx, to, serviceID)
	})
}

// UserSubscriptions returns full subscription records for every service
// in the user's index, in index order.
func (l *Ledger) UserSubscriptions(ctx context.Context, user types.Identity) ([]*subscription.Subscription, error) {
	ids, err := l.store.ListUserServiceIDs(ctx, user)
	if err != nil {
		return nil, err
	}

	subs := make([]*subscription.Subscription, 0, len(ids))
	for _, serviceID := range ids {
		sub, err := l.store.GetSubscription(ctx, user, serviceID)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// UserSubscriptionIDs returns the user's service index in order.
func (l *Ledger) UserSubscriptionIDs(ctx context.Context, user types.Identity) ([]id.ServiceID, error) {
	return l.store.ListUserServiceIDs(ctx, user)
}

// AllSubscriptionsEndDate returns end dates for the user's
// subscriptions whose service is not paused, preserving index order.
func (l *Ledger) AllSubscriptionsEndDate(ctx context.Context, user types.Identity) ([]time.Time, error) {
	ids, err := l.store.ListUserServiceIDs(ctx, user)
	if err != nil {
		return nil, err
	}

	endDates := make([]time.Time, 0, len(ids))
	for _, serviceID := range ids {
		svc, err := l.store.GetService(ctx, serviceID)
		if err != nil {
			return nil, err
		}
		if svc.Paused {
			continue
		}
		sub, err := l.store.GetSubscription(ctx, user, serviceID)
		if err != nil {
			return nil, err
		}
		endDates = append(endDates, sub.EndDate)
	}
	return endDates, nil
}

// ──────────────────────────────────────────────────
// Balance & Withdrawal
// ──────────────────────────────────────────────────

// Balance returns an owner's withdrawable accumulated credit.
func (l *Ledger) Balance(ctx context.Context, owner types.Identity) (types.Amount, error) {
	return l.store.GetBalance(ctx, owner)
}

// Withdraw debits the caller's balance and invokes the outbound
// transfer capability. The debit is committed strictly before the
// transfer (checks-effects-interactions); if the transfer fails the
// debit is rolled back and the operation reports failure.
func (l *Ledger) Withdraw(ctx context.Context, caller types.Identity, serviceID id.ServiceID, amount types.Amount) error {
	if caller.IsZero() {
		return ErrInvalidInput
	}

	l.mu.Lock()
	err := l.debitLocked(ctx, caller, serviceID, amount)
	l.mu.Unlock()
	if err != nil {
		return err
	}

	// The debit is committed; a call arriving from here on sees the
	// reduced balance and cannot double-spend it.
	if err := l.transfer.Transfer(ctx, caller, amount); err != nil {
		if rbErr := l.rollbackDebit(ctx, caller, amount); rbErr != nil {
			l.logger.Error("failed to roll back withdrawal debit",
				"owner", caller,
				"amount", amount,
				"error", rbErr,
			)
			return errors.Join(fmt.Errorf("%w: %v", ErrTransferFailed, err), rbErr)
		}
		return fmt.Errorf("%w: %v", ErrTransferFailed, err)
	}

	wd := &balance.Withdrawal{
		ID:          id.NewWithdrawalID(),
		Owner:       caller,
		ServiceID:   serviceID,
		Amount:      amount,
		WithdrawnAt: l.clock.Now().UTC(),
	}
	if err := l.store.RecordWithdrawal(ctx, wd); err != nil {
		// The receipt is audit-only; the value already left the ledger.
		l.logger.Error("failed to record withdrawal receipt",
			"owner", caller,
			"amount", amount,
			"error", err,
		)
	}

	l.hooks.EmitWithdrawn(ctx, wd)
	l.logger.Info("withdrawal executed",
		"owner", caller,
		"service_id", serviceID,
		"amount", amount,
	)

	return nil
}

func (l *Ledger) debitLocked(ctx context.Context, caller types.Identity, serviceID id.ServiceID, amount types.Amount) error {
	svc, err := l.GetService(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.Owner != caller {
		return ErrNotServiceOwner
	}
	if amount.IsZero() {
		return ErrAmountMustBeGreaterThanZero
	}

	bal, err := l.store.GetBalance(ctx, caller)
	if err != nil {
		return err
	}
	if amount.GreaterThan(bal) {
		return ErrInsufficientBalance
	}
	debited, err := bal.Sub(amount)
	if err != nil {
		return err
	}

	return l.store.SetBalance(ctx, caller, debited)
}

// rollbackDebit re-credits a debited amount after a failed transfer.
func (l *Ledger) rollbackDebit(ctx context.Context, owner types.Identity, amount types.Amount) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	bal, err := l.store.GetBalance(ctx, owner)
	if err != nil {
		return err
	}
	restored, err := bal.Add(amount)
	if err != nil {
		return err
	}
	return l.store.SetBalance(ctx, owner, restored)
}

// Payments returns the payment receipts credited to an owner.
func (l *Ledger) Payments(ctx context.Context, owner types.Identity) ([]*balance.Payment, error) {
	return l.store.ListPayments(ctx, owner)
}

// Withdrawals returns the withdrawal receipts recorded for an owner.
func (l *Ledger) Withdrawals(ctx context.Context, owner types.Identity) ([]*balance.Withdrawal, error) {
	return l.store.ListWithdrawals(ctx, owner)
}

// ──────────────────────────────────────────────────
// Access Control
// ──────────────────────────────────────────────────

// ContractOwner returns the current contract owner.
func (l *Ledger) ContractOwner(ctx context.Context) (types.Identity, error) {
	return l.store.ContractOwner(ctx)
}

// TransferOwnership reassigns the contract owner. Only the current
// owner may call it.
func (l *Ledger) TransferOwnership(ctx context.Context, caller, newOwner types.Identity) error {
	if newOwner.IsZero() {
		return ErrInvalidInput
	}

	l.mu.Lock()
	current, err := l.store.ContractOwner(ctx)
	if err == nil {
		if current != caller {
			err = ErrNotContractOwner
		} else {
			err = l.store.SetContractOwner(ctx, newOwner)
		}
	}
	l.mu.Unlock()
	if err != nil {
		return err
	}

	l.hooks.EmitOwnershipTransferred(ctx, current, newOwner)
	l.logger.Info("contract ownership transferred", "from", current, "to", newOwner)

	return nil
}
