// Package memory provides an in-memory store implementation. It is the
// reference backend: deterministic, dependency-free and suitable for
// tests and embedded use.
package memory

import (
	"context"
	"slices"
	"sync"

	genie "github.com/JoooooMei/subscription-genie"
	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

type subKey struct {
	user      types.Identity
	serviceID id.ServiceID
}

type state struct {
	nextServiceID uint64
	serviceIDs    []id.ServiceID
	services      map[id.ServiceID]*service.Service

	subscriptions map[subKey]*subscription.Subscription
	userIndex     map[types.Identity][]id.ServiceID

	balances map[types.Identity]types.Amount

	payments    map[types.Identity][]*balance.Payment
	withdrawals map[types.Identity][]*balance.Withdrawal

	contractOwner types.Identity
}

func newState() *state {
	return &state{
		services:      make(map[id.ServiceID]*service.Service),
		subscriptions: make(map[subKey]*subscription.Subscription),
		userIndex:     make(map[types.Identity][]id.ServiceID),
		balances:      make(map[types.Identity]types.Amount),
		payments:      make(map[types.Identity][]*balance.Payment),
		withdrawals:   make(map[types.Identity][]*balance.Withdrawal),
	}
}

// clone deep-copies the state so a transaction snapshot cannot alias
// live records.
func (st *state) clone() *state {
	c := &state{
		nextServiceID: st.nextServiceID,
		serviceIDs:    slices.Clone(st.serviceIDs),
		services:      make(map[id.ServiceID]*service.Service, len(st.services)),
		subscriptions: make(map[subKey]*subscription.Subscription, len(st.subscriptions)),
		userIndex:     make(map[types.Identity][]id.ServiceID, len(st.userIndex)),
		balances:      make(map[types.Identity]types.Amount, len(st.balances)),
		payments:      make(map[types.Identity][]*balance.Payment, len(st.payments)),
		withdrawals:   make(map[types.Identity][]*balance.Withdrawal, len(st.withdrawals)),
		contractOwner: st.contractOwner,
	}
	for k, v := range st.services {
		c.services[k] = v.Clone()
	}
	for k, v := range st.subscriptions {
		c.subscriptions[k] = v.Clone()
	}
	for k, v := range st.userIndex {
		c.userIndex[k] = slices.Clone(v)
	}
	for k, v := range st.balances {
		c.balances[k] = v
	}
	for k, v := range st.payments {
		c.payments[k] = slices.Clone(v)
	}
	for k, v := range st.withdrawals {
		c.withdrawals[k] = slices.Clone(v)
	}
	return c
}

// Store keeps all ledger state in process memory.
type Store struct {
	mu     sync.RWMutex
	st     *state
	closed bool
}

// New creates an empty in-memory store.
func New() *Store {
	return &Store{st: newState()}
}

var _ store.Store = (*Store)(nil)

// ──────────────────────────────────────────────────
// Service registry
// ──────────────────────────────────────────────────

func (s *Store) NextServiceID(_ context.Context) (id.ServiceID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return id.NilService, genie.ErrStoreClosed
	}
	s.st.nextServiceID++
	return id.ServiceID(s.st.nextServiceID), nil
}

func (s *Store) CreateService(_ context.Context, svc *service.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	if _, exists := s.st.services[svc.ID]; exists {
		return genie.ErrAlreadyExists
	}
	s.st.services[svc.ID] = svc.Clone()
	s.st.serviceIDs = append(s.st.serviceIDs, svc.ID)
	return nil
}

func (s *Store) GetService(_ context.Context, serviceID id.ServiceID) (*service.Service, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	svc, ok := s.st.services[serviceID]
	if !ok {
		return nil, genie.ErrServiceNotFound
	}
	return svc.Clone(), nil
}

func (s *Store) UpdateService(_ context.Context, svc *service.Service) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	if _, ok := s.st.services[svc.ID]; !ok {
		return genie.ErrServiceNotFound
	}
	s.st.services[svc.ID] = svc.Clone()
	return nil
}

func (s *Store) ListServiceIDs(_ context.Context) ([]id.ServiceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	return slices.Clone(s.st.serviceIDs), nil
}

// ──────────────────────────────────────────────────
// Subscription ledger
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(_ context.Context, user types.Identity, serviceID id.ServiceID) (*subscription.Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	sub, ok := s.st.subscriptions[subKey{user, serviceID}]
	if !ok {
		return nil, genie.ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *Store) PutSubscription(_ context.Context, sub *subscription.Subscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	s.st.subscriptions[subKey{sub.User, sub.ServiceID}] = sub.Clone()
	return nil
}

func (s *Store) ListUserServiceIDs(_ context.Context, user types.Identity) ([]id.ServiceID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	return slices.Clone(s.st.userIndex[user]), nil
}

func (s *Store) AppendUserServiceID(_ context.Context, user types.Identity, serviceID id.ServiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	if slices.Contains(s.st.userIndex[user], serviceID) {
		return nil
	}
	s.st.userIndex[user] = append(s.st.userIndex[user], serviceID)
	return nil
}

func (s *Store) RemoveUserServiceID(_ context.Context, user types.Identity, serviceID id.ServiceID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	ids := s.st.userIndex[user]
	idx := slices.Index(ids, serviceID)
	if idx < 0 {
		return nil
	}
	s.st.userIndex[user] = slices.Delete(ids, idx, idx+1)
	return nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(_ context.Context, owner types.Identity) (types.Amount, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return 0, genie.ErrStoreClosed
	}
	return s.st.balances[owner], nil
}

func (s *Store) SetBalance(_ context.Context, owner types.Identity, amount types.Amount) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	s.st.balances[owner] = amount
	return nil
}

// ──────────────────────────────────────────────────
// Audit receipts
// ──────────────────────────────────────────────────

func (s *Store) RecordPayment(_ context.Context, p *balance.Payment) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	s.st.payments[p.Owner] = append(s.st.payments[p.Owner], p)
	return nil
}

func (s *Store) RecordWithdrawal(_ context.Context, w *balance.Withdrawal) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	s.st.withdrawals[w.Owner] = append(s.st.withdrawals[w.Owner], w)
	return nil
}

func (s *Store) ListPayments(_ context.Context, owner types.Identity) ([]*balance.Payment, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	return slices.Clone(s.st.payments[owner]), nil
}

func (s *Store) ListWithdrawals(_ context.Context, owner types.Identity) ([]*balance.Withdrawal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return nil, genie.ErrStoreClosed
	}
	return slices.Clone(s.st.withdrawals[owner]), nil
}

// ──────────────────────────────────────────────────
// Contract owner
// ──────────────────────────────────────────────────

func (s *Store) ContractOwner(_ context.Context) (types.Identity, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return types.NilIdentity, genie.ErrStoreClosed
	}
	return s.st.contractOwner, nil
}

func (s *Store) SetContractOwner(_ context.Context, owner types.Identity) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	s.st.contractOwner = owner
	return nil
}

// ──────────────────────────────────────────────────
// Transactions & lifecycle
// ──────────────────────────────────────────────────

// WithTx snapshots the state, runs fn against the live store and
// restores the snapshot if fn fails. The engine serializes mutating
// operations, so no other writer can interleave with fn.
func (s *Store) WithTx(_ context.Context, fn func(store.Store) error) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return genie.ErrStoreClosed
	}
	snapshot := s.st.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.st = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) Migrate(_ context.Context) error { return nil }

func (s *Store) Ping(_ context.Context) error {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.closed {
		return genie.ErrStoreClosed
	}
	return nil
}

func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	return nil
}
