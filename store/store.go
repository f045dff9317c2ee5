package store

import (
	"context"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Store is the unified storage interface for all ledger state.
// Backends must return genie.ErrServiceNotFound for a missing service
// and genie.ErrNotFound for any other missing record.
//
// Implementations do not need to be safe for concurrent mutation on
// their own: the engine serializes every mutating operation. WithTx is
// the all-or-nothing boundary — if the callback returns an error, none
// of its writes may remain observable.
type Store interface {
	// Service registry
	NextServiceID(ctx context.Context) (id.ServiceID, error)
	CreateService(ctx context.Context, svc *service.Service) error
	GetService(ctx context.Context, serviceID id.ServiceID) (*service.Service, error)
	UpdateService(ctx context.Context, svc *service.Service) error
	ListServiceIDs(ctx context.Context) ([]id.ServiceID, error)

	// Subscription ledger
	GetSubscription(ctx context.Context, user types.Identity, serviceID id.ServiceID) (*subscription.Subscription, error)
	PutSubscription(ctx context.Context, sub *subscription.Subscription) error
	ListUserServiceIDs(ctx context.Context, user types.Identity) ([]id.ServiceID, error)
	AppendUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error
	RemoveUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error

	// Balances
	GetBalance(ctx context.Context, owner types.Identity) (types.Amount, error)
	SetBalance(ctx context.Context, owner types.Identity, amount types.Amount) error

	// Audit receipts
	RecordPayment(ctx context.Context, p *balance.Payment) error
	RecordWithdrawal(ctx context.Context, w *balance.Withdrawal) error
	ListPayments(ctx context.Context, owner types.Identity) ([]*balance.Payment, error)
	ListWithdrawals(ctx context.Context, owner types.Identity) ([]*balance.Withdrawal, error)

	// Contract owner
	ContractOwner(ctx context.Context) (types.Identity, error)
	SetContractOwner(ctx context.Context, owner types.Identity) error

	// Transaction boundary. fn receives a Store whose writes commit
	// together or not at all.
	WithTx(ctx context.Context, fn func(Store) error) error

	// Core methods
	Migrate(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}
