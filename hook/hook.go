// Package hook provides an extensible lifecycle hook system for the
// subscription ledger. Hooks observe committed state changes; they run
// after the operation's writes are durable and can never fail the
// operation itself.
package hook

import (
	"context"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Hook is the base interface that all hooks must implement.
type Hook interface {
	Name() string
}

// ──────────────────────────────────────────────────
// Lifecycle hooks
// ──────────────────────────────────────────────────

// OnInit is called when the engine starts.
type OnInit interface {
	Hook
	OnInit(ctx context.Context, engine any) error
}

// OnShutdown is called when the engine is shutting down.
type OnShutdown interface {
	Hook
	OnShutdown(ctx context.Context) error
}

// ──────────────────────────────────────────────────
// Service registry hooks
// ──────────────────────────────────────────────────

// OnServiceCreated is called after a service is registered.
type OnServiceCreated interface {
	Hook
	OnServiceCreated(ctx context.Context, svc *service.Service) error
}

// OnPriceUpdated is called after a service price change.
type OnPriceUpdated interface {
	Hook
	OnPriceUpdated(ctx context.Context, svc *service.Service, oldPrice types.Amount) error
}

// OnPauseUpdated is called after a service pause flag change.
type OnPauseUpdated interface {
	Hook
	OnPauseUpdated(ctx context.Context, svc *service.Service) error
}

// ──────────────────────────────────────────────────
// Subscription ledger hooks
// ──────────────────────────────────────────────────

// OnSubscribed is called after a paid subscription is activated.
type OnSubscribed interface {
	Hook
	OnSubscribed(ctx context.Context, sub *subscription.Subscription, payment *balance.Payment) error
}

// OnHandedOver is called after a subscription changes hands.
type OnHandedOver interface {
	Hook
	OnHandedOver(ctx context.Context, from, to types.Identity, serviceID id.ServiceID) error
}

// ──────────────────────────────────────────────────
// Balance hooks
// ──────────────────────────────────────────────────

// OnWithdrawn is called after a withdrawal's outbound transfer completes.
type OnWithdrawn interface {
	Hook
	OnWithdrawn(ctx context.Context, w *balance.Withdrawal) error
}

// ──────────────────────────────────────────────────
// Access control hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred is called after the contract owner changes.
type OnOwnershipTransferred interface {
	Hook
	OnOwnershipTransferred(ctx context.Context, oldOwner, newOwner types.Identity) error
}
