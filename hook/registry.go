package hook

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// defaultCallTimeout bounds a single hook invocation so a stuck hook
// cannot stall the ledger.
const defaultCallTimeout = 5 * time.Second

// Registry manages all registered hooks and provides efficient
// dispatch. Interfaces are cached at registration time so emission is a
// slice walk, not a type switch.
type Registry struct {
	mu     sync.RWMutex
	hooks  []Hook
	logger *slog.Logger

	onInit                 []OnInit
	onShutdown             []OnShutdown
	onServiceCreated       []OnServiceCreated
	onPriceUpdated         []OnPriceUpdated
	onPauseUpdated         []OnPauseUpdated
	onSubscribed           []OnSubscribed
	onHandedOver           []OnHandedOver
	onWithdrawn            []OnWithdrawn
	onOwnershipTransferred []OnOwnershipTransferred
}

// NewRegistry creates a new hook registry.
func NewRegistry() *Registry {
	return &Registry{
		logger: slog.Default(),
	}
}

// WithLogger sets the logger for the registry.
func (r *Registry) WithLogger(logger *slog.Logger) *Registry {
	r.logger = logger
	return r
}

// Register adds a hook to the registry and caches its interfaces.
func (r *Registry) Register(h Hook) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.hooks {
		if existing.Name() == h.Name() {
			return fmt.Errorf("hook: duplicate registration: %s", h.Name())
		}
	}

	r.hooks = append(r.hooks, h)

	if v, ok := h.(OnInit); ok {
		r.onInit = append(r.onInit, v)
	}
	if v, ok := h.(OnShutdown); ok {
		r.onShutdown = append(r.onShutdown, v)
	}
	if v, ok := h.(OnServiceCreated); ok {
		r.onServiceCreated = append(r.onServiceCreated, v)
	}
	if v, ok := h.(OnPriceUpdated); ok {
		r.onPriceUpdated = append(r.onPriceUpdated, v)
	}
	if v, ok := h.(OnPauseUpdated); ok {
		r.onPauseUpdated = append(r.onPauseUpdated, v)
	}
	if v, ok := h.(OnSubscribed); ok {
		r.onSubscribed = append(r.onSubscribed, v)
	}
	if v, ok := h.(OnHandedOver); ok {
		r.onHandedOver = append(r.onHandedOver, v)
	}
	if v, ok := h.(OnWithdrawn); ok {
		r.onWithdrawn = append(r.onWithdrawn, v)
	}
	if v, ok := h.(OnOwnershipTransferred); ok {
		r.onOwnershipTransferred = append(r.onOwnershipTransferred, v)
	}

	r.logger.Info("hook registered", "name", h.Name())

	return nil
}

// Get returns a hook by name, or nil.
func (r *Registry) Get(name string) Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, h := range r.hooks {
		if h.Name() == name {
			return h
		}
	}
	return nil
}

// List returns all registered hooks.
func (r *Registry) List() []Hook {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]Hook, len(r.hooks))
	copy(result, r.hooks)
	return result
}

// Count returns the number of registered hooks.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.hooks)
}

// ──────────────────────────────────────────────────
// Event emission methods
// ──────────────────────────────────────────────────

// EmitInit calls OnInit for all hooks that implement it.
func (r *Registry) EmitInit(ctx context.Context, engine any) {
	r.mu.RLock()
	hooks := r.onInit
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnInit", func() error {
			return h.OnInit(ctx, engine)
		})
	}
}

// EmitShutdown calls OnShutdown for all hooks that implement it.
func (r *Registry) EmitShutdown(ctx context.Context) {
	r.mu.RLock()
	hooks := r.onShutdown
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnShutdown", func() error {
			return h.OnShutdown(ctx)
		})
	}
}

// EmitServiceCreated emits a service created event.
func (r *Registry) EmitServiceCreated(ctx context.Context, svc *service.Service) {
	r.mu.RLock()
	hooks := r.onServiceCreated
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnServiceCreated", func() error {
			return h.OnServiceCreated(ctx, svc)
		})
	}
}

// EmitPriceUpdated emits a price updated event.
func (r *Registry) EmitPriceUpdated(ctx context.Context, svc *service.Service, oldPrice types.Amount) {
	r.mu.RLock()
	hooks := r.onPriceUpdated
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnPriceUpdated", func() error {
			return h.OnPriceUpdated(ctx, svc, oldPrice)
		})
	}
}

// EmitPauseUpdated emits a pause updated event.
func (r *Registry) EmitPauseUpdated(ctx context.Context, svc *service.Service) {
	r.mu.RLock()
	hooks := r.onPauseUpdated
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnPauseUpdated", func() error {
			return h.OnPauseUpdated(ctx, svc)
		})
	}
}

// EmitSubscribed emits a subscription activated event.
func (r *Registry) EmitSubscribed(ctx context.Context, sub *subscription.Subscription, payment *balance.Payment) {
	r.mu.RLock()
	hooks := r.onSubscribed
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnSubscribed", func() error {
			return h.OnSubscribed(ctx, sub, payment)
		})
	}
}

// EmitHandedOver emits a handover event.
func (r *Registry) EmitHandedOver(ctx context.Context, from, to types.Identity, serviceID id.ServiceID) {
	r.mu.RLock()
	hooks := r.onHandedOver
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnHandedOver", func() error {
			return h.OnHandedOver(ctx, from, to, serviceID)
		})
	}
}

// EmitWithdrawn emits a withdrawal event.
func (r *Registry) EmitWithdrawn(ctx context.Context, w *balance.Withdrawal) {
	r.mu.RLock()
	hooks := r.onWithdrawn
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnWithdrawn", func() error {
			return h.OnWithdrawn(ctx, w)
		})
	}
}

// EmitOwnershipTransferred emits a contract ownership event.
func (r *Registry) EmitOwnershipTransferred(ctx context.Context, oldOwner, newOwner types.Identity) {
	r.mu.RLock()
	hooks := r.onOwnershipTransferred
	r.mu.RUnlock()

	for _, h := range hooks {
		r.dispatch(ctx, h.Name(), "OnOwnershipTransferred", func() error {
			return h.OnOwnershipTransferred(ctx, oldOwner, newOwner)
		})
	}
}

// dispatch runs one hook call with a timeout and logs failures.
// Hook errors are surfaced in logs only; state changes are already
// committed by the time hooks run.
func (r *Registry) dispatch(ctx context.Context, name, event string, fn func() error) {
	if err := r.callWithTimeout(ctx, name, fn); err != nil {
		r.logger.Warn("hook failed",
			"hook", name,
			"event", event,
			"error", err,
		)
	}
}

// callWithTimeout calls a hook function with a timeout.
// Hooks should never block the ledger pipeline.
func (r *Registry) callWithTimeout(ctx context.Context, hookName string, fn func() error) error {
	done := make(chan error, 1)

	go func() {
		done <- fn()
	}()

	select {
	case err := <-done:
		return err
	case <-time.After(defaultCallTimeout):
		return fmt.Errorf("hook timeout: %s", hookName)
	case <-ctx.Done():
		return ctx.Err()
	}
}
