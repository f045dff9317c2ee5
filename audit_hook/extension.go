// Package audithook bridges ledger lifecycle events to an audit trail
// backend.
//
// It defines a local Recorder interface so the package does not depend
// on any particular audit system. Callers inject a RecorderFunc adapter
// at wiring time; SlogRecorder gives a log-based default.
package audithook

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/hook"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Compile-time interface checks.
var (
	_ hook.Hook                   = (*Extension)(nil)
	_ hook.OnServiceCreated       = (*Extension)(nil)
	_ hook.OnPriceUpdated         = (*Extension)(nil)
	_ hook.OnPauseUpdated         = (*Extension)(nil)
	_ hook.OnSubscribed           = (*Extension)(nil)
	_ hook.OnHandedOver           = (*Extension)(nil)
	_ hook.OnWithdrawn            = (*Extension)(nil)
	_ hook.OnOwnershipTransferred = (*Extension)(nil)
)

// Recorder is the interface that audit backends must implement.
type Recorder interface {
	Record(ctx context.Context, event *AuditEvent) error
}

// AuditEvent is a local representation of an audit event.
type AuditEvent struct {
	Action     string         `json:"action"`
	Resource   string         `json:"resource"`
	Category   string         `json:"category"`
	ResourceID string         `json:"resource_id,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Outcome    string         `json:"outcome"`
	Severity   string         `json:"severity"`
}

// RecorderFunc is an adapter to use a plain function as a Recorder.
type RecorderFunc func(ctx context.Context, event *AuditEvent) error

// Record implements Recorder.
func (f RecorderFunc) Record(ctx context.Context, event *AuditEvent) error {
	return f(ctx, event)
}

// SlogRecorder writes audit events to a structured logger.
func SlogRecorder(logger *slog.Logger) Recorder {
	return RecorderFunc(func(ctx context.Context, event *AuditEvent) error {
		logger.LogAttrs(ctx, slog.LevelInfo, "audit",
			slog.String("action", event.Action),
			slog.String("resource", event.Resource),
			slog.String("resource_id", event.ResourceID),
			slog.String("category", event.Category),
			slog.String("outcome", event.Outcome),
			slog.Any("metadata", event.Metadata),
		)
		return nil
	})
}

// Extension bridges ledger lifecycle events to an audit trail backend.
type Extension struct {
	recorder Recorder
	enabled  map[string]bool // nil = all enabled
	logger   *slog.Logger
}

// New creates an Extension that emits audit events through the provided
// Recorder.
func New(r Recorder, opts ...Option) *Extension {
	e := &Extension{
		recorder: r,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Name implements hook.Hook.
func (e *Extension) Name() string { return "audit-hook" }

// ──────────────────────────────────────────────────
// Service lifecycle hooks
// ──────────────────────────────────────────────────

// OnServiceCreated implements hook.OnServiceCreated.
func (e *Extension) OnServiceCreated(ctx context.Context, svc *service.Service) error {
	return e.record(ctx, ActionServiceCreated, SeverityInfo, OutcomeSuccess,
		ResourceService, svc.ID.String(), CategoryRegistry,
		"owner", string(svc.Owner),
		"name", svc.Name,
		"price", uint64(svc.Price),
		"cycle_days", svc.CycleDays,
	)
}

// OnPriceUpdated implements hook.OnPriceUpdated.
func (e *Extension) OnPriceUpdated(ctx context.Context, svc *service.Service, oldPrice types.Amount) error {
	return e.record(ctx, ActionPriceUpdated, SeverityInfo, OutcomeSuccess,
		ResourceService, svc.ID.String(), CategoryRegistry,
		"old_price", uint64(oldPrice),
		"new_price", uint64(svc.Price),
	)
}

// OnPauseUpdated implements hook.OnPauseUpdated.
func (e *Extension) OnPauseUpdated(ctx context.Context, svc *service.Service) error {
	return e.record(ctx, ActionPauseUpdated, SeverityInfo, OutcomeSuccess,
		ResourceService, svc.ID.String(), CategoryRegistry,
		"paused", svc.Paused,
	)
}

// ──────────────────────────────────────────────────
// Subscription lifecycle hooks
// ──────────────────────────────────────────────────

// OnSubscribed implements hook.OnSubscribed.
func (e *Extension) OnSubscribed(ctx context.Context, sub *subscription.Subscription, payment *balance.Payment) error {
	kv := []any{
		"user", string(sub.User),
		"service_id", sub.ServiceID.String(),
	}
	if payment != nil {
		kv = append(kv,
			"payment_id", payment.ID.String(),
			"amount", uint64(payment.Amount),
			"periods", payment.Periods,
		)
	}
	return e.record(ctx, ActionSubscribed, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, sub.ServiceID.String(), CategorySubscription,
		kv...,
	)
}

// OnHandedOver implements hook.OnHandedOver.
func (e *Extension) OnHandedOver(ctx context.Context, from, to types.Identity, serviceID id.ServiceID) error {
	return e.record(ctx, ActionHandedOver, SeverityInfo, OutcomeSuccess,
		ResourceSubscription, serviceID.String(), CategorySubscription,
		"from", string(from),
		"to", string(to),
	)
}

// ──────────────────────────────────────────────────
// Balance lifecycle hooks
// ──────────────────────────────────────────────────

// OnWithdrawn implements hook.OnWithdrawn.
func (e *Extension) OnWithdrawn(ctx context.Context, w *balance.Withdrawal) error {
	return e.record(ctx, ActionWithdrawn, SeverityInfo, OutcomeSuccess,
		ResourceBalance, w.ID.String(), CategoryPayment,
		"owner", string(w.Owner),
		"service_id", w.ServiceID.String(),
		"amount", uint64(w.Amount),
	)
}

// ──────────────────────────────────────────────────
// Access control hooks
// ──────────────────────────────────────────────────

// OnOwnershipTransferred implements hook.OnOwnershipTransferred.
func (e *Extension) OnOwnershipTransferred(ctx context.Context, oldOwner, newOwner types.Identity) error {
	return e.record(ctx, ActionOwnershipTransferred, SeverityWarning, OutcomeSuccess,
		ResourceContract, "", CategoryAccess,
		"old_owner", string(oldOwner),
		"new_owner", string(newOwner),
	)
}

// ──────────────────────────────────────────────────
// Internal helpers
// ──────────────────────────────────────────────────

// record builds and sends an audit event if the action is enabled.
func (e *Extension) record(
	ctx context.Context,
	action, severity, outcome string,
	resource, resourceID, category string,
	kvPairs ...any,
) error {
	if e.enabled != nil && !e.enabled[action] {
		return nil
	}

	meta := make(map[string]any, len(kvPairs)/2)
	for i := 0; i+1 < len(kvPairs); i += 2 {
		key, ok := kvPairs[i].(string)
		if !ok {
			key = fmt.Sprintf("%v", kvPairs[i])
		}
		meta[key] = kvPairs[i+1]
	}

	evt := &AuditEvent{
		Action:     action,
		Resource:   resource,
		Category:   category,
		ResourceID: resourceID,
		Metadata:   meta,
		Outcome:    outcome,
		Severity:   severity,
	}

	if recErr := e.recorder.Record(ctx, evt); recErr != nil {
		e.logger.Warn("audit_hook: failed to record audit event",
			"action", action,
			"resource_id", resourceID,
			"error", recErr,
		)
	}
	return nil
}
