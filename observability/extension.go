// Package observability provides a metrics hook that records ledger
// lifecycle event counts and amounts via a pluggable MetricFactory.
package observability

import (
	"context"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/hook"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Ensure Metrics implements the hook interfaces it records.
var (
	_ hook.Hook                   = (*Metrics)(nil)
	_ hook.OnServiceCreated       = (*Metrics)(nil)
	_ hook.OnPriceUpdated         = (*Metrics)(nil)
	_ hook.OnPauseUpdated         = (*Metrics)(nil)
	_ hook.OnSubscribed           = (*Metrics)(nil)
	_ hook.OnHandedOver           = (*Metrics)(nil)
	_ hook.OnWithdrawn            = (*Metrics)(nil)
	_ hook.OnOwnershipTransferred = (*Metrics)(nil)
)

// Counter interface for metric counters.
type Counter interface {
	Inc()
	Add(float64)
}

// Histogram interface for metric histograms.
type Histogram interface {
	Observe(float64)
}

// MetricFactory creates metrics.
type MetricFactory interface {
	Counter(name string) Counter
	Histogram(name string) Histogram
}

// Metrics records system-wide lifecycle metrics. Register it as a
// ledger hook to track service, subscription and balance activity.
type Metrics struct {
	factory MetricFactory

	// Service metrics
	ServiceCreated Counter
	PriceUpdated   Counter
	PauseUpdated   Counter

	// Subscription metrics
	SubscriptionActivated Counter
	SubscriptionHandovers Counter
	PaymentAmount         Histogram
	PaymentPeriods        Histogram

	// Balance metrics
	Withdrawals      Counter
	WithdrawalAmount Histogram

	// Access control metrics
	OwnershipTransfers Counter
}

// NewMetrics creates a Metrics hook with the provided MetricFactory.
func NewMetrics(factory MetricFactory) *Metrics {
	return &Metrics{
		factory: factory,

		// Service metrics
		ServiceCreated: factory.Counter("genie.service.created"),
		PriceUpdated:   factory.Counter("genie.service.price_updated"),
		PauseUpdated:   factory.Counter("genie.service.pause_updated"),

		// Subscription metrics
		SubscriptionActivated: factory.Counter("genie.subscription.activated"),
		SubscriptionHandovers: factory.Counter("genie.subscription.handovers"),
		PaymentAmount:         factory.Histogram("genie.payment.amount"),
		PaymentPeriods:        factory.Histogram("genie.payment.periods"),

		// Balance metrics
		Withdrawals:      factory.Counter("genie.withdrawal.count"),
		WithdrawalAmount: factory.Histogram("genie.withdrawal.amount"),

		// Access control metrics
		OwnershipTransfers: factory.Counter("genie.ownership.transfers"),
	}
}

// Name implements hook.Hook.
func (m *Metrics) Name() string { return "observability-metrics" }

// OnServiceCreated implements hook.OnServiceCreated.
func (m *Metrics) OnServiceCreated(_ context.Context, _ *service.Service) error {
	m.ServiceCreated.Inc()
	return nil
}

// OnPriceUpdated implements hook.OnPriceUpdated.
func (m *Metrics) OnPriceUpdated(_ context.Context, _ *service.Service, _ types.Amount) error {
	m.PriceUpdated.Inc()
	return nil
}

// OnPauseUpdated implements hook.OnPauseUpdated.
func (m *Metrics) OnPauseUpdated(_ context.Context, _ *service.Service) error {
	m.PauseUpdated.Inc()
	return nil
}

// OnSubscribed implements hook.OnSubscribed.
func (m *Metrics) OnSubscribed(_ context.Context, _ *subscription.Subscription, payment *balance.Payment) error {
	m.SubscriptionActivated.Inc()
	if payment != nil {
		m.PaymentAmount.Observe(float64(payment.Amount))
		m.PaymentPeriods.Observe(float64(payment.Periods))
	}
	return nil
}

// OnHandedOver implements hook.OnHandedOver.
func (m *Metrics) OnHandedOver(_ context.Context, _, _ types.Identity, _ id.ServiceID) error {
	m.SubscriptionHandovers.Inc()
	return nil
}

// OnWithdrawn implements hook.OnWithdrawn.
func (m *Metrics) OnWithdrawn(_ context.Context, w *balance.Withdrawal) error {
	m.Withdrawals.Inc()
	if w != nil {
		m.WithdrawalAmount.Observe(float64(w.Amount))
	}
	return nil
}

// OnOwnershipTransferred implements hook.OnOwnershipTransferred.
func (m *Metrics) OnOwnershipTransferred(_ context.Context, _, _ types.Identity) error {
	m.OwnershipTransfers.Inc()
	return nil
}
