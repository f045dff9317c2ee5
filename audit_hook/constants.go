package audithook

// Action constants for audit events.
const (
	// Service actions
	ActionServiceCreated = "service.created"
	ActionPriceUpdated   = "service.price_updated"
	ActionPauseUpdated   = "service.pause_updated"

	// Subscription actions
	ActionSubscribed = "subscription.activated"
	ActionHandedOver = "subscription.handed_over"

	// Balance actions
	ActionWithdrawn = "balance.withdrawn"

	// Access control actions
	ActionOwnershipTransferred = "ownership.transferred"
)

// allActions returns every known action.
func allActions() []string {
	return []string{
		ActionServiceCreated,
		ActionPriceUpdated,
		ActionPauseUpdated,
		ActionSubscribed,
		ActionHandedOver,
		ActionWithdrawn,
		ActionOwnershipTransferred,
	}
}

// Resource constants for audit events.
const (
	ResourceService      = "service"
	ResourceSubscription = "subscription"
	ResourceBalance      = "balance"
	ResourceContract     = "contract"
)

// Category constants for audit events.
const (
	CategoryRegistry     = "registry"
	CategorySubscription = "subscription"
	CategoryPayment      = "payment"
	CategoryAccess       = "access"
)

// Severity levels for audit events.
const (
	SeverityInfo     = "info"
	SeverityWarning  = "warning"
	SeverityError    = "error"
	SeverityCritical = "critical"
)

// Outcome values for audit events.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
