package genie

import (
	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Re-exports so that callers embedding the engine only need the root
// package for the common cases.

type (
	// Amount is an unsigned monetary amount in the smallest currency unit.
	Amount = types.Amount

	// Identity is an opaque non-empty account identifier.
	Identity = types.Identity

	// ServiceID is a sequential service identifier. Zero means "no service".
	ServiceID = id.ServiceID

	// Service is a registered service offering.
	Service = service.Service

	// Subscription is one (user, service) subscription record.
	Subscription = subscription.Subscription

	// Payment is the audit receipt written when a subscription is paid.
	Payment = balance.Payment

	// Withdrawal is the audit receipt written after a successful payout.
	Withdrawal = balance.Withdrawal
)

// NilService is the "no service" sentinel identifier.
const NilService = id.NilService
