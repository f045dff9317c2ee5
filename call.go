package genie

import (
	"context"
	"time"

	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/types"
)

// Op is one recognized ledger operation. The set of implementations in
// this package is closed; Apply rejects anything else with
// ErrUnrecognizedOperation.
type Op interface {
	// acceptsPayment reports whether the operation consumes an
	// attached payment. Everything else must arrive with zero value.
	acceptsPayment() bool
}

// CreateServiceOp registers a new service owned by the caller.
type CreateServiceOp struct {
	Name      string
	Price     types.Amount
	EndDate   time.Time
	CycleDays int
}

// UpdatePriceOp changes a service's price.
type UpdatePriceOp struct {
	ServiceID id.ServiceID
	NewPrice  types.Amount
}

// UpdatePauseOp toggles a service's pause flag.
type UpdatePauseOp struct {
	ServiceID id.ServiceID
	Paused    bool
}

// SubscribeOp activates a subscription paid for by the attached value.
type SubscribeOp struct {
	ServiceID id.ServiceID
	Periods   uint64
}

// HandOverOp transfers the caller's active subscription to another user.
type HandOverOp struct {
	To        types.Identity
	ServiceID id.ServiceID
}

// WithdrawOp pays out part of the caller's accumulated balance.
type WithdrawOp struct {
	ServiceID id.ServiceID
	Amount    types.Amount
}

// TransferOwnershipOp reassigns the contract owner.
type TransferOwnershipOp struct {
	NewOwner types.Identity
}

func (CreateServiceOp) acceptsPayment() bool     { return false }
func (UpdatePriceOp) acceptsPayment() bool       { return false }
func (UpdatePauseOp) acceptsPayment() bool       { return false }
func (SubscribeOp) acceptsPayment() bool         { return true }
func (HandOverOp) acceptsPayment() bool          { return false }
func (WithdrawOp) acceptsPayment() bool          { return false }
func (TransferOwnershipOp) acceptsPayment() bool { return false }

// Call is one inbound message at the ledger boundary: who is calling,
// how much value is attached, and which operation is requested.
type Call struct {
	Caller  types.Identity
	Payment types.Amount
	Op      Op
}

// Result carries the output of a Call, if the operation produced one.
type Result struct {
	// ServiceID is set by CreateServiceOp.
	ServiceID id.ServiceID
}

// Apply dispatches a Call to the matching engine operation. An unknown
// or absent operation fails with ErrUnrecognizedOperation, except that
// bare value with no recognizable operation fails with
// ErrUnsolicitedPayment. Payment attached to a non-paying operation is
// also rejected; no value is ever silently absorbed.
func (l *Ledger) Apply(ctx context.Context, call Call) (*Result, error) {
	if call.Op == nil {
		if !call.Payment.IsZero() {
			return nil, ErrUnsolicitedPayment
		}
		return nil, ErrUnrecognizedOperation
	}
	if !call.Op.acceptsPayment() && !call.Payment.IsZero() {
		return nil, ErrUnsolicitedPayment
	}

	switch op := call.Op.(type) {
	case CreateServiceOp:
		serviceID, err := l.CreateService(ctx, call.Caller, op.Name, op.Price, op.EndDate, op.CycleDays)
		if err != nil {
			return nil, err
		}
		return &Result{ServiceID: serviceID}, nil

	case UpdatePriceOp:
		return &Result{}, l.UpdatePrice(ctx, call.Caller, op.ServiceID, op.NewPrice)

	case UpdatePauseOp:
		return &Result{}, l.UpdatePause(ctx, call.Caller, op.ServiceID, op.Paused)

	case SubscribeOp:
		return &Result{}, l.Subscribe(ctx, call.Caller, op.ServiceID, op.Periods, call.Payment)

	case HandOverOp:
		return &Result{}, l.HandOver(ctx, call.Caller, op.To, op.ServiceID)

	case WithdrawOp:
		return &Result{}, l.Withdraw(ctx, call.Caller, op.ServiceID, op.Amount)

	case TransferOwnershipOp:
		return &Result{}, l.TransferOwnership(ctx, call.Caller, op.NewOwner)

	default:
		if !call.Payment.IsZero() {
			return nil, ErrUnsolicitedPayment
		}
		return nil, ErrUnrecognizedOperation
	}
}
