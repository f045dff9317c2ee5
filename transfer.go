package genie

import (
	"context"
	"time"

	"github.com/JoooooMei/subscription-genie/types"
)

// Clock supplies the current time to the engine. The execution
// environment owns time; injecting it keeps every operation a pure
// function of (state, call, now).
type Clock interface {
	Now() time.Time
}

// ClockFunc adapts a function to the Clock interface.
type ClockFunc func() time.Time

// Now implements Clock.
func (f ClockFunc) Now() time.Time { return f() }

// SystemClock reads the wall clock. It is the default when no clock is
// injected.
func SystemClock() Clock {
	return ClockFunc(time.Now)
}

// FixedClock always returns t. Intended for tests.
func FixedClock(t time.Time) Clock {
	return ClockFunc(func() time.Time { return t })
}

// Transferer is the external value-transfer capability. The engine
// invokes it only after the corresponding balance debit has been
// committed; a returned error makes the whole withdrawal fail and the
// debit is rolled back.
type Transferer interface {
	Transfer(ctx context.Context, to types.Identity, amount types.Amount) error
}

// TransferFunc adapts a function to the Transferer interface.
type TransferFunc func(ctx context.Context, to types.Identity, amount types.Amount) error

// Transfer implements Transferer.
func (f TransferFunc) Transfer(ctx context.Context, to types.Identity, amount types.Amount) error {
	return f(ctx, to, amount)
}

// NopTransferer acknowledges every transfer without moving value. It is
// the default capability; environments that move real value must inject
// their own Transferer.
func NopTransferer() Transferer {
	return TransferFunc(func(context.Context, types.Identity, types.Amount) error {
		return nil
	})
}
