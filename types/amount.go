// Package types provides common types used across the subscription ledger.
package types

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"math"
	"math/bits"
	"strconv"
)

// Arithmetic errors. Overflowing the unsigned range is always a caller
// error, never silently wrapped.
var (
	ErrAmountOverflow  = errors.New("types: amount overflow")
	ErrAmountUnderflow = errors.New("types: amount underflow")
)

// Amount is a monetary value in the smallest currency unit.
// All arithmetic is unsigned integer-only — no floating point, and every
// operation that could leave the representable range returns an error.
//
// Examples:
//   - Amount(4900) = 4900 cents
//   - Amount(1000) = price of one billing period at 1000 units
type Amount uint64

// ZeroAmount is the zero value, kept for readability at call sites.
const ZeroAmount Amount = 0

// Add returns a + b, or ErrAmountOverflow if the sum does not fit.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrAmountOverflow, a, b)
	}
	return Amount(sum), nil
}

// Sub returns a - b, or ErrAmountUnderflow if b exceeds a.
// Balances are unsigned; a debit below zero is never representable.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrAmountUnderflow, a, b)
	}
	return a - b, nil
}

// Mul returns a * qty, or ErrAmountOverflow if the product does not fit.
func (a Amount) Mul(qty uint64) (Amount, error) {
	hi, lo := bits.Mul64(uint64(a), qty)
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d * %d", ErrAmountOverflow, a, qty)
	}
	return Amount(lo), nil
}

// IsZero reports whether the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// LessThan reports whether a < other.
func (a Amount) LessThan(other Amount) bool { return a < other }

// GreaterThan reports whether a > other.
func (a Amount) GreaterThan(other Amount) bool { return a > other }

// String returns the decimal representation of the raw unit count.
func (a Amount) String() string {
	return strconv.FormatUint(uint64(a), 10)
}

// ParseAmount parses a base-10 unsigned amount string.
func ParseAmount(s string) (Amount, error) {
	v, err := strconv.ParseUint(s, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("types: parse amount %q: %w", s, err)
	}
	return Amount(v), nil
}

// SumAmounts adds the given values, failing on overflow.
func SumAmounts(values ...Amount) (Amount, error) {
	var total Amount
	for _, v := range values {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}

// Value implements driver.Valuer. Amounts are stored as signed 64-bit
// integers; values above math.MaxInt64 are rejected rather than truncated.
func (a Amount) Value() (driver.Value, error) {
	if uint64(a) > math.MaxInt64 {
		return nil, fmt.Errorf("types: amount %d exceeds database integer range", a)
	}
	return int64(a), nil
}

// Scan implements sql.Scanner.
func (a *Amount) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*a = 0
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("types: cannot scan negative amount %d", v)
		}
		*a = Amount(v)
		return nil
	case []byte:
		parsed, err := ParseAmount(string(v))
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	case string:
		parsed, err := ParseAmount(v)
		if err != nil {
			return err
		}
		*a = parsed
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Amount", src)
	}
}
