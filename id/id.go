// Package id defines the identifier types used by the subscription ledger.
//
// Services use small sequential identifiers assigned by the registry:
// positive, strictly increasing, never reused. Identifier 0 is reserved
// as the "not found" sentinel and is never assigned.
//
// Audit receipts (payments, withdrawals) use TypeID-based identifiers:
// K-sortable (UUIDv7-based), globally unique, and URL-safe in the format
// "prefix_suffix".
package id

import (
	"database/sql/driver"
	"fmt"
	"strconv"

	"go.jetify.com/typeid/v2"
)

// ──────────────────────────────────────────────────
// Service identifiers
// ──────────────────────────────────────────────────

// ServiceID identifies a registered service. IDs are assigned
// sequentially starting at 1; zero is the "not found" sentinel.
type ServiceID uint64

// NilService is the reserved sentinel. It never names a service.
const NilService ServiceID = 0

// IsNil reports whether the identifier is the reserved sentinel.
func (s ServiceID) IsNil() bool { return s == NilService }

// String returns the decimal representation.
func (s ServiceID) String() string {
	return strconv.FormatUint(uint64(s), 10)
}

// ParseServiceID parses a base-10 service identifier. The zero sentinel
// parses successfully; callers decide whether it is acceptable.
func ParseServiceID(v string) (ServiceID, error) {
	n, err := strconv.ParseUint(v, 10, 64)
	if err != nil {
		return NilService, fmt.Errorf("id: parse service id %q: %w", v, err)
	}
	return ServiceID(n), nil
}

// Value implements driver.Valuer for database storage.
func (s ServiceID) Value() (driver.Value, error) {
	return int64(s), nil
}

// Scan implements sql.Scanner for database retrieval.
func (s *ServiceID) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*s = NilService
		return nil
	case int64:
		if v < 0 {
			return fmt.Errorf("id: cannot scan negative service id %d", v)
		}
		*s = ServiceID(v)
		return nil
	case []byte:
		parsed, err := ParseServiceID(string(v))
		if err != nil {
			return err
		}
		*s = parsed
		return nil
	default:
		return fmt.Errorf("id: cannot scan %T into ServiceID", src)
	}
}

// ──────────────────────────────────────────────────
// Receipt identifiers
// ──────────────────────────────────────────────────

// Prefix identifies the receipt type encoded in a TypeID.
type Prefix string

// Prefix constants for receipt types.
const (
	PrefixPayment    Prefix = "pay" // Subscription payment credit
	PrefixWithdrawal Prefix = "wd"  // Executed withdrawal
)

// ReceiptID is the identifier type for audit receipts. It wraps a TypeID
// providing a prefix-qualified, globally unique, sortable identifier in
// the format "prefix_suffix".
//
//nolint:recvcheck // Value receivers for read-only methods, pointer receivers for UnmarshalText/Scan.
type ReceiptID struct {
	inner typeid.TypeID
	valid bool
}

// Nil is the zero-value ReceiptID.
var Nil ReceiptID

// New generates a new globally unique ReceiptID with the given prefix.
// It panics if prefix is not a valid TypeID prefix (programming error).
func New(prefix Prefix) ReceiptID {
	tid, err := typeid.Generate(string(prefix))
	if err != nil {
		panic(fmt.Sprintf("id: invalid prefix %q: %v", prefix, err))
	}

	return ReceiptID{inner: tid, valid: true}
}

// Parse parses a TypeID string (e.g., "pay_01h2xcejqtf2nbrexx3vqjhp41")
// into a ReceiptID. Returns an error if the string is not valid.
func Parse(s string) (ReceiptID, error) {
	if s == "" {
		return Nil, fmt.Errorf("id: parse %q: empty string", s)
	}

	tid, err := typeid.Parse(s)
	if err != nil {
		return Nil, fmt.Errorf("id: parse %q: %w", s, err)
	}

	return ReceiptID{inner: tid, valid: true}, nil
}

// ParseWithPrefix parses a TypeID string and validates that its prefix
// matches the expected value.
func ParseWithPrefix(s string, expected Prefix) (ReceiptID, error) {
	parsed, err := Parse(s)
	if err != nil {
		return Nil, err
	}

	if parsed.Prefix() != expected {
		return Nil, fmt.Errorf("id: expected prefix %q, got %q", expected, parsed.Prefix())
	}

	return parsed, nil
}

// MustParse is like Parse but panics on error. Use for hardcoded values.
func MustParse(s string) ReceiptID {
	parsed, err := Parse(s)
	if err != nil {
		panic(fmt.Sprintf("id: must parse %q: %v", s, err))
	}

	return parsed
}

// PaymentID is a type-safe identifier for payment receipts (prefix: "pay").
type PaymentID = ReceiptID

// WithdrawalID is a type-safe identifier for withdrawal receipts (prefix: "wd").
type WithdrawalID = ReceiptID

// NewPaymentID generates a new unique payment receipt ID.
func NewPaymentID() ReceiptID { return New(PrefixPayment) }

// NewWithdrawalID generates a new unique withdrawal receipt ID.
func NewWithdrawalID() ReceiptID { return New(PrefixWithdrawal) }

// ParsePaymentID parses a string and validates the "pay" prefix.
func ParsePaymentID(s string) (ReceiptID, error) { return ParseWithPrefix(s, PrefixPayment) }

// ParseWithdrawalID parses a string and validates the "wd" prefix.
func ParseWithdrawalID(s string) (ReceiptID, error) { return ParseWithPrefix(s, PrefixWithdrawal) }

// String returns the full TypeID string representation (prefix_suffix).
// Returns an empty string for the Nil ID.
func (i ReceiptID) String() string {
	if !i.valid {
		return ""
	}

	return i.inner.String()
}

// Prefix returns the prefix component of this ID.
func (i ReceiptID) Prefix() Prefix {
	if !i.valid {
		return ""
	}

	return Prefix(i.inner.Prefix())
}

// IsNil reports whether this ID is the zero value.
func (i ReceiptID) IsNil() bool {
	return !i.valid
}

// MarshalText implements encoding.TextMarshaler.
func (i ReceiptID) MarshalText() ([]byte, error) {
	if !i.valid {
		return []byte{}, nil
	}

	return []byte(i.inner.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (i *ReceiptID) UnmarshalText(data []byte) error {
	if len(data) == 0 {
		*i = Nil

		return nil
	}

	parsed, err := Parse(string(data))
	if err != nil {
		return err
	}

	*i = parsed

	return nil
}

// Value implements driver.Valuer for database storage.
// Returns nil for the Nil ID so that optional columns store NULL.
func (i ReceiptID) Value() (driver.Value, error) {
	if !i.valid {
		return nil, nil //nolint:nilnil // nil is the canonical NULL for driver.Valuer
	}

	return i.inner.String(), nil
}

// Scan implements sql.Scanner for database retrieval.
func (i *ReceiptID) Scan(src any) error {
	if src == nil {
		*i = Nil

		return nil
	}

	switch v := src.(type) {
	case string:
		if v == "" {
			*i = Nil

			return nil
		}

		return i.UnmarshalText([]byte(v))
	case []byte:
		if len(v) == 0 {
			*i = Nil

			return nil
		}

		return i.UnmarshalText(v)
	default:
		return fmt.Errorf("id: cannot scan %T into ReceiptID", src)
	}
}
