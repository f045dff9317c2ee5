package types

import (
	"database/sql/driver"
	"fmt"
	"strings"
)

// Identity is an opaque caller identity supplied by the execution
// environment. The ledger never interprets the value beyond equality;
// the environment decides what an identity looks like (an account
// address, a user id, a tenant key).
type Identity string

// NilIdentity is the zero identity. It is never a valid caller or owner.
const NilIdentity Identity = ""

// NewIdentity normalizes a raw identity string. Leading and trailing
// whitespace is stripped so equality checks stay byte-exact.
func NewIdentity(s string) Identity {
	return Identity(strings.TrimSpace(s))
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool { return i == NilIdentity }

// String returns the raw identity value.
func (i Identity) String() string { return string(i) }

// Value implements driver.Valuer.
func (i Identity) Value() (driver.Value, error) {
	return string(i), nil
}

// Scan implements sql.Scanner.
func (i *Identity) Scan(src any) error {
	switch v := src.(type) {
	case nil:
		*i = NilIdentity
		return nil
	case string:
		*i = Identity(v)
		return nil
	case []byte:
		*i = Identity(v)
		return nil
	default:
		return fmt.Errorf("types: cannot scan %T into Identity", src)
	}
}
