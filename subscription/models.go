// Package subscription defines a user's relationship to a service.
package subscription

import (
	"time"

	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/types"
)

// Subscription records one (user, service) relationship. A record is
// created on first subscribe and persists after deactivation; Active is
// the single source of truth for whether it is live. At most one record
// exists per (user, service) pair, so the pair is the natural key.
type Subscription struct {
	types.Entity
	User            types.Identity `json:"user"`
	ServiceID       id.ServiceID   `json:"service_id"`
	Active          bool           `json:"active"`
	StartDate       time.Time      `json:"start_date"`
	NextPaymentDate time.Time      `json:"next_payment_date"`
	EndDate         time.Time      `json:"end_date"`
}

// Clone returns a copy of the subscription record.
func (s *Subscription) Clone() *Subscription {
	c := *s
	return &c
}
