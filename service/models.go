// Package service defines the offering records managed by the service
// registry.
package service

import (
	"fmt"
	"math"
	"math/bits"
	"time"

	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/types"
)

// SecondsPerDay converts a cycle length in days to timestamp arithmetic.
const SecondsPerDay = 86400

// MaxCycleDays is the longest single billing cycle a time.Duration can
// represent. Longer cycles are rejected at creation.
const MaxCycleDays = int(math.MaxInt64 / (SecondsPerDay * int64(time.Second)))

// Service is an offering with a price, owner, billing cycle, and
// availability state. Records are created once and never deleted;
// only Price and Paused are mutable, and only by the service owner.
type Service struct {
	types.Entity
	ID        id.ServiceID   `json:"id"`
	Name      string         `json:"name"`
	Price     types.Amount   `json:"price"`
	Owner     types.Identity `json:"owner"`
	StartDate time.Time      `json:"start_date"`
	EndDate   time.Time      `json:"end_date"`
	CycleDays int            `json:"cycle_days"`
	Paused    bool           `json:"paused"`
}

// CycleDuration returns the length of one billing cycle.
func (s *Service) CycleDuration() time.Duration {
	return time.Duration(int64(s.CycleDays)*SecondsPerDay) * time.Second
}

// PeriodsSeconds returns the whole-second length of the given number of
// billing cycles: periods * cycleDays * 86400. The multiplication is
// checked the same way Amount arithmetic is; products beyond the signed
// 64-bit second range return an error instead of wrapping.
func (s *Service) PeriodsSeconds(periods uint64) (int64, error) {
	hi, days := bits.Mul64(periods, uint64(s.CycleDays))
	if hi != 0 {
		return 0, fmt.Errorf("service: %d periods of %d days out of range", periods, s.CycleDays)
	}
	hi, secs := bits.Mul64(days, SecondsPerDay)
	if hi != 0 || secs > math.MaxInt64 {
		return 0, fmt.Errorf("service: %d periods of %d days out of range", periods, s.CycleDays)
	}
	return int64(secs), nil
}

// NextPaymentDate returns start advanced by the given number of billing
// cycles. The arithmetic runs in whole unix seconds rather than
// time.Duration so spans longer than ~292 years do not wrap negative.
func (s *Service) NextPaymentDate(start time.Time, periods uint64) (time.Time, error) {
	secs, err := s.PeriodsSeconds(periods)
	if err != nil {
		return time.Time{}, err
	}
	base := start.Unix()
	if base > 0 && secs > math.MaxInt64-base {
		return time.Time{}, fmt.Errorf("service: next payment date for %d periods of %d days out of range", periods, s.CycleDays)
	}
	return time.Unix(base+secs, int64(start.Nanosecond())).In(start.Location()), nil
}

// Clone returns a copy of the service record.
func (s *Service) Clone() *Service {
	c := *s
	return &c
}
