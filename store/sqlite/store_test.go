package sqlite_test

import (
	"context"
	"testing"
	"time"

	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store/sqlite"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

func openTestStore(t *testing.T) *sqlite.Store {
	t.Helper()

	s, err := sqlite.Open(":memory:")
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = s.Close() })
	if err := s.Migrate(context.Background()); err != nil {
		t.Fatalf("Migrate: %v", err)
	}
	return s
}

// Stored times keep nanosecond precision, the same as the other
// backends.
func TestTimestampsRoundTripExactly(t *testing.T) {
	s := openTestStore(t)
	ctx := context.Background()

	now := time.Date(2025, 6, 1, 12, 0, 0, 123456789, time.UTC)
	svc := &service.Service{
		Entity:    types.NewEntityAt(now),
		ID:        1,
		Name:      "svc",
		Price:     100,
		Owner:     "alice",
		StartDate: now,
		EndDate:   now.AddDate(1, 0, 0),
		CycleDays: 30,
	}
	if err := s.CreateService(ctx, svc); err != nil {
		t.Fatalf("CreateService: %v", err)
	}

	got, err := s.GetService(ctx, 1)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if !got.StartDate.Equal(now) {
		t.Errorf("start date = %v, want %v", got.StartDate, now)
	}
	if !got.EndDate.Equal(svc.EndDate) {
		t.Errorf("end date = %v, want %v", got.EndDate, svc.EndDate)
	}

	nextPayment := now.Add(30*24*time.Hour + 250*time.Millisecond)
	sub := &subscription.Subscription{
		Entity:          types.NewEntityAt(now),
		User:            "bob",
		ServiceID:       1,
		Active:          true,
		StartDate:       now,
		NextPaymentDate: nextPayment,
		EndDate:         svc.EndDate,
	}
	if err := s.PutSubscription(ctx, sub); err != nil {
		t.Fatalf("PutSubscription: %v", err)
	}

	gotSub, err := s.GetSubscription(ctx, "bob", 1)
	if err != nil {
		t.Fatalf("GetSubscription: %v", err)
	}
	if !gotSub.NextPaymentDate.Equal(nextPayment) {
		t.Errorf("next payment date = %v, want %v", gotSub.NextPaymentDate, nextPayment)
	}
	if !gotSub.StartDate.Equal(now) {
		t.Errorf("start date = %v, want %v", gotSub.StartDate, now)
	}
}
