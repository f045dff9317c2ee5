package genie_test

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	genie "github.com/JoooooMei/subscription-genie"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store/memory"
	"github.com/JoooooMei/subscription-genie/types"
)

var (
	testNow = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	testEnd = testNow.AddDate(1, 0, 0)
)

const (
	deployer = types.Identity("deployer")
	alice    = types.Identity("alice")
	bob      = types.Identity("bob")
	carol    = types.Identity("carol")
)

func newTestLedger(t *testing.T, opts ...genie.Option) *genie.Ledger {
	t.Helper()

	opts = append([]genie.Option{
		genie.WithClock(genie.FixedClock(testNow)),
		genie.WithLogger(slog.New(slog.NewTextHandler(io.Discard, nil))),
	}, opts...)

	l := genie.New(memory.New(), deployer, opts...)
	if err := l.Start(context.Background()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	t.Cleanup(func() { _ = l.Stop() })
	return l
}

func mustCreateService(t *testing.T, l *genie.Ledger, owner types.Identity, price types.Amount, cycleDays int) id.ServiceID {
	t.Helper()

	serviceID, err := l.CreateService(context.Background(), owner, "svc", price, testEnd, cycleDays)
	if err != nil {
		t.Fatalf("CreateService: %v", err)
	}
	return serviceID
}

func TestCreateServiceSequentialIDs(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		serviceID, err := l.CreateService(ctx, alice, "svc", 100, testEnd, 30)
		if err != nil {
			t.Fatalf("CreateService: %v", err)
		}
		if uint64(serviceID) != want {
			t.Errorf("service id = %d, want %d", serviceID, want)
		}
	}

	ids, err := l.AllServiceIDs(ctx)
	if err != nil {
		t.Fatalf("AllServiceIDs: %v", err)
	}
	if len(ids) != 3 {
		t.Fatalf("len(ids) = %d, want 3", len(ids))
	}
	for i, serviceID := range ids {
		if uint64(serviceID) != uint64(i+1) {
			t.Errorf("ids[%d] = %d, want %d", i, serviceID, i+1)
		}
	}
}

func TestCreateServiceValidation(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	tests := []struct {
		name      string
		endDate   time.Time
		cycleDays int
		wantErr   error
	}{
		{"end date in the past", testNow.Add(-time.Hour), 30, genie.ErrInvalidEndDate},
		{"end date equal to now", testNow, 30, genie.ErrInvalidEndDate},
		{"zero cycle", testEnd, 0, genie.ErrInvalidCycleLength},
		{"negative cycle", testEnd, -7, genie.ErrInvalidCycleLength},
		{"cycle longer than representable", testEnd, service.MaxCycleDays + 1, genie.ErrInvalidCycleLength},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := l.CreateService(ctx, alice, "svc", 100, tt.endDate, tt.cycleDays)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Failed creations must not burn identifiers.
	serviceID := mustCreateService(t, l, alice, 100, 30)
	if serviceID != 1 {
		t.Errorf("first successful id = %d, want 1", serviceID)
	}
}

func TestCreateServiceStampsRecord(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 250, 7)
	svc, err := l.GetService(ctx, serviceID)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}

	if svc.Owner != alice {
		t.Errorf("owner = %q, want %q", svc.Owner, alice)
	}
	if !svc.StartDate.Equal(testNow) {
		t.Errorf("start date = %v, want %v", svc.StartDate, testNow)
	}
	if !svc.EndDate.Equal(testEnd) {
		t.Errorf("end date = %v, want %v", svc.EndDate, testEnd)
	}
	if svc.Paused {
		t.Error("new service must not be paused")
	}
}

func TestGetServiceNotFound(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	if _, err := l.GetService(ctx, 42); !errors.Is(err, genie.ErrServiceNotFound) {
		t.Errorf("err = %v, want ErrServiceNotFound", err)
	}
	if _, err := l.GetService(ctx, genie.NilService); !errors.Is(err, genie.ErrServiceNotFound) {
		t.Errorf("nil id err = %v, want ErrServiceNotFound", err)
	}
}

func TestUpdatePrice(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)

	if err := l.UpdatePrice(ctx, bob, serviceID, 200); !errors.Is(err, genie.ErrNotServiceOwner) {
		t.Errorf("non-owner err = %v, want ErrNotServiceOwner", err)
	}
	if err := l.UpdatePrice(ctx, alice, 99, 200); !errors.Is(err, genie.ErrServiceNotFound) {
		t.Errorf("missing service err = %v, want ErrServiceNotFound", err)
	}

	if err := l.UpdatePrice(ctx, alice, serviceID, 200); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}
	svc, err := l.GetService(ctx, serviceID)
	if err != nil {
		t.Fatalf("GetService: %v", err)
	}
	if svc.Price != 200 {
		t.Errorf("price = %d, want 200", svc.Price)
	}
}

// Scenario: a subscriber who paid the old price keeps their record
// untouched when the price changes, while new subscribers pay the new
// price.
func TestPriceChangeAffectsOnlyNewSubscriptions(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)

	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe at old price: %v", err)
	}
	if err := l.UpdatePrice(ctx, alice, serviceID, 150); err != nil {
		t.Fatalf("UpdatePrice: %v", err)
	}

	// The old price no longer matches.
	if err := l.Subscribe(ctx, carol, serviceID, 1, 100); !errors.Is(err, genie.ErrIncorrectPayment) {
		t.Errorf("old price err = %v, want ErrIncorrectPayment", err)
	}
	if err := l.Subscribe(ctx, carol, serviceID, 1, 150); err != nil {
		t.Fatalf("Subscribe at new price: %v", err)
	}

	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 250 {
		t.Errorf("owner balance = %d, want 250", bal)
	}
}

func TestSubscribeExactPayment(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)

	tests := []struct {
		name    string
		periods uint64
		payment types.Amount
		wantErr error
	}{
		{"underpayment", 2, 199, genie.ErrIncorrectPayment},
		{"overpayment", 2, 201, genie.ErrIncorrectPayment},
		{"single period short", 1, 99, genie.ErrIncorrectPayment},
		{"exact single period", 1, 100, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Subscribe(ctx, bob, serviceID, tt.periods, tt.payment)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	// Rejected payments must not credit the owner.
	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 100 {
		t.Errorf("owner balance = %d, want 100", bal)
	}
}

func TestSubscribeRecordFields(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 3, 300); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	subs, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("len(subs) = %d, want 1", len(subs))
	}
	sub := subs[0]

	if !sub.Active {
		t.Error("subscription must be active")
	}
	if !sub.StartDate.Equal(testNow) {
		t.Errorf("start date = %v, want %v", sub.StartDate, testNow)
	}
	wantNext := testNow.Add(3 * 30 * 86400 * time.Second)
	if !sub.NextPaymentDate.Equal(wantNext) {
		t.Errorf("next payment date = %v, want %v", sub.NextPaymentDate, wantNext)
	}
	if !sub.EndDate.Equal(testEnd) {
		t.Errorf("end date = %v, want %v", sub.EndDate, testEnd)
	}
}

// Paying for more periods than a time.Duration can span must still land
// the next payment date after the start date, not wrap it negative.
func TestSubscribeLongSpanNextPaymentDate(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 1, 30)
	const periods = 4000 // 4000 * 30 days exceeds time.Duration
	if err := l.Subscribe(ctx, bob, serviceID, periods, periods); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	subs, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}
	if len(subs) != 1 {
		t.Fatalf("len(subs) = %d, want 1", len(subs))
	}
	sub := subs[0]

	if !sub.NextPaymentDate.After(sub.StartDate) {
		t.Fatalf("next payment date %v precedes start date %v", sub.NextPaymentDate, sub.StartDate)
	}
	wantNext := time.Unix(testNow.Unix()+periods*30*86400, 0).UTC()
	if !sub.NextPaymentDate.Equal(wantNext) {
		t.Errorf("next payment date = %v, want %v", sub.NextPaymentDate, wantNext)
	}
}

// A period count whose total seconds cannot be represented at all is
// rejected up front, leaving no record and no credit behind.
func TestSubscribeRejectsUnrepresentableSpan(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	// Price zero keeps the exact-payment check satisfiable at any count.
	serviceID := mustCreateService(t, l, alice, 0, 30)

	err := l.Subscribe(ctx, bob, serviceID, math.MaxUint64, 0)
	if !errors.Is(err, genie.ErrInvalidInput) {
		t.Fatalf("err = %v, want ErrInvalidInput", err)
	}

	ids, err := l.UserSubscriptionIDs(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptionIDs: %v", err)
	}
	if len(ids) != 0 {
		t.Errorf("index = %v, want empty", ids)
	}
}

func TestSubscribeGuards(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)

	if err := l.Subscribe(ctx, bob, 99, 1, 100); !errors.Is(err, genie.ErrServiceNotFound) {
		t.Errorf("missing service err = %v, want ErrServiceNotFound", err)
	}

	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); !errors.Is(err, genie.ErrAlreadySubscribed) {
		t.Errorf("double subscribe err = %v, want ErrAlreadySubscribed", err)
	}

	if err := l.UpdatePause(ctx, alice, serviceID, true); err != nil {
		t.Fatalf("UpdatePause: %v", err)
	}
	if err := l.Subscribe(ctx, carol, serviceID, 1, 100); !errors.Is(err, genie.ErrServiceIsPaused) {
		t.Errorf("paused service err = %v, want ErrServiceIsPaused", err)
	}
}

// Scenario: pausing a service blocks new subscriptions but leaves the
// existing subscriber's record and the owner's balance untouched.
func TestPauseLeavesExistingSubscriptionsAlone(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := l.UpdatePause(ctx, alice, serviceID, true); err != nil {
		t.Fatalf("UpdatePause: %v", err)
	}

	subs, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}
	if len(subs) != 1 || !subs[0].Active {
		t.Error("existing subscription must stay active while paused")
	}

	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 100 {
		t.Errorf("balance = %d, want 100", bal)
	}

	// Unpausing reopens the service.
	if err := l.UpdatePause(ctx, alice, serviceID, false); err != nil {
		t.Fatalf("UpdatePause(false): %v", err)
	}
	if err := l.Subscribe(ctx, carol, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe after unpause: %v", err)
	}
}

// Scenario: a handover moves the subscription wholesale; the timing
// fields survive the round trip unchanged and no payment is involved.
func TestHandOver(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 2, 200); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	before, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}

	if err := l.HandOver(ctx, bob, carol, serviceID); err != nil {
		t.Fatalf("HandOver: %v", err)
	}

	bobIDs, err := l.UserSubscriptionIDs(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptionIDs: %v", err)
	}
	if len(bobIDs) != 0 {
		t.Errorf("giver index = %v, want empty", bobIDs)
	}

	carolSubs, err := l.UserSubscriptions(ctx, carol)
	if err != nil {
		t.Fatalf("UserSubscriptions(carol): %v", err)
	}
	if len(carolSubs) != 1 {
		t.Fatalf("receiver subscriptions = %d, want 1", len(carolSubs))
	}
	got := carolSubs[0]
	want := before[0]
	if !got.Active {
		t.Error("received subscription must be active")
	}
	if !got.StartDate.Equal(want.StartDate) ||
		!got.NextPaymentDate.Equal(want.NextPaymentDate) ||
		!got.EndDate.Equal(want.EndDate) {
		t.Error("timing fields must carry over unchanged")
	}

	// The owner earned nothing from the handover.
	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 200 {
		t.Errorf("balance = %d, want 200", bal)
	}
}

func TestHandOverGuards(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe(bob): %v", err)
	}
	if err := l.Subscribe(ctx, carol, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe(carol): %v", err)
	}

	if err := l.HandOver(ctx, bob, carol, serviceID); !errors.Is(err, genie.ErrAlreadySubscribed) {
		t.Errorf("handover to active subscriber err = %v, want ErrAlreadySubscribed", err)
	}
	if err := l.HandOver(ctx, alice, carol, serviceID); !errors.Is(err, genie.ErrNoActiveSubscription) {
		t.Errorf("handover without subscription err = %v, want ErrNoActiveSubscription", err)
	}
}

// A handed-over-and-back subscription and a deactivated record must not
// block a fresh handover: only Active matters.
func TestHandOverToFormerSubscriber(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := l.HandOver(ctx, bob, carol, serviceID); err != nil {
		t.Fatalf("HandOver bob->carol: %v", err)
	}
	// bob's record is now inactive; carol can hand it back.
	if err := l.HandOver(ctx, carol, bob, serviceID); err != nil {
		t.Fatalf("HandOver carol->bob: %v", err)
	}

	bobSubs, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}
	if len(bobSubs) != 1 || !bobSubs[0].Active {
		t.Error("bob must hold the active subscription again")
	}
}

// Scenario: a user whose record was deactivated by a handover-away can
// subscribe afresh — new payment, new timing, index re-appended.
func TestResubscribeAfterHandOver(t *testing.T) {
	now := testNow
	l := newTestLedger(t, genie.WithClock(genie.ClockFunc(func() time.Time { return now })))
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}
	if err := l.HandOver(ctx, bob, carol, serviceID); err != nil {
		t.Fatalf("HandOver: %v", err)
	}

	now = now.Add(45 * 24 * time.Hour)
	if err := l.Subscribe(ctx, bob, serviceID, 2, 200); err != nil {
		t.Fatalf("re-subscribe: %v", err)
	}

	bobSubs, err := l.UserSubscriptions(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptions: %v", err)
	}
	if len(bobSubs) != 1 || !bobSubs[0].Active {
		t.Fatal("bob must hold an active subscription again")
	}
	sub := bobSubs[0]
	if !sub.StartDate.Equal(now) {
		t.Errorf("start date = %v, want %v", sub.StartDate, now)
	}
	wantNext := now.Add(2 * 30 * 86400 * time.Second)
	if !sub.NextPaymentDate.Equal(wantNext) {
		t.Errorf("next payment date = %v, want %v", sub.NextPaymentDate, wantNext)
	}

	ids, err := l.UserSubscriptionIDs(ctx, bob)
	if err != nil {
		t.Fatalf("UserSubscriptionIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != serviceID {
		t.Errorf("index = %v, want [%d]", ids, serviceID)
	}

	// The fresh subscription paid the owner again; the earlier payment
	// and the handover contribute 100 and 0 respectively.
	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 300 {
		t.Errorf("balance = %d, want 300", bal)
	}
}

func TestAllSubscriptionsEndDateFiltersPaused(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	first := mustCreateService(t, l, alice, 100, 30)
	second := mustCreateService(t, l, alice, 50, 7)

	if err := l.Subscribe(ctx, bob, first, 1, 100); err != nil {
		t.Fatalf("Subscribe(first): %v", err)
	}
	if err := l.Subscribe(ctx, bob, second, 1, 50); err != nil {
		t.Fatalf("Subscribe(second): %v", err)
	}

	dates, err := l.AllSubscriptionsEndDate(ctx, bob)
	if err != nil {
		t.Fatalf("AllSubscriptionsEndDate: %v", err)
	}
	if len(dates) != 2 {
		t.Fatalf("len(dates) = %d, want 2", len(dates))
	}

	if err := l.UpdatePause(ctx, alice, first, true); err != nil {
		t.Fatalf("UpdatePause: %v", err)
	}
	dates, err = l.AllSubscriptionsEndDate(ctx, bob)
	if err != nil {
		t.Fatalf("AllSubscriptionsEndDate: %v", err)
	}
	if len(dates) != 1 {
		t.Fatalf("len(dates) after pause = %d, want 1", len(dates))
	}
}

func TestWithdraw(t *testing.T) {
	var transferred types.Amount
	l := newTestLedger(t, genie.WithTransferer(
		genie.TransferFunc(func(_ context.Context, to types.Identity, amount types.Amount) error {
			if to != alice {
				t.Errorf("transfer destination = %q, want %q", to, alice)
			}
			transferred += amount
			return nil
		}),
	))
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 3, 300); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := l.Withdraw(ctx, alice, serviceID, 120); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if transferred != 120 {
		t.Errorf("transferred = %d, want 120", transferred)
	}

	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 180 {
		t.Errorf("balance = %d, want 180", bal)
	}

	wds, err := l.Withdrawals(ctx, alice)
	if err != nil {
		t.Fatalf("Withdrawals: %v", err)
	}
	if len(wds) != 1 || wds[0].Amount != 120 {
		t.Errorf("withdrawal receipts = %+v, want one receipt of 120", wds)
	}
}

func TestWithdrawGuards(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	tests := []struct {
		name      string
		caller    types.Identity
		serviceID id.ServiceID
		amount    types.Amount
		wantErr   error
	}{
		{"not the owner", bob, serviceID, 50, genie.ErrNotServiceOwner},
		{"missing service", alice, 99, 50, genie.ErrServiceNotFound},
		{"zero amount", alice, serviceID, 0, genie.ErrAmountMustBeGreaterThanZero},
		{"more than balance", alice, serviceID, 101, genie.ErrInsufficientBalance},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := l.Withdraw(ctx, tt.caller, tt.serviceID, tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("err = %v, want %v", err, tt.wantErr)
			}
		})
	}

	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 100 {
		t.Errorf("balance after failed withdrawals = %d, want 100", bal)
	}
}

// Scenario: the transfer capability fails after the debit. The balance
// must return to its pre-call value and no receipt may be recorded.
func TestWithdrawTransferFailureRollsBack(t *testing.T) {
	transferErr := errors.New("wire unplugged")
	l := newTestLedger(t, genie.WithTransferer(
		genie.TransferFunc(func(context.Context, types.Identity, types.Amount) error {
			return transferErr
		}),
	))
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 2, 200); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	err := l.Withdraw(ctx, alice, serviceID, 150)
	if !errors.Is(err, genie.ErrTransferFailed) {
		t.Fatalf("err = %v, want ErrTransferFailed", err)
	}

	bal, err := l.Balance(ctx, alice)
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if bal != 200 {
		t.Errorf("balance = %d, want 200 (rolled back)", bal)
	}

	wds, err := l.Withdrawals(ctx, alice)
	if err != nil {
		t.Fatalf("Withdrawals: %v", err)
	}
	if len(wds) != 0 {
		t.Errorf("receipts after failed withdrawal = %d, want 0", len(wds))
	}
}

// The debit must be observable from inside the transfer callback: a
// reentrant balance read sees the already-decremented value.
func TestWithdrawDebitCommittedBeforeTransfer(t *testing.T) {
	var l *genie.Ledger
	var seen types.Amount
	l = newTestLedger(t, genie.WithTransferer(
		genie.TransferFunc(func(ctx context.Context, _ types.Identity, _ types.Amount) error {
			bal, err := l.Balance(ctx, alice)
			if err != nil {
				return err
			}
			seen = bal
			return nil
		}),
	))
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 3, 300); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	if err := l.Withdraw(ctx, alice, serviceID, 200); err != nil {
		t.Fatalf("Withdraw: %v", err)
	}
	if seen != 100 {
		t.Errorf("balance seen mid-transfer = %d, want 100", seen)
	}
}

func TestPaymentsLedger(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe(bob): %v", err)
	}
	if err := l.Subscribe(ctx, carol, serviceID, 2, 200); err != nil {
		t.Fatalf("Subscribe(carol): %v", err)
	}

	payments, err := l.Payments(ctx, alice)
	if err != nil {
		t.Fatalf("Payments: %v", err)
	}
	if len(payments) != 2 {
		t.Fatalf("len(payments) = %d, want 2", len(payments))
	}
	total, err := types.SumAmounts(payments[0].Amount, payments[1].Amount)
	if err != nil {
		t.Fatalf("SumAmounts: %v", err)
	}
	if total != 300 {
		t.Errorf("total payments = %d, want 300", total)
	}
}

func TestContractOwnership(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	owner, err := l.ContractOwner(ctx)
	if err != nil {
		t.Fatalf("ContractOwner: %v", err)
	}
	if owner != deployer {
		t.Errorf("contract owner = %q, want %q", owner, deployer)
	}

	if err := l.TransferOwnership(ctx, alice, bob); !errors.Is(err, genie.ErrNotContractOwner) {
		t.Errorf("non-owner transfer err = %v, want ErrNotContractOwner", err)
	}

	if err := l.TransferOwnership(ctx, deployer, alice); err != nil {
		t.Fatalf("TransferOwnership: %v", err)
	}
	owner, err = l.ContractOwner(ctx)
	if err != nil {
		t.Fatalf("ContractOwner: %v", err)
	}
	if owner != alice {
		t.Errorf("contract owner = %q, want %q", owner, alice)
	}

	// The previous owner lost the permission.
	if err := l.TransferOwnership(ctx, deployer, bob); !errors.Is(err, genie.ErrNotContractOwner) {
		t.Errorf("former owner transfer err = %v, want ErrNotContractOwner", err)
	}
}

// Reads are idempotent: repeating them does not change observable state.
func TestReadsAreIdempotent(t *testing.T) {
	l := newTestLedger(t)
	ctx := context.Background()

	serviceID := mustCreateService(t, l, alice, 100, 30)
	if err := l.Subscribe(ctx, bob, serviceID, 1, 100); err != nil {
		t.Fatalf("Subscribe: %v", err)
	}

	for i := 0; i < 3; i++ {
		ids, err := l.UserSubscriptionIDs(ctx, bob)
		if err != nil {
			t.Fatalf("UserSubscriptionIDs: %v", err)
		}
		if len(ids) != 1 || ids[0] != serviceID {
			t.Errorf("read %d: ids = %v, want [%d]", i, ids, serviceID)
		}
		bal, err := l.Balance(ctx, alice)
		if err != nil {
			t.Fatalf("Balance: %v", err)
		}
		if bal != 100 {
			t.Errorf("read %d: balance = %d, want 100", i, bal)
		}
	}
}
