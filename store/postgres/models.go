package postgres

import (
	"time"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Row types mirror the table schemas. Domain types carry their own
// Value/Scan implementations, so sqlx can bind them directly.

type serviceRow struct {
	ID        id.ServiceID   `db:"id"`
	Name      string         `db:"name"`
	Price     types.Amount   `db:"price"`
	Owner     types.Identity `db:"owner"`
	StartDate time.Time      `db:"start_date"`
	EndDate   time.Time      `db:"end_date"`
	CycleDays int            `db:"cycle_days"`
	Paused    bool           `db:"paused"`
	CreatedAt time.Time      `db:"created_at"`
	UpdatedAt time.Time      `db:"updated_at"`
}

func serviceToRow(svc *service.Service) serviceRow {
	return serviceRow{
		ID:        svc.ID,
		Name:      svc.Name,
		Price:     svc.Price,
		Owner:     svc.Owner,
		StartDate: svc.StartDate,
		EndDate:   svc.EndDate,
		CycleDays: svc.CycleDays,
		Paused:    svc.Paused,
		CreatedAt: svc.CreatedAt,
		UpdatedAt: svc.UpdatedAt,
	}
}

func (r serviceRow) toDomain() *service.Service {
	return &service.Service{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		ID:        r.ID,
		Name:      r.Name,
		Price:     r.Price,
		Owner:     r.Owner,
		StartDate: r.StartDate,
		EndDate:   r.EndDate,
		CycleDays: r.CycleDays,
		Paused:    r.Paused,
	}
}

type subscriptionRow struct {
	User            types.Identity `db:"user_id"`
	ServiceID       id.ServiceID   `db:"service_id"`
	Active          bool           `db:"active"`
	StartDate       time.Time      `db:"start_date"`
	NextPaymentDate time.Time      `db:"next_payment_date"`
	EndDate         time.Time      `db:"end_date"`
	CreatedAt       time.Time      `db:"created_at"`
	UpdatedAt       time.Time      `db:"updated_at"`
}

func subscriptionToRow(sub *subscription.Subscription) subscriptionRow {
	return subscriptionRow{
		User:            sub.User,
		ServiceID:       sub.ServiceID,
		Active:          sub.Active,
		StartDate:       sub.StartDate,
		NextPaymentDate: sub.NextPaymentDate,
		EndDate:         sub.EndDate,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

func (r subscriptionRow) toDomain() *subscription.Subscription {
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: r.CreatedAt,
			UpdatedAt: r.UpdatedAt,
		},
		User:            r.User,
		ServiceID:       r.ServiceID,
		Active:          r.Active,
		StartDate:       r.StartDate,
		NextPaymentDate: r.NextPaymentDate,
		EndDate:         r.EndDate,
	}
}

type paymentRow struct {
	ID        id.PaymentID   `db:"id"`
	Owner     types.Identity `db:"owner"`
	Payer     types.Identity `db:"payer"`
	ServiceID id.ServiceID   `db:"service_id"`
	Periods   uint64         `db:"periods"`
	Amount    types.Amount   `db:"amount"`
	PaidAt    time.Time      `db:"paid_at"`
}

func paymentToRow(p *balance.Payment) paymentRow {
	return paymentRow{
		ID:        p.ID,
		Owner:     p.Owner,
		Payer:     p.Payer,
		ServiceID: p.ServiceID,
		Periods:   p.Periods,
		Amount:    p.Amount,
		PaidAt:    p.PaidAt,
	}
}

func (r paymentRow) toDomain() *balance.Payment {
	return &balance.Payment{
		ID:        r.ID,
		Owner:     r.Owner,
		Payer:     r.Payer,
		ServiceID: r.ServiceID,
		Periods:   r.Periods,
		Amount:    r.Amount,
		PaidAt:    r.PaidAt,
	}
}

type withdrawalRow struct {
	ID          id.WithdrawalID `db:"id"`
	Owner       types.Identity  `db:"owner"`
	ServiceID   id.ServiceID    `db:"service_id"`
	Amount      types.Amount    `db:"amount"`
	WithdrawnAt time.Time       `db:"withdrawn_at"`
}

func withdrawalToRow(w *balance.Withdrawal) withdrawalRow {
	return withdrawalRow{
		ID:          w.ID,
		Owner:       w.Owner,
		ServiceID:   w.ServiceID,
		Amount:      w.Amount,
		WithdrawnAt: w.WithdrawnAt,
	}
}

func (r withdrawalRow) toDomain() *balance.Withdrawal {
	return &balance.Withdrawal{
		ID:          r.ID,
		Owner:       r.Owner,
		ServiceID:   r.ServiceID,
		Amount:      r.Amount,
		WithdrawnAt: r.WithdrawnAt,
	}
}
