package mongo

import (
	"time"

	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Document types keep BSON encoding to primitive types; identifiers
// are stored as their string or integer form.

type serviceDoc struct {
	ID        uint64    `bson:"_id"`
	Name      string    `bson:"name"`
	Price     uint64    `bson:"price"`
	Owner     string    `bson:"owner"`
	StartDate time.Time `bson:"start_date"`
	EndDate   time.Time `bson:"end_date"`
	CycleDays int       `bson:"cycle_days"`
	Paused    bool      `bson:"paused"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func serviceToDoc(svc *service.Service) serviceDoc {
	return serviceDoc{
		ID:        uint64(svc.ID),
		Name:      svc.Name,
		Price:     uint64(svc.Price),
		Owner:     string(svc.Owner),
		StartDate: svc.StartDate,
		EndDate:   svc.EndDate,
		CycleDays: svc.CycleDays,
		Paused:    svc.Paused,
		CreatedAt: svc.CreatedAt,
		UpdatedAt: svc.UpdatedAt,
	}
}

func (d serviceDoc) toDomain() *service.Service {
	return &service.Service{
		Entity: types.Entity{
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		},
		ID:        id.ServiceID(d.ID),
		Name:      d.Name,
		Price:     types.Amount(d.Price),
		Owner:     types.Identity(d.Owner),
		StartDate: d.StartDate.UTC(),
		EndDate:   d.EndDate.UTC(),
		CycleDays: d.CycleDays,
		Paused:    d.Paused,
	}
}

type subscriptionDoc struct {
	User            string    `bson:"user_id"`
	ServiceID       uint64    `bson:"service_id"`
	Active          bool      `bson:"active"`
	StartDate       time.Time `bson:"start_date"`
	NextPaymentDate time.Time `bson:"next_payment_date"`
	EndDate         time.Time `bson:"end_date"`
	CreatedAt       time.Time `bson:"created_at"`
	UpdatedAt       time.Time `bson:"updated_at"`
}

func subscriptionToDoc(sub *subscription.Subscription) subscriptionDoc {
	return subscriptionDoc{
		User:            string(sub.User),
		ServiceID:       uint64(sub.ServiceID),
		Active:          sub.Active,
		StartDate:       sub.StartDate,
		NextPaymentDate: sub.NextPaymentDate,
		EndDate:         sub.EndDate,
		CreatedAt:       sub.CreatedAt,
		UpdatedAt:       sub.UpdatedAt,
	}
}

func (d subscriptionDoc) toDomain() *subscription.Subscription {
	return &subscription.Subscription{
		Entity: types.Entity{
			CreatedAt: d.CreatedAt.UTC(),
			UpdatedAt: d.UpdatedAt.UTC(),
		},
		User:            types.Identity(d.User),
		ServiceID:       id.ServiceID(d.ServiceID),
		Active:          d.Active,
		StartDate:       d.StartDate.UTC(),
		NextPaymentDate: d.NextPaymentDate.UTC(),
		EndDate:         d.EndDate.UTC(),
	}
}

type paymentDoc struct {
	ID        string    `bson:"_id"`
	Owner     string    `bson:"owner"`
	Payer     string    `bson:"payer"`
	ServiceID uint64    `bson:"service_id"`
	Periods   uint64    `bson:"periods"`
	Amount    uint64    `bson:"amount"`
	PaidAt    time.Time `bson:"paid_at"`
}

func paymentToDoc(p *balance.Payment) paymentDoc {
	return paymentDoc{
		ID:        p.ID.String(),
		Owner:     string(p.Owner),
		Payer:     string(p.Payer),
		ServiceID: uint64(p.ServiceID),
		Periods:   p.Periods,
		Amount:    uint64(p.Amount),
		PaidAt:    p.PaidAt,
	}
}

func (d paymentDoc) toDomain() (*balance.Payment, error) {
	paymentID, err := id.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &balance.Payment{
		ID:        paymentID,
		Owner:     types.Identity(d.Owner),
		Payer:     types.Identity(d.Payer),
		ServiceID: id.ServiceID(d.ServiceID),
		Periods:   d.Periods,
		Amount:    types.Amount(d.Amount),
		PaidAt:    d.PaidAt.UTC(),
	}, nil
}

type withdrawalDoc struct {
	ID          string    `bson:"_id"`
	Owner       string    `bson:"owner"`
	ServiceID   uint64    `bson:"service_id"`
	Amount      uint64    `bson:"amount"`
	WithdrawnAt time.Time `bson:"withdrawn_at"`
}

func withdrawalToDoc(w *balance.Withdrawal) withdrawalDoc {
	return withdrawalDoc{
		ID:          w.ID.String(),
		Owner:       string(w.Owner),
		ServiceID:   uint64(w.ServiceID),
		Amount:      uint64(w.Amount),
		WithdrawnAt: w.WithdrawnAt,
	}
}

func (d withdrawalDoc) toDomain() (*balance.Withdrawal, error) {
	withdrawalID, err := id.Parse(d.ID)
	if err != nil {
		return nil, err
	}
	return &balance.Withdrawal{
		ID:          withdrawalID,
		Owner:       types.Identity(d.Owner),
		ServiceID:   id.ServiceID(d.ServiceID),
		Amount:      types.Amount(d.Amount),
		WithdrawnAt: d.WithdrawnAt.UTC(),
	}, nil
}
