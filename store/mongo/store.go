// Package mongo provides a MongoDB store implementation using the
// official driver.
package mongo

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	genie "github.com/JoooooMei/subscription-genie"
	"github.com/JoooooMei/subscription-genie/balance"
	"github.com/JoooooMei/subscription-genie/id"
	"github.com/JoooooMei/subscription-genie/service"
	"github.com/JoooooMei/subscription-genie/store"
	"github.com/JoooooMei/subscription-genie/subscription"
	"github.com/JoooooMei/subscription-genie/types"
)

// Collection name constants.
const (
	colServices      = "genie_services"
	colCounters      = "genie_counters"
	colSubscriptions = "genie_subscriptions"
	colUserIndex     = "genie_user_index"
	colBalances      = "genie_balances"
	colPayments      = "genie_payments"
	colWithdrawals   = "genie_withdrawals"
	colSettings      = "genie_settings"
)

var _ store.Store = (*Store)(nil)

// Store implements store.Store on MongoDB.
type Store struct {
	client *mongo.Client
	db     *mongo.Database

	// txCtx carries the session inside WithTx; it overrides the
	// per-call context so every operation joins the transaction.
	txCtx context.Context
}

func (s *Store) ctx(ctx context.Context) context.Context {
	if s.txCtx != nil {
		return s.txCtx
	}
	return ctx
}

// New wraps an existing client and database name.
func New(client *mongo.Client, database string) *Store {
	return &Store{
		client: client,
		db:     client.Database(database),
	}
}

// Open connects to the given URI.
func Open(uri, database string) (*Store, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("mongo: connect: %w", err)
	}
	return New(client, database), nil
}

// DB returns the underlying database for direct access.
func (s *Store) DB() *mongo.Database { return s.db }

// Migrate creates the indexes the queries rely on.
func (s *Store) Migrate(ctx context.Context) error {
	ctx = s.ctx(ctx)
	indexes := map[string][]mongo.IndexModel{
		colSubscriptions: {
			{
				Keys:    bson.D{{Key: "user_id", Value: 1}, {Key: "service_id", Value: 1}},
				Options: options.Index().SetUnique(true),
			},
		},
		colPayments: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "paid_at", Value: 1}}},
		},
		colWithdrawals: {
			{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "withdrawn_at", Value: 1}}},
		},
	}

	for col, models := range indexes {
		if _, err := s.db.Collection(col).Indexes().CreateMany(ctx, models); err != nil {
			return fmt.Errorf("%w: %s indexes: %v", genie.ErrMigrationFailed, col, err)
		}
	}
	return nil
}

// Ping checks database connectivity.
func (s *Store) Ping(ctx context.Context) error {
	ctx = s.ctx(ctx)
	return s.client.Ping(ctx, nil)
}

// Close disconnects the client.
func (s *Store) Close() error {
	return s.client.Disconnect(context.Background())
}

// ──────────────────────────────────────────────────
// Service registry
// ──────────────────────────────────────────────────

func (s *Store) NextServiceID(ctx context.Context) (id.ServiceID, error) {
	ctx = s.ctx(ctx)
	var counter struct {
		Next uint64 `bson:"next"`
	}
	err := s.db.Collection(colCounters).FindOneAndUpdate(ctx,
		bson.M{"_id": "service_id"},
		bson.M{"$inc": bson.M{"next": 1}},
		options.FindOneAndUpdate().
			SetUpsert(true).
			SetReturnDocument(options.After),
	).Decode(&counter)
	if err != nil {
		return id.NilService, fmt.Errorf("mongo: next service id: %w", err)
	}
	return id.ServiceID(counter.Next), nil
}

func (s *Store) CreateService(ctx context.Context, svc *service.Service) error {
	ctx = s.ctx(ctx)
	doc := serviceToDoc(svc)
	if _, err := s.db.Collection(colServices).InsertOne(ctx, doc); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return genie.ErrAlreadyExists
		}
		return fmt.Errorf("mongo: create service: %w", err)
	}
	return nil
}

func (s *Store) GetService(ctx context.Context, serviceID id.ServiceID) (*service.Service, error) {
	ctx = s.ctx(ctx)
	var doc serviceDoc
	err := s.db.Collection(colServices).
		FindOne(ctx, bson.M{"_id": uint64(serviceID)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, genie.ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get service: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) UpdateService(ctx context.Context, svc *service.Service) error {
	ctx = s.ctx(ctx)
	doc := serviceToDoc(svc)
	res, err := s.db.Collection(colServices).
		ReplaceOne(ctx, bson.M{"_id": doc.ID}, doc)
	if err != nil {
		return fmt.Errorf("mongo: update service: %w", err)
	}
	if res.MatchedCount == 0 {
		return genie.ErrServiceNotFound
	}
	return nil
}

func (s *Store) ListServiceIDs(ctx context.Context) ([]id.ServiceID, error) {
	ctx = s.ctx(ctx)
	cursor, err := s.db.Collection(colServices).Find(ctx,
		bson.M{},
		options.Find().
			SetProjection(bson.M{"_id": 1}).
			SetSort(bson.M{"_id": 1}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list service ids: %w", err)
	}
	defer cursor.Close(ctx)

	ids := []id.ServiceID{}
	for cursor.Next(ctx) {
		var doc struct {
			ID uint64 `bson:"_id"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: list service ids: %w", err)
		}
		ids = append(ids, id.ServiceID(doc.ID))
	}
	return ids, cursor.Err()
}

// ──────────────────────────────────────────────────
// Subscription ledger
// ──────────────────────────────────────────────────

func (s *Store) GetSubscription(ctx context.Context, user types.Identity, serviceID id.ServiceID) (*subscription.Subscription, error) {
	ctx = s.ctx(ctx)
	var doc subscriptionDoc
	err := s.db.Collection(colSubscriptions).
		FindOne(ctx, bson.M{"user_id": string(user), "service_id": uint64(serviceID)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, genie.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: get subscription: %w", err)
	}
	return doc.toDomain(), nil
}

func (s *Store) PutSubscription(ctx context.Context, sub *subscription.Subscription) error {
	ctx = s.ctx(ctx)
	doc := subscriptionToDoc(sub)
	_, err := s.db.Collection(colSubscriptions).ReplaceOne(ctx,
		bson.M{"user_id": doc.User, "service_id": doc.ServiceID},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: put subscription: %w", err)
	}
	return nil
}

func (s *Store) ListUserServiceIDs(ctx context.Context, user types.Identity) ([]id.ServiceID, error) {
	ctx = s.ctx(ctx)
	var doc struct {
		ServiceIDs []uint64 `bson:"service_ids"`
	}
	err := s.db.Collection(colUserIndex).
		FindOne(ctx, bson.M{"_id": string(user)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return []id.ServiceID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("mongo: list user service ids: %w", err)
	}

	ids := make([]id.ServiceID, 0, len(doc.ServiceIDs))
	for _, sid := range doc.ServiceIDs {
		ids = append(ids, id.ServiceID(sid))
	}
	return ids, nil
}

func (s *Store) AppendUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	ctx = s.ctx(ctx)
	// $addToSet appends only when absent, preserving existing order.
	_, err := s.db.Collection(colUserIndex).UpdateOne(ctx,
		bson.M{"_id": string(user)},
		bson.M{"$addToSet": bson.M{"service_ids": uint64(serviceID)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: append user service id: %w", err)
	}
	return nil
}

func (s *Store) RemoveUserServiceID(ctx context.Context, user types.Identity, serviceID id.ServiceID) error {
	ctx = s.ctx(ctx)
	_, err := s.db.Collection(colUserIndex).UpdateOne(ctx,
		bson.M{"_id": string(user)},
		bson.M{"$pull": bson.M{"service_ids": uint64(serviceID)}},
	)
	if err != nil {
		return fmt.Errorf("mongo: remove user service id: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Balances
// ──────────────────────────────────────────────────

func (s *Store) GetBalance(ctx context.Context, owner types.Identity) (types.Amount, error) {
	ctx = s.ctx(ctx)
	var doc struct {
		Amount uint64 `bson:"amount"`
	}
	err := s.db.Collection(colBalances).
		FindOne(ctx, bson.M{"_id": string(owner)}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("mongo: get balance: %w", err)
	}
	return types.Amount(doc.Amount), nil
}

func (s *Store) SetBalance(ctx context.Context, owner types.Identity, amount types.Amount) error {
	ctx = s.ctx(ctx)
	_, err := s.db.Collection(colBalances).UpdateOne(ctx,
		bson.M{"_id": string(owner)},
		bson.M{"$set": bson.M{"amount": uint64(amount)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: set balance: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Audit receipts
// ──────────────────────────────────────────────────

func (s *Store) RecordPayment(ctx context.Context, p *balance.Payment) error {
	ctx = s.ctx(ctx)
	if _, err := s.db.Collection(colPayments).InsertOne(ctx, paymentToDoc(p)); err != nil {
		return fmt.Errorf("mongo: record payment: %w", err)
	}
	return nil
}

func (s *Store) RecordWithdrawal(ctx context.Context, w *balance.Withdrawal) error {
	ctx = s.ctx(ctx)
	if _, err := s.db.Collection(colWithdrawals).InsertOne(ctx, withdrawalToDoc(w)); err != nil {
		return fmt.Errorf("mongo: record withdrawal: %w", err)
	}
	return nil
}

func (s *Store) ListPayments(ctx context.Context, owner types.Identity) ([]*balance.Payment, error) {
	ctx = s.ctx(ctx)
	cursor, err := s.db.Collection(colPayments).Find(ctx,
		bson.M{"owner": string(owner)},
		options.Find().SetSort(bson.D{{Key: "paid_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list payments: %w", err)
	}
	defer cursor.Close(ctx)

	payments := []*balance.Payment{}
	for cursor.Next(ctx) {
		var doc paymentDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: list payments: %w", err)
		}
		p, err := doc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("mongo: list payments: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, cursor.Err()
}

func (s *Store) ListWithdrawals(ctx context.Context, owner types.Identity) ([]*balance.Withdrawal, error) {
	ctx = s.ctx(ctx)
	cursor, err := s.db.Collection(colWithdrawals).Find(ctx,
		bson.M{"owner": string(owner)},
		options.Find().SetSort(bson.D{{Key: "withdrawn_at", Value: 1}, {Key: "_id", Value: 1}}),
	)
	if err != nil {
		return nil, fmt.Errorf("mongo: list withdrawals: %w", err)
	}
	defer cursor.Close(ctx)

	withdrawals := []*balance.Withdrawal{}
	for cursor.Next(ctx) {
		var doc withdrawalDoc
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("mongo: list withdrawals: %w", err)
		}
		w, err := doc.toDomain()
		if err != nil {
			return nil, fmt.Errorf("mongo: list withdrawals: %w", err)
		}
		withdrawals = append(withdrawals, w)
	}
	return withdrawals, cursor.Err()
}

// ──────────────────────────────────────────────────
// Contract owner
// ──────────────────────────────────────────────────

func (s *Store) ContractOwner(ctx context.Context) (types.Identity, error) {
	ctx = s.ctx(ctx)
	var doc struct {
		Owner string `bson:"owner"`
	}
	err := s.db.Collection(colSettings).
		FindOne(ctx, bson.M{"_id": "contract_owner"}).
		Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return types.NilIdentity, nil
	}
	if err != nil {
		return types.NilIdentity, fmt.Errorf("mongo: contract owner: %w", err)
	}
	return types.Identity(doc.Owner), nil
}

func (s *Store) SetContractOwner(ctx context.Context, owner types.Identity) error {
	ctx = s.ctx(ctx)
	_, err := s.db.Collection(colSettings).UpdateOne(ctx,
		bson.M{"_id": "contract_owner"},
		bson.M{"$set": bson.M{"owner": string(owner)}},
		options.UpdateOne().SetUpsert(true),
	)
	if err != nil {
		return fmt.Errorf("mongo: set contract owner: %w", err)
	}
	return nil
}

// ──────────────────────────────────────────────────
// Transactions
// ──────────────────────────────────────────────────

// WithTx runs fn inside a multi-document transaction. Transactions
// need a replica set or sharded cluster; against a standalone server
// the session cannot start and WithTx degrades to running fn directly,
// relying on the engine's validate-then-write ordering.
func (s *Store) WithTx(ctx context.Context, fn func(store.Store) error) error {
	if s.txCtx != nil {
		return fn(s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fn(s)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(sessCtx context.Context) (any, error) {
		return nil, fn(&Store{client: s.client, db: s.db, txCtx: sessCtx})
	})
	return err
}
