// Package genie implements a deterministic subscription ledger: a
// service registry, per-user subscription records, owner balances
// credited by exact up-front payments, and guarded withdrawals.
//
// The engine is embeddable and storage-agnostic. All mutating
// operations are serialized and all-or-nothing: either every write an
// operation performs becomes visible, or none do.
//
// # Quick start
//
//	st := memory.New()
//	ledger := genie.New(st, "alice",
//		genie.WithLogger(slog.Default()),
//	)
//	if err := ledger.Start(ctx); err != nil {
//		log.Fatal(err)
//	}
//	defer ledger.Stop()
//
//	serviceID, err := ledger.CreateService(ctx, "alice", "news", 500, endDate, 30)
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	// One period at the current price, paid exactly.
//	err = ledger.Subscribe(ctx, "bob", serviceID, 1, 500)
//
// Callers that speak in messages rather than method calls can go
// through Apply, which rejects unknown operations and unsolicited
// payments at the boundary:
//
//	res, err := ledger.Apply(ctx, genie.Call{
//		Caller:  "bob",
//		Payment: 500,
//		Op:      genie.SubscribeOp{ServiceID: serviceID, Periods: 1},
//	})
//
// Storage backends live under store/: memory, sqlite, postgres and
// mongo all satisfy the same store.Store interface.
package genie
