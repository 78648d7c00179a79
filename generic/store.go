/*
store.go - Shared persistence contracts

PURPOSE:
  Defines the pieces every store implementation shares. Domain packages
  declare their own narrow query interfaces (legal.Store, novelty.Store,
  concept.Store, liquidation.PeriodStore) and rely on Transactor when
  several writes must land atomically.

TRANSACTIONS:
  The active transaction travels in the context. Store methods called
  with the context handed to fn join the transaction; calls made with
  any other context run outside it. Nested WithTx calls join the outer
  transaction instead of opening a new one.

    err := store.WithTx(ctx, func(ctx context.Context) error {
        if err := store.DeleteDocuments(ctx, periodID); err != nil {
            return err // rolled back
        }
        return store.SaveDocument(ctx, doc)
    })

IMPLEMENTATIONS:
  - store/sqlite:   database/sql + go-sqlite3
  - store/postgres: pgx/v5 pool
  - generic/store:  in-memory, snapshot + restore, for tests and dry runs

SEE ALSO:
  - liquidation/runner.go: Replaces a period's documents atomically
  - novelty/scheduler.go: Validates and saves in one transaction
*/
package generic

import (
	"context"

	"github.com/google/uuid"
)

// Transactor runs fn atomically. If fn returns an error every write made
// through the context passed to fn is rolled back.
type Transactor interface {
	WithTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// NewID returns a random identifier for records created by the engine.
func NewID() string {
	return uuid.NewString()
}
