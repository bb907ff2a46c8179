// Package ledger is the sole authority for changing a user's verification
// point balance. Every balance change is an append-only transaction entry plus
// the matching cached-balance adjustment, written as one atomic unit by the
// store.
package ledger

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/adapter"
	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/store"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

// Ledger manages the verification point ledger
type Ledger struct {
	store store.Store
	clock adapter.Clock
}

// New creates a new ledger backed by the given store
func New(st store.Store, clock adapter.Clock) *Ledger {
	return &Ledger{store: st, clock: clock}
}

// Credit adds amount verification points to the user's balance and writes the
// matching ledger entry. Amount must be positive.
func (l *Ledger) Credit(ctx context.Context, userID uuid.UUID, amount int, recordID *uuid.UUID, note string) (*schema.VPTransaction, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: credit amount must be positive, got %d", domain.ErrValidation, amount)
	}
	return l.store.CreditVP(ctx, store.VPEntryInput{
		UserID:   userID,
		RecordID: recordID,
		Amount:   amount,
		Note:     note,
		Now:      l.clock.Now(),
	})
}

// Debit removes amount verification points from the user's balance and writes
// the matching ledger entry. Amount must be positive. The ledger itself does
// not reject debits that drive the balance negative; the spend gate belongs to
// the review lifecycle and runs inside the same store transaction as the
// debit.
func (l *Ledger) Debit(ctx context.Context, userID uuid.UUID, amount int, recordID *uuid.UUID, note string) (*schema.VPTransaction, error) {
	if amount < 1 {
		return nil, fmt.Errorf("%w: debit amount must be positive, got %d", domain.ErrValidation, amount)
	}
	return l.store.DebitVP(ctx, store.VPEntryInput{
		UserID:   userID,
		RecordID: recordID,
		Amount:   amount,
		Note:     note,
		Now:      l.clock.Now(),
	})
}

// BalanceOf returns the user's cached balance
func (l *Ledger) BalanceOf(ctx context.Context, userID uuid.UUID) (int, error) {
	return l.store.VPBalance(ctx, userID)
}

// Reconcile recomputes the sum of the user's transaction deltas and compares
// it against the cached balance. A mismatch means an operation updated one
// without the other, which is a correctness bug.
func (l *Ledger) Reconcile(ctx context.Context, userID uuid.UUID) error {
	balance, err := l.store.VPBalance(ctx, userID)
	if err != nil {
		return err
	}
	sum, err := l.store.SumVPDeltas(ctx, userID)
	if err != nil {
		return err
	}
	if balance != sum {
		return fmt.Errorf("ledger mismatch for user %s: cached balance %d, transaction sum %d", userID, balance, sum)
	}
	return nil
}
