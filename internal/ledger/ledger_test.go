package ledger

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/store"
)

// fakeClock returns a fixed time for deterministic entries
type fakeClock struct {
	now time.Time
}

func (c *fakeClock) Now() time.Time                         { return c.now }
func (c *fakeClock) Since(t time.Time) time.Duration        { return c.now.Sub(t) }
func (c *fakeClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

func newTestLedger(t *testing.T) (*Ledger, store.Store, uuid.UUID) {
	t.Helper()
	clock := &fakeClock{now: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)}
	st := store.NewMemoryStore()

	user, err := st.CreateUser(context.Background(), store.CreateUserInput{
		DisplayName:   "alice",
		WalletAddress: "0x0000000000000000000000000000000000000001",
		InitialVP:     5,
		Now:           clock.now,
	})
	require.NoError(t, err)

	return New(st, clock), st, user.ID
}

func TestCreditAndDebit(t *testing.T) {
	ctx := context.Background()
	ldg, _, userID := newTestLedger(t)

	entry, err := ldg.Credit(ctx, userID, 3, nil, "Verification reward")
	require.NoError(t, err)
	assert.Equal(t, 3, entry.Delta)
	assert.Equal(t, "Verification reward", entry.Note)

	entry, err = ldg.Debit(ctx, userID, 2, nil, "Penalty")
	require.NoError(t, err)
	assert.Equal(t, -2, entry.Delta)

	balance, err := ldg.BalanceOf(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 6, balance)

	assert.NoError(t, ldg.Reconcile(ctx, userID))
}

func TestAmountValidation(t *testing.T) {
	ctx := context.Background()
	ldg, _, userID := newTestLedger(t)

	_, err := ldg.Credit(ctx, userID, 0, nil, "noop")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ldg.Credit(ctx, userID, -2, nil, "negative")
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = ldg.Debit(ctx, userID, 0, nil, "noop")
	assert.ErrorIs(t, err, domain.ErrValidation)

	// Rejected amounts leave no trace on the ledger
	balance, err := ldg.BalanceOf(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, balance)
	assert.NoError(t, ldg.Reconcile(ctx, userID))
}

func TestUnknownUser(t *testing.T) {
	ctx := context.Background()
	ldg, _, _ := newTestLedger(t)

	_, err := ldg.Credit(ctx, uuid.New(), 1, nil, "ghost")
	assert.ErrorIs(t, err, domain.ErrUserNotFound)

	_, err = ldg.BalanceOf(ctx, uuid.New())
	assert.ErrorIs(t, err, domain.ErrUserNotFound)
}

func TestReconcileAfterInitialGrant(t *testing.T) {
	ctx := context.Background()
	ldg, st, userID := newTestLedger(t)

	// The registration grant alone already satisfies the invariant
	assert.NoError(t, ldg.Reconcile(ctx, userID))

	sum, err := st.SumVPDeltas(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, 5, sum)
}
