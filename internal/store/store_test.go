package store

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/truburn/claim-ledger/internal/domain"
)

// =============================================================================
// Test Data Builders
// =============================================================================

var testBase = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// buildTestUser creates a test user input with the standard initial grant
func buildTestUser(name string, initialVP int) CreateUserInput {
	return CreateUserInput{
		DisplayName:   name,
		WalletAddress: fmt.Sprintf("0x%040x", len(name)),
		InitialVP:     initialVP,
		Now:           testBase,
	}
}

// buildTestRecord creates a test record input with a one hour occurrence window
func buildTestRecord(title string, createdAt time.Time) CreateRecordInput {
	return CreateRecordInput{
		Title:                title,
		Body:                 "something happened",
		TimeOccurredStart:    testBase.Add(-time.Hour),
		TimeOccurredEnd:      testBase,
		ResolutionLevel:      5,
		ResolutionMultiplier: 2.5,
		Now:                  createdAt,
	}
}

// buildTestReviewRequest creates a test review request input against a record
func buildTestReviewRequest(recordID, requesterID uuid.UUID, counterEvidence bool, now time.Time) CreateReviewRequestInput {
	return CreateReviewRequestInput{
		RecordID:          recordID,
		RequesterID:       requesterID,
		Reason:            strings.Repeat("the cited source does not support the claim ", 5),
		EvidenceURL:       "https://example.com/evidence",
		IsCounterEvidence: counterEvidence,
		VPCost:            1,
		ExpiresAt:         now.Add(72 * time.Hour),
		Now:               now,
	}
}

// =============================================================================
// Shared Store Test Suite
// =============================================================================

// RunStoreTests runs the full store behavior suite against an implementation.
// initDB is called before each test to get a clean store; cleanupDB after.
func RunStoreTests(t *testing.T, initDB func(t *testing.T) Store, cleanupDB func(t *testing.T)) {
	t.Run("CreateUser", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		require.NotEqual(t, uuid.Nil, user.ID)
		assert.Equal(t, "alice", user.DisplayName)
		assert.Equal(t, 5, user.VPBalance)

		// The grant is written to the ledger in the same unit
		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, sum)

		balance, err := st.VPBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, sum, balance)
	})

	t.Run("CreateUserWithoutGrant", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("bob", 0))
		require.NoError(t, err)
		assert.Equal(t, 0, user.VPBalance)

		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, sum)
	})

	t.Run("CreateUserDuplicateWallet", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		first, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)

		dup := buildTestUser("bob", 5)
		dup.WalletAddress = first.WalletAddress
		_, err = st.CreateUser(ctx, dup)
		assert.ErrorIs(t, err, domain.ErrValidation)

		// The rejected registration wrote no grant
		sum, err := st.SumVPDeltas(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, 5, sum)
	})

	t.Run("GetUserNotFound", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		_, err := st.GetUser(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})

	t.Run("CreateRecord", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		record, err := st.CreateRecord(ctx, buildTestRecord("meeting happened", testBase))
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusLive, record.Status)
		assert.Equal(t, 5, record.ResolutionLevel)
		assert.InDelta(t, 2.5, record.ResolutionMultiplier, 1e-9)

		got, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, record.ID, got.ID)
		assert.Equal(t, domain.RecordStatusLive, got.Status)
	})

	t.Run("GetRecordNotFound", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		_, err := st.GetRecord(context.Background(), uuid.New())
		assert.ErrorIs(t, err, domain.ErrRecordNotFound)
	})

	t.Run("ListRecordsByStatus", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		older, err := st.CreateRecord(ctx, buildTestRecord("older", testBase))
		require.NoError(t, err)
		newer, err := st.CreateRecord(ctx, buildTestRecord("newer", testBase.Add(time.Minute)))
		require.NoError(t, err)

		records, err := st.ListRecordsByStatus(ctx, []domain.RecordStatus{domain.RecordStatusLive})
		require.NoError(t, err)
		require.Len(t, records, 2)
		// Newest first
		assert.Equal(t, newer.ID, records[0].ID)
		assert.Equal(t, older.ID, records[1].ID)

		records, err = st.ListRecordsByStatus(ctx, []domain.RecordStatus{domain.RecordStatusVerified, domain.RecordStatusFalsified})
		require.NoError(t, err)
		assert.Empty(t, records)
	})

	t.Run("CreateReviewRequest", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)

		request, err := st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusOpen, request.Status)
		assert.True(t, request.IsCounterEvidence)
		assert.Nil(t, request.Verdict)
		assert.Nil(t, request.FinalizedAt)

		// The record transitioned in the same unit
		got, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusUnderReview, got.Status)

		// The spend is on the ledger and the cached balance matches
		balance, err := st.VPBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, balance)
		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, balance, sum)
	})

	t.Run("CreateReviewRequestRecordNotLive", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)

		_, err = st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		require.NoError(t, err)

		// A second challenge against the now under_review record fails with no
		// further spend
		_, err = st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(2*time.Minute)))
		assert.ErrorIs(t, err, domain.ErrRecordNotLive)

		balance, err := st.VPBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, balance)
		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, sum)
	})

	t.Run("CreateReviewRequestInsufficientBalance", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("broke", 0))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)

		_, err = st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		assert.ErrorIs(t, err, domain.ErrInsufficientBalance)

		// Nothing written: no ledger entry, record still live
		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 0, sum)
		got, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusLive, got.Status)

		requests, err := st.ListReviewRequestsByRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Empty(t, requests)
	})

	t.Run("FinalizeReviewRequestFalsified", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)
		request, err := st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		require.NoError(t, err)

		finalizedAt := testBase.Add(73 * time.Hour)
		err = st.FinalizeReviewRequest(ctx, request.ID, domain.VerdictFalsified, finalizedAt)
		require.NoError(t, err)

		got, err := st.GetReviewRequest(ctx, request.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.ReviewStatusFinalized, got.Status)
		require.NotNil(t, got.Verdict)
		assert.Equal(t, domain.VerdictFalsified, *got.Verdict)
		require.NotNil(t, got.FinalizedAt)
		assert.WithinDuration(t, finalizedAt, *got.FinalizedAt, time.Second)

		gotRecord, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusFalsified, gotRecord.Status)

		// Settlement moves no verification points
		balance, err := st.VPBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 4, balance)
	})

	t.Run("FinalizeReviewRequestVerified", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)
		request, err := st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, false, testBase.Add(time.Minute)))
		require.NoError(t, err)

		err = st.FinalizeReviewRequest(ctx, request.ID, domain.VerdictVerified, testBase.Add(73*time.Hour))
		require.NoError(t, err)

		gotRecord, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusVerified, gotRecord.Status)
	})

	t.Run("FinalizeReviewRequestTwice", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)
		request, err := st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		require.NoError(t, err)

		firstFinalize := testBase.Add(73 * time.Hour)
		require.NoError(t, st.FinalizeReviewRequest(ctx, request.ID, domain.VerdictFalsified, firstFinalize))

		err = st.FinalizeReviewRequest(ctx, request.ID, domain.VerdictVerified, testBase.Add(74*time.Hour))
		assert.ErrorIs(t, err, domain.ErrAlreadyFinalized)

		// The second call wrote nothing
		got, err := st.GetReviewRequest(ctx, request.ID)
		require.NoError(t, err)
		require.NotNil(t, got.Verdict)
		assert.Equal(t, domain.VerdictFalsified, *got.Verdict)
		require.NotNil(t, got.FinalizedAt)
		assert.WithinDuration(t, firstFinalize, *got.FinalizedAt, time.Second)

		gotRecord, err := st.GetRecord(ctx, record.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.RecordStatusFalsified, gotRecord.Status)
	})

	t.Run("FinalizeReviewRequestNotFound", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)

		err := st.FinalizeReviewRequest(context.Background(), uuid.New(), domain.VerdictVerified, testBase)
		assert.ErrorIs(t, err, domain.ErrReviewRequestNotFound)
	})

	t.Run("ListExpiredOpenReviewRequests", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)

		// Three requests against three records with staggered expiries
		makeRequest := func(expiresAt time.Time) uuid.UUID {
			record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
			require.NoError(t, err)
			input := buildTestReviewRequest(record.ID, user.ID, true, testBase)
			input.ExpiresAt = expiresAt
			request, err := st.CreateReviewRequest(ctx, input)
			require.NoError(t, err)
			return request.ID
		}

		second := makeRequest(testBase.Add(2 * time.Hour))
		first := makeRequest(testBase.Add(time.Hour))
		notDue := makeRequest(testBase.Add(100 * time.Hour))

		expired, err := st.ListExpiredOpenReviewRequests(ctx, testBase.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, expired, 2)
		// Oldest expiry first
		assert.Equal(t, first, expired[0].ID)
		assert.Equal(t, second, expired[1].ID)
		for _, request := range expired {
			assert.NotEqual(t, notDue, request.ID)
		}

		// A request expiring exactly now is due
		expired, err = st.ListExpiredOpenReviewRequests(ctx, testBase.Add(time.Hour))
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, first, expired[0].ID)

		// Finalized requests drop out
		require.NoError(t, st.FinalizeReviewRequest(ctx, first, domain.VerdictFalsified, testBase.Add(3*time.Hour)))
		expired, err = st.ListExpiredOpenReviewRequests(ctx, testBase.Add(3*time.Hour))
		require.NoError(t, err)
		require.Len(t, expired, 1)
		assert.Equal(t, second, expired[0].ID)
	})

	t.Run("ListReviewRequestsByRecord", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)
		record, err := st.CreateRecord(ctx, buildTestRecord("claim", testBase))
		require.NoError(t, err)
		other, err := st.CreateRecord(ctx, buildTestRecord("other claim", testBase))
		require.NoError(t, err)

		request, err := st.CreateReviewRequest(ctx, buildTestReviewRequest(record.ID, user.ID, true, testBase.Add(time.Minute)))
		require.NoError(t, err)
		_, err = st.CreateReviewRequest(ctx, buildTestReviewRequest(other.ID, user.ID, true, testBase.Add(2*time.Minute)))
		require.NoError(t, err)

		requests, err := st.ListReviewRequestsByRecord(ctx, record.ID)
		require.NoError(t, err)
		require.Len(t, requests, 1)
		assert.Equal(t, request.ID, requests[0].ID)
	})

	t.Run("CreditAndDebitVP", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		user, err := st.CreateUser(ctx, buildTestUser("alice", 5))
		require.NoError(t, err)

		credit, err := st.CreditVP(ctx, VPEntryInput{UserID: user.ID, Amount: 3, Note: "Verification reward", Now: testBase.Add(time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, 3, credit.Delta)

		debit, err := st.DebitVP(ctx, VPEntryInput{UserID: user.ID, Amount: 2, Note: "Penalty", Now: testBase.Add(2 * time.Minute)})
		require.NoError(t, err)
		assert.Equal(t, -2, debit.Delta)

		balance, err := st.VPBalance(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, 6, balance)

		sum, err := st.SumVPDeltas(ctx, user.ID)
		require.NoError(t, err)
		assert.Equal(t, balance, sum)
	})

	t.Run("VPEntryUserNotFound", func(t *testing.T) {
		st := initDB(t)
		defer cleanupDB(t)
		ctx := context.Background()

		_, err := st.CreditVP(ctx, VPEntryInput{UserID: uuid.New(), Amount: 1, Note: "ghost", Now: testBase})
		assert.ErrorIs(t, err, domain.ErrUserNotFound)
	})
}

// =============================================================================
// Memory Store
// =============================================================================

// TestMemoryStore runs the shared suite against the in-memory implementation
func TestMemoryStore(t *testing.T) {
	RunStoreTests(t,
		func(t *testing.T) Store { return NewMemoryStore() },
		func(t *testing.T) {},
	)
}

// TestMemoryStoreConcurrentSpend checks the balance gate under contention: a
// user holding a single point fires many concurrent review requests against
// distinct live records and exactly one debit may land.
func TestMemoryStoreConcurrentSpend(t *testing.T) {
	ctx := context.Background()
	st := NewMemoryStore()

	user, err := st.CreateUser(ctx, buildTestUser("edge", 1))
	require.NoError(t, err)

	const attempts = 16
	recordIDs := make([]uuid.UUID, attempts)
	for i := range recordIDs {
		record, err := st.CreateRecord(ctx, buildTestRecord(fmt.Sprintf("claim %d", i), testBase))
		require.NoError(t, err)
		recordIDs[i] = record.ID
	}

	var wg sync.WaitGroup
	errs := make([]error, attempts)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = st.CreateReviewRequest(ctx, buildTestReviewRequest(recordIDs[i], user.ID, true, testBase.Add(time.Minute)))
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.ErrorIs(t, err, domain.ErrInsufficientBalance)
		}
	}
	assert.Equal(t, 1, succeeded)

	balance, err := st.VPBalance(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, balance)
	sum, err := st.SumVPDeltas(ctx, user.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, sum)
}
