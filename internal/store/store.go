package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

// CreateUserInput holds the fields for creating a user. When InitialVP is
// positive, a matching grant transaction is written in the same atomic unit so
// the ledger invariant holds from the first moment.
type CreateUserInput struct {
	DisplayName   string
	WalletAddress string
	InitialVP     int
	Now           time.Time
}

// CreateRecordInput holds the fields for creating a record. The resolution
// level and multiplier are computed by the caller before persisting.
type CreateRecordInput struct {
	Title                string
	Body                 string
	EvidenceURL          *string
	TimeOccurredStart    time.Time
	TimeOccurredEnd      time.Time
	ResolutionLevel      int
	ResolutionMultiplier float64
	CreatedBy            *uuid.UUID
	Now                  time.Time
}

// CreateReviewRequestInput holds the fields for opening a review request. The
// store executes the whole effect as one atomic unit: balance gate, VP debit
// with its ledger entry, request insert, and the record's transition to
// under_review.
type CreateReviewRequestInput struct {
	RecordID          uuid.UUID
	RequesterID       uuid.UUID
	Reason            string
	EvidenceURL       string
	IsCounterEvidence bool
	VPCost            int
	ExpiresAt         time.Time
	Now               time.Time
}

// VPEntryInput holds the fields for a single ledger entry. Amount is always
// positive; the operation determines the sign of the written delta.
type VPEntryInput struct {
	UserID   uuid.UUID
	RecordID *uuid.UUID
	Amount   int
	Note     string
	Now      time.Time
}

// Store defines the interface for database operations. Every multi-write
// effect is a single atomic unit inside the implementation; partial
// application is a correctness bug.
type Store interface {
	// CreateUser creates a user and, when InitialVP > 0, the matching grant transaction
	CreateUser(ctx context.Context, input CreateUserInput) (*schema.User, error)
	// GetUser retrieves a user by id
	GetUser(ctx context.Context, userID uuid.UUID) (*schema.User, error)

	// CreateRecord creates a record in the live state
	CreateRecord(ctx context.Context, input CreateRecordInput) (*schema.Record, error)
	// GetRecord retrieves a record by id
	GetRecord(ctx context.Context, recordID uuid.UUID) (*schema.Record, error)
	// ListRecordsByStatus retrieves records in any of the given statuses, newest first
	ListRecordsByStatus(ctx context.Context, statuses []domain.RecordStatus) ([]*schema.Record, error)

	// CreateReviewRequest atomically debits the requester, opens the request
	// and transitions the record to under_review. The requester's balance must
	// be strictly positive; the gate and the debit run under one serialized
	// transaction on the user row.
	CreateReviewRequest(ctx context.Context, input CreateReviewRequestInput) (*schema.ReviewRequest, error)
	// GetReviewRequest retrieves a review request by id
	GetReviewRequest(ctx context.Context, requestID uuid.UUID) (*schema.ReviewRequest, error)
	// ListReviewRequestsByRecord retrieves a record's review requests, newest first
	ListReviewRequestsByRecord(ctx context.Context, recordID uuid.UUID) ([]*schema.ReviewRequest, error)
	// ListExpiredOpenReviewRequests retrieves open requests whose expiry has
	// passed, oldest expiry first
	ListExpiredOpenReviewRequests(ctx context.Context, now time.Time) ([]*schema.ReviewRequest, error)
	// FinalizeReviewRequest atomically settles an open request into the given
	// verdict and drives the record transition. Finalizing an already
	// finalized request returns domain.ErrAlreadyFinalized and writes nothing.
	FinalizeReviewRequest(ctx context.Context, requestID uuid.UUID, verdict domain.Verdict, now time.Time) error

	// CreditVP writes a positive ledger entry and adjusts the cached balance
	CreditVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error)
	// DebitVP writes a negative ledger entry and adjusts the cached balance
	DebitVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error)
	// VPBalance returns the user's cached balance
	VPBalance(ctx context.Context, userID uuid.UUID) (int, error)
	// SumVPDeltas recomputes the sum of the user's transaction deltas; used by
	// the reconciliation routine to verify the cached balance
	SumVPDeltas(ctx context.Context, userID uuid.UUID) (int, error)
}
