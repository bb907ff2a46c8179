// Package review owns the record/review-request lifecycle: opening a review
// request against a live record (spending verification points), settling
// expired requests into verdicts, and driving the record state machine. All
// multi-write effects are delegated to the store as single atomic units.
package review

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/truburn/claim-ledger/internal/adapter"
	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/logger"
	"github.com/truburn/claim-ledger/internal/resolution"
	"github.com/truburn/claim-ledger/internal/store"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

const (
	// MinReasonLength is the minimum number of characters in a review request reason
	MinReasonLength = 200

	// conflictRetryInterval is the pause before retrying a transiently
	// conflicting finalize during a sweep
	conflictRetryInterval = 50 * time.Millisecond
)

// Config holds the engine's tunables. Values come from configuration, not from
// constants buried in the engine.
type Config struct {
	// ReviewWindow is how long a review request stays open before it settles
	ReviewWindow time.Duration
	// ReviewVPCost is the number of verification points charged when a review
	// request is opened
	ReviewVPCost int
	// InitialVPGrant is the number of verification points granted at registration
	InitialVPGrant int
}

// Service is the review lifecycle manager
type Service struct {
	store store.Store
	clock adapter.Clock
	cfg   Config
}

// NewService creates a new review lifecycle manager
func NewService(st store.Store, clock adapter.Clock, cfg Config) *Service {
	return &Service{store: st, clock: clock, cfg: cfg}
}

// RegisterUser creates a user with the configured initial VP grant. The grant
// is written to the ledger in the same atomic unit as the user row.
func (s *Service) RegisterUser(ctx context.Context, displayName, walletAddress string) (*schema.User, error) {
	if strings.TrimSpace(displayName) == "" {
		return nil, fmt.Errorf("%w: display name is required", domain.ErrValidation)
	}
	if strings.TrimSpace(walletAddress) == "" {
		return nil, fmt.Errorf("%w: wallet address is required", domain.ErrValidation)
	}

	return s.store.CreateUser(ctx, store.CreateUserInput{
		DisplayName:   strings.TrimSpace(displayName),
		WalletAddress: walletAddress,
		InitialVP:     s.cfg.InitialVPGrant,
		Now:           s.clock.Now(),
	})
}

// CreateRecordParams holds the fields for submitting a claim
type CreateRecordParams struct {
	Title             string
	Body              string
	EvidenceURL       *string
	TimeOccurredStart time.Time
	TimeOccurredEnd   time.Time
	CreatedBy         *uuid.UUID
}

// CreateRecord creates a record in the live state. The resolution level and
// multiplier are computed once here, from the occurrence window width, and
// never recomputed.
func (s *Service) CreateRecord(ctx context.Context, params CreateRecordParams) (*schema.Record, error) {
	if strings.TrimSpace(params.Title) == "" {
		return nil, fmt.Errorf("%w: title is required", domain.ErrValidation)
	}
	if strings.TrimSpace(params.Body) == "" {
		return nil, fmt.Errorf("%w: body is required", domain.ErrValidation)
	}
	if !params.TimeOccurredEnd.After(params.TimeOccurredStart) {
		return nil, fmt.Errorf("%w: occurrence window end must be after start", domain.ErrValidation)
	}

	level := resolution.ComputeLevel(params.TimeOccurredStart, params.TimeOccurredEnd)

	return s.store.CreateRecord(ctx, store.CreateRecordInput{
		Title:                strings.TrimSpace(params.Title),
		Body:                 params.Body,
		EvidenceURL:          params.EvidenceURL,
		TimeOccurredStart:    params.TimeOccurredStart,
		TimeOccurredEnd:      params.TimeOccurredEnd,
		ResolutionLevel:      level,
		ResolutionMultiplier: resolution.MultiplierForLevel(level),
		CreatedBy:            params.CreatedBy,
		Now:                  s.clock.Now(),
	})
}

// GetRecord retrieves a record by id
func (s *Service) GetRecord(ctx context.Context, recordID uuid.UUID) (*schema.Record, error) {
	return s.store.GetRecord(ctx, recordID)
}

// CreateReviewRequest opens a review request against a live record. The
// requester is charged the configured VP cost and the record transitions to
// under_review, all in one atomic unit. The balance gate (strictly positive)
// runs inside the same store transaction as the debit, so two concurrent
// creations cannot both spend a single remaining point.
func (s *Service) CreateReviewRequest(ctx context.Context, recordID, requesterID uuid.UUID, reason, evidenceURL string, isCounterEvidence bool) (*schema.ReviewRequest, error) {
	if utf8.RuneCountInString(strings.TrimSpace(reason)) < MinReasonLength {
		return nil, fmt.Errorf("%w: reason must be at least %d characters", domain.ErrValidation, MinReasonLength)
	}
	if strings.TrimSpace(evidenceURL) == "" {
		return nil, fmt.Errorf("%w: evidence URL is required", domain.ErrValidation)
	}
	if s.cfg.ReviewVPCost < 1 {
		return nil, fmt.Errorf("%w: review VP cost must be positive, got %d", domain.ErrValidation, s.cfg.ReviewVPCost)
	}

	now := s.clock.Now()
	return s.store.CreateReviewRequest(ctx, store.CreateReviewRequestInput{
		RecordID:          recordID,
		RequesterID:       requesterID,
		Reason:            reason,
		EvidenceURL:       evidenceURL,
		IsCounterEvidence: isCounterEvidence,
		VPCost:            s.cfg.ReviewVPCost,
		ExpiresAt:         now.Add(s.cfg.ReviewWindow),
		Now:               now,
	})
}

// Finalize settles a review request into its verdict and drives the record
// transition. The verdict is entirely decided by the counter-evidence flag set
// at creation; no adjudication happens here, and no VP moves (the spend
// already happened at creation). Finalizing twice returns
// domain.ErrAlreadyFinalized and performs zero writes.
func (s *Service) Finalize(ctx context.Context, requestID uuid.UUID, now time.Time) (domain.Verdict, error) {
	request, err := s.store.GetReviewRequest(ctx, requestID)
	if err != nil {
		return "", err
	}
	if request.Status != domain.ReviewStatusOpen {
		return "", domain.ErrAlreadyFinalized
	}

	verdict := domain.VerdictFor(request.IsCounterEvidence)
	if err := s.store.FinalizeReviewRequest(ctx, requestID, verdict, now); err != nil {
		return "", err
	}
	return verdict, nil
}

// SweepExpired finalizes every open review request whose expiry has passed,
// oldest first, and returns the number settled. One request's failure never
// aborts the batch: a transient conflict is retried once, then logged and
// skipped. Running the sweep again with nothing newly expired returns 0 and
// mutates nothing. Both the background sweeper and opportunistic read-path
// sweeps call this same implementation.
func (s *Service) SweepExpired(ctx context.Context) (int, error) {
	now := s.clock.Now()

	expired, err := s.store.ListExpiredOpenReviewRequests(ctx, now)
	if err != nil {
		return 0, fmt.Errorf("failed to list expired review requests: %w", err)
	}

	finalized := 0
	for _, request := range expired {
		if err := s.finalizeWithRetry(ctx, request.ID, now); err != nil {
			if errors.Is(err, domain.ErrAlreadyFinalized) {
				// Another sweep settled it between the listing and the
				// finalize; nothing to do.
				continue
			}
			logger.WarnCtx(ctx, "failed to finalize expired review request",
				zap.String("review_request_id", request.ID.String()),
				zap.Error(err),
			)
			continue
		}
		finalized++
	}

	return finalized, nil
}

// finalizeWithRetry finalizes one request, retrying once on a transient
// conflict
func (s *Service) finalizeWithRetry(ctx context.Context, requestID uuid.UUID, now time.Time) error {
	operation := func() error {
		_, err := s.Finalize(ctx, requestID, now)
		if err != nil && !errors.Is(err, domain.ErrConflict) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(
		backoff.WithMaxRetries(backoff.NewConstantBackOff(conflictRetryInterval), 1),
		ctx,
	)
	return backoff.Retry(operation, policy)
}

// FeedBucket names a listing of records grouped by lifecycle stage
type FeedBucket string

const (
	// FeedBucketLive lists records awaiting challenge
	FeedBucketLive FeedBucket = "live"
	// FeedBucketInvestigating lists records with an open review request
	FeedBucketInvestigating FeedBucket = "investigating"
	// FeedBucketArchive lists settled records
	FeedBucketArchive FeedBucket = "archive"
)

// feedStatuses maps a bucket to the record statuses it lists
func feedStatuses(bucket FeedBucket) ([]domain.RecordStatus, bool) {
	switch bucket {
	case FeedBucketLive:
		return []domain.RecordStatus{domain.RecordStatusLive}, true
	case FeedBucketInvestigating:
		return []domain.RecordStatus{domain.RecordStatusUnderReview}, true
	case FeedBucketArchive:
		return []domain.RecordStatus{domain.RecordStatusVerified, domain.RecordStatusFalsified}, true
	}
	return nil, false
}

// ListFeed returns the records in a feed bucket, newest first. Reads settle
// past-due reviews first so listings never show stale under_review records.
func (s *Service) ListFeed(ctx context.Context, bucket FeedBucket) ([]*schema.Record, error) {
	statuses, ok := feedStatuses(bucket)
	if !ok {
		return nil, fmt.Errorf("%w: unknown feed bucket %q", domain.ErrValidation, bucket)
	}

	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, err
	}

	return s.store.ListRecordsByStatus(ctx, statuses)
}

// RecordDetail returns a record and its review requests, newest request first.
// Like the feed, it settles past-due reviews first.
func (s *Service) RecordDetail(ctx context.Context, recordID uuid.UUID) (*schema.Record, []*schema.ReviewRequest, error) {
	if _, err := s.SweepExpired(ctx); err != nil {
		return nil, nil, err
	}

	record, err := s.store.GetRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}

	requests, err := s.store.ListReviewRequestsByRecord(ctx, recordID)
	if err != nil {
		return nil, nil, err
	}

	return record, requests, nil
}

// ResolutionPreview describes the window, level and multiplier a claim would
// get for a given center timestamp and duration
type ResolutionPreview struct {
	Start      time.Time
	End        time.Time
	Level      int
	Multiplier float64
}

// PreviewResolution computes the resolution a claim would score for an
// occurrence window centered on the given timestamp. Duration must be a
// positive number of hours.
func (s *Service) PreviewResolution(center time.Time, hours float64) (ResolutionPreview, error) {
	if hours <= 0 {
		return ResolutionPreview{}, fmt.Errorf("%w: duration must be positive, got %v", domain.ErrValidation, hours)
	}

	start, end := resolution.Window(center, hours)
	level := resolution.ComputeLevel(start, end)
	return ResolutionPreview{
		Start:      start,
		End:        end,
		Level:      level,
		Multiplier: resolution.MultiplierForLevel(level),
	}, nil
}
