package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

// memoryStore is an in-process Store implementation used in tests and local
// development. A single mutex serializes every operation, which is the
// in-memory equivalent of the row-level locking the Postgres store relies on
// for the gate-then-debit sequence.
type memoryStore struct {
	mu sync.Mutex

	users          map[uuid.UUID]*schema.User
	records        map[uuid.UUID]*schema.Record
	reviewRequests map[uuid.UUID]*schema.ReviewRequest
	vpTransactions []*schema.VPTransaction
}

// NewMemoryStore creates a new in-memory store instance
func NewMemoryStore() Store {
	return &memoryStore{
		users:          make(map[uuid.UUID]*schema.User),
		records:        make(map[uuid.UUID]*schema.Record),
		reviewRequests: make(map[uuid.UUID]*schema.ReviewRequest),
	}
}

func (s *memoryStore) CreateUser(_ context.Context, input CreateUserInput) (*schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.WalletAddress == input.WalletAddress {
			return nil, fmt.Errorf("%w: wallet address already registered", domain.ErrValidation)
		}
	}

	user := &schema.User{
		ID:            uuid.New(),
		DisplayName:   input.DisplayName,
		WalletAddress: input.WalletAddress,
		VPBalance:     input.InitialVP,
		CreatedAt:     input.Now,
	}
	s.users[user.ID] = user

	if input.InitialVP > 0 {
		s.vpTransactions = append(s.vpTransactions, &schema.VPTransaction{
			ID:        uuid.New(),
			UserID:    user.ID,
			Delta:     input.InitialVP,
			Note:      "Initial VP grant",
			CreatedAt: input.Now,
		})
	}

	out := *user
	return &out, nil
}

func (s *memoryStore) GetUser(_ context.Context, userID uuid.UUID) (*schema.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	out := *user
	return &out, nil
}

func (s *memoryStore) CreateRecord(_ context.Context, input CreateRecordInput) (*schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record := &schema.Record{
		ID:                   uuid.New(),
		Title:                input.Title,
		Body:                 input.Body,
		EvidenceURL:          input.EvidenceURL,
		TimeOccurredStart:    input.TimeOccurredStart,
		TimeOccurredEnd:      input.TimeOccurredEnd,
		ResolutionLevel:      input.ResolutionLevel,
		ResolutionMultiplier: input.ResolutionMultiplier,
		Status:               domain.RecordStatusLive,
		CreatedBy:            input.CreatedBy,
		CreatedAt:            input.Now,
		UpdatedAt:            input.Now,
	}
	s.records[record.ID] = record

	out := *record
	return &out, nil
}

func (s *memoryStore) GetRecord(_ context.Context, recordID uuid.UUID) (*schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	record, ok := s.records[recordID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	out := *record
	return &out, nil
}

func (s *memoryStore) ListRecordsByStatus(_ context.Context, statuses []domain.RecordStatus) ([]*schema.Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	wanted := make(map[domain.RecordStatus]struct{}, len(statuses))
	for _, status := range statuses {
		wanted[status] = struct{}{}
	}

	records := make([]*schema.Record, 0)
	for _, record := range s.records {
		if _, ok := wanted[record.Status]; ok {
			out := *record
			records = append(records, &out)
		}
	}
	sort.Slice(records, func(i, j int) bool {
		return records[i].CreatedAt.After(records[j].CreatedAt)
	})
	return records, nil
}

func (s *memoryStore) CreateReviewRequest(_ context.Context, input CreateReviewRequestInput) (*schema.ReviewRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[input.RequesterID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	record, ok := s.records[input.RecordID]
	if !ok {
		return nil, domain.ErrRecordNotFound
	}
	if record.Status != domain.RecordStatusLive {
		return nil, domain.ErrRecordNotLive
	}
	if user.VPBalance <= 0 {
		return nil, domain.ErrInsufficientBalance
	}

	s.vpTransactions = append(s.vpTransactions, &schema.VPTransaction{
		ID:        uuid.New(),
		UserID:    user.ID,
		RecordID:  &record.ID,
		Delta:     -input.VPCost,
		Note:      "Review Request consumption",
		CreatedAt: input.Now,
	})
	user.VPBalance -= input.VPCost

	requesterID := input.RequesterID
	request := &schema.ReviewRequest{
		ID:                uuid.New(),
		RecordID:          record.ID,
		RequesterID:       &requesterID,
		Reason:            input.Reason,
		EvidenceURL:       input.EvidenceURL,
		IsCounterEvidence: input.IsCounterEvidence,
		Status:            domain.ReviewStatusOpen,
		ExpiresAt:         input.ExpiresAt,
		VPCost:            input.VPCost,
		CreatedAt:         input.Now,
	}
	s.reviewRequests[request.ID] = request

	record.Status = domain.RecordStatusUnderReview
	record.UpdatedAt = input.Now

	out := *request
	return &out, nil
}

func (s *memoryStore) GetReviewRequest(_ context.Context, requestID uuid.UUID) (*schema.ReviewRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.reviewRequests[requestID]
	if !ok {
		return nil, domain.ErrReviewRequestNotFound
	}
	out := *request
	return &out, nil
}

func (s *memoryStore) ListReviewRequestsByRecord(_ context.Context, recordID uuid.UUID) ([]*schema.ReviewRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]*schema.ReviewRequest, 0)
	for _, request := range s.reviewRequests {
		if request.RecordID == recordID {
			out := *request
			requests = append(requests, &out)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].CreatedAt.After(requests[j].CreatedAt)
	})
	return requests, nil
}

func (s *memoryStore) ListExpiredOpenReviewRequests(_ context.Context, now time.Time) ([]*schema.ReviewRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	requests := make([]*schema.ReviewRequest, 0)
	for _, request := range s.reviewRequests {
		if request.Status == domain.ReviewStatusOpen && !request.ExpiresAt.After(now) {
			out := *request
			requests = append(requests, &out)
		}
	}
	sort.Slice(requests, func(i, j int) bool {
		return requests[i].ExpiresAt.Before(requests[j].ExpiresAt)
	})
	return requests, nil
}

func (s *memoryStore) FinalizeReviewRequest(_ context.Context, requestID uuid.UUID, verdict domain.Verdict, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	request, ok := s.reviewRequests[requestID]
	if !ok {
		return domain.ErrReviewRequestNotFound
	}
	if request.Status != domain.ReviewStatusOpen {
		return domain.ErrAlreadyFinalized
	}
	record, ok := s.records[request.RecordID]
	if !ok {
		return domain.ErrRecordNotFound
	}

	next, err := domain.NextRecordStatus(record.Status, verdict)
	if err != nil {
		return err
	}

	v := verdict
	finalizedAt := now
	request.Status = domain.ReviewStatusFinalized
	request.Verdict = &v
	request.FinalizedAt = &finalizedAt

	record.Status = next
	record.UpdatedAt = now

	return nil
}

func (s *memoryStore) CreditVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error) {
	return s.applyVPEntry(input, input.Amount)
}

func (s *memoryStore) DebitVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error) {
	return s.applyVPEntry(input, -input.Amount)
}

func (s *memoryStore) applyVPEntry(input VPEntryInput, delta int) (*schema.VPTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[input.UserID]
	if !ok {
		return nil, domain.ErrUserNotFound
	}

	entry := &schema.VPTransaction{
		ID:        uuid.New(),
		UserID:    user.ID,
		RecordID:  input.RecordID,
		Delta:     delta,
		Note:      input.Note,
		CreatedAt: input.Now,
	}
	s.vpTransactions = append(s.vpTransactions, entry)
	user.VPBalance += delta

	out := *entry
	return &out, nil
}

func (s *memoryStore) VPBalance(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	user, ok := s.users[userID]
	if !ok {
		return 0, domain.ErrUserNotFound
	}
	return user.VPBalance, nil
}

func (s *memoryStore) SumVPDeltas(_ context.Context, userID uuid.UUID) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sum := 0
	for _, entry := range s.vpTransactions {
		if entry.UserID == userID {
			sum += entry.Delta
		}
	}
	return sum, nil
}
