package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/truburn/claim-ledger/internal/domain"
	"github.com/truburn/claim-ledger/internal/store/schema"
)

type pgStore struct {
	db *gorm.DB
}

// NewPGStore creates a new PostgreSQL store instance
func NewPGStore(db *gorm.DB) Store {
	return &pgStore{db: db}
}

// ConfigureConnectionPool configures the connection pool settings for a GORM
// database connection. Zero values fall back to reasonable defaults.
func ConfigureConnectionPool(db *gorm.DB, maxOpenConns, maxIdleConns int, connMaxLifetime, connMaxIdleTime time.Duration) error {
	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("failed to get underlying sql.DB: %w", err)
	}

	if maxOpenConns == 0 {
		maxOpenConns = 20
	}
	if maxIdleConns == 0 {
		maxIdleConns = 5
	}
	if maxIdleConns > maxOpenConns {
		maxIdleConns = maxOpenConns
	}
	if connMaxLifetime == 0 {
		connMaxLifetime = 5 * time.Minute
	}
	if connMaxIdleTime == 0 {
		connMaxIdleTime = 10 * time.Minute
	}

	sqlDB.SetMaxOpenConns(maxOpenConns)
	sqlDB.SetMaxIdleConns(maxIdleConns)
	sqlDB.SetConnMaxLifetime(connMaxLifetime)
	sqlDB.SetConnMaxIdleTime(connMaxIdleTime)

	return nil
}

// Migrate creates or updates the engine's tables
func Migrate(db *gorm.DB) error {
	return db.AutoMigrate(
		&schema.User{},
		&schema.Record{},
		&schema.ReviewRequest{},
		&schema.VPTransaction{},
	)
}

// CreateUser creates a user and, when InitialVP > 0, the matching grant
// transaction in the same atomic unit
func (s *pgStore) CreateUser(ctx context.Context, input CreateUserInput) (*schema.User, error) {
	user := schema.User{
		ID:            uuid.New(),
		DisplayName:   input.DisplayName,
		WalletAddress: input.WalletAddress,
		VPBalance:     input.InitialVP,
		CreatedAt:     input.Now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&user).Error; err != nil {
			// Unique violations are translated by gorm when the connection is
			// opened with TranslateError
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return fmt.Errorf("%w: wallet address already registered", domain.ErrValidation)
			}
			return fmt.Errorf("failed to create user: %w", err)
		}

		if input.InitialVP > 0 {
			grant := schema.VPTransaction{
				ID:        uuid.New(),
				UserID:    user.ID,
				Delta:     input.InitialVP,
				Note:      "Initial VP grant",
				CreatedAt: input.Now,
			}
			if err := tx.Create(&grant).Error; err != nil {
				return fmt.Errorf("failed to create initial VP grant: %w", err)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &user, nil
}

// GetUser retrieves a user by id
func (s *pgStore) GetUser(ctx context.Context, userID uuid.UUID) (*schema.User, error) {
	var user schema.User
	err := s.db.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// CreateRecord creates a record in the live state
func (s *pgStore) CreateRecord(ctx context.Context, input CreateRecordInput) (*schema.Record, error) {
	record := schema.Record{
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

	if err := s.db.WithContext(ctx).Create(&record).Error; err != nil {
		return nil, fmt.Errorf("failed to create record: %w", err)
	}

	return &record, nil
}

// GetRecord retrieves a record by id
func (s *pgStore) GetRecord(ctx context.Context, recordID uuid.UUID) (*schema.Record, error) {
	var record schema.Record
	err := s.db.WithContext(ctx).Where("id = ?", recordID).First(&record).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrRecordNotFound
		}
		return nil, fmt.Errorf("failed to get record: %w", err)
	}
	return &record, nil
}

// ListRecordsByStatus retrieves records in any of the given statuses, newest first
func (s *pgStore) ListRecordsByStatus(ctx context.Context, statuses []domain.RecordStatus) ([]*schema.Record, error) {
	if len(statuses) == 0 {
		return []*schema.Record{}, nil
	}

	var records []*schema.Record
	err := s.db.WithContext(ctx).
		Where("status IN ?", statuses).
		Order("created_at DESC").
		Find(&records).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list records by status: %w", err)
	}

	return records, nil
}

// CreateReviewRequest atomically debits the requester, opens the request and
// transitions the record to under_review
func (s *pgStore) CreateReviewRequest(ctx context.Context, input CreateReviewRequestInput) (*schema.ReviewRequest, error) {
	request := schema.ReviewRequest{
		ID:                uuid.New(),
		RecordID:          input.RecordID,
		RequesterID:       &input.RequesterID,
		Reason:            input.Reason,
		EvidenceURL:       input.EvidenceURL,
		IsCounterEvidence: input.IsCounterEvidence,
		Status:            domain.ReviewStatusOpen,
		ExpiresAt:         input.ExpiresAt,
		VPCost:            input.VPCost,
		CreatedAt:         input.Now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Lock the requester's row for the whole gate-then-debit sequence so
		// two concurrent creations cannot both observe a positive balance.
		var user schema.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", input.RequesterID).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		var record schema.Record
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", input.RecordID).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRecordNotFound
			}
			return fmt.Errorf("failed to lock record: %w", err)
		}

		if record.Status != domain.RecordStatusLive {
			return domain.ErrRecordNotLive
		}

		if user.VPBalance <= 0 {
			return domain.ErrInsufficientBalance
		}

		entry := schema.VPTransaction{
			ID:        uuid.New(),
			UserID:    user.ID,
			RecordID:  &input.RecordID,
			Delta:     -input.VPCost,
			Note:      "Review Request consumption",
			CreatedAt: input.Now,
		}
		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create VP transaction: %w", err)
		}

		err = tx.Model(&schema.User{}).
			Where("id = ?", user.ID).
			Update("vp_balance", gorm.Expr("vp_balance - ?", input.VPCost)).Error
		if err != nil {
			return fmt.Errorf("failed to debit VP balance: %w", err)
		}

		if err := tx.Create(&request).Error; err != nil {
			return fmt.Errorf("failed to create review request: %w", err)
		}

		// Conditional on the live status even under the lock; zero affected
		// rows means another transaction transitioned the record first.
		result := tx.Model(&schema.Record{}).
			Where("id = ? AND status = ?", record.ID, domain.RecordStatusLive).
			Updates(map[string]interface{}{
				"status":     domain.RecordStatusUnderReview,
				"updated_at": input.Now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to transition record: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrConflict
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &request, nil
}

// GetReviewRequest retrieves a review request by id
func (s *pgStore) GetReviewRequest(ctx context.Context, requestID uuid.UUID) (*schema.ReviewRequest, error) {
	var request schema.ReviewRequest
	err := s.db.WithContext(ctx).Where("id = ?", requestID).First(&request).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, domain.ErrReviewRequestNotFound
		}
		return nil, fmt.Errorf("failed to get review request: %w", err)
	}
	return &request, nil
}

// ListReviewRequestsByRecord retrieves a record's review requests, newest first
func (s *pgStore) ListReviewRequestsByRecord(ctx context.Context, recordID uuid.UUID) ([]*schema.ReviewRequest, error) {
	var requests []*schema.ReviewRequest
	err := s.db.WithContext(ctx).
		Where("record_id = ?", recordID).
		Order("created_at DESC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list review requests: %w", err)
	}
	return requests, nil
}

// ListExpiredOpenReviewRequests retrieves open requests whose expiry has
// passed, oldest expiry first
func (s *pgStore) ListExpiredOpenReviewRequests(ctx context.Context, now time.Time) ([]*schema.ReviewRequest, error) {
	var requests []*schema.ReviewRequest
	err := s.db.WithContext(ctx).
		Where("status = ? AND expires_at <= ?", domain.ReviewStatusOpen, now).
		Order("expires_at ASC").
		Find(&requests).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list expired review requests: %w", err)
	}
	return requests, nil
}

// FinalizeReviewRequest atomically settles an open request into the given
// verdict and drives the record transition
func (s *pgStore) FinalizeReviewRequest(ctx context.Context, requestID uuid.UUID, verdict domain.Verdict, now time.Time) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var request schema.ReviewRequest
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", requestID).
			First(&request).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrReviewRequestNotFound
			}
			return fmt.Errorf("failed to lock review request: %w", err)
		}

		// The conditional update on status=open is the idempotence guard: a
		// request already finalized in another execution affects zero rows.
		result := tx.Model(&schema.ReviewRequest{}).
			Where("id = ? AND status = ?", requestID, domain.ReviewStatusOpen).
			Updates(map[string]interface{}{
				"status":       domain.ReviewStatusFinalized,
				"verdict":      verdict,
				"finalized_at": now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to finalize review request: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.ErrAlreadyFinalized
		}

		var record schema.Record
		err = tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", request.RecordID).
			First(&record).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrRecordNotFound
			}
			return fmt.Errorf("failed to lock record: %w", err)
		}

		next, err := domain.NextRecordStatus(record.Status, verdict)
		if err != nil {
			return fmt.Errorf("failed to resolve record transition: %w", err)
		}

		err = tx.Model(&schema.Record{}).
			Where("id = ?", record.ID).
			Updates(map[string]interface{}{
				"status":     next,
				"updated_at": now,
			}).Error
		if err != nil {
			return fmt.Errorf("failed to transition record: %w", err)
		}

		return nil
	})
}

// CreditVP writes a positive ledger entry and adjusts the cached balance
func (s *pgStore) CreditVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error) {
	return s.applyVPEntry(ctx, input, input.Amount)
}

// DebitVP writes a negative ledger entry and adjusts the cached balance
func (s *pgStore) DebitVP(ctx context.Context, input VPEntryInput) (*schema.VPTransaction, error) {
	return s.applyVPEntry(ctx, input, -input.Amount)
}

// applyVPEntry writes one ledger entry and the matching balance adjustment as
// a single atomic unit
func (s *pgStore) applyVPEntry(ctx context.Context, input VPEntryInput, delta int) (*schema.VPTransaction, error) {
	entry := schema.VPTransaction{
		ID:        uuid.New(),
		UserID:    input.UserID,
		RecordID:  input.RecordID,
		Delta:     delta,
		Note:      input.Note,
		CreatedAt: input.Now,
	}

	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var user schema.User
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id = ?", input.UserID).
			First(&user).Error
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return domain.ErrUserNotFound
			}
			return fmt.Errorf("failed to lock user: %w", err)
		}

		if err := tx.Create(&entry).Error; err != nil {
			return fmt.Errorf("failed to create VP transaction: %w", err)
		}

		err = tx.Model(&schema.User{}).
			Where("id = ?", user.ID).
			Update("vp_balance", gorm.Expr("vp_balance + ?", delta)).Error
		if err != nil {
			return fmt.Errorf("failed to adjust VP balance: %w", err)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return &entry, nil
}

// VPBalance returns the user's cached balance
func (s *pgStore) VPBalance(ctx context.Context, userID uuid.UUID) (int, error) {
	user, err := s.GetUser(ctx, userID)
	if err != nil {
		return 0, err
	}
	return user.VPBalance, nil
}

// SumVPDeltas recomputes the sum of the user's transaction deltas
func (s *pgStore) SumVPDeltas(ctx context.Context, userID uuid.UUID) (int, error) {
	var sum *int
	err := s.db.WithContext(ctx).
		Model(&schema.VPTransaction{}).
		Where("user_id = ?", userID).
		Select("SUM(delta)").
		Scan(&sum).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum VP deltas: %w", err)
	}
	if sum == nil {
		return 0, nil
	}
	return *sum, nil
}
