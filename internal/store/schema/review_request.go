package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/domain"
)

// ReviewRequest represents the review_requests table - a challenge against
// exactly one record. It is created open and mutated exactly once, on
// finalization. The verdict is non-nil iff the status is finalized.
type ReviewRequest struct {
	// ID is the engine-generated identifier
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	// RecordID references the challenged record; requests are cascade-deleted with it
	RecordID uuid.UUID `gorm:"column:record_id;not null;type:uuid;index"`
	// RequesterID references the challenging user; nil once the user is deleted
	RequesterID *uuid.UUID `gorm:"column:requester_id;type:uuid"`
	// Reason is the challenge rationale (minimum length enforced at creation)
	Reason string `gorm:"column:reason;not null;type:text"`
	// EvidenceURL points at the challenger's evidence
	EvidenceURL string `gorm:"column:evidence_url;not null;type:varchar(500)"`
	// IsCounterEvidence marks the challenge as contradicting the claim; it
	// predetermines the verdict at finalization
	IsCounterEvidence bool `gorm:"column:is_counter_evidence;not null;default:true"`
	// Status is the review request's lifecycle state
	Status domain.ReviewStatus `gorm:"column:status;not null;default:open;type:varchar(20);index:idx_review_requests_status_expires,priority:1"`
	// Verdict is the settled outcome; nil while the request is open
	Verdict *domain.Verdict `gorm:"column:verdict;type:varchar(20)"`
	// ExpiresAt is when the review window elapses and the request settles
	ExpiresAt time.Time `gorm:"column:expires_at;not null;type:timestamptz;index:idx_review_requests_status_expires,priority:2"`
	// FinalizedAt is when the request was settled; nil while open
	FinalizedAt *time.Time `gorm:"column:finalized_at;type:timestamptz"`
	// VPCost is the number of verification points charged at creation
	VPCost int `gorm:"column:vp_cost;not null;default:1"`
	// CreatedAt is the timestamp when the request was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the ReviewRequest model
func (ReviewRequest) TableName() string {
	return "review_requests"
}
