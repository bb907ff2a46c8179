package schema

import (
	"time"

	"github.com/google/uuid"

	"github.com/truburn/claim-ledger/internal/domain"
)

// Record represents the records table - a timestamped factual claim with an
// occurrence window. The resolution level and multiplier are derived from the
// window width once at creation and never recomputed. The status field is
// mutated only through review settlement.
type Record struct {
	// ID is the engine-generated identifier
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	// Title is the claim's headline
	Title string `gorm:"column:title;not null;type:varchar(200)"`
	// Body is the claim's full text
	Body string `gorm:"column:body;not null;type:text"`
	// EvidenceURL optionally points at supporting evidence
	EvidenceURL *string `gorm:"column:evidence_url;type:varchar(500)"`
	// TimeOccurredStart is the inclusive start of the occurrence window
	TimeOccurredStart time.Time `gorm:"column:time_occurred_start;not null;type:timestamptz"`
	// TimeOccurredEnd is the exclusive end of the occurrence window; always after the start
	TimeOccurredEnd time.Time `gorm:"column:time_occurred_end;not null;type:timestamptz"`
	// ResolutionLevel is the precision score (1-5) of the occurrence window
	ResolutionLevel int `gorm:"column:resolution_level;not null;default:1"`
	// ResolutionMultiplier is the reward scalar (1.0-2.5) for the precision score
	ResolutionMultiplier float64 `gorm:"column:resolution_multiplier;not null;default:1.0"`
	// Status is the record's lifecycle state
	Status domain.RecordStatus `gorm:"column:status;not null;default:live;type:varchar(20);index"`
	// CreatedBy references the creator; nil once the creator is deleted
	CreatedBy *uuid.UUID `gorm:"column:created_by;type:uuid"`
	// CreatedAt is the timestamp when the record was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// UpdatedAt is the timestamp when the record was last updated
	UpdatedAt time.Time `gorm:"column:updated_at;not null;default:now();type:timestamptz"`

	// Associations
	ReviewRequests []ReviewRequest `gorm:"foreignKey:RecordID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the Record model
func (Record) TableName() string {
	return "records"
}
