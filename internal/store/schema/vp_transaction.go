package schema

import (
	"time"

	"github.com/google/uuid"
)

// VPTransaction represents the vp_transactions table - an immutable ledger
// entry. Entries are append-only; they are never updated or deleted, and the
// sum of a user's deltas always equals the user's cached balance.
type VPTransaction struct {
	// ID is the engine-generated identifier
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	// UserID references the user whose balance the delta applies to
	UserID uuid.UUID `gorm:"column:user_id;not null;type:uuid;index"`
	// RecordID optionally references the record that gave rise to the entry
	RecordID *uuid.UUID `gorm:"column:record_id;type:uuid"`
	// Delta is the signed balance change
	Delta int `gorm:"column:delta;not null"`
	// Note is the human-readable reason for the entry
	Note string `gorm:"column:note;not null;type:varchar(200)"`
	// CreatedAt is the timestamp when the entry was written
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
}

// TableName specifies the table name for the VPTransaction model
func (VPTransaction) TableName() string {
	return "vp_transactions"
}
