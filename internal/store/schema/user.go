package schema

import (
	"time"

	"github.com/google/uuid"
)

// User represents the users table - the owner of records, review requests and
// VP transactions. VPBalance is a cached running total; the authoritative
// value is the sum of the user's transaction deltas and both must always
// agree.
type User struct {
	// ID is the engine-generated identifier
	ID uuid.UUID `gorm:"column:id;primaryKey;type:uuid"`
	// DisplayName is the user's visible name
	DisplayName string `gorm:"column:display_name;not null;type:varchar(120)"`
	// WalletAddress is the user's unique wallet address
	WalletAddress string `gorm:"column:wallet_address;not null;uniqueIndex;type:varchar(120)"`
	// VPBalance is the cached verification point balance
	VPBalance int `gorm:"column:vp_balance;not null;default:0"`
	// CreatedAt is the timestamp when the user was created
	CreatedAt time.Time `gorm:"column:created_at;not null;default:now();type:timestamptz"`
	// LastLoginAt is the timestamp of the user's most recent login
	LastLoginAt *time.Time `gorm:"column:last_login_at;type:timestamptz"`

	// Associations
	Records        []Record        `gorm:"foreignKey:CreatedBy;constraint:OnDelete:SET NULL"`
	ReviewRequests []ReviewRequest `gorm:"foreignKey:RequesterID;constraint:OnDelete:SET NULL"`
	VPTransactions []VPTransaction `gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
}

// TableName specifies the table name for the User model
func (User) TableName() string {
	return "users"
}
