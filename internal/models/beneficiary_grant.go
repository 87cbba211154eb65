package models

import "time"

// BeneficiaryGrant is one beneficiary's vesting schedule against a pool.
// TotalClaimed is the only field that changes after creation.
type BeneficiaryGrant struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	Address      string    `gorm:"size:44;uniqueIndex;not null" json:"address"`
	Beneficiary  string    `gorm:"size:44;not null;uniqueIndex:idx_grant_beneficiary_pool" json:"beneficiary"`
	VestingPool  string    `gorm:"size:44;not null;uniqueIndex:idx_grant_beneficiary_pool;index" json:"vesting_pool"`
	StartTime    int64     `gorm:"not null" json:"start_time"`
	EndTime      int64     `gorm:"not null" json:"end_time"`
	CliffTime    int64     `gorm:"not null" json:"cliff_time"`
	TotalAmount  uint64    `gorm:"type:numeric(20,0);not null" json:"total_amount"`
	TotalClaimed uint64    `gorm:"type:numeric(20,0);not null;default:0;check:chk_claimed_within_total,total_claimed <= total_amount" json:"total_claimed"`
	Bump         uint8     `gorm:"not null" json:"bump"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (BeneficiaryGrant) TableName() string {
	return "beneficiary_grant"
}

// ClaimRecord is the audit row written with every successful claim
type ClaimRecord struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	EventID      string    `gorm:"size:36;uniqueIndex;not null" json:"event_id"`
	GrantAddress string    `gorm:"size:44;index;not null" json:"grant_address"`
	VestingPool  string    `gorm:"size:44;index;not null" json:"vesting_pool"`
	Beneficiary  string    `gorm:"size:44;not null" json:"beneficiary"`
	Destination  string    `gorm:"size:44;not null" json:"destination"`
	Amount       uint64    `gorm:"type:numeric(20,0);not null" json:"amount"`
	VestedAmount uint64    `gorm:"type:numeric(20,0);not null" json:"vested_amount"`
	TotalClaimed uint64    `gorm:"type:numeric(20,0);not null" json:"total_claimed"`
	ClaimedAt    int64     `gorm:"not null" json:"claimed_at"`
	StatApplied  bool      `gorm:"default:false" json:"stat_applied"`
	CreatedAt    time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (ClaimRecord) TableName() string {
	return "claim_record"
}
