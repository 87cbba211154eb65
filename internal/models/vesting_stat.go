package models

import "time"

// PoolStat aggregates settled claims per pool, maintained by the claim worker
type PoolStat struct {
	ID           uint      `gorm:"primarykey" json:"id"`
	VestingPool  string    `gorm:"size:44;uniqueIndex;not null" json:"vesting_pool"`
	ClaimCount   uint64    `gorm:"not null;default:0" json:"claim_count"`
	ClaimedTotal uint64    `gorm:"type:numeric(20,0);not null;default:0" json:"claimed_total"`
	LastClaimAt  int64     `gorm:"default:0" json:"last_claim_at"`
	LastEventID  string    `gorm:"size:36" json:"last_event_id"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"autoUpdateTime"`
}

func (PoolStat) TableName() string {
	return "pool_stat"
}

// PoolSnapshot 定时记录的池子快照
type PoolSnapshot struct {
	ID                 uint      `gorm:"primarykey" json:"id"`
	VestingPool        string    `gorm:"size:44;index;not null" json:"vesting_pool"`
	CompanyName        string    `gorm:"size:32;not null" json:"company_name"`
	GrantCount         int64     `gorm:"not null" json:"grant_count"`
	TotalAllocated     uint64    `gorm:"type:numeric(20,0);not null" json:"total_allocated"`
	TotalVested        uint64    `gorm:"type:numeric(20,0);not null" json:"total_vested"`
	TotalClaimed       uint64    `gorm:"type:numeric(20,0);not null" json:"total_claimed"`
	TreasuryBalance    uint64    `gorm:"type:numeric(20,0);not null" json:"treasury_balance"`
	CreatedAtByZeroSec time.Time `gorm:"index" json:"created_at_by_zero_sec"`
	CreatedAt          time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (PoolSnapshot) TableName() string {
	return "pool_snapshot"
}
