package models

import "time"

// VestingPool is a company-scoped container locking a treasury of tokens for vesting.
type VestingPool struct {
	ID            uint      `gorm:"primarykey" json:"id"`
	Address       string    `gorm:"size:44;uniqueIndex;not null" json:"address"`
	CompanyName   string    `gorm:"size:32;uniqueIndex;not null" json:"company_name"`
	Owner         string    `gorm:"size:44;not null" json:"owner"`
	Asset         string    `gorm:"size:44;not null" json:"asset"`
	AssetDecimals uint8     `gorm:"default:0" json:"asset_decimals"`
	Treasury      string    `gorm:"size:44;uniqueIndex;not null" json:"treasury"`
	Bump          uint8     `gorm:"not null" json:"bump"`
	TreasuryBump  uint8     `gorm:"not null" json:"treasury_bump"`
	CreatedAt     time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (VestingPool) TableName() string {
	return "vesting_pool"
}

// PoolFundingRecord records a deposit into a pool treasury
type PoolFundingRecord struct {
	ID          uint      `gorm:"primarykey" json:"id"`
	VestingPool string    `gorm:"size:44;index;not null" json:"vesting_pool"`
	Funder      string    `gorm:"size:44;not null" json:"funder"`
	Amount      uint64    `gorm:"type:numeric(20,0);not null" json:"amount"`
	CreatedAt   time.Time `json:"created_at" gorm:"autoCreateTime"`
}

func (PoolFundingRecord) TableName() string {
	return "pool_funding_record"
}
