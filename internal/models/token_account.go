package models

import "time"

// TokenAccount is a custody balance for one mint. Owner is the authority allowed to debit it.
type TokenAccount struct {
	ID             uint      `gorm:"primaryKey;autoIncrement" json:"id"`
	OwnerAddress   string    `gorm:"size:44;not null;index" json:"owner_address"`
	Mint           string    `gorm:"size:44;not null" json:"mint"`
	AccountAddress string    `gorm:"size:44;uniqueIndex;not null" json:"account_address"`
	Balance        uint64    `gorm:"type:numeric(20,0);not null;default:0" json:"balance"`
	CreatedAt      time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (TokenAccount) TableName() string {
	return "token_account"
}
