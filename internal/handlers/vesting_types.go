package handlers

import (
	"math/big"

	"github.com/shopspring/decimal"

	"tokenvesting/internal/models"
	"tokenvesting/internal/vesting"
)

// readable renders base units as a decimal string in whole tokens
func readable(amount uint64, decimals uint8) string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(amount), -int32(decimals)).String()
}

// VestingPoolResp 归属池响应结构体
type VestingPoolResp struct {
	models.VestingPool
	TreasuryBalance         uint64 `json:"treasury_balance"`
	TreasuryBalanceReadable string `json:"treasury_balance_readable"`
}

// GrantResp 归属计划响应结构体
type GrantResp struct {
	models.BeneficiaryGrant
	TotalAmountReadable  string         `json:"total_amount_readable"`
	TotalClaimedReadable string         `json:"total_claimed_readable"`
	Quote                *vesting.Quote `json:"quote,omitempty"`
	QuoteError           string         `json:"quote_error,omitempty"`
}

func newGrantResp(g *models.BeneficiaryGrant, decimals uint8) GrantResp {
	return GrantResp{
		BeneficiaryGrant:     *g,
		TotalAmountReadable:  readable(g.TotalAmount, decimals),
		TotalClaimedReadable: readable(g.TotalClaimed, decimals),
	}
}

// PreviewResp is the result of a claim preview
type PreviewResp struct {
	vesting.Quote
	At                int64  `json:"at"`
	VestedReadable    string `json:"vested_readable"`
	ClaimableReadable string `json:"claimable_readable"`
}

// ClaimResp is the result of a successful claim
type ClaimResp struct {
	EventID        string `json:"event_id"`
	Amount         uint64 `json:"amount"`
	AmountReadable string `json:"amount_readable"`
	Vested         uint64 `json:"vested"`
	TotalClaimed   uint64 `json:"total_claimed"`
	TotalAmount    uint64 `json:"total_amount"`
	Destination    string `json:"destination"`
	ClaimedAt      int64  `json:"claimed_at"`
}

// CreatePoolRequest represents the request body for creating a vesting pool
type CreatePoolRequest struct {
	CompanyName          string `json:"company_name" binding:"required"`
	Asset                string `json:"asset" binding:"required"`
	AssetDecimals        uint8  `json:"asset_decimals"`
	InitialFundingAmount uint64 `json:"initial_funding_amount"`
}

// FundPoolRequest represents the request body for depositing into a treasury
type FundPoolRequest struct {
	Amount uint64 `json:"amount"`
}

// CreateGrantRequest represents the request body for creating a grant
type CreateGrantRequest struct {
	Beneficiary string `json:"beneficiary" binding:"required"`
	StartTime   int64  `json:"start_time"`
	EndTime     int64  `json:"end_time"`
	CliffTime   int64  `json:"cliff_time"`
	TotalAmount uint64 `json:"total_amount"`
}

// ClaimRequest represents the optional request body of a claim
type ClaimRequest struct {
	Beneficiary string `json:"beneficiary"`
}
