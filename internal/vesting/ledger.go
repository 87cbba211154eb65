package vesting

import (
	"context"

	"tokenvesting/internal/models"
)

// Ledger persists pools and grants. Atomic runs fn as one all-or-nothing unit; grants
// fetched with Tx.LockGrant stay locked until fn returns.
type Ledger interface {
	Atomic(ctx context.Context, fn func(tx Tx) error) error

	Pool(ctx context.Context, companyName string) (*models.VestingPool, error)
	Pools(ctx context.Context) ([]models.VestingPool, error)
	Grant(ctx context.Context, beneficiary, poolAddress string) (*models.BeneficiaryGrant, error)
	Grants(ctx context.Context, poolAddress string) ([]models.BeneficiaryGrant, error)
	Balance(ctx context.Context, account string) (uint64, error)
}

// Tx is the record view inside a Ledger.Atomic call.
type Tx interface {
	// CreatePool fails with ErrDuplicatePool when the company name or address is taken.
	CreatePool(p *models.VestingPool) error
	PoolByName(companyName string) (*models.VestingPool, error)
	// CreateGrant fails with ErrDuplicateGrant when the (beneficiary, pool) pair exists.
	CreateGrant(g *models.BeneficiaryGrant) error
	LockGrant(beneficiary, poolAddress string) (*models.BeneficiaryGrant, error)
	// UpdateClaimed moves g.TotalClaimed to total, failing with ErrConflict if the stored
	// value no longer equals g.TotalClaimed.
	UpdateClaimed(g *models.BeneficiaryGrant, total uint64) error
	RecordClaim(r *models.ClaimRecord) error
	RecordFunding(r *models.PoolFundingRecord) error
	// Tokens returns the token transfer collaborator joined to this unit of work.
	Tokens() TokenTransfer
}

// TokenTransfer moves custody balances.
type TokenTransfer interface {
	// OpenAccount creates an empty account; it fails if the address exists.
	OpenAccount(address, owner, mint string) error
	// EnsureAccount creates the account if missing and checks owner and mint otherwise.
	EnsureAccount(address, owner, mint string) error
	Deposit(address string, amount uint64) error
	Transfer(from, to string, amount uint64, auth TransferAuthorization) error
}

// Addresser derives the deterministic addresses records live at.
type Addresser interface {
	CheckIdentity(identity string) error
	PoolAddress(companyName string) (string, uint8, error)
	TreasuryAddress(companyName string) (string, uint8, error)
	GrantAddress(beneficiary, poolAddress string) (string, uint8, error)
	TokenAccount(owner, mint string) (string, error)
}
