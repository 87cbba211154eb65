package vesting

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/models"
)

// MaxCompanyNameLen bounds the company name, which doubles as an address seed.
const MaxCompanyNameLen = 32

// CreatePoolRequest carries the inputs of CreatePool. Administrator is the
// authenticated caller.
type CreatePoolRequest struct {
	Administrator        string
	CompanyName          string
	Asset                string
	AssetDecimals        uint8
	InitialFundingAmount uint64
}

// PoolManager creates pools and their treasuries.
type PoolManager struct {
	ledger Ledger
	addr   Addresser
}

func NewPoolManager(ledger Ledger, addr Addresser) *PoolManager {
	return &PoolManager{ledger: ledger, addr: addr}
}

// CreatePool allocates a pool for a company together with its treasury account.
// InitialFundingAmount is accepted but no tokens are moved; use FundPool.
func (m *PoolManager) CreatePool(ctx context.Context, req CreatePoolRequest) (*models.VestingPool, error) {
	if err := checkCompanyName(req.CompanyName); err != nil {
		return nil, err
	}
	if err := m.addr.CheckIdentity(req.Administrator); err != nil {
		return nil, fmt.Errorf("administrator: %w", err)
	}
	if err := m.addr.CheckIdentity(req.Asset); err != nil {
		return nil, fmt.Errorf("asset: %w", err)
	}

	address, bump, err := m.addr.PoolAddress(req.CompanyName)
	if err != nil {
		return nil, err
	}
	treasury, treasuryBump, err := m.addr.TreasuryAddress(req.CompanyName)
	if err != nil {
		return nil, err
	}

	pool := &models.VestingPool{
		Address:       address,
		CompanyName:   req.CompanyName,
		Owner:         req.Administrator,
		Asset:         req.Asset,
		AssetDecimals: req.AssetDecimals,
		Treasury:      treasury,
		Bump:          bump,
		TreasuryBump:  treasuryBump,
	}

	err = m.ledger.Atomic(ctx, func(tx Tx) error {
		if err := tx.CreatePool(pool); err != nil {
			return err
		}
		// the treasury is its own authority
		return tx.Tokens().OpenAccount(treasury, treasury, req.Asset)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"company":                req.CompanyName,
		"pool":                   pool.Address,
		"treasury":               pool.Treasury,
		"owner":                  pool.Owner,
		"initial_funding_amount": req.InitialFundingAmount,
	}).Info("Vesting pool created")
	if req.InitialFundingAmount > 0 {
		log.Warnf("Pool %s: initial funding amount %d is not transferred at creation, fund the treasury separately",
			req.CompanyName, req.InitialFundingAmount)
	}
	return pool, nil
}

// FundPool deposits amount into the pool treasury and records who funded it. Only the
// pool owner may fund; the deposit mirrors a transfer the owner made off-ledger.
func (m *PoolManager) FundPool(ctx context.Context, funder, companyName string, amount uint64) (*models.PoolFundingRecord, error) {
	if amount == 0 {
		return nil, ErrInvalidAmount
	}
	if err := m.addr.CheckIdentity(funder); err != nil {
		return nil, fmt.Errorf("funder: %w", err)
	}

	var record *models.PoolFundingRecord
	err := m.ledger.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.PoolByName(companyName)
		if err != nil {
			return err
		}
		if pool.Owner != funder {
			return ErrNotPoolOwner
		}
		if err := tx.Tokens().Deposit(pool.Treasury, amount); err != nil {
			return err
		}
		record = &models.PoolFundingRecord{
			VestingPool: pool.Address,
			Funder:      funder,
			Amount:      amount,
		}
		return tx.RecordFunding(record)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"company": companyName,
		"funder":  funder,
		"amount":  amount,
	}).Info("Vesting pool funded")
	return record, nil
}

// Pool returns the pool registered for a company.
func (m *PoolManager) Pool(ctx context.Context, companyName string) (*models.VestingPool, error) {
	return m.ledger.Pool(ctx, companyName)
}

func (m *PoolManager) Pools(ctx context.Context) ([]models.VestingPool, error) {
	return m.ledger.Pools(ctx)
}

// TreasuryBalance returns the current treasury balance of a pool.
func (m *PoolManager) TreasuryBalance(ctx context.Context, pool *models.VestingPool) (uint64, error) {
	return m.ledger.Balance(ctx, pool.Treasury)
}

func checkCompanyName(name string) error {
	if name == "" {
		return ErrInvalidCompanyName
	}
	if len(name) > MaxCompanyNameLen {
		return fmt.Errorf("%w: %d bytes, max %d", ErrCompanyNameTooLong, len(name), MaxCompanyNameLen)
	}
	return nil
}
