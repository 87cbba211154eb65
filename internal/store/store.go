// Package store persists vesting records and custody balances with gorm.
package store

import (
	"context"
	"errors"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokenvesting/internal/models"
	"tokenvesting/internal/vesting"
)

// Models lists every table owned by this package, in migration order.
var Models = []interface{}{
	&models.VestingPool{},
	&models.BeneficiaryGrant{},
	&models.TokenAccount{},
	&models.ClaimRecord{},
	&models.PoolFundingRecord{},
	&models.PoolStat{},
	&models.PoolSnapshot{},
}

// Ledger implements vesting.Ledger on a gorm database.
type Ledger struct {
	db *gorm.DB
}

func NewLedger(db *gorm.DB) *Ledger {
	return &Ledger{db: db}
}

// Atomic runs fn inside one database transaction.
func (l *Ledger) Atomic(ctx context.Context, fn func(tx vesting.Tx) error) error {
	return l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&ledgerTx{db: tx})
	})
}

func (l *Ledger) Pool(ctx context.Context, companyName string) (*models.VestingPool, error) {
	return poolByName(l.db.WithContext(ctx), companyName)
}

func (l *Ledger) Pools(ctx context.Context) ([]models.VestingPool, error) {
	var pools []models.VestingPool
	if err := l.db.WithContext(ctx).Order("id").Find(&pools).Error; err != nil {
		return nil, err
	}
	return pools, nil
}

func (l *Ledger) Grant(ctx context.Context, beneficiary, poolAddress string) (*models.BeneficiaryGrant, error) {
	var grant models.BeneficiaryGrant
	err := l.db.WithContext(ctx).
		Where("beneficiary = ? AND vesting_pool = ?", beneficiary, poolAddress).
		First(&grant).Error
	if err != nil {
		return nil, notFound(err, vesting.ErrGrantNotFound)
	}
	return &grant, nil
}

func (l *Ledger) Grants(ctx context.Context, poolAddress string) ([]models.BeneficiaryGrant, error) {
	var grants []models.BeneficiaryGrant
	if err := l.db.WithContext(ctx).Where("vesting_pool = ?", poolAddress).Order("id").Find(&grants).Error; err != nil {
		return nil, err
	}
	return grants, nil
}

// Balance returns the balance of a custody account.
func (l *Ledger) Balance(ctx context.Context, account string) (uint64, error) {
	var acc models.TokenAccount
	if err := l.db.WithContext(ctx).Where("account_address = ?", account).First(&acc).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, nil
		}
		return 0, err
	}
	return acc.Balance, nil
}

type ledgerTx struct {
	db *gorm.DB
}

func (t *ledgerTx) CreatePool(p *models.VestingPool) error {
	// 再次检查是否存在，避免并发情况下的重复创建
	var count int64
	if err := t.db.Model(&models.VestingPool{}).
		Where("company_name = ? OR address = ?", p.CompanyName, p.Address).
		Count(&count).Error; err != nil {
		return fmt.Errorf("error checking existing pool: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", vesting.ErrDuplicatePool, p.CompanyName)
	}
	if err := t.db.Create(p).Error; err != nil {
		return duplicate(err, vesting.ErrDuplicatePool)
	}
	return nil
}

func (t *ledgerTx) PoolByName(companyName string) (*models.VestingPool, error) {
	return poolByName(t.db, companyName)
}

func (t *ledgerTx) CreateGrant(g *models.BeneficiaryGrant) error {
	var count int64
	if err := t.db.Model(&models.BeneficiaryGrant{}).
		Where("(beneficiary = ? AND vesting_pool = ?) OR address = ?", g.Beneficiary, g.VestingPool, g.Address).
		Count(&count).Error; err != nil {
		return fmt.Errorf("error checking existing grant: %w", err)
	}
	if count > 0 {
		return fmt.Errorf("%w: %s", vesting.ErrDuplicateGrant, g.Beneficiary)
	}
	if err := t.db.Create(g).Error; err != nil {
		return duplicate(err, vesting.ErrDuplicateGrant)
	}
	return nil
}

func (t *ledgerTx) LockGrant(beneficiary, poolAddress string) (*models.BeneficiaryGrant, error) {
	var grant models.BeneficiaryGrant
	err := t.db.Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("beneficiary = ? AND vesting_pool = ?", beneficiary, poolAddress).
		First(&grant).Error
	if err != nil {
		return nil, notFound(err, vesting.ErrGrantNotFound)
	}
	return &grant, nil
}

func (t *ledgerTx) UpdateClaimed(g *models.BeneficiaryGrant, total uint64) error {
	res := t.db.Model(&models.BeneficiaryGrant{}).
		Where("id = ? AND total_claimed = ?", g.ID, g.TotalClaimed).
		Update("total_claimed", total)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected != 1 {
		return fmt.Errorf("%w: grant %s", vesting.ErrConflict, g.Address)
	}
	g.TotalClaimed = total
	return nil
}

func (t *ledgerTx) RecordClaim(r *models.ClaimRecord) error {
	return t.db.Create(r).Error
}

func (t *ledgerTx) RecordFunding(r *models.PoolFundingRecord) error {
	return t.db.Create(r).Error
}

func (t *ledgerTx) Tokens() vesting.TokenTransfer {
	return &Custody{db: t.db}
}

func poolByName(db *gorm.DB, companyName string) (*models.VestingPool, error) {
	var pool models.VestingPool
	if err := db.Where("company_name = ?", companyName).First(&pool).Error; err != nil {
		return nil, notFound(err, vesting.ErrPoolNotFound)
	}
	return &pool, nil
}

func notFound(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return sentinel
	}
	return err
}

func duplicate(err error, sentinel error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return sentinel
	}
	return err
}
