package store

import (
	"errors"
	"fmt"
	"math"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"tokenvesting/internal/models"
	"tokenvesting/internal/vesting"
)

// Custody implements vesting.TokenTransfer over token_account rows. It must be bound to
// the transaction of the operation it serves.
type Custody struct {
	db *gorm.DB
}

func NewCustody(tx *gorm.DB) *Custody {
	return &Custody{db: tx}
}

func (c *Custody) OpenAccount(address, owner, mint string) error {
	var count int64
	if err := c.db.Model(&models.TokenAccount{}).Where("account_address = ?", address).Count(&count).Error; err != nil {
		return err
	}
	if count > 0 {
		return fmt.Errorf("token account %s already exists", address)
	}
	return c.db.Create(&models.TokenAccount{
		AccountAddress: address,
		OwnerAddress:   owner,
		Mint:           mint,
	}).Error
}

func (c *Custody) EnsureAccount(address, owner, mint string) error {
	acc, err := c.account(address, false)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return c.db.Create(&models.TokenAccount{
			AccountAddress: address,
			OwnerAddress:   owner,
			Mint:           mint,
		}).Error
	}
	if err != nil {
		return err
	}
	if acc.OwnerAddress != owner || acc.Mint != mint {
		return fmt.Errorf("%w: token account %s belongs to %s/%s", vesting.ErrPoolMismatch, address, acc.OwnerAddress, acc.Mint)
	}
	return nil
}

func (c *Custody) Deposit(address string, amount uint64) error {
	if amount == 0 {
		return vesting.ErrInvalidAmount
	}
	acc, err := c.account(address, true)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return fmt.Errorf("token account %s not found", address)
		}
		return err
	}
	return c.credit(acc, amount)
}

// Transfer debits from and credits to. The debit must be covered by auth and signed
// by the owner of from.
func (c *Custody) Transfer(from, to string, amount uint64, auth vesting.TransferAuthorization) error {
	if amount == 0 {
		return vesting.ErrInvalidAmount
	}
	if !auth.Permits(from, amount) {
		return vesting.ErrUnauthorizedTransfer
	}

	src, err := c.account(from, true)
	if err != nil {
		return fmt.Errorf("source account %s: %w", from, notFound(err, vesting.ErrUnauthorizedTransfer))
	}
	if src.OwnerAddress != auth.Authority() {
		return fmt.Errorf("%w: %s is not the authority of %s", vesting.ErrUnauthorizedTransfer, auth.Authority(), from)
	}
	dst, err := c.account(to, true)
	if err != nil {
		return fmt.Errorf("destination account %s: %w", to, err)
	}
	if dst.Mint != src.Mint {
		return fmt.Errorf("%w: mint %s cannot receive %s", vesting.ErrPoolMismatch, dst.Mint, src.Mint)
	}

	res := c.db.Model(&models.TokenAccount{}).
		Where("account_address = ? AND balance >= ?", from, amount).
		Update("balance", gorm.Expr("balance - ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: %s holds %d, need %d", vesting.ErrInsufficientFunds, from, src.Balance, amount)
	}
	if to == from {
		dst.Balance -= amount
	}
	return c.credit(dst, amount)
}

// credit adds amount to a locked account. Balances never grow past what the
// backing store can read back into a uint64.
func (c *Custody) credit(acc *models.TokenAccount, amount uint64) error {
	ceiling := c.maxBalance()
	if amount > ceiling || acc.Balance > ceiling-amount {
		return fmt.Errorf("%w: %s holds %d, cannot credit %d", vesting.ErrOverflow, acc.AccountAddress, acc.Balance, amount)
	}
	res := c.db.Model(&models.TokenAccount{}).
		Where("account_address = ? AND balance <= ?", acc.AccountAddress, ceiling-amount).
		Update("balance", gorm.Expr("balance + ?", amount))
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return fmt.Errorf("%w: credit of %d to %s", vesting.ErrOverflow, amount, acc.AccountAddress)
	}
	acc.Balance += amount
	return nil
}

// maxBalance is the largest balance the dialect stores as an exact integer.
// SQLite integers are signed 64-bit.
func (c *Custody) maxBalance() uint64 {
	if c.db.Dialector != nil && c.db.Dialector.Name() == "sqlite" {
		return math.MaxInt64
	}
	return math.MaxUint64
}

func (c *Custody) account(address string, lock bool) (*models.TokenAccount, error) {
	q := c.db
	if lock {
		q = q.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	var acc models.TokenAccount
	if err := q.Where("account_address = ?", address).First(&acc).Error; err != nil {
		return nil, err
	}
	return &acc, nil
}
