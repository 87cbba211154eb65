package vesting

import (
	"context"
	"fmt"

	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/models"
)

// CreateGrantRequest carries the inputs of CreateGrant. Caller is the authenticated
// identity and must be the pool owner.
type CreateGrantRequest struct {
	Caller      string
	CompanyName string
	Beneficiary string
	StartTime   int64
	EndTime     int64
	CliffTime   int64
	TotalAmount uint64
}

// GrantManager links beneficiaries to pools.
type GrantManager struct {
	ledger Ledger
	addr   Addresser
	strict bool
}

// NewGrantManager returns a GrantManager. With strict set, schedules are validated at
// creation; otherwise any ordering is accepted and bad schedules fail at claim time.
func NewGrantManager(ledger Ledger, addr Addresser, strict bool) *GrantManager {
	return &GrantManager{ledger: ledger, addr: addr, strict: strict}
}

// CreateGrant records a beneficiary's schedule against a pool.
func (m *GrantManager) CreateGrant(ctx context.Context, req CreateGrantRequest) (*models.BeneficiaryGrant, error) {
	if err := m.addr.CheckIdentity(req.Beneficiary); err != nil {
		return nil, fmt.Errorf("beneficiary: %w", err)
	}
	schedule := Schedule{
		Start: req.StartTime,
		Cliff: req.CliffTime,
		End:   req.EndTime,
		Total: req.TotalAmount,
	}
	if m.strict {
		if err := schedule.Validate(); err != nil {
			return nil, err
		}
	}

	var grant *models.BeneficiaryGrant
	err := m.ledger.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.PoolByName(req.CompanyName)
		if err != nil {
			return err
		}
		if pool.Owner != req.Caller {
			return ErrNotPoolOwner
		}

		address, bump, err := m.addr.GrantAddress(req.Beneficiary, pool.Address)
		if err != nil {
			return err
		}
		grant = &models.BeneficiaryGrant{
			Address:      address,
			Beneficiary:  req.Beneficiary,
			VestingPool:  pool.Address,
			StartTime:    req.StartTime,
			EndTime:      req.EndTime,
			CliffTime:    req.CliffTime,
			TotalAmount:  req.TotalAmount,
			TotalClaimed: 0,
			Bump:         bump,
		}
		return tx.CreateGrant(grant)
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"company":     req.CompanyName,
		"grant":       grant.Address,
		"beneficiary": grant.Beneficiary,
		"start":       grant.StartTime,
		"cliff":       grant.CliffTime,
		"end":         grant.EndTime,
		"total":       grant.TotalAmount,
	}).Info("Beneficiary grant created")
	return grant, nil
}

// Grant returns the grant of a beneficiary in a company's pool.
func (m *GrantManager) Grant(ctx context.Context, beneficiary, companyName string) (*models.VestingPool, *models.BeneficiaryGrant, error) {
	pool, err := m.ledger.Pool(ctx, companyName)
	if err != nil {
		return nil, nil, err
	}
	grant, err := m.ledger.Grant(ctx, beneficiary, pool.Address)
	if err != nil {
		return nil, nil, err
	}
	return pool, grant, nil
}

// Grants lists every grant of a company's pool.
func (m *GrantManager) Grants(ctx context.Context, companyName string) ([]models.BeneficiaryGrant, error) {
	pool, err := m.ledger.Pool(ctx, companyName)
	if err != nil {
		return nil, err
	}
	return m.ledger.Grants(ctx, pool.Address)
}
