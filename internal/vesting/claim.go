package vesting

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/models"
)

// ClaimRequest carries the inputs of Claim. Beneficiary defaults to Caller.
type ClaimRequest struct {
	Caller      string
	Beneficiary string
	CompanyName string
	Now         int64
}

// ClaimResult is returned by a successful claim.
type ClaimResult struct {
	Amount       uint64 `json:"amount"`
	Vested       uint64 `json:"vested"`
	TotalClaimed uint64 `json:"total_claimed"`
	TotalAmount  uint64 `json:"total_amount"`
	Destination  string `json:"destination"`
	Event        ClaimEvent
}

// ClaimEngine pays out vested tokens from pool treasuries.
type ClaimEngine struct {
	ledger    Ledger
	addr      Addresser
	publisher EventPublisher
}

// NewClaimEngine returns a ClaimEngine. publisher may be nil.
func NewClaimEngine(ledger Ledger, addr Addresser, publisher EventPublisher) *ClaimEngine {
	return &ClaimEngine{ledger: ledger, addr: addr, publisher: publisher}
}

// Claim transfers everything vested and not yet claimed to the beneficiary's token
// account. The counter update and the transfer commit together or not at all.
func (e *ClaimEngine) Claim(ctx context.Context, req ClaimRequest) (*ClaimResult, error) {
	beneficiary := req.Beneficiary
	if beneficiary == "" {
		beneficiary = req.Caller
	}
	if req.Caller != beneficiary {
		return nil, ErrNotBeneficiary
	}

	var result ClaimResult
	err := e.ledger.Atomic(ctx, func(tx Tx) error {
		pool, err := tx.PoolByName(req.CompanyName)
		if err != nil {
			return err
		}
		grant, err := tx.LockGrant(beneficiary, pool.Address)
		if err != nil {
			return err
		}
		if err := e.checkBinding(pool, grant, beneficiary); err != nil {
			return err
		}

		quote, err := ScheduleOf(grant).Quote(grant.TotalClaimed, req.Now)
		if err != nil {
			return err
		}
		if err := quote.Check(); err != nil {
			return err
		}
		total := grant.TotalClaimed + quote.Claimable
		if total < grant.TotalClaimed || total > grant.TotalAmount {
			return fmt.Errorf("%w: claimed total %d exceeds grant %d", ErrOverflow, total, grant.TotalAmount)
		}

		destination, err := e.addr.TokenAccount(beneficiary, pool.Asset)
		if err != nil {
			return err
		}
		tokens := tx.Tokens()
		if err := tokens.EnsureAccount(destination, beneficiary, pool.Asset); err != nil {
			return err
		}
		auth := treasuryAuthorityOf(pool).authorize(quote.Claimable)
		if err := tokens.Transfer(pool.Treasury, destination, quote.Claimable, auth); err != nil {
			return err
		}
		if err := tx.UpdateClaimed(grant, total); err != nil {
			return err
		}

		event := ClaimEvent{
			ID:           uuid.NewString(),
			VestingPool:  pool.Address,
			CompanyName:  pool.CompanyName,
			Grant:        grant.Address,
			Beneficiary:  beneficiary,
			Destination:  destination,
			Amount:       quote.Claimable,
			TotalClaimed: total,
			TotalAmount:  grant.TotalAmount,
			ClaimedAt:    req.Now,
		}
		if err := tx.RecordClaim(&models.ClaimRecord{
			EventID:      event.ID,
			GrantAddress: grant.Address,
			VestingPool:  pool.Address,
			Beneficiary:  beneficiary,
			Destination:  destination,
			Amount:       quote.Claimable,
			VestedAmount: quote.Vested,
			TotalClaimed: total,
			ClaimedAt:    req.Now,
		}); err != nil {
			return err
		}

		result = ClaimResult{
			Amount:       quote.Claimable,
			Vested:       quote.Vested,
			TotalClaimed: total,
			TotalAmount:  grant.TotalAmount,
			Destination:  destination,
			Event:        event,
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.WithFields(log.Fields{
		"company":       req.CompanyName,
		"beneficiary":   beneficiary,
		"amount":        result.Amount,
		"total_claimed": result.TotalClaimed,
		"event_id":      result.Event.ID,
	}).Info("Tokens claimed")

	if e.publisher != nil {
		if err := e.publisher.PublishClaim(ctx, result.Event); err != nil {
			log.Errorf("Failed to publish claim event %s: %v", result.Event.ID, err)
		}
	}
	return &result, nil
}

// Preview evaluates a grant at now without changing anything.
func (e *ClaimEngine) Preview(ctx context.Context, beneficiary, companyName string, now int64) (Quote, error) {
	pool, err := e.ledger.Pool(ctx, companyName)
	if err != nil {
		return Quote{}, err
	}
	grant, err := e.ledger.Grant(ctx, beneficiary, pool.Address)
	if err != nil {
		return Quote{}, err
	}
	return ScheduleOf(grant).Quote(grant.TotalClaimed, now)
}

// checkBinding verifies the grant belongs to the beneficiary and to this pool, and that
// the pool treasury is the one derived for the company.
func (e *ClaimEngine) checkBinding(pool *models.VestingPool, grant *models.BeneficiaryGrant, beneficiary string) error {
	if grant.Beneficiary != beneficiary {
		return ErrNotBeneficiary
	}
	if grant.VestingPool != pool.Address {
		return fmt.Errorf("%w: grant references %s", ErrPoolMismatch, grant.VestingPool)
	}
	treasury, _, err := e.addr.TreasuryAddress(pool.CompanyName)
	if err != nil {
		return err
	}
	if treasury != pool.Treasury {
		return fmt.Errorf("%w: treasury %s is not derived for %s", ErrPoolMismatch, pool.Treasury, pool.CompanyName)
	}
	return nil
}
