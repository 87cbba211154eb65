package vesting

import (
	"context"
	"errors"
)

// ClaimEvent describes a committed claim.
type ClaimEvent struct {
	ID           string `json:"id"`
	VestingPool  string `json:"vesting_pool"`
	CompanyName  string `json:"company_name"`
	Grant        string `json:"grant"`
	Beneficiary  string `json:"beneficiary"`
	Destination  string `json:"destination"`
	Amount       uint64 `json:"amount"`
	TotalClaimed uint64 `json:"total_claimed"`
	TotalAmount  uint64 `json:"total_amount"`
	ClaimedAt    int64  `json:"claimed_at"`
}

// EventPublisher receives claim events after they are committed.
type EventPublisher interface {
	PublishClaim(ctx context.Context, ev ClaimEvent) error
}

// Publishers fans an event out to every publisher and joins their errors.
type Publishers []EventPublisher

func (ps Publishers) PublishClaim(ctx context.Context, ev ClaimEvent) error {
	var errs []error
	for _, p := range ps {
		if err := p.PublishClaim(ctx, ev); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
