package vesting

import (
	"fmt"

	"github.com/holiman/uint256"

	"tokenvesting/internal/models"
)

// Phase is the derived state of a grant at a point in time. It is never stored.
type Phase string

const (
	PhaseLocked  Phase = "locked"
	PhaseVesting Phase = "vesting"
	PhaseVested  Phase = "vested"
)

// Schedule is a linear-with-cliff vesting schedule. Times are unix seconds.
type Schedule struct {
	Start int64
	Cliff int64
	End   int64
	Total uint64
}

// ScheduleOf extracts the schedule of a grant.
func ScheduleOf(g *models.BeneficiaryGrant) Schedule {
	return Schedule{
		Start: g.StartTime,
		Cliff: g.CliffTime,
		End:   g.EndTime,
		Total: g.TotalAmount,
	}
}

// Validate enforces start <= cliff <= end, start < end and a non-zero total.
func (s Schedule) Validate() error {
	if s.Total == 0 {
		return fmt.Errorf("%w: total amount is zero", ErrInvalidSchedule)
	}
	if s.Start >= s.End {
		return fmt.Errorf("%w: start %d is not before end %d", ErrInvalidSchedule, s.Start, s.End)
	}
	if s.Cliff < s.Start || s.Cliff > s.End {
		return fmt.Errorf("%w: cliff %d outside [%d, %d]", ErrInvalidSchedule, s.Cliff, s.Start, s.End)
	}
	return nil
}

// PhaseAt reports which phase the schedule is in at now.
func (s Schedule) PhaseAt(now int64) Phase {
	switch {
	case now < s.Cliff:
		return PhaseLocked
	case now >= s.End:
		return PhaseVested
	default:
		return PhaseVesting
	}
}

// VestedAt returns the cumulative vested amount at now, ignoring the cliff.
// A schedule whose end is not after its start has no valid period.
func (s Schedule) VestedAt(now int64) (uint64, error) {
	period := saturatingSub(s.End, s.Start)
	if period == 0 {
		return 0, ErrInvalidVestingPeriod
	}
	if now >= s.End {
		return s.Total, nil
	}
	return mulDiv(s.Total, saturatingSub(now, s.Start), period)
}

// Quote is the outcome of evaluating a schedule against an already-claimed amount.
type Quote struct {
	Phase     Phase  `json:"phase"`
	Vested    uint64 `json:"vested"`
	Claimed   uint64 `json:"claimed"`
	Claimable uint64 `json:"claimable"`
	UnlocksAt int64  `json:"unlocks_at"`
}

// Quote evaluates the schedule at now. It fails only when the schedule itself is
// unusable (InvalidVestingPeriod, Overflow); use Check to decide if a claim may proceed.
func (s Schedule) Quote(claimed uint64, now int64) (Quote, error) {
	q := Quote{
		Phase:     s.PhaseAt(now),
		Claimed:   claimed,
		UnlocksAt: s.Cliff,
	}
	if saturatingSub(s.End, s.Start) == 0 {
		return q, ErrInvalidVestingPeriod
	}
	if q.Phase == PhaseLocked {
		return q, nil
	}

	vested, err := s.VestedAt(now)
	if err != nil {
		return q, err
	}
	q.Vested = vested
	if vested > claimed {
		q.Claimable = vested - claimed
	}
	return q, nil
}

// Check turns a quote into the claim-time verdict.
func (q Quote) Check() error {
	if q.Phase == PhaseLocked {
		return ErrClaimNotAvailable
	}
	if q.Claimable == 0 {
		return ErrNoTokensToClaim
	}
	return nil
}

// saturatingSub returns a-b, or 0 when b >= a. The result always fits in uint64.
func saturatingSub(a, b int64) uint64 {
	if a <= b {
		return 0
	}
	return uint64(a) - uint64(b)
}

// mulDiv computes floor(a*b/d) in 256-bit width.
func mulDiv(a, b, d uint64) (uint64, error) {
	if d == 0 {
		return 0, ErrInvalidVestingPeriod
	}
	product, overflow := new(uint256.Int).MulOverflow(uint256.NewInt(a), uint256.NewInt(b))
	if overflow {
		return 0, ErrOverflow
	}
	quotient := new(uint256.Int).Div(product, uint256.NewInt(d))
	if !quotient.IsUint64() {
		return 0, ErrOverflow
	}
	return quotient.Uint64(), nil
}
