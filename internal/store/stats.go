package store

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	log "github.com/sirupsen/logrus"
	"gorm.io/gorm"

	"tokenvesting/internal/models"
	"tokenvesting/internal/vesting"
)

// ErrUnknownClaimEvent is returned for events with no committed claim record.
var ErrUnknownClaimEvent = errors.New("unknown claim event")

// ApplyClaimEvent folds a claim event into pool_stat. Each event is applied at most
// once; replays report applied == false.
func (l *Ledger) ApplyClaimEvent(ctx context.Context, ev vesting.ClaimEvent) (applied bool, err error) {
	err = l.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.ClaimRecord{}).
			Where("event_id = ? AND stat_applied = ?", ev.ID, false).
			Update("stat_applied", true)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			var count int64
			if err := tx.Model(&models.ClaimRecord{}).Where("event_id = ?", ev.ID).Count(&count).Error; err != nil {
				return err
			}
			if count == 0 {
				return fmt.Errorf("%w: %s", ErrUnknownClaimEvent, ev.ID)
			}
			return nil
		}

		var stat models.PoolStat
		if err := tx.Where(models.PoolStat{VestingPool: ev.VestingPool}).FirstOrCreate(&stat).Error; err != nil {
			return err
		}
		lastClaimAt := stat.LastClaimAt
		if ev.ClaimedAt > lastClaimAt {
			lastClaimAt = ev.ClaimedAt
		}
		if err := tx.Model(&stat).Updates(map[string]interface{}{
			"claim_count":   gorm.Expr("claim_count + ?", 1),
			"claimed_total": gorm.Expr("claimed_total + ?", ev.Amount),
			"last_claim_at": lastClaimAt,
			"last_event_id": ev.ID,
		}).Error; err != nil {
			return err
		}
		applied = true
		return nil
	})
	return applied, err
}

// PendingClaimEvents rebuilds the events of committed claims that were never folded
// into pool_stat, oldest first. Claims made after cutoff are left to the worker.
func (l *Ledger) PendingClaimEvents(ctx context.Context, cutoff time.Time, limit int) ([]vesting.ClaimEvent, error) {
	db := l.db.WithContext(ctx)

	var records []models.ClaimRecord
	if err := db.Where("stat_applied = ? AND claimed_at <= ?", false, cutoff.Unix()).
		Order("id").Limit(limit).Find(&records).Error; err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, nil
	}

	poolAddrs := make([]string, 0, len(records))
	grantAddrs := make([]string, 0, len(records))
	for _, r := range records {
		poolAddrs = append(poolAddrs, r.VestingPool)
		grantAddrs = append(grantAddrs, r.GrantAddress)
	}
	var pools []models.VestingPool
	if err := db.Where("address IN ?", poolAddrs).Find(&pools).Error; err != nil {
		return nil, err
	}
	companies := make(map[string]string, len(pools))
	for _, p := range pools {
		companies[p.Address] = p.CompanyName
	}
	var grants []models.BeneficiaryGrant
	if err := db.Where("address IN ?", grantAddrs).Find(&grants).Error; err != nil {
		return nil, err
	}
	totals := make(map[string]uint64, len(grants))
	for _, g := range grants {
		totals[g.Address] = g.TotalAmount
	}

	events := make([]vesting.ClaimEvent, 0, len(records))
	for _, r := range records {
		events = append(events, vesting.ClaimEvent{
			ID:           r.EventID,
			VestingPool:  r.VestingPool,
			CompanyName:  companies[r.VestingPool],
			Grant:        r.GrantAddress,
			Beneficiary:  r.Beneficiary,
			Destination:  r.Destination,
			Amount:       r.Amount,
			TotalClaimed: r.TotalClaimed,
			TotalAmount:  totals[r.GrantAddress],
			ClaimedAt:    r.ClaimedAt,
		})
	}
	return events, nil
}

// ReplayPendingClaims applies claim events that were committed but never reached
// the worker, for example after a crash between commit and publish.
func (l *Ledger) ReplayPendingClaims(ctx context.Context, cutoff time.Time, limit int) (int, error) {
	events, err := l.PendingClaimEvents(ctx, cutoff, limit)
	if err != nil {
		return 0, err
	}
	replayed := 0
	for _, ev := range events {
		applied, err := l.ApplyClaimEvent(ctx, ev)
		if err != nil {
			return replayed, err
		}
		if applied {
			replayed++
		}
	}
	return replayed, nil
}

// PoolStat returns the aggregated claim statistics of a pool.
func (l *Ledger) PoolStat(ctx context.Context, poolAddress string) (*models.PoolStat, error) {
	var stat models.PoolStat
	if err := l.db.WithContext(ctx).Where("vesting_pool = ?", poolAddress).First(&stat).Error; err != nil {
		return nil, notFound(err, vesting.ErrPoolNotFound)
	}
	return &stat, nil
}

// SnapshotPools records one snapshot row per pool, evaluating every grant at now.
func (l *Ledger) SnapshotPools(ctx context.Context, now time.Time) ([]models.PoolSnapshot, error) {
	pools, err := l.Pools(ctx)
	if err != nil {
		return nil, err
	}

	snapshots := make([]models.PoolSnapshot, 0, len(pools))
	for _, pool := range pools {
		grants, err := l.Grants(ctx, pool.Address)
		if err != nil {
			return nil, err
		}
		balance, err := l.Balance(ctx, pool.Treasury)
		if err != nil {
			return nil, err
		}

		snap := models.PoolSnapshot{
			VestingPool:        pool.Address,
			CompanyName:        pool.CompanyName,
			GrantCount:         int64(len(grants)),
			TreasuryBalance:    balance,
			CreatedAtByZeroSec: now.Truncate(time.Minute),
		}
		for i := range grants {
			g := &grants[i]
			snap.TotalAllocated = addSaturating(snap.TotalAllocated, g.TotalAmount)
			snap.TotalClaimed = addSaturating(snap.TotalClaimed, g.TotalClaimed)

			quote, err := vesting.ScheduleOf(g).Quote(g.TotalClaimed, now.Unix())
			if err != nil {
				log.Warnf("Grant %s skipped in snapshot: %v", g.Address, err)
				continue
			}
			snap.TotalVested = addSaturating(snap.TotalVested, quote.Vested)
		}
		snapshots = append(snapshots, snap)
	}

	if len(snapshots) == 0 {
		return snapshots, nil
	}
	if err := l.db.WithContext(ctx).Create(&snapshots).Error; err != nil {
		return nil, err
	}
	return snapshots, nil
}

func addSaturating(a, b uint64) uint64 {
	if a > math.MaxUint64-b {
		return math.MaxUint64
	}
	return a + b
}
