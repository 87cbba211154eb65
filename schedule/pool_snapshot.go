package main

import (
	"context"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	logger "github.com/sirupsen/logrus"

	"tokenvesting/internal/store"
	dbconfig "tokenvesting/pkg/config"
)

const (
	snapshotTimeout = 2 * time.Minute
	// claims younger than this are still in flight to the worker
	pendingClaimGrace = time.Minute
	pendingClaimBatch = 500
)

// ReplayPendingClaims folds claims that never reached the worker into pool_stat.
func ReplayPendingClaims(ledger *store.Ledger) error {
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	n, err := ledger.ReplayPendingClaims(ctx, time.Now().Add(-pendingClaimGrace), pendingClaimBatch)
	if err != nil {
		return err
	}
	if n > 0 {
		logger.Warnf("> Replayed %d claim events missing from pool_stat", n)
	}
	return nil
}

// RecordPoolSnapshots writes one pool_snapshot row per vesting pool.
func RecordPoolSnapshots(ledger *store.Ledger) error {
	logger.Info("> Recording pool snapshots")

	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()

	snapshots, err := ledger.SnapshotPools(ctx, time.Now())
	if err != nil {
		return err
	}
	for _, s := range snapshots {
		logger.WithFields(logger.Fields{
			"company":   s.CompanyName,
			"grants":    s.GrantCount,
			"allocated": s.TotalAllocated,
			"vested":    s.TotalVested,
			"claimed":   s.TotalClaimed,
			"treasury":  s.TreasuryBalance,
		}).Info("pool snapshot")
	}

	logger.Infof("> Recorded %d pool snapshots", len(snapshots))
	return nil
}

func main() {
	os.MkdirAll("logs", 0755)
	file, err := os.OpenFile("logs/pool_snapshot.log", os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err == nil {
		logger.SetOutput(file)
	} else {
		logger.Warn("Failed to open log file, logging to stdout")
	}
	logger.SetFormatter(&logger.TextFormatter{
		FullTimestamp: true,
	})

	if err := godotenv.Load(); err != nil {
		logger.Debug("No .env file loaded")
	}
	cfg, err := dbconfig.LoadAppConfig()
	if err != nil {
		logger.Fatalf("> Invalid configuration: %v", err)
	}

	db := dbconfig.InitDB(cfg)
	ledger := store.NewLedger(db)
	logger.Info("> Database connection initialised")

	c := cron.New(cron.WithSeconds())
	_, err = c.AddFunc(cfg.SnapshotCron, func() {
		if err := ReplayPendingClaims(ledger); err != nil {
			logger.Errorf("> Failed to replay pending claims: %v", err)
		}
		if err := RecordPoolSnapshots(ledger); err != nil {
			logger.Errorf("> Failed to record pool snapshots: %v", err)
		}
	})
	if err != nil {
		logger.Fatalf("> Failed to schedule snapshot job: %v", err)
	}

	logger.Infof("> Snapshot job scheduled with %q", cfg.SnapshotCron)
	c.Start()

	select {}
}
