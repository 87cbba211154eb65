package main

import (
	"context"
	"encoding/json"
	"errors"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	logrus "github.com/sirupsen/logrus"

	"tokenvesting/internal/metrics"
	"tokenvesting/internal/store"
	"tokenvesting/internal/vesting"
	"tokenvesting/pkg/config"
)

// claimHandler folds claim events into pool statistics.
type claimHandler struct {
	ledger *store.Ledger
}

func (h *claimHandler) handle(ctx context.Context, msg []byte) error {
	start := time.Now()

	var ev vesting.ClaimEvent
	if err := json.Unmarshal(msg, &ev); err != nil {
		metrics.RecordClaimEvent(time.Since(start), true)
		return &config.PermanentError{Err: err}
	}

	applied, err := h.ledger.ApplyClaimEvent(ctx, ev)
	metrics.RecordClaimEvent(time.Since(start), err != nil)
	if errors.Is(err, store.ErrUnknownClaimEvent) {
		return &config.PermanentError{Err: err}
	}
	if err != nil {
		return err
	}

	fields := logrus.Fields{
		"event_id":      ev.ID,
		"company":       ev.CompanyName,
		"beneficiary":   ev.Beneficiary,
		"amount":        ev.Amount,
		"total_claimed": ev.TotalClaimed,
	}
	if applied {
		logrus.WithFields(fields).Info("Claim event applied")
	} else {
		logrus.WithFields(fields).Debug("Claim event already applied")
	}
	return nil
}

func main() {
	_ = godotenv.Load()

	// Initialize logger
	logrus.SetFormatter(&logrus.JSONFormatter{})
	logrus.SetLevel(logrus.InfoLevel)

	cfg, err := config.LoadAppConfig()
	if err != nil {
		logrus.Fatal(err)
	}

	// Initialize database
	db := config.InitDB(cfg)

	// Initialize RabbitMQ
	if err := config.InitRabbitMQ(cfg); err != nil {
		logrus.Fatal(err)
	}
	defer config.RabbitMQ.Close()

	// Create consumer for the claim queue
	msgConsumer, err := config.NewConsumer(cfg.ClaimQueue)
	if err != nil {
		logrus.Fatal("Failed to create consumer: ", err)
	}
	defer msgConsumer.Close()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	h := &claimHandler{ledger: store.NewLedger(db)}
	logrus.Infof("Claim worker started, waiting for messages on %s...", cfg.ClaimQueue)

	err = msgConsumer.Consume(ctx, func(msg []byte) error {
		return h.handle(ctx, msg)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		logrus.Fatal("Consumer stopped: ", err)
	}
	logrus.Info("Claim worker stopped")
}
