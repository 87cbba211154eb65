package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"

	"tokenvesting/internal/handlers"
	"tokenvesting/internal/metrics"
	"tokenvesting/internal/middleware"
	"tokenvesting/internal/routes"
	"tokenvesting/internal/store"
	"tokenvesting/internal/vesting"
	"tokenvesting/pkg/config"
	solanautil "tokenvesting/pkg/solana"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Debug("No .env file loaded")
	}
	log.SetFormatter(&log.TextFormatter{FullTimestamp: true})

	cfg, err := config.LoadAppConfig()
	if err != nil {
		log.Fatal(err)
	}

	// Initialize database
	db := config.InitDB(cfg)

	deriver, err := solanautil.NewDeriver(cfg.ProgramID)
	if err != nil {
		log.Fatal(err)
	}
	log.Infof("Deriving vesting addresses under program %s", deriver.ProgramID())

	stream := handlers.NewClaimStream(cfg.AllowedOrigins)
	defer stream.Close()
	publishers := vesting.Publishers{stream}

	// Initialize RabbitMQ (optional, will log warning if not configured)
	if cfg.RabbitMQHost != "" {
		if err := config.InitRabbitMQ(cfg); err != nil {
			log.Fatal(err)
		}
		defer config.RabbitMQ.Close()

		publisher, err := config.NewPublisher()
		if err != nil {
			log.Fatal("Create publisher failed: ", err)
		}
		defer publisher.Close()
		publishers = append(publishers, config.NewClaimPublisher(publisher, cfg.ClaimQueue))
		log.Infof("Claim events will be published to queue %s", cfg.ClaimQueue)
	} else {
		log.Warn("RabbitMQ not configured, claim events are only streamed over websocket")
	}

	ledger := store.NewLedger(db)
	h := handlers.NewVestingHandler(
		vesting.NewPoolManager(ledger, deriver),
		vesting.NewGrantManager(ledger, deriver, cfg.StrictSchedule),
		vesting.NewClaimEngine(ledger, deriver, publishers),
	)

	metrics.Init()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Set up router
	r := routes.SetupRouter(ctx, routes.Dependencies{
		Vesting:        h,
		ClaimStream:    stream,
		AllowedOrigins: cfg.AllowedOrigins,
		Auth: middleware.AuthConfig{
			MaxSkew:  cfg.AuthMaxSkew,
			Disabled: cfg.AuthDisabled,
		},
		RateLimit: middleware.RateLimiterConfig{
			RequestsPerSecond: cfg.RateLimitRPS,
			Burst:             cfg.RateLimitBurst,
		},
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Infof("Vesting API listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server: ", err)
		}
	}()

	<-ctx.Done()
	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Errorf("Server shutdown: %v", err)
	}
}
