package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// AppConfig is the process configuration, read from the environment.
type AppConfig struct {
	DBHost        string `env:"DB_HOST" envDefault:"localhost"`
	DBUser        string `env:"DB_USER"`
	DBPassword    string `env:"DB_PASSWORD"`
	DBName        string `env:"DB_NAME" envDefault:"vesting"`
	DBPort        string `env:"DB_PORT" envDefault:"5432"`
	DBTimeZone    string `env:"DB_TIMEZONE" envDefault:"Asia/Shanghai"`
	DBAutoMigrate bool   `env:"DB_AUTO_MIGRATE" envDefault:"true"`
	MigrationsDir string `env:"MIGRATIONS_DIR" envDefault:"migrations"`

	RabbitMQHost     string `env:"RABBITMQ_HOST"`
	RabbitMQUser     string `env:"RABBITMQ_USER" envDefault:"guest"`
	RabbitMQPassword string `env:"RABBITMQ_PASSWORD" envDefault:"guest"`
	RabbitMQPort     string `env:"RABBITMQ_PORT" envDefault:"5672"`
	ClaimQueue       string `env:"CLAIM_QUEUE" envDefault:"vesting_claims"`

	Port           string   `env:"PORT" envDefault:"8080"`
	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	ProgramID      string `env:"VESTING_PROGRAM_ID"`
	StrictSchedule bool   `env:"VESTING_STRICT_SCHEDULE" envDefault:"true"`

	AuthMaxSkew  time.Duration `env:"AUTH_MAX_SKEW" envDefault:"5m"`
	AuthDisabled bool          `env:"AUTH_DISABLED"`

	RateLimitRPS   float64 `env:"RATE_LIMIT_RPS" envDefault:"20"`
	RateLimitBurst int     `env:"RATE_LIMIT_BURST" envDefault:"40"`

	SnapshotCron string `env:"SNAPSHOT_CRON" envDefault:"0 */15 * * * *"`
	KeystoreDir  string `env:"KEYSTORE_DIR" envDefault:"configs/keystore"`
}

// LoadAppConfig parses the environment into an AppConfig.
func LoadAppConfig() (AppConfig, error) {
	cfg, err := env.ParseAs[AppConfig]()
	if err != nil {
		return AppConfig{}, fmt.Errorf("failed to parse environment: %w", err)
	}
	if cfg.RateLimitRPS <= 0 || cfg.RateLimitBurst <= 0 {
		return AppConfig{}, fmt.Errorf("rate limit must be positive, got rps=%v burst=%d", cfg.RateLimitRPS, cfg.RateLimitBurst)
	}
	return cfg, nil
}

// DSN is the postgres connection string.
func (c AppConfig) DSN() string {
	return fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=disable TimeZone=%s",
		c.DBHost,
		c.DBUser,
		c.DBPassword,
		c.DBName,
		c.DBPort,
		c.DBTimeZone,
	)
}

// RabbitMQURL is the AMQP url, empty when RabbitMQ is not configured.
func (c AppConfig) RabbitMQURL() string {
	if c.RabbitMQHost == "" {
		return ""
	}
	return fmt.Sprintf("amqp://%s:%s@%s:%s/",
		c.RabbitMQUser,
		c.RabbitMQPassword,
		c.RabbitMQHost,
		c.RabbitMQPort,
	)
}
