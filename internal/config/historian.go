// internal/config/historian.go
package config

import (
	"errors"
	"time"

	"github.com/spf13/pflag"

	"github.com/jason-s-yu/codenames/internal/cache"
)

// HistorianConfig holds the settings of the archive consumer.
type HistorianConfig struct {
	Env         string
	DatabaseURL string
	RedisAddr   string
	RedisDB     int
	RedisQueue  string
	BatchSize   int
	FlushDelay  time.Duration
	Inactivity  time.Duration
}

// RegisterHistorianFlags declares the historian flags on fs, writing into cfg.
func RegisterHistorianFlags(fs *pflag.FlagSet, cfg *HistorianConfig) {
	fs.StringVar(&cfg.Env, "env", EnvDevelopment, "development or production (env: CODENAMES_ENV)")
	fs.StringVar(&cfg.DatabaseURL, "database-url", "", "postgres connection string (env: CODENAMES_DATABASE_URL)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "localhost:6379", "redis address (env: CODENAMES_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database index (env: CODENAMES_REDIS_DB)")
	fs.StringVar(&cfg.RedisQueue, "redis-queue", cache.DefaultQueueName, "redis list to consume (env: CODENAMES_REDIS_QUEUE)")
	fs.IntVar(&cfg.BatchSize, "batch-size", 20, "records written per transaction (env: CODENAMES_BATCH_SIZE)")
	fs.DurationVar(&cfg.FlushDelay, "flush-delay", 500*time.Millisecond, "maximum time a record waits before being written (env: CODENAMES_FLUSH_DELAY)")
	fs.DurationVar(&cfg.Inactivity, "inactivity", 10*time.Minute, "silence after which a match is marked abandoned (env: CODENAMES_INACTIVITY)")
}

// Validate checks the combination of settings.
func (c *HistorianConfig) Validate() error {
	if c.DatabaseURL == "" {
		return errors.New("--database-url is required")
	}
	if c.RedisAddr == "" {
		return errors.New("--redis-addr is required")
	}
	if c.BatchSize < 1 {
		return errors.New("--batch-size must be at least 1")
	}
	if c.FlushDelay <= 0 || c.Inactivity <= 0 {
		return errors.New("--flush-delay and --inactivity must be positive")
	}
	return nil
}
