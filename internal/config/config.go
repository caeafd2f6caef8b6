// internal/config/config.go
package config

import (
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/jason-s-yu/codenames/internal/cache"
)

// EnvPrefix is prepended to every environment variable, e.g. CODENAMES_PORT.
const EnvPrefix = "CODENAMES"

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Config holds the game server settings.
type Config struct {
	Bind     string
	Port     int
	Env      string
	Language string
	WordsDir string

	RedisAddr  string
	RedisDB    int
	RedisQueue string

	TokenTTL        time.Duration
	TokenPrivateKey string
	TokenPublicKey  string
	SessionTimeout  time.Duration
	ReapInterval    time.Duration

	EnforceHintOverlap bool
	MinPlayersPerTeam  int
	AllowedOrigins     []string
}

// RegisterFlags declares the server flags on fs, writing into cfg.
func RegisterFlags(fs *pflag.FlagSet, cfg *Config) {
	fs.StringVarP(&cfg.Bind, "bind", "b", "0.0.0.0", "address to bind to (env: CODENAMES_BIND)")
	fs.IntVarP(&cfg.Port, "port", "p", 3000, "port to listen on (env: CODENAMES_PORT)")
	fs.StringVar(&cfg.Env, "env", EnvDevelopment, "development or production (env: CODENAMES_ENV)")
	fs.StringVar(&cfg.Language, "language", "en", "default word list language (env: CODENAMES_LANGUAGE)")
	fs.StringVar(&cfg.WordsDir, "words-dir", "", "directory of additional <lang>.txt word lists (env: CODENAMES_WORDS_DIR)")
	fs.StringVar(&cfg.RedisAddr, "redis-addr", "", "redis address for the action log, empty disables it (env: CODENAMES_REDIS_ADDR)")
	fs.IntVar(&cfg.RedisDB, "redis-db", 0, "redis database index (env: CODENAMES_REDIS_DB)")
	fs.StringVar(&cfg.RedisQueue, "redis-queue", cache.DefaultQueueName, "redis list receiving action records (env: CODENAMES_REDIS_QUEUE)")
	fs.DurationVar(&cfg.TokenTTL, "token-ttl", 2*time.Hour, "lifetime of reconnect tokens, 0 for no expiry (env: CODENAMES_TOKEN_TTL)")
	fs.StringVar(&cfg.TokenPrivateKey, "token-private-key", "", "raw ed25519 private key file, generated at start when empty (env: CODENAMES_TOKEN_PRIVATE_KEY)")
	fs.StringVar(&cfg.TokenPublicKey, "token-public-key", "", "raw ed25519 public key file (env: CODENAMES_TOKEN_PUBLIC_KEY)")
	fs.DurationVar(&cfg.SessionTimeout, "session-timeout", 60*time.Minute, "time before idle matches are ended, 0 disables (env: CODENAMES_SESSION_TIMEOUT)")
	fs.DurationVar(&cfg.ReapInterval, "reap-interval", time.Minute, "how often idle matches are checked (env: CODENAMES_REAP_INTERVAL)")
	fs.BoolVar(&cfg.EnforceHintOverlap, "enforce-hint-overlap", true, "reject hints overlapping a card word (env: CODENAMES_ENFORCE_HINT_OVERLAP)")
	fs.IntVar(&cfg.MinPlayersPerTeam, "min-players-per-team", 0, "players each team needs before a round starts (env: CODENAMES_MIN_PLAYERS_PER_TEAM)")
	fs.StringSliceVar(&cfg.AllowedOrigins, "allowed-origins", nil, "extra websocket origin patterns (env: CODENAMES_ALLOWED_ORIGINS)")
}

// Validate checks the combination of settings.
func (c *Config) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port (must be between 1-65535 inclusive): %d", c.Port)
	}
	if c.Env != EnvDevelopment && c.Env != EnvProduction {
		return fmt.Errorf("invalid env %q (must be %s or %s)", c.Env, EnvDevelopment, EnvProduction)
	}
	if c.TokenTTL < 0 || c.SessionTimeout < 0 {
		return errors.New("durations must not be negative")
	}
	if c.SessionTimeout > 0 && c.ReapInterval <= 0 {
		return errors.New("--reap-interval must be positive when --session-timeout is set")
	}
	if (c.TokenPrivateKey == "") != (c.TokenPublicKey == "") {
		return errors.New("--token-private-key and --token-public-key must be set together")
	}
	if c.MinPlayersPerTeam < 0 {
		return fmt.Errorf("invalid min players per team: %d", c.MinPlayersPerTeam)
	}
	if strings.TrimSpace(c.Language) == "" {
		return errors.New("--language must not be empty")
	}
	return nil
}

// Addr is the listen address.
func (c *Config) Addr() string {
	return net.JoinHostPort(c.Bind, strconv.Itoa(c.Port))
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// ApplyEnv normalises flag names and fills every flag the user did not set on
// the command line from its CODENAMES_* environment variable.
func ApplyEnv(fs *pflag.FlagSet) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	fs.SetNormalizeFunc(func(_ *pflag.FlagSet, name string) pflag.NormalizedName {
		return pflag.NormalizedName(strings.ReplaceAll(name, "_", "-"))
	})

	fs.VisitAll(func(f *pflag.Flag) {
		_ = v.BindPFlag(f.Name, f)
		_ = v.BindEnv(f.Name)
		if !f.Changed && v.IsSet(f.Name) {
			_ = fs.Set(f.Name, fmt.Sprintf("%v", v.Get(f.Name)))
		}
	})
}

// NewLogger builds the process logger for env: verbose text output in
// development, warnings and errors as JSON in production.
func NewLogger(env string) *logrus.Logger {
	logger := logrus.New()
	if env == EnvProduction {
		logger.SetLevel(logrus.WarnLevel)
		logger.SetFormatter(&logrus.JSONFormatter{})
		return logger
	}
	logger.SetLevel(logrus.DebugLevel)
	logger.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	return logger
}
