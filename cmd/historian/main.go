// cmd/historian/main.go pops action records off the Redis queue the game
// server writes to and archives them in Postgres.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/joho/godotenv/autoload"
	"github.com/spf13/cobra"

	"github.com/jason-s-yu/codenames/internal/cache"
	"github.com/jason-s-yu/codenames/internal/config"
	"github.com/jason-s-yu/codenames/internal/database"
	"github.com/jason-s-yu/codenames/internal/historian"
)

func main() {
	cfg := &config.HistorianConfig{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.HistorianConfig) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "historian",
		Short:         "Archive Codenames action records from Redis into Postgres.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return run(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	config.RegisterHistorianFlags(fs, cfg)
	config.ApplyEnv(fs)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})

	return cmd
}

func run(ctx context.Context, cfg *config.HistorianConfig) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := config.NewLogger(cfg.Env)

	pool, err := database.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()
	if err := database.EnsureSchema(ctx, pool); err != nil {
		return err
	}

	rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
	if err != nil {
		return err
	}
	defer rdb.Close()

	opts := historian.DefaultOptions()
	opts.Queue = cfg.RedisQueue
	opts.BatchSize = cfg.BatchSize
	opts.FlushDelay = cfg.FlushDelay
	opts.Inactivity = cfg.Inactivity

	historian.New(rdb, database.NewStore(pool), opts, logger).Run(ctx)
	return nil
}
