// cmd/server/main.go
package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/jason-s-yu/codenames/internal/auth"
	"github.com/jason-s-yu/codenames/internal/cache"
	"github.com/jason-s-yu/codenames/internal/config"
	"github.com/jason-s-yu/codenames/internal/game"
	"github.com/jason-s-yu/codenames/internal/handlers"
	"github.com/jason-s-yu/codenames/internal/janitor"
	"github.com/jason-s-yu/codenames/internal/room"
	"github.com/jason-s-yu/codenames/internal/words"
)

const releaseVersion = "0.4.0"

func main() {
	cfg := &config.Config{}
	cobra.CheckErr(newCmd(cfg).Execute())
}

func newCmd(cfg *config.Config) *cobra.Command {
	cmd := &cobra.Command{
		Use:           "codenames",
		Short:         "Realtime Codenames game server.",
		Args:          cobra.ExactArgs(0),
		SilenceErrors: true,
		SilenceUsage:  true,
		Version:       releaseVersion,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := cfg.Validate(); err != nil {
				return err
			}
			return serve(cmd.Context(), cfg)
		},
	}

	fs := cmd.Flags()
	config.RegisterFlags(fs, cfg)
	config.ApplyEnv(fs)

	cmd.CompletionOptions.HiddenDefaultCmd = true
	cmd.SetHelpCommand(&cobra.Command{Hidden: true})
	cmd.SetVersionTemplate("codenames v{{.Version}}\n")

	return cmd
}

func serve(ctx context.Context, cfg *config.Config) error {
	if ctx == nil {
		ctx = context.Background()
	}
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := config.NewLogger(cfg.Env)

	bank, err := words.Default()
	if err != nil {
		return err
	}
	if cfg.WordsDir != "" {
		if err := bank.LoadDir(cfg.WordsDir); err != nil {
			return err
		}
	}
	if !bank.Has(cfg.Language) {
		return errors.New("no word list for default language " + cfg.Language)
	}
	logger.Infof("Word lists loaded: %v", bank.Languages())

	var tokens *auth.Issuer
	if cfg.TokenPrivateKey != "" {
		tokens, err = auth.NewIssuerFromPath(cfg.TokenPrivateKey, cfg.TokenPublicKey, cfg.TokenTTL)
	} else {
		tokens, err = auth.NewIssuer(cfg.TokenTTL)
	}
	if err != nil {
		return err
	}

	var recorder cache.Publisher = cache.Discard{}
	if cfg.RedisAddr != "" {
		rdb, err := cache.Connect(ctx, cfg.RedisAddr, cfg.RedisDB)
		if err != nil {
			return err
		}
		defer rdb.Close()
		recorder = cache.NewRecorder(rdb, cfg.RedisQueue)
		logger.Infof("Publishing action records to redis list %q", cfg.RedisQueue)
	}

	rules := game.DefaultRules()
	rules.EnforceHintOverlap = cfg.EnforceHintOverlap
	rules.MinPlayersPerTeam = cfg.MinPlayersPerTeam

	games := game.NewGameStore(bank, logger)
	srv := &handlers.Server{
		Players:         game.NewPlayerStore(),
		Games:           games,
		Hub:             room.NewHub(logger),
		Engine:          game.NewEngine(bank, rules, logger),
		Tokens:          tokens,
		Recorder:        recorder,
		Logger:          logger,
		Version:         releaseVersion,
		DefaultLanguage: cfg.Language,
		OriginPatterns:  cfg.AllowedOrigins,
	}

	reaper := janitor.New(games, func(code string) {
		srv.Dispose(code, "idle timeout")
	}, cfg.SessionTimeout, logger)
	if cfg.SessionTimeout > 0 {
		if err := reaper.Start(cfg.ReapInterval); err != nil {
			return err
		}
		defer reaper.Stop()
	}

	httpServer := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           srv.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
		ErrorLog:          log.New(logger.WriterLevel(logrus.WarnLevel), "", 0),
	}

	errs := make(chan error, 1)
	go func() {
		logger.Infof("Listening on %s", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errs <- err
		}
		close(errs)
	}()

	select {
	case <-ctx.Done():
		logger.Info("Shutting down")
	case err := <-errs:
		return err
	}

	srv.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		logger.WithError(err).Warn("http shutdown")
	}
	return nil
}
