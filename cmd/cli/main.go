package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/iho/casinowallet/internal/infrastructure/config"
	"github.com/iho/casinowallet/internal/infrastructure/logger"
	"github.com/iho/casinowallet/internal/infrastructure/postgres"
)

// app carries what the subcommands share. Settings come from the same
// environment as the server; flags override them.
type app struct {
	cfg     *config.Config
	log     zerolog.Logger
	timeout time.Duration
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	a := &app{}
	var databaseURL string

	rootCmd := &cobra.Command{
		Use:           "walletctl",
		Short:         "Casino wallet operations tool",
		Long:          `Schema migrations, reconciliation, tokens and brand administration for the casino wallet.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load()
			if err != nil {
				return err
			}
			if databaseURL != "" {
				cfg.DatabaseURL = databaseURL
			}
			a.cfg = cfg
			a.log = logger.New(logger.Config{
				Level:  cfg.LogLevel,
				Format: "console",
				Output: cmd.ErrOrStderr(),
			})
			return nil
		},
	}

	rootCmd.PersistentFlags().StringVar(&databaseURL, "database-url", "", "PostgreSQL URL (defaults to DATABASE_URL)")
	rootCmd.PersistentFlags().DurationVar(&a.timeout, "timeout", 30*time.Second, "Command timeout")

	rootCmd.AddCommand(
		migrateCmd(a),
		reconcileCmd(a),
		tokenCmd(a),
		brandCmd(a),
		overdraftCmd(a),
		outboxCmd(a),
	)

	return rootCmd
}

// withPool opens a short-lived pool for one command.
func (a *app) withPool(ctx context.Context, fn func(ctx context.Context, pool *pgxpool.Pool) error) error {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	pool, err := postgres.NewPoolWithConfig(ctx, postgres.PoolConfig{
		DatabaseURL: a.cfg.DatabaseURL,
		MaxConns:    2,
		LockTimeout: a.cfg.LockTimeout,
	})
	if err != nil {
		return err
	}
	defer pool.Close()

	return fn(ctx, pool)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
