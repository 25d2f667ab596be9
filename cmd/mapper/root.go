package main

import (
	"context"
	"fmt"

	"address-mapper/internal/config"
	"address-mapper/internal/logging"
	"address-mapper/internal/repository"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"
)

// app carries what every subcommand needs once the root command has loaded
// the configuration.
type app struct {
	configDir string
	cfg       config.Config
}

func newRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:           "mapper",
		Short:         "Geocode address tables and render them on a map",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig(a.configDir)
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}
			a.cfg = cfg

			if err := logging.Setup(cfg.LogLevel); err != nil {
				return fmt.Errorf("init logger: %w", err)
			}

			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configDir, "config", "./configs", "directory containing app.env")

	root.AddCommand(newRenderCmd(a))
	root.AddCommand(newCacheCmd(a))

	return root
}

// openRepository connects to the cache database. The caller closes the pool.
func (a *app) openRepository(ctx context.Context) (*repository.Repository, *pgxpool.Pool, error) {
	if a.cfg.DBSource == "" {
		return nil, nil, fmt.Errorf("DB_SOURCE is not configured")
	}

	pool, err := pgxpool.New(ctx, a.cfg.DBSource)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to db: %w", err)
	}

	return repository.NewRepository(pool), pool, nil
}
