package main

import (
	"fmt"
	"os"

	"address-mapper/internal/table"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

func newCacheCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the geocode cache",
	}

	cmd.AddCommand(newCacheMigrateCmd(a))
	cmd.AddCommand(newCacheSeedCmd(a))

	return cmd
}

func newCacheMigrateCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create the geocode cache schema",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			repo, pool, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repo.CreateSchema(ctx); err != nil {
				return err
			}

			log.Info().Msg("geocode cache schema ready")
			return nil
		},
	}
}

func newCacheSeedCmd(a *app) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Bulk load known coordinates into the geocode cache",
		Long:  "Reads a semicolon separated table with the columns Adresse, Latitude and Longitude and copies it into an empty cache.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			f, err := os.Open(file)
			if err != nil {
				return fmt.Errorf("open seed file: %w", err)
			}
			defer f.Close()

			locations, err := table.ReadCacheSeed(f)
			if err != nil {
				return err
			}
			log.Info().Int("rows", len(locations)).Str("file", file).Msg("seed file parsed")

			repo, pool, err := a.openRepository(ctx)
			if err != nil {
				return err
			}
			defer pool.Close()

			if err := repo.CreateSchema(ctx); err != nil {
				return err
			}

			n, err := repo.SeedLocations(ctx, locations)
			if err != nil {
				return err
			}

			total, err := repo.CountCachedLocations(ctx)
			if err != nil {
				return err
			}

			log.Info().Int64("inserted", n).Int64("cached", total).Msg("geocode cache seeded")
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "path to the seed table")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}
