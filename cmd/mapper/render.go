package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"address-mapper/internal/geocoder"
	"address-mapper/internal/models"
	"address-mapper/internal/render"
	"address-mapper/internal/service"
	"address-mapper/internal/table"

	"github.com/mattn/go-isatty"
	"github.com/rs/zerolog/log"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
)

type renderOptions struct {
	file    string
	out     string
	geojson string
	csv     string
}

func newRenderCmd(a *app) *cobra.Command {
	opts := renderOptions{}

	cmd := &cobra.Command{
		Use:   "render",
		Short: "Geocode an address table and write the map page",
		Long: "Reads a semicolon separated address table, geocodes every row and writes a standalone HTML map. " +
			"Rows that cannot be geocoded are left off the map.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.render(cmd.Context(), opts)
		},
	}

	cmd.Flags().StringVar(&opts.file, "file", "", "address table to geocode")
	cmd.Flags().StringVar(&opts.out, "out", "map.html", "path of the HTML map to write")
	cmd.Flags().StringVar(&opts.geojson, "geojson", "", "also write the geocoded rows as GeoJSON")
	cmd.Flags().StringVar(&opts.csv, "csv", "", "also write the geocoded table")
	_ = cmd.MarkFlagRequired("file")

	return cmd
}

func (a *app) render(ctx context.Context, opts renderOptions) error {
	provider, err := geocoder.New(a.cfg)
	if err != nil {
		return err
	}

	var cache service.GeoCodeCache
	if a.cfg.CacheEnabled {
		repo, pool, err := a.openRepository(ctx)
		if err != nil {
			return err
		}
		defer pool.Close()
		cache = repo
	}

	in, err := os.Open(opts.file)
	if err != nil {
		return fmt.Errorf("open address table: %w", err)
	}
	defer in.Close()

	pipeline := service.NewPipeline(service.NewGeoCodeService(provider, cache), a.cfg.MapZoom)

	var bar *progressbar.ProgressBar
	progress := func(p models.Progress) {
		if bar == nil {
			bar = progressbar.NewOptions(p.Total,
				progressbar.OptionSetDescription("Geocoding "+filepath.Base(opts.file)),
				progressbar.OptionSetWriter(os.Stderr),
				progressbar.OptionShowCount(),
				progressbar.OptionClearOnFinish(),
			)
		}
		_ = bar.Set(p.Processed)
	}
	if !isatty.IsTerminal(os.Stderr.Fd()) {
		progress = nil
	}

	result, err := pipeline.Run(ctx, in, progress)
	if bar != nil {
		_ = bar.Finish()
	}
	if err != nil {
		return err
	}

	if opts.csv != "" {
		if err := writeFile(opts.csv, func(f *os.File) error {
			return table.WriteGeocoded(f, result.Records)
		}); err != nil {
			return err
		}
		log.Info().Str("file", opts.csv).Msg("geocoded table written")
	}

	if opts.geojson != "" {
		if err := writeFile(opts.geojson, func(f *os.File) error {
			return json.NewEncoder(f).Encode(render.FeatureCollection(result.Records))
		}); err != nil {
			return err
		}
		log.Info().Str("file", opts.geojson).Msg("geojson written")
	}

	if result.Map == nil {
		log.Warn().Str("file", opts.file).Msg(result.Warning)
		return nil
	}

	title := "Adressen aus " + filepath.Base(opts.file)
	if err := writeFile(opts.out, func(f *os.File) error {
		return render.NewLeaflet().RenderDocument(f, title, result.Map)
	}); err != nil {
		return err
	}

	log.Info().
		Str("file", opts.out).
		Int("markers", len(result.Map.Markers)).
		Int("rows", len(result.Records)).
		Msg("map written")

	return nil
}

func writeFile(path string, write func(f *os.File) error) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}

	if err := write(f); err != nil {
		f.Close()
		return fmt.Errorf("write %s: %w", path, err)
	}

	return f.Close()
}
