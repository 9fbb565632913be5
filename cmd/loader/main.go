package main

import (
	"context"
	"fmt"
	"os"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/logger"
	"github.com/woozymasta/speckle2geojson/internal/processor"
	"github.com/woozymasta/speckle2geojson/internal/telemetry"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
)

type Options struct {
	Logger    logger.Logger       `group:"Logger options"`
	Telemetry telemetry.Telemetry `group:"Telemetry options"`

	ConfigFile  string   `short:"c" long:"config"      env:"CONFIG_FILE" description:"Path to configuration file" default:"config.yaml"`
	Output      string   `short:"o" long:"out"         env:"OUTPUT_DIR"  description:"Output directory, overrides the configuration"`
	Limit       []string `short:"l" long:"limit"       env:"LIMIT_NAMES" description:"Limit processing to specific model names"`
	Concurrency int      `short:"p" long:"concurrency" env:"CONCURRENCY" description:"Concurrency" default:"4"`
	Force       bool     `short:"f" long:"force"       description:"Force overwrite of existing files"`
}

func main() {
	var opts Options
	parser := flags.NewParser(&opts, flags.Default)
	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok && flagsErr.Type == flags.ErrHelp {
			os.Exit(0)
		}
		os.Exit(1)
	}

	opts.Logger.Setup()

	if err := run(opts); err != nil {
		log.Fatal().Err(err).Msg("Loader failed")
	}

	log.Info().Msg("Loader finished successfully")
}

// run processes the configured models and reports how many failed.
func run(opts Options) error {
	cfg, err := config.Load(opts.ConfigFile)
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	if opts.Output != "" {
		cfg.Output = opts.Output
	}

	if opts.Concurrency <= 0 {
		opts.Concurrency = 4
	}

	// Filter models if limit is set
	modelsToProcess := cfg.Models
	if len(opts.Limit) > 0 {
		var missing []string
		modelsToProcess, missing = cfg.Find(opts.Limit)
		for _, name := range missing {
			log.Error().
				Str("name", name).
				Msg("Model specified in --limit not found in configuration")
		}
	}

	providers, err := opts.Telemetry.Setup()
	if err != nil {
		return err
	}
	defer func() {
		if shutdownErr := providers.Shutdown(context.Background()); shutdownErr != nil {
			log.Error().Err(shutdownErr).Msg("Failed to flush telemetry")
		}
	}()

	log.Info().
		Int("models_total", len(cfg.Models)).
		Int("models_queued", len(modelsToProcess)).
		Int("concurrency", opts.Concurrency).
		Str("output", cfg.Output).
		Bool("telemetry", providers.Enabled()).
		Msg("Starting loader")

	conv, err := convert.New(providers.Options()...)
	if err != nil {
		return fmt.Errorf("create converter: %w", err)
	}

	results := processor.ProcessModels(
		context.Background(),
		conv,
		cfg.Output,
		modelsToProcess,
		opts.Concurrency,
		opts.Force)

	failed := 0
	for _, r := range results {
		if r.Err != nil {
			failed++
		}
	}

	if failed > 0 {
		return fmt.Errorf("%d of %d models failed", failed, len(results))
	}
	return nil
}
