package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/woozymasta/speckle2geojson/internal/config"
	"github.com/woozymasta/speckle2geojson/internal/convert"
	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/logger"
	"github.com/woozymasta/speckle2geojson/internal/processor"
	"github.com/woozymasta/speckle2geojson/internal/props"
	"github.com/woozymasta/speckle2geojson/internal/telemetry"

	"github.com/jessevdk/go-flags"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

type Options struct {
	Logger    logger.Logger       `group:"Logger options"`
	Telemetry telemetry.Telemetry `group:"Telemetry options"`

	Input       string   `short:"i" long:"in"           description:"Scene JSON file path. Reads from stdin if empty"`
	Output      string   `short:"o" long:"out"          description:"Output file path. Writes to stdout if empty"`
	Format      string   `short:"f" long:"format"       description:"Output format" choice:"json" choice:"yaml" default:"json"`
	SceneFormat string   `short:"s" long:"scene"        description:"Scene layout" choice:"auto" choice:"tree" choice:"store" default:"auto"`
	Comments    string   `short:"m" long:"comments"     description:"Comment threads file (YAML or JSON)"`
	CRS         string   `short:"c" long:"crs"          description:"Authority code of the model CRS, e.g. EPSG:32633"`
	Where       string   `short:"w" long:"where"        description:"CEL filter over properties, e.g. 'properties.level == \"L1\"'"`
	DataType    string   `short:"t" long:"data-type"    description:"Feature types to emit" choice:"all" choice:"points" choice:"lines" choice:"polygons" choice:"comments" default:"all"`
	Properties  []string `short:"p" long:"property"     description:"Property equality filter name=value, repeatable"`
	Select      []string `short:"S" long:"select"       description:"Keep only these properties, repeatable"`
	Lat         float64  `long:"lat"                    description:"Latitude of the model origin" default:"51.52486388756923"`
	Lon         float64  `long:"lon"                    description:"Longitude of the model origin" default:"0.1621445437168942"`
	North       float64  `short:"n" long:"north"        description:"Angle to true north in degrees"`
	Limit       int      `short:"l" long:"limit"        description:"Maximum number of features, 0 for no limit" default:"10"`
	FirstFamily bool     `short:"F" long:"first-family" description:"Emit only the first geometry family of composite features"`
	Height      bool     `short:"H" long:"height"       description:"Include height range in bounding boxes"`
	NoGeometry  bool     `long:"no-geometry"            description:"Omit geometries, keep bounding boxes"`
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
		log.Fatal().
			Err(err).
			Str("kind", string(fault.KindOf(err))).
			Msg("Conversion failed")
	}
}

// run converts one scene and writes it as JSON or YAML.
func run(opts Options) error {
	params, err := opts.params()
	if err != nil {
		return fmt.Errorf("invalid options: %w", err)
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

	// Read Input
	var in io.Reader = os.Stdin
	if opts.Input != "" {
		f, err := os.Open(opts.Input)
		if err != nil {
			return fmt.Errorf("open input file: %w", err)
		}
		defer func() { _ = f.Close() }()
		in = f
	}

	root, err := processor.ReadScene(in, opts.SceneFormat)
	if err != nil {
		return fmt.Errorf("read scene: %w", err)
	}

	params.Comments, err = processor.LoadComments(opts.Comments)
	if err != nil {
		return fmt.Errorf("read comments: %w", err)
	}

	conv, err := convert.New(providers.Options()...)
	if err != nil {
		return fmt.Errorf("create converter: %w", err)
	}

	fc, report, err := conv.Convert(context.Background(), root, params)
	if err != nil {
		return fmt.Errorf("run %s: %w", report.RunID, err)
	}

	// marshal
	var outputData []byte
	if opts.Format == "yaml" {
		outputData, err = yaml.Marshal(fc)
	} else {
		outputData, err = json.MarshalIndent(fc, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal features: %w", err)
	}

	if opts.Output == "" {
		if _, err := os.Stdout.Write(append(outputData, '\n')); err != nil {
			return fmt.Errorf("write output: %w", err)
		}
		return nil
	}

	if err := os.WriteFile(opts.Output, outputData, 0644); err != nil {
		return fmt.Errorf("write output file: %w", err)
	}
	log.Info().
		Int("features", len(fc.Features)).
		Int("comments", len(fc.Comments)).
		Str("path", opts.Output).
		Str("format", opts.Format).
		Msg("Successfully converted scene")

	return nil
}

// params maps command line options onto engine parameters.
func (o Options) params() (convert.Params, error) {
	preserve := !o.FirstFamily
	req := config.Request{
		Lat:                &o.Lat,
		Lon:                &o.Lon,
		NorthOffset:        &o.North,
		Limit:              &o.Limit,
		PreserveAttributes: &preserve,
		IncludeHeight:      &o.Height,
		CRS:                o.CRS,
		Where:              o.Where,
		DataType:           o.DataType,
		SelectProperties:   o.Select,
	}

	if len(o.Properties) > 0 {
		req.Properties = make(map[string]string, len(o.Properties))
		for _, raw := range o.Properties {
			f, err := props.ParseFilter(raw)
			if err != nil {
				return convert.Params{}, err
			}
			req.Properties[f.Name] = f.Value
		}
	}

	if o.CRS != "" {
		if _, err := crs.ParseAuthority(o.CRS); err != nil {
			return convert.Params{}, err
		}
	}

	p, err := req.Params()
	if err != nil {
		return p, err
	}
	p.SkipGeometry = o.NoGeometry
	return p, nil
}
