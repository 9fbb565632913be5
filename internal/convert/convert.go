package convert

import (
	"context"
	"fmt"
	"maps"
	"slices"
	"time"

	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/display"
	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/geo"
	"github.com/woozymasta/speckle2geojson/internal/geometry"
	"github.com/woozymasta/speckle2geojson/internal/props"
	"github.com/woozymasta/speckle2geojson/internal/scene"
	"github.com/woozymasta/speckle2geojson/internal/transform"
	"github.com/woozymasta/speckle2geojson/internal/traverse"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

// Converter runs conversions. It is safe for concurrent use; every run owns
// its own traversal, buffer and CRS.
type Converter struct {
	meter   metric.Meter
	tracer  trace.Tracer
	metrics *telemetry
}

// New creates a converter. Without options telemetry goes to no-op providers.
func New(opts ...Option) (*Converter, error) {
	c := &Converter{}
	for _, opt := range opts {
		opt(c)
	}

	m, err := newTelemetry(c.meter)
	if err != nil {
		return nil, err
	}
	c.metrics = m

	return c, nil
}

// Convert runs one conversion with a default converter.
func Convert(root *scene.Node, p Params) (*geo.FeatureCollection, *Report, error) {
	c, err := New()
	if err != nil {
		return nil, nil, err
	}
	return c.Convert(context.Background(), root, p)
}

// run is the state of one conversion.
type run struct {
	log     zerolog.Logger
	params  Params
	report  *Report
	where   *props.Where
	palette display.Palette
	buf     *transform.Buffer
	fc      *geo.FeatureCollection

	// buffer layout of every feature and comment, parallel to fc slices
	featureLayouts []int
	commentLayouts []int
}

// Convert turns the scene graph under root into a feature collection.
// ctx carries telemetry only, a run always completes or fails on its own.
//
// The returned report is set even when the run fails.
func (c *Converter) Convert(ctx context.Context, root *scene.Node, p Params) (*geo.FeatureCollection, *Report, error) {
	runID := uuid.New().String()
	report := &Report{RunID: runID}

	ctx, span := c.startSpan(ctx, runID)
	defer span.End()

	fc, err := c.convert(root, p, report)
	c.record(ctx, span, report, err)
	if err != nil {
		return nil, report, err
	}
	return fc, report, nil
}

func (c *Converter) convert(root *scene.Node, p Params, report *Report) (*geo.FeatureCollection, error) {
	if root == nil {
		return nil, fault.New(fault.MalformedNode, "convert", "no root node")
	}

	where, err := props.CompileWhere(p.Where)
	if err != nil {
		return nil, err
	}

	r := &run{
		log:    log.With().Str("run", report.RunID).Logger(),
		params: p,
		report: report,
		where:  where,
		buf:    transform.NewBuffer(),
		fc:     geo.NewFeatureCollection(),
	}

	start := time.Now()
	arena := traverse.Walk(root).All()
	r.log.Debug().Int("nodes", arena.Len()).Str("root", root.ID).Msg("Scene walked")

	def, err := crs.Resolve(arena, p.hints())
	if err != nil {
		return nil, err
	}
	report.CRS = def
	r.log.Info().
		Str("crs", def.Name).
		Str("source", string(def.Source)).
		Str("units", def.Units).
		Float64("rotation", def.Rotation).
		Msg("CRS resolved")

	r.palette = display.NewPalette(arena)

	if p.DataType != DataComments {
		for i := 0; i < arena.Len(); i++ {
			r.visit(arena.At(i))
		}
	}
	r.finishFeatures()

	if p.DataType.wantsComments() {
		r.addComments()
	}
	report.CreateDuration = time.Since(start)

	if len(r.fc.Features) == 0 && len(r.fc.Comments) == 0 {
		return nil, fault.New(fault.NoSupportedFeatures, "convert", "No supported features found")
	}

	start = time.Now()
	if err := r.transform(); err != nil {
		return nil, err
	}
	report.TransformDuration = time.Since(start)

	r.fc.Project = p.Project
	r.fc.Model = p.Model
	if def.Source != crs.SourceSynthesized {
		r.fc.ModelCRS = def.ModelCRS()
	}
	r.fc.NumberMatched = report.Matched
	r.fc.NumberReturned = report.Returned

	r.log.Info().
		Int("matched", report.Matched).
		Int("returned", report.Returned).
		Int("comments", report.Comments).
		Int("unsupported", report.SkippedUnsupported).
		Int("malformed", report.SkippedMalformed).
		Int("filtered", report.Filtered).
		Dur("create", report.CreateDuration).
		Dur("transform", report.TransformDuration).
		Msg("Conversion done")

	return r.fc, nil
}

// visit turns one walked node into zero or more features.
func (r *run) visit(c traverse.Context) {
	if c.Kind == scene.KindUnknown {
		r.report.SkippedUnsupported++
		r.log.Debug().Str("id", c.Node.ID).Str("type", c.Node.Type).Msg("Unsupported node type")
		return
	}
	if !c.Kind.Terminal() {
		return
	}

	geomNode, colorNode, err := geometry.Displayable(c.Node)
	var shapes []geometry.Shape
	if err == nil {
		shapes, err = geometry.Decode(geomNode)
	}
	if err != nil {
		if fault.IsKind(err, fault.UnsupportedGeometryType) {
			r.report.SkippedUnsupported++
		} else {
			r.report.SkippedMalformed++
		}
		r.log.Debug().Err(err).Str("id", c.Node.ID).Str("type", c.Node.Type).Msg("Node skipped")
		return
	}

	if !r.params.PreserveAttributes && len(shapes) > 1 {
		shapes = shapes[:1]
	}
	shapes = slices.DeleteFunc(shapes, func(s geometry.Shape) bool {
		return !r.params.DataType.accepts(s.Family())
	})
	if len(shapes) == 0 {
		r.report.Filtered++
		return
	}

	base := props.Seed(c.Node, len(r.fc.Features)+1)
	props.Extract(c.Node, base)
	if !props.Match(base, r.params.Properties) || !r.where.Match(base) {
		r.report.Filtered++
		return
	}

	for k, s := range shapes {
		r.report.Matched++
		if r.params.Limit > 0 && len(r.fc.Features) >= r.params.Limit {
			continue
		}

		properties := maps.Clone(base)
		properties[props.KeyFID] = len(r.fc.Features) + 1

		id := c.Node.ID
		if len(shapes) > 1 {
			id = fmt.Sprintf("%s_%d", c.Node.ID, k+1)
		}

		r.featureLayouts = append(r.featureLayouts, r.buf.Append(s))
		r.fc.Features = append(r.fc.Features, geo.Feature{
			Type:              "Feature",
			ID:                id,
			Properties:        properties,
			DisplayProperties: r.palette.Properties(colorNode, c.Kind, s.Type, properties),
		})
	}
}

// finishFeatures applies property selection, normalizes the schema and
// records truncation.
func (r *run) finishFeatures() {
	all := make([]map[string]any, len(r.fc.Features))
	for i := range r.fc.Features {
		if len(r.params.SelectProperties) > 0 {
			r.fc.Features[i].Properties = props.Select(r.fc.Features[i].Properties, r.params.SelectProperties)
		}
		all[i] = r.fc.Features[i].Properties
	}
	r.report.Fields = props.Normalize(all)
	r.report.Returned = len(r.fc.Features)

	if r.report.Matched > r.report.Returned {
		r.report.LimitMessage = fmt.Sprintf(
			"Feature limit of %d reached: returned %d of %d matched features",
			r.params.Limit, r.report.Returned, r.report.Matched)
		r.log.Warn().Msg(r.report.LimitMessage)
	}
}

// addComments turns comment threads into comment features, ordered by id.
// Their positions go to the buffer after every feature.
func (r *run) addComments() {
	for _, id := range slices.Sorted(maps.Keys(r.params.Comments)) {
		thread := r.params.Comments[id]

		shapes, err := thread.shapes()
		if err != nil || len(shapes) == 0 {
			r.report.SkippedMalformed++
			r.log.Debug().Err(err).Str("comment", id).Msg("Comment without usable position")
			continue
		}

		text, urls := RenderThread(thread.Items)
		r.commentLayouts = append(r.commentLayouts, r.buf.Append(shapes[0]))
		r.fc.Comments = append(r.fc.Comments, geo.Feature{
			Type:       "Feature",
			ID:         id,
			Properties: map[string]any{"text": text, "urls": urls},
		})
	}
	r.report.Comments = len(r.fc.Comments)
}

// transform projects the whole buffer and hands geometries back to features.
func (r *run) transform() error {
	if err := transform.Apply(r.report.CRS, r.buf); err != nil {
		return err
	}

	geoms, err := r.buf.Geometries()
	if err != nil {
		return fault.Wrap(fault.TransformFailure, "slice", err)
	}

	assign := func(features []geo.Feature, layouts []int) {
		for i, li := range layouts {
			features[i].BBox = bbox(geoms[li], r.buf.Heights(li), r.params.IncludeHeight)
			if !r.params.SkipGeometry {
				features[i].Geometry = geo.Geometry{Value: geoms[li]}
			}
		}
	}
	assign(r.fc.Features, r.featureLayouts)
	assign(r.fc.Comments, r.commentLayouts)

	return nil
}

// bbox returns [minX, minY, maxX, maxY], or with heights
// [minX, minY, minZ, maxX, maxY, maxZ].
func bbox(g orb.Geometry, heights []float64, withHeight bool) []float64 {
	b := g.Bound()
	if !withHeight || len(heights) == 0 {
		return []float64{b.Min[0], b.Min[1], b.Max[0], b.Max[1]}
	}
	return []float64{b.Min[0], b.Min[1], slices.Min(heights), b.Max[0], b.Max[1], slices.Max(heights)}
}
