package crs

import (
	"fmt"
	"math"
	"testing"

	"github.com/woozymasta/speckle2geojson/internal/fault"
	"github.com/woozymasta/speckle2geojson/internal/scene"
	"github.com/woozymasta/speckle2geojson/internal/traverse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const utm33WKT2 = `PROJCRS["WGS 84 / UTM zone 33N",BASEGEOGCRS["WGS 84",DATUM["World Geodetic System 1984",` +
	`ELLIPSOID["WGS 84",6378137,298.257223563,LENGTHUNIT["metre",1]]],PRIMEM["Greenwich",0,ANGLEUNIT["degree",0.0174532925199433]]],` +
	`CONVERSION["UTM zone 33N",METHOD["Transverse Mercator",ID["EPSG",9807]],` +
	`PARAMETER["Latitude of natural origin",0,ANGLEUNIT["degree",0.0174532925199433]],` +
	`PARAMETER["Longitude of natural origin",15,ANGLEUNIT["degree",0.0174532925199433]],` +
	`PARAMETER["Scale factor at natural origin",0.9996,SCALEUNIT["unity",1]],` +
	`PARAMETER["False easting",500000,LENGTHUNIT["metre",1]],` +
	`PARAMETER["False northing",0,LENGTHUNIT["metre",1]]],` +
	`CS[Cartesian,2],AXIS["(E)",east,ORDER[1],LENGTHUNIT["metre",1]],AXIS["(N)",north,ORDER[2],LENGTHUNIT["metre",1]],` +
	`ID["EPSG",32633]]`

func walk(root *scene.Node) *traverse.Arena {
	return traverse.Walk(root).All()
}

func TestSynthesizeDefaultAnchor(t *testing.T) {
	arena := walk(scene.New("Objects.Geometry.Point", "p1", scene.M("x", 0.0), scene.M("y", 0.0)))

	def, err := Resolve(arena, DefaultHints())
	require.NoError(t, err)

	assert.Equal(t, SourceSynthesized, def.Source)
	assert.Equal(t, "SpeckleCRS_latlon_51.52486388756923_0.1621445437168942", def.Name)

	tm, ok := def.Projection().(*Projected)
	require.True(t, ok)
	assert.Equal(t, MethodTransverseMercator, tm.Method())
	assert.Equal(t, DefaultLon, tm.Params.CentralMeridian)
	assert.Equal(t, DefaultLat, tm.Params.LatitudeOrigin)
	assert.Equal(t, 1.0, tm.Params.ScaleFactor)
	assert.Zero(t, tm.Params.FalseEasting)
	assert.Zero(t, tm.Params.FalseNorthing)
	assert.False(t, tm.Datum.Shifted())

	lon, lat := tm.Inverse(0, 0)
	assert.InDelta(t, DefaultLon, lon, 1e-7)
	assert.InDelta(t, DefaultLat, lat, 1e-7)
}

func TestDefaultWKT(t *testing.T) {
	wkt := DefaultWKT(10, -3.5)
	assert.Contains(t, wkt, `PROJCS["SpeckleCRS_latlon_10.0_-3.5"`)
	assert.Contains(t, wkt, `PARAMETER["Central_Meridian", -3.5]`)
	assert.Contains(t, wkt, `PARAMETER["Latitude_Of_Origin", 10.0]`)
}

const lambert93WKT = `PROJCS["RGF93 v1 / Lambert-93",GEOGCS["RGF93 v1",DATUM["Reseau_Geodesique_Francais_1993_v1",` +
	`SPHEROID["GRS 1980",6378137,298.257222101],TOWGS84[0,0,0,0,0,0,0]],PRIMEM["Greenwich",0],` +
	`UNIT["degree",0.0174532925199433]],PROJECTION["Lambert_Conformal_Conic_2SP"],` +
	`PARAMETER["latitude_of_origin",46.5],PARAMETER["central_meridian",3],` +
	`PARAMETER["standard_parallel_1",49],PARAMETER["standard_parallel_2",44],` +
	`PARAMETER["false_easting",700000],PARAMETER["false_northing",6600000],` +
	`UNIT["metre",1],AUTHORITY["EPSG","2154"]]`

const osgbWKT = `PROJCS["OSGB36 / British National Grid",GEOGCS["OSGB36",DATUM["Ordnance_Survey_of_Great_Britain_1936",` +
	`SPHEROID["Airy 1830",6377563.396,299.3249646]%s],PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],` +
	`PROJECTION["Transverse_Mercator"],PARAMETER["latitude_of_origin",49],PARAMETER["central_meridian",-2],` +
	`PARAMETER["scale_factor",0.9996012717],PARAMETER["false_easting",400000],PARAMETER["false_northing",-100000],` +
	`UNIT["metre",1]]`

const osgbShift = `,TOWGS84[446.448,-125.157,542.06,0.15,0.247,0.842,-20.489]`

func TestTransverseMercatorRoundTrip(t *testing.T) {
	tm, err := NewProjected(MethodTransverseMercator, DatumWGS84,
		Parameters{CentralMeridian: 15, ScaleFactor: 0.9996, FalseEasting: 500000})
	require.NoError(t, err)

	x, y := tm.Forward(15, 0)
	assert.InDelta(t, 500000, x, 1e-3)
	assert.InDelta(t, 0, y, 1e-3)

	points := [][2]float64{{15.5, 52.3}, {13.1, 47.9}, {17.9, -33.2}, {15, 70}}
	for _, p := range points {
		x, y := tm.Forward(p[0], p[1])
		lon, lat := tm.Inverse(x, y)
		assert.InDelta(t, p[0], lon, 1e-7)
		assert.InDelta(t, p[1], lat, 1e-7)
	}
}

func TestParseWKT2(t *testing.T) {
	sys, err := parseSystem(utm33WKT2)
	require.NoError(t, err)

	assert.Equal(t, "WGS 84 / UTM zone 33N", sys.name)
	assert.Equal(t, "EPSG:32633", sys.authority)

	tm, ok := sys.proj.(*Projected)
	require.True(t, ok)
	assert.InDelta(t, 15, tm.Params.CentralMeridian, 1e-12)
	assert.InDelta(t, 0.9996, tm.Params.ScaleFactor, 1e-12)
	assert.InDelta(t, 500000, tm.Params.FalseEasting, 1e-9)

	lon, lat := tm.Inverse(500000, 0)
	assert.InDelta(t, 15, lon, 1e-7)
	assert.InDelta(t, 0, lat, 1e-7)
}

func TestParseWKT1Feet(t *testing.T) {
	wkt := `PROJCS["Local TM ft",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]],` +
		`PRIMEM["Greenwich",0],UNIT["degree",0.0174532925199433]],PROJECTION["Transverse_Mercator"],` +
		`PARAMETER["latitude_of_origin",0],PARAMETER["central_meridian",9],PARAMETER["scale_factor",1],` +
		`PARAMETER["false_easting",1000],PARAMETER["false_northing",0],UNIT["foot",0.3048]]`

	sys, err := parseSystem(wkt)
	require.NoError(t, err)

	tm := sys.proj.(*Projected)
	assert.InDelta(t, 304.8, tm.Params.FalseEasting, 1e-9)
	assert.Equal(t, "", sys.authority)
}

func TestParseWKTLambertConic(t *testing.T) {
	sys, err := parseSystem(lambert93WKT)
	require.NoError(t, err)
	assert.Equal(t, "EPSG:2154", sys.authority)

	lcc, ok := sys.proj.(*Projected)
	require.True(t, ok)
	assert.Equal(t, MethodLambertConic, lcc.Method())
	assert.Equal(t, 49.0, lcc.Params.StandardParallel1)
	assert.Equal(t, 44.0, lcc.Params.StandardParallel2)

	// false origin
	lon, lat := lcc.Inverse(700000, 6600000)
	assert.InDelta(t, 3, lon, 1e-7)
	assert.InDelta(t, 46.5, lat, 1e-7)

	// Paris, round trip through the cone
	x, y := lcc.Forward(2.3522, 48.8566)
	assert.InDelta(t, 652000, x, 2000)
	assert.InDelta(t, 6862000, y, 2000)
	lon, lat = lcc.Inverse(x, y)
	assert.InDelta(t, 2.3522, lon, 1e-7)
	assert.InDelta(t, 48.8566, lat, 1e-7)
}

func TestParseWKTDatumShift(t *testing.T) {
	shifted, err := parseSystem(fmt.Sprintf(osgbWKT, osgbShift))
	require.NoError(t, err)
	plain, err := parseSystem(fmt.Sprintf(osgbWKT, ""))
	require.NoError(t, err)

	tm := shifted.proj.(*Projected)
	assert.True(t, tm.Datum.Shifted())
	assert.Equal(t, 446.448, tm.Datum.ToWGS84[0])
	assert.False(t, plain.proj.(*Projected).Datum.Shifted())

	// Westminster in British National Grid
	lonS, latS := shifted.proj.Inverse(530268, 179640)
	lonP, latP := plain.proj.Inverse(530268, 179640)

	assert.InDelta(t, -0.1246, lonS, 0.002)
	assert.InDelta(t, 51.5007, latS, 0.002)

	// OSGB36 sits roughly 100 m off WGS84 around London
	dx := (lonS - lonP) * 111320 * math.Cos(latS*math.Pi/180)
	dy := (latS - latP) * 110540
	shift := math.Hypot(dx, dy)
	assert.Greater(t, shift, 50.0)
	assert.Less(t, shift, 200.0)
}

func TestParseWKT2BoundCRS(t *testing.T) {
	wkt := `BOUNDCRS[SOURCECRS[` + utm33WKT2 + `],TARGETCRS[GEOGCRS["WGS 84",DATUM["World Geodetic System 1984",` +
		`ELLIPSOID["WGS 84",6378137,298.257223563]]]],ABRIDGEDTRANSFORMATION["to WGS 84",` +
		`METHOD["Coordinate Frame rotation (geog2D domain)"],PARAMETER["X-axis translation",1],` +
		`PARAMETER["Y-axis translation",2],PARAMETER["Z-axis translation",3],PARAMETER["X-axis rotation",0.5],` +
		`PARAMETER["Y-axis rotation",0],PARAMETER["Z-axis rotation",0],PARAMETER["Scale difference",1.5]]]`

	sys, err := parseSystem(wkt)
	require.NoError(t, err)
	assert.Equal(t, "WGS 84 / UTM zone 33N", sys.name)

	tm := sys.proj.(*Projected)
	assert.Equal(t, Helmert{1, 2, 3, -0.5, 0, 0, 1.5}, tm.Datum.ToWGS84)
}

func TestParseWKTErrors(t *testing.T) {
	tests := map[string]string{
		"garbage":     `not wkt at all [`,
		"unterminated": `PROJCS["x", GEOGCS["y"`,
		"lambert without parallels": `PROJCS["LCC",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]]],` +
			`PROJECTION["Lambert_Conformal_Conic_2SP"],UNIT["metre",1]]`,
		"oblique": `PROJCS["Hotine",GEOGCS["WGS 84",DATUM["WGS_1984",SPHEROID["WGS 84",6378137,298.257223563]]],` +
			`PROJECTION["Hotine_Oblique_Mercator"],UNIT["metre",1]]`,
		"vertical": `VERTCS["NAVD88"]`,
	}

	for name, wkt := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := parseSystem(wkt)
			assert.Error(t, err)
		})
	}
}

func TestParseAuthority(t *testing.T) {
	tests := []struct {
		in   string
		code int
		err  bool
	}{
		{"EPSG:32633", 32633, false},
		{"epsg:3857", 3857, false},
		{"urn:ogc:def:crs:EPSG::4326", 4326, false},
		{"4258", 4258, false},
		{"OGC:CRS84", 4326, false},
		{"ESRI:102100", 0, true},
		{"EPSG:abc", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			code, err := ParseAuthority(tt.in)
			if tt.err {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.code, code)
		})
	}
}

func TestResolveAuthorityPrecedence(t *testing.T) {
	declared := scene.New("Objects.GIS.CRS", "crs1",
		scene.M("wkt", utm33WKT2),
		scene.M("offset_x", 100.0),
		scene.M("rotation", 45.0),
	)
	root := scene.New("Objects.GIS.VectorLayer", "layer",
		scene.M("crs", declared),
		scene.M("elements", []any{
			scene.New("Objects.Geometry.Point", "p1", scene.M("x", 1.0), scene.M("y", 2.0), scene.M("units", "ft")),
		}),
	)

	def, err := Resolve(walk(root), Hints{Authority: "EPSG:3857", NorthOffset: 10})
	require.NoError(t, err)

	assert.Equal(t, SourceAuthority, def.Source)
	assert.Equal(t, "EPSG:3857", def.Authority)
	assert.Equal(t, 10.0, def.Rotation)
	assert.Zero(t, def.OffsetX)
	assert.Equal(t, "ft", def.Units)
	assert.InDelta(t, 0.3048, def.Scale, 1e-12)
	assert.Equal(t, "EPSG:3857, WGS 84 / Pseudo-Mercator", def.ModelCRS())
}

func TestResolveDeclared(t *testing.T) {
	declared := scene.New("Objects.GIS.CRS", "crs1",
		scene.M("wkt", utm33WKT2),
		scene.M("units_native", "m"),
		scene.M("offset_x", 100.0),
		scene.M("offset_y", int64(-50)),
		scene.M("rotation", 45.0),
	)
	point := scene.New("Objects.Geometry.Point", "p1", scene.M("x", 1.0), scene.M("y", 2.0))
	root := scene.New("Speckle.Core.Models.Collection", "root",
		scene.M("elements", []any{
			scene.New("Objects.GIS.VectorLayer", "layer",
				scene.M("crs", declared),
				scene.M("elements", []any{point}),
			),
		}),
	)

	def, err := Resolve(walk(root), Hints{Lat: 1, Lon: 2, NorthOffset: 10})
	require.NoError(t, err)

	assert.Equal(t, SourceDeclared, def.Source)
	assert.Equal(t, 100.0, def.OffsetX)
	assert.Equal(t, -50.0, def.OffsetY)
	assert.Equal(t, 45.0, def.Rotation)
	assert.Equal(t, 1.0, def.Scale)
	assert.Equal(t, "EPSG:32633, WGS 84 / UTM zone 33N", def.ModelCRS())
}

func TestResolveDeclaredWithoutRotationUsesHint(t *testing.T) {
	root := scene.New("Objects.GIS.VectorLayer", "layer",
		scene.M("crs", scene.New("Objects.GIS.CRS", "crs1", scene.M("authority_id", "EPSG:4326"))),
		scene.M("elements", []any{scene.New("Objects.Geometry.Point", "p1")}),
	)

	def, err := Resolve(walk(root), Hints{NorthOffset: 7})
	require.NoError(t, err)
	assert.Equal(t, 7.0, def.Rotation)
	assert.Equal(t, "EPSG:4326", def.Authority)
}

func TestResolveAuthorityCodes(t *testing.T) {
	tests := []struct {
		code     string
		method   string
		x, y     float64
		lon, lat float64
		tol      float64
	}{
		{"EPSG:2154", MethodLambertConic, 700000, 6600000, 3, 46.5, 1e-7},
		{"EPSG:27700", MethodTransverseMercator, 530268, 179640, -0.1246, 51.5007, 0.002},
		{"EPSG:5070", MethodAlbers, 0, 0, -96, 23, 1e-7},
		{"EPSG:31467", MethodTransverseMercator, 3500000, 5761000, 9, 51.98, 0.01},
		{"EPSG:32633", MethodTransverseMercator, 500000, 0, 15, 0, 1e-7},
	}

	for _, tt := range tests {
		t.Run(tt.code, func(t *testing.T) {
			def, err := Resolve(walk(scene.New("Base", "r")), Hints{Authority: tt.code})
			require.NoError(t, err)
			assert.Equal(t, SourceAuthority, def.Source)
			assert.Equal(t, tt.method, def.Projection().Method())

			lon, lat := def.Projection().Inverse(tt.x, tt.y)
			assert.InDelta(t, tt.lon, lon, tt.tol)
			assert.InDelta(t, tt.lat, lat, tt.tol)
		})
	}
}

func TestResolveDeclaredLambert(t *testing.T) {
	root := scene.New("Objects.GIS.VectorLayer", "layer",
		scene.M("crs", scene.New("Objects.GIS.CRS", "c", scene.M("wkt", lambert93WKT))),
		scene.M("elements", []any{scene.New("Objects.Geometry.Point", "p1")}),
	)

	def, err := Resolve(walk(root), DefaultHints())
	require.NoError(t, err)
	assert.Equal(t, SourceDeclared, def.Source)
	assert.Equal(t, "EPSG:2154, RGF93 v1 / Lambert-93", def.ModelCRS())
}

func TestResolveFailures(t *testing.T) {
	root := scene.New("Objects.GIS.VectorLayer", "layer",
		scene.M("crs", scene.New("Objects.GIS.CRS", "bad", scene.M("wkt", `LOCAL_CS["nowhere"]`))),
		scene.M("elements", []any{scene.New("Objects.Geometry.Point", "p1")}),
	)

	_, err := Resolve(walk(root), DefaultHints())
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.CRSNotResolvable))

	_, err = Resolve(walk(scene.New("Base", "r")), Hints{Authority: "EPSG:999999"})
	require.Error(t, err)
	assert.True(t, fault.IsKind(err, fault.CRSNotResolvable))
}

func TestDisplayUnits(t *testing.T) {
	mesh := scene.New("Objects.Geometry.Mesh", "m1", scene.M("units", "mm"))
	wall := scene.New("Objects.BuiltElements.Revit.RevitWall", "w1",
		scene.M("units", "ft"),
		scene.M("displayValue", []any{mesh}),
	)
	root := scene.New("Base", "root", scene.M("units", "km"), scene.M("elements", []any{wall}))

	// root declares units before any displayable node
	assert.Equal(t, "km", DisplayUnits(walk(root)))

	root = scene.New("Base", "root", scene.M("elements", []any{wall}))
	assert.Equal(t, "mm", DisplayUnits(walk(root)))
}

func TestUnitScale(t *testing.T) {
	assert.Equal(t, 0.001, UnitScale("mm"))
	assert.Equal(t, 0.3048, UnitScale("Feet"))
	assert.InDelta(t, 0.3048006096, UnitScale("US Survey Feet"), 1e-9)
	assert.Equal(t, 1.0, UnitScale("none"))
	assert.Equal(t, 1.0, UnitScale(""))
	assert.False(t, KnownUnit("parsec"))
}
