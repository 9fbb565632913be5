package geo

import "math"

const (
	// EarthRadius is the WGS84 semi-major axis in meters, used by spherical Mercator.
	EarthRadius = 6378137.0

	// MaxLat is the latitude limit of the spherical Mercator square.
	MaxLat = 85.05112878

	deg2rad = math.Pi / 180.0
	rad2deg = 180.0 / math.Pi
)

// Rotation is a precomputed 2D rotation matrix.
type Rotation struct {
	cos, sin float64
}

// NewRotation builds a counterclockwise rotation by deg degrees.
func NewRotation(deg float64) Rotation {
	sin, cos := math.Sincos(deg * deg2rad)
	return Rotation{cos: cos, sin: sin}
}

// Apply rotates (x, y) around the origin:
// x' = x·cosθ − y·sinθ, y' = x·sinθ + y·cosθ.
func (r Rotation) Apply(x, y float64) (float64, float64) {
	return x*r.cos - y*r.sin, x*r.sin + y*r.cos
}

// MercatorToLonLat converts spherical (Web) Mercator meters to WGS84 lon/lat.
// Latitude is clamped to the Mercator square.
func MercatorToLonLat(x, y float64) (lon, lat float64) {
	lon = x / EarthRadius * rad2deg

	// Inverse Mercator projection
	latRad := (2.0 * math.Atan(math.Exp(y/EarthRadius))) - (math.Pi * 0.5)
	lat = latRad * rad2deg

	if lat > MaxLat {
		lat = MaxLat
	} else if lat < -MaxLat {
		lat = -MaxLat
	}

	return lon, lat
}

// LonLatToMercator converts WGS84 lon/lat to spherical (Web) Mercator meters.
func LonLatToMercator(lon, lat float64) (x, y float64) {
	lat = math.Max(-MaxLat, math.Min(MaxLat, lat))
	x = lon * deg2rad * EarthRadius
	y = math.Log(math.Tan(math.Pi*0.25+lat*deg2rad*0.5)) * EarthRadius
	return x, y
}
