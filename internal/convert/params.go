// Package convert assembles GeoJSON feature collections from scene graphs.
package convert

import (
	"fmt"
	"strings"
	"time"

	"github.com/woozymasta/speckle2geojson/internal/crs"
	"github.com/woozymasta/speckle2geojson/internal/geometry"
	"github.com/woozymasta/speckle2geojson/internal/props"
)

// DefaultLimit caps returned features when the caller sets no limit.
const DefaultLimit = 10

// DataType restricts which features a run emits.
type DataType string

const (
	DataAll      DataType = "all"
	DataPoints   DataType = "points"
	DataLines    DataType = "lines"
	DataPolygons DataType = "polygons"
	DataComments DataType = "comments"
)

// ParseDataType accepts the data type names, case-insensitive. Empty means all.
func ParseDataType(s string) (DataType, error) {
	switch dt := DataType(strings.ToLower(strings.TrimSpace(s))); dt {
	case "":
		return DataAll, nil
	case DataAll, DataPoints, DataLines, DataPolygons, DataComments:
		return dt, nil
	}
	return "", fmt.Errorf("unknown data type %q", s)
}

// accepts reports whether features of the family pass the data type.
func (d DataType) accepts(f geometry.Family) bool {
	switch d {
	case DataPoints:
		return f == geometry.FamilyPoint
	case DataLines:
		return f == geometry.FamilyLine
	case DataPolygons:
		return f == geometry.FamilyPolygon
	case DataComments:
		return false
	}
	return true
}

func (d DataType) wantsComments() bool {
	return d == DataAll || d == DataComments || d == ""
}

// Params are the request parameters of one conversion run.
type Params struct {
	// Comments keyed by thread id
	Comments map[string]Comment

	CRSAuthority     string
	Where            string
	Project          string
	Model            string
	DataType         DataType
	Properties       []props.Filter
	SelectProperties []string

	Lat         float64
	Lon         float64
	NorthOffset float64

	// Limit caps returned features; zero or less disables the cap
	Limit int

	// PreserveAttributes decomposes composite GIS features into one feature
	// per geometry family; otherwise only the first family is kept
	PreserveAttributes bool
	IncludeHeight      bool
	SkipGeometry       bool
}

// DefaultParams returns the parameters used when the caller gives none.
func DefaultParams() Params {
	return Params{
		Lat:                crs.DefaultLat,
		Lon:                crs.DefaultLon,
		Limit:              DefaultLimit,
		DataType:           DataAll,
		PreserveAttributes: true,
	}
}

func (p Params) hints() crs.Hints {
	return crs.Hints{
		Authority:   p.CRSAuthority,
		Lat:         p.Lat,
		Lon:         p.Lon,
		NorthOffset: p.NorthOffset,
	}
}

// Report carries the diagnostics of a run.
type Report struct {
	CRS *crs.Definition

	RunID        string
	LimitMessage string

	// Fields is the normalized property schema in first-seen order
	Fields []string

	Matched            int
	Returned           int
	Comments           int
	SkippedUnsupported int
	SkippedMalformed   int
	Filtered           int

	CreateDuration    time.Duration
	TransformDuration time.Duration
}

// Truncated reports whether the limit dropped matched features.
func (r *Report) Truncated() bool {
	return r.LimitMessage != ""
}
