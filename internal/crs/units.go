package crs

import "strings"

const usSurveyFoot = 1200.0 / 3937.0

// unitFactors maps native unit spellings to meters.
var unitFactors = map[string]float64{
	"mm":           0.001,
	"millimeter":   0.001,
	"millimeters":  0.001,
	"millimetre":   0.001,
	"millimetres":  0.001,
	"cm":           0.01,
	"centimeter":   0.01,
	"centimeters":  0.01,
	"centimetre":   0.01,
	"centimetres":  0.01,
	"m":            1,
	"meter":        1,
	"meters":       1,
	"metre":        1,
	"metres":       1,
	"km":           1000,
	"kilometer":    1000,
	"kilometers":   1000,
	"kilometre":    1000,
	"kilometres":   1000,
	"in":           0.0254,
	"inch":         0.0254,
	"inches":       0.0254,
	"ft":           0.3048,
	"foot":         0.3048,
	"feet":         0.3048,
	"yd":           0.9144,
	"yard":         0.9144,
	"yards":        0.9144,
	"mi":           1609.344,
	"mile":         1609.344,
	"miles":        1609.344,
	"usft":         usSurveyFoot,
	"us_ft":        usSurveyFoot,
	"ussurveyfoot": usSurveyFoot,
	"ussurveyfeet": usSurveyFoot,
}

// UnitScale returns the native-unit-to-meter factor.
// Unknown, empty and "none" units scale by 1.
func UnitScale(unit string) float64 {
	if f, ok := unitFactors[unitKey(unit)]; ok {
		return f
	}
	return 1
}

// KnownUnit reports whether unit has an explicit conversion factor.
func KnownUnit(unit string) bool {
	_, ok := unitFactors[unitKey(unit)]
	return ok
}

var unitKeyReplacer = strings.NewReplacer(" ", "", "-", "")

func unitKey(unit string) string {
	return unitKeyReplacer.Replace(strings.ToLower(strings.TrimSpace(unit)))
}
