package biomarker

import (
	"math"
	"strings"
)

// Generic unit conversions that hold regardless of the analyte.
var unitFactors = map[string]map[string]float64{
	"g/l":      {"g/dl": 0.1, "mg/dl": 100, "mg/l": 1000},
	"g/dl":     {"g/l": 10, "mg/dl": 1000},
	"mg/l":     {"mg/dl": 0.1, "g/l": 0.001, "ug/ml": 1},
	"mg/dl":    {"mg/l": 10, "g/l": 0.01, "g/dl": 0.001},
	"ug/ml":    {"mg/l": 1, "ng/ml": 1000},
	"ug/l":     {"ng/ml": 1, "ug/dl": 0.1},
	"ug/dl":    {"ug/l": 10},
	"ng/ml":    {"ug/l": 1, "ng/l": 1000, "pg/ml": 1000},
	"ng/l":     {"pg/ml": 1, "ng/ml": 0.001},
	"pg/ml":    {"ng/l": 1, "ng/ml": 0.001},
	"mmol/l":   {"umol/l": 1000, "nmol/l": 1e6},
	"umol/l":   {"mmol/l": 0.001, "nmol/l": 1000},
	"nmol/l":   {"umol/l": 0.001, "pmol/l": 1000},
	"pmol/l":   {"nmol/l": 0.001},
	"iu/l":     {"u/l": 1},
	"u/l":      {"iu/l": 1},
	"miu/l":    {"uiu/ml": 1, "iu/l": 0.001},
	"uiu/ml":   {"miu/l": 1},
	"10^9/l":   {"10^3/ul": 1, "g/l": 1},
	"10^3/ul":  {"10^9/l": 1},
	"10^12/l":  {"10^6/ul": 1, "t/l": 1},
	"10^6/ul":  {"10^12/l": 1},
}

// Analyte-specific conversions between mass and molar units; the
// factor depends on the molecular weight, so these are keyed by
// catalog code.
var analyteFactors = map[string]map[string]map[string]float64{
	"glucose": {
		"mg/dl":  {"mmol/l": 0.0555},
		"mmol/l": {"mg/dl": 18.0182},
	},
	"cholesterol_total": {
		"mg/dl":  {"mmol/l": 0.0259},
		"mmol/l": {"mg/dl": 38.67},
	},
	"cholesterol_hdl": {
		"mg/dl":  {"mmol/l": 0.0259},
		"mmol/l": {"mg/dl": 38.67},
	},
	"cholesterol_ldl": {
		"mg/dl":  {"mmol/l": 0.0259},
		"mmol/l": {"mg/dl": 38.67},
	},
	"triglycerides": {
		"mg/dl":  {"mmol/l": 0.0113},
		"mmol/l": {"mg/dl": 88.5},
	},
	"creatinine": {
		"mg/dl":  {"umol/l": 88.4},
		"umol/l": {"mg/dl": 0.0113},
	},
	"bilirubin_total": {
		"mg/dl":  {"umol/l": 17.1},
		"umol/l": {"mg/dl": 0.0585},
	},
	"urea": {
		"mg/dl":  {"mmol/l": 0.357},
		"mmol/l": {"mg/dl": 2.8},
	},
	"vitamin_d": {
		"ng/ml":  {"nmol/l": 2.496},
		"nmol/l": {"ng/ml": 0.4006},
	},
	"testosterone": {
		"ng/dl":  {"nmol/l": 0.0347},
		"nmol/l": {"ng/dl": 28.84},
	},
	"ferritin": {
		"ng/ml": {"ug/l": 1},
		"ug/l":  {"ng/ml": 1},
	},
}

// NormalizeUnit reduces a unit string to its table form: lower case,
// trimmed, micro signs folded to "u".
func NormalizeUnit(unit string) string {
	s := strings.TrimSpace(strings.ToLower(unit))
	s = strings.ReplaceAll(s, "µ", "u")
	s = strings.ReplaceAll(s, "μ", "u")
	s = strings.ReplaceAll(s, " ", "")
	return s
}

// ConversionFactor returns the multiplier that takes a value in
// fromUnit to toUnit for the given catalog code, and whether such a
// conversion is known. Analyte-specific factors take precedence over
// the generic table.
func ConversionFactor(code, fromUnit, toUnit string) (float64, bool) {
	from := NormalizeUnit(fromUnit)
	to := NormalizeUnit(toUnit)
	if from == "" || to == "" {
		return 0, false
	}
	if from == to {
		return 1, true
	}
	if byUnit, ok := analyteFactors[code]; ok {
		if f, ok := byUnit[from][to]; ok {
			return f, true
		}
	}
	if f, ok := unitFactors[from][to]; ok {
		return f, true
	}
	return 0, false
}

// Convert rescales value from fromUnit into the biomarker's
// canonical unit, rounding to 4 decimal places. When the units
// already agree, either unit is blank, the catalog entry has no
// canonical unit or no conversion path is known, the value and unit
// are returned unchanged.
func Convert(bm *Biomarker, value float64, unit string) (float64, string) {
	if bm == nil || bm.Unit == nil || unit == "" {
		return value, unit
	}
	f, ok := ConversionFactor(bm.Code, unit, *bm.Unit)
	if !ok {
		return value, unit
	}
	if f == 1 {
		return value, *bm.Unit
	}
	return Round4(value * f), *bm.Unit
}

// Round4 rounds to 4 decimal places, the storage precision for
// reading values.
func Round4(v float64) float64 {
	return math.Round(v*10000) / 10000
}
