package refrange

import (
	"strings"

	"github.com/quantalab/lims-api/internal/model"
)

// defaultPanels holds the stock adult reference ranges keyed by test type.
// Ranges supplied on the create request always win; these only fill gaps
// for the common panels.
var defaultPanels = map[string]model.RangeMap{
	"cbc": {
		"hemoglobin": {Min: 12.0, Max: 15.5, Unit: "g/dL"},
		"hematocrit": {Min: 36.0, Max: 46.0, Unit: "%"},
		"wbc":        {Min: 4.5, Max: 11.0, Unit: "10^3/uL"},
		"rbc":        {Min: 4.0, Max: 5.5, Unit: "10^6/uL"},
		"platelets":  {Min: 150.0, Max: 450.0, Unit: "10^3/uL"},
		"mcv":        {Min: 80.0, Max: 96.0, Unit: "fL"},
		"mch":        {Min: 27.0, Max: 33.0, Unit: "pg"},
		"mchc":       {Min: 33.0, Max: 36.0, Unit: "g/dL"},
	},
	"chemistry": {
		"glucose_fasting": {Min: 70.0, Max: 99.0, Unit: "mg/dL"},
		"creatinine":      {Min: 0.59, Max: 1.35, Unit: "mg/dL"},
		"uric_acid":       {Min: 140.0, Max: 420.0, Unit: "umol/L"},
		"sodium":          {Min: 136.0, Max: 145.0, Unit: "mmol/L"},
		"potassium":       {Min: 3.5, Max: 5.1, Unit: "mmol/L"},
		"chloride":        {Min: 98.0, Max: 107.0, Unit: "mmol/L"},
		"calcium":         {Min: 2.15, Max: 2.55, Unit: "mmol/L"},
	},
	"lipid": {
		"total_cholesterol": {Min: 0.0, Max: 200.0, Unit: "mg/dL"},
		"ldl":               {Min: 0.0, Max: 100.0, Unit: "mg/dL"},
		"hdl":               {Min: 40.0, Max: 100.0, Unit: "mg/dL"},
		"triglycerides":     {Min: 0.0, Max: 150.0, Unit: "mg/dL"},
	},
	"liver": {
		"alt": {Min: 10.0, Max: 50.0, Unit: "IU/L"},
		"ast": {Min: 10.0, Max: 40.0, Unit: "IU/L"},
	},
	"urinalysis": {
		"ph":               {Min: 4.5, Max: 8.0, Unit: ""},
		"specific_gravity": {Min: 1.005, Max: 1.030, Unit: ""},
	},
}

// DefaultRanges returns the stock ranges for a test type, or an empty map
// when the panel is unknown (every field then evaluates to Unknown).
func DefaultRanges(testType string) model.RangeMap {
	panel, ok := defaultPanels[strings.ToLower(strings.TrimSpace(testType))]
	if !ok {
		return model.RangeMap{}
	}
	out := make(model.RangeMap, len(panel))
	for k, v := range panel {
		out[k] = v
	}
	return out
}
