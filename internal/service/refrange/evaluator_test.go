package refrange

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/quantalab/lims-api/internal/model"
)

var hemoglobinRange = model.RangeMap{
	"hemoglobin": {Min: 12.0, Max: 15.5, Unit: "g/dL"},
}

func TestEvaluate(t *testing.T) {
	tests := []struct {
		name         string
		results      map[string]string
		ranges       model.RangeMap
		wantField    map[string]FieldStatus
		wantAbnormal bool
		wantCritical bool
	}{
		{
			name:      "value inside range is normal",
			results:   map[string]string{"hemoglobin": "13.2"},
			ranges:    hemoglobinRange,
			wantField: map[string]FieldStatus{"hemoglobin": FieldNormal},
		},
		{
			name:      "boundary values are normal",
			results:   map[string]string{"hemoglobin": "12.0"},
			ranges:    hemoglobinRange,
			wantField: map[string]FieldStatus{"hemoglobin": FieldNormal},
		},
		{
			name:         "above max but within half width is abnormal only",
			results:      map[string]string{"hemoglobin": "16.0"},
			ranges:       hemoglobinRange,
			wantField:    map[string]FieldStatus{"hemoglobin": FieldAbnormal},
			wantAbnormal: true,
		},
		{
			name:         "far above max is critical",
			results:      map[string]string{"hemoglobin": "20.0"},
			ranges:       hemoglobinRange,
			wantField:    map[string]FieldStatus{"hemoglobin": FieldAbnormal},
			wantAbnormal: true,
			wantCritical: true,
		},
		{
			name:         "far below min is critical",
			results:      map[string]string{"hemoglobin": "9.0"},
			ranges:       hemoglobinRange,
			wantField:    map[string]FieldStatus{"hemoglobin": FieldAbnormal},
			wantAbnormal: true,
			wantCritical: true,
		},
		{
			name:      "field without a range is unknown",
			results:   map[string]string{"appearance": "clear"},
			ranges:    hemoglobinRange,
			wantField: map[string]FieldStatus{"appearance": FieldUnknown},
		},
		{
			name:      "unparsable value is unknown, never abnormal",
			results:   map[string]string{"hemoglobin": "trace"},
			ranges:    hemoglobinRange,
			wantField: map[string]FieldStatus{"hemoglobin": FieldUnknown},
		},
		{
			name:      "whitespace around a numeric value is tolerated",
			results:   map[string]string{"hemoglobin": " 13.0 "},
			ranges:    hemoglobinRange,
			wantField: map[string]FieldStatus{"hemoglobin": FieldNormal},
		},
		{
			name: "one abnormal field flags the whole set",
			results: map[string]string{
				"hemoglobin": "13.0",
				"wbc":        "22.0",
			},
			ranges: model.RangeMap{
				"hemoglobin": {Min: 12.0, Max: 15.5, Unit: "g/dL"},
				"wbc":        {Min: 4.5, Max: 11.0, Unit: "10^3/uL"},
			},
			wantField: map[string]FieldStatus{
				"hemoglobin": FieldNormal,
				"wbc":        FieldAbnormal,
			},
			wantAbnormal: true,
			wantCritical: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			eval := Evaluate("cbc", tt.results, tt.ranges)
			assert.Equal(t, tt.wantField, eval.PerField)
			assert.Equal(t, tt.wantAbnormal, eval.IsAbnormal)
			assert.Equal(t, tt.wantCritical, eval.IsCritical)
		})
	}
}

func TestEvaluateIsIdempotent(t *testing.T) {
	results := map[string]string{"hemoglobin": "20.0"}

	first := Evaluate("cbc", results, hemoglobinRange)
	second := Evaluate("cbc", results, hemoglobinRange)

	assert.Equal(t, first, second)
}

func TestEvaluateEmptyResults(t *testing.T) {
	eval := Evaluate("cbc", nil, hemoglobinRange)

	assert.Empty(t, eval.PerField)
	assert.False(t, eval.IsAbnormal)
	assert.False(t, eval.IsCritical)
}

func TestDefaultRanges(t *testing.T) {
	cbc := DefaultRanges("cbc")
	assert.Contains(t, cbc, "hemoglobin")
	assert.Equal(t, 12.0, cbc["hemoglobin"].Min)

	assert.Empty(t, DefaultRanges("unknown-panel"))
}

func TestDefaultRangesReturnsCopy(t *testing.T) {
	first := DefaultRanges("cbc")
	first["hemoglobin"] = model.ReferenceRange{Min: 0, Max: 1}

	second := DefaultRanges("cbc")
	assert.Equal(t, 12.0, second["hemoglobin"].Min)
}
