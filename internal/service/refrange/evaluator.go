// Package refrange classifies raw test result values against clinical
// reference ranges. It is pure: no workflow state, no storage.
package refrange

import (
	"strconv"
	"strings"

	"github.com/quantalab/lims-api/internal/model"
)

type FieldStatus string

const (
	FieldNormal   FieldStatus = "normal"
	FieldAbnormal FieldStatus = "abnormal"
	FieldUnknown  FieldStatus = "unknown"
)

// Evaluation is the complete classification of one result set. It is
// recomputed from scratch on every result mutation, never patched.
type Evaluation struct {
	PerField   map[string]FieldStatus `json:"per_field"`
	IsAbnormal bool                   `json:"is_abnormal"`
	IsCritical bool                   `json:"is_critical"`
}

// Evaluate classifies every result field against its reference range.
// Fields without a range, and fields whose value does not parse as a
// number, are Unknown and never count toward the abnormal flag. A field
// is critical when its deviation beyond the range exceeds half the range
// width in either direction.
func Evaluate(testType string, results map[string]string, ranges model.RangeMap) Evaluation {
	eval := Evaluation{
		PerField: make(map[string]FieldStatus, len(results)),
	}

	for field, raw := range results {
		rng, ok := ranges[field]
		if !ok {
			eval.PerField[field] = FieldUnknown
			continue
		}

		value, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
		if err != nil {
			eval.PerField[field] = FieldUnknown
			continue
		}

		if value >= rng.Min && value <= rng.Max {
			eval.PerField[field] = FieldNormal
			continue
		}

		eval.PerField[field] = FieldAbnormal
		eval.IsAbnormal = true

		halfWidth := (rng.Max - rng.Min) / 2
		if value > rng.Max+halfWidth || value < rng.Min-halfWidth {
			eval.IsCritical = true
		}
	}

	return eval
}
