package distribution

import (
	"fmt"
	"math"
	"sort"

	"tfbpdash/domain/core"
	"tfbpdash/domain/metadata"
	"tfbpdash/internal"
	"tfbpdash/internal/sourcename"

	"github.com/montanaflynn/stats"
)

// DefaultEpsilon is the floor applied before taking logs of p-values
const DefaultEpsilon = 1e-300

// whiskerReach is the Tukey fence multiplier
const whiskerReach = 1.5

// NegLog10 returns -log10 of every value, clipping values at or below
// epsilon up to epsilon. It also reports how many values were clipped so the
// caller can warn. NaN or negative input is rejected.
func NegLog10(values []float64, epsilon float64) ([]float64, int, error) {
	if !(epsilon > 0) {
		return nil, 0, core.NewInvalidInputError("epsilon", "must be positive")
	}
	out := make([]float64, len(values))
	clipped := 0
	for i, v := range values {
		if math.IsNaN(v) {
			return nil, 0, core.NewInvalidInputError("value", fmt.Sprintf("NaN at index %d", i))
		}
		if v < 0 {
			return nil, 0, core.NewInvalidInputError("value", fmt.Sprintf("negative value %g at index %d", v, i))
		}
		if v <= epsilon {
			v = epsilon
			clipped++
		}
		out[i] = -math.Log10(v)
	}
	return out, clipped, nil
}

// Box is the five-number summary of one group, plus Tukey whiskers and the
// points beyond them
type Box struct {
	ExpressionSource string    `json:"expression_source"`
	BindingSource    string    `json:"binding_source"`
	N                int       `json:"n"`
	Min              float64   `json:"min"`
	Q1               float64   `json:"q1"`
	Median           float64   `json:"median"`
	Q3               float64   `json:"q3"`
	Max              float64   `json:"max"`
	Mean             float64   `json:"mean"`
	LowerWhisker     float64   `json:"lower_whisker"`
	UpperWhisker     float64   `json:"upper_whisker"`
	Outliers         []float64 `json:"outliers,omitempty"`
}

// Transform maps a column's values before summarising, e.g. NegLog10
type Transform func([]float64) ([]float64, error)

// NegLog10Transform adapts NegLog10 with the default epsilon, warning on
// logger whenever values get clipped
func NegLog10Transform(logger *internal.Logger) Transform {
	return func(values []float64) ([]float64, error) {
		out, clipped, err := NegLog10(values, DefaultEpsilon)
		if err != nil {
			return nil, err
		}
		if clipped > 0 {
			logger.Warn("%d of %d values at or below %g clipped before -log10", clipped, len(values), DefaultEpsilon)
		}
		return out, nil
	}
}

// BoxSummaries groups metadata rows by (expression source, binding source)
// display names and summarises one QC column per group. Rows without the
// column are left out. Groups come back sorted by expression then binding
// source.
func BoxSummaries(rows []metadata.Row, column string, names *sourcename.Registry, transform Transform) ([]Box, error) {
	if names == nil {
		names = sourcename.NewRegistry(nil, nil)
	}

	type groupKey struct{ expression, binding string }
	groups := make(map[groupKey][]float64)
	for _, row := range rows {
		v, ok := row.QC(column)
		if !ok || math.IsNaN(v) {
			continue
		}
		expression, _ := names.DisplayName(sourcename.PerturbationResponse, row.ExpressionSource)
		binding, _ := names.DisplayName(sourcename.Binding, row.BindingSource)
		key := groupKey{expression, binding}
		groups[key] = append(groups[key], v)
	}

	keys := make([]groupKey, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		if keys[i].expression != keys[j].expression {
			return keys[i].expression < keys[j].expression
		}
		return keys[i].binding < keys[j].binding
	})

	boxes := make([]Box, 0, len(keys))
	for _, k := range keys {
		values := groups[k]
		if transform != nil {
			var err error
			if values, err = transform(values); err != nil {
				return nil, fmt.Errorf("%s/%s %s: %w", k.expression, k.binding, column, err)
			}
		}
		box, err := Summarize(values)
		if err != nil {
			return nil, fmt.Errorf("%s/%s %s: %w", k.expression, k.binding, column, err)
		}
		box.ExpressionSource = k.expression
		box.BindingSource = k.binding
		boxes = append(boxes, box)
	}
	return boxes, nil
}

// Summarize computes the box statistics of a sample
func Summarize(values []float64) (Box, error) {
	if len(values) == 0 {
		return Box{}, core.ErrInsufficientData
	}
	data := stats.Float64Data(values)

	min, err := stats.Min(data)
	if err != nil {
		return Box{}, err
	}
	max, err := stats.Max(data)
	if err != nil {
		return Box{}, err
	}
	mean, err := stats.Mean(data)
	if err != nil {
		return Box{}, err
	}

	box := Box{N: len(values), Min: min, Max: max, Mean: mean}
	if len(values) == 1 {
		box.Q1, box.Median, box.Q3 = min, min, min
	} else {
		q, err := stats.Quartile(data)
		if err != nil {
			return Box{}, err
		}
		box.Q1, box.Median, box.Q3 = q.Q1, q.Q2, q.Q3
	}

	iqr := box.Q3 - box.Q1
	lowFence := box.Q1 - whiskerReach*iqr
	highFence := box.Q3 + whiskerReach*iqr

	box.LowerWhisker, box.UpperWhisker = box.Max, box.Min
	for _, v := range values {
		if v < lowFence || v > highFence {
			box.Outliers = append(box.Outliers, v)
			continue
		}
		box.LowerWhisker = math.Min(box.LowerWhisker, v)
		box.UpperWhisker = math.Max(box.UpperWhisker, v)
	}
	sort.Float64s(box.Outliers)
	return box, nil
}
