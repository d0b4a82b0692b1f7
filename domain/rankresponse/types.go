package rankresponse

import (
	"tfbpdash/domain/core"
)

// Alternative selects the alternative hypothesis of the binomial test
type Alternative string

const (
	TwoSided Alternative = "two-sided"
	Less     Alternative = "less"
	Greater  Alternative = "greater"
)

// CIMethod selects how the proportion confidence interval is computed
type CIMethod string

const (
	CIExact    CIMethod = "exact" // Clopper-Pearson
	CIWilson   CIMethod = "wilson"
	CIWilsonCC CIMethod = "wilsoncc" // Wilson with continuity correction
)

// Default analysis parameters
const (
	DefaultConfidenceLevel = 0.95
	DefaultBaselineAlpha   = 0.05
	DefaultRankCeiling     = 150
	DefaultBaselineStep    = 5
)

// Options controls the binomial test and interval of each rank bin
type Options struct {
	Alternative     Alternative `json:"alternative"`
	ConfidenceLevel float64     `json:"confidence_level"`
	CIMethod        CIMethod    `json:"ci_method"`
}

// DefaultOptions returns a two-sided test with a 95% Clopper-Pearson interval
func DefaultOptions() Options {
	return Options{
		Alternative:     TwoSided,
		ConfidenceLevel: DefaultConfidenceLevel,
		CIMethod:        CIExact,
	}
}

// Validate rejects unknown alternatives and methods and confidence levels
// outside (0,1). Nothing is clamped.
func (o Options) Validate() error {
	switch o.Alternative {
	case TwoSided, Less, Greater:
	default:
		return core.NewConfigurationError(core.ErrInvalidAlternative, o.Alternative)
	}
	switch o.CIMethod {
	case CIExact, CIWilson, CIWilsonCC:
	default:
		return core.NewConfigurationError(core.ErrInvalidCIMethod, o.CIMethod)
	}
	// written as a negation so NaN fails too
	if !(o.ConfidenceLevel > 0 && o.ConfidenceLevel < 1) {
		return core.NewConfigurationError(core.ErrInvalidConfidence, o.ConfidenceLevel)
	}
	return nil
}

// GeneRecord is one target gene of one replicate
type GeneRecord struct {
	RankBin           int     `json:"rank_bin"`
	Responsive        bool    `json:"responsive"`
	RandomExpectation float64 `json:"random"`
}

// RankResponseRow is the cumulative statistic at one distinct rank bin
type RankResponseRow struct {
	RankBin           int     `json:"rank_bin"`
	NResponsiveInRank int     `json:"n_responsive_in_rank"`
	NSuccesses        int     `json:"n_successes"`
	ResponseRatio     float64 `json:"response_ratio"`
	PValue            float64 `json:"pvalue"`
	CILower           float64 `json:"ci_lower"`
	CIUpper           float64 `json:"ci_upper"`
	RandomExpectation float64 `json:"random"`
}

// Interval is a closed (lower, upper) pair
type Interval struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
}

// Contains reports whether v lies inside the interval
func (i Interval) Contains(v float64) bool {
	return i.Lower <= v && v <= i.Upper
}

// BaselinePolicy decides what happens when replicates of one expression
// condition disagree on the random expectation
type BaselinePolicy string

const (
	// BaselineFirstWins draws the condition's random curve from the first
	// replicate encountered and logs a warning on disagreement.
	BaselineFirstWins BaselinePolicy = "first-wins"
	// BaselineStrict fails with ErrInconsistentBaseline on disagreement.
	BaselineStrict BaselinePolicy = "strict"
)

// ParseBaselinePolicy parses a policy name
func ParseBaselinePolicy(s string) (BaselinePolicy, error) {
	switch BaselinePolicy(s) {
	case BaselineFirstWins, BaselineStrict:
		return BaselinePolicy(s), nil
	}
	return "", core.NewConfigurationError(core.ErrInvalidBaselinePolicy, s)
}

// ReplicateSeries is the plot-ready line of one replicate
type ReplicateSeries struct {
	ReplicateID core.ReplicateID `json:"replicate_id"`
	LegendRank  int              `json:"legend_rank"`
	RegulatorID core.RegulatorID `json:"regulator_id,omitempty"`
	DataSource  string           `json:"datasource"`

	X       []int      `json:"x"`
	Y       []float64  `json:"y"`
	RandomY []float64  `json:"random_y"`
	CI      []Interval `json:"ci"`

	Rows []RankResponseRow `json:"rows"`
}

// Baseline is the random-expectation curve and its null envelope, drawn
// once per expression condition
type Baseline struct {
	RandomExpectation float64    `json:"random"`
	X                 []int      `json:"x"`
	RandomY           []float64  `json:"random_y"`
	Band              []Interval `json:"ci"`
}

// ConditionSeries holds every replicate line of one expression condition
type ConditionSeries struct {
	ExpressionID   core.ExpressionID                     `json:"expression_id"`
	Baseline       Baseline                              `json:"baseline"`
	Replicates     map[core.ReplicateID]*ReplicateSeries `json:"replicates"`
	ReplicateOrder []core.ReplicateID                    `json:"replicate_order"`
}

// Replicate returns a replicate series by ID
func (c *ConditionSeries) Replicate(id core.ReplicateID) (*ReplicateSeries, bool) {
	s, ok := c.Replicates[id]
	return s, ok
}

// Bundle is the result of one prepare call. It is not mutated after it is
// returned.
type Bundle struct {
	ID          core.ID                                `json:"id"`
	RankCeiling int                                    `json:"rank_ceiling"`
	Conditions  map[core.ExpressionID]*ConditionSeries `json:"conditions"`
	Order       []core.ExpressionID                    `json:"order"`
	Skipped     []string                               `json:"skipped,omitempty"`
}

// Condition returns an expression condition by ID
func (b *Bundle) Condition(id core.ExpressionID) (*ConditionSeries, bool) {
	c, ok := b.Conditions[id]
	return c, ok
}

// IsEmpty reports whether the bundle holds no series
func (b *Bundle) IsEmpty() bool {
	return b == nil || len(b.Order) == 0
}
