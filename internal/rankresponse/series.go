package rankresponse

import (
	"fmt"
	"runtime"

	"tfbpdash/domain/core"
	"tfbpdash/domain/metadata"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/internal"
	"tfbpdash/internal/sourcename"

	"golang.org/x/sync/errgroup"
)

// SeriesConfig holds the parameters of a prepare call that are not data
type SeriesConfig struct {
	Options        rankresponse.Options
	BaselineStep   int
	BaselineAlpha  float64
	BaselinePolicy rankresponse.BaselinePolicy
	Workers        int
}

// DefaultSeriesConfig returns the dashboard defaults
func DefaultSeriesConfig() SeriesConfig {
	return SeriesConfig{
		Options:        rankresponse.DefaultOptions(),
		BaselineStep:   rankresponse.DefaultBaselineStep,
		BaselineAlpha:  rankresponse.DefaultBaselineAlpha,
		BaselinePolicy: rankresponse.BaselineFirstWins,
		Workers:        runtime.NumCPU(),
	}
}

// Validate checks every field before any data is touched
func (c SeriesConfig) Validate() error {
	if err := c.Options.Validate(); err != nil {
		return err
	}
	if c.BaselineStep < 1 {
		return core.NewConfigurationError(core.ErrConfiguration, fmt.Sprintf("baseline step %d", c.BaselineStep))
	}
	if !(c.BaselineAlpha > 0 && c.BaselineAlpha < 1) {
		return core.NewConfigurationError(core.ErrInvalidAlpha, c.BaselineAlpha)
	}
	if _, err := rankresponse.ParseBaselinePolicy(string(c.BaselinePolicy)); err != nil {
		return err
	}
	return nil
}

// SeriesBuilder turns replicate metadata plus gene-level tables into a
// plot-ready bundle grouped by expression condition, then replicate
type SeriesBuilder struct {
	engine *Engine
	names  *sourcename.Registry
	cfg    SeriesConfig
	logger *internal.Logger
}

// NewSeriesBuilder creates a series builder. names may be nil, in which case
// data source labels are the raw keys.
func NewSeriesBuilder(engine *Engine, names *sourcename.Registry, cfg SeriesConfig, logger *internal.Logger) *SeriesBuilder {
	if engine == nil {
		engine = NewEngine()
	}
	if names == nil {
		names = sourcename.NewRegistry(nil, nil)
	}
	return &SeriesBuilder{
		engine: engine,
		names:  names,
		cfg:    cfg,
		logger: logger.With("rank_response"),
	}
}

// replicateJob is one metadata row that resolved to usable data
type replicateJob struct {
	expressionID core.ExpressionID
	replicateID  core.ReplicateID
	legendRank   int
	regulatorID  core.RegulatorID
	dataSource   string
	records      []rankresponse.GeneRecord
	random       float64
	hasRandom    bool

	rows []rankresponse.RankResponseRow
}

// Prepare resolves each metadata row's gene table, truncates it to rank bins
// at or below rankCeiling, computes rank-response statistics and groups the
// series by expression condition and replicate. Truncation happens before the
// statistics so bins under the ceiling never see data beyond it.
//
// Rows with a missing or non-integer replicate ID, an empty expression ID or
// no gene table are skipped with a warning.
func (b *SeriesBuilder) Prepare(rows []metadata.Row, raw map[string][]rankresponse.GeneRecord, rankCeiling int) (*rankresponse.Bundle, error) {
	if rankCeiling < 1 {
		return nil, core.NewConfigurationError(core.ErrInvalidRankCeiling, rankCeiling)
	}
	if err := b.cfg.Validate(); err != nil {
		return nil, err
	}

	bundle := &rankresponse.Bundle{
		ID:          core.NewID(),
		RankCeiling: rankCeiling,
		Conditions:  make(map[core.ExpressionID]*rankresponse.ConditionSeries),
	}

	jobs := make([]*replicateJob, 0, len(rows))
	for _, row := range rows {
		job, reason := b.plan(row, raw, rankCeiling)
		if job == nil {
			b.logger.Warn("bundle %s: skipping metadata row %q: %s", bundle.ID, row.ID, reason)
			bundle.Skipped = append(bundle.Skipped, fmt.Sprintf("%s: %s", row.ID, reason))
			continue
		}
		jobs = append(jobs, job)
	}

	var g errgroup.Group
	if b.cfg.Workers > 0 {
		g.SetLimit(b.cfg.Workers)
	}
	for _, job := range jobs {
		job := job
		g.Go(func() error {
			out, err := b.engine.ComputeRankResponse(job.records, b.cfg.Options)
			if err != nil {
				return fmt.Errorf("expression %s replicate %s: %w", job.expressionID, job.replicateID, err)
			}
			job.rows = out
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// baselines holds which conditions already have a random expectation
	baselines := make(map[core.ExpressionID]bool)
	for _, job := range jobs {
		cond, ok := bundle.Conditions[job.expressionID]
		if !ok {
			cond = &rankresponse.ConditionSeries{
				ExpressionID: job.expressionID,
				Replicates:   make(map[core.ReplicateID]*rankresponse.ReplicateSeries),
			}
			bundle.Conditions[job.expressionID] = cond
			bundle.Order = append(bundle.Order, job.expressionID)
		}

		if job.hasRandom {
			if !baselines[job.expressionID] {
				cond.Baseline.RandomExpectation = job.random
				baselines[job.expressionID] = true
			} else if cond.Baseline.RandomExpectation != job.random {
				if b.cfg.BaselinePolicy == rankresponse.BaselineStrict {
					return nil, core.NewInconsistentBaselineError(
						fmt.Sprintf("expression %s", job.expressionID), cond.Baseline.RandomExpectation, job.random)
				}
				b.logger.Warn("expression %s: replicate %s random expectation %g differs from %g; keeping the first",
					job.expressionID, job.replicateID, job.random, cond.Baseline.RandomExpectation)
			}
		}

		if _, dup := cond.Replicates[job.replicateID]; dup {
			b.logger.Warn("expression %s: replicate %s appears more than once; the later row replaces the earlier",
				job.expressionID, job.replicateID)
		} else {
			cond.ReplicateOrder = append(cond.ReplicateOrder, job.replicateID)
		}
		cond.Replicates[job.replicateID] = newReplicateSeries(job)
	}

	grid := baselineGrid(rankCeiling, b.cfg.BaselineStep)
	for _, id := range bundle.Order {
		if !baselines[id] {
			continue
		}
		cond := bundle.Conditions[id]
		band, err := b.engine.BaselineConfidenceBand(grid, cond.Baseline.RandomExpectation, b.cfg.BaselineAlpha)
		if err != nil {
			return nil, fmt.Errorf("expression %s baseline: %w", id, err)
		}
		cond.Baseline.X = append([]int(nil), grid...)
		cond.Baseline.RandomY = repeat(cond.Baseline.RandomExpectation, len(grid))
		cond.Baseline.Band = band
	}

	b.logger.Debug("bundle %s: %d conditions, %d replicates, %d skipped",
		bundle.ID, len(bundle.Order), len(jobs), len(bundle.Skipped))

	return bundle, nil
}

// plan resolves one metadata row, returning nil and a reason when it must be
// skipped
func (b *SeriesBuilder) plan(row metadata.Row, raw map[string][]rankresponse.GeneRecord, rankCeiling int) (*replicateJob, string) {
	expressionID, err := core.ParseExpressionID(row.ExpressionID)
	if err != nil {
		return nil, err.Error()
	}
	replicateID, legendRank, err := core.ParseReplicateID(row.ReplicateID)
	if err != nil {
		return nil, err.Error()
	}
	records, ok := raw[row.ID]
	if !ok {
		return nil, "no gene table for key"
	}

	source := row.BindingSource
	if source == "" {
		source = row.SourceName
	}
	label, _ := b.names.DisplayName(sourcename.Binding, source)

	job := &replicateJob{
		expressionID: expressionID,
		replicateID:  replicateID,
		legendRank:   legendRank,
		regulatorID:  row.RegulatorID,
		dataSource:   label,
		records:      truncate(records, rankCeiling),
	}
	if len(records) > 0 {
		job.random = records[0].RandomExpectation
		job.hasRandom = true
	}
	return job, ""
}

// truncate keeps records with rank bin at or below ceiling without touching
// the caller's slice
func truncate(records []rankresponse.GeneRecord, ceiling int) []rankresponse.GeneRecord {
	out := make([]rankresponse.GeneRecord, 0, len(records))
	for _, rec := range records {
		if rec.RankBin <= ceiling {
			out = append(out, rec)
		}
	}
	return out
}

// baselineGrid is step, 2*step, ... up to ceiling. A ceiling below the step
// gets a single point so the random curve is never empty.
func baselineGrid(ceiling, step int) []int {
	if ceiling < step {
		return []int{ceiling}
	}
	grid := make([]int, 0, ceiling/step)
	for n := step; n <= ceiling; n += step {
		grid = append(grid, n)
	}
	return grid
}

func newReplicateSeries(job *replicateJob) *rankresponse.ReplicateSeries {
	s := &rankresponse.ReplicateSeries{
		ReplicateID: job.replicateID,
		LegendRank:  job.legendRank,
		RegulatorID: job.regulatorID,
		DataSource:  job.dataSource,
		X:           make([]int, len(job.rows)),
		Y:           make([]float64, len(job.rows)),
		RandomY:     make([]float64, len(job.rows)),
		CI:          make([]rankresponse.Interval, len(job.rows)),
		Rows:        job.rows,
	}
	for i, row := range job.rows {
		s.X[i] = row.RankBin
		s.Y[i] = row.ResponseRatio
		s.RandomY[i] = row.RandomExpectation
		s.CI[i] = rankresponse.Interval{Lower: row.CILower, Upper: row.CIUpper}
	}
	return s
}

func repeat(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}
