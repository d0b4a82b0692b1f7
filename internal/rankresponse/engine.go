package rankresponse

import (
	"fmt"
	"sort"

	"tfbpdash/adapters/stats/binomial"
	"tfbpdash/domain/core"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/ports"
)

// Engine computes cumulative rank-response statistics for one replicate at a
// time. It holds no mutable state; one Engine may serve concurrent callers.
type Engine struct {
	tester ports.BinomialTester
}

// NewEngine creates an engine backed by the gonum binomial tester
func NewEngine() *Engine {
	return NewEngineWithTester(binomial.NewTester())
}

// NewEngineWithTester creates an engine on an arbitrary statistics backend
func NewEngineWithTester(tester ports.BinomialTester) *Engine {
	return &Engine{tester: tester}
}

// ComputeRankResponse groups records by rank bin, accumulates responsive
// counts in ascending bin order and runs an exact binomial test at every
// distinct bin. The number of trials at a bin is the bin value itself: among
// the top-K bound genes, how many responded.
//
// Records must belong to exactly one replicate. An empty input yields an
// empty result.
func (e *Engine) ComputeRankResponse(records []rankresponse.GeneRecord, opts rankresponse.Options) ([]rankresponse.RankResponseRow, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []rankresponse.RankResponseRow{}, nil
	}

	random, err := replicateBaseline(records)
	if err != nil {
		return nil, err
	}

	responsiveByBin := make(map[int]int)
	for _, rec := range records {
		if rec.RankBin < 1 {
			return nil, core.NewInvalidInputError("rank_bin", fmt.Sprintf("must be >= 1, got %d", rec.RankBin))
		}
		if rec.Responsive {
			responsiveByBin[rec.RankBin]++
		} else if _, ok := responsiveByBin[rec.RankBin]; !ok {
			responsiveByBin[rec.RankBin] = 0
		}
	}

	bins := make([]int, 0, len(responsiveByBin))
	for bin := range responsiveByBin {
		bins = append(bins, bin)
	}
	sort.Ints(bins)

	rows := make([]rankresponse.RankResponseRow, 0, len(bins))
	successes := 0
	for _, bin := range bins {
		inRank := responsiveByBin[bin]
		successes += inRank
		if successes > bin {
			// only possible when tied genes share a bin below their count
			return nil, core.NewInvalidInputError("rank_bin",
				fmt.Sprintf("%d responsive genes at or above bin %d", successes, bin))
		}

		res, err := e.tester.ExactBinomialTest(successes, bin, random, opts)
		if err != nil {
			return nil, fmt.Errorf("binomial test at rank bin %d: %w", bin, err)
		}

		rows = append(rows, rankresponse.RankResponseRow{
			RankBin:           bin,
			NResponsiveInRank: inRank,
			NSuccesses:        successes,
			ResponseRatio:     res.Statistic,
			PValue:            res.PValue,
			CILower:           res.CILow,
			CIUpper:           res.CIHigh,
			RandomExpectation: random,
		})
	}

	return rows, nil
}

// BaselineConfidenceBand returns, for each trial count n, the alpha/2 and
// 1-alpha/2 quantiles of Binomial(n, randomExpectation) divided by n: the
// envelope the random-expectation curve stays within under the null.
func (e *Engine) BaselineConfidenceBand(trials []int, randomExpectation, alpha float64) ([]rankresponse.Interval, error) {
	if !(alpha > 0 && alpha < 1) {
		return nil, core.NewConfigurationError(core.ErrInvalidAlpha, alpha)
	}
	if !(randomExpectation >= 0 && randomExpectation <= 1) {
		return nil, core.NewInvalidInputError("random", fmt.Sprintf("must lie in [0, 1], got %v", randomExpectation))
	}

	band := make([]rankresponse.Interval, 0, len(trials))
	for _, n := range trials {
		lower, err := e.tester.BinomialPPF(alpha/2, n, randomExpectation)
		if err != nil {
			return nil, fmt.Errorf("baseline lower quantile at %d trials: %w", n, err)
		}
		upper, err := e.tester.BinomialPPF(1-alpha/2, n, randomExpectation)
		if err != nil {
			return nil, fmt.Errorf("baseline upper quantile at %d trials: %w", n, err)
		}
		band = append(band, rankresponse.Interval{
			Lower: lower / float64(n),
			Upper: upper / float64(n),
		})
	}
	return band, nil
}

// replicateBaseline returns the single random expectation shared by every
// record of a replicate
func replicateBaseline(records []rankresponse.GeneRecord) (float64, error) {
	random := records[0].RandomExpectation
	if !(random >= 0 && random <= 1) {
		return 0, core.NewInvalidInputError("random", fmt.Sprintf("must lie in [0, 1], got %v", random))
	}
	for _, rec := range records[1:] {
		if rec.RandomExpectation != random {
			return 0, core.NewInconsistentBaselineError("replicate", random, rec.RandomExpectation)
		}
	}
	return random, nil
}
