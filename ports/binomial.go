package ports

import (
	"tfbpdash/domain/rankresponse"
)

// BinomialTestResult is the outcome of one exact binomial test
type BinomialTestResult struct {
	Statistic float64 // successes / trials
	PValue    float64
	CILow     float64
	CIHigh    float64
}

// BinomialTester abstracts the exact binomial test and the binomial quantile
// function so the rank-response engine does not depend on a particular
// numerics library.
type BinomialTester interface {
	// ExactBinomialTest tests successes out of trials against proportion p and
	// returns the proportion interval at the requested confidence level.
	ExactBinomialTest(successes, trials int, p float64, opts rankresponse.Options) (BinomialTestResult, error)

	// BinomialPPF returns the smallest k with P(X <= k) >= q for X ~ Binomial(trials, p)
	BinomialPPF(q float64, trials int, p float64) (float64, error)
}
