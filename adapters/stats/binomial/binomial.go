package binomial

import (
	"math"
	"sort"

	"tfbpdash/domain/core"
	"tfbpdash/domain/rankresponse"
	"tfbpdash/ports"

	"gonum.org/v1/gonum/mathext"
	"gonum.org/v1/gonum/stat/distuv"
)

// relativeTolerance widens the two-sided tail comparison so outcomes whose
// probability equals the observed one up to rounding count as extreme
const relativeTolerance = 1 + 1e-7

// Tester implements ports.BinomialTester on gonum distributions. It holds no
// state and is safe for concurrent use.
type Tester struct{}

var _ ports.BinomialTester = (*Tester)(nil)

// NewTester creates a new binomial tester
func NewTester() *Tester {
	return &Tester{}
}

// ExactBinomialTest runs an exact test of successes out of trials against
// proportion p. The p-value follows the usual exact-test conventions: the
// two-sided p-value sums every outcome no more likely than the observed one
// and is exactly 1 when successes equals p*trials.
func (t *Tester) ExactBinomialTest(successes, trials int, p float64, opts rankresponse.Options) (ports.BinomialTestResult, error) {
	if err := opts.Validate(); err != nil {
		return ports.BinomialTestResult{}, err
	}
	if err := validateArgs(trials, p); err != nil {
		return ports.BinomialTestResult{}, err
	}
	if successes < 0 || successes > trials {
		return ports.BinomialTestResult{}, core.NewInvalidInputError("successes", "must lie in [0, trials]")
	}

	d := dist{n: trials, p: p}

	var pValue float64
	switch opts.Alternative {
	case rankresponse.Greater:
		pValue = d.sf(successes - 1)
	case rankresponse.Less:
		pValue = d.cdf(successes)
	default:
		pValue = d.twoSided(successes)
	}
	pValue = math.Min(1.0, pValue)

	low, high := proportionCI(successes, trials, opts)

	return ports.BinomialTestResult{
		Statistic: float64(successes) / float64(trials),
		PValue:    pValue,
		CILow:     low,
		CIHigh:    high,
	}, nil
}

// BinomialPPF returns the smallest k in [0, trials] with P(X <= k) >= q.
// For q == 0 it returns -1, one below the support.
func (t *Tester) BinomialPPF(q float64, trials int, p float64) (float64, error) {
	if err := validateArgs(trials, p); err != nil {
		return 0, err
	}
	if !(q >= 0 && q <= 1) {
		return 0, core.NewInvalidInputError("q", "must lie in [0, 1]")
	}
	if q == 0 {
		return -1, nil
	}

	d := dist{n: trials, p: p}
	k := sort.Search(trials+1, func(k int) bool {
		return d.cdf(k) >= q
	})
	if k > trials {
		// cdf(trials) is exactly 1, so this only guards rounding
		k = trials
	}
	return float64(k), nil
}

func validateArgs(trials int, p float64) error {
	if trials < 1 {
		return core.NewInvalidInputError("trials", "must be >= 1")
	}
	if !(p >= 0 && p <= 1) {
		return core.NewInvalidInputError("p", "must lie in [0, 1]")
	}
	return nil
}

// dist is Binomial(n, p) including the degenerate p = 0 and p = 1 cases,
// where every outcome but one has probability zero.
type dist struct {
	n int
	p float64
}

func (d dist) pmf(k int) float64 {
	if k < 0 || k > d.n {
		return 0
	}
	switch d.p {
	case 0:
		if k == 0 {
			return 1
		}
		return 0
	case 1:
		if k == d.n {
			return 1
		}
		return 0
	}
	return distuv.Binomial{N: float64(d.n), P: d.p}.Prob(float64(k))
}

// cdf is P(X <= k)
func (d dist) cdf(k int) float64 {
	switch {
	case k < 0:
		return 0
	case k >= d.n:
		return 1
	case d.p == 0:
		return 1
	case d.p == 1:
		return 0
	}
	return mathext.RegIncBeta(float64(d.n-k), float64(k+1), 1-d.p)
}

// sf is P(X > k), computed directly so small upper tails keep precision
func (d dist) sf(k int) float64 {
	switch {
	case k < 0:
		return 1
	case k >= d.n:
		return 0
	case d.p == 0:
		return 0
	case d.p == 1:
		return 1
	}
	return mathext.RegIncBeta(float64(k+1), float64(d.n-k), d.p)
}

func (d dist) twoSided(k int) float64 {
	mean := d.p * float64(d.n)
	if float64(k) == mean {
		return 1.0
	}

	threshold := d.pmf(k) * relativeTolerance

	if float64(k) < mean {
		// The pmf decreases from ceil(mean) to n; find where the upper tail
		// drops to the observed probability.
		lo := int(math.Ceil(mean))
		ix := lo + sort.Search(d.n-lo+1, func(i int) bool {
			return d.pmf(lo+i) <= threshold
		})
		return d.cdf(k) + d.sf(ix-1)
	}

	// The pmf increases from 0 to floor(mean); count the lower-tail outcomes
	// at or below the observed probability.
	hi := int(math.Floor(mean))
	y := sort.Search(hi+1, func(i int) bool {
		return d.pmf(i) > threshold
	})
	return d.cdf(y-1) + d.sf(k-1)
}

// proportionCI returns the confidence interval of successes/trials. One-sided
// alternatives pin the far bound at 0 or 1.
func proportionCI(k, n int, opts rankresponse.Options) (float64, float64) {
	switch opts.CIMethod {
	case rankresponse.CIWilson:
		return wilsonCI(k, n, opts, false)
	case rankresponse.CIWilsonCC:
		return wilsonCI(k, n, opts, true)
	default:
		return clopperPearsonCI(k, n, opts)
	}
}

func clopperPearsonCI(k, n int, opts rankresponse.Options) (float64, float64) {
	alpha := 1 - opts.ConfidenceLevel
	if opts.Alternative == rankresponse.TwoSided {
		alpha /= 2
	}

	low, high := 0.0, 1.0
	if opts.Alternative != rankresponse.Less && k > 0 {
		low = distuv.Beta{Alpha: float64(k), Beta: float64(n - k + 1)}.Quantile(alpha)
	}
	if opts.Alternative != rankresponse.Greater && k < n {
		high = distuv.Beta{Alpha: float64(k + 1), Beta: float64(n - k)}.Quantile(1 - alpha)
	}
	return low, high
}

func wilsonCI(k, n int, opts rankresponse.Options, correction bool) (float64, float64) {
	var z float64
	if opts.Alternative == rankresponse.TwoSided {
		z = distuv.UnitNormal.Quantile(0.5 + 0.5*opts.ConfidenceLevel)
	} else {
		z = distuv.UnitNormal.Quantile(opts.ConfidenceLevel)
	}

	nf := float64(n)
	phat := float64(k) / nf
	t := 1 + z*z/nf
	r := (phat + z*z/(2*nf)) / t

	low, high := 0.0, 1.0
	if correction {
		if opts.Alternative != rankresponse.Less && k > 0 {
			dlo := (1 + z*math.Sqrt(z*z-2-1/nf+4*phat*(nf*(1-phat)+1))) / (2 * nf * t)
			low = r - dlo
		}
		if opts.Alternative != rankresponse.Greater && k < n {
			dhi := (1 + z*math.Sqrt(z*z+2-1/nf+4*phat*(nf*(1-phat)-1))) / (2 * nf * t)
			high = r + dhi
		}
	} else {
		d := z / t * math.Sqrt(phat*(1-phat)/nf+(z/(2*nf))*(z/(2*nf)))
		if opts.Alternative != rankresponse.Less && k > 0 {
			low = r - d
		}
		if opts.Alternative != rankresponse.Greater && k < n {
			high = r + d
		}
	}
	return math.Max(0, low), math.Min(1, high)
}
