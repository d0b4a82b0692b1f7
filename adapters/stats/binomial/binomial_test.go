package binomial

import (
	"math"
	"testing"

	"tfbpdash/domain/core"
	"tfbpdash/domain/rankresponse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func withAlternative(alt rankresponse.Alternative) rankresponse.Options {
	opts := rankresponse.DefaultOptions()
	opts.Alternative = alt
	return opts
}

func TestExactBinomialTest_PValues(t *testing.T) {
	tester := NewTester()

	tests := []struct {
		name      string
		k, n      int
		p         float64
		alt       rankresponse.Alternative
		expectedP float64
	}{
		{"all successes single trial", 1, 1, 0.5, rankresponse.TwoSided, 1.0},
		{"all successes two trials", 2, 2, 0.5, rankresponse.TwoSided, 0.5},
		{"upper tail only", 7, 10, 0.3, rankresponse.TwoSided, 0.0105920784},
		{"greater", 7, 10, 0.3, rankresponse.Greater, 0.0105920784},
		{"less", 7, 10, 0.3, rankresponse.Less, 0.9984096136},
		{"symmetric lower", 3, 20, 0.5, rankresponse.TwoSided, 0.0025768280},
		{"below mean", 1, 10, 0.3, rankresponse.TwoSided, 0.2995766785},
		{"far above mean", 9, 10, 0.3, rankresponse.TwoSided, 0.0001436859},
		{"exactly at mean", 5, 10, 0.5, rankresponse.TwoSided, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tester.ExactBinomialTest(tt.k, tt.n, tt.p, withAlternative(tt.alt))
			require.NoError(t, err)
			assert.InDelta(t, tt.expectedP, res.PValue, 1e-8)
			assert.Equal(t, float64(tt.k)/float64(tt.n), res.Statistic)
		})
	}
}

func TestExactBinomialTest_DegenerateProportion(t *testing.T) {
	tester := NewTester()

	tests := []struct {
		name      string
		k, n      int
		p         float64
		alt       rankresponse.Alternative
		expectedP float64
	}{
		{"p=0 no successes", 0, 5, 0, rankresponse.TwoSided, 1.0},
		{"p=0 some successes", 2, 5, 0, rankresponse.TwoSided, 0.0},
		{"p=0 greater", 2, 5, 0, rankresponse.Greater, 0.0},
		{"p=0 less", 2, 5, 0, rankresponse.Less, 1.0},
		{"p=1 all successes", 5, 5, 1, rankresponse.TwoSided, 1.0},
		{"p=1 missing successes", 3, 5, 1, rankresponse.TwoSided, 0.0},
		{"p=1 greater", 3, 5, 1, rankresponse.Greater, 1.0},
		{"p=1 less", 3, 5, 1, rankresponse.Less, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res, err := tester.ExactBinomialTest(tt.k, tt.n, tt.p, withAlternative(tt.alt))
			require.NoError(t, err)
			assert.False(t, math.IsNaN(res.PValue))
			assert.Equal(t, tt.expectedP, res.PValue)
		})
	}
}

func TestExactBinomialTest_ConfidenceIntervals(t *testing.T) {
	tester := NewTester()

	t.Run("clopper-pearson", func(t *testing.T) {
		res, err := tester.ExactBinomialTest(7, 10, 0.3, rankresponse.DefaultOptions())
		require.NoError(t, err)
		assert.InDelta(t, 0.3475471, res.CILow, 1e-6)
		assert.InDelta(t, 0.9332605, res.CIHigh, 1e-6)
	})

	t.Run("clopper-pearson at the edges", func(t *testing.T) {
		res, err := tester.ExactBinomialTest(1, 1, 0.5, rankresponse.DefaultOptions())
		require.NoError(t, err)
		assert.InDelta(t, 0.025, res.CILow, 1e-9)
		assert.Equal(t, 1.0, res.CIHigh)

		res, err = tester.ExactBinomialTest(2, 2, 0.5, rankresponse.DefaultOptions())
		require.NoError(t, err)
		assert.InDelta(t, math.Sqrt(0.025), res.CILow, 1e-9)
		assert.Equal(t, 1.0, res.CIHigh)

		res, err = tester.ExactBinomialTest(0, 4, 0.5, rankresponse.DefaultOptions())
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.CILow)
	})

	t.Run("wilson", func(t *testing.T) {
		opts := rankresponse.DefaultOptions()
		opts.CIMethod = rankresponse.CIWilson
		res, err := tester.ExactBinomialTest(7, 10, 0.3, opts)
		require.NoError(t, err)
		assert.InDelta(t, 0.3968, res.CILow, 1e-4)
		assert.InDelta(t, 0.8922, res.CIHigh, 1e-4)
	})

	t.Run("one-sided pins a bound", func(t *testing.T) {
		res, err := tester.ExactBinomialTest(7, 10, 0.3, withAlternative(rankresponse.Greater))
		require.NoError(t, err)
		assert.Equal(t, 1.0, res.CIHigh)
		assert.Greater(t, res.CILow, 0.0)

		res, err = tester.ExactBinomialTest(7, 10, 0.3, withAlternative(rankresponse.Less))
		require.NoError(t, err)
		assert.Equal(t, 0.0, res.CILow)
		assert.Less(t, res.CIHigh, 1.0)
	})

	t.Run("interval contains the ratio", func(t *testing.T) {
		for _, method := range []rankresponse.CIMethod{rankresponse.CIExact, rankresponse.CIWilson, rankresponse.CIWilsonCC} {
			for _, alt := range []rankresponse.Alternative{rankresponse.TwoSided, rankresponse.Less, rankresponse.Greater} {
				for _, cl := range []float64{0.5, 0.9, 0.95, 0.99} {
					opts := rankresponse.Options{Alternative: alt, ConfidenceLevel: cl, CIMethod: method}
					for n := 1; n <= 30; n++ {
						for k := 0; k <= n; k++ {
							res, err := tester.ExactBinomialTest(k, n, 0.2, opts)
							require.NoError(t, err)
							ratio := float64(k) / float64(n)
							assert.LessOrEqual(t, res.CILow, ratio+1e-12, "%s %s %.2f k=%d n=%d", method, alt, cl, k, n)
							assert.GreaterOrEqual(t, res.CIHigh, ratio-1e-12, "%s %s %.2f k=%d n=%d", method, alt, cl, k, n)
						}
					}
				}
			}
		}
	})
}

func TestExactBinomialTest_InvalidArguments(t *testing.T) {
	tester := NewTester()

	_, err := tester.ExactBinomialTest(3, 2, 0.5, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	_, err = tester.ExactBinomialTest(0, 0, 0.5, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	_, err = tester.ExactBinomialTest(1, 2, 1.5, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	_, err = tester.ExactBinomialTest(1, 2, math.NaN(), rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	_, err = tester.ExactBinomialTest(1, 2, 0.5, withAlternative("sideways"))
	assert.True(t, core.IsConfigurationError(err))
}

func TestBinomialPPF(t *testing.T) {
	tester := NewTester()

	tests := []struct {
		q        float64
		n        int
		p        float64
		expected float64
	}{
		{0.025, 100, 0.2, 12},
		{0.975, 100, 0.2, 28},
		{0.025, 10, 0.5, 2},
		{0.975, 10, 0.5, 8},
		{0.5, 10, 0, 0},
		{0.5, 10, 1, 10},
		{1, 10, 0.5, 10},
		{0, 10, 0.5, -1},
	}

	for _, tt := range tests {
		got, err := tester.BinomialPPF(tt.q, tt.n, tt.p)
		require.NoError(t, err)
		assert.Equal(t, tt.expected, got, "ppf(%v, %d, %v)", tt.q, tt.n, tt.p)
	}

	_, err := tester.BinomialPPF(1.5, 10, 0.5)
	assert.True(t, core.IsInvalidInputError(err))
}
