package rankresponse

import (
	"math/rand"
	"testing"

	"tfbpdash/domain/core"
	"tfbpdash/domain/rankresponse"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gene(bin int, responsive bool, random float64) rankresponse.GeneRecord {
	return rankresponse.GeneRecord{RankBin: bin, Responsive: responsive, RandomExpectation: random}
}

// randomReplicate builds about n genes with tied and skipped bins, the way
// binding ranks come out of the database: tied genes share the rank of the
// last gene in the tie
func randomReplicate(rng *rand.Rand, n int, random float64) []rankresponse.GeneRecord {
	records := make([]rankresponse.GeneRecord, 0, n)
	pos := 0
	for len(records) < n {
		tie := 1
		if rng.Intn(4) == 0 {
			tie += rng.Intn(3)
		}
		pos += tie
		if rng.Intn(5) == 0 {
			pos++
		}
		for j := 0; j < tie; j++ {
			records = append(records, gene(pos, rng.Float64() < 0.4, random))
		}
	}
	rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	return records
}

func TestComputeRankResponse_Scenario(t *testing.T) {
	engine := NewEngine()
	records := []rankresponse.GeneRecord{
		gene(1, true, 0.5),
		gene(2, false, 0.5),
		gene(2, true, 0.5),
	}

	rows, err := engine.ComputeRankResponse(records, rankresponse.DefaultOptions())
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, 1, rows[0].RankBin)
	assert.Equal(t, 1, rows[0].NResponsiveInRank)
	assert.Equal(t, 1, rows[0].NSuccesses)
	assert.Equal(t, 1.0, rows[0].ResponseRatio)
	assert.InDelta(t, 1.0, rows[0].PValue, 1e-12)

	assert.Equal(t, 2, rows[1].RankBin)
	assert.Equal(t, 1, rows[1].NResponsiveInRank)
	assert.Equal(t, 2, rows[1].NSuccesses)
	assert.Equal(t, 1.0, rows[1].ResponseRatio)
	assert.InDelta(t, 0.5, rows[1].PValue, 1e-12)

	for _, row := range rows {
		assert.Equal(t, 0.5, row.RandomExpectation)
		assert.Equal(t, 1.0, row.CIUpper)
	}
}

func TestComputeRankResponse_EmptyInput(t *testing.T) {
	rows, err := NewEngine().ComputeRankResponse(nil, rankresponse.DefaultOptions())
	require.NoError(t, err)
	assert.NotNil(t, rows)
	assert.Empty(t, rows)
}

func TestComputeRankResponse_InconsistentBaseline(t *testing.T) {
	records := []rankresponse.GeneRecord{
		gene(1, true, 0.2),
		gene(2, false, 0.3),
	}
	_, err := NewEngine().ComputeRankResponse(records, rankresponse.DefaultOptions())
	require.Error(t, err)
	assert.True(t, core.IsInconsistentBaselineError(err))
}

func TestComputeRankResponse_ConfigurationErrors(t *testing.T) {
	engine := NewEngine()
	records := []rankresponse.GeneRecord{gene(1, true, 0.5)}

	tests := []struct {
		name string
		opts rankresponse.Options
	}{
		{"unknown alternative", rankresponse.Options{Alternative: "both", ConfidenceLevel: 0.95, CIMethod: rankresponse.CIExact}},
		{"unknown ci method", rankresponse.Options{Alternative: rankresponse.TwoSided, ConfidenceLevel: 0.95, CIMethod: "agresti"}},
		{"confidence of one", rankresponse.Options{Alternative: rankresponse.TwoSided, ConfidenceLevel: 1, CIMethod: rankresponse.CIExact}},
		{"confidence of zero", rankresponse.Options{Alternative: rankresponse.TwoSided, ConfidenceLevel: 0, CIMethod: rankresponse.CIExact}},
		{"confidence as percent", rankresponse.Options{Alternative: rankresponse.TwoSided, ConfidenceLevel: 95, CIMethod: rankresponse.CIExact}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := engine.ComputeRankResponse(records, tt.opts)
			assert.True(t, core.IsConfigurationError(err), "got %v", err)

			// validation happens before the data is looked at
			_, err = engine.ComputeRankResponse(nil, tt.opts)
			assert.True(t, core.IsConfigurationError(err), "got %v", err)
		})
	}
}

func TestComputeRankResponse_InvalidRecords(t *testing.T) {
	engine := NewEngine()

	_, err := engine.ComputeRankResponse([]rankresponse.GeneRecord{gene(0, true, 0.5)}, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	_, err = engine.ComputeRankResponse([]rankresponse.GeneRecord{gene(1, true, 1.2)}, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))

	// two responsive genes cannot both sit inside the top one
	_, err = engine.ComputeRankResponse([]rankresponse.GeneRecord{gene(1, true, 0.5), gene(1, true, 0.5)}, rankresponse.DefaultOptions())
	assert.True(t, core.IsInvalidInputError(err))
}

func TestComputeRankResponse_DegenerateBaseline(t *testing.T) {
	engine := NewEngine()

	for _, random := range []float64{0, 1} {
		records := []rankresponse.GeneRecord{
			gene(1, true, random),
			gene(2, false, random),
			gene(3, true, random),
		}
		rows, err := engine.ComputeRankResponse(records, rankresponse.DefaultOptions())
		require.NoError(t, err)
		for _, row := range rows {
			assert.GreaterOrEqual(t, row.PValue, 0.0)
			assert.LessOrEqual(t, row.PValue, 1.0)
		}
	}

	// nothing responsive against a zero baseline is exactly what the null predicts
	rows, err := engine.ComputeRankResponse([]rankresponse.GeneRecord{gene(1, false, 0), gene(2, false, 0)}, rankresponse.DefaultOptions())
	require.NoError(t, err)
	for _, row := range rows {
		assert.Equal(t, 1.0, row.PValue)
	}
}

func TestComputeRankResponse_Properties(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(42))

	methods := []rankresponse.CIMethod{rankresponse.CIExact, rankresponse.CIWilson, rankresponse.CIWilsonCC}
	levels := []float64{0.5, 0.8, 0.95, 0.999}

	for trial := 0; trial < 40; trial++ {
		records := randomReplicate(rng, 20+rng.Intn(150), rng.Float64())
		opts := rankresponse.Options{
			Alternative:     rankresponse.TwoSided,
			ConfidenceLevel: levels[trial%len(levels)],
			CIMethod:        methods[trial%len(methods)],
		}

		rows, err := engine.ComputeRankResponse(records, opts)
		require.NoError(t, err)
		require.NotEmpty(t, rows)

		prev := 0
		prevBin := 0
		for _, row := range rows {
			assert.Greater(t, row.RankBin, prevBin, "bins must be strictly ascending")
			assert.GreaterOrEqual(t, row.NSuccesses, prev, "cumulative successes must not decrease")
			assert.Equal(t, float64(row.NSuccesses)/float64(row.RankBin), row.ResponseRatio)
			assert.GreaterOrEqual(t, row.ResponseRatio, 0.0)
			assert.LessOrEqual(t, row.ResponseRatio, 1.0)
			assert.LessOrEqual(t, row.CILower, row.ResponseRatio+1e-12)
			assert.GreaterOrEqual(t, row.CIUpper, row.ResponseRatio-1e-12)
			assert.GreaterOrEqual(t, row.PValue, 0.0)
			assert.LessOrEqual(t, row.PValue, 1.0)
			prev = row.NSuccesses
			prevBin = row.RankBin
		}
	}
}

func TestComputeRankResponse_InputOrderDoesNotMatter(t *testing.T) {
	engine := NewEngine()
	rng := rand.New(rand.NewSource(7))
	records := randomReplicate(rng, 80, 0.25)

	first, err := engine.ComputeRankResponse(records, rankresponse.DefaultOptions())
	require.NoError(t, err)

	rng.Shuffle(len(records), func(i, j int) { records[i], records[j] = records[j], records[i] })
	second, err := engine.ComputeRankResponse(records, rankresponse.DefaultOptions())
	require.NoError(t, err)

	assert.Equal(t, first, second)
}

func TestBaselineConfidenceBand(t *testing.T) {
	engine := NewEngine()

	band, err := engine.BaselineConfidenceBand([]int{10, 100}, 0.5, 0.05)
	require.NoError(t, err)
	require.Len(t, band, 2)
	assert.InDelta(t, 0.2, band[0].Lower, 1e-12)
	assert.InDelta(t, 0.8, band[0].Upper, 1e-12)
	assert.True(t, band[1].Contains(0.5))
	assert.Less(t, band[1].Upper-band[1].Lower, band[0].Upper-band[0].Lower, "band narrows as trials grow")

	band, err = engine.BaselineConfidenceBand([]int{100}, 0.2, 0.05)
	require.NoError(t, err)
	assert.InDelta(t, 0.12, band[0].Lower, 1e-12)
	assert.InDelta(t, 0.28, band[0].Upper, 1e-12)

	band, err = engine.BaselineConfidenceBand([]int{5, 10}, 0, 0.05)
	require.NoError(t, err)
	for _, iv := range band {
		assert.Equal(t, rankresponse.Interval{Lower: 0, Upper: 0}, iv)
	}

	band, err = engine.BaselineConfidenceBand(nil, 0.3, 0.05)
	require.NoError(t, err)
	assert.Empty(t, band)
}

func TestBaselineConfidenceBand_Errors(t *testing.T) {
	engine := NewEngine()

	_, err := engine.BaselineConfidenceBand([]int{10}, 0.5, 0)
	assert.True(t, core.IsConfigurationError(err))

	_, err = engine.BaselineConfidenceBand([]int{10}, 0.5, 1.5)
	assert.True(t, core.IsConfigurationError(err))

	_, err = engine.BaselineConfidenceBand([]int{10}, -0.1, 0.05)
	assert.True(t, core.IsInvalidInputError(err))

	_, err = engine.BaselineConfidenceBand([]int{0}, 0.5, 0.05)
	assert.True(t, core.IsInvalidInputError(err))
}
