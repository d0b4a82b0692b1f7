package intersection

import (
	"sort"
	"strings"

	"tfbpdash/domain/intersection"
	"tfbpdash/domain/metadata"
	"tfbpdash/internal"
	"tfbpdash/internal/sourcename"
)

// Calculator computes regulator overlap between data sources of one datatype
type Calculator struct {
	datatype sourcename.Datatype
	names    *sourcename.Registry
	logger   *internal.Logger
}

// NewCalculator creates a calculator for binding or perturbation-response
// sources. The datatype is checked here so later calls cannot fail on it.
func NewCalculator(datatype sourcename.Datatype, names *sourcename.Registry, logger *internal.Logger) (*Calculator, error) {
	if _, err := sourcename.ParseDatatype(string(datatype)); err != nil {
		return nil, err
	}
	if names == nil {
		names = sourcename.NewRegistry(nil, nil)
	}
	return &Calculator{
		datatype: datatype,
		names:    names,
		logger:   logger.With("intersection/" + string(datatype)),
	}, nil
}

// RegulatorsBySource keeps metadata rows whose source is selected and
// collects the distinct regulators of each source, keyed by display name.
// Source keys without a registered label keep their raw key.
func (c *Calculator) RegulatorsBySource(rows []metadata.Row, selected []string) map[string]intersection.RegulatorSet {
	result := make(map[string]intersection.RegulatorSet)
	if len(selected) == 0 {
		return result
	}

	wanted := make(map[string]bool, len(selected))
	for _, s := range selected {
		wanted[s] = true
	}

	unmapped := make(map[string]bool)
	for _, row := range rows {
		if !wanted[row.SourceName] {
			continue
		}
		regulator := row.Regulator()
		if regulator == "" {
			continue
		}
		label, ok := c.names.DisplayName(c.datatype, row.SourceName)
		if !ok {
			unmapped[row.SourceName] = true
		}
		set, exists := result[label]
		if !exists {
			set = make(intersection.RegulatorSet)
			result[label] = set
		}
		set.Add(regulator)
	}

	if len(result) == 0 {
		c.logger.Warn("no data available for sources %v", selected)
	}
	for key := range unmapped {
		c.logger.Warn("source %q has no display name; using the key", key)
	}
	return result
}

// Summarize compares the selected sources. More than three selections are
// truncated to the first three; no selection gives the empty variant.
func (c *Calculator) Summarize(sets map[string]intersection.RegulatorSet, selected []string) intersection.Summary {
	if len(selected) == 0 {
		return intersection.Summary{Kind: intersection.KindEmpty}
	}
	if len(selected) > intersection.MaxSources {
		c.logger.Debug("comparing the first %d of %d selected sources", intersection.MaxSources, len(selected))
		selected = selected[:intersection.MaxSources]
	}

	names := make([]string, len(selected))
	groups := make([]intersection.RegulatorSet, len(selected))
	counts := make([]int, len(selected))
	for i, key := range selected {
		names[i], _ = c.names.DisplayName(c.datatype, key)
		groups[i] = sets[names[i]]
		counts[i] = len(groups[i])
	}

	switch len(selected) {
	case 1:
		return intersection.Summary{
			Kind:    intersection.KindSingle,
			Sources: names,
			Counts:  counts,
		}
	case 2:
		return intersection.Summary{
			Kind:         intersection.KindDouble,
			Sources:      names,
			Counts:       counts,
			Intersection: overlap(groups[0], groups[1]),
		}
	default:
		return intersection.Summary{
			Kind:    intersection.KindTriple,
			Sources: names,
			Counts:  counts,
			PairwiseIntersections: []int{
				overlap(groups[0], groups[1]),
				overlap(groups[0], groups[2]),
				overlap(groups[1], groups[2]),
			},
			TripleIntersection: overlap(groups[0], groups[1], groups[2]),
		}
	}
}

// Summary runs RegulatorsBySource and Summarize over the same selection
func (c *Calculator) Summary(rows []metadata.Row, selected []string) intersection.Summary {
	return c.Summarize(c.RegulatorsBySource(rows, selected), selected)
}

// overlap sizes the intersection of the given sets; a nil set is empty
func overlap(sets ...intersection.RegulatorSet) int {
	smallest := 0
	for i, s := range sets {
		if len(s) < len(sets[smallest]) {
			smallest = i
		}
	}
	others := make([]intersection.RegulatorSet, 0, len(sets)-1)
	for i, s := range sets {
		if i != smallest {
			others = append(others, s)
		}
	}
	return len(sets[smallest].Intersect(others...))
}

// Memberships partitions every regulator by the exact combination of sources
// that contain it. Bars are ordered by size, largest first, then by the
// joined source names.
func Memberships(sets map[string]intersection.RegulatorSet) []intersection.Membership {
	sources := make([]string, 0, len(sets))
	for name := range sets {
		sources = append(sources, name)
	}
	sort.Strings(sources)

	byCombination := make(map[string]*intersection.Membership)
	for _, regulator := range union(sets).Sorted() {
		var in []string
		for _, name := range sources {
			if sets[name].Has(regulator) {
				in = append(in, name)
			}
		}
		key := combinationKey(in)
		m, ok := byCombination[key]
		if !ok {
			m = &intersection.Membership{Sources: in}
			byCombination[key] = m
		}
		m.Regulators = append(m.Regulators, regulator)
		m.Size++
	}

	out := make([]intersection.Membership, 0, len(byCombination))
	for _, m := range byCombination {
		out = append(out, *m)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Size != out[j].Size {
			return out[i].Size > out[j].Size
		}
		return combinationKey(out[i].Sources) < combinationKey(out[j].Sources)
	})
	return out
}

func union(sets map[string]intersection.RegulatorSet) intersection.RegulatorSet {
	out := make(intersection.RegulatorSet)
	for _, s := range sets {
		for id := range s {
			out.Add(id)
		}
	}
	return out
}

func combinationKey(sources []string) string {
	return strings.Join(sources, "\x00")
}
