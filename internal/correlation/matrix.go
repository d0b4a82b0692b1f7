package correlation

import (
	"fmt"
	"math"

	"tfbpdash/domain/core"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// Matrix is a labelled, symmetric correlation matrix
type Matrix struct {
	Labels []string    `json:"labels"`
	Values [][]float64 `json:"values"`
}

// At returns the correlation between two labels
func (m Matrix) At(a, b string) (float64, bool) {
	ia, ib := -1, -1
	for i, l := range m.Labels {
		if l == a {
			ia = i
		}
		if l == b {
			ib = i
		}
	}
	if ia < 0 || ib < 0 {
		return 0, false
	}
	return m.Values[ia][ib], true
}

// Pearson computes the pairwise Pearson correlation of equally long columns.
// A constant column correlates as NaN with everything but itself.
func Pearson(labels []string, columns [][]float64) (*mat.SymDense, error) {
	if len(labels) != len(columns) {
		return nil, core.NewInvalidInputError("labels", fmt.Sprintf("%d labels for %d columns", len(labels), len(columns)))
	}
	if len(columns) < 2 {
		return nil, fmt.Errorf("%w: need at least two columns, got %d", core.ErrInsufficientData, len(columns))
	}
	n := len(columns[0])
	if n < 2 {
		return nil, fmt.Errorf("%w: need at least two observations, got %d", core.ErrInsufficientData, n)
	}
	for i, c := range columns {
		if len(c) != n {
			return nil, core.NewInvalidInputError(labels[i], fmt.Sprintf("has %d values, want %d", len(c), n))
		}
	}

	sym := mat.NewSymDense(len(columns), nil)
	for i := range columns {
		sym.SetSym(i, i, 1)
		for j := i + 1; j < len(columns); j++ {
			sym.SetSym(i, j, stat.Correlation(columns[i], columns[j], nil))
		}
	}
	return sym, nil
}

// ClusteredMatrix computes the Pearson matrix and reorders rows and columns
// by the leaf order of an average-linkage clustering of the matrix rows, so
// that correlated regulators sit next to each other in the heatmap.
func ClusteredMatrix(labels []string, columns [][]float64) (Matrix, error) {
	sym, err := Pearson(labels, columns)
	if err != nil {
		return Matrix{}, err
	}

	size := sym.SymmetricDim()
	rows := make([][]float64, size)
	for i := range rows {
		rows[i] = make([]float64, size)
		for j := range rows[i] {
			v := sym.At(i, j)
			if math.IsNaN(v) {
				v = 0
			}
			rows[i][j] = v
		}
	}

	order := averageLinkageOrder(rows)

	out := Matrix{
		Labels: make([]string, size),
		Values: make([][]float64, size),
	}
	for i, oi := range order {
		out.Labels[i] = labels[oi]
		out.Values[i] = make([]float64, size)
		for j, oj := range order {
			out.Values[i][j] = sym.At(oi, oj)
		}
	}
	return out, nil
}

// cluster is a node of the dendrogram. Leaves have id < n.
type cluster struct {
	id          int
	size        int
	left, right *cluster
}

func (c *cluster) leaves(out []int) []int {
	if c.left == nil {
		return append(out, c.id)
	}
	out = c.left.leaves(out)
	return c.right.leaves(out)
}

// averageLinkageOrder clusters observations by Euclidean distance with UPGMA
// and returns the left-to-right leaf order of the dendrogram. The cluster
// with the smaller id is always the left child.
func averageLinkageOrder(observations [][]float64) []int {
	n := len(observations)
	active := make([]*cluster, n)
	dist := make([][]float64, n)
	for i := range observations {
		active[i] = &cluster{id: i, size: 1}
		dist[i] = make([]float64, n)
		for j := range observations {
			dist[i][j] = floats.Distance(observations[i], observations[j], 2)
		}
	}

	nextID := n
	for len(active) > 1 {
		bi, bj := 0, 1
		for i := 0; i < len(active); i++ {
			for j := i + 1; j < len(active); j++ {
				if dist[i][j] < dist[bi][bj] {
					bi, bj = i, j
				}
			}
		}

		a, b := active[bi], active[bj]
		if b.id < a.id {
			a, b = b, a
		}
		merged := &cluster{id: nextID, size: a.size + b.size, left: a, right: b}
		nextID++

		// distances from the merged cluster, weighted by cluster size
		mergedDist := make([]float64, 0, len(active)-1)
		for k := range active {
			if k == bi || k == bj {
				continue
			}
			d := (float64(active[bi].size)*dist[bi][k] + float64(active[bj].size)*dist[bj][k]) /
				float64(active[bi].size+active[bj].size)
			mergedDist = append(mergedDist, d)
		}

		nextActive := make([]*cluster, 0, len(active)-1)
		nextDist := make([][]float64, 0, len(active)-1)
		for k := range active {
			if k == bi || k == bj {
				continue
			}
			nextActive = append(nextActive, active[k])
			row := make([]float64, 0, len(active)-1)
			for l := range active {
				if l == bi || l == bj {
					continue
				}
				row = append(row, dist[k][l])
			}
			nextDist = append(nextDist, row)
		}
		for k := range nextDist {
			nextDist[k] = append(nextDist[k], mergedDist[k])
		}
		nextDist = append(nextDist, append(mergedDist, 0))
		nextActive = append(nextActive, merged)

		active, dist = nextActive, nextDist
	}

	if n == 0 {
		return nil
	}
	return active[0].leaves(make([]int, 0, n))
}
