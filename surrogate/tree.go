package surrogate

import (
	"math"
	"sort"

	"github.com/minghao2016/flashlight/dataset"
	"github.com/minghao2016/flashlight/pkg/errors"
)

// Node is one node of a fitted surrogate tree. Leaves carry the mean of the
// black-box predictions routed to them; split nodes route rows with
// feature <= Threshold to Left and the rest to Right.
type Node struct {
	Feature   string
	Threshold float64
	Left      int
	Right     int
	Value     float64
	Count     int
	Depth     int
	Leaf      bool
}

// Tree is a depth-limited CART regression tree. The split search is an
// exhaustive scan over sorted unique values, so fitting is deterministic
// without any random state.
type Tree struct {
	Nodes          []Node
	MaxDepth       int
	MinSamplesLeaf int

	featureIdx map[string]int
}

// Predict routes each row of X through the tree.
func (t *Tree) Predict(X *dataset.Table) ([]float64, error) {
	if len(t.Nodes) == 0 {
		return nil, errors.NewValueError("surrogate.Predict", "tree is not fitted")
	}
	cols := make(map[string][]float64, len(t.featureIdx))
	for name := range t.featureIdx {
		col, err := X.Column(name)
		if err != nil {
			return nil, err
		}
		cols[name] = col
	}
	out := make([]float64, X.NRows())
	for i := range out {
		node := 0
		for !t.Nodes[node].Leaf {
			n := t.Nodes[node]
			if cols[n.Feature][i] <= n.Threshold {
				node = n.Left
			} else {
				node = n.Right
			}
		}
		out[i] = t.Nodes[node].Value
	}
	return out, nil
}

// growTree fits a regression tree of y on the feature columns.
func growTree(features *dataset.Table, y []float64, maxDepth, minLeaf int) (*Tree, error) {
	names := features.Columns()
	cols := make([][]float64, len(names))
	for i, name := range names {
		col, err := features.Column(name)
		if err != nil {
			return nil, err
		}
		cols[i] = col
	}
	t := &Tree{MaxDepth: maxDepth, MinSamplesLeaf: minLeaf, featureIdx: make(map[string]int, len(names))}
	for i, name := range names {
		t.featureIdx[name] = i
	}
	rows := make([]int, len(y))
	for i := range rows {
		rows[i] = i
	}
	t.grow(names, cols, y, rows, 0)
	return t, nil
}

// grow appends the subtree over rows and returns its node index.
func (t *Tree) grow(names []string, cols [][]float64, y []float64, rows []int, depth int) int {
	idx := len(t.Nodes)
	value, sse := meanSSE(y, rows)
	t.Nodes = append(t.Nodes, Node{Value: value, Count: len(rows), Depth: depth, Leaf: true})

	if depth >= t.MaxDepth || len(rows) < 2*t.MinSamplesLeaf || sse == 0 {
		return idx
	}

	bestGain := 0.0
	bestFeature := -1
	var bestThreshold float64
	for f := range names {
		gain, threshold, ok := bestSplit(cols[f], y, rows, t.MinSamplesLeaf)
		if ok && gain > bestGain {
			bestGain = gain
			bestFeature = f
			bestThreshold = threshold
		}
	}
	if bestFeature < 0 {
		return idx
	}

	var left, right []int
	for _, r := range rows {
		if cols[bestFeature][r] <= bestThreshold {
			left = append(left, r)
		} else {
			right = append(right, r)
		}
	}
	t.Nodes[idx].Leaf = false
	t.Nodes[idx].Feature = names[bestFeature]
	t.Nodes[idx].Threshold = bestThreshold
	t.Nodes[idx].Left = t.grow(names, cols, y, left, depth+1)
	t.Nodes[idx].Right = t.grow(names, cols, y, right, depth+1)
	return idx
}

// bestSplit scans the sorted unique values of one feature for the
// SSE-reducing threshold. Running sums make the scan linear after sorting.
func bestSplit(col, y []float64, rows []int, minLeaf int) (gain, threshold float64, ok bool) {
	n := len(rows)
	order := append([]int(nil), rows...)
	sort.Slice(order, func(i, j int) bool { return col[order[i]] < col[order[j]] })

	var totalSum, totalSq float64
	for _, r := range rows {
		totalSum += y[r]
		totalSq += y[r] * y[r]
	}
	parentSSE := totalSq - totalSum*totalSum/float64(n)

	var leftSum, leftSq float64
	best := math.Inf(-1)
	for i := 0; i < n-1; i++ {
		r := order[i]
		leftSum += y[r]
		leftSq += y[r] * y[r]
		// Only cut between distinct values.
		if col[order[i]] == col[order[i+1]] {
			continue
		}
		nl := i + 1
		nr := n - nl
		if nl < minLeaf || nr < minLeaf {
			continue
		}
		rightSum := totalSum - leftSum
		rightSq := totalSq - leftSq
		sse := (leftSq - leftSum*leftSum/float64(nl)) + (rightSq - rightSum*rightSum/float64(nr))
		if g := parentSSE - sse; g > best {
			best = g
			threshold = (col[order[i]] + col[order[i+1]]) / 2
		}
	}
	if math.IsInf(best, -1) || best <= 0 {
		return 0, 0, false
	}
	return best, threshold, true
}

func meanSSE(y []float64, rows []int) (mean, sse float64) {
	for _, r := range rows {
		mean += y[r]
	}
	mean /= float64(len(rows))
	for _, r := range rows {
		d := y[r] - mean
		sse += d * d
	}
	return mean, sse
}
