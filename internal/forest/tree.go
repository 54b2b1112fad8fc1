package forest

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

const leaf = -1

// Tree is a binary decision tree stored as parallel node arrays. Node 0 is
// the root; a node with Feature == -1 is a leaf whose Value is the weighted
// fraction of positive samples that reached it.
type Tree struct {
	Feature   []int     `json:"feature"`
	Threshold []float64 `json:"threshold"`
	Left      []int     `json:"left"`
	Right     []int     `json:"right"`
	Value     []float64 `json:"value"`
}

func (t *Tree) predict(row []float64) float64 {
	node := 0
	for t.Feature[node] != leaf {
		if row[t.Feature[node]] <= t.Threshold[node] {
			node = t.Left[node]
		} else {
			node = t.Right[node]
		}
	}
	return t.Value[node]
}

// Nodes returns the number of nodes.
func (t *Tree) Nodes() int {
	return len(t.Feature)
}

func (t *Tree) validate(width int) error {
	n := len(t.Feature)
	if n == 0 {
		return errors.New("tree has no nodes")
	}
	if len(t.Threshold) != n || len(t.Left) != n || len(t.Right) != n || len(t.Value) != n {
		return errors.New("node arrays have different lengths")
	}

	for i := range n {
		v := t.Value[i]
		if math.IsNaN(v) || v < 0 || v > 1 {
			return fmt.Errorf("node %d has invalid value %v", i, v)
		}

		f := t.Feature[i]
		if f == leaf {
			continue
		}
		if f < 0 || f >= width {
			return fmt.Errorf("node %d splits on feature %d outside [0,%d)", i, f, width)
		}
		// Children are always allocated after their parent, which also rules out cycles.
		for _, child := range []int{t.Left[i], t.Right[i]} {
			if child <= i || child >= n {
				return fmt.Errorf("node %d has invalid child %d", i, child)
			}
		}
	}
	return nil
}

type grower struct {
	x               [][]float64
	y               []int
	w               []float64
	maxDepth        int
	minSamplesSplit int
	maxFeatures     int
	rng             *rand.Rand
	tree            *Tree
}

// bootstrap draws len(x) rows with replacement and returns the distinct rows
// drawn; each row's weight is its draw count times its class weight.
func (g *grower) bootstrap(classWeight [2]float64) []int {
	n := len(g.x)
	counts := make([]int, n)
	for range n {
		counts[g.rng.IntN(n)]++
	}

	g.w = make([]float64, n)
	idx := make([]int, 0, n)
	for i, c := range counts {
		if c == 0 {
			continue
		}
		g.w[i] = float64(c) * classWeight[g.y[i]]
		idx = append(idx, i)
	}
	return idx
}

func (g *grower) weights(idx []int) (pos, total float64) {
	for _, i := range idx {
		total += g.w[i]
		if g.y[i] == 1 {
			pos += g.w[i]
		}
	}
	return pos, total
}

func (g *grower) build(idx []int, depth int) int {
	id := len(g.tree.Feature)
	pos, total := g.weights(idx)

	value := 0.0
	if total > 0 {
		value = pos / total
	}

	g.tree.Feature = append(g.tree.Feature, leaf)
	g.tree.Threshold = append(g.tree.Threshold, 0)
	g.tree.Left = append(g.tree.Left, leaf)
	g.tree.Right = append(g.tree.Right, leaf)
	g.tree.Value = append(g.tree.Value, value)

	if len(idx) < g.minSamplesSplit || pos == 0 || pos == total {
		return id
	}
	if g.maxDepth > 0 && depth >= g.maxDepth {
		return id
	}

	feature, threshold, ok := g.bestSplit(idx)
	if !ok {
		return id
	}

	left := make([]int, 0, len(idx))
	right := make([]int, 0, len(idx))
	for _, i := range idx {
		if g.x[i][feature] <= threshold {
			left = append(left, i)
		} else {
			right = append(right, i)
		}
	}

	g.tree.Feature[id] = feature
	g.tree.Threshold[id] = threshold

	l := g.build(left, depth+1)
	r := g.build(right, depth+1)
	g.tree.Left[id] = l
	g.tree.Right[id] = r

	return id
}

type sample struct {
	value  float64
	weight float64
	pos    bool
}

// bestSplit visits features in random order until maxFeatures non-constant
// ones have been evaluated and returns the split minimizing the weighted
// gini impurity of the children.
func (g *grower) bestSplit(idx []int) (int, float64, bool) {
	width := len(g.x[0])
	order := g.rng.Perm(width)

	var (
		bestFeature   = leaf
		bestThreshold float64
		bestScore     = math.Inf(1)
		evaluated     int
	)

	samples := make([]sample, len(idx))
	for _, f := range order {
		if evaluated >= g.maxFeatures {
			break
		}

		lo, hi := math.Inf(1), math.Inf(-1)
		for k, i := range idx {
			v := g.x[i][f]
			samples[k] = sample{value: v, weight: g.w[i], pos: g.y[i] == 1}
			lo = min(lo, v)
			hi = max(hi, v)
		}
		if lo == hi {
			continue
		}
		evaluated++

		slices.SortFunc(samples, func(a, b sample) int {
			switch {
			case a.value < b.value:
				return -1
			case a.value > b.value:
				return 1
			default:
				return 0
			}
		})

		var totalW, totalPos float64
		for _, s := range samples {
			totalW += s.weight
			if s.pos {
				totalPos += s.weight
			}
		}

		var leftW, leftPos float64
		for k := 0; k < len(samples)-1; k++ {
			s := samples[k]
			leftW += s.weight
			if s.pos {
				leftPos += s.weight
			}

			next := samples[k+1].value
			if s.value == next {
				continue
			}

			rightW := totalW - leftW
			rightPos := totalPos - leftPos
			score := weightedGini(leftPos, leftW) + weightedGini(rightPos, rightW)
			if score < bestScore {
				bestScore = score
				bestFeature = f
				bestThreshold = midpoint(s.value, next)
			}
		}
	}

	return bestFeature, bestThreshold, bestFeature != leaf
}

// weightedGini returns w * gini for a node with positive weight pos.
func weightedGini(pos, w float64) float64 {
	if w <= 0 {
		return 0
	}
	p := pos / w
	return w * 2 * p * (1 - p)
}

func midpoint(a, b float64) float64 {
	m := a + (b-a)/2
	if m >= b || math.IsInf(m, 0) {
		return a
	}
	return m
}
