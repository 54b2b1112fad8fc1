// Package forest implements a binary random forest classifier of CART trees
// grown on bootstrap samples with gini impurity, random feature subsets and
// optional class-balanced sample weights.
package forest

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// ErrFeatureWidth is returned when an input row does not match the width the
// forest was trained on.
var ErrFeatureWidth = errors.New("feature width mismatch")

// Options controls forest growth.
type Options struct {
	// Trees is the number of estimators.
	Trees int
	// MaxDepth limits tree depth; 0 grows until leaves are pure.
	MaxDepth int
	// MinSamplesSplit is the smallest node that may be split.
	MinSamplesSplit int
	// MaxFeatures is the number of candidate features per split; 0 means
	// sqrt of the input width.
	MaxFeatures int
	// BalanceClasses weights samples by n / (classes * count(class)).
	BalanceClasses bool
	Seed           uint64
	// Workers bounds concurrent tree growth; 0 uses GOMAXPROCS.
	Workers int
}

// DefaultOptions mirrors a 100-tree, class-balanced forest.
func DefaultOptions() Options {
	return Options{
		Trees:           100,
		MinSamplesSplit: 2,
		BalanceClasses:  true,
		Seed:            42,
	}
}

// Forest is a trained ensemble. It is read-only after Fit and safe for
// concurrent prediction.
type Forest struct {
	NumFeatures int     `json:"num_features"`
	Trees       []*Tree `json:"trees"`
}

// Fit grows a forest on rows x with binary labels y (0 or 1). Trees are grown
// concurrently but each draws from its own seeded generator, so the result
// depends only on the inputs and opts.Seed.
func Fit(ctx context.Context, x [][]float64, y []int, opts Options) (*Forest, error) {
	if len(x) == 0 {
		return nil, errors.New("no training rows")
	}
	if len(x) != len(y) {
		return nil, fmt.Errorf("%d rows but %d labels", len(x), len(y))
	}
	if opts.Trees <= 0 {
		return nil, fmt.Errorf("trees must be positive, got %d", opts.Trees)
	}
	if opts.MinSamplesSplit < 2 {
		opts.MinSamplesSplit = 2
	}

	width := len(x[0])
	if width == 0 {
		return nil, errors.New("rows have no features")
	}
	for i, row := range x {
		if len(row) != width {
			return nil, fmt.Errorf("row %d has %d features, want %d: %w", i, len(row), width, ErrFeatureWidth)
		}
	}
	for i, label := range y {
		if label != 0 && label != 1 {
			return nil, fmt.Errorf("row %d has label %d, want 0 or 1", i, label)
		}
	}

	maxFeatures := opts.MaxFeatures
	if maxFeatures <= 0 {
		maxFeatures = int(math.Sqrt(float64(width)))
	}
	maxFeatures = max(1, min(maxFeatures, width))

	classWeight := [2]float64{1, 1}
	if opts.BalanceClasses {
		classWeight = balancedWeights(y)
	}

	master := rand.New(rand.NewPCG(opts.Seed, opts.Seed^0x9e3779b97f4a7c15))
	seeds := make([]uint64, opts.Trees)
	for i := range seeds {
		seeds[i] = master.Uint64()
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}

	trees := make([]*Tree, opts.Trees)
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)

	for i := range trees {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			gr := &grower{
				x:               x,
				y:               y,
				maxDepth:        opts.MaxDepth,
				minSamplesSplit: opts.MinSamplesSplit,
				maxFeatures:     maxFeatures,
				rng:             rand.New(rand.NewPCG(seeds[i], uint64(i))),
				tree:            &Tree{},
			}
			idx := gr.bootstrap(classWeight)
			gr.build(idx, 0)
			trees[i] = gr.tree
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &Forest{NumFeatures: width, Trees: trees}, nil
}

// PredictProba returns the mean positive-class probability across trees.
func (f *Forest) PredictProba(row []float64) (float64, error) {
	if len(row) != f.NumFeatures {
		return 0, fmt.Errorf("got %d features, want %d: %w", len(row), f.NumFeatures, ErrFeatureWidth)
	}
	if len(f.Trees) == 0 {
		return 0, errors.New("forest has no trees")
	}

	var sum float64
	for _, t := range f.Trees {
		sum += t.predict(row)
	}
	return sum / float64(len(f.Trees)), nil
}

// Predict returns the majority class for row.
func (f *Forest) Predict(row []float64) (int, error) {
	p, err := f.PredictProba(row)
	if err != nil {
		return 0, err
	}
	if p > 0.5 {
		return 1, nil
	}
	return 0, nil
}

// Validate checks the structure of a deserialized forest.
func (f *Forest) Validate() error {
	if f == nil {
		return errors.New("forest is nil")
	}
	if f.NumFeatures <= 0 {
		return fmt.Errorf("invalid feature width %d", f.NumFeatures)
	}
	if len(f.Trees) == 0 {
		return errors.New("forest has no trees")
	}
	for i, t := range f.Trees {
		if err := t.validate(f.NumFeatures); err != nil {
			return fmt.Errorf("tree %d: %w", i, err)
		}
	}
	return nil
}

// balancedWeights returns n / (classes * count) for each present class.
func balancedWeights(y []int) [2]float64 {
	var counts [2]int
	for _, label := range y {
		counts[label]++
	}

	present := 0
	for _, c := range counts {
		if c > 0 {
			present++
		}
	}

	weights := [2]float64{1, 1}
	for class, c := range counts {
		if c > 0 {
			weights[class] = float64(len(y)) / float64(present*c)
		}
	}
	return weights
}
