package classifier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"slices"
)

// split shuffles row indexes with seed and holds out ceil(n*testFraction)
// of them for evaluation. Both halves are returned in ascending order.
func split(n int, testFraction float64, seed uint64) (train, test []int, err error) {
	nTest := int(math.Ceil(float64(n) * testFraction))
	nTrain := n - nTest
	if nTest < 1 || nTrain < 1 {
		return nil, nil, fmt.Errorf("cannot split %d examples with test fraction %.2f", n, testFraction)
	}

	perm := rand.New(rand.NewPCG(seed, seed)).Perm(n)
	test = slices.Clone(perm[:nTest])
	train = slices.Clone(perm[nTest:])
	slices.Sort(test)
	slices.Sort(train)
	return train, test, nil
}
