package dataset

import (
	"fmt"
	"math/rand"
)

// Combination holds one selected value per dimension, keyed by dimension name.
// It is the unique identity of one generation request.
type Combination map[string]string

// FilterFunc reports whether a combination is acceptable. A nil filter
// accepts everything.
type FilterFunc func(Combination) bool

// ConfigurationError indicates the parameter space cannot satisfy the
// requested expansion. It is fatal: no generation should start.
type ConfigurationError struct {
	Msg string
}

func (e *ConfigurationError) Error() string {
	return "configuration error: " + e.Msg
}

// Expand samples n distinct combinations from the filtered Cartesian product
// of the space. Selection is a seeded shuffle of the valid product, so the
// same (space, seed, n) always yields the same list, in the same order.
//
// The caller owns the seed. Derive it from the wall-clock date if daily
// variation is wanted; pass a constant for reproducible runs.
func Expand(space Space, n int, seed int64, filter FilterFunc) ([]Combination, error) {
	if n < 0 {
		return nil, &ConfigurationError{Msg: fmt.Sprintf("requested count %d is negative", n)}
	}

	exp, err := ExpandAll(space, seed, filter)
	if err != nil {
		return nil, err
	}
	if n > exp.Len() {
		return nil, &ConfigurationError{
			Msg: fmt.Sprintf("requested %d combinations but only %d valid combinations exist", n, exp.Len()),
		}
	}

	combos := make([]Combination, n)
	for i := range combos {
		combos[i] = exp.At(i)
	}
	return combos, nil
}

// Expansion is the full valid product in seeded-shuffle order, held as flat
// indices and decoded on demand. It exists for callers that track progress by
// position across the whole space without holding millions of maps.
type Expansion struct {
	space Space
	order []int
}

// ExpandAll enumerates every valid combination under the seeded shuffle.
// Position i is stable for a given (space, seed, filter), which is what
// progress tracking keys on.
func ExpandAll(space Space, seed int64, filter FilterFunc) (*Expansion, error) {
	if len(space) == 0 {
		return nil, &ConfigurationError{Msg: "parameter space has no dimensions"}
	}
	for _, d := range space {
		if len(d.Values) == 0 {
			return nil, &ConfigurationError{Msg: fmt.Sprintf("dimension %q has no values", d.Name)}
		}
	}

	valid := enumerate(space, filter)
	rng := rand.New(rand.NewSource(seed))
	rng.Shuffle(len(valid), func(i, j int) {
		valid[i], valid[j] = valid[j], valid[i]
	})

	return &Expansion{space: space, order: valid}, nil
}

// Len returns the number of valid combinations.
func (e *Expansion) Len() int {
	return len(e.order)
}

// At decodes the combination at position i of the shuffled order.
func (e *Expansion) At(i int) Combination {
	return decode(e.space, e.order[i])
}

// enumerate walks the full Cartesian product with an index odometer and
// returns the flat index of each combination the filter accepts. Flat indices
// keep the candidate set compact; combinations are only materialized for the
// sampled subset.
func enumerate(space Space, filter FilterFunc) []int {
	total := space.Size()
	valid := make([]int, 0, total)

	indices := make([]int, len(space))
	combo := make(Combination, len(space))
	for flat := 0; flat < total; flat++ {
		for i, d := range space {
			combo[d.Name] = d.Values[indices[i]]
		}
		if filter == nil || filter(combo) {
			valid = append(valid, flat)
		}

		// Advance the odometer, last dimension fastest.
		for i := len(indices) - 1; i >= 0; i-- {
			indices[i]++
			if indices[i] < len(space[i].Values) {
				break
			}
			indices[i] = 0
		}
	}
	return valid
}

// decode converts a flat product index back into a Combination.
func decode(space Space, flat int) Combination {
	combo := make(Combination, len(space))
	for i := len(space) - 1; i >= 0; i-- {
		d := space[i]
		combo[d.Name] = d.Values[flat%len(d.Values)]
		flat /= len(d.Values)
	}
	return combo
}
