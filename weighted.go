package trafficgen

import (
	"fmt"
	"math/rand"
	"sort"
)

// ChooseWeighted selects one label from weights with probability
// proportional to its weight. Weights need not sum to 1. Labels are
// visited in sorted order so a seeded rand.Rand reproduces its choices.
func ChooseWeighted(rng *rand.Rand, weights map[string]float64) (string, error) {

	if len(weights) == 0 {
		return "", fmt.Errorf("%w: empty weight table", ErrConfiguration)
	}

	labels := make([]string, 0, len(weights))
	total := 0.0

	for label, w := range weights {
		if w < 0 {
			return "", fmt.Errorf("%w: negative weight for %q", ErrConfiguration, label)
		}
		labels = append(labels, label)
		total += w
	}

	if total <= 0 {
		return "", fmt.Errorf("%w: weight table sums to zero", ErrConfiguration)
	}

	sort.Strings(labels)

	target := rng.Float64() * total

	for _, label := range labels {
		target -= weights[label]
		if target < 0 {
			return label, nil
		}
	}

	// Floating-point leftovers land on the last label.
	return labels[len(labels)-1], nil
}
