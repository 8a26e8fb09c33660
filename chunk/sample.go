package chunk

import (
	"sort"

	"github.com/nlatent/nlatent/internal/latent"
)

// strideSample returns at most maxSample elements of values, picked at a
// fixed stride, for the chunk-level training passes that spec.md bounds at
// up to 2^20 values.
func strideSample[T any](values []T, maxSample int) []T {
	n := len(values)
	if n <= maxSample {
		return append([]T(nil), values...)
	}

	out := make([]T, maxSample)
	stride := float64(n) / float64(maxSample)
	for i := range out {
		out[i] = values[int(float64(i)*stride)]
	}
	return out
}

func sampleSortedLatents[T latent.Uint](values []T, maxSample int) []T {
	sample := strideSample(values, maxSample)
	sort.Slice(sample, func(a, b int) bool { return sample[a] < sample[b] })
	return sample
}

const maxTrainingSample = 1 << 20
