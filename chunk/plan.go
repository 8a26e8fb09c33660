package chunk

import (
	"math"

	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/ans"
	"github.com/nlatent/nlatent/internal/binning"
	"github.com/nlatent/nlatent/internal/delta"
	"github.com/nlatent/nlatent/internal/latent"
)

// streamPlan is one latent stream's trained bins and the ANS spec built
// from their quantized weights.
type streamPlan[T latent.Uint] struct {
	bins       []binning.Bin[T]
	ansSizeLog uint8
	spec       ans.Spec
}

func trainStream[T latent.Uint](values []T, level int) (streamPlan[T], error) {
	sample := sampleSortedLatents(values, maxTrainingSample)
	bins, sizeLog := binning.Train(sample, level)

	weights := make([]uint32, len(bins))
	for i, b := range bins {
		weights[i] = b.Weight
	}

	spec, err := ans.BuildSpec(sizeLog, weights)
	if err != nil {
		return streamPlan[T]{}, err
	}

	return streamPlan[T]{bins: bins, ansSizeLog: sizeLog, spec: spec}, nil
}

func weightsOf[T latent.Uint](bins []binning.Bin[T]) []uint32 {
	out := make([]uint32, len(bins))
	for i, b := range bins {
		out[i] = b.Weight
	}
	return out
}

// findBin returns the index of the bin containing x, by binary search over
// bins sorted ascending by Lower (the order Candidates/Optimize produce).
func findBin[T latent.Uint](bins []binning.Bin[T], x T) int {
	lo, hi := 0, len(bins)-1
	for lo < hi {
		mid := (lo + hi + 1) / 2
		if bins[mid].Lower <= x {
			lo = mid
		} else {
			hi = mid - 1
		}
	}
	return lo
}

// autoDeltaOrder implements spec.md §9's "Auto delta order": probe a
// 1100-sample prefix at a capped compression level for every candidate
// order and pick the one with the smallest estimated bit cost.
func autoDeltaOrder[T latent.Uint](primary []T, cfgLevel int) int {
	probeLevel := cfgLevel
	if probeLevel > 6 {
		probeLevel = 6
	}

	limit := len(primary)
	if limit > 1100 {
		limit = 1100
	}
	prefix := primary[:limit]

	best := 0
	bestBits := math.Inf(1)
	for order := 0; order <= format.MaxDeltaEncodingOrder; order++ {
		scratch := append([]T(nil), prefix...)
		delta.EncodeInPlace(scratch, order)

		level := binning.ChooseLevel(len(scratch), probeLevel)
		sample := sampleSortedLatents(scratch, len(scratch))
		bins, sizeLog := binning.Train(sample, level)
		bits := binning.EstimateBits(bins, sizeLog)

		if bits < bestBits {
			bestBits = bits
			best = order
		}
	}

	return best
}
