// Package binning builds the per-latent-stream Bin table used by the tANS
// coder: candidate bins from a sorted sample (Step 1), a dynamic-programming
// merge that minimizes estimated total bit cost (Step 2), and largest-
// remainder weight quantization to an exact power-of-two table size (Step 3).
package binning

import (
	"math"
	"sort"

	"github.com/nlatent/nlatent/internal/latent"
)

// Bin is one entry of a latent stream's ANS table: every latent x with
// Lower <= x < Lower+2^OffsetBits falls in this bin and is encoded as the
// bin's ANS symbol plus OffsetBits raw bits of (x-Lower). Weight is the
// bin's share of the ANS table, always a power-of-two-summing quantity
// after Quantize.
type Bin[T latent.Uint] struct {
	Weight     uint32
	Lower      T
	Upper      T
	OffsetBits uint8
}

// bitsToEncode returns the bit width needed to represent any integer in
// [0, maxValue], i.e. the reference's bits_to_encode: 0 when maxValue is 0
// (only one value is possible, so it costs nothing to write).
func bitsToEncode(maxValue uint64) uint8 {
	bits := uint8(0)
	for maxValue > 0 {
		bits++
		maxValue >>= 1
	}
	return bits
}

func offsetBitsFor[T latent.Uint](lower, upper T) uint8 {
	return bitsToEncode(uint64(latent.WrappingSub(upper, lower)))
}

// ChooseLevel bounds the candidate-bin level by log2(n) so that tiny chunks
// never pay for a table far larger than they have values to fill, per
// spec.md's "chosen level is bounded by log2(n_values) to prevent blowup".
func ChooseLevel(n, compressionLevel int) int {
	level := compressionLevel
	nLog := 0
	for x := n; x > 1; x >>= 1 {
		nLog++
	}
	if nLog < level {
		level = nLog
	}
	if level < 0 {
		level = 0
	}
	return level
}

// Candidates builds Step 1's unoptimized bins from a sorted sample. A new
// bin starts once the cumulative count crosses (bin_index+1)*n/max_n_bins,
// except that a run of identical values straddling that boundary is never
// split across two bins.
func Candidates[T latent.Uint](sorted []T, level int) []Bin[T] {
	n := len(sorted)
	if n == 0 {
		return nil
	}

	maxNBins := n
	if p := 1 << level; p < maxNBins {
		maxNBins = p
	}
	if maxNBins < 1 {
		maxNBins = 1
	}

	bins := make([]Bin[T], 0, maxNBins)
	start := 0
	for start < n {
		binIdx := len(bins)
		end := ((binIdx + 1) * n) / maxNBins
		if end <= start {
			end = start + 1
		}
		if end > n {
			end = n
		}
		for end < n && sorted[end] == sorted[end-1] {
			end++
		}

		lower, upper := sorted[start], sorted[end-1]
		bins = append(bins, Bin[T]{
			Weight:     uint32(end - start),
			Lower:      lower,
			Upper:      upper,
			OffsetBits: offsetBitsFor(lower, upper),
		})
		start = end
	}

	return bins
}

// binCost computes the reference's bin_cost(lower, upper, count) for a
// prospective merged bin, given the metadata cost shared by every bin at
// this ans_size_log (ans_size_log + BITS_OF_L + bits_to_encode(offset_bits)
// amortized per symbol) and the per-symbol ANS + raw-offset cost.
func binCost[T latent.Uint](metaCost float64, ansSizeLog uint8, lower, upper T, count int) float64 {
	offsetBits := offsetBitsFor(lower, upper)
	weight := float64(count)
	avgAnsBits := float64(ansSizeLog) - math.Log2(weight)
	return metaCost + (avgAnsBits+float64(offsetBits))*weight
}

// Optimize runs Step 2's exact DP merge over the candidate bins, minimizing
// total estimated bit cost under a planning value of ans_size_log (the same
// value Quantize will later target). Ties break toward the leftmost (widest)
// split, matching a left-to-right scan that never prefers a later j once an
// earlier one is equally good.
func Optimize[T latent.Uint](cands []Bin[T], ansSizeLog uint8) []Bin[T] {
	if len(cands) == 0 {
		return nil
	}

	lBits := latent.Bits[T]()
	bitsToEncodeOffsetBits := bitsToEncode(uint64(lBits))
	metaCost := float64(ansSizeLog) + float64(lBits) + float64(bitsToEncodeOffsetBits)

	cumCount := make([]int, len(cands)+1)
	for i, b := range cands {
		cumCount[i+1] = cumCount[i] + int(b.Weight)
	}

	bestCost := make([]float64, len(cands)+1)
	bestJ := make([]int, len(cands)+1)
	for i := 1; i <= len(cands); i++ {
		best := math.Inf(1)
		bj := 0
		for j := 0; j < i; j++ {
			count := cumCount[i] - cumCount[j]
			cost := bestCost[j] + binCost(metaCost, ansSizeLog, cands[j].Lower, cands[i-1].Upper, count)
			if cost < best {
				best = cost
				bj = j
			}
		}
		bestCost[i] = best
		bestJ[i] = bj
	}

	var cuts []int
	for i := len(cands); i > 0; i = bestJ[i] {
		cuts = append(cuts, i)
	}
	for l, r := 0, len(cuts)-1; l < r; l, r = l+1, r-1 {
		cuts[l], cuts[r] = cuts[r], cuts[l]
	}

	bins := make([]Bin[T], 0, len(cuts))
	start := 0
	for _, end := range cuts {
		lower, upper := cands[start].Lower, cands[end-1].Upper
		bins = append(bins, Bin[T]{
			Weight:     uint32(cumCount[end] - cumCount[start]),
			Lower:      lower,
			Upper:      upper,
			OffsetBits: offsetBitsFor(lower, upper),
		})
		start = end
	}

	return bins
}

// AnsSizeLog picks Step 3's table size: level+2, capped at 10, then raised
// (up to that cap) until the table has at least nBins states (a table
// smaller than n_bins cannot give every bin a state).
func AnsSizeLog(level int, nBins int) uint8 {
	sizeLog := level + 2
	if sizeLog > 10 {
		sizeLog = 10
	}
	if sizeLog < 0 {
		sizeLog = 0
	}
	for nBins > 1<<uint(sizeLog) && sizeLog < 10 {
		sizeLog++
	}
	return uint8(sizeLog)
}

// Quantize rescales each bin's count to an integer ANS weight so the
// weights sum exactly to 2^sizeLog, via largest-remainder rounding with a
// floor of 1 state per bin (every bin must own at least one ANS state).
func Quantize[T latent.Uint](bins []Bin[T], sizeLog uint8) []Bin[T] {
	if len(bins) == 0 {
		return nil
	}

	target := uint64(1) << sizeLog
	total := 0
	for _, b := range bins {
		total += int(b.Weight)
	}
	if total == 0 {
		total = 1
	}

	type remainder struct {
		idx int
		rem float64
	}

	quantized := make([]uint64, len(bins))
	rems := make([]remainder, len(bins))
	var sum uint64
	for i, b := range bins {
		exact := float64(b.Weight) * float64(target) / float64(total)
		q := uint64(exact)
		if q < 1 {
			q = 1
		}
		quantized[i] = q
		sum += q
		rems[i] = remainder{idx: i, rem: exact - math.Floor(exact)}
	}

	switch {
	case sum < target:
		deficit := target - sum
		sort.SliceStable(rems, func(a, c int) bool { return rems[a].rem > rems[c].rem })
		for k := uint64(0); k < deficit; k++ {
			quantized[rems[int(k)%len(rems)].idx]++
		}
	case sum > target:
		surplus := sum - target
		sort.SliceStable(rems, func(a, c int) bool { return rems[a].rem < rems[c].rem })
		k := 0
		for surplus > 0 {
			idx := rems[k%len(rems)].idx
			if quantized[idx] > 1 {
				quantized[idx]--
				surplus--
			}
			k++
		}
	}

	out := make([]Bin[T], len(bins))
	for i, b := range bins {
		out[i] = Bin[T]{
			Weight:     uint32(quantized[i]),
			Lower:      b.Lower,
			Upper:      b.Upper,
			OffsetBits: b.OffsetBits,
		}
	}
	return out
}

// EstimateBits sums the same per-bin cost model Optimize minimizes, giving
// a rough total-bit estimate for a finished bin table. Used by delta-order
// auto-selection to compare candidate orders without building a full ANS
// spec for each.
func EstimateBits[T latent.Uint](bins []Bin[T], sizeLog uint8) float64 {
	if len(bins) == 0 {
		return 0
	}

	lBits := latent.Bits[T]()
	bitsToEncodeOffsetBits := bitsToEncode(uint64(lBits))
	metaCost := float64(sizeLog) + float64(lBits) + float64(bitsToEncodeOffsetBits)

	var total float64
	for _, b := range bins {
		total += binCost(metaCost, sizeLog, b.Lower, b.Upper, int(b.Weight))
	}
	return total
}

// Train runs Steps 1-3 in sequence over a sorted sample, returning the final
// quantized bins and the ans_size_log they were quantized against.
func Train[T latent.Uint](sorted []T, compressionLevel int) ([]Bin[T], uint8) {
	if len(sorted) == 0 {
		return nil, 0
	}

	level := ChooseLevel(len(sorted), compressionLevel)
	cands := Candidates(sorted, level)
	sizeLog := AnsSizeLog(level, len(cands))
	optimized := Optimize(cands, sizeLog)
	sizeLog = AnsSizeLog(level, len(optimized))
	if len(optimized) == 1 {
		sizeLog = 0
	}
	return Quantize(optimized, sizeLog), sizeLog
}
