// Package ans implements tabled Asymmetric Numeral System coding: a
// deterministic table-construction algorithm (Spec), a single-stream
// Encoder/Decoder pair, and the 4-way interleaving used by page bodies.
package ans

import (
	"fmt"

	"github.com/nlatent/nlatent/errs"
)

// Spec is the fully-built ANS table for one latent stream: which symbol
// owns each of the 2^SizeLog states, and each symbol's weight (its share
// of the table).
type Spec struct {
	SizeLog       uint8
	StateSymbols  []uint32
	SymbolWeights []uint32
}

func ceilDiv(a, b uint64) uint64 {
	if a == 0 {
		return 0
	}
	return (a + b - 1) / b
}

// BuildSpec spreads the symbols across the table deterministically so that
// symbols are interleaved rather than each filling one contiguous block: it
// walks the table from its last state to its first, cycling in index order
// through the symbols that still have weight left and giving each a short
// run of states sized to keep its count close to its target frequency so
// far.
func BuildSpec(sizeLog uint8, weights []uint32) (Spec, error) {
	tableSize := uint64(1) << sizeLog

	var sum uint64
	for _, w := range weights {
		sum += uint64(w)
	}
	if sum != tableSize {
		return Spec{}, fmt.Errorf("%w: table size 2^%d=%d does not match weight sum %d", errs.ErrWeightSumMismatch, sizeLog, tableSize, sum)
	}

	stateSymbols := make([]uint32, tableSize)
	weightsCopy := append([]uint32(nil), weights...)
	if len(weights) <= 1 {
		return Spec{SizeLog: sizeLog, StateSymbols: stateSymbols, SymbolWeights: weightsCopy}, nil
	}

	current := make([]uint64, len(weights))
	stateIdx := tableSize
	minSymbolLeft := 0
	for stateIdx > 0 {
		for sym := minSymbolLeft; sym < len(weights); sym++ {
			weight := uint64(weights[sym])
			statesFinished := tableSize - stateIdx + 1

			var diff uint64
			if num := weight * statesFinished; num > current[sym]*tableSize {
				diff = num - current[sym]*tableSize
			}
			repsShort := ceilDiv(diff, tableSize-weight)

			weightRemaining := weight - current[sym]
			repsToInterleave := uint64(1)
			if denom := stateIdx - weightRemaining + 1; denom > 0 {
				if v := weightRemaining / denom; v > repsToInterleave {
					repsToInterleave = v
				}
			}

			reps := repsShort
			if repsToInterleave < reps {
				reps = repsToInterleave
			}

			for i := uint64(0); i < reps; i++ {
				stateIdx--
				stateSymbols[stateIdx] = uint32(sym)
			}

			current[sym] += reps
			if current[sym] == weight {
				minSymbolLeft = sym + 1
			}
			if stateIdx == 0 {
				break
			}
		}
	}

	return Spec{SizeLog: sizeLog, StateSymbols: stateSymbols, SymbolWeights: weightsCopy}, nil
}

func (s Spec) TableSize() uint64 { return uint64(1) << s.SizeLog }

func (s Spec) AlphabetSize() int { return len(s.SymbolWeights) }
