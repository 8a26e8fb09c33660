package ans

import "math/bits"

type symbolInfo struct {
	renormBitCutoff uint64
	minRenormBits   uint8
	nextStates      []uint64
}

// Encoder runs one ANS lane. ANS is a LIFO stream: the caller must feed
// symbols to Encode in the reverse of their intended decode order, then
// write the returned (word, bitLen) pairs to a bit sink in the reverse of
// the order they were produced, so that decoding (which runs state-first,
// bits-second) sees them forwards.
type Encoder struct {
	infos []symbolInfo
	state uint64
}

// NewEncoder builds an encoder starting at the table's lowest valid state
// (tableSize), which costs the fewest bits to encode the first symbol.
func NewEncoder(spec Spec) *Encoder {
	tableSize := spec.TableSize()
	infos := make([]symbolInfo, len(spec.SymbolWeights))

	for i, w := range spec.SymbolWeights {
		weight := uint64(w)
		maxXs := 2*weight - 1
		ilog2MaxXs := uint8(bits.Len64(maxXs)) - 1
		minRenormBits := spec.SizeLog - ilog2MaxXs
		infos[i] = symbolInfo{
			renormBitCutoff: 2 * weight * (uint64(1) << minRenormBits),
			minRenormBits:   minRenormBits,
			nextStates:      make([]uint64, 0, weight),
		}
	}

	for stateIdx, symbol := range spec.StateSymbols {
		infos[symbol].nextStates = append(infos[symbol].nextStates, tableSize+uint64(stateIdx))
	}

	return &Encoder{infos: infos, state: tableSize}
}

// Encode returns the bits to write for symbol: word's low bitLen bits are
// significant, the rest must be ignored by the caller.
func (e *Encoder) Encode(symbol uint32) (word uint64, bitLen uint8) {
	info := &e.infos[symbol]
	renormBits := info.minRenormBits
	if e.state >= info.renormBitCutoff {
		renormBits++
	}

	word = e.state
	xs := e.state >> renormBits
	e.state = info.nextStates[xs-uint64(len(info.nextStates))]
	return word, renormBits
}

func (e *Encoder) State() uint64 { return e.state }
