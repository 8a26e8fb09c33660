package ans

import "github.com/nlatent/nlatent/internal/bitio"

type decodeNode struct {
	symbol        uint32
	nextStateBase uint64
	bitsToRead    uint8
}

// Decoder runs one ANS lane, starting from the final state an Encoder left
// behind and consuming bits in the reverse of the order Encoder produced
// them, which a correctly-framed page arranges by constructions already
// performed at the writer side.
type Decoder struct {
	tableSize uint64
	nodes     []decodeNode
	state     uint64
}

func NewDecoder(spec Spec, finalState uint64) *Decoder {
	tableSize := spec.TableSize()
	nodes := make([]decodeNode, tableSize)

	symbolXs := make([]uint64, len(spec.SymbolWeights))
	for i, w := range spec.SymbolWeights {
		symbolXs[i] = uint64(w)
	}

	for stateIdx, symbol := range spec.StateSymbols {
		nextStateBase := symbolXs[symbol]
		var bitsToRead uint8
		for nextStateBase < tableSize {
			nextStateBase *= 2
			bitsToRead++
		}
		nodes[stateIdx] = decodeNode{symbol: symbol, nextStateBase: nextStateBase, bitsToRead: bitsToRead}
		symbolXs[symbol]++
	}

	return &Decoder{tableSize: tableSize, nodes: nodes, state: finalState}
}

// Decode reads the next symbol and renormalizes state, trusting the reader
// has at least node.bitsToRead valid padding bits available (the bitio
// reader's own padding contract).
func (d *Decoder) Decode(r *bitio.Reader) (uint32, error) {
	node := &d.nodes[d.state-d.tableSize]
	bitsRead, err := r.ReadUint(node.bitsToRead)
	if err != nil {
		return 0, err
	}
	d.state = node.nextStateBase + bitsRead
	return node.symbol, nil
}

func (d *Decoder) State() uint64 { return d.state }
