package ans

import "github.com/nlatent/nlatent/internal/bitio"

// Interleaving is the fixed fan-out of ANS lanes a page body multiplexes
// its symbols across, letting a decoder pipeline four independent state
// machines instead of stalling on one chain of dependent renormalizations.
const Interleaving = 4

// Encoders is Interleaving independent encoder lanes sharing one Spec.
type Encoders [Interleaving]*Encoder

func NewEncoders(spec Spec) Encoders {
	var e Encoders
	for i := range e {
		e[i] = NewEncoder(spec)
	}
	return e
}

func (e Encoders) FinalStates() [Interleaving]uint64 {
	var states [Interleaving]uint64
	for i, enc := range e {
		states[i] = enc.State()
	}
	return states
}

// Decoders is Interleaving independent decoder lanes sharing one Spec,
// each resuming from its own final state as recorded in the page header.
type Decoders [Interleaving]*Decoder

func NewDecoders(spec Spec, finalStates [Interleaving]uint64) Decoders {
	var d Decoders
	for i := range d {
		d[i] = NewDecoder(spec, finalStates[i])
	}
	return d
}

func (d Decoders) Decode(lane int, r *bitio.Reader) (uint32, error) {
	return d[lane].Decode(r)
}
