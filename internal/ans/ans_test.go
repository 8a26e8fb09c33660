package ans

import (
	"bytes"
	"testing"

	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/stretchr/testify/require"
)

func TestBuildSpec_SpreadsSymbolsDeterministically(t *testing.T) {
	spec, err := BuildSpec(4, []uint32{1, 1, 3, 11})
	require.NoError(t, err)
	require.Equal(t,
		[]uint32{3, 3, 3, 3, 2, 3, 3, 3, 3, 2, 3, 3, 3, 2, 1, 0},
		spec.StateSymbols,
	)
}

func TestBuildSpec_Trivial(t *testing.T) {
	spec, err := BuildSpec(0, []uint32{1})
	require.NoError(t, err)
	require.Equal(t, []uint32{0}, spec.StateSymbols)

	spec, err = BuildSpec(1, []uint32{2})
	require.NoError(t, err)
	require.Equal(t, []uint32{0, 0}, spec.StateSymbols)
}

func TestBuildSpec_RejectsWeightSumMismatch(t *testing.T) {
	_, err := BuildSpec(4, []uint32{1, 1, 1})
	require.Error(t, err)
}

// assertRecovers runs a symbol sequence through an Encoder, writes the
// resulting bits via the real bit writer in the order a decoder expects,
// then decodes it back with a Decoder seeded from the encoder's final
// state, mirroring the round trip of encoding last-symbol-first and
// flushing writes in reverse.
func assertRecovers(t *testing.T, spec Spec, symbols []uint32) {
	t.Helper()

	enc := NewEncoder(spec)
	type bits struct {
		word   uint64
		length uint8
	}
	reversed := make([]bits, len(symbols))
	for i := len(symbols) - 1; i >= 0; i-- {
		word, length := enc.Encode(symbols[i])
		reversed[len(symbols)-1-i] = bits{word, length}
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	for i := len(reversed) - 1; i >= 0; i-- {
		w.WriteUint(reversed[i].word, reversed[i].length)
	}
	w.FinishByte()
	require.NoError(t, w.Flush())
	w.Release()

	finalState := enc.State()
	dec := NewDecoder(spec, finalState)
	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)

	decoded := make([]uint32, len(symbols))
	for i := range decoded {
		sym, err := dec.Decode(r)
		require.NoError(t, err)
		decoded[i] = sym
	}
	require.Equal(t, symbols, decoded)
}

func TestEncoderDecoder_RoundTrip(t *testing.T) {
	spec := Spec{
		SizeLog:       3,
		StateSymbols:  []uint32{0, 1, 2, 0, 1, 2, 0, 1},
		SymbolWeights: []uint32{3, 3, 2},
	}
	symbols := []uint32{2, 0, 1, 1, 1, 0, 0, 1, 2}
	assertRecovers(t, spec, symbols)

	var long []uint32
	for i := 0; i < 200; i++ {
		long = append(long, 0, 1, 2)
	}
	assertRecovers(t, spec, long)
}

func TestEncoderDecoder_SparseDistribution(t *testing.T) {
	spec := Spec{
		SizeLog:       3,
		StateSymbols:  []uint32{0, 0, 0, 0, 0, 0, 0, 1},
		SymbolWeights: []uint32{7, 1},
	}
	var symbols []uint32
	for i := 0; i < 100; i++ {
		for j := 0; j < 7; j++ {
			symbols = append(symbols, 0)
		}
		symbols = append(symbols, 1)
	}
	assertRecovers(t, spec, symbols)
}

func TestInterleaving_FourLaneRoundTrip(t *testing.T) {
	weights := []uint32{5, 3, 4, 4}
	spec, err := BuildSpec(4, weights)
	require.NoError(t, err)

	lanes := make([][]uint32, Interleaving)
	for lane := range lanes {
		for i := 0; i < 20; i++ {
			lanes[lane] = append(lanes[lane], uint32((i+lane)%len(weights)))
		}
	}

	encs := NewEncoders(spec)
	var out [Interleaving]bytes.Buffer
	for lane := 0; lane < Interleaving; lane++ {
		symbols := lanes[lane]
		type bits struct {
			word   uint64
			length uint8
		}
		reversed := make([]bits, len(symbols))
		for i := len(symbols) - 1; i >= 0; i-- {
			word, length := encs[lane].Encode(symbols[i])
			reversed[len(symbols)-1-i] = bits{word, length}
		}
		w := bitio.NewWriter(&out[lane])
		for i := len(reversed) - 1; i >= 0; i-- {
			w.WriteUint(reversed[i].word, reversed[i].length)
		}
		w.FinishByte()
		require.NoError(t, w.Flush())
		w.Release()
	}

	finalStates := encs.FinalStates()
	decs := NewDecoders(spec, finalStates)
	for lane := 0; lane < Interleaving; lane++ {
		ext := bitio.MakeExtension(out[lane].Bytes(), 16)
		r := bitio.NewReader(out[lane].Bytes(), ext)
		for i, want := range lanes[lane] {
			got, err := decs.Decode(lane, r)
			require.NoError(t, err)
			require.Equal(t, want, got, "lane %d symbol %d", lane, i)
		}
	}
}
