package meta

import (
	"bytes"
	"testing"

	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/ans"
	"github.com/nlatent/nlatent/internal/binning"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/delta"
	"github.com/nlatent/nlatent/internal/mode"
	"github.com/stretchr/testify/require"
)

func TestChunkMeta_RoundTrip_Classic(t *testing.T) {
	c := ChunkMeta[uint32]{
		Mode:       mode.Classic[uint32](),
		DeltaOrder: 1,
		Primary: LatentVar[uint32]{
			AnsSizeLog: 3,
			Bins: []binning.Bin[uint32]{
				{Weight: 5, Lower: 0, Upper: 3, OffsetBits: 2},
				{Weight: 3, Lower: 4, Upper: 100, OffsetBits: 7},
			},
		},
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	WriteChunkMeta(w, c)
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	got, err := ReadChunkMeta[uint32](r)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestChunkMeta_RoundTrip_IntMult(t *testing.T) {
	c := ChunkMeta[uint64]{
		Mode:       mode.Detected[uint64]{Tag: format.ModeIntMult, IntBase: 4},
		DeltaOrder: 0,
		Primary: LatentVar[uint64]{
			AnsSizeLog: 2,
			Bins:       []binning.Bin[uint64]{{Weight: 4, Lower: 0, Upper: 99, OffsetBits: 7}},
		},
		Secondary: LatentVar[uint64]{
			AnsSizeLog: 2,
			Bins:       []binning.Bin[uint64]{{Weight: 4, Lower: 0, Upper: 3, OffsetBits: 2}},
		},
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	WriteChunkMeta(w, c)
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	got, err := ReadChunkMeta[uint64](r)
	require.NoError(t, err)
	require.Equal(t, c, got)
}

func TestChunkMeta_RejectsUnknownModeTag(t *testing.T) {
	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	w.WriteUint(7, format.BitsToEncodeMode)
	w.FinishByte()
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	_, err := ReadChunkMeta[uint32](r)
	require.Error(t, err)
}

func TestChunkMeta_RejectsWeightSumMismatch(t *testing.T) {
	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	w.WriteUint(uint64(format.ModeClassic), format.BitsToEncodeMode)
	w.WriteUint(0, format.BitsToEncodeDeltaEncodingOrder)
	w.WriteUint(2, format.BitsToEncodeAnsSizeLog) // ans_size_log=2 -> table size 4
	w.WriteUint(1, format.BitsToEncodeNBins)      // n_bins=1
	w.WriteUint(0, 2)                             // weight-1 = 0 -> weight 1, not 4
	w.WriteUint(0, 32)                            // lower
	w.WriteUint(0, 6)                              // offset_bits width for 32-bit latent = 6
	w.FinishByte()
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	_, err := ReadChunkMeta[uint32](r)
	require.Error(t, err)
}

func TestChunkMeta_RejectsAnsSizeLogAboveMax(t *testing.T) {
	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	w.WriteUint(uint64(format.ModeClassic), format.BitsToEncodeMode)
	w.WriteUint(0, format.BitsToEncodeDeltaEncodingOrder)
	w.WriteUint(15, format.BitsToEncodeAnsSizeLog) // above format.MaxAnsBits (14)
	w.WriteUint(0, format.BitsToEncodeNBins)
	w.FinishByte()
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	_, err := ReadChunkMeta[uint32](r)
	require.ErrorIs(t, err, errs.ErrInvalidAnsSizeLog)
}

func TestPageMeta_RoundTrip(t *testing.T) {
	moments := delta.Moments[uint32]{Values: []uint32{10, 20}}
	p := PageMeta[uint32]{
		DeltaMoments:         moments,
		PrimaryFinalStates:   [ans.Interleaving]uint64{8, 9, 10, 11},
		SecondaryFinalStates: [ans.Interleaving]uint64{4, 4, 5, 6},
		HasSecondary:         true,
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	WritePageMeta(w, p, 3, 2) // primary table size 8, secondary table size 4
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	got, err := ReadPageMeta[uint32](r, 2, true, 3, 2)
	require.NoError(t, err)
	require.Equal(t, p, got)
}

func TestPageMeta_RoundTrip_NoSecondary(t *testing.T) {
	p := PageMeta[uint16]{
		DeltaMoments:       delta.Moments[uint16]{},
		PrimaryFinalStates: [ans.Interleaving]uint64{16, 16, 17, 31},
	}

	var out bytes.Buffer
	w := bitio.NewWriter(&out)
	WritePageMeta(w, p, 4, 0)
	require.NoError(t, w.Flush())
	w.Release()

	ext := bitio.MakeExtension(out.Bytes(), 16)
	r := bitio.NewReader(out.Bytes(), ext)
	got, err := ReadPageMeta[uint16](r, 0, false, 4, 0)
	require.NoError(t, err)
	require.Equal(t, p, got)
}
