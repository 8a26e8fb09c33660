package wrapped

import (
	"testing"

	"github.com/nlatent/nlatent/chunk"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/mode"
	"github.com/stretchr/testify/require"
)

func TestCompressDecompressChunk_NoOuterCompression(t *testing.T) {
	values := make([]int64, 4321)
	for i := range values {
		values[i] = int64(i) * 2
	}

	latents := make([]uint64, len(values))
	for i, v := range values {
		latents[i] = latent.I64ToLatent(v)
	}

	cfg := chunk.DefaultConfig()
	cfg.UseGCD = false
	cfg.UseFloatMult = false
	cfg.MaxPageN = 1000

	in := chunk.Input[uint64]{Latents: latents}
	opts := DefaultPageOptions()

	encoded, err := CompressChunk[uint64](cfg, in, opts)
	require.NoError(t, err)

	fl := mode.FloatLatent[uint64]{
		ToFloat:        latent.LatentToF64,
		FromFloat:      latent.F64ToLatent,
		SignedToLatent: latent.I64ToLatent,
		LatentToSigned: latent.LatentToI64,
	}

	pages, err := DecompressChunk[uint64](encoded, len(values), cfg.MaxPageN, opts, fl)
	require.NoError(t, err)

	var got []uint64
	for _, p := range pages {
		got = append(got, p.Latents...)
	}
	require.Len(t, got, len(values))
	for i, v := range values {
		require.Equal(t, v, latent.LatentToI64(got[i]))
	}
}

func TestCompressDecompressChunk_ZstdOuterCompression(t *testing.T) {
	values := make([]int64, 2000)
	for i := range values {
		values[i] = 7
	}

	latents := make([]uint64, len(values))
	for i, v := range values {
		latents[i] = latent.I64ToLatent(v)
	}

	cfg := chunk.DefaultConfig()
	in := chunk.Input[uint64]{Latents: latents}
	opts := PageOptions{Compression: format.CompressionZstd}

	encoded, err := CompressChunk[uint64](cfg, in, opts)
	require.NoError(t, err)

	fl := mode.FloatLatent[uint64]{
		ToFloat:        latent.LatentToF64,
		FromFloat:      latent.F64ToLatent,
		SignedToLatent: latent.I64ToLatent,
		LatentToSigned: latent.LatentToI64,
	}

	pages, err := DecompressChunk[uint64](encoded, len(values), cfg.MaxPageN, opts, fl)
	require.NoError(t, err)

	var got []uint64
	for _, p := range pages {
		got = append(got, p.Latents...)
	}
	require.Len(t, got, len(values))
	for i, v := range values {
		require.Equal(t, v, latent.LatentToI64(got[i]))
	}
}
