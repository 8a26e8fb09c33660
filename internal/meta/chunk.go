// Package meta serializes the bit-exact chunk metadata and page header
// layouts of spec.md §4.9 on top of internal/bitio, internal/binning,
// internal/delta, and internal/mode.
package meta

import (
	"fmt"

	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/binning"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/mode"
)

func bitsToEncode(maxValue uint64) uint8 {
	var n uint8
	for maxValue > 0 {
		n++
		maxValue >>= 1
	}
	return n
}

// LatentVar is the wire form of spec.md's ChunkLatentVarMeta: one stream's
// ANS table size and its ordered bins.
type LatentVar[T latent.Uint] struct {
	AnsSizeLog uint8
	Bins       []binning.Bin[T]
}

// ChunkMeta is spec.md's ChunkMeta: the chosen mode, the primary stream's
// delta order, and one or two LatentVars.
type ChunkMeta[T latent.Uint] struct {
	Mode       mode.Detected[T]
	DeltaOrder int
	Primary    LatentVar[T]
	Secondary  LatentVar[T] // zero value (nil Bins) when Mode.Tag == ModeClassic
}

func (c ChunkMeta[T]) HasSecondary() bool {
	return c.Mode.Tag != format.ModeClassic
}

func writeLatentVar[T latent.Uint](w *bitio.Writer, lv LatentVar[T]) {
	lBits := latent.Bits[T]()
	offsetBitsWidth := bitsToEncode(uint64(lBits))

	w.WriteUint(uint64(lv.AnsSizeLog), format.BitsToEncodeAnsSizeLog)
	w.WriteUint(uint64(len(lv.Bins)), format.BitsToEncodeNBins)
	for _, b := range lv.Bins {
		w.WriteUint(uint64(b.Weight-1), lv.AnsSizeLog)
		w.WriteUint(uint64(b.Lower), lBits)
		w.WriteUint(uint64(b.OffsetBits), offsetBitsWidth)
	}
}

// WriteChunkMeta serializes c in the exact bit order of spec.md §4.9,
// finishing on a byte boundary.
func WriteChunkMeta[T latent.Uint](w *bitio.Writer, c ChunkMeta[T]) {
	lBits := latent.Bits[T]()

	w.WriteUint(uint64(c.Mode.Tag), format.BitsToEncodeMode)
	switch c.Mode.Tag {
	case format.ModeIntMult:
		w.WriteUint(uint64(c.Mode.IntBase), lBits)
	case format.ModeFloatMult:
		w.WriteUint(uint64(c.Mode.FloatBaseLatent), lBits)
	}

	w.WriteUint(uint64(c.DeltaOrder), format.BitsToEncodeDeltaEncodingOrder)

	writeLatentVar(w, c.Primary)
	if c.HasSecondary() {
		writeLatentVar(w, c.Secondary)
	}

	w.FinishByte()
}

func readLatentVar[T latent.Uint](r *bitio.Reader) (LatentVar[T], error) {
	lBits := latent.Bits[T]()
	offsetBitsWidth := bitsToEncode(uint64(lBits))

	ansSizeLogWord, err := r.ReadUint(format.BitsToEncodeAnsSizeLog)
	if err != nil {
		return LatentVar[T]{}, err
	}
	ansSizeLog := uint8(ansSizeLogWord)
	if ansSizeLog > format.MaxAnsBits {
		return LatentVar[T]{}, fmt.Errorf("%w: %d", errs.ErrInvalidAnsSizeLog, ansSizeLog)
	}

	nBinsWord, err := r.ReadUint(format.BitsToEncodeNBins)
	if err != nil {
		return LatentVar[T]{}, err
	}
	nBins := int(nBinsWord)
	if ansSizeLog < 31 && uint64(nBins) > uint64(1)<<ansSizeLog {
		return LatentVar[T]{}, fmt.Errorf("%w: n_bins %d exceeds table size 2^%d", errs.ErrTooManyBins, nBins, ansSizeLog)
	}

	bins := make([]binning.Bin[T], nBins)
	var weightSum uint64
	for i := 0; i < nBins; i++ {
		weightMinusOne, err := r.ReadUint(ansSizeLog)
		if err != nil {
			return LatentVar[T]{}, err
		}
		lowerWord, err := r.ReadUint(lBits)
		if err != nil {
			return LatentVar[T]{}, err
		}
		offsetBitsWord, err := r.ReadUint(offsetBitsWidth)
		if err != nil {
			return LatentVar[T]{}, err
		}
		if offsetBitsWord > uint64(lBits) {
			return LatentVar[T]{}, fmt.Errorf("%w: offset_bits %d exceeds latent width %d", errs.ErrOffsetBitsExceedWidth, offsetBitsWord, lBits)
		}

		weight := weightMinusOne + 1
		weightSum += weight
		bins[i] = binning.Bin[T]{
			Weight:     uint32(weight),
			Lower:      latent.FromWord[T](lowerWord),
			OffsetBits: uint8(offsetBitsWord),
		}
	}

	if weightSum != uint64(1)<<ansSizeLog {
		return LatentVar[T]{}, fmt.Errorf("%w: bin weights sum to %d, expected %d", errs.ErrWeightSumMismatch, weightSum, uint64(1)<<ansSizeLog)
	}

	return LatentVar[T]{AnsSizeLog: ansSizeLog, Bins: bins}, nil
}

// ReadChunkMeta is the inverse of WriteChunkMeta.
func ReadChunkMeta[T latent.Uint](r *bitio.Reader) (ChunkMeta[T], error) {
	modeTagWord, err := r.ReadUint(format.BitsToEncodeMode)
	if err != nil {
		return ChunkMeta[T]{}, err
	}
	tag := format.ModeTag(modeTagWord)
	lBits := latent.Bits[T]()

	var c ChunkMeta[T]
	switch tag {
	case format.ModeClassic:
		c.Mode = mode.Classic[T]()
	case format.ModeIntMult:
		baseWord, err := r.ReadUint(lBits)
		if err != nil {
			return ChunkMeta[T]{}, err
		}
		c.Mode = mode.Detected[T]{Tag: format.ModeIntMult, IntBase: latent.FromWord[T](baseWord)}
	case format.ModeFloatMult:
		baseWord, err := r.ReadUint(lBits)
		if err != nil {
			return ChunkMeta[T]{}, err
		}
		c.Mode = mode.Detected[T]{Tag: format.ModeFloatMult, FloatBaseLatent: latent.FromWord[T](baseWord)}
	default:
		return ChunkMeta[T]{}, fmt.Errorf("%w: unknown mode tag %d", errs.ErrUnknownModeTag, modeTagWord)
	}

	deltaOrderWord, err := r.ReadUint(format.BitsToEncodeDeltaEncodingOrder)
	if err != nil {
		return ChunkMeta[T]{}, err
	}
	if deltaOrderWord > format.MaxDeltaEncodingOrder {
		return ChunkMeta[T]{}, fmt.Errorf("%w: delta order %d exceeds max %d", errs.ErrInvalidDeltaOrder, deltaOrderWord, format.MaxDeltaEncodingOrder)
	}
	c.DeltaOrder = int(deltaOrderWord)

	primary, err := readLatentVar[T](r)
	if err != nil {
		return ChunkMeta[T]{}, err
	}
	c.Primary = primary

	if tag != format.ModeClassic {
		secondary, err := readLatentVar[T](r)
		if err != nil {
			return ChunkMeta[T]{}, err
		}
		c.Secondary = secondary
	}

	if err := r.DrainEmptyByte(); err != nil {
		return ChunkMeta[T]{}, err
	}

	return c, nil
}
