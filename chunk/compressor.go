package chunk

import (
	"fmt"
	"io"

	"github.com/nlatent/nlatent/errs"
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/ans"
	"github.com/nlatent/nlatent/internal/binning"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/delta"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/meta"
)

// Compressor mirrors the lifecycle spec.md §4.7 describes: constructed once
// per configuration, then Compress is called once per chunk of raw numbers
// already reduced to their latent form.
type Compressor[T latent.Uint] struct {
	cfg Config
}

func NewCompressor[T latent.Uint](cfg Config) *Compressor[T] {
	return &Compressor[T]{cfg: cfg}
}

// Compress writes one chunk's metadata followed by its pages to w.
func (c *Compressor[T]) Compress(w io.Writer, in Input[T]) error {
	n := len(in.Latents)
	if n == 0 {
		return fmt.Errorf("%w: chunk has no values", errs.ErrEmptyChunk)
	}
	if n > format.MaxEntriesPerChunk {
		return fmt.Errorf("%w: chunk has %d entries, exceeds max %d", errs.ErrEntryCountExceeded, n, format.MaxEntriesPerChunk)
	}
	if c.cfg.CompressionLevel < 0 || c.cfg.CompressionLevel > 12 {
		return fmt.Errorf("%w: compression level %d out of [0,12]", errs.ErrInvalidCompressionLevel, c.cfg.CompressionLevel)
	}

	detected := detectMode(in, c.cfg)
	primary, secondary := splitLatents(in, detected)
	hasSecondary := detected.Tag != format.ModeClassic

	order := c.cfg.DeltaOrder
	if order < 0 {
		order = autoDeltaOrder(primary, c.cfg.CompressionLevel)
	}
	if order < 0 || order > format.MaxDeltaEncodingOrder {
		return fmt.Errorf("%w: delta order %d out of [0,%d]", errs.ErrInvalidDeltaOrder, order, format.MaxDeltaEncodingOrder)
	}

	maxPageN := c.cfg.MaxPageN
	if maxPageN <= 0 {
		maxPageN = 1_000_000
	}
	pages := pageRanges(n, maxPageN)

	// Delta is applied per page (so every page is an independent decode
	// entry point, per spec.md's Page definition), but bins are trained on
	// the resulting post-delta distribution across the whole chunk, so we
	// materialize every page's deltaed copy and cached moments up front.
	deltaedPrimary := make([]T, n)
	pageMoments := make([]delta.Moments[T], len(pages))
	for pi, rng := range pages {
		seg := append([]T(nil), primary[rng[0]:rng[1]]...)
		pageMoments[pi] = delta.EncodeInPlace(seg, order)
		copy(deltaedPrimary[rng[0]:rng[1]], seg)
	}

	level := binning.ChooseLevel(n, c.cfg.CompressionLevel)
	primaryPlan, err := trainStream(deltaedPrimary, level)
	if err != nil {
		return err
	}

	var secondaryPlan streamPlan[T]
	if hasSecondary {
		secondaryPlan, err = trainStream(secondary, level)
		if err != nil {
			return err
		}
	}

	cm := meta.ChunkMeta[T]{
		Mode:       detected,
		DeltaOrder: order,
		Primary:    meta.LatentVar[T]{AnsSizeLog: primaryPlan.ansSizeLog, Bins: primaryPlan.bins},
	}
	if hasSecondary {
		cm.Secondary = meta.LatentVar[T]{AnsSizeLog: secondaryPlan.ansSizeLog, Bins: secondaryPlan.bins}
	}

	metaW := bitio.NewWriter(w)
	meta.WriteChunkMeta(metaW, cm)
	if err := metaW.Flush(); err != nil {
		metaW.Release()
		return err
	}
	metaW.Release()

	for pi, rng := range pages {
		start, end := rng[0], rng[1]
		var secSeg []T
		if hasSecondary {
			secSeg = secondary[start:end]
		}
		if err := compressPage(w, deltaedPrimary[start:end], secSeg, pageMoments[pi], hasSecondary, primaryPlan, secondaryPlan); err != nil {
			return err
		}
	}

	return nil
}

func pageRanges(n, maxPageN int) [][2]int {
	var out [][2]int
	for start := 0; start < n; start += maxPageN {
		end := start + maxPageN
		if end > n {
			end = n
		}
		out = append(out, [2]int{start, end})
	}
	return out
}

type bitPair struct {
	word   uint64
	length uint8
}

// encodeLanes assigns symbols[i] to lane i%ans.Interleaving, encoding each
// lane's subsequence in reverse (ANS is LIFO) so that writing bitPairs
// forward by position recovers the original order on decode.
func encodeLanes(encoders ans.Encoders, symbols []uint32) []bitPair {
	pairs := make([]bitPair, len(symbols))
	for i := len(symbols) - 1; i >= 0; i-- {
		lane := i % ans.Interleaving
		word, length := encoders[lane].Encode(symbols[i])
		pairs[i] = bitPair{word, length}
	}
	return pairs
}

func compressPage[T latent.Uint](w io.Writer, primaryLatents, secondaryLatents []T, moments delta.Moments[T], hasSecondary bool, primaryPlan, secondaryPlan streamPlan[T]) error {
	n := len(primaryLatents)

	primarySymbols := make([]uint32, n)
	primaryOffsets := make([]uint64, n)
	primaryOffsetBits := make([]uint8, n)
	for i, x := range primaryLatents {
		idx := findBin(primaryPlan.bins, x)
		b := primaryPlan.bins[idx]
		primarySymbols[i] = uint32(idx)
		primaryOffsets[i] = uint64(latent.WrappingSub(x, b.Lower))
		primaryOffsetBits[i] = b.OffsetBits
	}
	primaryEncoders := ans.NewEncoders(primaryPlan.spec)
	primaryPairs := encodeLanes(primaryEncoders, primarySymbols)

	var secondarySymbols []uint32
	var secondaryOffsets []uint64
	var secondaryOffsetBits []uint8
	var secondaryPairs []bitPair
	var secondaryEncoders ans.Encoders
	if hasSecondary {
		secondarySymbols = make([]uint32, n)
		secondaryOffsets = make([]uint64, n)
		secondaryOffsetBits = make([]uint8, n)
		for i, x := range secondaryLatents {
			idx := findBin(secondaryPlan.bins, x)
			b := secondaryPlan.bins[idx]
			secondarySymbols[i] = uint32(idx)
			secondaryOffsets[i] = uint64(latent.WrappingSub(x, b.Lower))
			secondaryOffsetBits[i] = b.OffsetBits
		}
		secondaryEncoders = ans.NewEncoders(secondaryPlan.spec)
		secondaryPairs = encodeLanes(secondaryEncoders, secondarySymbols)
	}

	pm := meta.PageMeta[T]{
		DeltaMoments:       moments,
		PrimaryFinalStates: primaryEncoders.FinalStates(),
		HasSecondary:       hasSecondary,
	}
	secondaryAnsSizeLog := uint8(0)
	if hasSecondary {
		pm.SecondaryFinalStates = secondaryEncoders.FinalStates()
		secondaryAnsSizeLog = secondaryPlan.ansSizeLog
	}

	bw := bitio.NewWriter(w)
	meta.WritePageMeta(bw, pm, primaryPlan.ansSizeLog, secondaryAnsSizeLog)

	for i := 0; i < n; i++ {
		bw.WriteUint(primaryPairs[i].word, primaryPairs[i].length)
		bw.WriteUint(primaryOffsets[i], primaryOffsetBits[i])
		if hasSecondary {
			bw.WriteUint(secondaryPairs[i].word, secondaryPairs[i].length)
			bw.WriteUint(secondaryOffsets[i], secondaryOffsetBits[i])
		}
	}
	bw.FinishByte()

	if err := bw.Flush(); err != nil {
		bw.Release()
		return err
	}
	bw.Release()
	return nil
}
