package meta

import (
	"github.com/nlatent/nlatent/internal/ans"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/delta"
	"github.com/nlatent/nlatent/internal/latent"
)

// PageMeta is spec.md's PageLatentVarMeta, widened to cover both streams:
// the primary stream's DeltaMoments plus every stream's four interleaved
// tANS final states.
type PageMeta[T latent.Uint] struct {
	DeltaMoments         delta.Moments[T]
	PrimaryFinalStates   [ans.Interleaving]uint64
	SecondaryFinalStates [ans.Interleaving]uint64
	HasSecondary         bool
}

// WritePageMeta writes DeltaMoments then each stream's final ANS states as
// state *indices* (final_state - table_size), each in ans_size_log bits,
// per spec.md §4.6's "the encoder's final state minus T gives this index".
func WritePageMeta[T latent.Uint](w *bitio.Writer, p PageMeta[T], primaryAnsSizeLog, secondaryAnsSizeLog uint8) {
	lBits := latent.Bits[T]()
	for _, m := range p.DeltaMoments.Values {
		w.WriteUint(uint64(m), lBits)
	}

	primaryTableSize := uint64(1) << primaryAnsSizeLog
	for _, s := range p.PrimaryFinalStates {
		w.WriteUint(s-primaryTableSize, primaryAnsSizeLog)
	}

	if p.HasSecondary {
		secondaryTableSize := uint64(1) << secondaryAnsSizeLog
		for _, s := range p.SecondaryFinalStates {
			w.WriteUint(s-secondaryTableSize, secondaryAnsSizeLog)
		}
	}

	w.FinishByte()
}

// ReadPageMeta is the inverse of WritePageMeta. deltaOrder and hasSecondary
// come from the chunk's already-parsed ChunkMeta.
func ReadPageMeta[T latent.Uint](r *bitio.Reader, deltaOrder int, hasSecondary bool, primaryAnsSizeLog, secondaryAnsSizeLog uint8) (PageMeta[T], error) {
	lBits := latent.Bits[T]()

	values := make([]T, deltaOrder)
	for i := range values {
		word, err := r.ReadUint(lBits)
		if err != nil {
			return PageMeta[T]{}, err
		}
		values[i] = latent.FromWord[T](word)
	}

	primaryTableSize := uint64(1) << primaryAnsSizeLog
	var primaryStates [ans.Interleaving]uint64
	for i := range primaryStates {
		idx, err := r.ReadUint(primaryAnsSizeLog)
		if err != nil {
			return PageMeta[T]{}, err
		}
		primaryStates[i] = idx + primaryTableSize
	}

	var secondaryStates [ans.Interleaving]uint64
	if hasSecondary {
		secondaryTableSize := uint64(1) << secondaryAnsSizeLog
		for i := range secondaryStates {
			idx, err := r.ReadUint(secondaryAnsSizeLog)
			if err != nil {
				return PageMeta[T]{}, err
			}
			secondaryStates[i] = idx + secondaryTableSize
		}
	}

	if err := r.DrainEmptyByte(); err != nil {
		return PageMeta[T]{}, err
	}

	return PageMeta[T]{
		DeltaMoments:         delta.Moments[T]{Values: values},
		PrimaryFinalStates:   primaryStates,
		SecondaryFinalStates: secondaryStates,
		HasSecondary:         hasSecondary,
	}, nil
}
