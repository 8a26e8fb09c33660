package chunk

import (
	"fmt"

	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/ans"
	"github.com/nlatent/nlatent/internal/bitio"
	"github.com/nlatent/nlatent/internal/delta"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/meta"
	"github.com/nlatent/nlatent/internal/mode"
)

// readerPadding is large enough to cover ReadUint's two-word unchecked load.
const readerPadding = 16

// Decompressor holds the per-chunk state a page decode needs: the parsed
// metadata and the ANS specs rebuilt from its bin weights.
type Decompressor[T latent.Uint] struct {
	meta          meta.ChunkMeta[T]
	primarySpec   ans.Spec
	secondarySpec ans.Spec
}

func NewDecompressor[T latent.Uint](cm meta.ChunkMeta[T]) (*Decompressor[T], error) {
	primarySpec, err := ans.BuildSpec(cm.Primary.AnsSizeLog, weightsOf(cm.Primary.Bins))
	if err != nil {
		return nil, fmt.Errorf("primary ans spec: %w", err)
	}

	d := &Decompressor[T]{meta: cm, primarySpec: primarySpec}

	if cm.HasSecondary() {
		secondarySpec, err := ans.BuildSpec(cm.Secondary.AnsSizeLog, weightsOf(cm.Secondary.Bins))
		if err != nil {
			return nil, fmt.Errorf("secondary ans spec: %w", err)
		}
		d.secondarySpec = secondarySpec
	}

	return d, nil
}

// Page is one decoded page: Latents always holds the reconstructed per-mode
// latent values; Floats is additionally populated for ModeFloatMult chunks,
// since that mode's final reconstruction happens in float space.
type Page[T latent.Uint] struct {
	Latents []T
	Floats  []float64
}

// DecodePage decodes n values from src, which may hold trailing bytes
// belonging to later pages. It returns the decoded page plus the number of
// bytes src[:consumed] this page actually occupied, so callers can locate
// the next page in a multi-page chunk. fl supplies the float<->latent
// bindings for this width; it may be the zero value for chunks whose mode
// never needs one (Classic, IntMult).
func (d *Decompressor[T]) DecodePage(src []byte, n int, fl mode.FloatLatent[T]) (page Page[T], consumed int, err error) {
	ext := bitio.MakeExtension(src, readerPadding)
	r := bitio.NewReader(src, ext)

	cm := d.meta
	pm, err := meta.ReadPageMeta[T](r, cm.DeltaOrder, cm.HasSecondary(), cm.Primary.AnsSizeLog, cm.Secondary.AnsSizeLog)
	if err != nil {
		return Page[T]{}, 0, err
	}

	primaryDecoders := ans.NewDecoders(d.primarySpec, pm.PrimaryFinalStates)
	var secondaryDecoders ans.Decoders
	if cm.HasSecondary() {
		secondaryDecoders = ans.NewDecoders(d.secondarySpec, pm.SecondaryFinalStates)
	}

	primaryLatents := make([]T, n)
	var secondaryLatents []T
	if cm.HasSecondary() {
		secondaryLatents = make([]T, n)
	}

	for i := 0; i < n; i++ {
		lane := i % ans.Interleaving

		symbol, derr := primaryDecoders.Decode(lane, r)
		if derr != nil {
			return Page[T]{}, 0, derr
		}
		if int(symbol) >= len(cm.Primary.Bins) {
			return Page[T]{}, 0, fmt.Errorf("primary symbol %d out of range (%d bins)", symbol, len(cm.Primary.Bins))
		}
		b := cm.Primary.Bins[symbol]
		offset, derr := r.ReadUint(b.OffsetBits)
		if derr != nil {
			return Page[T]{}, 0, derr
		}
		primaryLatents[i] = latent.WrappingAdd(b.Lower, T(offset))

		if cm.HasSecondary() {
			ssymbol, derr := secondaryDecoders.Decode(lane, r)
			if derr != nil {
				return Page[T]{}, 0, derr
			}
			if int(ssymbol) >= len(cm.Secondary.Bins) {
				return Page[T]{}, 0, fmt.Errorf("secondary symbol %d out of range (%d bins)", ssymbol, len(cm.Secondary.Bins))
			}
			sb := cm.Secondary.Bins[ssymbol]
			soffset, derr := r.ReadUint(sb.OffsetBits)
			if derr != nil {
				return Page[T]{}, 0, derr
			}
			secondaryLatents[i] = latent.WrappingAdd(sb.Lower, T(soffset))
		}
	}

	if err := r.DrainEmptyByte(); err != nil {
		return Page[T]{}, 0, err
	}

	bitsConsumed, err := r.BitsConsumed()
	if err != nil {
		return Page[T]{}, 0, err
	}
	consumed = bitsConsumed / 8

	moments := pm.DeltaMoments
	delta.DecodeInPlace(&moments, primaryLatents)

	switch cm.Mode.Tag {
	case format.ModeClassic:
		return Page[T]{Latents: primaryLatents}, consumed, nil
	case format.ModeIntMult:
		return Page[T]{Latents: mode.JoinIntMult(primaryLatents, secondaryLatents, cm.Mode.IntBase)}, consumed, nil
	case format.ModeFloatMult:
		base := fl.ToFloat(cm.Mode.FloatBaseLatent)
		floats := mode.JoinFloatMult(primaryLatents, secondaryLatents, base, fl)
		latents := make([]T, len(floats))
		for i, x := range floats {
			latents[i] = fl.FromFloat(x)
		}
		return Page[T]{Latents: latents, Floats: floats}, consumed, nil
	default:
		return Page[T]{}, 0, fmt.Errorf("unknown mode tag %d", cm.Mode.Tag)
	}
}
