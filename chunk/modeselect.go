package chunk

import (
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/latent"
	"github.com/nlatent/nlatent/internal/mode"
)

// Input bundles a chunk's data in latent form plus, for float inputs, the
// parallel float64 view and bindings FloatMult needs to convert between a
// float and its own latent representation.
type Input[T latent.Uint] struct {
	Latents           []T
	Floats            []float64
	IsFloat           bool
	FloatMantissaBits int
	FloatLatent       mode.FloatLatent[T]
}

func detectMode[T latent.Uint](in Input[T], cfg Config) mode.Detected[T] {
	if in.IsFloat {
		if cfg.UseFloatMult {
			sample := strideSample(in.Floats, maxTrainingSample)
			if base, invBase, ok := mode.DetectFloatMult(sample, in.FloatMantissaBits); ok {
				return mode.Detected[T]{
					Tag:             format.ModeFloatMult,
					FloatBase:       base,
					FloatInvBase:    invBase,
					FloatBaseLatent: in.FloatLatent.FromFloat(base),
				}
			}
		}
		return mode.Classic[T]()
	}

	if cfg.UseGCD {
		sample := sampleSortedLatents(in.Latents, maxTrainingSample)
		if len(sample) >= 2 {
			if d, ok := mode.DetectIntMult(sample); ok {
				return d
			}
		}
	}

	return mode.Classic[T]()
}

func splitLatents[T latent.Uint](in Input[T], detected mode.Detected[T]) (primary, secondary []T) {
	switch detected.Tag {
	case format.ModeIntMult:
		return mode.SplitIntMult(in.Latents, detected.IntBase)
	case format.ModeFloatMult:
		return mode.SplitFloatMult(in.Floats, in.Latents, detected.FloatBase, detected.FloatInvBase, in.FloatLatent)
	default:
		return in.Latents, nil
	}
}
