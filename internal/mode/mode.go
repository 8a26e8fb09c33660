// Package mode implements chunk-level structural decomposition: detecting
// whether a chunk's numbers share an integer common factor (IntMult) or are
// well-approximated as a multiple of a power-of-ten reciprocal (FloatMult),
// and splitting/joining the resulting one or two latent streams.
package mode

import (
	"github.com/nlatent/nlatent/format"
	"github.com/nlatent/nlatent/internal/latent"
)

// Detected is the chunk-level mode decision made once per chunk.
type Detected[T latent.Uint] struct {
	Tag format.ModeTag

	// IntBase is the shared divisor for ModeIntMult.
	IntBase T

	// FloatBase and FloatInvBase are the multiplier and its reciprocal for
	// ModeFloatMult (e.g. 0.1 and 10).
	FloatBase    float64
	FloatInvBase float64

	// FloatBaseLatent is FloatBase's own order-preserving latent at this
	// instantiation's width, the value chunk metadata actually stores (the
	// wire format never writes a raw float64, per spec.md §4.9's "base_latent
	// in L::BITS").
	FloatBaseLatent T
}

// Classic is the trivial one-stream mode: every chunk can fall back to it.
func Classic[T latent.Uint]() Detected[T] {
	return Detected[T]{Tag: format.ModeClassic}
}

func bitsToEncodeSpan[T latent.Uint](span T) uint8 {
	if span == latent.Zero[T]() {
		return 0
	}

	return latent.Bits[T]() - latent.LeadingZeros(span)
}

// DetectIntMult runs GCD-based IntMult detection over a sorted sample of
// latents. It is accepted only when the GCD exceeds 1 and dividing by it
// shrinks the bits needed to span the sample by more than one bit, matching
// the reference's "savings exceed one offset bit on average" requirement.
func DetectIntMult[T latent.Uint](sortedSample []T) (Detected[T], bool) {
	if len(sortedSample) < 2 {
		return Detected[T]{}, false
	}

	g := GCD(sortedSample)
	if g <= latent.One[T]() {
		return Detected[T]{}, false
	}

	span := latent.WrappingSub(sortedSample[len(sortedSample)-1], sortedSample[0])
	spanBits := bitsToEncodeSpan(span)
	reducedBits := bitsToEncodeSpan(span / g)
	if spanBits <= reducedBits+1 {
		return Detected[T]{}, false
	}

	return Detected[T]{Tag: format.ModeIntMult, IntBase: g}, true
}

// SplitIntMult divides each latent by base, producing the quotient as the
// primary stream and the remainder as the secondary stream.
func SplitIntMult[T latent.Uint](latents []T, base T) (primary, secondary []T) {
	primary = make([]T, len(latents))
	secondary = make([]T, len(latents))
	for i, x := range latents {
		primary[i] = x / base
		secondary[i] = x % base
	}

	return primary, secondary
}

// JoinIntMult inverts SplitIntMult.
func JoinIntMult[T latent.Uint](primary, secondary []T, base T) []T {
	out := make([]T, len(primary))
	for i := range primary {
		out[i] = latent.WrappingAdd(primary[i]*base, secondary[i])
	}

	return out
}

// FloatLatent bundles the order-preserving bijections needed to split and
// join FloatMult streams at one concrete float width: converting a latent
// to its float value and back, and converting between T's own latent
// representation and the signed-integer latent used for the primary
// (rounded multiplier) stream. A caller supplies latent.F64ToLatent /
// latent.LatentToF64 / latent.I64ToLatent / latent.LatentToI64 (or their
// 32-bit counterparts) bound to the concrete width it is instantiating.
type FloatLatent[T latent.Uint] struct {
	ToFloat        func(T) float64
	FromFloat      func(float64) T
	SignedToLatent func(int64) T
	LatentToSigned func(T) int64
}

// SplitFloatMult computes, for each number x: primary = round(x*invBase)
// as a signed-integer latent, and secondary = x's latent minus the latent
// of the back-multiplied approximation (primary*base), wrapping. Joining
// the two recovers x to within the float's own precision, which by
// construction of invBase is exact.
func SplitFloatMult[T latent.Uint](numbers []float64, latents []T, base, invBase float64, fl FloatLatent[T]) (primary, secondary []T) {
	primary = make([]T, len(numbers))
	secondary = make([]T, len(numbers))

	for i, x := range numbers {
		mult := roundToInt64(x * invBase)
		primary[i] = fl.SignedToLatent(mult)

		approx := float64(mult) * base
		secondary[i] = latent.WrappingSub(latents[i], fl.FromFloat(approx))
	}

	return primary, secondary
}

// JoinFloatMult inverts SplitFloatMult, returning the recovered floats.
func JoinFloatMult[T latent.Uint](primary, secondary []T, base float64, fl FloatLatent[T]) []float64 {
	out := make([]float64, len(primary))

	for i := range primary {
		mult := fl.LatentToSigned(primary[i])
		approx := float64(mult) * base
		xLatent := latent.WrappingAdd(fl.FromFloat(approx), secondary[i])
		out[i] = fl.ToFloat(xLatent)
	}

	return out
}
