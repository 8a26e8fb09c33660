package mode

import (
	"math"
	"math/bits"

	"github.com/nlatent/nlatent/internal/latent"
)

// requiredInformationGainDenom: FloatMult is only worth using if it saves at
// least 1/this of the mantissa's precision bits. Named after the
// reference's REQUIRED_INFORMATION_GAIN_DENOM.
const requiredInformationGainDenom = 6

// floatMultCandidates are the reciprocal bases considered, largest (finest)
// first: 10^9 down to 10^1.
var floatMultCandidates = func() []float64 {
	cands := make([]float64, 9)
	p := 1.0
	for i := 0; i < 9; i++ {
		p *= 10
		cands[8-i] = p
	}
	return cands
}()

func roundToInt64(x float64) int64 {
	return int64(math.Round(x))
}

// ulpDistance64 measures the distance between two finite float64s in units
// of the last place, via their order-preserving latents: adjacent floats
// have adjacent latents, so a plain unsigned difference is exactly the ULP
// count between them regardless of sign or magnitude.
func ulpDistance64(a, b float64) uint64 {
	la, lb := latent.F64ToLatent(a), latent.F64ToLatent(b)
	if la > lb {
		return la - lb
	}

	return lb - la
}

func bitsNeeded64(x uint64) uint8 {
	return uint8(bits.Len64(x))
}

func saturatingSub8(a, b uint8) uint8 {
	if a < b {
		return 0
	}

	return a - b
}

// DetectFloatMult searches, largest-first, for a reciprocal base under
// which every finite sample in samples rounds to a multiple of 1/invBase
// that back-multiplies to within the information-gain threshold, and at
// least two distinct multipliers appear (ruling out a degenerate constant
// chunk). mantissaBits is the float type's mantissa width (23 for float32,
// 52 for float64); samples may be float32 values widened losslessly to
// float64 by the caller.
func DetectFloatMult(samples []float64, mantissaBits int) (base, invBase float64, ok bool) {
	biggestAbs := 0.0
	for _, x := range samples {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			continue
		}
		if a := math.Abs(x); a > biggestAbs {
			biggestAbs = a
		}
	}
	if biggestAbs == 0 {
		return 0, 0, false
	}

	requiredGain := uint8(mantissaBits / requiredInformationGainDenom)
	precisionCeiling := math.Exp2(float64(mantissaBits))

	for _, cand := range floatMultCandidates {
		if biggestAbs*cand >= precisionCeiling {
			continue
		}

		b := 1.0 / cand
		provenUseful := false
		farFromExact := false
		haveSeenMult := false
		var seenMult float64

		for _, x := range samples {
			if math.IsNaN(x) || math.IsInf(x, 0) {
				continue
			}
			absX := math.Abs(x)
			if absX == 0 {
				continue
			}

			baseBits := bitsNeeded64(ulpDistance64(absX, absX+b))
			mult := math.Round(absX * cand)
			adjBits := bitsNeeded64(ulpDistance64(absX, mult*b))

			if adjBits > saturatingSub8(baseBits, requiredGain) {
				farFromExact = true
				break
			}

			if baseBits >= requiredGain {
				if haveSeenMult && mult != seenMult {
					provenUseful = true
				} else {
					seenMult = mult
					haveSeenMult = true
				}
			}
		}

		if !farFromExact && provenUseful {
			return b, cand, true
		}
	}

	return 0, 0, false
}
