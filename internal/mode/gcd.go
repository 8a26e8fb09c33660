package mode

import "github.com/nlatent/nlatent/internal/latent"

// pairGCD computes the greatest common divisor of a and b. b must be
// positive. Ported directly from the reference pair_gcd: repeated modulo in
// alternating operands, fast when one operand is small.
func pairGCD[T latent.Uint](a, b T) T {
	for {
		a %= b
		if a == latent.Zero[T]() {
			return b
		}
		b %= a
		if b == latent.Zero[T]() {
			return a
		}
	}
}

// GCD computes the greatest common divisor of the pairwise differences
// sorted[i]-sorted[0] for a sorted sample. Returns 1 if every value is
// identical (a GCD of 1 then carries no information and IntMult degenerates
// to Classic).
func GCD[T latent.Uint](sorted []T) T {
	lower := sorted[0]
	upper := sorted[len(sorted)-1]
	if lower == upper {
		return latent.One[T]()
	}

	res := latent.WrappingSub(upper, lower)
	for _, x := range sorted[1:] {
		if res == latent.One[T]() {
			break
		}
		res = pairGCD(latent.WrappingSub(x, lower), res)
	}

	return res
}
