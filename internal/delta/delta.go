// Package delta implements in-place nth-order delta encoding of a page's
// primary latent stream, grounded directly on the reference delta.rs:
// encode_in_place/decode_in_place, the toggle-to-center step, and the
// DeltaMoments carried per page.
package delta

import "github.com/nlatent/nlatent/internal/latent"

// Moments holds the k leading values of the primary latent stream recorded
// before taking k first-differences, where k is the delta encoding order.
// The decoder uses them to seed reconstruction of the page prefix.
type Moments[T latent.Uint] struct {
	Values []T
}

// Order returns the delta encoding order these moments were recorded at.
func (m Moments[T]) Order() int {
	return len(m.Values)
}

// mid is the re-centering offset added to every first-difference so that
// small signed deltas (which naturally split across 0 and the latent's max
// value) cluster instead around the middle of the unsigned range, where
// binning can treat them as one contiguous run.
func mid[T latent.Uint]() T {
	return latent.Shl(latent.One[T](), latent.Bits[T]()-1)
}

// toggleCenterInPlace adds mid to every element. Applying it twice is the
// identity (mid + mid wraps back to 0 modulo 2^bits only when bits allows;
// since mid is exactly half the range, two additions of mid wrap around
// exactly once), so the same function re-centers on encode and decode.
func toggleCenterInPlace[T latent.Uint](latents []T) {
	m := mid[T]()
	for i, u := range latents {
		latents[i] = latent.WrappingAdd(u, m)
	}
}

func firstOrderEncodeInPlace[T latent.Uint](latents []T) {
	if len(latents) == 0 {
		return
	}

	for i := 0; i < len(latents)-1; i++ {
		latents[i] = latent.WrappingSub(latents[i+1], latents[i])
	}
}

// EncodeInPlace applies order rounds of first-differencing to latents,
// shrinking the live region by one element each round, then re-centers the
// final differenced region around mid. It returns the moments needed to
// invert the transform. Order 0 is a no-op (and in particular does not
// re-center, since there is no delta to keep signed).
func EncodeInPlace[T latent.Uint](latents []T, order int) Moments[T] {
	if order == 0 {
		return Moments[T]{}
	}

	values := make([]T, 0, order)
	live := latents
	for i := 0; i < order; i++ {
		var first T
		if len(live) > 0 {
			first = live[0]
		}
		values = append(values, first)

		firstOrderEncodeInPlace(live)
		truncated := len(live) - 1
		if truncated < 0 {
			truncated = 0
		}
		live = live[:truncated]
	}
	toggleCenterInPlace(live)

	return Moments[T]{Values: values}
}

func firstOrderDecodeInPlace[T latent.Uint](moment *T, latents []T) {
	for i, d := range latents {
		tmp := d
		latents[i] = *moment
		*moment = latent.WrappingAdd(*moment, tmp)
	}
}

// DecodeInPlace inverts EncodeInPlace for one batch: it re-centers latents
// back to signed deltas, then integrates once per moment, consuming moments
// from the most-differenced (last recorded) to the original (first
// recorded). moments.Values is mutated in place so a subsequent batch of
// the same page can continue from the updated running moment.
func DecodeInPlace[T latent.Uint](moments *Moments[T], latents []T) {
	if moments.Order() == 0 {
		return
	}

	toggleCenterInPlace(latents)
	for i := len(moments.Values) - 1; i >= 0; i-- {
		firstOrderDecodeInPlace(&moments.Values[i], latents)
	}
}
