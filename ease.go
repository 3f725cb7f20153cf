package keyframe

import "github.com/tanema/gween/ease"

// SetEase shapes the segment starting at index like the given easing curve.
// The curve is approximated by Bézier handles that make the cubic pass
// through fn at one and two thirds of the segment, so the result is exact
// for linear and cubic polynomial eases and close for the others. The
// keyframe at index must have a successor.
func (t *Track) SetEase(index int, fn ease.TweenFunc) error {
	if index < 0 || index+1 >= t.count {
		return ErrIndexOutOfRange
	}
	if fn == nil {
		fn = ease.Linear
	}
	h := EaseHandles(t.value(index), t.value(index+1), fn)
	return t.SetHandles(index, h)
}

// EaseHandles returns control points for a Bézier segment from a to b that
// follows fn. Handles are derived per axis from the segment delta.
func EaseHandles(a, b Vec3, fn ease.TweenFunc) Handles {
	w1, w2 := easeWeights(fn)
	d := b.Sub(a)
	return Handles{
		P1: a.Add(d.Scale(w1)),
		P2: a.Add(d.Scale(w2)),
	}
}

// easeWeights solves for normalised inner control points c1, c2 of a cubic
// with endpoints 0 and 1 such that B(1/3) = f(1/3) and B(2/3) = f(2/3):
//
//	4/9·c1 + 2/9·c2 = f(1/3) - 1/27
//	2/9·c1 + 4/9·c2 = f(2/3) - 8/27
func easeWeights(fn ease.TweenFunc) (float64, float64) {
	f1 := float64(fn(1.0/3.0, 0, 1, 1))
	f2 := float64(fn(2.0/3.0, 0, 1, 1))
	a := f1 - 1.0/27.0
	b := f2 - 8.0/27.0
	return 3*a - 1.5*b, 3*b - 1.5*a
}
