package keyframe

import (
	"math"
	"sort"
)

// Sample returns the track's value at time. An empty track reports false.
// A single keyframe yields a constant track. Times at or before the first
// keyframe clamp to its value; at or after the last, to the last value.
func (t *Track) Sample(time float64) (Vec3, bool) {
	switch t.count {
	case 0:
		return Vec3{}, false
	case 1:
		return t.value(0), true
	}

	last := t.count - 1
	if math.IsNaN(time) || time <= t.times[0] {
		return t.value(0), true
	}
	if time >= t.times[last] {
		return t.value(last), true
	}

	// First keyframe strictly after time; always in [1, last] here.
	next := sort.Search(t.count, func(i int) bool { return t.times[i] > time })
	prev := next - 1

	p0 := t.value(prev)
	p3 := t.value(next)
	u := (time - t.times[prev]) / (t.times[next] - t.times[prev])

	switch t.interps[prev] {
	case InterpolationStep:
		return p0, true
	case InterpolationBezier:
		p1, p2 := p0, p3
		if t.hasHandles[prev] {
			p1 = t.handles[prev].P1
			p2 = t.handles[prev].P2
		}
		return Vec3{
			cubicBezier(p0.X, p1.X, p2.X, p3.X, u),
			cubicBezier(p0.Y, p1.Y, p2.Y, p3.Y, u),
			cubicBezier(p0.Z, p1.Z, p2.Z, p3.Z, u),
		}, true
	default:
		return lerpVec3(p0, p3, u), true
	}
}

// lerp linearly interpolates between a and b by t.
func lerp(a, b, t float64) float64 {
	return a + (b-a)*t
}

func lerpVec3(a, b Vec3, t float64) Vec3 {
	return Vec3{lerp(a.X, b.X, t), lerp(a.Y, b.Y, t), lerp(a.Z, b.Z, t)}
}

// cubicBezier evaluates the cubic Bernstein polynomial on one axis.
func cubicBezier(p0, p1, p2, p3, t float64) float64 {
	mt := 1 - t
	return mt*mt*mt*p0 + 3*mt*mt*t*p1 + 3*mt*t*t*p2 + t*t*t*p3
}
