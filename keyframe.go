package keyframe

import (
	"fmt"
	"math"
)

const (
	// TimeEpsilon is the tolerance, in seconds, under which two keyframe times
	// are considered the same.
	TimeEpsilon = 1e-3

	// DefaultCapacity is the per-track slot count used when none is given
	// (60 fps for 60 seconds).
	DefaultCapacity = 3600

	// DefaultFrameRate is the store frame rate used when none is given.
	DefaultFrameRate = 30
)

// Vec3 is a 3-component value used for positions, rotations and scales.
type Vec3 struct {
	X, Y, Z float64
}

// Add returns v + o.
func (v Vec3) Add(o Vec3) Vec3 {
	return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z}
}

// Sub returns v - o.
func (v Vec3) Sub(o Vec3) Vec3 {
	return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z}
}

// Scale returns v multiplied by s.
func (v Vec3) Scale(s float64) Vec3 {
	return Vec3{v.X * s, v.Y * s, v.Z * s}
}

// Defined reports whether every component is a finite number.
func (v Vec3) Defined() bool {
	return finite(v.X) && finite(v.Y) && finite(v.Z)
}

func (v Vec3) String() string {
	return fmt.Sprintf("(%g, %g, %g)", v.X, v.Y, v.Z)
}

func finite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}

// Interpolation selects how a segment is evaluated. The tag stored on a
// keyframe governs the segment that starts at that keyframe.
type Interpolation uint8

const (
	InterpolationLinear Interpolation = iota // component-wise lerp
	InterpolationStep                        // hold the previous value until the next keyframe
	InterpolationBezier                      // cubic Bézier through explicit handles
)

func (i Interpolation) String() string {
	switch i {
	case InterpolationLinear:
		return "linear"
	case InterpolationStep:
		return "step"
	case InterpolationBezier:
		return "bezier"
	default:
		return fmt.Sprintf("Interpolation(%d)", uint8(i))
	}
}

func (i Interpolation) valid() bool {
	return i <= InterpolationBezier
}

// Handles holds the two inner control points of a cubic Bézier segment.
// P1 pulls away from the segment's start keyframe, P2 pulls into its end.
type Handles struct {
	P1, P2 Vec3
}

// Keyframe is a read-only copy of one stored keyframe. Handles is non-nil only
// for Bezier keyframes that carry explicit control points.
type Keyframe struct {
	Time          float64
	Value         Vec3
	Interpolation Interpolation
	Handles       *Handles
}

// Property identifies one of the transform fields a track can drive.
type Property uint8

const (
	PropertyPosition Property = iota // object position
	PropertyRotation                 // object rotation (radians per axis)
	PropertyScale                    // object scale
)

func (p Property) String() string {
	switch p {
	case PropertyPosition:
		return "position"
	case PropertyRotation:
		return "rotation"
	case PropertyScale:
		return "scale"
	default:
		return fmt.Sprintf("Property(%d)", uint8(p))
	}
}

// ParseProperty maps a track property name to a Property.
func ParseProperty(name string) (Property, bool) {
	switch name {
	case "position":
		return PropertyPosition, true
	case "rotation":
		return PropertyRotation, true
	case "scale":
		return PropertyScale, true
	}
	return 0, false
}

// EventType identifies a kind of timeline mutation event.
type EventType uint8

const (
	EventAdded   EventType = iota // a keyframe was inserted
	EventRemoved                  // a keyframe was deleted
	EventUpdated                  // a keyframe's value or interpolation changed
	EventMoved                    // a keyframe's time changed
)

func (e EventType) String() string {
	switch e {
	case EventAdded:
		return "added"
	case EventRemoved:
		return "removed"
	case EventUpdated:
		return "updated"
	case EventMoved:
		return "moved"
	default:
		return fmt.Sprintf("EventType(%d)", uint8(e))
	}
}
