package keyframe

import "errors"

// Mutation and lookup failures. All are recoverable: a call that returns one
// of these leaves the track or store exactly as it was.
var (
	ErrInvalidValue         = errors.New("keyframe: value has undefined components")
	ErrInvalidTime          = errors.New("keyframe: time must be finite and non-negative")
	ErrInvalidInterpolation = errors.New("keyframe: unknown interpolation")
	ErrDuplicateTime        = errors.New("keyframe: a keyframe already exists at this time")
	ErrIndexOutOfRange      = errors.New("keyframe: index out of range")
	ErrTrackNotFound        = errors.New("keyframe: track not found")
	ErrObjectNotFound       = errors.New("keyframe: object not found")
	ErrInvalidFrameRate     = errors.New("keyframe: frame rate must be positive")
	ErrUnsupportedFormat    = errors.New("keyframe: unsupported file format")

	// ErrCapacityExceeded signals a sizing problem rather than an editing
	// error: the track's fixed slot count is exhausted.
	ErrCapacityExceeded = errors.New("keyframe: track capacity exceeded")
)
