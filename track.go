package keyframe

import (
	"fmt"
	"math"
	"sort"
)

// Track is the ordered keyframe set for one (object, property) pair.
//
// Storage is preallocated to a fixed capacity and never grows: times, values
// (3 floats per entry) and interpolation tags live in parallel arrays with a
// live count, the same pooling the particle emitter uses. Entries [0, count)
// are always sorted by strictly increasing time.
//
// Indices are not stable across mutations. After any Add, RemoveAt or
// UpdateTime, re-resolve a keyframe with FindIndex rather than reusing an
// index obtained earlier.
type Track struct {
	times      []float64
	values     []float64
	interps    []Interpolation
	handles    []Handles
	hasHandles []bool
	count      int
	dirty      bool

	handlers handlerRegistry

	// Set when the track is owned by a Store.
	owner    *Store
	objectID string
	property string
}

// NewTrack creates an empty track with room for capacity keyframes.
// A capacity <= 0 selects DefaultCapacity.
func NewTrack(capacity int) *Track {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Track{
		times:      make([]float64, capacity),
		values:     make([]float64, capacity*3),
		interps:    make([]Interpolation, capacity),
		handles:    make([]Handles, capacity),
		hasHandles: make([]bool, capacity),
	}
}

// Len returns the number of live keyframes.
func (t *Track) Len() int {
	return t.count
}

// Cap returns the fixed keyframe capacity.
func (t *Track) Cap() int {
	return len(t.times)
}

// Dirty reports whether the track changed since its owning store last
// rebuilt the sample cache.
func (t *Track) Dirty() bool {
	return t.dirty
}

// Duration returns the time of the last keyframe, or 0 for an empty track.
func (t *Track) Duration() float64 {
	if t.count == 0 {
		return 0
	}
	return t.times[t.count-1]
}

// At returns a copy of the keyframe at index i.
func (t *Track) At(i int) (Keyframe, bool) {
	if i < 0 || i >= t.count {
		return Keyframe{}, false
	}
	kf := Keyframe{
		Time:          t.times[i],
		Value:         t.value(i),
		Interpolation: t.interps[i],
	}
	if t.hasHandles[i] {
		h := t.handles[i]
		kf.Handles = &h
	}
	return kf, true
}

// Keyframes returns a copy of every live keyframe in time order.
func (t *Track) Keyframes() []Keyframe {
	out := make([]Keyframe, t.count)
	for i := range out {
		out[i], _ = t.At(i)
	}
	return out
}

// --- Mutation ---

// Add inserts a keyframe and returns the index it settled at.
func (t *Track) Add(time float64, value Vec3, interp Interpolation) (int, error) {
	return t.insert(time, value, interp, nil)
}

// AddBezier inserts a Bezier keyframe whose outgoing segment uses the given
// control points.
func (t *Track) AddBezier(time float64, value Vec3, h Handles) (int, error) {
	return t.insert(time, value, InterpolationBezier, &h)
}

func (t *Track) insert(time float64, value Vec3, interp Interpolation, h *Handles) (int, error) {
	if !validTime(time) {
		return -1, ErrInvalidTime
	}
	if !value.Defined() {
		return -1, ErrInvalidValue
	}
	if !interp.valid() {
		return -1, ErrInvalidInterpolation
	}
	if h != nil && (!h.P1.Defined() || !h.P2.Defined()) {
		return -1, ErrInvalidValue
	}
	if t.count == len(t.times) {
		return -1, fmt.Errorf("add at %gs (capacity %d): %w", time, len(t.times), ErrCapacityExceeded)
	}
	if _, ok := t.FindIndex(time); ok {
		return -1, ErrDuplicateTime
	}

	i := t.count
	t.times[i] = time
	t.setValue(i, value)
	t.interps[i] = interp
	if h != nil {
		t.handles[i] = *h
		t.hasHandles[i] = true
	} else {
		t.handles[i] = Handles{}
		t.hasHandles[i] = false
	}
	t.count++
	i = t.settle(i)
	t.dirty = true

	debugCheckCapacity(t)

	t.emit(Event{
		Type:          EventAdded,
		Index:         i,
		Time:          time,
		Value:         value,
		Interpolation: interp,
	})
	return i, nil
}

// RemoveAt deletes the keyframe at index. The last live entry is swapped into
// the vacated slot and the track re-sorted, so any index held by the caller
// must be re-resolved afterwards.
func (t *Track) RemoveAt(index int) error {
	if index < 0 || index >= t.count {
		return ErrIndexOutOfRange
	}
	removed := Event{
		Type:          EventRemoved,
		Index:         index,
		Time:          t.times[index],
		Value:         t.value(index),
		Interpolation: t.interps[index],
	}

	last := t.count - 1
	if index != last {
		t.copySlot(index, last)
	}
	t.clearSlot(last)
	t.count--
	if index < t.count {
		t.settle(index)
	}
	t.dirty = true

	t.emit(removed)
	return nil
}

// UpdateTime moves the keyframe at index to newTime. Moving a keyframe onto
// its own time (within TimeEpsilon) succeeds without emitting an event.
func (t *Track) UpdateTime(index int, newTime float64) error {
	if index < 0 || index >= t.count {
		return ErrIndexOutOfRange
	}
	if !validTime(newTime) {
		return ErrInvalidTime
	}
	old := t.times[index]
	if math.Abs(newTime-old) < TimeEpsilon {
		return nil
	}
	if j, ok := t.FindIndex(newTime); ok && j != index {
		return ErrDuplicateTime
	}

	t.times[index] = newTime
	ni := t.settle(index)
	t.dirty = true

	t.emit(Event{
		Type:          EventMoved,
		Index:         ni,
		OldIndex:      index,
		Time:          newTime,
		OldTime:       old,
		Value:         t.value(ni),
		Interpolation: t.interps[ni],
	})
	return nil
}

// UpdateValue replaces the value of the keyframe at index.
func (t *Track) UpdateValue(index int, newValue Vec3) error {
	if index < 0 || index >= t.count {
		return ErrIndexOutOfRange
	}
	if !newValue.Defined() {
		return ErrInvalidValue
	}
	old := t.value(index)
	t.setValue(index, newValue)
	t.dirty = true

	t.emit(Event{
		Type:          EventUpdated,
		Index:         index,
		Time:          t.times[index],
		Value:         newValue,
		OldValue:      old,
		Interpolation: t.interps[index],
	})
	return nil
}

// SetInterpolation retags the segment starting at index. Leaving Bezier
// drops any explicit handles. Setting the current tag is a silent no-op.
func (t *Track) SetInterpolation(index int, interp Interpolation) error {
	if index < 0 || index >= t.count {
		return ErrIndexOutOfRange
	}
	if !interp.valid() {
		return ErrInvalidInterpolation
	}
	if t.interps[index] == interp {
		return nil
	}
	t.interps[index] = interp
	if interp != InterpolationBezier {
		t.handles[index] = Handles{}
		t.hasHandles[index] = false
	}
	t.dirty = true
	t.emitUpdated(index)
	return nil
}

// clearHandles drops explicit Bézier handles at index so the segment falls
// back to the default control points.
func (t *Track) clearHandles(index int) {
	if !t.hasHandles[index] {
		return
	}
	t.handles[index] = Handles{}
	t.hasHandles[index] = false
	t.dirty = true
	t.emitUpdated(index)
}

// SetHandles makes the segment starting at index a Bézier curve through the
// given control points.
func (t *Track) SetHandles(index int, h Handles) error {
	if index < 0 || index >= t.count {
		return ErrIndexOutOfRange
	}
	if !h.P1.Defined() || !h.P2.Defined() {
		return ErrInvalidValue
	}
	t.interps[index] = InterpolationBezier
	t.handles[index] = h
	t.hasHandles[index] = true
	t.dirty = true
	t.emitUpdated(index)
	return nil
}

func (t *Track) emitUpdated(index int) {
	v := t.value(index)
	t.emit(Event{
		Type:          EventUpdated,
		Index:         index,
		Time:          t.times[index],
		Value:         v,
		OldValue:      v,
		Interpolation: t.interps[index],
	})
}

// --- Lookup ---

// FindIndex returns the index of the keyframe within TimeEpsilon of time.
func (t *Track) FindIndex(time float64) (int, bool) {
	i := t.search(time)
	if i < t.count && math.Abs(t.times[i]-time) < TimeEpsilon {
		return i, true
	}
	if i > 0 && math.Abs(t.times[i-1]-time) < TimeEpsilon {
		return i - 1, true
	}
	return -1, false
}

// ClosestIndex returns the index of the keyframe nearest to time. Ties go to
// the earlier keyframe. It reports false only for an empty track.
func (t *Track) ClosestIndex(time float64) (int, bool) {
	if t.count == 0 {
		return -1, false
	}
	i := t.search(time)
	if i >= t.count {
		return t.count - 1, true
	}
	if i == 0 {
		return 0, true
	}
	if time-t.times[i-1] <= t.times[i]-time {
		return i - 1, true
	}
	return i, true
}

// search returns the first index whose time is >= time.
func (t *Track) search(time float64) int {
	return sort.Search(t.count, func(i int) bool { return t.times[i] >= time })
}

// --- Validation and copying ---

// ValidationResult lists every structural violation found. Valid is true
// when Errors is empty.
type ValidationResult struct {
	Valid  bool
	Errors []string
}

// Validate checks the count bounds, strict time ordering and that every live
// value is defined. It reports all violations rather than the first.
func (t *Track) Validate() ValidationResult {
	var errs []string
	capacity := len(t.times)
	if t.count < 0 || t.count > capacity {
		errs = append(errs, fmt.Sprintf("count %d outside [0, %d]", t.count, capacity))
		return ValidationResult{Valid: false, Errors: errs}
	}
	if len(t.values) != capacity*3 || len(t.interps) != capacity || len(t.handles) != capacity || len(t.hasHandles) != capacity {
		errs = append(errs, "backing arrays disagree on capacity")
		return ValidationResult{Valid: false, Errors: errs}
	}
	for i := 0; i < t.count; i++ {
		if !validTime(t.times[i]) {
			errs = append(errs, fmt.Sprintf("keyframe %d: invalid time %g", i, t.times[i]))
		}
		if !t.value(i).Defined() {
			errs = append(errs, fmt.Sprintf("keyframe %d: undefined value %v", i, t.value(i)))
		}
		if !t.interps[i].valid() {
			errs = append(errs, fmt.Sprintf("keyframe %d: unknown interpolation %d", i, t.interps[i]))
		}
		if i+1 < t.count && !(t.times[i] < t.times[i+1]) {
			errs = append(errs, fmt.Sprintf("keyframe %d: time %g not before keyframe %d time %g",
				i, t.times[i], i+1, t.times[i+1]))
		}
	}
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// Clone returns a deep copy with independent storage. Subscribers and store
// ownership are not copied.
func (t *Track) Clone() *Track {
	c := &Track{
		times:      append([]float64(nil), t.times...),
		values:     append([]float64(nil), t.values...),
		interps:    append([]Interpolation(nil), t.interps...),
		handles:    append([]Handles(nil), t.handles...),
		hasHandles: append([]bool(nil), t.hasHandles...),
		count:      t.count,
		dirty:      t.dirty,
	}
	return c
}

// --- Events ---

// Subscribe registers fn for every event kind emitted by this track.
func (t *Track) Subscribe(fn func(Event)) CallbackHandle {
	return t.handlers.register(allEvents, fn)
}

// OnAdded registers a callback for keyframe insertions.
func (t *Track) OnAdded(fn func(Event)) CallbackHandle {
	return t.handlers.register(EventAdded, fn)
}

// OnRemoved registers a callback for keyframe deletions.
func (t *Track) OnRemoved(fn func(Event)) CallbackHandle {
	return t.handlers.register(EventRemoved, fn)
}

// OnUpdated registers a callback for value and interpolation changes.
func (t *Track) OnUpdated(fn func(Event)) CallbackHandle {
	return t.handlers.register(EventUpdated, fn)
}

// OnMoved registers a callback for keyframe time changes.
func (t *Track) OnMoved(fn func(Event)) CallbackHandle {
	return t.handlers.register(EventMoved, fn)
}

// emit stamps the routing context, lets the owning store mark itself dirty
// and relay the event, then notifies the track's own subscribers.
func (t *Track) emit(e Event) {
	e.ObjectID = t.objectID
	e.Property = t.property
	if t.owner != nil {
		t.owner.relay(e)
	}
	t.handlers.dispatch(e)
}

// --- Slot helpers ---

func (t *Track) value(i int) Vec3 {
	o := i * 3
	return Vec3{t.values[o], t.values[o+1], t.values[o+2]}
}

func (t *Track) setValue(i int, v Vec3) {
	o := i * 3
	t.values[o] = v.X
	t.values[o+1] = v.Y
	t.values[o+2] = v.Z
}

func (t *Track) copySlot(dst, src int) {
	t.times[dst] = t.times[src]
	copy(t.values[dst*3:dst*3+3], t.values[src*3:src*3+3])
	t.interps[dst] = t.interps[src]
	t.handles[dst] = t.handles[src]
	t.hasHandles[dst] = t.hasHandles[src]
}

func (t *Track) clearSlot(i int) {
	t.times[i] = 0
	t.setValue(i, Vec3{})
	t.interps[i] = InterpolationLinear
	t.handles[i] = Handles{}
	t.hasHandles[i] = false
}

func (t *Track) swapSlots(a, b int) {
	t.times[a], t.times[b] = t.times[b], t.times[a]
	for k := 0; k < 3; k++ {
		t.values[a*3+k], t.values[b*3+k] = t.values[b*3+k], t.values[a*3+k]
	}
	t.interps[a], t.interps[b] = t.interps[b], t.interps[a]
	t.handles[a], t.handles[b] = t.handles[b], t.handles[a]
	t.hasHandles[a], t.hasHandles[b] = t.hasHandles[b], t.hasHandles[a]
}

// settle moves the single out-of-place entry at i until the live range is
// sorted again and returns its final index.
func (t *Track) settle(i int) int {
	for i > 0 && t.times[i-1] > t.times[i] {
		t.swapSlots(i-1, i)
		i--
	}
	for i+1 < t.count && t.times[i+1] < t.times[i] {
		t.swapSlots(i, i+1)
		i++
	}
	return i
}

func validTime(time float64) bool {
	return finite(time) && time >= 0
}
