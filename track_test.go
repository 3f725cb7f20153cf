package keyframe

import (
	"errors"
	"math"
	"math/rand/v2"
	"testing"
)

// --- Helpers ---

func assertSorted(t *testing.T, tr *Track) {
	t.Helper()
	for i := 0; i+1 < tr.Len(); i++ {
		if !(tr.times[i] < tr.times[i+1]) {
			t.Fatalf("times[%d] = %v not before times[%d] = %v", i, tr.times[i], i+1, tr.times[i+1])
		}
	}
}

func trackTimes(tr *Track) []float64 {
	return append([]float64(nil), tr.times[:tr.count]...)
}

func mustAdd(t *testing.T, tr *Track, time float64, v Vec3, interp Interpolation) int {
	t.Helper()
	i, err := tr.Add(time, v, interp)
	if err != nil {
		t.Fatalf("Add(%v): %v", time, err)
	}
	return i
}

// --- Construction ---

func TestNewTrackDefaults(t *testing.T) {
	tr := NewTrack(0)
	if tr.Cap() != DefaultCapacity {
		t.Errorf("Cap = %d, want %d", tr.Cap(), DefaultCapacity)
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
	if tr.Dirty() {
		t.Error("new track should not be dirty")
	}
	if len(tr.values) != DefaultCapacity*3 {
		t.Errorf("values backing = %d, want %d", len(tr.values), DefaultCapacity*3)
	}
}

// --- Add ---

func TestAddKeepsTimesSorted(t *testing.T) {
	tr := NewTrack(16)
	mustAdd(t, tr, 2, Vec3{X: 2}, InterpolationLinear)
	mustAdd(t, tr, 0, Vec3{X: 0}, InterpolationLinear)
	i := mustAdd(t, tr, 1, Vec3{X: 1}, InterpolationStep)

	if i != 1 {
		t.Errorf("Add returned index %d, want 1", i)
	}
	want := []float64{0, 1, 2}
	got := trackTimes(tr)
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("times = %v, want %v", got, want)
		}
	}
	kf, _ := tr.At(1)
	if kf.Value.X != 1 || kf.Interpolation != InterpolationStep {
		t.Errorf("At(1) = %+v, want value X=1 step", kf)
	}
	if !tr.Dirty() {
		t.Error("track should be dirty after Add")
	}
}

func TestAddDuplicateWithinEpsilonRejected(t *testing.T) {
	tr := NewTrack(16)
	mustAdd(t, tr, 1.0, Vec3{X: 1}, InterpolationLinear)

	_, err := tr.Add(1.0005, Vec3{X: 2}, InterpolationLinear)
	if !errors.Is(err, ErrDuplicateTime) {
		t.Fatalf("err = %v, want ErrDuplicateTime", err)
	}
	if tr.Len() != 1 {
		t.Errorf("Len = %d, want 1", tr.Len())
	}
	kf, _ := tr.At(0)
	if kf.Value.X != 1 {
		t.Errorf("existing value changed to %v", kf.Value)
	}
}

func TestAddCapacityHardLimit(t *testing.T) {
	tr := NewTrack(4)
	for i := 0; i < 4; i++ {
		mustAdd(t, tr, float64(i), Vec3{X: float64(i)}, InterpolationLinear)
	}

	_, err := tr.Add(10, Vec3{}, InterpolationLinear)
	if !errors.Is(err, ErrCapacityExceeded) {
		t.Fatalf("err = %v, want ErrCapacityExceeded", err)
	}
	if tr.Len() != 4 {
		t.Fatalf("Len = %d, want 4", tr.Len())
	}
	for i := 0; i < 4; i++ {
		kf, ok := tr.At(i)
		if !ok || kf.Time != float64(i) || kf.Value.X != float64(i) {
			t.Errorf("At(%d) = %+v, want time and X = %d", i, kf, i)
		}
	}
}

func TestAddRejectsInvalidInput(t *testing.T) {
	tr := NewTrack(8)
	cases := []struct {
		name   string
		time   float64
		value  Vec3
		interp Interpolation
		want   error
	}{
		{"nan value", 1, Vec3{X: math.NaN()}, InterpolationLinear, ErrInvalidValue},
		{"inf value", 1, Vec3{Z: math.Inf(1)}, InterpolationLinear, ErrInvalidValue},
		{"negative time", -1, Vec3{}, InterpolationLinear, ErrInvalidTime},
		{"nan time", math.NaN(), Vec3{}, InterpolationLinear, ErrInvalidTime},
		{"unknown interpolation", 1, Vec3{}, Interpolation(9), ErrInvalidInterpolation},
	}
	for _, c := range cases {
		if _, err := tr.Add(c.time, c.value, c.interp); !errors.Is(err, c.want) {
			t.Errorf("%s: err = %v, want %v", c.name, err, c.want)
		}
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
	if tr.Dirty() {
		t.Error("failed adds must not mark the track dirty")
	}
}

func TestAddBezierRejectsUndefinedHandles(t *testing.T) {
	tr := NewTrack(8)
	_, err := tr.AddBezier(0, Vec3{}, Handles{P1: Vec3{Y: math.NaN()}})
	if !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
}

// --- RemoveAt ---

func TestRemoveAtKeepsOrder(t *testing.T) {
	tr := NewTrack(8)
	for i := 0; i < 5; i++ {
		mustAdd(t, tr, float64(i), Vec3{X: float64(i)}, InterpolationLinear)
	}
	if err := tr.RemoveAt(1); err != nil {
		t.Fatal(err)
	}
	want := []float64{0, 2, 3, 4}
	got := trackTimes(tr)
	if len(got) != len(want) {
		t.Fatalf("times = %v, want %v", got, want)
	}
	for k := range want {
		if got[k] != want[k] {
			t.Fatalf("times = %v, want %v", got, want)
		}
	}
	// The vacated tail slot is cleared.
	if tr.times[4] != 0 || tr.values[12] != 0 {
		t.Error("tail slot not cleared")
	}
}

func TestRemoveAtIndicesAreNotStable(t *testing.T) {
	tr := NewTrack(8)
	for i := 0; i < 5; i++ {
		mustAdd(t, tr, float64(i), Vec3{X: float64(i * 10)}, InterpolationLinear)
	}
	lastIndex := tr.Len() - 1
	lastTime := 4.0

	k := 3
	if err := tr.RemoveAt(k); err != nil {
		t.Fatal(err)
	}

	// The keyframe formerly at the last index now occupies index k.
	i, ok := tr.FindIndex(lastTime)
	if !ok {
		t.Fatal("last keyframe lost")
	}
	if i != k {
		t.Errorf("former last keyframe at %d, want %d", i, k)
	}
	if _, ok := tr.At(lastIndex); ok {
		t.Errorf("stale index %d still resolves", lastIndex)
	}
	kf, _ := tr.At(i)
	if kf.Value.X != 40 {
		t.Errorf("re-resolved value = %v, want X=40", kf.Value)
	}
}

func TestRemoveAtOutOfRange(t *testing.T) {
	tr := NewTrack(4)
	mustAdd(t, tr, 0, Vec3{}, InterpolationLinear)
	tr.dirty = false

	for _, idx := range []int{-1, 1, 5} {
		if err := tr.RemoveAt(idx); !errors.Is(err, ErrIndexOutOfRange) {
			t.Errorf("RemoveAt(%d) err = %v, want ErrIndexOutOfRange", idx, err)
		}
	}
	if tr.Len() != 1 || tr.Dirty() {
		t.Errorf("failed removal changed track: len=%d dirty=%v", tr.Len(), tr.Dirty())
	}
}

func TestRemoveOnlyKeyframe(t *testing.T) {
	tr := NewTrack(4)
	mustAdd(t, tr, 3, Vec3{X: 1}, InterpolationLinear)
	if err := tr.RemoveAt(0); err != nil {
		t.Fatal(err)
	}
	if tr.Len() != 0 {
		t.Errorf("Len = %d, want 0", tr.Len())
	}
	if _, ok := tr.Sample(3); ok {
		t.Error("empty track should not sample")
	}
}

// --- Lookup ---

func TestFindIndex(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 0, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 1, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 2.5, Vec3{}, InterpolationLinear)

	cases := []struct {
		time float64
		idx  int
		ok   bool
	}{
		{0, 0, true},
		{0.0009, 0, true},
		{0.9995, 1, true},
		{1.0004, 1, true},
		{2.5, 2, true},
		{1.5, -1, false},
		{3, -1, false},
	}
	for _, c := range cases {
		idx, ok := tr.FindIndex(c.time)
		if idx != c.idx || ok != c.ok {
			t.Errorf("FindIndex(%v) = (%d, %v), want (%d, %v)", c.time, idx, ok, c.idx, c.ok)
		}
	}
}

func TestClosestIndex(t *testing.T) {
	tr := NewTrack(8)
	if _, ok := tr.ClosestIndex(1); ok {
		t.Error("ClosestIndex on empty track should report false")
	}
	mustAdd(t, tr, 1, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 2, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 4, Vec3{}, InterpolationLinear)

	cases := []struct {
		time float64
		want int
	}{
		{-5, 0},
		{1.2, 0},
		{1.5, 0}, // tie goes to the earlier keyframe
		{1.8, 1},
		{2.9, 1},
		{3.1, 2},
		{100, 2},
	}
	for _, c := range cases {
		if got, ok := tr.ClosestIndex(c.time); !ok || got != c.want {
			t.Errorf("ClosestIndex(%v) = %d, want %d", c.time, got, c.want)
		}
	}
}

// --- UpdateTime ---

func TestUpdateTimeResorts(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 0, Vec3{X: 7}, InterpolationStep)
	mustAdd(t, tr, 1, Vec3{X: 1}, InterpolationLinear)
	mustAdd(t, tr, 2, Vec3{X: 2}, InterpolationLinear)

	var got []Event
	tr.OnMoved(func(e Event) { got = append(got, e) })

	if err := tr.UpdateTime(0, 5); err != nil {
		t.Fatal(err)
	}
	assertSorted(t, tr)
	i, ok := tr.FindIndex(5)
	if !ok || i != 2 {
		t.Fatalf("moved keyframe at %d (ok=%v), want 2", i, ok)
	}
	kf, _ := tr.At(i)
	if kf.Value.X != 7 || kf.Interpolation != InterpolationStep {
		t.Errorf("moved keyframe = %+v, want X=7 step", kf)
	}
	if len(got) != 1 {
		t.Fatalf("got %d moved events, want 1", len(got))
	}
	e := got[0]
	if e.Index != 2 || e.OldIndex != 0 || e.OldTime != 0 || e.Time != 5 || e.Value.X != 7 {
		t.Errorf("event = %+v", e)
	}
}

func TestUpdateTimeCollision(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 0, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 1, Vec3{}, InterpolationLinear)
	tr.dirty = false

	events := 0
	tr.Subscribe(func(Event) { events++ })

	if err := tr.UpdateTime(0, 1.0002); !errors.Is(err, ErrDuplicateTime) {
		t.Errorf("err = %v, want ErrDuplicateTime", err)
	}
	if err := tr.UpdateTime(0, -2); !errors.Is(err, ErrInvalidTime) {
		t.Errorf("err = %v, want ErrInvalidTime", err)
	}
	if err := tr.UpdateTime(2, 3); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
	if events != 0 || tr.Dirty() {
		t.Errorf("failed moves: events=%d dirty=%v", events, tr.Dirty())
	}
	if tr.times[0] != 0 || tr.times[1] != 1 {
		t.Errorf("times changed: %v", trackTimes(tr))
	}
}

func TestUpdateTimeSameTimeIsSilent(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 1, Vec3{}, InterpolationLinear)
	tr.dirty = false

	events := 0
	tr.Subscribe(func(Event) { events++ })

	if err := tr.UpdateTime(0, 1.0004); err != nil {
		t.Fatalf("err = %v, want nil", err)
	}
	if events != 0 {
		t.Errorf("events = %d, want 0", events)
	}
	if tr.Dirty() {
		t.Error("no-op move should not mark dirty")
	}
	if tr.times[0] != 1 {
		t.Errorf("time = %v, want unchanged 1", tr.times[0])
	}
}

// --- UpdateValue ---

func TestUpdateValue(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 1, Vec3{X: 1}, InterpolationLinear)

	var got []Event
	tr.OnUpdated(func(e Event) { got = append(got, e) })

	if err := tr.UpdateValue(0, Vec3{X: 3, Y: 4, Z: 5}); err != nil {
		t.Fatal(err)
	}
	kf, _ := tr.At(0)
	if kf.Value != (Vec3{3, 4, 5}) {
		t.Errorf("value = %v, want (3, 4, 5)", kf.Value)
	}
	if len(got) != 1 || got[0].OldValue != (Vec3{X: 1}) || got[0].Value != (Vec3{3, 4, 5}) || got[0].Time != 1 {
		t.Errorf("events = %+v", got)
	}

	if err := tr.UpdateValue(0, Vec3{Y: math.NaN()}); !errors.Is(err, ErrInvalidValue) {
		t.Errorf("err = %v, want ErrInvalidValue", err)
	}
	if err := tr.UpdateValue(3, Vec3{}); !errors.Is(err, ErrIndexOutOfRange) {
		t.Errorf("err = %v, want ErrIndexOutOfRange", err)
	}
	if len(got) != 1 {
		t.Errorf("failed updates emitted events: %d", len(got)-1)
	}
}

// --- Interpolation changes ---

func TestSetInterpolation(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 0, Vec3{}, InterpolationLinear)
	mustAdd(t, tr, 1, Vec3{X: 1}, InterpolationLinear)

	events := 0
	tr.OnUpdated(func(Event) { events++ })

	if err := tr.SetInterpolation(0, InterpolationLinear); err != nil {
		t.Fatal(err)
	}
	if events != 0 {
		t.Error("setting the current tag should be silent")
	}
	if err := tr.SetHandles(0, Handles{P1: Vec3{X: 0.2}, P2: Vec3{X: 0.8}}); err != nil {
		t.Fatal(err)
	}
	kf, _ := tr.At(0)
	if kf.Interpolation != InterpolationBezier || kf.Handles == nil {
		t.Fatalf("At(0) = %+v, want bezier with handles", kf)
	}
	if err := tr.SetInterpolation(0, InterpolationStep); err != nil {
		t.Fatal(err)
	}
	kf, _ = tr.At(0)
	if kf.Handles != nil {
		t.Error("leaving bezier should drop handles")
	}
	if events != 2 {
		t.Errorf("events = %d, want 2", events)
	}
	if err := tr.SetInterpolation(0, Interpolation(4)); !errors.Is(err, ErrInvalidInterpolation) {
		t.Errorf("err = %v, want ErrInvalidInterpolation", err)
	}
}

// --- Invariants ---

func TestSortInvariantUnderRandomEdits(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	tr := NewTrack(64)

	for step := 0; step < 2000; step++ {
		switch op := rng.IntN(4); {
		case op <= 1 || tr.Len() == 0:
			_, _ = tr.Add(rng.Float64()*10, Vec3{X: rng.Float64()}, Interpolation(rng.IntN(3)))
		case op == 2:
			_ = tr.RemoveAt(rng.IntN(tr.Len()))
		default:
			_ = tr.UpdateTime(rng.IntN(tr.Len()), rng.Float64()*10)
		}
		assertSorted(t, tr)
		if tr.Len() > tr.Cap() {
			t.Fatalf("Len %d exceeds Cap %d", tr.Len(), tr.Cap())
		}
	}
	if res := tr.Validate(); !res.Valid {
		t.Errorf("Validate = %v", res.Errors)
	}
}

func TestValidateReportsEveryViolation(t *testing.T) {
	tr := NewTrack(8)
	for i := 0; i < 4; i++ {
		mustAdd(t, tr, float64(i), Vec3{}, InterpolationLinear)
	}
	if res := tr.Validate(); !res.Valid || len(res.Errors) != 0 {
		t.Fatalf("healthy track invalid: %v", res.Errors)
	}

	// Corrupt two orderings and one value directly.
	tr.times[1] = 5
	tr.times[3] = 1.5
	tr.values[0] = math.NaN()

	res := tr.Validate()
	if res.Valid {
		t.Fatal("corrupted track reported valid")
	}
	if len(res.Errors) != 3 {
		t.Errorf("got %d errors, want 3: %v", len(res.Errors), res.Errors)
	}

	tr.count = 99
	if res := tr.Validate(); res.Valid || len(res.Errors) != 1 {
		t.Errorf("count overflow: %v", res.Errors)
	}
}

func TestCloneIsIndependent(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 0, Vec3{X: 1}, InterpolationLinear)
	mustAdd(t, tr, 1, Vec3{X: 2}, InterpolationBezier)
	_ = tr.SetHandles(1, Handles{P1: Vec3{X: 3}})

	events := 0
	tr.Subscribe(func(Event) { events++ })

	c := tr.Clone()
	if c.Len() != 2 || c.Cap() != 8 {
		t.Fatalf("clone len/cap = %d/%d", c.Len(), c.Cap())
	}
	if _, err := c.Add(2, Vec3{}, InterpolationLinear); err != nil {
		t.Fatal(err)
	}
	_ = c.UpdateValue(0, Vec3{X: 100})

	if tr.Len() != 2 {
		t.Errorf("original len = %d, want 2", tr.Len())
	}
	if kf, _ := tr.At(0); kf.Value.X != 1 {
		t.Errorf("original value changed to %v", kf.Value)
	}
	if kf, _ := c.At(1); kf.Handles == nil || kf.Handles.P1.X != 3 {
		t.Errorf("clone lost handles: %+v", kf)
	}
	if events != 0 {
		t.Errorf("clone edits reached original subscribers: %d", events)
	}
}

func TestKeyframesCopy(t *testing.T) {
	tr := NewTrack(8)
	mustAdd(t, tr, 1, Vec3{X: 1}, InterpolationStep)
	mustAdd(t, tr, 0, Vec3{X: 0}, InterpolationLinear)

	kfs := tr.Keyframes()
	if len(kfs) != 2 || kfs[0].Time != 0 || kfs[1].Interpolation != InterpolationStep {
		t.Errorf("Keyframes = %+v", kfs)
	}
	if tr.Duration() != 1 {
		t.Errorf("Duration = %v, want 1", tr.Duration())
	}
}
