package keyframe

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// cacheMargin over-allocates the sample cache so keyframes added slightly
// past MaxTime still land inside it before the next rebuild.
const cacheMargin = 1.1

// StoreConfig controls store construction. Zero values select defaults.
type StoreConfig struct {
	// FrameRate is the sample cache resolution in frames per second.
	// Defaults to DefaultFrameRate.
	FrameRate int
	// Capacity is the keyframe capacity given to every new track.
	// Defaults to DefaultCapacity.
	Capacity int
	// Debug enables stderr logging of cache rebuilds and capacity warnings.
	Debug bool
}

type trackKey struct {
	objectID string
	property string
}

// Store owns every track of a timeline, keyed by object identifier and
// property name, together with the global frame rate, the timeline extent and
// the dense per-frame sample cache used for playback.
//
// A Store is not safe for concurrent use. Hosts that touch it from several
// goroutines must serialize access themselves.
type Store struct {
	tracks    map[string]map[string]*Track
	frameRate int
	capacity  int
	maxTime   float64
	debug     bool

	// Sample cache: 3 floats per frame per track. Rebuilt in full by
	// Precompute whenever dirty is set; never patched.
	cache       map[trackKey][]float64
	cacheFrames int
	dirty       bool

	handlers handlerRegistry
	sink     EventSink
}

// NewStore creates an empty store.
func NewStore(cfg StoreConfig) *Store {
	fr := cfg.FrameRate
	if fr <= 0 {
		fr = DefaultFrameRate
	}
	capacity := cfg.Capacity
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Store{
		tracks:    make(map[string]map[string]*Track),
		frameRate: fr,
		capacity:  capacity,
		debug:     cfg.Debug,
		dirty:     true,
	}
}

// SetDebugMode enables or disables stderr logging of cache rebuilds and
// capacity warnings.
func (s *Store) SetDebugMode(enabled bool) {
	s.debug = enabled
}

// SetEventSink sets the optional ECS bridge. Every relayed event is forwarded
// to it after the store's own subscribers run.
func (s *Store) SetEventSink(sink EventSink) {
	s.sink = sink
}

// FrameRate returns the sample cache resolution in frames per second.
func (s *Store) FrameRate() int {
	return s.frameRate
}

// SetFrameRate changes the sample cache resolution.
func (s *Store) SetFrameRate(fr int) error {
	if fr <= 0 {
		return ErrInvalidFrameRate
	}
	if fr != s.frameRate {
		s.frameRate = fr
		s.dirty = true
	}
	return nil
}

// MaxTime returns the timeline extent used to size the sample cache.
func (s *Store) MaxTime() float64 {
	return s.maxTime
}

// UpdateMaxTime raises the timeline extent to at least t. The extent never
// shrinks. Callers usually pass a time with some headroom so that sampling
// near the end stays inside the cache until the next rebuild.
func (s *Store) UpdateMaxTime(t float64) {
	if t > s.maxTime && finite(t) {
		s.maxTime = t
	}
	s.dirty = true
}

// Dirty reports whether the sample cache is stale.
func (s *Store) Dirty() bool {
	return s.dirty
}

// --- Tracks ---

// AddTrack returns the track for (objectID, property), creating it on first
// use. New tracks relay their events through the store.
func (s *Store) AddTrack(objectID, property string) *Track {
	props, ok := s.tracks[objectID]
	if !ok {
		props = make(map[string]*Track)
		s.tracks[objectID] = props
	}
	if t, ok := props[property]; ok {
		return t
	}
	t := NewTrack(s.capacity)
	s.adopt(objectID, property, t)
	return t
}

func (s *Store) adopt(objectID, property string, t *Track) {
	props, ok := s.tracks[objectID]
	if !ok {
		props = make(map[string]*Track)
		s.tracks[objectID] = props
	}
	t.owner = s
	t.objectID = objectID
	t.property = property
	props[property] = t
	s.dirty = true
}

// Track returns the track for (objectID, property).
func (s *Store) Track(objectID, property string) (*Track, error) {
	props, ok := s.tracks[objectID]
	if !ok {
		return nil, fmt.Errorf("%q: %w", objectID, ErrObjectNotFound)
	}
	t, ok := props[property]
	if !ok {
		return nil, fmt.Errorf("%s/%s: %w", objectID, property, ErrTrackNotFound)
	}
	return t, nil
}

// RemoveTrack deletes a track. Removing an object's last property removes the
// object as well. The removed track is detached and no longer relays events.
func (s *Store) RemoveTrack(objectID, property string) error {
	t, err := s.Track(objectID, property)
	if err != nil {
		return err
	}
	props := s.tracks[objectID]
	delete(props, property)
	if len(props) == 0 {
		delete(s.tracks, objectID)
	}
	t.owner = nil
	t.objectID = ""
	t.property = ""
	delete(s.cache, trackKey{objectID, property})
	s.dirty = true
	return nil
}

// Objects returns every object identifier in sorted order.
func (s *Store) Objects() []string {
	out := make([]string, 0, len(s.tracks))
	for id := range s.tracks {
		out = append(out, id)
	}
	sort.Strings(out)
	return out
}

// Properties returns the property names tracked for objectID in sorted order.
func (s *Store) Properties(objectID string) []string {
	props := s.tracks[objectID]
	out := make([]string, 0, len(props))
	for p := range props {
		out = append(out, p)
	}
	sort.Strings(out)
	return out
}

// Each calls fn for every track in (object, property) order.
func (s *Store) Each(fn func(objectID, property string, t *Track)) {
	for _, id := range s.Objects() {
		for _, p := range s.Properties(id) {
			fn(id, p, s.tracks[id][p])
		}
	}
}

// Duration returns the time of the latest keyframe across all tracks.
func (s *Store) Duration() float64 {
	var d float64
	for _, props := range s.tracks {
		for _, t := range props {
			d = math.Max(d, t.Duration())
		}
	}
	return d
}

// --- Sampling ---

// Sample evaluates a track directly, bypassing the cache.
func (s *Store) Sample(objectID, property string, time float64) (Vec3, error) {
	t, err := s.Track(objectID, property)
	if err != nil {
		return Vec3{}, err
	}
	v, _ := t.Sample(time)
	return v, nil
}

// Precompute rebuilds the sample cache if any track, the frame rate or the
// extent changed since the last rebuild. Every track gets a buffer of
// ceil(MaxTime × FrameRate × 1.1) frames (at least one), filled with the
// track's value at each frame time; empty tracks are zero-filled. The
// buffers are replaced wholesale.
func (s *Store) Precompute() {
	if !s.dirty {
		return
	}
	var t0 time.Time
	if s.debug {
		t0 = time.Now()
	}

	frames := int(math.Ceil(s.maxTime * float64(s.frameRate) * cacheMargin))
	if frames < 1 {
		frames = 1
	}
	fr := float64(s.frameRate)
	cache := make(map[trackKey][]float64, len(s.cache))
	for id, props := range s.tracks {
		for p, t := range props {
			buf := make([]float64, frames*3)
			if t.count > 0 {
				for f := 0; f < frames; f++ {
					v, _ := t.Sample(float64(f) / fr)
					buf[f*3] = v.X
					buf[f*3+1] = v.Y
					buf[f*3+2] = v.Z
				}
			}
			cache[trackKey{id, p}] = buf
			t.dirty = false
		}
	}
	s.cache = cache
	s.cacheFrames = frames
	s.dirty = false

	if s.debug {
		s.debugLog(len(cache), frames, time.Since(t0))
	}
}

// CachedFrames returns the number of frames per track in the current cache.
func (s *Store) CachedFrames() int {
	return s.cacheFrames
}

// FrameAt converts a time to a cache frame index, floor(time × FrameRate),
// clamped to the cache. A 1e-9 bias is added before flooring so exact frame
// times do not round down to the previous frame.
func (s *Store) FrameAt(time float64) int {
	x := time*float64(s.frameRate) + 1e-9
	if math.IsNaN(x) || x < 0 {
		return 0
	}
	last := math.MaxInt32
	if s.cacheFrames > 0 {
		last = s.cacheFrames - 1
	}
	if x >= float64(last) {
		return last
	}
	return int(math.Floor(x))
}

// SampleCached returns the cached value at time, rebuilding the cache first
// if it is stale. The frame index comes from FrameAt, so a time within 1e-9
// frames below a frame boundary reads the next frame.
func (s *Store) SampleCached(objectID, property string, time float64) (Vec3, error) {
	if _, err := s.Track(objectID, property); err != nil {
		return Vec3{}, err
	}
	s.Precompute()
	buf := s.cache[trackKey{objectID, property}]
	f := s.FrameAt(time) * 3
	return Vec3{buf[f], buf[f+1], buf[f+2]}, nil
}

// --- Validation ---

// Validate aggregates every track's violations, each prefixed with its
// object/property location.
func (s *Store) Validate() ValidationResult {
	var errs []string
	if s.frameRate <= 0 {
		errs = append(errs, fmt.Sprintf("frame rate %d is not positive", s.frameRate))
	}
	if !finite(s.maxTime) || s.maxTime < 0 {
		errs = append(errs, fmt.Sprintf("max time %g is invalid", s.maxTime))
	}
	s.Each(func(id, p string, t *Track) {
		for _, e := range t.Validate().Errors {
			errs = append(errs, fmt.Sprintf("%s/%s: %s", id, p, e))
		}
	})
	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}

// --- Events ---

// Subscribe registers fn for every event relayed by the store.
func (s *Store) Subscribe(fn func(Event)) CallbackHandle {
	return s.handlers.register(allEvents, fn)
}

// OnAdded registers a store-level callback for keyframe insertions.
func (s *Store) OnAdded(fn func(Event)) CallbackHandle {
	return s.handlers.register(EventAdded, fn)
}

// OnRemoved registers a store-level callback for keyframe deletions.
func (s *Store) OnRemoved(fn func(Event)) CallbackHandle {
	return s.handlers.register(EventRemoved, fn)
}

// OnUpdated registers a store-level callback for value and interpolation
// changes.
func (s *Store) OnUpdated(fn func(Event)) CallbackHandle {
	return s.handlers.register(EventUpdated, fn)
}

// OnMoved registers a store-level callback for keyframe time changes.
func (s *Store) OnMoved(fn func(Event)) CallbackHandle {
	return s.handlers.register(EventMoved, fn)
}

// relay is called by owned tracks after a successful mutation. The cache is
// marked stale before any subscriber runs, so handlers that sample see the
// new data.
func (s *Store) relay(e Event) {
	s.dirty = true
	if (e.Type == EventAdded || e.Type == EventMoved) && e.Time > s.maxTime {
		s.maxTime = e.Time
	}
	s.handlers.dispatch(e)
	if s.sink != nil {
		s.sink.EmitEvent(e)
	}
}
