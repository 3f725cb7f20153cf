package keyframe

import (
	"math"

	"github.com/hajimehoshi/ebiten/v2"
	"github.com/tanema/gween"
	"github.com/tanema/gween/ease"
)

// Transformable is the narrow contract a scene object must satisfy for
// playback to drive it. The engine never depends on the scene graph's own
// types.
type Transformable interface {
	Position() Vec3
	SetPosition(v Vec3)
	Rotation() Vec3
	SetRotation(v Vec3)
	Scale() Vec3
	SetScale(v Vec3)
}

// SceneGraph resolves object identifiers to scene objects.
type SceneGraph interface {
	Object(id string) (Transformable, bool)
}

// ApplyValue writes v to the field of obj selected by prop.
func ApplyValue(obj Transformable, prop Property, v Vec3) {
	switch prop {
	case PropertyPosition:
		obj.SetPosition(v)
	case PropertyRotation:
		obj.SetRotation(v)
	case PropertyScale:
		obj.SetScale(v)
	}
}

// ReadValue returns the field of obj selected by prop.
func ReadValue(obj Transformable, prop Property) Vec3 {
	switch prop {
	case PropertyPosition:
		return obj.Position()
	case PropertyRotation:
		return obj.Rotation()
	case PropertyScale:
		return obj.Scale()
	}
	return Vec3{}
}

// Player moves a playhead over a Store and writes cached samples to a scene.
// Like the rest of the engine it is single-threaded: call Update from the
// game loop and Apply once per frame.
type Player struct {
	store   *Store
	time    float64
	playing bool

	// Loop wraps the playhead to zero at the end of the timeline instead of
	// stopping there.
	Loop bool
	// Speed scales elapsed time. Zero is treated as 1.
	Speed float64

	seek *gween.Tween
}

// NewPlayer creates a paused player at time zero.
func NewPlayer(store *Store) *Player {
	return &Player{store: store, Speed: 1}
}

// Store returns the store being played.
func (p *Player) Store() *Store {
	return p.store
}

// Time returns the playhead position in seconds.
func (p *Player) Time() float64 {
	return p.time
}

// Frame returns the cache frame under the playhead.
func (p *Player) Frame() int {
	return p.store.FrameAt(p.time)
}

// Playing reports whether the playhead advances on Update.
func (p *Player) Playing() bool {
	return p.playing
}

// Play starts advancing the playhead.
func (p *Player) Play() {
	p.playing = true
}

// Pause stops advancing the playhead.
func (p *Player) Pause() {
	p.playing = false
}

// Seeking reports whether a SeekTween is in progress.
func (p *Player) Seeking() bool {
	return p.seek != nil
}

// Seek jumps the playhead to t, clamped to [0, Duration]. Any running
// SeekTween is cancelled.
func (p *Player) Seek(t float64) {
	p.seek = nil
	p.time = p.clamp(t)
}

// SeekTween animates the playhead to t over duration seconds using fn.
// Regular playback is suspended until the tween finishes.
func (p *Player) SeekTween(t float64, duration float32, fn ease.TweenFunc) {
	if fn == nil {
		fn = ease.Linear
	}
	target := p.clamp(t)
	if duration <= 0 {
		p.Seek(target)
		return
	}
	p.seek = gween.New(float32(p.time), float32(target), duration, fn)
}

// Update advances the player by one tick at the game's TPS.
func (p *Player) Update() {
	p.Advance(1.0 / float64(ebiten.TPS()))
}

// Advance moves the playhead by dt seconds of wall time.
func (p *Player) Advance(dt float64) {
	if p.seek != nil {
		v, done := p.seek.Update(float32(dt))
		p.time = p.clamp(float64(v))
		if done {
			p.seek = nil
		}
		return
	}
	if !p.playing || dt <= 0 {
		return
	}
	speed := p.Speed
	if speed == 0 {
		speed = 1
	}
	end := p.store.Duration()
	p.time += dt * speed
	switch {
	case end <= 0:
		p.time = 0
	case p.time >= end && p.Loop:
		p.time = math.Mod(p.time, end)
	case p.time >= end:
		p.time = end
		p.playing = false
	case p.time < 0 && p.Loop:
		p.time = end + math.Mod(p.time, end)
	case p.time < 0:
		p.time = 0
		p.playing = false
	}
}

// Apply writes the cached value under the playhead to every scene object
// with a position, rotation or scale track. Objects missing from the scene
// and other property names are skipped. It returns the number of values
// written.
func (p *Player) Apply(scene SceneGraph) int {
	p.store.Precompute()
	n := 0
	p.store.Each(func(id, name string, _ *Track) {
		prop, ok := ParseProperty(name)
		if !ok {
			return
		}
		obj, ok := scene.Object(id)
		if !ok {
			return
		}
		v, err := p.store.SampleCached(id, name, p.time)
		if err != nil {
			return
		}
		ApplyValue(obj, prop, v)
		n++
	})
	return n
}

func (p *Player) clamp(t float64) float64 {
	if math.IsNaN(t) || t < 0 {
		return 0
	}
	if end := p.store.Duration(); t > end {
		return end
	}
	return t
}
