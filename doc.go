// Package keyframe is the timeline data engine behind a scene animation
// editor.
//
// It stores keyframes per (object, property) track, resolves a value at any
// time by interpolation, keeps a dense per-frame sample cache for playback,
// and notifies observers of every mutation. It renders nothing and reads no
// input; a UI layer edits tracks through the mutation API and rebuilds its
// markers from events, and a playback loop reads cached samples.
//
// # Quick start
//
//	store := keyframe.NewStore(keyframe.StoreConfig{FrameRate: 60})
//	track := store.AddTrack("cube", "position")
//	track.Add(0, keyframe.Vec3{}, keyframe.InterpolationLinear)
//	track.Add(2, keyframe.Vec3{X: 10}, keyframe.InterpolationLinear)
//
//	v, _ := store.SampleCached("cube", "position", 1) // (5, 0, 0)
//
// # Tracks
//
// A [Track] holds up to a fixed number of keyframes ([DefaultCapacity] by
// default) in preallocated arrays. Keyframe times are unique within
// [TimeEpsilon] and always sorted. Indices shift on every insert, removal or
// move, so resolve keyframes by time with [Track.FindIndex] after each edit.
//
// Each keyframe's [Interpolation] shapes the segment that starts at it:
// linear, step, or a cubic Bézier through explicit [Handles]. Handles can be
// fitted to any [gween] easing curve with [Track.SetEase].
//
// # Sample cache
//
// [Store.Precompute] evaluates every track at every frame of the timeline
// and [Store.SampleCached] reads from that buffer in constant time. Any
// mutation marks the store dirty and the next cached read rebuilds the cache
// in full.
//
// # Events
//
// Tracks and the store expose Subscribe plus OnAdded, OnRemoved, OnUpdated and
// OnMoved. Store-level events carry the object and property that emitted
// them. An [EventSink] forwards them to an ECS; see the ecs module for a
// [Donburi] adapter.
//
// # Persistence and playback
//
// [Store.ToPortable] and [FromPortable] convert to and from the durable
// layout, which [Store.SaveFile] and [LoadFile] write as JSON, YAML or TOML.
// [Watcher] reports edits to timeline files for hot reloading. [Player]
// advances a playhead at the Ebitengine tick rate and applies samples to any
// scene that implements [SceneGraph].
//
// [gween]: https://github.com/tanema/gween
// [Donburi]: https://github.com/yohamta/donburi
package keyframe
