// Package ecs provides ECS adapters for keyframe timeline events.
//
// The primary adapter is [NewDonburiSink], which forwards every mutation
// relayed by a [keyframe.Store] into a [Donburi] world as a typed event.
// Subscribe to [TimelineEventType] in your ECS systems to receive them.
//
// Usage:
//
//	store.SetEventSink(ecs.NewDonburiSink(world))
//
// [Donburi]: https://github.com/yohamta/donburi
package ecs
