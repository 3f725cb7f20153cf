package ecs

import (
	"github.com/phanxgames/keyframe"

	"github.com/yohamta/donburi"
	"github.com/yohamta/donburi/features/events"
)

// TimelineEventType is the Donburi event type for keyframe mutation events.
// Subscribe to this in your ECS systems to react to timeline edits.
var TimelineEventType = events.NewEventType[keyframe.Event]()

type donburiSink struct {
	world donburi.World
}

// NewDonburiSink creates an EventSink backed by a Donburi world. Timeline
// events are published to TimelineEventType and can be consumed with
// events.Subscribe and ProcessEvents.
func NewDonburiSink(world donburi.World) keyframe.EventSink {
	return &donburiSink{world: world}
}

func (s *donburiSink) EmitEvent(event keyframe.Event) {
	TimelineEventType.Publish(s.world, event)
}
