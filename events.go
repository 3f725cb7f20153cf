package keyframe

// Event describes one successful keyframe mutation. Type selects which of the
// kind-specific fields are meaningful. ObjectID and Property are empty for
// events observed directly on a Track that is not owned by a Store.
type Event struct {
	Type     EventType
	ObjectID string
	Property string

	// Index is the keyframe's index after the mutation settled. For
	// EventRemoved it is the index the keyframe occupied before removal.
	Index int
	Time  float64
	Value Vec3

	// EventAdded and EventUpdated
	Interpolation Interpolation

	// EventUpdated
	OldValue Vec3

	// EventMoved
	OldIndex int
	OldTime  float64
}

// EventSink receives every event relayed by a Store. Set one with
// Store.SetEventSink to forward timeline mutations into an ECS.
type EventSink interface {
	EmitEvent(event Event)
}

// --- Handler registry ---

type eventHandler struct {
	id uint32
	fn func(Event)
}

type handlerRegistry struct {
	all     []eventHandler
	added   []eventHandler
	removed []eventHandler
	updated []eventHandler
	moved   []eventHandler
	nextID  uint32
}

// allEvents marks a handle registered through Subscribe.
const allEvents EventType = 0xFF

// CallbackHandle allows removing a registered event callback.
type CallbackHandle struct {
	id    uint32
	reg   *handlerRegistry
	event EventType
}

// Remove unregisters this callback so it no longer fires.
func (h CallbackHandle) Remove() {
	if h.reg == nil {
		return
	}
	list := h.reg.list(h.event)
	if list == nil {
		return
	}
	*list = removeEventHandler(*list, h.id)
}

func removeEventHandler(s []eventHandler, id uint32) []eventHandler {
	for i := range s {
		if s[i].id == id {
			copy(s[i:], s[i+1:])
			s[len(s)-1] = eventHandler{}
			return s[:len(s)-1]
		}
	}
	return s
}

func (r *handlerRegistry) list(typ EventType) *[]eventHandler {
	switch typ {
	case allEvents:
		return &r.all
	case EventAdded:
		return &r.added
	case EventRemoved:
		return &r.removed
	case EventUpdated:
		return &r.updated
	case EventMoved:
		return &r.moved
	}
	return nil
}

func (r *handlerRegistry) register(typ EventType, fn func(Event)) CallbackHandle {
	r.nextID++
	id := r.nextID
	list := r.list(typ)
	*list = append(*list, eventHandler{id: id, fn: fn})
	return CallbackHandle{id: id, reg: r, event: typ}
}

// dispatch fires the per-kind handlers, then the catch-all handlers. The
// handler slices are snapshotted so callbacks may unregister themselves.
func (r *handlerRegistry) dispatch(e Event) {
	if kind := r.list(e.Type); kind != nil && len(*kind) > 0 {
		for _, h := range append([]eventHandler(nil), *kind...) {
			h.fn(e)
		}
	}
	if len(r.all) > 0 {
		for _, h := range append([]eventHandler(nil), r.all...) {
			h.fn(e)
		}
	}
}

func (r *handlerRegistry) empty() bool {
	return len(r.all)+len(r.added)+len(r.removed)+len(r.updated)+len(r.moved) == 0
}
