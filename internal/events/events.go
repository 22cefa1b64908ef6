// Package events implements the refresh-states event store: a bounded,
// counter-stamped queue of device events that clients poll with a last-seen
// counter, plus an optional push hook for the WebSocket hub.
package events

import (
	"sync"
	"time"

	"github.com/jangabrielsson/plua2/internal/codec"
)

// maxEvents bounds the queue; older events are dropped once exceeded.
const maxEvents = 1000

type entry struct {
	last  int64
	event *codec.Map
}

// Store is the refresh-states event queue. All methods are safe for
// concurrent use.
type Store struct {
	mu      sync.Mutex
	events  []entry
	counter int64
	notify  func(event *codec.Map)
}

// NewStore creates an empty event store.
func NewStore() *Store {
	return &Store{}
}

// SetNotify registers a hook invoked synchronously for every added event,
// used to push events out over WebSocket as they happen.
func (s *Store) SetNotify(fn func(event *codec.Map)) {
	s.mu.Lock()
	s.notify = fn
	s.mu.Unlock()
}

// Add stamps the event with the next counter value and appends it,
// dropping the oldest entry if the queue is full. It returns the assigned
// counter.
func (s *Store) Add(event *codec.Map) int64 {
	s.mu.Lock()
	s.counter++
	s.events = append(s.events, entry{last: s.counter, event: event})
	if len(s.events) > maxEvents {
		s.events = s.events[1:]
	}
	counter := s.counter
	notify := s.notify
	s.mu.Unlock()

	if notify != nil {
		notify(event)
	}
	return counter
}

// Get returns the poll envelope holding every event newer than since and
// the current counter for the next poll.
func (s *Store) Get(since int64) *codec.Map {
	s.mu.Lock()
	evs := codec.NewArray()
	for _, e := range s.events {
		if e.last > since {
			evs.Append(e.event)
		}
	}
	last := s.counter
	s.mu.Unlock()

	now := time.Now()
	out := codec.NewMap()
	out.Set("status", codec.String("IDLE"))
	out.Set("events", evs)
	out.Set("changes", codec.NewArray())
	out.Set("timestamp", codec.Number(now.Unix()))
	out.Set("date", codec.String(now.Format("15:04 | 02.01.2006")))
	out.Set("last", codec.Number(last))
	return out
}

// Last returns the current counter value.
func (s *Store) Last() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.counter
}

// DevicePropertyUpdated builds the event emitted when a device property
// changes.
func DevicePropertyUpdated(deviceID int, property string, value codec.Value) *codec.Map {
	data := codec.NewMap()
	data.Set("id", codec.Number(deviceID))
	data.Set("property", codec.String(property))
	data.Set("newValue", value)

	ev := codec.NewMap()
	ev.Set("type", codec.String("DevicePropertyUpdatedEvent"))
	ev.Set("data", data)
	return ev
}

// DeviceCreated builds the event emitted when a device is registered.
func DeviceCreated(deviceID int, deviceType string) *codec.Map {
	data := codec.NewMap()
	data.Set("id", codec.Number(deviceID))
	data.Set("type", codec.String(deviceType))

	ev := codec.NewMap()
	ev.Set("type", codec.String("DeviceCreatedEvent"))
	ev.Set("data", data)
	return ev
}

// DeviceAction builds the event emitted when an action call arrives for a
// device, carrying the action name and its arguments.
func DeviceAction(deviceID int, action string, args *codec.Array) *codec.Map {
	if args == nil {
		args = codec.NewArray()
	}
	data := codec.NewMap()
	data.Set("id", codec.Number(deviceID))
	data.Set("actionName", codec.String(action))
	data.Set("args", args)

	ev := codec.NewMap()
	ev.Set("type", codec.String("onAction"))
	ev.Set("data", data)
	return ev
}

// UIEvent builds the event emitted when a view element fires, carrying
// the element, the event type and the script method it resolved to.
func UIEvent(deviceID int, element, eventType, method string, value codec.Value) *codec.Map {
	data := codec.NewMap()
	data.Set("deviceId", codec.Number(deviceID))
	data.Set("elementName", codec.String(element))
	data.Set("eventType", codec.String(eventType))
	data.Set("method", codec.String(method))
	if value != nil {
		data.Set("value", value)
	}

	ev := codec.NewMap()
	ev.Set("type", codec.String("onUIEvent"))
	ev.Set("data", data)
	return ev
}
