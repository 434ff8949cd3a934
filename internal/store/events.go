package store

// EventType names a committed change.
type EventType string

const (
	EventGalleryAdded   EventType = "gallery.added"
	EventGalleryUpdated EventType = "gallery.updated"
	EventGalleryDeleted EventType = "gallery.deleted"
	EventHashesUpdated  EventType = "hashes.updated"
	EventListChanged    EventType = "list.changed"
)

// Event is emitted after the change it describes is committed.
type Event struct {
	Type      EventType
	GalleryID int64
	ListID    int64
}

// EventEmitter is the interface for observing store changes.
// Store uses this to notify listeners without depending on them.
type EventEmitter interface {
	Emit(event Event)
}

// NoopEmitter is a no-op implementation of EventEmitter.
type NoopEmitter struct{}

// Emit implements EventEmitter.Emit as a no-op.
func (NoopEmitter) Emit(Event) {}

// NewNoopEmitter creates a new no-op emitter.
func NewNoopEmitter() EventEmitter {
	return NoopEmitter{}
}

// EmitterFunc adapts a function to EventEmitter.
type EmitterFunc func(Event)

// Emit calls f.
func (f EmitterFunc) Emit(e Event) { f(e) }
