package pubsub

import "github.com/google/uuid"

// ID identifies a PubSub entity (Connection, WriterGroup, DataSetWriter,
// PublishedDataSet, ReaderGroup, DataSetReader) uniquely within a
// process. Entities are addressed by ID, never by pointer, once
// registered with a Store.
type ID uuid.UUID

// NewID generates a fresh random ID.
func NewID() ID {
	return ID(uuid.New())
}

func (id ID) String() string {
	return uuid.UUID(id).String()
}

// IsZero reports whether id is the zero value (never returned by NewID).
func (id ID) IsZero() bool {
	return id == ID{}
}
