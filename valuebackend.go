package pubsub

import "time"

// DataValue is a timestamped value, the unit the External value backend
// swaps atomically through its `DataValue**` double indirection.
type DataValue struct {
	Value        any
	SourceTime   time.Time
	ServerTime   time.Time
	StatusCode   StatusCode
}

// ValueBackend is the polymorphic binding between a DataSetField or
// target variable and its storage. There are two variants: Internal,
// which owns a copy of the value, and External, which reads and writes
// through a caller-provided pointer for zero-copy
// RT operation.
type ValueBackend interface {
	// Read returns the current value. For External backends this reads
	// through the pointer once; it never blocks.
	Read() (*DataValue, error)

	// Write stores a new value. For External backends this swaps the
	// pointer's target and invokes UserWrite if set.
	Write(dv *DataValue) error

	// IsExternal reports whether this backend exposes memory the engine
	// may access directly - required for a field to be RT-freeze eligible
	// as a subscriber target.
	IsExternal() bool
}

// InternalBackend owns a copy of the value. Safe for any non-RT field.
type InternalBackend struct {
	value *DataValue
}

// NewInternalBackend constructs an InternalBackend holding a copy of initial.
func NewInternalBackend(initial DataValue) *InternalBackend {
	v := initial
	return &InternalBackend{value: &v}
}

func (b *InternalBackend) Read() (*DataValue, error) {
	v := *b.value
	return &v, nil
}

func (b *InternalBackend) Write(dv *DataValue) error {
	v := *dv
	b.value = &v
	return nil
}

func (b *InternalBackend) IsExternal() bool { return false }

// ExternalBackend exposes caller-owned memory through a **DataValue
// double indirection: Value points at a pointer the application may swap
// at any time; the engine dereferences it once per cycle and never holds
// it across a call. UserWrite, if set, is invoked after a subscriber
// update; NotificationRead, if set, is invoked before a publisher read.
type ExternalBackend struct {
	Value            **DataValue
	UserWrite        func(*DataValue)
	NotificationRead func()
}

// NewExternalBackend constructs an ExternalBackend over ptr, a pointer to
// the caller's DataValue pointer cell.
func NewExternalBackend(ptr **DataValue) *ExternalBackend {
	return &ExternalBackend{Value: ptr}
}

func (b *ExternalBackend) Read() (*DataValue, error) {
	if b.NotificationRead != nil {
		b.NotificationRead()
	}
	if b.Value == nil || *b.Value == nil {
		return nil, BadInvalidArgument.Wrap("external value backend has no value")
	}
	return *b.Value, nil
}

func (b *ExternalBackend) Write(dv *DataValue) error {
	if b.Value == nil {
		return BadInvalidArgument.Wrap("external value backend has no cell")
	}
	*b.Value = dv
	if b.UserWrite != nil {
		b.UserWrite(dv)
	}
	return nil
}

func (b *ExternalBackend) IsExternal() bool { return true }
