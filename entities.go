package pubsub

import (
	"time"

	"github.com/uapubsub/pubsub/internal/uadp"
	"github.com/uapubsub/pubsub/transport"
)

// RTLevel selects whether a WriterGroup or ReaderGroup runs the fixed-
// offset realtime pipeline or the general non-RT pipeline.
type RTLevel uint8

const (
	RTLevelNone     RTLevel = 0
	RTLevelFixedSize RTLevel = 1
)

// NodeRef identifies an address-space node a DataSetField or target
// variable reads from or writes to through the normal attribute path
// rather than a static value source. The address-space itself is out of
// scope; only the identifier is carried here.
type NodeRef struct {
	NodeID      string
	AttributeID uint32
}

// DataSetFieldConfig describes one field of a PublishedDataSet. A field
// is either node-backed (NodeID set, Backend nil) or static (NodeID
// empty, Backend set - read directly through the value backend). No
// attribute-path reader is bound in this module, so a publish tick that
// reaches a node-backed field with no Backend fails with
// BadConfigurationError. Only static fields are
// eligible for RT fixed-size freezing (spec data-model invariant: "for RT
// fixed-size mode the value source must be static").
type DataSetFieldConfig struct {
	Alias       string
	AttributeID uint32
	BuiltInType uadp.BuiltInType
	NodeID      string
	Backend     ValueBackend
}

func (c DataSetFieldConfig) isStatic() bool {
	return c.NodeID == "" && c.Backend != nil
}

// DataSetField is the stored, immutable-once-frozen form of a
// DataSetFieldConfig.
type DataSetField struct {
	Alias       string
	AttributeID uint32
	BuiltInType uadp.BuiltInType
	NodeID      string
	Backend     ValueBackend
}

func (f DataSetField) isStatic() bool {
	return f.NodeID == "" && f.Backend != nil
}

// PublishedDataSetConfig names an ordered field schema.
type PublishedDataSetConfig struct {
	Name   string
	Fields []DataSetFieldConfig
}

// PublishedDataSet is a named ordered sequence of DataSetFields. It
// becomes immutable (AddDataSetField returns BadConfigurationLocked) once
// referenced by a frozen WriterGroup.
type PublishedDataSet struct {
	id     ID
	name   string
	fields []DataSetField

	// referencingWriters tracks which DataSetWriters reference this PDS,
	// so the store can refuse removal while referenced and can find the
	// writer groups that lock it once frozen.
	referencingWriters map[ID]struct{}
}

// DataSetWriterConfig binds a PublishedDataSet to a WriterGroup.
type DataSetWriterConfig struct {
	DataSetWriterID uint16
	PublishedDataSetID ID
	Encoding        uadp.FieldEncoding
	Enabled         bool

	// SamplingInterval, if nonzero, is shorter than the owning
	// WriterGroup's PublishingInterval: an external Scheduler is expected
	// to call DataSetWriter.Sample() at this cadence between publish
	// ticks (non-RT only; see Scheduler).
	SamplingInterval time.Duration
}

// DataSetWriter is one-to-one with a PublishedDataSet at publish time.
type DataSetWriter struct {
	id      ID
	groupID ID
	config  DataSetWriterConfig
	pds     *PublishedDataSet

	seq     uint16 // per-writer sequence number, independent of the group's
	sampled []Field // latest sampled values, if SamplingInterval is in use
}

// Field is a single published value paired with its built-in type,
// mirroring uadp.Field but decoupled from the codec package so the
// publisher pipeline can build it before choosing an encoding.
type Field = uadp.Field

// Enabled reports whether this writer participates in publish ticks.
func (w *DataSetWriter) Enabled() bool { return w.config.Enabled }

// WriterGroupConfig groups DataSetWriters under one publishing cadence.
type WriterGroupConfig struct {
	WriterGroupID      uint16
	PublishingInterval time.Duration
	RTLevel            RTLevel

	// HasGroupHeader / HasPayloadHeader select which optional NetworkMessage
	// sections this group's messages carry (the content mask).
	HasGroupHeader   bool
	HasPayloadHeader bool
}

// WriterGroup groups one or more DataSetWriters under a publishing
// interval, id, and RT level. Once frozen it owns a reusable send buffer
// and offset table.
type WriterGroup struct {
	id           ID
	connectionID ID
	config       WriterGroupConfig
	writers      []*DataSetWriter // registration order; DSM order follows this

	groupVersion uint32
	msgNumber    uint16
	groupSeq     uint16

	frozen  bool
	buf     []byte
	offsets uadp.OffsetTable
	// rtWriters is the enabled-writer order captured at freeze time,
	// parallel to offsets' DSMIndex - publish ticks read through these
	// writers' field backends without re-walking group.writers.
	rtWriters []*DataSetWriter
}

// Frozen reports whether the group is currently RT-frozen.
func (g *WriterGroup) Frozen() bool { return g.frozen }

// TargetVariableConfig binds one field index of an incoming DataSetMessage
// to a storage location.
type TargetVariableConfig struct {
	FieldIndex int
	NodeID     string
	Backend    ValueBackend
}

// TargetVariable is the stored form of a TargetVariableConfig.
type TargetVariable struct {
	FieldIndex int
	NodeID     string
	Backend    ValueBackend
}

func (t TargetVariable) isExternal() bool {
	return t.Backend != nil && t.Backend.IsExternal()
}

// DataSetReaderConfig is a matcher+decoder: key (PublisherID, WriterGroupID,
// DataSetWriterID) plus the expected field schema and where each field's
// value is written.
type DataSetReaderConfig struct {
	PublisherID     uint16
	WriterGroupID   uint16
	DataSetWriterID uint16
	MetaData        DataSetMetaData
	Targets         []TargetVariableConfig
}

// DataSetReader is the stored form of a DataSetReaderConfig.
type DataSetReader struct {
	id      ID
	groupID ID
	config  DataSetReaderConfig
	targets []TargetVariable

	dropCount uint64
}

// matches reports whether (publisherID, writerGroupID, dataSetWriterID)
// identifies the DataSetMessages this reader accepts.
func (r *DataSetReader) matches(publisherID, writerGroupID, dataSetWriterID uint16) bool {
	return r.config.PublisherID == publisherID &&
		r.config.WriterGroupID == writerGroupID &&
		r.config.DataSetWriterID == dataSetWriterID
}

// ReaderGroupConfig groups DataSetReaders under one RT level.
type ReaderGroupConfig struct {
	RTLevel RTLevel
}

// ReaderGroup groups DataSetReaders. Once frozen it owns an offset table
// used for the RT fast path.
type ReaderGroup struct {
	id           ID
	connectionID ID
	config       ReaderGroupConfig
	readers      []*DataSetReader

	frozen      bool
	templateLen int
	offsets     uadp.OffsetTable
	// expected records the frozen reader's match key. Dispatch takes the
	// fast path only for a DataSetMessage whose header triple matched that
	// reader; the check goes through the reader's match key, and this copy
	// is not read back.
	expected struct {
		publisherID, writerGroupID, dataSetWriterID uint16
	}
}

// Frozen reports whether the group is currently RT-frozen.
func (g *ReaderGroup) Frozen() bool { return g.frozen }

// ConnectionConfig binds a transport profile URI to a publisher id and a
// concrete, already-constructed channel. The Store opens the channel on
// AddConnection and closes it on RemoveConnection.
type ConnectionConfig struct {
	ProfileURL  string
	PublisherID uint16
	Channel     transport.Channel
}

// Connection owns zero or more WriterGroups and ReaderGroups and the
// transport channel they send and receive through.
type Connection struct {
	id          ID
	profileURL  transport.ProfileURL
	publisherID uint16
	channel     transport.Channel

	writerGroups map[ID]*WriterGroup
	readerGroups map[ID]*ReaderGroup

	// readerOrder is every DataSetReader owned transitively by this
	// connection, in registration order - the order Dispatch walks when
	// matching an incoming DataSetMessage, so "first added wins" is well
	// defined across reader groups, not just within one.
	readerOrder []ID
}

// Scheduler is the external collaborator that invokes a DataSetWriter's
// Sample method between publish ticks when a SamplingInterval shorter
// than the owning WriterGroup's PublishingInterval is configured. It is
// out of scope for this module - named here only so DataSetWriterConfig's
// SamplingInterval has a documented consumer.
type Scheduler interface {
	Every(d time.Duration, fn func())
}
