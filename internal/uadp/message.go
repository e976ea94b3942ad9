package uadp

// Field is one published or received value inside a DataSetMessage.
// Value holds the Go representation appropriate to Type: bool, int8,
// byte, int16, uint16, int32, uint32, int64, uint64, float32, float64,
// string, []byte (ByteString), [16]byte (Guid), or int64 (DateTime, as
// nanoseconds since Unix epoch).
type Field struct {
	Type  BuiltInType
	Value any
}

// DataSetMessage is the in-memory form of one DSM: a keyframe, deltaframe,
// event, or keepalive, with its own sequence number independent of the
// NetworkMessage's group-level sequence number.
type DataSetMessage struct {
	Type     MessageType
	Encoding FieldEncoding

	HasSequenceNumber bool
	SequenceNumber    uint16

	HasTimestamp bool
	TimestampNs  int64

	HasStatus bool
	Status    uint16

	Fields []Field
}

// NetworkMessage is the in-memory form of one UADP wire packet.
type NetworkMessage struct {
	Version uint8 // low 4 bits of the header byte

	HasPublisherID bool
	PublisherID    uint16

	HasGroupHeader        bool
	WriterGroupID         uint16
	GroupVersion          uint32
	NetworkMessageNumber  uint16
	GroupSequenceNumber   uint16

	HasPayloadHeader bool
	DataSetWriterIDs []uint16

	DataSetMessages []DataSetMessage
}

// headerFlags computes the content-mask byte for nm's header section.
func (nm *NetworkMessage) headerFlags() uint8 {
	var f uint8
	if nm.HasPublisherID {
		f |= FlagPublisherID
	}
	if nm.HasGroupHeader {
		f |= FlagGroupHeader
	}
	if nm.HasPayloadHeader {
		f |= FlagPayloadHeader
	}
	return f
}

func (dsm *DataSetMessage) flags() uint8 {
	var f uint8
	if dsm.HasSequenceNumber {
		f |= dsmFlagSequenceNumber
	}
	if dsm.HasTimestamp {
		f |= dsmFlagTimestamp
	}
	if dsm.HasStatus {
		f |= dsmFlagStatus
	}
	if dsm.Encoding == EncodingRawData {
		f |= dsmFlagEncodingRaw
	}
	f |= uint8(dsm.Type) & dsmMessageTypeMask
	return f
}
