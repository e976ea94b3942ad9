// Package uadp implements the UADP (UA Datagram Protocol) wire codec used
// by the PubSub data plane: encoding and decoding of NetworkMessages and
// DataSetMessages to and from little-endian byte buffers, plus the
// offset-computation pass the RT freeze engine uses to turn an encoded
// message into a set of in-place patch sites.
//
// The encoding follows the same discipline as other wire codecs in this
// module's lineage (fixed headers gated by a content-mask bitset,
// append-style builders, bounds-checked decoders) but is little-endian
// throughout and has no varint: every UADP field is a fixed-width
// integer, matching the OPC UA PubSub binary encoding.
package uadp

import "fmt"

// BuiltInType identifies the wire type of a DataSetField value. The
// numbering matches the OPC UA BuiltInType enumeration for the subset of
// types this codec supports.
type BuiltInType uint32

const (
	TypeBoolean    BuiltInType = 1
	TypeSByte      BuiltInType = 2
	TypeByte       BuiltInType = 3
	TypeInt16      BuiltInType = 4
	TypeUInt16     BuiltInType = 5
	TypeInt32      BuiltInType = 6
	TypeUInt32     BuiltInType = 7
	TypeInt64      BuiltInType = 8
	TypeUInt64     BuiltInType = 9
	TypeFloat      BuiltInType = 10
	TypeDouble     BuiltInType = 11
	TypeString     BuiltInType = 12
	TypeDateTime   BuiltInType = 13
	TypeGuid       BuiltInType = 14
	TypeByteString BuiltInType = 15
)

// fixedSize maps a BuiltInType to its on-wire width in raw-data encoding.
// Types absent from this table are variable-length (String, ByteString)
// or explicitly excluded from raw encoding: RT groups reject DateTime
// fields even though DateTime is itself a fixed 8 bytes on the wire -
// the RT freeze path checks this table, not wire width, to decide
// eligibility.
var fixedSize = map[BuiltInType]int{
	TypeBoolean: 1,
	TypeSByte:   1,
	TypeByte:    1,
	TypeInt16:   2,
	TypeUInt16:  2,
	TypeInt32:   4,
	TypeUInt32:  4,
	TypeInt64:   8,
	TypeUInt64:  8,
	TypeFloat:   4,
	TypeDouble:  8,
	TypeGuid:    16,
}

// FixedSize returns the raw-encoding width of t and whether t is eligible
// for raw (and therefore RT) encoding at all.
func FixedSize(t BuiltInType) (int, bool) {
	n, ok := fixedSize[t]
	return n, ok
}

// Known reports whether t is a type this codec can encode in any mode.
func Known(t BuiltInType) bool {
	switch t {
	case TypeBoolean, TypeSByte, TypeByte, TypeInt16, TypeUInt16, TypeInt32,
		TypeUInt32, TypeInt64, TypeUInt64, TypeFloat, TypeDouble, TypeString,
		TypeDateTime, TypeGuid, TypeByteString:
		return true
	default:
		return false
	}
}

// MessageType is the DataSetMessage payload kind.
type MessageType uint8

const (
	Keyframe   MessageType = 0
	Deltaframe MessageType = 1
	Event      MessageType = 2
	Keepalive  MessageType = 3
)

// FieldEncoding selects how a DataSetMessage's fields are written.
type FieldEncoding uint8

const (
	// EncodingVariant writes each field as a type tag plus a
	// length-prefixed (for variable-width types) value. Supports any
	// Known type.
	EncodingVariant FieldEncoding = 0

	// EncodingRawData writes concatenated fixed-width values with no
	// tags, counts, or length prefixes - the layout a DataSetReader's
	// DataSetMetaData must already describe. The only encoding eligible
	// for RT freezing.
	EncodingRawData FieldEncoding = 1
)

// NetworkMessage header content-mask bits. Evaluated MSB-first:
// PublisherID, then GroupHeader, then PayloadHeader.
const (
	FlagPublisherID   uint8 = 1 << 7
	FlagGroupHeader   uint8 = 1 << 6
	FlagPayloadHeader uint8 = 1 << 5

	knownHeaderFlags = FlagPublisherID | FlagGroupHeader | FlagPayloadHeader
)

// DataSetMessage flags byte layout.
const (
	dsmFlagSequenceNumber uint8 = 1 << 7
	dsmFlagTimestamp      uint8 = 1 << 6
	dsmFlagStatus         uint8 = 1 << 5
	dsmFlagEncodingRaw    uint8 = 1 << 4
	dsmMessageTypeMask    uint8 = 0x03

	knownDSMFlags = dsmFlagSequenceNumber | dsmFlagTimestamp | dsmFlagStatus | dsmFlagEncodingRaw | dsmMessageTypeMask
)

// Error kinds returned by Decode. Use errors.As to recover the kind and
// offset of a decode failure.

// DecodingError reports a buffer too short to hold the field being
// decoded at Offset.
type DecodingError struct {
	Offset int
	Reason string
}

func (e *DecodingError) Error() string {
	return fmt.Sprintf("uadp: decoding error at offset %d: %s", e.Offset, e.Reason)
}

// UnknownField reports an unrecognized BuiltInType encountered on decode.
type UnknownField struct {
	Offset int
	Type   BuiltInType
}

func (e *UnknownField) Error() string {
	return fmt.Sprintf("uadp: unknown field type %d at offset %d", e.Type, e.Offset)
}

// MaskMismatch reports an encode request the content mask cannot express:
// a DataSetMessage with an unknown field encoding. A buffer that ends
// before a field its mask announces is reported as DecodingError, and
// unknown header flag bits are ignored on decode.
type MaskMismatch struct {
	Mask uint8
	Want string
}

func (e *MaskMismatch) Error() string {
	return fmt.Sprintf("uadp: mask mismatch (mask=0x%02X): %s", e.Mask, e.Want)
}

// UnsupportedInRawEncoding reports a raw-data encode/freeze attempt on a
// field whose type has no fixed wire width.
type UnsupportedInRawEncoding struct {
	Type BuiltInType
}

func (e *UnsupportedInRawEncoding) Error() string {
	return fmt.Sprintf("uadp: type %d unsupported in raw-data encoding", e.Type)
}

// MalformedPayload reports a payload header whose DataSetWriterId count
// disagrees with the number of DataSetMessages present.
type MalformedPayload struct {
	Reason string
}

func (e *MalformedPayload) Error() string {
	return fmt.Sprintf("uadp: malformed payload: %s", e.Reason)
}
