package uadp

import (
	"encoding/binary"
	"math"
)

// le is the little-endian byte order UADP uses throughout.
var le = binary.LittleEndian

func appendUint16(dst []byte, v uint16) []byte {
	var b [2]byte
	le.PutUint16(b[:], v)
	return append(dst, b[:]...)
}

func appendUint32(dst []byte, v uint32) []byte {
	var b [4]byte
	le.PutUint32(b[:], v)
	return append(dst, b[:]...)
}

func appendUint64(dst []byte, v uint64) []byte {
	var b [8]byte
	le.PutUint64(b[:], v)
	return append(dst, b[:]...)
}

// EncodeNetworkMessage appends nm's full wire encoding to dst and returns
// the result.
func EncodeNetworkMessage(dst []byte, nm *NetworkMessage) ([]byte, error) {
	dst, err := EncodeHeader(dst, nm)
	if err != nil {
		return dst, err
	}
	for i := range nm.DataSetMessages {
		dst, err = EncodeDataSetMessage(dst, &nm.DataSetMessages[i])
		if err != nil {
			return dst, err
		}
	}
	return dst, nil
}

// EncodeHeader appends nm's header (version+flags byte, optional
// publisher id, optional group header, optional payload header) to dst.
func EncodeHeader(dst []byte, nm *NetworkMessage) ([]byte, error) {
	flags := nm.headerFlags()
	dst = append(dst, (nm.Version&0x0F)|(flags&0xF0))

	if nm.HasPublisherID {
		dst = appendUint16(dst, nm.PublisherID)
	}
	if nm.HasGroupHeader {
		dst = appendUint16(dst, nm.WriterGroupID)
		dst = appendUint32(dst, nm.GroupVersion)
		dst = appendUint16(dst, nm.NetworkMessageNumber)
		dst = appendUint16(dst, nm.GroupSequenceNumber)
	}
	if nm.HasPayloadHeader {
		if len(nm.DataSetWriterIDs) != len(nm.DataSetMessages) {
			return dst, &MalformedPayload{Reason: "DataSetWriterIDs count disagrees with DataSetMessages count"}
		}
		if len(nm.DataSetWriterIDs) > 255 {
			return dst, &MalformedPayload{Reason: "more than 255 DataSetMessages"}
		}
		dst = append(dst, byte(len(nm.DataSetWriterIDs)))
		for _, id := range nm.DataSetWriterIDs {
			dst = appendUint16(dst, id)
		}
	}
	return dst, nil
}

// EncodeDataSetMessage appends dsm's wire encoding to dst.
func EncodeDataSetMessage(dst []byte, dsm *DataSetMessage) ([]byte, error) {
	dst = append(dst, dsm.flags())

	if dsm.HasSequenceNumber {
		dst = appendUint16(dst, dsm.SequenceNumber)
	}
	if dsm.HasTimestamp {
		dst = appendUint64(dst, uint64(dsm.TimestampNs))
	}
	if dsm.HasStatus {
		dst = appendUint16(dst, dsm.Status)
	}

	if dsm.Type == Keepalive {
		return dst, nil
	}

	switch dsm.Encoding {
	case EncodingVariant:
		dst = appendUint16(dst, uint16(len(dsm.Fields)))
		for i := range dsm.Fields {
			var err error
			dst, err = encodeVariantField(dst, &dsm.Fields[i])
			if err != nil {
				return dst, err
			}
		}
	case EncodingRawData:
		for i := range dsm.Fields {
			var err error
			dst, err = encodeRawField(dst, &dsm.Fields[i])
			if err != nil {
				return dst, err
			}
		}
	default:
		return dst, &MaskMismatch{Want: "unknown field encoding"}
	}
	return dst, nil
}

func encodeRawField(dst []byte, f *Field) ([]byte, error) {
	size, ok := FixedSize(f.Type)
	if !ok {
		return dst, &UnsupportedInRawEncoding{Type: f.Type}
	}
	start := len(dst)
	dst = appendScalar(dst, f)
	if len(dst)-start != size {
		return dst, &UnsupportedInRawEncoding{Type: f.Type}
	}
	return dst, nil
}

func encodeVariantField(dst []byte, f *Field) ([]byte, error) {
	if !Known(f.Type) {
		return dst, &UnknownField{Type: f.Type}
	}
	dst = append(dst, byte(f.Type))
	switch f.Type {
	case TypeString:
		s, _ := f.Value.(string)
		dst = appendUint32(dst, uint32(len(s)))
		dst = append(dst, s...)
	case TypeByteString:
		b, _ := f.Value.([]byte)
		dst = appendUint32(dst, uint32(len(b)))
		dst = append(dst, b...)
	default:
		dst = appendScalar(dst, f)
	}
	return dst, nil
}

// appendScalar appends the fixed-width wire form of a non-string,
// non-bytestring field. Callers must already know f.Type is one of the
// scalar kinds.
func appendScalar(dst []byte, f *Field) []byte {
	switch f.Type {
	case TypeBoolean:
		v, _ := f.Value.(bool)
		if v {
			return append(dst, 1)
		}
		return append(dst, 0)
	case TypeSByte:
		v, _ := f.Value.(int8)
		return append(dst, byte(v))
	case TypeByte:
		v, _ := f.Value.(byte)
		return append(dst, v)
	case TypeInt16:
		v, _ := f.Value.(int16)
		return appendUint16(dst, uint16(v))
	case TypeUInt16:
		v, _ := f.Value.(uint16)
		return appendUint16(dst, v)
	case TypeInt32:
		v, _ := f.Value.(int32)
		return appendUint32(dst, uint32(v))
	case TypeUInt32:
		v, _ := f.Value.(uint32)
		return appendUint32(dst, v)
	case TypeInt64:
		v, _ := f.Value.(int64)
		return appendUint64(dst, uint64(v))
	case TypeUInt64:
		v, _ := f.Value.(uint64)
		return appendUint64(dst, v)
	case TypeFloat:
		v, _ := f.Value.(float32)
		return appendUint32(dst, math.Float32bits(v))
	case TypeDouble:
		v, _ := f.Value.(float64)
		return appendUint64(dst, math.Float64bits(v))
	case TypeGuid:
		v, _ := f.Value.([16]byte)
		return append(dst, v[:]...)
	case TypeDateTime:
		v, _ := f.Value.(int64)
		return appendUint64(dst, uint64(v))
	default:
		return dst
	}
}
