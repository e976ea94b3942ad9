package uadp

import "math"

// DecodeNetworkMessage decodes a complete NetworkMessage from buf,
// including all DataSetMessages in its payload. For raw-data DSMs, the
// caller must supply layouts describing the expected fields per
// DataSetWriterId — raw encoding carries no per-field type information
// on the wire by design. layouts may be nil when every DSM in buf uses
// variant encoding.
func DecodeNetworkMessage(buf []byte, layouts map[uint16][]BuiltInType) (*NetworkMessage, int, error) {
	nm := &NetworkMessage{}
	pos, err := DecodeHeader(buf, nm)
	if err != nil {
		return nil, pos, err
	}

	count := 1
	if nm.HasPayloadHeader {
		count = len(nm.DataSetWriterIDs)
	}
	nm.DataSetMessages = make([]DataSetMessage, 0, count)
	for i := 0; i < count; i++ {
		var layout []BuiltInType
		if nm.HasPayloadHeader && layouts != nil {
			layout = layouts[nm.DataSetWriterIDs[i]]
		}
		dsm, n, err := DecodeDataSetMessage(buf[pos:], layout)
		if err != nil {
			return nil, pos, err
		}
		nm.DataSetMessages = append(nm.DataSetMessages, *dsm)
		pos += n
	}
	return nm, pos, nil
}

// DecodeHeader decodes the header section of buf into nm and returns the
// number of bytes consumed.
func DecodeHeader(buf []byte, nm *NetworkMessage) (int, error) {
	if len(buf) < 1 {
		return 0, &DecodingError{Offset: 0, Reason: "buffer too short for header byte"}
	}
	b := buf[0]
	nm.Version = b & 0x0F
	// Unknown flag bits are ignored; only the known ones select sections.
	flags := b & knownHeaderFlags
	nm.HasPublisherID = flags&FlagPublisherID != 0
	nm.HasGroupHeader = flags&FlagGroupHeader != 0
	nm.HasPayloadHeader = flags&FlagPayloadHeader != 0

	pos := 1
	if nm.HasPublisherID {
		v, n, err := readUint16(buf, pos)
		if err != nil {
			return pos, err
		}
		nm.PublisherID = v
		pos += n
	}
	if nm.HasGroupHeader {
		v, n, err := readUint16(buf, pos)
		if err != nil {
			return pos, err
		}
		nm.WriterGroupID = v
		pos += n

		v32, n, err := readUint32(buf, pos)
		if err != nil {
			return pos, err
		}
		nm.GroupVersion = v32
		pos += n

		v, n, err = readUint16(buf, pos)
		if err != nil {
			return pos, err
		}
		nm.NetworkMessageNumber = v
		pos += n

		v, n, err = readUint16(buf, pos)
		if err != nil {
			return pos, err
		}
		nm.GroupSequenceNumber = v
		pos += n
	}
	if nm.HasPayloadHeader {
		if pos >= len(buf) {
			return pos, &DecodingError{Offset: pos, Reason: "buffer too short for payload header count"}
		}
		count := int(buf[pos])
		pos++
		if pos+2*count > len(buf) {
			return pos, &DecodingError{Offset: pos, Reason: "buffer too short for payload header writer ids"}
		}
		nm.DataSetWriterIDs = make([]uint16, count)
		for i := 0; i < count; i++ {
			nm.DataSetWriterIDs[i] = le.Uint16(buf[pos : pos+2])
			pos += 2
		}
	}
	return pos, nil
}

// DecodeDataSetMessage decodes one DSM from buf and returns it with the
// number of bytes consumed. layout is required when the DSM turns out to
// be raw-encoded; it is ignored for variant-encoded DSMs.
func DecodeDataSetMessage(buf []byte, layout []BuiltInType) (*DataSetMessage, int, error) {
	if len(buf) < 1 {
		return nil, 0, &DecodingError{Offset: 0, Reason: "buffer too short for DSM flags byte"}
	}
	flags := buf[0]
	dsm := &DataSetMessage{
		Type:              MessageType(flags & dsmMessageTypeMask),
		HasSequenceNumber: flags&dsmFlagSequenceNumber != 0,
		HasTimestamp:      flags&dsmFlagTimestamp != 0,
		HasStatus:         flags&dsmFlagStatus != 0,
	}
	if flags&dsmFlagEncodingRaw != 0 {
		dsm.Encoding = EncodingRawData
	} else {
		dsm.Encoding = EncodingVariant
	}

	pos := 1
	if dsm.HasSequenceNumber {
		v, n, err := readUint16(buf, pos)
		if err != nil {
			return nil, pos, err
		}
		dsm.SequenceNumber = v
		pos += n
	}
	if dsm.HasTimestamp {
		v, n, err := readUint64(buf, pos)
		if err != nil {
			return nil, pos, err
		}
		dsm.TimestampNs = int64(v)
		pos += n
	}
	if dsm.HasStatus {
		v, n, err := readUint16(buf, pos)
		if err != nil {
			return nil, pos, err
		}
		dsm.Status = v
		pos += n
	}

	if dsm.Type == Keepalive {
		return dsm, pos, nil
	}

	switch dsm.Encoding {
	case EncodingVariant:
		count, n, err := readUint16(buf, pos)
		if err != nil {
			return nil, pos, err
		}
		pos += n
		dsm.Fields = make([]Field, 0, count)
		for i := 0; i < int(count); i++ {
			f, n, err := decodeVariantField(buf, pos)
			if err != nil {
				return nil, pos, err
			}
			dsm.Fields = append(dsm.Fields, *f)
			pos += n
		}
	case EncodingRawData:
		dsm.Fields = make([]Field, 0, len(layout))
		for _, t := range layout {
			f, n, err := decodeRawField(buf, pos, t)
			if err != nil {
				return nil, pos, err
			}
			dsm.Fields = append(dsm.Fields, *f)
			pos += n
		}
	}
	return dsm, pos, nil
}

func decodeRawField(buf []byte, pos int, t BuiltInType) (*Field, int, error) {
	size, ok := FixedSize(t)
	if !ok {
		return nil, 0, &UnsupportedInRawEncoding{Type: t}
	}
	if pos+size > len(buf) {
		return nil, 0, &DecodingError{Offset: pos, Reason: "buffer too short for raw field"}
	}
	v, err := decodeScalar(buf, pos, t)
	if err != nil {
		return nil, 0, err
	}
	return &Field{Type: t, Value: v}, size, nil
}

func decodeVariantField(buf []byte, pos int) (*Field, int, error) {
	if pos >= len(buf) {
		return nil, 0, &DecodingError{Offset: pos, Reason: "buffer too short for field type tag"}
	}
	t := BuiltInType(buf[pos])
	start := pos
	pos++
	if !Known(t) {
		return nil, 0, &UnknownField{Offset: start, Type: t}
	}
	switch t {
	case TypeString:
		n, consumed, err := readUint32(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += consumed
		if pos+int(n) > len(buf) {
			return nil, 0, &DecodingError{Offset: pos, Reason: "buffer too short for string data"}
		}
		s := string(buf[pos : pos+int(n)])
		pos += int(n)
		return &Field{Type: t, Value: s}, pos - start, nil
	case TypeByteString:
		n, consumed, err := readUint32(buf, pos)
		if err != nil {
			return nil, 0, err
		}
		pos += consumed
		if pos+int(n) > len(buf) {
			return nil, 0, &DecodingError{Offset: pos, Reason: "buffer too short for byte string data"}
		}
		b := make([]byte, n)
		copy(b, buf[pos:pos+int(n)])
		pos += int(n)
		return &Field{Type: t, Value: b}, pos - start, nil
	default:
		size, ok := FixedSize(t)
		if !ok {
			return nil, 0, &UnknownField{Offset: start, Type: t}
		}
		if pos+size > len(buf) {
			return nil, 0, &DecodingError{Offset: pos, Reason: "buffer too short for scalar field"}
		}
		v, err := decodeScalar(buf, pos, t)
		if err != nil {
			return nil, 0, err
		}
		pos += size
		return &Field{Type: t, Value: v}, pos - start, nil
	}
}

func decodeScalar(buf []byte, pos int, t BuiltInType) (any, error) {
	switch t {
	case TypeBoolean:
		return buf[pos] != 0, nil
	case TypeSByte:
		return int8(buf[pos]), nil
	case TypeByte:
		return buf[pos], nil
	case TypeInt16:
		return int16(le.Uint16(buf[pos : pos+2])), nil
	case TypeUInt16:
		return le.Uint16(buf[pos : pos+2]), nil
	case TypeInt32:
		return int32(le.Uint32(buf[pos : pos+4])), nil
	case TypeUInt32:
		return le.Uint32(buf[pos : pos+4]), nil
	case TypeInt64:
		return int64(le.Uint64(buf[pos : pos+8])), nil
	case TypeUInt64:
		return le.Uint64(buf[pos : pos+8]), nil
	case TypeFloat:
		return math.Float32frombits(le.Uint32(buf[pos : pos+4])), nil
	case TypeDouble:
		return math.Float64frombits(le.Uint64(buf[pos : pos+8])), nil
	case TypeGuid:
		var g [16]byte
		copy(g[:], buf[pos:pos+16])
		return g, nil
	case TypeDateTime:
		return int64(le.Uint64(buf[pos : pos+8])), nil
	default:
		return nil, &UnknownField{Offset: pos, Type: t}
	}
}

func readUint16(buf []byte, pos int) (uint16, int, error) {
	if pos+2 > len(buf) {
		return 0, 0, &DecodingError{Offset: pos, Reason: "buffer too short for uint16"}
	}
	return le.Uint16(buf[pos : pos+2]), 2, nil
}

func readUint32(buf []byte, pos int) (uint32, int, error) {
	if pos+4 > len(buf) {
		return 0, 0, &DecodingError{Offset: pos, Reason: "buffer too short for uint32"}
	}
	return le.Uint32(buf[pos : pos+4]), 4, nil
}

func readUint64(buf []byte, pos int) (uint64, int, error) {
	if pos+8 > len(buf) {
		return 0, 0, &DecodingError{Offset: pos, Reason: "buffer too short for uint64"}
	}
	return le.Uint64(buf[pos : pos+8]), 8, nil
}
