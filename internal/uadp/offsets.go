package uadp

// OffsetEntry is one patch site inside a frozen NetworkMessage's encoded
// buffer: the field at DataSetMessage index DSMIndex, field index
// FieldIndex, of wire width Size, begins at Offset bytes into the buffer.
type OffsetEntry struct {
	Offset     int
	DSMIndex   int
	FieldIndex int
	Type       BuiltInType
	Size       int
}

// OffsetTable is the ordered list of patch sites produced by
// ComputeOffsets, monotonic in Offset within each DataSetMessage as the
// data-model invariant requires.
type OffsetTable []OffsetEntry

// ComputeOffsets encodes nm once (every DataSetMessage must already use
// EncodingRawData - the only encoding RT freezing supports) and records
// the absolute byte offset of every field. It returns the encoded buffer
// alongside the table so the caller can use the buffer as the initial
// OffsetBuffer contents.
func ComputeOffsets(nm *NetworkMessage) ([]byte, OffsetTable, error) {
	for i := range nm.DataSetMessages {
		if nm.DataSetMessages[i].Encoding != EncodingRawData {
			return nil, nil, &UnsupportedInRawEncoding{Type: 0}
		}
	}

	var buf []byte
	var err error
	buf, err = EncodeHeader(buf, nm)
	if err != nil {
		return nil, nil, err
	}

	var table OffsetTable
	for dsmIdx := range nm.DataSetMessages {
		dsm := &nm.DataSetMessages[dsmIdx]
		buf = append(buf, dsm.flags())
		if dsm.HasSequenceNumber {
			buf = appendUint16(buf, dsm.SequenceNumber)
		}
		if dsm.HasTimestamp {
			buf = appendUint64(buf, uint64(dsm.TimestampNs))
		}
		if dsm.HasStatus {
			buf = appendUint16(buf, dsm.Status)
		}
		for fieldIdx := range dsm.Fields {
			f := &dsm.Fields[fieldIdx]
			size, ok := FixedSize(f.Type)
			if !ok {
				return nil, nil, &UnsupportedInRawEncoding{Type: f.Type}
			}
			entry := OffsetEntry{
				Offset:     len(buf),
				DSMIndex:   dsmIdx,
				FieldIndex: fieldIdx,
				Type:       f.Type,
				Size:       size,
			}
			table = append(table, entry)
			buf = appendScalar(buf, f)
		}
	}
	return buf, table, nil
}

// PatchField overwrites the bytes at entry's offset in buf with the raw
// encoding of value, without touching any other byte - the in-place
// update the RT publish/subscribe tick performs every cycle.
func PatchField(buf []byte, entry OffsetEntry, value any) error {
	if entry.Offset+entry.Size > len(buf) {
		return &DecodingError{Offset: entry.Offset, Reason: "offset buffer too short for patch"}
	}
	f := Field{Type: entry.Type, Value: value}
	scratch := appendScalar(make([]byte, 0, entry.Size), &f)
	if len(scratch) != entry.Size {
		return &UnsupportedInRawEncoding{Type: entry.Type}
	}
	copy(buf[entry.Offset:entry.Offset+entry.Size], scratch)
	return nil
}

// ReadField copies entry.Size bytes out of buf at entry's offset and
// decodes them - the subscriber RT fast path's "apply the offset table in
// reverse" read.
func ReadField(buf []byte, entry OffsetEntry) (any, error) {
	if entry.Offset+entry.Size > len(buf) {
		return nil, &DecodingError{Offset: entry.Offset, Reason: "offset buffer too short for read"}
	}
	return decodeScalar(buf, entry.Offset, entry.Type)
}
