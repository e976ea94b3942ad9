package pubsub

import "github.com/uapubsub/pubsub/internal/uadp"

// FreezeWriterGroup validates the RT fixed-size preconditions for groupID
// and, if they hold, synthesizes a canonical NetworkMessage with
// placeholder field values, encodes it once, and records the offset of
// every field. Once frozen, PublishTick patches this buffer in place
// instead of re-encoding.
func (s *Store) FreezeWriterGroup(groupID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.writerGroups[groupID]
	if !ok {
		return BadNotFound.Wrap("writer group not found")
	}
	if group.frozen {
		return nil
	}
	if group.config.RTLevel != RTLevelFixedSize {
		return BadNotSupported.Wrap("writer group is not configured for RT fixed-size")
	}

	conn := s.connections[group.connectionID]
	if conn == nil {
		return BadConfigurationError.Wrap("writer group has no owning connection")
	}

	nm := &uadp.NetworkMessage{
		HasPublisherID:   true,
		PublisherID:      conn.publisherID,
		HasGroupHeader:   group.config.HasGroupHeader,
		WriterGroupID:    group.config.WriterGroupID,
		HasPayloadHeader: group.config.HasPayloadHeader,
	}

	var enabledWriters []*DataSetWriter
	for _, w := range group.writers {
		if !w.Enabled() {
			continue
		}
		dsm, err := canonicalDataSetMessage(w)
		if err != nil {
			return err
		}
		nm.DataSetMessages = append(nm.DataSetMessages, dsm)
		nm.DataSetWriterIDs = append(nm.DataSetWriterIDs, w.config.DataSetWriterID)
		enabledWriters = append(enabledWriters, w)
	}

	buf, offsets, err := uadp.ComputeOffsets(nm)
	if err != nil {
		if _, ok := err.(*uadp.UnsupportedInRawEncoding); ok {
			return BadNotSupported.WrapErr(err)
		}
		return BadConfigurationError.WrapErr(err)
	}

	group.buf = buf
	group.offsets = offsets
	group.rtWriters = enabledWriters
	group.frozen = true
	s.metrics.incFrozenGroups(1)
	return nil
}

// canonicalDataSetMessage builds a placeholder keyframe for w, validating
// that every field is static, RT-eligible (fixed wire width), and that
// the writer uses raw-data encoding - the three publisher-side
// preconditions for a fixed-offset freeze.
func canonicalDataSetMessage(w *DataSetWriter) (uadp.DataSetMessage, error) {
	if w.config.Encoding != uadp.EncodingRawData {
		return uadp.DataSetMessage{}, BadConfigurationError.Wrap("RT writer must use raw-data encoding")
	}
	fields := make([]uadp.Field, len(w.pds.fields))
	for i, f := range w.pds.fields {
		if !f.isStatic() {
			return uadp.DataSetMessage{}, BadConfigurationError.Wrap("RT field must have a static value source")
		}
		if _, ok := uadp.FixedSize(f.BuiltInType); !ok {
			return uadp.DataSetMessage{}, BadNotSupported.Wrap("RT field type has no fixed wire width")
		}
		fields[i] = uadp.Field{Type: f.BuiltInType, Value: placeholderValue(f.BuiltInType)}
	}
	return uadp.DataSetMessage{
		Type:     uadp.Keyframe,
		Encoding: uadp.EncodingRawData,
		Fields:   fields,
	}, nil
}

func placeholderValue(t uadp.BuiltInType) any {
	switch t {
	case uadp.TypeBoolean:
		return false
	case uadp.TypeSByte:
		return int8(0)
	case uadp.TypeByte:
		return byte(0)
	case uadp.TypeInt16:
		return int16(0)
	case uadp.TypeUInt16:
		return uint16(0)
	case uadp.TypeInt32:
		return int32(0)
	case uadp.TypeUInt32:
		return uint32(0)
	case uadp.TypeInt64:
		return int64(0)
	case uadp.TypeUInt64:
		return uint64(0)
	case uadp.TypeFloat:
		return float32(0)
	case uadp.TypeDouble:
		return float64(0)
	case uadp.TypeGuid:
		return [16]byte{}
	case uadp.TypeDateTime:
		return int64(0)
	default:
		return nil
	}
}

// UnfreezeWriterGroup releases the group's offset buffer and clears the
// frozen flag. It is idempotent: calling it on an unfrozen group returns
// nil.
func (s *Store) UnfreezeWriterGroup(groupID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.writerGroups[groupID]
	if !ok {
		return BadNotFound.Wrap("writer group not found")
	}
	if !group.frozen {
		return nil
	}
	group.frozen = false
	group.buf = nil
	group.offsets = nil
	group.rtWriters = nil
	s.metrics.incFrozenGroups(-1)
	return nil
}

// FreezeReaderGroup validates the RT fixed-size preconditions for groupID:
// exactly one DataSetReader (multiple is BadNotImplemented), every
// expected field RT-eligible, every target variable backed by an
// external value backend. It then synthesizes the canonical
// NetworkMessage the frozen reader expects and records its offsets.
func (s *Store) FreezeReaderGroup(groupID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.readerGroups[groupID]
	if !ok {
		return BadNotFound.Wrap("reader group not found")
	}
	if group.frozen {
		return nil
	}
	if group.config.RTLevel != RTLevelFixedSize {
		return BadNotSupported.Wrap("reader group is not configured for RT fixed-size")
	}
	if len(group.readers) != 1 {
		return BadNotImplemented.Wrap("RT reader groups support exactly one data set reader")
	}
	reader := group.readers[0]

	layout := make([]uadp.BuiltInType, len(reader.config.MetaData.Fields))
	for i, f := range reader.config.MetaData.Fields {
		if _, ok := uadp.FixedSize(f.BuiltInType); !ok {
			return BadNotSupported.Wrap("RT field type has no fixed wire width")
		}
		layout[i] = f.BuiltInType
	}
	for _, t := range reader.targets {
		if !t.isExternal() {
			return BadConfigurationError.Wrap("RT target variable requires an external value backend")
		}
	}

	fields := make([]uadp.Field, len(layout))
	for i, t := range layout {
		fields[i] = uadp.Field{Type: t, Value: placeholderValue(t)}
	}

	nm := &uadp.NetworkMessage{
		HasPublisherID:   true,
		PublisherID:      reader.config.PublisherID,
		HasGroupHeader:   true,
		WriterGroupID:    reader.config.WriterGroupID,
		HasPayloadHeader: true,
		DataSetWriterIDs: []uint16{reader.config.DataSetWriterID},
		DataSetMessages: []uadp.DataSetMessage{{
			Type:     uadp.Keyframe,
			Encoding: uadp.EncodingRawData,
			Fields:   fields,
		}},
	}

	template, offsets, err := uadp.ComputeOffsets(nm)
	if err != nil {
		return BadConfigurationError.WrapErr(err)
	}

	group.templateLen = len(template)
	group.offsets = offsets
	group.expected.publisherID = reader.config.PublisherID
	group.expected.writerGroupID = reader.config.WriterGroupID
	group.expected.dataSetWriterID = reader.config.DataSetWriterID
	group.frozen = true
	s.metrics.incFrozenGroups(1)
	return nil
}

// UnfreezeReaderGroup releases the group's offset table and clears the
// frozen flag. Idempotent, like UnfreezeWriterGroup.
func (s *Store) UnfreezeReaderGroup(groupID ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.readerGroups[groupID]
	if !ok {
		return BadNotFound.Wrap("reader group not found")
	}
	if !group.frozen {
		return nil
	}
	group.frozen = false
	group.offsets = nil
	s.metrics.incFrozenGroups(-1)
	return nil
}
