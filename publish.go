package pubsub

import "github.com/uapubsub/pubsub/internal/uadp"

// PublishTick runs one publishing-interval cycle for groupID: for every
// enabled DataSetWriter it builds (or, if frozen, patches) a
// DataSetMessage, assembles the NetworkMessage, and hands the result to
// the owning Connection's channel.
func (s *Store) PublishTick(groupID ID) error {
	s.mu.Lock()
	group, ok := s.writerGroups[groupID]
	if !ok {
		s.mu.Unlock()
		return BadNotFound.Wrap("writer group not found")
	}
	conn := s.connections[group.connectionID]
	if conn == nil {
		s.mu.Unlock()
		return BadConfigurationError.Wrap("writer group has no owning connection")
	}
	writerGroupID := group.config.WriterGroupID

	var buf []byte
	var err error
	if group.frozen {
		buf, err = s.publishTickRT(group)
	} else {
		buf, err = s.publishTickFull(group, conn)
	}
	if err != nil {
		s.mu.Unlock()
		s.metrics.incPublishErrors(writerGroupID)
		return err
	}

	// The RT path hands back group.buf itself, which the next PublishTick
	// on this group patches in place; copy it before releasing the lock
	// so channel.Send - a potentially blocking call - never races that
	// mutation, and never runs with the lock held.
	out := make([]byte, len(buf))
	copy(out, buf)
	channel := conn.channel
	s.mu.Unlock()

	if err := channel.Send(out); err != nil {
		s.metrics.incPublishErrors(writerGroupID)
		return BadCommunicationError.WrapErr(err)
	}
	s.metrics.incPublishTicks(writerGroupID)
	return nil
}

// publishTickRT patches group.buf in place at every offset table entry,
// reading the current value from the originating writer's field backend,
// and returns the buffer unchanged in length ("offset stability": the
// buffer never grows or shrinks once frozen).
func (s *Store) publishTickRT(group *WriterGroup) ([]byte, error) {
	for _, entry := range group.offsets {
		writer := group.rtWriters[entry.DSMIndex]
		field := writer.pds.fields[entry.FieldIndex]
		dv, err := field.Backend.Read()
		if err != nil {
			return nil, BadCommunicationError.WrapErr(err)
		}
		if err := uadp.PatchField(group.buf, entry, dv.Value); err != nil {
			return nil, BadConfigurationError.WrapErr(err)
		}
	}
	return group.buf, nil
}

// publishTickFull builds a fresh NetworkMessage by reading every enabled
// writer's fields through their configured source and encoding them per
// the writer's chosen encoding (the non-RT path).
func (s *Store) publishTickFull(group *WriterGroup, conn *Connection) ([]byte, error) {
	group.groupSeq++

	nm := &uadp.NetworkMessage{
		HasPublisherID: true,
		PublisherID:    conn.publisherID,
		HasGroupHeader: group.config.HasGroupHeader,
		WriterGroupID:  group.config.WriterGroupID,
		GroupVersion:   group.groupVersion,
		NetworkMessageNumber: group.msgNumber,
		GroupSequenceNumber:  group.groupSeq,
		HasPayloadHeader:     group.config.HasPayloadHeader,
	}

	for _, w := range group.writers {
		if !w.Enabled() {
			continue
		}
		dsm, err := s.buildDataSetMessage(w)
		if err != nil {
			return nil, err
		}
		nm.DataSetMessages = append(nm.DataSetMessages, dsm)
		nm.DataSetWriterIDs = append(nm.DataSetWriterIDs, w.config.DataSetWriterID)
	}

	buf, err := uadp.EncodeNetworkMessage(nil, nm)
	if err != nil {
		return nil, BadConfigurationError.WrapErr(err)
	}
	return buf, nil
}

// buildDataSetMessage reads every field of w's PublishedDataSet (through
// a prior Sample if the writer samples independently, otherwise live) and
// encodes it as a keyframe using w's configured encoding. w's own
// sequence number increments independently of the group's: monotonicity
// is tracked per-writer, not per-group.
func (s *Store) buildDataSetMessage(w *DataSetWriter) (uadp.DataSetMessage, error) {
	w.seq++

	var fields []uadp.Field
	if w.sampled != nil {
		fields = w.sampled
	} else {
		var err error
		fields, err = readFields(w.pds.fields)
		if err != nil {
			return uadp.DataSetMessage{}, err
		}
	}

	return uadp.DataSetMessage{
		Type:              uadp.Keyframe,
		Encoding:          w.config.Encoding,
		HasSequenceNumber: true,
		SequenceNumber:    w.seq,
		Fields:            fields,
	}, nil
}

func readFields(fields []DataSetField) ([]uadp.Field, error) {
	out := make([]uadp.Field, len(fields))
	for i, f := range fields {
		if f.Backend == nil {
			return nil, BadConfigurationError.Wrap("non-static field has no attribute-path reader bound")
		}
		dv, err := f.Backend.Read()
		if err != nil {
			return nil, BadCommunicationError.WrapErr(err)
		}
		out[i] = uadp.Field{Type: f.BuiltInType, Value: dv.Value}
	}
	return out, nil
}

// Sample reads every field of w's PublishedDataSet and caches the result
// for the next PublishTick. An external Scheduler invokes this between
// publish ticks so a fast-changing field's value is captured at its own
// cadence rather than only at the group's PublishingInterval.
func (w *DataSetWriter) Sample() error {
	fields, err := readFields(w.pds.fields)
	if err != nil {
		return err
	}
	w.sampled = fields
	return nil
}
