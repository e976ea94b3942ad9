package pubsub

import (
	"time"

	"github.com/uapubsub/pubsub/internal/uadp"
)

// ReceiveLoop drives one Channel.Receive call for connID's channel,
// dispatching every delivered buffer through Dispatch. Callers invoke
// this repeatedly from whatever scheduling loop drives the process - the
// core itself owns no goroutine, following a single-threaded cooperative
// scheduling model.
func (s *Store) ReceiveLoop(connID ID, timeout time.Duration) error {
	s.mu.Lock()
	conn, ok := s.connections[connID]
	s.mu.Unlock()
	if !ok {
		return BadNotFound.Wrap("connection not found")
	}

	return conn.channel.Receive(func(buf []byte) {
		s.Dispatch(connID, buf)
	}, timeout)
}

// Yield calls Yield once on connID's channel (for the MQTT channel a
// sleep of timeout while paho's own goroutines run; a no-op for UDP and
// NATS).
func (s *Store) Yield(connID ID, timeout time.Duration) error {
	s.mu.Lock()
	conn, ok := s.connections[connID]
	s.mu.Unlock()
	if !ok {
		return BadNotFound.Wrap("connection not found")
	}
	return conn.channel.Yield(timeout)
}

// Dispatch decodes one received buffer from connID's channel, matches
// each DataSetMessage to a reader by (publisherId, writerGroupId,
// dataSetWriterId), and writes its fields into the matching reader's
// target variables. ReceiveLoop calls it, wrapped in a closure, as the
// transport.MessageHandler passed to Channel.Receive.
//
// Per-message decode failures are logged and the message dropped -
// Dispatch itself never returns an error for malformed input; a
// protocol stack must not crash on malformed input from the wire.
func (s *Store) Dispatch(connID ID, buf []byte) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[connID]
	if !ok {
		return
	}

	var nm uadp.NetworkMessage
	pos, err := uadp.DecodeHeader(buf, &nm)
	if err != nil {
		s.logger.Warn("pubsub: dropping message, header decode failed", "connection", connID, "error", err)
		s.metrics.incDropped("decode")
		return
	}
	if !nm.HasPayloadHeader {
		s.logger.Warn("pubsub: dropping message, no payload header to match writer ids", "connection", connID)
		s.metrics.incDropped("no_payload_header")
		return
	}

	for _, writerID := range nm.DataSetWriterIDs {
		reader, group := s.findMatchingReader(conn, nm.PublisherID, nm.WriterGroupID, writerID)
		if reader == nil {
			s.metrics.incDropped("no_match")
			continue
		}

		if group.frozen {
			s.dispatchRT(group, reader, buf)
			pos = group.templateLen
			continue
		}

		dsm, n, err := uadp.DecodeDataSetMessage(buf[pos:], reader.config.MetaData.layout())
		pos += n
		if err != nil {
			s.logger.Warn("pubsub: dropping message, DSM decode failed", "connection", connID, "dataSetWriterId", writerID, "error", err)
			s.metrics.incDropped("decode")
			continue
		}
		if err := s.writeTargets(reader, dsm); err != nil {
			s.logger.Warn("pubsub: dropping message, target write failed", "connection", connID, "dataSetWriterId", writerID, "error", err)
			s.metrics.incDropped("write")
			continue
		}
		s.metrics.incDispatched(reader.groupID)
	}
}

// findMatchingReader returns the first reader (in registration order,
// across every reader group on conn) whose match key agrees with the
// given triple: first added wins, deterministic regardless of map
// iteration order.
func (s *Store) findMatchingReader(conn *Connection, publisherID, writerGroupID, dataSetWriterID uint16) (*DataSetReader, *ReaderGroup) {
	for _, id := range conn.readerOrder {
		reader, ok := s.dataSetReaders[id]
		if !ok {
			continue
		}
		if reader.matches(publisherID, writerGroupID, dataSetWriterID) {
			return reader, s.readerGroups[reader.groupID]
		}
	}
	return nil, nil
}

// dispatchRT applies the frozen reader group's offset table against buf
// (the full NetworkMessage, header included - the offsets were recorded
// against that same absolute layout at freeze time): each entry copies
// its fixed-width value directly into the matching target variable's
// external memory through its value backend - the RT fast path.
func (s *Store) dispatchRT(group *ReaderGroup, reader *DataSetReader, buf []byte) {
	for _, entry := range group.offsets {
		target := findTarget(reader.targets, entry.FieldIndex)
		if target == nil {
			continue
		}
		v, err := uadp.ReadField(buf, entry)
		if err != nil {
			s.logger.Warn("pubsub: RT field read failed", "reader", reader.id, "error", err)
			s.metrics.incDropped("rt_read")
			continue
		}
		dv := &DataValue{Value: v, StatusCode: Good}
		if err := target.Backend.Write(dv); err != nil {
			s.logger.Warn("pubsub: RT target write failed", "reader", reader.id, "error", err)
			s.metrics.incDropped("rt_write")
		}
	}
	s.metrics.incDispatched(reader.groupID)
}

func findTarget(targets []TargetVariable, fieldIndex int) *TargetVariable {
	for i := range targets {
		if targets[i].FieldIndex == fieldIndex {
			return &targets[i]
		}
	}
	return nil
}

// writeTargets writes each field of dsm into the target variable bound
// to its index, invoking the backend's write path (which in turn invokes
// any user write-callback - the non-RT path).
func (s *Store) writeTargets(reader *DataSetReader, dsm *uadp.DataSetMessage) error {
	if len(dsm.Fields) != len(reader.config.MetaData.Fields) {
		return BadInvalidArgument.Wrap("field count disagrees with data set metadata")
	}
	for _, target := range reader.targets {
		if target.FieldIndex < 0 || target.FieldIndex >= len(dsm.Fields) {
			continue
		}
		if target.Backend == nil {
			continue
		}
		dv := &DataValue{Value: dsm.Fields[target.FieldIndex].Value, StatusCode: Good}
		if err := target.Backend.Write(dv); err != nil {
			return err
		}
	}
	return nil
}
