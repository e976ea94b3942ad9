package pubsub

import (
	"testing"

	"github.com/uapubsub/pubsub/internal/uadp"
)

func TestPublishTick_NonRT_SendsEncodedMessage(t *testing.T) {
	s := NewStore()
	connID, ch := newTestConnection(t, s)
	backend := newFakeBackend(uint32(99))
	pdsID, err := s.AddPublishedDataSet(PublishedDataSetConfig{
		Fields: []DataSetFieldConfig{{Alias: "Count", BuiltInType: uadp.TypeUInt32, Backend: backend}},
	})
	if err != nil {
		t.Fatalf("AddPublishedDataSet: %v", err)
	}
	wgID, err := s.AddWriterGroup(connID, WriterGroupConfig{WriterGroupID: 1, HasPayloadHeader: true})
	if err != nil {
		t.Fatalf("AddWriterGroup: %v", err)
	}
	if _, err := s.AddDataSetWriter(wgID, DataSetWriterConfig{
		DataSetWriterID: 1, PublishedDataSetID: pdsID, Encoding: uadp.EncodingVariant, Enabled: true,
	}); err != nil {
		t.Fatalf("AddDataSetWriter: %v", err)
	}

	if err := s.PublishTick(wgID); err != nil {
		t.Fatalf("PublishTick: %v", err)
	}
	if len(ch.sent) != 1 {
		t.Fatalf("expected 1 message sent, got %d", len(ch.sent))
	}

	var nm uadp.NetworkMessage
	pos, err := uadp.DecodeHeader(ch.sent[0], &nm)
	if err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	dsm, _, err := uadp.DecodeDataSetMessage(ch.sent[0][pos:], nil)
	if err != nil {
		t.Fatalf("DecodeDataSetMessage: %v", err)
	}
	if len(dsm.Fields) != 1 || dsm.Fields[0].Value.(uint32) != 99 {
		t.Fatalf("decoded fields = %+v, want [Count=99]", dsm.Fields)
	}
}

func TestPublishTick_DisabledWriterOmitted(t *testing.T) {
	s := NewStore()
	connID, ch := newTestConnection(t, s)
	pdsID, _ := s.AddPublishedDataSet(PublishedDataSetConfig{
		Fields: []DataSetFieldConfig{{BuiltInType: uadp.TypeUInt32, Backend: newFakeBackend(uint32(1))}},
	})
	wgID, _ := s.AddWriterGroup(connID, WriterGroupConfig{WriterGroupID: 1, HasPayloadHeader: true})
	if _, err := s.AddDataSetWriter(wgID, DataSetWriterConfig{
		DataSetWriterID: 1, PublishedDataSetID: pdsID, Encoding: uadp.EncodingVariant, Enabled: false,
	}); err != nil {
		t.Fatalf("AddDataSetWriter: %v", err)
	}

	if err := s.PublishTick(wgID); err != nil {
		t.Fatalf("PublishTick: %v", err)
	}
	var nm uadp.NetworkMessage
	if _, err := uadp.DecodeHeader(ch.sent[0], &nm); err != nil {
		t.Fatalf("DecodeHeader: %v", err)
	}
	if nm.HasPayloadHeader && len(nm.DataSetWriterIDs) != 0 {
		t.Fatalf("expected no DataSetWriterIDs, got %v", nm.DataSetWriterIDs)
	}
}

func TestPublishTick_RT_PatchesInPlaceWithoutGrowingBuffer(t *testing.T) {
	s := NewStore()
	connID, ch := newTestConnection(t, s)
	wgID, backend := newFrozenWriterGroup(t, s, connID)
	group := s.writerGroups[wgID]
	originalLen := len(group.buf)

	backend.dv = &DataValue{Value: float64(30), StatusCode: Good}
	if err := s.PublishTick(wgID); err != nil {
		t.Fatalf("PublishTick: %v", err)
	}
	if len(ch.sent) != 1 || len(ch.sent[0]) != originalLen {
		t.Fatalf("RT publish changed buffer length: got %d, want %d", len(ch.sent[0]), originalLen)
	}

	entry := group.offsets[0]
	v, err := uadp.ReadField(ch.sent[0], entry)
	if err != nil {
		t.Fatalf("ReadField: %v", err)
	}
	if v.(float64) != 30 {
		t.Fatalf("patched value = %v, want 30", v)
	}
}

func TestSample_CachesFieldsForNextBuild(t *testing.T) {
	s := NewStore()
	connID, _ := newTestConnection(t, s)
	backend := newFakeBackend(uint32(1))
	pdsID, _ := s.AddPublishedDataSet(PublishedDataSetConfig{
		Fields: []DataSetFieldConfig{{BuiltInType: uadp.TypeUInt32, Backend: backend}},
	})
	wgID, _ := s.AddWriterGroup(connID, WriterGroupConfig{WriterGroupID: 1})
	writerID, err := s.AddDataSetWriter(wgID, DataSetWriterConfig{
		DataSetWriterID: 1, PublishedDataSetID: pdsID, Encoding: uadp.EncodingVariant, Enabled: true,
		SamplingInterval: 1,
	})
	if err != nil {
		t.Fatalf("AddDataSetWriter: %v", err)
	}
	writer := s.dataSetWriters[writerID]

	backend.dv = &DataValue{Value: uint32(7), StatusCode: Good}
	if err := writer.Sample(); err != nil {
		t.Fatalf("Sample: %v", err)
	}
	backend.dv = &DataValue{Value: uint32(8), StatusCode: Good}

	dsm, err := s.buildDataSetMessage(writer)
	if err != nil {
		t.Fatalf("buildDataSetMessage: %v", err)
	}
	if dsm.Fields[0].Value.(uint32) != 7 {
		t.Fatalf("expected the sampled value 7, got %v (live backend now reads 8)", dsm.Fields[0].Value)
	}
}
