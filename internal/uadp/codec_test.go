package uadp

import (
	"reflect"
	"testing"
)

func TestEncodeDecodeNetworkMessage_RoundTrip(t *testing.T) {
	tests := []struct {
		name string
		nm   *NetworkMessage
	}{
		{
			name: "minimal header, variant encoding",
			nm: &NetworkMessage{
				DataSetMessages: []DataSetMessage{{
					Type:     Keyframe,
					Encoding: EncodingVariant,
					Fields: []Field{
						{Type: TypeUInt32, Value: uint32(42)},
						{Type: TypeString, Value: "hello"},
					},
				}},
			},
		},
		{
			name: "full header, two raw-encoded DSMs",
			nm: &NetworkMessage{
				HasPublisherID:   true,
				PublisherID:      7,
				HasGroupHeader:   true,
				WriterGroupID:    1,
				GroupVersion:     100,
				HasPayloadHeader: true,
				DataSetWriterIDs: []uint16{1, 2},
				DataSetMessages: []DataSetMessage{
					{
						Type:              Keyframe,
						Encoding:          EncodingRawData,
						HasSequenceNumber: true,
						SequenceNumber:    3,
						Fields: []Field{
							{Type: TypeDouble, Value: 21.5},
							{Type: TypeBoolean, Value: true},
						},
					},
					{
						Type:     Keyframe,
						Encoding: EncodingRawData,
						Fields: []Field{
							{Type: TypeInt32, Value: int32(-9)},
						},
					},
				},
			},
		},
		{
			name: "keepalive DSM carries no fields",
			nm: &NetworkMessage{
				HasPayloadHeader: true,
				DataSetWriterIDs: []uint16{5},
				DataSetMessages: []DataSetMessage{
					{Type: Keepalive, Encoding: EncodingVariant},
				},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			buf, err := EncodeNetworkMessage(nil, tt.nm)
			if err != nil {
				t.Fatalf("encode: %v", err)
			}

			layouts := make(map[uint16][]BuiltInType)
			for i, dsm := range tt.nm.DataSetMessages {
				if dsm.Encoding != EncodingRawData || !tt.nm.HasPayloadHeader {
					continue
				}
				types := make([]BuiltInType, len(dsm.Fields))
				for j, f := range dsm.Fields {
					types[j] = f.Type
				}
				layouts[tt.nm.DataSetWriterIDs[i]] = types
			}

			got, n, err := DecodeNetworkMessage(buf, layouts)
			if err != nil {
				t.Fatalf("decode: %v", err)
			}
			if n != len(buf) {
				t.Errorf("decode consumed %d bytes, want %d", n, len(buf))
			}
			if !reflect.DeepEqual(got.DataSetMessages, tt.nm.DataSetMessages) {
				t.Errorf("round-trip mismatch:\ngot  %+v\nwant %+v", got.DataSetMessages, tt.nm.DataSetMessages)
			}
		})
	}
}

func TestDecodeHeader_IgnoresUnknownFlagBits(t *testing.T) {
	var nm NetworkMessage
	n, err := DecodeHeader([]byte{0x10}, &nm)
	if err != nil {
		t.Fatalf("unknown header flag bit should be ignored on decode, got %v", err)
	}
	if n != 1 || nm.HasPublisherID || nm.HasGroupHeader || nm.HasPayloadHeader {
		t.Fatalf("decoded %d bytes into %+v, want 1 byte and no optional sections", n, nm)
	}
}

func TestDecodeHeader_TruncatedBuffer(t *testing.T) {
	nm := &NetworkMessage{HasPublisherID: true, PublisherID: 1}
	buf, err := EncodeHeader(nil, nm)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}

	var out NetworkMessage
	if _, err := DecodeHeader(buf[:len(buf)-1], &out); err == nil {
		t.Fatal("expected error decoding truncated header")
	}
}

func TestEncodeHeader_PayloadHeaderCountMismatch(t *testing.T) {
	nm := &NetworkMessage{
		HasPayloadHeader: true,
		DataSetWriterIDs: []uint16{1, 2},
		DataSetMessages:  []DataSetMessage{{Type: Keyframe, Encoding: EncodingVariant}},
	}
	if _, err := EncodeHeader(nil, nm); err == nil {
		t.Fatal("expected error when writer id count disagrees with DSM count")
	}
}

func TestEncodeRawField_RejectsVariableWidthType(t *testing.T) {
	nm := &NetworkMessage{
		DataSetMessages: []DataSetMessage{{
			Type:     Keyframe,
			Encoding: EncodingRawData,
			Fields:   []Field{{Type: TypeString, Value: "too long for raw"}},
		}},
	}
	if _, err := EncodeNetworkMessage(nil, nm); err == nil {
		t.Fatal("expected error encoding a string field as raw data")
	}
}

func TestFixedSize_DateTimeExcluded(t *testing.T) {
	if _, ok := FixedSize(TypeDateTime); ok {
		t.Fatal("TypeDateTime must not be RT-eligible even though it is a fixed 8 bytes on the wire")
	}
}
