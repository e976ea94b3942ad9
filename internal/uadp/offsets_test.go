package uadp

import "testing"

func canonicalFixedMessage() *NetworkMessage {
	return &NetworkMessage{
		HasPublisherID:   true,
		PublisherID:      1,
		HasGroupHeader:   true,
		WriterGroupID:    1,
		HasPayloadHeader: true,
		DataSetWriterIDs: []uint16{1},
		DataSetMessages: []DataSetMessage{{
			Type:     Keyframe,
			Encoding: EncodingRawData,
			Fields: []Field{
				{Type: TypeDouble, Value: float64(0)},
				{Type: TypeUInt16, Value: uint16(0)},
			},
		}},
	}
}

func TestComputeOffsets_PatchAndReadRoundTrip(t *testing.T) {
	nm := canonicalFixedMessage()
	buf, table, err := ComputeOffsets(nm)
	if err != nil {
		t.Fatalf("ComputeOffsets: %v", err)
	}
	if len(table) != 2 {
		t.Fatalf("expected 2 offset entries, got %d", len(table))
	}

	if err := PatchField(buf, table[0], float64(98.6)); err != nil {
		t.Fatalf("PatchField(temperature): %v", err)
	}
	if err := PatchField(buf, table[1], uint16(7)); err != nil {
		t.Fatalf("PatchField(count): %v", err)
	}

	v, err := ReadField(buf, table[0])
	if err != nil {
		t.Fatalf("ReadField(temperature): %v", err)
	}
	if v.(float64) != 98.6 {
		t.Errorf("temperature = %v, want 98.6", v)
	}

	v, err = ReadField(buf, table[1])
	if err != nil {
		t.Fatalf("ReadField(count): %v", err)
	}
	if v.(uint16) != 7 {
		t.Errorf("count = %v, want 7", v)
	}
}

// TestComputeOffsets_StableAcrossRepeatedPatches verifies the RT
// invariant that patching never changes the buffer's length or any
// other field's offset - the "offset stability" property the fixed-size
// freeze pipeline depends on.
func TestComputeOffsets_StableAcrossRepeatedPatches(t *testing.T) {
	nm := canonicalFixedMessage()
	buf, table, err := ComputeOffsets(nm)
	if err != nil {
		t.Fatalf("ComputeOffsets: %v", err)
	}
	originalLen := len(buf)

	for i := 0; i < 5; i++ {
		if err := PatchField(buf, table[0], float64(i)); err != nil {
			t.Fatalf("patch %d: %v", i, err)
		}
		if len(buf) != originalLen {
			t.Fatalf("buffer length changed after patch %d: got %d, want %d", i, len(buf), originalLen)
		}
	}
}

func TestComputeOffsets_RejectsVariantEncoding(t *testing.T) {
	nm := &NetworkMessage{
		DataSetMessages: []DataSetMessage{{
			Type:     Keyframe,
			Encoding: EncodingVariant,
			Fields:   []Field{{Type: TypeUInt32, Value: uint32(1)}},
		}},
	}
	if _, _, err := ComputeOffsets(nm); err == nil {
		t.Fatal("expected error freezing a variant-encoded message")
	}
}

func TestComputeOffsets_RejectsUnboundedType(t *testing.T) {
	nm := &NetworkMessage{
		DataSetMessages: []DataSetMessage{{
			Type:     Keyframe,
			Encoding: EncodingRawData,
			Fields:   []Field{{Type: TypeString, Value: "nope"}},
		}},
	}
	if _, _, err := ComputeOffsets(nm); err == nil {
		t.Fatal("expected error freezing a variable-width field")
	}
}

func TestPatchField_RejectsBufferTooShort(t *testing.T) {
	entry := OffsetEntry{Offset: 10, Type: TypeUInt32, Size: 4}
	buf := make([]byte, 8)
	if err := PatchField(buf, entry, uint32(1)); err == nil {
		t.Fatal("expected error patching past the end of buf")
	}
}
