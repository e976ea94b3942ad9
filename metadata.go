package pubsub

import "github.com/uapubsub/pubsub/internal/uadp"

// FieldMetaData describes one field a DataSetReader expects to find in
// an incoming DataSetMessage.
type FieldMetaData struct {
	Name            string
	BuiltInType     uadp.BuiltInType
	ValueRank       int
	ArrayDimensions []uint32
}

// DataSetMetaData is the ordered field schema a DataSetReader validates
// incoming messages against on the non-RT path, and that supplies the
// raw-encoding layout on the RT fast path (raw encoding carries no
// per-field type tags on the wire; the reader's metadata is the only
// place that information lives).
type DataSetMetaData struct {
	Name   string
	Fields []FieldMetaData
}

// layout extracts the BuiltInType sequence DecodeDataSetMessage needs for
// raw-encoded DSMs.
func (m DataSetMetaData) layout() []uadp.BuiltInType {
	types := make([]uadp.BuiltInType, len(m.Fields))
	for i, f := range m.Fields {
		types[i] = f.BuiltInType
	}
	return types
}
