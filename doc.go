// Package pubsub implements the OPC UA Publish-Subscribe data plane: the
// object model that binds application variables to periodic network
// messages on the publish side, and decodes those messages back into
// variables on the subscribe side.
//
// # Object model
//
// A Store owns every Connection, WriterGroup, DataSetWriter,
// PublishedDataSet, ReaderGroup, and DataSetReader for a process. Every
// entity is addressed by an ID and configured through a plain Go config
// struct copied on registration - the caller's original is never
// retained.
//
// # RT fixed-size mode
//
// FreezeWriterGroup and FreezeReaderGroup precompute the byte offset of
// every field in a group's NetworkMessage once, using
// internal/uadp.ComputeOffsets. From then on PublishTick and Dispatch
// patch or read those offsets in place instead of re-encoding or fully
// decoding - the "fixed-offset realtime pipeline".
//
// # Transport
//
// A Connection sends and receives opaque byte buffers through a
// transport.Channel (see the transport, transport/mqtt, and
// transport/nats packages). The core never depends on a specific
// transport; it only calls Open, Send, Receive, Yield, and Close.
//
// # Concurrency
//
// The Store is single-threaded cooperative by default: all mutation and
// dispatch is serialized by one coarse mutex, matching the "optional
// multi-threaded build variant" described for the data plane this module
// implements. Only Channel.Send/Receive/Yield and TLS handshakes block;
// everything else is non-blocking in-memory work.
package pubsub
