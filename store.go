package pubsub

import (
	"io"
	"log/slog"
	"sync"

	"github.com/uapubsub/pubsub/transport"
)

// Store is the in-memory PubSub object registry: it owns every
// Connection, WriterGroup, DataSetWriter, PublishedDataSet, ReaderGroup,
// and DataSetReader for a process, keyed by generated ID, and enforces
// referential integrity (a WriterGroup cannot be removed while a
// DataSetWriter inside it is enabled; a PublishedDataSet cannot be
// removed while referenced).
//
// All mutation and dispatch is serialized by mu: one mutex guarding a
// cluster of maps, held for the duration of any mutation or dispatch,
// never across a channel call.
type Store struct {
	mu      sync.Mutex
	logger  *slog.Logger
	metrics *Metrics

	connections        map[ID]*Connection
	publishedDataSets  map[ID]*PublishedDataSet
	writerGroups       map[ID]*WriterGroup
	dataSetWriters     map[ID]*DataSetWriter
	readerGroups       map[ID]*ReaderGroup
	dataSetReaders     map[ID]*DataSetReader
}

// StoreOption configures a Store at construction time.
type StoreOption func(*Store)

// WithStoreLogger sets the logger used for Store diagnostics.
func WithStoreLogger(logger *slog.Logger) StoreOption {
	return func(s *Store) { s.logger = logger }
}

// WithStoreMetrics attaches Prometheus instrumentation. A nil Metrics
// (the default if this option is never applied) makes every
// instrumentation call a no-op.
func WithStoreMetrics(m *Metrics) StoreOption {
	return func(s *Store) { s.metrics = m }
}

// NewStore constructs an empty Store.
func NewStore(opts ...StoreOption) *Store {
	s := &Store{
		logger:            slog.New(slog.NewTextHandler(io.Discard, nil)),
		connections:       make(map[ID]*Connection),
		publishedDataSets: make(map[ID]*PublishedDataSet),
		writerGroups:      make(map[ID]*WriterGroup),
		dataSetWriters:    make(map[ID]*DataSetWriter),
		readerGroups:      make(map[ID]*ReaderGroup),
		dataSetReaders:    make(map[ID]*DataSetReader),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// AddConnection parses cfg.ProfileURL, opens cfg.Channel, and registers a
// new Connection. On any failure the channel is left unopened and no
// state is recorded.
func (s *Store) AddConnection(cfg ConnectionConfig) (ID, error) {
	if cfg.Channel == nil {
		return ID{}, BadInvalidArgument.Wrap("connection requires a channel")
	}
	profile, err := transport.ParseProfileURL(cfg.ProfileURL)
	if err != nil {
		return ID{}, BadInvalidArgument.WrapErr(err)
	}

	if err := cfg.Channel.Open(); err != nil {
		return ID{}, BadCommunicationError.WrapErr(err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := NewID()
	s.connections[id] = &Connection{
		id:           id,
		profileURL:   profile,
		publisherID:  cfg.PublisherID,
		channel:      cfg.Channel,
		writerGroups: make(map[ID]*WriterGroup),
		readerGroups: make(map[ID]*ReaderGroup),
	}
	return id, nil
}

// RemoveConnection closes the connection's channel and removes every
// WriterGroup, DataSetWriter, ReaderGroup, and DataSetReader it owns.
func (s *Store) RemoveConnection(id ID) error {
	s.mu.Lock()
	conn, ok := s.connections[id]
	if !ok {
		s.mu.Unlock()
		return BadNotFound.Wrap("connection not found")
	}
	for gid := range conn.writerGroups {
		s.removeWriterGroupLocked(gid, true)
	}
	for gid := range conn.readerGroups {
		s.removeReaderGroupLocked(gid)
	}
	delete(s.connections, id)
	s.mu.Unlock()

	if err := conn.channel.Close(); err != nil {
		s.logger.Warn("pubsub: error closing connection channel", "connection", id, "error", err)
	}
	return nil
}

// FindConnection returns the connection registered under id.
func (s *Store) FindConnection(id ID) (*Connection, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	c, ok := s.connections[id]
	return c, ok
}

// AddPublishedDataSet registers a new PDS, copying cfg's fields so the
// caller may reuse or discard its original.
func (s *Store) AddPublishedDataSet(cfg PublishedDataSetConfig) (ID, error) {
	fields := make([]DataSetField, len(cfg.Fields))
	for i, f := range cfg.Fields {
		if f.NodeID == "" && f.Backend == nil {
			return ID{}, BadInvalidArgument.Wrap("field has neither a node reference nor a static backend")
		}
		fields[i] = DataSetField{
			Alias:       f.Alias,
			AttributeID: f.AttributeID,
			BuiltInType: f.BuiltInType,
			NodeID:      f.NodeID,
			Backend:     f.Backend,
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	id := NewID()
	s.publishedDataSets[id] = &PublishedDataSet{
		id:                 id,
		name:               cfg.Name,
		fields:             fields,
		referencingWriters: make(map[ID]struct{}),
	}
	return id, nil
}

// RemovePublishedDataSet removes a PDS, failing with BadConfigurationError
// if any DataSetWriter still references it.
func (s *Store) RemovePublishedDataSet(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	pds, ok := s.publishedDataSets[id]
	if !ok {
		return BadNotFound.Wrap("published data set not found")
	}
	if len(pds.referencingWriters) > 0 {
		return BadConfigurationError.Wrap("published data set is referenced by a data set writer")
	}
	delete(s.publishedDataSets, id)
	return nil
}

// AddDataSetField appends a field to pds, returning its index. Fails with
// BadConfigurationLocked if pds is referenced by a frozen WriterGroup.
func (s *Store) AddDataSetField(pdsID ID, cfg DataSetFieldConfig) (int, error) {
	if cfg.NodeID == "" && cfg.Backend == nil {
		return 0, BadInvalidArgument.Wrap("field has neither a node reference nor a static backend")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	pds, ok := s.publishedDataSets[pdsID]
	if !ok {
		return 0, BadNotFound.Wrap("published data set not found")
	}
	for writerID := range pds.referencingWriters {
		writer := s.dataSetWriters[writerID]
		if writer == nil {
			continue
		}
		if group := s.writerGroups[writer.groupID]; group != nil && group.frozen {
			return 0, BadConfigurationLocked.Wrap("published data set is referenced by a frozen writer group")
		}
	}

	pds.fields = append(pds.fields, DataSetField{
		Alias:       cfg.Alias,
		AttributeID: cfg.AttributeID,
		BuiltInType: cfg.BuiltInType,
		NodeID:      cfg.NodeID,
		Backend:     cfg.Backend,
	})
	return len(pds.fields) - 1, nil
}

// AddWriterGroup registers a new WriterGroup under connID.
func (s *Store) AddWriterGroup(connID ID, cfg WriterGroupConfig) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[connID]
	if !ok {
		return ID{}, BadNotFound.Wrap("connection not found")
	}

	id := NewID()
	group := &WriterGroup{id: id, connectionID: connID, config: cfg}
	s.writerGroups[id] = group
	conn.writerGroups[id] = group
	return id, nil
}

// RemoveWriterGroup removes a WriterGroup, failing with
// BadConfigurationError if any DataSetWriter inside it is enabled.
func (s *Store) RemoveWriterGroup(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeWriterGroupLocked(id, false)
}

func (s *Store) removeWriterGroupLocked(id ID, force bool) error {
	group, ok := s.writerGroups[id]
	if !ok {
		return BadNotFound.Wrap("writer group not found")
	}
	if !force {
		for _, w := range group.writers {
			if w.Enabled() {
				return BadConfigurationError.Wrap("writer group has an enabled data set writer")
			}
		}
	}
	for _, w := range group.writers {
		if w.pds != nil {
			delete(w.pds.referencingWriters, w.id)
		}
		delete(s.dataSetWriters, w.id)
	}
	if conn, ok := s.connections[group.connectionID]; ok {
		delete(conn.writerGroups, id)
	}
	delete(s.writerGroups, id)
	return nil
}

// AddDataSetWriter registers a new DataSetWriter under groupID, bound to
// the PublishedDataSet cfg.PublishedDataSetID. Fails with
// BadConfigurationLocked if the group is frozen.
func (s *Store) AddDataSetWriter(groupID ID, cfg DataSetWriterConfig) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.writerGroups[groupID]
	if !ok {
		return ID{}, BadNotFound.Wrap("writer group not found")
	}
	if group.frozen {
		return ID{}, BadConfigurationLocked.Wrap("writer group is frozen")
	}
	pds, ok := s.publishedDataSets[cfg.PublishedDataSetID]
	if !ok {
		return ID{}, BadNotFound.Wrap("published data set not found")
	}

	id := NewID()
	writer := &DataSetWriter{id: id, groupID: groupID, config: cfg, pds: pds}
	s.dataSetWriters[id] = writer
	pds.referencingWriters[id] = struct{}{}
	group.writers = append(group.writers, writer)
	return id, nil
}

// RemoveDataSetWriter removes a DataSetWriter, failing with
// BadConfigurationError if it is currently enabled.
func (s *Store) RemoveDataSetWriter(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	writer, ok := s.dataSetWriters[id]
	if !ok {
		return BadNotFound.Wrap("data set writer not found")
	}
	if writer.Enabled() {
		return BadConfigurationError.Wrap("data set writer is enabled")
	}
	group := s.writerGroups[writer.groupID]
	if group != nil {
		for i, w := range group.writers {
			if w.id == id {
				group.writers = append(group.writers[:i], group.writers[i+1:]...)
				break
			}
		}
	}
	if writer.pds != nil {
		delete(writer.pds.referencingWriters, id)
	}
	delete(s.dataSetWriters, id)
	return nil
}

// AddReaderGroup registers a new ReaderGroup under connID.
func (s *Store) AddReaderGroup(connID ID, cfg ReaderGroupConfig) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	conn, ok := s.connections[connID]
	if !ok {
		return ID{}, BadNotFound.Wrap("connection not found")
	}

	id := NewID()
	group := &ReaderGroup{id: id, connectionID: connID, config: cfg}
	s.readerGroups[id] = group
	conn.readerGroups[id] = group
	return id, nil
}

// RemoveReaderGroup removes a ReaderGroup and every DataSetReader it owns.
func (s *Store) RemoveReaderGroup(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.removeReaderGroupLocked(id)
}

func (s *Store) removeReaderGroupLocked(id ID) error {
	group, ok := s.readerGroups[id]
	if !ok {
		return BadNotFound.Wrap("reader group not found")
	}
	for _, r := range group.readers {
		delete(s.dataSetReaders, r.id)
	}
	if conn, ok := s.connections[group.connectionID]; ok {
		delete(conn.readerGroups, id)
		removed := make(map[ID]struct{}, len(group.readers))
		for _, r := range group.readers {
			removed[r.id] = struct{}{}
		}
		kept := conn.readerOrder[:0]
		for _, rid := range conn.readerOrder {
			if _, gone := removed[rid]; !gone {
				kept = append(kept, rid)
			}
		}
		conn.readerOrder = kept
	}
	delete(s.readerGroups, id)
	return nil
}

// AddDataSetReader registers a new DataSetReader under groupID. Fails
// with BadConfigurationLocked if the group is frozen (freezing fixes the
// reader set at exactly one reader; adding another would violate that).
func (s *Store) AddDataSetReader(groupID ID, cfg DataSetReaderConfig) (ID, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	group, ok := s.readerGroups[groupID]
	if !ok {
		return ID{}, BadNotFound.Wrap("reader group not found")
	}
	if group.frozen {
		return ID{}, BadConfigurationLocked.Wrap("reader group is frozen")
	}

	targets := make([]TargetVariable, len(cfg.Targets))
	for i, t := range cfg.Targets {
		targets[i] = TargetVariable{FieldIndex: t.FieldIndex, NodeID: t.NodeID, Backend: t.Backend}
	}

	id := NewID()
	reader := &DataSetReader{id: id, groupID: groupID, config: cfg, targets: targets}
	s.dataSetReaders[id] = reader
	group.readers = append(group.readers, reader)
	if conn, ok := s.connections[group.connectionID]; ok {
		conn.readerOrder = append(conn.readerOrder, id)
	}
	return id, nil
}

// RemoveDataSetReader removes a DataSetReader.
func (s *Store) RemoveDataSetReader(id ID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	reader, ok := s.dataSetReaders[id]
	if !ok {
		return BadNotFound.Wrap("data set reader not found")
	}
	group := s.readerGroups[reader.groupID]
	if group != nil {
		for i, r := range group.readers {
			if r.id == id {
				group.readers = append(group.readers[:i], group.readers[i+1:]...)
				break
			}
		}
		if conn, ok := s.connections[group.connectionID]; ok {
			for i, rid := range conn.readerOrder {
				if rid == id {
					conn.readerOrder = append(conn.readerOrder[:i], conn.readerOrder[i+1:]...)
					break
				}
			}
		}
	}
	delete(s.dataSetReaders, id)
	return nil
}
