// Command pubsubdemo wires one PublishedDataSet through a UDP loopback
// connection and prints every value the subscribe side decodes back out,
// demonstrating the non-RT publish/subscribe path end to end.
package main

import (
	"fmt"
	"log"
	"time"

	"github.com/uapubsub/pubsub"
	"github.com/uapubsub/pubsub/internal/uadp"
	"github.com/uapubsub/pubsub/transport"
)

func main() {
	host, port, iface := "239.0.0.1", 4840, ""

	store := pubsub.NewStore()

	pubChan, err := transport.NewUDPChannel(host, port, iface)
	if err != nil {
		log.Fatalf("dial publish channel: %v", err)
	}
	subChan, err := transport.NewUDPChannel(host, port, iface)
	if err != nil {
		log.Fatalf("dial subscribe channel: %v", err)
	}

	profileURL := fmt.Sprintf("opc.udp://%s:%d/", host, port)
	pubConnID, err := store.AddConnection(pubsub.ConnectionConfig{
		ProfileURL:  profileURL,
		PublisherID: 1,
		Channel:     pubChan,
	})
	if err != nil {
		log.Fatalf("add publish connection: %v", err)
	}
	subConnID, err := store.AddConnection(pubsub.ConnectionConfig{
		ProfileURL:  profileURL,
		PublisherID: 1,
		Channel:     subChan,
	})
	if err != nil {
		log.Fatalf("add subscribe connection: %v", err)
	}

	temperature := pubsub.NewInternalBackend(pubsub.DataValue{Value: float64(21.5)})

	pdsID, err := store.AddPublishedDataSet(pubsub.PublishedDataSetConfig{
		Name: "Boiler1",
		Fields: []pubsub.DataSetFieldConfig{
			{Alias: "Temperature", BuiltInType: uadp.TypeDouble, Backend: temperature},
		},
	})
	if err != nil {
		log.Fatalf("add published data set: %v", err)
	}

	wgID, err := store.AddWriterGroup(pubConnID, pubsub.WriterGroupConfig{
		WriterGroupID:      1,
		PublishingInterval: time.Second,
		HasGroupHeader:     true,
		HasPayloadHeader:   true,
	})
	if err != nil {
		log.Fatalf("add writer group: %v", err)
	}
	if _, err := store.AddDataSetWriter(wgID, pubsub.DataSetWriterConfig{
		DataSetWriterID:    1,
		PublishedDataSetID: pdsID,
		Encoding:           uadp.EncodingVariant,
		Enabled:            true,
	}); err != nil {
		log.Fatalf("add data set writer: %v", err)
	}

	var lastValue float64
	var cell *pubsub.DataValue
	sink := pubsub.NewExternalBackend(&cell)
	sink.UserWrite = func(dv *pubsub.DataValue) {
		lastValue = dv.Value.(float64)
	}

	rgID, err := store.AddReaderGroup(subConnID, pubsub.ReaderGroupConfig{})
	if err != nil {
		log.Fatalf("add reader group: %v", err)
	}
	if _, err := store.AddDataSetReader(rgID, pubsub.DataSetReaderConfig{
		PublisherID:     1,
		WriterGroupID:   1,
		DataSetWriterID: 1,
		MetaData: pubsub.DataSetMetaData{
			Name:   "Boiler1",
			Fields: []pubsub.FieldMetaData{{Name: "Temperature", BuiltInType: uadp.TypeDouble}},
		},
		Targets: []pubsub.TargetVariableConfig{{FieldIndex: 0, Backend: sink}},
	}); err != nil {
		log.Fatalf("add data set reader: %v", err)
	}

	if err := store.PublishTick(wgID); err != nil {
		log.Fatalf("publish tick: %v", err)
	}
	if err := store.ReceiveLoop(subConnID, time.Second); err != nil {
		log.Fatalf("receive loop: %v", err)
	}

	fmt.Printf("subscriber observed Temperature = %.1f\n", lastValue)
}
