package events

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"PShare/global"
	"PShare/service/natsx"

	"github.com/Shopify/sarama"
	"github.com/Shopify/sarama/mocks"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestKafkaSinkSendsJSON(t *testing.T) {
	p := mocks.NewSyncProducer(t, nil)
	var payload TransferRecord
	p.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
		return json.Unmarshal(val, &payload)
	})

	sink := NewKafkaSink(p, "pshare.transfers")
	in := rec("r-1")
	require.NoError(t, sink.Publish(context.Background(), in))
	require.NoError(t, sink.Close())

	assert.Equal(t, "r-1", payload.ID)
	assert.Equal(t, OutcomeDelivered, payload.Outcome)
}

func TestKafkaSinkReportsFailure(t *testing.T) {
	p := mocks.NewSyncProducer(t, nil)
	p.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	sink := NewKafkaSink(p, "pshare.transfers")
	assert.Error(t, sink.Publish(context.Background(), rec("r-1")))
	require.NoError(t, sink.Close())
}

type capturePublisher struct {
	biz   string
	data  []byte
	hdr   map[string]string
	msgID string
}

func (c *capturePublisher) PublishOnce(_ context.Context, biz string, data []byte, hdr map[string]string, msgID string) error {
	c.biz, c.data, c.hdr, c.msgID = biz, data, hdr, msgID
	return nil
}

func TestNatsSinkUsesRecordIDForDedupe(t *testing.T) {
	cp := &capturePublisher{}
	sink := NewNatsSink(nil, &natsx.NatsxSyncPublisher{P: cp, Backoff: time.Millisecond})

	in := rec("r-9")
	in.Outcome = OutcomeReceiverOffline
	require.NoError(t, sink.Publish(context.Background(), in))
	require.NoError(t, sink.Close())

	assert.Equal(t, transferBiz, cp.biz)
	assert.Equal(t, "r-9", cp.msgID)
	assert.Equal(t, "receiver_offline", cp.hdr["Outcome"])

	var out TransferRecord
	require.NoError(t, json.Unmarshal(cp.data, &out))
	assert.Equal(t, in.FileID, out.FileID)
}

func TestNewSinkDefaultsToLog(t *testing.T) {
	s, err := NewSink(global.EventsConfig{Driver: global.EventsNone})
	require.NoError(t, err)
	assert.IsType(t, LogSink{}, s)
	assert.NoError(t, s.Publish(context.Background(), rec("x")))

	_, err = NewSink(global.EventsConfig{Driver: "carrier-pigeon"})
	assert.Error(t, err)
}
