package events

import (
	"context"
	"encoding/json"

	"PShare/global"
	"PShare/logger"
	"PShare/service/kafka"
	"PShare/service/natsx"
	"PShare/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// Sink ships journal records somewhere durable.
type Sink interface {
	Publish(ctx context.Context, rec TransferRecord) error
	Close() error
}

// LogSink writes records to the process log. Used when no broker is configured.
type LogSink struct{}

func (LogSink) Publish(_ context.Context, rec TransferRecord) error {
	logger.Debug("[journal] transfer",
		zap.String("id", rec.ID),
		zap.String("outcome", string(rec.Outcome)),
		zap.String("fileId", rec.FileID),
		zap.String("sender", rec.SenderID),
		zap.String("receiver", rec.ReceiverID))
	return nil
}

func (LogSink) Close() error { return nil }

const transferBiz = "transfer"

// NatsSink publishes records to a subject, optionally through JetStream.
type NatsSink struct {
	client *natsx.NatsxClient
	pub    *natsx.NatsxSyncPublisher
}

// NewNatsSink wraps an existing producer; client may be nil in tests.
func NewNatsSink(client *natsx.NatsxClient, pub *natsx.NatsxSyncPublisher) *NatsSink {
	return &NatsSink{client: client, pub: pub}
}

func (s *NatsSink) Publish(ctx context.Context, rec TransferRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return errs.WrapMsg(err, "encode transfer record")
	}
	hdr := map[string]string{"Outcome": string(rec.Outcome)}
	// the record id doubles as the dedupe id so retries are stored once
	return s.pub.Publish(ctx, transferBiz, b, hdr, rec.ID)
}

func (s *NatsSink) Close() error {
	if s.client == nil {
		return nil
	}
	return s.client.Close()
}

// KafkaSink writes records to one topic keyed by sender, so a sender's
// records stay ordered within a partition.
type KafkaSink struct {
	producer sarama.SyncProducer
	topic    string
}

func NewKafkaSink(p sarama.SyncProducer, topic string) *KafkaSink {
	return &KafkaSink{producer: p, topic: topic}
}

func (s *KafkaSink) Publish(_ context.Context, rec TransferRecord) error {
	b, err := json.Marshal(rec)
	if err != nil {
		return errs.WrapMsg(err, "encode transfer record")
	}
	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(rec.SenderID),
		Value: sarama.ByteEncoder(b),
		Headers: []sarama.RecordHeader{
			{Key: []byte("outcome"), Value: []byte(rec.Outcome)},
		},
	}
	if _, _, err := s.producer.SendMessage(msg); err != nil {
		return errs.WrapMsg(err, "kafka send", "topic", s.topic)
	}
	return nil
}

func (s *KafkaSink) Close() error { return s.producer.Close() }

// NewSink builds the sink selected by cfg.Driver.
func NewSink(cfg global.EventsConfig) (Sink, error) {
	switch cfg.Driver {
	case "", global.EventsNone:
		return LogSink{}, nil
	case global.EventsNats:
		mode := natsx.Core
		if cfg.NatsJetStream {
			mode = natsx.JetStream
		}
		client, err := natsx.NewNatsxClient(natsx.NatsxConfig{
			Servers:  cfg.NatsServers,
			Name:     "pshare-journal",
			User:     cfg.NatsUser,
			Password: cfg.NatsPassword,
		})
		if err != nil {
			return nil, err
		}
		if err := client.RegisterRoute(natsx.NatsxRoute{Biz: transferBiz, Subject: cfg.NatsSubject, Mode: mode}); err != nil {
			_ = client.Close()
			return nil, err
		}
		pub := &natsx.NatsxSyncPublisher{
			P:       natsx.NewNatsxProducer(client),
			Retries: cfg.Retries,
			Backoff: cfg.Backoff,
		}
		return NewNatsSink(client, pub), nil
	case global.EventsKafka:
		app, err := kafka.FromEvents(cfg)
		if err != nil {
			return nil, err
		}
		p, err := kafka.NewProducer(app)
		if err != nil {
			return nil, err
		}
		return NewKafkaSink(p, app.Topic), nil
	default:
		return nil, errs.New("unknown events driver", "driver", cfg.Driver)
	}
}
