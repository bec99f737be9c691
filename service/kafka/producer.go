package kafka

import (
	"strings"
	"time"

	"PShare/logger"
	"PShare/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// BuildBaseConfig maps AppConfig onto a sarama config for a keyed sync producer.
func BuildBaseConfig(app AppConfig) *sarama.Config {
	cfg := sarama.NewConfig()
	cfg.Version = app.KafkaVersion
	cfg.ClientID = "pshare"

	cfg.Producer.Return.Successes = true
	cfg.Producer.Return.Errors = true
	cfg.Producer.RequiredAcks = sarama.WaitForAll
	if app.ProducerRetries <= 0 {
		app.ProducerRetries = 1
	}
	cfg.Producer.Retry.Max = app.ProducerRetries
	// records with the same key land on the same partition
	cfg.Producer.Partitioner = sarama.NewHashPartitioner
	switch strings.ToLower(app.ProducerCompression) {
	case "snappy":
		cfg.Producer.Compression = sarama.CompressionSnappy
	case "lz4":
		cfg.Producer.Compression = sarama.CompressionLZ4
	case "zstd":
		cfg.Producer.Compression = sarama.CompressionZSTD
	default:
		cfg.Producer.Compression = sarama.CompressionNone
	}

	cfg.Net.DialTimeout = 10 * time.Second
	cfg.Net.ReadTimeout = 30 * time.Second
	cfg.Net.WriteTimeout = 30 * time.Second
	return cfg
}

// Producer pairs a client with the sync producer built on it.
type Producer struct {
	client sarama.Client
	sarama.SyncProducer
}

// NewProducer connects to the brokers and, when asked, creates the topic first.
func NewProducer(app AppConfig) (*Producer, error) {
	if len(app.Brokers) == 0 || app.Topic == "" {
		return nil, errs.New("kafka brokers and topic are required")
	}
	client, err := sarama.NewClient(app.Brokers, BuildBaseConfig(app))
	if err != nil {
		return nil, errs.WrapMsg(err, "kafka client", "brokers", app.Brokers)
	}
	if app.EnsureTopicOnStart {
		admin, err := sarama.NewClusterAdminFromClient(client)
		if err != nil {
			_ = client.Close()
			return nil, errs.WrapMsg(err, "kafka admin")
		}
		// the admin shares the client; closing it here would close the client
		if err := EnsureTopics(admin, []string{app.Topic}, &app); err != nil {
			_ = client.Close()
			return nil, err
		}
	}
	sp, err := sarama.NewSyncProducerFromClient(client)
	if err != nil {
		_ = client.Close()
		return nil, errs.WrapMsg(err, "kafka sync producer")
	}
	logger.Info("[kafka] producer ready", zap.Strings("brokers", app.Brokers), zap.String("topic", app.Topic))
	return &Producer{client: client, SyncProducer: sp}, nil
}

// Close stops the producer and then the client.
func (p *Producer) Close() error {
	err := p.SyncProducer.Close()
	if cerr := p.client.Close(); err == nil && cerr != nil && !errs.Is(cerr, sarama.ErrClosedClient) {
		err = cerr
	}
	return err
}
