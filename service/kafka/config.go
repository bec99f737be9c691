package kafka

import (
	"strings"

	"PShare/global"
	"PShare/tools/errs"

	"github.com/Shopify/sarama"
)

// AppConfig is the producer side setup for the transfer journal topic.
type AppConfig struct {
	Brokers             []string
	Topic               string
	PartitionsPerTopic  int32
	ReplicationFactor   int16
	ProducerRetries     int
	ProducerCompression string // none/snappy/lz4/zstd
	KafkaVersion        sarama.KafkaVersion
	EnsureTopicOnStart  bool
}

// DefaultConfig suits a single local broker.
func DefaultConfig() AppConfig {
	return AppConfig{
		Brokers:             []string{"127.0.0.1:9092"},
		Topic:               "pshare.transfers",
		PartitionsPerTopic:  8,
		ReplicationFactor:   1,
		ProducerRetries:     5,
		ProducerCompression: "snappy",
		KafkaVersion:        sarama.V2_1_0_0,
	}
}

// FromEvents overlays the events section of the process config on the defaults.
func FromEvents(ev global.EventsConfig) (AppConfig, error) {
	cfg := DefaultConfig()
	if len(ev.KafkaBrokers) > 0 {
		cfg.Brokers = ev.KafkaBrokers
	}
	if ev.KafkaTopic != "" {
		cfg.Topic = ev.KafkaTopic
	}
	if ev.Retries > 0 {
		cfg.ProducerRetries = ev.Retries
	}
	if v := strings.TrimSpace(ev.KafkaVersion); v != "" {
		kv, err := sarama.ParseKafkaVersion(v)
		if err != nil {
			return cfg, errs.WrapMsg(err, "invalid kafka version", "version", v)
		}
		cfg.KafkaVersion = kv
	}
	cfg.EnsureTopicOnStart = ev.KafkaEnsure
	return cfg, nil
}
