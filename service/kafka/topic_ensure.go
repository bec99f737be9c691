package kafka

import (
	"errors"

	"PShare/logger"
	"PShare/tools/errs"

	"github.com/Shopify/sarama"
	"go.uber.org/zap"
)

// EnsureTopics creates missing topics and grows existing ones up to the
// configured partition count. Kafka cannot shrink partitions.
func EnsureTopics(admin sarama.ClusterAdmin, topics []string, appCfg *AppConfig) error {
	for _, t := range topics {
		descs, err := admin.DescribeTopics([]string{t})
		if err != nil {
			return errs.WrapMsg(err, "describe topic", "topic", t)
		}
		exists := len(descs) == 1 && descs[0].Err == sarama.ErrNoError

		minISR := "1"
		if appCfg.ReplicationFactor >= 3 {
			minISR = "2"
		}

		if !exists {
			td := &sarama.TopicDetail{
				NumPartitions:     appCfg.PartitionsPerTopic,
				ReplicationFactor: appCfg.ReplicationFactor,
				ConfigEntries: map[string]*string{
					"cleanup.policy":                 strPtr("delete"),
					"min.insync.replicas":            strPtr(minISR),
					"unclean.leader.election.enable": strPtr("false"),
					"compression.type":               strPtr("producer"),
				},
			}
			if err := admin.CreateTopic(t, td, false); err != nil {
				var te *sarama.TopicError
				if (errors.As(err, &te) && te.Err == sarama.ErrTopicAlreadyExists) || errors.Is(err, sarama.ErrTopicAlreadyExists) {
					logger.Info("[kafka] topic exists (race)", zap.String("topic", t))
					continue
				}
				return errs.WrapMsg(err, "create topic", "topic", t)
			}
			logger.Info("[kafka] topic created", zap.String("topic", t),
				zap.Int32("partitions", appCfg.PartitionsPerTopic), zap.Int16("rf", appCfg.ReplicationFactor))
			continue
		}

		cur := int32(len(descs[0].Partitions))
		if appCfg.PartitionsPerTopic > cur {
			if err := admin.CreatePartitions(t, appCfg.PartitionsPerTopic, nil, false); err != nil {
				return errs.WrapMsg(err, "expand partitions", "topic", t, "from", cur, "to", appCfg.PartitionsPerTopic)
			}
			logger.Info("[kafka] partitions expanded", zap.String("topic", t),
				zap.Int32("from", cur), zap.Int32("to", appCfg.PartitionsPerTopic))
		} else {
			logger.Debug("[kafka] topic exists", zap.String("topic", t), zap.Int32("partitions", cur))
		}
	}
	return nil
}

func strPtr(s string) *string { return &s }
