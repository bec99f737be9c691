package kafka

import (
	"testing"

	"PShare/global"

	"github.com/Shopify/sarama"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeAdmin implements the three admin calls EnsureTopics makes.
type fakeAdmin struct {
	sarama.ClusterAdmin
	topics     map[string]int32
	created    []string
	expandedTo map[string]int32
	createErr  error
}

func (f *fakeAdmin) DescribeTopics(topics []string) ([]*sarama.TopicMetadata, error) {
	var out []*sarama.TopicMetadata
	for _, t := range topics {
		n, ok := f.topics[t]
		if !ok {
			out = append(out, &sarama.TopicMetadata{Name: t, Err: sarama.ErrUnknownTopicOrPartition})
			continue
		}
		md := &sarama.TopicMetadata{Name: t, Err: sarama.ErrNoError}
		for i := int32(0); i < n; i++ {
			md.Partitions = append(md.Partitions, &sarama.PartitionMetadata{ID: i})
		}
		out = append(out, md)
	}
	return out, nil
}

func (f *fakeAdmin) CreateTopic(topic string, detail *sarama.TopicDetail, _ bool) error {
	if f.createErr != nil {
		return f.createErr
	}
	f.created = append(f.created, topic)
	f.topics[topic] = detail.NumPartitions
	return nil
}

func (f *fakeAdmin) CreatePartitions(topic string, count int32, _ [][]int32, _ bool) error {
	if f.expandedTo == nil {
		f.expandedTo = map[string]int32{}
	}
	f.expandedTo[topic] = count
	f.topics[topic] = count
	return nil
}

func TestFromEvents(t *testing.T) {
	cfg, err := FromEvents(global.EventsConfig{
		KafkaBrokers: []string{"k1:9092", "k2:9092"},
		KafkaTopic:   "transfers",
		KafkaVersion: "2.8.0",
		Retries:      7,
		KafkaEnsure:  true,
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"k1:9092", "k2:9092"}, cfg.Brokers)
	assert.Equal(t, "transfers", cfg.Topic)
	assert.Equal(t, sarama.V2_8_0_0, cfg.KafkaVersion)
	assert.Equal(t, 7, cfg.ProducerRetries)
	assert.True(t, cfg.EnsureTopicOnStart)

	_, err = FromEvents(global.EventsConfig{KafkaVersion: "not-a-version"})
	assert.Error(t, err)
}

func TestBuildBaseConfig(t *testing.T) {
	app := DefaultConfig()
	app.ProducerRetries = 0
	app.ProducerCompression = "LZ4"
	cfg := BuildBaseConfig(app)

	assert.True(t, cfg.Producer.Return.Successes)
	assert.Equal(t, sarama.WaitForAll, cfg.Producer.RequiredAcks)
	assert.Equal(t, 1, cfg.Producer.Retry.Max)
	assert.Equal(t, sarama.CompressionLZ4, cfg.Producer.Compression)
	assert.NoError(t, cfg.Validate())
}

func TestEnsureTopicsCreatesMissing(t *testing.T) {
	admin := &fakeAdmin{topics: map[string]int32{}}
	app := DefaultConfig()

	require.NoError(t, EnsureTopics(admin, []string{"pshare.transfers"}, &app))
	assert.Equal(t, []string{"pshare.transfers"}, admin.created)
	assert.Equal(t, app.PartitionsPerTopic, admin.topics["pshare.transfers"])
}

func TestEnsureTopicsExpandsOnly(t *testing.T) {
	admin := &fakeAdmin{topics: map[string]int32{"small": 2, "big": 32}}
	app := DefaultConfig()

	require.NoError(t, EnsureTopics(admin, []string{"small", "big"}, &app))
	assert.Empty(t, admin.created)
	assert.Equal(t, map[string]int32{"small": app.PartitionsPerTopic}, admin.expandedTo)
	assert.Equal(t, int32(32), admin.topics["big"])
}

func TestEnsureTopicsToleratesCreateRace(t *testing.T) {
	admin := &fakeAdmin{
		topics:    map[string]int32{},
		createErr: &sarama.TopicError{Err: sarama.ErrTopicAlreadyExists},
	}
	app := DefaultConfig()
	assert.NoError(t, EnsureTopics(admin, []string{"t"}, &app))
}
