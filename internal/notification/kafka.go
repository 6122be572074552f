package notification

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/IBM/sarama"
)

// KafkaSender publishes notices to a topic, keyed by application id so every
// notice for one application lands on the same partition.
type KafkaSender struct {
	producer sarama.SyncProducer
	topic    string
	logger   *slog.Logger
}

func NewProducerConfig() *sarama.Config {
	config := sarama.NewConfig()
	config.Producer.Return.Successes = true
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.ClientID = "reimbursement-management"
	return config
}

func NewKafkaSender(brokers []string, topic string, logger *slog.Logger) (*KafkaSender, error) {
	producer, err := sarama.NewSyncProducer(brokers, NewProducerConfig())
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}
	logger.Info("kafka producer connected", "brokers", brokers, "topic", topic)
	return NewKafkaSenderWithProducer(producer, topic, logger), nil
}

func NewKafkaSenderWithProducer(producer sarama.SyncProducer, topic string, logger *slog.Logger) *KafkaSender {
	return &KafkaSender{
		producer: producer,
		topic:    topic,
		logger:   logger,
	}
}

type kafkaMessage struct {
	EventType string `json:"event_type"`
	Data      Notice `json:"data"`
}

func (s *KafkaSender) Notify(ctx context.Context, notice Notice) Result {
	body, err := json.Marshal(kafkaMessage{EventType: "application.submitted", Data: notice})
	if err != nil {
		return Failed(fmt.Errorf("failed to marshal notice: %w", err))
	}

	msg := &sarama.ProducerMessage{
		Topic: s.topic,
		Key:   sarama.StringEncoder(notice.ApplicationID),
		Value: sarama.ByteEncoder(body),
	}

	partition, offset, err := s.producer.SendMessage(msg)
	if err != nil {
		return Failed(fmt.Errorf("failed to send kafka message: %w", err))
	}

	s.logger.DebugContext(ctx, "notice sent to kafka",
		"topic", s.topic,
		"partition", partition,
		"offset", offset,
		"application_id", notice.ApplicationID)
	return Succeeded()
}

func (s *KafkaSender) Close() error {
	return s.producer.Close()
}
