package publisher

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"

	"github.com/IBM/sarama"
	"github.com/sirupsen/logrus"
)

const defaultKey = "default"

// AlertMessage сообщение об оповещении в Kafka
type AlertMessage struct {
	RunID       string         `json:"run_id"`
	Region      string         `json:"region,omitempty"`
	Alert       longterm.Alert `json:"alert"`
	PublishedAt time.Time      `json:"published_at"`
}

// KafkaPublisher отправляет оповещения в топик Kafka
type KafkaPublisher struct {
	producer sarama.SyncProducer
	topic    string
	logger   *logrus.Logger
	now      func() time.Time
}

// NewKafkaPublisher подключается к брокерам и создает синхронного продюсера
func NewKafkaPublisher(brokers []string, topic string, logger *logrus.Logger) (*KafkaPublisher, error) {
	config := sarama.NewConfig()
	config.Producer.RequiredAcks = sarama.WaitForAll
	config.Producer.Retry.Max = 5
	config.Producer.Retry.Backoff = 100 * time.Millisecond
	config.Producer.Return.Successes = true
	config.Net.DialTimeout = 30 * time.Second
	config.Net.ReadTimeout = 30 * time.Second
	config.Net.WriteTimeout = 30 * time.Second

	producer, err := sarama.NewSyncProducer(brokers, config)
	if err != nil {
		return nil, fmt.Errorf("failed to create kafka producer: %w", err)
	}

	return NewKafkaPublisherWithProducer(producer, topic, logger), nil
}

// NewKafkaPublisherWithProducer использует готового продюсера
func NewKafkaPublisherWithProducer(producer sarama.SyncProducer, topic string, logger *logrus.Logger) *KafkaPublisher {
	return &KafkaPublisher{
		producer: producer,
		topic:    topic,
		logger:   logger,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Publish отправляет каждое оповещение отдельным сообщением с ключом области
func (p *KafkaPublisher) Publish(ctx context.Context, region, runID string, alerts []longterm.Alert) error {
	key := region
	if key == "" {
		key = defaultKey
	}

	for i, alert := range alerts {
		if err := ctx.Err(); err != nil {
			return fmt.Errorf("publish interrupted after %d of %d alerts: %w", i, len(alerts), err)
		}

		payload, err := json.Marshal(AlertMessage{
			RunID:       runID,
			Region:      region,
			Alert:       alert,
			PublishedAt: p.now(),
		})
		if err != nil {
			return fmt.Errorf("failed to marshal alert: %w", err)
		}

		partition, offset, err := p.producer.SendMessage(&sarama.ProducerMessage{
			Topic: p.topic,
			Key:   sarama.StringEncoder(key),
			Value: sarama.ByteEncoder(payload),
		})
		if err != nil {
			return fmt.Errorf("failed to send alert %d to topic %s: %w", i, p.topic, err)
		}

		p.logger.WithFields(logrus.Fields{
			"topic":     p.topic,
			"partition": partition,
			"offset":    offset,
			"type":      alert.Kind,
		}).Debug("Оповещение отправлено")
	}

	return nil
}

// Close закрывает продюсера
func (p *KafkaPublisher) Close() error {
	return p.producer.Close()
}
