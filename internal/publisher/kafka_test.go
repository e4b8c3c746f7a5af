package publisher

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"stopped-vehicle-detector-go/internal/longterm"
	"stopped-vehicle-detector-go/pkg/models"

	"github.com/IBM/sarama"
	"github.com/IBM/sarama/mocks"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var publishedAt = time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

func newTestPublisher(t *testing.T) (*KafkaPublisher, *mocks.SyncProducer) {
	t.Helper()
	cfg := sarama.NewConfig()
	cfg.Producer.Return.Successes = true
	producer := mocks.NewSyncProducer(t, cfg)

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	p := NewKafkaPublisherWithProducer(producer, "alerts", logger)
	p.now = func() time.Time { return publishedAt }
	return p, producer
}

func testAlerts() []longterm.Alert {
	return []longterm.Alert{
		{
			Kind:      longterm.AlertLongTermStop,
			Severity:  longterm.SeverityHigh,
			Location:  models.Coordinates{Lat: 37.5, Lon: 127},
			Timestamp: publishedAt.Add(-time.Hour),
		},
		{
			Kind:     longterm.AlertStopCluster,
			Severity: longterm.SeverityHigh,
			Location: models.Coordinates{Lat: 37.5002, Lon: 127},
		},
	}
}

func TestPublish(t *testing.T) {
	p, producer := newTestPublisher(t)

	alerts := testAlerts()
	for _, want := range alerts {
		want := want
		producer.ExpectSendMessageWithCheckerFunctionAndSucceed(func(val []byte) error {
			var msg AlertMessage
			if err := json.Unmarshal(val, &msg); err != nil {
				return err
			}
			if msg.RunID != "run-1" || msg.Region != "seoul" {
				return errors.New("unexpected run or region")
			}
			if msg.Alert.Kind != want.Kind {
				return errors.New("unexpected alert type")
			}
			if !msg.PublishedAt.Equal(publishedAt) {
				return errors.New("unexpected publish time")
			}
			return nil
		})
	}

	require.NoError(t, p.Publish(context.Background(), "seoul", "run-1", alerts))
	require.NoError(t, p.Close())
}

func TestPublish_SendFailure(t *testing.T) {
	p, producer := newTestPublisher(t)

	producer.ExpectSendMessageAndSucceed()
	producer.ExpectSendMessageAndFail(sarama.ErrOutOfBrokers)

	err := p.Publish(context.Background(), "", "run-2", testAlerts())
	require.Error(t, err)
	assert.ErrorIs(t, err, sarama.ErrOutOfBrokers)
	assert.Contains(t, err.Error(), "alert 1")
	require.NoError(t, p.Close())
}

func TestPublish_CanceledContext(t *testing.T) {
	p, _ := newTestPublisher(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := p.Publish(ctx, "seoul", "run-3", testAlerts())
	assert.ErrorIs(t, err, context.Canceled)
	require.NoError(t, p.Close())
}

func TestPublish_NoAlerts(t *testing.T) {
	p, _ := newTestPublisher(t)
	assert.NoError(t, p.Publish(context.Background(), "seoul", "run-4", nil))
	require.NoError(t, p.Close())
}
