package events

import (
	"context"
	"time"

	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/adapters/kafka"
	"github.com/yekaipow/Hyper-Alpha-Arena2/internal/metrics"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/errors"
	"github.com/yekaipow/Hyper-Alpha-Arena2/pkg/logger"
)

// Publisher publishes pipeline events to Kafka
type Publisher struct {
	producer *kafka.Producer
	log      *logger.Logger
}

// NewPublisher creates a new event publisher
func NewPublisher(producer *kafka.Producer, log *logger.Logger) *Publisher {
	return &Publisher{
		producer: producer,
		log:      log,
	}
}

// PublishRegimeChange publishes a regime transition event
func (p *Publisher) PublishRegimeChange(ctx context.Context, event *RegimeChangeEvent) error {
	if event.EventID == "" {
		event.EventID = newEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	err := p.publish(ctx, kafka.TopicRegimeChange, event.Symbol, event)
	if err != nil {
		return err
	}

	p.log.Info("Regime change published",
		"symbol", event.Symbol,
		"timeframe", event.Timeframe,
		"old_regime", event.OldRegime,
		"new_regime", event.NewRegime,
	)
	return nil
}

// PublishDataGap publishes a stream data gap event
func (p *Publisher) PublishDataGap(ctx context.Context, event *DataGapEvent) error {
	if event.EventID == "" {
		event.EventID = newEventID()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	return p.publish(ctx, kafka.TopicDataGap, event.Symbol, event)
}

func (p *Publisher) publish(ctx context.Context, topic, key string, event interface{}) error {
	err := p.producer.Publish(ctx, topic, key, event)
	metrics.RecordKafkaMessage(topic, "produced", err)
	if err != nil {
		p.log.Error("Failed to publish event",
			"topic", topic,
			"key", key,
			"error", err,
		)
		return errors.Wrap(err, "send to kafka")
	}

	p.log.Debug("Event published", "topic", topic, "key", key)
	return nil
}
