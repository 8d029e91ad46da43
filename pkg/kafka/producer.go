package kafka

import (
	"context"
	"encoding/json"
	"time"

	"github.com/Gobusters/ectologger"
	"github.com/segmentio/kafka-go"

	"github.com/Ramsey-B/acre/pkg/models"
	"github.com/Ramsey-B/acre/pkg/tracing"
)

// Producer handles Kafka event emission
type Producer struct {
	writer *kafka.Writer
	logger ectologger.Logger
	topic  string
}

// ProducerConfig holds Kafka producer configuration
type ProducerConfig struct {
	Brokers      []string
	Topic        string
	BatchSize    int
	BatchTimeout time.Duration
	RequiredAcks int
	Compression  string
}

// NewProducer creates a new Kafka producer
func NewProducer(cfg ProducerConfig, logger ectologger.Logger) *Producer {
	compression := kafka.Snappy
	switch cfg.Compression {
	case "gzip":
		compression = kafka.Gzip
	case "lz4":
		compression = kafka.Lz4
	case "zstd":
		compression = kafka.Zstd
	case "none":
		compression = 0
	}

	writer := &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Balancer:               &kafka.LeastBytes{},
		BatchSize:              cfg.BatchSize,
		BatchTimeout:           cfg.BatchTimeout,
		RequiredAcks:           kafka.RequiredAcks(cfg.RequiredAcks),
		Compression:            compression,
		AllowAutoTopicCreation: true,
	}

	return &Producer{
		writer: writer,
		logger: logger,
		topic:  cfg.Topic,
	}
}

// Close closes the producer
func (p *Producer) Close() error {
	return p.writer.Close()
}

// ResolvedEvent is the wire form of a transaction bound to its parcel.
type ResolvedEvent struct {
	EventID      string          `json:"event_id"`
	CanonicalKey string          `json:"canonical_key"`
	MatchStage   models.Stage    `json:"match_stage"`
	CountyName   string          `json:"county_name"`
	EventType    string          `json:"event_type"`
	EventDate    time.Time       `json:"event_date"`
	Source       string          `json:"source"`
	Payload      json.RawMessage `json:"payload,omitempty"`
	Timestamp    time.Time       `json:"timestamp"`
}

// PublishEvent publishes a transaction event for the ingestion pipeline.
func (p *Producer) PublishEvent(ctx context.Context, event *models.CreateEventRequest) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishEvent")
	defer span.End()

	data, err := json.Marshal(event)
	if err != nil {
		return err
	}

	msg := kafka.Message{
		Topic: p.topic,
		Key:   []byte(event.RawParcelID),
		Value: data,
		Headers: []kafka.Header{
			{Key: "county_name", Value: []byte(event.CountyName)},
			{Key: "source", Value: []byte(event.Source)},
		},
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		p.logger.WithContext(ctx).WithError(err).Error("Failed to publish event")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"raw_parcel_identification": event.RawParcelID,
		"county_name":               event.CountyName,
	}).Debug("Published event")

	return nil
}

// PublishResolvedEvents publishes a batch of resolved transactions, keyed by
// canonical key so a parcel's events land in order on one partition.
func (p *Producer) PublishResolvedEvents(ctx context.Context, events []models.ResolvedTransaction) error {
	ctx, span := tracing.StartSpan(ctx, "kafka.Producer.PublishResolvedEvents")
	defer span.End()

	if len(events) == 0 {
		return nil
	}

	now := time.Now().UTC()
	messages := make([]kafka.Message, len(events))
	for i, event := range events {
		data, err := json.Marshal(&ResolvedEvent{
			EventID:      event.EventID,
			CanonicalKey: event.CanonicalKey,
			MatchStage:   event.MatchStage,
			CountyName:   event.CountyName,
			EventType:    event.EventType,
			EventDate:    event.EventDate,
			Source:       event.Source,
			Payload:      event.Payload,
			Timestamp:    now,
		})
		if err != nil {
			return err
		}

		messages[i] = kafka.Message{
			Topic: p.topic,
			Key:   []byte(event.CanonicalKey),
			Value: data,
			Headers: []kafka.Header{
				{Key: "match_stage", Value: []byte(event.MatchStage)},
				{Key: "county_name", Value: []byte(event.CountyName)},
				{Key: "schema_version", Value: []byte("1.0")},
			},
		}
	}

	if err := p.writer.WriteMessages(ctx, messages...); err != nil {
		p.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"batch_size": len(events),
		}).Error("Failed to publish resolved events batch")
		return err
	}

	p.logger.WithContext(ctx).WithFields(map[string]any{
		"batch_size": len(events),
	}).Debug("Published resolved events batch")

	return nil
}
