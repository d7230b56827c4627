package kafka

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/couchcryptid/polling-place-etl/internal/domain"
	kafkago "github.com/segmentio/kafka-go"
)

// Scheme prefixes an output location that names a Kafka topic:
// kafka://broker1:9092,broker2:9092/topic.
const Scheme = "kafka://"

// batchSize bounds the number of messages per WriteMessages call.
const batchSize = 500

// IsURL reports whether an output location names a Kafka topic.
func IsURL(loc string) bool {
	return strings.HasPrefix(strings.ToLower(loc), Scheme)
}

// ParseURL splits a kafka:// location into brokers and topic.
func ParseURL(loc string) (brokers []string, topic string, err error) {
	u, err := url.Parse(loc)
	if err != nil {
		return nil, "", fmt.Errorf("parse kafka url: %w", err)
	}
	if !strings.EqualFold(u.Scheme, "kafka") {
		return nil, "", fmt.Errorf("expected kafka scheme, got %q", u.Scheme)
	}
	for _, b := range strings.Split(u.Host, ",") {
		if b = strings.TrimSpace(b); b != "" {
			brokers = append(brokers, b)
		}
	}
	if len(brokers) == 0 {
		return nil, "", errors.New("kafka url has no brokers")
	}
	topic = strings.Trim(u.Path, "/")
	if topic == "" || strings.Contains(topic, "/") {
		return nil, "", fmt.Errorf("invalid kafka topic %q", topic)
	}
	return brokers, topic, nil
}

// Writer publishes polling place records to a Kafka topic, one message per
// record keyed by record ID. It implements pipeline.Sink.
type Writer struct {
	writer  *kafkago.Writer
	runID   string
	logger  *slog.Logger
	nowFunc func() time.Time
}

// NewWriter creates a Kafka producer for the given topic. runID is attached to
// every message as a header so consumers can group one ingestion run.
func NewWriter(brokers []string, topic, runID string, logger *slog.Logger) *Writer {
	w := &kafkago.Writer{
		Addr:         kafkago.TCP(brokers...),
		Topic:        topic,
		Balancer:     &kafkago.Hash{},
		RequiredAcks: kafkago.RequireAll,
	}
	return &Writer{writer: w, runID: runID, logger: logger, nowFunc: time.Now}
}

// Emit serializes and publishes places in batches.
func (w *Writer) Emit(ctx context.Context, places []domain.PollingPlace) error {
	if len(places) == 0 {
		return nil
	}
	emittedAt := w.nowFunc().UTC()
	for start := 0; start < len(places); start += batchSize {
		end := min(start+batchSize, len(places))
		msgs := make([]kafkago.Message, 0, end-start)
		for i := start; i < end; i++ {
			msg, err := serializeToMessage(places[i], w.runID, emittedAt)
			if err != nil {
				return err
			}
			msgs = append(msgs, msg)
		}
		if err := w.writer.WriteMessages(ctx, msgs...); err != nil {
			return fmt.Errorf("publish polling places: %w", err)
		}
		w.logger.Debug("published batch", "topic", w.writer.Topic, "count", len(msgs))
	}
	return nil
}

func (w *Writer) Close() error {
	return w.writer.Close()
}

// serializeToMessage marshals a PollingPlace into a Kafka message.
func serializeToMessage(p domain.PollingPlace, runID string, emittedAt time.Time) (kafkago.Message, error) {
	data, err := json.Marshal(p)
	if err != nil {
		return kafkago.Message{}, fmt.Errorf("serialize polling place: %w", err)
	}
	return kafkago.Message{
		Key:   []byte(p.ID),
		Value: data,
		Headers: []kafkago.Header{
			{Key: "county", Value: []byte(p.County)},
			{Key: "run_id", Value: []byte(runID)},
			{Key: "emitted_at", Value: []byte(emittedAt.Format(time.RFC3339))},
		},
	}, nil
}
