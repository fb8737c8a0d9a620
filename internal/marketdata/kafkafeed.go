package marketdata

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/segmentio/kafka-go"

	"covered-call-lab/internal/domain"
)

// KafkaFeed consumes raw options-activity records from a kafka topic.
// Vendor feeds that land on a broker instead of a websocket use this
// path; records flow to the same handler type either way.
type KafkaFeed struct {
	reader *kafka.Reader
}

// NewKafkaFeed creates a consumer for the given brokers and topic.
func NewKafkaFeed(brokers []string, topic, groupID string) *KafkaFeed {
	reader := kafka.NewReader(kafka.ReaderConfig{
		Brokers:        brokers,
		Topic:          topic,
		GroupID:        groupID,
		MinBytes:       10e3, // 10KB
		MaxBytes:       10e6, // 10MB
		MaxWait:        1 * time.Second,
		StartOffset:    kafka.LastOffset,
		CommitInterval: time.Second,
	})
	return &KafkaFeed{reader: reader}
}

// Run consumes messages until ctx is cancelled. Malformed messages and
// handler errors are logged and skipped; one bad record never stops
// the feed.
func (f *KafkaFeed) Run(ctx context.Context, handler FeedHandler) error {
	log.Printf("[feed] consuming topic %s", f.reader.Config().Topic)

	for {
		msg, err := f.reader.ReadMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			log.Printf("[feed] read: %v", err)
			continue
		}

		var rec domain.RawActivityRecord
		if err := json.Unmarshal(msg.Value, &rec); err != nil {
			log.Printf("[feed] malformed record at offset %d: %v", msg.Offset, err)
			continue
		}

		if err := handler(ctx, &rec); err != nil {
			log.Printf("[feed] handler %s: %v", rec.Symbol, err)
		}
	}
}

// Close closes the underlying reader.
func (f *KafkaFeed) Close() error {
	return f.reader.Close()
}
