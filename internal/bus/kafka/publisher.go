// Package kafka publishes delivered trades to a Kafka topic so downstream
// consumers (dashboards, analytics jobs) see the same stream the
// notification channels do.
package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/alanyoungcy/polywatch/internal/domain"
)

// Publisher writes one message per delivered trade, keyed by wallet address
// so per-address ordering survives partitioning.
type Publisher struct {
	writer *kafka.Writer
}

// New creates a Publisher for the given brokers and topic.
func New(brokers []string, topic string) *Publisher {
	return &Publisher{
		writer: &kafka.Writer{
			Addr:         kafka.TCP(brokers...),
			Topic:        topic,
			Balancer:     &kafka.LeastBytes{},
			RequiredAcks: kafka.RequireOne,
			Async:        false,
			BatchTimeout: 50 * time.Millisecond,
		},
	}
}

// tradeEvent is the message payload schema.
type tradeEvent struct {
	CycleID     string   `json:"cycle_id"`
	Address     string   `json:"address"`
	DedupKey    string   `json:"dedup_key"`
	Timestamp   int64    `json:"timestamp"`
	Title       string   `json:"title,omitempty"`
	Side        string   `json:"side,omitempty"`
	Size        *float64 `json:"size,omitempty"`
	Price       *float64 `json:"price,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	TxHash      string   `json:"tx_hash,omitempty"`
	TradeID     string   `json:"trade_id,omitempty"`
	MarketSlug  string   `json:"market_slug,omitempty"`
	EventSlug   string   `json:"event_slug,omitempty"`
	ConditionID string   `json:"condition_id,omitempty"`
}

// Publish emits the cycle's trades as individual messages in one batched
// write.
func (p *Publisher) Publish(ctx context.Context, cycleID string, groups []domain.AddressTrades) error {
	var msgs []kafka.Message
	for _, g := range groups {
		for _, t := range g.Trades {
			value, err := json.Marshal(tradeEvent{
				CycleID:     cycleID,
				Address:     g.Address,
				DedupKey:    t.DedupKey(),
				Timestamp:   t.Timestamp,
				Title:       t.Title,
				Side:        t.Side,
				Size:        t.Size,
				Price:       t.Price,
				Outcome:     t.Outcome,
				TxHash:      t.TxHash,
				TradeID:     t.ID,
				MarketSlug:  t.MarketSlug,
				EventSlug:   t.EventSlug,
				ConditionID: t.ConditionID,
			})
			if err != nil {
				return fmt.Errorf("kafka: marshal trade event: %w", err)
			}
			msgs = append(msgs, kafka.Message{
				Key:   []byte(g.Address),
				Value: value,
				Time:  t.Time(),
			})
		}
	}
	if len(msgs) == 0 {
		return nil
	}

	if err := p.writer.WriteMessages(ctx, msgs...); err != nil {
		return fmt.Errorf("kafka: publish %d trade events: %w", len(msgs), err)
	}
	return nil
}

// Close flushes and closes the writer.
func (p *Publisher) Close() error {
	return p.writer.Close()
}
