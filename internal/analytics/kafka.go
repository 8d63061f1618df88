// Package analytics publishes round/action/tournament telemetry to Kafka
// and ingests it into ClickHouse, repurposed from the teacher's fraud-alert
// pipeline (internal/fraud/kafka_producer.go, internal/storage/
// clickhouse.go) onto hand/action/tournament-round events instead of
// anti-cheat alerts. This is an ambient-stack concern (spec's Non-goals
// exclude telemetry *webhooks* as an external collaborator, not in-process
// analytics emission) so the core always has somewhere to report outcomes.
package analytics

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/IBM/sarama"
	"github.com/google/uuid"
)

// NewEventID mints a fresh analytics event identifier.
func NewEventID() string {
	return uuid.NewString()
}

// RoundEvent is one analytics record: a settled hand, an individual action,
// or a tournament round transition.
type RoundEvent struct {
	EventID      string            `json:"event_id"`
	EventType    string            `json:"event_type"` // hand_settled | action | tournament_round
	ChannelID    string            `json:"channel_id"`
	Mode         string            `json:"mode"`
	Login        string            `json:"login,omitempty"`
	Action       string            `json:"action,omitempty"`
	Amount       int64             `json:"amount,omitempty"`
	Pot          int64             `json:"pot,omitempty"`
	Payouts      map[string]int64  `json:"payouts,omitempty"`
	TournamentID string            `json:"tournament_id,omitempty"`
	Round        int               `json:"round,omitempty"`
	Timestamp    time.Time         `json:"timestamp"`
}

// KafkaProducerConfig mirrors the teacher's KafkaAlertProducerConfig shape,
// trimmed to the fields this producer actually sets.
type KafkaProducerConfig struct {
	Brokers      []string
	Topic        string
	MaxRetries   int
	RetryBackoff time.Duration
	RequiredAcks sarama.RequiredAcks
}

// DefaultKafkaProducerConfig is a reasonable at-least-once configuration.
func DefaultKafkaProducerConfig(brokers []string, topic string) KafkaProducerConfig {
	return KafkaProducerConfig{
		Brokers:      brokers,
		Topic:        topic,
		MaxRetries:   5,
		RetryBackoff: 100 * time.Millisecond,
		RequiredAcks: sarama.WaitForLocal,
	}
}

// Producer publishes RoundEvents to Kafka.
type Producer struct {
	producer sarama.SyncProducer
	topic    string

	mu    sync.Mutex
	stats Stats
}

// Stats tracks producer throughput, mirroring the teacher's ProducerStats.
type Stats struct {
	MessagesSent   int64
	MessagesFailed int64
	LastMessageAt  time.Time
}

// NewProducer builds a synchronous Kafka producer.
func NewProducer(cfg KafkaProducerConfig) (*Producer, error) {
	saramaCfg := sarama.NewConfig()
	saramaCfg.Producer.Return.Successes = true
	saramaCfg.Producer.Return.Errors = true
	saramaCfg.Producer.Retry.Max = cfg.MaxRetries
	saramaCfg.Producer.Retry.Backoff = cfg.RetryBackoff
	saramaCfg.Producer.RequiredAcks = cfg.RequiredAcks

	producer, err := sarama.NewSyncProducer(cfg.Brokers, saramaCfg)
	if err != nil {
		return nil, fmt.Errorf("analytics: kafka producer: %w", err)
	}
	return &Producer{producer: producer, topic: cfg.Topic}, nil
}

// Publish sends one RoundEvent, keyed by channel so a consumer can
// partition per-table ordering.
func (p *Producer) Publish(_ context.Context, evt RoundEvent) error {
	data, err := json.Marshal(evt)
	if err != nil {
		return fmt.Errorf("analytics: marshal event: %w", err)
	}

	msg := &sarama.ProducerMessage{
		Topic: p.topic,
		Key:   sarama.StringEncoder(evt.ChannelID),
		Value: sarama.ByteEncoder(data),
		Headers: []sarama.RecordHeader{
			{Key: []byte("event_type"), Value: []byte(evt.EventType)},
			{Key: []byte("mode"), Value: []byte(evt.Mode)},
		},
		Timestamp: evt.Timestamp,
	}

	_, _, err = p.producer.SendMessage(msg)
	p.mu.Lock()
	if err != nil {
		p.stats.MessagesFailed++
	} else {
		p.stats.MessagesSent++
		p.stats.LastMessageAt = time.Now()
	}
	p.mu.Unlock()
	if err != nil {
		return fmt.Errorf("analytics: publish: %w", err)
	}
	return nil
}

// StatsSnapshot returns a snapshot of producer throughput counters.
func (p *Producer) StatsSnapshot() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Close releases the underlying Kafka connection.
func (p *Producer) Close() error {
	return p.producer.Close()
}
