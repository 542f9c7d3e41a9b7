package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/shopspring/decimal"
)

// Movement is emitted after a balance-moving step commits: a completed
// transfer or a settled payment request.
type Movement struct {
	TransactionID string          `json:"transaction_id"`
	Flow          string          `json:"flow"`
	FromAccountID int64           `json:"from_account_id"`
	ToAccountID   int64           `json:"to_account_id"`
	Amount        decimal.Decimal `json:"amount"`
	OccurredAt    time.Time       `json:"occurred_at"`
}

const (
	FlowTransfer   = "transfer"
	FlowSettlement = "settlement"
)

type Publisher interface {
	PublishMovement(ctx context.Context, ev Movement) error
}

// KafkaPublisher writes movement events to a kafka topic.
type KafkaPublisher struct {
	writer *kafka.Writer
}

func NewKafkaPublisher(broker, topic string) *KafkaPublisher {
	return &KafkaPublisher{
		writer: &kafka.Writer{
			Addr:     kafka.TCP(broker),
			Topic:    topic,
			Balancer: &kafka.LeastBytes{},
		},
	}
}

func (p *KafkaPublisher) PublishMovement(ctx context.Context, ev Movement) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(ev.TransactionID),
		Value: data,
	})
}

func (p *KafkaPublisher) Close() error {
	return p.writer.Close()
}

// NoopPublisher drops events. Used when no broker is configured and in tests.
type NoopPublisher struct{}

func (NoopPublisher) PublishMovement(context.Context, Movement) error { return nil }
