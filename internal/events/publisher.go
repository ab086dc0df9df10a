package events

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/segmentio/kafka-go"

	"storefront/internal/models"
)

const (
	EventPaymentCompleted = "purchase.completed"
	EventPaymentFailed    = "payment.failed"
)

type PaymentPayload struct {
	MerchantTransactionID string    `json:"merchantTransactionId"`
	UserID                *uint     `json:"userId,omitempty"`
	ProductID             string    `json:"productId"`
	ProductType           string    `json:"productType"`
	Amount                float64   `json:"amount"`
	Status                string    `json:"status"`
	Gateway               string    `json:"gateway"`
	UpdatedAt             time.Time `json:"updatedAt"`
}

type PaymentEvent struct {
	ID      uuid.UUID      `json:"id"`
	Event   string         `json:"event"`
	Payload PaymentPayload `json:"payload"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
	Close() error
}

type Publisher struct {
	writer messageWriter
	logger *slog.Logger
}

func NewWriter(brokers []string, topic string) *kafka.Writer {
	return &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		BatchTimeout:           10 * time.Millisecond,
		Async:                  false,
		AllowAutoTopicCreation: false,
	}
}

func NewPublisher(brokers []string, topic string, logger *slog.Logger) *Publisher {
	return &Publisher{writer: NewWriter(brokers, topic), logger: logger}
}

// PaymentSettled publishes the terminal state of a payment, keyed by its
// merchant transaction id so events for one payment stay ordered.
func (p *Publisher) PaymentSettled(ctx context.Context, payment *models.Payment) error {
	name := EventPaymentFailed
	if payment.Status.Succeeded() {
		name = EventPaymentCompleted
	}

	event := PaymentEvent{
		ID:    uuid.New(),
		Event: name,
		Payload: PaymentPayload{
			MerchantTransactionID: payment.MerchantTransactionID,
			UserID:                payment.UserID,
			ProductID:             payment.ProductID,
			ProductType:           string(payment.ProductType),
			Amount:                payment.Amount,
			Status:                string(payment.Status),
			Gateway:               payment.Gateway,
			UpdatedAt:             time.Now(),
		},
	}

	value, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal event: %w", err)
	}

	err = p.writer.WriteMessages(ctx, kafka.Message{
		Key:   []byte(payment.MerchantTransactionID),
		Value: value,
	})
	if err != nil {
		return fmt.Errorf("failed to write kafka message: %w", err)
	}

	p.logger.InfoContext(ctx, "Published payment event", "event", name, "merchantTransactionId", payment.MerchantTransactionID)
	return nil
}

func (p *Publisher) Close() error {
	return p.writer.Close()
}
