package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"github.com/sony/gobreaker/v2"

	"github.com/go-storefront/storefront/internal/domain"
)

const publishTimeout = 5 * time.Second

// TicketCreatedEvent is the payload emitted once a purchase commits.
type TicketCreatedEvent struct {
	Code             string    `json:"code"`
	PurchaseDatetime time.Time `json:"purchase_datetime"`
	Amount           float64   `json:"amount"`
	Purchaser        string    `json:"purchaser"`
	UserID           string    `json:"user_id"`
}

type messageWriter interface {
	WriteMessages(ctx context.Context, msgs ...kafka.Message) error
}

type Publisher struct {
	writer  messageWriter
	breaker *gobreaker.CircuitBreaker[any]
	closer  func() error
}

// NewPublisher builds a kafka-backed publisher. A circuit breaker keeps an
// unreachable broker from stalling every checkout with a full timeout.
func NewPublisher(brokers []string, topic string) *Publisher {
	w := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Topic:                  topic,
		Balancer:               &kafka.LeastBytes{},
		RequiredAcks:           kafka.RequireOne,
		AllowAutoTopicCreation: true,
	}

	return &Publisher{
		writer:  w,
		breaker: newBreaker(),
		closer:  w.Close,
	}
}

func newBreaker() *gobreaker.CircuitBreaker[any] {
	return gobreaker.NewCircuitBreaker[any](gobreaker.Settings{
		Name:    "ticket-events",
		Timeout: 30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
	})
}

func (p *Publisher) PublishTicketCreated(ctx context.Context, ticket *domain.Ticket, userID string) error {
	event := TicketCreatedEvent{
		Code:             ticket.Code,
		PurchaseDatetime: ticket.PurchaseDatetime,
		Amount:           ticket.Amount,
		Purchaser:        ticket.Purchaser,
		UserID:           userID,
	}

	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("failed to marshal ticket event: %w", err)
	}

	_, err = p.breaker.Execute(func() (any, error) {
		writeCtx, cancel := context.WithTimeout(ctx, publishTimeout)
		defer cancel()

		return nil, p.writer.WriteMessages(writeCtx, kafka.Message{
			Key:   []byte(userID),
			Value: data,
			Time:  time.Now().UTC(),
		})
	})
	if err != nil {
		return fmt.Errorf("failed to publish ticket event: %w", err)
	}

	return nil
}

func (p *Publisher) Close() error {
	if p.closer == nil {
		return nil
	}
	return p.closer()
}
