package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"go.uber.org/zap"

	"github.com/andreasstove999/ecommerce-system/pos-service-go/internal/sales"
)

type Sequencer interface {
	NextSequence(ctx context.Context, partitionKey string) (int64, error)
}

type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

type Publisher struct {
	ch                 channel
	seq                Sequencer
	publishEnveloped   bool
	producerIdentifier string
	now                func() time.Time
}

type PublisherOptions struct {
	PublishEnveloped bool
	Producer         string
}

func NewPublisher(conn *amqp.Connection, seq Sequencer, opts PublisherOptions) (*Publisher, error) {
	ch, err := conn.Channel()
	if err != nil {
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := declareEventsExchange(ch); err != nil {
		_ = ch.Close()
		return nil, fmt.Errorf("declare events exchange: %w", err)
	}

	return newPublisher(ch, seq, opts), nil
}

func newPublisher(ch channel, seq Sequencer, opts PublisherOptions) *Publisher {
	producer := opts.Producer
	if producer == "" {
		producer = posServiceName
	}
	return &Publisher{
		ch:                 ch,
		seq:                seq,
		publishEnveloped:   opts.PublishEnveloped,
		producerIdentifier: producer,
		now:                time.Now,
	}
}

func (p *Publisher) Close() error {
	return p.ch.Close()
}

func (p *Publisher) PublishSaleCompleted(ctx context.Context, meta EventMeta, s sales.Sale) error {
	timestamp := p.now().UTC()

	payload := SaleCompletedPayload{
		SaleID:    s.ID,
		OwnerID:   s.OwnerID,
		Items:     make([]SaleLine, 0, len(s.Items)),
		Discount:  s.Discount,
		Total:     s.Total,
		Timestamp: timestamp,
	}
	for _, it := range s.Items {
		payload.Items = append(payload.Items, SaleLine{
			ProductID: it.ProductID,
			Name:      it.Name,
			Price:     it.Price,
			Category:  it.Category,
		})
	}

	if !p.publishEnveloped {
		body, err := json.Marshal(LegacySaleCompleted{EventType: EventTypeSaleCompleted, SaleCompletedPayload: payload})
		if err != nil {
			return fmt.Errorf("marshal SaleCompleted: %w", err)
		}
		return p.publishJSON(ctx, SaleCompletedRoutingKey, body)
	}

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := newSaleCompletedEvent(meta, seq, p.producerIdentifier, payload, timestamp)
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SaleCompleted envelope: %w", err)
	}
	return p.publishJSON(ctx, SaleCompletedRoutingKey, body)
}

func (p *Publisher) PublishSalesHistoryCleared(ctx context.Context, meta EventMeta, ownerID string, removed int64) error {
	timestamp := p.now().UTC()
	payload := SalesHistoryClearedPayload{OwnerID: ownerID, Removed: removed, Timestamp: timestamp}

	if !p.publishEnveloped {
		body, err := json.Marshal(LegacySalesHistoryCleared{EventType: EventTypeSalesHistoryCleared, SalesHistoryClearedPayload: payload})
		if err != nil {
			return fmt.Errorf("marshal SalesHistoryCleared: %w", err)
		}
		return p.publishJSON(ctx, SalesHistoryClearedRoutingKey, body)
	}

	seq, err := p.seq.NextSequence(ctx, meta.PartitionKey)
	if err != nil {
		return fmt.Errorf("reserve sequence: %w", err)
	}

	env := SalesHistoryClearedEvent{
		EventEnvelope: newEnvelope(EventTypeSalesHistoryCleared, salesHistoryClearedSchema, meta, seq, p.producerIdentifier, timestamp),
		Payload:       payload,
	}
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("marshal SalesHistoryCleared envelope: %w", err)
	}
	return p.publishJSON(ctx, SalesHistoryClearedRoutingKey, body)
}

func (p *Publisher) publishJSON(ctx context.Context, routingKey string, body []byte) error {
	pubCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	return p.ch.PublishWithContext(
		pubCtx,
		EventsExchange,
		routingKey,
		false,
		false,
		amqp.Publishing{
			ContentType:  "application/json",
			DeliveryMode: amqp.Persistent,
			Body:         body,
		},
	)
}

func newSaleCompletedEvent(meta EventMeta, seq int64, producer string, payload SaleCompletedPayload, occurredAt time.Time) SaleCompletedEvent {
	return SaleCompletedEvent{
		EventEnvelope: newEnvelope(EventTypeSaleCompleted, saleCompletedSchema, meta, seq, producer, occurredAt),
		Payload:       payload,
	}
}

func newEnvelope(name, schema string, meta EventMeta, seq int64, producer string, occurredAt time.Time) EventEnvelope {
	return EventEnvelope{
		EventName:     name,
		EventVersion:  1,
		EventID:       uuid.NewString(),
		CorrelationID: meta.CorrelationID,
		CausationID:   meta.CausationID,
		Producer:      producer,
		PartitionKey:  meta.PartitionKey,
		Sequence:      seq,
		OccurredAt:    occurredAt,
		Schema:        schema,
	}
}

// SalePublisher is implemented by Publisher and Nop.
type SalePublisher interface {
	PublishSaleCompleted(ctx context.Context, meta EventMeta, s sales.Sale) error
	PublishSalesHistoryCleared(ctx context.Context, meta EventMeta, ownerID string, removed int64) error
}

// Nop drops every event. Used when no broker is configured.
type Nop struct{}

func (Nop) PublishSaleCompleted(context.Context, EventMeta, sales.Sale) error { return nil }

func (Nop) PublishSalesHistoryCleared(context.Context, EventMeta, string, int64) error { return nil }

// Notifier publishes domain events on a best-effort basis: failures are
// logged and never reach the caller.
type Notifier struct {
	pub    SalePublisher
	logger *zap.Logger
}

func NewNotifier(pub SalePublisher, logger *zap.Logger) *Notifier {
	return &Notifier{pub: pub, logger: logger}
}

// SaleCompleted satisfies checkout.SaleListener.
func (n *Notifier) SaleCompleted(ctx context.Context, s sales.Sale) {
	meta := EventMeta{
		CorrelationID: s.ID,
		CausationID:   s.ID,
		PartitionKey:  s.OwnerID,
	}
	if err := n.pub.PublishSaleCompleted(ctx, meta, s); err != nil {
		n.logger.Warn("publish SaleCompleted failed", zap.String("sale_id", s.ID), zap.Error(err))
	}
}

func (n *Notifier) HistoryCleared(ctx context.Context, correlationID, ownerID string, removed int64) {
	meta := EventMeta{
		CorrelationID: correlationID,
		PartitionKey:  ownerID,
	}
	if err := n.pub.PublishSalesHistoryCleared(ctx, meta, ownerID, removed); err != nil {
		n.logger.Warn("publish SalesHistoryCleared failed", zap.String("owner_id", ownerID), zap.Error(err))
	}
}
