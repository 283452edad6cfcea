package rabbitmq

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"time"

	"restaurant-order/models"

	amqp "github.com/rabbitmq/amqp091-go"
)

const publishTimeout = 5 * time.Second

// KitchenTicket is the message the kitchen queue receives for an accepted order.
type KitchenTicket struct {
	Reference string    `json:"reference"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Address   string    `json:"address"`
	Items     string    `json:"items"`
	Total     float64   `json:"total"`
	CreatedAt time.Time `json:"created_at"`
}

func NewKitchenTicket(o models.SubmittedOrder, now time.Time) KitchenTicket {
	return KitchenTicket{
		Reference: o.Reference,
		Name:      o.Payload.Name,
		Phone:     o.Payload.Phone,
		Address:   o.Payload.Address,
		Items:     o.Payload.Items,
		Total:     o.Total,
		CreatedAt: now.UTC(),
	}
}

// Publisher sends accepted orders to the kitchen queue.
type Publisher struct {
	pool      *ChannelPool
	queueName string
	now       func() time.Time
}

func NewPublisher(pool *ChannelPool, queueName string) *Publisher {
	return &Publisher{pool: pool, queueName: queueName, now: time.Now}
}

func (p *Publisher) publishing(o models.SubmittedOrder) (amqp.Publishing, error) {
	body, err := json.Marshal(NewKitchenTicket(o, p.now()))
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal ticket: %w", err)
	}
	return amqp.Publishing{
		DeliveryMode: amqp.Persistent,
		ContentType:  "application/json",
		MessageId:    o.Reference,
		Timestamp:    p.now(),
		Body:         body,
	}, nil
}

// NotifyOrder publishes the order as a persistent message on the kitchen queue.
func (p *Publisher) NotifyOrder(ctx context.Context, o models.SubmittedOrder) error {
	msg, err := p.publishing(o)
	if err != nil {
		return err
	}

	ch, err := p.pool.Get()
	if err != nil {
		return fmt.Errorf("get channel: %w", err)
	}
	defer p.pool.Put(ch)

	ctx, cancel := context.WithTimeout(ctx, publishTimeout)
	defer cancel()

	// default exchange, routed by queue name
	if err := ch.PublishWithContext(ctx, "", p.queueName, false, false, msg); err != nil {
		return fmt.Errorf("publish order %s: %w", o.Reference, err)
	}

	log.Printf("rabbitmq: published order %s to %s", o.Reference, p.queueName)
	return nil
}
