package events

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/v1adis1av28/level3/MedReminder/internal/models"
	"github.com/wb-go/wbf/rabbitmq"
)

const DEFAULT_QUEUE = "reminder_dispatches"

// Publisher records the outcome of every fired reminder.
type Publisher interface {
	Publish(ctx context.Context, event models.DispatchEvent) error
	Close()
}

type Nop struct{}

func (Nop) Publish(context.Context, models.DispatchEvent) error { return nil }
func (Nop) Close()                                              {}

// channel is the part of the broker channel the journal needs.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp091.Publishing) error
}

type RabbitPublisher struct {
	queue string
	ch    channel
	close func()
	log   zerolog.Logger
}

func NewRabbitPublisher(amqpURL, queue string, retries int, log zerolog.Logger) (*RabbitPublisher, error) {
	if queue == "" {
		queue = DEFAULT_QUEUE
	}
	if retries <= 0 {
		retries = 3
	}

	conn, err := rabbitmq.Connect(amqpURL, retries, 5*time.Second)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to rabbitmq: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create channel: %w", err)
	}

	_, err = ch.QueueDeclare(
		queue, // name
		true,  // durable
		false, // delete when unused
		false, // exclusive
		false, // no-wait
		nil,   // arguments
	)
	if err != nil {
		ch.Close()
		conn.Close()
		return nil, fmt.Errorf("failed to declare queue %s: %w", queue, err)
	}

	log.Info().Str("queue", queue).Msg("dispatch events go to rabbitmq")

	return &RabbitPublisher{
		queue: queue,
		ch:    ch,
		close: func() {
			ch.Close()
			conn.Close()
		},
		log: log,
	}, nil
}

func newRabbitPublisher(ch channel, queue string) *RabbitPublisher {
	return &RabbitPublisher{queue: queue, ch: ch, close: func() {}, log: zerolog.Nop()}
}

func (p *RabbitPublisher) Publish(ctx context.Context, event models.DispatchEvent) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("error on marshaling dispatch event: %w", err)
	}
	msg := amqp091.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp091.Persistent,
		Timestamp:    time.Now(),
		Body:         body,
	}
	if err := p.ch.PublishWithContext(ctx, "", p.queue, false, false, msg); err != nil {
		return fmt.Errorf("error on publishing to %s: %w", p.queue, err)
	}
	return nil
}

func (p *RabbitPublisher) Close() {
	p.close()
	p.log.Debug().Msg("rabbitmq publisher closed")
}
