package queue

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/sirupsen/logrus"

	"github.com/iliyamo/acdoc-booking/internal/notify"
)

// Publisher publishes notifications to RabbitMQ. Each publish opens its own
// connection; booking traffic is low and this keeps the publisher free of
// reconnect state. Errors are logged and returned so the caller can ignore
// them without interrupting the request.
type Publisher struct {
	url string
	log *logrus.Logger
}

func NewPublisher(url string, log *logrus.Logger) *Publisher {
	return &Publisher{url: url, log: log}
}

// Notify implements notify.Notifier.
func (p *Publisher) Notify(ctx context.Context, n notify.Notification) error {
	conn, err := amqp.Dial(p.url)
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: dial failed")
		return err
	}
	defer func() { _ = conn.Close() }()

	ch, err := conn.Channel()
	if err != nil {
		p.log.WithError(err).Warn("rabbitmq: channel open failed")
		return err
	}
	defer func() { _ = ch.Close() }()

	if err := declare(ch); err != nil {
		p.log.WithError(err).Warn("rabbitmq: queue declare failed")
		return err
	}

	body, err := json.Marshal(Envelope{ID: uuid.NewString(), Notification: n, PublishedAt: time.Now().UTC()})
	if err != nil {
		return err
	}
	pub := amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		Timestamp:    time.Now().UTC(),
		Body:         body,
	}
	if err := ch.PublishWithContext(ctx, "", NotificationQueue, false, false, pub); err != nil {
		p.log.WithError(err).Warn("rabbitmq: publish failed")
		return err
	}
	return nil
}

// declare makes sure the durable queue exists. It is idempotent.
func declare(ch *amqp.Channel) error {
	_, err := ch.QueueDeclare(NotificationQueue, true, false, false, false, nil)
	return err
}
