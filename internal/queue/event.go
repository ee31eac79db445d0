// Package queue moves booking notifications through RabbitMQ. The publisher
// implements notify.Notifier; the consumer delivers queued messages with a
// notify.PushSender.
package queue

import (
	"time"

	"github.com/iliyamo/acdoc-booking/internal/notify"
)

// NotificationQueue is the durable queue carrying booking notifications.
const NotificationQueue = "booking.notifications"

// Envelope is the message body published to NotificationQueue.
type Envelope struct {
	ID           string              `json:"id"`
	Notification notify.Notification `json:"notification"`
	PublishedAt  time.Time           `json:"published_at"`
}
