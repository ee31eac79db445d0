package notify

import (
	"context"

	"github.com/sirupsen/logrus"
)

// Booking events that trigger a push to the booking's user.
const (
	EventBookingCreated       = "booking.created"
	EventBookingAssigned      = "booking.assigned"
	EventBookingStatusChanged = "booking.status_changed"
)

// Notification is a push message tagged with the event that caused it.
type Notification struct {
	Event     string      `json:"event"`
	BookingID string      `json:"bookingId"`
	Message   PushMessage `json:"message"`
}

// Notifier hands a notification off for delivery. Implementations either
// deliver immediately or enqueue.
type Notifier interface {
	Notify(ctx context.Context, n Notification) error
}

// DirectNotifier delivers synchronously through a PushSender.
type DirectNotifier struct {
	Sender PushSender
	Log    *logrus.Logger
}

func (d *DirectNotifier) Notify(ctx context.Context, n Notification) error {
	id, err := d.Sender.Send(ctx, n.Message)
	if err != nil {
		return err
	}
	d.Log.WithFields(logrus.Fields{"event": n.Event, "booking": n.BookingID, "message_id": id}).Debug("[push] delivered")
	return nil
}
