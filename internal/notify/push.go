package notify

import (
	"context"
	"errors"
	"fmt"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"

	"github.com/iliyamo/acdoc-booking/internal/config"
)

// PushMessage is a single notification to one device.
type PushMessage struct {
	DeviceToken string            `json:"deviceToken"`
	Title       string            `json:"title"`
	Body        string            `json:"body"`
	Data        map[string]string `json:"data,omitempty"`
}

// PushSender delivers a push notification and returns the provider's
// message id.
type PushSender interface {
	Send(ctx context.Context, msg PushMessage) (string, error)
}

// NewPushSender returns an FCM sender when Firebase credentials are
// configured and a logging sender otherwise. A Firebase app that fails to
// initialise also falls back to logging.
func NewPushSender(ctx context.Context, cfg config.FCMConfig, log *logrus.Logger) PushSender {
	if cfg.CredentialsFile == "" {
		log.Warn("[push] FCM credentials missing, push messages will be logged")
		return &LogPushSender{Log: log}
	}
	s, err := NewFCMSender(ctx, cfg, log)
	if err != nil {
		log.WithError(err).Warn("[push] FCM init failed, push messages will be logged")
		return &LogPushSender{Log: log}
	}
	return s
}

// messenger is the part of *messaging.Client the sender needs.
type messenger interface {
	Send(ctx context.Context, m *messaging.Message) (string, error)
}

// FCMSender delivers through the Firebase Cloud Messaging HTTP v1 API with
// service account credentials.
type FCMSender struct {
	client messenger
	log    *logrus.Logger
}

func NewFCMSender(ctx context.Context, cfg config.FCMConfig, log *logrus.Logger) (*FCMSender, error) {
	var conf *firebase.Config
	if cfg.ProjectID != "" {
		conf = &firebase.Config{ProjectID: cfg.ProjectID}
	}
	app, err := firebase.NewApp(ctx, conf, option.WithCredentialsFile(cfg.CredentialsFile))
	if err != nil {
		return nil, fmt.Errorf("firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("firebase messaging: %w", err)
	}
	return &FCMSender{client: client, log: log}, nil
}

func (f *FCMSender) Send(ctx context.Context, msg PushMessage) (string, error) {
	if msg.DeviceToken == "" {
		return "", errors.New("fcm: empty device token")
	}
	id, err := f.client.Send(ctx, &messaging.Message{
		Token:        msg.DeviceToken,
		Notification: &messaging.Notification{Title: msg.Title, Body: msg.Body},
		Data:         msg.Data,
	})
	if err != nil {
		if messaging.IsUnregistered(err) {
			f.log.WithError(err).Warn("[push] device token no longer registered")
		}
		return "", fmt.Errorf("fcm send: %w", err)
	}
	return id, nil
}

// LogPushSender logs messages instead of delivering them.
type LogPushSender struct {
	Log *logrus.Logger
}

func (l *LogPushSender) Send(_ context.Context, msg PushMessage) (string, error) {
	id := "log-" + uuid.NewString()
	l.Log.WithFields(logrus.Fields{"title": msg.Title, "body": msg.Body, "id": id}).Info("[push] mock push")
	return id, nil
}
