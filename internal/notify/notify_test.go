package notify

import (
	"context"
	"errors"
	"testing"

	"firebase.google.com/go/v4/messaging"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/acdoc-booking/internal/config"
	"github.com/iliyamo/acdoc-booking/internal/logger"
)

// fakeMessenger records messages instead of calling Firebase.
type fakeMessenger struct {
	sent []*messaging.Message
	err  error
}

func (f *fakeMessenger) Send(_ context.Context, m *messaging.Message) (string, error) {
	f.sent = append(f.sent, m)
	if f.err != nil {
		return "", f.err
	}
	return "projects/acdoc/messages/m-1", nil
}

func TestFCMSenderBuildsMessage(t *testing.T) {
	fake := &fakeMessenger{}
	s := &FCMSender{client: fake, log: logger.Discard()}

	id, err := s.Send(context.Background(), PushMessage{
		DeviceToken: "dev-1", Title: "Booked", Body: "ok", Data: map[string]string{"bookingId": "b1"},
	})
	require.NoError(t, err)
	require.Equal(t, "projects/acdoc/messages/m-1", id)
	require.Len(t, fake.sent, 1)
	got := fake.sent[0]
	require.Equal(t, "dev-1", got.Token)
	require.Equal(t, "Booked", got.Notification.Title)
	require.Equal(t, "ok", got.Notification.Body)
	require.Equal(t, "b1", got.Data["bookingId"])
}

func TestFCMSenderErrors(t *testing.T) {
	fake := &fakeMessenger{err: errors.New("quota exceeded")}
	s := &FCMSender{client: fake, log: logger.Discard()}

	_, err := s.Send(context.Background(), PushMessage{DeviceToken: "x"})
	require.ErrorContains(t, err, "quota exceeded")

	_, err = s.Send(context.Background(), PushMessage{})
	require.Error(t, err)
	require.Len(t, fake.sent, 1, "an empty token never reaches Firebase")
}

func TestPushSenderFallsBackWithoutCredentials(t *testing.T) {
	log := logger.Discard()
	_, ok := NewPushSender(context.Background(), config.FCMConfig{CredentialsFile: "/nonexistent/service-account.json"}, log).(*LogPushSender)
	require.True(t, ok)
}

func TestFallbackSenders(t *testing.T) {
	log := logger.Discard()
	_, ok := NewSMSSender(config.TwilioConfig{}, log).(*LogSMSSender)
	require.True(t, ok)
	_, ok = NewSMSSender(config.TwilioConfig{AccountSID: "AC1", AuthToken: "t", From: "+1"}, log).(*TwilioSMSSender)
	require.True(t, ok)

	_, ok = NewPushSender(context.Background(), config.FCMConfig{}, log).(*LogPushSender)
	require.True(t, ok)
	id, err := NewPushSender(context.Background(), config.FCMConfig{}, log).Send(context.Background(), PushMessage{Title: "t"})
	require.NoError(t, err)
	require.Contains(t, id, "log-")
}

func TestMaskPhone(t *testing.T) {
	require.Equal(t, "+******1234", maskPhone("+9199991234"))
	require.Equal(t, "123", maskPhone("123"))
}
