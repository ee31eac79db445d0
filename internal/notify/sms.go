// Package notify delivers OTP text messages and push notifications.
package notify

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"

	"github.com/iliyamo/acdoc-booking/internal/config"
)

// SMSSender delivers an OTP code to a phone number in E.164 form.
type SMSSender interface {
	SendOTP(ctx context.Context, phone, code string) error
}

// NewSMSSender returns a Twilio sender when credentials are configured and a
// logging sender otherwise.
func NewSMSSender(cfg config.TwilioConfig, log *logrus.Logger) SMSSender {
	if cfg.AccountSID == "" || cfg.AuthToken == "" || cfg.From == "" {
		log.Warn("[sms] twilio credentials missing, OTP codes will be logged")
		return &LogSMSSender{Log: log}
	}
	return NewTwilioSMSSender(cfg, log)
}

// TwilioSMSSender sends messages through the Twilio Messages API.
type TwilioSMSSender struct {
	client *twilio.RestClient
	from   string
	log    *logrus.Logger
}

func NewTwilioSMSSender(cfg config.TwilioConfig, log *logrus.Logger) *TwilioSMSSender {
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: cfg.AccountSID,
		Password: cfg.AuthToken,
	})
	return &TwilioSMSSender{client: client, from: cfg.From, log: log}
}

// SendOTP makes a single attempt; failures are returned to the caller.
func (t *TwilioSMSSender) SendOTP(_ context.Context, phone, code string) error {
	params := &twilioApi.CreateMessageParams{}
	params.SetFrom(t.from)
	params.SetTo(phone)
	params.SetBody(otpBody(code))

	resp, err := t.client.Api.CreateMessage(params)
	if err != nil {
		return fmt.Errorf("send otp sms: %w", err)
	}
	sid := ""
	if resp.Sid != nil {
		sid = *resp.Sid
	}
	t.log.WithFields(logrus.Fields{"to": maskPhone(phone), "sid": sid}).Info("[sms] otp sent")
	return nil
}

// LogSMSSender writes the code to the log instead of sending it. Used in
// development and tests.
type LogSMSSender struct {
	Log *logrus.Logger
}

func (l *LogSMSSender) SendOTP(_ context.Context, phone, code string) error {
	l.Log.WithFields(logrus.Fields{"to": maskPhone(phone), "code": code}).Info("[sms] mock otp")
	return nil
}

func otpBody(code string) string {
	return fmt.Sprintf("%s is your AC Doc verification code. It expires in 5 minutes.", code)
}

// maskPhone keeps the last four digits.
func maskPhone(p string) string {
	if len(p) <= 4 {
		return p
	}
	masked := make([]byte, len(p))
	for i := range p {
		if i < len(p)-4 && p[i] >= '0' && p[i] <= '9' {
			masked[i] = '*'
		} else {
			masked[i] = p[i]
		}
	}
	return string(masked)
}
