package mailer

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	tpl "github.com/oksasatya/otp-auth-gateway/pkg/mailer/templates"
)

type sentMail struct {
	to, subject, text, html string
}

type fakeSender struct {
	sent []sentMail
	err  error
}

func (s *fakeSender) Send(_ context.Context, to, subject, text, html string) error {
	if s.err != nil {
		return s.err
	}
	s.sent = append(s.sent, sentMail{to, subject, text, html})
	return nil
}

func TestWorker_Handle(t *testing.T) {
	otpJob, err := json.Marshal(EmailJob{
		To:       "ann@example.com",
		Template: tpl.LoginOTP,
		Data:     tpl.NewLoginOTPData(nil, "ann@example.com", "123456"),
	})
	require.NoError(t, err)

	tests := []struct {
		name    string
		body    []byte
		sendErr error
		want    Outcome
		sent    int
	}{
		{name: "otp template", body: otpJob, want: Ack, sent: 1},
		{name: "plain job", body: []byte(`{"to":"a@b.test","subject":"hi","text":"hello"}`), want: Ack, sent: 1},
		{name: "malformed json", body: []byte(`{`), want: Drop},
		{name: "missing recipient", body: []byte(`{"template":"login_otp"}`), want: Drop},
		{name: "unknown template", body: []byte(`{"to":"a@b.test","template":"nope"}`), want: Drop},
		{name: "send failure", body: otpJob, sendErr: errors.New("mailgun 503"), want: Requeue},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &fakeSender{err: tt.sendErr}
			w := NewWorker(sender, helpers.NewDiscardLogger())
			assert.Equal(t, tt.want, w.Handle(context.Background(), tt.body))
			assert.Len(t, sender.sent, tt.sent)
		})
	}
}

func TestWorker_RendersOTPCode(t *testing.T) {
	body, err := json.Marshal(EmailJob{
		To:       "ann@example.com",
		Template: tpl.LoginOTP,
		Data:     tpl.NewLoginOTPData(nil, "ann@example.com", "654321"),
	})
	require.NoError(t, err)

	sender := &fakeSender{}
	require.Equal(t, Ack, NewWorker(sender, helpers.NewDiscardLogger()).Handle(context.Background(), body))
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "ann@example.com", sender.sent[0].to)
	assert.Contains(t, sender.sent[0].text, "654321")
	assert.Contains(t, sender.sent[0].html, "654321")
}
