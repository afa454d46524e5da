package mailer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/config"
	tpl "github.com/oksasatya/otp-auth-gateway/pkg/mailer/templates"
)

// Publisher enqueues a JSON job; helpers.RabbitPublisher satisfies it.
type Publisher interface {
	PublishJSON(ctx context.Context, body any) error
}

// OTPDispatcher turns issued passcodes into queued login_otp email jobs.
type OTPDispatcher struct {
	Pub    Publisher
	Cfg    *config.Config
	Logger *logrus.Logger
}

func NewOTPDispatcher(pub Publisher, cfg *config.Config, logger *logrus.Logger) *OTPDispatcher {
	return &OTPDispatcher{Pub: pub, Cfg: cfg, Logger: logger}
}

func (d *OTPDispatcher) SendOTP(ctx context.Context, email, code string, expire time.Time) error {
	if d.Cfg != nil && !d.Cfg.MailSendEnabled {
		if d.Logger != nil {
			d.Logger.WithField("email", email).Debug("mail sending disabled; otp email skipped")
		}
		return nil
	}
	data := tpl.NewLoginOTPData(d.Cfg, email, code,
		tpl.WithTime(time.Now()),
		tpl.WithExpiresAt(expire),
	)
	job := EmailJob{To: email, Template: tpl.LoginOTP, Data: data}
	return d.Pub.PublishJSON(ctx, job)
}
