package templates

import (
	"time"

	"github.com/oksasatya/otp-auth-gateway/config"
)

// Option pattern
type Option func(*EmailData)

func WithTime(t time.Time) Option {
	return func(d *EmailData) {
		utc := t.UTC()
		d.TimeAt = utc
		d.Time = utc.Format("02 January 2006, 15:04")
	}
}

func WithExpiresAt(t time.Time) Option {
	return func(d *EmailData) {
		if t.IsZero() {
			return
		}
		utc := t.UTC()
		d.ExpiresAt = utc
		d.ExpiresAtText = utc.Format("02 January 2006, 15:04")
	}
}

// NewBaseEmailData fills the common fields from config, then applies opts.
func NewBaseEmailData(cfg *config.Config, typ string, email string, opts ...Option) EmailData {
	d := EmailData{Email: email, Type: typ}
	if cfg != nil {
		d.CompanyName = cfg.CompanyName
		d.CompanyAddress = cfg.CompanyAddress
		d.AppName = cfg.AppName
		d.LogoURL = cfg.LogoURL
		d.SupportURL = cfg.SupportURL
		d.PrivacyURL = cfg.PrivacyURL
	}
	for _, opt := range opts {
		opt(&d)
	}
	return d
}

func NewLoginOTPData(cfg *config.Config, email, code string, opts ...Option) map[string]any {
	base := NewBaseEmailData(cfg, LoginOTP, email, opts...)
	base.Code = code
	return ToMap(base)
}
