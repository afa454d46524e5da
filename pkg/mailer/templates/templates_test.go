package templates

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/otp-auth-gateway/config"
)

func TestRenderLoginOTP(t *testing.T) {
	cfg := &config.Config{AppName: "StoreIt", CompanyName: "Acme"}
	exp := time.Date(2026, 1, 2, 15, 4, 0, 0, time.UTC)
	data := NewLoginOTPData(cfg, "ann@example.com", "123456", WithExpiresAt(exp))

	subject, text, html, err := Render(LoginOTP, data)
	require.NoError(t, err)

	assert.Equal(t, "Your StoreIt verification code", subject)
	assert.Contains(t, text, "123456")
	assert.Contains(t, text, "02 January 2026, 15:04")
	assert.Contains(t, html, "123456")
	assert.Contains(t, html, "Acme")
}

func TestRenderLoginOTP_Defaults(t *testing.T) {
	data := NewLoginOTPData(nil, "ann@example.com", "000042")

	subject, text, _, err := Render(LoginOTP, data)
	require.NoError(t, err)

	assert.Equal(t, "Your account verification code", subject)
	assert.Contains(t, text, "000042")
	assert.NotContains(t, text, "expires")
}

func TestRenderUnknownTemplate(t *testing.T) {
	_, _, _, err := Render("missing", nil)
	assert.Error(t, err)
}
