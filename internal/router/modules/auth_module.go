package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/otp-auth-gateway/internal/container"
	handlers "github.com/oksasatya/otp-auth-gateway/internal/interface/http"
	"github.com/oksasatya/otp-auth-gateway/internal/interface/middleware"
)

// AuthModule serves the passcode sign-up and sign-in flow under /auth.
type AuthModule struct {
	Handler *handlers.AuthHandler
}

func NewAuthModule(h *handlers.AuthHandler) *AuthModule {
	return &AuthModule{Handler: h}
}

func (m *AuthModule) Name() string { return "auth" }

func (m *AuthModule) Register(rg *gin.RouterGroup) {
	rdb := container.GetRedis()
	// Every passcode request sends an email.
	otpLimiter := middleware.RateLimit(rdb, 5, time.Minute, middleware.KeyByIPAndPath(), nil)
	verifyLimiter := middleware.RateLimit(rdb, 30, time.Minute, middleware.KeyByIPAndPath(), nil)
	sessionLimiter := middleware.RateLimit(rdb, 120, time.Minute, middleware.KeyByIP(), nil)

	auth := rg.Group("/auth")
	{
		auth.POST("/otp", otpLimiter, m.Handler.SendOTP)
		auth.POST("/sign-up", otpLimiter, m.Handler.SignUp)
		auth.POST("/sign-in", otpLimiter, m.Handler.SignIn)
		auth.POST("/verify", verifyLimiter, m.Handler.Verify)
		auth.GET("/me", sessionLimiter, m.Handler.Me)
		auth.POST("/sign-out", sessionLimiter, m.Handler.SignOut)
	}
}
