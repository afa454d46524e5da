package modules

import (
	"expvar"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/otp-auth-gateway/internal/container"
	"github.com/oksasatya/otp-auth-gateway/internal/interface/middleware"
)

var publishOnce sync.Once

// DebugModule serves expvar at /debug/vars, including the active backend provider.
// Scrapers on private networks are not rate limited.
type DebugModule struct{}

func NewDebugModule() *DebugModule { return &DebugModule{} }

func (m *DebugModule) Name() string { return "debug" }

func (m *DebugModule) Register(rg *gin.RouterGroup) {
	publishOnce.Do(func() {
		provider := ""
		if cfg := container.GetConfig(); cfg != nil {
			provider = cfg.BackendProvider
		}
		expvar.NewString("backend_provider").Set(provider)
	})
	rl := middleware.RateLimit(container.GetRedis(), 30, time.Minute, middleware.KeyByIP(), middleware.AllowPrivateIP())
	rg.GET("/debug/vars", rl, gin.WrapH(expvar.Handler()))
}
