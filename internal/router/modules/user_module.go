package modules

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/otp-auth-gateway/internal/container"
	handlers "github.com/oksasatya/otp-auth-gateway/internal/interface/http"
	"github.com/oksasatya/otp-auth-gateway/internal/interface/middleware"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
)

// UserModule exposes user record lookups to signed-in callers.
// Protected: GET /api/users/lookup, GET /api/users/search
type UserModule struct {
	Handler *handlers.UserHandler
	Users   middleware.CurrentUserResolver
	Cookies *helpers.Manager
}

func NewUserModule(h *handlers.UserHandler, users middleware.CurrentUserResolver, cookies *helpers.Manager) *UserModule {
	return &UserModule{Handler: h, Users: users, Cookies: cookies}
}

func (m *UserModule) Name() string { return "users" }

func (m *UserModule) Register(rg *gin.RouterGroup) {
	users := rg.Group("/users")
	users.Use(middleware.Auth(m.Users, m.Cookies))
	users.Use(
		middleware.RateLimit(container.GetRedis(), 300, time.Minute, middleware.KeyByIP(), nil),
		middleware.RateLimit(container.GetRedis(), 120, time.Minute, middleware.KeyByUserID(), nil),
	)
	{
		users.GET("/lookup", m.Handler.Lookup)
		users.GET("/search", m.Handler.Search)
	}
}
