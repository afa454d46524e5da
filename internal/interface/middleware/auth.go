package middleware

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/oksasatya/otp-auth-gateway/internal/application"
	"github.com/oksasatya/otp-auth-gateway/internal/domain/entity"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/response"
)

// Context keys set by Auth.
const (
	CtxUserIDKey    = "userID"
	CtxAccountIDKey = "accountID"
	CtxUserEmailKey = "userEmail"
)

// CurrentUserResolver resolves the caller's session cookie to a user record.
type CurrentUserResolver interface {
	GetCurrentUser(ctx context.Context, scope application.CallerScope) *entity.User
}

// Auth requires a session cookie that resolves to a stored user record.
func Auth(users CurrentUserResolver, cookies *helpers.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		if cookies.Session(c) == "" {
			response.Error[any](c, http.StatusUnauthorized, "missing session", nil)
			c.Abort()
			return
		}
		u := users.GetCurrentUser(c.Request.Context(), cookies.Scope(c))
		if u == nil {
			response.Error[any](c, http.StatusUnauthorized, "session not found", nil)
			c.Abort()
			return
		}

		c.Set(CtxUserIDKey, u.ID)
		c.Set(CtxAccountIDKey, u.AccountID)
		c.Set(CtxUserEmailKey, u.Email)
		c.Next()
	}
}
