package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/internal/application"
	"github.com/oksasatya/otp-auth-gateway/pkg/response"
	"github.com/oksasatya/otp-auth-gateway/pkg/validation"
)

type UserHandler struct {
	Svc    *application.AuthService
	Logger *logrus.Logger
}

func NewUserHandler(svc *application.AuthService, logger *logrus.Logger) *UserHandler {
	return &UserHandler{Svc: svc, Logger: logger}
}

type lookupQuery struct {
	Email string `form:"email" binding:"required,email"`
}

type searchQuery struct {
	Q    string `form:"q" binding:"required,max=128"`
	Size int    `form:"size" binding:"omitempty,min=1,max=50"`
}

// Lookup GET /api/users/lookup?email=
func (h *UserHandler) Lookup(c *gin.Context) {
	var q lookupQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	u, err := h.Svc.LookupUserByEmail(c.Request.Context(), q.Email)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).WithField("email", q.Email).Error("lookup user failed")
		}
		response.Error[any](c, http.StatusBadGateway, "lookup failed", nil)
		return
	}
	if u == nil {
		response.Error[any](c, http.StatusNotFound, "user not found", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "user", nil)
}

// Search GET /api/users/search?q=&size=
func (h *UserHandler) Search(c *gin.Context) {
	var q searchQuery
	if err := c.ShouldBindQuery(&q); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid query", validation.ToDetails(err))
		return
	}
	users, err := h.Svc.SearchUsers(c.Request.Context(), q.Q, q.Size)
	if err != nil {
		if h.Logger != nil {
			h.Logger.WithError(err).Warn("search users failed")
		}
		response.Error[any](c, http.StatusBadGateway, "search failed", nil)
		return
	}
	response.Success(c, http.StatusOK, users, "users", map[string]any{"count": len(users)})
}
