package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/oksasatya/otp-auth-gateway/internal/application"
	repo "github.com/oksasatya/otp-auth-gateway/internal/domain/repository"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/response"
	"github.com/oksasatya/otp-auth-gateway/pkg/validation"
)

type AuthHandler struct {
	Svc     *application.AuthService
	Logger  *logrus.Logger
	Cookies *helpers.Manager
}

func NewAuthHandler(svc *application.AuthService, logger *logrus.Logger, cookieDomain string) *AuthHandler {
	return &AuthHandler{Svc: svc, Logger: logger, Cookies: helpers.NewCookie(cookieDomain)}
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

type signUpRequest struct {
	FullName string `json:"fullName" binding:"required,fullname"`
	Email    string `json:"email" binding:"required,email"`
}

type verifyRequest struct {
	AccountID string `json:"accountId" binding:"required,accountid"`
	Password  string `json:"password" binding:"required,otp"`
}

// statusFor maps backend failures to an HTTP status; anything unrecognised is a gateway error.
func statusFor(err error) int {
	switch {
	case errors.Is(err, repo.ErrInvalidToken),
		errors.Is(err, repo.ErrUnauthorized),
		errors.Is(err, repo.ErrNoSession):
		return http.StatusUnauthorized
	default:
		return http.StatusBadGateway
	}
}

// SendOTP POST /api/auth/otp
func (h *AuthHandler) SendOTP(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	accountID, err := h.Svc.SendEmailOTP(c.Request.Context(), req.Email)
	if err != nil {
		response.Error[any](c, statusFor(err), "failed to send email OTP", nil)
		return
	}
	response.Success(c, http.StatusOK, application.AccountResult{AccountID: accountID}, "otp sent", nil)
}

// SignUp POST /api/auth/sign-up
func (h *AuthHandler) SignUp(c *gin.Context) {
	var req signUpRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.CreateAccount(c.Request.Context(), req.FullName, req.Email)
	if err != nil {
		response.Error[any](c, statusFor(err), "failed to create account", nil)
		return
	}
	response.Success(c, http.StatusOK, res, "otp sent", nil)
}

// SignIn POST /api/auth/sign-in
func (h *AuthHandler) SignIn(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.SignIn(c.Request.Context(), req.Email)
	if err != nil {
		response.Error[any](c, statusFor(err), "failed to sign in user", nil)
		return
	}
	if res.Error != "" {
		response.Error[any](c, http.StatusNotFound, res.Error, res)
		return
	}
	response.Success(c, http.StatusOK, res, "otp sent", nil)
}

// Verify POST /api/auth/verify
func (h *AuthHandler) Verify(c *gin.Context) {
	var req verifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error[any](c, http.StatusBadRequest, "invalid payload", validation.ToDetails(err))
		return
	}
	res, err := h.Svc.VerifySecret(c.Request.Context(), h.Cookies.Scope(c), req.AccountID, req.Password)
	if err != nil {
		response.Error[any](c, statusFor(err), "failed to verify OTP", nil)
		return
	}
	response.Success(c, http.StatusOK, res, "signed in", nil)
}

// Me GET /api/auth/me
func (h *AuthHandler) Me(c *gin.Context) {
	u := h.Svc.GetCurrentUser(c.Request.Context(), h.Cookies.Scope(c))
	if u == nil {
		response.Error[any](c, http.StatusUnauthorized, "unauthorized", nil)
		return
	}
	response.Success(c, http.StatusOK, u, "current user", nil)
}

// SignOut POST /api/auth/sign-out
// The service clears the cookie and issues the redirect itself.
func (h *AuthHandler) SignOut(c *gin.Context) {
	_ = h.Svc.SignOut(c.Request.Context(), h.Cookies.Scope(c))
}
