package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oksasatya/otp-auth-gateway/internal/application"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/memory"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
	"github.com/oksasatya/otp-auth-gateway/pkg/validation"
)

type inbox struct {
	mu    sync.Mutex
	codes map[string]string
}

func (i *inbox) put(email, code string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.codes[email] = code
}

func (i *inbox) get(email string) string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return i.codes[email]
}

type envelope struct {
	Status  int             `json:"status"`
	Success bool            `json:"success"`
	Message string          `json:"message"`
	Data    json.RawMessage `json:"data"`
	Error   json.RawMessage `json:"error"`
}

func newTestEngine(t *testing.T) (*gin.Engine, *inbox) {
	t.Helper()
	gin.SetMode(gin.TestMode)
	validation.Init()

	box := &inbox{codes: map[string]string{}}
	backend := memory.NewBackend(15*time.Minute, time.Hour, box.put)
	logger := helpers.NewDiscardLogger()
	svc := application.NewAuthService(backend, "main", "users", "https://cdn.example.com/a.png", "/sign-in", nil, logger)
	ah := NewAuthHandler(svc, logger, "")
	uh := NewUserHandler(svc, logger)

	r := gin.New()
	api := r.Group("/api")
	api.POST("/auth/otp", ah.SendOTP)
	api.POST("/auth/sign-up", ah.SignUp)
	api.POST("/auth/sign-in", ah.SignIn)
	api.POST("/auth/verify", ah.Verify)
	api.GET("/auth/me", ah.Me)
	api.POST("/auth/sign-out", ah.SignOut)
	api.GET("/users/lookup", uh.Lookup)
	api.GET("/users/search", uh.Search)
	return r, box
}

func do(r http.Handler, method, path string, body any, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func sessionCookie(w *httptest.ResponseRecorder) *http.Cookie {
	for _, c := range w.Result().Cookies() {
		if c.Name == helpers.SessionCookieName {
			return c
		}
	}
	return nil
}

func TestSignUpVerifyMeSignOut(t *testing.T) {
	r, box := newTestEngine(t)

	w := do(r, http.MethodPost, "/api/auth/sign-up", gin.H{"fullName": "Jane Doe", "email": "jane@example.com"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var acc application.AccountResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &acc))
	require.NotEmpty(t, acc.AccountID)

	w = do(r, http.MethodPost, "/api/auth/verify", gin.H{"accountId": acc.AccountID, "password": box.get("jane@example.com")})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	cookie := sessionCookie(w)
	require.NotNil(t, cookie)
	assert.True(t, cookie.HttpOnly)
	assert.True(t, cookie.Secure)
	assert.Equal(t, http.SameSiteStrictMode, cookie.SameSite)
	assert.Equal(t, "/", cookie.Path)

	w = do(r, http.MethodGet, "/api/auth/me", nil, cookie)
	require.Equal(t, http.StatusOK, w.Code)
	var me struct {
		FullName  string `json:"fullName"`
		AccountID string `json:"accountId"`
	}
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &me))
	assert.Equal(t, "Jane Doe", me.FullName)
	assert.Equal(t, acc.AccountID, me.AccountID)

	w = do(r, http.MethodPost, "/api/auth/sign-out", nil, cookie)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	cleared := sessionCookie(w)
	require.NotNil(t, cleared)
	assert.Empty(t, cleared.Value)

	w = do(r, http.MethodGet, "/api/auth/me", nil, cookie)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestSignIn_UnknownEmailIsNotFound(t *testing.T) {
	r, box := newTestEngine(t)

	w := do(r, http.MethodPost, "/api/auth/sign-in", gin.H{"email": "nobody@example.com"})
	assert.Equal(t, http.StatusNotFound, w.Code)
	env := decode(t, w)
	assert.False(t, env.Success)
	assert.Equal(t, "User not found", env.Message)
	assert.JSONEq(t, `{"error":"User not found"}`, string(env.Error))
	assert.Empty(t, box.get("nobody@example.com"))
}

func TestVerify_WrongCodeSetsNoCookie(t *testing.T) {
	r, box := newTestEngine(t)

	w := do(r, http.MethodPost, "/api/auth/sign-up", gin.H{"fullName": "Jane Doe", "email": "jane@example.com"})
	require.Equal(t, http.StatusOK, w.Code)
	var acc application.AccountResult
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &acc))

	w = do(r, http.MethodPost, "/api/auth/verify", gin.H{"accountId": acc.AccountID, "password": "999999x"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	wrong := "000000"
	if box.get("jane@example.com") == wrong {
		wrong = "111111"
	}
	w = do(r, http.MethodPost, "/api/auth/verify", gin.H{"accountId": acc.AccountID, "password": wrong})
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Nil(t, sessionCookie(w))
}

func TestSignOut_WithoutCookieStillRedirects(t *testing.T) {
	r, _ := newTestEngine(t)

	w := do(r, http.MethodPost, "/api/auth/sign-out", nil)
	assert.Equal(t, http.StatusSeeOther, w.Code)
	assert.Equal(t, "/sign-in", w.Header().Get("Location"))
	assert.NotNil(t, sessionCookie(w))
}

func TestValidationErrorsUseJSONNames(t *testing.T) {
	r, _ := newTestEngine(t)

	w := do(r, http.MethodPost, "/api/auth/sign-up", gin.H{"email": "not-an-email"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	var details map[string]string
	require.NoError(t, json.Unmarshal(decode(t, w).Error, &details))
	assert.Equal(t, "is required", details["fullName"])
	assert.Equal(t, "must be a valid email", details["email"])
}

func TestLookup(t *testing.T) {
	r, _ := newTestEngine(t)

	w := do(r, http.MethodGet, "/api/users/lookup?email=jane@example.com", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	do(r, http.MethodPost, "/api/auth/sign-up", gin.H{"fullName": "Jane Doe", "email": "jane@example.com"})
	w = do(r, http.MethodGet, "/api/users/lookup?email=jane@example.com", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	w = do(r, http.MethodGet, "/api/users/search", nil)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = do(r, http.MethodGet, "/api/users/search?q=jane", nil)
	assert.Equal(t, http.StatusOK, w.Code)
}
