package router

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"

	"github.com/oksasatya/otp-auth-gateway/config"
	"github.com/oksasatya/otp-auth-gateway/internal/container"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/memory"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
)

func newTestRegistry(t *testing.T, debug bool) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	cfg.DebugMetricsEnabled = debug
	container.SetConfig(cfg)
	container.SetLogger(helpers.NewDiscardLogger())
	container.SetClients(memory.NewBackend(time.Minute, time.Hour, nil))

	engine := gin.New()
	reg := NewRegistry(engine)
	InitModules(reg)
	reg.RegisterAll()
	return engine
}

func TestInitModules_RegistersRoutes(t *testing.T) {
	engine := newTestRegistry(t, false)

	routes := map[string]bool{}
	for _, ri := range engine.Routes() {
		routes[ri.Method+" "+ri.Path] = true
	}
	for _, want := range []string{
		"POST /api/auth/otp",
		"POST /api/auth/sign-up",
		"POST /api/auth/sign-in",
		"POST /api/auth/verify",
		"GET /api/auth/me",
		"POST /api/auth/sign-out",
		"GET /api/users/lookup",
		"GET /api/users/search",
	} {
		assert.True(t, routes[want], want)
	}
	assert.False(t, routes["GET /api/debug/vars"])
}

func TestInitModules_DebugToggle(t *testing.T) {
	gin.SetMode(gin.TestMode)
	cfg := config.Load()
	cfg.DebugMetricsEnabled = true
	container.SetConfig(cfg)
	container.SetClients(memory.NewBackend(time.Minute, time.Hour, nil))

	reg := NewRegistry(gin.New())
	InitModules(reg)
	assert.Equal(t, []string{"auth", "users", "debug"}, reg.Modules())
}

func TestUsersRoutesRequireSession(t *testing.T) {
	engine := newTestRegistry(t, true)

	w := httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/users/lookup?email=a@b.test", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = httptest.NewRecorder()
	engine.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil))
	assert.Equal(t, http.StatusOK, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "memstats"))
	assert.True(t, strings.Contains(w.Body.String(), `"backend_provider": "memory"`))
}

func TestDebugVars_PrivateScrapersBypassLimit(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	container.SetRedis(rdb)
	t.Cleanup(func() {
		container.SetRedis(nil)
		_ = rdb.Close()
	})
	engine := newTestRegistry(t, true)

	get := func(remote string) int {
		req := httptest.NewRequest(http.MethodGet, "/api/debug/vars", nil)
		req.RemoteAddr = remote
		w := httptest.NewRecorder()
		engine.ServeHTTP(w, req)
		return w.Code
	}

	for i := 0; i < 40; i++ {
		assert.Equal(t, http.StatusOK, get("10.0.0.5:4000"))
	}

	var last int
	for i := 0; i < 31; i++ {
		last = get("203.0.113.9:4000")
	}
	assert.Equal(t, http.StatusTooManyRequests, last)
}
