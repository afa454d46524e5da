package router

import (
	"github.com/oksasatya/otp-auth-gateway/internal/application"
	"github.com/oksasatya/otp-auth-gateway/internal/container"
	"github.com/oksasatya/otp-auth-gateway/internal/infrastructure/search"
	handlers "github.com/oksasatya/otp-auth-gateway/internal/interface/http"
	"github.com/oksasatya/otp-auth-gateway/internal/router/modules"
	"github.com/oksasatya/otp-auth-gateway/pkg/helpers"
)

type AuthModuleDeps struct {
	Service     *application.AuthService
	AuthHandler *handlers.AuthHandler
	UserHandler *handlers.UserHandler
	Cookies     *helpers.Manager
}

func buildAuthDeps() AuthModuleDeps {
	cfg := container.GetConfig()
	logger := container.GetLogger()

	index := search.NewUserIndex(container.GetES(), cfg.ESUsersIndex, logger)

	service := application.NewAuthService(
		container.GetClients(),
		cfg.DatabaseID,
		cfg.UsersCollectionID,
		cfg.AvatarPlaceholderURL,
		cfg.SignInPath,
		index,
		logger,
	)

	authHandler := handlers.NewAuthHandler(service, logger, cfg.CookieDomain)

	return AuthModuleDeps{
		Service:     service,
		AuthHandler: authHandler,
		UserHandler: handlers.NewUserHandler(service, logger),
		Cookies:     authHandler.Cookies,
	}
}

// InitModules initializes all application modules and registers them with the router registry
// This function should be called once during application startup to wire up all modules
func InitModules(r *Registry) {
	r.Logger = container.GetLogger()
	deps := buildAuthDeps()
	r.Add(modules.NewAuthModule(deps.AuthHandler))
	r.Add(modules.NewUserModule(deps.UserHandler, deps.Service, deps.Cookies))
	if container.GetConfig().DebugMetricsEnabled {
		r.Add(modules.NewDebugModule())
	}
}
