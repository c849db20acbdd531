package httpapi

import (
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
	"github.com/weathervault/weathervault/internal/weather"
)

// Dependencies carries everything the HTTP surface needs.
type Dependencies struct {
	Sessions    *authcore.SessionManager
	Users       authcore.CredentialStore
	Weather     *weather.Service
	Logger      *zap.Logger
	Metrics     authcore.MetricsRecorder
	Environment string
}

// MountRoutes declares the route table under /api/v1. Guard composition is
// explicit per route: bearer auth before role checks for user-facing routes,
// the API-key guard standing alone on machine write endpoints.
func MountRoutes(router gin.IRouter, deps Dependencies) {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	if deps.Metrics == nil {
		deps.Metrics = authcore.NopMetrics{}
	}
	api := router.Group("/api/v1")

	auth := api.Group("/auth")
	auth.POST("/register", HandleRegister(deps.Sessions, deps.Logger))
	auth.POST("/login", HandleLogin(deps.Sessions, deps.Logger))
	auth.POST("/token/refresh", HandleTokenRefresh(deps.Sessions, deps.Logger))
	auth.DELETE("/logout",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		HandleLogout(deps.Sessions, deps.Logger))
	auth.POST("/api-key",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		HandleCreateAPIKey(deps.Sessions, deps.Logger))

	user := api.Group("/user")
	user.GET("/my",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		HandleMyProfile(deps.Users, deps.Logger, deps.Environment))
	user.PATCH("/my",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		HandleUpdateMyProfile(deps.Users, deps.Logger, deps.Environment))
	user.GET("",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		RequireRoles(deps.Logger, deps.Metrics, authcore.RoleAdmin, authcore.RoleManager),
		HandleListUsers(deps.Users, deps.Logger, deps.Environment))
	user.DELETE("/:id",
		RequireAuth(deps.Sessions, deps.Logger, deps.Metrics),
		RequireRoles(deps.Logger, deps.Metrics, authcore.RoleAdmin),
		HandleDeleteUser(deps.Users, deps.Logger, deps.Environment))

	weatherGroup := api.Group("/weather")
	weatherGroup.POST("",
		RequireAPIKey(deps.Sessions, deps.Logger, deps.Metrics),
		HandleCreateSnapshot(deps.Weather, deps.Logger, deps.Environment))
	weatherGroup.GET("", HandleListSnapshots(deps.Weather, deps.Logger, deps.Environment))
	weatherGroup.GET("/:id", HandleGetSnapshot(deps.Weather, deps.Logger, deps.Environment))
	weatherGroup.DELETE("/:id", HandleDeleteSnapshot(deps.Weather, deps.Logger, deps.Environment))
}
