package httpapi

import (
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
)

// Context keys under which guards attach resolved identities.
const (
	ContextKeyUser     = "auth_user"
	ContextKeyKeystore = "auth_keystore"
	ContextKeyAPIKey   = "auth_apikey"
)

// APIKeyHeader is the header carrying the machine credential.
const APIKeyHeader = "x-api-key"

// RequireAuth is the bearer-auth guard. Routes not wrapped by it are public;
// route metadata is the middleware chain itself, declared per route.
func RequireAuth(sessions *authcore.SessionManager, logger *zap.Logger, metrics authcore.MetricsRecorder) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = authcore.NopMetrics{}
	}
	return func(contextGin *gin.Context) {
		token := extractBearerToken(contextGin)
		if token == "" {
			logger.Warn("no bearer token found in request headers",
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardUnauthorized)
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}

		user, keystore, authErr := sessions.Authenticate(contextGin.Request.Context(), token)
		if authErr != nil {
			metrics.Increment(authcore.MetricGuardUnauthorized)
			writeAuthError(contextGin, authErr)
			return
		}

		contextGin.Set(ContextKeyUser, user)
		contextGin.Set(ContextKeyKeystore, keystore)
		contextGin.Next()
	}
}

// RequireRoles is the role guard. It must run after RequireAuth; a missing
// context user is rejected rather than passed through. No declared codes means
// the guard passes unconditionally.
func RequireRoles(logger *zap.Logger, metrics authcore.MetricsRecorder, codes ...authcore.RoleCode) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = authcore.NopMetrics{}
	}
	return func(contextGin *gin.Context) {
		if len(codes) == 0 {
			contextGin.Next()
			return
		}
		user, ok := currentUser(contextGin)
		if !ok {
			logger.Warn("user not found in request for role validation",
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardForbidden)
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeForbidden, ""))
			return
		}
		if !user.HasAnyRole(codes...) {
			logger.Warn("user does not have required roles for access",
				zap.String("user_id", user.ID.String()),
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardForbidden)
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeForbidden, ""))
			return
		}
		contextGin.Next()
	}
}

// RequireAPIKey is the machine-client guard, independent of bearer auth.
// Routes not wrapped by it skip API-key verification entirely. No declared
// permissions means the general-access permission is required.
func RequireAPIKey(sessions *authcore.SessionManager, logger *zap.Logger, metrics authcore.MetricsRecorder, permissions ...authcore.Permission) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = authcore.NopMetrics{}
	}
	if len(permissions) == 0 {
		permissions = []authcore.Permission{authcore.PermissionGeneral}
	}
	return func(contextGin *gin.Context) {
		key := strings.TrimSpace(contextGin.GetHeader(APIKeyHeader))
		if key == "" {
			logger.Warn("no api key found on request headers, denying access",
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardForbidden)
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeForbidden, ""))
			return
		}

		apiKey, lookupErr := sessions.LookupAPIKey(contextGin.Request.Context(), key)
		if lookupErr != nil {
			logger.Warn("api key not found, denying access",
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardForbidden)
			writeAuthError(contextGin, lookupErr)
			return
		}

		if !apiKey.HasAnyPermission(permissions...) {
			logger.Warn("api key does not have required permissions, denying access",
				zap.String("path", contextGin.Request.URL.Path))
			metrics.Increment(authcore.MetricGuardForbidden)
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeForbidden, ""))
			return
		}

		contextGin.Set(ContextKeyAPIKey, apiKey)
		contextGin.Next()
	}
}

func extractBearerToken(contextGin *gin.Context) string {
	authorization := contextGin.GetHeader("Authorization")
	if authorization == "" {
		return ""
	}
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || scheme != "Bearer" {
		return ""
	}
	return strings.TrimSpace(token)
}

func currentUser(contextGin *gin.Context) (authcore.User, bool) {
	value, exists := contextGin.Get(ContextKeyUser)
	if !exists {
		return authcore.User{}, false
	}
	user, ok := value.(authcore.User)
	return user, ok
}

func currentKeystore(contextGin *gin.Context) (authcore.Keystore, bool) {
	value, exists := contextGin.Get(ContextKeyKeystore)
	if !exists {
		return authcore.Keystore{}, false
	}
	keystore, ok := value.(authcore.Keystore)
	return keystore, ok
}
