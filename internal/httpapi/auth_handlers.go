package httpapi

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
)

type signUpRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
	Name     string `json:"name"`
}

type signInRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type tokenRefreshRequest struct {
	RefreshToken string `json:"refreshToken" binding:"required"`
}

// HandleRegister creates a user account and issues its first token pair.
func HandleRegister(sessions *authcore.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound signUpRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			writeBadRequest(contextGin, "Validation failed", []string{bindErr.Error()})
			return
		}

		user, tokens, authErr := sessions.SignUp(contextGin.Request.Context(), inbound.Email, inbound.Password, inbound.Name)
		if authErr != nil {
			writeAuthError(contextGin, authErr)
			return
		}

		writeData(contextGin, http.StatusCreated, "Signup successful", authView{
			User:   toUserView(user),
			Tokens: tokens,
		})
	}
}

// HandleLogin verifies credentials and issues a fresh token pair.
func HandleLogin(sessions *authcore.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		var inbound signInRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			writeBadRequest(contextGin, "Validation failed", []string{bindErr.Error()})
			return
		}

		user, tokens, authErr := sessions.SignIn(contextGin.Request.Context(), inbound.Email, inbound.Password)
		if authErr != nil {
			writeAuthError(contextGin, authErr)
			return
		}

		writeData(contextGin, http.StatusOK, "Login successful", authView{
			User:   toUserView(user),
			Tokens: tokens,
		})
	}
}

// HandleLogout revokes the session resolved by the bearer guard.
func HandleLogout(sessions *authcore.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		keystore, ok := currentKeystore(contextGin)
		if !ok {
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}
		if authErr := sessions.SignOut(contextGin.Request.Context(), keystore.ID); authErr != nil {
			writeAuthError(contextGin, authErr)
			return
		}
		writeMessage(contextGin, http.StatusOK, "Logout successful")
	}
}

// HandleTokenRefresh rotates a token pair. The route is public but requires a
// bearer access token header alongside the refresh token in the body.
func HandleTokenRefresh(sessions *authcore.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		accessToken := extractBearerToken(contextGin)
		if accessToken == "" {
			logger.Warn("token refresh without bearer access token")
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}

		var inbound tokenRefreshRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil || strings.TrimSpace(inbound.RefreshToken) == "" {
			writeBadRequest(contextGin, "Validation failed", []string{"refreshToken is required"})
			return
		}

		_, tokens, authErr := sessions.RefreshToken(contextGin.Request.Context(), inbound.RefreshToken, accessToken)
		if authErr != nil {
			writeAuthError(contextGin, authErr)
			return
		}

		writeData(contextGin, http.StatusOK, "Token refreshed", tokens)
	}
}

// HandleCreateAPIKey issues a machine credential for the authenticated user.
func HandleCreateAPIKey(sessions *authcore.SessionManager, logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		user, ok := currentUser(contextGin)
		if !ok {
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}
		apiKey, authErr := sessions.CreateAPIKey(contextGin.Request.Context(), user.Email)
		if authErr != nil {
			writeAuthError(contextGin, authErr)
			return
		}
		writeData(contextGin, http.StatusCreated, "API key created", toAPIKeyView(apiKey))
	}
}
