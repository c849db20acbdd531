package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
)

type updateProfileRequest struct {
	Name string `json:"name" binding:"required,max=200"`
}

// HandleMyProfile returns the authenticated user's private profile.
func HandleMyProfile(users authcore.CredentialStore, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		user, ok := currentUser(contextGin)
		if !ok {
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}
		profile, findErr := users.FindUserByID(contextGin.Request.Context(), user.ID)
		if findErr != nil {
			if errors.Is(findErr, authcore.ErrUserNotFound) {
				writeNotFound(contextGin, "User not found")
				return
			}
			logger.Error("profile lookup failed", zap.String("user_id", user.ID.String()), zap.Error(findErr))
			writeInternal(contextGin, environment, findErr.Error())
			return
		}
		writeData(contextGin, http.StatusOK, "Profile fetched", toUserView(profile))
	}
}

// HandleUpdateMyProfile updates the authenticated user's display name.
func HandleUpdateMyProfile(users authcore.CredentialStore, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		user, ok := currentUser(contextGin)
		if !ok {
			writeAuthError(contextGin, authcore.NewAuthError(authcore.CodeUnauthorized, ""))
			return
		}
		var inbound updateProfileRequest
		if bindErr := contextGin.ShouldBindJSON(&inbound); bindErr != nil {
			writeBadRequest(contextGin, "Validation failed", []string{bindErr.Error()})
			return
		}
		updated, updateErr := users.UpdateUserName(contextGin.Request.Context(), user.ID, inbound.Name)
		if updateErr != nil {
			if errors.Is(updateErr, authcore.ErrUserNotFound) {
				writeNotFound(contextGin, "User not found")
				return
			}
			logger.Error("profile update failed", zap.String("user_id", user.ID.String()), zap.Error(updateErr))
			writeInternal(contextGin, environment, updateErr.Error())
			return
		}
		writeData(contextGin, http.StatusOK, "Profile updated", toUserView(updated))
	}
}

// HandleListUsers returns one page of users. Restricted by the role guard.
func HandleListUsers(users authcore.CredentialStore, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		page, limit := paginationParams(contextGin)
		pageUsers, total, listErr := users.ListUsers(contextGin.Request.Context(), page, limit)
		if listErr != nil {
			logger.Error("user listing failed", zap.Error(listErr))
			writeInternal(contextGin, environment, listErr.Error())
			return
		}
		writePagination(contextGin, "Users fetched", toUserViews(pageUsers), total, page, limit)
	}
}

// HandleDeleteUser removes or deactivates a user by id. Restricted by the role
// guard. `?soft=true` deactivates instead of deleting.
func HandleDeleteUser(users authcore.CredentialStore, logger *zap.Logger, environment string) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}
	return func(contextGin *gin.Context) {
		userID, parseErr := uuid.Parse(contextGin.Param("id"))
		if parseErr != nil {
			writeBadRequest(contextGin, "Invalid user id", nil)
			return
		}

		var actionErr error
		if contextGin.Query("soft") == "true" {
			actionErr = users.DeactivateUser(contextGin.Request.Context(), userID)
		} else {
			actionErr = users.DeleteUser(contextGin.Request.Context(), userID)
		}
		if actionErr != nil {
			if errors.Is(actionErr, authcore.ErrUserNotFound) {
				writeNotFound(contextGin, "User not found")
				return
			}
			logger.Error("user removal failed", zap.String("user_id", userID.String()), zap.Error(actionErr))
			writeInternal(contextGin, environment, actionErr.Error())
			return
		}
		writeMessage(contextGin, http.StatusOK, "User removed")
	}
}
