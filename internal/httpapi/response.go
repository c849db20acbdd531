package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/weathervault/weathervault/internal/authcore"
)

// Envelope status codes. These are wire-visible and drive client behavior:
// StatusCodeInvalidAccessToken tells the client to act on the instruction
// header rather than retry.
const (
	StatusCodeSuccess            = 10000
	StatusCodeFailure            = 10001
	StatusCodeRetry              = 10002
	StatusCodeInvalidAccessToken = 10003
)

// InstructionHeader carries the client recovery instruction on auth failures.
const InstructionHeader = "instruction"

type messageResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
}

type dataResponse struct {
	StatusCode int    `json:"statusCode"`
	Message    string `json:"message"`
	Data       any    `json:"data"`
}

type paginationResponse struct {
	StatusCode int   `json:"statusCode"`
	Message    string `json:"message"`
	Data       any   `json:"data"`
	Total      int64 `json:"total"`
	Page       int   `json:"page"`
	Limit      int   `json:"limit"`
}

type errorResponse struct {
	StatusCode int      `json:"statusCode"`
	Message    string   `json:"message"`
	Errors     []string `json:"errors,omitempty"`
	URL        string   `json:"url"`
}

func writeMessage(contextGin *gin.Context, httpStatus int, message string) {
	contextGin.JSON(httpStatus, messageResponse{
		StatusCode: StatusCodeSuccess,
		Message:    message,
	})
}

func writeData(contextGin *gin.Context, httpStatus int, message string, data any) {
	contextGin.JSON(httpStatus, dataResponse{
		StatusCode: StatusCodeSuccess,
		Message:    message,
		Data:       data,
	})
}

func writePagination(contextGin *gin.Context, message string, data any, total int64, page int, limit int) {
	contextGin.JSON(http.StatusOK, paginationResponse{
		StatusCode: StatusCodeSuccess,
		Message:    message,
		Data:       data,
		Total:      total,
		Page:       page,
		Limit:      limit,
	})
}

// writeAuthError maps the domain error to its transport status and envelope,
// appending the client instruction header when the code carries one.
func writeAuthError(contextGin *gin.Context, authError *authcore.AuthError) {
	statusCode := StatusCodeFailure
	if authError.Code == authcore.CodeInvalidAccessToken || authError.Code == authcore.CodeExpiredAccessToken {
		statusCode = StatusCodeInvalidAccessToken
	}
	if instruction := authError.Instruction(); instruction != "" {
		contextGin.Header(InstructionHeader, instruction)
	}
	contextGin.AbortWithStatusJSON(authError.HTTPStatus(), errorResponse{
		StatusCode: statusCode,
		Message:    authError.Message,
		URL:        contextGin.Request.URL.Path,
	})
}

func writeBadRequest(contextGin *gin.Context, message string, validationErrors []string) {
	contextGin.AbortWithStatusJSON(http.StatusBadRequest, errorResponse{
		StatusCode: StatusCodeFailure,
		Message:    message,
		Errors:     validationErrors,
		URL:        contextGin.Request.URL.Path,
	})
}

func writeNotFound(contextGin *gin.Context, message string) {
	contextGin.AbortWithStatusJSON(http.StatusNotFound, errorResponse{
		StatusCode: StatusCodeFailure,
		Message:    message,
		URL:        contextGin.Request.URL.Path,
	})
}

// writeInternal discloses the real failure only in development-like
// environments; production clients get a generic message. The full detail is
// always logged server-side by the caller.
func writeInternal(contextGin *gin.Context, environment string, detail string) {
	clientMessage := "Something went wrong"
	if isDevelopmentEnvironment(environment) && detail != "" {
		clientMessage = detail
	}
	contextGin.AbortWithStatusJSON(http.StatusInternalServerError, errorResponse{
		StatusCode: StatusCodeFailure,
		Message:    clientMessage,
		URL:        contextGin.Request.URL.Path,
	})
}

func isDevelopmentEnvironment(environment string) bool {
	return environment == "development" || environment == "local"
}
