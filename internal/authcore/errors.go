package authcore

import "net/http"

// ErrorCode enumerates the auth domain failure taxonomy.
type ErrorCode string

const (
	CodeUserAlreadyExists    ErrorCode = "USER_ALREADY_EXISTS"
	CodeInvalidCredentials   ErrorCode = "INVALID_CREDENTIALS"
	CodeUserNotRegistered    ErrorCode = "USER_NOT_REGISTERED"
	CodeInvalidAccessToken   ErrorCode = "INVALID_ACCESS_TOKEN"
	CodeExpiredAccessToken   ErrorCode = "EXPIRED_ACCESS_TOKEN"
	CodeExpiredRefreshToken  ErrorCode = "EXPIRED_REFRESH_TOKEN"
	CodeTokenSubjectMismatch ErrorCode = "TOKEN_SUBJECT_MISMATCH"
	CodeForbidden            ErrorCode = "FORBIDDEN"
	CodeUnauthorized         ErrorCode = "UNAUTHORIZED"
	CodeNotFound             ErrorCode = "NOT_FOUND"
	CodeBadRequest           ErrorCode = "BAD_REQUEST"
	CodeInternal             ErrorCode = "INTERNAL_SERVER_ERROR"
)

var defaultMessages = map[ErrorCode]string{
	CodeUserAlreadyExists:    "User already exists",
	CodeInvalidCredentials:   "Invalid credentials",
	CodeUserNotRegistered:    "User not registered",
	CodeInvalidAccessToken:   "Invalid Access Token",
	CodeExpiredAccessToken:   "Token Expired",
	CodeExpiredRefreshToken:  "Refresh Token Expired",
	CodeTokenSubjectMismatch: "Token Subject Mismatch",
	CodeForbidden:            "Permission Denied",
	CodeUnauthorized:         "Unauthorized",
	CodeNotFound:             "Not Found",
	CodeBadRequest:           "Bad Request",
	CodeInternal:             "Something went wrong",
}

// AuthError is the tagged failure outcome returned by the session manager and guards.
type AuthError struct {
	Code    ErrorCode
	Message string
}

// Error implements the error interface.
func (authError *AuthError) Error() string {
	return string(authError.Code) + ": " + authError.Message
}

// NewAuthError builds an AuthError, falling back to the code's default message.
func NewAuthError(code ErrorCode, message string) *AuthError {
	if message == "" {
		message = defaultMessages[code]
	}
	return &AuthError{Code: code, Message: message}
}

// HTTPStatus maps the error code to its transport status.
func (authError *AuthError) HTTPStatus() int {
	switch authError.Code {
	case CodeUserAlreadyExists, CodeBadRequest:
		return http.StatusBadRequest
	case CodeInvalidAccessToken, CodeExpiredAccessToken, CodeExpiredRefreshToken,
		CodeTokenSubjectMismatch, CodeInvalidCredentials, CodeUserNotRegistered,
		CodeUnauthorized:
		return http.StatusUnauthorized
	case CodeForbidden:
		return http.StatusForbidden
	case CodeNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// Client recovery instructions conveyed via the `instruction` response header.
const (
	InstructionLogout       = "logout"
	InstructionRefreshToken = "refresh_token"
)

// Instruction returns the client recovery instruction for the error, if any.
// An expired refresh token deliberately carries none: the session is gone and
// a refresh retry can never succeed, so the client must sign in again.
func (authError *AuthError) Instruction() string {
	switch authError.Code {
	case CodeInvalidAccessToken:
		return InstructionLogout
	case CodeExpiredAccessToken:
		return InstructionRefreshToken
	default:
		return ""
	}
}
