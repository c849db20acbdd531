package authcore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// TokenConfig carries the token issuance settings. Read-only after startup.
type TokenConfig struct {
	Issuer               string
	Audience             string
	AccessTokenValidity  time.Duration
	RefreshTokenValidity time.Duration
}

// TokenPair is one issued (access, refresh) pair backed by a single keystore row.
type TokenPair struct {
	AccessToken  string `json:"accessToken"`
	RefreshToken string `json:"refreshToken"`
}

// SessionManager orchestrates sign-up, sign-in, sign-out, and refresh flows.
type SessionManager struct {
	config    TokenConfig
	users     CredentialStore
	roles     RoleStore
	keystores KeystoreStore
	apiKeys   APIKeyStore
	codec     *TokenCodec
	logger    *zap.Logger
	metrics   MetricsRecorder
}

// NewSessionManager wires the session manager with its collaborators.
func NewSessionManager(
	config TokenConfig,
	users CredentialStore,
	roles RoleStore,
	keystores KeystoreStore,
	apiKeys APIKeyStore,
	codec *TokenCodec,
	logger *zap.Logger,
	metrics MetricsRecorder,
) *SessionManager {
	if logger == nil {
		logger = zap.NewNop()
	}
	if metrics == nil {
		metrics = NopMetrics{}
	}
	return &SessionManager{
		config:    config,
		users:     users,
		roles:     roles,
		keystores: keystores,
		apiKeys:   apiKeys,
		codec:     codec,
		logger:    logger,
		metrics:   metrics,
	}
}

// SignUp registers a new user and issues its first token pair.
func (manager *SessionManager) SignUp(ctx context.Context, email string, password string, name string) (User, TokenPair, *AuthError) {
	manager.logger.Info("signing up user", zap.String("email", email))

	_, findErr := manager.users.FindUserByEmail(ctx, email)
	if findErr == nil {
		manager.logger.Warn("user already exists", zap.String("email", email))
		manager.metrics.Increment(MetricSignUpDuplicate)
		return User{}, TokenPair{}, NewAuthError(CodeUserAlreadyExists, "")
	}
	if !errors.Is(findErr, ErrUserNotFound) {
		manager.logger.Error("user lookup failed during sign-up", zap.Error(findErr))
		return User{}, TokenPair{}, NewAuthError(CodeInternal, "")
	}

	viewerRole, roleErr := manager.roles.FindRole(ctx, RoleViewer)
	if roleErr != nil {
		manager.logger.Error("default viewer role not found", zap.Error(roleErr))
		return User{}, TokenPair{}, NewAuthError(CodeInternal, "")
	}

	passwordHash, hashErr := HashPassword(password)
	if hashErr != nil {
		manager.logger.Error("password hashing failed", zap.Error(hashErr))
		return User{}, TokenPair{}, NewAuthError(CodeInternal, "")
	}

	createdUser, createErr := manager.users.CreateUser(ctx, User{
		Email:        email,
		Name:         name,
		PasswordHash: passwordHash,
		Roles:        []RoleCode{viewerRole.Code},
		Status:       true,
	})
	if createErr != nil {
		if errors.Is(createErr, ErrDuplicateEmail) {
			manager.metrics.Increment(MetricSignUpDuplicate)
			return User{}, TokenPair{}, NewAuthError(CodeUserAlreadyExists, "")
		}
		manager.logger.Error("user creation failed", zap.Error(createErr))
		return User{}, TokenPair{}, NewAuthError(CodeInternal, "")
	}

	tokenPair, tokenErr := manager.createTokenPair(ctx, createdUser)
	if tokenErr != nil {
		return User{}, TokenPair{}, tokenErr
	}

	manager.logger.Info("user signed up", zap.String("user_id", createdUser.ID.String()))
	manager.metrics.Increment(MetricSignUpSuccess)
	return createdUser, tokenPair, nil
}

// SignIn verifies credentials and issues a fresh token pair. Unknown email, a
// missing stored hash, and a password mismatch all surface as the identical
// INVALID_CREDENTIALS outcome so the distinction never leaks to the caller.
func (manager *SessionManager) SignIn(ctx context.Context, email string, password string) (User, TokenPair, *AuthError) {
	user, findErr := manager.users.FindUserByEmail(ctx, email)
	if findErr != nil {
		if !errors.Is(findErr, ErrUserNotFound) {
			manager.logger.Error("user lookup failed during sign-in", zap.Error(findErr))
		} else {
			manager.logger.Warn("sign-in with unknown email", zap.String("email", email))
		}
		manager.metrics.Increment(MetricSignInRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidCredentials, "")
	}
	if user.PasswordHash == "" {
		manager.logger.Warn("sign-in for user without password", zap.String("email", email))
		manager.metrics.Increment(MetricSignInRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidCredentials, "")
	}
	if verifyErr := VerifyPassword(user.PasswordHash, password); verifyErr != nil {
		manager.logger.Warn("invalid password", zap.String("email", email))
		manager.metrics.Increment(MetricSignInRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidCredentials, "")
	}

	tokenPair, tokenErr := manager.createTokenPair(ctx, user)
	if tokenErr != nil {
		return User{}, TokenPair{}, tokenErr
	}

	manager.metrics.Increment(MetricSignInSuccess)
	return user, tokenPair, nil
}

// SignOut revokes the session by deleting its keystore row. Deleting an absent
// row is success; the operation is idempotent from the caller's perspective.
func (manager *SessionManager) SignOut(ctx context.Context, keystoreID uuid.UUID) *AuthError {
	deleteErr := manager.keystores.DeleteKeystore(ctx, keystoreID)
	if deleteErr != nil && !errors.Is(deleteErr, ErrKeystoreNotFound) {
		manager.logger.Error("keystore deletion failed during sign-out", zap.Error(deleteErr))
		return NewAuthError(CodeInternal, "")
	}
	manager.metrics.Increment(MetricSignOut)
	return nil
}

// RefreshToken rotates a token pair. The flow is an ordered pipeline; any
// failing step short-circuits the rest.
func (manager *SessionManager) RefreshToken(ctx context.Context, refreshTokenString string, accessTokenString string) (User, TokenPair, *AuthError) {
	accessPayload, decodeErr := manager.codec.Decode(accessTokenString)
	if decodeErr != nil || !ValidatePayload(accessPayload, manager.config.Issuer, manager.config.Audience) {
		manager.logger.Warn("invalid access token payload during token refresh")
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidAccessToken, "")
	}

	userID, parseErr := uuid.Parse(accessPayload.Subject)
	if parseErr != nil {
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidAccessToken, "")
	}
	user, userErr := manager.users.FindUserByID(ctx, userID)
	if userErr != nil {
		manager.logger.Warn("user not found during token refresh", zap.String("user_id", accessPayload.Subject))
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeUserNotRegistered, "")
	}

	refreshPayload, verifyErr := manager.codec.Verify(refreshTokenString)
	if verifyErr != nil {
		if errors.Is(verifyErr, ErrTokenExpired) {
			manager.logger.Warn("refresh token expired during token refresh")
			manager.metrics.Increment(MetricRefreshRejected)
			return User{}, TokenPair{}, NewAuthError(CodeExpiredRefreshToken, "")
		}
		manager.logger.Warn("invalid refresh token during token refresh")
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidAccessToken, "Invalid Refresh Token")
	}
	if !ValidatePayload(refreshPayload, manager.config.Issuer, manager.config.Audience) {
		manager.logger.Warn("invalid refresh token payload during token refresh")
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeInvalidAccessToken, "Invalid Refresh Token")
	}

	if accessPayload.Subject != refreshPayload.Subject {
		manager.logger.Warn("token subject mismatch during token refresh")
		manager.metrics.Increment(MetricRefreshRejected)
		return User{}, TokenPair{}, NewAuthError(CodeTokenSubjectMismatch, "")
	}

	// Single atomic conditional delete. A replayed refresh finds no row: of two
	// concurrent attempts on the same pair, at most one can win this delete.
	consumeErr := manager.keystores.ConsumeKeystore(ctx, user.ID, accessPayload.Param, refreshPayload.Param)
	if consumeErr != nil {
		if errors.Is(consumeErr, ErrKeystoreNotFound) {
			manager.logger.Warn("keystore not found for provided tokens during token refresh")
			manager.metrics.Increment(MetricRefreshReplay)
			return User{}, TokenPair{}, NewAuthError(CodeInvalidAccessToken, "Invalid access token")
		}
		manager.logger.Error("keystore consume failed during token refresh", zap.Error(consumeErr))
		return User{}, TokenPair{}, NewAuthError(CodeInternal, "")
	}

	tokenPair, tokenErr := manager.createTokenPair(ctx, user)
	if tokenErr != nil {
		return User{}, TokenPair{}, tokenErr
	}

	manager.logger.Info("token refreshed", zap.String("user_id", user.ID.String()))
	manager.metrics.Increment(MetricRefreshSuccess)
	return user, tokenPair, nil
}

// Authenticate resolves a bearer access token to its user and keystore row.
// This is the bearer guard's decision procedure.
func (manager *SessionManager) Authenticate(ctx context.Context, accessTokenString string) (User, Keystore, *AuthError) {
	payload, verifyErr := manager.codec.Verify(accessTokenString)
	if verifyErr != nil {
		if errors.Is(verifyErr, ErrTokenExpired) {
			return User{}, Keystore{}, NewAuthError(CodeExpiredAccessToken, "")
		}
		return User{}, Keystore{}, NewAuthError(CodeInvalidAccessToken, "")
	}
	if !ValidatePayload(payload, manager.config.Issuer, manager.config.Audience) {
		manager.logger.Warn("invalid access token payload")
		return User{}, Keystore{}, NewAuthError(CodeInvalidAccessToken, "")
	}

	userID, parseErr := uuid.Parse(payload.Subject)
	if parseErr != nil {
		return User{}, Keystore{}, NewAuthError(CodeInvalidAccessToken, "")
	}
	user, userErr := manager.users.FindUserByID(ctx, userID)
	if userErr != nil {
		manager.logger.Warn("user not found for access token", zap.String("user_id", payload.Subject))
		return User{}, Keystore{}, NewAuthError(CodeUserNotRegistered, "")
	}

	keystore, keystoreErr := manager.keystores.FindKeystore(ctx, user.ID, payload.Param)
	if keystoreErr != nil {
		manager.logger.Warn("no keystore found for the provided access token")
		return User{}, Keystore{}, NewAuthError(CodeInvalidAccessToken, "")
	}

	return user, keystore, nil
}

// LookupAPIKey resolves an active API key by its key string.
func (manager *SessionManager) LookupAPIKey(ctx context.Context, key string) (APIKey, *AuthError) {
	apiKey, findErr := manager.apiKeys.FindAPIKey(ctx, key)
	if findErr != nil {
		return APIKey{}, NewAuthError(CodeForbidden, "")
	}
	return apiKey, nil
}

// CreateAPIKey issues a machine credential for the given user.
func (manager *SessionManager) CreateAPIKey(ctx context.Context, email string) (APIKey, *AuthError) {
	secureKey, randomErr := GenerateAPIKeySecret()
	if randomErr != nil {
		manager.logger.Error("api key generation failed", zap.Error(randomErr))
		return APIKey{}, NewAuthError(CodeInternal, "")
	}

	created, createErr := manager.apiKeys.CreateAPIKey(ctx, APIKey{
		Key:         secureKey,
		Version:     1,
		Permissions: []Permission{PermissionGeneral},
		Comments:    []string{fmt.Sprintf("Generated for user: %s", email)},
		Status:      true,
	})
	if createErr != nil {
		manager.logger.Error("api key creation failed", zap.Error(createErr))
		return APIKey{}, NewAuthError(CodeInternal, "")
	}

	manager.logger.Info("api key created", zap.String("email", email))
	manager.metrics.Increment(MetricAPIKeyIssued)
	return created, nil
}

// DeleteAPIKey removes a machine credential.
func (manager *SessionManager) DeleteAPIKey(ctx context.Context, apiKeyID uuid.UUID) *AuthError {
	if deleteErr := manager.apiKeys.DeleteAPIKey(ctx, apiKeyID); deleteErr != nil {
		if errors.Is(deleteErr, ErrAPIKeyNotFound) {
			return NewAuthError(CodeNotFound, "")
		}
		manager.logger.Error("api key deletion failed", zap.Error(deleteErr))
		return NewAuthError(CodeInternal, "")
	}
	return nil
}

// createTokenPair generates the pair secrets, persists the keystore row, and
// signs both tokens. The keystore row must exist before either token leaves
// the process.
func (manager *SessionManager) createTokenPair(ctx context.Context, user User) (TokenPair, *AuthError) {
	primarySecret, primaryErr := GenerateTokenSecret()
	if primaryErr != nil {
		manager.logger.Error("primary secret generation failed", zap.Error(primaryErr))
		return TokenPair{}, NewAuthError(CodeInternal, "")
	}
	secondarySecret, secondaryErr := GenerateTokenSecret()
	if secondaryErr != nil {
		manager.logger.Error("secondary secret generation failed", zap.Error(secondaryErr))
		return TokenPair{}, NewAuthError(CodeInternal, "")
	}

	if _, keystoreErr := manager.keystores.CreateKeystore(ctx, user.ID, primarySecret, secondarySecret); keystoreErr != nil {
		manager.logger.Error("keystore creation failed", zap.String("user_id", user.ID.String()), zap.Error(keystoreErr))
		return TokenPair{}, NewAuthError(CodeInternal, "")
	}

	now := manager.codec.clock.Now()
	accessPayload := NewTokenPayload(manager.config.Issuer, manager.config.Audience, user.ID.String(), primarySecret, manager.config.AccessTokenValidity, now)
	refreshPayload := NewTokenPayload(manager.config.Issuer, manager.config.Audience, user.ID.String(), secondarySecret, manager.config.RefreshTokenValidity, now)

	accessToken, accessErr := manager.codec.Sign(accessPayload)
	if accessErr != nil {
		manager.logger.Error("access token signing failed", zap.Error(accessErr))
		return TokenPair{}, NewAuthError(CodeInternal, "")
	}
	refreshToken, refreshErr := manager.codec.Sign(refreshPayload)
	if refreshErr != nil {
		manager.logger.Error("refresh token signing failed", zap.Error(refreshErr))
		return TokenPair{}, NewAuthError(CodeInternal, "")
	}

	return TokenPair{AccessToken: accessToken, RefreshToken: refreshToken}, nil
}
