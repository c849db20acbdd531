package authcore

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap/zaptest"
)

type sessionTestHarness struct {
	manager   *SessionManager
	users     *MemoryCredentialStore
	roles     *MemoryRoleStore
	keystores *MemoryKeystoreStore
	apiKeys   *MemoryAPIKeyStore
	codec     *TokenCodec
	clock     *controllableClock
	metrics   *CounterMetrics
}

func newSessionTestHarness(t *testing.T) *sessionTestHarness {
	t.Helper()
	clock := &controllableClock{current: time.Now().UTC()}
	codec := newTestCodec(t, clock)
	users := NewMemoryCredentialStore()
	roles := NewMemoryRoleStore()
	keystores := NewMemoryKeystoreStore()
	apiKeys := NewMemoryAPIKeyStore()

	if createErr := roles.CreateRoles(context.Background(), []Role{
		{ID: uuid.New(), Code: RoleViewer, Status: true},
		{ID: uuid.New(), Code: RoleAdmin, Status: true},
		{ID: uuid.New(), Code: RoleManager, Status: true},
	}); createErr != nil {
		t.Fatalf("seeding roles: %v", createErr)
	}

	metrics := NewCounterMetrics()
	manager := NewSessionManager(TokenConfig{
		Issuer:               "test-issuer",
		Audience:             "test-audience",
		AccessTokenValidity:  time.Hour,
		RefreshTokenValidity: 24 * time.Hour,
	}, users, roles, keystores, apiKeys, codec, zaptest.NewLogger(t), metrics)

	return &sessionTestHarness{
		manager:   manager,
		users:     users,
		roles:     roles,
		keystores: keystores,
		apiKeys:   apiKeys,
		codec:     codec,
		clock:     clock,
		metrics:   metrics,
	}
}

func TestSignUpIssuesViewerUserWithTokenPair(t *testing.T) {
	harness := newSessionTestHarness(t)

	user, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}
	if !user.HasAnyRole(RoleViewer) {
		t.Fatalf("expected new user to hold viewer role, got %v", user.Roles)
	}
	if user.PasswordHash == "" || user.PasswordHash == "password1" {
		t.Fatalf("expected stored hash, got %q", user.PasswordHash)
	}
	if pair.AccessToken == "" || pair.RefreshToken == "" {
		t.Fatalf("expected both tokens to be issued")
	}

	accessPayload, decodeErr := harness.codec.Decode(pair.AccessToken)
	if decodeErr != nil {
		t.Fatalf("decoding access token: %v", decodeErr)
	}
	if _, findErr := harness.keystores.FindKeystore(context.Background(), user.ID, accessPayload.Param); findErr != nil {
		t.Fatalf("expected keystore row backing the issued pair: %v", findErr)
	}
	if harness.metrics.Count(MetricSignUpSuccess) != 1 {
		t.Fatalf("expected sign-up success metric")
	}
}

func TestSignUpDuplicateEmail(t *testing.T) {
	harness := newSessionTestHarness(t)

	if _, _, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice"); authErr != nil {
		t.Fatalf("first sign-up failed: %v", authErr)
	}
	_, _, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password2", "Alice Again")
	if authErr == nil || authErr.Code != CodeUserAlreadyExists {
		t.Fatalf("expected USER_ALREADY_EXISTS, got %v", authErr)
	}
	if harness.metrics.Count(MetricSignUpDuplicate) != 1 {
		t.Fatalf("expected duplicate sign-up metric")
	}
}

func TestSignUpFailsWithoutViewerRole(t *testing.T) {
	harness := newSessionTestHarness(t)
	harness.roles.roles = map[RoleCode]Role{}

	_, _, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr == nil || authErr.Code != CodeInternal {
		t.Fatalf("expected INTERNAL_SERVER_ERROR when viewer role is missing, got %v", authErr)
	}
}

func TestSignInUniformRejection(t *testing.T) {
	harness := newSessionTestHarness(t)
	if _, _, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice"); authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	_, _, unknownErr := harness.manager.SignIn(context.Background(), "nobody@example.com", "password1")
	_, _, mismatchErr := harness.manager.SignIn(context.Background(), "alice@example.com", "wrong-password")

	if unknownErr == nil || mismatchErr == nil {
		t.Fatalf("expected both sign-in attempts to fail")
	}
	if unknownErr.Code != CodeInvalidCredentials || mismatchErr.Code != CodeInvalidCredentials {
		t.Fatalf("expected INVALID_CREDENTIALS for both, got %v and %v", unknownErr.Code, mismatchErr.Code)
	}
	if unknownErr.Message != mismatchErr.Message {
		t.Fatalf("rejection must not leak the failing step: %q vs %q", unknownErr.Message, mismatchErr.Message)
	}
	if harness.metrics.Count(MetricSignInRejected) != 2 {
		t.Fatalf("expected two rejected sign-in events")
	}
}

func TestSignInIssuesIndependentSession(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, signUpPair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	user, signInPair, signInErr := harness.manager.SignIn(context.Background(), "alice@example.com", "password1")
	if signInErr != nil {
		t.Fatalf("sign-in failed: %v", signInErr)
	}
	if signInPair.AccessToken == signUpPair.AccessToken {
		t.Fatalf("expected a fresh access token per sign-in")
	}

	// Both sessions stay valid; each is backed by its own keystore row.
	if _, _, authenticateErr := harness.manager.Authenticate(context.Background(), signUpPair.AccessToken); authenticateErr != nil {
		t.Fatalf("original session rejected: %v", authenticateErr)
	}
	if _, _, authenticateErr := harness.manager.Authenticate(context.Background(), signInPair.AccessToken); authenticateErr != nil {
		t.Fatalf("second session rejected: %v", authenticateErr)
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected user %q", user.Email)
	}
}

func TestSignOutRevokesSessionAndIsIdempotent(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	_, keystore, authenticateErr := harness.manager.Authenticate(context.Background(), pair.AccessToken)
	if authenticateErr != nil {
		t.Fatalf("authenticate failed: %v", authenticateErr)
	}

	if signOutErr := harness.manager.SignOut(context.Background(), keystore.ID); signOutErr != nil {
		t.Fatalf("sign-out failed: %v", signOutErr)
	}
	if _, _, authenticateErr := harness.manager.Authenticate(context.Background(), pair.AccessToken); authenticateErr == nil {
		t.Fatalf("expected revoked session to be rejected")
	}
	if signOutErr := harness.manager.SignOut(context.Background(), keystore.ID); signOutErr != nil {
		t.Fatalf("repeated sign-out must succeed, got %v", signOutErr)
	}
}

func TestRefreshTokenRotatesPair(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	user, rotated, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken)
	if refreshErr != nil {
		t.Fatalf("refresh failed: %v", refreshErr)
	}
	if rotated.AccessToken == pair.AccessToken || rotated.RefreshToken == pair.RefreshToken {
		t.Fatalf("expected a fully rotated pair")
	}
	if user.Email != "alice@example.com" {
		t.Fatalf("unexpected user %q", user.Email)
	}

	// The consumed pair is dead for bearer auth; the rotated pair works.
	if _, _, authenticateErr := harness.manager.Authenticate(context.Background(), pair.AccessToken); authenticateErr == nil {
		t.Fatalf("expected consumed access token to be rejected")
	}
	if _, _, authenticateErr := harness.manager.Authenticate(context.Background(), rotated.AccessToken); authenticateErr != nil {
		t.Fatalf("rotated access token rejected: %v", authenticateErr)
	}
}

func TestRefreshTokenReplayIsRejected(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	if _, _, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken); refreshErr != nil {
		t.Fatalf("first refresh failed: %v", refreshErr)
	}
	_, _, replayErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken)
	if replayErr == nil || replayErr.Code != CodeInvalidAccessToken {
		t.Fatalf("expected INVALID_ACCESS_TOKEN on replay, got %v", replayErr)
	}
	if harness.metrics.Count(MetricRefreshReplay) != 1 {
		t.Fatalf("expected replay metric")
	}
}

func TestRefreshTokenSubjectMismatch(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, alicePair, aliceErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if aliceErr != nil {
		t.Fatalf("alice sign-up failed: %v", aliceErr)
	}
	_, bobPair, bobErr := harness.manager.SignUp(context.Background(), "bob@example.com", "password1", "Bob")
	if bobErr != nil {
		t.Fatalf("bob sign-up failed: %v", bobErr)
	}

	_, _, refreshErr := harness.manager.RefreshToken(context.Background(), bobPair.RefreshToken, alicePair.AccessToken)
	if refreshErr == nil || refreshErr.Code != CodeTokenSubjectMismatch {
		t.Fatalf("expected TOKEN_SUBJECT_MISMATCH, got %v", refreshErr)
	}
}

func TestRefreshTokenExpiredRefresh(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	harness.clock.Advance(25 * time.Hour)
	_, _, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken)
	if refreshErr == nil || refreshErr.Code != CodeExpiredRefreshToken {
		t.Fatalf("expected EXPIRED_REFRESH_TOKEN for expired refresh token, got %v", refreshErr)
	}
	if instruction := refreshErr.Instruction(); instruction != "" {
		t.Fatalf("an expired refresh token must carry no recovery instruction, got %q", instruction)
	}
}

func TestRefreshTokenAcceptsExpiredAccessToken(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	// Access TTL is one hour, refresh TTL a day. The expired access token is
	// only decoded, never verified, so the rotation still succeeds.
	harness.clock.Advance(2 * time.Hour)
	if _, _, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken); refreshErr != nil {
		t.Fatalf("refresh with expired access token failed: %v", refreshErr)
	}
}

func TestRefreshTokenRejectsGarbageAccessToken(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	_, _, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, "garbage")
	if refreshErr == nil || refreshErr.Code != CodeInvalidAccessToken {
		t.Fatalf("expected INVALID_ACCESS_TOKEN, got %v", refreshErr)
	}
}

func TestRefreshTokenUnknownUser(t *testing.T) {
	harness := newSessionTestHarness(t)
	user, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}
	if deleteErr := harness.users.DeleteUser(context.Background(), user.ID); deleteErr != nil {
		t.Fatalf("deleting user: %v", deleteErr)
	}

	_, _, refreshErr := harness.manager.RefreshToken(context.Background(), pair.RefreshToken, pair.AccessToken)
	if refreshErr == nil || refreshErr.Code != CodeUserNotRegistered {
		t.Fatalf("expected USER_NOT_REGISTERED, got %v", refreshErr)
	}
}

func TestAuthenticateExpiredAccessToken(t *testing.T) {
	harness := newSessionTestHarness(t)
	_, pair, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	harness.clock.Advance(2 * time.Hour)
	_, _, authenticateErr := harness.manager.Authenticate(context.Background(), pair.AccessToken)
	if authenticateErr == nil || authenticateErr.Code != CodeExpiredAccessToken {
		t.Fatalf("expected EXPIRED_ACCESS_TOKEN, got %v", authenticateErr)
	}
}

func TestAuthenticateForeignIssuer(t *testing.T) {
	harness := newSessionTestHarness(t)
	user, _, authErr := harness.manager.SignUp(context.Background(), "alice@example.com", "password1", "Alice")
	if authErr != nil {
		t.Fatalf("sign-up failed: %v", authErr)
	}

	payload := NewTokenPayload("other-issuer", "test-audience", user.ID.String(), "param", time.Hour, harness.clock.Now())
	signed, signErr := harness.codec.Sign(payload)
	if signErr != nil {
		t.Fatalf("sign error: %v", signErr)
	}
	_, _, authenticateErr := harness.manager.Authenticate(context.Background(), signed)
	if authenticateErr == nil || authenticateErr.Code != CodeInvalidAccessToken {
		t.Fatalf("expected INVALID_ACCESS_TOKEN for foreign issuer, got %v", authenticateErr)
	}
}

func TestCreateAndLookupAPIKey(t *testing.T) {
	harness := newSessionTestHarness(t)

	apiKey, createErr := harness.manager.CreateAPIKey(context.Background(), "alice@example.com")
	if createErr != nil {
		t.Fatalf("api key creation failed: %v", createErr)
	}
	if len(apiKey.Key) != 64 {
		t.Fatalf("expected 32-byte hex key, got length %d", len(apiKey.Key))
	}
	if !apiKey.HasAnyPermission(PermissionGeneral) {
		t.Fatalf("expected general permission on issued key")
	}

	found, lookupErr := harness.manager.LookupAPIKey(context.Background(), apiKey.Key)
	if lookupErr != nil {
		t.Fatalf("api key lookup failed: %v", lookupErr)
	}
	if found.ID != apiKey.ID {
		t.Fatalf("lookup returned a different key")
	}

	if _, unknownErr := harness.manager.LookupAPIKey(context.Background(), "unknown"); unknownErr == nil || unknownErr.Code != CodeForbidden {
		t.Fatalf("expected FORBIDDEN for unknown key, got %v", unknownErr)
	}

	if deleteErr := harness.manager.DeleteAPIKey(context.Background(), apiKey.ID); deleteErr != nil {
		t.Fatalf("api key deletion failed: %v", deleteErr)
	}
	if _, goneErr := harness.manager.LookupAPIKey(context.Background(), apiKey.Key); goneErr == nil {
		t.Fatalf("expected deleted key to be rejected")
	}
}
