// Package tokenvalidator verifies access tokens issued by the auth server
// using only the RSA public key. Sibling services embed it to authenticate
// requests without calling back to the issuer; session revocation is not
// visible here, only signature, expiry, issuer and audience.
package tokenvalidator

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Clock provides the current time.
type Clock interface {
	Now() time.Time
}

type systemClock struct{}

// Now returns the current UTC timestamp.
func (systemClock) Now() time.Time {
	return time.Now().UTC()
}

// Config configures the Validator.
type Config struct {
	PublicKeyPEM []byte
	Issuer       string
	Audience     string
	Clock        Clock
}

// DefaultContextKey is used by GinMiddleware when no explicit key is provided.
const DefaultContextKey = "token_claims"

// Sentinel errors exposed by the validator.
var (
	ErrMissingPublicKey = errors.New("token.validator.missing_public_key")
	ErrMissingIssuer    = errors.New("token.validator.missing_issuer")
	ErrMissingAudience  = errors.New("token.validator.missing_audience")
	ErrMissingToken     = errors.New("token.validator.missing_token")
	ErrInvalidToken     = errors.New("token.validator.invalid_token")
	ErrInvalidIssuer    = errors.New("token.validator.invalid_issuer")
	ErrInvalidAudience  = errors.New("token.validator.invalid_audience")
	ErrInvalidSubject   = errors.New("token.validator.invalid_subject")
	ErrTokenExpired     = errors.New("token.validator.expired")
)

// Validator validates issued access tokens.
type Validator struct {
	publicKey *rsa.PublicKey
	issuer    string
	audience  string
	clock     Clock
}

// Claims is the access-token payload as it appears on the wire.
type Claims struct {
	TokenIssuer   string `json:"iss"`
	TokenAudience string `json:"aud"`
	TokenSubject  string `json:"sub"`
	IssuedAt      int64  `json:"iat"`
	Expiry        int64  `json:"exp"`
	Param         string `json:"prm"`
}

// GetExpirationTime implements jwt.Claims.
func (claims *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if claims.Expiry == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(claims.Expiry, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (claims *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if claims.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(claims.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (claims *Claims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (claims *Claims) GetIssuer() (string, error) {
	return claims.TokenIssuer, nil
}

// GetSubject implements jwt.Claims.
func (claims *Claims) GetSubject() (string, error) {
	return claims.TokenSubject, nil
}

// GetAudience implements jwt.Claims.
func (claims *Claims) GetAudience() (jwt.ClaimStrings, error) {
	if claims.TokenAudience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{claims.TokenAudience}, nil
}

// UserID returns the token subject parsed as a UUID.
func (claims *Claims) UserID() (uuid.UUID, error) {
	if claims == nil {
		return uuid.Nil, ErrInvalidSubject
	}
	parsed, parseErr := uuid.Parse(claims.TokenSubject)
	if parseErr != nil {
		return uuid.Nil, ErrInvalidSubject
	}
	return parsed, nil
}

// New constructs a Validator after validating the supplied configuration.
func New(configuration Config) (*Validator, error) {
	if len(configuration.PublicKeyPEM) == 0 {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingPublicKey)
	}
	publicKey, parseErr := jwt.ParseRSAPublicKeyFromPEM(configuration.PublicKeyPEM)
	if parseErr != nil {
		return nil, fmt.Errorf("token.validator.new: parsing public key: %w", parseErr)
	}
	if strings.TrimSpace(configuration.Issuer) == "" {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingIssuer)
	}
	if strings.TrimSpace(configuration.Audience) == "" {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingAudience)
	}
	clock := configuration.Clock
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{
		publicKey: publicKey,
		issuer:    configuration.Issuer,
		audience:  configuration.Audience,
		clock:     clock,
	}, nil
}

// NewFromKey constructs a Validator from an already parsed public key.
func NewFromKey(publicKey *rsa.PublicKey, issuer string, audience string, clock Clock) (*Validator, error) {
	if publicKey == nil {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingPublicKey)
	}
	if strings.TrimSpace(issuer) == "" {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingIssuer)
	}
	if strings.TrimSpace(audience) == "" {
		return nil, fmt.Errorf("token.validator.new: %w", ErrMissingAudience)
	}
	if clock == nil {
		clock = systemClock{}
	}
	return &Validator{
		publicKey: publicKey,
		issuer:    issuer,
		audience:  audience,
		clock:     clock,
	}, nil
}

// ValidateToken validates the provided JWT string and returns the parsed claims.
func (validator *Validator) ValidateToken(tokenString string) (*Claims, error) {
	if strings.TrimSpace(tokenString) == "" {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrMissingToken)
	}
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &Claims{}, func(parsed *jwt.Token) (interface{}, error) {
		return validator.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return validator.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.validator.validate_token: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	claims, ok := parsedToken.Claims.(*Claims)
	if !ok {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidToken)
	}
	if claims.TokenIssuer != validator.issuer {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidIssuer)
	}
	if claims.TokenAudience != validator.audience {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidAudience)
	}
	if _, subjectErr := claims.UserID(); subjectErr != nil {
		return nil, fmt.Errorf("token.validator.validate_token: %w", ErrInvalidSubject)
	}
	return claims, nil
}

// ValidateRequest reads the bearer token from the request and validates it.
func (validator *Validator) ValidateRequest(request *http.Request) (*Claims, error) {
	if request == nil {
		return nil, fmt.Errorf("token.validator.validate_request: %w", ErrMissingToken)
	}
	authorization := request.Header.Get("Authorization")
	scheme, token, found := strings.Cut(authorization, " ")
	if !found || scheme != "Bearer" || strings.TrimSpace(token) == "" {
		return nil, fmt.Errorf("token.validator.validate_request: %w", ErrMissingToken)
	}
	return validator.ValidateToken(strings.TrimSpace(token))
}

// GinMiddleware returns a Gin middleware that validates the bearer token and injects claims.
func (validator *Validator) GinMiddleware(contextKey string) gin.HandlerFunc {
	if strings.TrimSpace(contextKey) == "" {
		contextKey = DefaultContextKey
	}
	return func(contextGin *gin.Context) {
		claims, err := validator.ValidateRequest(contextGin.Request)
		if err != nil {
			contextGin.AbortWithStatus(http.StatusUnauthorized)
			return
		}
		contextGin.Set(contextKey, claims)
		contextGin.Next()
	}
}
