package authcore

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenPayload is the signed claim set embedded in both access and refresh tokens.
// Field names are wire-visible and must stay stable for client compatibility.
type TokenPayload struct {
	Issuer   string `json:"iss"`
	Audience string `json:"aud"`
	Subject  string `json:"sub"`
	IssuedAt int64  `json:"iat"`
	Expiry   int64  `json:"exp"`
	Param    string `json:"prm"`
}

// NewTokenPayload builds a payload whose validity window starts at now.
func NewTokenPayload(issuer string, audience string, subject string, param string, validity time.Duration, now time.Time) *TokenPayload {
	issuedAt := now.UTC().Unix()
	return &TokenPayload{
		Issuer:   issuer,
		Audience: audience,
		Subject:  subject,
		IssuedAt: issuedAt,
		Expiry:   issuedAt + int64(validity.Seconds()),
		Param:    param,
	}
}

// GetExpirationTime implements jwt.Claims.
func (payload *TokenPayload) GetExpirationTime() (*jwt.NumericDate, error) {
	if payload.Expiry == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(payload.Expiry, 0)), nil
}

// GetIssuedAt implements jwt.Claims.
func (payload *TokenPayload) GetIssuedAt() (*jwt.NumericDate, error) {
	if payload.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.Unix(payload.IssuedAt, 0)), nil
}

// GetNotBefore implements jwt.Claims.
func (payload *TokenPayload) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims.
func (payload *TokenPayload) GetIssuer() (string, error) {
	return payload.Issuer, nil
}

// GetSubject implements jwt.Claims.
func (payload *TokenPayload) GetSubject() (string, error) {
	return payload.Subject, nil
}

// GetAudience implements jwt.Claims.
func (payload *TokenPayload) GetAudience() (jwt.ClaimStrings, error) {
	if payload.Audience == "" {
		return nil, nil
	}
	return jwt.ClaimStrings{payload.Audience}, nil
}

// ValidatePayload reports whether the payload's claim shape matches the server
// configuration. Expiry is judged solely by the codec's verify step, never here.
func ValidatePayload(payload *TokenPayload, issuer string, audience string) bool {
	if payload == nil {
		return false
	}
	if payload.Issuer == "" || payload.Subject == "" || payload.Audience == "" || payload.Param == "" {
		return false
	}
	if payload.Issuer != issuer || payload.Audience != audience {
		return false
	}
	if _, parseErr := uuid.Parse(payload.Subject); parseErr != nil {
		return false
	}
	return true
}
