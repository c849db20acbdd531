package authcore

import (
	"crypto/rsa"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	// ErrTokenExpired indicates the token signature verified but the token is past its expiry.
	ErrTokenExpired = errors.New("token.codec.expired")
	// ErrTokenInvalid indicates the token failed signature or structural verification.
	ErrTokenInvalid = errors.New("token.codec.invalid")
	// ErrTokenMalformed indicates the token could not be parsed at all.
	ErrTokenMalformed = errors.New("token.codec.malformed")
)

// TokenCodec signs, verifies, and decodes bearer tokens with an RS256 key pair.
type TokenCodec struct {
	privateKey *rsa.PrivateKey
	publicKey  *rsa.PublicKey
	clock      Clock
}

// NewTokenCodec parses PEM-encoded RSA keys and constructs a codec.
func NewTokenCodec(privateKeyPEM []byte, publicKeyPEM []byte, clock Clock) (*TokenCodec, error) {
	privateKey, privateErr := jwt.ParseRSAPrivateKeyFromPEM(privateKeyPEM)
	if privateErr != nil {
		return nil, fmt.Errorf("token.codec.parse_private_key: %w", privateErr)
	}
	publicKey, publicErr := jwt.ParseRSAPublicKeyFromPEM(publicKeyPEM)
	if publicErr != nil {
		return nil, fmt.Errorf("token.codec.parse_public_key: %w", publicErr)
	}
	return NewTokenCodecFromKeys(privateKey, publicKey, clock), nil
}

// NewTokenCodecFromKeys constructs a codec from already-parsed keys.
func NewTokenCodecFromKeys(privateKey *rsa.PrivateKey, publicKey *rsa.PublicKey, clock Clock) *TokenCodec {
	if clock == nil {
		clock = NewSystemClock()
	}
	return &TokenCodec{
		privateKey: privateKey,
		publicKey:  publicKey,
		clock:      clock,
	}
}

// Sign produces a signed compact token for the payload.
func (codec *TokenCodec) Sign(payload *TokenPayload) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, payload)
	signed, signErr := token.SignedString(codec.privateKey)
	if signErr != nil {
		return "", fmt.Errorf("token.codec.sign: %w", signErr)
	}
	return signed, nil
}

// Verify checks the signature and expiry and returns the payload.
// Expiry surfaces as ErrTokenExpired; every other failure as ErrTokenInvalid.
func (codec *TokenCodec) Verify(tokenString string) (*TokenPayload, error) {
	parsedToken, parseErr := jwt.ParseWithClaims(tokenString, &TokenPayload{}, func(parsed *jwt.Token) (interface{}, error) {
		return codec.publicKey, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodRS256.Alg()}), jwt.WithTimeFunc(func() time.Time {
		return codec.clock.Now()
	}))
	if parseErr != nil {
		if errors.Is(parseErr, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("token.codec.verify: %w", ErrTokenExpired)
		}
		return nil, fmt.Errorf("token.codec.verify: %w", ErrTokenInvalid)
	}
	if parsedToken == nil || !parsedToken.Valid {
		return nil, fmt.Errorf("token.codec.verify: %w", ErrTokenInvalid)
	}
	payload, ok := parsedToken.Claims.(*TokenPayload)
	if !ok {
		return nil, fmt.Errorf("token.codec.verify: %w", ErrTokenInvalid)
	}
	return payload, nil
}

// Decode parses the payload without checking signature or expiry. Used only to
// read the presented access token during a refresh; trust comes from the
// keystore match, not from this parse.
func (codec *TokenCodec) Decode(tokenString string) (*TokenPayload, error) {
	parser := jwt.NewParser()
	parsedToken, _, parseErr := parser.ParseUnverified(tokenString, &TokenPayload{})
	if parseErr != nil {
		return nil, fmt.Errorf("token.codec.decode: %w", ErrTokenMalformed)
	}
	payload, ok := parsedToken.Claims.(*TokenPayload)
	if !ok {
		return nil, fmt.Errorf("token.codec.decode: %w", ErrTokenMalformed)
	}
	return payload, nil
}
