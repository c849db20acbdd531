package authcore

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
)

const (
	tokenSecretByteLength = 64
	apiKeyByteLength      = 32
)

// GenerateTokenSecret produces the opaque high-entropy value embedded as the
// prm claim of one token of a pair.
func GenerateTokenSecret() (string, error) {
	return randomHex(tokenSecretByteLength)
}

// GenerateAPIKeySecret produces a new machine credential key string.
func GenerateAPIKeySecret() (string, error) {
	return randomHex(apiKeyByteLength)
}

func randomHex(byteLength int) (string, error) {
	randomBytes := make([]byte, byteLength)
	if _, err := rand.Read(randomBytes); err != nil {
		return "", fmt.Errorf("authcore.random: %w", err)
	}
	return hex.EncodeToString(randomBytes), nil
}
