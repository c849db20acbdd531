package httpapi

import (
	"errors"
	"testing"

	"go.uber.org/zap/zaptest"
)

func TestSanitizeOrigins(t *testing.T) {
	testCases := []struct {
		name     string
		origins  []string
		expected []string
		wantErr  error
	}{
		{
			name:     "normalizes and deduplicates",
			origins:  []string{"https://app.example.com", "HTTPS://app.example.com/", " https://other.example.com "},
			expected: []string{"https://other.example.com", "https://app.example.com"},
		},
		{
			name:    "rejects wildcard",
			origins: []string{"*"},
			wantErr: errWildcardOrigin,
		},
		{
			name:    "rejects empty list",
			origins: nil,
			wantErr: errEmptyAllowedOrigins,
		},
		{
			name:    "rejects blank entries only",
			origins: []string{"  ", ""},
			wantErr: errEmptyAllowedOrigins,
		},
		{
			name:    "rejects path segment",
			origins: []string{"https://app.example.com/callback"},
			wantErr: errInvalidOrigin,
		},
		{
			name:    "rejects unsupported scheme",
			origins: []string{"ftp://app.example.com"},
			wantErr: errInvalidOrigin,
		},
		{
			name:     "allows http for localhost",
			origins:  []string{"http://localhost:3000"},
			expected: []string{"http://localhost:3000"},
		},
	}

	for _, testCase := range testCases {
		t.Run(testCase.name, func(t *testing.T) {
			sanitized, sanitizeErr := sanitizeOrigins(zaptest.NewLogger(t), testCase.origins)
			if testCase.wantErr != nil {
				if !errors.Is(sanitizeErr, testCase.wantErr) {
					t.Fatalf("expected %v, got %v", testCase.wantErr, sanitizeErr)
				}
				return
			}
			if sanitizeErr != nil {
				t.Fatalf("unexpected error: %v", sanitizeErr)
			}
			if len(sanitized) != len(testCase.expected) {
				t.Fatalf("expected %v, got %v", testCase.expected, sanitized)
			}
			for index, origin := range testCase.expected {
				if sanitized[index] != origin {
					t.Fatalf("expected %v, got %v", testCase.expected, sanitized)
				}
			}
		})
	}
}

func TestConfigureCORSRejectsMissingOrigins(t *testing.T) {
	if _, corsErr := ConfigureCORS(zaptest.NewLogger(t), nil); corsErr == nil {
		t.Fatalf("expected error when CORS is enabled without origins")
	}
}
