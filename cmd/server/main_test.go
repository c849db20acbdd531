package main

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/pem"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
)

func writeTestKeyPair(t *testing.T) (string, string) {
	t.Helper()
	privateKey, keyErr := rsa.GenerateKey(rand.Reader, 2048)
	if keyErr != nil {
		t.Fatalf("generating rsa key: %v", keyErr)
	}

	directory := t.TempDir()
	privatePath := filepath.Join(directory, "private.pem")
	publicPath := filepath.Join(directory, "public.pem")

	privatePEM := pem.EncodeToMemory(&pem.Block{
		Type:  "RSA PRIVATE KEY",
		Bytes: x509.MarshalPKCS1PrivateKey(privateKey),
	})
	if writeErr := os.WriteFile(privatePath, privatePEM, 0o600); writeErr != nil {
		t.Fatalf("writing private key: %v", writeErr)
	}

	publicBytes, marshalErr := x509.MarshalPKIXPublicKey(&privateKey.PublicKey)
	if marshalErr != nil {
		t.Fatalf("marshaling public key: %v", marshalErr)
	}
	publicPEM := pem.EncodeToMemory(&pem.Block{
		Type:  "PUBLIC KEY",
		Bytes: publicBytes,
	})
	if writeErr := os.WriteFile(publicPath, publicPEM, 0o600); writeErr != nil {
		t.Fatalf("writing public key: %v", writeErr)
	}

	return privatePath, publicPath
}

func setRequiredConfig(t *testing.T) {
	t.Helper()
	privatePath, publicPath := writeTestKeyPair(t)
	viper.Set("listen_addr", ":0")
	viper.Set("token_issuer", "weathervault")
	viper.Set("token_audience", "weathervault-clients")
	viper.Set("access_token_ttl", time.Minute)
	viper.Set("refresh_token_ttl", time.Hour)
	viper.Set("rsa_private_key_file", privatePath)
	viper.Set("rsa_public_key_file", publicPath)
}

func TestZapLoggerMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)

	logger, err := zap.NewProduction()
	if err != nil {
		t.Fatalf("failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	router := gin.New()
	router.Use(zapLoggerMiddleware(logger))
	router.GET("/ping", func(contextGin *gin.Context) {
		contextGin.Status(http.StatusNoContent)
	})

	recorder := httptest.NewRecorder()
	request := httptest.NewRequest(http.MethodGet, "/ping", nil)
	router.ServeHTTP(recorder, request)

	if recorder.Code != http.StatusNoContent {
		t.Fatalf("expected 204, got %d", recorder.Code)
	}
}

func TestRunServerMissingConfig(t *testing.T) {
	gin.SetMode(gin.TestMode)

	viper.Reset()
	defer viper.Reset()

	err := runServer(&cobra.Command{}, nil)
	if err == nil {
		t.Fatalf("expected configuration error")
	}

	expectedMessage := "config.uninitialized_server_config: server configuration not prepared; PreRunE must execute before RunE"
	if err.Error() != expectedMessage {
		t.Fatalf("expected error %q, got %q", expectedMessage, err.Error())
	}
}

func TestLoadServerConfigRequiresIssuer(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("token_audience", "weathervault-clients")
	viper.Set("access_token_ttl", time.Minute)
	viper.Set("refresh_token_ttl", time.Hour)

	_, err := LoadServerConfig()
	if err == nil {
		t.Fatalf("expected error when token_issuer is missing")
	}
	expectedMessage := "config.missing_token_issuer: token_issuer must be provided"
	if err.Error() != expectedMessage {
		t.Fatalf("expected error %q, got %q", expectedMessage, err.Error())
	}
}

func TestLoadServerConfigRequiresPositiveAccessTTL(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("token_issuer", "weathervault")
	viper.Set("token_audience", "weathervault-clients")
	viper.Set("access_token_ttl", 0)
	viper.Set("refresh_token_ttl", time.Hour)

	_, err := LoadServerConfig()
	if err == nil {
		t.Fatalf("expected error when access_token_ttl is non-positive")
	}

	expectedMessage := "config.invalid_access_token_ttl: access_token_ttl must be greater than zero"
	if err.Error() != expectedMessage {
		t.Fatalf("expected error %q, got %q", expectedMessage, err.Error())
	}
}

func TestLoadServerConfigRequiresReadableKeys(t *testing.T) {
	viper.Reset()
	defer viper.Reset()

	viper.Set("token_issuer", "weathervault")
	viper.Set("token_audience", "weathervault-clients")
	viper.Set("access_token_ttl", time.Minute)
	viper.Set("refresh_token_ttl", time.Hour)
	viper.Set("rsa_private_key_file", "/nonexistent/private.pem")
	viper.Set("rsa_public_key_file", "/nonexistent/public.pem")

	if _, err := LoadServerConfig(); err == nil {
		t.Fatalf("expected error for unreadable private key")
	}
}

func TestRunServerInMemoryStores(t *testing.T) {
	gin.SetMode(gin.TestMode)

	viper.Reset()
	defer viper.Reset()

	restoreServe := withServeHTTPStub(func(server *http.Server) error {
		if server.Handler == nil {
			t.Fatalf("expected handler to be configured")
		}
		return http.ErrServerClosed
	})
	defer restoreServe()

	setRequiredConfig(t)
	viper.Set("environment", "development")

	config, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("expected configuration load to succeed, got %v", err)
	}

	command := &cobra.Command{}
	command.SetContext(context.WithValue(context.Background(), serverConfigContextKey, config))

	if err := runServer(command, nil); err != nil {
		t.Fatalf("expected runServer to succeed with in-memory stores, got %v", err)
	}
}

func TestRunServerSQLiteStores(t *testing.T) {
	gin.SetMode(gin.TestMode)

	viper.Reset()
	defer viper.Reset()

	restoreServe := withServeHTTPStub(func(server *http.Server) error {
		return http.ErrServerClosed
	})
	defer restoreServe()

	setRequiredConfig(t)
	viper.Set("environment", "development")
	viper.Set("database_url", "sqlite://file::memory:?cache=shared")
	viper.Set("enable_cors", true)
	viper.Set("cors_allowed_origins", []string{"http://localhost:3000"})

	config, err := LoadServerConfig()
	if err != nil {
		t.Fatalf("expected configuration load to succeed, got %v", err)
	}

	command := &cobra.Command{}
	command.SetContext(context.WithValue(context.Background(), serverConfigContextKey, config))

	if err := runServer(command, nil); err != nil {
		t.Fatalf("expected runServer to succeed with sqlite stores, got %v", err)
	}
}

func TestNewRootCommandHelp(t *testing.T) {
	cmd := newRootCommand()
	cmd.SetArgs([]string{"--help"})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("expected help execution to succeed: %v", err)
	}
}

func withServeHTTPStub(stub func(server *http.Server) error) func() {
	previous := serveHTTP
	serveHTTP = stub
	return func() {
		serveHTTP = previous
	}
}
