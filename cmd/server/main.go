package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/weathervault/weathervault/internal/authcore"
	"github.com/weathervault/weathervault/internal/httpapi"
	"github.com/weathervault/weathervault/internal/seed"
	"github.com/weathervault/weathervault/internal/storage"
	"github.com/weathervault/weathervault/internal/storagepg"
	"github.com/weathervault/weathervault/internal/weather"
)

var serveHTTP = func(server *http.Server) error {
	return server.ListenAndServe()
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCommand() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:     "weathervault",
		Short:   "Weather snapshot API with JWT sessions, rotating refresh tokens, and API-key ingestion",
		PreRunE: prepareServerConfig,
		RunE:    runServer,
	}

	rootCmd.Flags().String("listen_addr", ":8080", "HTTP listen address")
	rootCmd.Flags().String("environment", "production", "Deployment environment (development, local, production)")
	rootCmd.Flags().String("database_url", "", "Database URL (postgres:// or sqlite://; leave empty for in-memory stores)")
	rootCmd.Flags().String("token_issuer", "", "Issuer claim stamped into every token")
	rootCmd.Flags().String("token_audience", "", "Audience claim stamped into every token")
	rootCmd.Flags().Duration("access_token_ttl", 2*24*time.Hour, "Access token TTL")
	rootCmd.Flags().Duration("refresh_token_ttl", 7*24*time.Hour, "Refresh token TTL")
	rootCmd.Flags().String("rsa_private_key_file", "", "Path to the PEM-encoded RSA private key used for signing")
	rootCmd.Flags().String("rsa_public_key_file", "", "Path to the PEM-encoded RSA public key used for verification")
	rootCmd.Flags().Bool("enable_cors", false, "Enable CORS for cross-origin clients")
	rootCmd.Flags().StringSlice("cors_allowed_origins", []string{}, "Allowed origins when CORS is enabled (required if enable_cors is true)")

	_ = viper.BindPFlag("listen_addr", rootCmd.Flags().Lookup("listen_addr"))
	_ = viper.BindPFlag("environment", rootCmd.Flags().Lookup("environment"))
	_ = viper.BindPFlag("database_url", rootCmd.Flags().Lookup("database_url"))
	_ = viper.BindPFlag("token_issuer", rootCmd.Flags().Lookup("token_issuer"))
	_ = viper.BindPFlag("token_audience", rootCmd.Flags().Lookup("token_audience"))
	_ = viper.BindPFlag("access_token_ttl", rootCmd.Flags().Lookup("access_token_ttl"))
	_ = viper.BindPFlag("refresh_token_ttl", rootCmd.Flags().Lookup("refresh_token_ttl"))
	_ = viper.BindPFlag("rsa_private_key_file", rootCmd.Flags().Lookup("rsa_private_key_file"))
	_ = viper.BindPFlag("rsa_public_key_file", rootCmd.Flags().Lookup("rsa_public_key_file"))
	_ = viper.BindPFlag("enable_cors", rootCmd.Flags().Lookup("enable_cors"))
	_ = viper.BindPFlag("cors_allowed_origins", rootCmd.Flags().Lookup("cors_allowed_origins"))

	viper.SetEnvPrefix("APP")
	viper.AutomaticEnv()

	return rootCmd
}

const (
	configCodeMissingIssuer      = "config.missing_token_issuer"
	configCodeMissingAudience    = "config.missing_token_audience"
	configCodeInvalidAccessTTL   = "config.invalid_access_token_ttl"
	configCodeInvalidRefreshTTL  = "config.invalid_refresh_token_ttl"
	configCodeMissingPrivateKey  = "config.missing_rsa_private_key_file"
	configCodeMissingPublicKey   = "config.missing_rsa_public_key_file"
	configCodeUnreadablePrivate  = "config.unreadable_rsa_private_key"
	configCodeUnreadablePublic   = "config.unreadable_rsa_public_key"
	configCodeUninitializedConf  = "config.uninitialized_server_config"
	configCodeInvalidDatabaseURL = "config.invalid_database_url"
)

type contextKey string

const serverConfigContextKey contextKey = "serverConfig"

// ServerConfig is everything the process needs past flag parsing.
type ServerConfig struct {
	ListenAddr         string
	Environment        string
	DatabaseURL        string
	TokenConfig        authcore.TokenConfig
	PrivateKeyPEM      []byte
	PublicKeyPEM       []byte
	EnableCORS         bool
	CORSAllowedOrigins []string
}

func prepareServerConfig(command *cobra.Command, arguments []string) error {
	serverConfig, loadErr := LoadServerConfig()
	if loadErr != nil {
		return loadErr
	}
	existingContext := command.Context()
	if existingContext == nil {
		existingContext = context.Background()
	}
	command.SetContext(context.WithValue(existingContext, serverConfigContextKey, serverConfig))
	return nil
}

func configError(code, message string) error {
	return fmt.Errorf("%s: %s", code, message)
}

// LoadServerConfig reads and validates the full server configuration from viper.
func LoadServerConfig() (ServerConfig, error) {
	tokenIssuer := viper.GetString("token_issuer")
	if strings.TrimSpace(tokenIssuer) == "" {
		return ServerConfig{}, configError(configCodeMissingIssuer, "token_issuer must be provided")
	}

	tokenAudience := viper.GetString("token_audience")
	if strings.TrimSpace(tokenAudience) == "" {
		return ServerConfig{}, configError(configCodeMissingAudience, "token_audience must be provided")
	}

	accessTokenTTL := viper.GetDuration("access_token_ttl")
	if accessTokenTTL <= 0 {
		return ServerConfig{}, configError(configCodeInvalidAccessTTL, "access_token_ttl must be greater than zero")
	}

	refreshTokenTTL := viper.GetDuration("refresh_token_ttl")
	if refreshTokenTTL <= 0 {
		return ServerConfig{}, configError(configCodeInvalidRefreshTTL, "refresh_token_ttl must be greater than zero")
	}

	privateKeyFile := viper.GetString("rsa_private_key_file")
	if strings.TrimSpace(privateKeyFile) == "" {
		return ServerConfig{}, configError(configCodeMissingPrivateKey, "rsa_private_key_file must be provided")
	}
	privateKeyPEM, privateReadErr := os.ReadFile(privateKeyFile)
	if privateReadErr != nil {
		return ServerConfig{}, fmt.Errorf("%s: %w", configCodeUnreadablePrivate, privateReadErr)
	}

	publicKeyFile := viper.GetString("rsa_public_key_file")
	if strings.TrimSpace(publicKeyFile) == "" {
		return ServerConfig{}, configError(configCodeMissingPublicKey, "rsa_public_key_file must be provided")
	}
	publicKeyPEM, publicReadErr := os.ReadFile(publicKeyFile)
	if publicReadErr != nil {
		return ServerConfig{}, fmt.Errorf("%s: %w", configCodeUnreadablePublic, publicReadErr)
	}

	return ServerConfig{
		ListenAddr:  viper.GetString("listen_addr"),
		Environment: viper.GetString("environment"),
		DatabaseURL: viper.GetString("database_url"),
		TokenConfig: authcore.TokenConfig{
			Issuer:               tokenIssuer,
			Audience:             tokenAudience,
			AccessTokenValidity:  accessTokenTTL,
			RefreshTokenValidity: refreshTokenTTL,
		},
		PrivateKeyPEM:      privateKeyPEM,
		PublicKeyPEM:       publicKeyPEM,
		EnableCORS:         viper.GetBool("enable_cors"),
		CORSAllowedOrigins: viper.GetStringSlice("cors_allowed_origins"),
	}, nil
}

type storeSet struct {
	users     authcore.CredentialStore
	roles     authcore.RoleStore
	keystores authcore.KeystoreStore
	apiKeys   authcore.APIKeyStore
	weather   weather.Store
}

// buildStores selects store implementations from the database URL. Postgres
// deployments swap the keystore hot path onto a raw pgx pool; an empty URL
// keeps everything in memory for databaseless development runs.
func buildStores(ctx context.Context, databaseURL string, logger *zap.Logger) (storeSet, error) {
	if strings.TrimSpace(databaseURL) == "" {
		logger.Info("using in-memory stores")
		return storeSet{
			users:     authcore.NewMemoryCredentialStore(),
			roles:     authcore.NewMemoryRoleStore(),
			keystores: authcore.NewMemoryKeystoreStore(),
			apiKeys:   authcore.NewMemoryAPIKeyStore(),
			weather:   weather.NewMemoryStore(),
		}, nil
	}

	database, openErr := storage.Open(ctx, databaseURL)
	if openErr != nil {
		return storeSet{}, openErr
	}
	logger.Info("using persistent stores", zap.String("driver", database.Driver()))

	stores := storeSet{
		users:     storage.NewCredentialStore(database),
		roles:     storage.NewRoleStore(database),
		keystores: storage.NewKeystoreStore(database),
		apiKeys:   storage.NewAPIKeyStore(database),
		weather:   storage.NewWeatherStore(database),
	}

	if isPostgresURL(databaseURL) {
		pool, poolErr := storagepg.BuildPool(ctx, databaseURL)
		if poolErr != nil {
			return storeSet{}, poolErr
		}
		if schemaErr := storagepg.EnsureKeystoreSchema(ctx, pool); schemaErr != nil {
			return storeSet{}, schemaErr
		}
		stores.keystores = storagepg.NewKeystoreStore(pool)
		logger.Info("keystore consumption routed through pgx pool")
	}

	return stores, nil
}

func isPostgresURL(databaseURL string) bool {
	parsed, parseErr := url.Parse(databaseURL)
	if parseErr != nil {
		return false
	}
	scheme := strings.ToLower(parsed.Scheme)
	return scheme == "postgres" || scheme == "postgresql"
}

func runServer(command *cobra.Command, arguments []string) error {
	logger, loggerErr := zap.NewProduction()
	if loggerErr != nil {
		return loggerErr
	}
	defer func() { _ = logger.Sync() }()

	commandContext := command.Context()
	var contextValue any
	if commandContext != nil {
		contextValue = commandContext.Value(serverConfigContextKey)
	}
	serverConfig, ok := contextValue.(ServerConfig)
	if !ok {
		return configError(configCodeUninitializedConf, "server configuration not prepared; PreRunE must execute before RunE")
	}

	startupCtx := command.Context()
	if startupCtx == nil {
		startupCtx = context.Background()
	}

	stores, storesErr := buildStores(startupCtx, serverConfig.DatabaseURL, logger)
	if storesErr != nil {
		return fmt.Errorf("%s: %w", configCodeInvalidDatabaseURL, storesErr)
	}

	if seedErr := seed.Run(startupCtx, serverConfig.Environment, stores.roles, stores.users, logger); seedErr != nil {
		return seedErr
	}

	clock := authcore.NewSystemClock()
	codec, codecErr := authcore.NewTokenCodec(serverConfig.PrivateKeyPEM, serverConfig.PublicKeyPEM, clock)
	if codecErr != nil {
		return codecErr
	}

	metricsRecorder := authcore.NewCounterMetrics()
	sessions := authcore.NewSessionManager(
		serverConfig.TokenConfig,
		stores.users,
		stores.roles,
		stores.keystores,
		stores.apiKeys,
		codec,
		logger,
		metricsRecorder,
	)
	weatherService := weather.NewService(stores.weather, logger)

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(zapLoggerMiddleware(logger))

	if serverConfig.EnableCORS {
		corsMiddleware, corsErr := httpapi.ConfigureCORS(logger, serverConfig.CORSAllowedOrigins)
		if corsErr != nil {
			return corsErr
		}
		router.Use(corsMiddleware)
	}

	httpapi.MountRoutes(router, httpapi.Dependencies{
		Sessions:    sessions,
		Users:       stores.users,
		Weather:     weatherService,
		Logger:      logger,
		Metrics:     metricsRecorder,
		Environment: serverConfig.Environment,
	})

	server := &http.Server{
		Addr:              serverConfig.ListenAddr,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	shutdownCtx, shutdownCancel := context.WithCancel(context.Background())
	defer shutdownCancel()

	go func() {
		stopSignals := make(chan os.Signal, 1)
		signal.Notify(stopSignals, syscall.SIGINT, syscall.SIGTERM)
		<-stopSignals
		graceCtx, graceCancel := context.WithTimeout(shutdownCtx, 10*time.Second)
		defer graceCancel()
		if err := server.Shutdown(graceCtx); err != nil {
			logger.Error("server shutdown error", zap.Error(err))
		}
	}()

	logger.Info("listening",
		zap.String("addr", serverConfig.ListenAddr),
		zap.String("environment", serverConfig.Environment))
	if err := serveHTTP(server); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("listen error: %w", err)
	}
	return nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return func(contextGin *gin.Context) {
		startTime := time.Now()
		contextGin.Next()
		duration := time.Since(startTime)
		logger.Info("http",
			zap.String("method", contextGin.Request.Method),
			zap.String("path", contextGin.Request.URL.Path),
			zap.Int("status", contextGin.Writer.Status()),
			zap.String("ip", contextGin.ClientIP()),
			zap.Duration("elapsed", duration),
		)
	}
}
