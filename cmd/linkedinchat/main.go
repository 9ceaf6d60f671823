package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/soggo/LinkedinChat/internal/api"
	"github.com/soggo/LinkedinChat/internal/auth"
	"github.com/soggo/LinkedinChat/internal/bot"
	"github.com/soggo/LinkedinChat/internal/genai"
	"github.com/soggo/LinkedinChat/internal/linkedin"
	"github.com/soggo/LinkedinChat/internal/messaging"
	"github.com/soggo/LinkedinChat/internal/store"
	"github.com/soggo/LinkedinChat/internal/util"
)

// Default configuration constants
const (
	// DefaultAppBaseURL is the public base URL used to build the OAuth redirect URI.
	DefaultAppBaseURL = "http://localhost:8000"
	// DefaultMessagingBackend selects the WhatsApp Cloud API notifier.
	DefaultMessagingBackend = "whatsapp"
	// ShutdownTimeout bounds graceful HTTP server shutdown.
	ShutdownTimeout = 10 * time.Second
)

// Config holds environment configuration
type Config struct {
	WhatsAppPhoneNumberID string
	WhatsAppAccessToken   string
	WebhookVerifyToken    string
	OpenAIKey             string
	OpenAIModel           string
	LinkedInClientID      string
	LinkedInClientSecret  string
	AppBaseURL            string
	APIAddr               string
	DatabaseURL           string
	MessagingBackend      string
}

// Flags holds command line flag values
type Flags struct {
	apiAddr          *string
	appBaseURL       *string
	dbDSN            *string
	openaiKey        *string
	openaiModel      *string
	messagingBackend *string
}

func main() {
	initializeLogger()

	config := loadEnvironmentConfig()
	flags := parseCommandLineFlags(config)

	st, err := buildStore(flags)
	if err != nil {
		slog.Error("Failed to initialize store", "error", err)
		os.Exit(1)
	}
	defer st.Close()

	notifier, err := buildNotifier(config, flags)
	if err != nil {
		slog.Error("Failed to initialize messaging backend", "error", err)
		os.Exit(1)
	}

	generator := buildGenerator(flags)
	publisher := buildPublisher(config, flags)

	handshakes := auth.NewManager(st)
	b := bot.New(st, notifier, generator, publisher, handshakes)

	server := api.NewServer(b,
		api.WithAddr(*flags.apiAddr),
		api.WithVerifyToken(config.WebhookVerifyToken),
	)

	// Shut down cleanly on SIGINT/SIGTERM.
	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		ctx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(ctx); err != nil {
			slog.Error("Server shutdown failed", "error", err)
		}
	}()

	slog.Info("Bootstrapping LinkedinChat", "addr", *flags.apiAddr, "backend", *flags.messagingBackend)
	if err := server.Start(); err != nil {
		slog.Error("LinkedinChat failed to run", "error", err)
		os.Exit(1)
	}
	slog.Info("LinkedinChat exited successfully")
}

// initializeLogger sets up structured logging with debug level.
func initializeLogger() {
	level := slog.LevelDebug
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		switch strings.ToLower(v) {
		case "info":
			level = slog.LevelInfo
		case "warn":
			level = slog.LevelWarn
		case "error":
			level = slog.LevelError
		}
	}
	var handler slog.Handler
	if util.ParseBoolEnv("LOG_JSON", false) {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}

// loadEnvironmentConfig loads configuration from environment variables and .env file.
func loadEnvironmentConfig() Config {
	if err := godotenv.Load(); err != nil {
		slog.Debug("failed to load .env file", "error", err)
	} else {
		slog.Debug("successfully loaded .env file")
	}

	config := Config{
		WhatsAppPhoneNumberID: os.Getenv("WHATSAPP_PHONE_NUMBER_ID"),
		WhatsAppAccessToken:   os.Getenv("WHATSAPP_ACCESS_TOKEN"),
		WebhookVerifyToken:    os.Getenv("WHATSAPP_WEBHOOK_VERIFY_TOKEN"),
		OpenAIKey:             os.Getenv("OPENAI_API_KEY"),
		OpenAIModel:           os.Getenv("OPENAI_MODEL"),
		LinkedInClientID:      os.Getenv("LINKEDIN_CLIENT_ID"),
		LinkedInClientSecret:  os.Getenv("LINKEDIN_CLIENT_SECRET"),
		AppBaseURL:            os.Getenv("APP_BASE_URL"),
		APIAddr:               os.Getenv("API_ADDR"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		MessagingBackend:      os.Getenv("MESSAGING_BACKEND"),
	}

	if config.AppBaseURL == "" {
		config.AppBaseURL = DefaultAppBaseURL
		slog.Debug("No APP_BASE_URL set, using default", "default", config.AppBaseURL)
	}
	if config.MessagingBackend == "" {
		config.MessagingBackend = DefaultMessagingBackend
	}
	if config.APIAddr == "" {
		config.APIAddr = api.DefaultAddr
	}

	slog.Debug("environment variables loaded",
		"WHATSAPP_PHONE_NUMBER_ID_SET", config.WhatsAppPhoneNumberID != "",
		"WHATSAPP_ACCESS_TOKEN_SET", config.WhatsAppAccessToken != "",
		"WHATSAPP_WEBHOOK_VERIFY_TOKEN_SET", config.WebhookVerifyToken != "",
		"OPENAI_API_KEY_SET", config.OpenAIKey != "",
		"LINKEDIN_CLIENT_ID_SET", config.LinkedInClientID != "",
		"LINKEDIN_CLIENT_SECRET_SET", config.LinkedInClientSecret != "",
		"APP_BASE_URL", config.AppBaseURL,
		"API_ADDR", config.APIAddr,
		"DATABASE_URL_SET", config.DatabaseURL != "",
		"MESSAGING_BACKEND", config.MessagingBackend)

	return config
}

// parseCommandLineFlags parses command line arguments with environment defaults.
func parseCommandLineFlags(config Config) Flags {
	flags := Flags{
		apiAddr:          flag.String("api-addr", config.APIAddr, "API server address (overrides $API_ADDR)"),
		appBaseURL:       flag.String("app-base-url", config.AppBaseURL, "public base URL for the OAuth redirect (overrides $APP_BASE_URL)"),
		dbDSN:            flag.String("db-dsn", config.DatabaseURL, "database DSN for the session store (overrides $DATABASE_URL; empty for in-memory)"),
		openaiKey:        flag.String("openai-api-key", config.OpenAIKey, "OpenAI API key (overrides $OPENAI_API_KEY)"),
		openaiModel:      flag.String("openai-model", config.OpenAIModel, "OpenAI chat model (overrides $OPENAI_MODEL)"),
		messagingBackend: flag.String("messaging-backend", config.MessagingBackend, "messaging backend: whatsapp or twilio (overrides $MESSAGING_BACKEND)"),
	}

	flag.Parse()

	slog.Debug("flags parsed",
		"apiAddr", *flags.apiAddr,
		"appBaseURL", *flags.appBaseURL,
		"dbDSN_set", *flags.dbDSN != "",
		"openaiKeySet", *flags.openaiKey != "",
		"messagingBackend", *flags.messagingBackend)

	return flags
}

// buildStore selects a session store backend from the DSN shape.
func buildStore(flags Flags) (store.Store, error) {
	switch store.DetectDSNType(*flags.dbDSN) {
	case "postgres":
		slog.Debug("Detected PostgreSQL DSN, configuring PostgreSQL store")
		return store.NewPostgresStore(store.WithPostgresDSN(*flags.dbDSN))
	case "sqlite":
		slog.Debug("Detected SQLite DSN, configuring SQLite store", "db_path", *flags.dbDSN)
		return store.NewSQLiteStore(store.WithSQLiteDSN(*flags.dbDSN))
	default:
		slog.Debug("No database DSN provided, using in-memory store")
		return store.NewInMemoryStore(), nil
	}
}

// buildNotifier constructs the configured messaging backend.
func buildNotifier(config Config, flags Flags) (messaging.Service, error) {
	switch strings.ToLower(*flags.messagingBackend) {
	case "twilio":
		return messaging.NewTwilioService()
	default:
		return messaging.NewCloudService(
			messaging.WithPhoneNumberID(config.WhatsAppPhoneNumberID),
			messaging.WithAccessToken(config.WhatsAppAccessToken),
		)
	}
}

// buildGenerator constructs the content generator, or nil when the API key
// is absent. Generation then fails fast with a user-facing apology.
func buildGenerator(flags Flags) bot.Generator {
	var opts []genai.Option
	if *flags.openaiKey != "" {
		opts = append(opts, genai.WithAPIKey(*flags.openaiKey))
	}
	if *flags.openaiModel != "" {
		opts = append(opts, genai.WithModel(*flags.openaiModel))
	}
	client, err := genai.NewClient(opts...)
	if err != nil {
		slog.Warn("Content generator not configured; post generation will not work", "error", err)
		return nil
	}
	return client
}

// buildPublisher constructs the LinkedIn publisher, or nil when credentials
// are absent. The auth command then reports the missing integration.
func buildPublisher(config Config, flags Flags) bot.Publisher {
	client, err := linkedin.NewClient(
		linkedin.WithClientID(config.LinkedInClientID),
		linkedin.WithClientSecret(config.LinkedInClientSecret),
		linkedin.WithRedirectURL(strings.TrimRight(*flags.appBaseURL, "/")+"/callback"),
	)
	if err != nil {
		slog.Warn("LinkedIn publisher not configured; publishing will not work", "error", err)
		return nil
	}
	return client
}
