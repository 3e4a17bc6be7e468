package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Netflix/go-env"
	"github.com/blugelabs/bluge"
	"github.com/dgraph-io/badger/v4"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"

	"chat-api/auth"
	"chat-api/events"
	"chat-api/graph"
	"chat-api/infrastructure/web"
	"chat-api/internal"
	"chat-api/moderation"
	"chat-api/observability"
	"chat-api/repositories"
	"chat-api/services"
)

// Exit codes to provide meaningful status to the operating system or service manager (e.g., systemd).
const (
	exitOK      = 0
	exitRuntime = 1
	exitConfig  = 2
)

func main() {
	// The main function acts as a thin wrapper.
	// Its only responsibility is to call run() and handle the OS exit code.
	code, err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Server terminated with error: %v\n", err)
	}
	os.Exit(code)
}

// run initializes all components, manages the server lifecycle, and
// centralizes error reporting, so every defer (store close, index close)
// executes before the process exits.
func run() (int, error) {
	// 1. Configuration & logger
	_ = godotenv.Load()

	var config internal.Config
	if _, err := env.UnmarshalFromEnviron(&config); err != nil {
		return exitConfig, fmt.Errorf("config error: %w", err)
	}

	jwtKey, err := config.JWTKey()
	if err != nil {
		return exitConfig, err
	}
	charReplacement, err := internal.CharacterRune(config.CharReplacement)
	if err != nil {
		return exitConfig, err
	}
	seedUsers, err := config.Users()
	if err != nil {
		return exitConfig, err
	}

	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{
		Level: logLevel(config.LogLevel),
	}))

	// 2. Stores. Both run in memory: durability is out of scope for this
	// system, the store contract is append and full-list retrieval.
	db, err := badger.Open(badger.DefaultOptions("").
		WithInMemory(true).
		WithLoggingLevel(badger.ERROR))
	if err != nil {
		return exitRuntime, fmt.Errorf("store opening failed: %w", err)
	}
	defer func() {
		logger.Info("Closing message store...")
		_ = db.Close()
	}()

	blugeWriter, err := bluge.OpenWriter(bluge.InMemoryOnlyConfig())
	if err != nil {
		return exitRuntime, fmt.Errorf("failed to open search index: %w", err)
	}
	defer func() {
		logger.Info("Closing search index...")
		_ = blugeWriter.Close()
	}()

	userRepository := repositories.NewUserRepository(db)
	if err = userRepository.SeedUsers(seedUsers); err != nil {
		return exitRuntime, fmt.Errorf("user seeding failed: %w", err)
	}
	logger.Info("Seeded users", "count", len(seedUsers))

	// 3. Domain services
	metrics := observability.NewMetrics()
	registry := prometheus.NewRegistry()
	metrics.Register(registry)

	moderator, err := moderation.NewModerator(config.Words(), charReplacement, logger)
	if err != nil {
		return exitConfig, fmt.Errorf("moderator setup failed: %w", err)
	}

	bus := events.NewBus(logger, config.BusBufferSize, metrics)
	tokens := auth.NewTokenService(jwtKey, config.AuthTokenDuration)
	authService := services.NewAuthService(userRepository, tokens)
	chatService := services.NewChatService(
		repositories.NewMessageRepository(db, logger, config.LimitMessages),
		repositories.NewSearchRepository(blugeWriter, logger, config.LimitMessages),
		bus,
		moderator,
		logger,
	)

	schema, err := graph.NewSchema(graph.NewResolver(chatService, bus, logger))
	if err != nil {
		return exitRuntime, fmt.Errorf("schema construction failed: %w", err)
	}

	// 4. HTTP + WebSocket transport
	server := web.NewServer(logger, schema, tokens, authService, metrics, registry)
	httpServer := &http.Server{
		Addr:    fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler: server.Handler(),
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("Server listening", "addr", httpServer.Addr, "graphql", "/graphql")
		serveErr <- httpServer.ListenAndServe()
	}()

	select {
	case err = <-serveErr:
		return exitRuntime, err
	case <-ctx.Done():
	}

	logger.Info("Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err = httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return exitRuntime, err
	}
	return exitOK, nil
}

func logLevel(level string) slog.Level {
	switch strings.ToUpper(level) {
	case "DEBUG":
		return slog.LevelDebug
	case "WARN":
		return slog.LevelWarn
	case "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
